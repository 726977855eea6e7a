// Package hashutil 提供内容哈希与存储文件名生成工具
// 存储引擎用内容哈希做去重键，用随机文件名避免与原始文件名冲突
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
)

// 分块读取大小，避免大文件整体载入内存
const chunkSize = 4096

// FileHash 流式计算文件内容的SHA-256十六进制摘要
// 源文件缺失或不可读时返回包装后的I/O错误，不做重试
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for hashing: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, chunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read file for hashing: %w", err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// GenerateFilename 生成新的存储文件名（uuid十六进制 + 小写扩展名）
// 与原始文件名无关，碰撞概率可以忽略
func GenerateFilename(ext string) string {
	return uuid.New().String() + normalizeExt(ext)
}

// TempFilename 生成临时暂存区文件名，带 temp_ 前缀便于排查
func TempFilename(ext string) string {
	return "temp_" + uuid.New().String() + normalizeExt(ext)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
