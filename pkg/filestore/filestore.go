// Package filestore 管理单个存储域的物理目录树
// 包含主文件区、缩略图区和临时暂存区，提供复制、移动、删除与缩略图生成
package filestore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/kanae-lab/cardvault/pkg/hashutil"
)

// Paths 一个存储域的目录配置
type Paths struct {
	Base       string // 基础目录（相对路径计算的根）
	Storage    string // 主文件保存目录
	Thumbnails string // 缩略图保存目录
	Temp       string // 临时文件目录
}

// Manager 单个存储域的物理文件管理器
type Manager struct {
	paths  Paths
	logger *logrus.Logger

	thumbWidth  int // 缩略图最大宽度
	thumbHeight int // 缩略图最大高度
	jpegQuality int // 缩略图JPEG质量
}

// Option 文件管理器配置选项
type Option func(*Manager)

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithThumbnailSize 设置缩略图最大尺寸
func WithThumbnailSize(width, height int) Option {
	return func(m *Manager) {
		if width > 0 && height > 0 {
			m.thumbWidth = width
			m.thumbHeight = height
		}
	}
}

// WithJPEGQuality 设置缩略图JPEG编码质量
func WithJPEGQuality(quality int) Option {
	return func(m *Manager) {
		if quality > 0 && quality <= 100 {
			m.jpegQuality = quality
		}
	}
}

// NewManager 创建文件管理器并确保目录树存在（幂等）
func NewManager(paths Paths, opts ...Option) (*Manager, error) {
	m := &Manager{
		paths:       paths,
		logger:      logrus.New(),
		thumbWidth:  200,
		thumbHeight: 200,
		jpegQuality: 85,
	}
	for _, opt := range opts {
		opt(m)
	}

	for _, dir := range []string{paths.Storage, paths.Thumbnails, paths.Temp} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
		}
	}

	return m, nil
}

// SaveFile 将源文件复制进主文件区并返回新的保存路径
// 源文件保持原样（复制而非移动）；失败时错误向上传播，调用方据此中止记录创建
func (m *Manager) SaveFile(sourcePath string) (string, error) {
	filename := hashutil.GenerateFilename(filepath.Ext(sourcePath))
	savePath := filepath.Join(m.paths.Storage, filename)

	if err := copyFile(sourcePath, savePath); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return savePath, nil
}

// SaveToTemp 将源文件复制进临时暂存区
func (m *Manager) SaveToTemp(sourcePath string) (string, error) {
	filename := hashutil.TempFilename(filepath.Ext(sourcePath))
	tempPath := filepath.Join(m.paths.Temp, filename)

	if err := copyFile(sourcePath, tempPath); err != nil {
		return "", fmt.Errorf("failed to save temp file: %w", err)
	}
	return tempPath, nil
}

// CreateTemp 在暂存区创建一个空的临时文件并返回其路径
// 生产者向该文件写入内容后，再通过 MoveFromTemp 正式入库
func (m *Manager) CreateTemp(ext string) (string, error) {
	filename := hashutil.TempFilename(ext)
	tempPath := filepath.Join(m.paths.Temp, filename)

	f, err := os.Create(tempPath)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return tempPath, nil
}

// MoveFromTemp 把暂存区里的文件移动进主文件区并赋予新文件名
// 用于生产者先写临时文件、消费者再正式入库的暂存模式
func (m *Manager) MoveFromTemp(tempFilename string) (string, error) {
	tempPath := filepath.Join(m.paths.Temp, tempFilename)
	if _, err := os.Stat(tempPath); err != nil {
		return "", fmt.Errorf("temp file not found: %w", err)
	}

	filename := hashutil.GenerateFilename(filepath.Ext(tempPath))
	finalPath := filepath.Join(m.paths.Storage, filename)

	if err := os.Rename(tempPath, finalPath); err != nil {
		// 跨设备场景下回退为复制加删除
		if copyErr := copyFile(tempPath, finalPath); copyErr != nil {
			return "", fmt.Errorf("failed to move temp file: %w", copyErr)
		}
		if rmErr := os.Remove(tempPath); rmErr != nil {
			m.logger.WithError(rmErr).Warn("Failed to remove temp file after copy")
		}
	}
	return finalPath, nil
}

// DeleteFile 删除主文件与可选的缩略图
// 文件不存在不算错误；其余物理删除失败只记录日志，不向上抛出
func (m *Manager) DeleteFile(filePath string, thumbnailPath string) {
	for _, p := range []string{filePath, thumbnailPath} {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			m.logger.WithError(err).WithField("path", p).Error("Failed to delete file")
		}
	}
}

// FilePath 由存储文件名得到绝对保存路径
func (m *Manager) FilePath(filename string) string {
	return filepath.Join(m.paths.Storage, filename)
}

// RelativePath 把完整路径转换为相对于基础目录的路径，便于可移植地持久化
func (m *Manager) RelativePath(fullPath string) string {
	rel, err := filepath.Rel(m.paths.Base, fullPath)
	if err != nil {
		return fullPath
	}
	return rel
}

// PathsInfo 返回目录配置信息（含解析后的绝对路径）
func (m *Manager) PathsInfo() map[string]string {
	info := map[string]string{
		"base_path":       m.paths.Base,
		"storage_path":    m.paths.Storage,
		"thumbnails_path": m.paths.Thumbnails,
		"temp_path":       m.paths.Temp,
	}
	if abs, err := filepath.Abs(m.paths.Storage); err == nil {
		info["storage_path_resolved"] = abs
	}
	if abs, err := filepath.Abs(m.paths.Thumbnails); err == nil {
		info["thumbnails_path_resolved"] = abs
	}
	if abs, err := filepath.Abs(m.paths.Temp); err == nil {
		info["temp_path_resolved"] = abs
	}
	return info
}

// copyFile 复制文件内容并保留基本权限
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
