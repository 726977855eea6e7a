package repository

import (
	"bytes"
	"encoding/csv"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"github.com/kanae-lab/cardvault/internal/models"
)

// 编码探测顺序：先按UTF-8处理，失败后回退到Shift-JIS（CP932）
const (
	encodingUTF8     = "utf-8"
	encodingShiftJIS = "shift-jis"
	encodingUnknown  = "unknown"
)

// ExtractMetadata 从已存储的CSV副本提取行数、列名、编码和分隔符
// 所有解码尝试都失败时降级为 unknown，记录仍然创建
func (r *flashcardRepository) ExtractMetadata(path string) models.CSVMeta {
	meta := models.CSVMeta{
		Encoding:  encodingUTF8,
		Delimiter: ",",
	}

	if info, err := os.Stat(path); err == nil {
		meta.FileSize = info.Size()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		r.logger.WithError(err).WithField("path", path).Warn("Failed to read CSV for metadata extraction")
		meta.Encoding = encodingUnknown
		return meta
	}

	// UTF-8 试解码
	if utf8.Valid(raw) {
		if ok := r.parseCSV(raw, &meta); ok {
			meta.Encoding = encodingUTF8
		}
		// 解析失败时保持 utf-8 标记和空的行列信息
		return meta
	}

	// Shift-JIS 回退
	decoded, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), raw)
	if err == nil && r.parseCSV(decoded, &meta) {
		meta.Encoding = encodingShiftJIS
		return meta
	}

	r.logger.WithField("path", path).Warn("CSV encoding detection failed, cataloging with degraded metadata")
	meta.Encoding = encodingUnknown
	return meta
}

// parseCSV 按探测出的分隔符解析内容，填充列名和数据行数
func (r *flashcardRepository) parseCSV(data []byte, meta *models.CSVMeta) bool {
	delimiter := sniffDelimiter(data)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = rune(delimiter[0])
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil || len(records) == 0 {
		return false
	}

	// 首行是表头，其余为数据行
	columns := records[0]
	rowCount := len(records) - 1

	meta.Columns = columns
	meta.RowCount = &rowCount
	meta.Delimiter = delimiter
	return true
}

// sniffDelimiter 根据首行中候选分隔符的出现次数做简单探测，默认逗号
func sniffDelimiter(data []byte) string {
	line := string(data)
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}

	best := ","
	bestCount := strings.Count(line, ",")
	for _, cand := range []string{"\t", ";"} {
		if n := strings.Count(line, cand); n > bestCount {
			best = cand
			bestCount = n
		}
	}
	return best
}
