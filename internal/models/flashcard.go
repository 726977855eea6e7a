package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Flashcard 闪卡CSV文件元数据模型
type Flashcard struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Filename     string         `gorm:"not null" json:"filename"`         // 生成的存储文件名
	OriginalName string         `json:"original_name"`                    // 用户侧的原始文件名
	FilePath     string         `gorm:"not null" json:"file_path"`        // 相对于存储根目录的路径
	Collection   string         `gorm:"index" json:"collection"`          // 自由分组标签
	Columns      datatypes.JSON `json:"columns"`                          // 有序列名列表（JSON）
	RowCount     *int           `json:"row_count"`                        // 数据行数，解析失败时为空
	FileSize     int64          `json:"file_size"`                        // 文件大小（字节）
	Encoding     string         `gorm:"default:utf-8" json:"encoding"`    // 文件编码
	Delimiter    string         `gorm:"default:," json:"delimiter"`       // CSV分隔符
	Hash         string         `gorm:"uniqueIndex;not null" json:"hash"` // 内容哈希（去重键）
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`

	// FullPath 运行时解析出的绝对路径，不落库
	FullPath string `gorm:"-" json:"full_path,omitempty"`
}

// TableName 指定表名
func (Flashcard) TableName() string {
	return "flashcards"
}

// RecordID 实现 Record 接口
func (f *Flashcard) RecordID() int64 { return f.ID }

// RecordFilename 实现 Record 接口
func (f *Flashcard) RecordFilename() string { return f.Filename }

// RecordCollection 实现 Record 接口
func (f *Flashcard) RecordCollection() string { return f.Collection }

// RecordFileSize 实现 Record 接口
func (f *Flashcard) RecordFileSize() int64 { return f.FileSize }

// SetFullPath 实现 Record 接口
func (f *Flashcard) SetFullPath(p string) { f.FullPath = p }

// ColumnNames 反序列化列名列表，数据缺失或损坏时返回空切片
func (f *Flashcard) ColumnNames() []string {
	if len(f.Columns) == 0 {
		return nil
	}
	var cols []string
	if err := json.Unmarshal(f.Columns, &cols); err != nil {
		return nil
	}
	return cols
}

// CSVMeta CSV文件的派生元数据（从已存储的副本中提取）
// 解码失败时行数和列名保持为空，encoding 置为 unknown
type CSVMeta struct {
	RowCount  *int
	Columns   []string
	Encoding  string
	Delimiter string
	FileSize  int64
}

// CSVInfo 闪卡专有字段的窄投影
type CSVInfo struct {
	Columns   []string `json:"columns"`
	RowCount  *int     `json:"row_count"`
	Encoding  string   `json:"encoding"`
	Delimiter string   `json:"delimiter"`
}
