package models

import (
	"time"
)

// 图片类型常量
const (
	// ImageTypeOriginal 原始图片
	ImageTypeOriginal = "original"
	// ImageTypeSplit 从父图片分割出的区域图片
	ImageTypeSplit = "split"
	// ImageTypeMask 蒙版图片
	ImageTypeMask = "mask"
)

// Image 图片元数据模型
// 每行对应一份已入库的图片文件
type Image struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Filename      string    `gorm:"not null" json:"filename"`         // 生成的存储文件名
	OriginalName  string    `json:"original_name"`                    // 用户侧的原始文件名（仅供展示）
	FilePath      string    `gorm:"not null" json:"file_path"`        // 相对于存储根目录的路径
	Collection    string    `gorm:"index" json:"collection"`          // 自由分组标签
	ImageType     string    `gorm:"index" json:"image_type"`          // original / split / mask
	RegionIndex   *int      `json:"region_index"`                     // 分割区域编号（仅 split）
	ParentImageID *int64    `gorm:"index" json:"parent_image_id"`     // 父图片ID（split/mask 的回溯引用）
	MaskImageID   string    `json:"mask_image_id"`                    // 蒙版描述（JSON 等不透明数据）
	FileSize      int64     `json:"file_size"`                        // 文件大小（字节）
	Width         *int      `json:"width"`                            // 图片宽度，解码失败时为空
	Height        *int      `json:"height"`                           // 图片高度，解码失败时为空
	Format        *string   `json:"format"`                           // JPEG, PNG 等，解码失败时为空
	ThumbnailPath string    `json:"thumbnail_path"`                   // 缩略图路径，可能为空
	Hash          string    `gorm:"uniqueIndex;not null" json:"hash"` // 内容哈希（去重键）
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`

	// FullPath 运行时解析出的绝对路径，不落库
	FullPath string `gorm:"-" json:"full_path,omitempty"`
}

// TableName 指定表名
func (Image) TableName() string {
	return "images"
}

// RecordID 实现 Record 接口
func (i *Image) RecordID() int64 { return i.ID }

// RecordFilename 实现 Record 接口
func (i *Image) RecordFilename() string { return i.Filename }

// RecordCollection 实现 Record 接口
func (i *Image) RecordCollection() string { return i.Collection }

// RecordFileSize 实现 Record 接口
func (i *Image) RecordFileSize() int64 { return i.FileSize }

// SetFullPath 实现 Record 接口
func (i *Image) SetFullPath(p string) { i.FullPath = p }

// ImageMeta 图片文件的派生元数据（从已存储的副本中提取）
// 解码失败时宽高和格式保持为空，记录仍然创建
type ImageMeta struct {
	Width    *int
	Height   *int
	Format   *string
	FileSize int64
}

// ImageInfo 图片专有字段的窄投影
type ImageInfo struct {
	Width         *int    `json:"width"`
	Height        *int    `json:"height"`
	Format        *string `json:"format"`
	ThumbnailPath string  `json:"thumbnail_path"`
	ImageType     string  `json:"image_type"`
	RegionIndex   *int    `json:"region_index"`
	ParentImageID *int64  `json:"parent_image_id"`
	MaskImageID   string  `json:"mask_image_id"`
}
