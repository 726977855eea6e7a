package repository

import (
	"github.com/kanae-lab/cardvault/internal/models"
)

// ImageRepository 图片域元数据存储接口
// 通用CRUD之外还负责图片专有的派生元数据提取与字段投影
type ImageRepository interface {
	// Create 插入一条记录并返回新ID
	// 唯一约束冲突（哈希竞争）被吸收为 ErrPersistenceConflict，不向外抛异常
	Create(img *models.Image) (int64, error)

	// GetByID 按ID取记录，不存在时返回 ErrRecordNotFound
	GetByID(id int64) (*models.Image, error)

	// GetByHash 按内容哈希取记录（去重检查），不存在时返回 nil
	GetByHash(hash string) (*models.Image, error)

	// GetByCollection 按集合标签取记录
	GetByCollection(collection string) ([]*models.Image, error)

	// GetAll 取全部记录
	GetAll() ([]*models.Image, error)

	// Search 参数化条件检索，条件串不与外部输入拼接
	Search(condition string, params ...interface{}) ([]*models.Image, error)

	// Update 架构过滤后的部分更新，id/hash 永远不可更新
	Update(id int64, fields map[string]interface{}) error

	// Delete 删除元数据行
	Delete(id int64) error

	// ByType 按图片类型检索
	ByType(imageType string) ([]*models.Image, error)

	// Children 按父图片ID检索子图片
	Children(parentID int64) ([]*models.Image, error)

	// BySizeRange 按宽高范围检索
	BySizeRange(minWidth, maxWidth, minHeight, maxHeight int) ([]*models.Image, error)

	// ByFormat 按图片格式检索
	ByFormat(format string) ([]*models.Image, error)

	// ImageInfo 图片专有字段的窄投影
	ImageInfo(id int64) (*models.ImageInfo, error)

	// ExtractMetadata 从已存储的文件副本提取派生元数据
	// 解码失败时降级为空字段而不是错误，文件仍然被编目
	ExtractMetadata(path string) models.ImageMeta

	// Close 释放底层数据库句柄
	Close() error
}

// FlashcardRepository 闪卡域元数据存储接口
type FlashcardRepository interface {
	// Create 插入一条记录并返回新ID
	// 唯一约束冲突（哈希竞争）被吸收为 ErrPersistenceConflict，不向外抛异常
	Create(card *models.Flashcard) (int64, error)

	// GetByID 按ID取记录，不存在时返回 ErrRecordNotFound
	GetByID(id int64) (*models.Flashcard, error)

	// GetByHash 按内容哈希取记录（去重检查），不存在时返回 nil
	GetByHash(hash string) (*models.Flashcard, error)

	// GetByCollection 按集合标签取记录
	GetByCollection(collection string) ([]*models.Flashcard, error)

	// GetAll 取全部记录
	GetAll() ([]*models.Flashcard, error)

	// Search 参数化条件检索，条件串不与外部输入拼接
	Search(condition string, params ...interface{}) ([]*models.Flashcard, error)

	// Update 架构过滤后的部分更新，id/hash 永远不可更新
	Update(id int64, fields map[string]interface{}) error

	// Delete 删除元数据行
	Delete(id int64) error

	// ByRowCountRange 按数据行数范围检索
	ByRowCountRange(minRows, maxRows int) ([]*models.Flashcard, error)

	// UpdateColumns 更新列名列表
	UpdateColumns(id int64, columns []string) error

	// CSVInfo 闪卡专有字段的窄投影
	CSVInfo(id int64) (*models.CSVInfo, error)

	// ExtractMetadata 从已存储的文件副本提取派生元数据
	// 按 utf-8 → shift-jis 的顺序试解码，全部失败时降级为 unknown
	ExtractMetadata(path string) models.CSVMeta

	// Close 释放底层数据库句柄
	Close() error
}
