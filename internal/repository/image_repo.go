package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/kanae-lab/cardvault/internal/database"
	"github.com/kanae-lab/cardvault/internal/models"
)

// imageRepository 图片元数据存储的GORM实现
type imageRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewImageRepository 使用指定数据库句柄创建图片元数据存储
func NewImageRepository(db *gorm.DB, logger *logrus.Logger) ImageRepository {
	if logger == nil {
		logger = logrus.New()
	}
	return &imageRepository{db: db, logger: logger}
}

// Create 插入图片记录
func (r *imageRepository) Create(img *models.Image) (int64, error) {
	if err := r.db.Create(img).Error; err != nil {
		if isUniqueViolation(err) {
			// 去重检查之后才触发约束，说明检查已经过期（并发保存竞争）
			r.logger.WithField("hash", img.Hash).Warn("Metadata insert hit unique constraint after dedup check")
			return 0, models.ErrPersistenceConflict
		}
		return 0, fmt.Errorf("failed to create image record: %w", err)
	}
	return img.ID, nil
}

// GetByID 按ID取图片记录
func (r *imageRepository) GetByID(id int64) (*models.Image, error) {
	var img models.Image
	err := r.db.Where("id = ?", id).First(&img).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrRecordNotFound
		}
		return nil, err
	}
	return &img, nil
}

// GetByHash 按内容哈希取图片记录（去重查询）
func (r *imageRepository) GetByHash(hash string) (*models.Image, error) {
	var img models.Image
	err := r.db.Where("hash = ?", hash).First(&img).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &img, nil
}

// GetByCollection 按集合标签取图片记录
func (r *imageRepository) GetByCollection(collection string) ([]*models.Image, error) {
	var images []*models.Image
	if err := r.db.Where("collection = ?", collection).Find(&images).Error; err != nil {
		return nil, err
	}
	return images, nil
}

// GetAll 取全部图片记录
func (r *imageRepository) GetAll() ([]*models.Image, error) {
	var images []*models.Image
	if err := r.db.Find(&images).Error; err != nil {
		return nil, err
	}
	return images, nil
}

// Search 参数化条件检索
func (r *imageRepository) Search(condition string, params ...interface{}) ([]*models.Image, error) {
	var images []*models.Image
	if err := r.db.Where(condition, params...).Find(&images).Error; err != nil {
		return nil, err
	}
	return images, nil
}

// Update 架构过滤后的部分更新
func (r *imageRepository) Update(id int64, fields map[string]interface{}) error {
	valid := models.FilterImageFields(fields)
	if len(valid) == 0 {
		return nil
	}
	return r.db.Model(&models.Image{}).Where("id = ?", id).Updates(valid).Error
}

// Delete 删除图片元数据行
func (r *imageRepository) Delete(id int64) error {
	return r.db.Delete(&models.Image{}, id).Error
}

// ByType 按图片类型检索
func (r *imageRepository) ByType(imageType string) ([]*models.Image, error) {
	return r.Search("image_type = ?", imageType)
}

// Children 按父图片ID检索子图片
func (r *imageRepository) Children(parentID int64) ([]*models.Image, error) {
	return r.Search("parent_image_id = ?", parentID)
}

// BySizeRange 按宽高范围检索
func (r *imageRepository) BySizeRange(minWidth, maxWidth, minHeight, maxHeight int) ([]*models.Image, error) {
	return r.Search("width BETWEEN ? AND ? AND height BETWEEN ? AND ?",
		minWidth, maxWidth, minHeight, maxHeight)
}

// ByFormat 按图片格式检索
func (r *imageRepository) ByFormat(format string) ([]*models.Image, error) {
	return r.Search("format = ?", format)
}

// ImageInfo 图片专有字段的窄投影
func (r *imageRepository) ImageInfo(id int64) (*models.ImageInfo, error) {
	img, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}
	return &models.ImageInfo{
		Width:         img.Width,
		Height:        img.Height,
		Format:        img.Format,
		ThumbnailPath: img.ThumbnailPath,
		ImageType:     img.ImageType,
		RegionIndex:   img.RegionIndex,
		ParentImageID: img.ParentImageID,
		MaskImageID:   img.MaskImageID,
	}, nil
}

// Close 释放底层数据库句柄
func (r *imageRepository) Close() error {
	return database.Close(r.db)
}

// isUniqueViolation 判断错误是否为唯一约束冲突
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
