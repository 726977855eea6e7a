package repository

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/kanae-lab/cardvault/internal/database"
	"github.com/kanae-lab/cardvault/internal/models"
)

// flashcardRepository 闪卡元数据存储的GORM实现
type flashcardRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewFlashcardRepository 使用指定数据库句柄创建闪卡元数据存储
func NewFlashcardRepository(db *gorm.DB, logger *logrus.Logger) FlashcardRepository {
	if logger == nil {
		logger = logrus.New()
	}
	return &flashcardRepository{db: db, logger: logger}
}

// Create 插入闪卡记录
func (r *flashcardRepository) Create(card *models.Flashcard) (int64, error) {
	if err := r.db.Create(card).Error; err != nil {
		if isUniqueViolation(err) {
			r.logger.WithField("hash", card.Hash).Warn("Metadata insert hit unique constraint after dedup check")
			return 0, models.ErrPersistenceConflict
		}
		return 0, fmt.Errorf("failed to create flashcard record: %w", err)
	}
	return card.ID, nil
}

// GetByID 按ID取闪卡记录
func (r *flashcardRepository) GetByID(id int64) (*models.Flashcard, error) {
	var card models.Flashcard
	err := r.db.Where("id = ?", id).First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrRecordNotFound
		}
		return nil, err
	}
	return &card, nil
}

// GetByHash 按内容哈希取闪卡记录（去重查询）
func (r *flashcardRepository) GetByHash(hash string) (*models.Flashcard, error) {
	var card models.Flashcard
	err := r.db.Where("hash = ?", hash).First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &card, nil
}

// GetByCollection 按集合标签取闪卡记录
func (r *flashcardRepository) GetByCollection(collection string) ([]*models.Flashcard, error) {
	var cards []*models.Flashcard
	if err := r.db.Where("collection = ?", collection).Find(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

// GetAll 取全部闪卡记录
func (r *flashcardRepository) GetAll() ([]*models.Flashcard, error) {
	var cards []*models.Flashcard
	if err := r.db.Find(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

// Search 参数化条件检索
func (r *flashcardRepository) Search(condition string, params ...interface{}) ([]*models.Flashcard, error) {
	var cards []*models.Flashcard
	if err := r.db.Where(condition, params...).Find(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

// Update 架构过滤后的部分更新
func (r *flashcardRepository) Update(id int64, fields map[string]interface{}) error {
	valid := models.FilterFlashcardFields(fields)
	if len(valid) == 0 {
		return nil
	}
	return r.db.Model(&models.Flashcard{}).Where("id = ?", id).Updates(valid).Error
}

// Delete 删除闪卡元数据行
func (r *flashcardRepository) Delete(id int64) error {
	return r.db.Delete(&models.Flashcard{}, id).Error
}

// ByRowCountRange 按数据行数范围检索
func (r *flashcardRepository) ByRowCountRange(minRows, maxRows int) ([]*models.Flashcard, error) {
	return r.Search("row_count BETWEEN ? AND ?", minRows, maxRows)
}

// UpdateColumns 更新列名列表
func (r *flashcardRepository) UpdateColumns(id int64, columns []string) error {
	data, err := json.Marshal(columns)
	if err != nil {
		return fmt.Errorf("failed to serialize columns: %w", err)
	}
	return r.db.Model(&models.Flashcard{}).Where("id = ?", id).
		Update("columns", datatypes.JSON(data)).Error
}

// CSVInfo 闪卡专有字段的窄投影
func (r *flashcardRepository) CSVInfo(id int64) (*models.CSVInfo, error) {
	card, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}
	return &models.CSVInfo{
		Columns:   card.ColumnNames(),
		RowCount:  card.RowCount,
		Encoding:  card.Encoding,
		Delimiter: card.Delimiter,
	}, nil
}

// Close 释放底层数据库句柄
func (r *flashcardRepository) Close() error {
	return database.Close(r.db)
}
