package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/kanae-lab/cardvault/internal/cache"
	"github.com/kanae-lab/cardvault/internal/models"
	"github.com/kanae-lab/cardvault/internal/repository"
	"github.com/kanae-lab/cardvault/pkg/filestore"
	"github.com/kanae-lab/cardvault/pkg/hashutil"
)

// FlashcardStorage 闪卡CSV存储域
// 与图片域共享同一套保存协议和记录生命周期，但不产生缩略图
type FlashcardStorage struct {
	files  *filestore.Manager
	meta   repository.FlashcardRepository
	cache  cache.Cache
	logger *logrus.Logger
}

// NewFlashcardStorage 创建闪卡存储域
func NewFlashcardStorage(files *filestore.Manager, meta repository.FlashcardRepository, opts ...Option) *FlashcardStorage {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &FlashcardStorage{
		files:  files,
		meta:   meta,
		cache:  o.cache,
		logger: o.logger,
	}
}

// Save 执行带去重的保存协议
// 内容重复时返回已存在记录的ID和 ErrDuplicateContent；
// 入库失败时对已复制的文件做补偿删除
func (s *FlashcardStorage) Save(sourcePath string, collection string, extra map[string]interface{}) (int64, error) {
	fileHash, err := hashutil.FileHash(sourcePath)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrSourceUnavailable, err)
	}

	existing, err := s.meta.GetByHash(fileHash)
	if err != nil {
		return 0, fmt.Errorf("failed to check for duplicate: %w", err)
	}
	if existing != nil {
		s.logger.WithFields(logrus.Fields{
			"hash":     fileHash,
			"existing": existing.Filename,
		}).Info("Duplicate content detected, skipping save")
		return existing.ID, models.ErrDuplicateContent
	}

	savedPath, err := s.files.SaveFile(sourcePath)
	if err != nil {
		return 0, fmt.Errorf("failed to store file: %w", err)
	}

	// 元数据从已存储的副本提取，源文件后续变动不会造成脱节
	meta := s.meta.ExtractMetadata(savedPath)

	card := &models.Flashcard{
		Filename:     filepath.Base(savedPath),
		OriginalName: filepath.Base(sourcePath),
		FilePath:     s.files.RelativePath(savedPath),
		Collection:   collection,
		RowCount:     meta.RowCount,
		FileSize:     meta.FileSize,
		Encoding:     meta.Encoding,
		Delimiter:    meta.Delimiter,
		Hash:         fileHash,
	}
	if len(meta.Columns) > 0 {
		if data, err := json.Marshal(meta.Columns); err == nil {
			card.Columns = datatypes.JSON(data)
		}
	}
	// 调用方提供的架构内字段覆盖提取值，未声明的键被静默丢弃
	models.ApplyFlashcardFields(card, extra)

	id, err := s.meta.Create(card)
	if err != nil {
		s.files.DeleteFile(savedPath, "")
		s.logger.WithError(err).Error("Failed to persist flashcard metadata, physical copy rolled back")
		return 0, err
	}

	s.logger.WithFields(logrus.Fields{
		"id":       id,
		"filename": card.Filename,
	}).Info("Flashcard file saved")
	return id, nil
}

// SaveCSV 保存CSV文件，columns 非空时覆盖自动探测出的列名列表
func (s *FlashcardStorage) SaveCSV(sourcePath string, collection string, columns []string, extra map[string]interface{}) (int64, error) {
	fields := make(map[string]interface{}, len(extra)+1)
	for key, value := range extra {
		fields[key] = value
	}
	if len(columns) > 0 {
		fields["columns"] = columns
	}
	return s.Save(sourcePath, collection, fields)
}

// Get 按ID取记录并解析完整路径
func (s *FlashcardStorage) Get(id int64) (*models.Flashcard, error) {
	if card, ok := s.cachedRecord(id); ok {
		return card, nil
	}

	card, err := s.meta.GetByID(id)
	if err != nil {
		return nil, err
	}
	card.FullPath = s.files.FilePath(card.Filename)
	s.cacheRecord(card)
	return card, nil
}

// GetAll 取全部记录（完整路径已解析）
func (s *FlashcardStorage) GetAll() ([]*models.Flashcard, error) {
	cards, err := s.meta.GetAll()
	if err != nil {
		return nil, err
	}
	return s.resolve(cards), nil
}

// GetByCollection 按集合标签取记录（完整路径已解析）
func (s *FlashcardStorage) GetByCollection(collection string) ([]*models.Flashcard, error) {
	cards, err := s.meta.GetByCollection(collection)
	if err != nil {
		return nil, err
	}
	return s.resolve(cards), nil
}

// Search 参数化条件检索（完整路径已解析）
func (s *FlashcardStorage) Search(condition string, params ...interface{}) ([]*models.Flashcard, error) {
	cards, err := s.meta.Search(condition, params...)
	if err != nil {
		return nil, err
	}
	return s.resolve(cards), nil
}

// SearchByName 按原始文件名或存储文件名做模糊检索
func (s *FlashcardStorage) SearchByName(term string) ([]*models.Flashcard, error) {
	pattern := "%" + term + "%"
	return s.Search("(original_name LIKE ? OR filename LIKE ?)", pattern, pattern)
}

// ByRowCountRange 按数据行数范围检索
func (s *FlashcardStorage) ByRowCountRange(minRows, maxRows int) ([]*models.Flashcard, error) {
	cards, err := s.meta.ByRowCountRange(minRows, maxRows)
	if err != nil {
		return nil, err
	}
	return s.resolve(cards), nil
}

// Columns 取CSV的列名列表
func (s *FlashcardStorage) Columns(id int64) ([]string, error) {
	info, err := s.meta.CSVInfo(id)
	if err != nil {
		return nil, err
	}
	return info.Columns, nil
}

// UpdateColumns 更新列名列表
func (s *FlashcardStorage) UpdateColumns(id int64, columns []string) error {
	if err := s.meta.UpdateColumns(id, columns); err != nil {
		return err
	}
	s.invalidate(id)
	return nil
}

// CSVInfo 闪卡专有字段的窄投影
func (s *FlashcardStorage) CSVInfo(id int64) (*models.CSVInfo, error) {
	return s.meta.CSVInfo(id)
}

// Encoding 取文件编码信息
func (s *FlashcardStorage) Encoding(id int64) (string, error) {
	card, err := s.Get(id)
	if err != nil {
		return "", err
	}
	return card.Encoding, nil
}

// UpdateEncoding 更新编码信息
func (s *FlashcardStorage) UpdateEncoding(id int64, encoding string) error {
	return s.UpdateMetadata(id, map[string]interface{}{"encoding": encoding})
}

// Delimiter 取分隔符信息
func (s *FlashcardStorage) Delimiter(id int64) (string, error) {
	card, err := s.Get(id)
	if err != nil {
		return "", err
	}
	return card.Delimiter, nil
}

// UpdateDelimiter 更新分隔符
func (s *FlashcardStorage) UpdateDelimiter(id int64, delimiter string) error {
	return s.UpdateMetadata(id, map[string]interface{}{"delimiter": delimiter})
}

// UpdateMetadata 架构过滤后的部分更新
func (s *FlashcardStorage) UpdateMetadata(id int64, fields map[string]interface{}) error {
	if err := s.meta.Update(id, fields); err != nil {
		return err
	}
	s.invalidate(id)
	return nil
}

// Delete 删除记录及其物理文件
// 元数据删除是权威动作：物理删除失败只记录日志，元数据行仍然移除
func (s *FlashcardStorage) Delete(id int64) (bool, error) {
	card, err := s.meta.GetByID(id)
	if err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	fullPath := s.files.FilePath(card.Filename)
	s.files.DeleteFile(fullPath, "")

	if err := s.meta.Delete(id); err != nil {
		return false, err
	}
	s.invalidate(id)
	return true, nil
}

// Collections 返回出现过的集合标签
func (s *FlashcardStorage) Collections() ([]string, error) {
	cards, err := s.meta.GetAll()
	if err != nil {
		return nil, err
	}
	return collectionNames(cards), nil
}

// Stats 基础统计信息
func (s *FlashcardStorage) Stats() (*models.Stats, error) {
	cards, err := s.meta.GetAll()
	if err != nil {
		return nil, err
	}
	stats := baseStats(cards)
	return &stats, nil
}

// FlashcardStats 闪卡域统计信息，含编码/分隔符直方图和平均行数
func (s *FlashcardStorage) FlashcardStats() (*models.FlashcardStats, error) {
	cards, err := s.meta.GetAll()
	if err != nil {
		return nil, err
	}

	stats := &models.FlashcardStats{
		Stats:      baseStats(cards),
		Encodings:  make(map[string]int),
		Delimiters: make(map[string]int),
	}

	totalRows := 0
	for _, card := range cards {
		encoding := card.Encoding
		if encoding == "" {
			encoding = "unknown"
		}
		stats.Encodings[encoding]++

		delimiter := card.Delimiter
		if delimiter == "" {
			delimiter = ","
		}
		stats.Delimiters[delimiter]++

		if card.RowCount != nil {
			totalRows += *card.RowCount
		}
	}

	stats.TotalFlashcards = totalRows
	if len(cards) > 0 {
		stats.AvgRowsPerFile = float64(totalRows) / float64(len(cards))
	}
	return stats, nil
}

// PathsInfo 返回文件管理器的目录配置
func (s *FlashcardStorage) PathsInfo() map[string]string {
	return s.files.PathsInfo()
}

// Close 释放底层元数据库句柄
func (s *FlashcardStorage) Close() error {
	return s.meta.Close()
}

// resolve 为查询结果批量解析完整路径
func (s *FlashcardStorage) resolve(cards []*models.Flashcard) []*models.Flashcard {
	for _, card := range cards {
		card.FullPath = s.files.FilePath(card.Filename)
	}
	return cards
}

func (s *FlashcardStorage) cacheKey(id int64) string {
	return cache.Key("flashcard", "id", strconv.FormatInt(id, 10))
}

func (s *FlashcardStorage) cachedRecord(id int64) (*models.Flashcard, bool) {
	if s.cache == nil {
		return nil, false
	}
	value, found, err := s.cache.Get(s.cacheKey(id))
	if err != nil || !found {
		return nil, false
	}
	var card models.Flashcard
	if err := json.Unmarshal([]byte(value), &card); err != nil {
		return nil, false
	}
	return &card, true
}

func (s *FlashcardStorage) cacheRecord(card *models.Flashcard) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(card)
	if err != nil {
		return
	}
	if err := s.cache.Set(s.cacheKey(card.ID), string(data), 0); err != nil {
		s.logger.WithError(err).Debug("Failed to cache flashcard record")
	}
}

func (s *FlashcardStorage) invalidate(id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(s.cacheKey(id)); err != nil {
		s.logger.WithError(err).Debug("Failed to invalidate flashcard record cache")
	}
}
