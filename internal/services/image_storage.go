package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/kanae-lab/cardvault/internal/cache"
	"github.com/kanae-lab/cardvault/internal/models"
	"github.com/kanae-lab/cardvault/internal/repository"
	"github.com/kanae-lab/cardvault/pkg/filestore"
	"github.com/kanae-lab/cardvault/pkg/hashutil"
)

// ImageStorage 图片存储域
// 组合一个文件管理器和一个元数据存储，实现带去重的保存协议和记录生命周期
type ImageStorage struct {
	files  *filestore.Manager
	meta   repository.ImageRepository
	cache  cache.Cache
	logger *logrus.Logger
}

// NewImageStorage 创建图片存储域
func NewImageStorage(files *filestore.Manager, meta repository.ImageRepository, opts ...Option) *ImageStorage {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &ImageStorage{
		files:  files,
		meta:   meta,
		cache:  o.cache,
		logger: o.logger,
	}
}

// Save 执行带去重的保存协议
//
// 协议按固定顺序推进：哈希 -> 去重检查 -> 物理复制 -> 元数据提取与缩略图 -> 入库。
// 内容重复时返回已存在记录的ID和 ErrDuplicateContent，不产生新文件和新行；
// 入库失败时对已复制的文件做补偿删除，保证不留下无记录的孤儿文件。
func (s *ImageStorage) Save(sourcePath string, collection string, extra map[string]interface{}) (int64, error) {
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

	return s.finishSave(savedPath, filepath.Base(sourcePath), fileHash, collection, extra)
}

// finishSave 完成保存协议的后半段：提取元数据、生成缩略图并入库
// 此时物理副本已经存在，任何失败都会触发补偿删除
func (s *ImageStorage) finishSave(savedPath, originalName, fileHash, collection string, extra map[string]interface{}) (int64, error) {
	meta := s.meta.ExtractMetadata(savedPath)
	thumbnailPath := s.files.CreateThumbnail(savedPath)

	img := &models.Image{
		Filename:      filepath.Base(savedPath),
		OriginalName:  originalName,
		FilePath:      s.files.RelativePath(savedPath),
		Collection:    collection,
		ImageType:     models.ImageTypeOriginal,
		FileSize:      meta.FileSize,
		Width:         meta.Width,
		Height:        meta.Height,
		Format:        meta.Format,
		ThumbnailPath: thumbnailPath,
		Hash:          fileHash,
	}
	// 调用方提供的架构内字段覆盖生成值，未声明的键被静默丢弃
	models.ApplyImageFields(img, extra)

	id, err := s.meta.Create(img)
	if err != nil {
		s.files.DeleteFile(savedPath, thumbnailPath)
		s.logger.WithError(err).Error("Failed to persist image metadata, physical copy rolled back")
		return 0, err
	}

	s.logger.WithFields(logrus.Fields{
		"id":       id,
		"filename": img.Filename,
	}).Info("Image saved")
	return id, nil
}

// SaveSplitImage 保存一张分割图片并建立与父图片的谱系
// 父记录必须在本域内存在；分割图片本身作为独立记录参与哈希去重
func (s *ImageStorage) SaveSplitImage(sourcePath string, parentID int64, regionIndex int, collection string, extra map[string]interface{}) (int64, error) {
	if _, err := s.meta.GetByID(parentID); err != nil {
		return 0, fmt.Errorf("parent image %d: %w", parentID, err)
	}

	fields := map[string]interface{}{
		"image_type":      models.ImageTypeSplit,
		"parent_image_id": parentID,
		"region_index":    regionIndex,
	}
	for key, value := range extra {
		fields[key] = value
	}
	return s.Save(sourcePath, collection, fields)
}

// SaveSplitRegion 从父图片的已存储副本裁出一块区域并入库
// 裁剪结果先写入暂存区，再经 MoveFromTemp 正式进入主文件区
func (s *ImageStorage) SaveSplitRegion(parentID int64, regionIndex int, region image.Rectangle, collection string) (int64, error) {
	parent, err := s.Get(parentID)
	if err != nil {
		return 0, fmt.Errorf("parent image %d: %w", parentID, err)
	}

	f, err := os.Open(parent.FullPath)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrSourceUnavailable, err)
	}
	defer f.Close()

	src, format, err := image.Decode(f)
	if err != nil {
		return 0, fmt.Errorf("failed to decode parent image: %w", err)
	}

	cropped, err := cropImage(src, region)
	if err != nil {
		return 0, err
	}

	tempPath, err := s.files.CreateTemp("." + format)
	if err != nil {
		return 0, err
	}
	if err := encodeImage(tempPath, format, cropped); err != nil {
		s.files.DeleteFile(tempPath, "")
		return 0, fmt.Errorf("failed to encode split region: %w", err)
	}

	savedPath, err := s.files.MoveFromTemp(filepath.Base(tempPath))
	if err != nil {
		return 0, err
	}

	fileHash, err := hashutil.FileHash(savedPath)
	if err != nil {
		s.files.DeleteFile(savedPath, "")
		return 0, err
	}
	existing, err := s.meta.GetByHash(fileHash)
	if err != nil {
		s.files.DeleteFile(savedPath, "")
		return 0, err
	}
	if existing != nil {
		s.files.DeleteFile(savedPath, "")
		return existing.ID, models.ErrDuplicateContent
	}

	fields := map[string]interface{}{
		"image_type":      models.ImageTypeSplit,
		"parent_image_id": parentID,
		"region_index":    regionIndex,
	}
	return s.finishSave(savedPath, parent.OriginalName, fileHash, collection, fields)
}

// SaveMaskImage 保存一张蒙版图片并关联父图片与蒙版描述
func (s *ImageStorage) SaveMaskImage(sourcePath string, parentID int64, maskData string, collection string, extra map[string]interface{}) (int64, error) {
	if _, err := s.meta.GetByID(parentID); err != nil {
		return 0, fmt.Errorf("parent image %d: %w", parentID, err)
	}

	fields := map[string]interface{}{
		"image_type":      models.ImageTypeMask,
		"parent_image_id": parentID,
		"mask_image_id":   maskData,
	}
	for key, value := range extra {
		fields[key] = value
	}
	return s.Save(sourcePath, collection, fields)
}

// Get 按ID取记录并解析完整路径
func (s *ImageStorage) Get(id int64) (*models.Image, error) {
	if img, ok := s.cachedRecord(id); ok {
		return img, nil
	}

	img, err := s.meta.GetByID(id)
	if err != nil {
		return nil, err
	}
	img.FullPath = s.files.FilePath(img.Filename)
	s.cacheRecord(img)
	return img, nil
}

// GetAll 取全部记录（完整路径已解析）
func (s *ImageStorage) GetAll() ([]*models.Image, error) {
	images, err := s.meta.GetAll()
	if err != nil {
		return nil, err
	}
	return s.resolve(images), nil
}

// GetByCollection 按集合标签取记录（完整路径已解析）
func (s *ImageStorage) GetByCollection(collection string) ([]*models.Image, error) {
	images, err := s.meta.GetByCollection(collection)
	if err != nil {
		return nil, err
	}
	return s.resolve(images), nil
}

// Search 参数化条件检索（完整路径已解析）
func (s *ImageStorage) Search(condition string, params ...interface{}) ([]*models.Image, error) {
	images, err := s.meta.Search(condition, params...)
	if err != nil {
		return nil, err
	}
	return s.resolve(images), nil
}

// SearchByName 按原始文件名或存储文件名做模糊检索
func (s *ImageStorage) SearchByName(term string) ([]*models.Image, error) {
	pattern := "%" + term + "%"
	return s.Search("(original_name LIKE ? OR filename LIKE ?)", pattern, pattern)
}

// ByType 按图片类型检索
func (s *ImageStorage) ByType(imageType string) ([]*models.Image, error) {
	images, err := s.meta.ByType(imageType)
	if err != nil {
		return nil, err
	}
	return s.resolve(images), nil
}

// Children 取某父图片的全部子图片
// 删除父图片不会级联删除子图片，谱系引用可能悬空（查询边，非所有权边）
func (s *ImageStorage) Children(parentID int64) ([]*models.Image, error) {
	images, err := s.meta.Children(parentID)
	if err != nil {
		return nil, err
	}
	return s.resolve(images), nil
}

// BySizeRange 按宽高范围检索
func (s *ImageStorage) BySizeRange(minWidth, maxWidth, minHeight, maxHeight int) ([]*models.Image, error) {
	images, err := s.meta.BySizeRange(minWidth, maxWidth, minHeight, maxHeight)
	if err != nil {
		return nil, err
	}
	return s.resolve(images), nil
}

// ByFormat 按图片格式检索
func (s *ImageStorage) ByFormat(format string) ([]*models.Image, error) {
	images, err := s.meta.ByFormat(format)
	if err != nil {
		return nil, err
	}
	return s.resolve(images), nil
}

// UpdateMetadata 架构过滤后的部分更新
func (s *ImageStorage) UpdateMetadata(id int64, fields map[string]interface{}) error {
	if err := s.meta.Update(id, fields); err != nil {
		return err
	}
	s.invalidate(id)
	return nil
}

// UpdateImageType 更新图片类型
func (s *ImageStorage) UpdateImageType(id int64, imageType string) error {
	return s.UpdateMetadata(id, map[string]interface{}{"image_type": imageType})
}

// LinkMask 为图片关联蒙版描述信息
func (s *ImageStorage) LinkMask(id int64, maskData string) error {
	return s.UpdateMetadata(id, map[string]interface{}{"mask_image_id": maskData})
}

// ThumbnailPath 取缩略图路径，没有缩略图时为空字符串
func (s *ImageStorage) ThumbnailPath(id int64) (string, error) {
	img, err := s.Get(id)
	if err != nil {
		return "", err
	}
	return img.ThumbnailPath, nil
}

// ImageInfo 图片专有字段的窄投影
func (s *ImageStorage) ImageInfo(id int64) (*models.ImageInfo, error) {
	return s.meta.ImageInfo(id)
}

// Delete 删除记录及其全部物理产物
// 元数据删除是权威动作：物理删除失败只记录日志，元数据行仍然移除
func (s *ImageStorage) Delete(id int64) (bool, error) {
	img, err := s.meta.GetByID(id)
	if err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	fullPath := s.files.FilePath(img.Filename)
	s.files.DeleteFile(fullPath, img.ThumbnailPath)

	if err := s.meta.Delete(id); err != nil {
		return false, err
	}
	s.invalidate(id)
	return true, nil
}

// Collections 返回出现过的集合标签
func (s *ImageStorage) Collections() ([]string, error) {
	images, err := s.meta.GetAll()
	if err != nil {
		return nil, err
	}
	return collectionNames(images), nil
}

// Stats 基础统计信息
func (s *ImageStorage) Stats() (*models.Stats, error) {
	images, err := s.meta.GetAll()
	if err != nil {
		return nil, err
	}
	stats := baseStats(images)
	return &stats, nil
}

// ImageStats 图片域统计信息，含格式、类型与尺寸分桶直方图
func (s *ImageStorage) ImageStats() (*models.ImageStats, error) {
	images, err := s.meta.GetAll()
	if err != nil {
		return nil, err
	}

	stats := &models.ImageStats{
		Stats:   baseStats(images),
		Formats: make(map[string]int),
		Types:   make(map[string]int),
		Sizes:   map[string]int{"small": 0, "medium": 0, "large": 0},
	}

	for _, img := range images {
		format := "unknown"
		if img.Format != nil {
			format = *img.Format
		}
		stats.Formats[format]++

		imageType := img.ImageType
		if imageType == "" {
			imageType = "unknown"
		}
		stats.Types[imageType]++

		var maxDimension int
		if img.Width != nil && *img.Width > maxDimension {
			maxDimension = *img.Width
		}
		if img.Height != nil && *img.Height > maxDimension {
			maxDimension = *img.Height
		}
		switch {
		case maxDimension < 500:
			stats.Sizes["small"]++
		case maxDimension < 1500:
			stats.Sizes["medium"]++
		default:
			stats.Sizes["large"]++
		}
	}
	return stats, nil
}

// PathsInfo 返回文件管理器的目录配置
func (s *ImageStorage) PathsInfo() map[string]string {
	return s.files.PathsInfo()
}

// Close 释放底层元数据库句柄
func (s *ImageStorage) Close() error {
	return s.meta.Close()
}

// resolve 为查询结果批量解析完整路径
func (s *ImageStorage) resolve(images []*models.Image) []*models.Image {
	for _, img := range images {
		img.FullPath = s.files.FilePath(img.Filename)
	}
	return images
}

func (s *ImageStorage) cacheKey(id int64) string {
	return cache.Key("image", "id", strconv.FormatInt(id, 10))
}

func (s *ImageStorage) cachedRecord(id int64) (*models.Image, bool) {
	if s.cache == nil {
		return nil, false
	}
	value, found, err := s.cache.Get(s.cacheKey(id))
	if err != nil || !found {
		return nil, false
	}
	var img models.Image
	if err := json.Unmarshal([]byte(value), &img); err != nil {
		return nil, false
	}
	return &img, true
}

func (s *ImageStorage) cacheRecord(img *models.Image) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(img)
	if err != nil {
		return
	}
	if err := s.cache.Set(s.cacheKey(img.ID), string(data), 0); err != nil {
		s.logger.WithError(err).Debug("Failed to cache image record")
	}
}

func (s *ImageStorage) invalidate(id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(s.cacheKey(id)); err != nil {
		s.logger.WithError(err).Debug("Failed to invalidate image record cache")
	}
}

// cropImage 从源图片裁出指定区域
func cropImage(src image.Image, region image.Rectangle) (image.Image, error) {
	region = region.Intersect(src.Bounds())
	if region.Empty() {
		return nil, fmt.Errorf("split region is outside the parent image bounds")
	}

	type subImager interface {
		SubImage(r image.Rectangle) image.Image
	}
	if s, ok := src.(subImager); ok {
		return s.SubImage(region), nil
	}

	// 不支持SubImage的解码结果逐像素拷贝
	dst := image.NewRGBA(image.Rect(0, 0, region.Dx(), region.Dy()))
	for y := region.Min.Y; y < region.Max.Y; y++ {
		for x := region.Min.X; x < region.Max.X; x++ {
			dst.Set(x-region.Min.X, y-region.Min.Y, src.At(x, y))
		}
	}
	return dst, nil
}

// encodeImage 按格式名把图片写入目标路径，未知格式回退为PNG
func encodeImage(path, format string, img image.Image) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	switch strings.ToLower(format) {
	case "jpeg", "jpg":
		return jpeg.Encode(out, img, &jpeg.Options{Quality: 95})
	default:
		return png.Encode(out, img)
	}
}
