package services

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/kanae-lab/cardvault/internal/database"
	"github.com/kanae-lab/cardvault/internal/models"
	"github.com/kanae-lab/cardvault/internal/repository"
	"github.com/kanae-lab/cardvault/pkg/filestore"
)

// 已注册的存储域名称
const (
	DomainImage     = "image"
	DomainFlashcard = "flashcard"
)

// domainModels 各存储域的表模型（建表用）
var domainModels = map[string]interface{}{
	DomainImage:     &models.Image{},
	DomainFlashcard: &models.Flashcard{},
}

// StorageController 所有存储域的统一入口
//
// 构造时校验基础目录并为每个已注册的域幂等地创建目录树和后备表；
// 各域的存储实例按需惰性创建并在控制器生命周期内复用。
// 控制器独占域注册表，也是唯一允许开关各域数据库句柄的组件。
type StorageController struct {
	basePath string
	dbDir    string
	logger   *logrus.Logger
	opts     []Option
	resolved *options

	dbPaths      map[string]string
	storagePaths map[string]string

	mu        sync.Mutex
	instances map[string]Storage
}

// NewStorageController 创建控制器并完成目录与数据库的初始配置
// 基础目录必须是已存在的绝对路径目录，否则初始化失败且不可通过重试恢复
func NewStorageController(basePath string, opts ...Option) (*StorageController, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	if !filepath.IsAbs(basePath) {
		return nil, fmt.Errorf("%w: %s is not absolute", models.ErrInvalidBasePath, basePath)
	}
	info, err := os.Stat(basePath)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not an existing directory", models.ErrInvalidBasePath, basePath)
	}

	c := &StorageController{
		basePath:     basePath,
		dbDir:        filepath.Join(basePath, "db"),
		logger:       o.logger,
		opts:         opts,
		resolved:     o,
		dbPaths:      make(map[string]string),
		storagePaths: make(map[string]string),
		instances:    make(map[string]Storage),
	}

	for domain := range domainModels {
		c.dbPaths[domain] = filepath.Join(c.dbDir, domain+"s.db")
		c.storagePaths[domain] = filepath.Join(basePath, domain)
		c.instances[domain] = nil
	}

	if err := c.setupDirectories(); err != nil {
		return nil, err
	}
	if err := c.setupDatabases(); err != nil {
		return nil, err
	}

	return c, nil
}

// setupDirectories 创建全部目录（幂等）
func (c *StorageController) setupDirectories() error {
	dirs := []string{
		c.dbDir,
		filepath.Join(c.basePath, "temp"),
		filepath.Join(c.basePath, "thumbnails"),
	}
	for domain := range domainModels {
		dirs = append(dirs,
			c.storagePaths[domain],
			filepath.Join(c.basePath, "temp", domain),
			filepath.Join(c.basePath, "thumbnails", domain),
		)
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	c.logger.WithField("base_path", c.basePath).Info("Storage directories ready")
	return nil
}

// setupDatabases 为每个域建表（幂等），句柄用完即关
func (c *StorageController) setupDatabases() error {
	for domain, model := range domainModels {
		dbPath := c.dbPaths[domain]
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			c.logger.WithFields(logrus.Fields{
				"domain": domain,
				"path":   dbPath,
			}).Info("Creating domain database")
		}

		db, err := database.Open(dbPath, c.logger)
		if err != nil {
			return fmt.Errorf("failed to open %s database: %w", domain, err)
		}
		if err := database.Migrate(db, model); err != nil {
			_ = database.Close(db)
			return fmt.Errorf("failed to migrate %s database: %w", domain, err)
		}
		if err := database.Close(db); err != nil {
			return err
		}
	}

	c.logger.Info("Storage databases ready")
	return nil
}

// Storage 取指定域的存储实例（惰性创建，同一控制器内复用）
// 未注册的域名称属于调用方编程错误，返回 ErrUnsupportedDomain
func (c *StorageController) Storage(domain string) (Storage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.storageLocked(domain)
}

func (c *StorageController) storageLocked(domain string) (Storage, error) {
	instance, registered := c.instances[domain]
	if !registered {
		c.logger.WithField("domain", domain).Error("Unsupported storage domain requested")
		return nil, fmt.Errorf("%w: %s", models.ErrUnsupportedDomain, domain)
	}
	if instance != nil {
		return instance, nil
	}

	files, err := filestore.NewManager(filestore.Paths{
		Base:       c.basePath,
		Storage:    c.storagePaths[domain],
		Thumbnails: filepath.Join(c.basePath, "thumbnails", domain),
		Temp:       filepath.Join(c.basePath, "temp", domain),
	},
		filestore.WithLogger(c.logger),
		filestore.WithThumbnailSize(c.resolved.thumbWidth, c.resolved.thumbHeight),
		filestore.WithJPEGQuality(c.resolved.jpegQuality),
	)
	if err != nil {
		return nil, err
	}

	db, err := database.Open(c.dbPaths[domain], c.logger)
	if err != nil {
		return nil, err
	}

	switch domain {
	case DomainImage:
		instance = NewImageStorage(files, repository.NewImageRepository(db, c.logger), c.opts...)
	case DomainFlashcard:
		instance = NewFlashcardStorage(files, repository.NewFlashcardRepository(db, c.logger), c.opts...)
	default:
		_ = database.Close(db)
		return nil, fmt.Errorf("%w: %s", models.ErrUnsupportedDomain, domain)
	}

	c.instances[domain] = instance
	c.logger.WithField("domain", domain).Debug("Storage domain instantiated")
	return instance, nil
}

// ImageStorage 图片域的类型化访问器
func (c *StorageController) ImageStorage() (*ImageStorage, error) {
	instance, err := c.Storage(DomainImage)
	if err != nil {
		return nil, err
	}
	return instance.(*ImageStorage), nil
}

// FlashcardStorage 闪卡域的类型化访问器
func (c *StorageController) FlashcardStorage() (*FlashcardStorage, error) {
	instance, err := c.Storage(DomainFlashcard)
	if err != nil {
		return nil, err
	}
	return instance.(*FlashcardStorage), nil
}

// PathsInfo 返回控制器管理的全部路径
func (c *StorageController) PathsInfo() map[string]string {
	info := map[string]string{
		"base_path":      c.basePath,
		"db_dir":         c.dbDir,
		"temp_dir":       filepath.Join(c.basePath, "temp"),
		"thumbnails_dir": filepath.Join(c.basePath, "thumbnails"),
	}
	for domain := range domainModels {
		info[domain+"_db_path"] = c.dbPaths[domain]
		info[domain+"_storage_path"] = c.storagePaths[domain]
		info[domain+"_temp_path"] = filepath.Join(c.basePath, "temp", domain)
		info[domain+"_thumbnails_path"] = filepath.Join(c.basePath, "thumbnails", domain)
	}
	return info
}

// StorageStats 聚合全部存储域的统计信息（未实例化的域按需实例化）
func (c *StorageController) StorageStats() (*models.ControllerStats, error) {
	images, err := c.ImageStorage()
	if err != nil {
		return nil, err
	}
	imageStats, err := images.ImageStats()
	if err != nil {
		return nil, err
	}

	flashcards, err := c.FlashcardStorage()
	if err != nil {
		return nil, err
	}
	flashcardStats, err := flashcards.FlashcardStats()
	if err != nil {
		return nil, err
	}

	return &models.ControllerStats{
		Images:     imageStats,
		Flashcards: flashcardStats,
		TotalFiles: imageStats.TotalFiles + flashcardStats.TotalFiles,
		TotalSize:  imageStats.TotalSize + flashcardStats.TotalSize,
	}, nil
}

// Cleanup 关闭全部已实例化域的数据库句柄
// 可以安全地重复调用
func (c *StorageController) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for domain, instance := range c.instances {
		if instance == nil {
			continue
		}
		if err := instance.Close(); err != nil {
			c.logger.WithError(err).WithField("domain", domain).Warn("Failed to close storage domain")
		} else {
			c.logger.WithField("domain", domain).Info("Storage domain closed")
		}
		c.instances[domain] = nil
	}

	c.logger.Info("Storage controller cleanup complete")
}
