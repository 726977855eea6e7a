package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	vaultconfig "github.com/kanae-lab/cardvault/config"
	"github.com/kanae-lab/cardvault/internal/cache"
	"github.com/kanae-lab/cardvault/internal/models"
	"github.com/kanae-lab/cardvault/internal/services"
)

const usage = `Usage: cardvault [flags] <command>

Commands:
  import <image|flashcard> <file> [collection]   Import a file into a storage domain
  stats                                          Print aggregated storage statistics
  paths                                          Print the managed directory layout

Flags:
`

func main() {
	// 加载.env文件（不存在时静默跳过）
	_ = godotenv.Load()

	configFile := flag.String("config", "", "Path to config file")
	basePath := flag.String("base", "", "Storage base path (overrides config)")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	// 命令行基础目录覆盖配置文件（在配置校验前生效）
	if *basePath != "" {
		os.Setenv("CARDVAULT_STORAGE_BASE_PATH", *basePath)
	}

	cfg, err := vaultconfig.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := setupLogger(cfg.Log)

	controller, err := setupController(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize storage controller: %v", err)
	}
	defer controller.Cleanup()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	switch args[0] {
	case "import":
		err = runImport(controller, args[1:], logger)
	case "stats":
		err = runStats(controller)
	case "paths":
		err = runPaths(controller)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Fatalf("Command failed: %v", err)
	}
}

// setupLogger 设置日志系统
func setupLogger(cfg vaultconfig.LogConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	switch cfg.Level {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "info":
		logger.SetLevel(logrus.InfoLevel)
	case "warn":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	// 配置了日志文件时同时写入滚动文件
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		logger.SetOutput(io.MultiWriter(os.Stdout, rotator))
	}

	return logger
}

// setupController 根据配置创建存储控制器
func setupController(cfg *vaultconfig.Config, logger *logrus.Logger) (*services.StorageController, error) {
	opts := []services.Option{
		services.WithLogger(logger),
		services.WithThumbnailSize(cfg.Thumbnail.Width, cfg.Thumbnail.Height),
		services.WithJPEGQuality(cfg.Thumbnail.Quality),
	}

	if cfg.Cache.Enable {
		cacheService, err := setupCache(cfg.Cache)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize cache: %v", err)
		}
		opts = append(opts, services.WithCache(cacheService))
	}

	return services.NewStorageController(cfg.Storage.BasePath, opts...)
}

// setupCache 设置记录缓存
func setupCache(cfg vaultconfig.CacheConfig) (cache.Cache, error) {
	cacheConfig := cache.DefaultConfig()
	cacheConfig.Type = cfg.Type
	if cfg.TTL > 0 {
		cacheConfig.DefaultTTL = time.Duration(cfg.TTL) * time.Second
	}

	if cfg.Type == "redis" {
		cacheConfig.RedisAddr = cfg.Address
		cacheConfig.RedisPassword = cfg.Password
		cacheConfig.RedisDB = cfg.DB
	}

	return cache.New(cacheConfig)
}

// runImport 把文件导入指定存储域
func runImport(controller *services.StorageController, args []string, logger *logrus.Logger) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: import <image|flashcard> <file> [collection]")
	}
	domain, sourcePath := args[0], args[1]
	collection := "default"
	if len(args) > 2 {
		collection = args[2]
	}

	var id int64
	var err error
	switch domain {
	case services.DomainImage:
		images, serr := controller.ImageStorage()
		if serr != nil {
			return serr
		}
		id, err = images.Save(sourcePath, collection, nil)
	case services.DomainFlashcard:
		flashcards, serr := controller.FlashcardStorage()
		if serr != nil {
			return serr
		}
		id, err = flashcards.Save(sourcePath, collection, nil)
	default:
		return fmt.Errorf("%w: %s", models.ErrUnsupportedDomain, domain)
	}

	if err != nil {
		if errors.Is(err, models.ErrDuplicateContent) {
			logger.WithFields(logrus.Fields{
				"id":     id,
				"source": sourcePath,
			}).Warn("File already stored, reusing existing record")
			fmt.Printf("duplicate: record %d\n", id)
			return nil
		}
		return err
	}

	fmt.Printf("imported: record %d\n", id)
	return nil
}

// runStats 输出聚合统计
func runStats(controller *services.StorageController) error {
	stats, err := controller.StorageStats()
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// runPaths 输出目录布局
func runPaths(controller *services.StorageController) error {
	paths := controller.PathsInfo()

	keys := make([]string, 0, len(paths))
	for key := range paths {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		fmt.Printf("%-26s %s\n", key, paths[key])
	}
	return nil
}
