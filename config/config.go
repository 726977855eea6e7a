package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config 应用程序配置结构体
type Config struct {
	Storage   StorageConfig   `mapstructure:"storage" validate:"required"`
	Thumbnail ThumbnailConfig `mapstructure:"thumbnail"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Log       LogConfig       `mapstructure:"log"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	BasePath string `mapstructure:"base_path" validate:"required"` // 存储基础目录（绝对路径）
}

// ThumbnailConfig 缩略图配置
type ThumbnailConfig struct {
	Width   int `mapstructure:"width" validate:"gt=0"`            // 缩略图最大宽度
	Height  int `mapstructure:"height" validate:"gt=0"`           // 缩略图最大高度
	Quality int `mapstructure:"quality" validate:"gte=1,lte=100"` // JPEG质量
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Enable   bool   `mapstructure:"enable"`                             // 是否启用记录缓存
	Type     string `mapstructure:"type" validate:"oneof=memory redis"` // 缓存类型：memory 或 redis
	Address  string `mapstructure:"address"`                            // Redis地址
	Password string `mapstructure:"password"`                           // Redis密码
	DB       int    `mapstructure:"db"`                                 // Redis数据库
	TTL      int    `mapstructure:"ttl" validate:"gte=0"`               // 缓存TTL（秒）
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"` // 日志级别
	File       string `mapstructure:"file"`                                        // 日志文件路径（为空则只输出到stdout）
	MaxSize    int    `mapstructure:"max_size"`                                    // 单文件最大MB
	MaxBackups int    `mapstructure:"max_backups"`                                 // 保留的旧文件数
	MaxAge     int    `mapstructure:"max_age"`                                     // 保留天数
	Compress   bool   `mapstructure:"compress"`                                    // 是否压缩旧文件
}

// Load 从文件和环境变量加载配置
func Load(configPath string) (*Config, error) {
	var config Config

	// 设置默认配置路径
	if configPath == "" {
		configPath = "config.yaml" // 默认在当前目录寻找config.yaml
	}

	v := viper.New()
	v.SetConfigFile(configPath)

	// 尝试读取配置文件
	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if notFound || os.IsNotExist(err) {
			log.Printf("Warning: Config file not found at %s, using defaults", configPath)
		} else {
			return nil, fmt.Errorf("failed to read config file: %v", err)
		}
	} else {
		log.Printf("Using config file: %s", v.ConfigFileUsed())
	}

	// 设置默认值
	setDefaults(v)

	// 支持环境变量覆盖
	v.SetEnvPrefix("cardvault")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 解析配置到结构体
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %v", err)
	}

	// 校验配置
	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %v", err)
	}

	return &config, nil
}

// setDefaults 设置配置的默认值
func setDefaults(v *viper.Viper) {
	// 存储默认配置（base_path必须由配置文件、环境变量或命令行提供）
	v.SetDefault("storage.base_path", "")

	// 缩略图默认配置
	v.SetDefault("thumbnail.width", 200)
	v.SetDefault("thumbnail.height", 200)
	v.SetDefault("thumbnail.quality", 85)

	// 缓存默认配置
	v.SetDefault("cache.enable", true)
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.address", "localhost:6379")
	v.SetDefault("cache.ttl", 1800) // 30分钟

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", true)
}
