package services

import (
	"github.com/sirupsen/logrus"

	"github.com/kanae-lab/cardvault/internal/cache"
)

// options 存储服务与控制器共用的配置选项
type options struct {
	logger      *logrus.Logger
	cache       cache.Cache
	thumbWidth  int
	thumbHeight int
	jpegQuality int
}

// Option 存储服务配置选项
type Option func(*options)

func defaultOptions() *options {
	return &options{
		logger:      logrus.New(),
		thumbWidth:  200,
		thumbHeight: 200,
		jpegQuality: 85,
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithCache 设置记录读取缓存
func WithCache(c cache.Cache) Option {
	return func(o *options) {
		o.cache = c
	}
}

// WithThumbnailSize 设置缩略图最大尺寸
func WithThumbnailSize(width, height int) Option {
	return func(o *options) {
		if width > 0 && height > 0 {
			o.thumbWidth = width
			o.thumbHeight = height
		}
	}
}

// WithJPEGQuality 设置缩略图JPEG编码质量
func WithJPEGQuality(quality int) Option {
	return func(o *options) {
		if quality > 0 && quality <= 100 {
			o.jpegQuality = quality
		}
	}
}
