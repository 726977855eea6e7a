package repository

import (
	"image"
	"os"
	"strings"

	// 注册可解码的图片格式
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"

	"github.com/kanae-lab/cardvault/internal/models"
)

// ExtractMetadata 从已存储的图片副本提取宽高和格式
// 损坏或无法解码的文件降级为空字段，文件大小始终填充
func (r *imageRepository) ExtractMetadata(path string) models.ImageMeta {
	meta := models.ImageMeta{}

	if info, err := os.Stat(path); err == nil {
		meta.FileSize = info.Size()
	}

	f, err := os.Open(path)
	if err != nil {
		r.logger.WithError(err).WithField("path", path).Warn("Failed to open image for metadata extraction")
		return meta
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		r.logger.WithError(err).WithField("path", path).Warn("Failed to decode image, cataloging with degraded metadata")
		return meta
	}

	width, height := cfg.Width, cfg.Height
	// 与既有记录保持一致的大写格式名（JPEG、PNG 等）
	formatName := strings.ToUpper(format)

	meta.Width = &width
	meta.Height = &height
	meta.Format = &formatName
	return meta
}
