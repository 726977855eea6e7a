package filestore

import (
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"os"
	"path/filepath"

	// 注册可解码的图片格式
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"

	xdraw "golang.org/x/image/draw"
)

// CreateThumbnail 为已存储的图片生成限定尺寸的JPEG缩略图
// 缩略图是尽力而为的派生产物：解码或编码失败时返回空字符串而不是错误
func (m *Manager) CreateThumbnail(storedPath string) string {
	f, err := os.Open(storedPath)
	if err != nil {
		m.logger.WithError(err).WithField("path", storedPath).Warn("Failed to open image for thumbnail")
		return ""
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		m.logger.WithError(err).WithField("path", storedPath).Debug("Thumbnail skipped: not a decodable image")
		return ""
	}

	thumbnailName := "thumb_" + filepath.Base(storedPath)
	// 缩略图统一用JPEG有损编码
	if ext := filepath.Ext(thumbnailName); ext != ".jpg" && ext != ".jpeg" {
		thumbnailName = thumbnailName[:len(thumbnailName)-len(ext)] + ".jpg"
	}
	thumbnailPath := filepath.Join(m.paths.Thumbnails, thumbnailName)

	thumb := scaleToFit(src, m.thumbWidth, m.thumbHeight)

	out, err := os.Create(thumbnailPath)
	if err != nil {
		m.logger.WithError(err).WithField("path", thumbnailPath).Warn("Failed to create thumbnail file")
		return ""
	}
	defer out.Close()

	if err := jpeg.Encode(out, thumb, &jpeg.Options{Quality: m.jpegQuality}); err != nil {
		m.logger.WithError(err).WithField("path", thumbnailPath).Warn("Failed to encode thumbnail")
		return ""
	}
	return thumbnailPath
}

// scaleToFit 等比缩放图片使其不超过给定的边界
// 透明像素被平铺到白色背景上（JPEG不支持alpha通道）
func scaleToFit(src image.Image, maxW, maxH int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w <= maxW && h <= maxH {
		return flatten(src)
	}

	ratioW := float64(maxW) / float64(w)
	ratioH := float64(maxH) / float64(h)
	ratio := ratioW
	if ratioH < ratio {
		ratio = ratioH
	}

	dstW := int(float64(w) * ratio)
	dstH := int(float64(h) * ratio)
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

// flatten 把任意图片铺到白色背景的RGBA画布上
func flatten(src image.Image) image.Image {
	bounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Over)
	return dst
}
