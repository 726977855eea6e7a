package filestore

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestImage 生成指定尺寸的测试图片并保存到临时目录
func writeTestImage(t *testing.T, name string, width, height int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err, "Failed to create test image file")
	defer f.Close()

	switch filepath.Ext(name) {
	case ".jpg", ".jpeg":
		require.NoError(t, jpeg.Encode(f, img, nil))
	default:
		require.NoError(t, png.Encode(f, img))
	}
	return path
}

func decodeImage(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err, "Failed to open image")
	defer f.Close()

	img, _, err := image.Decode(f)
	require.NoError(t, err, "Failed to decode image")
	return img
}

func TestCreateThumbnail_ScalesDownLargeImage(t *testing.T) {
	m, _ := setupManager(t)
	source := writeTestImage(t, "large.png", 800, 400)

	savePath, err := m.SaveFile(source)
	require.NoError(t, err)

	thumbPath := m.CreateThumbnail(savePath)
	require.NotEmpty(t, thumbPath, "Thumbnail should be created for a decodable image")
	assert.True(t, strings.HasPrefix(filepath.Base(thumbPath), "thumb_"), "Thumbnail name should carry the thumb_ prefix")
	assert.True(t, strings.HasSuffix(thumbPath, ".jpg"), "Thumbnails are always JPEG")

	thumb := decodeImage(t, thumbPath)
	bounds := thumb.Bounds()
	assert.LessOrEqual(t, bounds.Dx(), 200, "Thumbnail width should fit the bound")
	assert.LessOrEqual(t, bounds.Dy(), 200, "Thumbnail height should fit the bound")
	// 800x400 等比缩放到 200x100
	assert.Equal(t, 200, bounds.Dx(), "Aspect ratio should be preserved")
	assert.Equal(t, 100, bounds.Dy(), "Aspect ratio should be preserved")
}

func TestCreateThumbnail_SmallImageNotUpscaled(t *testing.T) {
	m, _ := setupManager(t)
	source := writeTestImage(t, "small.jpg", 60, 40)

	savePath, err := m.SaveFile(source)
	require.NoError(t, err)

	thumbPath := m.CreateThumbnail(savePath)
	require.NotEmpty(t, thumbPath)

	thumb := decodeImage(t, thumbPath)
	assert.Equal(t, 60, thumb.Bounds().Dx(), "Small images should keep their width")
	assert.Equal(t, 40, thumb.Bounds().Dy(), "Small images should keep their height")
}

func TestCreateThumbnail_CustomSize(t *testing.T) {
	base := t.TempDir()
	m, err := NewManager(Paths{
		Base:       base,
		Storage:    filepath.Join(base, "image"),
		Thumbnails: filepath.Join(base, "thumbnails", "image"),
		Temp:       filepath.Join(base, "temp", "image"),
	}, WithThumbnailSize(100, 100), WithJPEGQuality(70))
	require.NoError(t, err)

	source := writeTestImage(t, "wide.png", 500, 250)
	savePath, err := m.SaveFile(source)
	require.NoError(t, err)

	thumbPath := m.CreateThumbnail(savePath)
	require.NotEmpty(t, thumbPath)

	thumb := decodeImage(t, thumbPath)
	assert.Equal(t, 100, thumb.Bounds().Dx())
	assert.Equal(t, 50, thumb.Bounds().Dy())
}

func TestCreateThumbnail_CorruptImage(t *testing.T) {
	m, _ := setupManager(t)
	source := writeSource(t, "broken.png", []byte("this is not a png"))

	savePath, err := m.SaveFile(source)
	require.NoError(t, err)

	thumbPath := m.CreateThumbnail(savePath)
	assert.Empty(t, thumbPath, "Corrupt image should not produce a thumbnail or an error")
}

func TestCreateThumbnail_MissingFile(t *testing.T) {
	m, _ := setupManager(t)

	thumbPath := m.CreateThumbnail(filepath.Join(t.TempDir(), "nope.png"))
	assert.Empty(t, thumbPath, "Missing file should not produce a thumbnail")
}
