package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanae-lab/cardvault/internal/models"
)

func newTestController(t *testing.T) (*StorageController, string) {
	t.Helper()
	base := t.TempDir()
	c, err := NewStorageController(base)
	require.NoError(t, err, "Controller setup over an empty directory should succeed")
	t.Cleanup(c.Cleanup)
	return c, base
}

func TestNewStorageController_CreatesLayout(t *testing.T) {
	_, base := newTestController(t)

	for _, dir := range []string{
		filepath.Join(base, "db"),
		filepath.Join(base, "image"),
		filepath.Join(base, "flashcard"),
		filepath.Join(base, "thumbnails", "image"),
		filepath.Join(base, "thumbnails", "flashcard"),
		filepath.Join(base, "temp", "image"),
		filepath.Join(base, "temp", "flashcard"),
	} {
		info, err := os.Stat(dir)
		require.NoError(t, err, "Directory should exist: %s", dir)
		assert.True(t, info.IsDir())
	}

	for _, dbFile := range []string{
		filepath.Join(base, "db", "images.db"),
		filepath.Join(base, "db", "flashcards.db"),
	} {
		_, err := os.Stat(dbFile)
		assert.NoError(t, err, "Domain database should be provisioned: %s", dbFile)
	}
}

func TestNewStorageController_InvalidBasePath(t *testing.T) {
	// 相对路径
	_, err := NewStorageController("relative/path")
	assert.ErrorIs(t, err, models.ErrInvalidBasePath, "Relative base path should be rejected")

	// 不存在的目录
	_, err = NewStorageController(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.ErrorIs(t, err, models.ErrInvalidBasePath, "Missing base path should be rejected")

	// 指向文件而不是目录
	file := filepath.Join(t.TempDir(), "a-file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	_, err = NewStorageController(file)
	assert.ErrorIs(t, err, models.ErrInvalidBasePath, "File base path should be rejected")
}

func TestNewStorageController_Idempotent(t *testing.T) {
	base := t.TempDir()

	first, err := NewStorageController(base)
	require.NoError(t, err)
	first.Cleanup()

	// 同一目录上重复初始化不报错，已有数据保留
	second, err := NewStorageController(base)
	require.NoError(t, err, "Re-initializing over an existing layout should succeed")
	second.Cleanup()
}

func TestStorageController_DomainAccess(t *testing.T) {
	c, _ := newTestController(t)

	images, err := c.ImageStorage()
	require.NoError(t, err)
	require.NotNil(t, images)

	flashcards, err := c.FlashcardStorage()
	require.NoError(t, err)
	require.NotNil(t, flashcards)

	// 同一控制器内实例被复用
	again, err := c.ImageStorage()
	require.NoError(t, err)
	assert.Same(t, images, again, "Domain instances should be memoized")

	generic, err := c.Storage(DomainImage)
	require.NoError(t, err)
	assert.Same(t, images, generic, "Generic and typed accessors share the instance")
}

func TestStorageController_UnsupportedDomain(t *testing.T) {
	c, _ := newTestController(t)

	_, err := c.Storage("video")
	assert.ErrorIs(t, err, models.ErrUnsupportedDomain)
}

func TestStorageController_EndToEnd(t *testing.T) {
	c, _ := newTestController(t)

	images, err := c.ImageStorage()
	require.NoError(t, err)
	imageSource := writeSourceImage(t, "art.png", 64, 64, 20)
	imageID, err := images.Save(imageSource, "gallery", nil)
	require.NoError(t, err)

	flashcards, err := c.FlashcardStorage()
	require.NoError(t, err)
	csvSource := writeSourceCSV(t, "deck.csv", "q,a\n1,one\n2,two\n")
	cardID, err := flashcards.Save(csvSource, "decks", nil)
	require.NoError(t, err)

	// 两个域各自独立编目
	img, err := images.Get(imageID)
	require.NoError(t, err)
	assert.Equal(t, "gallery", img.Collection)

	card, err := flashcards.Get(cardID)
	require.NoError(t, err)
	assert.Equal(t, "decks", card.Collection)
}

func TestStorageController_StorageStats(t *testing.T) {
	c, _ := newTestController(t)

	images, err := c.ImageStorage()
	require.NoError(t, err)
	_, err = images.Save(writeSourceImage(t, "one.png", 32, 32, 21), "default", nil)
	require.NoError(t, err)

	flashcards, err := c.FlashcardStorage()
	require.NoError(t, err)
	_, err = flashcards.Save(writeSourceCSV(t, "one.csv", "q,a\nx,y\n"), "default", nil)
	require.NoError(t, err)

	stats, err := c.StorageStats()
	require.NoError(t, err)
	require.NotNil(t, stats.Images)
	require.NotNil(t, stats.Flashcards)
	assert.Equal(t, 1, stats.Images.TotalFiles)
	assert.Equal(t, 1, stats.Flashcards.TotalFiles)
	assert.Equal(t, 2, stats.TotalFiles, "Aggregate counts sum both domains")
	assert.Equal(t, stats.Images.TotalSize+stats.Flashcards.TotalSize, stats.TotalSize)
}

func TestStorageController_PathsInfo(t *testing.T) {
	c, base := newTestController(t)

	info := c.PathsInfo()
	assert.Equal(t, base, info["base_path"])
	assert.Equal(t, filepath.Join(base, "db"), info["db_dir"])
	assert.Equal(t, filepath.Join(base, "db", "images.db"), info["image_db_path"])
	assert.Equal(t, filepath.Join(base, "flashcard"), info["flashcard_storage_path"])
	assert.Equal(t, filepath.Join(base, "thumbnails", "image"), info["image_thumbnails_path"])
}

func TestStorageController_Cleanup(t *testing.T) {
	base := t.TempDir()
	c, err := NewStorageController(base)
	require.NoError(t, err)

	_, err = c.ImageStorage()
	require.NoError(t, err)

	// 重复调用Cleanup是安全的
	c.Cleanup()
	c.Cleanup()

	// 清理后可以重新取得新的实例
	images, err := c.ImageStorage()
	require.NoError(t, err)
	assert.NotNil(t, images, "Domains can be re-instantiated after cleanup")
	c.Cleanup()
}
