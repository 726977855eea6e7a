package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.bin")
	require.NoError(t, os.WriteFile(path, content, 0644), "Failed to write test file")
	return path
}

func TestFileHash(t *testing.T) {
	content := []byte("hello cardvault")
	path := writeTestFile(t, content)

	got, err := FileHash(path)
	require.NoError(t, err, "Hashing an existing file should succeed")

	sum := sha256.Sum256(content)
	assert.Equal(t, hex.EncodeToString(sum[:]), got, "Streamed hash should match whole-buffer hash")
}

func TestFileHash_LargeFile(t *testing.T) {
	// 超过一个分块大小，验证流式读取的正确性
	content := make([]byte, chunkSize*3+17)
	for i := range content {
		content[i] = byte(i % 251)
	}
	path := writeTestFile(t, content)

	got, err := FileHash(path)
	require.NoError(t, err, "Hashing a multi-chunk file should succeed")

	sum := sha256.Sum256(content)
	assert.Equal(t, hex.EncodeToString(sum[:]), got, "Hash should be independent of chunking")
}

func TestFileHash_EmptyFile(t *testing.T) {
	path := writeTestFile(t, nil)

	got, err := FileHash(path)
	require.NoError(t, err, "Hashing an empty file should succeed")

	sum := sha256.Sum256(nil)
	assert.Equal(t, hex.EncodeToString(sum[:]), got, "Empty file should hash to the empty-input digest")
}

func TestFileHash_MissingFile(t *testing.T) {
	_, err := FileHash(filepath.Join(t.TempDir(), "missing.bin"))
	assert.Error(t, err, "Hashing a missing file should fail")
}

func TestFileHash_SameContentSameHash(t *testing.T) {
	content := []byte("identical bytes")
	first := writeTestFile(t, content)
	second := writeTestFile(t, content)

	h1, err := FileHash(first)
	require.NoError(t, err)
	h2, err := FileHash(second)
	require.NoError(t, err)

	assert.Equal(t, h1, h2, "Identical content should produce identical hashes regardless of path")
}

func TestGenerateFilename(t *testing.T) {
	name := GenerateFilename(".png")
	assert.True(t, strings.HasSuffix(name, ".png"), "Generated name should keep the extension")

	other := GenerateFilename(".png")
	assert.NotEqual(t, name, other, "Each generated name should be unique")
}

func TestGenerateFilename_NormalizesExtension(t *testing.T) {
	// 扩展名缺少点号时会自动补上
	name := GenerateFilename("jpg")
	assert.True(t, strings.HasSuffix(name, ".jpg"), "Extension without a dot should still be appended with one")

	bare := GenerateFilename("")
	assert.NotContains(t, bare, ".", "No extension should yield a bare name")
}

func TestTempFilename(t *testing.T) {
	name := TempFilename(".csv")
	assert.True(t, strings.HasPrefix(name, "temp_"), "Temp names should carry the temp_ prefix")
	assert.True(t, strings.HasSuffix(name, ".csv"), "Temp names should keep the extension")
}
