package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"github.com/kanae-lab/cardvault/internal/models"
	"github.com/kanae-lab/cardvault/internal/repository"
)

func newTestFlashcardStorage(t *testing.T, opts ...Option) (*FlashcardStorage, string) {
	t.Helper()
	files, base := testFileManager(t, "flashcard")
	db := testDB(t, &models.Flashcard{})
	repo := repository.NewFlashcardRepository(db, logrus.New())
	return NewFlashcardStorage(files, repo, opts...), base
}

func writeSourceCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestFlashcardStorage_Save(t *testing.T) {
	s, base := newTestFlashcardStorage(t)
	source := writeSourceCSV(t, "verbs.csv", "front,back\nto go,行く\nto eat,食べる\n")

	id, err := s.Save(source, "japanese", nil)
	require.NoError(t, err, "Saving a fresh CSV should succeed")
	assert.Greater(t, id, int64(0))

	card, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "verbs.csv", card.OriginalName)
	assert.NotEqual(t, "verbs.csv", card.Filename, "Stored name should be generated")
	assert.Equal(t, "japanese", card.Collection)
	assert.Equal(t, []string{"front", "back"}, card.ColumnNames())
	require.NotNil(t, card.RowCount)
	assert.Equal(t, 2, *card.RowCount, "Row count excludes the header")
	assert.Equal(t, "utf-8", card.Encoding)
	assert.Equal(t, ",", card.Delimiter)
	assert.NotEmpty(t, card.Hash)
	assert.NotEmpty(t, card.FullPath)

	_, err = os.Stat(card.FullPath)
	assert.NoError(t, err, "Physical copy should exist")
	assert.Equal(t, 1, countFiles(t, filepath.Join(base, "flashcard")))
}

func TestFlashcardStorage_Save_Duplicate(t *testing.T) {
	s, base := newTestFlashcardStorage(t)
	source := writeSourceCSV(t, "dup.csv", "q,a\n1,one\n")

	firstID, err := s.Save(source, "default", nil)
	require.NoError(t, err)

	secondID, err := s.Save(source, "default", nil)
	assert.ErrorIs(t, err, models.ErrDuplicateContent)
	assert.Equal(t, firstID, secondID, "Duplicate save should return the existing record ID")
	assert.Equal(t, 1, countFiles(t, filepath.Join(base, "flashcard")))
}

func TestFlashcardStorage_Save_MissingSource(t *testing.T) {
	s, _ := newTestFlashcardStorage(t)

	_, err := s.Save(filepath.Join(t.TempDir(), "nope.csv"), "default", nil)
	assert.ErrorIs(t, err, models.ErrSourceUnavailable)
}

func TestFlashcardStorage_Save_ShiftJIS(t *testing.T) {
	s, _ := newTestFlashcardStorage(t)

	utf8Content := "単語,読み,意味\n" +
		"犬,いぬ,dog\n" +
		"猫,ねこ,cat\n" +
		"鳥,とり,bird\n" +
		"魚,さかな,fish\n" +
		"馬,うま,horse\n"
	sjis, _, err := transform.String(japanese.ShiftJIS.NewEncoder(), utf8Content)
	require.NoError(t, err)
	source := writeSourceCSV(t, "kanji.csv", sjis)

	id, err := s.Save(source, "kanji", nil)
	require.NoError(t, err)

	card, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "shift-jis", card.Encoding, "Shift-JIS files should be detected")
	assert.Equal(t, []string{"単語", "読み", "意味"}, card.ColumnNames(), "Columns should be stored decoded")
	require.NotNil(t, card.RowCount)
	assert.Equal(t, 5, *card.RowCount)

	info, err := s.CSVInfo(id)
	require.NoError(t, err)
	assert.Equal(t, "shift-jis", info.Encoding)
	require.NotNil(t, info.RowCount)
	assert.Equal(t, 5, *info.RowCount)

	columns, err := s.Columns(id)
	require.NoError(t, err)
	assert.Len(t, columns, 3)
}

func TestFlashcardStorage_Save_UnparsableDegrades(t *testing.T) {
	s, _ := newTestFlashcardStorage(t)

	// 无法按任何编码解析的内容仍被编目
	source := filepath.Join(t.TempDir(), "binary.csv")
	require.NoError(t, os.WriteFile(source, []byte{'"', 0xff, 0xfe, '\n'}, 0644))

	id, err := s.Save(source, "default", nil)
	require.NoError(t, err, "Unparsable files should still be cataloged")

	card, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "unknown", card.Encoding)
	assert.Nil(t, card.RowCount)
	assert.Empty(t, card.ColumnNames())
	assert.Greater(t, card.FileSize, int64(0))
}

func TestFlashcardStorage_SaveCSV_ColumnsOverride(t *testing.T) {
	s, _ := newTestFlashcardStorage(t)
	source := writeSourceCSV(t, "headerless.csv", "c1,c2\nx,y\n")

	id, err := s.SaveCSV(source, "default", []string{"question", "answer"}, nil)
	require.NoError(t, err)

	columns, err := s.Columns(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"question", "answer"}, columns, "Caller-provided columns should override the parsed header")
}

func TestFlashcardStorage_ColumnVerbs(t *testing.T) {
	s, _ := newTestFlashcardStorage(t)
	source := writeSourceCSV(t, "deck.csv", "front,back\na,b\n")

	id, err := s.Save(source, "default", nil)
	require.NoError(t, err)

	require.NoError(t, s.UpdateColumns(id, []string{"word", "reading", "meaning"}))

	columns, err := s.Columns(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"word", "reading", "meaning"}, columns)

	info, err := s.CSVInfo(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"word", "reading", "meaning"}, info.Columns)
}

func TestFlashcardStorage_EncodingAndDelimiterVerbs(t *testing.T) {
	s, _ := newTestFlashcardStorage(t)
	source := writeSourceCSV(t, "deck.csv", "a,b\n1,2\n")

	id, err := s.Save(source, "default", nil)
	require.NoError(t, err)

	encoding, err := s.Encoding(id)
	require.NoError(t, err)
	assert.Equal(t, "utf-8", encoding)

	require.NoError(t, s.UpdateEncoding(id, "shift-jis"))
	encoding, err = s.Encoding(id)
	require.NoError(t, err)
	assert.Equal(t, "shift-jis", encoding)

	delimiter, err := s.Delimiter(id)
	require.NoError(t, err)
	assert.Equal(t, ",", delimiter)

	require.NoError(t, s.UpdateDelimiter(id, "\t"))
	delimiter, err = s.Delimiter(id)
	require.NoError(t, err)
	assert.Equal(t, "\t", delimiter)
}

func TestFlashcardStorage_ByRowCountRange(t *testing.T) {
	s, _ := newTestFlashcardStorage(t)

	small := writeSourceCSV(t, "small.csv", "q,a\n1,one\n")
	_, err := s.Save(small, "default", nil)
	require.NoError(t, err)

	large := writeSourceCSV(t, "large.csv", "q,a\n1,one\n2,two\n3,three\n4,four\n5,five\n")
	largeID, err := s.Save(large, "default", nil)
	require.NoError(t, err)

	results, err := s.ByRowCountRange(3, 100)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, largeID, results[0].ID)
}

func TestFlashcardStorage_Delete(t *testing.T) {
	s, base := newTestFlashcardStorage(t)
	source := writeSourceCSV(t, "gone.csv", "q,a\nx,y\n")

	id, err := s.Save(source, "default", nil)
	require.NoError(t, err)
	card, err := s.Get(id)
	require.NoError(t, err)

	deleted, err := s.Delete(id)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = os.Stat(card.FullPath)
	assert.True(t, os.IsNotExist(err), "Physical copy should be removed")
	assert.Equal(t, 0, countFiles(t, filepath.Join(base, "flashcard")))

	deleted, err = s.Delete(id)
	require.NoError(t, err)
	assert.False(t, deleted, "Deleting a missing record reports false, not an error")
}

func TestFlashcardStorage_SearchByName(t *testing.T) {
	s, _ := newTestFlashcardStorage(t)

	source := writeSourceCSV(t, "n5_vocab.csv", "q,a\nx,y\n")
	_, err := s.Save(source, "default", nil)
	require.NoError(t, err)

	results, err := s.SearchByName("n5")
	require.NoError(t, err)
	assert.Len(t, results, 1)

	results, err = s.SearchByName("n1")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFlashcardStorage_Stats(t *testing.T) {
	s, _ := newTestFlashcardStorage(t)

	first := writeSourceCSV(t, "a.csv", "q,a\n1,one\n2,two\n")
	_, err := s.Save(first, "alpha", nil)
	require.NoError(t, err)

	second := writeSourceCSV(t, "b.csv", "q\tb\n1\tone\n2\ttwo\n3\tthree\n4\tfour\n")
	_, err = s.Save(second, "beta", nil)
	require.NoError(t, err)

	stats, err := s.FlashcardStats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalFiles)
	assert.Equal(t, 2, stats.Collections)
	assert.Equal(t, 2, stats.Encodings["utf-8"])
	assert.Equal(t, 1, stats.Delimiters[","])
	assert.Equal(t, 1, stats.Delimiters["\t"])
	assert.Equal(t, 6, stats.TotalFlashcards, "Total cards is the sum of row counts")
	assert.InDelta(t, 3.0, stats.AvgRowsPerFile, 0.001)
}
