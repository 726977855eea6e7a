package repository

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/kanae-lab/cardvault/internal/models"
)

func testFlashcard(hash string) *models.Flashcard {
	return &models.Flashcard{
		Filename:     hash + ".csv",
		OriginalName: "deck.csv",
		FilePath:     "flashcard/" + hash + ".csv",
		Collection:   "default",
		Columns:      datatypes.JSON(`["front","back"]`),
		FileSize:     256,
		Encoding:     "utf-8",
		Delimiter:    ",",
		Hash:         hash,
	}
}

func TestFlashcardRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t, &models.Flashcard{})
	repo := NewFlashcardRepository(db, logrus.New())

	id, err := repo.Create(testFlashcard("csv-1"))
	require.NoError(t, err, "Flashcard creation should succeed")
	assert.Greater(t, id, int64(0))

	card, err := repo.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, "csv-1", card.Hash)
	assert.Equal(t, []string{"front", "back"}, card.ColumnNames())
}

func TestFlashcardRepository_GetByHash(t *testing.T) {
	db := setupTestDB(t, &models.Flashcard{})
	repo := NewFlashcardRepository(db, logrus.New())

	_, err := repo.Create(testFlashcard("csv-2"))
	require.NoError(t, err)

	card, err := repo.GetByHash("csv-2")
	require.NoError(t, err)
	assert.NotNil(t, card)

	card, err = repo.GetByHash("no-such-hash")
	require.NoError(t, err, "Missing hash should not be an error")
	assert.Nil(t, card)
}

func TestFlashcardRepository_DuplicateHash(t *testing.T) {
	db := setupTestDB(t, &models.Flashcard{})
	repo := NewFlashcardRepository(db, logrus.New())

	_, err := repo.Create(testFlashcard("csv-3"))
	require.NoError(t, err)

	_, err = repo.Create(testFlashcard("csv-3"))
	assert.ErrorIs(t, err, models.ErrPersistenceConflict)
}

func TestFlashcardRepository_Update(t *testing.T) {
	db := setupTestDB(t, &models.Flashcard{})
	repo := NewFlashcardRepository(db, logrus.New())

	id, err := repo.Create(testFlashcard("csv-4"))
	require.NoError(t, err)

	err = repo.Update(id, map[string]interface{}{
		"collection": "vocab",
		"row_count":  50,
		"hash":       "forged",
	})
	require.NoError(t, err)

	card, err := repo.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, "vocab", card.Collection)
	require.NotNil(t, card.RowCount)
	assert.Equal(t, 50, *card.RowCount)
	assert.Equal(t, "csv-4", card.Hash, "Hash must survive update attempts")
}

func TestFlashcardRepository_UpdateColumns(t *testing.T) {
	db := setupTestDB(t, &models.Flashcard{})
	repo := NewFlashcardRepository(db, logrus.New())

	id, err := repo.Create(testFlashcard("csv-5"))
	require.NoError(t, err)

	err = repo.UpdateColumns(id, []string{"word", "reading", "meaning"})
	require.NoError(t, err, "Column update should succeed")

	card, err := repo.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"word", "reading", "meaning"}, card.ColumnNames())
}

func TestFlashcardRepository_Delete(t *testing.T) {
	db := setupTestDB(t, &models.Flashcard{})
	repo := NewFlashcardRepository(db, logrus.New())

	id, err := repo.Create(testFlashcard("csv-6"))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(id))

	_, err = repo.GetByID(id)
	assert.ErrorIs(t, err, models.ErrRecordNotFound)
}

func TestFlashcardRepository_ByRowCountRange(t *testing.T) {
	db := setupTestDB(t, &models.Flashcard{})
	repo := NewFlashcardRepository(db, logrus.New())

	small := testFlashcard("csv-small")
	smallRows := 10
	small.RowCount = &smallRows
	_, err := repo.Create(small)
	require.NoError(t, err)

	large := testFlashcard("csv-large")
	largeRows := 500
	large.RowCount = &largeRows
	_, err = repo.Create(large)
	require.NoError(t, err)

	results, err := repo.ByRowCountRange(100, 1000)
	require.NoError(t, err)
	require.Len(t, results, 1, "Row count range should match only the large deck")
	assert.Equal(t, "csv-large", results[0].Hash)
}

func TestFlashcardRepository_CSVInfo(t *testing.T) {
	db := setupTestDB(t, &models.Flashcard{})
	repo := NewFlashcardRepository(db, logrus.New())

	card := testFlashcard("csv-7")
	rows := 30
	card.RowCount = &rows
	card.Delimiter = "\t"
	id, err := repo.Create(card)
	require.NoError(t, err)

	info, err := repo.CSVInfo(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"front", "back"}, info.Columns)
	require.NotNil(t, info.RowCount)
	assert.Equal(t, 30, *info.RowCount)
	assert.Equal(t, "utf-8", info.Encoding)
	assert.Equal(t, "\t", info.Delimiter)
}
