package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/liar-game/internal/models"
)

func TestSubjectRepository_CRUD(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)

	repo := NewSubjectRepository(db)
	ctx := context.Background()

	subject := &models.Subject{
		Name:   "职业",
		Status: "active",
	}
	require.NoError(t, repo.Create(ctx, subject))
	require.NotZero(t, subject.ID)

	require.NoError(t, repo.AddWords(ctx, subject.ID, []string{"医生", "教师", "程序员"}))

	found, err := repo.FindByID(ctx, subject.ID)
	require.NoError(t, err)
	assert.Equal(t, "职业", found.Name)
	assert.Len(t, found.Words, 3)

	byName, err := repo.FindByName(ctx, "职业")
	require.NoError(t, err)
	assert.Equal(t, subject.ID, byName.ID)

	require.NoError(t, repo.Delete(ctx, subject.ID))
	_, err = repo.FindByID(ctx, subject.ID)
	assert.Error(t, err)
}

func TestSubjectRepository_GetAll(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)

	SeedSubjects(t, db)
	repo := NewSubjectRepository(db)

	pagination := NewPagination(1, 10)
	subjects, err := repo.GetAll(context.Background(), pagination)
	require.NoError(t, err)
	assert.Len(t, subjects, 4)
	assert.Equal(t, int64(4), pagination.Total)
}

func TestSubjectRepository_PickWordPair(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)

	SeedSubjects(t, db)
	repo := NewSubjectRepository(db)
	ctx := context.Background()

	// 多次抽取：主题合法、两词不同
	for i := 0; i < 20; i++ {
		pair, err := repo.PickWordPair(ctx)
		require.NoError(t, err)
		assert.Contains(t, []string{"水果", "动物"}, pair.Subject)
		assert.NotEmpty(t, pair.CitizenWord)
		assert.NotEmpty(t, pair.LiarWord)
		assert.NotEqual(t, pair.CitizenWord, pair.LiarWord)
	}
}

func TestSubjectRepository_PickWordPair_Empty(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)

	repo := NewSubjectRepository(db)
	_, err := repo.PickWordPair(context.Background())
	assert.Error(t, err)
}
