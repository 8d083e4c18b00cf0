package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/liar-game/internal/models"
)

func testHistory(sessionID string, winner string) *models.GameHistory {
	now := time.Now()
	return &models.GameHistory{
		SessionID:    sessionID,
		RoomNumber:   1,
		Winner:       winner,
		Mode:         "LIARS_KNOW",
		Subject:      "水果",
		CitizenWord:  "苹果",
		RoundsPlayed: 2,
		PlayerCount:  5,
		LiarCount:    1,
		Results: models.JSONMap{
			"玩家1": map[string]interface{}{"score": 4, "role": "CITIZEN"},
		},
		StartedAt: now.Add(-10 * time.Minute),
		EndedAt:   now,
	}
}

func TestHistoryRepository_RecordAndFind(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)

	repo := NewHistoryRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.RecordGameHistory(ctx, testHistory("session-1", "CITIZENS")))

	found, err := repo.FindBySessionID(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, "CITIZENS", found.Winner)
	assert.Equal(t, "苹果", found.CitizenWord)
	assert.Equal(t, 2, found.RoundsPlayed)

	_, err = repo.FindBySessionID(ctx, "no-such-session")
	assert.Error(t, err)
}

func TestHistoryRepository_GetAll(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)

	repo := NewHistoryRepository(db)
	ctx := context.Background()

	for i, winner := range []string{"CITIZENS", "LIARS", "CITIZENS"} {
		h := testHistory("session-"+string(rune('a'+i)), winner)
		h.EndedAt = time.Now().Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.RecordGameHistory(ctx, h))
	}

	pagination := NewPagination(1, 2)
	histories, err := repo.GetAll(ctx, pagination)
	require.NoError(t, err)
	assert.Len(t, histories, 2)
	assert.Equal(t, int64(3), pagination.Total)
	// 按结束时间倒序
	assert.Equal(t, "session-c", histories[0].SessionID)
}

func TestHistoryRepository_Terminations(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)

	repo := NewHistoryRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.RecordTermination(ctx, &models.RoomTermination{
		SessionID:  "session-1",
		RoomNumber: 7,
		Phase:      "WAITING_FOR_PLAYERS",
		Reason:     "timeout",
		EndedAt:    time.Now(),
	}))

	pagination := NewPagination(1, 10)
	terminations, err := repo.GetTerminations(ctx, pagination)
	require.NoError(t, err)
	require.Len(t, terminations, 1)
	assert.Equal(t, "timeout", terminations[0].Reason)
}

func TestHistoryRepository_Summary(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)

	repo := NewHistoryRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.RecordGameHistory(ctx, testHistory("s1", "CITIZENS")))
	require.NoError(t, repo.RecordGameHistory(ctx, testHistory("s2", "LIARS")))
	require.NoError(t, repo.RecordGameHistory(ctx, testHistory("s3", "CITIZENS")))
	require.NoError(t, repo.RecordTermination(ctx, &models.RoomTermination{
		SessionID: "s4", RoomNumber: 2, Phase: "WAITING_FOR_PLAYERS", Reason: "empty", EndedAt: time.Now(),
	}))

	summary, err := repo.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.TotalGames)
	assert.Equal(t, int64(2), summary.CitizenWins)
	assert.Equal(t, int64(1), summary.LiarWins)
	assert.Equal(t, int64(1), summary.Terminations)
}
