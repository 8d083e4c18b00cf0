package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/liar-game/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newPersistenceDB 内存数据库，仅迁移状态表
func newPersistenceDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.SessionState{}))

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestDatabaseStatePersister_SaveLoad(t *testing.T) {
	db := newPersistenceDB(t)
	p := NewDatabaseStatePersister(db, nil)
	ctx := context.Background()

	require.NoError(t, p.SaveState(ctx, &SessionStateData{
		SessionID:  "sid-1",
		RoomNumber: 1001,
		Phase:      PhaseSpeech,
		SavedAt:    time.Now(),
	}))

	// 落库记录必须带上会话ID，否则按ID的读写全部失配
	var record models.SessionState
	require.NoError(t, db.First(&record).Error)
	assert.Equal(t, "sid-1", record.SessionID)
	assert.Equal(t, 1001, record.RoomNumber)
	assert.Equal(t, string(PhaseSpeech), record.CurrentPhase)

	state, err := p.LoadState(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, "sid-1", state.SessionID)
	assert.Equal(t, PhaseSpeech, state.Phase)
}

func TestDatabaseStatePersister_SaveIsUpsert(t *testing.T) {
	db := newPersistenceDB(t)
	p := NewDatabaseStatePersister(db, nil)
	ctx := context.Background()

	require.NoError(t, p.SaveState(ctx, &SessionStateData{
		SessionID:  "sid-1",
		RoomNumber: 1001,
		Phase:      PhaseSpeech,
	}))
	require.NoError(t, p.SaveState(ctx, &SessionStateData{
		SessionID:  "sid-1",
		RoomNumber: 1001,
		Phase:      PhaseVotingForLiar,
	}))

	// 重复保存更新同一行，不产生新记录
	var count int64
	require.NoError(t, db.Model(&models.SessionState{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	state, err := p.LoadState(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, PhaseVotingForLiar, state.Phase)
}

func TestDatabaseStatePersister_DeleteAndList(t *testing.T) {
	db := newPersistenceDB(t)
	p := NewDatabaseStatePersister(db, nil)
	ctx := context.Background()

	require.NoError(t, p.SaveState(ctx, &SessionStateData{SessionID: "sid-1", Phase: PhaseSpeech}))
	require.NoError(t, p.SaveState(ctx, &SessionStateData{SessionID: "sid-2", Phase: PhaseWaiting}))

	states, err := p.ListStates(ctx)
	require.NoError(t, err)
	assert.Len(t, states, 2)

	require.NoError(t, p.DeleteState(ctx, "sid-1"))

	_, err = p.LoadState(ctx, "sid-1")
	assert.Error(t, err)

	states, err = p.ListStates(ctx)
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, "sid-2", states[0].SessionID)
}
