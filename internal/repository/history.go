package repository

import (
	"context"

	"github.com/wfunc/liar-game/internal/errors"
	"github.com/wfunc/liar-game/internal/models"
	"gorm.io/gorm"
)

// HistoryRepository 对局历史仓储接口
type HistoryRepository interface {
	BaseRepository
	RecordGameHistory(ctx context.Context, history *models.GameHistory) error
	RecordTermination(ctx context.Context, termination *models.RoomTermination) error
	FindBySessionID(ctx context.Context, sessionID string) (*models.GameHistory, error)
	GetAll(ctx context.Context, pagination *Pagination) ([]*models.GameHistory, error)
	GetTerminations(ctx context.Context, pagination *Pagination) ([]*models.RoomTermination, error)
	Summary(ctx context.Context) (*HistorySummary, error)
}

// HistorySummary 对局统计概要
type HistorySummary struct {
	TotalGames   int64 `json:"total_games"`
	CitizenWins  int64 `json:"citizen_wins"`
	LiarWins     int64 `json:"liar_wins"`
	Terminations int64 `json:"terminations"`
}

// historyRepo 对局历史仓储实现
type historyRepo struct {
	*BaseRepo
}

// NewHistoryRepository 创建对局历史仓储
func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// RecordGameHistory 记录对局结果
func (r *historyRepo) RecordGameHistory(ctx context.Context, history *models.GameHistory) error {
	if err := r.db.WithContext(ctx).Create(history).Error; err != nil {
		return errors.Wrap(err, errors.ErrDatabaseInsert, "记录对局历史失败")
	}
	return nil
}

// RecordTermination 记录房间终止
func (r *historyRepo) RecordTermination(ctx context.Context, termination *models.RoomTermination) error {
	if err := r.db.WithContext(ctx).Create(termination).Error; err != nil {
		return errors.Wrap(err, errors.ErrDatabaseInsert, "记录房间终止失败")
	}
	return nil
}

// FindBySessionID 按会话ID查找对局
func (r *historyRepo) FindBySessionID(ctx context.Context, sessionID string) (*models.GameHistory, error) {
	var history models.GameHistory
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&history).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New(errors.ErrNotFound, "对局不存在")
		}
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	return &history, nil
}

// GetAll 分页获取对局历史，按结束时间倒序
func (r *historyRepo) GetAll(ctx context.Context, pagination *Pagination) ([]*models.GameHistory, error) {
	var histories []*models.GameHistory

	query := r.db.WithContext(ctx).Model(&models.GameHistory{})
	if err := query.Count(&pagination.Total).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}

	err := query.Scopes(Paginate(pagination)).
		Order("ended_at DESC").
		Find(&histories).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	return histories, nil
}

// GetTerminations 分页获取房间终止记录
func (r *historyRepo) GetTerminations(ctx context.Context, pagination *Pagination) ([]*models.RoomTermination, error) {
	var terminations []*models.RoomTermination

	query := r.db.WithContext(ctx).Model(&models.RoomTermination{})
	if err := query.Count(&pagination.Total).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}

	err := query.Scopes(Paginate(pagination)).
		Order("ended_at DESC").
		Find(&terminations).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	return terminations, nil
}

// Summary 对局统计概要
func (r *historyRepo) Summary(ctx context.Context) (*HistorySummary, error) {
	var summary HistorySummary

	db := r.db.WithContext(ctx)
	if err := db.Model(&models.GameHistory{}).Count(&summary.TotalGames).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	if err := db.Model(&models.GameHistory{}).Where("winner = ?", "CITIZENS").Count(&summary.CitizenWins).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	if err := db.Model(&models.GameHistory{}).Where("winner = ?", "LIARS").Count(&summary.LiarWins).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	if err := db.Model(&models.RoomTermination{}).Count(&summary.Terminations).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	return &summary, nil
}

// WithTx 使用事务
func (r *historyRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &historyRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
