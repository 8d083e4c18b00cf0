package game

import (
	"context"
	"time"

	"github.com/wfunc/liar-game/internal/models"
	"go.uber.org/zap"
)

// RecoveryManager 启动期会话清理器
//
// 实时房间无法跨进程重启存活：客户端连接和阶段计时器都已丢失。
// 启动时扫描持久化的会话状态，为进行中的对局补写终止记录，
// 然后清空残留状态，避免房间号被幽灵会话占用。
type RecoveryManager struct {
	logger    *zap.Logger
	persister StatePersister
	history   HistoryStore
	clock     Clock
}

// NewRecoveryManager 创建恢复管理器
func NewRecoveryManager(logger *zap.Logger, persister StatePersister, history HistoryStore) *RecoveryManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecoveryManager{
		logger:    logger,
		persister: persister,
		history:   history,
		clock:     NewRealClock(),
	}
}

// RecoveryReport 清理结果
type RecoveryReport struct {
	Scanned    int `json:"scanned"`
	Terminated int `json:"terminated"`
	Cleared    int `json:"cleared"`
}

// SweepStaleSessions 清理上次运行遗留的会话状态
func (rm *RecoveryManager) SweepStaleSessions(ctx context.Context) (*RecoveryReport, error) {
	states, err := rm.persister.ListStates(ctx)
	if err != nil {
		return nil, err
	}

	report := &RecoveryReport{Scanned: len(states)}

	for _, state := range states {
		// 开局前或已结束的房间没有需要归档的对局
		if state.Phase != PhaseWaiting && state.Phase != PhaseGameOver {
			t := &models.RoomTermination{
				SessionID:  state.SessionID,
				RoomNumber: state.RoomNumber,
				Phase:      string(state.Phase),
				Reason:     "server_restart",
				EndedAt:    rm.clock.Now(),
			}
			if rm.history != nil {
				if err := rm.history.RecordTermination(ctx, t); err != nil {
					rm.logger.Error("终止记录写入失败",
						zap.String("session_id", state.SessionID),
						zap.Error(err))
				} else {
					report.Terminated++
				}
			}
		}

		if err := rm.persister.DeleteState(ctx, state.SessionID); err != nil {
			rm.logger.Warn("清理会话状态失败",
				zap.String("session_id", state.SessionID),
				zap.Error(err))
			continue
		}
		report.Cleared++

		rm.logger.Info("清理遗留会话",
			zap.String("session_id", state.SessionID),
			zap.Int("room_number", state.RoomNumber),
			zap.String("phase", string(state.Phase)),
			zap.Duration("age", rm.clock.Now().Sub(state.SavedAt)))
	}

	return report, nil
}

// SweepWithTimeout 带超时的清理入口，供启动流程调用
func (rm *RecoveryManager) SweepWithTimeout(timeout time.Duration) (*RecoveryReport, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return rm.SweepStaleSessions(ctx)
}
