package game

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/liar-game/internal/errors"
	"github.com/wfunc/liar-game/internal/utils"
	"go.uber.org/zap"
)

// RegistryConfig 注册表配置
type RegistryConfig struct {
	Logger          *zap.Logger
	Clock           Clock
	Sink            EventSink
	Picker          SubjectPicker
	Persister       StatePersister
	History         HistoryStore
	MaxRooms        int
	SessionTimeout  time.Duration
	CleanupInterval time.Duration
	StartDeadline   time.Duration
}

// Registry 会话注册表
//
// 管理活跃会话的生命周期与 1-999 的房间号分配。
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	byRoom   map[int]*Session

	logger    *zap.Logger
	clock     Clock
	sink      EventSink
	picker    SubjectPicker
	persister StatePersister
	history   HistoryStore

	maxRooms        int
	sessionTimeout  time.Duration
	cleanupInterval time.Duration
	startDeadline   time.Duration
}

// NewRegistry 创建会话注册表
func NewRegistry(cfg *RegistryConfig) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = NewRealClock()
	}
	if cfg.MaxRooms <= 0 {
		cfg.MaxRooms = 999
	}
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = 30 * time.Minute
	}
	return &Registry{
		sessions:        make(map[string]*Session),
		byRoom:          make(map[int]*Session),
		logger:          cfg.Logger,
		clock:           cfg.Clock,
		sink:            cfg.Sink,
		picker:          cfg.Picker,
		persister:       cfg.Persister,
		history:         cfg.History,
		maxRooms:        cfg.MaxRooms,
		sessionTimeout:  cfg.SessionTimeout,
		cleanupInterval: cfg.CleanupInterval,
		startDeadline:   cfg.StartDeadline,
	}
}

// allocRoomNumber 分配最小可用房间号（须持锁调用）
func (r *Registry) allocRoomNumber() (int, bool) {
	for n := 1; n <= r.maxRooms; n++ {
		if _, taken := r.byRoom[n]; !taken {
			return n, true
		}
	}
	return 0, false
}

// CreateSession 创建新房间
func (r *Registry) CreateSession(owner *Player, cfg *SessionConfig, password string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sessions) >= r.maxRooms {
		return nil, errors.New(errors.ErrRoomFull, "房间数量已达上限")
	}
	roomNumber, ok := r.allocRoomNumber()
	if !ok {
		return nil, errors.New(errors.ErrRoomFull, "没有可用的房间号")
	}

	if password != "" {
		hash, err := utils.HashRoomPassword(password)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrUnknown, "密码加密失败")
		}
		cfg.PasswordHash = hash
	}

	id := uuid.New().String()
	deps := SessionDeps{
		Clock:     r.clock,
		Sink:      r.sink,
		Picker:    r.picker,
		Persister: r.persister,
		History:   r.history,
		Logger:    r.logger,
		Rng:       rand.New(rand.NewSource(r.clock.Now().UnixNano())),
	}
	s := NewSession(id, roomNumber, owner, cfg, deps, r.startDeadline)

	r.sessions[id] = s
	r.byRoom[roomNumber] = s

	r.logger.Info("创建房间",
		zap.String("session_id", id),
		zap.Int("room", roomNumber),
		zap.Int64("owner_id", owner.ID),
		zap.Bool("password", cfg.PasswordHash != ""),
	)
	return s, nil
}

// GetSession 按会话 ID 获取
func (r *Registry) GetSession(sessionID string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.sessions[sessionID]
	if !exists {
		return nil, errors.New(errors.ErrRoomNotFound)
	}
	return s, nil
}

// GetByRoomNumber 按房间号获取
func (r *Registry) GetByRoomNumber(roomNumber int) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.byRoom[roomNumber]
	if !exists {
		return nil, errors.New(errors.ErrRoomNotFound)
	}
	return s, nil
}

// JoinRoom 按房间号加入，校验房间密码
func (r *Registry) JoinRoom(roomNumber int, password string, playerID int64, nickname string) (*Session, error) {
	s, err := r.GetByRoomNumber(roomNumber)
	if err != nil {
		return nil, err
	}

	if hash := s.Config.PasswordHash; hash != "" {
		if !utils.VerifyRoomPassword(password, hash) {
			return nil, errors.New(errors.ErrRoomPassword)
		}
	}

	if err := s.Join(playerID, nickname); err != nil {
		return nil, err
	}
	return s, nil
}

// RemoveSession 移除会话
func (r *Registry) RemoveSession(sessionID string, reason string) {
	r.mu.Lock()
	s, exists := r.sessions[sessionID]
	if exists {
		delete(r.sessions, sessionID)
		delete(r.byRoom, s.RoomNumber)
	}
	r.mu.Unlock()

	if !exists {
		return
	}
	s.Close(reason)

	r.logger.Info("移除房间",
		zap.String("session_id", sessionID),
		zap.Int("room", s.RoomNumber),
		zap.String("reason", reason),
	)
}

// CleanupInactiveSessions 清理不活跃或已结束的会话
func (r *Registry) CleanupInactiveSessions(ctx context.Context) {
	now := r.clock.Now()

	r.mu.RLock()
	var toRemove []string
	for id, s := range r.sessions {
		if s.IsClosed() || s.CurrentPhase() == PhaseGameOver || now.Sub(s.LastActive()) > r.sessionTimeout {
			toRemove = append(toRemove, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range toRemove {
		r.RemoveSession(id, "timeout")
	}
}

// StartCleanupTask 启动周期清理任务
func (r *Registry) StartCleanupTask(ctx context.Context) {
	interval := r.cleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				r.logger.Info("停止房间清理任务")
				return
			case <-ticker.C:
				r.CleanupInactiveSessions(ctx)
			}
		}
	}()
}

// ActiveSessions 活跃会话数
func (r *Registry) ActiveSessions() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// ListRooms 房间列表概要（大厅展示用）
func (r *Registry) ListRooms() []map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]map[string]interface{}, 0, len(r.sessions))
	for _, s := range r.sessions {
		s.mu.Lock()
		rooms = append(rooms, map[string]interface{}{
			"session_id":   s.ID,
			"room_number":  s.RoomNumber,
			"title":        s.Config.Title,
			"has_password": s.Config.PasswordHash != "",
			"phase":        s.Phase,
			"players":      len(s.Players),
			"max_players":  s.Config.MaxPlayers,
		})
		s.mu.Unlock()
	}
	return rooms
}
