package game

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/wfunc/liar-game/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StatePersister 会话状态持久化接口
type StatePersister interface {
	SaveState(ctx context.Context, state *SessionStateData) error
	LoadState(ctx context.Context, sessionID string) (*SessionStateData, error)
	ListStates(ctx context.Context) ([]*SessionStateData, error)
	DeleteState(ctx context.Context, sessionID string) error
}

// SessionStateData 持久化的会话快照
type SessionStateData struct {
	SessionID  string    `json:"session_id"`
	RoomNumber int       `json:"room_number"`
	OwnerID    int64     `json:"owner_id"`
	Phase      GamePhase `json:"phase"`
	PhaseSeq   uint64    `json:"phase_seq"`
	Deadline   time.Time `json:"deadline"`
	Players    []*Player `json:"players"`
	// 角色与词语单独落盘，Player 上的同名字段不会序列化
	Roles        map[int64]Role   `json:"roles,omitempty"`
	Shown        map[int64]Role   `json:"shown,omitempty"`
	PlayerWords  map[int64]string `json:"player_words,omitempty"`
	Round        *Round           `json:"round,omitempty"`
	RoundsPlayed int              `json:"rounds_played"`
	Words        WordPair         `json:"words"`
	Config       *SessionConfig   `json:"config"`
	SavedAt      time.Time        `json:"saved_at"`
}

// MemoryStatePersister 内存状态持久化（用于测试）
type MemoryStatePersister struct {
	mu     sync.RWMutex
	states map[string]*SessionStateData
}

// NewMemoryStatePersister 创建内存持久化器
func NewMemoryStatePersister() *MemoryStatePersister {
	return &MemoryStatePersister{
		states: make(map[string]*SessionStateData),
	}
}

// SaveState 保存状态
func (p *MemoryStatePersister) SaveState(ctx context.Context, state *SessionStateData) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	stateCopy := *state
	p.states[state.SessionID] = &stateCopy
	return nil
}

// LoadState 加载状态
func (p *MemoryStatePersister) LoadState(ctx context.Context, sessionID string) (*SessionStateData, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	state, exists := p.states[sessionID]
	if !exists {
		return nil, fmt.Errorf("状态不存在: %s", sessionID)
	}

	stateCopy := *state
	return &stateCopy, nil
}

// ListStates 列出所有状态
func (p *MemoryStatePersister) ListStates(ctx context.Context) ([]*SessionStateData, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	states := make([]*SessionStateData, 0, len(p.states))
	for _, state := range p.states {
		stateCopy := *state
		states = append(states, &stateCopy)
	}
	return states, nil
}

// DeleteState 删除状态
func (p *MemoryStatePersister) DeleteState(ctx context.Context, sessionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.states, sessionID)
	return nil
}

// DatabaseStatePersister 数据库状态持久化
type DatabaseStatePersister struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewDatabaseStatePersister 创建数据库持久化器
func NewDatabaseStatePersister(db *gorm.DB, logger *zap.Logger) *DatabaseStatePersister {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DatabaseStatePersister{db: db, logger: logger}
}

// SaveState 保存状态
func (p *DatabaseStatePersister) SaveState(ctx context.Context, state *SessionStateData) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("序列化状态失败: %w", err)
	}

	record := models.SessionState{
		SessionID:    state.SessionID,
		RoomNumber:   state.RoomNumber,
		CurrentPhase: string(state.Phase),
		StateData:    string(data),
	}

	// Upsert：存在则更新，不存在则以 record 为模板插入（带上 session_id）
	err = p.db.WithContext(ctx).
		Where("session_id = ?", state.SessionID).
		Assign(models.SessionState{
			RoomNumber:   record.RoomNumber,
			CurrentPhase: record.CurrentPhase,
			StateData:    record.StateData,
		}).
		FirstOrCreate(&record).Error
	if err != nil {
		return fmt.Errorf("保存状态失败: %w", err)
	}
	return nil
}

// LoadState 加载状态
func (p *DatabaseStatePersister) LoadState(ctx context.Context, sessionID string) (*SessionStateData, error) {
	var record models.SessionState
	err := p.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("状态不存在: %s", sessionID)
		}
		return nil, fmt.Errorf("加载状态失败: %w", err)
	}

	var state SessionStateData
	if err := json.Unmarshal([]byte(record.StateData), &state); err != nil {
		return nil, fmt.Errorf("反序列化状态失败: %w", err)
	}
	return &state, nil
}

// ListStates 列出所有状态
func (p *DatabaseStatePersister) ListStates(ctx context.Context) ([]*SessionStateData, error) {
	var records []models.SessionState
	if err := p.db.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("加载状态列表失败: %w", err)
	}

	states := make([]*SessionStateData, 0, len(records))
	for _, record := range records {
		var state SessionStateData
		if err := json.Unmarshal([]byte(record.StateData), &state); err != nil {
			p.logger.Warn("跳过无法解析的会话状态",
				zap.String("session_id", record.SessionID),
				zap.Error(err))
			continue
		}
		states = append(states, &state)
	}
	return states, nil
}

// DeleteState 删除状态
func (p *DatabaseStatePersister) DeleteState(ctx context.Context, sessionID string) error {
	err := p.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&models.SessionState{}).Error
	if err != nil {
		return fmt.Errorf("删除状态失败: %w", err)
	}
	return nil
}

// saveStateLocked 持久化当前会话状态（须持锁调用，尽力而为）
func (s *Session) saveStateLocked() {
	if s.persister == nil {
		return
	}

	roles := make(map[int64]Role, len(s.Players))
	shown := make(map[int64]Role, len(s.Players))
	words := make(map[int64]string, len(s.Players))
	for _, p := range s.Players {
		roles[p.ID] = p.Role
		shown[p.ID] = p.ShownRole
		words[p.ID] = p.Word
	}

	state := &SessionStateData{
		SessionID:    s.ID,
		RoomNumber:   s.RoomNumber,
		OwnerID:      s.OwnerID,
		Phase:        s.Phase,
		PhaseSeq:     s.PhaseSeq,
		Deadline:     s.Deadline,
		Players:      s.Players,
		Roles:        roles,
		Shown:        shown,
		PlayerWords:  words,
		Round:        s.Round,
		RoundsPlayed: s.RoundsPlayed,
		Words:        s.Words,
		Config:       s.Config,
		SavedAt:      s.clock.Now(),
	}
	if err := s.persister.SaveState(context.Background(), state); err != nil {
		s.logger.Warn("会话状态持久化失败", zap.String("session_id", s.ID), zap.Error(err))
	}
}
