package models

import "time"

// SessionState 会话状态模型（用于持久化游戏阶段机）
type SessionState struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SessionID    string    `gorm:"uniqueIndex;size:64;not null" json:"session_id"`
	RoomNumber   int       `gorm:"index" json:"room_number"`
	CurrentPhase string    `gorm:"size:30;not null" json:"current_phase"`
	StateData    string    `gorm:"type:text" json:"state_data"` // JSON格式的状态数据
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName 指定表名
func (SessionState) TableName() string {
	return "session_states"
}
