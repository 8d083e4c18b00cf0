package models

import "time"

// GameHistory 对局历史汇总表（GAME_OVER时写入）
type GameHistory struct {
	BaseModel
	SessionID    string    `gorm:"uniqueIndex;size:64;not null" json:"session_id"`
	RoomNumber   int       `gorm:"index;not null" json:"room_number"`
	Winner       string    `gorm:"size:20;not null" json:"winner"` // CITIZENS, LIARS
	Mode         string    `gorm:"size:30" json:"mode"`
	Subject      string    `gorm:"size:100" json:"subject"`
	CitizenWord  string    `gorm:"size:100" json:"citizen_word"`
	RoundsPlayed int       `gorm:"default:0" json:"rounds_played"`
	PlayerCount  int       `gorm:"default:0" json:"player_count"`
	LiarCount    int       `gorm:"default:1" json:"liar_count"`
	TargetScore  int       `gorm:"default:0" json:"target_score"`
	Results      JSONMap   `gorm:"type:json" json:"results"` // 每位玩家的身份、得分、存活状态
	StartedAt    time.Time `json:"started_at"`
	EndedAt      time.Time `json:"ended_at"`
}

// TableName 指定表名
func (GameHistory) TableName() string {
	return "game_histories"
}

// RoomTermination 房间终止记录表（异常解散时写入）
type RoomTermination struct {
	BaseModel
	SessionID  string    `gorm:"index;size:64;not null" json:"session_id"`
	RoomNumber int       `gorm:"index" json:"room_number"`
	Phase      string    `gorm:"size:30" json:"phase"`
	Reason     string    `gorm:"size:100" json:"reason"` // empty, timeout, owner_dismissed
	EndedAt    time.Time `json:"ended_at"`
}

// TableName 指定表名
func (RoomTermination) TableName() string {
	return "room_terminations"
}
