package game

// EventSchemaVersion 实时事件当前协议版本
const EventSchemaVersion = 1

// EventType 实时事件类型
type EventType string

const (
	EventPhaseChange       EventType = "PHASE_CHANGE"
	EventCurrentTurn       EventType = "CURRENT_TURN"
	EventDefenseStart      EventType = "DEFENSE_START"
	EventDefenseSubmission EventType = "DEFENSE_SUBMISSION"
	EventVotingStart       EventType = "VOTING_START"
	EventVotingProgress    EventType = "VOTING_PROGRESS"
	EventFinalVotingResult EventType = "FINAL_VOTING_RESULT"
	EventLiarGuessResult   EventType = "LIAR_GUESS_RESULT"
	EventGameEnd           EventType = "GAME_END"
	EventScoreboard        EventType = "SCOREBOARD"
	EventPlayerJoined      EventType = "PLAYER_JOINED"
	EventPlayerReconnected EventType = "PLAYER_RECONNECTED"
	EventPlayerLeft        EventType = "PLAYER_LEFT"
	EventHintSubmitted     EventType = "HINT_SUBMITTED"
	EventStartTimeExtended EventType = "START_TIME_EXTENDED"
)

// Event 广播给客户端的实时事件
//
// 单一封包结构：type 为判别字段，data 为对应类型的负载。
type Event struct {
	SchemaVersion int         `json:"schemaVersion"`
	Type          EventType   `json:"type"`
	SessionID     string      `json:"sessionId"`
	Seq           uint64      `json:"seq"`
	Timestamp     int64       `json:"timestamp"` // unix毫秒
	Data          interface{} `json:"data"`
}

// PhaseChangePayload 阶段变更
type PhaseChangePayload struct {
	Phase    GamePhase `json:"phase"`
	PhaseSeq uint64    `json:"phaseSeq"`
	Round    int       `json:"round"`
	Deadline int64     `json:"deadline,omitempty"` // unix毫秒，0表示无截止
}

// CurrentTurnPayload 当前发言人
type CurrentTurnPayload struct {
	PlayerID  int64  `json:"playerId"`
	Nickname  string `json:"nickname"`
	TurnIndex int    `json:"turnIndex"`
}

// HintSubmittedPayload 发言内容
type HintSubmittedPayload struct {
	PlayerID int64  `json:"playerId"`
	Text     string `json:"text"`
}

// DefenseStartPayload 辩护开始
type DefenseStartPayload struct {
	AccusedID int64 `json:"accusedId"`
	Deadline  int64 `json:"deadline,omitempty"`
}

// DefenseSubmissionPayload 辩护内容
type DefenseSubmissionPayload struct {
	AccusedID int64  `json:"accusedId"`
	Text      string `json:"text"`
}

// VoteKind 投票类别
type VoteKind string

const (
	VoteKindAccusation VoteKind = "ACCUSATION"
	VoteKindSurvival   VoteKind = "SURVIVAL"
)

// VotingStartPayload 投票开始
type VotingStartPayload struct {
	Kind     VoteKind `json:"kind"`
	Deadline int64    `json:"deadline,omitempty"`
}

// VotingProgressPayload 投票进度（不泄露投票内容）
type VotingProgressPayload struct {
	Kind     VoteKind `json:"kind"`
	VotedIDs []int64  `json:"votedIds"`
	Eligible int      `json:"eligible"`
}

// FinalVotingResultPayload 终投结果
type FinalVotingResultPayload struct {
	AccusedID int64 `json:"accusedId"`
	Execute   int   `json:"execute"`
	Spare     int   `json:"spare"`
	Executed  bool  `json:"executed"`
}

// LiarGuessResultPayload 猜词结果
type LiarGuessResultPayload struct {
	LiarID  int64  `json:"liarId"`
	Guess   string `json:"guess"`
	Correct bool   `json:"correct"`
}

// GameEndPayload 游戏结束
type GameEndPayload struct {
	Winner      Winner       `json:"winner"`
	LiarIDs     []int64      `json:"liarIds"`
	Citizens    []int64      `json:"citizens"`
	Scoreboard  []ScoreEntry `json:"scoreboard"`
	Subject     string       `json:"subject"`
	CitizenWord string       `json:"citizenWord"`
	Rounds      int          `json:"rounds"`
}

// ScoreEntry 记分板条目
type ScoreEntry struct {
	PlayerID int64  `json:"playerId"`
	Nickname string `json:"nickname"`
	Score    int    `json:"score"`
	Alive    bool   `json:"alive"`
}

// ScoreboardPayload 记分板
type ScoreboardPayload struct {
	Entries []ScoreEntry `json:"entries"`
}

// PlayerJoinedPayload 玩家加入
type PlayerJoinedPayload struct {
	PlayerID int64  `json:"playerId"`
	Nickname string `json:"nickname"`
	IsOwner  bool   `json:"isOwner"`
}

// PlayerReconnectedPayload 玩家重连
type PlayerReconnectedPayload struct {
	PlayerID int64  `json:"playerId"`
	Nickname string `json:"nickname"`
}

// PlayerLeftPayload 玩家离开
type PlayerLeftPayload struct {
	PlayerID   int64 `json:"playerId"`
	NewOwnerID int64 `json:"newOwnerId,omitempty"`
}

// StartTimeExtendedPayload 开局时间延长
type StartTimeExtendedPayload struct {
	Deadline int64 `json:"deadline"`
}

// EventSink 事件出口，由网关实现
//
// Publish 必须是非阻塞的：调用方在会话锁内按序投递，
// 网关负责按到达顺序逐个下发。
type EventSink interface {
	Publish(sessionID string, event *Event)
}

// NopSink 丢弃所有事件的出口，测试用
type NopSink struct{}

// Publish 实现 EventSink
func (NopSink) Publish(string, *Event) {}

// emit 构造并投递事件（须持锁调用，保证会话内事件全序）
func (s *Session) emit(typ EventType, data interface{}) {
	s.eventSeq++
	ev := &Event{
		SchemaVersion: EventSchemaVersion,
		Type:          typ,
		SessionID:     s.ID,
		Seq:           s.eventSeq,
		Timestamp:     s.clock.Now().UnixMilli(),
		Data:          data,
	}
	if s.sink != nil {
		s.sink.Publish(s.ID, ev)
	}
}
