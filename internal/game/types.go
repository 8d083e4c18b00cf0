package game

import (
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Player 会话中的玩家
type Player struct {
	ID        int64       `json:"id"`
	Nickname  string      `json:"nickname"`
	Role      Role        `json:"-"` // 真实身份，永不广播
	ShownRole Role        `json:"-"` // 分配时告知玩家的身份
	Word      string      `json:"-"` // 分配时告知玩家的词语
	Alive     bool        `json:"alive"`
	Connected bool        `json:"connected"`
	IsOwner   bool        `json:"is_owner"`
	State     PlayerState `json:"state"`
	Score     int         `json:"score"`
	JoinedAt  time.Time   `json:"joined_at"`
}

// Vote 指控投票记录
type Vote struct {
	VoterID  int64  `json:"voter_id"`
	TargetID int64  `json:"target_id"`
	Seq      uint64 `json:"seq"` // 会话内单调递增，改票会刷新
}

// SurvivalVote 处决/赦免投票记录
type SurvivalVote struct {
	VoterID int64  `json:"voter_id"`
	Execute bool   `json:"execute"`
	Seq     uint64 `json:"seq"`
}

// Round 单个回合的阶段数据（进入新回合时整体重置）
type Round struct {
	Number          int                     `json:"number"`
	TurnOrder       []int64                 `json:"turn_order"`
	CurrentTurn     int                     `json:"current_turn"`
	Hints           map[int64]string        `json:"hints"`
	AccusationVotes map[int64]*Vote         `json:"accusation_votes"`
	AccusedID       int64                   `json:"accused_id"`
	Defense         string                  `json:"defense"`
	DefenseGiven    bool                    `json:"defense_given"`
	SurvivalVotes   map[int64]*SurvivalVote `json:"survival_votes"`
	SurvivalResult  *SurvivalResult         `json:"survival_result,omitempty"`
	Guess           string                  `json:"guess"`
	Outcome         RoundOutcome            `json:"outcome"`
}

// SurvivalResult 终投结果
type SurvivalResult struct {
	AccusedID int64 `json:"accused_id"`
	Execute   int   `json:"execute"`
	Spare     int   `json:"spare"`
	Executed  bool  `json:"executed"`
}

// newRound 创建新回合
func newRound(number int, turnOrder []int64) *Round {
	return &Round{
		Number:          number,
		TurnOrder:       turnOrder,
		Hints:           make(map[int64]string),
		AccusationVotes: make(map[int64]*Vote),
		SurvivalVotes:   make(map[int64]*SurvivalVote),
	}
}

// WordPair 一局游戏使用的主题与词语
type WordPair struct {
	Subject     string `json:"subject"`
	CitizenWord string `json:"citizen_word"`
	LiarWord    string `json:"liar_word"`
}

// PhaseDurations 各阶段时长
type PhaseDurations struct {
	Speech       time.Duration
	Voting       time.Duration
	Defense      time.Duration
	SurvivalVote time.Duration
	Guess        time.Duration
}

// SessionConfig 会话规则配置
type SessionConfig struct {
	Title           string
	PasswordHash    string
	Rounds          int
	LiarCount       int
	Mode            GameMode
	TargetScore     int
	MinPlayers      int
	MaxPlayers      int
	CanChangeVote   bool
	GuessOnCatch    bool
	GuessSimilarity float64
	Durations       PhaseDurations
	Scores          ScoreTable
}

// Session 一个游戏会话（房间）
//
// 所有修改都在 mu 保护下串行执行，事件在持锁期间按序写入网关。
type Session struct {
	mu sync.Mutex

	ID         string
	RoomNumber int
	OwnerID    int64
	Config     *SessionConfig

	Phase    GamePhase
	PhaseSeq uint64    // 每次进入新阶段递增，用于丢弃过期定时器回调
	Deadline time.Time // 当前阶段截止时间，零值表示无截止

	Players      []*Player // 按加入顺序
	Round        *Round
	RoundsPlayed int

	Words         WordPair
	Winner        Winner
	baseTurnOrder []int64 // 开局时洗出的发言顺序，后续回合过滤存活者复用

	StartDeadline time.Time // 等待阶段的开局截止
	Extended      bool      // 开局截止是否已延长过

	CreatedAt    time.Time
	LastActiveAt time.Time
	StartedAt    time.Time

	eventSeq uint64
	voteSeq  uint64

	rng       *rand.Rand
	clock     Clock
	sink      EventSink
	picker    SubjectPicker
	persister StatePersister
	history   HistoryStore
	logger    *zap.Logger

	closed bool
}

// playerByID 查找玩家（须持锁调用）
func (s *Session) playerByID(id int64) *Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// alivePlayers 存活玩家列表（须持锁调用）
func (s *Session) alivePlayers() []*Player {
	var alive []*Player
	for _, p := range s.Players {
		if p.Alive {
			alive = append(alive, p)
		}
	}
	return alive
}

// aliveCount 按身份统计存活人数（须持锁调用）
func (s *Session) aliveCount() (citizens, liars int) {
	for _, p := range s.Players {
		if !p.Alive {
			continue
		}
		if p.Role == RoleLiar {
			liars++
		} else {
			citizens++
		}
	}
	return citizens, liars
}

// touch 刷新活跃时间（须持锁调用）
func (s *Session) touch() {
	s.LastActiveAt = s.clock.Now()
}
