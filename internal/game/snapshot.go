package game

import "sort"

// PlayerView 玩家对外视图
type PlayerView struct {
	ID        int64       `json:"id"`
	Nickname  string      `json:"nickname"`
	Alive     bool        `json:"alive"`
	Connected bool        `json:"connected"`
	IsOwner   bool        `json:"is_owner"`
	State     PlayerState `json:"state"`
	Score     int         `json:"score"`
}

// Snapshot 针对单个玩家的会话快照
//
// YourRole 返回的是分配时告知玩家的身份，不是真实身份：
// LIARS_DIFFERENT_WORD 模式下骗子从快照中无法得知自己是骗子。
type Snapshot struct {
	SessionID     string            `json:"session_id"`
	RoomNumber    int               `json:"room_number"`
	OwnerID       int64             `json:"owner_id"`
	Phase         GamePhase         `json:"phase"`
	PhaseSeq      uint64            `json:"phase_seq"`
	Deadline      int64             `json:"deadline,omitempty"`
	Round         int               `json:"round"`
	TurnOrder     []int64           `json:"turn_order,omitempty"`
	CurrentTurnID int64             `json:"current_turn_id,omitempty"`
	Players       []PlayerView      `json:"players"`
	Hints         map[int64]string  `json:"hints,omitempty"`
	AccusedID     int64             `json:"accused_id,omitempty"`
	Defense       string            `json:"defense,omitempty"`
	VotedIDs      []int64           `json:"voted_ids,omitempty"`
	SurvivalVoted []int64           `json:"survival_voted,omitempty"`
	Survival      *SurvivalResult   `json:"survival,omitempty"`
	YourRole      Role              `json:"your_role,omitempty"`
	YourWord      string            `json:"your_word,omitempty"`
	Winner        Winner            `json:"winner,omitempty"`
	Scoreboard    []ScoreEntry      `json:"scoreboard"`
	Config        *SessionConfigDTO `json:"config"`
}

// SessionConfigDTO 暴露给客户端的配置子集
type SessionConfigDTO struct {
	Title         string   `json:"title"`
	HasPassword   bool     `json:"has_password"`
	Rounds        int      `json:"rounds"`
	LiarCount     int      `json:"liar_count"`
	Mode          GameMode `json:"mode"`
	TargetScore   int      `json:"target_score"`
	MinPlayers    int      `json:"min_players"`
	MaxPlayers    int      `json:"max_players"`
	CanChangeVote bool     `json:"can_change_vote"`
}

// SnapshotFor 生成指定玩家视角的快照
func (s *Session) SnapshotFor(viewerID int64) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &Snapshot{
		SessionID:  s.ID,
		RoomNumber: s.RoomNumber,
		OwnerID:    s.OwnerID,
		Phase:      s.Phase,
		PhaseSeq:   s.PhaseSeq,
		Deadline:   s.deadlineMilli(),
		Winner:     s.Winner,
		Config: &SessionConfigDTO{
			Title:         s.Config.Title,
			HasPassword:   s.Config.PasswordHash != "",
			Rounds:        s.Config.Rounds,
			LiarCount:     s.Config.LiarCount,
			Mode:          s.Config.Mode,
			TargetScore:   s.Config.TargetScore,
			MinPlayers:    s.Config.MinPlayers,
			MaxPlayers:    s.Config.MaxPlayers,
			CanChangeVote: s.Config.CanChangeVote,
		},
	}

	snap.Players = make([]PlayerView, 0, len(s.Players))
	snap.Scoreboard = make([]ScoreEntry, 0, len(s.Players))
	for _, p := range s.Players {
		snap.Players = append(snap.Players, PlayerView{
			ID:        p.ID,
			Nickname:  p.Nickname,
			Alive:     p.Alive,
			Connected: p.Connected,
			IsOwner:   p.IsOwner,
			State:     p.State,
			Score:     p.Score,
		})
		snap.Scoreboard = append(snap.Scoreboard, ScoreEntry{
			PlayerID: p.ID,
			Nickname: p.Nickname,
			Score:    p.Score,
			Alive:    p.Alive,
		})
	}

	if viewer := s.playerByID(viewerID); viewer != nil && s.Phase != PhaseWaiting {
		snap.YourRole = viewer.ShownRole
		snap.YourWord = viewer.Word
	}

	if s.Round != nil {
		snap.Round = s.Round.Number
		snap.TurnOrder = append([]int64(nil), s.Round.TurnOrder...)
		if sp := s.currentSpeaker(); sp != nil {
			snap.CurrentTurnID = sp.ID
		}
		// 锁外可能并发序列化，必须拷贝而不是引用活动状态
		if len(s.Round.Hints) > 0 {
			snap.Hints = make(map[int64]string, len(s.Round.Hints))
			for id, text := range s.Round.Hints {
				snap.Hints[id] = text
			}
		}
		snap.AccusedID = s.Round.AccusedID
		snap.Defense = s.Round.Defense
		if s.Round.SurvivalResult != nil {
			sr := *s.Round.SurvivalResult
			snap.Survival = &sr
		}

		for id := range s.Round.AccusationVotes {
			snap.VotedIDs = append(snap.VotedIDs, id)
		}
		sort.Slice(snap.VotedIDs, func(i, j int) bool { return snap.VotedIDs[i] < snap.VotedIDs[j] })
		for id := range s.Round.SurvivalVotes {
			snap.SurvivalVoted = append(snap.SurvivalVoted, id)
		}
		sort.Slice(snap.SurvivalVoted, func(i, j int) bool { return snap.SurvivalVoted[i] < snap.SurvivalVoted[j] })
	}

	// 终局之后真实身份与词语公开
	if s.Phase == PhaseGameOver {
		if viewer := s.playerByID(viewerID); viewer != nil {
			snap.YourRole = viewer.Role
		}
	}

	return snap
}
