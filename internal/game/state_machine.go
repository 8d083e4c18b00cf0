package game

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/wfunc/liar-game/internal/errors"
	"github.com/wfunc/liar-game/internal/models"
	"go.uber.org/zap"
)

// SessionDeps 会话依赖集合
type SessionDeps struct {
	Clock     Clock
	Sink      EventSink
	Picker    SubjectPicker
	Persister StatePersister
	History   HistoryStore
	Logger    *zap.Logger
	Rng       *rand.Rand
}

// NewSession 创建处于等待阶段的会话
func NewSession(id string, roomNumber int, owner *Player, cfg *SessionConfig, deps SessionDeps, startDeadline time.Duration) *Session {
	if deps.Clock == nil {
		deps.Clock = NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Sink == nil {
		deps.Sink = NopSink{}
	}
	if deps.Rng == nil {
		deps.Rng = rand.New(rand.NewSource(deps.Clock.Now().UnixNano()))
	}

	now := deps.Clock.Now()
	owner.IsOwner = true
	owner.Alive = true
	owner.JoinedAt = now

	s := &Session{
		ID:           id,
		RoomNumber:   roomNumber,
		OwnerID:      owner.ID,
		Config:       cfg,
		Phase:        PhaseWaiting,
		PhaseSeq:     1,
		Players:      []*Player{owner},
		CreatedAt:    now,
		LastActiveAt: now,
		rng:          deps.Rng,
		clock:        deps.Clock,
		sink:         deps.Sink,
		picker:       deps.Picker,
		persister:    deps.Persister,
		history:      deps.History,
		logger:       deps.Logger,
	}

	if startDeadline > 0 {
		s.scheduleDeadline(startDeadline)
		s.StartDeadline = s.Deadline
	}
	return s
}

// Join 加入房间
func (s *Session) Join(id int64, nickname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New(errors.ErrRoomNotFound)
	}
	if p := s.playerByID(id); p != nil {
		// 断线重连：座次、身份和得分保持不变，仅恢复在线状态
		p.Connected = true
		s.touch()
		s.emit(EventPlayerReconnected, PlayerReconnectedPayload{
			PlayerID: p.ID,
			Nickname: p.Nickname,
		})
		return nil
	}
	if s.Phase != PhaseWaiting {
		return errors.New(errors.ErrGameAlreadyStarted)
	}
	if len(s.Players) >= s.Config.MaxPlayers {
		return errors.New(errors.ErrRoomFull)
	}

	p := &Player{
		ID:       id,
		Nickname: nickname,
		Alive:    true,
		JoinedAt: s.clock.Now(),
	}
	s.Players = append(s.Players, p)
	s.touch()

	s.emit(EventPlayerJoined, PlayerJoinedPayload{
		PlayerID: p.ID,
		Nickname: p.Nickname,
		IsOwner:  p.ID == s.OwnerID,
	})
	return nil
}

// Leave 离开房间
//
// 返回 empty=true 表示房间已空，调用方应当将其从注册表移除。
func (s *Session) Leave(id int64) (empty bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.playerByID(id)
	if p == nil {
		return false, errors.New(errors.ErrPlayerNotInRoom)
	}
	s.touch()

	wasAccused := s.Round != nil && s.Round.AccusedID == id

	if s.Phase == PhaseWaiting {
		// 等待阶段直接移除
		for i, q := range s.Players {
			if q.ID == id {
				s.Players = append(s.Players[:i], s.Players[i+1:]...)
				break
			}
		}
	} else {
		// 对局中视作淘汰
		p.Alive = false
		p.Connected = false
		p.State = StateEliminated
	}

	var newOwnerID int64
	if id == s.OwnerID && len(s.Players) > 0 {
		// 房主转移给最早加入的玩家
		next := s.earliestJoined()
		if next != nil && next.ID != id {
			p.IsOwner = false
			next.IsOwner = true
			s.OwnerID = next.ID
			newOwnerID = next.ID
		}
	}

	s.emit(EventPlayerLeft, PlayerLeftPayload{PlayerID: id, NewOwnerID: newOwnerID})

	if s.activePlayerCount() == 0 {
		s.closeLocked("empty")
		return true, nil
	}

	if s.Phase != PhaseWaiting && !s.Phase.IsTerminal() {
		s.afterDepartureLocked(p, wasAccused)
	}
	return false, nil
}

// earliestJoined 最早加入的在座玩家（须持锁调用）
func (s *Session) earliestJoined() *Player {
	var earliest *Player
	for _, p := range s.Players {
		if s.Phase != PhaseWaiting && !p.Alive {
			continue
		}
		if earliest == nil || p.JoinedAt.Before(earliest.JoinedAt) {
			earliest = p
		}
	}
	return earliest
}

// activePlayerCount 仍在参与的玩家数（须持锁调用）
func (s *Session) activePlayerCount() int {
	if s.Phase == PhaseWaiting {
		return len(s.Players)
	}
	return len(s.alivePlayers())
}

// afterDepartureLocked 对局中有人退出后的推进（须持锁调用）
func (s *Session) afterDepartureLocked(p *Player, wasAccused bool) {
	if wasAccused && (s.Phase == PhaseDefending || s.Phase == PhaseVotingForSurvival || s.Phase == PhaseGuessingWord) {
		// 被指控者弃权离场，按被处决处理
		if p.Role == RoleLiar {
			if s.Phase == PhaseGuessingWord {
				s.emit(EventLiarGuessResult, LiarGuessResultPayload{LiarID: p.ID, Correct: false})
				s.finishRoundLocked(OutcomeLiarMissedWord)
				return
			}
			s.finishRoundLocked(OutcomeLiarCaught)
			return
		}
		s.finishRoundLocked(OutcomeInnocentExecuted)
		return
	}

	switch s.Phase {
	case PhaseSpeech:
		if sp := s.currentSpeaker(); sp == nil || sp.ID == p.ID {
			s.advanceTurnLocked()
			return
		}
	case PhaseVotingForLiar:
		delete(s.Round.AccusationVotes, p.ID)
		if s.accusationQuorumReached() {
			s.resolveAccusationLocked()
			return
		}
	case PhaseVotingForSurvival:
		delete(s.Round.SurvivalVotes, p.ID)
		if s.survivalQuorumReached() {
			s.resolveSurvivalLocked()
			return
		}
	}

	// 人数变化可能直接触发终局
	if w := CheckEndConditions(s.Players, s.RoundsPlayed, s.Config.Rounds, s.Config.TargetScore); w != WinnerNone {
		s.endGameLocked(w)
	}
}

// SetConnected 更新玩家连接状态（由网关调用）
func (s *Session) SetConnected(id int64, connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.playerByID(id)
	if p == nil {
		return
	}
	p.Connected = connected
	s.touch()

	if connected {
		return
	}

	switch s.Phase {
	case PhaseSpeech:
		// 掉线的当前发言人直接跳过
		if sp := s.currentSpeaker(); sp != nil && sp.ID == id {
			s.advanceTurnLocked()
		}
	case PhaseVotingForLiar:
		// 掉线者退出计票基数，剩余票可能已经齐了
		if s.accusationQuorumReached() {
			s.resolveAccusationLocked()
		}
	case PhaseVotingForSurvival:
		if s.survivalQuorumReached() {
			s.resolveSurvivalLocked()
		}
	}
}

// ExtendStartDeadline 延长开局截止时间（仅限房主，且只能延长一次）
func (s *Session) ExtendStartDeadline(actorID int64, extension time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Phase != PhaseWaiting {
		return errors.New(errors.ErrPhaseViolation)
	}
	if actorID != s.OwnerID {
		return errors.New(errors.ErrPermissionDenied, "只有房主可以延长开局时间")
	}
	if s.Extended {
		return errors.New(errors.ErrInvalidParam, "开局时间只能延长一次")
	}
	if s.Deadline.IsZero() {
		return errors.New(errors.ErrInvalidParam, "房间没有开局截止时间")
	}

	remaining := s.Deadline.Sub(s.clock.Now())
	if remaining < 0 {
		remaining = 0
	}
	// 旧定时器按过期序号丢弃
	s.PhaseSeq++
	s.scheduleDeadline(remaining + extension)
	s.StartDeadline = s.Deadline
	s.Extended = true
	s.touch()

	s.emit(EventStartTimeExtended, StartTimeExtendedPayload{Deadline: s.deadlineMilli()})
	return nil
}

// StartGame 开始游戏（仅限房主）
func (s *Session) StartGame(ctx context.Context, actorID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Phase != PhaseWaiting {
		return errors.New(errors.ErrGameAlreadyStarted)
	}
	if actorID != s.OwnerID {
		return errors.New(errors.ErrPermissionDenied, "只有房主可以开始游戏")
	}
	if len(s.Players) < s.Config.MinPlayers {
		return errors.Newf(errors.ErrNotEnoughPlayers, "至少需要 %d 名玩家", s.Config.MinPlayers)
	}
	if s.Config.LiarCount >= len(s.Players) {
		return errors.New(errors.ErrInvalidParam, "骗子数量不能大于等于玩家数量")
	}

	pair, err := s.picker.PickWordPair(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrDatabaseQuery, "抽取题目失败")
	}

	ids := make([]int64, len(s.Players))
	for i, p := range s.Players {
		ids[i] = p.ID
	}
	assignment, err := AssignRoles(ids, s.Config.LiarCount, s.Config.Mode, pair, s.rng)
	if err != nil {
		return err
	}

	s.Words = pair
	s.baseTurnOrder = assignment.TurnOrder
	for _, p := range s.Players {
		p.Role = assignment.Roles[p.ID]
		p.ShownRole = assignment.Shown[p.ID]
		p.Word = assignment.Words[p.ID]
		p.Alive = true
		p.Score = 0
	}
	s.StartedAt = s.clock.Now()
	s.RoundsPlayed = 0
	s.touch()

	s.logger.Info("游戏开始",
		zap.String("session_id", s.ID),
		zap.Int("room", s.RoomNumber),
		zap.Int("players", len(s.Players)),
		zap.Int("liars", s.Config.LiarCount),
		zap.String("mode", string(s.Config.Mode)),
	)

	s.beginRoundLocked(1)
	return nil
}

// beginRoundLocked 开始新回合（须持锁调用）
func (s *Session) beginRoundLocked(number int) {
	order := make([]int64, 0, len(s.baseTurnOrder))
	for _, id := range s.baseTurnOrder {
		if p := s.playerByID(id); p != nil && p.Alive {
			order = append(order, id)
		}
	}
	s.Round = newRound(number, order)

	for _, p := range s.alivePlayers() {
		p.State = StateWaitingForHint
	}

	s.enterPhaseLocked(PhaseSpeech, s.Config.Durations.Speech)
	s.emitCurrentTurnLocked()
}

// enterPhaseLocked 进入新阶段（须持锁调用）
func (s *Session) enterPhaseLocked(phase GamePhase, dur time.Duration) {
	if !CanTransition(s.Phase, phase) {
		s.logger.Error("非法的阶段流转",
			zap.String("session_id", s.ID),
			zap.String("from", string(s.Phase)),
			zap.String("to", string(phase)),
		)
		return
	}

	from := s.Phase
	s.Phase = phase
	s.PhaseSeq++
	s.scheduleDeadline(dur)

	round := 0
	if s.Round != nil {
		round = s.Round.Number
	}
	s.emit(EventPhaseChange, PhaseChangePayload{
		Phase:    phase,
		PhaseSeq: s.PhaseSeq,
		Round:    round,
		Deadline: s.deadlineMilli(),
	})

	s.logger.Info("阶段流转",
		zap.String("session_id", s.ID),
		zap.String("from", string(from)),
		zap.String("to", string(phase)),
		zap.Uint64("phase_seq", s.PhaseSeq),
	)

	s.saveStateLocked()
}

// currentSpeaker 当前发言人（须持锁调用）
func (s *Session) currentSpeaker() *Player {
	r := s.Round
	if r == nil || r.CurrentTurn >= len(r.TurnOrder) {
		return nil
	}
	return s.playerByID(r.TurnOrder[r.CurrentTurn])
}

// emitCurrentTurnLocked 广播当前发言人（须持锁调用）
func (s *Session) emitCurrentTurnLocked() {
	if sp := s.currentSpeaker(); sp != nil {
		s.emit(EventCurrentTurn, CurrentTurnPayload{
			PlayerID:  sp.ID,
			Nickname:  sp.Nickname,
			TurnIndex: s.Round.CurrentTurn,
		})
	}
}

// SubmitHint 提交发言
func (s *Session) SubmitHint(actorID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Phase != PhaseSpeech {
		return errors.New(errors.ErrPhaseViolation)
	}
	p := s.playerByID(actorID)
	if p == nil {
		return errors.New(errors.ErrPlayerNotInRoom)
	}
	if !p.Alive {
		return errors.New(errors.ErrPlayerEliminated)
	}
	if p.State == StateGaveHint {
		return errors.New(errors.ErrAlreadySpoke)
	}
	sp := s.currentSpeaker()
	if sp == nil || sp.ID != actorID {
		return errors.New(errors.ErrNotYourTurn)
	}

	s.Round.Hints[actorID] = text
	p.State = StateGaveHint
	s.touch()

	s.emit(EventHintSubmitted, HintSubmittedPayload{PlayerID: actorID, Text: text})
	s.advanceTurnLocked()
	return nil
}

// advanceTurnLocked 推进发言顺序（须持锁调用）
//
// 跳过已淘汰、已发言和掉线的玩家；全部发言完毕进入指控投票。
func (s *Session) advanceTurnLocked() {
	r := s.Round
	for r.CurrentTurn++; r.CurrentTurn < len(r.TurnOrder); r.CurrentTurn++ {
		p := s.playerByID(r.TurnOrder[r.CurrentTurn])
		if p == nil || !p.Alive || p.State == StateGaveHint || !p.Connected {
			continue
		}
		s.emitCurrentTurnLocked()
		return
	}
	s.startAccusationVotingLocked()
}

// startAccusationVotingLocked 进入指控投票（须持锁调用）
func (s *Session) startAccusationVotingLocked() {
	for _, p := range s.alivePlayers() {
		p.State = StateWaitingForVote
	}
	s.enterPhaseLocked(PhaseVotingForLiar, s.Config.Durations.Voting)
	s.emit(EventVotingStart, VotingStartPayload{Kind: VoteKindAccusation, Deadline: s.deadlineMilli()})
}

// CastAccusationVote 投出指控票
func (s *Session) CastAccusationVote(actorID, targetID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Phase != PhaseVotingForLiar {
		return errors.New(errors.ErrPhaseViolation)
	}
	voter := s.playerByID(actorID)
	if voter == nil {
		return errors.New(errors.ErrPlayerNotInRoom)
	}
	if !voter.Alive {
		return errors.New(errors.ErrPlayerEliminated)
	}
	target := s.playerByID(targetID)
	if target == nil || !target.Alive {
		return errors.New(errors.ErrInvalidParam, "投票目标不存在或已淘汰")
	}
	if actorID == targetID {
		return errors.New(errors.ErrSelfVote)
	}
	if _, voted := s.Round.AccusationVotes[actorID]; voted && !s.Config.CanChangeVote {
		return errors.New(errors.ErrVoteChangeDenied)
	}

	s.voteSeq++
	s.Round.AccusationVotes[actorID] = &Vote{VoterID: actorID, TargetID: targetID, Seq: s.voteSeq}
	voter.State = StateVoted
	s.touch()

	s.emitVotingProgressLocked(VoteKindAccusation)

	if s.accusationQuorumReached() {
		s.resolveAccusationLocked()
	}
	return nil
}

// accusationQuorumReached 指控投票是否齐票（须持锁调用）
//
// 掉线玩家不计入法定人数。
func (s *Session) accusationQuorumReached() bool {
	for _, p := range s.alivePlayers() {
		if !p.Connected {
			continue
		}
		if _, ok := s.Round.AccusationVotes[p.ID]; !ok {
			return false
		}
	}
	return len(s.Round.AccusationVotes) > 0
}

// emitVotingProgressLocked 广播投票进度（须持锁调用）
func (s *Session) emitVotingProgressLocked(kind VoteKind) {
	var voted []int64
	var eligible int
	switch kind {
	case VoteKindAccusation:
		for id := range s.Round.AccusationVotes {
			voted = append(voted, id)
		}
		eligible = len(s.alivePlayers())
	case VoteKindSurvival:
		for id := range s.Round.SurvivalVotes {
			voted = append(voted, id)
		}
		eligible = len(s.survivalEligibleLocked())
	}
	sort.Slice(voted, func(i, j int) bool { return voted[i] < voted[j] })
	s.emit(EventVotingProgress, VotingProgressPayload{Kind: kind, VotedIDs: voted, Eligible: eligible})
}

// resolveAccusationLocked 结算指控投票（须持锁调用）
func (s *Session) resolveAccusationLocked() {
	res, ok := ResolveAccusation(s.Round.AccusationVotes)
	if !ok {
		// 无人投票，回合直接结束
		s.finishRoundLocked(OutcomeNoAccusation)
		return
	}

	s.Round.AccusedID = res.TargetID
	if p := s.playerByID(res.TargetID); p != nil {
		p.State = StateAccused
	}

	s.enterPhaseLocked(PhaseDefending, s.Config.Durations.Defense)
	s.emit(EventDefenseStart, DefenseStartPayload{AccusedID: res.TargetID, Deadline: s.deadlineMilli()})
}

// SubmitDefense 提交辩护
func (s *Session) SubmitDefense(actorID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Phase != PhaseDefending {
		return errors.New(errors.ErrPhaseViolation)
	}
	if actorID != s.Round.AccusedID {
		return errors.New(errors.ErrNotAccused)
	}
	if s.Round.DefenseGiven {
		return errors.New(errors.ErrAlreadySpoke, "辩护已提交")
	}

	s.Round.Defense = text
	s.Round.DefenseGiven = true
	if p := s.playerByID(actorID); p != nil {
		p.State = StateDefended
	}
	s.touch()

	s.emit(EventDefenseSubmission, DefenseSubmissionPayload{AccusedID: actorID, Text: text})
	s.startSurvivalVotingLocked()
	return nil
}

// startSurvivalVotingLocked 进入终投阶段（须持锁调用）
func (s *Session) startSurvivalVotingLocked() {
	for _, p := range s.survivalEligibleLocked() {
		p.State = StateWaitingForVote
	}
	s.enterPhaseLocked(PhaseVotingForSurvival, s.Config.Durations.SurvivalVote)
	s.emit(EventVotingStart, VotingStartPayload{Kind: VoteKindSurvival, Deadline: s.deadlineMilli()})
}

// survivalEligibleLocked 终投合格投票者：被指控者之外的存活玩家（须持锁调用）
func (s *Session) survivalEligibleLocked() []*Player {
	var eligible []*Player
	for _, p := range s.alivePlayers() {
		if p.ID != s.Round.AccusedID {
			eligible = append(eligible, p)
		}
	}
	return eligible
}

// CastSurvivalVote 投出处决/赦免票
func (s *Session) CastSurvivalVote(actorID int64, execute bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Phase != PhaseVotingForSurvival {
		return errors.New(errors.ErrPhaseViolation)
	}
	voter := s.playerByID(actorID)
	if voter == nil {
		return errors.New(errors.ErrPlayerNotInRoom)
	}
	if !voter.Alive {
		return errors.New(errors.ErrPlayerEliminated)
	}
	if actorID == s.Round.AccusedID {
		return errors.New(errors.ErrInvalidParam, "被指控者不能参与终投")
	}
	if _, voted := s.Round.SurvivalVotes[actorID]; voted && !s.Config.CanChangeVote {
		return errors.New(errors.ErrVoteChangeDenied)
	}

	s.voteSeq++
	s.Round.SurvivalVotes[actorID] = &SurvivalVote{VoterID: actorID, Execute: execute, Seq: s.voteSeq}
	voter.State = StateFinalVoted
	s.touch()

	s.emitVotingProgressLocked(VoteKindSurvival)

	if s.survivalQuorumReached() {
		s.resolveSurvivalLocked()
	}
	return nil
}

// survivalQuorumReached 终投是否齐票（须持锁调用）
func (s *Session) survivalQuorumReached() bool {
	voted := 0
	for _, p := range s.survivalEligibleLocked() {
		if !p.Connected {
			continue
		}
		if _, ok := s.Round.SurvivalVotes[p.ID]; !ok {
			return false
		}
		voted++
	}
	return voted > 0
}

// resolveSurvivalLocked 结算终投（须持锁调用）
func (s *Session) resolveSurvivalLocked() {
	eligible := len(s.survivalEligibleLocked())
	execute, spare, executed := ResolveSurvival(s.Round.SurvivalVotes, eligible)

	s.Round.SurvivalResult = &SurvivalResult{
		AccusedID: s.Round.AccusedID,
		Execute:   execute,
		Spare:     spare,
		Executed:  executed,
	}
	s.emit(EventFinalVotingResult, FinalVotingResultPayload{
		AccusedID: s.Round.AccusedID,
		Execute:   execute,
		Spare:     spare,
		Executed:  executed,
	})

	accused := s.playerByID(s.Round.AccusedID)
	if !executed || accused == nil {
		s.finishRoundLocked(OutcomeAccusedSpared)
		return
	}

	accused.Alive = false
	accused.State = StateEliminated

	if accused.Role == RoleLiar {
		if s.Config.GuessOnCatch {
			// 被抓的骗子获得最后的猜词机会
			s.enterPhaseLocked(PhaseGuessingWord, s.Config.Durations.Guess)
			return
		}
		s.finishRoundLocked(OutcomeLiarCaught)
		return
	}
	s.finishRoundLocked(OutcomeInnocentExecuted)
}

// SubmitGuess 骗子猜词
func (s *Session) SubmitGuess(actorID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Phase != PhaseGuessingWord {
		return errors.New(errors.ErrPhaseViolation)
	}
	p := s.playerByID(actorID)
	if p == nil {
		return errors.New(errors.ErrPlayerNotInRoom)
	}
	if p.Role != RoleLiar || actorID != s.Round.AccusedID {
		return errors.New(errors.ErrNotLiar)
	}

	s.Round.Guess = text
	correct := ValidateGuess(text, s.Words.CitizenWord, s.Config.GuessSimilarity)
	s.touch()

	s.emit(EventLiarGuessResult, LiarGuessResultPayload{LiarID: actorID, Guess: text, Correct: correct})

	if correct {
		s.finishRoundLocked(OutcomeLiarGuessedWord)
	} else {
		s.finishRoundLocked(OutcomeLiarMissedWord)
	}
	return nil
}

// OnDeadline 阶段截止回调
//
// phaseSeq 与当前不一致说明阶段已被更快的路径推进，回调作废。
func (s *Session) OnDeadline(phaseSeq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || phaseSeq != s.PhaseSeq {
		return
	}

	s.logger.Info("阶段超时",
		zap.String("session_id", s.ID),
		zap.String("phase", string(s.Phase)),
		zap.Uint64("phase_seq", phaseSeq),
	)

	switch s.Phase {
	case PhaseWaiting:
		// 开局截止到期，房间解散
		s.enterPhaseLocked(PhaseGameOver, 0)
		s.closeLocked("timeout")

	case PhaseSpeech:
		// 沉默者记空发言
		for _, p := range s.alivePlayers() {
			if p.State != StateGaveHint {
				s.Round.Hints[p.ID] = ""
				p.State = StateGaveHint
			}
		}
		s.startAccusationVotingLocked()

	case PhaseVotingForLiar:
		s.resolveAccusationLocked()

	case PhaseDefending:
		// 辩护超时，按空辩护继续
		s.startSurvivalVotingLocked()

	case PhaseVotingForSurvival:
		s.resolveSurvivalLocked()

	case PhaseGuessingWord:
		// 超时视为猜错
		s.emit(EventLiarGuessResult, LiarGuessResultPayload{LiarID: s.Round.AccusedID, Correct: false})
		s.finishRoundLocked(OutcomeLiarMissedWord)
	}
}

// finishRoundLocked 结束回合并结算（须持锁调用）
func (s *Session) finishRoundLocked(outcome RoundOutcome) {
	s.Round.Outcome = outcome
	s.RoundsPlayed++

	deltas := ScoreRound(s.Config.Scores, outcome, s.Players, s.Round)
	for id, d := range deltas {
		if p := s.playerByID(id); p != nil {
			p.Score += d
		}
	}
	s.emitScoreboardLocked()

	if outcome == OutcomeLiarGuessedWord {
		s.endGameLocked(WinnerLiars)
		return
	}

	if w := CheckEndConditions(s.Players, s.RoundsPlayed, s.Config.Rounds, s.Config.TargetScore); w != WinnerNone {
		s.endGameLocked(w)
		return
	}

	s.beginRoundLocked(s.Round.Number + 1)
}

// emitScoreboardLocked 广播记分板（须持锁调用）
func (s *Session) emitScoreboardLocked() {
	entries := make([]ScoreEntry, 0, len(s.Players))
	for _, p := range s.Players {
		entries = append(entries, ScoreEntry{
			PlayerID: p.ID,
			Nickname: p.Nickname,
			Score:    p.Score,
			Alive:    p.Alive,
		})
	}
	s.emit(EventScoreboard, ScoreboardPayload{Entries: entries})
}

// endGameLocked 结束游戏（须持锁调用）
func (s *Session) endGameLocked(winner Winner) {
	s.Winner = winner

	var liarIDs, citizenIDs []int64
	scoreboard := make([]ScoreEntry, 0, len(s.Players))
	for _, p := range s.Players {
		if p.Role == RoleLiar {
			liarIDs = append(liarIDs, p.ID)
		} else {
			citizenIDs = append(citizenIDs, p.ID)
		}
		scoreboard = append(scoreboard, ScoreEntry{
			PlayerID: p.ID,
			Nickname: p.Nickname,
			Score:    p.Score,
			Alive:    p.Alive,
		})
	}
	sort.Slice(liarIDs, func(i, j int) bool { return liarIDs[i] < liarIDs[j] })
	sort.Slice(citizenIDs, func(i, j int) bool { return citizenIDs[i] < citizenIDs[j] })

	s.enterPhaseLocked(PhaseGameOver, 0)
	s.emit(EventGameEnd, GameEndPayload{
		Winner:      winner,
		LiarIDs:     liarIDs,
		Citizens:    citizenIDs,
		Scoreboard:  scoreboard,
		Subject:     s.Words.Subject,
		CitizenWord: s.Words.CitizenWord,
		Rounds:      s.RoundsPlayed,
	})
	s.emitScoreboardLocked()

	s.logger.Info("游戏结束",
		zap.String("session_id", s.ID),
		zap.String("winner", string(winner)),
		zap.Int("rounds", s.RoundsPlayed),
	)

	s.recordHistoryLocked(winner)
}

// recordHistoryLocked 写入对局历史（须持锁调用，尽力而为）
func (s *Session) recordHistoryLocked(winner Winner) {
	if s.history == nil {
		return
	}

	results := make(models.JSONMap, len(s.Players))
	for _, p := range s.Players {
		results[p.Nickname] = map[string]interface{}{
			"player_id": p.ID,
			"role":      string(p.Role),
			"score":     p.Score,
			"alive":     p.Alive,
		}
	}

	h := &models.GameHistory{
		SessionID:    s.ID,
		RoomNumber:   s.RoomNumber,
		Winner:       string(winner),
		Mode:         string(s.Config.Mode),
		Subject:      s.Words.Subject,
		CitizenWord:  s.Words.CitizenWord,
		RoundsPlayed: s.RoundsPlayed,
		PlayerCount:  len(s.Players),
		LiarCount:    s.Config.LiarCount,
		TargetScore:  s.Config.TargetScore,
		Results:      results,
		StartedAt:    s.StartedAt,
		EndedAt:      s.clock.Now(),
	}
	if err := s.history.RecordGameHistory(context.Background(), h); err != nil {
		s.logger.Error("对局历史写入失败", zap.String("session_id", s.ID), zap.Error(err))
	}
}

// closeLocked 关闭会话并记录终止原因（须持锁调用）
func (s *Session) closeLocked(reason string) {
	if s.closed {
		return
	}
	s.closed = true

	if s.history != nil {
		t := &models.RoomTermination{
			SessionID:  s.ID,
			RoomNumber: s.RoomNumber,
			Phase:      string(s.Phase),
			Reason:     reason,
			EndedAt:    s.clock.Now(),
		}
		if err := s.history.RecordTermination(context.Background(), t); err != nil {
			s.logger.Error("终止记录写入失败", zap.String("session_id", s.ID), zap.Error(err))
		}
	}
	if s.persister != nil {
		if err := s.persister.DeleteState(context.Background(), s.ID); err != nil {
			s.logger.Warn("状态清理失败", zap.String("session_id", s.ID), zap.Error(err))
		}
	}
}

// Close 关闭会话（由注册表调用）
func (s *Session) Close(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked(reason)
}

// IsClosed 会话是否已关闭
func (s *Session) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// LastActive 最近活跃时间
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.LastActiveAt
}

// CurrentPhase 当前阶段
func (s *Session) CurrentPhase() GamePhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Phase
}
