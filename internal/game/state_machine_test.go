package game

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock 手动推进的时钟
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []fakeTimer
}

type fakeTimer struct {
	at time.Time
	f  func()
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) *time.Timer {
	c.mu.Lock()
	c.timers = append(c.timers, fakeTimer{at: c.now.Add(d), f: f})
	c.mu.Unlock()
	t := time.NewTimer(24 * time.Hour)
	t.Stop()
	return t
}

// fire 执行所有已到期的回调，过期回调由阶段序号守卫丢弃
func (c *fakeClock) fire() {
	c.mu.Lock()
	var due []func()
	var rest []fakeTimer
	for _, t := range c.timers {
		if !t.at.After(c.now) {
			due = append(due, t.f)
		} else {
			rest = append(rest, t)
		}
	}
	c.timers = rest
	c.mu.Unlock()
	for _, f := range due {
		f()
	}
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// captureSink 记录事件顺序
type captureSink struct {
	mu     sync.Mutex
	events []*Event
}

func (s *captureSink) Publish(sessionID string, event *Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *captureSink) ofType(typ EventType) []*Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Event
	for _, e := range s.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func (s *captureSink) last(typ EventType) *Event {
	evs := s.ofType(typ)
	if len(evs) == 0 {
		return nil
	}
	return evs[len(evs)-1]
}

func sessionTestConfig() *SessionConfig {
	return &SessionConfig{
		Title:           "测试房间",
		Rounds:          3,
		LiarCount:       1,
		Mode:            ModeLiarsKnow,
		TargetScore:     0,
		MinPlayers:      3,
		MaxPlayers:      8,
		CanChangeVote:   true,
		GuessOnCatch:    false,
		GuessSimilarity: 0.7,
		Durations: PhaseDurations{
			Speech:       60 * time.Second,
			Voting:       60 * time.Second,
			Defense:      45 * time.Second,
			SurvivalVote: 30 * time.Second,
			Guess:        30 * time.Second,
		},
		Scores: DefaultScoreTable(),
	}
}

// newTestSession 创建已有 n 名在线玩家的等待中会话
func newTestSession(t *testing.T, n int, cfg *SessionConfig) (*Session, *fakeClock, *captureSink) {
	t.Helper()
	fc := newFakeClock()
	sink := &captureSink{}
	deps := SessionDeps{
		Clock:  fc,
		Sink:   sink,
		Picker: fixedPicker{pair: testPair},
		Rng:    rand.New(rand.NewSource(42)),
	}
	owner := &Player{ID: 1, Nickname: "玩家1"}
	s := NewSession("test-session", 1, owner, cfg, deps, 0)
	for i := 2; i <= n; i++ {
		require.NoError(t, s.Join(int64(i), "玩家"+string(rune('0'+i))))
	}
	for i := 1; i <= n; i++ {
		s.SetConnected(int64(i), true)
	}
	return s, fc, sink
}

type fixedPicker struct {
	pair WordPair
}

func (p fixedPicker) PickWordPair(ctx context.Context) (WordPair, error) {
	return p.pair, nil
}

// findLiar 返回骗子与平民列表
func findLiar(s *Session) (liar *Player, citizens []*Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.Players {
		if p.Role == RoleLiar {
			liar = p
		} else {
			citizens = append(citizens, p)
		}
	}
	return liar, citizens
}

// speakAll 按发言顺序让所有存活玩家完成发言
func speakAll(t *testing.T, s *Session) {
	t.Helper()
	for s.CurrentPhase() == PhaseSpeech {
		s.mu.Lock()
		sp := s.currentSpeaker()
		s.mu.Unlock()
		require.NotNil(t, sp)
		require.NoError(t, s.SubmitHint(sp.ID, "我的发言"))
	}
}

func TestJoinLeave_Waiting(t *testing.T) {
	s, _, sink := newTestSession(t, 3, sessionTestConfig())

	joined := sink.ofType(EventPlayerJoined)
	require.Len(t, joined, 2)
	for _, ev := range joined {
		assert.False(t, ev.Data.(PlayerJoinedPayload).IsOwner)
	}

	// 已在座玩家重复加入视为重连，不产生新座次
	require.NoError(t, s.Join(2, "重复"))
	assert.Len(t, sink.ofType(EventPlayerJoined), 2)
	assert.Len(t, sink.ofType(EventPlayerReconnected), 1)

	empty, err := s.Leave(3)
	require.NoError(t, err)
	assert.False(t, empty)
	assert.Len(t, sink.ofType(EventPlayerLeft), 1)
}

func TestJoin_RoomFull(t *testing.T) {
	cfg := sessionTestConfig()
	cfg.MaxPlayers = 3
	s, _, _ := newTestSession(t, 3, cfg)

	err := s.Join(99, "迟到者")
	assert.Error(t, err)
}

func TestStartGame_Validation(t *testing.T) {
	s, _, _ := newTestSession(t, 3, sessionTestConfig())
	ctx := context.Background()

	// 非房主不能开始
	err := s.StartGame(ctx, 2)
	assert.Error(t, err)

	require.NoError(t, s.StartGame(ctx, 1))
	assert.Equal(t, PhaseSpeech, s.CurrentPhase())

	// 重复开始被拒绝
	err = s.StartGame(ctx, 1)
	assert.Error(t, err)
}

func TestStartGame_NotEnoughPlayers(t *testing.T) {
	cfg := sessionTestConfig()
	cfg.MinPlayers = 4
	s, _, _ := newTestSession(t, 3, cfg)

	err := s.StartGame(context.Background(), 1)
	assert.Error(t, err)
}

func TestFullGame_LiarCaught(t *testing.T) {
	s, _, sink := newTestSession(t, 4, sessionTestConfig())
	require.NoError(t, s.StartGame(context.Background(), 1))

	liar, citizens := findLiar(s)
	require.NotNil(t, liar)
	require.Len(t, citizens, 3)

	speakAll(t, s)
	assert.Equal(t, PhaseVotingForLiar, s.CurrentPhase())

	// 全员投骗子
	for _, c := range citizens {
		require.NoError(t, s.CastAccusationVote(c.ID, liar.ID))
	}
	target := citizens[0]
	require.NoError(t, s.CastAccusationVote(liar.ID, target.ID))

	// 齐票后自动进入辩护阶段
	assert.Equal(t, PhaseDefending, s.CurrentPhase())
	require.NoError(t, s.SubmitDefense(liar.ID, "我不是骗子"))
	assert.Equal(t, PhaseVotingForSurvival, s.CurrentPhase())

	// 被指控者不能参与终投
	err := s.CastSurvivalVote(liar.ID, false)
	assert.Error(t, err)

	for _, c := range citizens {
		require.NoError(t, s.CastSurvivalVote(c.ID, true))
	}

	// 骗子出局，平民获胜
	assert.Equal(t, PhaseGameOver, s.CurrentPhase())
	end := sink.last(EventGameEnd)
	require.NotNil(t, end)
	payload := end.Data.(GameEndPayload)
	assert.Equal(t, WinnerCitizens, payload.Winner)
	assert.Equal(t, []int64{liar.ID}, payload.LiarIDs)
	assert.Equal(t, "苹果", payload.CitizenWord)

	// 终局事件自带平民名单和记分板
	assert.Len(t, payload.Citizens, len(citizens))
	assert.NotContains(t, payload.Citizens, liar.ID)
	require.Len(t, payload.Scoreboard, 4)
	for _, e := range payload.Scoreboard {
		if e.PlayerID != liar.ID {
			assert.Equal(t, 2, e.Score)
		}
	}

	// 投中骗子的平民得分
	board := sink.last(EventScoreboard)
	require.NotNil(t, board)
	for _, e := range board.Data.(ScoreboardPayload).Entries {
		if e.PlayerID != liar.ID {
			assert.Equal(t, 2, e.Score)
		}
	}
}

func TestFullGame_GuessOnCatch(t *testing.T) {
	cfg := sessionTestConfig()
	cfg.GuessOnCatch = true
	s, _, sink := newTestSession(t, 4, cfg)
	require.NoError(t, s.StartGame(context.Background(), 1))

	liar, citizens := findLiar(s)
	speakAll(t, s)
	for _, c := range citizens {
		require.NoError(t, s.CastAccusationVote(c.ID, liar.ID))
	}
	require.NoError(t, s.CastAccusationVote(liar.ID, citizens[0].ID))
	require.NoError(t, s.SubmitDefense(liar.ID, "冤枉"))
	for _, c := range citizens {
		require.NoError(t, s.CastSurvivalVote(c.ID, true))
	}

	// 被抓的骗子进入猜词阶段
	assert.Equal(t, PhaseGuessingWord, s.CurrentPhase())

	// 平民不能猜词
	err := s.SubmitGuess(citizens[0].ID, "苹果")
	assert.Error(t, err)

	require.NoError(t, s.SubmitGuess(liar.ID, "苹果"))
	assert.Equal(t, PhaseGameOver, s.CurrentPhase())

	end := sink.last(EventGameEnd)
	require.NotNil(t, end)
	assert.Equal(t, WinnerLiars, end.Data.(GameEndPayload).Winner)

	guess := sink.last(EventLiarGuessResult)
	require.NotNil(t, guess)
	assert.True(t, guess.Data.(LiarGuessResultPayload).Correct)
}

func TestAccusedSpared_NextRound(t *testing.T) {
	s, _, _ := newTestSession(t, 4, sessionTestConfig())
	require.NoError(t, s.StartGame(context.Background(), 1))

	liar, citizens := findLiar(s)
	speakAll(t, s)
	for _, c := range citizens {
		require.NoError(t, s.CastAccusationVote(c.ID, liar.ID))
	}
	require.NoError(t, s.CastAccusationVote(liar.ID, citizens[0].ID))
	require.NoError(t, s.SubmitDefense(liar.ID, "相信我"))

	// 全员赦免，进入下一回合
	for _, c := range citizens {
		require.NoError(t, s.CastSurvivalVote(c.ID, false))
	}
	assert.Equal(t, PhaseSpeech, s.CurrentPhase())

	s.mu.Lock()
	assert.Equal(t, 2, s.Round.Number)
	assert.True(t, s.playerByID(liar.ID).Alive)
	// 骗子度过回合得分
	assert.Equal(t, 2, s.playerByID(liar.ID).Score)
	s.mu.Unlock()
}

func TestInnocentExecuted(t *testing.T) {
	s, _, _ := newTestSession(t, 5, sessionTestConfig())
	require.NoError(t, s.StartGame(context.Background(), 1))

	liar, citizens := findLiar(s)
	victim := citizens[0]
	speakAll(t, s)

	// 所有人投向无辜平民
	for _, p := range append(citizens[1:], liar) {
		require.NoError(t, s.CastAccusationVote(p.ID, victim.ID))
	}
	require.NoError(t, s.CastAccusationVote(victim.ID, liar.ID))
	require.NoError(t, s.SubmitDefense(victim.ID, "我是平民"))

	for _, p := range append(citizens[1:], liar) {
		require.NoError(t, s.CastSurvivalVote(p.ID, true))
	}

	// 误杀平民，进入第二回合
	assert.Equal(t, PhaseSpeech, s.CurrentPhase())
	s.mu.Lock()
	assert.False(t, s.playerByID(victim.ID).Alive)
	assert.Equal(t, 6, s.playerByID(liar.ID).Score)
	// 新回合的发言顺序不含已淘汰者
	assert.NotContains(t, s.Round.TurnOrder, victim.ID)
	s.mu.Unlock()
}

func TestVoteRules(t *testing.T) {
	s, _, _ := newTestSession(t, 4, sessionTestConfig())
	require.NoError(t, s.StartGame(context.Background(), 1))
	speakAll(t, s)

	liar, citizens := findLiar(s)
	voter := citizens[0]

	// 不能投自己
	err := s.CastAccusationVote(voter.ID, voter.ID)
	assert.Error(t, err)

	// 允许改票
	require.NoError(t, s.CastAccusationVote(voter.ID, citizens[1].ID))
	require.NoError(t, s.CastAccusationVote(voter.ID, liar.ID))

	s.mu.Lock()
	v := s.Round.AccusationVotes[voter.ID]
	s.mu.Unlock()
	assert.Equal(t, liar.ID, v.TargetID)
}

func TestVoteChangeDenied(t *testing.T) {
	cfg := sessionTestConfig()
	cfg.CanChangeVote = false
	s, _, _ := newTestSession(t, 4, cfg)
	require.NoError(t, s.StartGame(context.Background(), 1))
	speakAll(t, s)

	_, citizens := findLiar(s)
	require.NoError(t, s.CastAccusationVote(citizens[0].ID, citizens[1].ID))
	err := s.CastAccusationVote(citizens[0].ID, citizens[2].ID)
	assert.Error(t, err)
}

func TestSpeech_TurnOrder(t *testing.T) {
	s, _, _ := newTestSession(t, 4, sessionTestConfig())
	require.NoError(t, s.StartGame(context.Background(), 1))

	s.mu.Lock()
	sp := s.currentSpeaker()
	var other int64
	for _, id := range s.Round.TurnOrder {
		if id != sp.ID {
			other = id
			break
		}
	}
	s.mu.Unlock()

	// 未轮到的人不能发言
	err := s.SubmitHint(other, "抢话")
	assert.Error(t, err)

	require.NoError(t, s.SubmitHint(sp.ID, "第一条发言"))
	// 不能重复发言
	err = s.SubmitHint(sp.ID, "再来一条")
	assert.Error(t, err)
}

func TestSpeechTimeout_AdvancesToVoting(t *testing.T) {
	s, fc, _ := newTestSession(t, 4, sessionTestConfig())
	require.NoError(t, s.StartGame(context.Background(), 1))
	assert.Equal(t, PhaseSpeech, s.CurrentPhase())

	fc.advance(61 * time.Second)
	fc.fire()
	assert.Equal(t, PhaseVotingForLiar, s.CurrentPhase())

	// 沉默者被记空发言
	s.mu.Lock()
	assert.Len(t, s.Round.Hints, 4)
	s.mu.Unlock()
}

func TestStaleTimer_Discarded(t *testing.T) {
	s, fc, _ := newTestSession(t, 4, sessionTestConfig())
	require.NoError(t, s.StartGame(context.Background(), 1))

	// 玩家手动发言完毕，阶段推进
	speakAll(t, s)
	assert.Equal(t, PhaseVotingForLiar, s.CurrentPhase())
	s.mu.Lock()
	seq := s.PhaseSeq
	s.mu.Unlock()

	// 过期的发言阶段定时器触发，不产生任何效果
	s.OnDeadline(seq - 1)
	assert.Equal(t, PhaseVotingForLiar, s.CurrentPhase())

	// 当前阶段的定时器正常生效
	fc.advance(2 * time.Minute)
	fc.fire()
	assert.NotEqual(t, PhaseVotingForLiar, s.CurrentPhase())
}

func TestVotingTimeout_NoVotes(t *testing.T) {
	s, fc, _ := newTestSession(t, 4, sessionTestConfig())
	require.NoError(t, s.StartGame(context.Background(), 1))
	speakAll(t, s)
	assert.Equal(t, PhaseVotingForLiar, s.CurrentPhase())

	// 无人投票超时：回合作废，骗子得分，进入下一回合
	fc.advance(2 * time.Minute)
	fc.fire()
	assert.Equal(t, PhaseSpeech, s.CurrentPhase())

	liar, _ := findLiar(s)
	s.mu.Lock()
	assert.Equal(t, 2, s.Round.Number)
	assert.Equal(t, 2, s.playerByID(liar.ID).Score)
	s.mu.Unlock()
}

func TestVotingTimeout_PartialVotes(t *testing.T) {
	s, fc, _ := newTestSession(t, 4, sessionTestConfig())
	require.NoError(t, s.StartGame(context.Background(), 1))
	speakAll(t, s)

	liar, citizens := findLiar(s)
	require.NoError(t, s.CastAccusationVote(citizens[0].ID, liar.ID))
	require.NoError(t, s.CastAccusationVote(citizens[1].ID, liar.ID))
	require.NoError(t, s.CastAccusationVote(liar.ID, citizens[0].ID))

	// 投票超时：按已有票数结算，票数领先者成为被告
	fc.advance(2 * time.Minute)
	fc.fire()
	assert.Equal(t, PhaseDefending, s.CurrentPhase())

	s.mu.Lock()
	assert.Equal(t, liar.ID, s.Round.AccusedID)
	s.mu.Unlock()
}

func TestGuessTimeout_CountsAsMiss(t *testing.T) {
	cfg := sessionTestConfig()
	cfg.GuessOnCatch = true
	s, fc, sink := newTestSession(t, 4, cfg)
	require.NoError(t, s.StartGame(context.Background(), 1))

	liar, citizens := findLiar(s)
	speakAll(t, s)
	for _, c := range citizens {
		require.NoError(t, s.CastAccusationVote(c.ID, liar.ID))
	}
	require.NoError(t, s.CastAccusationVote(liar.ID, citizens[0].ID))
	require.NoError(t, s.SubmitDefense(liar.ID, "……"))
	for _, c := range citizens {
		require.NoError(t, s.CastSurvivalVote(c.ID, true))
	}
	assert.Equal(t, PhaseGuessingWord, s.CurrentPhase())

	fc.advance(10 * time.Minute)
	fc.fire()
	assert.Equal(t, PhaseGameOver, s.CurrentPhase())

	end := sink.last(EventGameEnd)
	require.NotNil(t, end)
	assert.Equal(t, WinnerCitizens, end.Data.(GameEndPayload).Winner)
}

func TestDisconnected_ExcludedFromQuorum(t *testing.T) {
	s, _, _ := newTestSession(t, 4, sessionTestConfig())
	require.NoError(t, s.StartGame(context.Background(), 1))
	speakAll(t, s)

	liar, citizens := findLiar(s)
	s.SetConnected(citizens[2].ID, false)

	// 掉线者之外齐票即结算
	require.NoError(t, s.CastAccusationVote(citizens[0].ID, liar.ID))
	require.NoError(t, s.CastAccusationVote(citizens[1].ID, liar.ID))
	require.NoError(t, s.CastAccusationVote(liar.ID, citizens[0].ID))

	assert.Equal(t, PhaseDefending, s.CurrentPhase())
}

func TestDisconnect_LastVoterSettlesQuorum(t *testing.T) {
	s, _, _ := newTestSession(t, 4, sessionTestConfig())
	require.NoError(t, s.StartGame(context.Background(), 1))
	speakAll(t, s)

	liar, citizens := findLiar(s)
	require.NoError(t, s.CastAccusationVote(citizens[0].ID, liar.ID))
	require.NoError(t, s.CastAccusationVote(citizens[1].ID, liar.ID))
	require.NoError(t, s.CastAccusationVote(liar.ID, citizens[0].ID))
	assert.Equal(t, PhaseVotingForLiar, s.CurrentPhase())

	// 最后一名未投票者掉线，不等超时立即按剩余票结算
	s.SetConnected(citizens[2].ID, false)
	assert.Equal(t, PhaseDefending, s.CurrentPhase())

	s.mu.Lock()
	assert.Equal(t, liar.ID, s.Round.AccusedID)
	s.mu.Unlock()
}

func TestOwnerTransfer_OnLeave(t *testing.T) {
	s, _, sink := newTestSession(t, 3, sessionTestConfig())

	empty, err := s.Leave(1)
	require.NoError(t, err)
	assert.False(t, empty)

	left := sink.last(EventPlayerLeft)
	require.NotNil(t, left)
	// 房主转移给最早加入的玩家
	assert.Equal(t, int64(2), left.Data.(PlayerLeftPayload).NewOwnerID)

	s.mu.Lock()
	assert.Equal(t, int64(2), s.OwnerID)
	assert.True(t, s.playerByID(2).IsOwner)
	s.mu.Unlock()
}

func TestLeave_EmptyRoomCloses(t *testing.T) {
	s, _, _ := newTestSession(t, 3, sessionTestConfig())

	for _, id := range []int64{1, 2} {
		empty, err := s.Leave(id)
		require.NoError(t, err)
		assert.False(t, empty)
	}
	empty, err := s.Leave(3)
	require.NoError(t, err)
	assert.True(t, empty)
	assert.True(t, s.IsClosed())
}

func TestAccusedLeaves_TreatedAsExecuted(t *testing.T) {
	s, _, sink := newTestSession(t, 4, sessionTestConfig())
	require.NoError(t, s.StartGame(context.Background(), 1))

	liar, citizens := findLiar(s)
	speakAll(t, s)
	for _, c := range citizens {
		require.NoError(t, s.CastAccusationVote(c.ID, liar.ID))
	}
	require.NoError(t, s.CastAccusationVote(liar.ID, citizens[0].ID))
	assert.Equal(t, PhaseDefending, s.CurrentPhase())

	// 被指控的骗子退房，按被处决处理
	_, err := s.Leave(liar.ID)
	require.NoError(t, err)

	assert.Equal(t, PhaseGameOver, s.CurrentPhase())
	end := sink.last(EventGameEnd)
	require.NotNil(t, end)
	assert.Equal(t, WinnerCitizens, end.Data.(GameEndPayload).Winner)
}

func TestExtendStartDeadline(t *testing.T) {
	fc := newFakeClock()
	sink := &captureSink{}
	deps := SessionDeps{Clock: fc, Sink: sink, Picker: fixedPicker{pair: testPair}}
	owner := &Player{ID: 1, Nickname: "房主"}
	s := NewSession("test-extend", 1, owner, sessionTestConfig(), deps, 10*time.Minute)

	require.NoError(t, s.Join(2, "玩家2"))

	// 非房主不能延长
	err := s.ExtendStartDeadline(2, 5*time.Minute)
	assert.Error(t, err)

	fc.advance(4 * time.Minute)
	require.NoError(t, s.ExtendStartDeadline(1, 5*time.Minute))

	s.mu.Lock()
	remaining := s.Deadline.Sub(fc.Now())
	s.mu.Unlock()
	assert.Equal(t, 11*time.Minute, remaining)

	// 只能延长一次
	err = s.ExtendStartDeadline(1, 5*time.Minute)
	assert.Error(t, err)

	// 延长后旧定时器作废
	fc.advance(10 * time.Minute)
	fc.fire()
	assert.False(t, s.IsClosed())
}

func TestStartDeadline_Timeout(t *testing.T) {
	fc := newFakeClock()
	deps := SessionDeps{Clock: fc, Picker: fixedPicker{pair: testPair}}
	owner := &Player{ID: 1, Nickname: "房主"}
	s := NewSession("test-timeout", 1, owner, sessionTestConfig(), deps, 10*time.Minute)

	fc.advance(10 * time.Minute)
	fc.fire()

	assert.True(t, s.IsClosed())
	assert.Equal(t, PhaseGameOver, s.CurrentPhase())
}

func TestSnapshot_RoleSecrecy(t *testing.T) {
	cfg := sessionTestConfig()
	cfg.Mode = ModeLiarsDifferentWord
	s, _, _ := newTestSession(t, 4, cfg)
	require.NoError(t, s.StartGame(context.Background(), 1))

	liar, citizens := findLiar(s)

	// 不同词模式下骗子在快照中看到的是平民身份和骗子词
	snap := s.SnapshotFor(liar.ID)
	assert.Equal(t, RoleCitizen, snap.YourRole)
	assert.Equal(t, "香蕉", snap.YourWord)

	snap = s.SnapshotFor(citizens[0].ID)
	assert.Equal(t, RoleCitizen, snap.YourRole)
	assert.Equal(t, "苹果", snap.YourWord)

	// 玩家视图不携带身份字段
	for _, pv := range snap.Players {
		assert.NotZero(t, pv.ID)
	}
}

func TestSnapshot_CopiesRoundState(t *testing.T) {
	s, _, _ := newTestSession(t, 4, sessionTestConfig())
	require.NoError(t, s.StartGame(context.Background(), 1))

	s.mu.Lock()
	first := s.currentSpeaker()
	s.mu.Unlock()
	require.NoError(t, s.SubmitHint(first.ID, "第一句"))

	snap := s.SnapshotFor(first.ID)
	require.Len(t, snap.Hints, 1)

	// 快照在锁外序列化，必须持有拷贝而不是引用活动状态
	s.mu.Lock()
	next := s.currentSpeaker()
	s.mu.Unlock()
	require.NoError(t, s.SubmitHint(next.ID, "第二句"))

	assert.Len(t, snap.Hints, 1)
	assert.Equal(t, "第一句", snap.Hints[first.ID])
}

func TestRejoin_MidGame(t *testing.T) {
	s, _, sink := newTestSession(t, 4, sessionTestConfig())
	require.NoError(t, s.StartGame(context.Background(), 1))
	speakAll(t, s)
	assert.Equal(t, PhaseVotingForLiar, s.CurrentPhase())

	liar, citizens := findLiar(s)
	require.NoError(t, s.CastAccusationVote(citizens[0].ID, liar.ID))

	// 中途掉线后重新加入视为重连，座次和身份保持不变
	s.SetConnected(liar.ID, false)
	require.NoError(t, s.Join(liar.ID, liar.Nickname))

	s.mu.Lock()
	assert.True(t, s.playerByID(liar.ID).Connected)
	assert.Len(t, s.Players, 4)
	s.mu.Unlock()

	ev := sink.last(EventPlayerReconnected)
	require.NotNil(t, ev)
	assert.Equal(t, liar.ID, ev.Data.(PlayerReconnectedPayload).PlayerID)

	// 重连快照：当前阶段、截止时间、本人身份和已投名单，不带他人身份
	snap := s.SnapshotFor(liar.ID)
	assert.Equal(t, PhaseVotingForLiar, snap.Phase)
	assert.NotZero(t, snap.Deadline)
	assert.Equal(t, RoleLiar, snap.YourRole)
	assert.Equal(t, []int64{citizens[0].ID}, snap.VotedIDs)
}

func TestSnapshot_Waiting(t *testing.T) {
	s, _, _ := newTestSession(t, 3, sessionTestConfig())

	snap := s.SnapshotFor(1)
	assert.Equal(t, PhaseWaiting, snap.Phase)
	assert.Equal(t, Role(""), snap.YourRole)
	assert.Equal(t, "", snap.YourWord)
	assert.Len(t, snap.Players, 3)
}

func TestEventOrder_SeqMonotonic(t *testing.T) {
	s, _, sink := newTestSession(t, 4, sessionTestConfig())
	require.NoError(t, s.StartGame(context.Background(), 1))
	speakAll(t, s)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.NotEmpty(t, sink.events)
	var prev uint64
	for _, e := range sink.events {
		assert.Greater(t, e.Seq, prev)
		assert.Equal(t, EventSchemaVersion, e.SchemaVersion)
		assert.Equal(t, "test-session", e.SessionID)
		prev = e.Seq
	}
}
