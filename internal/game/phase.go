package game

// GamePhase 游戏阶段
type GamePhase string

const (
	PhaseWaiting           GamePhase = "WAITING_FOR_PLAYERS" // 等待玩家加入
	PhaseSpeech            GamePhase = "SPEECH"              // 轮流发言
	PhaseVotingForLiar     GamePhase = "VOTING_FOR_LIAR"     // 指控投票
	PhaseDefending         GamePhase = "DEFENDING"           // 被指控者辩护
	PhaseVotingForSurvival GamePhase = "VOTING_FOR_SURVIVAL" // 处决/赦免投票
	PhaseGuessingWord      GamePhase = "GUESSING_WORD"       // 骗子猜词
	PhaseGameOver          GamePhase = "GAME_OVER"           // 游戏结束
)

// phaseTransitions 合法的阶段流转表
var phaseTransitions = map[GamePhase][]GamePhase{
	PhaseWaiting:       {PhaseSpeech, PhaseGameOver},
	PhaseSpeech:        {PhaseVotingForLiar, PhaseGameOver},
	PhaseVotingForLiar: {PhaseDefending, PhaseSpeech, PhaseGameOver},
	// 被指控者中途退场时可以从辩护直接结算
	PhaseDefending:         {PhaseVotingForSurvival, PhaseSpeech, PhaseGameOver},
	PhaseVotingForSurvival: {PhaseGuessingWord, PhaseSpeech, PhaseGameOver},
	PhaseGuessingWord:      {PhaseSpeech, PhaseGameOver},
	PhaseGameOver:          {},
}

// CanTransition 判断阶段流转是否合法
func CanTransition(from, to GamePhase) bool {
	for _, next := range phaseTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal 是否为终止阶段
func (p GamePhase) IsTerminal() bool {
	return p == PhaseGameOver
}

// Role 玩家身份
type Role string

const (
	RoleCitizen Role = "CITIZEN" // 平民
	RoleLiar    Role = "LIAR"    // 骗子
)

// GameMode 玩法模式
type GameMode string

const (
	// ModeLiarsKnow 骗子知道自己的身份，只看得到主题
	ModeLiarsKnow GameMode = "LIARS_KNOW"
	// ModeLiarsDifferentWord 骗子拿到不同的词，不知道自己是骗子
	ModeLiarsDifferentWord GameMode = "LIARS_DIFFERENT_WORD"
)

// Winner 胜利阵营
type Winner string

const (
	WinnerNone     Winner = ""
	WinnerCitizens Winner = "CITIZENS"
	WinnerLiars    Winner = "LIARS"
)

// PlayerState 玩家子状态
type PlayerState string

const (
	StateWaitingForHint PlayerState = "WAITING_FOR_HINT" // 等待发言
	StateGaveHint       PlayerState = "GAVE_HINT"        // 已发言
	StateWaitingForVote PlayerState = "WAITING_FOR_VOTE" // 等待投票
	StateVoted          PlayerState = "VOTED"            // 已投票
	StateAccused        PlayerState = "ACCUSED"          // 被指控
	StateDefended       PlayerState = "DEFENDED"         // 已辩护
	StateFinalVoted     PlayerState = "FINAL_VOTED"      // 已终投
	StateEliminated     PlayerState = "ELIMINATED"       // 已淘汰
)

// RoundOutcome 回合结局
type RoundOutcome string

const (
	OutcomeNone             RoundOutcome = ""
	OutcomeLiarCaught       RoundOutcome = "LIAR_CAUGHT"       // 骗子被处决
	OutcomeInnocentExecuted RoundOutcome = "INNOCENT_EXECUTED" // 误杀平民
	OutcomeAccusedSpared    RoundOutcome = "ACCUSED_SPARED"    // 被指控者被赦免
	OutcomeNoAccusation     RoundOutcome = "NO_ACCUSATION"     // 无人被指控
	OutcomeLiarGuessedWord  RoundOutcome = "LIAR_GUESSED_WORD" // 骗子猜中词语
	OutcomeLiarMissedWord   RoundOutcome = "LIAR_MISSED_WORD"  // 骗子猜错词语
)
