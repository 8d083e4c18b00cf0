package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func scoreTestPlayers() []*Player {
	return []*Player{
		{ID: 1, Nickname: "甲", Role: RoleCitizen, Alive: true},
		{ID: 2, Nickname: "乙", Role: RoleCitizen, Alive: true},
		{ID: 3, Nickname: "丙", Role: RoleLiar, Alive: true},
		{ID: 4, Nickname: "丁", Role: RoleCitizen, Alive: true},
	}
}

func TestScoreRound_LiarCaught(t *testing.T) {
	players := scoreTestPlayers()
	round := newRound(1, []int64{1, 2, 3, 4})
	round.AccusedID = 3
	round.AccusationVotes = map[int64]*Vote{
		1: {VoterID: 1, TargetID: 3, Seq: 1},
		2: {VoterID: 2, TargetID: 3, Seq: 2},
		4: {VoterID: 4, TargetID: 1, Seq: 3},
	}

	deltas := ScoreRound(DefaultScoreTable(), OutcomeLiarCaught, players, round)

	assert.Equal(t, 2, deltas[1])
	assert.Equal(t, 2, deltas[2])
	// 投错目标的平民不得分
	assert.Equal(t, 0, deltas[4])
	assert.Equal(t, 0, deltas[3])
}

func TestScoreRound_LiarGuessedWord(t *testing.T) {
	players := scoreTestPlayers()
	round := newRound(1, []int64{1, 2, 3, 4})
	round.AccusedID = 3

	deltas := ScoreRound(DefaultScoreTable(), OutcomeLiarGuessedWord, players, round)

	assert.Equal(t, 3, deltas[3])
	assert.Equal(t, 0, deltas[1])
}

func TestScoreRound_InnocentExecuted(t *testing.T) {
	players := scoreTestPlayers()
	// 玩家1被误杀
	players[0].Alive = false
	round := newRound(1, []int64{1, 2, 3, 4})
	round.AccusedID = 1
	round.AccusationVotes = map[int64]*Vote{
		2: {VoterID: 2, TargetID: 1, Seq: 1},
		3: {VoterID: 3, TargetID: 1, Seq: 2},
		4: {VoterID: 4, TargetID: 3, Seq: 3},
	}

	deltas := ScoreRound(DefaultScoreTable(), OutcomeInnocentExecuted, players, round)

	// 存活骗子拿大分
	assert.Equal(t, 6, deltas[3])
	// 投给被误杀者的平民扣分
	assert.Equal(t, -2, deltas[2])
	// 仍投中骗子的平民获得补偿
	assert.Equal(t, 2, deltas[4])
	assert.Equal(t, 0, deltas[1])
}

func TestScoreRound_AccusedSpared(t *testing.T) {
	players := scoreTestPlayers()
	round := newRound(1, []int64{1, 2, 3, 4})
	round.AccusedID = 3

	deltas := ScoreRound(DefaultScoreTable(), OutcomeAccusedSpared, players, round)
	assert.Equal(t, 2, deltas[3])

	deltas = ScoreRound(DefaultScoreTable(), OutcomeNoAccusation, players, round)
	assert.Equal(t, 2, deltas[3])
}

func TestCheckEndConditions(t *testing.T) {
	players := scoreTestPlayers()

	// 游戏继续
	assert.Equal(t, WinnerNone, CheckEndConditions(players, 1, 3, 0))

	// 骗子出局，平民获胜
	players[2].Alive = false
	assert.Equal(t, WinnerCitizens, CheckEndConditions(players, 1, 3, 0))
	players[2].Alive = true

	// 骗子与平民持平，骗子获胜
	players[0].Alive = false
	players[1].Alive = false
	assert.Equal(t, WinnerLiars, CheckEndConditions(players, 1, 3, 0))
	players[0].Alive = true
	players[1].Alive = true

	// 回合耗尽，骗子获胜
	assert.Equal(t, WinnerLiars, CheckEndConditions(players, 3, 3, 0))
}

func TestCheckEndConditions_TargetScore(t *testing.T) {
	players := scoreTestPlayers()

	players[0].Score = 10
	assert.Equal(t, WinnerCitizens, CheckEndConditions(players, 1, 3, 10))

	players[0].Score = 0
	players[2].Score = 10
	assert.Equal(t, WinnerLiars, CheckEndConditions(players, 1, 3, 10))
}
