package game

// ScoreTable 按回合结局发放的积分表
type ScoreTable struct {
	CitizenAccusedLiar int // 平民把票投给骗子（骗子被处决的回合）
	LiarSurvived       int // 骗子撑过一个回合
	LiarGuessedWord    int // 骗子猜中词语
	WrongExecutionLiar int // 误杀平民时每个存活骗子的奖励
	WrongVotePenalty   int // 投给被误杀平民的惩罚（负数）
	RightVoteBonus     int // 误杀回合中仍投中骗子的奖励
}

// DefaultScoreTable 默认积分表
func DefaultScoreTable() ScoreTable {
	return ScoreTable{
		CitizenAccusedLiar: 2,
		LiarSurvived:       2,
		LiarGuessedWord:    3,
		WrongExecutionLiar: 6,
		WrongVotePenalty:   -2,
		RightVoteBonus:     2,
	}
}

// ScoreRound 计算一个回合的积分增量
//
// 纯函数：只读取回合数据和玩家身份，返回玩家ID到增量的映射。
func ScoreRound(table ScoreTable, outcome RoundOutcome, players []*Player, round *Round) map[int64]int {
	deltas := make(map[int64]int)
	roles := make(map[int64]Role, len(players))
	for _, p := range players {
		roles[p.ID] = p.Role
	}

	votedLiar := func(voterID int64) bool {
		v, ok := round.AccusationVotes[voterID]
		return ok && roles[v.TargetID] == RoleLiar
	}

	switch outcome {
	case OutcomeLiarCaught, OutcomeLiarMissedWord:
		// 骗子被处决：投中骗子的平民得分
		for _, p := range players {
			if p.Role == RoleCitizen && votedLiar(p.ID) {
				deltas[p.ID] += table.CitizenAccusedLiar
			}
		}

	case OutcomeLiarGuessedWord:
		// 猜中词语的骗子翻盘
		for _, p := range players {
			if p.Role == RoleLiar && p.ID == round.AccusedID {
				deltas[p.ID] += table.LiarGuessedWord
			}
		}

	case OutcomeInnocentExecuted:
		// 误杀平民：存活骗子得大分，投错的平民扣分，投中骗子的平民补偿
		for _, p := range players {
			switch {
			case p.Role == RoleLiar && p.Alive:
				deltas[p.ID] += table.WrongExecutionLiar
			case p.Role == RoleCitizen && p.ID != round.AccusedID:
				if v, ok := round.AccusationVotes[p.ID]; ok {
					if v.TargetID == round.AccusedID {
						deltas[p.ID] += table.WrongVotePenalty
					} else if roles[v.TargetID] == RoleLiar {
						deltas[p.ID] += table.RightVoteBonus
					}
				}
			}
		}

	case OutcomeAccusedSpared, OutcomeNoAccusation:
		// 骗子安然度过回合
		for _, p := range players {
			if p.Role == RoleLiar && p.Alive {
				deltas[p.ID] += table.LiarSurvived
			}
		}
	}

	return deltas
}

// CheckEndConditions 判断游戏是否应当结束
//
// 返回胜利阵营；游戏继续时返回 WinnerNone。
func CheckEndConditions(players []*Player, roundsPlayed, totalRounds, targetScore int) Winner {
	var citizens, liars int
	for _, p := range players {
		if !p.Alive {
			continue
		}
		if p.Role == RoleLiar {
			liars++
		} else {
			citizens++
		}
	}

	// 骗子全部出局，平民获胜
	if liars == 0 {
		return WinnerCitizens
	}
	// 骗子达到与平民人数持平，骗子获胜
	if liars >= citizens {
		return WinnerLiars
	}
	// 积分到达目标，按存活骗子判阵营
	if targetScore > 0 {
		for _, p := range players {
			if p.Score >= targetScore {
				if p.Role == RoleLiar {
					return WinnerLiars
				}
				return WinnerCitizens
			}
		}
	}
	// 回合耗尽仍未抓到骗子，骗子获胜
	if totalRounds > 0 && roundsPlayed >= totalRounds {
		return WinnerLiars
	}
	return WinnerNone
}
