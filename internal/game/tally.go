package game

import "sort"

// AccusationResult 指控计票结果
type AccusationResult struct {
	TargetID int64
	Count    int
	Total    int // 已投票人数
}

// ResolveAccusation 对指控投票进行确定性计票
//
// 结果只取决于投票集合本身：得票最多者当选；平票时比较
// 对该目标的最早投票序号（先到先得），仍相同则取较小的玩家ID。
// 没有任何投票时返回 ok=false。
func ResolveAccusation(votes map[int64]*Vote) (AccusationResult, bool) {
	if len(votes) == 0 {
		return AccusationResult{}, false
	}

	type candidate struct {
		id       int64
		count    int
		earliest uint64
	}
	byTarget := make(map[int64]*candidate)
	for _, v := range votes {
		c, ok := byTarget[v.TargetID]
		if !ok {
			c = &candidate{id: v.TargetID, earliest: v.Seq}
			byTarget[v.TargetID] = c
		}
		c.count++
		if v.Seq < c.earliest {
			c.earliest = v.Seq
		}
	}

	candidates := make([]*candidate, 0, len(byTarget))
	for _, c := range byTarget {
		candidates = append(candidates, c)
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.count != b.count {
			return a.count > b.count
		}
		if a.earliest != b.earliest {
			return a.earliest < b.earliest
		}
		return a.id < b.id
	})

	top := candidates[0]
	return AccusationResult{
		TargetID: top.id,
		Count:    top.count,
		Total:    len(votes),
	}, true
}

// ResolveSurvival 对终投进行确定性计票
//
// 未投票的合格投票者计为赦免；仅当处决票严格多于赦免票时处决，
// 平票赦免。
func ResolveSurvival(votes map[int64]*SurvivalVote, eligible int) (execute, spare int, executed bool) {
	for _, v := range votes {
		if v.Execute {
			execute++
		}
	}
	spare = eligible - execute
	if spare < 0 {
		spare = 0
	}
	return execute, spare, execute > spare
}
