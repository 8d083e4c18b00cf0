package game

import (
	"math/rand"

	"github.com/wfunc/liar-game/internal/errors"
)

// Assignment 一局游戏的身份与词语分配结果
type Assignment struct {
	Roles     map[int64]Role // 真实身份
	Shown     map[int64]Role // 告知玩家的身份
	Words     map[int64]string
	LiarIDs   []int64
	TurnOrder []int64
}

// AssignRoles 分配身份、词语和发言顺序
//
// 给定相同的玩家列表、配置和随机源，结果完全确定；
// 骗子的边际概率对每个玩家一致。
func AssignRoles(playerIDs []int64, liarCount int, mode GameMode, pair WordPair, rng *rand.Rand) (*Assignment, error) {
	n := len(playerIDs)
	if liarCount <= 0 || liarCount >= n {
		return nil, errors.Newf(errors.ErrInvalidParam, "骗子数量 %d 不合法（玩家数 %d）", liarCount, n)
	}

	a := &Assignment{
		Roles: make(map[int64]Role, n),
		Shown: make(map[int64]Role, n),
		Words: make(map[int64]string, n),
	}

	// 洗牌下标，前 liarCount 个为骗子
	perm := rng.Perm(n)
	liars := make(map[int64]bool, liarCount)
	for i := 0; i < liarCount; i++ {
		id := playerIDs[perm[i]]
		liars[id] = true
		a.LiarIDs = append(a.LiarIDs, id)
	}

	for _, id := range playerIDs {
		if liars[id] {
			a.Roles[id] = RoleLiar
			switch mode {
			case ModeLiarsDifferentWord:
				// 骗子拿到另一个词，并被告知自己是平民
				a.Shown[id] = RoleCitizen
				a.Words[id] = pair.LiarWord
			default:
				// 骗子知道身份，只能看到主题
				a.Shown[id] = RoleLiar
				a.Words[id] = ""
			}
		} else {
			a.Roles[id] = RoleCitizen
			a.Shown[id] = RoleCitizen
			a.Words[id] = pair.CitizenWord
		}
	}

	// 发言顺序独立洗牌
	order := rng.Perm(n)
	a.TurnOrder = make([]int64, n)
	for i, idx := range order {
		a.TurnOrder[i] = playerIDs[idx]
	}

	return a, nil
}
