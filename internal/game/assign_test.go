package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPair = WordPair{Subject: "水果", CitizenWord: "苹果", LiarWord: "香蕉"}

func TestAssignRoles_LiarsKnow(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ids := []int64{1, 2, 3, 4, 5}

	a, err := AssignRoles(ids, 1, ModeLiarsKnow, testPair, rng)
	require.NoError(t, err)

	assert.Len(t, a.LiarIDs, 1)
	assert.Len(t, a.TurnOrder, 5)
	assert.ElementsMatch(t, ids, a.TurnOrder)

	liars, citizens := 0, 0
	for _, id := range ids {
		switch a.Roles[id] {
		case RoleLiar:
			liars++
			// 骗子知道自己的身份，没有词语
			assert.Equal(t, RoleLiar, a.Shown[id])
			assert.Equal(t, "", a.Words[id])
		case RoleCitizen:
			citizens++
			assert.Equal(t, RoleCitizen, a.Shown[id])
			assert.Equal(t, "苹果", a.Words[id])
		}
	}
	assert.Equal(t, 1, liars)
	assert.Equal(t, 4, citizens)
}

func TestAssignRoles_LiarsDifferentWord(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	ids := []int64{1, 2, 3, 4}

	a, err := AssignRoles(ids, 1, ModeLiarsDifferentWord, testPair, rng)
	require.NoError(t, err)

	for _, id := range ids {
		// 该模式下所有人都被告知自己是平民
		assert.Equal(t, RoleCitizen, a.Shown[id])
		if a.Roles[id] == RoleLiar {
			assert.Equal(t, "香蕉", a.Words[id])
		} else {
			assert.Equal(t, "苹果", a.Words[id])
		}
	}
}

func TestAssignRoles_MultipleLiars(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	ids := []int64{1, 2, 3, 4, 5, 6, 7}

	a, err := AssignRoles(ids, 2, ModeLiarsKnow, testPair, rng)
	require.NoError(t, err)
	assert.Len(t, a.LiarIDs, 2)
}

func TestAssignRoles_InvalidLiarCount(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	ids := []int64{1, 2, 3}

	_, err := AssignRoles(ids, 0, ModeLiarsKnow, testPair, rng)
	assert.Error(t, err)

	_, err = AssignRoles(ids, 3, ModeLiarsKnow, testPair, rng)
	assert.Error(t, err)
}

func TestAssignRoles_UniformFrequency(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	ids := []int64{1, 2, 3, 4, 5, 6}
	const draws = 10000

	counts := make(map[int64]int, len(ids))
	for i := 0; i < draws; i++ {
		a, err := AssignRoles(ids, 2, ModeLiarsKnow, testPair, rng)
		require.NoError(t, err)
		require.Len(t, a.LiarIDs, 2)
		require.NotEqual(t, a.LiarIDs[0], a.LiarIDs[1])
		for _, id := range a.LiarIDs {
			counts[id]++
		}
	}

	// 每人被抽中的边际概率应接近 2/6
	expected := float64(draws) * 2.0 / float64(len(ids))
	for _, id := range ids {
		assert.InDelta(t, expected, float64(counts[id]), expected*0.05,
			"玩家 %d 中签次数偏离期望", id)
	}
}

func TestAssignRoles_Deterministic(t *testing.T) {
	ids := []int64{1, 2, 3, 4, 5}

	a1, err := AssignRoles(ids, 1, ModeLiarsKnow, testPair, rand.New(rand.NewSource(99)))
	require.NoError(t, err)
	a2, err := AssignRoles(ids, 1, ModeLiarsKnow, testPair, rand.New(rand.NewSource(99)))
	require.NoError(t, err)

	assert.Equal(t, a1.LiarIDs, a2.LiarIDs)
	assert.Equal(t, a1.TurnOrder, a2.TurnOrder)
}
