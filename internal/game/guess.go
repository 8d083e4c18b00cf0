package game

import (
	"strings"
	"unicode"
)

// NormalizeAnswer 归一化答案文本：小写、去空白和标点
func NormalizeAnswer(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ValidateGuess 校验猜词是否命中
//
// 归一化后先做包含判断（允许多余修饰词），再按编辑距离
// 相似度兜底，threshold 通常取 0.7。
func ValidateGuess(guess, answer string, threshold float64) bool {
	g := NormalizeAnswer(guess)
	a := NormalizeAnswer(answer)
	if g == "" || a == "" {
		return false
	}
	if g == a {
		return true
	}
	if strings.Contains(g, a) || strings.Contains(a, g) {
		return true
	}
	return Similarity(g, a) >= threshold
}

// Similarity 基于编辑距离的相似度，范围 [0,1]
func Similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 1
	}
	dist := levenshtein(ra, rb)
	max := len(ra)
	if len(rb) > max {
		max = len(rb)
	}
	return 1 - float64(dist)/float64(max)
}

// levenshtein 计算编辑距离
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
