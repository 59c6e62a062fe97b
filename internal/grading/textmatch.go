package grading

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mind-engage/mindengage-grading/internal/question"
)

// minFuzzyRunes is the shortest accepted answer that may be matched by edit
// distance in LENIENT mode. Shorter words differ by one letter too often
// ("cat"/"car") to be treated as typos.
const minFuzzyRunes = 4

// blankMatcher reports whether a trimmed, non-empty submission matches a
// trimmed accepted answer.
type blankMatcher func(submitted, accepted string, et question.EvaluationType) bool

func matcherFor(mode question.MatchMode, maxEdit int) (blankMatcher, bool) {
	switch mode {
	case question.MatchStrict:
		return matchStrict, true
	case question.MatchNormal:
		return matchNormal, true
	case question.MatchLenient:
		return func(s, a string, et question.EvaluationType) bool {
			return matchLenient(s, a, et, maxEdit)
		}, true
	default:
		return nil, false
	}
}

func matchStrict(s, a string, _ question.EvaluationType) bool { return s == a }

func matchNormal(s, a string, _ question.EvaluationType) bool { return strings.EqualFold(s, a) }

// matchLenient accepts everything NORMAL does, then compares with
// punctuation and repeated spaces removed. Numeric blanks also accept equal
// values written differently; other blanks accept up to maxEdit edits once
// the accepted answer is long enough.
func matchLenient(s, a string, et question.EvaluationType, maxEdit int) bool {
	if strings.EqualFold(s, a) {
		return true
	}
	if et == question.EvalNumber {
		return numericEqual(s, a)
	}
	ns, na := normalize(s), normalize(a)
	if ns == "" || na == "" {
		return false
	}
	if ns == na {
		return true
	}
	if maxEdit <= 0 || utf8.RuneCountInString(na) < minFuzzyRunes {
		return false
	}
	return levenshtein(ns, na) <= maxEdit
}

// normalize does simple casefolding and trims punctuation/extra spaces.
func normalize(s string) string {
	out := make([]rune, 0, len(s))
	space := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			space = true
		case unicode.IsPunct(r):
			// skip
		default:
			if space && len(out) > 0 {
				out = append(out, ' ')
			}
			space = false
			out = append(out, unicode.ToLower(r))
		}
	}
	return string(out)
}

// levenshtein computes edit distance (insertion, deletion, substitution cost 1).
func levenshtein(a, b string) int {
	ar := []rune(a)
	br := []rune(b)
	n, m := len(ar), len(br)
	if n == 0 {
		return m
	}
	if m == 0 {
		return n
	}
	dp := make([]int, m+1)
	for j := 0; j <= m; j++ {
		dp[j] = j
	}
	for i := 1; i <= n; i++ {
		prev := dp[0]
		dp[0] = i
		for j := 1; j <= m; j++ {
			tmp := dp[j]
			cost := 0
			if ar[i-1] != br[j-1] {
				cost = 1
			}
			dp[j] = min(dp[j]+1, dp[j-1]+1, prev+cost)
			prev = tmp
		}
	}
	return dp[m]
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

// keywordHits counts keywords found case-insensitively in text.
func keywordHits(text string, keywords []string) (found, total int) {
	low := strings.ToLower(text)
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		total++
		if strings.Contains(low, strings.ToLower(k)) {
			found++
		}
	}
	return found, total
}
