package grading

import (
	"math"
	"strconv"
	"strings"
)

// numericEqual compares two numeric strings by value, so "42", "42.0" and
// "+42" are the same answer.
func numericEqual(a, b string) bool {
	av, aOK := parseFloatLoose(a)
	bv, bOK := parseFloatLoose(b)
	if !aOK || !bOK {
		return false
	}
	return math.Abs(av-bv) <= 1e-9*math.Max(1, math.Abs(bv))
}

func parseFloatLoose(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, true
	}
	if sp := strings.Fields(s); len(sp) > 0 {
		if v, err := strconv.ParseFloat(sp[0], 64); err == nil {
			return v, true
		}
	}
	return 0, false
}
