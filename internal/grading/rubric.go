package grading

import (
	"fmt"

	"github.com/mind-engage/mindengage-grading/internal/question"
)

// ScoreRubric totals the points awarded per criterion, each clamped to
// [0, criterion max], and the total clamped to max when max > 0.
func ScoreRubric(r question.Rubric, max float64, awarded map[string]float64) (float64, []string) {
	total := 0.0
	notes := make([]string, 0, len(r.Criteria))
	for _, c := range r.Criteria {
		v := awarded[c.Key]
		if v < 0 {
			v = 0
		}
		if v > c.MaxPoints {
			v = c.MaxPoints
		}
		total += v
		notes = append(notes, fmt.Sprintf("%s:%.2f", c.Key, v))
	}
	if max > 0 && total > max {
		total = max
	}
	return total, notes
}
