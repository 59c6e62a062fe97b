package grading

import (
	"fmt"
	"math"

	"github.com/mind-engage/mindengage-grading/internal/question"
)

type Status string

const (
	StatusGraded            Status = "graded"
	StatusNeedsManualReview Status = "needs_manual_review"
	StatusConfigurationErr  Status = "configuration_error"
)

// ManualGrade is a score assigned by a person to a manually graded answer.
// Awards, when set and the question has a rubric, take precedence over Points.
type ManualGrade struct {
	Points   *float64           `json:"points,omitempty"`
	Awards   map[string]float64 `json:"awards,omitempty"`
	Comment  string             `json:"comment,omitempty"`
	GradedBy string             `json:"graded_by,omitempty"`
}

// Outcome is the aggregated score of one comparison. Score is nil unless
// Status is graded.
type Outcome struct {
	Score    *float64
	Status   Status
	Feedback []string
}

// Aggregator turns unit verdicts into a bounded score.
type Aggregator struct {
	Policy Policy
}

func (a Aggregator) Score(q question.Question, cmp Comparison, manual *ManualGrade) (Outcome, error) {
	if cmp.Type != q.Type {
		return Outcome{}, configErr(q.ID, "comparison for %s cannot score a %s question", cmp.Type, q.Type)
	}
	switch q.Type {
	case question.TypeMCQ, question.TypeTrueFalse:
		return a.binary(q, cmp), nil
	case question.TypeMMCQ:
		if cmp.FullyCorrect || !cmp.Answered || !a.Policy.PartialCreditMMCQ {
			return a.binary(q, cmp), nil
		}
		return graded(partialMMCQ(q.Marks, cmp.Units)), nil
	case question.TypeFillTheBlank:
		return scoreBlanks(q, cmp)
	case question.TypeMatching:
		if len(cmp.Units) == 0 {
			return Outcome{}, configErr(q.ID, "matching question has no left items")
		}
		correct := 0
		for _, u := range cmp.Units {
			if u.Verdict == VerdictCorrect {
				correct++
			}
		}
		return graded(q.Marks * float64(correct) / float64(len(cmp.Units))), nil
	case question.TypeDescriptive, question.TypeCoding, question.TypeFileUpload:
		return scoreManual(q, manual), nil
	default:
		return Outcome{}, configErr(q.ID, "unknown question type %q", q.Type)
	}
}

func (a Aggregator) binary(q question.Question, cmp Comparison) Outcome {
	switch {
	case !cmp.Answered:
		return graded(0)
	case cmp.FullyCorrect:
		return graded(q.Marks)
	case a.Policy.ClampNegative:
		return graded(0)
	default:
		return graded(-q.NegativeMarks)
	}
}

func partialMMCQ(marks float64, units []UnitVerdict) float64 {
	var correctSel, incorrectSel, totalCorrect int
	for _, u := range units {
		switch u.Outcome {
		case OutcomeCorrectSelected:
			correctSel++
			totalCorrect++
		case OutcomeCorrectMissed:
			totalCorrect++
		case OutcomeIncorrectSelected:
			incorrectSel++
		}
	}
	if totalCorrect == 0 {
		return 0
	}
	v := marks * float64(correctSel-incorrectSel) / float64(totalCorrect)
	return math.Max(0, math.Min(marks, v))
}

func scoreBlanks(q question.Question, cmp Comparison) (Outcome, error) {
	if len(cmp.Units) == 0 {
		return Outcome{}, configErr(q.ID, "fill-the-blank question has no blanks")
	}
	var sum, earned float64
	for _, u := range cmp.Units {
		sum += u.Weight
		if u.Verdict == VerdictCorrect {
			earned += u.Weight
		}
	}
	if math.Abs(sum-q.Marks) > weightTolerance {
		return Outcome{}, configErr(q.ID, "blank weights total %g but marks is %g", sum, q.Marks)
	}
	return graded(math.Min(earned, q.Marks)), nil
}

func scoreManual(q question.Question, manual *ManualGrade) Outcome {
	if manual == nil {
		return Outcome{Status: StatusNeedsManualReview}
	}
	if dp, ok := q.Payload.(question.DescriptivePayload); ok && dp.Rubric != nil && len(manual.Awards) > 0 {
		total, notes := ScoreRubric(*dp.Rubric, q.Marks, manual.Awards)
		out := graded(total)
		out.Feedback = notes
		return out
	}
	if manual.Points == nil {
		return Outcome{Status: StatusNeedsManualReview}
	}
	v := *manual.Points
	out := graded(math.Max(0, math.Min(q.Marks, v)))
	if v < 0 || v > q.Marks {
		out.Feedback = []string{fmt.Sprintf("manual score %g clamped to [0, %g]", v, q.Marks)}
	}
	return out
}

func graded(v float64) Outcome {
	v = math.Round(v*1e6) / 1e6
	if v == 0 {
		v = 0 // drop negative zero
	}
	return Outcome{Score: &v, Status: StatusGraded}
}
