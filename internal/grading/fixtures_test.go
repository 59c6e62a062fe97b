package grading

import "github.com/mind-engage/mindengage-grading/internal/question"

func boolPtr(b bool) *bool        { return &b }
func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }

func mcq(correct string, negative float64) question.Question {
	return question.Question{
		ID:            "mcq-1",
		Type:          question.TypeMCQ,
		Prompt:        "Pick one",
		Marks:         1,
		NegativeMarks: negative,
		Payload: question.ChoicePayload{
			Options: []question.Option{
				{ID: "A", Text: "alpha"}, {ID: "B", Text: "beta"},
				{ID: "C", Text: "gamma"}, {ID: "D", Text: "delta"},
			},
			CorrectOptionIDs: []string{correct},
		},
	}
}

func mmcq(correct ...string) question.Question {
	q := mcq("", 0.5)
	q.ID = "mmcq-1"
	q.Type = question.TypeMMCQ
	q.Marks = 3
	return withCorrect(q, correct...)
}

func withCorrect(q question.Question, ids ...string) question.Question {
	p := q.Payload.(question.ChoicePayload)
	p.CorrectOptionIDs = ids
	q.Payload = p
	return q
}

func trueFalse(answer bool) question.Question {
	return question.Question{
		ID:      "tf-1",
		Type:    question.TypeTrueFalse,
		Prompt:  "Water boils at 100C at sea level",
		Marks:   1,
		Payload: question.TrueFalsePayload{Answer: boolPtr(answer)},
	}
}

// capitalBlanks is the two-blank question used throughout: "paris" as TEXT
// and "42" as NUMBER, one mark each.
func capitalBlanks(mode question.MatchMode) question.Question {
	return question.Question{
		ID:     "ftb-1",
		Type:   question.TypeFillTheBlank,
		Prompt: "The capital of France is ___ and the answer is ___.",
		Marks:  2,
		Payload: question.BlankPayload{
			Mode: mode,
			Blanks: []question.Blank{
				{Answers: []string{"paris"}, EvaluationType: question.EvalText, Weight: 1},
				{Answers: []string{"42"}, EvaluationType: question.EvalNumber, Weight: 1},
			},
		},
	}
}

func matching() question.Question {
	return question.Question{
		ID:     "match-1",
		Type:   question.TypeMatching,
		Prompt: "Match the countries to facts",
		Marks:  4,
		Payload: question.MatchingPayload{
			Left: []question.MatchItem{
				{ID: "l1", Text: "France", MatchIDs: []string{"r1", "r2"}},
				{ID: "l2", Text: "Japan", MatchIDs: []string{"r3"}},
			},
			Right: []question.MatchItem{
				{ID: "r1", Text: "Paris"}, {ID: "r2", Text: "Euro"},
				{ID: "r3", Text: "Yen"}, {ID: "r4", Text: "Dollar"},
			},
		},
	}
}

func descriptive() question.Question {
	return question.Question{
		ID:     "essay-1",
		Type:   question.TypeDescriptive,
		Prompt: "Explain photosynthesis",
		Marks:  5,
		Payload: question.DescriptivePayload{
			Keywords: []string{"chlorophyll", "light", "glucose"},
			MinWords: intPtr(3),
			MaxWords: intPtr(50),
			Rubric: &question.Rubric{Criteria: []question.Criterion{
				{Key: "accuracy", MaxPoints: 3},
				{Key: "clarity", MaxPoints: 2},
			}},
		},
	}
}
