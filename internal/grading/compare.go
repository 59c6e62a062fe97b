package grading

import (
	"fmt"
	"path"
	"strings"

	"github.com/mind-engage/mindengage-grading/internal/question"
)

type Verdict string

const (
	VerdictCorrect    Verdict = "correct"
	VerdictIncorrect  Verdict = "incorrect"
	VerdictUnanswered Verdict = "unanswered"
	VerdictManual     Verdict = "manual"
)

// OptionOutcome classifies one MMCQ option against the learner's selection.
type OptionOutcome string

const (
	OutcomeCorrectSelected   OptionOutcome = "correct_selected"
	OutcomeCorrectMissed     OptionOutcome = "correct_missed"
	OutcomeIncorrectSelected OptionOutcome = "incorrect_selected"
	OutcomeNeutral           OptionOutcome = "neutral"
)

// UnitVerdict is the judgment for the smallest independently scored piece
// of a question.
type UnitVerdict struct {
	Unit    string        `json:"unit"`
	Verdict Verdict       `json:"verdict"`
	Outcome OptionOutcome `json:"outcome,omitempty"`
	Weight  float64       `json:"weight,omitempty"`
}

// Comparison is the comparator's output for one response.
type Comparison struct {
	QuestionID   string
	Type         question.Type
	Units        []UnitVerdict
	Answered     bool
	FullyCorrect bool
	Manual       bool
	Feedback     []string
}

// Comparator decides per-unit correctness. The zero value compares blanks
// in NORMAL mode with no edit tolerance.
type Comparator struct {
	DefaultMode     question.MatchMode
	MaxEditDistance int
}

// Compare judges r against q. It has no side effects. A question that
// cannot be compared yields a *ConfigurationError.
func (c Comparator) Compare(q question.Question, r question.Response) (Comparison, error) {
	switch p := q.Payload.(type) {
	case question.ChoicePayload:
		switch q.Type {
		case question.TypeMCQ:
			return compareMCQ(q, p, r)
		case question.TypeMMCQ:
			return compareMMCQ(q, p, r)
		}
	case question.TrueFalsePayload:
		if q.Type == question.TypeTrueFalse {
			return compareTrueFalse(q, p, r)
		}
	case question.BlankPayload:
		if q.Type == question.TypeFillTheBlank {
			return c.compareBlanks(q, p, r)
		}
	case question.MatchingPayload:
		if q.Type == question.TypeMatching {
			return compareMatching(q, p, r)
		}
	case question.DescriptivePayload:
		if q.Type == question.TypeDescriptive {
			return compareDescriptive(q, p, r), nil
		}
	case question.CodingPayload:
		if q.Type == question.TypeCoding {
			return compareCoding(q, r), nil
		}
	case question.FileUploadPayload:
		if q.Type == question.TypeFileUpload {
			return compareFileUpload(q, p, r), nil
		}
	case nil:
		return Comparison{}, configErr(q.ID, "%s question has no answer key", q.Type)
	}
	return Comparison{}, configErr(q.ID, "payload %T cannot grade a %q question", q.Payload, q.Type)
}

func compareMCQ(q question.Question, p question.ChoicePayload, r question.Response) (Comparison, error) {
	if len(p.CorrectOptionIDs) != 1 {
		return Comparison{}, configErr(q.ID, "MCQ needs exactly one correct option, has %d", len(p.CorrectOptionIDs))
	}
	out := Comparison{QuestionID: q.ID, Type: q.Type}
	selected := toSet(r.SelectedOptionIDs)
	unit := UnitVerdict{Unit: "answer", Verdict: VerdictUnanswered}
	switch len(selected) {
	case 0:
	case 1:
		out.Answered = true
		unit.Verdict = VerdictIncorrect
		if _, ok := selected[p.CorrectOptionIDs[0]]; ok {
			unit.Verdict = VerdictCorrect
			out.FullyCorrect = true
		}
	default:
		out.Answered = true
		unit.Verdict = VerdictIncorrect
		out.Feedback = append(out.Feedback, "more than one option selected")
	}
	out.Units = []UnitVerdict{unit}
	return out, nil
}

func compareMMCQ(q question.Question, p question.ChoicePayload, r question.Response) (Comparison, error) {
	if len(p.CorrectOptionIDs) == 0 {
		return Comparison{}, configErr(q.ID, "MMCQ has no correct option")
	}
	correct := toSet(p.CorrectOptionIDs)
	selected := toSet(r.SelectedOptionIDs)
	out := Comparison{QuestionID: q.ID, Type: q.Type, Answered: len(selected) > 0}

	known := make(map[string]struct{}, len(p.Options))
	for _, o := range p.Options {
		known[o.ID] = struct{}{}
		_, isCorrect := correct[o.ID]
		_, isSelected := selected[o.ID]
		u := UnitVerdict{Unit: "option:" + o.ID}
		switch {
		case isCorrect && isSelected:
			u.Outcome, u.Verdict = OutcomeCorrectSelected, VerdictCorrect
		case isCorrect:
			u.Outcome, u.Verdict = OutcomeCorrectMissed, VerdictIncorrect
		case isSelected:
			u.Outcome, u.Verdict = OutcomeIncorrectSelected, VerdictIncorrect
		default:
			u.Outcome, u.Verdict = OutcomeNeutral, VerdictCorrect
		}
		if !out.Answered {
			u.Verdict = VerdictUnanswered
		}
		out.Units = append(out.Units, u)
	}
	for _, id := range r.SelectedOptionIDs {
		if _, ok := known[id]; ok || id == "" {
			continue
		}
		known[id] = struct{}{}
		out.Units = append(out.Units, UnitVerdict{Unit: "option:" + id, Verdict: VerdictIncorrect, Outcome: OutcomeIncorrectSelected})
	}
	out.FullyCorrect = out.Answered && setEqual(correct, selected)
	return out, nil
}

func compareTrueFalse(q question.Question, p question.TrueFalsePayload, r question.Response) (Comparison, error) {
	if p.Answer == nil {
		return Comparison{}, configErr(q.ID, "true/false answer is not set")
	}
	out := Comparison{QuestionID: q.ID, Type: q.Type}
	unit := UnitVerdict{Unit: "answer", Verdict: VerdictUnanswered}
	if r.Boolean != nil {
		out.Answered = true
		unit.Verdict = VerdictIncorrect
		if *r.Boolean == *p.Answer {
			unit.Verdict = VerdictCorrect
			out.FullyCorrect = true
		}
	}
	out.Units = []UnitVerdict{unit}
	return out, nil
}

func (c Comparator) compareBlanks(q question.Question, p question.BlankPayload, r question.Response) (Comparison, error) {
	count := question.BlankCount(q.Prompt)
	if count == 0 {
		return Comparison{}, configErr(q.ID, "prompt has no blanks")
	}
	if len(p.Blanks) < count {
		return Comparison{}, configErr(q.ID, "prompt has %d blanks but only %d are configured", count, len(p.Blanks))
	}
	mode := p.Mode
	if mode == "" {
		mode = c.DefaultMode
	}
	if mode == "" {
		mode = question.MatchNormal
	}
	match, ok := matcherFor(mode, c.MaxEditDistance)
	if !ok {
		return Comparison{}, configErr(q.ID, "unknown match mode %q", mode)
	}

	out := Comparison{QuestionID: q.ID, Type: q.Type, FullyCorrect: true}
	for i := 0; i < count; i++ {
		b := p.Blanks[i]
		accepted := make([]string, 0, len(b.Answers))
		for _, a := range b.Answers {
			if a = strings.TrimSpace(a); a != "" {
				accepted = append(accepted, a)
			}
		}
		if len(accepted) == 0 {
			return Comparison{}, configErr(q.ID, "blank %d has no accepted answer", i)
		}

		u := UnitVerdict{Unit: fmt.Sprintf("blank:%d", i), Verdict: VerdictIncorrect, Weight: b.Weight}
		submitted := strings.TrimSpace(r.Blanks[i])
		if submitted != "" {
			out.Answered = true
			for _, a := range accepted {
				if match(submitted, a, b.EvaluationType) {
					u.Verdict = VerdictCorrect
					break
				}
			}
		}
		if u.Verdict != VerdictCorrect {
			out.FullyCorrect = false
		}
		out.Units = append(out.Units, u)
	}
	return out, nil
}

func compareMatching(q question.Question, p question.MatchingPayload, r question.Response) (Comparison, error) {
	if len(p.Left) == 0 {
		return Comparison{}, configErr(q.ID, "matching question has no left items")
	}
	out := Comparison{QuestionID: q.ID, Type: q.Type, FullyCorrect: true}
	seen := make(map[string]struct{}, len(p.Left))
	for _, left := range p.Left {
		if _, dup := seen[left.ID]; dup || left.ID == "" {
			return Comparison{}, configErr(q.ID, "left item id %q is empty or repeated", left.ID)
		}
		seen[left.ID] = struct{}{}
		if len(left.MatchIDs) == 0 {
			return Comparison{}, configErr(q.ID, "left item %q has no correct match", left.ID)
		}
		u := UnitVerdict{Unit: "left:" + left.ID, Verdict: VerdictUnanswered}
		submitted := toSet(r.Matches[left.ID])
		if len(submitted) > 0 {
			out.Answered = true
			u.Verdict = VerdictIncorrect
			if setEqual(toSet(left.MatchIDs), submitted) {
				u.Verdict = VerdictCorrect
			}
		}
		if u.Verdict != VerdictCorrect {
			out.FullyCorrect = false
		}
		out.Units = append(out.Units, u)
	}
	return out, nil
}

func manualComparison(q question.Question, answered bool) Comparison {
	return Comparison{
		QuestionID: q.ID,
		Type:       q.Type,
		Units:      []UnitVerdict{{Unit: "answer", Verdict: VerdictManual}},
		Answered:   answered,
		Manual:     true,
	}
}

func compareDescriptive(q question.Question, p question.DescriptivePayload, r question.Response) Comparison {
	text := strings.TrimSpace(r.Text)
	out := manualComparison(q, text != "")
	if text == "" {
		out.Feedback = append(out.Feedback, "no answer submitted")
		return out
	}
	words := wordCount(text)
	switch {
	case p.MinWords != nil && words < *p.MinWords:
		out.Feedback = append(out.Feedback, fmt.Sprintf("word count %d is below the minimum of %d", words, *p.MinWords))
	case p.MaxWords != nil && words > *p.MaxWords:
		out.Feedback = append(out.Feedback, fmt.Sprintf("word count %d is above the maximum of %d", words, *p.MaxWords))
	}
	if found, total := keywordHits(text, p.Keywords); total > 0 {
		out.Feedback = append(out.Feedback, fmt.Sprintf("keyword hits: %d/%d", found, total))
	}
	return out
}

func compareCoding(q question.Question, r question.Response) Comparison {
	out := manualComparison(q, strings.TrimSpace(r.Text) != "")
	if !out.Answered {
		out.Feedback = append(out.Feedback, "no source submitted")
	}
	return out
}

func compareFileUpload(q question.Question, p question.FileUploadPayload, r question.Response) Comparison {
	key := strings.TrimSpace(r.FileKey)
	out := manualComparison(q, key != "")
	if key == "" {
		out.Feedback = append(out.Feedback, "no file uploaded")
		return out
	}
	if len(p.AllowedExtensions) > 0 {
		ext := strings.ToLower(strings.TrimPrefix(path.Ext(key), "."))
		allowed := false
		for _, a := range p.AllowedExtensions {
			if strings.ToLower(strings.TrimPrefix(a, ".")) == ext {
				allowed = true
				break
			}
		}
		if !allowed {
			out.Feedback = append(out.Feedback, fmt.Sprintf("file type %q is not in the allowed list", ext))
		}
	}
	return out
}

func toSet(arr []string) map[string]struct{} {
	m := make(map[string]struct{}, len(arr))
	for _, s := range arr {
		if s == "" {
			continue
		}
		m[s] = struct{}{}
	}
	return m
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
