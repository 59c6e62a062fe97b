package grading

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/mind-engage/mindengage-grading/internal/question"
)

// weightTolerance bounds the drift allowed between blank weights and marks.
const weightTolerance = 0.01

var numberPattern = regexp.MustCompile(`^-?\d*\.?\d+$`)

// Report is the outcome of validating one question.
type Report struct {
	Valid  bool         `json:"is_valid"`
	Errors []FieldError `json:"errors"`
}

// Err returns the report as an error, or nil when the question is valid.
func (r Report) Err() error {
	if r.Valid {
		return nil
	}
	return ValidationErrors(r.Errors)
}

type reporter struct {
	errs []FieldError
}

func (r *reporter) add(field, format string, args ...any) {
	r.errs = append(r.errs, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Validate checks that a question is complete enough to be served and
// graded. Every violation is reported.
func Validate(q question.Question) Report {
	r := &reporter{}

	if isBlankText(q.Prompt) {
		r.add("prompt", "prompt is required")
	}
	if !(q.Marks > 0) {
		r.add("marks", "marks must be greater than 0")
	}
	if !(q.NegativeMarks >= 0) {
		r.add("negative_marks", "negative marks cannot be negative")
	}

	if !q.Type.Valid() {
		r.add("type", "unknown question type %q", q.Type)
		return r.report()
	}

	switch p := q.Payload.(type) {
	case question.ChoicePayload:
		if q.Type != question.TypeMCQ && q.Type != question.TypeMMCQ {
			r.payloadMismatch(q)
			break
		}
		validateChoices(r, q.Type, p)
	case question.TrueFalsePayload:
		if q.Type != question.TypeTrueFalse {
			r.payloadMismatch(q)
			break
		}
		if p.Answer == nil {
			r.add("true_false_answer", "the correct answer (true or false) must be selected")
		}
	case question.BlankPayload:
		if q.Type != question.TypeFillTheBlank {
			r.payloadMismatch(q)
			break
		}
		validateBlanks(r, q, p)
	case question.MatchingPayload:
		if q.Type != question.TypeMatching {
			r.payloadMismatch(q)
			break
		}
		validateMatching(r, p)
	case question.DescriptivePayload:
		if q.Type != question.TypeDescriptive {
			r.payloadMismatch(q)
			break
		}
		validateDescriptive(r, q.Marks, p)
	case question.CodingPayload:
		if q.Type != question.TypeCoding {
			r.payloadMismatch(q)
		}
	case question.FileUploadPayload:
		if q.Type != question.TypeFileUpload {
			r.payloadMismatch(q)
		}
	case nil:
		r.add("payload", "%s question has no answer key", q.Type)
	default:
		r.add("payload", "unsupported payload %T", p)
	}
	return r.report()
}

func (r *reporter) payloadMismatch(q question.Question) {
	r.add("payload", "payload %T does not belong to a %s question", q.Payload, q.Type)
}

func (r *reporter) report() Report {
	errs := r.errs
	if errs == nil {
		errs = []FieldError{}
	}
	return Report{Valid: len(errs) == 0, Errors: errs}
}

func validateChoices(r *reporter, t question.Type, p question.ChoicePayload) {
	if len(p.Options) < 2 {
		r.add("options", "at least 2 options are required")
	}
	ids := make(map[string]struct{}, len(p.Options))
	for i, o := range p.Options {
		if strings.TrimSpace(o.ID) == "" {
			r.add(fmt.Sprintf("options[%d].id", i), "option id is required")
		} else if _, dup := ids[o.ID]; dup {
			r.add(fmt.Sprintf("options[%d].id", i), "duplicate option id %q", o.ID)
		}
		ids[o.ID] = struct{}{}
		if isBlankText(o.Text) {
			r.add(fmt.Sprintf("options[%d].text", i), "option text is required")
		}
	}

	switch {
	case len(p.CorrectOptionIDs) == 0:
		r.add("correct_option_ids", "at least one correct option must be selected")
	case t == question.TypeMCQ && len(p.CorrectOptionIDs) > 1:
		r.add("correct_option_ids", "MCQ allows exactly one correct option; use MMCQ for multiple")
	}
	for _, id := range p.CorrectOptionIDs {
		if _, ok := ids[id]; !ok {
			r.add("correct_option_ids", "correct option %q is not one of the options", id)
		}
	}
}

func validateBlanks(r *reporter, q question.Question, p question.BlankPayload) {
	count := question.BlankCount(q.Prompt)
	if count == 0 {
		r.add("prompt", "prompt must contain at least one blank (___)")
		return
	}
	switch p.Mode {
	case "", question.MatchStrict, question.MatchNormal, question.MatchLenient:
	default:
		r.add("match_mode", "unknown match mode %q", p.Mode)
	}

	sum := 0.0
	for i := 0; i < count && i < len(p.Blanks); i++ {
		sum += p.Blanks[i].Weight
	}
	if math.Abs(sum-q.Marks) > weightTolerance {
		r.add("blanks", "blank weights total %g but marks is %g", sum, q.Marks)
	}

	for i := 0; i < count; i++ {
		field := fmt.Sprintf("blanks[%d]", i)
		if i >= len(p.Blanks) {
			r.add(field+".answers", "at least one answer is required")
			continue
		}
		b := p.Blanks[i]
		if b.Weight < 0 {
			r.add(field+".weight", "weight cannot be negative")
		}
		et := b.EvaluationType
		switch et {
		case "", question.EvalText, question.EvalNumber, question.EvalUppercase, question.EvalLowercase:
		default:
			r.add(field+".evaluation_type", "unknown evaluation type %q", et)
			et = question.EvalText
		}
		nonEmpty := 0
		for j, a := range b.Answers {
			a = strings.TrimSpace(a)
			if a == "" {
				continue
			}
			nonEmpty++
			if msg := lexicalProblem(et, a); msg != "" {
				r.add(fmt.Sprintf("%s.answers[%d]", field, j), "%q %s", a, msg)
			}
		}
		if nonEmpty == 0 {
			r.add(field+".answers", "at least one answer is required")
		}
	}
}

// lexicalProblem describes why a trimmed answer does not fit its evaluation
// type, or returns "" when it does.
func lexicalProblem(et question.EvaluationType, a string) string {
	switch et {
	case question.EvalNumber:
		if !numberPattern.MatchString(a) {
			return "is not a number"
		}
	case question.EvalUppercase:
		if strings.ContainsFunc(a, func(c rune) bool { return c >= 'a' && c <= 'z' }) {
			return "must be uppercase"
		}
	case question.EvalLowercase:
		if strings.ContainsFunc(a, func(c rune) bool { return c >= 'A' && c <= 'Z' }) {
			return "must be lowercase"
		}
	}
	return ""
}

func validateMatching(r *reporter, p question.MatchingPayload) {
	if len(p.Left) == 0 {
		r.add("left_items", "at least one left item is required")
	}
	if len(p.Right) == 0 {
		r.add("right_items", "at least one right item is required")
	}
	right := make(map[string]struct{}, len(p.Right))
	for i, it := range p.Right {
		checkItemID(r, fmt.Sprintf("right_items[%d].id", i), it.ID, right)
		if isBlankText(it.Text) {
			r.add(fmt.Sprintf("right_items[%d].text", i), "text is required")
		}
	}
	left := make(map[string]struct{}, len(p.Left))
	for i, it := range p.Left {
		field := fmt.Sprintf("left_items[%d]", i)
		checkItemID(r, field+".id", it.ID, left)
		if isBlankText(it.Text) {
			r.add(field+".text", "text is required")
		}
		if len(it.MatchIDs) == 0 {
			r.add(field+".match_pair_ids", "at least one match is required")
		}
		for _, id := range it.MatchIDs {
			if _, ok := right[id]; !ok {
				r.add(field+".match_pair_ids", "match %q is not a right item", id)
			}
		}
	}
}

func checkItemID(r *reporter, field, id string, seen map[string]struct{}) {
	if strings.TrimSpace(id) == "" {
		r.add(field, "item id is required")
		return
	}
	if _, dup := seen[id]; dup {
		r.add(field, "duplicate item id %q", id)
	}
	seen[id] = struct{}{}
}

func validateDescriptive(r *reporter, marks float64, p question.DescriptivePayload) {
	if p.MinWords != nil && *p.MinWords < 0 {
		r.add("min_words", "cannot be negative")
	}
	if p.MaxWords != nil && *p.MaxWords < 0 {
		r.add("max_words", "cannot be negative")
	}
	if p.MinWords != nil && p.MaxWords != nil && *p.MinWords > *p.MaxWords {
		r.add("max_words", "max words (%d) is below min words (%d)", *p.MaxWords, *p.MinWords)
	}
	if p.Rubric != nil {
		total := 0.0
		for i, c := range p.Rubric.Criteria {
			if strings.TrimSpace(c.Key) == "" {
				r.add(fmt.Sprintf("rubric.criteria[%d].key", i), "key is required")
			}
			if c.MaxPoints < 0 {
				r.add(fmt.Sprintf("rubric.criteria[%d].max_points", i), "cannot be negative")
			}
			total += c.MaxPoints
		}
		if total > marks+weightTolerance {
			r.add("rubric", "criteria total %g exceeds marks %g", total, marks)
		}
	}
}

func isBlankText(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == question.EmptyRichText
}
