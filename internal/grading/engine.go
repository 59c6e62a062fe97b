package grading

import (
	"errors"

	"github.com/mind-engage/mindengage-grading/internal/question"
)

// EvaluationResult is the outcome of grading one response against its
// question.
type EvaluationResult struct {
	QuestionID  string        `json:"question_id"`
	Units       []UnitVerdict `json:"per_unit_verdicts"`
	Score       *float64      `json:"score"`
	MaxScore    float64       `json:"max_score"`
	Status      Status        `json:"status"`
	ErrorDetail string        `json:"error_detail,omitempty"`
	Feedback    []string      `json:"feedback,omitempty"`
}

// Engine options

type Option func(*config)

type config struct {
	policy    Policy
	maxEdit   int
	matchMode question.MatchMode
}

func WithPolicy(p Policy) Option       { return func(c *config) { c.policy = p } }
func WithClampNegative(b bool) Option  { return func(c *config) { c.policy.ClampNegative = b } }
func WithPartialMMCQ(b bool) Option    { return func(c *config) { c.policy.PartialCreditMMCQ = b } }
func WithMaxEditDistance(n int) Option { return func(c *config) { c.maxEdit = n } }
func WithDefaultMatchMode(m question.MatchMode) Option {
	return func(c *config) { c.matchMode = m }
}

// Engine validates, compares and scores. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	cmp Comparator
	agg Aggregator
}

// NewEngine builds an engine with the default policy (negative scores
// clamped to 0, no MMCQ partial credit), NORMAL blank matching and one
// edit of tolerance for LENIENT blanks.
func NewEngine(opts ...Option) *Engine {
	cfg := &config{
		policy:    DefaultPolicy,
		maxEdit:   1,
		matchMode: question.MatchNormal,
	}
	for _, o := range opts {
		o(cfg)
	}
	return &Engine{
		cmp: Comparator{DefaultMode: cfg.matchMode, MaxEditDistance: cfg.maxEdit},
		agg: Aggregator{Policy: cfg.policy},
	}
}

func (e *Engine) Policy() Policy { return e.agg.Policy }

func (e *Engine) Compare(q question.Question, r question.Response) (Comparison, error) {
	return e.cmp.Compare(q, r)
}

func (e *Engine) Score(q question.Question, cmp Comparison, manual *ManualGrade) (Outcome, error) {
	return e.agg.Score(q, cmp, manual)
}

// Evaluate grades r against q. A question that fails validation, or that
// the comparator or aggregator reject, is reported with status
// configuration_error and no score.
func (e *Engine) Evaluate(q question.Question, r question.Response, manual *ManualGrade) EvaluationResult {
	res := EvaluationResult{QuestionID: q.ID, MaxScore: q.Marks}
	if r.QuestionID != "" && r.QuestionID != q.ID {
		return failed(res, configErr(q.ID, "response is for question %s", r.QuestionID))
	}
	if rep := Validate(q); !rep.Valid {
		return failed(res, &ConfigurationError{QuestionID: q.ID, Reason: rep.Err().Error()})
	}
	cmp, err := e.cmp.Compare(q, r)
	if err != nil {
		return failed(res, err)
	}
	res.Units = cmp.Units
	res.Feedback = cmp.Feedback

	out, err := e.agg.Score(q, cmp, manual)
	if err != nil {
		return failed(res, err)
	}
	res.Score = out.Score
	res.Status = out.Status
	res.Feedback = append(res.Feedback, out.Feedback...)
	return res
}

func failed(res EvaluationResult, err error) EvaluationResult {
	res.Status = StatusConfigurationErr
	res.Score = nil
	var ce *ConfigurationError
	if errors.As(err, &ce) {
		res.ErrorDetail = ce.Reason
	} else {
		res.ErrorDetail = err.Error()
	}
	return res
}
