package grading

import (
	"context"
	"maps"
	"math"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mind-engage/mindengage-grading/internal/question"
)

var tracer = otel.Tracer("github.com/mind-engage/mindengage-grading/internal/grading")

// Submission is one learner's attempt at a set of questions.
type Submission struct {
	ID           string                 `json:"id"`
	QuizID       string                 `json:"quiz_id"`
	LearnerID    string                 `json:"learner_id"`
	Responses    []question.Response    `json:"responses"`
	ManualGrades map[string]ManualGrade `json:"manual_grades,omitempty"` // question id -> grade
}

type SubmissionResult struct {
	SubmissionID  string             `json:"submission_id"`
	QuizID        string             `json:"quiz_id"`
	LearnerID     string             `json:"learner_id"`
	Results       []EvaluationResult `json:"results"`
	Total         float64            `json:"total"`
	MaxTotal      float64            `json:"max_total"`
	PendingManual int                `json:"pending_manual"`
	Errors        int                `json:"errors"`
	GradedAt      time.Time          `json:"graded_at"`
}

// Recompute refreshes the totals from Results.
func (s *SubmissionResult) Recompute() {
	s.Total, s.MaxTotal, s.PendingManual, s.Errors = 0, 0, 0, 0
	for _, r := range s.Results {
		s.MaxTotal += r.MaxScore
		switch r.Status {
		case StatusGraded:
			if r.Score != nil {
				s.Total += *r.Score
			}
		case StatusNeedsManualReview:
			s.PendingManual++
		case StatusConfigurationErr:
			s.Errors++
		}
	}
	s.Total = math.Round(s.Total*1e6) / 1e6
	s.MaxTotal = math.Round(s.MaxTotal*1e6) / 1e6
}

// Recorder receives one observation per graded question.
type Recorder interface {
	ObserveEvaluation(t question.Type, status Status, took time.Duration)
}

// Batch grades whole submissions, one question per unit of work.
type Batch struct {
	Engine  *Engine
	Workers int
	Logger  *zap.Logger
	Metrics Recorder
	Now     func() time.Time
}

// GradeSubmission grades every response in sub and every question in
// questions the learner left unanswered. A question that cannot be graded
// is recorded with status configuration_error and does not stop the rest.
// If ctx is cancelled the results graded so far are returned with ctx.Err().
func (b *Batch) GradeSubmission(ctx context.Context, questions map[string]question.Question, sub Submission) (SubmissionResult, error) {
	ctx, span := tracer.Start(ctx, "grading.GradeSubmission", trace.WithAttributes(
		attribute.String("submission.id", sub.ID),
		attribute.Int("submission.responses", len(sub.Responses)),
	))
	defer span.End()

	log := b.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("submission_id", sub.ID), zap.String("learner_id", sub.LearnerID))

	work := planWork(questions, sub.Responses)
	slots := make([]*EvaluationResult, len(work))

	g, gctx := errgroup.WithContext(ctx)
	workers := b.Workers
	if workers <= 0 {
		workers = 1
	}
	g.SetLimit(workers)
	for i, resp := range work {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := b.gradeOne(questions, sub, resp)
			if res.Status == StatusConfigurationErr {
				log.Warn("question skipped",
					zap.String("question_id", res.QuestionID),
					zap.String("reason", res.ErrorDetail))
			}
			slots[i] = &res
			return nil
		})
	}
	err := g.Wait()

	out := SubmissionResult{
		SubmissionID: sub.ID,
		QuizID:       sub.QuizID,
		LearnerID:    sub.LearnerID,
		Results:      make([]EvaluationResult, 0, len(slots)),
		GradedAt:     b.now(),
	}
	for _, r := range slots {
		if r != nil {
			out.Results = append(out.Results, *r)
		}
	}
	out.Recompute()

	span.SetAttributes(
		attribute.Float64("submission.total", out.Total),
		attribute.Int("submission.errors", out.Errors),
	)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		log.Info("grading interrupted", zap.Int("graded", len(out.Results)), zap.Int("planned", len(work)), zap.Error(err))
		return out, err
	}
	log.Debug("submission graded",
		zap.Float64("total", out.Total),
		zap.Float64("max_total", out.MaxTotal),
		zap.Int("pending_manual", out.PendingManual),
		zap.Int("errors", out.Errors))
	return out, nil
}

func (b *Batch) gradeOne(questions map[string]question.Question, sub Submission, resp question.Response) EvaluationResult {
	start := time.Now()
	q, ok := questions[resp.QuestionID]
	var res EvaluationResult
	if !ok {
		res = failed(EvaluationResult{QuestionID: resp.QuestionID}, configErr(resp.QuestionID, "question not found"))
	} else {
		var manual *ManualGrade
		if mg, ok := sub.ManualGrades[q.ID]; ok {
			manual = &mg
		}
		res = b.Engine.Evaluate(q, resp, manual)
	}
	if b.Metrics != nil {
		b.Metrics.ObserveEvaluation(q.Type, res.Status, time.Since(start))
	}
	return res
}

func (b *Batch) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now().UTC()
}

// planWork orders the units of work: submitted responses first (a later
// response to the same question replaces an earlier one), then unanswered
// questions by id.
func planWork(questions map[string]question.Question, responses []question.Response) []question.Response {
	pos := make(map[string]int, len(responses))
	work := make([]question.Response, 0, len(questions)+len(responses))
	for _, r := range responses {
		if i, dup := pos[r.QuestionID]; dup {
			work[i] = r
			continue
		}
		pos[r.QuestionID] = len(work)
		work = append(work, r)
	}
	for _, id := range slices.Sorted(maps.Keys(questions)) {
		if _, seen := pos[id]; !seen {
			work = append(work, question.Response{QuestionID: id})
		}
	}
	return work
}
