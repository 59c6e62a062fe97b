package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-grading/internal/cache"
	"github.com/mind-engage/mindengage-grading/internal/eventlog"
	"github.com/mind-engage/mindengage-grading/internal/grading"
	"github.com/mind-engage/mindengage-grading/internal/metrics"
	"github.com/mind-engage/mindengage-grading/internal/question"
)

type QuestionStore interface {
	PutQuestion(ctx context.Context, q question.Question) error
	GetQuestion(ctx context.Context, id string) (question.Question, error)
	GetQuestions(ctx context.Context, ids []string) (map[string]question.Question, error)
}

type SubmissionStore interface {
	SaveSubmission(ctx context.Context, sub grading.Submission, res grading.SubmissionResult) error
	GetSubmission(ctx context.Context, id string) (grading.SubmissionResult, error)
	ApplyManualGrades(ctx context.Context, submissionID string, items map[string]grading.ManualGrade, eng *grading.Engine) (grading.SubmissionResult, error)
}

type Store interface {
	QuestionStore
	SubmissionStore
	EventsSince(ctx context.Context, after int64, limit int) ([]eventlog.Event, error)
	Ping(ctx context.Context) error
}

type Deps struct {
	Store       Store
	Batch       *grading.Batch
	Board       cache.ScoreBoard
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
	CORSOrigins []string
}

func NewRouter(d Deps) chi.Router {
	if d.Board == nil {
		d.Board = cache.Nop{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	eng := d.Batch.Engine

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/questions", func(qr chi.Router) {
		qr.Post("/validate", ValidateQuestionHandler())
		qr.Put("/{questionID}", PutQuestionHandler(d.Store))
		qr.Get("/{questionID}", GetQuestionHandler(d.Store))
		qr.Post("/{questionID}/evaluate", EvaluateHandler(d.Store, eng))
	})

	r.Route("/submissions", func(sr chi.Router) {
		sr.Post("/", SubmitHandler(d.Store, d.Batch, d.Board, d.Logger))
		sr.Get("/{submissionID}", GetSubmissionHandler(d.Store))
		sr.Post("/{submissionID}/manual-grades", ApplyManualGradesHandler(d.Store, eng, d.Board, d.Logger))
	})

	r.Get("/quizzes/{quizID}/leaderboard", LeaderboardHandler(d.Board))
	r.Get("/quizzes/{quizID}/learners/{learnerID}/rank", RankHandler(d.Board))
	r.Get("/events", EventsHandler(d.Store))

	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := d.Store.Ping(r.Context()); err != nil {
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})
	return r
}
