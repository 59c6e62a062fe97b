package http

import (
	"encoding/json"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-grading/internal/cache"
	"github.com/mind-engage/mindengage-grading/internal/grading"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
	maxEventsLimit          = 100
)

type submitReq struct {
	grading.Submission
	QuestionIDs []string `json:"question_ids,omitempty"` // questions on the quiz, answered or not
}

// POST /submissions
func SubmitHandler(store Store, batch *grading.Batch, board cache.ScoreBoard, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "bad json: "+err.Error())
			return
		}
		sub := req.Submission
		if strings.TrimSpace(sub.QuizID) == "" || strings.TrimSpace(sub.LearnerID) == "" {
			badRequest(w, "quiz_id and learner_id are required")
			return
		}
		if sub.ID == "" {
			sub.ID = uuid.NewString()
		}

		ids := slices.Clone(req.QuestionIDs)
		for _, resp := range sub.Responses {
			ids = append(ids, resp.QuestionID)
		}
		slices.Sort(ids)
		ids = slices.Compact(ids)

		questions, err := store.GetQuestions(r.Context(), ids)
		if err != nil {
			writeError(w, "load questions", err)
			return
		}
		res, err := batch.GradeSubmission(r.Context(), questions, sub)
		if err != nil {
			writeError(w, "grade submission", err)
			return
		}
		if err := store.SaveSubmission(r.Context(), sub, res); err != nil {
			writeError(w, "save submission", err)
			return
		}
		recordScore(r, board, log, res)
		writeJSON(w, http.StatusCreated, res)
	}
}

// GET /submissions/{submissionID}
func GetSubmissionHandler(store SubmissionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := store.GetSubmission(r.Context(), chi.URLParam(r, "submissionID"))
		if err != nil {
			writeError(w, "get submission", err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// POST /submissions/{submissionID}/manual-grades
// Body: question_id -> grade.
func ApplyManualGradesHandler(store SubmissionStore, eng *grading.Engine, board cache.ScoreBoard, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subID := strings.TrimSpace(chi.URLParam(r, "submissionID"))
		var items map[string]grading.ManualGrade
		if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
			badRequest(w, "bad json: "+err.Error())
			return
		}
		if len(items) == 0 {
			badRequest(w, "no grades supplied")
			return
		}

		res, err := store.ApplyManualGrades(r.Context(), subID, items, eng)
		if err != nil {
			writeError(w, "apply grades", err)
			return
		}
		recordScore(r, board, log, res)
		writeJSON(w, http.StatusOK, res)
	}
}

// GET /quizzes/{quizID}/leaderboard?limit=n
func LeaderboardHandler(board cache.ScoreBoard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultLeaderboardLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				badRequest(w, "limit must be a positive integer")
				return
			}
			limit = min(n, maxLeaderboardLimit)
		}
		entries, err := board.Top(r.Context(), chi.URLParam(r, "quizID"), limit)
		if err != nil {
			writeError(w, "leaderboard", err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

// GET /quizzes/{quizID}/learners/{learnerID}/rank
func RankHandler(board cache.ScoreBoard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID, learnerID := chi.URLParam(r, "quizID"), chi.URLParam(r, "learnerID")
		rank, err := board.Rank(r.Context(), quizID, learnerID)
		if err != nil {
			writeError(w, "rank", err)
			return
		}
		if rank < 0 {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "no score recorded for " + learnerID})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"quiz_id": quizID, "learner_id": learnerID, "rank": rank})
	}
}

// GET /events?after=seq&limit=n
func EventsHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var after int64
		if v := q.Get("after"); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil || n < 0 {
				badRequest(w, "after must be a non-negative integer")
				return
			}
			after = n
		}
		limit := maxEventsLimit
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				badRequest(w, "limit must be a positive integer")
				return
			}
			limit = min(n, maxEventsLimit)
		}
		events, err := store.EventsSince(r.Context(), after, limit)
		if err != nil {
			writeError(w, "events", err)
			return
		}
		writeJSON(w, http.StatusOK, events)
	}
}

// recordScore updates the score board. The stored submission stays the
// source of truth, so failures are only logged.
func recordScore(r *http.Request, board cache.ScoreBoard, log *zap.Logger, res grading.SubmissionResult) {
	if err := board.Record(r.Context(), res.QuizID, res.LearnerID, res.Total); err != nil {
		log.Warn("score board update failed",
			zap.String("submission_id", res.SubmissionID),
			zap.String("quiz_id", res.QuizID),
			zap.Error(err))
	}
}
