package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-grading/internal/grading"
	"github.com/mind-engage/mindengage-grading/internal/question"
)

// POST /questions/validate
func ValidateQuestionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q question.Question
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			badRequest(w, "bad json: "+err.Error())
			return
		}
		writeJSON(w, http.StatusOK, grading.Validate(q))
	}
}

// PUT /questions/{questionID}
func PutQuestionHandler(store QuestionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "questionID"))
		var q question.Question
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			badRequest(w, "bad json: "+err.Error())
			return
		}
		if q.ID == "" {
			q.ID = id
		}
		if q.ID != id {
			badRequest(w, "question id in body does not match path")
			return
		}
		if err := store.PutQuestion(r.Context(), q); err != nil {
			writeError(w, "put question", err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

// GET /questions/{questionID}
func GetQuestionHandler(store QuestionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := store.GetQuestion(r.Context(), chi.URLParam(r, "questionID"))
		if err != nil {
			writeError(w, "get question", err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

type evaluateReq struct {
	Response question.Response   `json:"response"`
	Manual   *grading.ManualGrade `json:"manual_grade,omitempty"`
}

// POST /questions/{questionID}/evaluate
// Grades one response against the stored question without persisting it.
func EvaluateHandler(store QuestionStore, eng *grading.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := store.GetQuestion(r.Context(), chi.URLParam(r, "questionID"))
		if err != nil {
			writeError(w, "get question", err)
			return
		}
		var req evaluateReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "bad json: "+err.Error())
			return
		}
		if req.Response.QuestionID == "" {
			req.Response.QuestionID = q.ID
		}
		writeJSON(w, http.StatusOK, eng.Evaluate(q, req.Response, req.Manual))
	}
}
