package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/mind-engage/mindengage-grading/internal/eventlog"
	"github.com/mind-engage/mindengage-grading/internal/grading"
	"github.com/mind-engage/mindengage-grading/internal/question"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrQuestionLocked   = errors.New("question has graded responses and cannot be changed")
	ErrSubmissionExists = errors.New("submission already exists")
	ErrNotManual        = errors.New("response is not graded manually")
)

// SQLStore persists questions and graded submissions. Queries use $n
// placeholders so the same SQL runs on sqlite and postgres.
type SQLStore struct {
	db     *sql.DB
	events *eventlog.Repo
	now    func() time.Time
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, events: eventlog.NewRepo(db), now: time.Now}
}

// EventsSince pages through the event log, oldest first.
func (s *SQLStore) EventsSince(ctx context.Context, after int64, limit int) ([]eventlog.Event, error) {
	return s.events.Since(ctx, after, limit)
}

func (s *SQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// PutQuestion validates q and stores it. Re-storing an identical question is
// a no-op; changing a question that already has graded results fails with
// ErrQuestionLocked.
func (s *SQLStore) PutQuestion(ctx context.Context, q question.Question) error {
	if err := grading.Validate(q).Err(); err != nil {
		return err
	}
	body, err := json.Marshal(q)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRowContext(ctx, `SELECT body_json FROM questions WHERE id=$1`, q.ID).Scan(&existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		existing = ""
	case err != nil:
		return err
	case existing == string(body):
		return nil
	}

	if existing != "" {
		var used int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM results WHERE question_id=$1 LIMIT 1`, q.ID).Scan(&used)
		if err == nil {
			return fmt.Errorf("question %s: %w", q.ID, ErrQuestionLocked)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
	}

	now := s.now().Unix()
	if _, err := tx.ExecContext(ctx, `INSERT INTO questions (id,type,body_json,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET type=EXCLUDED.type, body_json=EXCLUDED.body_json, updated_at=EXCLUDED.updated_at`,
		q.ID, string(q.Type), string(body), now, now); err != nil {
		return err
	}
	if err := s.events.Append(ctx, tx, eventlog.TypeQuestionStored, q.ID, q); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLStore) GetQuestion(ctx context.Context, id string) (question.Question, error) {
	return getQuestion(ctx, s.db, id)
}

func getQuestion(ctx context.Context, q querier, id string) (question.Question, error) {
	var body string
	err := q.QueryRowContext(ctx, `SELECT body_json FROM questions WHERE id=$1`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return question.Question{}, fmt.Errorf("question %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return question.Question{}, err
	}
	var out question.Question
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return question.Question{}, err
	}
	return out, nil
}

// GetQuestions loads the questions with the given ids. Unknown ids are
// left out of the result.
func (s *SQLStore) GetQuestions(ctx context.Context, ids []string) (map[string]question.Question, error) {
	out := make(map[string]question.Question, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	ph := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		ph[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, body_json FROM questions WHERE id IN (`+strings.Join(ph, ",")+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, err
		}
		var q question.Question
		if err := json.Unmarshal([]byte(body), &q); err != nil {
			return nil, fmt.Errorf("question %s: %w", id, err)
		}
		out[id] = q
	}
	return out, rows.Err()
}

// SaveSubmission stores a graded submission together with the responses it
// was graded from, and appends one ResponseGraded event per result plus a
// SubmissionGraded event.
func (s *SQLStore) SaveSubmission(ctx context.Context, sub grading.Submission, res grading.SubmissionResult) error {
	responses := make(map[string]question.Response, len(sub.Responses))
	for _, r := range sub.Responses {
		responses[r.QuestionID] = r
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM submissions WHERE id=$1`, res.SubmissionID).Scan(&exists)
	if err == nil {
		return fmt.Errorf("submission %s: %w", res.SubmissionID, ErrSubmissionExists)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO submissions
		(id,quiz_id,learner_id,total,max_total,pending_manual,errors,graded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		res.SubmissionID, res.QuizID, res.LearnerID, res.Total, res.MaxTotal,
		res.PendingManual, res.Errors, res.GradedAt.Unix()); err != nil {
		return err
	}

	for i, r := range res.Results {
		resp, ok := responses[r.QuestionID]
		if !ok {
			resp = question.Response{QuestionID: r.QuestionID}
		}
		if err := s.insertResult(ctx, tx, res.SubmissionID, i, resp, r); err != nil {
			return err
		}
		if err := s.events.Append(ctx, tx, eventlog.TypeResponseGraded, res.SubmissionID+"/"+r.QuestionID, r); err != nil {
			return err
		}
	}
	if err := s.events.Append(ctx, tx, eventlog.TypeSubmissionGraded, res.SubmissionID, totals(res)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLStore) insertResult(ctx context.Context, tx *sql.Tx, subID string, pos int, resp question.Response, r grading.EvaluationResult) error {
	respJSON, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	resJSON, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO results
		(submission_id,question_id,position,status,score,max_score,response_json,result_json,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		subID, r.QuestionID, pos, string(r.Status), nullScore(r.Score), r.MaxScore,
		string(respJSON), string(resJSON), s.now().Unix())
	return err
}

func (s *SQLStore) GetSubmission(ctx context.Context, id string) (grading.SubmissionResult, error) {
	return getSubmission(ctx, s.db, id)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getSubmission(ctx context.Context, q querier, id string) (grading.SubmissionResult, error) {
	var res grading.SubmissionResult
	var gradedAt int64
	err := q.QueryRowContext(ctx, `SELECT id,quiz_id,learner_id,total,max_total,pending_manual,errors,graded_at
		FROM submissions WHERE id=$1`, id).
		Scan(&res.SubmissionID, &res.QuizID, &res.LearnerID, &res.Total, &res.MaxTotal,
			&res.PendingManual, &res.Errors, &gradedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return grading.SubmissionResult{}, fmt.Errorf("submission %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return grading.SubmissionResult{}, err
	}
	res.GradedAt = time.Unix(gradedAt, 0).UTC()

	rows, err := q.QueryContext(ctx, `SELECT result_json FROM results WHERE submission_id=$1 ORDER BY position`, id)
	if err != nil {
		return grading.SubmissionResult{}, err
	}
	defer rows.Close()
	res.Results = []grading.EvaluationResult{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return grading.SubmissionResult{}, err
		}
		var r grading.EvaluationResult
		if err := json.Unmarshal([]byte(body), &r); err != nil {
			return grading.SubmissionResult{}, err
		}
		res.Results = append(res.Results, r)
	}
	return res, rows.Err()
}

// ApplyManualGrade re-grades one manually graded response of a stored
// submission with mg and refreshes the submission totals.
func (s *SQLStore) ApplyManualGrade(ctx context.Context, submissionID, questionID string, mg grading.ManualGrade, eng *grading.Engine) (grading.SubmissionResult, error) {
	return s.ApplyManualGrades(ctx, submissionID, map[string]grading.ManualGrade{questionID: mg}, eng)
}

// ApplyManualGrades applies every grade in items (question id -> grade) in
// one transaction. All items are checked before anything is written, so a
// bad item leaves the submission unchanged.
func (s *SQLStore) ApplyManualGrades(ctx context.Context, submissionID string, items map[string]grading.ManualGrade, eng *grading.Engine) (grading.SubmissionResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return grading.SubmissionResult{}, err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM submissions WHERE id=$1`, submissionID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return grading.SubmissionResult{}, fmt.Errorf("submission %s: %w", submissionID, ErrNotFound)
	}
	if err != nil {
		return grading.SubmissionResult{}, err
	}

	type regrade struct {
		questionID string
		grade      grading.ManualGrade
		result     grading.EvaluationResult
	}
	plan := make([]regrade, 0, len(items))
	for _, qid := range slices.Sorted(maps.Keys(items)) {
		r, err := s.regradeOne(ctx, tx, submissionID, qid, items[qid], eng)
		if err != nil {
			return grading.SubmissionResult{}, err
		}
		plan = append(plan, regrade{qid, items[qid], r})
	}

	for _, p := range plan {
		resJSON, err := json.Marshal(p.result)
		if err != nil {
			return grading.SubmissionResult{}, err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE results SET status=$1, score=$2, result_json=$3, updated_at=$4
			WHERE submission_id=$5 AND question_id=$6`,
			string(p.result.Status), nullScore(p.result.Score), string(resJSON), s.now().Unix(), submissionID, p.questionID); err != nil {
			return grading.SubmissionResult{}, err
		}
		event := struct {
			Grade  grading.ManualGrade      `json:"grade"`
			Result grading.EvaluationResult `json:"result"`
		}{p.grade, p.result}
		if err := s.events.Append(ctx, tx, eventlog.TypeManualGradeApplied, submissionID+"/"+p.questionID, event); err != nil {
			return grading.SubmissionResult{}, err
		}
	}

	res, err := getSubmission(ctx, tx, submissionID)
	if err != nil {
		return grading.SubmissionResult{}, err
	}
	res.Recompute()
	if _, err := tx.ExecContext(ctx, `UPDATE submissions SET total=$1, max_total=$2, pending_manual=$3, errors=$4
		WHERE id=$5`, res.Total, res.MaxTotal, res.PendingManual, res.Errors, submissionID); err != nil {
		return grading.SubmissionResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return grading.SubmissionResult{}, err
	}
	return res, nil
}

// regradeOne evaluates the stored response to questionID with mg without
// writing anything.
func (s *SQLStore) regradeOne(ctx context.Context, tx *sql.Tx, submissionID, questionID string, mg grading.ManualGrade, eng *grading.Engine) (grading.EvaluationResult, error) {
	q, err := getQuestion(ctx, tx, questionID)
	if err != nil {
		return grading.EvaluationResult{}, err
	}
	if !q.Type.Manual() {
		return grading.EvaluationResult{}, fmt.Errorf("question %s (%s): %w", questionID, q.Type, ErrNotManual)
	}

	var respJSON string
	err = tx.QueryRowContext(ctx, `SELECT response_json FROM results WHERE submission_id=$1 AND question_id=$2`,
		submissionID, questionID).Scan(&respJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return grading.EvaluationResult{}, fmt.Errorf("result %s/%s: %w", submissionID, questionID, ErrNotFound)
	}
	if err != nil {
		return grading.EvaluationResult{}, err
	}
	var resp question.Response
	if err := json.Unmarshal([]byte(respJSON), &resp); err != nil {
		return grading.EvaluationResult{}, err
	}
	return eng.Evaluate(q, resp, &mg), nil
}

func nullScore(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

type submissionTotals struct {
	QuizID        string  `json:"quiz_id"`
	LearnerID     string  `json:"learner_id"`
	Total         float64 `json:"total"`
	MaxTotal      float64 `json:"max_total"`
	PendingManual int     `json:"pending_manual"`
	Errors        int     `json:"errors"`
}

func totals(res grading.SubmissionResult) submissionTotals {
	return submissionTotals{
		QuizID:        res.QuizID,
		LearnerID:     res.LearnerID,
		Total:         res.Total,
		MaxTotal:      res.MaxTotal,
		PendingManual: res.PendingManual,
		Errors:        res.Errors,
	}
}
