package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-grading/internal/db"
	"github.com/mind-engage/mindengage-grading/internal/eventlog"
	"github.com/mind-engage/mindengage-grading/internal/grading"
	"github.com/mind-engage/mindengage-grading/internal/question"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	conn, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })

	s := NewSQLStore(conn)
	s.now = func() time.Time { return time.Unix(1700000000, 0) }
	return s
}

func choice() question.Question {
	return question.Question{
		ID:     "q-mcq",
		Type:   question.TypeMCQ,
		Prompt: "2 + 2 = ?",
		Marks:  2,
		Payload: question.ChoicePayload{
			Options:          []question.Option{{ID: "a", Text: "3"}, {ID: "b", Text: "4"}},
			CorrectOptionIDs: []string{"b"},
		},
	}
}

func essay() question.Question {
	return question.Question{
		ID:      "q-essay",
		Type:    question.TypeDescriptive,
		Prompt:  "Explain photosynthesis",
		Marks:   5,
		Payload: question.DescriptivePayload{Keywords: []string{"light"}},
	}
}

// gradeAndSave grades a two-question submission and stores it.
func gradeAndSave(t *testing.T, s *SQLStore, subID string) (grading.Submission, grading.SubmissionResult) {
	t.Helper()
	ctx := context.Background()
	for _, q := range []question.Question{choice(), essay()} {
		if err := s.PutQuestion(ctx, q); err != nil {
			t.Fatalf("PutQuestion(%s): %v", q.ID, err)
		}
	}
	qs, err := s.GetQuestions(ctx, []string{"q-mcq", "q-essay"})
	if err != nil {
		t.Fatalf("GetQuestions: %v", err)
	}
	sub := grading.Submission{
		ID:        subID,
		QuizID:    "quiz-1",
		LearnerID: "learner-1",
		Responses: []question.Response{
			{QuestionID: "q-mcq", SelectedOptionIDs: []string{"b"}},
			{QuestionID: "q-essay", Text: "Plants use light to make sugar"},
		},
	}
	b := &grading.Batch{Engine: grading.NewEngine(), Workers: 2}
	res, err := b.GradeSubmission(ctx, qs, sub)
	if err != nil {
		t.Fatalf("GradeSubmission: %v", err)
	}
	if err := s.SaveSubmission(ctx, sub, res); err != nil {
		t.Fatalf("SaveSubmission: %v", err)
	}
	return sub, res
}

func TestPutAndGetQuestion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.PutQuestion(ctx, choice()); err != nil {
		t.Fatalf("PutQuestion: %v", err)
	}
	got, err := s.GetQuestion(ctx, "q-mcq")
	if err != nil {
		t.Fatalf("GetQuestion: %v", err)
	}
	p, ok := got.Payload.(question.ChoicePayload)
	if !ok || got.Type != question.TypeMCQ || got.Marks != 2 {
		t.Fatalf("round trip lost data: %+v", got)
	}
	if len(p.Options) != 2 || p.CorrectOptionIDs[0] != "b" {
		t.Fatalf("payload = %+v", p)
	}

	if _, err := s.GetQuestion(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing question err = %v, want ErrNotFound", err)
	}
}

func TestPutQuestionRejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	q := choice()
	q.Prompt = "<p></p>"
	q.Marks = 0

	err := s.PutQuestion(context.Background(), q)
	var verrs grading.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("err = %v, want ValidationErrors", err)
	}
	if len(verrs) != 2 {
		t.Fatalf("got %d errors, want 2: %v", len(verrs), verrs)
	}
}

func TestPutQuestionLockedAfterGrading(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	q := choice()
	if err := s.PutQuestion(ctx, q); err != nil {
		t.Fatal(err)
	}
	q.Marks = 3
	if err := s.PutQuestion(ctx, q); err != nil {
		t.Fatalf("edit before grading should succeed: %v", err)
	}

	gradeAndSave(t, s, "sub-1")

	if err := s.PutQuestion(ctx, choice()); err != nil {
		t.Fatalf("identical re-put should succeed: %v", err)
	}
	q = choice()
	q.Prompt = "2 + 3 = ?"
	if err := s.PutQuestion(ctx, q); !errors.Is(err, ErrQuestionLocked) {
		t.Fatalf("err = %v, want ErrQuestionLocked", err)
	}
}

func TestGetQuestionsSkipsUnknown(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.PutQuestion(ctx, choice()); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetQuestions(ctx, []string{"q-mcq", "nope"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got["q-mcq"].ID != "q-mcq" {
		t.Fatalf("got %v", got)
	}
	empty, err := s.GetQuestions(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty ids: %v %v", empty, err)
	}
}

func TestSaveAndGetSubmission(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, res := gradeAndSave(t, s, "sub-1")

	got, err := s.GetSubmission(ctx, "sub-1")
	if err != nil {
		t.Fatalf("GetSubmission: %v", err)
	}
	if got.Total != res.Total || got.MaxTotal != 7 || got.PendingManual != 1 {
		t.Fatalf("totals = %+v", got)
	}
	if len(got.Results) != 2 || got.Results[0].QuestionID != "q-mcq" || got.Results[1].QuestionID != "q-essay" {
		t.Fatalf("results out of order: %+v", got.Results)
	}
	if got.Results[1].Status != grading.StatusNeedsManualReview {
		t.Fatalf("essay status = %s", got.Results[1].Status)
	}

	sub := grading.Submission{ID: "sub-1"}
	if err := s.SaveSubmission(ctx, sub, res); !errors.Is(err, ErrSubmissionExists) {
		t.Fatalf("duplicate save err = %v", err)
	}
	if _, err := s.GetSubmission(ctx, "sub-x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing submission err = %v", err)
	}

	events, err := s.EventsSince(ctx, 0, 50)
	if err != nil {
		t.Fatal(err)
	}
	counts := map[string]int{}
	for _, e := range events {
		counts[e.Type]++
	}
	if counts[eventlog.TypeResponseGraded] != 2 || counts[eventlog.TypeSubmissionGraded] != 1 || counts[eventlog.TypeQuestionStored] != 2 {
		t.Fatalf("event counts = %v", counts)
	}
}

func TestApplyManualGrade(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	gradeAndSave(t, s, "sub-1")
	eng := grading.NewEngine()

	points := 4.0
	res, err := s.ApplyManualGrade(ctx, "sub-1", "q-essay", grading.ManualGrade{Points: &points, GradedBy: "t1"}, eng)
	if err != nil {
		t.Fatalf("ApplyManualGrade: %v", err)
	}
	if res.Total != 6 || res.PendingManual != 0 {
		t.Fatalf("after manual grade: total=%v pending=%d", res.Total, res.PendingManual)
	}

	stored, err := s.GetSubmission(ctx, "sub-1")
	if err != nil {
		t.Fatal(err)
	}
	if stored.Total != 6 || *stored.Results[1].Score != 4 {
		t.Fatalf("stored = %+v", stored)
	}

	// Regrading replaces the earlier manual score.
	points = 9
	res, err = s.ApplyManualGrade(ctx, "sub-1", "q-essay", grading.ManualGrade{Points: &points}, eng)
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 7 {
		t.Fatalf("clamped regrade total = %v, want 7", res.Total)
	}
}

func TestApplyManualGradeErrors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	gradeAndSave(t, s, "sub-1")
	eng := grading.NewEngine()
	points := 1.0
	mg := grading.ManualGrade{Points: &points}

	if _, err := s.ApplyManualGrade(ctx, "sub-1", "q-mcq", mg, eng); !errors.Is(err, ErrNotManual) {
		t.Fatalf("auto-graded question err = %v", err)
	}
	if _, err := s.ApplyManualGrade(ctx, "sub-2", "q-essay", mg, eng); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing submission err = %v", err)
	}
	if _, err := s.ApplyManualGrade(ctx, "sub-1", "q-none", mg, eng); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing question err = %v", err)
	}
}

func TestApplyManualGradesIsAllOrNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, saved := gradeAndSave(t, s, "sub-1")
	eng := grading.NewEngine()
	four, one := 4.0, 1.0

	_, err := s.ApplyManualGrades(ctx, "sub-1", map[string]grading.ManualGrade{
		"q-essay": {Points: &four},
		"zz":      {Points: &one},
	}, eng)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	stored, err := s.GetSubmission(ctx, "sub-1")
	if err != nil {
		t.Fatal(err)
	}
	if stored.Total != saved.Total || stored.PendingManual != 1 {
		t.Fatalf("rejected batch changed the submission: total=%v pending=%d", stored.Total, stored.PendingManual)
	}
	if stored.Results[1].Score != nil {
		t.Fatalf("essay score = %v, want none", *stored.Results[1].Score)
	}
	events, err := s.EventsSince(ctx, 0, 50)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range events {
		if e.Type == eventlog.TypeManualGradeApplied {
			t.Fatalf("rejected batch appended %+v", e)
		}
	}

	// The same grades without the bad item go through together.
	res, err := s.ApplyManualGrades(ctx, "sub-1", map[string]grading.ManualGrade{"q-essay": {Points: &four}}, eng)
	if err != nil {
		t.Fatalf("ApplyManualGrades: %v", err)
	}
	if res.Total != 6 || res.PendingManual != 0 {
		t.Fatalf("total=%v pending=%d", res.Total, res.PendingManual)
	}
}
