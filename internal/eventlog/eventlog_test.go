package eventlog

import (
	"context"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-grading/internal/db"
)

func TestAppendAndSince(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(ctx, db.DriverSQLite, "file:eventlog_test?mode=memory&cache=shared")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	repo := NewRepo(conn)
	repo.Now = func() time.Time { return time.Unix(1700000000, 0) }

	for i, typ := range []string{TypeQuestionStored, TypeResponseGraded, TypeSubmissionGraded} {
		if err := repo.Append(ctx, nil, typ, "k", map[string]int{"n": i}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	all, err := repo.Since(ctx, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].Type != TypeQuestionStored || all[2].DataJSON != `{"n":2}` {
		t.Fatalf("events = %+v", all)
	}
	if all[0].SiteID != "local" || all[0].CreatedAt != 1700000000 {
		t.Fatalf("defaults not applied: %+v", all[0])
	}

	tail, err := repo.Since(ctx, all[0].Seq, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(tail) != 1 || tail[0].Seq != all[1].Seq {
		t.Fatalf("tail = %+v", tail)
	}

	if err := repo.Append(ctx, nil, "Bad", "k", func() {}); err == nil {
		t.Fatal("unencodable payload accepted")
	}
}
