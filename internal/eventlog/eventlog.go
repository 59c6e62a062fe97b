package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const (
	TypeQuestionStored     = "QuestionStored"
	TypeResponseGraded     = "ResponseGraded"
	TypeSubmissionGraded   = "SubmissionGraded"
	TypeManualGradeApplied = "ManualGradeApplied"
)

type Event struct {
	Seq       int64  `json:"seq"`
	SiteID    string `json:"site_id"`
	Type      string `json:"type"`
	Key       string `json:"key"`
	DataJSON  string `json:"data"`
	CreatedAt int64  `json:"created_at"`
}

// Execer lets the repo write through a *sql.DB or a *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Repo struct {
	db     *sql.DB
	SiteID string
	Now    func() time.Time
}

func NewRepo(db *sql.DB) *Repo { return &Repo{db: db, SiteID: "local", Now: time.Now} }

// Append marshals data and writes one event through ex, or through the
// repo's DB when ex is nil.
func (r *Repo) Append(ctx context.Context, ex Execer, typ, key string, data any) error {
	if ex == nil {
		ex = r.db
	}
	buf, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", typ, err)
	}
	_, err = ex.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		r.SiteID, typ, key, string(buf), r.Now().Unix())
	return err
}

// Since returns up to limit events with seq greater than after, oldest first.
func (r *Repo) Since(ctx context.Context, after int64, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, site_id, typ, key, data, created_at FROM event_log
		 WHERE seq > $1 ORDER BY seq LIMIT $2`, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Seq, &e.SiteID, &e.Type, &e.Key, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
