package track

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Record is a stored work record.
type Record struct {
	ID        string
	Title     string
	Body      string
	ParentID  string
	CreatedAt time.Time
}

// Submission is a stored artifact submission.
type Submission struct {
	ID         string
	RecordID   string
	Title      string
	BranchHint string
	Content    string
	Approved   bool
	CreatedAt  time.Time
}

// Local is a Tracker backed by a SQLite registry file. Offline runs land
// their records here, and the status command reads the same file back.
type Local struct {
	db *sql.DB
}

// NewLocal opens the registry at dbPath, creating it if needed.
func NewLocal(dbPath string) (*Local, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open tracker registry: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			body TEXT,
			parent_id TEXT,
			created_at DATETIME
		);
		CREATE TABLE IF NOT EXISTS submissions (
			id TEXT PRIMARY KEY,
			record_id TEXT,
			title TEXT NOT NULL,
			branch_hint TEXT,
			content TEXT,
			approved INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create registry tables: %w", err)
	}

	return &Local{db: db}, nil
}

func (l *Local) CreateRecord(ctx context.Context, title, body, parentID string) (string, error) {
	if title == "" {
		return "", &CollaboratorError{Op: "create record", Err: fmt.Errorf("title cannot be empty")}
	}

	id := uuid.NewString()
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO records (id, title, body, parent_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, title, body, parentID, time.Now())
	if err != nil {
		return "", &CollaboratorError{Op: "create record", Err: err}
	}
	return id, nil
}

func (l *Local) CreateArtifactSubmission(ctx context.Context, title, branchHint, content, recordID string) (string, error) {
	if title == "" {
		return "", &CollaboratorError{Op: "create submission", Err: fmt.Errorf("title cannot be empty")}
	}

	id := uuid.NewString()
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO submissions (id, record_id, title, branch_hint, content, approved, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)
	`, id, recordID, title, branchHint, content, time.Now())
	if err != nil {
		return "", &CollaboratorError{Op: "create submission", Err: err}
	}
	return id, nil
}

func (l *Local) GetApprovalStatus(ctx context.Context, submissionID string) (bool, error) {
	row := l.db.QueryRowContext(ctx, `SELECT approved FROM submissions WHERE id = ?`, submissionID)

	var approved int
	err := row.Scan(&approved)
	if err == sql.ErrNoRows {
		return false, &CollaboratorError{Op: "approval status", Err: fmt.Errorf("unknown submission %s", submissionID)}
	}
	if err != nil {
		return false, &CollaboratorError{Op: "approval status", Err: err}
	}
	return approved != 0, nil
}

// Approve marks a submission approved. The hosted tracker gets this signal
// from the service; the local registry takes it explicitly.
func (l *Local) Approve(ctx context.Context, submissionID string) error {
	result, err := l.db.ExecContext(ctx, `UPDATE submissions SET approved = 1 WHERE id = ?`, submissionID)
	if err != nil {
		return &CollaboratorError{Op: "approve", Err: err}
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return &CollaboratorError{Op: "approve", Err: err}
	}
	if rows == 0 {
		return &CollaboratorError{Op: "approve", Err: fmt.Errorf("unknown submission %s", submissionID)}
	}
	return nil
}

// Records returns every stored record, oldest first.
func (l *Local) Records(ctx context.Context) ([]Record, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, title, body, parent_id, created_at
		FROM records ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Title, &r.Body, &r.ParentID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Submissions returns every stored submission, oldest first.
func (l *Local) Submissions(ctx context.Context) ([]Submission, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, record_id, title, branch_hint, content, approved, created_at
		FROM submissions ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var submissions []Submission
	for rows.Next() {
		var s Submission
		var approved int
		if err := rows.Scan(&s.ID, &s.RecordID, &s.Title, &s.BranchHint, &s.Content, &approved, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		s.Approved = approved != 0
		submissions = append(submissions, s)
	}
	return submissions, rows.Err()
}

// Close closes the registry.
func (l *Local) Close() error {
	return l.db.Close()
}
