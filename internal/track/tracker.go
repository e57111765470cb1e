// Package track talks to work-item trackers: registering a record per subtask
// and submitting the composed artifact for review. Three implementations
// ship: DryRun for tests and --dry-run, Local for offline SQLite-backed runs,
// and GitHub against the REST API.
package track

import (
	"context"
	"fmt"
	"time"
)

// Tracker registers work items for a run and submits the composed artifact.
// Implementations must be safe for concurrent use.
type Tracker interface {
	// CreateRecord registers a work record and returns its id. parentID
	// links it under an existing record; empty means top-level.
	CreateRecord(ctx context.Context, title, body, parentID string) (string, error)

	// CreateArtifactSubmission submits composed content for review, linked
	// to recordID. Returns the submission id.
	CreateArtifactSubmission(ctx context.Context, title, branchHint, content, recordID string) (string, error)

	// GetApprovalStatus reports whether a submission has been approved.
	GetApprovalStatus(ctx context.Context, submissionID string) (bool, error)
}

// CollaboratorError is a tracker-side failure. The workflow treats it as a
// per-subtask problem, never a run-level one.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string { return fmt.Sprintf("tracker %s: %v", e.Op, e.Err) }

func (e *CollaboratorError) Unwrap() error { return e.Err }

// RateLimitError reports that the service refused a call until ResetAt. Its
// WaitUntil method lets the resilient wrapper sleep out the window instead of
// backing off blind.
type RateLimitError struct {
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited until %s", e.ResetAt.Format(time.RFC3339))
}

func (e *RateLimitError) WaitUntil() time.Time { return e.ResetAt }

// Compile-time interface verification.
var (
	_ Tracker = (*DryRun)(nil)
	_ Tracker = (*Local)(nil)
	_ Tracker = (*GitHub)(nil)
)
