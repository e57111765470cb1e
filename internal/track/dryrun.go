package track

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// RecordCall remembers one CreateRecord invocation on a DryRun tracker.
type RecordCall struct {
	ID       string
	Title    string
	Body     string
	ParentID string
}

// SubmissionCall remembers one CreateArtifactSubmission invocation.
type SubmissionCall struct {
	ID         string
	Title      string
	BranchHint string
	Content    string
	RecordID   string
}

// DryRun is a Tracker with no side effects: ids are synthetic, every call is
// remembered for inspection, and every known submission counts as approved.
type DryRun struct {
	mu          sync.Mutex
	records     []RecordCall
	submissions []SubmissionCall
}

// NewDryRun creates an empty dry-run tracker.
func NewDryRun() *DryRun {
	return &DryRun{}
}

func (d *DryRun) CreateRecord(_ context.Context, title, body, parentID string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := fmt.Sprintf("dry-record-%s", shortID())
	d.records = append(d.records, RecordCall{ID: id, Title: title, Body: body, ParentID: parentID})
	return id, nil
}

func (d *DryRun) CreateArtifactSubmission(_ context.Context, title, branchHint, content, recordID string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := fmt.Sprintf("dry-submission-%s", shortID())
	d.submissions = append(d.submissions, SubmissionCall{
		ID:         id,
		Title:      title,
		BranchHint: branchHint,
		Content:    content,
		RecordID:   recordID,
	})
	return id, nil
}

func (d *DryRun) GetApprovalStatus(_ context.Context, submissionID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, s := range d.submissions {
		if s.ID == submissionID {
			return true, nil
		}
	}
	return false, &CollaboratorError{Op: "approval status", Err: fmt.Errorf("unknown submission %s", submissionID)}
}

// Records returns a copy of every record call seen so far, in order.
func (d *DryRun) Records() []RecordCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]RecordCall(nil), d.records...)
}

// Submissions returns a copy of every submission call seen so far, in order.
func (d *DryRun) Submissions() []SubmissionCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]SubmissionCall(nil), d.submissions...)
}

func shortID() string {
	return uuid.NewString()[:8]
}
