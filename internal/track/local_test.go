package track

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openLocal(t *testing.T) *Local {
	t.Helper()
	l, err := NewLocal(filepath.Join(t.TempDir(), "tracker.db"))
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLocal_RecordRoundtrip(t *testing.T) {
	ctx := context.Background()
	l := openLocal(t)

	parentID, err := l.CreateRecord(ctx, "Build the widget", "overall task", "")
	if err != nil {
		t.Fatalf("CreateRecord() error = %v", err)
	}
	if _, err := l.CreateRecord(ctx, "Design the API", "subtask", parentID); err != nil {
		t.Fatalf("CreateRecord() error = %v", err)
	}

	records, err := l.Records(ctx)
	if err != nil {
		t.Fatalf("Records() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	byTitle := map[string]Record{}
	for _, r := range records {
		byTitle[r.Title] = r
	}
	child, ok := byTitle["Design the API"]
	if !ok {
		t.Fatal("child record not stored")
	}
	if child.ParentID != parentID || child.Body != "subtask" {
		t.Errorf("child = %+v", child)
	}
}

func TestLocal_EmptyTitleRejected(t *testing.T) {
	ctx := context.Background()
	l := openLocal(t)

	_, err := l.CreateRecord(ctx, "", "body", "")
	var collabErr *CollaboratorError
	if !errors.As(err, &collabErr) {
		t.Errorf("error = %v, want CollaboratorError", err)
	}
}

func TestLocal_SubmissionApprovalFlow(t *testing.T) {
	ctx := context.Background()
	l := openLocal(t)

	id, err := l.CreateArtifactSubmission(ctx, "Composed result", "psolve/run-1", "the content", "rec-1")
	if err != nil {
		t.Fatalf("CreateArtifactSubmission() error = %v", err)
	}

	approved, err := l.GetApprovalStatus(ctx, id)
	if err != nil {
		t.Fatalf("GetApprovalStatus() error = %v", err)
	}
	if approved {
		t.Error("new submission should start unapproved")
	}

	if err := l.Approve(ctx, id); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}

	approved, err = l.GetApprovalStatus(ctx, id)
	if err != nil {
		t.Fatalf("GetApprovalStatus() error = %v", err)
	}
	if !approved {
		t.Error("submission should be approved after Approve")
	}

	subs, err := l.Submissions(ctx)
	if err != nil {
		t.Fatalf("Submissions() error = %v", err)
	}
	if len(subs) != 1 || !subs[0].Approved || subs[0].Content != "the content" {
		t.Errorf("submissions = %+v", subs)
	}
}

func TestLocal_UnknownSubmission(t *testing.T) {
	ctx := context.Background()
	l := openLocal(t)

	var collabErr *CollaboratorError
	if _, err := l.GetApprovalStatus(ctx, "missing"); !errors.As(err, &collabErr) {
		t.Errorf("GetApprovalStatus error = %v, want CollaboratorError", err)
	}
	if err := l.Approve(ctx, "missing"); !errors.As(err, &collabErr) {
		t.Errorf("Approve error = %v, want CollaboratorError", err)
	}
}
