package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"sealdrop/internal/artifact"
)

// putFailingStore refuses writes while still serving reads.
type putFailingStore struct {
	*artifact.MemoryStore
}

func (s *putFailingStore) Put(ctx context.Context, key string, r io.Reader) (int64, error) {
	return 0, fmt.Errorf("no space left on device")
}

func TestUpload_ArtifactWriteFailureLeavesNoRecord(t *testing.T) {
	env := newTestEnv(t)
	alice, _ := env.createUser(t, "alice", "alice@example.com")
	bob, _ := env.createUser(t, "bob", "bob@example.com")

	svc := NewUploadService(env.store, &putFailingStore{artifact.NewMemoryStore()},
		env.server.engine, env.notifier, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := svc.Upload(context.Background(), UploadInput{
		Uploader:          alice,
		RecipientUsername: "bob",
		OriginalName:      "report.pdf",
		MimeType:          "application/pdf",
		Content:           bytes.NewReader([]byte("payload")),
	})
	if err == nil {
		t.Fatal("expected upload to fail when the artifact cannot be written")
	}

	// The record inserted ahead of the write must have been rolled back.
	records, err := env.store.ListPendingByRecipient(context.Background(), bob.ID, 7*24*time.Hour, time.Now().UTC())
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no pending records, got %d", len(records))
	}
	if len(env.notifier.sent()) != 0 {
		t.Fatal("no secret mail must go out for a failed upload")
	}
}
