package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"sealdrop/internal/api"
	"sealdrop/internal/models"
)

// backdateRecord plants a record (and its artifact) created in the past.
func backdateRecord(t *testing.T, env *testEnv, recipientID string, age time.Duration) *models.FileRecord {
	t.Helper()
	ctx := context.Background()

	token := strings.Repeat("e", 64)
	key := token + ".enc"
	if _, err := env.artifacts.Put(ctx, key, bytes.NewReader([]byte("old ciphertext"))); err != nil {
		t.Fatalf("put artifact: %v", err)
	}
	record := &models.FileRecord{
		ID:            uuid.New().String(),
		OriginalName:  "stale.txt",
		MimeType:      "text/plain",
		ArtifactKey:   key,
		UserSecret:    "aabbccddeeff0011",
		DownloadToken: token,
		RecipientID:   recipientID,
		CreatedAt:     time.Now().UTC().Add(-age),
	}
	if err := env.store.CreateFileRecord(ctx, record); err != nil {
		t.Fatalf("create record: %v", err)
	}
	return record
}

func TestDownload_ExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	bob, bobToken := env.createUser(t, "bob", "bob@example.com")

	record := backdateRecord(t, env, bob.ID, 8*24*time.Hour)

	rec := env.do(t, authed(httptest.NewRequest(http.MethodGet, "/v1/files/download-encrypted/"+record.DownloadToken, nil), bobToken))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expired token status: %d, want 404", rec.Code)
	}
}

func TestAdminSweep(t *testing.T) {
	env := newTestEnv(t)
	bob, _ := env.createUser(t, "bob", "bob@example.com")
	_, senderToken := env.createUser(t, "alice", "alice@example.com")

	expired := backdateRecord(t, env, bob.ID, 8*24*time.Hour)
	live := uploadFile(t, env, senderToken, "bob", "fresh.txt", []byte("fresh"))

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/sweep", nil)
	req.Header.Set(adminTokenHeader, "test-admin-token")
	rec := env.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("sweep status: %d body: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[api.SweepResponse](t, rec)
	if resp.RemovedRecords != 1 || resp.RemovedArtifacts != 1 {
		t.Fatalf("sweep response: %+v", resp)
	}

	ctx := context.Background()
	if exists, _ := env.artifacts.Exists(ctx, expired.ArtifactKey); exists {
		t.Fatal("expired artifact survived sweep")
	}
	if exists, _ := env.artifacts.Exists(ctx, live.DownloadToken+".enc"); !exists {
		t.Fatal("live artifact removed by sweep")
	}
	gone, err := env.store.GetFileRecord(ctx, expired.ID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if gone != nil {
		t.Fatal("expired record survived sweep")
	}
}

func TestAdminSweep_ReportsStuckRecords(t *testing.T) {
	env := newTestEnv(t)
	bob, _ := env.createUser(t, "bob", "bob@example.com")

	stuck := backdateRecord(t, env, bob.ID, time.Hour)
	won, err := env.store.ClaimFileRecord(context.Background(), stuck.ID)
	if err != nil || !won {
		t.Fatalf("claim: %v %v", won, err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/sweep", nil)
	req.Header.Set(adminTokenHeader, "test-admin-token")
	rec := env.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	resp := decodeBody[api.SweepResponse](t, rec)
	if len(resp.StuckRecords) != 1 || resp.StuckRecords[0] != stuck.ID {
		t.Fatalf("stuck records: %v", resp.StuckRecords)
	}
	// Reported, never reverted.
	got, err := env.store.GetFileRecord(context.Background(), stuck.ID)
	if err != nil || got == nil {
		t.Fatalf("get record: %v", err)
	}
	if !got.IsDownloaded {
		t.Fatal("stuck record must stay claimed")
	}
}

func TestAdminSweep_Forbidden(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/sweep", nil)
	req.Header.Set(adminTokenHeader, "wrong")
	if rec := env.do(t, req); rec.Code != http.StatusForbidden {
		t.Fatalf("wrong token status: %d", rec.Code)
	}

	if rec := env.do(t, httptest.NewRequest(http.MethodPost, "/v1/admin/sweep", nil)); rec.Code != http.StatusForbidden {
		t.Fatal("missing token must be forbidden")
	}
}
