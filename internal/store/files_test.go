package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"sealdrop/internal/models"
)

const testTTL = 7 * 24 * time.Hour

func testStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "sealdrop.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func seedUser(t *testing.T, st *Store, username, email string) *models.User {
	t.Helper()
	user, err := st.CreateUser(context.Background(), username, email, "$2a$10$hash", time.Now().UTC())
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func seedRecord(t *testing.T, st *Store, recipientID, token string, createdAt time.Time) *models.FileRecord {
	t.Helper()
	record := &models.FileRecord{
		ID:            "fr-" + token[:8],
		OriginalName:  "report.pdf",
		MimeType:      "application/pdf",
		ArtifactKey:   token + ".enc",
		UserSecret:    "aabbccddeeff0011",
		DownloadToken: token,
		RecipientID:   recipientID,
		CreatedAt:     createdAt,
	}
	if err := st.CreateFileRecord(context.Background(), record); err != nil {
		t.Fatalf("create record: %v", err)
	}
	return record
}

func testToken(fill string) string {
	return strings.Repeat(fill, 64/len(fill))
}

func TestCreateFileRecord_DuplicateToken(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	recipient := seedUser(t, st, "bob", "bob@example.com")
	now := time.Now().UTC()

	seedRecord(t, st, recipient.ID, testToken("a"), now)

	dup := &models.FileRecord{
		ID:            "fr-other",
		OriginalName:  "other.bin",
		MimeType:      "application/octet-stream",
		ArtifactKey:   "other.enc",
		UserSecret:    "secret",
		DownloadToken: testToken("a"),
		RecipientID:   recipient.ID,
		CreatedAt:     now,
	}
	if err := st.CreateFileRecord(ctx, dup); !errors.Is(err, ErrDuplicateToken) {
		t.Fatalf("expected ErrDuplicateToken, got %v", err)
	}
}

func TestFindPendingByToken(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	recipient := seedUser(t, st, "bob", "bob@example.com")
	now := time.Now().UTC()

	record := seedRecord(t, st, recipient.ID, testToken("b"), now)

	found, err := st.FindPendingByToken(ctx, record.DownloadToken, testTTL, now)
	if err != nil {
		t.Fatalf("find pending: %v", err)
	}
	if found == nil {
		t.Fatal("expected pending record")
	}
	if found.ID != record.ID || found.RecipientID != recipient.ID {
		t.Fatalf("unexpected record: %+v", found)
	}
	if found.IsDownloaded {
		t.Fatal("expected is_downloaded false")
	}

	missing, err := st.FindPendingByToken(ctx, testToken("c"), testTTL, now)
	if err != nil {
		t.Fatalf("find unknown token: %v", err)
	}
	if missing != nil {
		t.Fatal("expected nil for unknown token")
	}
}

func TestFindPendingByToken_ExcludesClaimed(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	recipient := seedUser(t, st, "bob", "bob@example.com")
	now := time.Now().UTC()

	record := seedRecord(t, st, recipient.ID, testToken("d"), now)

	won, err := st.ClaimFileRecord(ctx, record.ID)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !won {
		t.Fatal("expected first claim to win")
	}

	found, err := st.FindPendingByToken(ctx, record.DownloadToken, testTTL, now)
	if err != nil {
		t.Fatalf("find after claim: %v", err)
	}
	if found != nil {
		t.Fatal("claimed record must not be findable as pending")
	}
}

func TestFindPendingByToken_ExcludesExpired(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	recipient := seedUser(t, st, "bob", "bob@example.com")
	now := time.Now().UTC()

	record := seedRecord(t, st, recipient.ID, testToken("e"), now.Add(-testTTL-time.Minute))

	found, err := st.FindPendingByToken(ctx, record.DownloadToken, testTTL, now)
	if err != nil {
		t.Fatalf("find expired: %v", err)
	}
	if found != nil {
		t.Fatal("expired record must not authorize a claim")
	}

	// Without a TTL the same record is still retrievable.
	found, err = st.FindPendingByToken(ctx, record.DownloadToken, 0, now)
	if err != nil {
		t.Fatalf("find without ttl: %v", err)
	}
	if found == nil {
		t.Fatal("expected record when no ttl is configured")
	}
}

func TestClaimFileRecord_SecondClaimLoses(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	recipient := seedUser(t, st, "bob", "bob@example.com")
	record := seedRecord(t, st, recipient.ID, testToken("f"), time.Now().UTC())

	won, err := st.ClaimFileRecord(ctx, record.ID)
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if !won {
		t.Fatal("expected first claim to win")
	}

	won, err = st.ClaimFileRecord(ctx, record.ID)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if won {
		t.Fatal("second claim must lose, including for the original claimant")
	}
}

func TestClaimFileRecord_ConcurrentSingleWinner(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	recipient := seedUser(t, st, "bob", "bob@example.com")
	record := seedRecord(t, st, recipient.ID, testToken("ab"), time.Now().UTC())

	const attempts = 16
	var wg sync.WaitGroup
	wins := make(chan bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := st.ClaimFileRecord(ctx, record.ID)
			if err != nil {
				t.Errorf("claim: %v", err)
				return
			}
			wins <- won
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for won := range wins {
		if won {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winning claim, got %d", winners)
	}
}

func TestListPendingByRecipient(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	bob := seedUser(t, st, "bob", "bob@example.com")
	carol := seedUser(t, st, "carol", "carol@example.com")
	now := time.Now().UTC()

	older := seedRecord(t, st, bob.ID, testToken("1a"), now.Add(-2*time.Hour))
	newer := seedRecord(t, st, bob.ID, testToken("2b"), now.Add(-time.Hour))
	seedRecord(t, st, carol.ID, testToken("3c"), now)
	expired := seedRecord(t, st, bob.ID, testToken("4d"), now.Add(-testTTL-time.Hour))
	claimed := seedRecord(t, st, bob.ID, testToken("5e"), now)
	if _, err := st.ClaimFileRecord(ctx, claimed.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	pending, err := st.ListPendingByRecipient(ctx, bob.ID, testTTL, now)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending records, got %d", len(pending))
	}
	if pending[0].ID != newer.ID || pending[1].ID != older.ID {
		t.Fatalf("expected newest-first order, got %s then %s", pending[0].ID, pending[1].ID)
	}
	for _, record := range pending {
		if record.ID == expired.ID || record.ID == claimed.ID {
			t.Fatalf("unexpected record %s in pending list", record.ID)
		}
	}
}

func TestListExpiredAndDelete(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	bob := seedUser(t, st, "bob", "bob@example.com")
	now := time.Now().UTC()

	live := seedRecord(t, st, bob.ID, testToken("6f"), now)
	gone := seedRecord(t, st, bob.ID, testToken("7a"), now.Add(-testTTL-time.Hour))
	goneClaimed := seedRecord(t, st, bob.ID, testToken("8b"), now.Add(-2*testTTL))
	if _, err := st.ClaimFileRecord(ctx, goneClaimed.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	expired, err := st.ListExpired(ctx, testTTL, now, 0)
	if err != nil {
		t.Fatalf("list expired: %v", err)
	}
	if len(expired) != 2 {
		t.Fatalf("expected 2 expired records, got %d", len(expired))
	}
	if expired[0].ID != goneClaimed.ID || expired[1].ID != gone.ID {
		t.Fatalf("expected oldest-first order, got %s then %s", expired[0].ID, expired[1].ID)
	}
	for _, record := range expired {
		if record.ID == live.ID {
			t.Fatal("live record listed as expired")
		}
	}

	for _, record := range expired {
		if err := st.DeleteFileRecord(ctx, record.ID); err != nil {
			t.Fatalf("delete %s: %v", record.ID, err)
		}
	}
	remaining, err := st.GetFileRecord(ctx, gone.ID)
	if err != nil {
		t.Fatalf("get deleted: %v", err)
	}
	if remaining != nil {
		t.Fatal("expected record to be deleted")
	}
}

func TestListClaimed(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	bob := seedUser(t, st, "bob", "bob@example.com")
	now := time.Now().UTC()

	seedRecord(t, st, bob.ID, testToken("9c"), now)
	stuck := seedRecord(t, st, bob.ID, testToken("0d"), now)
	if _, err := st.ClaimFileRecord(ctx, stuck.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	claimed, err := st.ListClaimed(ctx)
	if err != nil {
		t.Fatalf("list claimed: %v", err)
	}
	if len(claimed) != 1 || claimed[0].ID != stuck.ID {
		t.Fatalf("expected only the stuck record, got %+v", claimed)
	}
}
