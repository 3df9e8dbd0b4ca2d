package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theceo1/trustbank-gateway/internal/models"
)

func newTestMemoryStore(t *testing.T) *MemoryStore {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	store := NewMemoryStore(logger)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testSession(userID string) *models.Session {
	now := time.Now()
	return &models.Session{
		AccessToken:  "at-" + userID,
		RefreshToken: "rt-" + userID,
		IssuedAt:     now.Unix(),
		ExpiresAt:    now.Add(time.Hour).Unix(),
		UserID:       userID,
	}
}

func TestMemoryStore_SessionRoundTrip(t *testing.T) {
	store := newTestMemoryStore(t)
	ctx := context.Background()

	if err := store.StoreSession(ctx, "user-1", testSession("user-1"), time.Hour); err != nil {
		t.Fatalf("StoreSession failed: %v", err)
	}

	got, err := store.GetSession(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.UserID != "user-1" || got.AccessToken != "at-user-1" {
		t.Errorf("Unexpected session: %+v", got)
	}
}

func TestMemoryStore_GetSessionMissing(t *testing.T) {
	store := newTestMemoryStore(t)

	_, err := store.GetSession(context.Background(), "nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_SessionTTLExpiry(t *testing.T) {
	store := newTestMemoryStore(t)
	ctx := context.Background()

	if err := store.StoreSession(ctx, "user-1", testSession("user-1"), 10*time.Millisecond); err != nil {
		t.Fatalf("StoreSession failed: %v", err)
	}

	if _, err := store.GetSession(ctx, "user-1"); err != nil {
		t.Fatalf("Session should be readable before expiry: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	// Expired items are invisible even before the cleanup tick removes them.
	if _, err := store.GetSession(ctx, "user-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after TTL, got %v", err)
	}
}

func TestMemoryStore_DeleteSession(t *testing.T) {
	store := newTestMemoryStore(t)
	ctx := context.Background()

	_ = store.StoreSession(ctx, "user-1", testSession("user-1"), time.Hour)

	if err := store.DeleteSession(ctx, "user-1"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, err := store.GetSession(ctx, "user-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}

	// Deleting a missing session is not an error.
	if err := store.DeleteSession(ctx, "ghost"); err != nil {
		t.Errorf("Deleting absent session: %v", err)
	}
}

func TestMemoryStore_SessionCountSkipsExpired(t *testing.T) {
	store := newTestMemoryStore(t)
	ctx := context.Background()

	_ = store.StoreSession(ctx, "live-1", testSession("live-1"), time.Hour)
	_ = store.StoreSession(ctx, "live-2", testSession("live-2"), time.Hour)
	_ = store.StoreSession(ctx, "dead", testSession("dead"), time.Millisecond)

	time.Sleep(10 * time.Millisecond)

	count, err := store.SessionCount(ctx)
	if err != nil {
		t.Fatalf("SessionCount failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 live sessions, got %d", count)
	}
}

func TestMemoryStore_TOTPSecretLifecycle(t *testing.T) {
	store := newTestMemoryStore(t)
	ctx := context.Background()

	if _, err := store.GetTOTPSecret(ctx, "user-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound before enrollment, got %v", err)
	}

	if err := store.StoreTOTPSecret(ctx, "user-1", "JBSWY3DPEHPK3PXP"); err != nil {
		t.Fatalf("StoreTOTPSecret failed: %v", err)
	}
	secret, err := store.GetTOTPSecret(ctx, "user-1")
	if err != nil || secret != "JBSWY3DPEHPK3PXP" {
		t.Fatalf("GetTOTPSecret = %q, %v", secret, err)
	}

	_ = store.ReplaceRecoveryCodes(ctx, "user-1", []string{"hash-a", "hash-b"})

	// Unenrolling removes the secret and the recovery codes together.
	if err := store.DeleteTOTPSecret(ctx, "user-1"); err != nil {
		t.Fatalf("DeleteTOTPSecret failed: %v", err)
	}
	if _, err := store.GetTOTPSecret(ctx, "user-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Secret survived delete: %v", err)
	}
	codes, err := store.GetRecoveryCodes(ctx, "user-1")
	if err != nil || codes != nil {
		t.Errorf("Recovery codes survived delete: %v, %v", codes, err)
	}
}

func TestMemoryStore_RecoveryCodesCopied(t *testing.T) {
	store := newTestMemoryStore(t)
	ctx := context.Background()

	original := []string{"hash-a", "hash-b", "hash-c"}
	_ = store.ReplaceRecoveryCodes(ctx, "user-1", original)

	// Mutating the caller's slice must not affect the store.
	original[0] = "tampered"

	got, err := store.GetRecoveryCodes(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetRecoveryCodes failed: %v", err)
	}
	if got[0] != "hash-a" {
		t.Error("Store shares backing array with the caller")
	}

	// And mutating the returned slice must not affect later reads.
	got[1] = "tampered"
	again, _ := store.GetRecoveryCodes(ctx, "user-1")
	if again[1] != "hash-b" {
		t.Error("Store shares backing array with readers")
	}
}

func TestMemoryStore_ReplaceOverwrites(t *testing.T) {
	store := newTestMemoryStore(t)
	ctx := context.Background()

	_ = store.ReplaceRecoveryCodes(ctx, "user-1", []string{"a", "b", "c"})
	_ = store.ReplaceRecoveryCodes(ctx, "user-1", []string{"b", "c"})

	got, _ := store.GetRecoveryCodes(ctx, "user-1")
	if len(got) != 2 {
		t.Errorf("Expected 2 codes after replace, got %d", len(got))
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := newTestMemoryStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			userID := testSession("user").UserID
			_ = store.StoreSession(ctx, userID, testSession("user"), time.Hour)
			_, _ = store.GetSession(ctx, userID)
			_, _ = store.SessionCount(ctx)
			_ = store.StoreTOTPSecret(ctx, userID, "secret")
			_, _ = store.GetTOTPSecret(ctx, userID)
		}(i)
	}
	wg.Wait()

	count, err := store.SessionCount(ctx)
	if err != nil || count != 1 {
		t.Errorf("Expected 1 session after concurrent writes, got %d, %v", count, err)
	}
}

func TestMemoryStore_PingAndClose(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	store := NewMemoryStore(logger)
	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
