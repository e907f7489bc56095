package gridstore

import (
	"testing"
	"time"
)

func openTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	store, err := Open(t.TempDir(), Options{TTL: ttl})
	if err != nil {
		t.Fatalf("open gridstore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestUpsertAndLookup(t *testing.T) {
	store := openTestStore(t, time.Hour)
	now := time.Now().UTC()
	if err := store.Upsert("w3lpl", "FM19", now); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	grid, ok := store.Lookup("W3LPL")
	if !ok || grid != "FM19" {
		t.Fatalf("lookup returned %q ok=%v, want FM19", grid, ok)
	}
	if _, ok := store.Lookup("N0CALL"); ok {
		t.Fatalf("unknown call must miss")
	}
}

func TestLookupIgnoresExpiredRecords(t *testing.T) {
	store := openTestStore(t, time.Minute)
	stale := time.Now().UTC().Add(-2 * time.Minute)
	if err := store.Upsert("K9LA", "EN70", stale); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, ok := store.Lookup("K9LA"); ok {
		t.Fatalf("expired record must not be returned")
	}
}

func TestPurgeExpiredRemovesOnlyStale(t *testing.T) {
	store := openTestStore(t, time.Hour)
	now := time.Now().UTC()
	if err := store.Upsert("W3LPL", "FM19", now); err != nil {
		t.Fatalf("upsert fresh: %v", err)
	}
	if err := store.Upsert("K9LA", "EN70", now.Add(-2*time.Hour)); err != nil {
		t.Fatalf("upsert stale: %v", err)
	}
	removed, err := store.PurgeExpired(now)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 purged record, got %d", removed)
	}
	if _, ok := store.Lookup("W3LPL"); !ok {
		t.Fatalf("fresh record must survive purge")
	}
	entries, err := store.Entries()
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 remaining entry, got %d", len(entries))
	}
}

func TestUpsertIgnoresEmptyInput(t *testing.T) {
	store := openTestStore(t, time.Hour)
	if err := store.Upsert("", "FM19", time.Now()); err != nil {
		t.Fatalf("empty call should be a no-op, got %v", err)
	}
	if err := store.Upsert("W3LPL", "", time.Now()); err != nil {
		t.Fatalf("empty grid should be a no-op, got %v", err)
	}
	entries, err := store.Entries()
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty store, got %d entries", len(entries))
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	store, err := Open(t.TempDir(), Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("second close should be a no-op, got %v", err)
	}
}
