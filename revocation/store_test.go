package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := NewStore(rdb, Config{SweepInterval: 10 * time.Millisecond})
	t.Cleanup(store.Close)

	return store, mr
}

func TestRevokeAndLookupViaSharedStore(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	expiry := time.Now().Add(time.Hour)
	if err := store.Revoke(ctx, "jti-1", expiry); err != nil {
		t.Fatalf("Revoke error: %v", err)
	}

	if !store.IsRevoked(ctx, "jti-1") {
		t.Fatal("expected jti-1 to be revoked")
	}
	if store.IsRevoked(ctx, "jti-2") {
		t.Fatal("jti-2 must not be revoked")
	}
	if store.LocalLen() != 0 {
		t.Fatal("shared-store write must not create local entries")
	}
}

func TestRevokeIsIdempotent(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	expiry := time.Now().Add(time.Hour)
	if err := store.Revoke(ctx, "jti-1", expiry); err != nil {
		t.Fatalf("first Revoke error: %v", err)
	}
	if err := store.Revoke(ctx, "jti-1", expiry); err != nil {
		t.Fatalf("second Revoke error: %v", err)
	}
	if !store.IsRevoked(ctx, "jti-1") {
		t.Fatal("expected jti-1 to remain revoked")
	}
}

func TestEntriesExpireWithCredential(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	if err := store.Revoke(ctx, "jti-1", time.Now().Add(time.Second)); err != nil {
		t.Fatalf("Revoke error: %v", err)
	}
	if !store.IsRevoked(ctx, "jti-1") {
		t.Fatal("entry should exist before expiry")
	}

	mr.FastForward(2 * time.Second)

	if store.IsRevoked(ctx, "jti-1") {
		t.Fatal("entry must self-evict at credential expiry")
	}
}

func TestRevokingExpiredCredentialIsNoOp(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	if err := store.Revoke(ctx, "jti-1", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("Revoke error: %v", err)
	}
	if store.IsRevoked(ctx, "jti-1") {
		t.Fatal("already-expired credential must not produce an entry")
	}
	if store.LocalLen() != 0 {
		t.Fatal("no local entry expected")
	}
}

func TestFallbackWhenSharedStoreUnreachable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := NewStore(rdb, Config{StoreTimeout: 100 * time.Millisecond})
	t.Cleanup(store.Close)

	// Simulate outage before any write.
	mr.Close()

	ctx := context.Background()
	if err := store.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Revoke must not fail during outage: %v", err)
	}

	if !store.IsRevoked(ctx, "jti-1") {
		t.Fatal("local fallback must answer revocations taken on this instance")
	}
	if store.LocalLen() != 1 {
		t.Fatalf("expected one local entry, got %d", store.LocalLen())
	}
}

func TestDegradedConsistencyAcrossInstances(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	rdbA := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	rdbB := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdbA.Close(); _ = rdbB.Close() })

	instanceA := NewStore(rdbA, Config{StoreTimeout: 100 * time.Millisecond})
	instanceB := NewStore(rdbB, Config{StoreTimeout: 100 * time.Millisecond})
	t.Cleanup(instanceA.Close)
	t.Cleanup(instanceB.Close)

	mr.Close()

	ctx := context.Background()
	if err := instanceA.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Revoke error: %v", err)
	}

	if !instanceA.IsRevoked(ctx, "jti-1") {
		t.Fatal("revoking instance must see its own fallback entry")
	}
	// The documented degraded mode: other instances cannot see the entry
	// while the shared store is down.
	if instanceB.IsRevoked(ctx, "jti-1") {
		t.Fatal("independent instance should not share fallback state")
	}
}

func TestUnionSemantics(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	// Entry written by another instance directly into the shared store.
	mr.Set("rvk:remote", "1")
	mr.SetTTL("rvk:remote", time.Hour)

	if !store.IsRevoked(ctx, "remote") {
		t.Fatal("shared-store entries from other instances must be honored")
	}

	// Local entry with no shared-store counterpart stays authoritative.
	store.mu.Lock()
	store.local["local-only"] = time.Now().Add(time.Hour)
	store.mu.Unlock()

	if !store.IsRevoked(ctx, "local-only") {
		t.Fatal("local entries must be honored even when the shared store answers")
	}
}

func TestLocalSweepBoundsMemory(t *testing.T) {
	store := NewStore(nil, Config{SweepInterval: 5 * time.Millisecond})
	t.Cleanup(store.Close)

	ctx := context.Background()
	if err := store.Revoke(ctx, "jti-1", time.Now().Add(20*time.Millisecond)); err != nil {
		t.Fatalf("Revoke error: %v", err)
	}
	if store.LocalLen() != 1 {
		t.Fatalf("expected one local entry, got %d", store.LocalLen())
	}

	deadline := time.Now().Add(time.Second)
	for store.LocalLen() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("periodic sweep did not evict the expired entry")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCloseStopsSweep(t *testing.T) {
	store := NewStore(nil, Config{SweepInterval: 5 * time.Millisecond})
	store.Close()
	// Close must be idempotent and must not deadlock.
	store.Close()
}
