package state

import (
	"context"
	"errors"
	"fmt"
	"testing"

	contractx "github.com/Jamesonkanakulya/appointment-agent/agent/contract"
)

func messageSeq(n int) []contractx.Message {
	out := make([]contractx.Message, 0, n)
	for i := range n {
		out = append(out, contractx.Message{Role: contractx.RoleUser, Content: fmt.Sprintf("msg-%d", i)})
	}
	return out
}

func TestTruncateKeepsMostRecent(t *testing.T) {
	t.Parallel()

	msgs := messageSeq(45)
	got := Truncate(msgs, MaxMessages)
	if len(got) != MaxMessages {
		t.Fatalf("len = %d, want %d", len(got), MaxMessages)
	}
	if got[0].Content != "msg-5" {
		t.Fatalf("oldest surviving message = %q, want msg-5", got[0].Content)
	}
	if got[len(got)-1].Content != "msg-44" {
		t.Fatalf("newest message = %q, want msg-44", got[len(got)-1].Content)
	}
}

func TestTruncateNoopBelowLimit(t *testing.T) {
	t.Parallel()

	msgs := messageSeq(3)
	got := Truncate(msgs, MaxMessages)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Load(ctx, "t1", "s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}

	sess := &Session{TenantID: "t1", SessionID: "s1", Messages: messageSeq(2)}
	if err := store.Save(ctx, sess); err != nil {
		t.Fatal(err)
	}

	got, err := store.Load(ctx, "t1", "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("len = %d, want 2", len(got.Messages))
	}

	// The store must hand out copies, not aliases.
	got.Messages[0].Content = "mutated"
	again, err := store.Load(ctx, "t1", "s1")
	if err != nil {
		t.Fatal(err)
	}
	if again.Messages[0].Content != "msg-0" {
		t.Fatal("loaded session aliases stored messages")
	}
}

func TestMemoryStoreSaveUpserts(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Save(ctx, &Session{TenantID: "t1", SessionID: "s1", Messages: messageSeq(1)}); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(ctx, &Session{TenantID: "t1", SessionID: "s1", Messages: messageSeq(5)}); err != nil {
		t.Fatal(err)
	}

	got, err := store.Load(ctx, "t1", "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Messages) != 5 {
		t.Fatalf("last write must win, len = %d", len(got.Messages))
	}
}

func TestMemoryStoreRejectsEmptyIdentity(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Save(ctx, &Session{TenantID: "", SessionID: "s1"}); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
	if err := store.Save(ctx, nil); !errors.Is(err, ErrNilSession) {
		t.Fatalf("expected ErrNilSession, got %v", err)
	}
	if _, err := store.Load(ctx, "t1", "  "); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}

func TestSessionsIsolatedByTenant(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Save(ctx, &Session{TenantID: "t1", SessionID: "shared", Messages: messageSeq(1)}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load(ctx, "t2", "shared"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("session leaked across tenants: %v", err)
	}
}
