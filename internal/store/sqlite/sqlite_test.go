package sqlite

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "timelog.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestWriteReadDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	path := "users/u1/days/2024-01-01/activities/a1"

	snap, err := s.Read(ctx, path)
	if err != nil {
		t.Fatalf("read absent: %v", err)
	}
	if snap.Exists() {
		t.Fatalf("absent node must not exist")
	}

	value := map[string]any{"name": "Gym", "category": "Exercise", "duration": 60}
	if err := s.Write(ctx, path, value); err != nil {
		t.Fatalf("write: %v", err)
	}

	snap, err = s.Read(ctx, path)
	if err != nil || !snap.Exists() {
		t.Fatalf("expected stored node (err=%v)", err)
	}
	var got struct {
		Name     string `json:"name"`
		Duration int    `json:"duration"`
	}
	if err := snap.Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Name != "Gym" || got.Duration != 60 {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	if err := s.Delete(ctx, path); err != nil {
		t.Fatalf("delete: %v", err)
	}
	snap, _ = s.Read(ctx, path)
	if snap.Exists() {
		t.Fatalf("deleted node must not exist")
	}
	if err := s.Delete(ctx, path); err != nil {
		t.Fatalf("repeat delete must be a no-op: %v", err)
	}
}

func TestSubtreeAssembly(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := "users/u1/days/2024-01-01/activities"

	for id, minutes := range map[string]int{"a1": 480, "a2": 960} {
		if err := s.Write(ctx, base+"/"+id, map[string]int{"duration": minutes}); err != nil {
			t.Fatalf("write %s: %v", id, err)
		}
	}

	snap, err := s.Read(ctx, base)
	if err != nil || !snap.Exists() {
		t.Fatalf("expected subtree (err=%v)", err)
	}
	var children map[string]struct {
		Duration int `json:"duration"`
	}
	if err := snap.Decode(&children); err != nil {
		t.Fatalf("decode subtree: %v", err)
	}
	if len(children) != 2 || children["a1"].Duration != 480 || children["a2"].Duration != 960 {
		t.Fatalf("unexpected subtree: %+v", children)
	}

	if err := s.Delete(ctx, base); err != nil {
		t.Fatalf("delete subtree: %v", err)
	}
	snap, _ = s.Read(ctx, base+"/a2")
	if snap.Exists() {
		t.Fatalf("descendant should be gone after subtree delete")
	}
}

func TestLikePrefixEscaping(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// An underscore in a sibling path must not match as a LIKE wildcard.
	if err := s.Write(ctx, "auth/emails/a_b/uid", "u1"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.Write(ctx, "auth/emails/axb/uid", "u2"); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := s.Delete(ctx, "auth/emails/a_b"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	snap, _ := s.Read(ctx, "auth/emails/axb/uid")
	if !snap.Exists() {
		t.Fatalf("sibling with wildcard-like name must survive")
	}
}
