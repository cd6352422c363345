package memory

import (
	"context"
	"testing"
)

type record struct {
	Name     string `json:"name"`
	Duration int    `json:"duration"`
}

func TestReadAbsentPath(t *testing.T) {
	s := New()
	snap, err := s.Read(context.Background(), "users/u1/days/2024-01-01/activities")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if snap.Exists() {
		t.Fatalf("absent path must not exist")
	}
}

func TestWriteReadDelete(t *testing.T) {
	s := New()
	ctx := context.Background()
	path := "users/u1/days/2024-01-01/activities/a1"

	if err := s.Write(ctx, path, record{Name: "Gym", Duration: 60}); err != nil {
		t.Fatalf("write: %v", err)
	}

	snap, err := s.Read(ctx, path)
	if err != nil || !snap.Exists() {
		t.Fatalf("expected stored node (err=%v)", err)
	}
	var got record
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

	// Deleting again is a silent no-op.
	if err := s.Delete(ctx, path); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestSubtreeRead(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := "users/u1/days/2024-01-01/activities"

	if err := s.Write(ctx, base+"/a1", record{Name: "Sleep", Duration: 480}); err != nil {
		t.Fatalf("write a1: %v", err)
	}
	if err := s.Write(ctx, base+"/a2", record{Name: "Work", Duration: 480}); err != nil {
		t.Fatalf("write a2: %v", err)
	}

	snap, err := s.Read(ctx, base)
	if err != nil || !snap.Exists() {
		t.Fatalf("expected subtree (err=%v)", err)
	}
	var children map[string]record
	if err := snap.Decode(&children); err != nil {
		t.Fatalf("decode subtree: %v", err)
	}
	if len(children) != 2 || children["a1"].Name != "Sleep" || children["a2"].Name != "Work" {
		t.Fatalf("unexpected subtree: %+v", children)
	}

	// Deleting the subtree root removes all descendants.
	if err := s.Delete(ctx, base); err != nil {
		t.Fatalf("delete subtree: %v", err)
	}
	snap, _ = s.Read(ctx, base+"/a1")
	if snap.Exists() {
		t.Fatalf("descendant should be gone after subtree delete")
	}
}

func TestWriteReplacesSubtree(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Write(ctx, "a/b/c", 1); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.Write(ctx, "a/b", map[string]int{"d": 2}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	snap, _ := s.Read(ctx, "a/b/c")
	if snap.Exists() {
		t.Fatalf("full-value write must replace prior descendants")
	}
}

func TestCountsAndInvalidPaths(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, _ = s.Read(ctx, "a")
	_ = s.Write(ctx, "a", 1)
	_ = s.Delete(ctx, "a")

	reads, writes, deletes := s.Counts()
	if reads != 1 || writes != 1 || deletes != 1 {
		t.Fatalf("counts = %d/%d/%d", reads, writes, deletes)
	}

	// Invalid paths are rejected before touching the tree and do not count.
	if _, err := s.Read(ctx, ""); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if err := s.Write(ctx, "a//b", 1); err == nil {
		t.Fatalf("expected error for empty segment")
	}
	reads, writes, _ = s.Counts()
	if reads != 1 || writes != 1 {
		t.Fatalf("invalid paths must not count: %d/%d", reads, writes)
	}
}
