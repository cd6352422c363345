// Package store defines the hierarchical key-value tree boundary the rest of
// the application persists through. Values live at slash-joined paths; a
// write replaces the full subtree at its path, a read returns the value or
// assembled subtree, and a delete removes the subtree. There are no
// transactions and no partial-field patches.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Tree is implemented by every storage backend.
type Tree interface {
	// Read returns the snapshot at path. A missing node yields a snapshot
	// whose Exists reports false, not an error.
	Read(ctx context.Context, path string) (Snapshot, error)
	// Write replaces the full value at path.
	Write(ctx context.Context, path string, value any) error
	// Delete removes the subtree at path. Deleting an absent path is a no-op.
	Delete(ctx context.Context, path string) error
}

// ErrInvalidPath reports a malformed path (empty or empty segment).
var ErrInvalidPath = errors.New("invalid store path")

// Snapshot is the result of a point read.
type Snapshot struct {
	raw json.RawMessage
}

// NewSnapshot wraps raw JSON read from a backend.
func NewSnapshot(raw json.RawMessage) Snapshot {
	return Snapshot{raw: raw}
}

// Exists reports whether the node held a value.
func (s Snapshot) Exists() bool {
	return len(s.raw) > 0 && string(s.raw) != "null"
}

// Decode unmarshals the stored value into v.
func (s Snapshot) Decode(v any) error {
	if !s.Exists() {
		return errors.New("decode on absent snapshot")
	}
	if err := json.Unmarshal(s.raw, v); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	return nil
}

// Raw returns the stored JSON, or nil for an absent node.
func (s Snapshot) Raw() json.RawMessage {
	if !s.Exists() {
		return nil
	}
	return s.raw
}

// Join builds a slash-delimited path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// ValidatePath rejects empty paths and empty segments.
func ValidatePath(path string) error {
	if path == "" {
		return ErrInvalidPath
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			return fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return nil
}

// Assemble builds a nested JSON object from children keyed by their path
// relative to the subtree root. Backends that store one row per node use it
// to answer subtree reads.
func Assemble(children map[string]json.RawMessage) (json.RawMessage, error) {
	if len(children) == 0 {
		return nil, nil
	}

	root := make(map[string]any)
	for rel, raw := range children {
		segs := strings.Split(rel, "/")
		node := root
		for _, seg := range segs[:len(segs)-1] {
			child, ok := node[seg].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[seg] = child
			}
			node = child
		}
		node[segs[len(segs)-1]] = raw
	}

	out, err := json.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("assemble subtree: %w", err)
	}
	return out, nil
}
