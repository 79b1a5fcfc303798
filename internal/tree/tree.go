package tree

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("tree: node not found")
	ErrInvalidPath = errors.New("tree: invalid path")
	// ErrContention is returned when a conditional update kept losing to
	// concurrent writers.
	ErrContention = errors.New("tree: too much contention")
)

// Condition inspects the current raw value of a child. current is nil when
// the child (or the whole node) is absent.
type Condition func(current json.RawMessage) bool

// Store is a path-addressed tree with single-node atomic writes.
type Store interface {
	Get(ctx context.Context, path string) (Node, error)
	// Set replaces the node at path.
	Set(ctx context.Context, path string, fields map[string]any) error
	// Update merges fields into the node at path, creating it if needed.
	Update(ctx context.Context, path string, fields map[string]any) error
	// Push creates a new child node under path with a generated,
	// time-ordered key and returns that key.
	Push(ctx context.Context, path string, fields map[string]any) (string, error)
	// UpdateIf merges fields into the node at path only when cond accepts
	// the current value of field. It reports whether the write was applied.
	UpdateIf(ctx context.Context, path, field string, cond Condition, fields map[string]any) (bool, error)
}

// Node is the decoded content of one path.
type Node map[string]json.RawMessage

// Decode unmarshals the node into dest as if it were one JSON object.
func (n Node) Decode(dest any) error {
	data, err := json.Marshal(map[string]json.RawMessage(n))
	if err != nil {
		return fmt.Errorf("encoding node: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decoding node: %w", err)
	}
	return nil
}

// Keys returns the child names in lexical order. Push keys sort by creation time.
func (n Node) Keys() []string {
	keys := make([]string, 0, len(n))
	for k := range n {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Path joins segments into a store path, rejecting segments that are empty or
// contain characters reserved by the tree.
func Path(segments ...string) (string, error) {
	if len(segments) == 0 {
		return "", ErrInvalidPath
	}
	for _, s := range segments {
		if s == "" || strings.ContainsAny(s, "/.#$[]") {
			return "", fmt.Errorf("%w: segment %q", ErrInvalidPath, s)
		}
	}
	return strings.Join(segments, "/"), nil
}

// NewKey generates a push key. Keys are UUIDv7 strings, so lexical order
// follows creation order.
func NewKey() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Equals builds a Condition matching a child whose JSON value equals want.
// When allowMissing is set, an absent child also matches.
func Equals(want any, allowMissing bool) Condition {
	encoded, err := json.Marshal(want)
	return func(current json.RawMessage) bool {
		if current == nil {
			return allowMissing
		}
		if err != nil {
			return false
		}
		return string(current) == string(encoded)
	}
}

func encodeFields(fields map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == "" || strings.ContainsAny(k, "/.#$[]") {
			return nil, fmt.Errorf("%w: field %q", ErrInvalidPath, k)
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding field %q: %w", k, err)
		}
		out[k] = string(data)
	}
	return out, nil
}
