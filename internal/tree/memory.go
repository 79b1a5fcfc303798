package tree

import (
	"context"
	"encoding/json"
	"sync"
)

// Memory is an in-process Store for tests and single-node development.
type Memory struct {
	mu     sync.Mutex
	nodes  map[string]map[string]string
	writes map[string]int
}

func NewMemory() *Memory {
	return &Memory{
		nodes:  make(map[string]map[string]string),
		writes: make(map[string]int),
	}
}

func (m *Memory) Get(ctx context.Context, path string) (Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.nodes[path]
	if !ok || len(node) == 0 {
		return nil, ErrNotFound
	}
	out := make(Node, len(node))
	for k, v := range node {
		out[k] = json.RawMessage(v)
	}
	return out, nil
}

func (m *Memory) Set(ctx context.Context, path string, fields map[string]any) error {
	encoded, err := encodeFields(fields)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.nodes, path)
	m.merge(path, encoded)
	return nil
}

func (m *Memory) Update(ctx context.Context, path string, fields map[string]any) error {
	encoded, err := encodeFields(fields)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.merge(path, encoded)
	return nil
}

func (m *Memory) Push(ctx context.Context, path string, fields map[string]any) (string, error) {
	key := NewKey()
	if err := m.Set(ctx, path+"/"+key, fields); err != nil {
		return "", err
	}
	return key, nil
}

func (m *Memory) UpdateIf(ctx context.Context, path, field string, cond Condition, fields map[string]any) (bool, error) {
	encoded, err := encodeFields(fields)
	if err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var current json.RawMessage
	if v, ok := m.nodes[path][field]; ok {
		current = json.RawMessage(v)
	}
	if !cond(current) {
		return false, nil
	}
	m.merge(path, encoded)
	return true, nil
}

// Writes reports how many writes have landed on path.
func (m *Memory) Writes(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes[path]
}

func (m *Memory) merge(path string, encoded map[string]any) {
	node, ok := m.nodes[path]
	if !ok {
		node = make(map[string]string, len(encoded))
		m.nodes[path] = node
	}
	for k, v := range encoded {
		node[k] = v.(string)
	}
	m.writes[path]++
}
