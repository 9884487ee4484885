package Store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"TeleCare/Models"
)

// Memory keeps the document tree in process. It backs tests and local runs
// without Firebase or Postgres.
type Memory struct {
	mu   sync.RWMutex
	root map[string]any
}

func NewMemory() *Memory {
	return &Memory{root: map[string]any{}}
}

func (m *Memory) Get(ctx context.Context, path string, v any) error {
	m.mu.RLock()
	node, ok := lookup(m.root, Models.SplitPath(path))
	var raw []byte
	var err error
	if ok {
		raw, err = json.Marshal(node)
	}
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return json.Unmarshal(raw, v)
}

func (m *Memory) Set(ctx context.Context, path string, v any) error {
	segs, err := writePath(path)
	if err != nil {
		return err
	}
	value, err := normalize(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	put(m.root, segs, value)
	return nil
}

func (m *Memory) Push(ctx context.Context, path string, v any) (string, error) {
	return push(ctx, m, path, v)
}

func (m *Memory) Update(ctx context.Context, path string, fn UpdateFunc) error {
	segs, err := writePath(path)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var current json.RawMessage
	if node, ok := lookup(m.root, segs); ok {
		if current, err = json.Marshal(node); err != nil {
			return fmt.Errorf("encoding %s: %w", path, err)
		}
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	value, err := normalize(next)
	if err != nil {
		return err
	}
	put(m.root, segs, value)
	return nil
}

func (m *Memory) Remove(ctx context.Context, path string) error {
	segs, err := writePath(path)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	put(m.root, segs, nil)
	return nil
}

func (m *Memory) Close() error { return nil }
