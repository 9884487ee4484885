package Store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"TeleCare/Models"
)

var (
	ErrNotFound    = errors.New("no value at path")
	ErrInvalidPath = errors.New("invalid document path")
)

// UpdateFunc receives the current value at a path (nil when absent) and returns
// the value to store. Returning nil removes the path; returning an error aborts
// the update and is passed back to the caller unchanged. A driver may call it
// more than once, so it must not have side effects.
type UpdateFunc func(current json.RawMessage) (any, error)

// Store is a path-keyed JSON document tree in the shape of a realtime database.
type Store interface {
	Get(ctx context.Context, path string, v any) error
	Set(ctx context.Context, path string, v any) error
	Push(ctx context.Context, path string, v any) (string, error)
	Update(ctx context.Context, path string, fn UpdateFunc) error
	Remove(ctx context.Context, path string) error
	Close() error
}

// Keyed records receive their generated key before they are written by Push.
type Keyed interface {
	SetID(id string)
}

// NewKey returns a time ordered push key. Keys sort lexically in creation order.
func NewKey() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating key: %w", err)
	}
	return id.String(), nil
}

// writePath validates a path that is about to be written and returns its segments.
func writePath(path string) ([]string, error) {
	segs := Models.SplitPath(path)
	if len(segs) == 0 {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	for _, s := range segs {
		if !Models.ValidKey(s) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return segs, nil
}

type setter interface {
	Set(ctx context.Context, path string, v any) error
}

func push(ctx context.Context, s setter, path string, v any) (string, error) {
	if _, err := writePath(path); err != nil {
		return "", err
	}
	key, err := NewKey()
	if err != nil {
		return "", err
	}
	if k, ok := v.(Keyed); ok {
		k.SetID(key)
	}
	if err := s.Set(ctx, Models.CleanPath(path)+"/"+key, v); err != nil {
		return "", err
	}
	return key, nil
}

// List decodes every child of path into T. A missing path is an empty list.
// Children that fail to decode are skipped and logged.
func List[T any](ctx context.Context, s Store, path string, logger *zap.Logger) (map[string]T, error) {
	var raw map[string]json.RawMessage
	if err := s.Get(ctx, path, &raw); err != nil {
		if errors.Is(err, ErrNotFound) {
			return map[string]T{}, nil
		}
		return nil, err
	}

	items := make(map[string]T, len(raw))
	for key, value := range raw {
		var item T
		if err := json.Unmarshal(value, &item); err != nil {
			logger.Warn("skipping malformed document",
				zap.String("path", path),
				zap.String("key", key),
				zap.Error(err),
			)
			continue
		}
		items[key] = item
	}
	return items, nil
}

// Decode turns the raw value handed to an UpdateFunc into v, leaving v
// untouched when the path was empty.
func Decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}
