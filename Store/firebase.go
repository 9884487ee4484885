package Store

import (
	"context"
	"encoding/json"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"

	"TeleCare/Models"
)

// Firebase stores documents in the Firebase Realtime Database.
type Firebase struct {
	client *db.Client
}

// NewFirebase connects to the database configured on app.
func NewFirebase(ctx context.Context, app *firebase.App) (*Firebase, error) {
	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialising realtime database client: %w", err)
	}
	return &Firebase{client: client}, nil
}

func (f *Firebase) ref(path string) *db.Ref {
	return f.client.NewRef(Models.CleanPath(path))
}

func (f *Firebase) Get(ctx context.Context, path string, v any) error {
	var raw json.RawMessage
	if err := f.ref(path).Get(ctx, &raw); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return json.Unmarshal(raw, v)
}

func (f *Firebase) Set(ctx context.Context, path string, v any) error {
	if _, err := writePath(path); err != nil {
		return err
	}
	if err := f.ref(path).Set(ctx, v); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func (f *Firebase) Push(ctx context.Context, path string, v any) (string, error) {
	return push(ctx, f, path, v)
}

// Update runs fn inside a database transaction. Firebase retries fn when the
// value changed underneath it.
func (f *Firebase) Update(ctx context.Context, path string, fn UpdateFunc) error {
	if _, err := writePath(path); err != nil {
		return err
	}
	var fnErr error
	err := f.ref(path).Transaction(ctx, func(node db.TransactionNode) (interface{}, error) {
		var raw json.RawMessage
		if err := node.Unmarshal(&raw); err != nil {
			return nil, err
		}
		if string(raw) == "null" {
			raw = nil
		}
		next, err := fn(raw)
		if err != nil {
			fnErr = err
			return nil, err
		}
		return next, nil
	})
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return fmt.Errorf("updating %s: %w", path, err)
	}
	return nil
}

func (f *Firebase) Remove(ctx context.Context, path string) error {
	if _, err := writePath(path); err != nil {
		return err
	}
	if err := f.ref(path).Delete(ctx); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

func (f *Firebase) Close() error { return nil }
