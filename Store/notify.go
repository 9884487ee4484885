package Store

import (
	"context"

	"TeleCare/Models"
)

// ChangeListener is told about every path written through a Notifying store.
type ChangeListener interface {
	Changed(path string)
}

// Notifying wraps a Store and reports successful writes to a listener.
type Notifying struct {
	Store
	listener ChangeListener
}

func WithNotifications(s Store, listener ChangeListener) *Notifying {
	return &Notifying{Store: s, listener: listener}
}

func (n *Notifying) Set(ctx context.Context, path string, v any) error {
	if err := n.Store.Set(ctx, path, v); err != nil {
		return err
	}
	n.listener.Changed(path)
	return nil
}

func (n *Notifying) Push(ctx context.Context, path string, v any) (string, error) {
	key, err := n.Store.Push(ctx, path, v)
	if err != nil {
		return "", err
	}
	n.listener.Changed(Models.CleanPath(path) + "/" + key)
	return key, nil
}

func (n *Notifying) Update(ctx context.Context, path string, fn UpdateFunc) error {
	if err := n.Store.Update(ctx, path, fn); err != nil {
		return err
	}
	n.listener.Changed(path)
	return nil
}

func (n *Notifying) Remove(ctx context.Context, path string) error {
	if err := n.Store.Remove(ctx, path); err != nil {
		return err
	}
	n.listener.Changed(path)
	return nil
}
