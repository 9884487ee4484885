package FirebaseMessaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"TeleCare/Metrics"
	"TeleCare/Models"
	"TeleCare/Store"
)

var ErrNoDeviceTokens = errors.New("user has no registered devices")

type Sender interface {
	Send(ctx context.Context, req Models.NotificationRequest) ([]string, error)
}

// Notifier pushes to all devices a user registered under tokens/{uid} and
// drops tokens FCM rejects.
type Notifier struct {
	store   Store.Store
	sender  Sender
	metrics *Metrics.Collector
	logger  *zap.Logger
}

// NewNotifier accepts a nil sender when messaging is unavailable; every send
// then fails with ErrNotConfigured.
func NewNotifier(store Store.Store, sender Sender, metrics *Metrics.Collector, logger *zap.Logger) *Notifier {
	return &Notifier{store: store, sender: sender, metrics: metrics, logger: logger}
}

// RegisterToken stores token for uid unless the same value is already there.
func (n *Notifier) RegisterToken(ctx context.Context, uid string, token Models.DeviceToken) error {
	existing, err := Store.List[Models.DeviceToken](ctx, n.store, Models.UserTokensPath(uid), n.logger)
	if err != nil {
		return err
	}
	if lo.ContainsBy(lo.Values(existing), func(t Models.DeviceToken) bool { return t.Value == token.Value }) {
		return nil
	}
	_, err = n.store.Push(ctx, Models.UserTokensPath(uid), token)
	return err
}

func (n *Notifier) NotifyUser(ctx context.Context, uid, title, body string, data map[string]string) error {
	if n.sender == nil {
		return fmt.Errorf("push notifications: %w", Models.ErrNotConfigured)
	}
	tokens, err := Store.List[Models.DeviceToken](ctx, n.store, Models.UserTokensPath(uid), n.logger)
	if err != nil {
		return fmt.Errorf("loading device tokens: %w", err)
	}
	keyByValue := make(map[string]string, len(tokens))
	for key, t := range tokens {
		if t.Value != "" {
			keyByValue[t.Value] = key
		}
	}
	if len(keyByValue) == 0 {
		return ErrNoDeviceTokens
	}

	stale, err := n.sender.Send(ctx, Models.NotificationRequest{
		Tokens: lo.Keys(keyByValue),
		Title:  title,
		Body:   body,
		Data:   data,
	})
	for _, value := range stale {
		if rmErr := n.store.Remove(ctx, Models.UserTokensPath(uid)+"/"+keyByValue[value]); rmErr != nil {
			n.logger.Warn("failed to drop stale device token", zap.String("uid", uid), zap.Error(rmErr))
		}
	}
	if err != nil {
		n.metrics.NotificationsSent.WithLabelValues("push", "failed").Inc()
		return err
	}
	if len(stale) == len(keyByValue) {
		n.metrics.NotificationsSent.WithLabelValues("push", "failed").Inc()
		return ErrNoDeviceTokens
	}
	n.metrics.NotificationsSent.WithLabelValues("push", "sent").Inc()
	return nil
}

// NotifyUserAsync sends in the background and only logs failures. Request
// handlers use it so a slow push never delays the response.
func (n *Notifier) NotifyUserAsync(uid, title, body string, data map[string]string) {
	if uid == "" {
		return
	}
	go func() {
		err := n.NotifyUser(context.Background(), uid, title, body, data)
		if err != nil && !errors.Is(err, ErrNoDeviceTokens) && !errors.Is(err, Models.ErrNotConfigured) {
			n.logger.Warn("push notification failed", zap.String("uid", uid), zap.Error(err))
		}
	}()
}
