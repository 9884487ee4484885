package FirebaseMessaging

import (
	"context"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"

	"TeleCare/Models"
)

// Messenger delivers push notifications through Firebase Cloud Messaging.
type Messenger struct {
	client *messaging.Client
	logger *zap.Logger
}

func NewMessenger(ctx context.Context, app *firebase.App, logger *zap.Logger) (*Messenger, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialising firebase messaging client: %w", err)
	}
	logger.Info("firebase messaging client initialised")
	return &Messenger{client: client, logger: logger}, nil
}

// Send delivers req to every token and returns the tokens FCM reports as no
// longer registered.
func (m *Messenger) Send(ctx context.Context, req Models.NotificationRequest) ([]string, error) {
	if len(req.Tokens) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	message := &messaging.MulticastMessage{
		Tokens: req.Tokens,
		Notification: &messaging.Notification{
			Title: req.Title,
			Body:  req.Body,
		},
		Data: req.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound:    "default",
				Priority: messaging.PriorityHigh,
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority": "10",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: req.Title,
						Body:  req.Body,
					},
					Sound: "default",
				},
			},
		},
	}

	batch, err := m.client.SendEachForMulticast(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("sending multicast message: %w", err)
	}

	var stale []string
	for i, res := range batch.Responses {
		if res.Success {
			continue
		}
		if messaging.IsRegistrationTokenNotRegistered(res.Error) || messaging.IsInvalidArgument(res.Error) {
			stale = append(stale, req.Tokens[i])
			continue
		}
		m.logger.Warn("push delivery failed", zap.Int("token_index", i), zap.Error(res.Error))
	}
	if batch.SuccessCount == 0 && len(stale) < len(req.Tokens) {
		return stale, fmt.Errorf("push delivery failed for all %d tokens", len(req.Tokens))
	}
	return stale, nil
}
