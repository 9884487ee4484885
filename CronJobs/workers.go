package CronJobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"TeleCare/Config"
	"TeleCare/FirebaseMessaging"
	"TeleCare/Metrics"
	"TeleCare/Models"
	"TeleCare/Outbreaks"
	"TeleCare/Store"
)

// reminderWindow is how far either side of the lead time a booking may fall
// and still be reminded on this run.
const reminderWindow = 7 * time.Minute

type Pusher interface {
	NotifyUser(ctx context.Context, uid, title, body string, data map[string]string) error
}

type Messenger interface {
	Configured() bool
	SendMessage(ctx context.Context, phone, message string) error
}

type Refresher interface {
	Refresh(ctx context.Context) (Outbreaks.Insight, error)
}

type Resyncer interface {
	Resync(ctx context.Context)
}

type Sweeper interface {
	Sweep(idle time.Duration) int
}

type Dependencies struct {
	Store    Store.Store
	Pusher   Pusher
	Whatsapp Messenger
	Insights Refresher
	Hub      Resyncer
	Limiter  Sweeper
	Config   *Config.Config
	Metrics  *Metrics.Collector
	Logger   *zap.Logger
}

// Workers runs the periodic jobs: booking reminders, outbreak insight polling,
// the subscription resync and rate limiter cleanup. Stop cancels the context
// handed to every job, which aborts pending retries.
type Workers struct {
	Dependencies
	now       func() time.Time
	scheduler *gocron.Scheduler
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewWorkers(deps Dependencies) *Workers {
	ctx, cancel := context.WithCancel(context.Background())
	return &Workers{
		Dependencies: deps,
		now:          time.Now,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start schedules every job and returns the running scheduler.
func (w *Workers) Start() (*gocron.Scheduler, error) {
	scheduler := gocron.NewScheduler(time.Local)
	scheduler.SingletonModeAll()

	if _, err := scheduler.Every(1).Minutes().Do(func() {
		w.Logger.Debug("running booking reminder check")
		if err := w.SendBookingReminders(w.ctx); err != nil {
			w.Logger.Error("error sending booking reminders", zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("scheduling reminders: %w", err)
	}

	if _, err := scheduler.Every(w.Config.Outbreak.PollInterval).Do(func() {
		if _, err := w.Insights.Refresh(w.ctx); err != nil {
			w.Logger.Warn("outbreak insight poll ended with error", zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("scheduling outbreak polling: %w", err)
	}

	if w.Config.Store.ResyncInterval > 0 {
		if _, err := scheduler.Every(w.Config.Store.ResyncInterval).Do(func() {
			w.Hub.Resync(w.ctx)
		}); err != nil {
			return nil, fmt.Errorf("scheduling subscription resync: %w", err)
		}
	}

	if w.Limiter != nil {
		if _, err := scheduler.Every(10).Minutes().Do(func() {
			if n := w.Limiter.Sweep(30 * time.Minute); n > 0 {
				w.Logger.Debug("rate limiter entries expired", zap.Int("count", n))
			}
		}); err != nil {
			return nil, fmt.Errorf("scheduling rate limiter cleanup: %w", err)
		}
	}

	scheduler.StartAsync()
	w.scheduler = scheduler
	w.Logger.Info("background jobs started",
		zap.Duration("outbreak_poll_interval", w.Config.Outbreak.PollInterval),
		zap.Duration("resync_interval", w.Config.Store.ResyncInterval),
	)
	return scheduler, nil
}

func (w *Workers) Stop() {
	w.cancel()
	if w.scheduler != nil {
		w.scheduler.Stop()
	}
}

// SendBookingReminders reminds patients of bookings starting around the
// configured lead time. Each booking is reminded once.
func (w *Workers) SendBookingReminders(ctx context.Context) error {
	now := w.now()
	lead := w.Config.Reminder.Lead
	startWindow := now.Add(lead - reminderWindow)
	endWindow := now.Add(lead + reminderWindow)

	bookings, err := Store.List[Models.Booking](ctx, w.Store, Models.BookingsPath, w.Logger)
	if err != nil {
		return fmt.Errorf("failed to query upcoming bookings: %w", err)
	}

	due := lo.PickBy(bookings, func(_ string, b Models.Booking) bool {
		return !b.ReminderSent && !b.ScheduledAt.Before(startWindow) && !b.ScheduledAt.After(endWindow)
	})

	for id, booking := range due {
		if err := w.remind(ctx, booking); err != nil {
			w.Metrics.RemindersSent.WithLabelValues("failed").Inc()
			w.Logger.Warn("failed to send reminder", zap.String("booking_id", id), zap.Error(err))
			continue
		}
		if err := w.markReminded(ctx, id); err != nil {
			if errors.Is(err, Store.ErrNotFound) {
				w.Logger.Info("booking cancelled while reminding", zap.String("booking_id", id))
			} else {
				w.Logger.Error("failed to mark reminder sent", zap.String("booking_id", id), zap.Error(err))
			}
			continue
		}
		w.Metrics.RemindersSent.WithLabelValues("sent").Inc()
		w.Logger.Info("reminder sent", zap.String("booking_id", id), zap.Time("scheduled_at", booking.ScheduledAt))
	}
	return nil
}

// markReminded flags the booking in place. A booking removed since it was listed
// is left absent and reported as Store.ErrNotFound.
func (w *Workers) markReminded(ctx context.Context, id string) error {
	return w.Store.Update(ctx, Models.BookingPath(id), func(current json.RawMessage) (any, error) {
		var booking map[string]any
		if len(current) == 0 || json.Unmarshal(current, &booking) != nil || booking == nil {
			return nil, Store.ErrNotFound
		}
		booking["reminderSent"] = true
		return booking, nil
	})
}

func (w *Workers) remind(ctx context.Context, booking Models.Booking) error {
	at := booking.ScheduledAt.In(time.Local).Format("3:04 PM")
	title := "Upcoming consultation"
	body := fmt.Sprintf("Reminder: you have a video consultation with %s today at %s.", booking.DoctorName, at)

	err := w.Pusher.NotifyUser(ctx, booking.PatientID, title, body, map[string]string{
		"type":      "booking_reminder",
		"bookingId": booking.ID,
	})
	if err == nil {
		return nil
	}
	if !errors.Is(err, FirebaseMessaging.ErrNoDeviceTokens) && !errors.Is(err, Models.ErrNotConfigured) {
		return err
	}
	if booking.PatientPhone == "" || !w.Whatsapp.Configured() {
		return err
	}

	message := body + " Please join a few minutes early. If you need to reschedule, cancel the booking in the app."
	if werr := w.Whatsapp.SendMessage(ctx, booking.PatientPhone, message); werr != nil {
		w.Metrics.NotificationsSent.WithLabelValues("whatsapp", "failed").Inc()
		return werr
	}
	w.Metrics.NotificationsSent.WithLabelValues("whatsapp", "sent").Inc()
	return nil
}
