package CronJobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"TeleCare/Config"
	"TeleCare/FirebaseMessaging"
	"TeleCare/Metrics"
	"TeleCare/Models"
	"TeleCare/Outbreaks"
	"TeleCare/Store"
)

type fakePusher struct {
	mu     sync.Mutex
	err    error
	pushed []string
}

func (f *fakePusher) NotifyUser(ctx context.Context, uid, title, body string, data map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.pushed = append(f.pushed, uid)
	return nil
}

type fakeWhatsapp struct {
	sent []string
}

func (f *fakeWhatsapp) Configured() bool { return true }

func (f *fakeWhatsapp) SendMessage(ctx context.Context, phone, message string) error {
	f.sent = append(f.sent, phone)
	return nil
}

type countingRefresher struct {
	mu    sync.Mutex
	calls int
	ctxs  []context.Context
}

func (c *countingRefresher) Refresh(ctx context.Context) (Outbreaks.Insight, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.ctxs = append(c.ctxs, ctx)
	return Outbreaks.Insight{}, nil
}

type noopResync struct{}

func (noopResync) Resync(context.Context) {}

var now = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func newWorkers(t *testing.T, pusher Pusher, wa Messenger) (*Workers, Store.Store) {
	t.Helper()
	s := Store.NewMemory()
	cfg := &Config.Config{
		Reminder: Config.ReminderConfig{Lead: 3 * time.Hour},
		Outbreak: Config.OutbreakConfig{PollInterval: time.Hour},
	}
	w := NewWorkers(Dependencies{
		Store:    s,
		Pusher:   pusher,
		Whatsapp: wa,
		Insights: &countingRefresher{},
		Hub:      noopResync{},
		Config:   cfg,
		Metrics:  Metrics.NewCollector("test"),
		Logger:   zap.NewNop(),
	})
	w.now = func() time.Time { return now }
	return w, s
}

func seedBooking(t *testing.T, s Store.Store, id string, at time.Time, reminded bool) {
	t.Helper()
	require.NoError(t, s.Set(context.Background(), Models.BookingPath(id), Models.Booking{
		ID: id, PatientID: "p-" + id, PatientPhone: "+1 555 0100", DoctorName: "Dr. Rao",
		ScheduledAt: at, ReminderSent: reminded,
	}))
}

func TestSendBookingRemindersWindow(t *testing.T) {
	pusher := &fakePusher{}
	w, s := newWorkers(t, pusher, &fakeWhatsapp{})

	seedBooking(t, s, "due", now.Add(3*time.Hour), false)
	seedBooking(t, s, "edge", now.Add(3*time.Hour+7*time.Minute), false)
	seedBooking(t, s, "early", now.Add(2*time.Hour), false)
	seedBooking(t, s, "late", now.Add(4*time.Hour), false)
	seedBooking(t, s, "done", now.Add(3*time.Hour), true)

	require.NoError(t, w.SendBookingReminders(context.Background()))
	assert.ElementsMatch(t, []string{"p-due", "p-edge"}, pusher.pushed)

	var b Models.Booking
	require.NoError(t, s.Get(context.Background(), Models.BookingPath("due"), &b))
	assert.True(t, b.ReminderSent)

	// a second run does not remind again
	pusher.pushed = nil
	require.NoError(t, w.SendBookingReminders(context.Background()))
	assert.Empty(t, pusher.pushed)
}

func TestSendBookingRemindersFallsBackToWhatsapp(t *testing.T) {
	wa := &fakeWhatsapp{}
	w, s := newWorkers(t, &fakePusher{err: FirebaseMessaging.ErrNoDeviceTokens}, wa)
	seedBooking(t, s, "due", now.Add(3*time.Hour), false)

	require.NoError(t, w.SendBookingReminders(context.Background()))
	assert.Equal(t, []string{"+1 555 0100"}, wa.sent)

	var b Models.Booking
	require.NoError(t, s.Get(context.Background(), Models.BookingPath("due"), &b))
	assert.True(t, b.ReminderSent)
}

// cancellingPusher removes the booking while its reminder is being delivered.
type cancellingPusher struct {
	store Store.Store
	id    string
}

func (p cancellingPusher) NotifyUser(ctx context.Context, uid, title, body string, data map[string]string) error {
	return p.store.Remove(ctx, Models.BookingPath(p.id))
}

func TestReminderDoesNotRecreateCancelledBooking(t *testing.T) {
	s := Store.NewMemory()
	w, _ := newWorkers(t, cancellingPusher{store: s, id: "due"}, &fakeWhatsapp{})
	w.Store = s
	seedBooking(t, s, "due", now.Add(3*time.Hour), false)

	require.NoError(t, w.SendBookingReminders(context.Background()))

	var b Models.Booking
	assert.ErrorIs(t, s.Get(context.Background(), Models.BookingPath("due"), &b), Store.ErrNotFound)
}

func TestStopCancelsJobContext(t *testing.T) {
	w, _ := newWorkers(t, &fakePusher{}, &fakeWhatsapp{})
	refresher := w.Insights.(*countingRefresher)

	_, err := w.Start()
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		refresher.mu.Lock()
		defer refresher.mu.Unlock()
		return refresher.calls > 0
	}, 2*time.Second, 10*time.Millisecond)

	w.Stop()
	refresher.mu.Lock()
	defer refresher.mu.Unlock()
	assert.ErrorIs(t, refresher.ctxs[0].Err(), context.Canceled)
}
