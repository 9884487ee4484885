package Outbreaks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"TeleCare/Config"
	"TeleCare/Metrics"
	"TeleCare/Models"
	"TeleCare/Store"
)

type scriptedGenerator struct {
	mu      sync.Mutex
	replies []reply
	calls   int
	prompts []string
}

type reply struct {
	text string
	err  error
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	r := g.replies[min(g.calls, len(g.replies)-1)]
	g.calls++
	return r.text, r.err
}

func (g *scriptedGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func newInsights(t *testing.T, gen Generator, maxRetries int, base time.Duration) *Insights {
	t.Helper()
	s := Store.NewMemory()
	ctx := context.Background()
	_, err := s.Push(ctx, Models.ReportsPath, &Models.Report{Type: "Flu", Location: lo.ToPtr("Delhi")})
	require.NoError(t, err)
	_, err = s.Push(ctx, Models.ReportsPath, &Models.Report{Type: "Dengue", Location: lo.ToPtr("Mumbai")})
	require.NoError(t, err)

	cfg := Config.OutbreakConfig{PollInterval: time.Minute, RetryBaseDelay: base, MaxRetries: maxRetries}
	return NewInsights(s, gen, cfg, Metrics.NewCollector("test"), zap.NewNop())
}

func TestRefreshRetriesUntilParseable(t *testing.T) {
	gen := &scriptedGenerator{replies: []reply{
		{text: "sorry, I cannot help"},
		{err: errors.New("connection reset")},
		{text: "```json\n{\"Delhi\": {\"flu\": 1}, \"mumbai\": {\"Dengue\": 1}}\n```"},
	}}
	insights := newInsights(t, gen, 3, time.Millisecond)

	insight, err := insights.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, gen.Calls())
	assert.Equal(t, Table{"delhi": {"flu": 1}, "mumbai": {"dengue": 1}}, insight.Table)
	assert.Len(t, insight.Entries, 2)
	assert.Empty(t, insight.Error)
	assert.False(t, insight.Retrying)
	require.NotNil(t, insight.FetchedAt)
	assert.Contains(t, gen.prompts[0], `condition: "Flu", location: "Delhi"`)
}

func TestRefreshStopsAtRetryCeiling(t *testing.T) {
	gen := &scriptedGenerator{replies: []reply{{text: "not json"}}}
	insights := newInsights(t, gen, 2, time.Millisecond)

	_, err := insights.Refresh(context.Background())
	require.ErrorIs(t, err, ErrUnparseable)
	assert.Equal(t, 3, gen.Calls())

	current := insights.Current()
	assert.NotEmpty(t, current.Error)
	assert.Nil(t, current.FetchedAt)
	assert.NotNil(t, current.AttemptedAt)
	assert.Empty(t, current.Entries)
}

func TestRefreshKeepsPreviousTableOnFailure(t *testing.T) {
	gen := &scriptedGenerator{replies: []reply{{text: `{"delhi":{"flu":1}}`}}}
	insights := newInsights(t, gen, 0, time.Millisecond)
	_, err := insights.Refresh(context.Background())
	require.NoError(t, err)

	gen.mu.Lock()
	gen.replies = []reply{{err: errors.New("upstream down")}}
	gen.calls = 0
	gen.mu.Unlock()

	_, err = insights.Refresh(context.Background())
	require.Error(t, err)
	current := insights.Current()
	assert.Equal(t, "upstream down", current.Error)
	assert.Equal(t, 1, current.Table.Count("delhi", "flu"))
}

func TestRefreshRetriesWrongShapeReply(t *testing.T) {
	gen := &scriptedGenerator{replies: []reply{{text: `{"delhi":{"flu":1}}`}}}
	insights := newInsights(t, gen, 2, time.Millisecond)
	_, err := insights.Refresh(context.Background())
	require.NoError(t, err)
	first := insights.Current().FetchedAt

	gen.mu.Lock()
	gen.replies = []reply{{text: `{"error":"model overloaded, try later"}`}}
	gen.calls = 0
	gen.mu.Unlock()

	_, err = insights.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrUnparseable)
	assert.Equal(t, 3, gen.Calls())
	current := insights.Current()
	assert.NotEmpty(t, current.Error)
	assert.Equal(t, 1, current.Table.Count("delhi", "flu"))
	assert.Equal(t, first, current.FetchedAt)
}

func TestRefreshDoesNotRetryMissingConfiguration(t *testing.T) {
	gen := &scriptedGenerator{replies: []reply{{err: Models.ErrNotConfigured}}}
	insights := newInsights(t, gen, 5, time.Millisecond)

	_, err := insights.Refresh(context.Background())
	assert.ErrorIs(t, err, Models.ErrNotConfigured)
	assert.Equal(t, 1, gen.Calls())
}

func TestRefreshCancelStopsPendingRetry(t *testing.T) {
	gen := &scriptedGenerator{replies: []reply{{err: errors.New("timeout")}}}
	insights := newInsights(t, gen, 3, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := insights.Refresh(ctx)
		done <- err
	}()

	require.Eventually(t, func() bool { return insights.Current().Retrying }, time.Second, 5*time.Millisecond)
	current := insights.Current()
	assert.Equal(t, 1, current.Attempt)
	require.NotNil(t, current.NextRetryAt)

	cancel()
	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("refresh did not stop after cancel")
	}
	assert.Equal(t, 1, gen.Calls())
	assert.False(t, insights.Current().Retrying)
}

func TestRefreshAsyncRejectsOverlappingFetch(t *testing.T) {
	gen := &scriptedGenerator{replies: []reply{{err: errors.New("timeout")}}}
	insights := newInsights(t, gen, 3, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	require.True(t, insights.RefreshAsync(ctx))
	require.Eventually(t, func() bool { return insights.Current().Retrying }, time.Second, 5*time.Millisecond)

	assert.False(t, insights.RefreshAsync(context.Background()))
	_, err := insights.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrFetchInProgress)

	cancel()
	require.Eventually(t, func() bool { return !insights.Current().Retrying }, 2*time.Second, 5*time.Millisecond)
}

func TestRefreshWithoutReportsSkipsGeneration(t *testing.T) {
	gen := &scriptedGenerator{replies: []reply{{text: "{}"}}}
	cfg := Config.OutbreakConfig{PollInterval: time.Minute, RetryBaseDelay: time.Millisecond, MaxRetries: 1}
	insights := NewInsights(Store.NewMemory(), gen, cfg, Metrics.NewCollector("test"), zap.NewNop())

	insight, err := insights.Refresh(context.Background())
	require.NoError(t, err)
	assert.Empty(t, insight.Entries)
	assert.Equal(t, 0, gen.Calls())
}

func TestLinearBackOff(t *testing.T) {
	b := &linearBackOff{base: 2 * time.Second}
	assert.Equal(t, 2*time.Second, b.NextBackOff())
	assert.Equal(t, 4*time.Second, b.NextBackOff())
	assert.Equal(t, 6*time.Second, b.NextBackOff())
	b.Reset()
	assert.Equal(t, 2*time.Second, b.NextBackOff())
}
