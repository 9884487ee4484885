package Outbreaks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"TeleCare/Config"
	"TeleCare/Metrics"
	"TeleCare/Models"
	"TeleCare/Store"
)

var ErrFetchInProgress = errors.New("an insight fetch is already running")

// Generator produces free-form text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Insight is the latest generated outbreak table. A failed fetch keeps the
// previous table and sets Error until the next successful fetch.
type Insight struct {
	Table       Table      `json:"table"`
	Entries     []Entry    `json:"entries"`
	Error       string     `json:"error,omitempty"`
	Retrying    bool       `json:"retrying"`
	Attempt     int        `json:"attempt,omitempty"`
	NextRetryAt *time.Time `json:"nextRetryAt,omitempty"`
	FetchedAt   *time.Time `json:"fetchedAt,omitempty"`
	AttemptedAt *time.Time `json:"attemptedAt,omitempty"`
}

// Insights asks the text generator for a city to condition table built from
// the stored reports and keeps the last result.
type Insights struct {
	store     Store.Store
	generator Generator
	cfg       Config.OutbreakConfig
	metrics   *Metrics.Collector
	logger    *zap.Logger
	now       func() time.Time

	fetchMu sync.Mutex
	mu      sync.RWMutex
	current Insight
}

func NewInsights(store Store.Store, generator Generator, cfg Config.OutbreakConfig, metrics *Metrics.Collector, logger *zap.Logger) *Insights {
	return &Insights{
		store:     store,
		generator: generator,
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
		current:   Insight{Table: Table{}, Entries: []Entry{}},
	}
}

func (s *Insights) Current() Insight {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Refresh runs one fetch with retries. Cancelling ctx stops any pending retry.
// Only one fetch runs at a time; a concurrent call gets ErrFetchInProgress.
func (s *Insights) Refresh(ctx context.Context) (Insight, error) {
	if !s.fetchMu.TryLock() {
		return s.Current(), ErrFetchInProgress
	}
	defer s.fetchMu.Unlock()
	return s.run(ctx)
}

// RefreshAsync starts a fetch in the background and reports whether it did.
// It returns false when a fetch is already running.
func (s *Insights) RefreshAsync(ctx context.Context) bool {
	if !s.fetchMu.TryLock() {
		return false
	}
	go func() {
		defer s.fetchMu.Unlock()
		_, _ = s.run(ctx)
	}()
	return true
}

func (s *Insights) run(ctx context.Context) (Insight, error) {
	ctx, span := otel.Tracer("TeleCare/Outbreaks").Start(ctx, "Insights.Refresh")
	defer span.End()

	started := s.now()
	defer func() { s.metrics.InsightFetchDuration.Observe(time.Since(started).Seconds()) }()

	table, err := s.fetch(ctx)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.AttemptedAt = &now
	s.current.Retrying = false
	s.current.NextRetryAt = nil
	s.current.Attempt = 0

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.current.Error = err.Error()
		switch {
		case errors.Is(err, Models.ErrNotConfigured):
			s.metrics.InsightFetches.WithLabelValues("unconfigured").Inc()
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			s.metrics.InsightFetches.WithLabelValues("cancelled").Inc()
		default:
			s.metrics.InsightFetches.WithLabelValues("failed").Inc()
		}
		s.logger.Error("outbreak insight fetch failed", zap.Error(err))
		return s.current, err
	}

	s.metrics.InsightFetches.WithLabelValues("success").Inc()
	span.SetAttributes(attribute.Int("outbreaks.cities", len(table)))
	s.current.Table = table
	s.current.Entries = table.Entries()
	s.current.Error = ""
	s.current.FetchedAt = &now
	return s.current, nil
}

func (s *Insights) fetch(ctx context.Context) (Table, error) {
	reports, err := Store.List[Models.Report](ctx, s.store, Models.ReportsPath, s.logger)
	if err != nil {
		return nil, fmt.Errorf("loading reports: %w", err)
	}
	if len(reports) == 0 {
		return Table{}, nil
	}
	prompt := BuildPrompt(lo.Values(reports))

	attempt := 0
	operation := func() (Table, error) {
		attempt++
		text, err := s.generator.Generate(ctx, prompt)
		if errors.Is(err, Models.ErrNotConfigured) {
			return nil, backoff.Permanent(err)
		}
		if err != nil {
			return nil, err
		}
		return ParseTable(text)
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(&linearBackOff{base: s.cfg.RetryBaseDelay}),
		backoff.WithMaxTries(uint(s.cfg.MaxRetries)+1),
		// the retry ceiling alone bounds the fetch
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, wait time.Duration) {
			s.metrics.InsightFetches.WithLabelValues("retry").Inc()
			s.logger.Warn("outbreak insight fetch failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
			next := s.now().Add(wait)
			s.mu.Lock()
			s.current.Error = err.Error()
			s.current.Retrying = true
			s.current.Attempt = attempt
			s.current.NextRetryAt = &next
			s.mu.Unlock()
		}),
	)
}

// linearBackOff waits base times the number of failed attempts so far.
type linearBackOff struct {
	base    time.Duration
	attempt int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return b.base * time.Duration(b.attempt)
}

func (b *linearBackOff) Reset() { b.attempt = 0 }

// BuildPrompt lists each report once and asks for the grouped table.
func BuildPrompt(reports []Models.Report) string {
	lines := lo.Map(reports, func(r Models.Report, _ int) string {
		return fmt.Sprintf("- condition: %q, location: %q", strings.TrimSpace(r.Type), strings.TrimSpace(lo.FromPtrOr(r.Location, "Unknown")))
	})
	sort.Strings(lines)

	var sb strings.Builder
	sb.WriteString("You are an epidemiology assistant for a telehealth platform. ")
	sb.WriteString("Group the following patient outbreak reports by city and condition. ")
	sb.WriteString("Merge spelling variants and synonyms of the same city or condition. ")
	sb.WriteString("Return ONLY valid JSON with this schema:\n")
	sb.WriteString(`{"<city>": {"<condition>": <number of reports>}}`)
	sb.WriteString("\nUse lowercase names. Do not add commentary.\n\nReports:\n")
	sb.WriteString(strings.Join(lines, "\n"))
	return sb.String()
}
