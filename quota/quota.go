// Package quota enforces and reports the daily per-category upload
// limits. Every read and write is keyed by the current date, so a new
// day starts all counters at zero without an explicit reset.
package quota

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"shorts-bot/video"
)

// Store is the persistence surface the tracker needs.
type Store interface {
	IncrementQuota(ctx context.Context, day string, category video.Category) error
	QuotaCount(ctx context.Context, day string, category video.Category) (int, error)
	QuotaTotal(ctx context.Context, day string) (int, error)
}

// Tracker counts daily uploads per category. It only counts; checking
// headroom before recording is the pipeline's responsibility.
type Tracker struct {
	store          Store
	maxPerCategory int
	maxTotal       int
	location       *time.Location
	now            func() time.Time
	lastDay        string
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithNow overrides the clock (for testing).
func WithNow(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// NewTracker creates a tracker keyed to the given timezone.
func NewTracker(store Store, maxPerCategory, maxTotal int, loc *time.Location, opts ...Option) *Tracker {
	t := &Tracker{
		store:          store,
		maxPerCategory: maxPerCategory,
		maxTotal:       maxTotal,
		location:       loc,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) today() string {
	return t.now().In(t.location).Format("2006-01-02")
}

// Remaining returns how many more uploads the category can take today.
// Both the per-category cap and the total daily cap bound the result.
func (t *Tracker) Remaining(ctx context.Context, category video.Category) (int, error) {
	day := t.today()
	count, err := t.store.QuotaCount(ctx, day, category)
	if err != nil {
		return 0, fmt.Errorf("quota count: %w", err)
	}
	total, err := t.store.QuotaTotal(ctx, day)
	if err != nil {
		return 0, fmt.Errorf("quota total: %w", err)
	}

	remaining := t.maxPerCategory - count
	if totalLeft := t.maxTotal - total; totalLeft < remaining {
		remaining = totalLeft
	}
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Used returns today's counter for a category.
func (t *Tracker) Used(ctx context.Context, category video.Category) (int, error) {
	return t.store.QuotaCount(ctx, t.today(), category)
}

// TotalToday returns how many uploads happened today across categories.
func (t *Tracker) TotalToday(ctx context.Context) (int, error) {
	return t.store.QuotaTotal(ctx, t.today())
}

// MaxPerCategory returns the configured per-category cap.
func (t *Tracker) MaxPerCategory() int {
	return t.maxPerCategory
}

// MaxTotal returns the configured total daily cap.
func (t *Tracker) MaxTotal() int {
	return t.maxTotal
}

// RecordUpload increments today's counter for the category. The caller
// must have checked Remaining first; the tracker does not reject.
func (t *Tracker) RecordUpload(ctx context.Context, category video.Category) error {
	if err := t.store.IncrementQuota(ctx, t.today(), category); err != nil {
		return fmt.Errorf("record upload: %w", err)
	}
	return nil
}

// ResetIfNewDay logs the day transition. It is purely observational:
// correctness never depends on it being called.
func (t *Tracker) ResetIfNewDay() {
	day := t.today()
	if t.lastDay != "" && t.lastDay != day {
		slog.Info("daily quota rolled over", "previous_day", t.lastDay, "day", day,
			"max_per_category", t.maxPerCategory, "max_total", t.maxTotal)
	}
	t.lastDay = day
}
