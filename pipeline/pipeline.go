// Package pipeline is the decision loop between "list of trending
// videos" and "video actually published": it applies the safety
// policy, the duplicate ledger, and the daily quota, and drives the
// download/clip/name/publish collaborators for at most one candidate
// per call.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"shorts-bot/policy"
	"shorts-bot/video"
)

// ErrUploadLimit is the distinguished signal from the publish sink
// meaning the platform refuses further uploads for now. The pipeline
// stops the whole batch on it instead of trying the next candidate.
var ErrUploadLimit = errors.New("upload limit exceeded")

// Outcome classifies an AcquireOne result.
type Outcome int

const (
	// OutcomePublished means one candidate was published.
	OutcomePublished Outcome = iota
	// OutcomeExhausted means no candidate in the batch was publishable.
	OutcomeExhausted
	// OutcomeQuotaReached means the daily quota (ours or the
	// platform's) blocks further uploads in this category.
	OutcomeQuotaReached
)

func (o Outcome) String() string {
	switch o {
	case OutcomePublished:
		return "published"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeQuotaReached:
		return "quota_reached"
	}
	return "unknown"
}

// Result is the outcome of a single acquisition attempt.
type Result struct {
	Outcome Outcome
	URL     string
	Title   string
}

// Source supplies popularity-sorted candidates for a category.
type Source interface {
	Fetch(ctx context.Context, category video.Category, limit int) ([]video.Candidate, error)
}

// Downloader fetches a source video to local disk.
type Downloader interface {
	Download(ctx context.Context, url, videoID string) (string, error)
}

// Clipper re-encodes a source file into a vertical short.
type Clipper interface {
	Clip(ctx context.Context, sourcePath, videoID string) (string, error)
}

// Namer produces a unique title and a description for a candidate.
type Namer interface {
	NameFor(ctx context.Context, cand video.Candidate) (title, description string, err error)
}

// Publisher uploads a finished short. It returns an error wrapping
// ErrUploadLimit when the platform signals a hard stop.
type Publisher interface {
	Publish(ctx context.Context, mediaPath, title, description string) (url string, err error)
}

// Ledger is the duplicate-prevention store.
type Ledger interface {
	IsDuplicate(ctx context.Context, cand video.Candidate) (bool, error)
	Record(ctx context.Context, cand video.Candidate) error
}

// Quota tracks daily upload counts.
type Quota interface {
	Remaining(ctx context.Context, category video.Category) (int, error)
	RecordUpload(ctx context.Context, category video.Category) error
}

// TitleRegistrar persists a published title for future uniqueness
// checks.
type TitleRegistrar interface {
	RegisterTitle(ctx context.Context, title string) error
}

// Runner orchestrates one acquisition attempt end to end.
type Runner struct {
	source     Source
	policy     *policy.Config
	ledger     Ledger
	quota      Quota
	downloader Downloader
	clipper    Clipper
	namer      Namer
	publisher  Publisher
	titles     TitleRegistrar

	candidateLimit int
	removeFile     func(string) error
}

// Option configures a Runner.
type Option func(*Runner)

// WithCandidateLimit bounds how many candidates one call considers.
func WithCandidateLimit(limit int) Option {
	return func(r *Runner) {
		r.candidateLimit = limit
	}
}

// WithRemoveFile overrides temp-file removal (for testing).
func WithRemoveFile(fn func(string) error) Option {
	return func(r *Runner) {
		r.removeFile = fn
	}
}

// NewRunner creates an acquisition runner.
func NewRunner(
	source Source,
	pol *policy.Config,
	ledger Ledger,
	quota Quota,
	downloader Downloader,
	clipper Clipper,
	namer Namer,
	publisher Publisher,
	titles TitleRegistrar,
	opts ...Option,
) *Runner {
	r := &Runner{
		source:         source,
		policy:         pol,
		ledger:         ledger,
		quota:          quota,
		downloader:     downloader,
		clipper:        clipper,
		namer:          namer,
		publisher:      publisher,
		titles:         titles,
		candidateLimit: 10,
		removeFile:     os.Remove,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AcquireOne tries to publish exactly one video in the category.
// Per-candidate collaborator failures are logged and skipped; only
// storage failures escape as errors.
func (r *Runner) AcquireOne(ctx context.Context, category video.Category) (*Result, error) {
	remaining, err := r.quota.Remaining(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("check quota: %w", err)
	}
	if remaining <= 0 {
		slog.Info("daily quota reached", "category", category)
		return &Result{Outcome: OutcomeQuotaReached}, nil
	}

	candidates, err := r.source.Fetch(ctx, category, r.candidateLimit)
	if err != nil {
		slog.Warn("candidate fetch failed", "category", category, "error", err)
		return &Result{Outcome: OutcomeExhausted}, nil
	}
	slog.Info("fetched candidates", "category", category, "count", len(candidates))

	for _, cand := range candidates {
		result, err := r.tryCandidate(ctx, cand)
		if err != nil {
			return nil, err
		}
		if result != nil {
			return result, nil
		}
	}

	return &Result{Outcome: OutcomeExhausted}, nil
}

// tryCandidate attempts one candidate. A nil result with nil error
// means "skip, move to the next one".
func (r *Runner) tryCandidate(ctx context.Context, cand video.Candidate) (*Result, error) {
	if verdict := r.policy.Evaluate(cand); !verdict.Accepted {
		slog.Info("candidate rejected by policy",
			"video_id", cand.ID, "gate", verdict.Gate, "reason", verdict.Reason)
		return nil, nil
	}

	dup, err := r.ledger.IsDuplicate(ctx, cand)
	if err != nil {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}
	if dup {
		slog.Info("candidate already processed", "video_id", cand.ID)
		return nil, nil
	}

	// One download attempt and one clip attempt per candidate, no
	// retries: a flaky source should not stall the whole loop.
	sourcePath, err := r.downloader.Download(ctx, cand.URL, cand.ID)
	if err != nil {
		slog.Warn("download failed", "video_id", cand.ID, "error", err)
		return nil, nil
	}
	defer r.cleanup(sourcePath)

	shortPath, err := r.clipper.Clip(ctx, sourcePath, cand.ID)
	if err != nil {
		slog.Warn("clip failed", "video_id", cand.ID, "error", err)
		return nil, nil
	}
	defer r.cleanup(shortPath)

	title, description, err := r.namer.NameFor(ctx, cand)
	if err != nil {
		slog.Warn("naming failed", "video_id", cand.ID, "error", err)
		return nil, nil
	}

	url, err := r.publisher.Publish(ctx, shortPath, title, description)
	if err != nil {
		if errors.Is(err, ErrUploadLimit) {
			slog.Warn("publish sink reported upload limit", "video_id", cand.ID)
			return &Result{Outcome: OutcomeQuotaReached}, nil
		}
		slog.Warn("publish failed", "video_id", cand.ID, "error", err)
		return nil, nil
	}

	// Durable bookkeeping comes right after the publish succeeds. A
	// failure here must surface: proceeding without the record risks
	// duplicate publication or quota overrun.
	if err := r.ledger.Record(ctx, cand); err != nil {
		return nil, fmt.Errorf("record processed video: %w", err)
	}
	if err := r.titles.RegisterTitle(ctx, title); err != nil {
		return nil, fmt.Errorf("register title: %w", err)
	}
	if err := r.quota.RecordUpload(ctx, cand.Category); err != nil {
		return nil, fmt.Errorf("record upload: %w", err)
	}

	slog.Info("published short",
		"video_id", cand.ID, "category", cand.Category, "title", title, "url", url)
	return &Result{Outcome: OutcomePublished, URL: url, Title: title}, nil
}

func (r *Runner) cleanup(path string) {
	if err := r.removeFile(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to remove work file", "path", path, "error", err)
	}
}
