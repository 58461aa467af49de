// Package namer generates upload titles and descriptions and enforces
// title uniqueness across everything published so far.
package namer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"shorts-bot/video"
)

// Generator produces a raw title and description for a candidate.
// Implementations may be AI-backed or template-based; the wrapper does
// not care which.
type Generator interface {
	Generate(ctx context.Context, cand video.Candidate) (title, description string, err error)
}

// TitleStore answers case-insensitive title membership checks. Keys are
// lowercased titles.
type TitleStore interface {
	HasTitle(ctx context.Context, titleKey string) (bool, error)
}

// Namer wraps a generator with a uniqueness guarantee: the returned
// title never collides (case-insensitively) with a registered one.
// Registration itself is the caller's job, after the publish succeeds,
// so candidates that never publish don't reserve titles.
type Namer struct {
	generator Generator
	fallback  Generator
	titles    TitleStore
	maxChars  int
}

// NewNamer creates a uniqueness-enforcing namer. fallback may be nil.
func NewNamer(generator Generator, fallback Generator, titles TitleStore, maxChars int) *Namer {
	return &Namer{
		generator: generator,
		fallback:  fallback,
		titles:    titles,
		maxChars:  maxChars,
	}
}

// NameFor returns a unique title and a description for the candidate.
func (n *Namer) NameFor(ctx context.Context, cand video.Candidate) (string, string, error) {
	title, description, err := n.generator.Generate(ctx, cand)
	if err != nil {
		if n.fallback == nil {
			return "", "", fmt.Errorf("generate title: %w", err)
		}
		slog.Warn("title generator failed, using fallback", "video_id", cand.ID, "error", err)
		title, description, err = n.fallback.Generate(ctx, cand)
		if err != nil {
			return "", "", fmt.Errorf("fallback title: %w", err)
		}
	}

	unique, err := n.uniquify(ctx, title)
	if err != nil {
		return "", "", err
	}
	return unique, description, nil
}

// uniquify appends an incrementing " #N" suffix until the title no
// longer collides, then truncates to the configured maximum while
// preserving the suffix.
func (n *Namer) uniquify(ctx context.Context, raw string) (string, error) {
	title := Truncate(raw, n.maxChars, "")

	taken, err := n.titles.HasTitle(ctx, TitleKey(title))
	if err != nil {
		return "", fmt.Errorf("check title: %w", err)
	}
	if !taken {
		return title, nil
	}

	for counter := 1; ; counter++ {
		suffix := fmt.Sprintf(" #%d", counter)
		candidate := Truncate(raw, n.maxChars, suffix)

		taken, err := n.titles.HasTitle(ctx, TitleKey(candidate))
		if err != nil {
			return "", fmt.Errorf("check title: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}
}

// TitleKey is the canonical form used for case-insensitive matching.
func TitleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// Truncate limits the title to maxChars runes, always keeping the
// suffix intact.
func Truncate(title string, maxChars int, suffix string) string {
	runes := []rune(title)
	budget := maxChars - len([]rune(suffix))
	if budget < 1 {
		budget = 1
	}
	if len(runes) > budget {
		runes = runes[:budget]
	}
	return strings.TrimRight(string(runes), " ") + suffix
}
