// Package dedup guards against republishing the same or near-identical
// content. The ledger is permanent: records are never deleted, so an
// accepted fingerprint stays blocked for the lifetime of the system.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"shorts-bot/storage"
	"shorts-bot/video"
)

// containmentFloor keeps very short historical titles or channel names
// from substring-matching nearly every future candidate.
const containmentFloor = 10

// Store is the persistence surface the ledger needs.
type Store interface {
	HasProcessedID(ctx context.Context, videoID string) (bool, error)
	HasContentHash(ctx context.Context, hash string) (bool, error)
	ListProcessedPairs(ctx context.Context) ([]storage.ProcessedPair, error)
	InsertProcessed(ctx context.Context, rec *video.ProcessedRecord) error
}

// Ledger answers duplicate checks and records accepted candidates.
type Ledger struct {
	store Store
}

// NewLedger creates a ledger over the given store.
func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// ContentHash derives the content fingerprint from a title/channel
// pair. It catches re-uploads of the same content under a new video ID.
func ContentHash(title, channel string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(title) + "|" + strings.ToLower(channel)))
	return hex.EncodeToString(sum[:])
}

// IsDuplicate reports whether the candidate was already processed: by
// ID, by content fingerprint, or by loose containment against a prior
// title/channel pair.
func (l *Ledger) IsDuplicate(ctx context.Context, cand video.Candidate) (bool, error) {
	seen, err := l.store.HasProcessedID(ctx, cand.ID)
	if err != nil {
		return false, fmt.Errorf("check processed id: %w", err)
	}
	if seen {
		return true, nil
	}

	seen, err = l.store.HasContentHash(ctx, ContentHash(cand.Title, cand.Channel))
	if err != nil {
		return false, fmt.Errorf("check content hash: %w", err)
	}
	if seen {
		return true, nil
	}

	pairs, err := l.store.ListProcessedPairs(ctx)
	if err != nil {
		return false, fmt.Errorf("list processed pairs: %w", err)
	}

	title := strings.ToLower(cand.Title)
	channel := strings.ToLower(cand.Channel)
	for _, p := range pairs {
		if looselyContains(title, strings.ToLower(p.Title)) ||
			looselyContains(channel, strings.ToLower(p.Channel)) {
			return true, nil
		}
	}
	return false, nil
}

// looselyContains is the heuristic containment check: either string
// containing the other counts as a match. Known to produce false
// positives for legitimately distinct content sharing common phrases;
// the behavior is kept as observed in production.
func looselyContains(current, prior string) bool {
	if len(prior) < containmentFloor || len(current) < containmentFloor {
		return false
	}
	return strings.Contains(current, prior) || strings.Contains(prior, current)
}

// Record durably stores the candidate as processed. Idempotent:
// recording the same ID twice leaves one record. Errors propagate to
// the caller; an acknowledged-but-lost record would allow unbounded
// republication.
func (l *Ledger) Record(ctx context.Context, cand video.Candidate) error {
	rec := &video.ProcessedRecord{
		VideoID:     cand.ID,
		Title:       cand.Title,
		Channel:     cand.Channel,
		ContentHash: ContentHash(cand.Title, cand.Channel),
		ProcessedAt: time.Now(),
	}
	if err := l.store.InsertProcessed(ctx, rec); err != nil {
		return fmt.Errorf("record processed video: %w", err)
	}
	return nil
}
