package dedup

import (
	"context"
	"errors"
	"testing"

	"shorts-bot/storage"
	"shorts-bot/video"
)

// fakeStore is an in-memory Store implementation.
type fakeStore struct {
	byID     map[string]storage.ProcessedPair
	byHash   map[string]bool
	storeErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		byID:   make(map[string]storage.ProcessedPair),
		byHash: make(map[string]bool),
	}
}

func (f *fakeStore) HasProcessedID(_ context.Context, videoID string) (bool, error) {
	if f.storeErr != nil {
		return false, f.storeErr
	}
	_, ok := f.byID[videoID]
	return ok, nil
}

func (f *fakeStore) HasContentHash(_ context.Context, hash string) (bool, error) {
	if f.storeErr != nil {
		return false, f.storeErr
	}
	return f.byHash[hash], nil
}

func (f *fakeStore) ListProcessedPairs(_ context.Context) ([]storage.ProcessedPair, error) {
	if f.storeErr != nil {
		return nil, f.storeErr
	}
	pairs := make([]storage.ProcessedPair, 0, len(f.byID))
	for _, p := range f.byID {
		pairs = append(pairs, p)
	}
	return pairs, nil
}

func (f *fakeStore) InsertProcessed(_ context.Context, rec *video.ProcessedRecord) error {
	if f.storeErr != nil {
		return f.storeErr
	}
	if _, ok := f.byID[rec.VideoID]; ok {
		return nil // idempotent
	}
	f.byID[rec.VideoID] = storage.ProcessedPair{
		VideoID: rec.VideoID, Title: rec.Title, Channel: rec.Channel,
	}
	f.byHash[rec.ContentHash] = true
	return nil
}

func testCandidate() video.Candidate {
	return video.Candidate{
		ID:      "v2",
		Title:   "Amazing Robot Demo",
		Channel: "TechExplorerChannel",
	}
}

func TestRecordThenIsDuplicate(t *testing.T) {
	ledger := NewLedger(newFakeStore())
	ctx := context.Background()
	cand := testCandidate()

	dup, err := ledger.IsDuplicate(ctx, cand)
	if err != nil {
		t.Fatalf("IsDuplicate failed: %v", err)
	}
	if dup {
		t.Fatal("fresh candidate reported as duplicate")
	}

	if err := ledger.Record(ctx, cand); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	dup, err = ledger.IsDuplicate(ctx, cand)
	if err != nil {
		t.Fatalf("IsDuplicate failed: %v", err)
	}
	if !dup {
		t.Error("recorded candidate not reported as duplicate")
	}
}

func TestRecordIsIdempotent(t *testing.T) {
	store := newFakeStore()
	ledger := NewLedger(store)
	ctx := context.Background()
	cand := testCandidate()

	if err := ledger.Record(ctx, cand); err != nil {
		t.Fatalf("first Record failed: %v", err)
	}
	if err := ledger.Record(ctx, cand); err != nil {
		t.Fatalf("second Record failed: %v", err)
	}

	if len(store.byID) != 1 {
		t.Errorf("store holds %d records after double Record, want 1", len(store.byID))
	}
}

func TestContentHashCatchesNewID(t *testing.T) {
	ledger := NewLedger(newFakeStore())
	ctx := context.Background()

	if err := ledger.Record(ctx, testCandidate()); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	// Same title/channel re-trending under a different ID.
	reupload := video.Candidate{
		ID:      "v3",
		Title:   "Amazing Robot Demo",
		Channel: "TechExplorerChannel",
	}
	dup, err := ledger.IsDuplicate(ctx, reupload)
	if err != nil {
		t.Fatalf("IsDuplicate failed: %v", err)
	}
	if !dup {
		t.Error("same title/channel under a new id must be a duplicate")
	}
}

func TestLooseContainment(t *testing.T) {
	ledger := NewLedger(newFakeStore())
	ctx := context.Background()

	if err := ledger.Record(ctx, testCandidate()); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	// Reworded title that still contains the prior one.
	reworded := video.Candidate{
		ID:      "v4",
		Title:   "Amazing Robot Demo (full version)",
		Channel: "SomeOtherPlace",
	}
	dup, err := ledger.IsDuplicate(ctx, reworded)
	if err != nil {
		t.Fatalf("IsDuplicate failed: %v", err)
	}
	if !dup {
		t.Error("containment of a prior title must be a duplicate")
	}

	// Genuinely different content stays clean.
	fresh := video.Candidate{
		ID:      "v5",
		Title:   "Underwater Cave Exploration",
		Channel: "DivingAdventures",
	}
	dup, err = ledger.IsDuplicate(ctx, fresh)
	if err != nil {
		t.Fatalf("IsDuplicate failed: %v", err)
	}
	if dup {
		t.Error("unrelated candidate reported as duplicate")
	}
}

func TestContentHashIsCaseInsensitive(t *testing.T) {
	if ContentHash("Amazing Robot Demo", "TechExplorer") != ContentHash("amazing robot demo", "TECHEXPLORER") {
		t.Error("ContentHash must normalize case")
	}
	if ContentHash("title a", "chan") == ContentHash("title b", "chan") {
		t.Error("different titles must not collide")
	}
}

func TestStorageErrorsPropagate(t *testing.T) {
	store := newFakeStore()
	store.storeErr = errors.New("disk full")
	ledger := NewLedger(store)
	ctx := context.Background()

	if _, err := ledger.IsDuplicate(ctx, testCandidate()); err == nil {
		t.Error("IsDuplicate must propagate storage errors")
	}
	if err := ledger.Record(ctx, testCandidate()); err == nil {
		t.Error("Record must propagate storage errors")
	}
}
