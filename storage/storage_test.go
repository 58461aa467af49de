package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"shorts-bot/video"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testRecord(id string) *video.ProcessedRecord {
	return &video.ProcessedRecord{
		VideoID:     id,
		Title:       "Amazing Robot Demo",
		Channel:     "TechExplorerChannel",
		ContentHash: "hash-" + id,
		ProcessedAt: time.Now(),
	}
}

func TestNewDB(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, table := range []string{"processed_videos", "published_titles", "daily_quotas", "settings"} {
		if _, err := db.conn.ExecContext(ctx, "SELECT 1 FROM "+table+" LIMIT 1"); err != nil {
			t.Errorf("%s table not created: %v", table, err)
		}
	}
}

func TestInsertProcessedIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	rec := testRecord("v1")
	if err := db.InsertProcessed(ctx, rec); err != nil {
		t.Fatalf("InsertProcessed failed: %v", err)
	}
	// Second insert with the same id is a no-op, not an error.
	if err := db.InsertProcessed(ctx, rec); err != nil {
		t.Fatalf("repeat InsertProcessed failed: %v", err)
	}

	count, err := db.CountProcessed(ctx)
	if err != nil {
		t.Fatalf("CountProcessed failed: %v", err)
	}
	if count != 1 {
		t.Errorf("CountProcessed = %d, want 1", count)
	}
}

func TestProcessedLookups(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.InsertProcessed(ctx, testRecord("v1")); err != nil {
		t.Fatalf("InsertProcessed failed: %v", err)
	}

	seen, err := db.HasProcessedID(ctx, "v1")
	if err != nil || !seen {
		t.Errorf("HasProcessedID(v1) = %v, %v; want true, nil", seen, err)
	}
	seen, err = db.HasProcessedID(ctx, "v9")
	if err != nil || seen {
		t.Errorf("HasProcessedID(v9) = %v, %v; want false, nil", seen, err)
	}

	seen, err = db.HasContentHash(ctx, "hash-v1")
	if err != nil || !seen {
		t.Errorf("HasContentHash(hash-v1) = %v, %v; want true, nil", seen, err)
	}

	pairs, err := db.ListProcessedPairs(ctx)
	if err != nil {
		t.Fatalf("ListProcessedPairs failed: %v", err)
	}
	if len(pairs) != 1 || pairs[0].Title != "Amazing Robot Demo" {
		t.Errorf("ListProcessedPairs = %+v", pairs)
	}
}

func TestRecentProcessedOrder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"old", "mid", "new"} {
		rec := testRecord(id)
		rec.ProcessedAt = base.Add(time.Duration(i) * time.Minute)
		if err := db.InsertProcessed(ctx, rec); err != nil {
			t.Fatalf("InsertProcessed failed: %v", err)
		}
	}

	recs, err := db.RecentProcessed(ctx, 2)
	if err != nil {
		t.Fatalf("RecentProcessed failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].VideoID != "new" || recs[1].VideoID != "mid" {
		t.Errorf("RecentProcessed order = %s, %s; want new, mid", recs[0].VideoID, recs[1].VideoID)
	}
}

func TestTitles(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	seen, err := db.HasTitle(ctx, "epic discovery #42")
	if err != nil || seen {
		t.Fatalf("HasTitle on empty db = %v, %v", seen, err)
	}

	if err := db.InsertTitle(ctx, "epic discovery #42", "Epic Discovery #42"); err != nil {
		t.Fatalf("InsertTitle failed: %v", err)
	}
	// Idempotent on the same key.
	if err := db.InsertTitle(ctx, "epic discovery #42", "EPIC Discovery #42"); err != nil {
		t.Fatalf("repeat InsertTitle failed: %v", err)
	}

	seen, err = db.HasTitle(ctx, "epic discovery #42")
	if err != nil || !seen {
		t.Errorf("HasTitle after insert = %v, %v; want true, nil", seen, err)
	}
}

func TestQuotaIncrementAndSum(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	count, err := db.QuotaCount(ctx, "2025-06-01", video.CategoryTech)
	if err != nil || count != 0 {
		t.Fatalf("QuotaCount on empty db = %d, %v", count, err)
	}

	// First increment creates the row, later ones bump it.
	for i := 0; i < 3; i++ {
		if err := db.IncrementQuota(ctx, "2025-06-01", video.CategoryTech); err != nil {
			t.Fatalf("IncrementQuota failed: %v", err)
		}
	}
	if err := db.IncrementQuota(ctx, "2025-06-01", video.CategoryEntertainment); err != nil {
		t.Fatalf("IncrementQuota failed: %v", err)
	}

	count, err = db.QuotaCount(ctx, "2025-06-01", video.CategoryTech)
	if err != nil || count != 3 {
		t.Errorf("QuotaCount = %d, %v; want 3, nil", count, err)
	}

	total, err := db.QuotaTotal(ctx, "2025-06-01")
	if err != nil || total != 4 {
		t.Errorf("QuotaTotal = %d, %v; want 4, nil", total, err)
	}

	// Other days are untouched.
	total, err = db.QuotaTotal(ctx, "2025-06-02")
	if err != nil || total != 0 {
		t.Errorf("QuotaTotal for other day = %d, %v; want 0, nil", total, err)
	}
}

func TestSettings(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.GetSetting(ctx, "chat_id"); err != ErrNotFound {
		t.Errorf("GetSetting on missing key = %v, want ErrNotFound", err)
	}

	if err := db.SetSetting(ctx, "chat_id", "12345"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}
	if err := db.SetSetting(ctx, "chat_id", "67890"); err != nil {
		t.Fatalf("SetSetting update failed: %v", err)
	}

	value, err := db.GetSetting(ctx, "chat_id")
	if err != nil {
		t.Fatalf("GetSetting failed: %v", err)
	}
	if value != "67890" {
		t.Errorf("GetSetting = %q, want %q", value, "67890")
	}
}
