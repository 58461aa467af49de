package video

import (
	"fmt"
	"strings"
	"time"
)

// Category identifies an upload category with its own daily quota.
type Category string

const (
	CategoryTech          Category = "tech"
	CategoryEntertainment Category = "entertainment"
)

// Categories lists every category the bot rotates through.
var Categories = []Category{CategoryTech, CategoryEntertainment}

// ParseCategory maps user input to a known category.
func ParseCategory(s string) (Category, error) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryTech:
		return CategoryTech, nil
	case CategoryEntertainment:
		return CategoryEntertainment, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Candidate is a trending video fetched from the upstream catalog,
// not yet accepted or rejected.
type Candidate struct {
	ID              string
	Title           string
	Channel         string
	ViewCount       int64
	DurationSeconds int
	Category        Category
	URL             string
}

// ProcessedRecord marks a candidate as already published. Records are
// permanent; the ledger never deletes them.
type ProcessedRecord struct {
	VideoID     string
	Title       string
	Channel     string
	ContentHash string
	ProcessedAt time.Time
}
