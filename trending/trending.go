// Package trending fetches popularity-sorted candidates from the
// YouTube trending catalog across several regions.
package trending

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"

	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"shorts-bot/video"
)

// Client fetches trending videos via the YouTube Data API.
type Client struct {
	service     *youtube.Service
	regions     []string
	perRegion   int64
	categoryIDs map[string]string
	limiter     *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithService injects a pre-built YouTube service (for testing).
func WithService(svc *youtube.Service) Option {
	return func(c *Client) {
		c.service = svc
	}
}

// WithRateLimit sets the request rate toward the catalog API.
func WithRateLimit(requestsPerSecond float64) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
}

// NewClient creates a catalog client authenticated by API key.
func NewClient(ctx context.Context, apiKey string, regions []string, perRegion int64, categoryIDs map[string]string, opts ...Option) (*Client, error) {
	c := &Client{
		regions:     regions,
		perRegion:   perRegion,
		categoryIDs: categoryIDs,
		limiter:     rate.NewLimiter(rate.Limit(2), 1),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.service == nil {
		svc, err := youtube.NewService(ctx, option.WithAPIKey(apiKey))
		if err != nil {
			return nil, fmt.Errorf("create youtube service: %w", err)
		}
		c.service = svc
	}
	return c, nil
}

// Fetch returns up to limit trending candidates for the category,
// merged across regions, de-duplicated by ID, and sorted by descending
// view count. No results is an empty slice, not an error.
func (c *Client) Fetch(ctx context.Context, category video.Category, limit int) ([]video.Candidate, error) {
	categoryID, ok := c.categoryIDs[string(category)]
	if !ok {
		return nil, fmt.Errorf("no catalog category id configured for %q", category)
	}

	var all []video.Candidate
	for _, region := range c.regions {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		items, err := c.listRegion(ctx, region, categoryID)
		if err != nil {
			// One region failing should not lose the others.
			slog.Warn("trending fetch failed for region", "region", region, "category", category, "error", err)
			continue
		}
		all = append(all, buildCandidates(items, category)...)
	}

	return MergeAndSort(all, limit), nil
}

func (c *Client) listRegion(ctx context.Context, region, categoryID string) ([]*youtube.Video, error) {
	call := c.service.Videos.
		List([]string{"snippet", "statistics", "contentDetails"}).
		Chart("mostPopular").
		RegionCode(region).
		VideoCategoryId(categoryID).
		MaxResults(c.perRegion).
		Context(ctx)

	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("list trending for %s: %w", region, err)
	}
	return resp.Items, nil
}

// buildCandidates converts API items into candidates, silently dropping
// entries that fail basic availability checks (no duration, no stats).
func buildCandidates(items []*youtube.Video, category video.Category) []video.Candidate {
	var out []video.Candidate
	for _, item := range items {
		if item.Snippet == nil || item.ContentDetails == nil {
			continue
		}
		duration := ParseISODuration(item.ContentDetails.Duration)
		if duration <= 0 {
			continue
		}

		var views int64
		if item.Statistics != nil {
			views = int64(item.Statistics.ViewCount)
		}

		out = append(out, video.Candidate{
			ID:              item.Id,
			Title:           item.Snippet.Title,
			Channel:         item.Snippet.ChannelTitle,
			ViewCount:       views,
			DurationSeconds: duration,
			Category:        category,
			URL:             "https://www.youtube.com/watch?v=" + item.Id,
		})
	}
	return out
}

// MergeAndSort de-duplicates candidates by ID, sorts by descending view
// count, and truncates to limit.
func MergeAndSort(candidates []video.Candidate, limit int) []video.Candidate {
	seen := make(map[string]bool, len(candidates))
	merged := make([]video.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		merged = append(merged, c)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].ViewCount > merged[j].ViewCount
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

var isoDurationRegex = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// ParseISODuration converts an ISO-8601 duration like PT1H2M3S to
// seconds. Unparseable input yields zero.
func ParseISODuration(s string) int {
	matches := isoDurationRegex.FindStringSubmatch(s)
	if matches == nil {
		return 0
	}

	hours, _ := strconv.Atoi(zeroIfEmpty(matches[1]))
	minutes, _ := strconv.Atoi(zeroIfEmpty(matches[2]))
	seconds, _ := strconv.Atoi(zeroIfEmpty(matches[3]))

	return hours*3600 + minutes*60 + seconds
}

func zeroIfEmpty(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
