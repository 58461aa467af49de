// Package clipper downloads source videos and re-encodes them into
// vertical shorts. Both steps shell out to external tools (yt-dlp,
// ffmpeg); a failed download or encode is an ordinary error the
// pipeline recovers from by moving to the next candidate.
package clipper

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Shorts output geometry: 9:16 at 1080x1920, 30fps, H.264/AAC.
const (
	targetWidth  = 1080
	targetHeight = 1920
	targetFPS    = 30
)

// Clipper downloads and re-encodes source media.
type Clipper struct {
	workDir      string
	maxShortSecs int
	ytDLPPath    string
	ffmpegPath   string
	ffprobePath  string
	randFloat    func() float64
}

// Option configures a Clipper.
type Option func(*Clipper)

// WithRandFloat overrides the segment-selection randomness (for testing).
func WithRandFloat(fn func() float64) Option {
	return func(c *Clipper) {
		c.randFloat = fn
	}
}

// WithFFprobePath sets the ffprobe binary path.
func WithFFprobePath(path string) Option {
	return func(c *Clipper) {
		c.ffprobePath = path
	}
}

// New creates a clipper writing work files under workDir.
func New(workDir string, maxShortSecs int, ytDLPPath, ffmpegPath string, opts ...Option) (*Clipper, error) {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}

	c := &Clipper{
		workDir:      workDir,
		maxShortSecs: maxShortSecs,
		ytDLPPath:    ytDLPPath,
		ffmpegPath:   ffmpegPath,
		ffprobePath:  "ffprobe",
		randFloat:    rand.Float64,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Download fetches the source video and returns the local path.
func (c *Clipper) Download(ctx context.Context, url, videoID string) (string, error) {
	outPath := filepath.Join(c.workDir, fmt.Sprintf("src_%s_%s.mp4", videoID, uuid.NewString()[:8]))

	cmd := exec.CommandContext(ctx, c.ytDLPPath,
		"--format", "best[height<=720][ext=mp4]/best[ext=mp4]",
		"--output", outPath,
		"--quiet",
		"--no-warnings",
		url,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("yt-dlp failed: %w: %s", err, strings.TrimSpace(string(out)))
	}

	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("download produced no file: %w", err)
	}
	return outPath, nil
}

// Clip re-encodes the source into a vertical short and returns the
// output path.
func (c *Clipper) Clip(ctx context.Context, sourcePath, videoID string) (string, error) {
	duration, err := c.probeDuration(ctx, sourcePath)
	if err != nil {
		return "", fmt.Errorf("probe duration: %w", err)
	}

	start, length := ChooseSegment(duration, float64(c.maxShortSecs), c.randFloat())
	outPath := filepath.Join(c.workDir, fmt.Sprintf("short_%s.mp4", videoID))

	args := []string{"-y"}
	if start > 0 {
		args = append(args, "-ss", formatSeconds(start))
	}
	args = append(args,
		"-i", sourcePath,
		"-t", formatSeconds(length),
		"-vf", CropFilter(targetWidth, targetHeight),
		"-r", strconv.Itoa(targetFPS),
		"-c:v", "libx264",
		"-c:a", "aac",
		outPath,
	)

	cmd := exec.CommandContext(ctx, c.ffmpegPath, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("ffmpeg failed: %w: %s", err, tail(string(out), 400))
	}
	return outPath, nil
}

func (c *Clipper) probeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, c.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
}

// ChooseSegment picks the cut window for a source of the given
// duration. Native shorts are kept whole; long sources get a window
// that skips intro and outro. r is a random value in [0, 1).
func ChooseSegment(duration, maxShort, r float64) (start, length float64) {
	if duration <= maxShort {
		return 0, duration
	}

	if duration > 2*maxShort {
		// Skip the first 30s (intro) and last 30s (outro).
		span := duration - 120
		if span < 0 {
			span = 0
		}
		start = 30 + r*span
	} else {
		start = 10
	}

	length = maxShort
	if start+length > duration-10 {
		length = duration - 10 - start
	}
	if length <= 0 {
		length = maxShort
		start = 0
	}
	return start, length
}

// CropFilter builds the ffmpeg filter that center-crops to the target
// aspect ratio and scales to the target size.
func CropFilter(width, height int) string {
	// crop to 9:16 around the center, then scale
	return fmt.Sprintf(
		"crop='min(iw,ih*%d/%d)':'min(ih,iw*%d/%d)',scale=%d:%d",
		width, height, height, width, width, height,
	)
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 2, 64)
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
