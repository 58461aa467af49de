package clipper

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestChooseSegment(t *testing.T) {
	tests := []struct {
		name       string
		duration   float64
		maxShort   float64
		r          float64
		wantStart  float64
		wantLength float64
	}{
		{"native short kept whole", 45, 60, 0.5, 0, 45},
		{"exactly max kept whole", 60, 60, 0.5, 0, 60},
		{"slightly long starts after intro", 100, 60, 0.5, 10, 60},
		{"long video random offset at r=0", 300, 60, 0, 30, 60},
		{"long video random offset mid-range", 300, 60, 0.5, 120, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, length := ChooseSegment(tt.duration, tt.maxShort, tt.r)
			if start != tt.wantStart || length != tt.wantLength {
				t.Errorf("ChooseSegment(%v, %v, %v) = (%v, %v), want (%v, %v)",
					tt.duration, tt.maxShort, tt.r, start, length, tt.wantStart, tt.wantLength)
			}
		})
	}
}

func TestChooseSegmentTrimsNearEnd(t *testing.T) {
	// A 75s source can't fit a full 60s window after the 10s intro
	// skip; the cut must end 10s before the source does.
	start, length := ChooseSegment(75, 60, 0.5)
	if start != 10 || length != 55 {
		t.Errorf("ChooseSegment(75, 60) = (%v, %v), want (10, 55)", start, length)
	}
}

func TestChooseSegmentNeverNegative(t *testing.T) {
	for _, r := range []float64{0, 0.25, 0.5, 0.75, 0.999} {
		for _, duration := range []float64{15, 61, 119, 121, 125, 600} {
			start, length := ChooseSegment(duration, 60, r)
			if start < 0 || length <= 0 {
				t.Errorf("ChooseSegment(%v, 60, %v) = (%v, %v)", duration, r, start, length)
			}
			if start+length > duration {
				t.Errorf("ChooseSegment(%v, 60, %v) segment overruns source: start=%v length=%v",
					duration, r, start, length)
			}
		}
	}
}

func TestCropFilter(t *testing.T) {
	got := CropFilter(1080, 1920)
	want := "crop='min(iw,ih*1080/1920)':'min(ih,iw*1920/1080)',scale=1080:1920"
	if got != want {
		t.Errorf("CropFilter = %q, want %q", got, want)
	}
}

func TestNewCreatesWorkDir(t *testing.T) {
	workDir := filepath.Join(t.TempDir(), "work")
	if _, err := New(workDir, 60, "yt-dlp", "ffmpeg"); err != nil {
		t.Fatalf("New failed: %v", err)
	}

	info, err := os.Stat(workDir)
	if err != nil {
		t.Fatalf("work dir not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("work dir path exists but is not a directory")
	}
}

func TestFormatSeconds(t *testing.T) {
	if got := formatSeconds(92.5); got != "92.50" {
		t.Errorf("formatSeconds(92.5) = %q, want %q", got, "92.50")
	}
}

func TestTail(t *testing.T) {
	long := strings.Repeat("x", 50) + "ERROR"
	if got := tail(long, 10); got != "xxxxxERROR" {
		t.Errorf("tail = %q", got)
	}
	if got := tail("short", 10); got != "short" {
		t.Errorf("tail on short input = %q", got)
	}
}
