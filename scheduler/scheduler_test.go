package scheduler

import (
	"testing"
)

func TestNew(t *testing.T) {
	s, err := New("America/New_York")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if s.Location().String() != "America/New_York" {
		t.Errorf("Location = %s, want America/New_York", s.Location())
	}
}

func TestNewInvalidTimezone(t *testing.T) {
	if _, err := New("Mars/Olympus"); err == nil {
		t.Fatal("expected error for invalid timezone")
	}
}

func TestAddDaily(t *testing.T) {
	s, err := New("UTC")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := s.AddDaily("08:00", func() {}); err != nil {
		t.Errorf("AddDaily(08:00) failed: %v", err)
	}
	if err := s.AddDaily("23:30", func() {}); err != nil {
		t.Errorf("AddDaily(23:30) failed: %v", err)
	}
}

func TestAddDailyInvalidTime(t *testing.T) {
	s, err := New("UTC")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for _, bad := range []string{"24:00", "8:00", "12:60", "noon", ""} {
		if err := s.AddDaily(bad, func() {}); err == nil {
			t.Errorf("AddDaily(%q) succeeded, want error", bad)
		}
	}
}

func TestAddDailySlots(t *testing.T) {
	s, err := New("UTC")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := s.AddDailySlots([]string{"08:00", "12:00", "16:00"}, func() {}); err != nil {
		t.Errorf("AddDailySlots failed: %v", err)
	}
	if err := s.AddDailySlots([]string{"08:00", "bad"}, func() {}); err == nil {
		t.Error("AddDailySlots with a bad slot succeeded, want error")
	}
}

func TestStartStopIdempotent(t *testing.T) {
	s, err := New("UTC")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	s.Start()
	s.Start()
	s.Stop()
	s.Stop()
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		input     string
		hour, min int
		wantErr   bool
	}{
		{"00:00", 0, 0, false},
		{"09:05", 9, 5, false},
		{"23:59", 23, 59, false},
		{"24:00", 0, 0, true},
		{"12:5", 0, 0, true},
	}

	for _, tt := range tests {
		hour, minute, err := parseTime(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseTime(%q) succeeded, want error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseTime(%q) failed: %v", tt.input, err)
			continue
		}
		if hour != tt.hour || minute != tt.min {
			t.Errorf("parseTime(%q) = %d:%d, want %d:%d", tt.input, hour, minute, tt.hour, tt.min)
		}
	}
}

func TestBuildCronSpec(t *testing.T) {
	if got := buildCronSpec(8, 30); got != "30 8 * * *" {
		t.Errorf("buildCronSpec(8, 30) = %q, want %q", got, "30 8 * * *")
	}
}
