package quota

import (
	"testing"
	"time"
)

func TestWindowForDaily(t *testing.T) {
	now := time.Date(2026, 8, 25, 14, 30, 45, 123456789, time.UTC)
	start, end := windowFor(now, 24*time.Hour)

	wantStart := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	if !start.Equal(wantStart) {
		t.Fatalf("expected start %v, got %v", wantStart, start)
	}
	wantEnd := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond)
	if !end.Equal(wantEnd) {
		t.Fatalf("expected end %v, got %v", wantEnd, end)
	}
	if !end.Before(start.Add(24 * time.Hour)) {
		t.Fatal("end must be the last instant before the next window")
	}
}

func TestWindowForContainsNow(t *testing.T) {
	for _, window := range []time.Duration{time.Hour, 24 * time.Hour, 7 * 24 * time.Hour} {
		now := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
		start, end := windowFor(now, window)
		if now.Before(start) || now.After(end) {
			t.Fatalf("window %v does not contain now: [%v, %v]", window, start, end)
		}
	}
}

func TestWindowExpired(t *testing.T) {
	end := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC).Add(24*time.Hour - time.Nanosecond)
	if windowExpired(&end, end) {
		t.Fatal("the last instant of the window is still valid")
	}
	if !windowExpired(&end, end.Add(time.Millisecond)) {
		t.Fatal("one millisecond past the end must be expired")
	}
	if !windowExpired(nil, time.Now()) {
		t.Fatal("nil period end on a windowed record must count as expired")
	}
}
