package quota

import "time"

// windowFor returns the inclusive bounds of the window containing now.
// Windows are aligned to UTC epoch multiples, so a daily window runs from UTC
// midnight to the last instant before the next one ("start + duration - 1").
func windowFor(now time.Time, window time.Duration) (time.Time, time.Time) {
	start := now.UTC().Truncate(window)
	end := start.Add(window - time.Nanosecond)
	return start, end
}

// windowExpired reports whether a windowed record's period has passed. A nil
// periodEnd on a windowed type counts as expired so legacy rows roll forward.
func windowExpired(periodEnd *time.Time, now time.Time) bool {
	return periodEnd == nil || now.After(*periodEnd)
}
