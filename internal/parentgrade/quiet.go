package parentgrade

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseClock converts "HH:MM" to minute-of-day.
func parseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	return hour*60 + minute, nil
}

// WithinQuietHours reports whether now falls inside the quiet-hours
// window. Start > End means the window spans midnight (22:00–07:00 covers
// 23:00 but not 12:00). A malformed window is treated as disabled.
func WithinQuietHours(now time.Time, q QuietHours) bool {
	if !q.Enabled {
		return false
	}
	start, err := parseClock(q.Start)
	if err != nil {
		return false
	}
	end, err := parseClock(q.End)
	if err != nil {
		return false
	}
	cur := now.Hour()*60 + now.Minute()
	if start <= end {
		return cur >= start && cur < end
	}
	return cur >= start || cur < end
}

// NextQuietHoursEnd returns the next instant the quiet-hours window ends,
// assuming now is inside the window.
func NextQuietHoursEnd(now time.Time, q QuietHours) time.Time {
	end, err := parseClock(q.End)
	if err != nil {
		return now
	}
	endAt := time.Date(now.Year(), now.Month(), now.Day(), end/60, end%60, 0, 0, now.Location())
	if !endAt.After(now) {
		endAt = endAt.Add(24 * time.Hour)
	}
	return endAt
}
