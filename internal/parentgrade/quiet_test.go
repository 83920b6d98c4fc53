package parentgrade

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func clock(hour, minute int) time.Time {
	return time.Date(2026, time.March, 10, hour, minute, 0, 0, time.UTC)
}

func TestWithinQuietHours(t *testing.T) {
	overnight := QuietHours{Enabled: true, Start: "22:00", End: "07:00"}
	daytime := QuietHours{Enabled: true, Start: "12:00", End: "14:00"}

	tests := []struct {
		name string
		q    QuietHours
		now  time.Time
		want bool
	}{
		{name: "overnight late evening", q: overnight, now: clock(23, 0), want: true},
		{name: "overnight past midnight", q: overnight, now: clock(2, 30), want: true},
		{name: "overnight midday", q: overnight, now: clock(12, 0), want: false},
		{name: "overnight just before end", q: overnight, now: clock(6, 59), want: true},
		{name: "overnight at end", q: overnight, now: clock(7, 0), want: false},
		{name: "overnight at start", q: overnight, now: clock(22, 0), want: true},
		{name: "same day inside", q: daytime, now: clock(13, 0), want: true},
		{name: "same day outside", q: daytime, now: clock(15, 0), want: false},
		{name: "disabled", q: QuietHours{Enabled: false, Start: "22:00", End: "07:00"}, now: clock(23, 0), want: false},
		{name: "malformed start", q: QuietHours{Enabled: true, Start: "25:00", End: "07:00"}, now: clock(23, 0), want: false},
		{name: "malformed end", q: QuietHours{Enabled: true, Start: "22:00", End: "7pm"}, now: clock(23, 0), want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, WithinQuietHours(tc.now, tc.q))
		})
	}
}

func TestNextQuietHoursEnd(t *testing.T) {
	q := QuietHours{Enabled: true, Start: "21:00", End: "06:00"}

	// Inside the window before midnight: the end is tomorrow morning.
	end := NextQuietHoursEnd(clock(23, 0), q)
	assert.Equal(t, time.Date(2026, time.March, 11, 6, 0, 0, 0, time.UTC), end)

	// Inside the window after midnight: the end is later the same day.
	end = NextQuietHoursEnd(clock(4, 0), q)
	assert.Equal(t, time.Date(2026, time.March, 10, 6, 0, 0, 0, time.UTC), end)
}
