package pricing

import "time"

// TrafficSurcharge is applied to the unscaled base price during traffic hours.
const TrafficSurcharge = 0.15

// Clock supplies wall-clock time for traffic-hour checks.
type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the system clock in loc. A nil loc uses time.Local.
func SystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return ClockFunc(func() time.Time { return time.Now().In(loc) })
}

type window struct {
	start, end int // minutes after midnight, inclusive
}

var trafficWindows = []window{
	{start: 7*60 + 30, end: 9*60 + 30},
	{start: 17 * 60, end: 19*60 + 30},
}

// IsTrafficHour reports whether t's local hour:minute falls in 07:30–09:30
// or 17:00–19:30, both ends inclusive.
func IsTrafficHour(t time.Time) bool {
	m := t.Hour()*60 + t.Minute()
	for _, w := range trafficWindows {
		if m >= w.start && m <= w.end {
			return true
		}
	}
	return false
}
