package runner

import (
	"time"

	"github.com/scipunch/rssmonitor/config"
)

// QuietWindow is a daily [start, end) range of local wall-clock time during
// which the loop does not poll. A start after end wraps past midnight.
type QuietWindow struct {
	start, end time.Duration
	loc        *time.Location
}

// NewQuietWindow returns nil when the window is disabled
func NewQuietWindow(w config.QuietWindow, loc *time.Location) (*QuietWindow, error) {
	if !w.Enabled {
		return nil, nil
	}
	start, err := config.ParseClock(w.Start)
	if err != nil {
		return nil, err
	}
	end, err := config.ParseClock(w.End)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.Local
	}
	return &QuietWindow{start: start, end: end, loc: loc}, nil
}

// Contains reports whether t falls inside the window
func (q *QuietWindow) Contains(t time.Time) bool {
	if q == nil || q.start == q.end {
		return false
	}
	off := clockOffset(t.In(q.loc))
	if q.start < q.end {
		return off >= q.start && off < q.end
	}
	return off >= q.start || off < q.end
}

// Remaining returns how long until the window ends, false when t is outside it
func (q *QuietWindow) Remaining(t time.Time) (time.Duration, bool) {
	if !q.Contains(t) {
		return 0, false
	}
	local := t.In(q.loc)
	y, mon, d := local.Date()
	h, m := int(q.end/time.Hour), int(q.end%time.Hour/time.Minute)

	wake := time.Date(y, mon, d, h, m, 0, 0, q.loc)
	if !wake.After(local) {
		wake = time.Date(y, mon, d+1, h, m, 0, 0, q.loc)
	}
	return wake.Sub(local), true
}

func clockOffset(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
}
