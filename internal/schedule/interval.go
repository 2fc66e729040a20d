package schedule

import (
	"fmt"
	"strconv"
	"strings"
)

// ServiceDuration is the fixed length, in minutes, of one bookable service window.
const ServiceDuration = 120

// Interval is a [Start, End) span expressed in minutes since midnight.
type Interval struct {
	Start int
	End   int
}

// TimeToMinutes parses a 24-hour "HH:MM" clock value into minutes since midnight.
func TimeToMinutes(s string) (int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q: out of range", s)
	}
	return h*60 + m, nil
}

// MinutesToTime formats minutes since midnight as zero-padded "HH:MM".
// The caller guarantees m stays within a single day.
func MinutesToTime(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// ParseInterval parses an "HH:MM-HH:MM" span.
func ParseInterval(s string) (Interval, error) {
	from, to, ok := strings.Cut(s, "-")
	if !ok {
		return Interval{}, fmt.Errorf("invalid interval %q: want HH:MM-HH:MM", s)
	}
	start, err := TimeToMinutes(from)
	if err != nil {
		return Interval{}, err
	}
	end, err := TimeToMinutes(to)
	if err != nil {
		return Interval{}, err
	}
	if end <= start {
		return Interval{}, fmt.Errorf("invalid interval %q: end not after start", s)
	}
	return Interval{Start: start, End: end}, nil
}

func (iv Interval) String() string {
	return MinutesToTime(iv.Start) + "-" + MinutesToTime(iv.End)
}
