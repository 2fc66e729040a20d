package schedule

import (
	"errors"
	"strings"
	"time"

	"github.com/tj/go-naturaldate"
)

// ServiceZone is the single fixed offset the service operates in (UTC+5:30).
var ServiceZone = time.FixedZone("IST", 5*3600+30*60)

var (
	ErrUnresolvablePreference = errors.New("could not resolve day preference")
	ErrPastDate               = errors.New("requested day is in the past")
)

// Window is the time-of-day bucket a caller's phrase narrows slots to.
type Window struct {
	Start int
	End   int
}

var (
	windowMorning   = Window{Start: 9 * 60, End: 12 * 60}
	windowAfternoon = Window{Start: 12 * 60, End: 17 * 60}
	windowEvening   = Window{Start: 17 * 60, End: 21 * 60}
	windowFullDay   = Window{Start: 0, End: 24 * 60}
)

// DayInfo is a resolved day preference.
type DayInfo struct {
	Date    string // civil date "YYYY-MM-DD" in ServiceZone
	Weekday string // lowercase English weekday name
	Window  Window
}

// ResolvePreference turns a caller's day/time preference into a concrete
// calendar day and time-of-day window. A strict DD-MM-YYYY literal is
// accepted directly; anything else goes through the natural-language
// interpreter, biased toward future dates. Days strictly before today in
// ServiceZone are rejected.
func ResolvePreference(preference string, now time.Time) (DayInfo, error) {
	phrase := strings.ToLower(strings.TrimSpace(preference))
	if phrase == "" {
		return DayInfo{}, ErrUnresolvablePreference
	}

	localNow := now.In(ServiceZone)

	day, err := time.ParseInLocation("02-01-2006", phrase, ServiceZone)
	if err != nil {
		day, err = naturaldate.Parse(phrase, localNow, naturaldate.WithDirection(naturaldate.Future))
		if err != nil {
			return DayInfo{}, ErrUnresolvablePreference
		}
		// naturaldate hands back the base instant untouched, with no error,
		// when the phrase contains no date expression. An unchanged result
		// only counts as resolved when the phrase actually names the present.
		if day.Equal(localNow) && !refersToPresent(phrase) {
			return DayInfo{}, ErrUnresolvablePreference
		}
		day = day.In(ServiceZone)
	}

	if truncateToDay(day).Before(truncateToDay(localNow)) {
		return DayInfo{}, ErrPastDate
	}

	return DayInfo{
		Date:    day.Format("2006-01-02"),
		Weekday: strings.ToLower(day.Weekday().String()),
		Window:  windowForPhrase(phrase),
	}, nil
}

func refersToPresent(phrase string) bool {
	for _, token := range []string{"today", "tonight", "now"} {
		if strings.Contains(phrase, token) {
			return true
		}
	}
	return false
}

func windowForPhrase(phrase string) Window {
	switch {
	case strings.Contains(phrase, "morning"):
		return windowMorning
	case strings.Contains(phrase, "afternoon"):
		return windowAfternoon
	case strings.Contains(phrase, "evening"):
		return windowEvening
	default:
		return windowFullDay
	}
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, ServiceZone)
}
