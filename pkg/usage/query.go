package usage

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultTimezoneOffset is the offset used to interpret the date and
	// time parameters of a request (WIB, UTC+7).
	DefaultTimezoneOffset = 7 * time.Hour

	// Day is the distance between the current and previous reading.
	Day = 24 * time.Hour
)

// ErrInvalidRequest is returned for any missing or malformed query
// parameter. It intentionally carries no detail about which field failed.
var ErrInvalidRequest = errors.New("invalid request")

// Query is a decoded power usage request.
type Query struct {
	// Target is used verbatim as a regex matcher on the instance label.
	Target string
	// Time is the requested instant, in UTC.
	Time time.Time
	// CSV selects the delimited text response format.
	CSV bool
}

// Previous returns the instant exactly one day before q.Time.
func (q Query) Previous() time.Time {
	return q.Time.Add(-Day)
}

// FixedZone returns a location with the given offset east of UTC and no
// daylight saving transitions.
func FixedZone(offset time.Duration) (*time.Location, error) {
	if offset <= -Day || offset >= Day {
		return nil, fmt.Errorf("timezone offset %s out of range, must be within ±24h", offset)
	}
	if offset%time.Second != 0 {
		return nil, fmt.Errorf("timezone offset %s must be a whole number of seconds", offset)
	}
	return time.FixedZone(formatOffset(offset), int(offset/time.Second)), nil
}

func formatOffset(offset time.Duration) string {
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	hours := offset / time.Hour
	minutes := (offset % time.Hour) / time.Minute
	if minutes == 0 {
		return fmt.Sprintf("UTC%s%d", sign, hours)
	}
	return fmt.Sprintf("UTC%s%d:%02d", sign, hours, minutes)
}

// ParseQuery decodes the target, date, time and csv parameters. The date
// and time are interpreted in loc and the result is converted to UTC.
//
// Every decoding failure wraps ErrInvalidRequest. The wrapped message names
// the offending parameter for logging, callers must not expose it.
func ParseQuery(params url.Values, loc *time.Location) (Query, error) {
	if loc == nil {
		return Query{}, errors.New("no timezone configured")
	}

	target := params.Get("target")
	if target == "" {
		return Query{}, invalid("target is missing or empty")
	}

	date, ok := parseComponents(params.Get("date"), "-.", 3)
	if !ok {
		return Query{}, invalid("date must be formatted as YYYY-MM-DD")
	}
	clock, ok := parseComponents(params.Get("time"), ":", 2)
	if !ok {
		return Query{}, invalid("time must be formatted as HH:MM")
	}

	year, month, day := int(date[0]), time.Month(date[1]), int(date[2])
	hour, minute := int(clock[0]), int(clock[1])

	t := time.Date(year, month, day, hour, minute, 0, 0, loc)
	// time.Date normalizes out of range values (e.g. February 30th becomes
	// March 2nd), which we treat as an invalid calendar timestamp.
	if t.Year() != year || t.Month() != month || t.Day() != day || t.Hour() != hour || t.Minute() != minute {
		return Query{}, invalid("date and time %s %s is not a valid timestamp", params.Get("date"), params.Get("time"))
	}

	return Query{
		Target: target,
		Time:   t.UTC(),
		CSV:    params.Get("csv") == "true",
	}, nil
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// parseComponents splits s on any of seps and parses each component as an
// unsigned 32 bit integer. It fails unless exactly n numeric components are
// found.
func parseComponents(s, seps string, n int) ([]uint32, bool) {
	if s == "" {
		return nil, false
	}
	parts := strings.Split(s, seps[:1])
	for _, sep := range seps[1:] {
		var split []string
		for _, p := range parts {
			split = append(split, strings.Split(p, string(sep))...)
		}
		parts = split
	}
	if len(parts) != n {
		return nil, false
	}
	values := make([]uint32, n)
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, false
		}
		values[i] = uint32(v)
	}
	return values, true
}
