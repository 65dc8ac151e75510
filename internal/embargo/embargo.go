// Package embargo implements weekly time windows during which no merges
// are performed.
package embargo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const minutesPerWeek = 7 * 24 * 60

// WeeklyInterval is a time window that recurs every week, for example
// Friday 18:00 until Monday 06:00. Both boundaries are inclusive.
type WeeklyInterval struct {
	from int
	to   int
}

// NewWeeklyInterval returns the interval from fromDay fromHour:fromMin
// until toDay toHour:toMin. Intervals may wrap around the end of the
// week.
func NewWeeklyInterval(fromDay time.Weekday, fromHour, fromMin int, toDay time.Weekday, toHour, toMin int) WeeklyInterval {
	return WeeklyInterval{
		from: weekMinute(fromDay, fromHour, fromMin),
		to:   weekMinute(toDay, toHour, toMin),
	}
}

// Covers returns true when t lies in the interval. The weekday and
// clock time are taken in the location of t.
func (i WeeklyInterval) Covers(t time.Time) bool {
	m := weekMinute(t.Weekday(), t.Hour(), t.Minute())

	if i.from <= i.to {
		return m >= i.from && m <= i.to
	}

	return m >= i.from || m <= i.to
}

func (i WeeklyInterval) String() string {
	return fmt.Sprintf(
		"%s %02d:%02d - %s %02d:%02d",
		time.Weekday(i.from/(24*60)), i.from/60%24, i.from%60,
		time.Weekday(i.to/(24*60)), i.to/60%24, i.to%60,
	)
}

func weekMinute(day time.Weekday, hour, minute int) int {
	return (int(day)*24*60 + hour*60 + minute) % minutesPerWeek
}

// Embargo is a union of weekly intervals.
type Embargo struct {
	intervals []WeeklyInterval
}

// Covers returns true when t lies in one of the intervals.
// A nil Embargo covers nothing.
func (e *Embargo) Covers(t time.Time) bool {
	if e == nil {
		return false
	}

	for _, interval := range e.intervals {
		if interval.Covers(t) {
			return true
		}
	}

	return false
}

func (e *Embargo) IsEmpty() bool {
	return e == nil || len(e.intervals) == 0
}

func (e *Embargo) String() string {
	if e.IsEmpty() {
		return "none"
	}

	strs := make([]string, 0, len(e.intervals))
	for _, interval := range e.intervals {
		strs = append(strs, interval.String())
	}

	return strings.Join(strs, ", ")
}

// Parse parses a comma-separated list of weekly intervals in the format
// "<weekday> <time> - <weekday> <time>", for example
// "Friday 12pm - Monday 9am, Wed 18:30 - Thu 6:00".
// A "@" can be used instead of the space between weekday and time.
// Weekdays can be abbreviated to three or more letters. Times are parsed
// as 24h clock unless they carry an am or pm suffix.
func Parse(s string) (*Embargo, error) {
	var embargo Embargo

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		interval, err := ParseInterval(part)
		if err != nil {
			return nil, fmt.Errorf("parsing embargo interval %q failed: %w", part, err)
		}

		embargo.intervals = append(embargo.intervals, interval)
	}

	return &embargo, nil
}

// ParseInterval parses a single weekly interval.
func ParseInterval(s string) (WeeklyInterval, error) {
	s = strings.ReplaceAll(s, "@", " ")

	fromPart, toPart, found := strings.Cut(s, "-")
	if !found {
		return WeeklyInterval{}, errors.New("expected format '<weekday> <time> - <weekday> <time>'")
	}

	fromDay, fromMinute, err := parseDayTime(fromPart)
	if err != nil {
		return WeeklyInterval{}, err
	}

	toDay, toMinute, err := parseDayTime(toPart)
	if err != nil {
		return WeeklyInterval{}, err
	}

	return WeeklyInterval{
		from: int(fromDay)*24*60 + fromMinute,
		to:   int(toDay)*24*60 + toMinute,
	}, nil
}

func parseDayTime(s string) (time.Weekday, int, error) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("expected '<weekday> <time>', got %q", strings.TrimSpace(s))
	}

	day, err := parseWeekday(fields[0])
	if err != nil {
		return 0, 0, err
	}

	minute, err := parseClock(fields[1])
	if err != nil {
		return 0, 0, err
	}

	return day, minute, nil
}

func parseWeekday(s string) (time.Weekday, error) {
	name := strings.ToLower(s)
	if len(name) < 3 {
		return 0, fmt.Errorf("unknown weekday: %q", s)
	}

	for day := time.Sunday; day <= time.Saturday; day++ {
		if strings.HasPrefix(strings.ToLower(day.String()), name) {
			return day, nil
		}
	}

	return 0, fmt.Errorf("unknown weekday: %q", s)
}

// parseClock parses a clock time like "18:30", "6", "9am" or "12:15pm"
// and returns it as minutes since midnight.
func parseClock(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	var pm bool
	var isAmPm bool

	switch {
	case strings.HasSuffix(s, "am"):
		isAmPm = true
		s = strings.TrimSuffix(s, "am")
	case strings.HasSuffix(s, "pm"):
		isAmPm = true
		pm = true
		s = strings.TrimSuffix(s, "pm")
	}

	hourStr, minStr, hasMinutes := strings.Cut(s, ":")

	hour, err := strconv.Atoi(hourStr)
	if err != nil {
		return 0, fmt.Errorf("invalid hour: %q", s)
	}

	minute := 0
	if hasMinutes {
		minute, err = strconv.Atoi(minStr)
		if err != nil || minute < 0 || minute > 59 {
			return 0, fmt.Errorf("invalid minute: %q", s)
		}
	}

	if isAmPm {
		if hour < 1 || hour > 12 {
			return 0, fmt.Errorf("invalid 12h clock hour: %q", s)
		}
		hour %= 12
		if pm {
			hour += 12
		}
	} else if hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour: %q", s)
	}

	return hour*60 + minute, nil
}
