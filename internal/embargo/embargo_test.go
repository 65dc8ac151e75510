package embargo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// day returns the given weekday of the week starting Monday 2023-03-13 in
// UTC.
func day(weekday time.Weekday, hour, minute int) time.Time {
	date := 13 + (int(weekday)+6)%7
	return time.Date(2023, time.March, date, hour, minute, 0, 0, time.UTC)
}

func TestWeeklyIntervalCovers(t *testing.T) {
	workweek := NewWeeklyInterval(time.Monday, 9, 0, time.Friday, 17, 30)

	assert.True(t, workweek.Covers(day(time.Wednesday, 12, 0)))
	assert.True(t, workweek.Covers(day(time.Monday, 9, 0)), "start boundary is inclusive")
	assert.True(t, workweek.Covers(day(time.Friday, 17, 30)), "end boundary is inclusive")
	assert.False(t, workweek.Covers(day(time.Monday, 8, 59)))
	assert.False(t, workweek.Covers(day(time.Friday, 17, 31)))
	assert.False(t, workweek.Covers(day(time.Sunday, 12, 0)))
}

func TestWeeklyIntervalCoversWrapsAroundWeekEnd(t *testing.T) {
	weekend := NewWeeklyInterval(time.Friday, 18, 0, time.Monday, 6, 0)

	assert.True(t, weekend.Covers(day(time.Saturday, 3, 0)))
	assert.True(t, weekend.Covers(day(time.Sunday, 23, 59)))
	assert.True(t, weekend.Covers(day(time.Friday, 18, 0)))
	assert.True(t, weekend.Covers(day(time.Monday, 6, 0)))
	assert.False(t, weekend.Covers(day(time.Monday, 6, 1)))
	assert.False(t, weekend.Covers(day(time.Wednesday, 12, 0)))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		covered    []time.Time
		notCovered []time.Time
	}{
		{
			name:       "weekday names with am pm times",
			in:         "Friday 12pm - Monday 9am",
			covered:    []time.Time{day(time.Saturday, 0, 0), day(time.Friday, 12, 0), day(time.Monday, 9, 0)},
			notCovered: []time.Time{day(time.Friday, 11, 59), day(time.Monday, 9, 1), day(time.Wednesday, 12, 0)},
		},
		{
			name:       "abbreviated weekdays with 24h times",
			in:         "mon 10:00 - fri 18:00",
			covered:    []time.Time{day(time.Tuesday, 0, 0)},
			notCovered: []time.Time{day(time.Saturday, 12, 0)},
		},
		{
			name:       "at sign separator",
			in:         "Fri@6pm - Mon@6am",
			covered:    []time.Time{day(time.Sunday, 12, 0)},
			notCovered: []time.Time{day(time.Thursday, 12, 0)},
		},
		{
			name:       "union of intervals",
			in:         "Mon 12:00 - Mon 13:00, Wed 12:00 - Wed 13:00",
			covered:    []time.Time{day(time.Monday, 12, 30), day(time.Wednesday, 12, 30)},
			notCovered: []time.Time{day(time.Tuesday, 12, 30)},
		},
		{
			name:       "noon and midnight in 12h clock",
			in:         "Sat 12am - Sat 12pm",
			covered:    []time.Time{day(time.Saturday, 0, 0), day(time.Saturday, 12, 0)},
			notCovered: []time.Time{day(time.Saturday, 12, 1), day(time.Friday, 23, 59)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embargo, err := Parse(tt.in)
			require.NoError(t, err)

			for _, moment := range tt.covered {
				assert.Truef(t, embargo.Covers(moment), "%s is not covered by %q", moment, tt.in)
			}
			for _, moment := range tt.notCovered {
				assert.Falsef(t, embargo.Covers(moment), "%s is covered by %q", moment, tt.in)
			}
		})
	}
}

func TestParseEmptyStringCoversNothing(t *testing.T) {
	embargo, err := Parse("")
	require.NoError(t, err)

	assert.True(t, embargo.IsEmpty())
	assert.False(t, embargo.Covers(day(time.Monday, 12, 0)))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "missing separator", in: "Friday 12pm Monday 9am"},
		{name: "unknown weekday", in: "Frayday 12pm - Monday 9am"},
		{name: "weekday abbreviation too short", in: "Fr 12pm - Monday 9am"},
		{name: "invalid hour", in: "Friday 25:00 - Monday 9am"},
		{name: "invalid 12h hour", in: "Friday 13pm - Monday 9am"},
		{name: "invalid minute", in: "Friday 12:87 - Monday 9am"},
		{name: "missing time", in: "Friday - Monday"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.in)
			assert.Error(t, err)
		})
	}
}

func TestNilEmbargoCoversNothing(t *testing.T) {
	var embargo *Embargo

	assert.False(t, embargo.Covers(day(time.Monday, 12, 0)))
	assert.True(t, embargo.IsEmpty())
}
