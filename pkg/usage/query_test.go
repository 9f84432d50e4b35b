package usage

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuery(t *testing.T) {
	wib, err := FixedZone(DefaultTimezoneOffset)
	require.NoError(t, err)

	tests := map[string]struct {
		params        url.Values
		expectedQuery Query
		expectErr     bool
	}{
		"valid json request": {
			params: url.Values{
				"target": {"meter-1"},
				"date":   {"2024-03-15"},
				"time":   {"07:30"},
			},
			expectedQuery: Query{
				Target: "meter-1",
				Time:   time.Date(2024, time.March, 15, 0, 30, 0, 0, time.UTC),
			},
		},
		"valid csv request with regex target": {
			params: url.Values{
				"target": {"meter-.*"},
				"date":   {"2024-01-01"},
				"time":   {"00:00"},
				"csv":    {"true"},
			},
			expectedQuery: Query{
				Target: "meter-.*",
				Time:   time.Date(2023, time.December, 31, 17, 0, 0, 0, time.UTC),
				CSV:    true,
			},
		},
		"dot delimited date": {
			params: url.Values{
				"target": {"meter-1"},
				"date":   {"2024.03.15"},
				"time":   {"12:00"},
			},
			expectedQuery: Query{
				Target: "meter-1",
				Time:   time.Date(2024, time.March, 15, 5, 0, 0, 0, time.UTC),
			},
		},
		"csv is only enabled by the literal true": {
			params: url.Values{
				"target": {"meter-1"},
				"date":   {"2024-03-15"},
				"time":   {"07:00"},
				"csv":    {"TRUE"},
			},
			expectedQuery: Query{
				Target: "meter-1",
				Time:   time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
			},
		},
		"leap day": {
			params: url.Values{
				"target": {"meter-1"},
				"date":   {"2024-02-29"},
				"time":   {"23:59"},
			},
			expectedQuery: Query{
				Target: "meter-1",
				Time:   time.Date(2024, time.February, 29, 16, 59, 0, 0, time.UTC),
			},
		},
		"missing target": {
			params:    url.Values{"date": {"2024-03-15"}, "time": {"07:30"}},
			expectErr: true,
		},
		"empty target": {
			params:    url.Values{"target": {""}, "date": {"2024-03-15"}, "time": {"07:30"}},
			expectErr: true,
		},
		"missing date": {
			params:    url.Values{"target": {"meter-1"}, "time": {"07:30"}},
			expectErr: true,
		},
		"date with two components": {
			params:    url.Values{"target": {"meter-1"}, "date": {"2024-03"}, "time": {"07:30"}},
			expectErr: true,
		},
		"date with four components": {
			params:    url.Values{"target": {"meter-1"}, "date": {"2024-03-15-01"}, "time": {"07:30"}},
			expectErr: true,
		},
		"date with non-numeric component": {
			params:    url.Values{"target": {"meter-1"}, "date": {"2024-March-15"}, "time": {"07:30"}},
			expectErr: true,
		},
		"date with empty component": {
			params:    url.Values{"target": {"meter-1"}, "date": {"2024--15"}, "time": {"07:30"}},
			expectErr: true,
		},
		"missing time": {
			params:    url.Values{"target": {"meter-1"}, "date": {"2024-03-15"}},
			expectErr: true,
		},
		"time with one component": {
			params:    url.Values{"target": {"meter-1"}, "date": {"2024-03-15"}, "time": {"0730"}},
			expectErr: true,
		},
		"time with seconds": {
			params:    url.Values{"target": {"meter-1"}, "date": {"2024-03-15"}, "time": {"07:30:00"}},
			expectErr: true,
		},
		"time with non-numeric component": {
			params:    url.Values{"target": {"meter-1"}, "date": {"2024-03-15"}, "time": {"07:xx"}},
			expectErr: true,
		},
		"month out of range": {
			params:    url.Values{"target": {"meter-1"}, "date": {"2024-13-01"}, "time": {"07:30"}},
			expectErr: true,
		},
		"day out of range": {
			params:    url.Values{"target": {"meter-1"}, "date": {"2023-02-29"}, "time": {"07:30"}},
			expectErr: true,
		},
		"hour out of range": {
			params:    url.Values{"target": {"meter-1"}, "date": {"2024-03-15"}, "time": {"24:00"}},
			expectErr: true,
		},
		"minute out of range": {
			params:    url.Values{"target": {"meter-1"}, "date": {"2024-03-15"}, "time": {"07:60"}},
			expectErr: true,
		},
		"negative component": {
			params:    url.Values{"target": {"meter-1"}, "date": {"2024-03-15"}, "time": {"-1:30"}},
			expectErr: true,
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			q, err := ParseQuery(tt.params, wib)
			if tt.expectErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedQuery.Target, q.Target)
			assert.Equal(t, tt.expectedQuery.CSV, q.CSV)
			assert.True(t, tt.expectedQuery.Time.Equal(q.Time), "expected %s, got %s", tt.expectedQuery.Time, q.Time)
			assert.Equal(t, time.UTC, q.Time.Location())
		})
	}
}

func TestParseQueryWithoutLocation(t *testing.T) {
	_, err := ParseQuery(url.Values{"target": {"a"}, "date": {"2024-03-15"}, "time": {"07:30"}}, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidRequest)
}

func TestQueryPrevious(t *testing.T) {
	for _, offset := range []time.Duration{DefaultTimezoneOffset, 0, -5 * time.Hour, 5*time.Hour + 30*time.Minute, 14 * time.Hour} {
		loc, err := FixedZone(offset)
		require.NoError(t, err)

		for _, date := range []string{"2024-03-10", "2024-02-29", "2024-01-01", "2023-11-05"} {
			q, err := ParseQuery(url.Values{"target": {"a"}, "date": {date}, "time": {"02:30"}}, loc)
			require.NoError(t, err)
			assert.Equal(t, 24*time.Hour, q.Time.Sub(q.Previous()), "offset %s date %s", offset, date)
		}
	}
}

func TestFixedZone(t *testing.T) {
	tests := map[string]struct {
		offset       time.Duration
		expectedName string
		expectErr    bool
	}{
		"wib":             {offset: 7 * time.Hour, expectedName: "UTC+7"},
		"utc":             {offset: 0, expectedName: "UTC+0"},
		"negative":        {offset: -3 * time.Hour, expectedName: "UTC-3"},
		"half hour":       {offset: 5*time.Hour + 30*time.Minute, expectedName: "UTC+5:30"},
		"a full day":      {offset: 24 * time.Hour, expectErr: true},
		"minus a day":     {offset: -24 * time.Hour, expectErr: true},
		"fractional secs": {offset: time.Hour + time.Millisecond, expectErr: true},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			loc, err := FixedZone(tt.offset)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedName, loc.String())
			_, offset := time.Date(2024, time.June, 1, 0, 0, 0, 0, loc).Zone()
			assert.Equal(t, int(tt.offset/time.Second), offset)
		})
	}
}
