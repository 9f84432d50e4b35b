package usage

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPowerUsage(t *testing.T) {
	tests := map[string]struct {
		prev, curr float64
		expected   PowerUsage
	}{
		"six kWh over a day": {
			prev: 4, curr: 10,
			expected: PowerUsage{PrevKWh: 4, CurrKWh: 10, DailyKWh: 6, AvgPowerWatt: 250},
		},
		"no usage": {
			prev: 12.5, curr: 12.5,
			expected: PowerUsage{PrevKWh: 12.5, CurrKWh: 12.5, DailyKWh: 0, AvgPowerWatt: 0},
		},
		"meter reset is not clamped": {
			prev: 100, curr: 4,
			expected: PowerUsage{PrevKWh: 100, CurrKWh: 4, DailyKWh: -96, AvgPowerWatt: -4000},
		},
		"rounded to two decimals": {
			prev: 0, curr: 1,
			expected: PowerUsage{PrevKWh: 0, CurrKWh: 1, DailyKWh: 1, AvgPowerWatt: 41.67},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NewPowerUsage(tt.prev, tt.curr))
		})
	}
}

func TestAveragePowerWatt(t *testing.T) {
	tests := map[string]struct {
		dailyKWh float64
		expected float64
	}{
		"zero":                   {dailyKWh: 0, expected: 0},
		"exact":                  {dailyKWh: 6, expected: 250},
		"one third of a watt":    {dailyKWh: 0.008, expected: 0.33},
		"negative":               {dailyKWh: -0.008, expected: -0.33},
		"below half rounds to 0": {dailyKWh: 0.0001, expected: 0},
		"large delta":            {dailyKWh: 1234.567, expected: 51440.29},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AveragePowerWatt(tt.dailyKWh))
			// the result must match the multiply, round, divide chain exactly
			assert.Equal(t, math.Round(tt.dailyKWh/24.0*100000.0)/100.0, AveragePowerWatt(tt.dailyKWh))
		})
	}
}

func TestAlign(t *testing.T) {
	tests := map[string]struct {
		current  InstanceSeries
		previous InstanceSeries
		expected Result
	}{
		"previous is longer, truncated to current": {
			current:  InstanceSeries{"a": {10, 20}},
			previous: InstanceSeries{"a": {4, 6, 9}},
			expected: Result{"a": {
				NewPowerUsage(4, 10),
				NewPowerUsage(6, 20),
			}},
		},
		"current is longer, truncated to previous": {
			current:  InstanceSeries{"a": {10, 20, 30}},
			previous: InstanceSeries{"a": {4}},
			expected: Result{"a": {
				NewPowerUsage(4, 10),
			}},
		},
		"instance missing from previous is dropped": {
			current:  InstanceSeries{"a": {10}, "b": {5}},
			previous: InstanceSeries{"a": {4}},
			expected: Result{"a": {NewPowerUsage(4, 10)}},
		},
		"instance only in previous is ignored": {
			current:  InstanceSeries{"a": {10}},
			previous: InstanceSeries{"a": {4}, "c": {1}},
			expected: Result{"a": {NewPowerUsage(4, 10)}},
		},
		"empty previous sequence yields an empty entry": {
			current:  InstanceSeries{"a": {10}},
			previous: InstanceSeries{"a": {}},
			expected: Result{"a": {}},
		},
		"nothing current": {
			current:  InstanceSeries{},
			previous: InstanceSeries{"a": {4}},
			expected: Result{},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Align(tt.current, tt.previous))
		})
	}
}

func TestAlignPairsByPosition(t *testing.T) {
	result := Align(InstanceSeries{"a": {10, 20}}, InstanceSeries{"a": {4, 6, 9}})
	require.Len(t, result["a"], 2)
	assert.Equal(t, 10.0, result["a"][0].CurrKWh)
	assert.Equal(t, 4.0, result["a"][0].PrevKWh)
	assert.Equal(t, 20.0, result["a"][1].CurrKWh)
	assert.Equal(t, 6.0, result["a"][1].PrevKWh)
}

func TestPowerUsageMarshalJSON(t *testing.T) {
	b, err := json.Marshal(NewPowerUsage(4, 10))
	require.NoError(t, err)
	assert.JSONEq(t, `{"prev_kwh":4,"curr_kwh":10,"daily_kwh":6,"avg_power_watt":250}`, string(b))

	b, err = json.Marshal(NewPowerUsage(4, math.NaN()))
	require.NoError(t, err)
	assert.JSONEq(t, `{"prev_kwh":4,"curr_kwh":null,"daily_kwh":null,"avg_power_watt":null}`, string(b))
}
