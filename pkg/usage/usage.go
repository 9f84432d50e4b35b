// Package usage turns pairs of cumulative energy readings into daily power
// usage figures.
package usage

import (
	"encoding/json"
	"math"
)

// InstanceSeries maps an instance identifier to its readings in kWh, ordered
// by address.
type InstanceSeries map[string][]float64

// Result maps an instance identifier to one PowerUsage per paired reading.
type Result map[string][]PowerUsage

// PowerUsage is the usage of a single meter over one day.
type PowerUsage struct {
	PrevKWh      float64 `json:"prev_kwh"`
	CurrKWh      float64 `json:"curr_kwh"`
	DailyKWh     float64 `json:"daily_kwh"`
	AvgPowerWatt float64 `json:"avg_power_watt"`
}

// NewPowerUsage computes the daily delta and average power between two
// readings taken 24 hours apart. A negative delta (e.g. a meter reset) is
// kept as is.
func NewPowerUsage(prev, curr float64) PowerUsage {
	daily := curr - prev
	return PowerUsage{
		PrevKWh:      prev,
		CurrKWh:      curr,
		DailyKWh:     daily,
		AvgPowerWatt: AveragePowerWatt(daily),
	}
}

// AveragePowerWatt converts a daily energy delta in kWh into the average
// power in watts, rounded to two decimal places.
//
// The operations must stay in this order: kWh/day -> kW, scaled by 1000*100,
// rounded half away from zero, then divided by 100. Simplifying the
// arithmetic changes the results of some inputs.
func AveragePowerWatt(dailyKWh float64) float64 {
	return math.Round(dailyKWh/24.0*100000.0) / 100.0
}

// Align pairs the readings of every instance in current with the readings
// of the same instance in previous.
//
// Instances without previous readings are left out of the result. Readings
// are paired by position and the longer sequence is truncated to the length
// of the shorter one.
func Align(current, previous InstanceSeries) Result {
	result := make(Result, len(current))
	for instance, curr := range current {
		prev, ok := previous[instance]
		if !ok {
			continue
		}
		n := len(curr)
		if len(prev) < n {
			n = len(prev)
		}
		usages := make([]PowerUsage, n)
		for i := 0; i < n; i++ {
			usages[i] = NewPowerUsage(prev[i], curr[i])
		}
		result[instance] = usages
	}
	return result
}

// MarshalJSON encodes non-finite values as null, encoding/json refuses to
// encode them.
func (u PowerUsage) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		PrevKWh      *float64 `json:"prev_kwh"`
		CurrKWh      *float64 `json:"curr_kwh"`
		DailyKWh     *float64 `json:"daily_kwh"`
		AvgPowerWatt *float64 `json:"avg_power_watt"`
	}{
		PrevKWh:      finite(u.PrevKWh),
		CurrKWh:      finite(u.CurrKWh),
		DailyKWh:     finite(u.DailyKWh),
		AvgPowerWatt: finite(u.AvgPowerWatt),
	})
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
