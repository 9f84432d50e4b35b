package promquery

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/prometheus/common/model"

	"github.com/operator-framework/power-metering/pkg/usage"
)

const (
	addressLabel    model.LabelName = "address"
	unknownInstance                 = "unknown"
)

// queryResponse is the envelope of a Prometheus /api/v1/query response.
// Result items are kept raw so a single malformed item doesn't fail the
// whole response.
type queryResponse struct {
	Status    string     `json:"status"`
	Data      *queryData `json:"data"`
	ErrorType string     `json:"errorType"`
	Error     string     `json:"error"`
	Warnings  []string   `json:"warnings"`
}

type queryData struct {
	ResultType string             `json:"resultType"`
	Result     *[]json.RawMessage `json:"result"`
}

// vectorSample is a single instant vector element: a label set and a
// [timestamp, "value"] pair.
type vectorSample struct {
	Metric model.Metric      `json:"metric"`
	Value  []json.RawMessage `json:"value"`
}

func (s vectorSample) instance() string {
	if instance, ok := s.Metric[model.InstanceLabel]; ok {
		return string(instance)
	}
	return unknownInstance
}

// address returns the numeric address label used for ordering, or 0 if it's
// missing or not an unsigned 32 bit integer.
func (s vectorSample) address() uint64 {
	address, err := strconv.ParseUint(string(s.Metric[addressLabel]), 10, 32)
	if err != nil {
		return 0
	}
	return address
}

func (s vectorSample) value() (float64, bool) {
	if len(s.Value) < 2 {
		return 0, false
	}
	var str string
	if err := json.Unmarshal(s.Value[1], &str); err != nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// groupByInstance orders the result items by their address label and
// groups their values by instance. Items that can't be decoded or whose
// value doesn't parse are skipped.
func groupByInstance(items []json.RawMessage) usage.InstanceSeries {
	type keyedSample struct {
		address uint64
		sample  vectorSample
	}

	samples := make([]keyedSample, 0, len(items))
	for _, item := range items {
		var s vectorSample
		if err := json.Unmarshal(item, &s); err != nil {
			continue
		}
		samples = append(samples, keyedSample{address: s.address(), sample: s})
	}

	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].address < samples[j].address
	})

	series := make(usage.InstanceSeries)
	for _, ks := range samples {
		v, ok := ks.sample.value()
		if !ok {
			continue
		}
		instance := ks.sample.instance()
		series[instance] = append(series[instance], v)
	}
	return series
}
