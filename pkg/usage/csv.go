package usage

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
)

// CSVHeader is the first line of every CSV response.
var CSVHeader = []string{"Target", "Address", "Prev_kWh", "Current_kWh", "Daily_KWh", "Avg_Power_Watt"}

// WriteCSV writes result as CSV. The Address column is the 1-based position
// of the record within its instance. Records with an average power of
// exactly zero are omitted, the header is always written.
func WriteCSV(w io.Writer, result Result) error {
	csvWriter := csv.NewWriter(w)

	if err := csvWriter.Write(CSVHeader); err != nil {
		return err
	}

	instances := make([]string, 0, len(result))
	for instance := range result {
		instances = append(instances, instance)
	}
	sort.Strings(instances)

	for _, instance := range instances {
		for i, u := range result[instance] {
			if u.AvgPowerWatt == 0 {
				continue
			}
			err := csvWriter.Write([]string{
				instance,
				strconv.Itoa(i + 1),
				formatFloat(u.PrevKWh),
				formatFloat(u.CurrKWh),
				formatFloat(u.DailyKWh),
				formatFloat(u.AvgPowerWatt),
			})
			if err != nil {
				return err
			}
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// formatFloat uses the shortest representation that round trips, without
// an exponent: 250 rather than 250.000000 or 2.5e+02.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
