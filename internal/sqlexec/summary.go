package sqlexec

import (
	"fmt"
	"math"
)

// ColumnStats describes one result column. Type selects which of the other
// fields are populated: numeric fills Min/Max/Avg, string fills UniqueValues
// and SampleValues, null fills NullCount, anything else carries only a count.
type ColumnStats struct {
	Type         string   `json:"type"`
	Count        int      `json:"count,omitempty"`
	NullCount    int      `json:"null_count,omitempty"`
	Min          *float64 `json:"min,omitempty"`
	Max          *float64 `json:"max,omitempty"`
	Avg          *float64 `json:"avg,omitempty"`
	UniqueValues int      `json:"unique_values,omitempty"`
	SampleValues []string `json:"sample_values,omitempty"`
}

// Summary condenses a result set for explanation and dashboards.
type Summary struct {
	Message          string                 `json:"message,omitempty"`
	TotalRows        int                    `json:"total_rows,omitempty"`
	ColumnsCount     int                    `json:"columns_count,omitempty"`
	SampleData       []map[string]any       `json:"sample_data,omitempty"`
	ColumnStatistics map[string]ColumnStats `json:"column_statistics,omitempty"`
}

func summarize(data []map[string]any, columns []string) *Summary {
	if len(data) == 0 {
		return &Summary{Message: "No data returned"}
	}

	sample := data
	if len(sample) > 3 {
		sample = sample[:3]
	}

	stats := make(map[string]ColumnStats, len(columns))
	for _, col := range columns {
		stats[col] = columnStats(data, col)
	}

	return &Summary{
		TotalRows:        len(data),
		ColumnsCount:     len(columns),
		SampleData:       sample,
		ColumnStatistics: stats,
	}
}

func columnStats(data []map[string]any, col string) ColumnStats {
	nonNull := make([]any, 0, len(data))
	for _, row := range data {
		if row[col] != nil {
			nonNull = append(nonNull, row[col])
		}
	}
	if len(nonNull) == 0 {
		return ColumnStats{Type: "null", NullCount: len(data)}
	}

	switch nonNull[0].(type) {
	case int64, float64:
		return numericStats(nonNull)
	case string:
		return stringStats(nonNull)
	default:
		return ColumnStats{
			Type:  fmt.Sprintf("%T", nonNull[0]),
			Count: len(nonNull),
		}
	}
}

func numericStats(values []any) ColumnStats {
	nums := make([]float64, 0, len(values))
	for _, v := range values {
		switch n := v.(type) {
		case int64:
			nums = append(nums, float64(n))
		case float64:
			nums = append(nums, n)
		}
	}
	if len(nums) == 0 {
		return ColumnStats{Type: "numeric"}
	}

	minV, maxV, sum := nums[0], nums[0], 0.0
	for _, n := range nums {
		if n < minV {
			minV = n
		}
		if n > maxV {
			maxV = n
		}
		sum += n
	}
	avg := math.Round(sum/float64(len(nums))*100) / 100
	return ColumnStats{
		Type:  "numeric",
		Count: len(nums),
		Min:   &minV,
		Max:   &maxV,
		Avg:   &avg,
	}
}

func stringStats(values []any) ColumnStats {
	seen := make(map[string]struct{}, len(values))
	samples := make([]string, 0, 5)
	count := 0
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		count++
		if _, dup := seen[s]; !dup {
			seen[s] = struct{}{}
			if len(samples) < 5 {
				samples = append(samples, s)
			}
		}
	}
	return ColumnStats{
		Type:         "string",
		Count:        count,
		UniqueValues: len(seen),
		SampleValues: samples,
	}
}
