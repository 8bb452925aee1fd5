// Package export encodes effort datasets to parquet and publishes them to
// object storage.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"
)

// EffortRow is one flattened effort measurement destined for an analytics
// export file.
type EffortRow struct {
	EffortID        int64   `parquet:"effort_id"`
	ActivityID      int64   `parquet:"activity_id"`
	AthleteID       int64   `parquet:"athlete_id"`
	ActivityName    string  `parquet:"activity_name"`
	AthleteName     string  `parquet:"athlete_name"`
	Band            string  `parquet:"band"`
	Distance        float64 `parquet:"distance"`
	Velocity        float64 `parquet:"velocity"`
	Acceleration    float64 `parquet:"acceleration"`
	StartTimeUnixMs int64   `parquet:"start_time_unix_ms"`
	EndTimeUnixMs   int64   `parquet:"end_time_unix_ms"`
}

type EncodeResult struct {
	Data         []byte
	RecordCount  int64
	MinStartTime *time.Time
	MaxStartTime *time.Time
}

func EncodeEfforts(rows []EffortRow) (EncodeResult, error) {
	if len(rows) == 0 {
		return EncodeResult{}, fmt.Errorf("efforts are required")
	}

	var minTime *time.Time
	var maxTime *time.Time
	for _, row := range rows {
		if row.StartTimeUnixMs <= 0 {
			continue
		}
		startTime := time.UnixMilli(row.StartTimeUnixMs).UTC()
		if minTime == nil || startTime.Before(*minTime) {
			copy := startTime
			minTime = &copy
		}
		if maxTime == nil || startTime.After(*maxTime) {
			copy := startTime
			maxTime = &copy
		}
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[EffortRow](buf)
	if _, err := writer.Write(rows); err != nil {
		return EncodeResult{}, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return EncodeResult{}, fmt.Errorf("close parquet writer: %w", err)
	}

	return EncodeResult{
		Data:         buf.Bytes(),
		RecordCount:  int64(len(rows)),
		MinStartTime: minTime,
		MaxStartTime: maxTime,
	}, nil
}
