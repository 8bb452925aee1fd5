package export

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/trackpulse/trackpulse/internal/storage"
)

const effortsQuery = `
SELECT
	e.effort_id,
	e.activity_id,
	e.athlete_id,
	COALESCE(a.name, ''),
	COALESCE(TRIM(ath.first_name || ' ' || ath.last_name), ''),
	COALESCE(e.band, ''),
	COALESCE(e.distance, 0),
	COALESCE(e.velocity, 0),
	COALESCE(e.acceleration, 0),
	e.start_time,
	e.end_time
FROM efforts e
LEFT JOIN activities a ON a.activity_id = e.activity_id
LEFT JOIN athletes ath ON ath.athlete_id = e.athlete_id
WHERE e.created_at >= $1
ORDER BY e.start_time NULLS LAST, e.effort_id`

// Result describes one published export file.
type Result struct {
	Key          string     `json:"key"`
	RecordCount  int64      `json:"record_count"`
	SizeBytes    int64      `json:"size_bytes"`
	MinStartTime *time.Time `json:"min_start_time,omitempty"`
	MaxStartTime *time.Time `json:"max_start_time,omitempty"`
}

// Exporter reads efforts from the store, encodes them to parquet, and uploads
// the file to object storage.
type Exporter struct {
	db     *sql.DB
	store  storage.ObjectStore
	logger *slog.Logger
	now    func() time.Time
}

func NewExporter(db *sql.DB, store storage.ObjectStore, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{db: db, store: store, logger: logger, now: time.Now}
}

// ExportEfforts publishes all efforts created within the lookback window.
// A non-positive lookback defaults to 30 days.
func (e *Exporter) ExportEfforts(ctx context.Context, lookbackDays int) (Result, error) {
	if lookbackDays <= 0 {
		lookbackDays = 30
	}
	since := e.now().UTC().AddDate(0, 0, -lookbackDays)

	rows, err := e.loadEfforts(ctx, since)
	if err != nil {
		return Result{}, err
	}
	if len(rows) == 0 {
		return Result{}, fmt.Errorf("no efforts recorded since %s", since.Format("2006-01-02"))
	}

	encoded, err := EncodeEfforts(rows)
	if err != nil {
		return Result{}, err
	}

	key := fmt.Sprintf("exports/efforts/%s.parquet", e.now().UTC().Format("20060102T150405Z"))
	info, err := e.store.Put(ctx, key, bytes.NewReader(encoded.Data), int64(len(encoded.Data)), storage.PutOptions{
		ContentType: "application/vnd.apache.parquet",
	})
	if err != nil {
		return Result{}, fmt.Errorf("upload export %q: %w", key, err)
	}

	e.logger.Info("efforts export published",
		slog.String("key", info.Key),
		slog.Int64("records", encoded.RecordCount),
		slog.Int64("size_bytes", info.Size))
	return Result{
		Key:          info.Key,
		RecordCount:  encoded.RecordCount,
		SizeBytes:    info.Size,
		MinStartTime: encoded.MinStartTime,
		MaxStartTime: encoded.MaxStartTime,
	}, nil
}

func (e *Exporter) loadEfforts(ctx context.Context, since time.Time) ([]EffortRow, error) {
	rows, err := e.db.QueryContext(ctx, effortsQuery, since)
	if err != nil {
		return nil, fmt.Errorf("load efforts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []EffortRow
	for rows.Next() {
		var row EffortRow
		var start, end sql.NullTime
		if err := rows.Scan(
			&row.EffortID,
			&row.ActivityID,
			&row.AthleteID,
			&row.ActivityName,
			&row.AthleteName,
			&row.Band,
			&row.Distance,
			&row.Velocity,
			&row.Acceleration,
			&start,
			&end,
		); err != nil {
			return nil, fmt.Errorf("scan effort row: %w", err)
		}
		if start.Valid {
			row.StartTimeUnixMs = start.Time.UnixMilli()
		}
		if end.Valid {
			row.EndTimeUnixMs = end.Time.UnixMilli()
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate effort rows: %w", err)
	}
	return out, nil
}
