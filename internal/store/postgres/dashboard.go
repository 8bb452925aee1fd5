package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DashboardRepository serves the aggregate counts behind the dashboard
// endpoints. These are plain grouped queries over the sports schema.
type DashboardRepository struct {
	db *sql.DB
}

func NewDashboardRepository(db *sql.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

func (r *DashboardRepository) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

type OverviewTotals struct {
	Activities int64 `json:"activities"`
	Athletes   int64 `json:"athletes"`
	Events     int64 `json:"events"`
	Efforts    int64 `json:"efforts"`
	Owners     int64 `json:"owners"`
}

type RecentCounts struct {
	Activities int64 `json:"activities"`
	Events     int64 `json:"events"`
	Efforts    int64 `json:"efforts"`
}

type LatestActivity struct {
	ActivityID int64      `json:"id"`
	Name       string     `json:"name"`
	CreatedAt  *time.Time `json:"date,omitempty"`
}

type Overview struct {
	PeriodDays     int             `json:"period_days"`
	Totals         OverviewTotals  `json:"totals"`
	Recent         RecentCounts    `json:"recent"`
	LatestActivity *LatestActivity `json:"latest_activity,omitempty"`
}

func (r *DashboardRepository) Overview(ctx context.Context, lookbackDays int) (Overview, error) {
	if lookbackDays <= 0 {
		lookbackDays = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -lookbackDays)

	overview := Overview{PeriodDays: lookbackDays}

	totalsQuery := `
SELECT
	(SELECT COUNT(*) FROM activities),
	(SELECT COUNT(*) FROM athletes),
	(SELECT COUNT(*) FROM events),
	(SELECT COUNT(*) FROM efforts),
	(SELECT COUNT(*) FROM owners)`
	if err := r.db.QueryRowContext(ctx, totalsQuery).Scan(
		&overview.Totals.Activities,
		&overview.Totals.Athletes,
		&overview.Totals.Events,
		&overview.Totals.Efforts,
		&overview.Totals.Owners,
	); err != nil {
		return Overview{}, fmt.Errorf("load totals: %w", err)
	}

	recentQuery := `
SELECT
	(SELECT COUNT(*) FROM activities WHERE created_at >= $1),
	(SELECT COUNT(*) FROM events WHERE created_at >= $1),
	(SELECT COUNT(*) FROM efforts WHERE created_at >= $1)`
	if err := r.db.QueryRowContext(ctx, recentQuery, since).Scan(
		&overview.Recent.Activities,
		&overview.Recent.Events,
		&overview.Recent.Efforts,
	); err != nil {
		return Overview{}, fmt.Errorf("load recent counts: %w", err)
	}

	latestQuery := `
SELECT activity_id, name, created_at
FROM activities
ORDER BY created_at DESC
LIMIT 1`
	var latest LatestActivity
	var createdAt sql.NullTime
	err := r.db.QueryRowContext(ctx, latestQuery).Scan(&latest.ActivityID, &latest.Name, &createdAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Empty store; overview still valid.
	case err != nil:
		return Overview{}, fmt.Errorf("load latest activity: %w", err)
	default:
		if createdAt.Valid {
			t := createdAt.Time
			latest.CreatedAt = &t
		}
		overview.LatestActivity = &latest
	}

	return overview, nil
}

type IntensityBucket struct {
	Intensity string `json:"intensity"`
	Count     int64  `json:"count"`
}

func (r *DashboardRepository) IntensityDistribution(ctx context.Context, lookbackDays int) ([]IntensityBucket, error) {
	if lookbackDays <= 0 {
		lookbackDays = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -lookbackDays)

	rows, err := r.db.QueryContext(ctx, `
SELECT intensity, COUNT(*)
FROM events
WHERE intensity IS NOT NULL AND created_at >= $1
GROUP BY intensity
ORDER BY COUNT(*) DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("load intensity distribution: %w", err)
	}
	defer func() { _ = rows.Close() }()

	buckets := make([]IntensityBucket, 0)
	for rows.Next() {
		var bucket IntensityBucket
		if err := rows.Scan(&bucket.Intensity, &bucket.Count); err != nil {
			return nil, fmt.Errorf("scan intensity row: %w", err)
		}
		buckets = append(buckets, bucket)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate intensity rows: %w", err)
	}
	return buckets, nil
}
