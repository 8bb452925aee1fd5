package etl

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

const (
	upsertOwnerSQL = `
INSERT INTO owners (owner_id, customer_id, name, email, is_synced, is_deleted)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (owner_id) DO UPDATE SET
	customer_id = EXCLUDED.customer_id,
	name = EXCLUDED.name,
	email = EXCLUDED.email,
	is_synced = EXCLUDED.is_synced,
	is_deleted = EXCLUDED.is_deleted`

	upsertAthleteSQL = `
INSERT INTO athletes (athlete_id, first_name, last_name, gender, jersey_number, height, weight, position_id, date_of_birth)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (athlete_id) DO UPDATE SET
	first_name = EXCLUDED.first_name,
	last_name = EXCLUDED.last_name,
	gender = EXCLUDED.gender,
	jersey_number = EXCLUDED.jersey_number,
	height = EXCLUDED.height,
	weight = EXCLUDED.weight,
	position_id = EXCLUDED.position_id,
	date_of_birth = EXCLUDED.date_of_birth`

	upsertActivitySQL = `
INSERT INTO activities (activity_id, name, start_time, end_time, game_id, owner_id, owner_name, owner_email, athlete_count, period_count)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (activity_id) DO UPDATE SET
	name = EXCLUDED.name,
	start_time = EXCLUDED.start_time,
	end_time = EXCLUDED.end_time,
	game_id = EXCLUDED.game_id,
	owner_id = EXCLUDED.owner_id,
	owner_name = EXCLUDED.owner_name,
	owner_email = EXCLUDED.owner_email,
	athlete_count = EXCLUDED.athlete_count,
	period_count = EXCLUDED.period_count,
	updated_at = NOW()`

	upsertPeriodSQL = `
INSERT INTO periods (period_id, activity_id, name, start_time, end_time, is_deleted)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (period_id) DO UPDATE SET
	activity_id = EXCLUDED.activity_id,
	name = EXCLUDED.name,
	start_time = EXCLUDED.start_time,
	end_time = EXCLUDED.end_time,
	is_deleted = EXCLUDED.is_deleted`

	// Events and efforts carry no provider id, so conflicts resolve against
	// the natural-key indexes and re-syncs stay idempotent.
	upsertEventSQL = `
INSERT INTO events (activity_id, athlete_id, device_id, start_time, end_time, version, intensity, direction)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (activity_id, athlete_id, COALESCE(start_time, 'epoch'::timestamptz), COALESCE(version, -1)) DO UPDATE SET
	device_id = EXCLUDED.device_id,
	end_time = EXCLUDED.end_time,
	intensity = EXCLUDED.intensity,
	direction = EXCLUDED.direction`

	upsertEffortSQL = `
INSERT INTO efforts (activity_id, athlete_id, device_id, start_time, end_time, band, distance, velocity, acceleration)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (activity_id, athlete_id, COALESCE(start_time, 'epoch'::timestamptz), COALESCE(band, '')) DO UPDATE SET
	device_id = EXCLUDED.device_id,
	end_time = EXCLUDED.end_time,
	distance = EXCLUDED.distance,
	velocity = EXCLUDED.velocity,
	acceleration = EXCLUDED.acceleration`
)

// Loader upserts transformed records into the analytics store.
type Loader struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewLoader(db *sql.DB, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{db: db, logger: logger}
}

func (l *Loader) UpsertOwners(ctx context.Context, records []OwnerRecord) error {
	return l.inTx(ctx, "owners", len(records), func(tx *sql.Tx) error {
		for _, r := range records {
			_, err := tx.ExecContext(ctx, upsertOwnerSQL,
				r.OwnerID, nullString(r.CustomerID), r.Name, nullString(r.Email), r.IsSynced, r.IsDeleted)
			if err != nil {
				return fmt.Errorf("upsert owner %d: %w", r.OwnerID, err)
			}
		}
		return nil
	})
}

func (l *Loader) UpsertAthletes(ctx context.Context, records []AthleteRecord) error {
	return l.inTx(ctx, "athletes", len(records), func(tx *sql.Tx) error {
		for _, r := range records {
			_, err := tx.ExecContext(ctx, upsertAthleteSQL,
				r.AthleteID, r.FirstName, r.LastName, nullString(r.Gender),
				r.JerseyNumber, r.Height, r.Weight, r.PositionID, nullString(r.DateOfBirth))
			if err != nil {
				return fmt.Errorf("upsert athlete %d: %w", r.AthleteID, err)
			}
		}
		return nil
	})
}

func (l *Loader) UpsertActivities(ctx context.Context, records []ActivityRecord) error {
	return l.inTx(ctx, "activities", len(records), func(tx *sql.Tx) error {
		for _, r := range records {
			_, err := tx.ExecContext(ctx, upsertActivitySQL,
				r.ActivityID, r.Name, r.StartTime, r.EndTime, r.GameID,
				r.OwnerID, nullString(r.OwnerName), nullString(r.OwnerEmail),
				r.AthleteCount, r.PeriodCount)
			if err != nil {
				return fmt.Errorf("upsert activity %d: %w", r.ActivityID, err)
			}
		}
		return nil
	})
}

func (l *Loader) UpsertPeriods(ctx context.Context, records []PeriodRecord) error {
	return l.inTx(ctx, "periods", len(records), func(tx *sql.Tx) error {
		for _, r := range records {
			_, err := tx.ExecContext(ctx, upsertPeriodSQL,
				r.PeriodID, r.ActivityID, nullString(r.Name), r.StartTime, r.EndTime, r.IsDeleted)
			if err != nil {
				return fmt.Errorf("upsert period %d: %w", r.PeriodID, err)
			}
		}
		return nil
	})
}

func (l *Loader) UpsertEvents(ctx context.Context, records []EventRecord) error {
	return l.inTx(ctx, "events", len(records), func(tx *sql.Tx) error {
		for _, r := range records {
			_, err := tx.ExecContext(ctx, upsertEventSQL,
				r.ActivityID, r.AthleteID, r.DeviceID, r.StartTime, r.EndTime,
				r.Version, nullString(r.Intensity), nullString(r.Direction))
			if err != nil {
				return fmt.Errorf("upsert event for activity %d athlete %d: %w", r.ActivityID, r.AthleteID, err)
			}
		}
		return nil
	})
}

func (l *Loader) UpsertEfforts(ctx context.Context, records []EffortRecord) error {
	return l.inTx(ctx, "efforts", len(records), func(tx *sql.Tx) error {
		for _, r := range records {
			_, err := tx.ExecContext(ctx, upsertEffortSQL,
				r.ActivityID, r.AthleteID, r.DeviceID, r.StartTime, r.EndTime,
				nullString(r.Band), r.Distance, r.Velocity, r.Acceleration)
			if err != nil {
				return fmt.Errorf("upsert effort for activity %d athlete %d: %w", r.ActivityID, r.AthleteID, err)
			}
		}
		return nil
	})
}

func (l *Loader) inTx(ctx context.Context, entity string, count int, fn func(tx *sql.Tx) error) error {
	if count == 0 {
		return nil
	}
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s transaction: %w", entity, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s transaction: %w", entity, err)
	}
	l.logger.Debug("loaded records", slog.String("entity", entity), slog.Int("count", count))
	return nil
}

// nullString maps empty strings onto SQL NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
