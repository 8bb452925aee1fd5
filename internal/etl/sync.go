package etl

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/trackpulse/trackpulse/internal/storage"
)

// provider is the slice of Client the syncer needs; tests substitute a fake.
type provider interface {
	FetchActivities(ctx context.Context) ([]map[string]any, []byte, error)
	FetchAthletes(ctx context.Context, activityID int64) ([]map[string]any, []byte, error)
	FetchPeriods(ctx context.Context, activityID int64) ([]map[string]any, []byte, error)
	FetchEvents(ctx context.Context, activityID, athleteID int64) ([]map[string]any, []byte, error)
	FetchEfforts(ctx context.Context, activityID, athleteID int64) ([]map[string]any, []byte, error)
}

// sink is the slice of Loader the syncer needs.
type sink interface {
	UpsertOwners(ctx context.Context, records []OwnerRecord) error
	UpsertAthletes(ctx context.Context, records []AthleteRecord) error
	UpsertActivities(ctx context.Context, records []ActivityRecord) error
	UpsertPeriods(ctx context.Context, records []PeriodRecord) error
	UpsertEvents(ctx context.Context, records []EventRecord) error
	UpsertEfforts(ctx context.Context, records []EffortRecord) error
}

// Report summarizes one sync run.
type Report struct {
	Activities int           `json:"activities"`
	Owners     int           `json:"owners"`
	Athletes   int           `json:"athletes"`
	Periods    int           `json:"periods"`
	Events     int           `json:"events"`
	Efforts    int           `json:"efforts"`
	Skipped    int           `json:"skipped"`
	Duration   time.Duration `json:"duration"`
}

// Syncer pulls the full entity graph from the provider and upserts it,
// activity by activity. A nil archive disables raw payload archival.
type Syncer struct {
	provider provider
	sink     sink
	archive  storage.ObjectStore
	logger   *slog.Logger
	now      func() time.Time
}

func NewSyncer(provider provider, sink sink, archive storage.ObjectStore, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{provider: provider, sink: sink, archive: archive, logger: logger, now: time.Now}
}

// Run executes one full sync. Activities that fail to transform are skipped
// and counted; a failed fetch or upsert aborts the run.
func (s *Syncer) Run(ctx context.Context) (Report, error) {
	started := s.now()
	var report Report

	rawActivities, body, err := s.provider.FetchActivities(ctx)
	if err != nil {
		return report, fmt.Errorf("fetch activities: %w", err)
	}
	s.archiveRaw(ctx, "activities", body)

	owners := ExtractOwners(rawActivities)
	if err := s.sink.UpsertOwners(ctx, owners); err != nil {
		return report, err
	}
	report.Owners = len(owners)

	var activities []ActivityRecord
	for _, raw := range rawActivities {
		record, err := TransformActivity(raw)
		if err != nil {
			s.logger.Warn("skipping activity", slog.String("error", err.Error()))
			report.Skipped++
			continue
		}
		activities = append(activities, record)
	}
	if err := s.sink.UpsertActivities(ctx, activities); err != nil {
		return report, err
	}
	report.Activities = len(activities)

	for _, activity := range activities {
		if err := s.syncActivity(ctx, activity.ActivityID, &report); err != nil {
			return report, err
		}
	}

	report.Duration = s.now().Sub(started)
	s.logger.Info("sync complete",
		slog.Int("activities", report.Activities),
		slog.Int("athletes", report.Athletes),
		slog.Int("events", report.Events),
		slog.Int("efforts", report.Efforts),
		slog.Int("skipped", report.Skipped),
		slog.Duration("duration", report.Duration))
	return report, nil
}

func (s *Syncer) syncActivity(ctx context.Context, activityID int64, report *Report) error {
	rawAthletes, body, err := s.provider.FetchAthletes(ctx, activityID)
	if err != nil {
		return fmt.Errorf("fetch athletes for activity %d: %w", activityID, err)
	}
	s.archiveRaw(ctx, fmt.Sprintf("athletes/%d", activityID), body)

	var athletes []AthleteRecord
	for _, raw := range rawAthletes {
		record, err := TransformAthlete(raw)
		if err != nil {
			s.logger.Warn("skipping athlete",
				slog.Int64("activity_id", activityID), slog.String("error", err.Error()))
			report.Skipped++
			continue
		}
		athletes = append(athletes, record)
	}
	if err := s.sink.UpsertAthletes(ctx, athletes); err != nil {
		return err
	}
	report.Athletes += len(athletes)

	rawPeriods, body, err := s.provider.FetchPeriods(ctx, activityID)
	if err != nil {
		return fmt.Errorf("fetch periods for activity %d: %w", activityID, err)
	}
	s.archiveRaw(ctx, fmt.Sprintf("periods/%d", activityID), body)

	var periods []PeriodRecord
	for _, raw := range rawPeriods {
		record, err := TransformPeriod(raw, activityID)
		if err != nil {
			report.Skipped++
			continue
		}
		periods = append(periods, record)
	}
	if err := s.sink.UpsertPeriods(ctx, periods); err != nil {
		return err
	}
	report.Periods += len(periods)

	for _, athlete := range athletes {
		if err := s.syncAthlete(ctx, activityID, athlete.AthleteID, report); err != nil {
			return err
		}
	}
	return nil
}

func (s *Syncer) syncAthlete(ctx context.Context, activityID, athleteID int64, report *Report) error {
	rawEvents, body, err := s.provider.FetchEvents(ctx, activityID, athleteID)
	if err != nil {
		return fmt.Errorf("fetch events for activity %d athlete %d: %w", activityID, athleteID, err)
	}
	s.archiveRaw(ctx, fmt.Sprintf("events/%d/%d", activityID, athleteID), body)

	events := make([]EventRecord, 0, len(rawEvents))
	for _, raw := range rawEvents {
		events = append(events, TransformEvent(raw, activityID, athleteID))
	}
	if err := s.sink.UpsertEvents(ctx, events); err != nil {
		return err
	}
	report.Events += len(events)

	rawEfforts, body, err := s.provider.FetchEfforts(ctx, activityID, athleteID)
	if err != nil {
		return fmt.Errorf("fetch efforts for activity %d athlete %d: %w", activityID, athleteID, err)
	}
	s.archiveRaw(ctx, fmt.Sprintf("efforts/%d/%d", activityID, athleteID), body)

	var efforts []EffortRecord
	for _, raw := range rawEfforts {
		efforts = append(efforts, TransformEfforts(raw, activityID, athleteID)...)
	}
	if err := s.sink.UpsertEfforts(ctx, efforts); err != nil {
		return err
	}
	report.Efforts += len(efforts)
	return nil
}

// archiveRaw stores the untouched provider payload. Archival failures are
// logged and never abort the sync.
func (s *Syncer) archiveRaw(ctx context.Context, entity string, body []byte) {
	if s.archive == nil || len(body) == 0 {
		return
	}
	key := fmt.Sprintf("raw/%s/%s.json", entity, s.now().UTC().Format("20060102T150405Z"))
	_, err := s.archive.Put(ctx, key, bytes.NewReader(body), int64(len(body)), storage.PutOptions{ContentType: "application/json"})
	if err != nil {
		s.logger.Warn("raw archive failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}
