package etl

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/trackpulse/trackpulse/internal/storage"
)

type fakeProvider struct {
	activities []map[string]any
	athletes   map[int64][]map[string]any
	periods    map[int64][]map[string]any
	events     map[int64][]map[string]any
	efforts    map[int64][]map[string]any
}

func (f *fakeProvider) FetchActivities(context.Context) ([]map[string]any, []byte, error) {
	return f.activities, []byte(`[]`), nil
}

func (f *fakeProvider) FetchAthletes(_ context.Context, activityID int64) ([]map[string]any, []byte, error) {
	return f.athletes[activityID], []byte(`[]`), nil
}

func (f *fakeProvider) FetchPeriods(_ context.Context, activityID int64) ([]map[string]any, []byte, error) {
	return f.periods[activityID], []byte(`[]`), nil
}

func (f *fakeProvider) FetchEvents(_ context.Context, _, athleteID int64) ([]map[string]any, []byte, error) {
	return f.events[athleteID], []byte(`[]`), nil
}

func (f *fakeProvider) FetchEfforts(_ context.Context, _, athleteID int64) ([]map[string]any, []byte, error) {
	return f.efforts[athleteID], []byte(`[]`), nil
}

type fakeSink struct {
	owners     []OwnerRecord
	activities []ActivityRecord
	athletes   []AthleteRecord
	periods    []PeriodRecord
	events     []EventRecord
	efforts    []EffortRecord
}

func (f *fakeSink) UpsertOwners(_ context.Context, records []OwnerRecord) error {
	f.owners = append(f.owners, records...)
	return nil
}

func (f *fakeSink) UpsertActivities(_ context.Context, records []ActivityRecord) error {
	f.activities = append(f.activities, records...)
	return nil
}

func (f *fakeSink) UpsertAthletes(_ context.Context, records []AthleteRecord) error {
	f.athletes = append(f.athletes, records...)
	return nil
}

func (f *fakeSink) UpsertPeriods(_ context.Context, records []PeriodRecord) error {
	f.periods = append(f.periods, records...)
	return nil
}

func (f *fakeSink) UpsertEvents(_ context.Context, records []EventRecord) error {
	f.events = append(f.events, records...)
	return nil
}

func (f *fakeSink) UpsertEfforts(_ context.Context, records []EffortRecord) error {
	f.efforts = append(f.efforts, records...)
	return nil
}

type fakeArchive struct {
	keys []string
}

func (f *fakeArchive) Put(_ context.Context, key string, body io.Reader, _ int64, _ storage.PutOptions) (storage.ObjectInfo, error) {
	if _, err := io.ReadAll(body); err != nil {
		return storage.ObjectInfo{}, err
	}
	f.keys = append(f.keys, key)
	return storage.ObjectInfo{Key: key}, nil
}

func (f *fakeArchive) Get(context.Context, string) (io.ReadCloser, error) {
	return nil, storage.ErrObjectNotFound
}

func (f *fakeArchive) Delete(context.Context, string) error { return nil }

func newSyncFixture() *fakeProvider {
	return &fakeProvider{
		activities: []map[string]any{
			{
				"id":    float64(101),
				"name":  "Morning Session",
				"owner": map[string]any{"id": "team-a", "name": "Team A"},
			},
			{"name": "broken, no id"},
		},
		athletes: map[int64][]map[string]any{
			101: {{"id": float64(9), "first_name": "Dana", "last_name": "Ward"}},
		},
		periods: map[int64][]map[string]any{
			101: {{"id": float64(301), "name": "First Half"}},
		},
		events: map[int64][]map[string]any{
			9: {{"intensity": "high"}, {"intensity": "low"}},
		},
		efforts: map[int64][]map[string]any{
			9: {{
				"device_id": float64(501),
				"data": map[string]any{
					"velocity_efforts": []any{
						map[string]any{"band": "zone_4", "max_velocity": 7.2},
					},
				},
			}},
		},
	}
}

func TestSyncerRun(t *testing.T) {
	sink := &fakeSink{}
	syncer := NewSyncer(newSyncFixture(), sink, nil, nil)

	report, err := syncer.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Activities != 1 || report.Skipped != 1 {
		t.Fatalf("report = %+v", report)
	}
	if report.Owners != 1 || report.Athletes != 1 || report.Periods != 1 {
		t.Fatalf("report = %+v", report)
	}
	if report.Events != 2 || report.Efforts != 1 {
		t.Fatalf("report = %+v", report)
	}
	if len(sink.events) != 2 || sink.events[0].ActivityID != 101 || sink.events[0].AthleteID != 9 {
		t.Fatalf("events = %+v", sink.events)
	}
	if len(sink.efforts) != 1 || sink.efforts[0].Band != "zone_4" {
		t.Fatalf("efforts = %+v", sink.efforts)
	}
}

func TestSyncerArchivesRawPayloads(t *testing.T) {
	archive := &fakeArchive{}
	syncer := NewSyncer(newSyncFixture(), &fakeSink{}, archive, nil)

	if _, err := syncer.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// activities + athletes + periods + events + efforts
	if len(archive.keys) != 5 {
		t.Fatalf("archived %d payloads, want 5: %v", len(archive.keys), archive.keys)
	}
	if !strings.HasPrefix(archive.keys[0], "raw/activities/") {
		t.Fatalf("first key = %q", archive.keys[0])
	}
}
