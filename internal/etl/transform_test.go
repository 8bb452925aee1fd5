package etl

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestRecordID(t *testing.T) {
	if _, err := RecordID(nil); err == nil {
		t.Fatal("RecordID(nil) accepted missing identifier")
	}
	if id, err := RecordID(float64(42)); err != nil || id != 42 {
		t.Fatalf("RecordID(42) = %d, %v", id, err)
	}
	if id, err := RecordID("1234"); err != nil || id != 1234 {
		t.Fatalf("RecordID(%q) = %d, %v", "1234", id, err)
	}

	uuid := "3b241101-e2bb-4255-8caf-4136c566a962"
	first, err := RecordID(uuid)
	if err != nil {
		t.Fatalf("RecordID(uuid) error = %v", err)
	}
	second, _ := RecordID(uuid)
	if first != second {
		t.Fatalf("uuid hashing is not deterministic: %d vs %d", first, second)
	}
	if first <= 0 {
		t.Fatalf("hashed id must be positive, got %d", first)
	}
	other, _ := RecordID("3b241101-e2bb-4255-8caf-4136c566a963")
	if other == first {
		t.Fatal("distinct uuids hashed to the same id")
	}
}

func TestTransformActivity(t *testing.T) {
	raw := map[string]any{
		"id":            float64(101),
		"name":          "Morning Session",
		"start_time":    float64(1706000000),
		"game_id":       float64(7),
		"athlete_count": float64(18),
		"owner": map[string]any{
			"id":    "team-uuid-1",
			"name":  "First Team",
			"email": "coach@club.test",
		},
	}

	record, err := TransformActivity(raw)
	if err != nil {
		t.Fatalf("TransformActivity() error = %v", err)
	}
	if record.ActivityID != 101 || record.Name != "Morning Session" {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.StartTime == nil || !record.StartTime.Equal(time.Unix(1706000000, 0)) {
		t.Fatalf("StartTime = %v", record.StartTime)
	}
	if record.GameID == nil || *record.GameID != 7 {
		t.Fatalf("GameID = %v", record.GameID)
	}
	if record.OwnerID == nil || record.OwnerName != "First Team" {
		t.Fatalf("owner not flattened: %+v", record)
	}
	if record.AthleteCount != 18 {
		t.Fatalf("AthleteCount = %d", record.AthleteCount)
	}
}

func TestTransformActivityRejectsIncomplete(t *testing.T) {
	if _, err := TransformActivity(map[string]any{"name": "no id"}); err == nil {
		t.Fatal("missing id accepted")
	}
	if _, err := TransformActivity(map[string]any{"id": float64(5)}); err == nil {
		t.Fatal("missing name accepted")
	}
}

func TestTransformAthleteBirthDate(t *testing.T) {
	record, err := TransformAthlete(map[string]any{
		"id":                 float64(9),
		"first_name":         "Dana",
		"last_name":          "Ward",
		"date_of_birth_date": "1998-03-14",
	})
	if err != nil {
		t.Fatalf("TransformAthlete() error = %v", err)
	}
	if record.DateOfBirth != "1998-03-14" {
		t.Fatalf("DateOfBirth = %q", record.DateOfBirth)
	}

	record, err = TransformAthlete(map[string]any{
		"id":            float64(10),
		"first_name":    "Ira",
		"last_name":     "Lam",
		"date_of_birth": float64(889833600),
	})
	if err != nil {
		t.Fatalf("TransformAthlete() error = %v", err)
	}
	if record.DateOfBirth != "1998-03-14" {
		t.Fatalf("unix DateOfBirth = %q", record.DateOfBirth)
	}
}

func TestTransformEfforts(t *testing.T) {
	raw := map[string]any{
		"device_id": float64(501),
		"data": map[string]any{
			"velocity_efforts": []any{
				map[string]any{
					"start_time":   float64(1706000100),
					"band":         "zone_4",
					"distance":     12.5,
					"max_velocity": 7.2,
				},
			},
			"acceleration_efforts": []any{
				map[string]any{
					"start_time":   float64(1706000200),
					"band":         "high",
					"acceleration": 3.1,
				},
			},
		},
	}

	records := TransformEfforts(raw, 101, 9)
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	velocity := records[0]
	if velocity.Band != "zone_4" || velocity.Velocity == nil || *velocity.Velocity != 7.2 {
		t.Fatalf("velocity effort = %+v", velocity)
	}
	if velocity.Acceleration != nil {
		t.Fatal("velocity effort carries acceleration")
	}
	if velocity.DeviceID == nil || *velocity.DeviceID != 501 {
		t.Fatalf("DeviceID = %v", velocity.DeviceID)
	}
	accel := records[1]
	if accel.Acceleration == nil || *accel.Acceleration != 3.1 {
		t.Fatalf("acceleration effort = %+v", accel)
	}

	if got := TransformEfforts(map[string]any{"device_id": float64(1)}, 101, 9); got != nil {
		t.Fatalf("payload without data produced %+v", got)
	}
}

func TestExtractOwnersDeduplicates(t *testing.T) {
	activities := []map[string]any{
		{"owner": map[string]any{"id": "team-a", "name": "Team A"}},
		{"owner": map[string]any{"id": "team-a", "name": "Team A"}},
		{"owner": map[string]any{"id": "team-b", "name": "Team B", "email": "b@club.test"}},
		{"name": "no owner"},
	}

	owners := ExtractOwners(activities)
	if len(owners) != 2 {
		t.Fatalf("got %d owners, want 2", len(owners))
	}
	names := []string{owners[0].Name, owners[1].Name}
	if diff := cmp.Diff([]string{"Team A", "Team B"}, names); diff != "" {
		t.Fatalf("owner names mismatch (-want +got):\n%s", diff)
	}
}

func TestParseTimestamp(t *testing.T) {
	if got := parseTimestamp("2026-01-23T10:15:00Z"); got == nil || got.Hour() != 10 {
		t.Fatalf("RFC3339 timestamp = %v", got)
	}
	if got := parseTimestamp(float64(0)); got != nil {
		t.Fatalf("zero unix timestamp = %v", got)
	}
	if got := parseTimestamp("not a time"); got != nil {
		t.Fatalf("garbage timestamp = %v", got)
	}
	if got := parseTimestamp(true); got != nil {
		t.Fatalf("bool timestamp = %v", got)
	}
}
