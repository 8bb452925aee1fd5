package etl

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// ActivityRecord is a training session ready for upsert.
type ActivityRecord struct {
	ActivityID   int64
	Name         string
	StartTime    *time.Time
	EndTime      *time.Time
	GameID       *int64
	OwnerID      *int64
	OwnerName    string
	OwnerEmail   string
	AthleteCount int
	PeriodCount  int
}

type AthleteRecord struct {
	AthleteID    int64
	FirstName    string
	LastName     string
	Gender       string
	JerseyNumber *int
	Height       *float64
	Weight       *float64
	PositionID   *int
	DateOfBirth  string
}

type EventRecord struct {
	ActivityID int64
	AthleteID  int64
	DeviceID   *int64
	StartTime  *time.Time
	EndTime    *time.Time
	Version    *int
	Intensity  string
	Direction  string
}

type EffortRecord struct {
	ActivityID   int64
	AthleteID    int64
	DeviceID     *int64
	StartTime    *time.Time
	EndTime      *time.Time
	Band         string
	Distance     *float64
	Velocity     *float64
	Acceleration *float64
}

type OwnerRecord struct {
	OwnerID    int64
	CustomerID string
	Name       string
	Email      string
	IsSynced   bool
	IsDeleted  bool
}

type PeriodRecord struct {
	PeriodID   int64
	ActivityID int64
	Name       string
	StartTime  *time.Time
	EndTime    *time.Time
	IsDeleted  bool
}

// RecordID resolves a provider identifier that may arrive as a number or a
// UUID string. UUIDs are reduced to a stable positive integer by hashing.
func RecordID(value any) (int64, error) {
	switch v := value.(type) {
	case nil:
		return 0, fmt.Errorf("identifier is missing")
	case float64:
		return int64(v), nil
	case int64:
		return v, nil
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n, nil
		}
		return hashID(v), nil
	default:
		return 0, fmt.Errorf("unsupported identifier type %T", value)
	}
}

// hashID maps an opaque string id onto the first 15 hex digits of its
// SHA-256 digest, which always fits in an int64.
func hashID(value string) int64 {
	digest := sha256.Sum256([]byte(value))
	n, _ := strconv.ParseInt(hex.EncodeToString(digest[:])[:15], 16, 64)
	if n < 0 {
		n = -n
	}
	return n
}

// TransformActivity validates and flattens one raw activity, including its
// embedded owner block.
func TransformActivity(raw map[string]any) (ActivityRecord, error) {
	id, err := RecordID(raw["id"])
	if err != nil {
		return ActivityRecord{}, fmt.Errorf("activity id: %w", err)
	}
	name, _ := raw["name"].(string)
	if name == "" {
		return ActivityRecord{}, fmt.Errorf("activity %d has no name", id)
	}

	record := ActivityRecord{
		ActivityID:   id,
		Name:         name,
		StartTime:    parseTimestamp(raw["start_time"]),
		EndTime:      parseTimestamp(raw["end_time"]),
		AthleteCount: intValue(raw["athlete_count"]),
		PeriodCount:  intValue(raw["period_count"]),
	}
	if gameID, err := RecordID(raw["game_id"]); err == nil {
		record.GameID = &gameID
	}

	if owner, ok := raw["owner"].(map[string]any); ok {
		if ownerID, err := RecordID(owner["id"]); err == nil {
			record.OwnerID = &ownerID
		}
		record.OwnerName, _ = owner["name"].(string)
		record.OwnerEmail, _ = owner["email"].(string)
	}
	return record, nil
}

func TransformAthlete(raw map[string]any) (AthleteRecord, error) {
	id, err := RecordID(raw["id"])
	if err != nil {
		return AthleteRecord{}, fmt.Errorf("athlete id: %w", err)
	}

	record := AthleteRecord{AthleteID: id}
	record.FirstName, _ = raw["first_name"].(string)
	record.LastName, _ = raw["last_name"].(string)
	record.Gender, _ = raw["gender"].(string)
	record.JerseyNumber = intPtr(raw["jersey"])
	record.Height = floatPtr(raw["height"])
	record.Weight = floatPtr(raw["weight"])
	record.PositionID = intPtr(raw["position_id"])
	record.DateOfBirth = birthDate(raw)
	return record, nil
}

func TransformEvent(raw map[string]any, activityID, athleteID int64) EventRecord {
	record := EventRecord{
		ActivityID: activityID,
		AthleteID:  athleteID,
		StartTime:  parseTimestamp(raw["start_time"]),
		EndTime:    parseTimestamp(raw["end_time"]),
		Version:    intPtr(raw["version"]),
	}
	if deviceID, err := RecordID(raw["device_id"]); err == nil {
		record.DeviceID = &deviceID
	}
	record.Intensity, _ = raw["intensity"].(string)
	record.Direction, _ = raw["direction"].(string)
	return record
}

// TransformEfforts flattens one raw effort payload, which nests velocity and
// acceleration efforts under a shared device.
func TransformEfforts(raw map[string]any, activityID, athleteID int64) []EffortRecord {
	var deviceID *int64
	if id, err := RecordID(raw["device_id"]); err == nil {
		deviceID = &id
	}
	data, ok := raw["data"].(map[string]any)
	if !ok {
		return nil
	}

	var records []EffortRecord
	for _, item := range listValue(data["velocity_efforts"]) {
		record := effortBase(item, activityID, athleteID, deviceID)
		record.Velocity = floatPtr(item["max_velocity"])
		records = append(records, record)
	}
	for _, item := range listValue(data["acceleration_efforts"]) {
		record := effortBase(item, activityID, athleteID, deviceID)
		record.Acceleration = floatPtr(item["acceleration"])
		records = append(records, record)
	}
	return records
}

func effortBase(item map[string]any, activityID, athleteID int64, deviceID *int64) EffortRecord {
	record := EffortRecord{
		ActivityID: activityID,
		AthleteID:  athleteID,
		DeviceID:   deviceID,
		StartTime:  parseTimestamp(item["start_time"]),
		EndTime:    parseTimestamp(item["end_time"]),
		Distance:   floatPtr(item["distance"]),
	}
	record.Band, _ = item["band"].(string)
	return record
}

func TransformPeriod(raw map[string]any, activityID int64) (PeriodRecord, error) {
	id, err := RecordID(raw["id"])
	if err != nil {
		return PeriodRecord{}, fmt.Errorf("period id: %w", err)
	}
	record := PeriodRecord{PeriodID: id, ActivityID: activityID}
	record.Name, _ = raw["name"].(string)
	record.StartTime = parseTimestamp(raw["start_time"])
	record.EndTime = parseTimestamp(raw["end_time"])
	record.IsDeleted, _ = raw["is_deleted"].(bool)
	return record, nil
}

// ExtractOwners deduplicates owner blocks embedded in activities, keyed by
// the provider's raw owner id.
func ExtractOwners(activities []map[string]any) []OwnerRecord {
	seen := make(map[string]struct{})
	var owners []OwnerRecord
	for _, activity := range activities {
		owner, ok := activity["owner"].(map[string]any)
		if !ok {
			continue
		}
		rawID := fmt.Sprintf("%v", owner["id"])
		if owner["id"] == nil {
			continue
		}
		if _, dup := seen[rawID]; dup {
			continue
		}
		seen[rawID] = struct{}{}

		id, err := RecordID(owner["id"])
		if err != nil {
			continue
		}
		record := OwnerRecord{OwnerID: id}
		record.CustomerID, _ = owner["customer_id"].(string)
		record.Name, _ = owner["name"].(string)
		record.Email, _ = owner["email"].(string)
		record.IsSynced, _ = owner["is_synced"].(bool)
		record.IsDeleted, _ = owner["is_deleted"].(bool)
		owners = append(owners, record)
	}
	return owners
}

// parseTimestamp accepts the provider's two timestamp shapes: unix seconds
// as a JSON number or an RFC3339 string. Anything else is nil.
func parseTimestamp(value any) *time.Time {
	switch v := value.(type) {
	case float64:
		if v <= 0 {
			return nil
		}
		t := time.Unix(int64(v), 0).UTC()
		return &t
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			utc := t.UTC()
			return &utc
		}
		return nil
	default:
		return nil
	}
}

func birthDate(raw map[string]any) string {
	if s, ok := raw["date_of_birth_date"].(string); ok {
		if _, err := time.Parse("2006-01-02", s); err == nil {
			return s
		}
	}
	if ts, ok := raw["date_of_birth"].(float64); ok && ts > 0 {
		return time.Unix(int64(ts), 0).UTC().Format("2006-01-02")
	}
	return ""
}

func intValue(value any) int {
	if f, ok := value.(float64); ok {
		return int(f)
	}
	return 0
}

func intPtr(value any) *int {
	if f, ok := value.(float64); ok {
		n := int(f)
		return &n
	}
	return nil
}

func floatPtr(value any) *float64 {
	if f, ok := value.(float64); ok {
		return &f
	}
	return nil
}

func listValue(value any) []map[string]any {
	raw, ok := value.([]any)
	if !ok {
		return nil
	}
	items := make([]map[string]any, 0, len(raw))
	for _, entry := range raw {
		if m, ok := entry.(map[string]any); ok {
			items = append(items, m)
		}
	}
	return items
}
