// Package schemactx carries the database knowledge the translator feeds to a
// language model: a prose description of the tracked sports schema plus a set
// of curated question/SQL pairs for few-shot prompting.
package schemactx

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed examples.yaml
var examplesYAML []byte

// Example pairs a natural-language question with the SQL that answers it.
type Example struct {
	Question string `yaml:"question" json:"question"`
	SQL      string `yaml:"sql" json:"sql"`
}

var curatedExamples []Example

func init() {
	if err := yaml.Unmarshal(examplesYAML, &curatedExamples); err != nil {
		panic(fmt.Sprintf("schemactx: decode embedded examples: %v", err))
	}
	if len(curatedExamples) == 0 {
		panic("schemactx: embedded examples are empty")
	}
}

// ExampleQueries returns a copy of the curated few-shot pairs. Callers may
// append session-specific examples without affecting the shared set.
func ExampleQueries() []Example {
	out := make([]Example, len(curatedExamples))
	copy(out, curatedExamples)
	return out
}

// SchemaContext returns the schema description injected into translation
// prompts. The text is intentionally verbose; the model relies on column
// comments and the query-pattern hints to pick joins and filters.
func SchemaContext() string {
	return strings.TrimSpace(schemaContext)
}

const schemaContext = `
DATABASE SCHEMA FOR SPORTS ANALYTICS PLATFORM:

=== TABLES AND RELATIONSHIPS ===

1. ACTIVITIES (Main training sessions/games)
   - activity_id (Primary Key, BigInteger) - Unique identifier
   - name (String) - Activity name (e.g., "Training Session", "Match")
   - start_time (Timestamp) - When activity started
   - end_time (Timestamp) - When activity ended
   - game_id (BigInteger) - Game identifier if applicable
   - owner_id (BigInteger) - References owners.owner_id
   - owner_name (String) - Owner/team name
   - owner_email (String) - Owner contact
   - athlete_count (Integer) - Number of athletes in activity
   - period_count (Integer) - Number of periods in activity
   - created_at (Timestamp) - Record creation time
   - updated_at (Timestamp) - Record update time

2. ATHLETES (Player information)
   - athlete_id (Primary Key, BigInteger) - Unique identifier
   - first_name (String) - Athlete's first name
   - last_name (String) - Athlete's last name
   - gender (String) - "Male", "Female", etc.
   - jersey_number (Integer) - Player's jersey/shirt number
   - height (Decimal) - Height in cm
   - weight (Decimal) - Weight in kg
   - position_id (Integer) - Position identifier
   - date_of_birth (Date) - Birth date
   - created_at (Timestamp) - Record creation time

3. EVENTS (Performance events during activities)
   - event_id (Primary Key, BigInteger) - Unique identifier
   - activity_id (BigInteger) - References activities.activity_id
   - athlete_id (BigInteger) - References athletes.athlete_id
   - device_id (BigInteger) - Tracking device ID
   - start_time (Timestamp) - Event start time
   - end_time (Timestamp) - Event end time
   - version (Integer) - Event version/type
   - intensity (String) - "high", "medium", "low"
   - direction (String) - Movement direction if applicable
   - created_at (Timestamp) - Record creation time

4. EFFORTS (Performance efforts/metrics)
   - effort_id (Primary Key, BigInteger) - Unique identifier
   - activity_id (BigInteger) - References activities.activity_id
   - athlete_id (BigInteger) - References athletes.athlete_id
   - device_id (BigInteger) - Tracking device ID
   - start_time (Timestamp) - Effort start time
   - end_time (Timestamp) - Effort end time
   - band (String) - Effort intensity band ("zone_1", "zone_2", etc.)
   - distance (Decimal) - Distance covered in meters
   - velocity (Decimal) - Speed in m/s
   - acceleration (Decimal) - Acceleration in m/s²
   - created_at (Timestamp) - Record creation time

5. OWNERS (Team/organization owners)
   - owner_id (Primary Key, BigInteger) - Unique identifier
   - customer_id (String) - External customer ID
   - name (String) - Owner/team name
   - email (String) - Contact email
   - is_synced (Boolean) - Sync status
   - is_deleted (Boolean) - Deletion status
   - created_at (Timestamp) - Record creation time

6. PERIODS (Training/game periods)
   - period_id (Primary Key, BigInteger) - Unique identifier
   - activity_id (BigInteger) - References activities.activity_id
   - name (String) - Period name (e.g., "1st Half", "Period 1")
   - start_time (Timestamp) - Period start time
   - end_time (Timestamp) - Period end time
   - is_deleted (Boolean) - Deletion status

=== COMMON QUERY PATTERNS ===

Performance Analysis:
- Velocity/speed metrics: SELECT velocity FROM efforts WHERE...
- Acceleration metrics: SELECT acceleration FROM efforts WHERE...
- Distance covered: SELECT SUM(distance) FROM efforts WHERE...
- Intensity analysis: SELECT intensity, COUNT(*) FROM events GROUP BY intensity

Athlete Analysis:
- Player performance: JOIN athletes with efforts/events
- Position-based analysis: GROUP BY position_id
- Individual stats: WHERE athlete_id = X

Activity Analysis:
- Training session data: SELECT * FROM activities WHERE...
- Time-based filtering: WHERE start_time BETWEEN '...' AND '...'
- Owner/team analysis: GROUP BY owner_name

=== IMPORTANT NOTES ===
- Always use proper JOINs when data spans multiple tables
- Use LIMIT clauses for potentially large result sets
- Time filtering is common - use start_time, end_time, created_at
- Common aggregations: COUNT, SUM, AVG, MAX, MIN
- Effort bands are typically: zone_1, zone_2, zone_3, zone_4, zone_5
- Event intensities are typically: high, medium, low
`
