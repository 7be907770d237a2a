package model

import "time"

// EventKind names what an ingested event records.
type EventKind string

// Event kinds accepted by the ingestion pipeline.
const (
	EventAward          EventKind = "award"
	EventRecommendation EventKind = "recommendation"
	EventAttendance     EventKind = "attendance"
)

// Event is a raw alliance event submitted by clients and applied to the
// store asynchronously. Exactly one of the payload pointers is set,
// matching Kind.
type Event struct {
	EventID string    // unique id for idempotency
	Kind    EventKind // which payload is set
	TS      time.Time // submission timestamp

	Award          *AwardRecord
	Recommendation *RecommendationRecord
	Attendance     *Attendance
}

// Attendance records whether the conductor showed up on a scheduled date.
type Attendance struct {
	Date     time.Time `json:"date"`
	ShowedUp bool      `json:"showed_up"`
}
