package model

import "time"

// Role is the duty role recorded in the conductor history.
type Role string

// Duty roles.
const (
	RoleConductor Role = "conductor"
	RoleBackup    Role = "backup"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleConductor || r == RoleBackup
}

// AwardRecord is a weekly 1st/2nd/3rd placement. It contributes points until
// a duty consumes it.
//
// ExpiredOn is the date of the duty that consumed the record. A record
// that is Expired with a nil ExpiredOn was expired outside the schedule and
// is never restored.
type AwardRecord struct {
	ID        string     `json:"id"`
	MemberID  string     `json:"member_id"`
	AwardType string     `json:"award_type"`
	Placement int        `json:"placement"`
	WeekDate  time.Time  `json:"week_date"`
	Expired   bool       `json:"expired"`
	ExpiredOn *time.Time `json:"expired_on,omitempty"`
}

// RecommendationRecord is a peer endorsement for upcoming conductor duty.
type RecommendationRecord struct {
	ID            string     `json:"id"`
	MemberID      string     `json:"member_id"`
	RecommenderID string     `json:"recommender_id"`
	Notes         string     `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	Expired       bool       `json:"expired"`
	ExpiredOn     *time.Time `json:"expired_on,omitempty"`
}

// ConductorHistoryEntry is one append-only duty record.
//
// ShowedUp reports the conductor's attendance for Date on both the conductor
// and the backup entry: nil means not yet evaluated, false means the backup
// had to step in.
type ConductorHistoryEntry struct {
	MemberID string    `json:"member_id"`
	Date     time.Time `json:"date"`
	Role     Role      `json:"role"`
	ShowedUp *bool     `json:"showed_up"`
}

// Served reports whether the entry represents duty actually carried by the
// member: any conductor entry, or a backup entry whose conductor no-showed.
func (e ConductorHistoryEntry) Served() bool {
	switch e.Role {
	case RoleConductor:
		return true
	case RoleBackup:
		return e.ShowedUp != nil && !*e.ShowedUp
	}
	return false
}

// Bool returns a pointer to b, for ShowedUp literals.
func Bool(b bool) *bool { return &b }
