package model

import "time"

// AwardDetail discloses one award behind a member's award points.
type AwardDetail struct {
	AwardType string    `json:"award_type"`
	Placement int       `json:"placement"`
	Points    int       `json:"points"`
	WeekDate  time.Time `json:"week_date"`
	Expired   bool      `json:"expired"`
}

// RankingEntry is the derived score of one member. It is recomputed on
// demand and never persisted.
type RankingEntry struct {
	Position int    `json:"position"`
	Member   Member `json:"member"`

	TotalScore              int `json:"total_score"`
	AwardPoints             int `json:"award_points"`
	RecommendationPoints    int `json:"recommendation_points"`
	RankBoost               int `json:"rank_boost"`
	FirstTimeConductorBoost int `json:"first_time_conductor_boost"`
	RecentConductorPenalty  int `json:"recent_conductor_penalty"`
	AboveAveragePenalty     int `json:"above_average_penalty"`

	ConductorCount         int           `json:"conductor_count"`
	RecommendationCount    int           `json:"recommendation_count"`
	LastConductorDate      *time.Time    `json:"last_conductor_date"`
	DaysSinceLastConductor *int          `json:"days_since_last_conductor"`
	AwardDetails           []AwardDetail `json:"award_details"`
}

// ComponentSum recomputes the total from the disclosed components.
func (e RankingEntry) ComponentSum() int {
	return e.AwardPoints + e.RecommendationPoints + e.RankBoost + e.FirstTimeConductorBoost -
		e.RecentConductorPenalty - e.AboveAveragePenalty
}

// Assignment is one day of the train schedule.
type Assignment struct {
	Date           time.Time `json:"date"`
	Conductor      *Ref      `json:"conductor"`
	Backup         *Ref      `json:"backup"`
	ConductorScore *int      `json:"conductor_score,omitempty"`
	ShowedUp       *bool     `json:"conductor_showed_up"`
}

// Members returns the ids assigned on the day.
func (a Assignment) Members() []string {
	ids := make([]string, 0, 2)
	if a.Conductor != nil {
		ids = append(ids, a.Conductor.ID)
	}
	if a.Backup != nil {
		ids = append(ids, a.Backup.ID)
	}
	return ids
}
