// Package testevents drives a running conductor board over HTTP: it submits
// generated award and recommendation events, waits for the workers to apply
// them and cross-checks the leaderboard against per-member scores.
package testevents

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL   string        // Base URL of the service
	NumEvents int           // Number of events to generate
	Workers   int           // Number of concurrent submitters
	Timeout   time.Duration // HTTP request timeout

	// DuplicateEvery resubmits every n-th event id; zero disables it.
	DuplicateEvery int

	// DrainTimeout bounds the wait for the workers to apply the events.
	DrainTimeout time.Duration
	PollInterval time.Duration

	OutputFile string // Optional JSON dump of the generated events
	Verbose    bool
}

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = time.Minute
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 100 * time.Millisecond
	}
	return c
}

// Event is the POST /api/events body.
type Event struct {
	EventID        string                 `json:"event_id"`
	Type           string                 `json:"type"`
	TS             string                 `json:"ts"`
	Award          *AwardPayload          `json:"award,omitempty"`
	Recommendation *RecommendationPayload `json:"recommendation,omitempty"`
}

// AwardPayload is an award event body.
type AwardPayload struct {
	MemberID  string `json:"member_id"`
	AwardType string `json:"award_type"`
	Placement int    `json:"placement"`
	WeekDate  string `json:"week_date"`
}

// RecommendationPayload is a recommendation event body.
type RecommendationPayload struct {
	MemberID      string `json:"member_id"`
	RecommenderID string `json:"recommender_id"`
	Notes         string `json:"notes,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// Member is a roster entry as served by GET /api/members.
type Member struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Rank     string `json:"rank"`
	Eligible bool   `json:"eligible"`
}

// Entry is a leaderboard row.
type Entry struct {
	Position                int    `json:"position"`
	Member                  Member `json:"member"`
	TotalScore              int    `json:"total_score"`
	AwardPoints             int    `json:"award_points"`
	RecommendationPoints    int    `json:"recommendation_points"`
	RankBoost               int    `json:"rank_boost"`
	FirstTimeConductorBoost int    `json:"first_time_conductor_boost"`
	RecentConductorPenalty  int    `json:"recent_conductor_penalty"`
	AboveAveragePenalty     int    `json:"above_average_penalty"`
}

// Leaderboard is the GET /api/rankings body.
type Leaderboard struct {
	Rankings []Entry `json:"rankings"`
}

// AckResponse represents the response from event submission.
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
	EventID   string `json:"event_id"`
}

// Stats holds run statistics.
type Stats struct {
	Members            int
	EventsGenerated    int
	EventsSubmitted    int
	EventsSuccessful   int
	EventsDuplicate    int
	EventsFailed       int
	ScoresRetrieved    int
	LeaderboardEntries int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
