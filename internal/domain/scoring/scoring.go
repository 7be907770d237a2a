// Package scoring computes the composite conductor score of a single member.
//
// The engine is pure: it reads an immutable Input and returns a RankingEntry
// breakdown. Expiry of awards and recommendations is owned by the assignment
// flow; the engine only honours the Expired flag.
package scoring

import (
	"math"
	"sort"
	"time"

	"github.com/okian/trainboard/internal/domain/model"
)

// Input carries everything needed to score one member as of Date.
type Input struct {
	Member          model.Member
	Settings        model.ScoringSettings
	Awards          []model.AwardRecord
	Recommendations []model.RecommendationRecord
	History         []model.ConductorHistoryEntry
	// AverageConductorCount is the alliance-wide average supplied by the
	// ranking aggregator.
	AverageConductorCount float64
	// Date is the reference day. Records dated after it are ignored.
	Date time.Time
}

// Engine computes member scores.
type Engine struct {
	recBase   float64
	recFactor float64
}

// NewEngine creates a scoring engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		recBase:   defaultRecommendationBase,
		recFactor: defaultRecommendationFactor,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RecommendationCurve returns the real-valued recommendation points for n
// recommendations using the default curve.
func RecommendationCurve(n int) float64 {
	return NewEngine().curve(n)
}

// RecommendationPoints returns the awarded recommendation points for n
// recommendations: floor(5 + 5*sqrt(n)), or 0 when n is 0.
func RecommendationPoints(n int) int {
	return NewEngine().recommendationPoints(n)
}

func (e *Engine) curve(n int) float64 {
	if n <= 0 {
		return 0
	}
	return e.recBase + e.recFactor*math.Sqrt(float64(n))
}

func (e *Engine) recommendationPoints(n int) int {
	return int(math.Floor(e.curve(n)))
}

// RecentPenalty returns the linearly decaying penalty for a member whose last
// served duty was daysSince days ago. It is the full penalty at 0 days and 0
// from penaltyDays on.
func RecentPenalty(penaltyDays, daysSince int) int {
	if penaltyDays <= 0 || daysSince < 0 || daysSince >= penaltyDays {
		return 0
	}
	p := float64(penaltyDays) * (1 - float64(daysSince)/float64(penaltyDays))
	return int(math.Max(0, math.Min(float64(penaltyDays), math.Floor(p))))
}

// ComputeMemberScore scores a single member. Malformed input yields a
// *ValidationError and malformed settings a *ConfigurationError.
func (e *Engine) ComputeMemberScore(in Input) (model.RankingEntry, error) {
	if err := ValidateSettings(in.Settings); err != nil {
		return model.RankingEntry{}, err
	}
	if err := validateInput(in); err != nil {
		return model.RankingEntry{}, err
	}

	ref := model.Day(in.Date)
	entry := model.RankingEntry{Member: in.Member}

	awards := make([]model.AwardRecord, 0, len(in.Awards))
	for _, a := range in.Awards {
		if model.Day(a.WeekDate).After(ref) {
			continue
		}
		awards = append(awards, a)
	}
	sort.SliceStable(awards, func(i, j int) bool {
		return awards[i].WeekDate.Before(awards[j].WeekDate)
	})
	entry.AwardDetails = make([]model.AwardDetail, 0, len(awards))
	for _, a := range awards {
		pts, _ := in.Settings.AwardPoints(a.Placement)
		entry.AwardDetails = append(entry.AwardDetails, model.AwardDetail{
			AwardType: a.AwardType,
			Placement: a.Placement,
			Points:    pts,
			WeekDate:  a.WeekDate,
			Expired:   a.Expired,
		})
		if !a.Expired {
			entry.AwardPoints += pts
		}
	}

	for _, r := range in.Recommendations {
		if r.Expired || model.Day(r.CreatedAt).After(ref) {
			continue
		}
		entry.RecommendationCount++
	}
	entry.RecommendationPoints = e.recommendationPoints(entry.RecommendationCount)

	if in.Member.Rank.IsLeadership() {
		entry.RankBoost = in.Settings.R4R5RankBoost
	}

	var lastServed *time.Time
	for _, h := range in.History {
		d := model.Day(h.Date)
		if d.After(ref) {
			continue
		}
		if h.Role == model.RoleConductor {
			entry.ConductorCount++
		}
		if h.Served() && (lastServed == nil || d.After(*lastServed)) {
			last := d
			lastServed = &last
		}
	}

	if entry.ConductorCount == 0 {
		entry.FirstTimeConductorBoost = in.Settings.FirstTimeConductorBoost
	}

	if lastServed != nil {
		days := model.DaysBetween(*lastServed, ref)
		entry.LastConductorDate = lastServed
		entry.DaysSinceLastConductor = &days
		entry.RecentConductorPenalty = RecentPenalty(in.Settings.RecentConductorPenaltyDays, days)
	}

	if float64(entry.ConductorCount) > in.AverageConductorCount {
		entry.AboveAveragePenalty = in.Settings.AboveAverageConductorPenalty
	}

	entry.TotalScore = entry.ComponentSum()
	return entry, nil
}

// ValidateSettings rejects settings the engine cannot score with.
func ValidateSettings(s model.ScoringSettings) error {
	checks := []struct {
		field string
		value int
	}{
		{"award_first_points", s.AwardFirstPoints},
		{"award_second_points", s.AwardSecondPoints},
		{"award_third_points", s.AwardThirdPoints},
		{"r4r5_rank_boost", s.R4R5RankBoost},
		{"first_time_conductor_boost", s.FirstTimeConductorBoost},
		{"recent_conductor_penalty_days", s.RecentConductorPenaltyDays},
		{"above_average_conductor_penalty", s.AboveAverageConductorPenalty},
	}
	for _, c := range checks {
		if c.value < 0 {
			return &ConfigurationError{Field: c.field, Reason: "must not be negative"}
		}
	}
	return nil
}

func validateInput(in Input) error {
	m := in.Member
	if m.ID == "" {
		return &ValidationError{Field: "member.id", Reason: "missing"}
	}
	if !m.Rank.Valid() {
		return &ValidationError{Field: "member.rank", MemberID: m.ID, Reason: "unknown rank " + string(m.Rank)}
	}
	if in.Date.IsZero() {
		return &ValidationError{Field: "date", MemberID: m.ID, Reason: "missing reference date"}
	}
	if math.IsNaN(in.AverageConductorCount) || math.IsInf(in.AverageConductorCount, 0) || in.AverageConductorCount < 0 {
		return &ValidationError{Field: "average_conductor_count", MemberID: m.ID, Reason: "must be a finite non-negative number"}
	}
	for _, a := range in.Awards {
		if a.MemberID != m.ID {
			return &ValidationError{Field: "awards.member_id", MemberID: m.ID, Reason: "award belongs to " + a.MemberID}
		}
		if _, ok := in.Settings.AwardPoints(a.Placement); !ok {
			return &ValidationError{Field: "awards.placement", MemberID: m.ID, Reason: "placement must be 1, 2 or 3"}
		}
		if a.WeekDate.IsZero() {
			return &ValidationError{Field: "awards.week_date", MemberID: m.ID, Reason: "missing"}
		}
	}
	for _, r := range in.Recommendations {
		if r.MemberID != m.ID {
			return &ValidationError{Field: "recommendations.member_id", MemberID: m.ID, Reason: "recommendation belongs to " + r.MemberID}
		}
		if r.CreatedAt.IsZero() {
			return &ValidationError{Field: "recommendations.created_at", MemberID: m.ID, Reason: "missing"}
		}
	}
	for _, h := range in.History {
		if h.MemberID != m.ID {
			return &ValidationError{Field: "history.member_id", MemberID: m.ID, Reason: "entry belongs to " + h.MemberID}
		}
		if !h.Role.Valid() {
			return &ValidationError{Field: "history.role", MemberID: m.ID, Reason: "unknown role " + string(h.Role)}
		}
		if h.Date.IsZero() {
			return &ValidationError{Field: "history.date", MemberID: m.ID, Reason: "missing"}
		}
	}
	return nil
}
