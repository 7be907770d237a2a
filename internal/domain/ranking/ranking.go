// Package ranking turns per-member scores into the ordered conductor
// leaderboard.
package ranking

import (
	"sort"
	"strings"
	"time"

	"github.com/okian/trainboard/internal/domain/model"
	"github.com/okian/trainboard/internal/domain/scoring"
)

// Result is the leaderboard for one evaluation date.
type Result struct {
	Rankings              []model.RankingEntry `json:"rankings"`
	AverageConductorCount float64              `json:"average_conductor_count"`
}

// Aggregator scores every eligible member and orders them.
type Aggregator struct {
	engine *scoring.Engine
}

// NewAggregator creates an aggregator backed by engine. A nil engine uses
// the default scoring engine.
func NewAggregator(engine *scoring.Engine) *Aggregator {
	if engine == nil {
		engine = scoring.NewEngine()
	}
	return &Aggregator{engine: engine}
}

// ComputeRankings uses the default aggregator.
func ComputeRankings(members []model.Member, settings model.ScoringSettings, data map[string]model.MemberData, date time.Time) (Result, error) {
	return NewAggregator(nil).ComputeRankings(members, settings, data, date)
}

// ComputeRankings scores each eligible member as of date, sorts by total
// score descending and breaks ties by case-insensitive name, then id.
func (a *Aggregator) ComputeRankings(members []model.Member, settings model.ScoringSettings, data map[string]model.MemberData, date time.Time) (Result, error) {
	if err := scoring.ValidateSettings(settings); err != nil {
		return Result{}, err
	}

	eligible := make([]model.Member, 0, len(members))
	for _, m := range members {
		if m.Eligible {
			eligible = append(eligible, m)
		}
	}

	res := Result{Rankings: make([]model.RankingEntry, 0, len(eligible))}
	if len(eligible) == 0 {
		return res, nil
	}

	ref := model.Day(date)
	total := 0
	for _, m := range eligible {
		total += ConductorCount(data[m.ID].History, ref)
	}
	res.AverageConductorCount = float64(total) / float64(len(eligible))

	for _, m := range eligible {
		d := data[m.ID]
		entry, err := a.engine.ComputeMemberScore(scoring.Input{
			Member:                m,
			Settings:              settings,
			Awards:                d.Awards,
			Recommendations:       d.Recommendations,
			History:               d.History,
			AverageConductorCount: res.AverageConductorCount,
			Date:                  ref,
		})
		if err != nil {
			return Result{}, err
		}
		res.Rankings = append(res.Rankings, entry)
	}

	Sort(res.Rankings)
	return res, nil
}

// Sort orders entries by total score descending with the deterministic
// name/id tie-break and renumbers positions from 1.
func Sort(entries []model.RankingEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		an, bn := strings.ToLower(a.Member.Name), strings.ToLower(b.Member.Name)
		if an != bn {
			return an < bn
		}
		return a.Member.ID < b.Member.ID
	})
	for i := range entries {
		entries[i].Position = i + 1
	}
}

// ConductorCount counts conductor-role entries on or before ref.
func ConductorCount(history []model.ConductorHistoryEntry, ref time.Time) int {
	n := 0
	for _, h := range history {
		if h.Role == model.RoleConductor && !model.Day(h.Date).After(ref) {
			n++
		}
	}
	return n
}

// Find returns the entry for memberID.
func (r Result) Find(memberID string) (model.RankingEntry, bool) {
	for _, e := range r.Rankings {
		if e.Member.ID == memberID {
			return e, true
		}
	}
	return model.RankingEntry{}, false
}

// Top returns up to n leading entries.
func (r Result) Top(n int) []model.RankingEntry {
	if n > len(r.Rankings) {
		n = len(r.Rankings)
	}
	if n < 0 {
		n = 0
	}
	return r.Rankings[:n]
}
