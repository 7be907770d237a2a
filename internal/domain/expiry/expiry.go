// Package expiry implements the consumption of awards and recommendations
// by served duty.
//
// A consumed record remembers the duty date that consumed it, so replacing a
// planned week or correcting attendance can hand the records back.
package expiry

import (
	"sort"
	"time"

	"github.com/okian/trainboard/internal/domain/model"
)

// Consumed lists the record ids a transition expired, and those it handed
// back because the consuming duty no longer stands.
type Consumed struct {
	AwardIDs                  []string `json:"award_ids"`
	RecommendationIDs         []string `json:"recommendation_ids"`
	RestoredAwardIDs          []string `json:"restored_award_ids,omitempty"`
	RestoredRecommendationIDs []string `json:"restored_recommendation_ids,omitempty"`
}

// Empty reports whether nothing changed.
func (c Consumed) Empty() bool {
	return len(c.AwardIDs) == 0 && len(c.RecommendationIDs) == 0 &&
		len(c.RestoredAwardIDs) == 0 && len(c.RestoredRecommendationIDs) == 0
}

// Consume marks memberID's live awards dated on or before dutyDate and live
// recommendations created on or before dutyDate as expired by that duty.
// The slices are updated in place; records of other members are untouched.
func Consume(awards []model.AwardRecord, recs []model.RecommendationRecord, memberID string, dutyDate time.Time) Consumed {
	var out Consumed
	day := model.Day(dutyDate)
	for i := range awards {
		a := &awards[i]
		if a.MemberID != memberID || a.Expired || model.Day(a.WeekDate).After(day) {
			continue
		}
		a.Expired, a.ExpiredOn = true, &day
		out.AwardIDs = append(out.AwardIDs, a.ID)
	}
	for i := range recs {
		r := &recs[i]
		if r.MemberID != memberID || r.Expired || model.Day(r.CreatedAt).After(day) {
			continue
		}
		r.Expired, r.ExpiredOn = true, &day
		out.RecommendationIDs = append(out.RecommendationIDs, r.ID)
	}
	return out
}

// Restore un-expires the records consumed by duties dated in [from, to].
// An empty memberID matches every member. It returns the restored ids in
// AwardIDs and RecommendationIDs, and the members they belong to.
func Restore(awards []model.AwardRecord, recs []model.RecommendationRecord, memberID string, from, to time.Time) (Consumed, []string) {
	var out Consumed
	members := map[string]bool{}
	lo, hi := model.Day(from), model.Day(to)
	within := func(on *time.Time, owner string) bool {
		if on == nil || (memberID != "" && owner != memberID) {
			return false
		}
		d := model.Day(*on)
		return !d.Before(lo) && !d.After(hi)
	}
	for i := range awards {
		a := &awards[i]
		if !within(a.ExpiredOn, a.MemberID) {
			continue
		}
		a.Expired, a.ExpiredOn = false, nil
		out.AwardIDs = append(out.AwardIDs, a.ID)
		members[a.MemberID] = true
	}
	for i := range recs {
		r := &recs[i]
		if !within(r.ExpiredOn, r.MemberID) {
			continue
		}
		r.Expired, r.ExpiredOn = false, nil
		out.RecommendationIDs = append(out.RecommendationIDs, r.ID)
		members[r.MemberID] = true
	}
	return out, sortedKeys(members)
}

// ConsumeServed replays the served duties of memberIDs in date order, so
// every live record of those members ends up consumed by the earliest duty
// on or after its date.
func ConsumeServed(awards []model.AwardRecord, recs []model.RecommendationRecord, history []model.ConductorHistoryEntry, memberIDs ...string) Consumed {
	want := make(map[string]bool, len(memberIDs))
	for _, id := range memberIDs {
		want[id] = true
	}
	served := make([]model.ConductorHistoryEntry, 0, len(history))
	for _, h := range history {
		if want[h.MemberID] && h.Served() {
			served = append(served, h)
		}
	}
	sort.SliceStable(served, func(i, j int) bool { return served[i].Date.Before(served[j].Date) })

	var out Consumed
	for _, h := range served {
		c := Consume(awards, recs, h.MemberID, h.Date)
		out.AwardIDs = append(out.AwardIDs, c.AwardIDs...)
		out.RecommendationIDs = append(out.RecommendationIDs, c.RecommendationIDs...)
	}
	return out
}

// Settle nets the records a transition restored against those it consumed
// again. A record in both lists kept its expired state and is left out.
func Settle(restored, consumed Consumed) Consumed {
	return Consumed{
		AwardIDs:                  minus(consumed.AwardIDs, restored.AwardIDs),
		RecommendationIDs:         minus(consumed.RecommendationIDs, restored.RecommendationIDs),
		RestoredAwardIDs:          minus(restored.AwardIDs, consumed.AwardIDs),
		RestoredRecommendationIDs: minus(restored.RecommendationIDs, consumed.RecommendationIDs),
	}
}

// Consumers returns the members whose duty on a consumes records: the
// conductor always, the backup only once the conductor is known to have
// missed the day.
func Consumers(a model.Assignment) []string {
	var ids []string
	if a.Conductor != nil {
		ids = append(ids, a.Conductor.ID)
	}
	if a.Backup != nil && a.ShowedUp != nil && !*a.ShowedUp {
		ids = append(ids, a.Backup.ID)
	}
	return ids
}

func minus(a, b []string) []string {
	drop := make(map[string]bool, len(b))
	for _, id := range b {
		drop[id] = true
	}
	var out []string
	for _, id := range a {
		if !drop[id] {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
