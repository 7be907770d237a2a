package model

// MemberData is the per-member event history fed to the scoring engine.
type MemberData struct {
	Awards          []AwardRecord
	Recommendations []RecommendationRecord
	History         []ConductorHistoryEntry
}

// Snapshot is an immutable view of everything a ranking or scheduling
// request needs. Each request reads its own snapshot.
type Snapshot struct {
	Members         []Member
	Settings        ScoringSettings
	Awards          []AwardRecord
	Recommendations []RecommendationRecord
	History         []ConductorHistoryEntry
	Assignments     []Assignment
}

// PerMember groups the snapshot's records by member id.
func (s Snapshot) PerMember() map[string]MemberData {
	out := make(map[string]MemberData, len(s.Members))
	for _, a := range s.Awards {
		d := out[a.MemberID]
		d.Awards = append(d.Awards, a)
		out[a.MemberID] = d
	}
	for _, r := range s.Recommendations {
		d := out[r.MemberID]
		d.Recommendations = append(d.Recommendations, r)
		out[r.MemberID] = d
	}
	for _, h := range s.History {
		d := out[h.MemberID]
		d.History = append(d.History, h)
		out[h.MemberID] = d
	}
	return out
}

// MemberByID indexes the snapshot's members.
func (s Snapshot) MemberByID() map[string]Member {
	out := make(map[string]Member, len(s.Members))
	for _, m := range s.Members {
		out[m.ID] = m
	}
	return out
}
