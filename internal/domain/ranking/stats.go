package ranking

import (
	"sort"
	"strings"
	"time"

	"github.com/okian/trainboard/internal/domain/model"
)

// Stats summarises a member's duty record.
type Stats struct {
	Member               model.Member `json:"member"`
	ConductorCount       int          `json:"conductor_count"`
	LastConductorDate    *time.Time   `json:"last_conductor_date"`
	BackupCount          int          `json:"backup_count"`
	BackupUsedCount      int          `json:"backup_used_count"`
	ConductorNoShowCount int          `json:"conductor_no_show_count"`
}

// MemberStats tallies duty history for every member, sorted by name.
func MemberStats(members []model.Member, history []model.ConductorHistoryEntry) []Stats {
	idx := make(map[string]int, len(members))
	out := make([]Stats, len(members))
	for i, m := range members {
		idx[m.ID] = i
		out[i].Member = m
	}
	for _, h := range history {
		i, ok := idx[h.MemberID]
		if !ok {
			continue
		}
		s := &out[i]
		switch h.Role {
		case model.RoleConductor:
			s.ConductorCount++
			d := model.Day(h.Date)
			if s.LastConductorDate == nil || d.After(*s.LastConductorDate) {
				s.LastConductorDate = &d
			}
			if h.ShowedUp != nil && !*h.ShowedUp {
				s.ConductorNoShowCount++
			}
		case model.RoleBackup:
			s.BackupCount++
			if h.Served() {
				s.BackupUsedCount++
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Member.Name) < strings.ToLower(out[j].Member.Name)
	})
	return out
}
