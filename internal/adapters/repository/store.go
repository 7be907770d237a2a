// Package repository persists alliance members, scoring settings, awards,
// recommendations and train assignments.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/trainboard/internal/domain/expiry"
	"github.com/okian/trainboard/internal/domain/model"
)

// Store provides read/write access to the alliance state. Snapshot returns a
// consistent copy that callers may use without further locking.
type Store interface {
	Snapshot(ctx context.Context) (model.Snapshot, error)

	Members(ctx context.Context) ([]model.Member, error)
	// Member returns ErrNotFound for unknown ids.
	Member(ctx context.Context, id string) (model.Member, error)
	UpsertMember(ctx context.Context, m model.Member) error

	Settings(ctx context.Context) (model.ScoringSettings, error)
	// UpdateSettings stores s with the next version. A non-zero
	// expectedVersion must match the current version.
	UpdateSettings(ctx context.Context, s model.ScoringSettings, expectedVersion int) (model.ScoringSettings, error)

	// AddAward and AddRecommendation fail with ErrUnknownMember or
	// ErrDuplicate.
	AddAward(ctx context.Context, a model.AwardRecord) error
	DeleteAward(ctx context.Context, id string) error
	AddRecommendation(ctx context.Context, r model.RecommendationRecord) error

	// Assignments returns stored days in [from, to], ordered by date.
	Assignments(ctx context.Context, from, to time.Time) ([]model.Assignment, error)
	// CommitWeek replaces the week's assignments and consumes the records of
	// each conductor. Records consumed by the replaced plan are restored
	// unless another served duty still covers them. It fails with
	// ErrWeekEvaluated when attendance was already recorded for a day in the
	// week.
	CommitWeek(ctx context.Context, weekStart time.Time, assignments []model.Assignment) (expiry.Consumed, error)
	// RecordAttendance sets the conductor attendance of date. A no-show
	// consumes the backup's records; correcting it to showed-up restores
	// them.
	RecordAttendance(ctx context.Context, date time.Time, showedUp bool) (expiry.Consumed, error)

	Close() error
}

// HistoryFromAssignments derives the duty log from stored assignments.
func HistoryFromAssignments(assignments []model.Assignment) []model.ConductorHistoryEntry {
	out := make([]model.ConductorHistoryEntry, 0, 2*len(assignments))
	for _, a := range assignments {
		if a.Conductor != nil {
			out = append(out, model.ConductorHistoryEntry{MemberID: a.Conductor.ID, Date: a.Date, Role: model.RoleConductor, ShowedUp: a.ShowedUp})
		}
		if a.Backup != nil {
			out = append(out, model.ConductorHistoryEntry{MemberID: a.Backup.ID, Date: a.Date, Role: model.RoleBackup, ShowedUp: a.ShowedUp})
		}
	}
	return out
}

func checkWeek(start, end time.Time, assignments []model.Assignment) error {
	for _, a := range assignments {
		if !inRange(a.Date, start, end) {
			return fmt.Errorf("assignment %s outside week of %s", model.FormatDate(a.Date), model.FormatDate(start))
		}
	}
	return nil
}

func weekEnd(weekStart time.Time) time.Time {
	return model.Day(weekStart).AddDate(0, 0, 6)
}

func inRange(d, from, to time.Time) bool {
	d = model.Day(d)
	return !d.Before(model.Day(from)) && !d.After(model.Day(to))
}
