// Package schedule allocates a week of train conductors and backups from the
// current leaderboard.
package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/okian/trainboard/internal/domain/model"
	"github.com/okian/trainboard/internal/domain/scoring"
)

// DaysPerWeek is the default window length.
const DaysPerWeek = 7

// Slot names a position on a scheduled day.
type Slot string

// Schedule slots.
const (
	SlotConductor Slot = "conductor"
	SlotBackup    Slot = "backup"
)

// UnfilledDay lists the slots a run could not fill for Date.
type UnfilledDay struct {
	Date    time.Time `json:"date"`
	Missing []Slot    `json:"missing"`
}

// Result is the outcome of one scheduling run. Assignments always holds one
// entry per day, partially filled where the pool ran short.
type Result struct {
	WeekStart    time.Time          `json:"week_start"`
	Assignments  []model.Assignment `json:"assignments"`
	UnfilledDays []UnfilledDay      `json:"unfilled_days"`
}

// Complete reports whether every slot was filled.
func (r Result) Complete() bool { return len(r.UnfilledDays) == 0 }

// Err returns ErrInsufficientPool when any slot is unfilled.
func (r Result) Err() error {
	if r.Complete() {
		return nil
	}
	return fmt.Errorf("%d of %d days incomplete: %w", len(r.UnfilledDays), len(r.Assignments), ErrInsufficientPool)
}

// Scheduler runs the greedy weekly allocation.
type Scheduler struct {
	days            int
	conductorsFirst bool
}

// New creates a Scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{days: DaysPerWeek}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AutoScheduleWeek runs the default scheduler.
func AutoScheduleWeek(rankings []model.RankingEntry, start time.Time, existing []model.Assignment, pool []model.Member) (Result, error) {
	return New().AutoScheduleWeek(rankings, start, existing, pool)
}

// Days expands the window starting at start into calendar days.
func (s *Scheduler) Days(start time.Time) ([]time.Time, error) {
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Count:   s.days,
		Dtstart: model.Day(start),
	})
	if err != nil {
		return nil, fmt.Errorf("expand schedule window: %w", err)
	}
	return r.All(), nil
}

// AutoScheduleWeek assigns one conductor and one backup per day of the week
// starting at start, which must be a Monday.
//
// rankings must be ordered best first. Conductors are taken from eligible
// ranked members; backups only from pool, ordered by their ranking position.
// No member fills more than one slot in a run, and members named in existing
// assignments are skipped on those days.
func (s *Scheduler) AutoScheduleWeek(rankings []model.RankingEntry, start time.Time, existing []model.Assignment, pool []model.Member) (Result, error) {
	if start.IsZero() {
		return Result{}, &scoring.ValidationError{Field: "start_date", Reason: "missing"}
	}
	start = model.Day(start)
	if start.Weekday() != time.Monday {
		return Result{}, &scoring.ValidationError{Field: "start_date", Reason: model.FormatDate(start) + " is not a Monday"}
	}
	for _, m := range pool {
		if !m.CanBackup() {
			return Result{}, &scoring.ValidationError{Field: "backup_pool", MemberID: m.ID, Reason: "backup must be an eligible R4 or R5 member"}
		}
	}

	days, err := s.Days(start)
	if err != nil {
		return Result{}, err
	}

	busy := make(map[string]map[string]bool)
	for _, a := range existing {
		key := model.FormatDate(a.Date)
		if busy[key] == nil {
			busy[key] = make(map[string]bool)
		}
		for _, id := range a.Members() {
			busy[key][id] = true
		}
	}

	conductors := make([]model.RankingEntry, 0, len(rankings))
	for _, e := range rankings {
		if e.Member.Eligible {
			conductors = append(conductors, e)
		}
	}
	backups := orderPool(pool, rankings)

	res := Result{WeekStart: start, Assignments: make([]model.Assignment, len(days))}
	used := make(map[string]bool)

	pickConductor := func(i int) {
		key := model.FormatDate(days[i])
		for _, e := range conductors {
			if used[e.Member.ID] || busy[key][e.Member.ID] {
				continue
			}
			used[e.Member.ID] = true
			ref := e.Member.Ref()
			score := e.TotalScore
			res.Assignments[i].Conductor = &ref
			res.Assignments[i].ConductorScore = &score
			return
		}
	}
	pickBackup := func(i int) {
		key := model.FormatDate(days[i])
		for _, m := range backups {
			if used[m.ID] || busy[key][m.ID] {
				continue
			}
			used[m.ID] = true
			ref := m.Ref()
			res.Assignments[i].Backup = &ref
			return
		}
	}

	for i, d := range days {
		res.Assignments[i].Date = d
	}
	if s.conductorsFirst {
		for i := range days {
			pickConductor(i)
		}
		for i := range days {
			pickBackup(i)
		}
	} else {
		for i := range days {
			pickConductor(i)
			pickBackup(i)
		}
	}

	for _, a := range res.Assignments {
		var missing []Slot
		if a.Conductor == nil {
			missing = append(missing, SlotConductor)
		}
		if a.Backup == nil {
			missing = append(missing, SlotBackup)
		}
		if len(missing) > 0 {
			res.UnfilledDays = append(res.UnfilledDays, UnfilledDay{Date: a.Date, Missing: missing})
		}
	}
	return res, nil
}

// orderPool sorts backup candidates by leaderboard position. Candidates not
// on the leaderboard follow, by name then id.
func orderPool(pool []model.Member, rankings []model.RankingEntry) []model.Member {
	pos := make(map[string]int, len(rankings))
	for i, e := range rankings {
		pos[e.Member.ID] = i
	}
	out := append([]model.Member(nil), pool...)
	sort.SliceStable(out, func(i, j int) bool {
		pi, iok := pos[out[i].ID]
		pj, jok := pos[out[j].ID]
		switch {
		case iok && jok:
			return pi < pj
		case iok != jok:
			return iok
		}
		ni, nj := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if ni != nj {
			return ni < nj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// BackupPool returns the eligible R4/R5 members of members.
func BackupPool(members []model.Member) []model.Member {
	out := make([]model.Member, 0, len(members))
	for _, m := range members {
		if m.CanBackup() {
			out = append(out, m)
		}
	}
	return out
}
