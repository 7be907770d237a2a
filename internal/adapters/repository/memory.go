package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/trainboard/internal/domain/expiry"
	"github.com/okian/trainboard/internal/domain/model"
)

// MemoryStore keeps the alliance state in process memory.
type MemoryStore struct {
	mu              sync.RWMutex
	members         map[string]model.Member
	settings        model.ScoringSettings
	awards          []model.AwardRecord
	recommendations []model.RecommendationRecord
	assignments     map[string]model.Assignment
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := defaultStoreOptions()
	for _, opt := range opts {
		opt(&o)
	}
	s := &MemoryStore{
		members:     make(map[string]model.Member, len(o.members)),
		settings:    o.settings,
		assignments: make(map[string]model.Assignment),
	}
	for _, m := range o.members {
		s.members[m.ID] = m
	}
	return s
}

func (s *MemoryStore) Snapshot(_ context.Context) (model.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := model.Snapshot{
		Members:         s.sortedMembers(),
		Settings:        s.settings,
		Awards:          append([]model.AwardRecord(nil), s.awards...),
		Recommendations: append([]model.RecommendationRecord(nil), s.recommendations...),
		Assignments:     s.sortedAssignments(time.Time{}, time.Time{}),
	}
	snap.History = HistoryFromAssignments(snap.Assignments)
	return snap, nil
}

func (s *MemoryStore) Members(_ context.Context) ([]model.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedMembers(), nil
}

func (s *MemoryStore) Member(_ context.Context, id string) (model.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[id]
	if !ok {
		return model.Member{}, fmt.Errorf("member %s: %w", id, ErrNotFound)
	}
	return m, nil
}

func (s *MemoryStore) UpsertMember(_ context.Context, m model.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[m.ID] = m
	return nil
}

func (s *MemoryStore) Settings(_ context.Context) (model.ScoringSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings, nil
}

func (s *MemoryStore) UpdateSettings(_ context.Context, next model.ScoringSettings, expectedVersion int) (model.ScoringSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if expectedVersion != 0 && expectedVersion != s.settings.Version {
		return model.ScoringSettings{}, fmt.Errorf("expected version %d, have %d: %w", expectedVersion, s.settings.Version, ErrVersionConflict)
	}
	next.Version = s.settings.Version + 1
	s.settings = next
	return next, nil
}

func (s *MemoryStore) AddAward(_ context.Context, a model.AwardRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[a.MemberID]; !ok {
		return fmt.Errorf("award %s: %w", a.ID, ErrUnknownMember)
	}
	for _, x := range s.awards {
		if x.ID == a.ID {
			return fmt.Errorf("award %s: %w", a.ID, ErrDuplicate)
		}
	}
	a.WeekDate = model.Day(a.WeekDate)
	s.awards = append(s.awards, a)
	return nil
}

func (s *MemoryStore) DeleteAward(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.awards {
		if a.ID == id {
			s.awards = append(s.awards[:i], s.awards[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("award %s: %w", id, ErrNotFound)
}

func (s *MemoryStore) AddRecommendation(_ context.Context, r model.RecommendationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[r.MemberID]; !ok {
		return fmt.Errorf("recommendation %s: %w", r.ID, ErrUnknownMember)
	}
	for _, x := range s.recommendations {
		if x.ID == r.ID {
			return fmt.Errorf("recommendation %s: %w", r.ID, ErrDuplicate)
		}
	}
	s.recommendations = append(s.recommendations, r)
	return nil
}

func (s *MemoryStore) Assignments(_ context.Context, from, to time.Time) ([]model.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedAssignments(from, to), nil
}

func (s *MemoryStore) CommitWeek(_ context.Context, weekStart time.Time, assignments []model.Assignment) (expiry.Consumed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start, end := model.Day(weekStart), weekEnd(weekStart)
	for key, a := range s.assignments {
		if inRange(a.Date, start, end) && a.ShowedUp != nil {
			return expiry.Consumed{}, fmt.Errorf("day %s: %w", key, ErrWeekEvaluated)
		}
	}
	if err := checkWeek(start, end, assignments); err != nil {
		return expiry.Consumed{}, err
	}
	restored, members := expiry.Restore(s.awards, s.recommendations, "", start, end)
	for key, a := range s.assignments {
		if inRange(a.Date, start, end) {
			delete(s.assignments, key)
		}
	}
	for _, a := range assignments {
		a.Date = model.Day(a.Date)
		a.ShowedUp = nil
		s.assignments[model.FormatDate(a.Date)] = a
		members = append(members, expiry.Consumers(a)...)
	}
	consumed := expiry.ConsumeServed(s.awards, s.recommendations, s.history(), members...)
	return expiry.Settle(restored, consumed), nil
}

func (s *MemoryStore) RecordAttendance(_ context.Context, date time.Time, showedUp bool) (expiry.Consumed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := model.FormatDate(date)
	a, ok := s.assignments[key]
	if !ok {
		return expiry.Consumed{}, fmt.Errorf("assignment %s: %w", key, ErrNotFound)
	}
	a.ShowedUp = model.Bool(showedUp)
	s.assignments[key] = a
	if a.Backup == nil {
		return expiry.Consumed{}, nil
	}
	restored, _ := expiry.Restore(s.awards, s.recommendations, a.Backup.ID, a.Date, a.Date)
	consumed := expiry.ConsumeServed(s.awards, s.recommendations, s.history(), a.Backup.ID)
	return expiry.Settle(restored, consumed), nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) sortedMembers() []model.Member {
	out := make([]model.Member, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemoryStore) history() []model.ConductorHistoryEntry {
	return HistoryFromAssignments(s.sortedAssignments(time.Time{}, time.Time{}))
}

// sortedAssignments returns assignments in [from, to]; zero bounds are open.
func (s *MemoryStore) sortedAssignments(from, to time.Time) []model.Assignment {
	out := make([]model.Assignment, 0, len(s.assignments))
	for _, a := range s.assignments {
		if !from.IsZero() && a.Date.Before(model.Day(from)) {
			continue
		}
		if !to.IsZero() && a.Date.After(model.Day(to)) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
