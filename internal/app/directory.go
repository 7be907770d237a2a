package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/trainboard/internal/adapters/repository"
	"github.com/okian/trainboard/internal/domain/model"
	"github.com/okian/trainboard/internal/domain/scoring"
	"github.com/okian/trainboard/pkg/logger"
	"github.com/okian/trainboard/pkg/metrics"
)

// Members lists the member directory.
func (s *Service) Members(ctx context.Context) ([]model.Member, error) {
	return s.store.Members(ctx)
}

// UpsertMember creates or replaces a member.
func (s *Service) UpsertMember(ctx context.Context, m model.Member) error {
	if m.ID == "" || m.Name == "" {
		return &scoring.ValidationError{Field: "member", MemberID: m.ID, Reason: "id and name are required"}
	}
	if !m.Rank.Valid() {
		return &scoring.ValidationError{Field: "rank", MemberID: m.ID, Reason: fmt.Sprintf("unknown rank %q", m.Rank)}
	}
	return s.store.UpsertMember(ctx, m)
}

// Settings returns the current scoring settings.
func (s *Service) Settings(ctx context.Context) (model.ScoringSettings, error) {
	return s.store.Settings(ctx)
}

// UpdateSettings validates and stores next. Empty templates keep the
// current ones. A non-zero expectedVersion guards against lost updates.
func (s *Service) UpdateSettings(ctx context.Context, next model.ScoringSettings, expectedVersion int) (model.ScoringSettings, error) {
	if err := scoring.ValidateSettings(next); err != nil {
		return model.ScoringSettings{}, err
	}
	current, err := s.store.Settings(ctx)
	if err != nil {
		return model.ScoringSettings{}, err
	}
	if next.ScheduleMessageTemplate == "" {
		next.ScheduleMessageTemplate = current.ScheduleMessageTemplate
	}
	if next.DailyMessageTemplate == "" {
		next.DailyMessageTemplate = current.DailyMessageTemplate
	}

	saved, err := s.store.UpdateSettings(ctx, next, expectedVersion)
	if err != nil {
		return model.ScoringSettings{}, err
	}
	metrics.UpdateSettingsVersion(saved.Version)
	s.logger.Info(ctx, "scoring settings updated", logger.Int("version", saved.Version))
	return saved, nil
}

// DeleteAward removes an award record.
func (s *Service) DeleteAward(ctx context.Context, id string) error {
	return s.store.DeleteAward(ctx, id)
}

// Seed loads members, awards, recommendations and assignments from snap
// into the store. Records already present are skipped.
func (s *Service) Seed(ctx context.Context, snap model.Snapshot) error {
	for _, m := range snap.Members {
		if err := s.store.UpsertMember(ctx, m); err != nil {
			return fmt.Errorf("seed member %s: %w", m.ID, err)
		}
	}
	for _, a := range snap.Awards {
		if err := s.store.AddAward(ctx, a); err != nil && !errors.Is(err, repository.ErrDuplicate) {
			return fmt.Errorf("seed award %s: %w", a.ID, err)
		}
	}
	for _, r := range snap.Recommendations {
		if err := s.store.AddRecommendation(ctx, r); err != nil && !errors.Is(err, repository.ErrDuplicate) {
			return fmt.Errorf("seed recommendation %s: %w", r.ID, err)
		}
	}
	weeks := make(map[string][]model.Assignment)
	var order []string
	for _, a := range snap.Assignments {
		key := model.FormatDate(model.MondayOf(a.Date))
		if _, ok := weeks[key]; !ok {
			order = append(order, key)
		}
		weeks[key] = append(weeks[key], a)
	}
	for _, key := range order {
		start, _ := model.ParseDate(key)
		existing, err := s.store.Assignments(ctx, start, start.AddDate(0, 0, 6))
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			continue
		}
		if _, err := s.store.CommitWeek(ctx, start, weeks[key]); err != nil {
			return fmt.Errorf("seed week %s: %w", key, err)
		}
		for _, a := range weeks[key] {
			if a.ShowedUp == nil {
				continue
			}
			if _, err := s.store.RecordAttendance(ctx, a.Date, *a.ShowedUp); err != nil {
				return fmt.Errorf("seed attendance %s: %w", model.FormatDate(a.Date), err)
			}
		}
	}
	s.logger.Info(ctx, "store seeded",
		logger.Int("members", len(snap.Members)),
		logger.Int("awards", len(snap.Awards)),
		logger.Int("recommendations", len(snap.Recommendations)),
	)
	return nil
}
