package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/trainboard/internal/adapters/repository"
	"github.com/okian/trainboard/internal/domain/expiry"
	"github.com/okian/trainboard/internal/domain/messages"
	"github.com/okian/trainboard/internal/domain/model"
	"github.com/okian/trainboard/internal/domain/schedule"
	"github.com/okian/trainboard/pkg/logger"
	"github.com/okian/trainboard/pkg/metrics"
)

// AutoScheduleRequest asks for a week to be planned.
type AutoScheduleRequest struct {
	// Start is any day of the week to plan; it is moved back to Monday.
	Start time.Time
	// Commit stores the plan, replacing the week, and expires the records
	// of the assigned conductors.
	Commit bool
	// Existing lists duties already fixed elsewhere that week.
	Existing []model.Assignment
}

// AutoScheduleResult is a planned week.
type AutoScheduleResult struct {
	schedule.Result
	Committed bool            `json:"committed"`
	Consumed  expiry.Consumed `json:"consumed"`
}

// AutoSchedule ranks the members as of the week start and fills the week.
// Partial plans are returned, and committed when asked, with the gaps in
// UnfilledDays.
func (s *Service) AutoSchedule(ctx context.Context, req AutoScheduleRequest) (AutoScheduleResult, error) {
	start := model.MondayOf(s.dateOr(req.Start))
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return AutoScheduleResult{}, fmt.Errorf("load snapshot: %w", err)
	}
	board, err := s.rank(ctx, snap, start)
	if err != nil {
		return AutoScheduleResult{}, err
	}

	res, err := s.scheduler.AutoScheduleWeek(board.Rankings, start, req.Existing, schedule.BackupPool(snap.Members))
	if err != nil {
		return AutoScheduleResult{}, err
	}
	out := AutoScheduleResult{Result: res}
	for _, d := range res.UnfilledDays {
		for _, slot := range d.Missing {
			metrics.RecordUnfilledSlot(string(slot))
		}
	}

	if req.Commit {
		consumed, err := s.store.CommitWeek(ctx, start, res.Assignments)
		if err != nil {
			metrics.RecordScheduleRun(res.Complete(), false)
			return AutoScheduleResult{}, fmt.Errorf("commit week %s: %w", model.FormatDate(start), err)
		}
		out.Committed = true
		out.Consumed = consumed
		recordExpiry(consumed)
	}
	metrics.RecordScheduleRun(res.Complete(), out.Committed)

	s.logger.Info(ctx, "week scheduled",
		logger.String("week", model.FormatDate(start)),
		logger.Bool("committed", out.Committed),
		logger.Int("unfilledDays", len(res.UnfilledDays)),
	)
	return out, nil
}

// Schedule returns the stored assignments of the week containing day.
func (s *Service) Schedule(ctx context.Context, day time.Time) ([]model.Assignment, error) {
	start := model.MondayOf(s.dateOr(day))
	return s.store.Assignments(ctx, start, start.AddDate(0, 0, schedule.DaysPerWeek-1))
}

// RecordAttendance stores whether the conductor of date showed up. A
// no-show makes the backup's duty count and expires the backup's records;
// correcting it hands them back.
func (s *Service) RecordAttendance(ctx context.Context, date time.Time, showedUp bool) (expiry.Consumed, error) {
	consumed, err := s.store.RecordAttendance(ctx, model.Day(date), showedUp)
	if err != nil {
		return expiry.Consumed{}, err
	}
	recordExpiry(consumed)
	return consumed, nil
}

// WeeklyMessage renders the announcement for the week containing day,
// listing today's top candidates as next in line.
func (s *Service) WeeklyMessage(ctx context.Context, day time.Time) (string, error) {
	start := model.MondayOf(s.dateOr(day))
	assignments, err := s.Schedule(ctx, start)
	if err != nil {
		return "", err
	}
	board, err := s.Rankings(ctx, s.today())
	if err != nil {
		return "", err
	}
	return messages.Weekly(board.Settings.ScheduleMessageTemplate, start, assignments, board.Rankings), nil
}

// DailyMessage renders the announcement for one stored day.
func (s *Service) DailyMessage(ctx context.Context, day time.Time) (string, error) {
	day = model.Day(s.dateOr(day))
	assignments, err := s.store.Assignments(ctx, day, day)
	if err != nil {
		return "", err
	}
	if len(assignments) == 0 {
		return "", fmt.Errorf("assignment %s: %w", model.FormatDate(day), repository.ErrNotFound)
	}
	settings, err := s.store.Settings(ctx)
	if err != nil {
		return "", err
	}
	return messages.Daily(settings.DailyMessageTemplate, assignments[0]), nil
}

// ConductorReminders renders the reminders for the week containing day.
func (s *Service) ConductorReminders(ctx context.Context, day time.Time) ([]messages.Reminder, error) {
	assignments, err := s.Schedule(ctx, day)
	if err != nil {
		return nil, err
	}
	return messages.ConductorReminders(assignments), nil
}

func recordExpiry(c expiry.Consumed) {
	metrics.RecordExpired("award", len(c.AwardIDs))
	metrics.RecordExpired("recommendation", len(c.RecommendationIDs))
	metrics.RecordRestored("award", len(c.RestoredAwardIDs))
	metrics.RecordRestored("recommendation", len(c.RestoredRecommendationIDs))
}
