package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	eventqueue "github.com/okian/trainboard/internal/adapters/mq/queue"
	"github.com/okian/trainboard/internal/adapters/repository"
	"github.com/okian/trainboard/internal/domain/model"
	"github.com/okian/trainboard/pkg/logger"
	"github.com/okian/trainboard/pkg/metrics"
)

// Submit validates e, rejects duplicates and queues it for the workers. It
// returns the event id, generated when e has none. Records without an id
// take the event id, so a replayed event cannot create a second record.
func (s *Service) Submit(ctx context.Context, e model.Event) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return "", ErrNotStarted
	}

	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.TS.IsZero() {
		e.TS = s.now().UTC()
	}
	if err := s.prepare(&e); err != nil {
		return "", err
	}

	if s.deduper.SeenAndRecord(ctx, e.EventID) {
		metrics.RecordEventDuplicate()
		s.logger.Debug(ctx, "duplicate event detected, skipping", logger.String("eventID", e.EventID))
		return e.EventID, ErrDuplicateEvent
	}
	if err := s.eventQueue.Enqueue(ctx, e); err != nil {
		s.deduper.Unrecord(ctx, e.EventID)
		if errors.Is(err, eventqueue.ErrFull) {
			return e.EventID, fmt.Errorf("%w: %v", ErrBackpressure, err)
		}
		return e.EventID, err
	}
	metrics.RecordEventIngested(string(e.Kind))
	return e.EventID, nil
}

func (s *Service) prepare(e *model.Event) error {
	switch e.Kind {
	case model.EventAward:
		if e.Award == nil {
			return fmt.Errorf("%w: award event without award", ErrInvalidEvent)
		}
		award := *e.Award
		if award.ID == "" {
			award.ID = e.EventID
		}
		award.WeekDate = model.Day(award.WeekDate)
		e.Award = &award
	case model.EventRecommendation:
		if e.Recommendation == nil {
			return fmt.Errorf("%w: recommendation event without recommendation", ErrInvalidEvent)
		}
		rec := *e.Recommendation
		if rec.ID == "" {
			rec.ID = e.EventID
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = e.TS
		}
		rec.CreatedAt = model.Day(rec.CreatedAt)
		e.Recommendation = &rec
	case model.EventAttendance:
		if e.Attendance == nil {
			return fmt.Errorf("%w: attendance event without attendance", ErrInvalidEvent)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, e.Kind)
	}
	return nil
}

// storeApplier writes queued events to the store.
type storeApplier struct {
	store repository.Store
	log   logger.Logger
}

func (a *storeApplier) Apply(ctx context.Context, e model.Event) error {
	switch e.Kind {
	case model.EventAward:
		return a.store.AddAward(ctx, *e.Award)
	case model.EventRecommendation:
		return a.store.AddRecommendation(ctx, *e.Recommendation)
	case model.EventAttendance:
		consumed, err := a.store.RecordAttendance(ctx, model.Day(e.Attendance.Date), e.Attendance.ShowedUp)
		if err != nil {
			return err
		}
		recordExpiry(consumed)
		if !consumed.Empty() {
			a.log.Debug(ctx, "backup records updated",
				logger.String("date", model.FormatDate(e.Attendance.Date)),
				logger.Int("expired", len(consumed.AwardIDs)+len(consumed.RecommendationIDs)),
				logger.Int("restored", len(consumed.RestoredAwardIDs)+len(consumed.RestoredRecommendationIDs)),
			)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, e.Kind)
}
