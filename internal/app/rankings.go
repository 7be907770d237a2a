package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/trainboard/internal/adapters/repository"
	"github.com/okian/trainboard/internal/domain/model"
	"github.com/okian/trainboard/internal/domain/ranking"
	"github.com/okian/trainboard/internal/domain/scoring"
	"github.com/okian/trainboard/pkg/logger"
	"github.com/okian/trainboard/pkg/metrics"
)

// Leaderboard is the ranking as of Date together with the settings used.
type Leaderboard struct {
	Date                  time.Time             `json:"date"`
	Rankings              []model.RankingEntry  `json:"rankings"`
	AverageConductorCount float64               `json:"average_conductor_count"`
	Settings              model.ScoringSettings `json:"settings"`
}

// Rankings computes the leaderboard as of date; a zero date means today.
func (s *Service) Rankings(ctx context.Context, date time.Time) (Leaderboard, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return Leaderboard{}, fmt.Errorf("load snapshot: %w", err)
	}
	return s.rank(ctx, snap, s.dateOr(date))
}

func (s *Service) rank(ctx context.Context, snap model.Snapshot, date time.Time) (Leaderboard, error) {
	start := time.Now()
	res, err := s.aggregator.ComputeRankings(snap.Members, snap.Settings, snap.PerMember(), date)
	if err != nil {
		metrics.RecordErrorByComponent("ranking", "compute_failed")
		s.logger.Warn(ctx, "ranking failed", logger.String("date", model.FormatDate(date)), logger.Error(err))
		return Leaderboard{}, err
	}
	metrics.RecordRankings(len(res.Rankings), res.AverageConductorCount, time.Since(start))
	return Leaderboard{
		Date:                  model.Day(date),
		Rankings:              res.Rankings,
		AverageConductorCount: res.AverageConductorCount,
		Settings:              snap.Settings,
	}, nil
}

// MemberScore returns one member's breakdown as of date. Members excluded
// from the leaderboard are scored against the same average with Position 0.
func (s *Service) MemberScore(ctx context.Context, memberID string, date time.Time) (model.RankingEntry, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return model.RankingEntry{}, fmt.Errorf("load snapshot: %w", err)
	}
	member, ok := snap.MemberByID()[memberID]
	if !ok {
		return model.RankingEntry{}, fmt.Errorf("member %s: %w", memberID, repository.ErrNotFound)
	}

	date = s.dateOr(date)
	board, err := s.rank(ctx, snap, date)
	if err != nil {
		return model.RankingEntry{}, err
	}
	for _, e := range board.Rankings {
		if e.Member.ID == memberID {
			return e, nil
		}
	}

	data := snap.PerMember()[memberID]
	return s.engine.ComputeMemberScore(scoring.Input{
		Member:                member,
		Settings:              snap.Settings,
		Awards:                data.Awards,
		Recommendations:       data.Recommendations,
		History:               data.History,
		AverageConductorCount: board.AverageConductorCount,
		Date:                  date,
	})
}

// MemberStats returns duty statistics for every member.
func (s *Service) MemberStats(ctx context.Context) ([]ranking.Stats, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return ranking.MemberStats(snap.Members, snap.History), nil
}
