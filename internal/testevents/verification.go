package testevents

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"golang.org/x/sync/errgroup"
)

// retrieveScores fetches GET /api/rankings/{id} for every member.
func retrieveScores(ctx context.Context, cfg Config, client *HTTPClient, members []Member) (map[string]Entry, error) {
	var (
		mu     sync.Mutex
		scores = make(map[string]Entry, len(members))
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, m := range members {
		g.Go(func() error {
			var entry Entry
			if err := client.getJSON(ctx, "/api/rankings/"+url.PathEscape(m.ID), &entry); err != nil {
				return err
			}
			mu.Lock()
			scores[m.ID] = entry
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	return scores, err
}

// verifyResults checks that the leaderboard is ordered with dense positions,
// that every breakdown adds up and that per-member scores agree with it.
func verifyResults(board []Entry, scores map[string]Entry) error {
	var errs []error
	for i, e := range board {
		if e.Position != i+1 {
			errs = append(errs, fmt.Errorf("entry %d (%s) has position %d", i, e.Member.ID, e.Position))
		}
		if i > 0 && e.TotalScore > board[i-1].TotalScore {
			errs = append(errs, fmt.Errorf("entry %d (%s) outscores entry %d", i, e.Member.ID, i-1))
		}
		if sum := componentSum(e); sum != e.TotalScore {
			errs = append(errs, fmt.Errorf("%s: total %d != component sum %d", e.Member.ID, e.TotalScore, sum))
		}
		score, ok := scores[e.Member.ID]
		if !ok {
			continue
		}
		if score.TotalScore != e.TotalScore || score.Position != e.Position {
			errs = append(errs, fmt.Errorf("%s: member score %d@%d, leaderboard %d@%d",
				e.Member.ID, score.TotalScore, score.Position, e.TotalScore, e.Position))
		}
	}

	listed := make(map[string]bool, len(board))
	for _, e := range board {
		listed[e.Member.ID] = true
	}
	for id, score := range scores {
		if !listed[id] && score.Position != 0 {
			errs = append(errs, fmt.Errorf("%s: off the leaderboard but has position %d", id, score.Position))
		}
	}
	return errors.Join(errs...)
}

func componentSum(e Entry) int {
	return e.AwardPoints + e.RecommendationPoints + e.RankBoost + e.FirstTimeConductorBoost -
		e.RecentConductorPenalty - e.AboveAveragePenalty
}
