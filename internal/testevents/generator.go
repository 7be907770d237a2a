package testevents

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/okian/trainboard/internal/domain/model"
	"github.com/okian/trainboard/pkg/logger"
)

// Event types accepted by POST /api/events.
const (
	typeAward          = "award"
	typeRecommendation = "recommendation"
)

var awardTypes = []string{"VS", "Donation", "Kill Event", "Capital Clash"}

// randomInt returns a value in [0, n) using crypto/rand.
func randomInt(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

// generateEvents cycles through members, alternating awards and
// recommendations. Records are dated strictly before now so they count on
// today's leaderboard in any server time zone. With dupEvery > 1 every
// dupEvery-th event repeats the previous event's id and payload.
func generateEvents(ctx context.Context, members []Member, n, dupEvery int, now time.Time) []Event {
	events := make([]Event, 0, n)
	if len(members) == 0 {
		return events
	}
	ts := now.UTC().Format(time.RFC3339)
	lastWeek := model.MondayOf(now).AddDate(0, 0, -7).Format(model.DateLayout)
	yesterday := model.Day(now).AddDate(0, 0, -1).Format(model.DateLayout)

	for i := 0; len(events) < n; i++ {
		if dupEvery > 1 && (len(events)+1)%dupEvery == 0 {
			events = append(events, events[len(events)-1])
			continue
		}
		target := members[i%len(members)]
		e := Event{EventID: uuid.NewString(), TS: ts}
		if i%2 == 0 {
			e.Type = typeAward
			e.Award = &AwardPayload{
				MemberID:  target.ID,
				AwardType: awardTypes[randomInt(len(awardTypes))],
				Placement: 1 + randomInt(3),
				WeekDate:  lastWeek,
			}
		} else {
			recommender := members[(i+1)%len(members)]
			e.Type = typeRecommendation
			e.Recommendation = &RecommendationPayload{
				MemberID:      target.ID,
				RecommenderID: recommender.ID,
				CreatedAt:     yesterday,
			}
		}
		events = append(events, e)
	}

	logger.Get().Info(ctx, "generated events", logger.Int("count", len(events)), logger.Int("members", len(members)))
	return events
}

// expectedDuplicates counts the repeated ids generateEvents emits.
func expectedDuplicates(n, dupEvery int) int {
	if dupEvery <= 1 {
		return 0
	}
	return n / dupEvery
}
