package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/trainboard/internal/adapters/repository"
	"github.com/okian/trainboard/internal/domain/model"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := model.ParseDate(s)
	require.NoError(t, err)
	return d
}

func seedMembers() []model.Member {
	return []model.Member{
		{ID: "ana", Name: "Ana", Rank: model.RankR5, Eligible: true},
		{ID: "bo", Name: "Bo", Rank: model.RankR4, Eligible: true},
		{ID: "cy", Name: "Cy", Rank: model.RankR2, Eligible: true},
	}
}

// exerciseStore runs the shared Store contract against s, which must be
// seeded with seedMembers and default settings.
func exerciseStore(t *testing.T, s repository.Store) {
	ctx := context.Background()

	t.Run("members", func(t *testing.T) {
		members, err := s.Members(ctx)
		require.NoError(t, err)
		require.Len(t, members, 3)
		assert.Equal(t, "ana", members[0].ID)

		_, err = s.Member(ctx, "ghost")
		assert.ErrorIs(t, err, repository.ErrNotFound)

		require.NoError(t, s.UpsertMember(ctx, model.Member{ID: "cy", Name: "Cy", Rank: model.RankR3, Eligible: false}))
		cy, err := s.Member(ctx, "cy")
		require.NoError(t, err)
		assert.Equal(t, model.RankR3, cy.Rank)
		assert.False(t, cy.Eligible)
	})

	t.Run("settings versioning", func(t *testing.T) {
		cur, err := s.Settings(ctx)
		require.NoError(t, err)

		next := cur
		next.AwardFirstPoints = 7
		updated, err := s.UpdateSettings(ctx, next, cur.Version)
		require.NoError(t, err)
		assert.Equal(t, cur.Version+1, updated.Version)
		assert.Equal(t, 7, updated.AwardFirstPoints)

		_, err = s.UpdateSettings(ctx, next, cur.Version)
		assert.ErrorIs(t, err, repository.ErrVersionConflict)

		unconditional, err := s.UpdateSettings(ctx, next, 0)
		require.NoError(t, err)
		assert.Equal(t, cur.Version+2, unconditional.Version)
	})

	t.Run("records", func(t *testing.T) {
		require.NoError(t, s.AddAward(ctx, model.AwardRecord{ID: "aw1", MemberID: "ana", AwardType: "VS", Placement: 1, WeekDate: day(t, "2024-06-03")}))
		require.NoError(t, s.AddAward(ctx, model.AwardRecord{ID: "aw2", MemberID: "ana", AwardType: "VS", Placement: 2, WeekDate: day(t, "2024-06-17")}))
		require.NoError(t, s.AddAward(ctx, model.AwardRecord{ID: "aw3", MemberID: "bo", AwardType: "Donation", Placement: 3, WeekDate: day(t, "2024-06-03")}))
		assert.ErrorIs(t, s.AddAward(ctx, model.AwardRecord{ID: "aw1", MemberID: "ana", Placement: 1, WeekDate: day(t, "2024-06-03")}), repository.ErrDuplicate)
		assert.ErrorIs(t, s.AddAward(ctx, model.AwardRecord{ID: "aw9", MemberID: "ghost", Placement: 1, WeekDate: day(t, "2024-06-03")}), repository.ErrUnknownMember)

		require.NoError(t, s.AddRecommendation(ctx, model.RecommendationRecord{ID: "r1", MemberID: "bo", RecommenderID: "ana", CreatedAt: day(t, "2024-06-05")}))
		assert.ErrorIs(t, s.AddRecommendation(ctx, model.RecommendationRecord{ID: "r1", MemberID: "bo", CreatedAt: day(t, "2024-06-05")}), repository.ErrDuplicate)

		require.NoError(t, s.AddAward(ctx, model.AwardRecord{ID: "tmp", MemberID: "cy", Placement: 3, WeekDate: day(t, "2024-06-03")}))
		require.NoError(t, s.DeleteAward(ctx, "tmp"))
		assert.ErrorIs(t, s.DeleteAward(ctx, "tmp"), repository.ErrNotFound)
	})

	t.Run("commit week consumes conductor records", func(t *testing.T) {
		monday := day(t, "2024-06-10")
		ana := model.Ref{ID: "ana", Name: "Ana", Rank: model.RankR5}
		bo := model.Ref{ID: "bo", Name: "Bo", Rank: model.RankR4}
		score := 25
		consumed, err := s.CommitWeek(ctx, monday, []model.Assignment{
			{Date: monday, Conductor: &ana, Backup: &bo, ConductorScore: &score},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"aw1"}, consumed.AwardIDs)
		assert.Empty(t, consumed.RecommendationIDs)

		got, err := s.Assignments(ctx, monday, monday.AddDate(0, 0, 6))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "ana", got[0].Conductor.ID)
		assert.Equal(t, "bo", got[0].Backup.ID)
		require.NotNil(t, got[0].ConductorScore)
		assert.Equal(t, 25, *got[0].ConductorScore)
		assert.Nil(t, got[0].ShowedUp)

		_, err = s.CommitWeek(ctx, monday, []model.Assignment{{Date: monday.AddDate(0, 0, 9), Conductor: &ana}})
		assert.Error(t, err)

		snap, err := s.Snapshot(ctx)
		require.NoError(t, err)
		require.Len(t, snap.History, 2)
		for _, a := range snap.Awards {
			assert.Equal(t, a.ID == "aw1", a.Expired, a.ID)
		}
	})

	t.Run("no-show consumes backup records", func(t *testing.T) {
		monday := day(t, "2024-06-10")
		consumed, err := s.RecordAttendance(ctx, monday, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"aw3"}, consumed.AwardIDs)
		assert.Equal(t, []string{"r1"}, consumed.RecommendationIDs)

		_, err = s.RecordAttendance(ctx, day(t, "2024-06-11"), true)
		assert.ErrorIs(t, err, repository.ErrNotFound)

		_, err = s.CommitWeek(ctx, monday, nil)
		assert.ErrorIs(t, err, repository.ErrWeekEvaluated)

		snap, err := s.Snapshot(ctx)
		require.NoError(t, err)
		for _, h := range snap.History {
			require.NotNil(t, h.ShowedUp)
			assert.False(t, *h.ShowedUp)
		}
	})

	t.Run("replanning a week restores records", func(t *testing.T) {
		monday := day(t, "2024-07-01")
		cy := model.Ref{ID: "cy", Name: "Cy", Rank: model.RankR3}
		bo := model.Ref{ID: "bo", Name: "Bo", Rank: model.RankR4}
		require.NoError(t, s.AddAward(ctx, model.AwardRecord{ID: "aw5", MemberID: "cy", Placement: 1, WeekDate: day(t, "2024-06-24")}))
		require.NoError(t, s.AddRecommendation(ctx, model.RecommendationRecord{ID: "r2", MemberID: "cy", RecommenderID: "ana", CreatedAt: day(t, "2024-06-25")}))

		consumed, err := s.CommitWeek(ctx, monday, []model.Assignment{{Date: monday, Conductor: &cy}})
		require.NoError(t, err)
		assert.Equal(t, []string{"aw5"}, consumed.AwardIDs)
		assert.Equal(t, []string{"r2"}, consumed.RecommendationIDs)

		snap, err := s.Snapshot(ctx)
		require.NoError(t, err)
		aw5 := findAward(t, snap, "aw5")
		assert.True(t, aw5.Expired)
		require.NotNil(t, aw5.ExpiredOn)
		assert.True(t, monday.Equal(*aw5.ExpiredOn))

		consumed, err = s.CommitWeek(ctx, monday, []model.Assignment{{Date: monday, Conductor: &bo}})
		require.NoError(t, err)
		assert.Empty(t, consumed.AwardIDs)
		assert.Empty(t, consumed.RecommendationIDs)
		assert.Equal(t, []string{"aw5"}, consumed.RestoredAwardIDs)
		assert.Equal(t, []string{"r2"}, consumed.RestoredRecommendationIDs)

		snap, err = s.Snapshot(ctx)
		require.NoError(t, err)
		aw5 = findAward(t, snap, "aw5")
		assert.False(t, aw5.Expired)
		assert.Nil(t, aw5.ExpiredOn)
		assert.False(t, findRecommendation(t, snap, "r2").Expired)
		assert.True(t, findAward(t, snap, "aw3").Expired, "bo's no-show duty still stands")
	})

	t.Run("restored records fall to an earlier served duty", func(t *testing.T) {
		cy := model.Ref{ID: "cy", Name: "Cy", Rank: model.RankR3}
		later, earlier := day(t, "2024-07-15"), day(t, "2024-07-08")

		consumed, err := s.CommitWeek(ctx, later, []model.Assignment{{Date: later.AddDate(0, 0, 2), Conductor: &cy}})
		require.NoError(t, err)
		assert.Equal(t, []string{"aw5"}, consumed.AwardIDs)

		consumed, err = s.CommitWeek(ctx, earlier, []model.Assignment{{Date: earlier.AddDate(0, 0, 1), Conductor: &cy}})
		require.NoError(t, err)
		assert.True(t, consumed.Empty())

		consumed, err = s.CommitWeek(ctx, later, nil)
		require.NoError(t, err)
		assert.True(t, consumed.Empty(), "the earlier duty takes the records over")

		snap, err := s.Snapshot(ctx)
		require.NoError(t, err)
		aw5 := findAward(t, snap, "aw5")
		assert.True(t, aw5.Expired)
		require.NotNil(t, aw5.ExpiredOn)
		assert.True(t, day(t, "2024-07-09").Equal(*aw5.ExpiredOn))
		assert.True(t, findRecommendation(t, snap, "r2").Expired)
	})

	t.Run("attendance correction restores backup records", func(t *testing.T) {
		monday := day(t, "2024-07-22")
		ana := model.Ref{ID: "ana", Name: "Ana", Rank: model.RankR5}
		bo := model.Ref{ID: "bo", Name: "Bo", Rank: model.RankR4}
		require.NoError(t, s.AddRecommendation(ctx, model.RecommendationRecord{ID: "r3", MemberID: "bo", RecommenderID: "cy", CreatedAt: day(t, "2024-07-20")}))
		_, err := s.CommitWeek(ctx, monday, []model.Assignment{{Date: monday, Conductor: &ana, Backup: &bo}})
		require.NoError(t, err)

		consumed, err := s.RecordAttendance(ctx, monday, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"r3"}, consumed.RecommendationIDs)

		consumed, err = s.RecordAttendance(ctx, monday, false)
		require.NoError(t, err)
		assert.True(t, consumed.Empty())

		consumed, err = s.RecordAttendance(ctx, monday, true)
		require.NoError(t, err)
		assert.Empty(t, consumed.RecommendationIDs)
		assert.Equal(t, []string{"r3"}, consumed.RestoredRecommendationIDs)

		snap, err := s.Snapshot(ctx)
		require.NoError(t, err)
		assert.False(t, findRecommendation(t, snap, "r3").Expired)
		assert.True(t, findRecommendation(t, snap, "r1").Expired, "the earlier no-show is untouched")
	})
}

func findAward(t *testing.T, snap model.Snapshot, id string) model.AwardRecord {
	t.Helper()
	for _, a := range snap.Awards {
		if a.ID == id {
			return a
		}
	}
	require.Failf(t, "award not found", "id %s", id)
	return model.AwardRecord{}
}

func findRecommendation(t *testing.T, snap model.Snapshot, id string) model.RecommendationRecord {
	t.Helper()
	for _, r := range snap.Recommendations {
		if r.ID == id {
			return r
		}
	}
	require.Failf(t, "recommendation not found", "id %s", id)
	return model.RecommendationRecord{}
}

func TestMemoryStore(t *testing.T) {
	s := repository.NewMemoryStore(repository.WithMembers(seedMembers()...))
	exerciseStore(t, s)
	require.NoError(t, s.Close())
}

func TestInstrumentedStore(t *testing.T) {
	exerciseStore(t, repository.Instrument(repository.NewMemoryStore(repository.WithMembers(seedMembers()...))))
}

func TestMemoryStoreSnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	s := repository.NewMemoryStore(repository.WithMembers(seedMembers()...))
	require.NoError(t, s.AddAward(ctx, model.AwardRecord{ID: "a", MemberID: "ana", Placement: 1, WeekDate: day(t, "2024-06-03")}))

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	snap.Awards[0].Expired = true

	again, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.False(t, again.Awards[0].Expired)
}

func TestWithDefaultSettings(t *testing.T) {
	custom := model.DefaultScoringSettings()
	custom.Version = 0
	custom.R4R5RankBoost = 9
	s := repository.NewMemoryStore(repository.WithDefaultSettings(custom))
	got, err := s.Settings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
	assert.Equal(t, 9, got.R4R5RankBoost)
}
