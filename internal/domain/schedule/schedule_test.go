package schedule_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/okian/trainboard/internal/domain/model"
	"github.com/okian/trainboard/internal/domain/schedule"
	"github.com/okian/trainboard/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func day(s string) time.Time {
	t, _ := model.ParseDate(s)
	return t
}

// leaderboard builds n eligible members ranked in order; the first
// leaders members are R4, the rest R2.
func leaderboard(n, leaders int) ([]model.RankingEntry, []model.Member) {
	entries := make([]model.RankingEntry, n)
	members := make([]model.Member, n)
	for i := 0; i < n; i++ {
		rank := model.RankR2
		if i < leaders {
			rank = model.RankR4
		}
		m := model.Member{ID: fmt.Sprintf("m%02d", i), Name: fmt.Sprintf("Member %02d", i), Rank: rank, Eligible: true}
		members[i] = m
		entries[i] = model.RankingEntry{Position: i + 1, Member: m, TotalScore: 100 - i}
	}
	return entries, members
}

func TestAutoScheduleWeek(t *testing.T) {
	Convey("Given a Monday start date", t, func() {
		monday := day("2024-06-10")

		Convey("When the pool is large enough", func() {
			rankings, members := leaderboard(20, 10)
			pool := schedule.BackupPool(members)
			res, err := schedule.AutoScheduleWeek(rankings, monday, nil, pool)

			Convey("Then every day is filled with distinct members", func() {
				So(err, ShouldBeNil)
				So(res.Complete(), ShouldBeTrue)
				So(res.Err(), ShouldBeNil)
				So(res.Assignments, ShouldHaveLength, 7)
				seen := map[string]bool{}
				for i, a := range res.Assignments {
					So(a.Date, ShouldEqual, monday.AddDate(0, 0, i))
					So(a.Conductor, ShouldNotBeNil)
					So(a.Backup, ShouldNotBeNil)
					So(a.Backup.Rank.IsLeadership(), ShouldBeTrue)
					So(a.Conductor.ID, ShouldNotEqual, a.Backup.ID)
					for _, id := range a.Members() {
						So(seen[id], ShouldBeFalse)
						seen[id] = true
					}
				}
			})

			Convey("Then days alternate conductor and backup in ranking order", func() {
				So(res.Assignments[0].Conductor.ID, ShouldEqual, "m00")
				So(res.Assignments[0].Backup.ID, ShouldEqual, "m01")
				So(res.Assignments[1].Conductor.ID, ShouldEqual, "m02")
				So(*res.Assignments[0].ConductorScore, ShouldEqual, 100)
			})

			Convey("Then a second run with identical input is identical", func() {
				again, err := schedule.AutoScheduleWeek(rankings, monday, nil, pool)
				So(err, ShouldBeNil)
				So(again, ShouldResemble, res)
			})
		})

		Convey("When conductors are filled first", func() {
			rankings, members := leaderboard(10, 10)
			res, err := schedule.New(schedule.WithConductorsFirst()).AutoScheduleWeek(rankings, monday, nil, schedule.BackupPool(members))

			Convey("Then the top seven conduct and the rest back up", func() {
				So(err, ShouldBeNil)
				for i := 0; i < 7; i++ {
					So(res.Assignments[i].Conductor.ID, ShouldEqual, fmt.Sprintf("m%02d", i))
				}
				So(res.Assignments[0].Backup.ID, ShouldEqual, "m07")
				So(res.Assignments[2].Backup.ID, ShouldEqual, "m09")
				So(res.Assignments[3].Backup, ShouldBeNil)
				So(res.UnfilledDays, ShouldHaveLength, 4)
				So(res.UnfilledDays[0].Missing, ShouldResemble, []schedule.Slot{schedule.SlotBackup})
			})
		})

		Convey("When the pool is too small", func() {
			rankings, members := leaderboard(5, 2)
			res, err := schedule.AutoScheduleWeek(rankings, monday, nil, schedule.BackupPool(members))

			Convey("Then the partial assignment is returned with unfilled days", func() {
				So(err, ShouldBeNil)
				So(res.Assignments, ShouldHaveLength, 7)
				So(res.Complete(), ShouldBeFalse)
				So(errors.Is(res.Err(), schedule.ErrInsufficientPool), ShouldBeTrue)
				// m00 conducts with m01 backing up, then m02..m04 conduct alone.
				So(res.Assignments[0].Backup.ID, ShouldEqual, "m01")
				So(res.Assignments[1].Conductor.ID, ShouldEqual, "m02")
				So(res.Assignments[1].Backup, ShouldBeNil)
				So(res.Assignments[4].Conductor, ShouldBeNil)
				So(res.UnfilledDays, ShouldHaveLength, 6)
				last := res.UnfilledDays[len(res.UnfilledDays)-1]
				So(last.Date, ShouldEqual, day("2024-06-16"))
				So(last.Missing, ShouldResemble, []schedule.Slot{schedule.SlotConductor, schedule.SlotBackup})
			})
		})

		Convey("When members are scheduled externally", func() {
			rankings, members := leaderboard(20, 10)
			m00 := members[0].Ref()
			existing := []model.Assignment{{Date: monday, Conductor: &m00}}
			res, err := schedule.AutoScheduleWeek(rankings, monday, existing, schedule.BackupPool(members))

			Convey("Then they are skipped on that day only", func() {
				So(err, ShouldBeNil)
				So(res.Assignments[0].Conductor.ID, ShouldEqual, "m01")
				So(res.Assignments[1].Conductor.ID, ShouldEqual, "m00")
			})
		})

		Convey("When an ineligible member reaches the ranking", func() {
			rankings, members := leaderboard(3, 3)
			rankings[0].Member.Eligible = false
			res, err := schedule.AutoScheduleWeek(rankings, monday, nil, members[1:])
			So(err, ShouldBeNil)
			for _, a := range res.Assignments {
				for _, id := range a.Members() {
					So(id, ShouldNotEqual, "m00")
				}
			}
		})

		Convey("When the backup pool holds a non-leader", func() {
			rankings, members := leaderboard(3, 1)
			_, err := schedule.AutoScheduleWeek(rankings, monday, nil, members)
			So(errors.Is(err, scoring.ErrValidation), ShouldBeTrue)
			var ve *scoring.ValidationError
			So(errors.As(err, &ve), ShouldBeTrue)
			So(ve.MemberID, ShouldEqual, "m01")
		})

		Convey("When the start date is not a Monday", func() {
			rankings, members := leaderboard(3, 1)
			_, err := schedule.AutoScheduleWeek(rankings, day("2024-06-12"), nil, schedule.BackupPool(members))
			So(errors.Is(err, scoring.ErrValidation), ShouldBeTrue)
		})

		Convey("When the window is shortened", func() {
			days, err := schedule.New(schedule.WithDays(3)).Days(monday)
			So(err, ShouldBeNil)
			So(days, ShouldHaveLength, 3)
			So(days[2], ShouldEqual, day("2024-06-12"))
		})
	})
}
