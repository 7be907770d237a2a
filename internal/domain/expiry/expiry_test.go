package expiry_test

import (
	"testing"
	"time"

	"github.com/okian/trainboard/internal/domain/expiry"
	"github.com/okian/trainboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func day(s string) time.Time {
	t, _ := model.ParseDate(s)
	return t
}

func TestConsume(t *testing.T) {
	Convey("Given stacked awards and recommendations", t, func() {
		awards := []model.AwardRecord{
			{ID: "a1", MemberID: "m", WeekDate: day("2024-06-03")},
			{ID: "a2", MemberID: "m", WeekDate: day("2024-06-10")},
			{ID: "a3", MemberID: "m", WeekDate: day("2024-06-17")},
			{ID: "a4", MemberID: "other", WeekDate: day("2024-06-03")},
			{ID: "a5", MemberID: "m", WeekDate: day("2024-05-27"), Expired: true},
		}
		recs := []model.RecommendationRecord{
			{ID: "r1", MemberID: "m", CreatedAt: day("2024-06-10")},
			{ID: "r2", MemberID: "m", CreatedAt: day("2024-06-11")},
		}

		Convey("When the member serves on 2024-06-10", func() {
			got := expiry.Consume(awards, recs, "m", day("2024-06-10"))

			Convey("Then records up to and including the duty date expire", func() {
				So(got.AwardIDs, ShouldResemble, []string{"a1", "a2"})
				So(got.RecommendationIDs, ShouldResemble, []string{"r1"})
				So(awards[0].Expired, ShouldBeTrue)
				So(awards[1].Expired, ShouldBeTrue)
				So(awards[2].Expired, ShouldBeFalse)
				So(awards[3].Expired, ShouldBeFalse)
				So(recs[1].Expired, ShouldBeFalse)
				So(awards[0].ExpiredOn, ShouldNotBeNil)
				So(awards[0].ExpiredOn.Equal(day("2024-06-10")), ShouldBeTrue)
				So(awards[4].ExpiredOn, ShouldBeNil)
			})

			Convey("Then consuming again changes nothing", func() {
				again := expiry.Consume(awards, recs, "m", day("2024-06-10"))
				So(again.Empty(), ShouldBeTrue)
			})
		})
	})
}

func TestConsumers(t *testing.T) {
	Convey("Given an assignment", t, func() {
		c := model.Ref{ID: "c"}
		b := model.Ref{ID: "b"}
		a := model.Assignment{Conductor: &c, Backup: &b}
		So(expiry.Consumers(a), ShouldResemble, []string{"c"})

		a.ShowedUp = model.Bool(true)
		So(expiry.Consumers(a), ShouldResemble, []string{"c"})

		a.ShowedUp = model.Bool(false)
		So(expiry.Consumers(a), ShouldResemble, []string{"c", "b"})
	})
}

func TestRestore(t *testing.T) {
	Convey("Given records consumed by two duties", t, func() {
		awards := []model.AwardRecord{
			{ID: "a1", MemberID: "m", WeekDate: day("2024-06-03")},
			{ID: "a2", MemberID: "n", WeekDate: day("2024-06-03")},
			{ID: "a3", MemberID: "m", WeekDate: day("2024-05-27"), Expired: true},
		}
		recs := []model.RecommendationRecord{
			{ID: "r1", MemberID: "n", CreatedAt: day("2024-06-04")},
		}
		expiry.Consume(awards, recs, "m", day("2024-06-10"))
		expiry.Consume(awards, recs, "n", day("2024-06-11"))

		Convey("When restoring one member's duty day", func() {
			got, members := expiry.Restore(awards, recs, "n", day("2024-06-11"), day("2024-06-11"))

			Convey("Then only that member's records come back", func() {
				So(got.AwardIDs, ShouldResemble, []string{"a2"})
				So(got.RecommendationIDs, ShouldResemble, []string{"r1"})
				So(members, ShouldResemble, []string{"n"})
				So(awards[0].Expired, ShouldBeTrue)
				So(awards[1].Expired, ShouldBeFalse)
				So(awards[1].ExpiredOn, ShouldBeNil)
			})
		})

		Convey("When restoring a whole week for every member", func() {
			got, members := expiry.Restore(awards, recs, "", day("2024-06-10"), day("2024-06-16"))

			Convey("Then records expired outside the schedule stay expired", func() {
				So(got.AwardIDs, ShouldResemble, []string{"a1", "a2"})
				So(members, ShouldResemble, []string{"m", "n"})
				So(awards[2].Expired, ShouldBeTrue)
			})
		})
	})
}

func TestConsumeServed(t *testing.T) {
	Convey("Given a member with two served duties out of order", t, func() {
		awards := []model.AwardRecord{
			{ID: "a1", MemberID: "m", WeekDate: day("2024-06-03")},
			{ID: "a2", MemberID: "m", WeekDate: day("2024-06-12")},
		}
		history := []model.ConductorHistoryEntry{
			{MemberID: "m", Date: day("2024-06-17"), Role: model.RoleConductor},
			{MemberID: "m", Date: day("2024-06-10"), Role: model.RoleBackup, ShowedUp: model.Bool(false)},
			{MemberID: "m", Date: day("2024-06-24"), Role: model.RoleBackup, ShowedUp: model.Bool(true)},
			{MemberID: "x", Date: day("2024-06-05"), Role: model.RoleConductor},
		}

		got := expiry.ConsumeServed(awards, nil, history, "m")

		Convey("Then each record falls to the earliest duty on or after it", func() {
			So(got.AwardIDs, ShouldResemble, []string{"a1", "a2"})
			So(awards[0].ExpiredOn.Equal(day("2024-06-10")), ShouldBeTrue)
			So(awards[1].ExpiredOn.Equal(day("2024-06-17")), ShouldBeTrue)
		})
	})
}

func TestSettle(t *testing.T) {
	Convey("Given records restored and consumed by one transition", t, func() {
		restored := expiry.Consumed{AwardIDs: []string{"a2", "a1"}, RecommendationIDs: []string{"r1"}}
		consumed := expiry.Consumed{AwardIDs: []string{"a1", "a3"}}

		got := expiry.Settle(restored, consumed)

		Convey("Then records in both lists are left out", func() {
			So(got.AwardIDs, ShouldResemble, []string{"a3"})
			So(got.RecommendationIDs, ShouldBeEmpty)
			So(got.RestoredAwardIDs, ShouldResemble, []string{"a2"})
			So(got.RestoredRecommendationIDs, ShouldResemble, []string{"r1"})
			So(got.Empty(), ShouldBeFalse)
		})

		Convey("Then a transition that hands every record back to itself is empty", func() {
			So(expiry.Settle(restored, restored).Empty(), ShouldBeTrue)
		})
	})
}
