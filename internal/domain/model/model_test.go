package model_test

import (
	"testing"
	"time"

	"github.com/okian/trainboard/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestDates(t *testing.T) {
	convey.Convey("Given calendar day helpers", t, func() {
		convey.Convey("When parsing a valid day", func() {
			d, err := model.ParseDate("2024-06-12")
			convey.So(err, convey.ShouldBeNil)
			convey.So(d.Location(), convey.ShouldEqual, time.UTC)
			convey.So(model.FormatDate(d), convey.ShouldEqual, "2024-06-12")
		})

		convey.Convey("When parsing garbage", func() {
			_, err := model.ParseDate("12/06/2024")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When finding the Monday of a week", func() {
			wed, _ := model.ParseDate("2024-06-12")
			sun, _ := model.ParseDate("2024-06-16")
			mon, _ := model.ParseDate("2024-06-10")
			convey.So(model.MondayOf(wed), convey.ShouldEqual, mon)
			convey.So(model.MondayOf(sun), convey.ShouldEqual, mon)
			convey.So(model.MondayOf(mon), convey.ShouldEqual, mon)
		})

		convey.Convey("When counting days between", func() {
			a, _ := model.ParseDate("2024-02-27")
			b, _ := model.ParseDate("2024-03-02")
			convey.So(model.DaysBetween(a, b), convey.ShouldEqual, 4)
			convey.So(model.DaysBetween(b, a), convey.ShouldEqual, -4)
			convey.So(model.DaysBetween(a, a.Add(23*time.Hour)), convey.ShouldEqual, 0)
		})
	})
}

func TestRanks(t *testing.T) {
	convey.Convey("Given rank tiers", t, func() {
		r, err := model.ParseRank("r4")
		convey.So(err, convey.ShouldBeNil)
		convey.So(r, convey.ShouldEqual, model.RankR4)
		convey.So(r.IsLeadership(), convey.ShouldBeTrue)
		convey.So(model.RankR3.IsLeadership(), convey.ShouldBeFalse)

		_, err = model.ParseRank("R6")
		convey.So(err, convey.ShouldNotBeNil)

		convey.So(model.Member{Rank: model.RankR5, Eligible: false}.CanBackup(), convey.ShouldBeFalse)
		convey.So(model.Member{Rank: model.RankR5, Eligible: true}.CanBackup(), convey.ShouldBeTrue)
	})
}

func TestHistoryServed(t *testing.T) {
	convey.Convey("Given duty history entries", t, func() {
		convey.So(model.ConductorHistoryEntry{Role: model.RoleConductor}.Served(), convey.ShouldBeTrue)
		convey.So(model.ConductorHistoryEntry{Role: model.RoleBackup}.Served(), convey.ShouldBeFalse)
		convey.So(model.ConductorHistoryEntry{Role: model.RoleBackup, ShowedUp: model.Bool(true)}.Served(), convey.ShouldBeFalse)
		convey.So(model.ConductorHistoryEntry{Role: model.RoleBackup, ShowedUp: model.Bool(false)}.Served(), convey.ShouldBeTrue)
	})
}

func TestSnapshotPerMember(t *testing.T) {
	convey.Convey("Given a snapshot", t, func() {
		s := model.Snapshot{
			Members:         []model.Member{{ID: "a"}, {ID: "b"}},
			Awards:          []model.AwardRecord{{MemberID: "a"}, {MemberID: "a"}},
			Recommendations: []model.RecommendationRecord{{MemberID: "b"}},
			History:         []model.ConductorHistoryEntry{{MemberID: "a"}},
		}
		per := s.PerMember()
		convey.So(per["a"].Awards, convey.ShouldHaveLength, 2)
		convey.So(per["a"].History, convey.ShouldHaveLength, 1)
		convey.So(per["b"].Recommendations, convey.ShouldHaveLength, 1)
		convey.So(s.MemberByID(), convey.ShouldContainKey, "b")
	})
}
