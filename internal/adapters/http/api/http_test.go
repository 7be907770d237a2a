package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/okian/trainboard/internal/adapters/http/api"
	"github.com/okian/trainboard/internal/adapters/repository"
	service "github.com/okian/trainboard/internal/app"
	"github.com/okian/trainboard/internal/domain/model"
	"github.com/okian/trainboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func newRouter(t *testing.T) (*mux.Router, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore(repository.WithMembers(
		model.Member{ID: "m-ana", Name: "Ana", Rank: model.RankR5, Eligible: true},
		model.Member{ID: "m-bo", Name: "Bo", Rank: model.RankR4, Eligible: true},
		model.Member{ID: "m-cy", Name: "Cy", Rank: model.RankR2, Eligible: true},
	))
	clock := func() time.Time { return time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC) }
	svc := service.New(store, service.WithClock(clock), service.WithWorkerCount(1), service.WithLogger(logger.Get()))
	ctx := context.Background()
	if err := svc.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = svc.Stop(ctx) })

	r := mux.NewRouter()
	r.Use(api.LoggingMiddleware(logger.Get()))
	api.NewServer(svc).Register(ctx, r)
	return r, store
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(w *httptest.ResponseRecorder, v any) error {
	return json.NewDecoder(w.Body).Decode(v)
}

func TestRankingsEndpoints(t *testing.T) {
	Convey("Given the API router", t, func() {
		r, _ := newRouter(t)

		Convey("When requesting the leaderboard", func() {
			w := do(r, http.MethodGet, "/api/rankings?date=2024-06-10", "")

			Convey("Then it lists every eligible member with settings", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var board service.Leaderboard
				So(decodeBody(w, &board), ShouldBeNil)
				So(board.Rankings, ShouldHaveLength, 3)
				So(board.Rankings[0].Member.Name, ShouldEqual, "Ana")
				So(board.Rankings[0].Position, ShouldEqual, 1)
				So(board.Settings.AwardFirstPoints, ShouldEqual, 3)
			})
		})

		Convey("When the date is malformed", func() {
			w := do(r, http.MethodGet, "/api/rankings?date=10-06-2024", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			var e map[string]string
			So(decodeBody(w, &e), ShouldBeNil)
			So(e["code"], ShouldEqual, "bad_request")
		})

		Convey("When requesting one member", func() {
			w := do(r, http.MethodGet, "/api/rankings/m-cy", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var entry model.RankingEntry
			So(decodeBody(w, &entry), ShouldBeNil)
			So(entry.TotalScore, ShouldEqual, 5)
			So(entry.Position, ShouldEqual, 3)

			missing := do(r, http.MethodGet, "/api/rankings/m-zz", "")
			So(missing.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestMemberAndSettingsEndpoints(t *testing.T) {
	Convey("Given the API router", t, func() {
		r, _ := newRouter(t)

		Convey("When upserting a member", func() {
			w := do(r, http.MethodPut, "/api/members/m-di", `{"name":"Di","rank":"r4"}`)
			So(w.Code, ShouldEqual, http.StatusOK)

			list := do(r, http.MethodGet, "/api/members", "")
			var members []model.Member
			So(decodeBody(list, &members), ShouldBeNil)
			So(members, ShouldHaveLength, 4)

			stats := do(r, http.MethodGet, "/api/members/stats", "")
			So(stats.Code, ShouldEqual, http.StatusOK)
		})

		Convey("When the member body is invalid", func() {
			So(do(r, http.MethodPut, "/api/members/m-di", `{"rank":"R4"}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(r, http.MethodPut, "/api/members/m-di", `{"name":"Di","rank":"R9"}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When updating settings", func() {
			body := `{"version":1,"award_first_points":5,"award_second_points":2,"award_third_points":1,
				"r4r5_rank_boost":5,"first_time_conductor_boost":5,"recent_conductor_penalty_days":30,
				"above_average_conductor_penalty":10}`
			w := do(r, http.MethodPut, "/api/settings", body)

			Convey("Then the version advances", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var s model.ScoringSettings
				So(decodeBody(w, &s), ShouldBeNil)
				So(s.Version, ShouldEqual, 2)
				So(s.AwardFirstPoints, ShouldEqual, 5)
				So(s.DailyMessageTemplate, ShouldEqual, model.DefaultDailyMessageTemplate)
			})

			Convey("Then replaying the old version conflicts", func() {
				So(do(r, http.MethodPut, "/api/settings", body).Code, ShouldEqual, http.StatusConflict)
			})
		})

		Convey("When settings are negative", func() {
			w := do(r, http.MethodPut, "/api/settings", `{"award_first_points":-3}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestScheduleEndpoints(t *testing.T) {
	Convey("Given the API router", t, func() {
		r, _ := newRouter(t)

		Convey("When auto-scheduling with commit", func() {
			w := do(r, http.MethodPost, "/api/train-schedules/auto-schedule", `{"start_date":"2024-06-12","commit":true}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			var res service.AutoScheduleResult
			So(decodeBody(w, &res), ShouldBeNil)

			Convey("Then the plan is stored and renderable", func() {
				So(res.Committed, ShouldBeTrue)
				So(res.Assignments, ShouldHaveLength, 7)
				So(res.Assignments[0].Conductor.Name, ShouldEqual, "Ana")
				So(res.Assignments[0].Backup.Name, ShouldEqual, "Bo")
				So(res.UnfilledDays, ShouldNotBeEmpty)

				week := do(r, http.MethodGet, "/api/train-schedules?start=2024-06-10", "")
				So(week.Code, ShouldEqual, http.StatusOK)
				So(week.Body.String(), ShouldContainSubstring, `"week_start":"2024-06-10"`)

				daily := do(r, http.MethodGet, "/api/train-schedules/daily-message?date=2024-06-10", "")
				So(daily.Code, ShouldEqual, http.StatusOK)
				So(daily.Body.String(), ShouldContainSubstring, "Conductor: Ana (R5)")

				weekly := do(r, http.MethodGet, "/api/train-schedules/weekly-message?start=2024-06-10", "")
				So(weekly.Code, ShouldEqual, http.StatusOK)

				reminders := do(r, http.MethodGet, "/api/train-schedules/conductor-messages?start=2024-06-10", "")
				So(reminders.Code, ShouldEqual, http.StatusOK)
				So(reminders.Body.String(), ShouldContainSubstring, "Hi Ana!")
			})

			Convey("Then attendance locks the week", func() {
				att := do(r, http.MethodPut, "/api/train-schedules/2024-06-10/attendance", `{"showed_up":false}`)
				So(att.Code, ShouldEqual, http.StatusOK)

				again := do(r, http.MethodPost, "/api/train-schedules/auto-schedule", `{"start_date":"2024-06-10","commit":true}`)
				So(again.Code, ShouldEqual, http.StatusConflict)
			})
		})

		Convey("When existing assignments occupy a day", func() {
			body := `{"start_date":"2024-06-10","existing_assignments":[{"date":"2024-06-10","conductor_id":"m-ana"}]}`
			w := do(r, http.MethodPost, "/api/train-schedules/auto-schedule", body)
			So(w.Code, ShouldEqual, http.StatusOK)
			var res service.AutoScheduleResult
			So(decodeBody(w, &res), ShouldBeNil)
			So(res.Committed, ShouldBeFalse)
			So(res.Assignments[0].Conductor.Name, ShouldEqual, "Bo")
		})

		Convey("When the request is malformed", func() {
			So(do(r, http.MethodPost, "/api/train-schedules/auto-schedule", `{"commit":true}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(r, http.MethodPut, "/api/train-schedules/2024-07-01/attendance", `{}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(r, http.MethodPut, "/api/train-schedules/2024-07-01/attendance", `{"showed_up":true}`).Code, ShouldEqual, http.StatusNotFound)
			So(do(r, http.MethodGet, "/api/train-schedules/daily-message?date=2024-07-01", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestEventEndpoints(t *testing.T) {
	Convey("Given the API router", t, func() {
		r, store := newRouter(t)

		Convey("When posting an award event", func() {
			body := `{"event_id":"evt-1","type":"award","award":{"member_id":"m-cy","award_type":"VS","placement":1,"week_date":"2024-06-03"}}`
			w := do(r, http.MethodPost, "/api/events", body)

			Convey("Then it is accepted and applied", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(w.Body.String(), ShouldContainSubstring, `"event_id":"evt-1"`)

				applied := false
				for i := 0; i < 200 && !applied; i++ {
					snap, _ := store.Snapshot(context.Background())
					applied = len(snap.Awards) == 1
					time.Sleep(5 * time.Millisecond)
				}
				So(applied, ShouldBeTrue)

				So(do(r, http.MethodDelete, "/api/awards/evt-1", "").Code, ShouldEqual, http.StatusNoContent)
				So(do(r, http.MethodDelete, "/api/awards/evt-1", "").Code, ShouldEqual, http.StatusNotFound)
			})

			Convey("Then a replay is acknowledged as duplicate", func() {
				dup := do(r, http.MethodPost, "/api/events", body)
				So(dup.Code, ShouldEqual, http.StatusOK)
				So(dup.Body.String(), ShouldContainSubstring, `"duplicate":true`)
			})
		})

		Convey("When the event is malformed", func() {
			cases := []string{
				`{"type":"award"}`,
				`{"type":"promotion"}`,
				`{"type":"award","award":{"member_id":"m-cy","placement":4,"week_date":"2024-06-03"}}`,
				`{"type":"attendance","attendance":{"date":"2024-06-10"}}`,
				`{"type":"recommendation","recommendation":{"member_id":"m-cy"},"ts":"yesterday"}`,
				`not json`,
			}
			for _, body := range cases {
				So(do(r, http.MethodPost, "/api/events", body).Code, ShouldEqual, http.StatusBadRequest)
			}
		})
	})
}

func TestOperationalEndpoints(t *testing.T) {
	Convey("Given the API router", t, func() {
		r, _ := newRouter(t)

		Convey("Then /healthz serves Prometheus metrics", func() {
			do(r, http.MethodGet, "/api/members", "")
			w := do(r, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "trainboard_conductor_http_requests_total")
		})

		Convey("Then /stats reports the pipeline", func() {
			w := do(r, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var stats map[string]any
			So(decodeBody(w, &stats), ShouldBeNil)
			So(stats["started"], ShouldEqual, true)
		})

		Convey("Then unknown methods are rejected", func() {
			So(do(r, http.MethodDelete, "/api/rankings", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}
