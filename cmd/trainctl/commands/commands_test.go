package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/okian/trainboard/internal/adapters/http/api"
	"github.com/okian/trainboard/internal/adapters/repository"
	service "github.com/okian/trainboard/internal/app"
	"github.com/okian/trainboard/internal/domain/model"
)

const alliance = `
date: 2024-06-12
members:
  - {id: m-ana, name: Ana, rank: R5}
  - {id: m-bo, name: Bo, rank: R4}
  - {id: m-cy, name: Cy, rank: R3}
  - {id: m-di, name: Di, rank: R1}
  - {id: m-ed, name: Ed, rank: R2, eligible: false}
awards:
  - {member_id: m-cy, placement: 1, award_type: VS, week_date: 2024-06-03}
recommendations:
  - {member_id: m-di, recommender_id: m-ana, created_at: 2024-06-05}
  - {member_id: m-di, recommender_id: m-bo, created_at: 2024-06-06}
`

func writeRoster(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "alliance.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRankCmd(t *testing.T) {
	path := writeRoster(t, alliance)

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, "rank", path, "-o", "json")
		require.NoError(t, err)

		var report rankReport
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		assert.Equal(t, "2024-06-12", report.Date)
		require.Len(t, report.Rankings, 4, "ineligible members are left out")

		names := []string{}
		for _, row := range report.Rankings {
			names = append(names, row.Name)
		}
		assert.Equal(t, []string{"Di", "Ana", "Bo", "Cy"}, names)
		assert.Equal(t, 17, report.Rankings[0].Total)
		assert.Equal(t, 12, report.Rankings[0].RecommendationPoints)
		assert.Equal(t, 10, report.Rankings[1].Total)
		assert.Equal(t, 8, report.Rankings[3].Total)
		assert.Equal(t, 3, report.Rankings[3].AwardPoints)
	})

	t.Run("yaml with top", func(t *testing.T) {
		out, err := execute(t, "rank", path, "-o", "yaml", "--top", "2")
		require.NoError(t, err)

		var report rankReport
		require.NoError(t, yaml.Unmarshal([]byte(out), &report))
		require.Len(t, report.Rankings, 2)
		assert.Equal(t, "m-di", report.Rankings[0].ID)
		assert.Equal(t, 1, report.Rankings[0].Position)
	})

	t.Run("date before the records", func(t *testing.T) {
		out, err := execute(t, "rank", path, "-o", "json", "--date", "2024-06-01")
		require.NoError(t, err)

		var report rankReport
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		assert.Equal(t, "Ana", report.Rankings[0].Name)
		assert.Equal(t, 10, report.Rankings[0].Total)
	})

	t.Run("table", func(t *testing.T) {
		out, err := execute(t, "rank", path)
		require.NoError(t, err)
		assert.Contains(t, out, "Leaderboard 2024-06-12")
		assert.Contains(t, out, "TOTAL")
		assert.Contains(t, out, "Di")
	})

	t.Run("errors", func(t *testing.T) {
		_, err := execute(t, "rank", path, "-o", "xml")
		assert.ErrorContains(t, err, "unknown output format")

		_, err = execute(t, "rank", path, "--date", "June 1")
		assert.Error(t, err)

		_, err = execute(t, "rank", filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)

		_, err = execute(t, "rank")
		assert.Error(t, err)
	})
}

func TestScheduleCmd(t *testing.T) {
	path := writeRoster(t, alliance)

	t.Run("interleaved", func(t *testing.T) {
		out, err := execute(t, "schedule", path, "-o", "json", "--message", "--reminders")
		require.NoError(t, err)

		var report scheduleReport
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		assert.Equal(t, "2024-06-10", report.WeekStart)
		assert.False(t, report.Complete)
		require.Len(t, report.Days, 7)

		assert.Equal(t, "Di", report.Days[0].Conductor)
		assert.Equal(t, "Ana", report.Days[0].Backup)
		assert.Equal(t, "Bo", report.Days[1].Conductor)
		assert.Equal(t, "", report.Days[1].Backup)
		assert.Equal(t, "backup", report.Days[1].Missing)
		assert.Equal(t, "Cy", report.Days[2].Conductor)
		assert.Equal(t, "conductor,backup", report.Days[3].Missing)

		assert.Contains(t, report.Message, "Monday: Di (Backup: Ana)")
		assert.Len(t, report.Reminders, 3)
	})

	t.Run("conductors first", func(t *testing.T) {
		out, err := execute(t, "schedule", path, "-o", "json", "--conductors-first", "--start", "2024-06-13")
		require.NoError(t, err)

		var report scheduleReport
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		assert.Equal(t, "2024-06-10", report.WeekStart)
		got := []string{}
		for _, d := range report.Days[:4] {
			got = append(got, d.Conductor)
		}
		assert.Equal(t, []string{"Di", "Ana", "Bo", "Cy"}, got)
		for _, d := range report.Days {
			assert.Empty(t, d.Backup)
		}
	})

	t.Run("table", func(t *testing.T) {
		out, err := execute(t, "schedule", path)
		require.NoError(t, err)
		assert.Contains(t, out, "Week of 2024-06-10")
		assert.Contains(t, out, "partially filled")
	})
}

func TestCheckCmd(t *testing.T) {
	good := writeRoster(t, alliance)
	out, err := execute(t, "check", good)
	require.NoError(t, err)
	assert.Contains(t, out, "ok (5 members, 1 awards, 2 recommendations, 0 assignments)")

	bad := writeRoster(t, "members:\n  - {id: m-x, name: X, rank: R9}\n")
	_, err = execute(t, "check", bad)
	assert.Error(t, err)
}

func TestLoadCmd(t *testing.T) {
	store := repository.NewMemoryStore(repository.WithMembers(
		model.Member{ID: "m-ana", Name: "Ana", Rank: model.RankR5, Eligible: true},
		model.Member{ID: "m-bo", Name: "Bo", Rank: model.RankR1, Eligible: true},
	))
	svc := service.New(store, service.WithWorkerCount(1))
	ctx := context.Background()
	require.NoError(t, svc.Start(ctx))
	r := mux.NewRouter()
	api.NewServer(svc).Register(ctx, r)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		_ = svc.Stop(ctx)
	})

	out, err := execute(t, "load", "--url", srv.URL, "--events", "10", "--workers", "2", "--drain-timeout", "10s")
	require.NoError(t, err)
	assert.Contains(t, out, "submitted 10 events (10 accepted, 0 duplicate, 0 failed) for 2 members")
	assert.Contains(t, out, "leaderboard verified: 2 entries, 2 member scores")

	_, err = execute(t, "load", "--url", srv.URL, "--events", "0")
	assert.ErrorContains(t, err, "--events must be positive")
}
