package roster_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/trainboard/internal/domain/model"
	"github.com/okian/trainboard/internal/roster"
)

const sample = `
date: 2024-06-10
settings:
  award_first_points: 4
members:
  - {id: m-ana, name: Ana, rank: R5}
  - {id: m-bo, name: Bo, rank: r2, eligible: false}
  - {id: m-cy, name: Cy, rank: R4}
awards:
  - {member_id: m-ana, placement: 1, award_type: VS, week_date: 2024-06-03}
recommendations:
  - {id: r-1, member_id: m-cy, recommender_id: m-ana, created_at: 2024-06-05}
history:
  - {member_id: m-cy, date: 2024-05-01, role: conductor, showed_up: true}
assignments:
  - {date: 2024-06-03, conductor: m-ana, backup: m-cy, showed_up: false}
`

func TestDecode(t *testing.T) {
	r, err := roster.Decode(strings.NewReader(sample))
	require.NoError(t, err)

	snap := r.Snapshot
	assert.Equal(t, "2024-06-10", model.FormatDate(r.Date))
	assert.Equal(t, 4, snap.Settings.AwardFirstPoints)
	assert.Equal(t, 2, snap.Settings.AwardSecondPoints, "unset settings keep defaults")

	require.Len(t, snap.Members, 3)
	assert.True(t, snap.Members[0].Eligible)
	assert.Equal(t, model.RankR2, snap.Members[1].Rank)
	assert.False(t, snap.Members[1].Eligible)

	require.Len(t, snap.Awards, 1)
	assert.Equal(t, "award-1", snap.Awards[0].ID)
	assert.Equal(t, "r-1", snap.Recommendations[0].ID)

	require.Len(t, snap.Assignments, 1)
	assert.Equal(t, "Ana", snap.Assignments[0].Conductor.Name)
	assert.Equal(t, "m-cy", snap.Assignments[0].Backup.ID)

	require.Len(t, snap.History, 3)
	assert.Equal(t, model.RoleConductor, snap.History[1].Role)
	assert.Equal(t, "m-ana", snap.History[1].MemberID)
	assert.True(t, snap.History[2].Served(), "backup for a no-show served")
}

func TestDecodeJSON(t *testing.T) {
	in := `{"members":[{"id":"a","name":"A","rank":"R1"}],"awards":[{"member_id":"a","placement":2,"week_date":"2024-01-01"}]}`
	r, err := roster.Decode(strings.NewReader(in))
	require.NoError(t, err)
	assert.True(t, r.Date.IsZero())
	assert.Len(t, r.Snapshot.Awards, 1)
}

func TestDecodeErrors(t *testing.T) {
	cases := map[string]string{
		"bad yaml":        "members: [",
		"bad rank":        "members: [{id: a, name: A, rank: R7}]",
		"missing name":    "members: [{id: a, rank: R1}]",
		"bad placement":   "members: [{id: a, name: A, rank: R1}]\nawards: [{member_id: a, placement: 4, week_date: 2024-01-01}]",
		"unknown member":  "members: [{id: a, name: A, rank: R1}]\nrecommendations: [{member_id: z, created_at: 2024-01-01}]",
		"bad date":        "members: [{id: a, name: A, rank: R1}]\nhistory: [{member_id: a, date: 01/02/2024, role: conductor}]",
		"bad role":        "members: [{id: a, name: A, rank: R1}]\nhistory: [{member_id: a, date: 2024-01-02, role: driver}]",
		"duplicate":       "members: [{id: a, name: A, rank: R1}, {id: a, name: B, rank: R1}]",
		"negative points": "settings: {award_third_points: -1}",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := roster.Decode(strings.NewReader(in))
			assert.ErrorIs(t, err, roster.ErrInvalidRoster)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	r, err := roster.Load(path)
	require.NoError(t, err)
	assert.Len(t, r.Snapshot.Members, 3)

	_, err = roster.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEncodeYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, roster.EncodeYAML(&buf, map[string]int{"score": 25}))
	assert.Equal(t, "score: 25\n", buf.String())
}
