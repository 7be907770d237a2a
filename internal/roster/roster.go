// Package roster reads alliance snapshots from YAML or JSON files, for
// offline ranking runs and for seeding a fresh store.
package roster

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/okian/trainboard/internal/adapters/repository"
	"github.com/okian/trainboard/internal/domain/model"
)

var validate = validator.New()

// File is the on-disk layout. JSON files decode too, being valid YAML.
type File struct {
	Date            string                `yaml:"date,omitempty"`
	Settings        model.ScoringSettings `yaml:"settings"`
	Members         []Member              `yaml:"members" validate:"dive"`
	Awards          []Award               `yaml:"awards,omitempty" validate:"dive"`
	Recommendations []Recommendation      `yaml:"recommendations,omitempty" validate:"dive"`
	History         []HistoryEntry        `yaml:"history,omitempty" validate:"dive"`
	Assignments     []Assignment          `yaml:"assignments,omitempty" validate:"dive"`
}

// Member is a member row. Eligible defaults to true.
type Member struct {
	ID       string `yaml:"id" validate:"required"`
	Name     string `yaml:"name" validate:"required"`
	Rank     string `yaml:"rank" validate:"required"`
	Eligible *bool  `yaml:"eligible,omitempty"`
}

type Award struct {
	ID        string `yaml:"id,omitempty"`
	MemberID  string `yaml:"member_id" validate:"required"`
	AwardType string `yaml:"award_type,omitempty"`
	Placement int    `yaml:"placement" validate:"min=1,max=3"`
	WeekDate  string `yaml:"week_date" validate:"required"`
	Expired   bool   `yaml:"expired,omitempty"`
}

type Recommendation struct {
	ID            string `yaml:"id,omitempty"`
	MemberID      string `yaml:"member_id" validate:"required"`
	RecommenderID string `yaml:"recommender_id,omitempty"`
	Notes         string `yaml:"notes,omitempty"`
	CreatedAt     string `yaml:"created_at" validate:"required"`
	Expired       bool   `yaml:"expired,omitempty"`
}

type HistoryEntry struct {
	MemberID string `yaml:"member_id" validate:"required"`
	Date     string `yaml:"date" validate:"required"`
	Role     string `yaml:"role" validate:"required,oneof=conductor backup"`
	ShowedUp *bool  `yaml:"showed_up,omitempty"`
}

// Assignment references members by id.
type Assignment struct {
	Date      string `yaml:"date" validate:"required"`
	Conductor string `yaml:"conductor,omitempty"`
	Backup    string `yaml:"backup,omitempty"`
	ShowedUp  *bool  `yaml:"showed_up,omitempty"`
}

// Roster is a decoded file. Snapshot.History holds the file's history
// followed by the duties implied by its assignments.
type Roster struct {
	// Date is the reference date named by the file, zero when absent.
	Date     time.Time
	Snapshot model.Snapshot
}

// Load reads and decodes the file at path.
func Load(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster %s: %w", path, err)
	}
	return Decode(bytes.NewReader(data))
}

// Decode reads a roster from r. Settings missing from the file keep their
// default values.
func Decode(r io.Reader) (*Roster, error) {
	f := File{Settings: model.DefaultScoringSettings()}
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoster, err)
	}
	if err := validate.Struct(f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoster, err)
	}
	return f.resolve()
}

func (f File) resolve() (*Roster, error) {
	out := &Roster{Snapshot: model.Snapshot{Settings: f.Settings}}
	var err error
	if f.Date != "" {
		if out.Date, err = model.ParseDate(f.Date); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRoster, err)
		}
	}

	byID := make(map[string]model.Member, len(f.Members))
	for _, m := range f.Members {
		rank, err := model.ParseRank(m.Rank)
		if err != nil {
			return nil, fmt.Errorf("%w: member %s: %v", ErrInvalidRoster, m.ID, err)
		}
		if _, dup := byID[m.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate member %s", ErrInvalidRoster, m.ID)
		}
		member := model.Member{ID: m.ID, Name: m.Name, Rank: rank, Eligible: m.Eligible == nil || *m.Eligible}
		byID[m.ID] = member
		out.Snapshot.Members = append(out.Snapshot.Members, member)
	}
	known := func(id string) error {
		if _, ok := byID[id]; !ok {
			return fmt.Errorf("%w: unknown member %q", ErrInvalidRoster, id)
		}
		return nil
	}

	for i, a := range f.Awards {
		if err := known(a.MemberID); err != nil {
			return nil, err
		}
		d, err := parseDate("awards", i, a.WeekDate)
		if err != nil {
			return nil, err
		}
		out.Snapshot.Awards = append(out.Snapshot.Awards, model.AwardRecord{
			ID: orIndex(a.ID, "award", i), MemberID: a.MemberID, AwardType: a.AwardType,
			Placement: a.Placement, WeekDate: d, Expired: a.Expired,
		})
	}
	for i, r := range f.Recommendations {
		if err := known(r.MemberID); err != nil {
			return nil, err
		}
		d, err := parseDate("recommendations", i, r.CreatedAt)
		if err != nil {
			return nil, err
		}
		out.Snapshot.Recommendations = append(out.Snapshot.Recommendations, model.RecommendationRecord{
			ID: orIndex(r.ID, "rec", i), MemberID: r.MemberID, RecommenderID: r.RecommenderID,
			Notes: r.Notes, CreatedAt: d, Expired: r.Expired,
		})
	}
	for i, h := range f.History {
		if err := known(h.MemberID); err != nil {
			return nil, err
		}
		d, err := parseDate("history", i, h.Date)
		if err != nil {
			return nil, err
		}
		out.Snapshot.History = append(out.Snapshot.History, model.ConductorHistoryEntry{
			MemberID: h.MemberID, Date: d, Role: model.Role(h.Role), ShowedUp: h.ShowedUp,
		})
	}
	for i, a := range f.Assignments {
		d, err := parseDate("assignments", i, a.Date)
		if err != nil {
			return nil, err
		}
		as := model.Assignment{Date: d, ShowedUp: a.ShowedUp}
		for _, slot := range []struct {
			id  string
			dst **model.Ref
		}{{a.Conductor, &as.Conductor}, {a.Backup, &as.Backup}} {
			if slot.id == "" {
				continue
			}
			if err := known(slot.id); err != nil {
				return nil, err
			}
			ref := byID[slot.id].Ref()
			*slot.dst = &ref
		}
		out.Snapshot.Assignments = append(out.Snapshot.Assignments, as)
	}
	out.Snapshot.History = append(out.Snapshot.History, repository.HistoryFromAssignments(out.Snapshot.Assignments)...)
	return out, nil
}

// EncodeYAML writes v as YAML.
func EncodeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func parseDate(section string, i int, s string) (time.Time, error) {
	d, err := model.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s[%d]: %v", ErrInvalidRoster, section, i, err)
	}
	return d, nil
}

func orIndex(id, prefix string, i int) string {
	if id != "" {
		return id
	}
	return fmt.Sprintf("%s-%d", prefix, i+1)
}
