package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/trainboard/internal/domain/expiry"
	"github.com/okian/trainboard/internal/domain/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Postgres error codes mapped to store errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// PostgresStore persists the alliance state in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
	opts storeOptions
}

// NewPostgresStore connects, applies pending migrations and seeds the
// settings row and members given as options.
func NewPostgresStore(ctx context.Context, connString string, opts ...Option) (*PostgresStore, error) {
	o := defaultStoreOptions()
	for _, opt := range opts {
		opt(&o)
	}
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &PostgresStore{pool: pool, opts: o}
	if err := s.RunMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if err := s.seed(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// RunMigrations applies embedded SQL files not yet recorded in
// schema_migrations, in lexical order.
func (s *PostgresStore) RunMigrations(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename   TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	rows, err := s.pool.Query(ctx, `SELECT filename FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("query applied migrations: %w", err)
	}
	applied, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("scan applied migrations: %w", err)
	}
	done := make(map[string]bool, len(applied))
	for _, f := range applied {
		done[f] = true
	}

	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") && !done[e.Name()] {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		sql, err := fs.ReadFile(migrationsFS, "migrations/"+name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(sql)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, name)
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}

func (s *PostgresStore) seed(ctx context.Context) error {
	st := s.opts.settings
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO settings (id, version, award_first_points, award_second_points, award_third_points,
			r4r5_rank_boost, first_time_conductor_boost, recent_conductor_penalty_days,
			above_average_conductor_penalty, schedule_message_template, daily_message_template)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`,
		st.Version, st.AwardFirstPoints, st.AwardSecondPoints, st.AwardThirdPoints,
		st.R4R5RankBoost, st.FirstTimeConductorBoost, st.RecentConductorPenaltyDays,
		st.AboveAverageConductorPenalty, st.ScheduleMessageTemplate, st.DailyMessageTemplate,
	); err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	for _, m := range s.opts.members {
		if _, err := s.pool.Exec(ctx, `
			INSERT INTO members (id, name, rank, eligible) VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO NOTHING`, m.ID, m.Name, string(m.Rank), m.Eligible); err != nil {
			return fmt.Errorf("seed member %s: %w", m.ID, err)
		}
	}
	return nil
}

func (s *PostgresStore) Snapshot(ctx context.Context) (model.Snapshot, error) {
	var snap model.Snapshot
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		var err error
		if snap.Members, err = queryMembers(ctx, tx); err != nil {
			return err
		}
		if snap.Settings, err = querySettings(ctx, tx); err != nil {
			return err
		}
		if snap.Awards, err = queryAwards(ctx, tx); err != nil {
			return err
		}
		if snap.Recommendations, err = queryRecommendations(ctx, tx); err != nil {
			return err
		}
		snap.Assignments, err = queryAssignments(ctx, tx, time.Time{}, time.Time{})
		return err
	})
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("snapshot: %w", err)
	}
	snap.History = HistoryFromAssignments(snap.Assignments)
	return snap, nil
}

func (s *PostgresStore) Members(ctx context.Context) ([]model.Member, error) {
	return queryMembers(ctx, s.pool)
}

func (s *PostgresStore) Member(ctx context.Context, id string) (model.Member, error) {
	var m model.Member
	var rank string
	err := s.pool.QueryRow(ctx, `SELECT id, name, rank, eligible FROM members WHERE id = $1`, id).
		Scan(&m.ID, &m.Name, &rank, &m.Eligible)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Member{}, fmt.Errorf("member %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Member{}, fmt.Errorf("member %s: %w", id, err)
	}
	m.Rank = model.Rank(rank)
	return m, nil
}

func (s *PostgresStore) UpsertMember(ctx context.Context, m model.Member) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO members (id, name, rank, eligible) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, rank = EXCLUDED.rank, eligible = EXCLUDED.eligible`,
		m.ID, m.Name, string(m.Rank), m.Eligible)
	if err != nil {
		return fmt.Errorf("upsert member %s: %w", m.ID, err)
	}
	return nil
}

func (s *PostgresStore) Settings(ctx context.Context) (model.ScoringSettings, error) {
	return querySettings(ctx, s.pool)
}

func (s *PostgresStore) UpdateSettings(ctx context.Context, next model.ScoringSettings, expectedVersion int) (model.ScoringSettings, error) {
	err := s.pool.QueryRow(ctx, `
		UPDATE settings SET
			version = version + 1,
			award_first_points = $2, award_second_points = $3, award_third_points = $4,
			r4r5_rank_boost = $5, first_time_conductor_boost = $6,
			recent_conductor_penalty_days = $7, above_average_conductor_penalty = $8,
			schedule_message_template = $9, daily_message_template = $10
		WHERE id = 1 AND ($1 = 0 OR version = $1)
		RETURNING version`,
		expectedVersion,
		next.AwardFirstPoints, next.AwardSecondPoints, next.AwardThirdPoints,
		next.R4R5RankBoost, next.FirstTimeConductorBoost,
		next.RecentConductorPenaltyDays, next.AboveAverageConductorPenalty,
		next.ScheduleMessageTemplate, next.DailyMessageTemplate,
	).Scan(&next.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ScoringSettings{}, fmt.Errorf("expected version %d: %w", expectedVersion, ErrVersionConflict)
	}
	if err != nil {
		return model.ScoringSettings{}, fmt.Errorf("update settings: %w", err)
	}
	return next, nil
}

func (s *PostgresStore) AddAward(ctx context.Context, a model.AwardRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO awards (id, member_id, award_type, placement, week_date, expired, expired_on)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.MemberID, a.AwardType, a.Placement, model.Day(a.WeekDate), a.Expired, dayPtr(a.ExpiredOn))
	return mapWriteErr("award "+a.ID, err)
}

func (s *PostgresStore) DeleteAward(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM awards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete award %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("award %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) AddRecommendation(ctx context.Context, r model.RecommendationRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO recommendations (id, member_id, recommender_id, notes, created_at, expired, expired_on)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.MemberID, r.RecommenderID, r.Notes, r.CreatedAt, r.Expired, dayPtr(r.ExpiredOn))
	return mapWriteErr("recommendation "+r.ID, err)
}

func (s *PostgresStore) Assignments(ctx context.Context, from, to time.Time) ([]model.Assignment, error) {
	return queryAssignments(ctx, s.pool, from, to)
}

func (s *PostgresStore) CommitWeek(ctx context.Context, weekStart time.Time, assignments []model.Assignment) (expiry.Consumed, error) {
	start, end := model.Day(weekStart), weekEnd(weekStart)
	if err := checkWeek(start, end, assignments); err != nil {
		return expiry.Consumed{}, err
	}

	var consumed expiry.Consumed
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var evaluated int
		if err := tx.QueryRow(ctx, `
			SELECT COUNT(*) FROM assignments
			WHERE date BETWEEN $1 AND $2 AND conductor_showed_up IS NOT NULL`, start, end).Scan(&evaluated); err != nil {
			return err
		}
		if evaluated > 0 {
			return ErrWeekEvaluated
		}
		restored, members, err := restore(ctx, tx, nil, start, end)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM assignments WHERE date BETWEEN $1 AND $2`, start, end); err != nil {
			return err
		}
		for _, a := range assignments {
			var conductorID, backupID *string
			if a.Conductor != nil {
				conductorID = &a.Conductor.ID
			}
			if a.Backup != nil {
				backupID = &a.Backup.ID
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO assignments (date, conductor_id, backup_id, conductor_score)
				VALUES ($1, $2, $3, $4)`, model.Day(a.Date), conductorID, backupID, a.ConductorScore); err != nil {
				return mapWriteErr("assignment "+model.FormatDate(a.Date), err)
			}
			a.ShowedUp = nil
			members = append(members, expiry.Consumers(a)...)
		}
		again, err := consumeServed(ctx, tx, members)
		if err != nil {
			return err
		}
		consumed = expiry.Settle(restored, again)
		return nil
	})
	if err != nil {
		return expiry.Consumed{}, fmt.Errorf("commit week %s: %w", model.FormatDate(start), err)
	}
	return consumed, nil
}

func (s *PostgresStore) RecordAttendance(ctx context.Context, date time.Time, showedUp bool) (expiry.Consumed, error) {
	day := model.Day(date)
	var consumed expiry.Consumed
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var backupID *string
		err := tx.QueryRow(ctx, `
			UPDATE assignments SET conductor_showed_up = $2 WHERE date = $1
			RETURNING backup_id`, day, showedUp).Scan(&backupID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if backupID == nil {
			return nil
		}
		restored, _, err := restore(ctx, tx, backupID, day, day)
		if err != nil {
			return err
		}
		again, err := consumeServed(ctx, tx, []string{*backupID})
		if err != nil {
			return err
		}
		consumed = expiry.Settle(restored, again)
		return nil
	})
	if err != nil {
		return expiry.Consumed{}, fmt.Errorf("attendance %s: %w", model.FormatDate(day), err)
	}
	return consumed, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func queryMembers(ctx context.Context, q querier) ([]model.Member, error) {
	rows, err := q.Query(ctx, `SELECT id, name, rank, eligible FROM members ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Member, error) {
		var m model.Member
		var rank string
		err := row.Scan(&m.ID, &m.Name, &rank, &m.Eligible)
		m.Rank = model.Rank(rank)
		return m, err
	})
}

func querySettings(ctx context.Context, q querier) (model.ScoringSettings, error) {
	var s model.ScoringSettings
	err := q.QueryRow(ctx, `
		SELECT version, award_first_points, award_second_points, award_third_points,
			r4r5_rank_boost, first_time_conductor_boost, recent_conductor_penalty_days,
			above_average_conductor_penalty, schedule_message_template, daily_message_template
		FROM settings WHERE id = 1`).Scan(
		&s.Version, &s.AwardFirstPoints, &s.AwardSecondPoints, &s.AwardThirdPoints,
		&s.R4R5RankBoost, &s.FirstTimeConductorBoost, &s.RecentConductorPenaltyDays,
		&s.AboveAverageConductorPenalty, &s.ScheduleMessageTemplate, &s.DailyMessageTemplate,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ScoringSettings{}, fmt.Errorf("settings: %w", ErrNotFound)
	}
	if err != nil {
		return model.ScoringSettings{}, fmt.Errorf("query settings: %w", err)
	}
	return s, nil
}

func queryAwards(ctx context.Context, q querier) ([]model.AwardRecord, error) {
	rows, err := q.Query(ctx, `
		SELECT id, member_id, award_type, placement, week_date, expired, expired_on
		FROM awards ORDER BY week_date, id`)
	if err != nil {
		return nil, fmt.Errorf("query awards: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.AwardRecord, error) {
		var a model.AwardRecord
		err := row.Scan(&a.ID, &a.MemberID, &a.AwardType, &a.Placement, &a.WeekDate, &a.Expired, &a.ExpiredOn)
		a.WeekDate = model.Day(a.WeekDate)
		a.ExpiredOn = dayPtr(a.ExpiredOn)
		return a, err
	})
}

func queryRecommendations(ctx context.Context, q querier) ([]model.RecommendationRecord, error) {
	rows, err := q.Query(ctx, `
		SELECT id, member_id, recommender_id, notes, created_at, expired, expired_on
		FROM recommendations ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query recommendations: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.RecommendationRecord, error) {
		var r model.RecommendationRecord
		err := row.Scan(&r.ID, &r.MemberID, &r.RecommenderID, &r.Notes, &r.CreatedAt, &r.Expired, &r.ExpiredOn)
		r.CreatedAt = r.CreatedAt.UTC()
		r.ExpiredOn = dayPtr(r.ExpiredOn)
		return r, err
	})
}

// queryAssignments returns assignments in [from, to]; zero bounds are open.
func queryAssignments(ctx context.Context, q querier, from, to time.Time) ([]model.Assignment, error) {
	var lo, hi *time.Time
	if !from.IsZero() {
		d := model.Day(from)
		lo = &d
	}
	if !to.IsZero() {
		d := model.Day(to)
		hi = &d
	}
	rows, err := q.Query(ctx, `
		SELECT a.date, a.conductor_score, a.conductor_showed_up,
			c.id, c.name, c.rank, b.id, b.name, b.rank
		FROM assignments a
		LEFT JOIN members c ON c.id = a.conductor_id
		LEFT JOIN members b ON b.id = a.backup_id
		WHERE ($1::date IS NULL OR a.date >= $1) AND ($2::date IS NULL OR a.date <= $2)
		ORDER BY a.date`, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("query assignments: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Assignment, error) {
		var a model.Assignment
		var cID, cName, cRank, bID, bName, bRank *string
		if err := row.Scan(&a.Date, &a.ConductorScore, &a.ShowedUp, &cID, &cName, &cRank, &bID, &bName, &bRank); err != nil {
			return a, err
		}
		a.Date = model.Day(a.Date)
		a.Conductor = ref(cID, cName, cRank)
		a.Backup = ref(bID, bName, bRank)
		return a, nil
	})
}

func ref(id, name, rank *string) *model.Ref {
	if id == nil {
		return nil
	}
	r := &model.Ref{ID: *id}
	if name != nil {
		r.Name = *name
	}
	if rank != nil {
		r.Rank = model.Rank(*rank)
	}
	return r
}

func consume(ctx context.Context, tx pgx.Tx, memberID string, day time.Time) (expiry.Consumed, error) {
	var c expiry.Consumed
	rows, err := tx.Query(ctx, `
		UPDATE awards SET expired = TRUE, expired_on = $2
		WHERE member_id = $1 AND NOT expired AND week_date <= $2
		RETURNING id`, memberID, model.Day(day))
	if err != nil {
		return c, fmt.Errorf("consume awards of %s: %w", memberID, err)
	}
	if c.AwardIDs, err = pgx.CollectRows(rows, pgx.RowTo[string]); err != nil {
		return c, fmt.Errorf("consume awards of %s: %w", memberID, err)
	}
	rows, err = tx.Query(ctx, `
		UPDATE recommendations SET expired = TRUE, expired_on = $3
		WHERE member_id = $1 AND NOT expired AND created_at < $2
		RETURNING id`, memberID, model.Day(day).AddDate(0, 0, 1), model.Day(day))
	if err != nil {
		return c, fmt.Errorf("consume recommendations of %s: %w", memberID, err)
	}
	if c.RecommendationIDs, err = pgx.CollectRows(rows, pgx.RowTo[string]); err != nil {
		return c, fmt.Errorf("consume recommendations of %s: %w", memberID, err)
	}
	return c, nil
}

// consumeServed replays the served duties of memberIDs in date order.
func consumeServed(ctx context.Context, tx pgx.Tx, memberIDs []string) (expiry.Consumed, error) {
	var out expiry.Consumed
	if len(memberIDs) == 0 {
		return out, nil
	}
	rows, err := tx.Query(ctx, `
		SELECT member_id, date FROM (
			SELECT conductor_id AS member_id, date FROM assignments WHERE conductor_id IS NOT NULL
			UNION ALL
			SELECT backup_id, date FROM assignments WHERE backup_id IS NOT NULL AND conductor_showed_up = FALSE
		) served
		WHERE member_id = ANY($1)
		ORDER BY date, member_id`, memberIDs)
	if err != nil {
		return out, fmt.Errorf("query served duties: %w", err)
	}
	duties, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.ConductorHistoryEntry, error) {
		var h model.ConductorHistoryEntry
		err := row.Scan(&h.MemberID, &h.Date)
		return h, err
	})
	if err != nil {
		return out, fmt.Errorf("scan served duties: %w", err)
	}
	for _, h := range duties {
		c, err := consume(ctx, tx, h.MemberID, h.Date)
		if err != nil {
			return out, err
		}
		out.AwardIDs = append(out.AwardIDs, c.AwardIDs...)
		out.RecommendationIDs = append(out.RecommendationIDs, c.RecommendationIDs...)
	}
	return out, nil
}

// restore un-expires records consumed by duties in [from, to]. A nil
// memberID matches every member. It returns the restored ids and the members
// they belong to.
func restore(ctx context.Context, tx pgx.Tx, memberID *string, from, to time.Time) (expiry.Consumed, []string, error) {
	type restored struct {
		ID       string
		MemberID string
	}
	collect := func(table string) ([]restored, error) {
		rows, err := tx.Query(ctx, `
			UPDATE `+table+` SET expired = FALSE, expired_on = NULL
			WHERE expired_on BETWEEN $1 AND $2 AND ($3::text IS NULL OR member_id = $3)
			RETURNING id, member_id`, model.Day(from), model.Day(to), memberID)
		if err != nil {
			return nil, fmt.Errorf("restore %s: %w", table, err)
		}
		out, err := pgx.CollectRows(rows, pgx.RowToStructByPos[restored])
		if err != nil {
			return nil, fmt.Errorf("restore %s: %w", table, err)
		}
		return out, nil
	}

	var out expiry.Consumed
	seen := map[string]bool{}
	var members []string
	note := func(id string) {
		if !seen[id] {
			seen[id] = true
			members = append(members, id)
		}
	}
	awards, err := collect("awards")
	if err != nil {
		return out, nil, err
	}
	for _, r := range awards {
		out.AwardIDs = append(out.AwardIDs, r.ID)
		note(r.MemberID)
	}
	recs, err := collect("recommendations")
	if err != nil {
		return out, nil, err
	}
	for _, r := range recs {
		out.RecommendationIDs = append(out.RecommendationIDs, r.ID)
		note(r.MemberID)
	}
	sort.Strings(members)
	return out, members, nil
}

func dayPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := model.Day(*t)
	return &d
}

func mapWriteErr(what string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: %w", what, ErrDuplicate)
		case pgForeignKeyViolation:
			return fmt.Errorf("%s: %w", what, ErrUnknownMember)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}
