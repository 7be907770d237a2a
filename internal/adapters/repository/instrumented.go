package repository

import (
	"context"
	"time"

	"github.com/okian/trainboard/internal/domain/expiry"
	"github.com/okian/trainboard/internal/domain/model"
	"github.com/okian/trainboard/pkg/metrics"
)

// Instrumented wraps a Store and records latency and failures per
// operation.
type Instrumented struct {
	next Store
}

// Instrument returns s wrapped with metrics.
func Instrument(s Store) *Instrumented {
	return &Instrumented{next: s}
}

func observe(op string, start time.Time, err error) {
	metrics.RecordStoreOperation(op, time.Since(start), err)
}

func (i *Instrumented) Snapshot(ctx context.Context) (snap model.Snapshot, err error) {
	defer func(start time.Time) { observe("snapshot", start, err) }(time.Now())
	return i.next.Snapshot(ctx)
}

func (i *Instrumented) Members(ctx context.Context) (out []model.Member, err error) {
	defer func(start time.Time) { observe("members", start, err) }(time.Now())
	return i.next.Members(ctx)
}

func (i *Instrumented) Member(ctx context.Context, id string) (m model.Member, err error) {
	defer func(start time.Time) { observe("member", start, err) }(time.Now())
	return i.next.Member(ctx, id)
}

func (i *Instrumented) UpsertMember(ctx context.Context, m model.Member) (err error) {
	defer func(start time.Time) { observe("upsert_member", start, err) }(time.Now())
	return i.next.UpsertMember(ctx, m)
}

func (i *Instrumented) Settings(ctx context.Context) (s model.ScoringSettings, err error) {
	defer func(start time.Time) { observe("settings", start, err) }(time.Now())
	return i.next.Settings(ctx)
}

func (i *Instrumented) UpdateSettings(ctx context.Context, s model.ScoringSettings, expectedVersion int) (out model.ScoringSettings, err error) {
	defer func(start time.Time) { observe("update_settings", start, err) }(time.Now())
	return i.next.UpdateSettings(ctx, s, expectedVersion)
}

func (i *Instrumented) AddAward(ctx context.Context, a model.AwardRecord) (err error) {
	defer func(start time.Time) { observe("add_award", start, err) }(time.Now())
	return i.next.AddAward(ctx, a)
}

func (i *Instrumented) DeleteAward(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { observe("delete_award", start, err) }(time.Now())
	return i.next.DeleteAward(ctx, id)
}

func (i *Instrumented) AddRecommendation(ctx context.Context, r model.RecommendationRecord) (err error) {
	defer func(start time.Time) { observe("add_recommendation", start, err) }(time.Now())
	return i.next.AddRecommendation(ctx, r)
}

func (i *Instrumented) Assignments(ctx context.Context, from, to time.Time) (out []model.Assignment, err error) {
	defer func(start time.Time) { observe("assignments", start, err) }(time.Now())
	return i.next.Assignments(ctx, from, to)
}

func (i *Instrumented) CommitWeek(ctx context.Context, weekStart time.Time, assignments []model.Assignment) (c expiry.Consumed, err error) {
	defer func(start time.Time) { observe("commit_week", start, err) }(time.Now())
	return i.next.CommitWeek(ctx, weekStart, assignments)
}

func (i *Instrumented) RecordAttendance(ctx context.Context, date time.Time, showedUp bool) (c expiry.Consumed, err error) {
	defer func(start time.Time) { observe("record_attendance", start, err) }(time.Now())
	return i.next.RecordAttendance(ctx, date, showedUp)
}

func (i *Instrumented) Close() error { return i.next.Close() }
