package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	service "github.com/okian/trainboard/internal/app"
	"github.com/okian/trainboard/internal/domain/expiry"
	"github.com/okian/trainboard/internal/domain/messages"
	"github.com/okian/trainboard/internal/domain/model"
)

// ScheduleDependencies defines the interface for train schedule operations.
type ScheduleDependencies interface {
	AutoSchedule(ctx context.Context, req service.AutoScheduleRequest) (service.AutoScheduleResult, error)
	Schedule(ctx context.Context, day time.Time) ([]model.Assignment, error)
	RecordAttendance(ctx context.Context, date time.Time, showedUp bool) (expiry.Consumed, error)
	WeeklyMessage(ctx context.Context, day time.Time) (string, error)
	DailyMessage(ctx context.Context, day time.Time) (string, error)
	ConductorReminders(ctx context.Context, day time.Time) ([]messages.Reminder, error)
}

// ScheduleHandler handles train schedule requests.
type ScheduleHandler struct {
	deps ScheduleDependencies
}

// NewScheduleHandler creates a new schedule handler.
func NewScheduleHandler(deps ScheduleDependencies) *ScheduleHandler {
	return &ScheduleHandler{deps: deps}
}

type autoScheduleRequest struct {
	StartDate string               `json:"start_date" validate:"required,datetime=2006-01-02"`
	Commit    bool                 `json:"commit"`
	Existing  []existingAssignment `json:"existing_assignments" validate:"dive"`
}

type existingAssignment struct {
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	ConductorID string `json:"conductor_id"`
	BackupID    string `json:"backup_id"`
}

func (e existingAssignment) toAssignment() model.Assignment {
	d, _ := model.ParseDate(e.Date)
	a := model.Assignment{Date: d}
	if e.ConductorID != "" {
		a.Conductor = &model.Ref{ID: e.ConductorID}
	}
	if e.BackupID != "" {
		a.Backup = &model.Ref{ID: e.BackupID}
	}
	return a
}

type weekResponse struct {
	WeekStart   string             `json:"week_start"`
	Assignments []model.Assignment `json:"assignments"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type remindersResponse struct {
	Messages []messages.Reminder `json:"messages"`
}

type attendanceRequest struct {
	ShowedUp *bool `json:"showed_up" validate:"required"`
}

// HandleAutoSchedule handles POST /api/train-schedules/auto-schedule.
func (h *ScheduleHandler) HandleAutoSchedule(w http.ResponseWriter, r *http.Request) {
	const op = "api.auto_schedule"
	var req autoScheduleRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	start, _ := model.ParseDate(req.StartDate)
	in := service.AutoScheduleRequest{Start: start, Commit: req.Commit}
	for _, e := range req.Existing {
		in.Existing = append(in.Existing, e.toAssignment())
	}

	res, err := h.deps.AutoSchedule(r.Context(), in)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleGetSchedule handles GET /api/train-schedules?start=YYYY-MM-DD.
func (h *ScheduleHandler) HandleGetSchedule(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_schedule"
	day, ok := h.day(w, r, op, "start")
	if !ok {
		return
	}
	assignments, err := h.deps.Schedule(r.Context(), day)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	resp := weekResponse{Assignments: assignments}
	if !day.IsZero() {
		resp.WeekStart = model.FormatDate(model.MondayOf(day))
	} else if len(assignments) > 0 {
		resp.WeekStart = model.FormatDate(model.MondayOf(assignments[0].Date))
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleWeeklyMessage handles GET /api/train-schedules/weekly-message?start=.
func (h *ScheduleHandler) HandleWeeklyMessage(w http.ResponseWriter, r *http.Request) {
	const op = "api.weekly_message"
	day, ok := h.day(w, r, op, "start")
	if !ok {
		return
	}
	msg, err := h.deps.WeeklyMessage(r.Context(), day)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

// HandleDailyMessage handles GET /api/train-schedules/daily-message?date=.
func (h *ScheduleHandler) HandleDailyMessage(w http.ResponseWriter, r *http.Request) {
	const op = "api.daily_message"
	day, ok := h.day(w, r, op, "date")
	if !ok {
		return
	}
	msg, err := h.deps.DailyMessage(r.Context(), day)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

// HandleConductorMessages handles GET /api/train-schedules/conductor-messages?start=.
func (h *ScheduleHandler) HandleConductorMessages(w http.ResponseWriter, r *http.Request) {
	const op = "api.conductor_messages"
	day, ok := h.day(w, r, op, "start")
	if !ok {
		return
	}
	reminders, err := h.deps.ConductorReminders(r.Context(), day)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, remindersResponse{Messages: reminders})
}

// HandleAttendance handles PUT /api/train-schedules/{date}/attendance.
func (h *ScheduleHandler) HandleAttendance(w http.ResponseWriter, r *http.Request) {
	const op = "api.attendance"
	date, err := model.ParseDate(mux.Vars(r)["date"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	var req attendanceRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	consumed, err := h.deps.RecordAttendance(r.Context(), date, *req.ShowedUp)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, consumed)
}

func (h *ScheduleHandler) day(w http.ResponseWriter, r *http.Request, op, param string) (time.Time, bool) {
	day, err := dateParam(r, param)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return time.Time{}, false
	}
	return day, true
}
