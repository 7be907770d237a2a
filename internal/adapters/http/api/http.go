// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/okian/trainboard/internal/adapters/repository"
	service "github.com/okian/trainboard/internal/app"
	"github.com/okian/trainboard/internal/domain/model"
	"github.com/okian/trainboard/internal/domain/scoring"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	RankingDependencies
	MemberDependencies
	SettingsDependencies
	ScheduleDependencies
	EventDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	rankingsHandler *RankingsHandler
	membersHandler  *MembersHandler
	settingsHandler *SettingsHandler
	scheduleHandler *ScheduleHandler
	eventsHandler   *EventsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(deps),
		rankingsHandler: NewRankingsHandler(deps),
		membersHandler:  NewMembersHandler(deps),
		settingsHandler: NewSettingsHandler(deps),
		scheduleHandler: NewScheduleHandler(deps),
		eventsHandler:   NewEventsHandler(deps),
	}
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r *mux.Router) {
	r.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz")).Methods(http.MethodGet)
	r.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats")).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/rankings", MetricsMiddleware(s.rankingsHandler.HandleGetRankings, "rankings")).Methods(http.MethodGet)
	api.HandleFunc("/rankings/{member_id}", MetricsMiddleware(s.rankingsHandler.HandleGetMemberScore, "member_score")).Methods(http.MethodGet)

	api.HandleFunc("/members", MetricsMiddleware(s.membersHandler.HandleListMembers, "members")).Methods(http.MethodGet)
	api.HandleFunc("/members/stats", MetricsMiddleware(s.membersHandler.HandleMemberStats, "member_stats")).Methods(http.MethodGet)
	api.HandleFunc("/members/{id}", MetricsMiddleware(s.membersHandler.HandleUpsertMember, "member_upsert")).Methods(http.MethodPut)

	api.HandleFunc("/settings", MetricsMiddleware(s.settingsHandler.HandleGetSettings, "settings")).Methods(http.MethodGet)
	api.HandleFunc("/settings", MetricsMiddleware(s.settingsHandler.HandleUpdateSettings, "settings_update")).Methods(http.MethodPut)

	api.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events")).Methods(http.MethodPost)
	api.HandleFunc("/awards/{id}", MetricsMiddleware(s.eventsHandler.HandleDeleteAward, "award_delete")).Methods(http.MethodDelete)

	ts := api.PathPrefix("/train-schedules").Subrouter()
	ts.HandleFunc("", MetricsMiddleware(s.scheduleHandler.HandleGetSchedule, "schedule")).Methods(http.MethodGet)
	ts.HandleFunc("/auto-schedule", MetricsMiddleware(s.scheduleHandler.HandleAutoSchedule, "auto_schedule")).Methods(http.MethodPost)
	ts.HandleFunc("/weekly-message", MetricsMiddleware(s.scheduleHandler.HandleWeeklyMessage, "weekly_message")).Methods(http.MethodGet)
	ts.HandleFunc("/daily-message", MetricsMiddleware(s.scheduleHandler.HandleDailyMessage, "daily_message")).Methods(http.MethodGet)
	ts.HandleFunc("/conductor-messages", MetricsMiddleware(s.scheduleHandler.HandleConductorMessages, "conductor_messages")).Methods(http.MethodGet)
	ts.HandleFunc("/{date}/attendance", MetricsMiddleware(s.scheduleHandler.HandleAttendance, "attendance")).Methods(http.MethodPut)
}

var validate = validator.New()

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps domain and store errors onto HTTP statuses.
func writeFailure(w http.ResponseWriter, op string, err error) {
	err = Wrap(op, err)
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, service.ErrInvalidEvent):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, scoring.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_error", err)
	case errors.Is(err, scoring.ErrConfiguration):
		writeError(w, http.StatusInternalServerError, "configuration_error", err)
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrUnknownMember):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, repository.ErrVersionConflict), errors.Is(err, repository.ErrWeekEvaluated),
		errors.Is(err, repository.ErrDuplicate):
		writeError(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, service.ErrBackpressure), errors.Is(err, ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// decode reads a JSON body into v and validates it.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	return validate.Struct(v)
}

// dateParam parses an optional YYYY-MM-DD query parameter. Missing values
// yield the zero time, which the service reads as today.
func dateParam(r *http.Request, name string) (time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}, nil
	}
	return model.ParseDate(v)
}
