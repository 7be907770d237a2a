package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	service "github.com/okian/trainboard/internal/app"
	"github.com/okian/trainboard/internal/domain/model"
)

// EventDependencies defines the interface for event intake.
type EventDependencies interface {
	// Submit queues an event and returns its id.
	Submit(ctx context.Context, e model.Event) (string, error)
	DeleteAward(ctx context.Context, id string) error
}

// EventsHandler handles event requests.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// eventRequest mirrors the OpenAPI schema for POST /api/events. The payload
// matching Type must be set.
type eventRequest struct {
	EventID        string                 `json:"event_id"`
	Type           string                 `json:"type" validate:"required,oneof=award recommendation attendance"`
	TS             string                 `json:"ts" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Award          *awardPayload          `json:"award"`
	Recommendation *recommendationPayload `json:"recommendation"`
	Attendance     *attendancePayload     `json:"attendance"`
}

type awardPayload struct {
	ID        string `json:"id"`
	MemberID  string `json:"member_id" validate:"required"`
	AwardType string `json:"award_type"`
	Placement int    `json:"placement" validate:"min=1,max=3"`
	WeekDate  string `json:"week_date" validate:"required,datetime=2006-01-02"`
}

type recommendationPayload struct {
	ID            string `json:"id"`
	MemberID      string `json:"member_id" validate:"required"`
	RecommenderID string `json:"recommender_id"`
	Notes         string `json:"notes"`
	CreatedAt     string `json:"created_at" validate:"omitempty,datetime=2006-01-02"`
}

type attendancePayload struct {
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
	ShowedUp *bool  `json:"showed_up" validate:"required"`
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
	EventID   string `json:"event_id"`
}

func (e eventRequest) toEvent() (model.Event, error) {
	out := model.Event{EventID: e.EventID, Kind: model.EventKind(e.Type)}
	if e.TS != "" {
		ts, err := time.Parse(time.RFC3339, e.TS)
		if err != nil {
			return model.Event{}, err
		}
		out.TS = ts
	}
	switch out.Kind {
	case model.EventAward:
		if e.Award == nil {
			return model.Event{}, errors.New("missing award")
		}
		d, _ := model.ParseDate(e.Award.WeekDate)
		out.Award = &model.AwardRecord{
			ID: e.Award.ID, MemberID: e.Award.MemberID, AwardType: e.Award.AwardType,
			Placement: e.Award.Placement, WeekDate: d,
		}
	case model.EventRecommendation:
		if e.Recommendation == nil {
			return model.Event{}, errors.New("missing recommendation")
		}
		rec := &model.RecommendationRecord{
			ID: e.Recommendation.ID, MemberID: e.Recommendation.MemberID,
			RecommenderID: e.Recommendation.RecommenderID, Notes: e.Recommendation.Notes,
		}
		if e.Recommendation.CreatedAt != "" {
			rec.CreatedAt, _ = model.ParseDate(e.Recommendation.CreatedAt)
		}
		out.Recommendation = rec
	case model.EventAttendance:
		if e.Attendance == nil {
			return model.Event{}, errors.New("missing attendance")
		}
		d, _ := model.ParseDate(e.Attendance.Date)
		out.Attendance = &model.Attendance{Date: d, ShowedUp: *e.Attendance.ShowedUp}
	default:
		return model.Event{}, fmt.Errorf("unknown type %q", e.Type)
	}
	return out, nil
}

// HandlePostEvent handles POST /api/events requests.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	var req eventRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	event, err := req.toEvent()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	id, err := h.deps.Submit(r.Context(), event)
	switch {
	case errors.Is(err, service.ErrDuplicateEvent):
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true, EventID: id})
	case err != nil:
		writeFailure(w, op, err)
	default:
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", EventID: id})
	}
}

// HandleDeleteAward handles DELETE /api/awards/{id}.
func (h *EventsHandler) HandleDeleteAward(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DeleteAward(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeFailure(w, "api.delete_award", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
