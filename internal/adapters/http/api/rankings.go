package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	service "github.com/okian/trainboard/internal/app"
	"github.com/okian/trainboard/internal/domain/model"
)

// RankingDependencies defines the interface for leaderboard reads.
type RankingDependencies interface {
	Rankings(ctx context.Context, date time.Time) (service.Leaderboard, error)
	MemberScore(ctx context.Context, memberID string, date time.Time) (model.RankingEntry, error)
}

// RankingsHandler serves the conductor leaderboard.
type RankingsHandler struct {
	deps RankingDependencies
}

// NewRankingsHandler creates a new rankings handler.
func NewRankingsHandler(deps RankingDependencies) *RankingsHandler {
	return &RankingsHandler{deps: deps}
}

// HandleGetRankings handles GET /api/rankings?date=YYYY-MM-DD.
func (h *RankingsHandler) HandleGetRankings(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rankings"
	date, err := dateParam(r, "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	board, err := h.deps.Rankings(r.Context(), date)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// HandleGetMemberScore handles GET /api/rankings/{member_id}?date=YYYY-MM-DD.
func (h *RankingsHandler) HandleGetMemberScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_member_score"
	date, err := dateParam(r, "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	entry, err := h.deps.MemberScore(r.Context(), mux.Vars(r)["member_id"], date)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
