package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/okian/trainboard/internal/domain/model"
	"github.com/okian/trainboard/internal/domain/ranking"
)

// MemberDependencies defines the interface for the member directory.
type MemberDependencies interface {
	Members(ctx context.Context) ([]model.Member, error)
	UpsertMember(ctx context.Context, m model.Member) error
	MemberStats(ctx context.Context) ([]ranking.Stats, error)
}

// MembersHandler handles member directory requests.
type MembersHandler struct {
	deps MemberDependencies
}

// NewMembersHandler creates a new members handler.
func NewMembersHandler(deps MemberDependencies) *MembersHandler {
	return &MembersHandler{deps: deps}
}

// memberRequest is the body of PUT /api/members/{id}.
type memberRequest struct {
	Name     string `json:"name" validate:"required"`
	Rank     string `json:"rank" validate:"required"`
	Eligible *bool  `json:"eligible"`
}

// HandleListMembers handles GET /api/members.
func (h *MembersHandler) HandleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.deps.Members(r.Context())
	if err != nil {
		writeFailure(w, "api.list_members", err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

// HandleMemberStats handles GET /api/members/stats.
func (h *MembersHandler) HandleMemberStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.deps.MemberStats(r.Context())
	if err != nil {
		writeFailure(w, "api.member_stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleUpsertMember handles PUT /api/members/{id}. Eligible defaults to
// true.
func (h *MembersHandler) HandleUpsertMember(w http.ResponseWriter, r *http.Request) {
	const op = "api.upsert_member"
	var req memberRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	rank, err := model.ParseRank(req.Rank)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	m := model.Member{
		ID:       mux.Vars(r)["id"],
		Name:     req.Name,
		Rank:     rank,
		Eligible: req.Eligible == nil || *req.Eligible,
	}
	if err := h.deps.UpsertMember(r.Context(), m); err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
