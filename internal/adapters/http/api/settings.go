package api

import (
	"context"
	"net/http"

	"github.com/okian/trainboard/internal/domain/model"
)

// SettingsDependencies defines the interface for scoring settings.
type SettingsDependencies interface {
	Settings(ctx context.Context) (model.ScoringSettings, error)
	UpdateSettings(ctx context.Context, s model.ScoringSettings, expectedVersion int) (model.ScoringSettings, error)
}

// SettingsHandler handles scoring settings requests.
type SettingsHandler struct {
	deps SettingsDependencies
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(deps SettingsDependencies) *SettingsHandler {
	return &SettingsHandler{deps: deps}
}

// HandleGetSettings handles GET /api/settings.
func (h *SettingsHandler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.deps.Settings(r.Context())
	if err != nil {
		writeFailure(w, "api.get_settings", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// HandleUpdateSettings handles PUT /api/settings. A non-zero version in the
// body must match the stored version.
func (h *SettingsHandler) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_settings"
	var req model.ScoringSettings
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", WrapKind(op, ErrBadRequest, err))
		return
	}
	saved, err := h.deps.UpdateSettings(r.Context(), req, req.Version)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
