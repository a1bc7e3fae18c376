package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/CajesJM/CajesJm-tmc-connect-sub001/internal/attendance"
	"github.com/CajesJM/CajesJm-tmc-connect-sub001/internal/profile"
	"github.com/CajesJM/CajesJm-tmc-connect-sub001/pkg/platform/httputil"
)

// Handler exposes the minimal profile surface the attendance engine needs
// seeded: an upsert for the student directory.
type Handler struct {
	service *profile.Service
	logger  *slog.Logger
}

// New constructs a profile handler.
func New(service *profile.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts profile endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Put("/profiles", h.HandleUpsert)
}

// HandleUpsert handles PUT /profiles.
func (h *Handler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := httputil.DecodeJSON[attendance.StudentIdentity](w, r)
	if !ok {
		return
	}
	if err := h.service.Upsert(ctx, identity); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, identity)
}
