package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/CajesJM/CajesJm-tmc-connect-sub001/internal/attendance"
	dErrors "github.com/CajesJM/CajesJm-tmc-connect-sub001/pkg/domain-errors"
	"github.com/CajesJM/CajesJm-tmc-connect-sub001/pkg/platform/httputil"
	"github.com/CajesJM/CajesJm-tmc-connect-sub001/pkg/requestcontext"
)

// Service is the engine surface the handler depends on.
type Service interface {
	Scan(ctx context.Context, raw string, fix *attendance.LocationFix, studentID string) attendance.Verdict
	IssueToken(ctx context.Context, eventID string) (attendance.Token, string, error)
}

// EventWriter seeds event definitions. Administrative; full event CRUD lives
// outside this engine.
type EventWriter interface {
	Put(ctx context.Context, event *attendance.EventRecord) error
}

// Handler wires attendance endpoints to the engine.
type Handler struct {
	service Service
	events  EventWriter
	latch   attendance.ScanLatch
	logger  *slog.Logger
}

// New constructs an attendance handler.
func New(service Service, events EventWriter, latch attendance.ScanLatch, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		events:  events,
		latch:   latch,
		logger:  logger,
	}
}

// Register mounts attendance endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/attendance/scan", h.HandleScan)
	r.Post("/attendance/events", h.HandleCreateEvent)
	r.Post("/attendance/events/{eventID}/token", h.HandleIssueToken)
}

// HandleScan handles POST /attendance/scan.
func (h *Handler) HandleScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// The session layer is an external collaborator; it authenticates the
	// student, and the identity middleware lifts the forwarded ID into the
	// context.
	studentID := requestcontext.StudentID(ctx)
	if studentID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "student identity required"))
		return
	}

	req, ok := httputil.DecodeJSON[ScanRequest](w, r)
	if !ok {
		return
	}
	if req.Token == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "token is required"))
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = studentID
	}
	acquired, err := h.latch.Acquire(ctx, sessionID, req.Token)
	if err != nil {
		// A broken latch backend must not strand students at the door; the
		// store's idempotent append still guards against duplicates.
		h.logger.WarnContext(ctx, "scan latch unavailable, dispatching anyway", "error", err)
	} else if !acquired {
		httputil.WriteError(w, dErrors.New(dErrors.CodeConflict, "this code was already scanned in this session"))
		return
	}

	verdict := h.service.Scan(ctx, req.Token, req.Fix(), studentID)
	if rej := verdict.Rejection; rej != nil && rej.Reason.Retryable() {
		// Transient rejections tell the student to rescan; the latch must
		// not hold that retry hostage for the rest of its TTL.
		if err := h.latch.Release(ctx, sessionID, req.Token); err != nil {
			h.logger.WarnContext(ctx, "scan latch release failed", "error", err)
		}
	}
	writeVerdict(w, verdict)
}

// HandleCreateEvent handles POST /attendance/events.
func (h *Handler) HandleCreateEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeJSON[CreateEventRequest](w, r)
	if !ok {
		return
	}
	event, err := req.Event()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.events.Put(ctx, event); err != nil {
		h.logger.ErrorContext(ctx, "event create failed", "event_id", event.ID, "error", err)
		httputil.WriteError(w, dErrors.Wrap(dErrors.CodeUnavailable, "could not save the event", err))
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, newEventResponse(event))
}

// HandleIssueToken handles POST /attendance/events/{eventID}/token.
func (h *Handler) HandleIssueToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID := chi.URLParam(r, "eventID")

	token, raw, err := h.service.IssueToken(ctx, eventID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newTokenResponse(token, raw))
}
