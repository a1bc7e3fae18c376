package handler

import (
	"net/http"
	"time"

	"github.com/CajesJM/CajesJm-tmc-connect-sub001/internal/attendance"
	"github.com/CajesJM/CajesJm-tmc-connect-sub001/pkg/platform/httputil"
)

// ScanResponse is the wire shape of a verdict. Event context is included even
// on rejection when the pipeline got far enough to load it.
type ScanResponse struct {
	Status           string                       `json:"status"`
	Event            *EventContext                `json:"event,omitempty"`
	Record           *attendance.AttendanceRecord `json:"record,omitempty"`
	DistanceMeters   *float64                     `json:"distanceMeters,omitempty"`
	LocationVerified bool                         `json:"locationVerified"`
	Rejection        *RejectionBody               `json:"rejection,omitempty"`
}

// EventContext is the event snapshot rendered alongside a verdict. Attendees
// are deliberately not exposed on the scan surface.
type EventContext struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"startTime"`
}

// RejectionBody carries the typed reason and its evidence.
type RejectionBody struct {
	Reason              string     `json:"reason"`
	Message             string     `json:"message"`
	Retryable           bool       `json:"retryable"`
	DistanceMeters      *float64   `json:"distanceMeters,omitempty"`
	AllowedRadiusMeters *float64   `json:"allowedRadiusMeters,omitempty"`
	AccuracyMeters      *float64   `json:"accuracyMeters,omitempty"`
	ExpiredAt           *time.Time `json:"expiredAt,omitempty"`
	MinutesUntilStart   int        `json:"minutesUntilStart,omitempty"`
}

// EventResponse acknowledges an event write.
type EventResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"startTime"`
	Geofenced bool      `json:"geofenced"`
}

// TokenResponse is the issued QR payload plus display metadata.
type TokenResponse struct {
	Token                string    `json:"token"`
	EventID              string    `json:"eventId"`
	IssuedAt             time.Time `json:"issuedAt"`
	ExpiresAt            time.Time `json:"expiresAt"`
	UsesManualExpiration bool      `json:"usesManualExpiration"`
}

func newEventResponse(event *attendance.EventRecord) EventResponse {
	return EventResponse{
		ID:        event.ID,
		Title:     event.Title,
		StartTime: event.StartTime,
		Geofenced: event.RequiresGeofence(),
	}
}

func newTokenResponse(token attendance.Token, raw string) TokenResponse {
	return TokenResponse{
		Token:                raw,
		EventID:              token.EventID,
		IssuedAt:             token.IssuedAt,
		ExpiresAt:            token.ExpiresAt,
		UsesManualExpiration: token.UsesManualExpiration,
	}
}

func writeVerdict(w http.ResponseWriter, verdict attendance.Verdict) {
	resp := ScanResponse{
		DistanceMeters:   verdict.DistanceMeters,
		LocationVerified: verdict.LocationVerified,
	}
	if verdict.Event != nil {
		resp.Event = &EventContext{
			ID:        verdict.Event.ID,
			Title:     verdict.Event.Title,
			StartTime: verdict.Event.StartTime,
		}
	}
	if verdict.Approved {
		resp.Status = "approved"
		resp.Record = verdict.Record
		httputil.WriteJSON(w, http.StatusOK, resp)
		return
	}

	rej := verdict.Rejection
	resp.Status = "rejected"
	resp.Rejection = &RejectionBody{
		Reason:              string(rej.Reason),
		Message:             rej.Message,
		Retryable:           rej.Reason.Retryable(),
		DistanceMeters:      rej.DistanceMeters,
		AllowedRadiusMeters: rej.AllowedRadiusMeters,
		AccuracyMeters:      rej.AccuracyMeters,
		ExpiredAt:           rej.ExpiredAt,
		MinutesUntilStart:   rej.MinutesUntilStart,
	}
	httputil.WriteJSON(w, statusForReason(rej.Reason), resp)
}

// statusForReason maps the rejection taxonomy onto HTTP statuses. Rule
// failures are unprocessable scans, not client syntax errors; transient
// failures signal the client to retry.
func statusForReason(reason attendance.RejectionReason) int {
	switch reason {
	case attendance.ReasonMalformedToken:
		return http.StatusBadRequest
	case attendance.ReasonEventNotFound:
		return http.StatusNotFound
	case attendance.ReasonAlreadyAttended:
		return http.StatusConflict
	case attendance.ReasonPermissionDenied, attendance.ReasonProfileIncomplete:
		return http.StatusForbidden
	case attendance.ReasonValidationError, attendance.ReasonCommitFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusUnprocessableEntity
	}
}
