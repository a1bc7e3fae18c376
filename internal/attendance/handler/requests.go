package handler

import (
	"time"

	"github.com/CajesJM/CajesJm-tmc-connect-sub001/internal/attendance"
	dErrors "github.com/CajesJM/CajesJm-tmc-connect-sub001/pkg/domain-errors"
	"github.com/CajesJM/CajesJm-tmc-connect-sub001/pkg/geo"
)

// ScanRequest is the wire shape of one scan attempt. Token is the raw decoded
// QR string delivered by the camera collaborator.
type ScanRequest struct {
	Token     string       `json:"token"`
	SessionID string       `json:"sessionId,omitempty"`
	Location  *LocationDTO `json:"location,omitempty"`
}

// LocationDTO is the device fix as captured at scan time.
type LocationDTO struct {
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	AccuracyMeters float64   `json:"accuracyMeters"`
	CapturedAt     time.Time `json:"capturedAt,omitempty"`
}

// Fix converts the optional wire location into the engine's fix type.
func (r ScanRequest) Fix() *attendance.LocationFix {
	if r.Location == nil {
		return nil
	}
	return &attendance.LocationFix{
		Coordinate: geo.Coordinate{
			Latitude:  r.Location.Latitude,
			Longitude: r.Location.Longitude,
		},
		AccuracyMeters: r.Location.AccuracyMeters,
		CapturedAt:     r.Location.CapturedAt,
	}
}

// CreateEventRequest seeds an event definition.
type CreateEventRequest struct {
	ID                 string       `json:"id"`
	Title              string       `json:"title"`
	StartTime          time.Time    `json:"startTime"`
	Geofence           *GeofenceDTO `json:"geofence,omitempty"`
	QRManualExpiration *time.Time   `json:"qrManualExpiration,omitempty"`
	AttendanceDeadline *time.Time   `json:"attendanceDeadline,omitempty"`
}

// GeofenceDTO mirrors the QR payload's eventLocation shape.
type GeofenceDTO struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Radius    float64 `json:"radius"`
	Address   string  `json:"address,omitempty"`
}

// Event validates the request and builds the event record.
func (r CreateEventRequest) Event() (*attendance.EventRecord, error) {
	if r.ID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "id is required")
	}
	if r.Title == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "title is required")
	}
	if r.StartTime.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "startTime is required")
	}
	event := &attendance.EventRecord{
		ID:                 r.ID,
		Title:              r.Title,
		StartTime:          r.StartTime,
		QRManualExpiration: r.QRManualExpiration,
		AttendanceDeadline: r.AttendanceDeadline,
	}
	if r.Geofence != nil {
		fence := geo.Geofence{
			Center: geo.Coordinate{
				Latitude:  r.Geofence.Latitude,
				Longitude: r.Geofence.Longitude,
			},
			RadiusMeters: r.Geofence.Radius,
			Address:      r.Geofence.Address,
		}
		if !fence.Valid() {
			return nil, dErrors.New(dErrors.CodeBadRequest, "geofence needs a valid center and a positive radius")
		}
		event.Geofence = &fence
	}
	return event, nil
}
