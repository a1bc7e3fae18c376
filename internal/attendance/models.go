// Package attendance implements the verification engine that decides whether
// a scanned QR token may mark a student present at an event, and commits the
// resulting attendance record.
package attendance

import (
	"time"

	"github.com/CajesJM/CajesJm-tmc-connect-sub001/pkg/geo"
)

// StudentIdentity is the requester profile as resolved by the identity
// collaborator. All fields are required for a scan to proceed; gender is
// required because the registrar's attendance exports break it out.
type StudentIdentity struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
	Course    string `json:"course"`
	YearLevel string `json:"yearLevel"`
	Block     string `json:"block"`
	Gender    string `json:"gender"`
}

// Complete reports whether the profile carries everything an attendance
// record needs.
func (s StudentIdentity) Complete() bool {
	return s.StudentID != "" && s.Name != "" && s.Course != "" &&
		s.YearLevel != "" && s.Block != "" && s.Gender != ""
}

// EventRecord is the live event as stored. The attendees list is append-only
// and unique by student ID; only successful recorder commits mutate it.
type EventRecord struct {
	ID                 string             `json:"id"`
	Title              string             `json:"title"`
	StartTime          time.Time          `json:"startTime"`
	Geofence           *geo.Geofence      `json:"geofence,omitempty"`
	QRManualExpiration *time.Time         `json:"qrManualExpiration,omitempty"`
	AttendanceDeadline *time.Time         `json:"attendanceDeadline,omitempty"`
	Attendees          []AttendanceRecord `json:"attendees,omitempty"`
}

// HasAttendee reports whether the student already holds a record on this
// event.
func (e *EventRecord) HasAttendee(studentID string) bool {
	for i := range e.Attendees {
		if e.Attendees[i].StudentID == studentID {
			return true
		}
	}
	return false
}

// RequiresGeofence reports whether this event enforces a location check.
func (e *EventRecord) RequiresGeofence() bool {
	return e.Geofence != nil && e.Geofence.Valid()
}

// LocationFix is one device location reading captured at scan time. It is
// ephemeral; only the derived RecordedLocation is persisted.
type LocationFix struct {
	Coordinate     geo.Coordinate `json:"coordinate"`
	AccuracyMeters float64        `json:"accuracyMeters"`
	CapturedAt     time.Time      `json:"capturedAt"`
}

// RecordedLocation is the location evidence embedded in a committed
// attendance record.
type RecordedLocation struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	AccuracyMeters float64 `json:"accuracyMeters"`
	DistanceMeters float64 `json:"distanceFromEvent"`
	WithinRadius   bool    `json:"isWithinRadius"`
}

// AttendanceRecord is one student's presence at one event. Immutable once
// appended; created exclusively by the Recorder.
type AttendanceRecord struct {
	ID                   string            `json:"id"`
	StudentID            string            `json:"studentId"`
	StudentName          string            `json:"studentName"`
	Course               string            `json:"course"`
	YearLevel            string            `json:"yearLevel"`
	Block                string            `json:"block"`
	Gender               string            `json:"gender"`
	ScannedAt            time.Time         `json:"scannedAt"`
	QRIssuedAt           time.Time         `json:"qrIssuedAt"`
	QRExpiresAt          time.Time         `json:"qrExpiresAt"`
	UsesManualExpiration bool              `json:"usesManualExpiration"`
	Location             *RecordedLocation `json:"location,omitempty"`
}
