package attendance

import "time"

// RejectionReason is the typed taxonomy surfaced to the scanning client.
type RejectionReason string

const (
	ReasonMalformedToken      RejectionReason = "malformed_token"
	ReasonEventNotFound       RejectionReason = "event_not_found"
	ReasonLocationMismatch    RejectionReason = "location_mismatch"
	ReasonLocationInaccurate  RejectionReason = "location_inaccurate"
	ReasonLocationUnavailable RejectionReason = "location_unavailable"
	ReasonPermissionDenied    RejectionReason = "permission_denied"
	ReasonQRCodeExpired       RejectionReason = "qr_code_expired"
	ReasonDeadlinePassed      RejectionReason = "attendance_deadline_passed"
	ReasonEventNotStarted     RejectionReason = "event_not_started"
	ReasonAlreadyAttended     RejectionReason = "already_attended"
	ReasonProfileIncomplete   RejectionReason = "profile_incomplete"

	// Transient reasons: the scan may be retried as-is.
	ReasonValidationError RejectionReason = "validation_error"
	ReasonCommitFailed    RejectionReason = "commit_failed"
)

// Retryable reports whether a rejection is transient rather than terminal
// for this scan attempt.
func (r RejectionReason) Retryable() bool {
	switch r {
	case ReasonValidationError, ReasonCommitFailed, ReasonLocationUnavailable:
		return true
	}
	return false
}

// Rejection carries the reason plus the reason-specific evidence the client
// renders.
type Rejection struct {
	Reason  RejectionReason
	Message string

	DistanceMeters      *float64
	AllowedRadiusMeters *float64
	AccuracyMeters      *float64
	ExpiredAt           *time.Time
	MinutesUntilStart   int
}

// Verdict is the single outcome of one pipeline run. Exactly one of the
// approval fields or Rejection is populated. Event holds whatever snapshot
// was available at the point of failure so the client can still render event
// context.
type Verdict struct {
	Approved         bool
	Event            *EventRecord
	DistanceMeters   *float64
	LocationVerified bool
	Rejection        *Rejection

	// Record is the committed attendance record, set only after a successful
	// recorder commit.
	Record *AttendanceRecord
}

func approve(event *EventRecord, distance *float64, locationVerified bool) Verdict {
	return Verdict{
		Approved:         true,
		Event:            event,
		DistanceMeters:   distance,
		LocationVerified: locationVerified,
	}
}

func reject(event *EventRecord, rejection Rejection) Verdict {
	return Verdict{Event: event, Rejection: &rejection}
}
