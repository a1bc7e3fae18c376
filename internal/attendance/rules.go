package attendance

import (
	"fmt"
	"math"
	"time"

	"github.com/CajesJM/CajesJm-tmc-connect-sub001/pkg/geo"
)

// ruleInput carries everything the ordered checks need. No I/O happens past
// this point; the event has already been loaded.
type ruleInput struct {
	event             *EventRecord
	token             Token
	fix               *LocationFix
	requester         StudentIdentity
	now               time.Time
	accuracyThreshold float64
}

// evaluateRules runs the ordered rule chain against a loaded event. The order
// is a correctness requirement: each check short-circuits and decides which
// reason a token failing several rules at once reports. Geofence outranks
// expiration so a student standing in the wrong place hears that first.
//
//  2. geofence distance (live event fence, not the token snapshot)
//  3. fix accuracy, only after the distance check passed
//  4. admin-set manual QR expiration, overriding the token's own
//  5. token expiration, when no manual expiration is set
//  6. attendance deadline
//  7. event not started yet
//  8. already attended
//  9. approved
func evaluateRules(in ruleInput) Verdict {
	event := in.event

	var distance *float64
	geofenceChecked := false

	// Rule 2: geofence. Enforced only when the live event carries a valid
	// fence. An admin may have moved the venue after the QR was generated,
	// so the token's snapshot is never consulted here.
	if event.RequiresGeofence() {
		if in.fix == nil {
			return reject(event, Rejection{
				Reason:  ReasonLocationUnavailable,
				Message: "this event requires location verification but no location fix was available",
			})
		}
		within, meters, ok := event.Geofence.WithinRadius(in.fix.Coordinate)
		if !ok {
			// Invalid coordinates mean no verification was possible, not
			// that verification passed.
			accuracy := in.fix.AccuracyMeters
			return reject(event, Rejection{
				Reason:         ReasonLocationInaccurate,
				Message:        "your location fix could not be read; move to an open area and rescan",
				AccuracyMeters: &accuracy,
			})
		}
		if !within {
			radius := event.Geofence.RadiusMeters
			return reject(event, Rejection{
				Reason:              ReasonLocationMismatch,
				Message:             fmt.Sprintf("you are %.0fm from the event venue; attendance requires being within %.0fm", meters, radius),
				DistanceMeters:      &meters,
				AllowedRadiusMeters: &radius,
			})
		}
		distance = &meters
		geofenceChecked = true
	}

	// Rule 3: accuracy, evaluated only after a distance check passed so a
	// wildly off-radius low-accuracy fix still reports the more actionable
	// mismatch reason.
	if geofenceChecked && !geo.Accurate(in.fix.AccuracyMeters, in.accuracyThreshold) {
		accuracy := in.fix.AccuracyMeters
		return reject(event, Rejection{
			Reason:         ReasonLocationInaccurate,
			Message:        fmt.Sprintf("your location accuracy of %.0fm is too coarse to verify attendance", accuracy),
			AccuracyMeters: &accuracy,
		})
	}

	// Rules 4 and 5: the two independent expirations. The admin-set manual
	// expiration is authoritative when present, regardless of the token's
	// own expiresAt; the token default applies otherwise.
	if manual := event.QRManualExpiration; manual != nil && !manual.IsZero() {
		if in.now.After(*manual) {
			expiredAt := *manual
			return reject(event, Rejection{
				Reason:    ReasonQRCodeExpired,
				Message:   "this QR code has expired",
				ExpiredAt: &expiredAt,
			})
		}
	} else if !in.token.ExpiresAt.IsZero() && in.now.After(in.token.ExpiresAt) {
		expiredAt := in.token.ExpiresAt
		return reject(event, Rejection{
			Reason:    ReasonQRCodeExpired,
			Message:   "this QR code has expired",
			ExpiredAt: &expiredAt,
		})
	}

	// Rule 6: attendance deadline.
	if deadline := event.AttendanceDeadline; deadline != nil && !deadline.IsZero() && in.now.After(*deadline) {
		expiredAt := *deadline
		return reject(event, Rejection{
			Reason:    ReasonDeadlinePassed,
			Message:   "the attendance deadline for this event has passed",
			ExpiredAt: &expiredAt,
		})
	}

	// Rule 7: event not started.
	if !event.StartTime.IsZero() && in.now.Before(event.StartTime) {
		minutes := int(math.Ceil(event.StartTime.Sub(in.now).Minutes()))
		return reject(event, Rejection{
			Reason:            ReasonEventNotStarted,
			Message:           fmt.Sprintf("this event has not started yet; try again in about %d minutes", minutes),
			MinutesUntilStart: minutes,
		})
	}

	// Rule 8: already attended. Terminal for this student no matter how many
	// times the token is rescanned.
	if event.HasAttendee(in.requester.StudentID) {
		return reject(event, Rejection{
			Reason:  ReasonAlreadyAttended,
			Message: "your attendance for this event is already recorded",
		})
	}

	return approve(event, distance, geofenceChecked)
}
