package attendance

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/CajesJM/CajesJm-tmc-connect-sub001/pkg/geo"
)

// TokenKind is the payload discriminator; anything else scanned by the camera
// is not ours.
const TokenKind = "attendance"

// DefaultTokenTTL is the token's own expiration window when the event carries
// no admin-set manual expiration.
const DefaultTokenTTL = 24 * time.Hour

// Token is the decoded QR payload. It signals intent rather than carrying a
// cryptographic signature; single use per student is enforced by the
// already-attended rule, not by token revocation.
type Token struct {
	EventID              string
	EventTitle           string
	IssuedAt             time.Time
	ExpiresAt            time.Time
	UsesManualExpiration bool

	// GeofenceSnapshot is the fence copied at generation time. Display and
	// consistency only; the live event record stays authoritative.
	GeofenceSnapshot *geo.Geofence
}

// ErrMalformedToken wraps every structural decode failure.
type ErrMalformedToken struct {
	Detail string
}

func (e *ErrMalformedToken) Error() string {
	return fmt.Sprintf("malformed attendance token: %s", e.Detail)
}

// tokenWire is the stable JSON shape rendered into the QR code. Timestamps
// are ISO-8601 strings.
type tokenWire struct {
	Type                 string        `json:"type"`
	EventID              string        `json:"eventId"`
	EventTitle           string        `json:"eventTitle,omitempty"`
	Timestamp            string        `json:"timestamp"`
	ExpiresAt            string        `json:"expiresAt"`
	UsesManualExpiration bool          `json:"usesManualExpiration"`
	EventLocation        *geofenceWire `json:"eventLocation,omitempty"`
}

type geofenceWire struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Radius    float64 `json:"radius"`
	Address   string  `json:"address,omitempty"`
}

// parseInstant converts a wire timestamp into a typed instant. It is the only
// place raw timestamp strings are interpreted; every rule downstream works on
// time.Time values and zero-checks.
func parseInstant(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DecodeToken parses a raw scanned string into a Token. Structural problems
// (wrong kind, missing event ID, unparseable JSON) return *ErrMalformedToken.
func DecodeToken(raw string) (Token, error) {
	var wire tokenWire
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return Token{}, &ErrMalformedToken{Detail: "not a JSON payload"}
	}
	if wire.Type != TokenKind {
		return Token{}, &ErrMalformedToken{Detail: fmt.Sprintf("unexpected payload type %q", wire.Type)}
	}
	if wire.EventID == "" {
		return Token{}, &ErrMalformedToken{Detail: "missing event id"}
	}

	tok := Token{
		EventID:              wire.EventID,
		EventTitle:           wire.EventTitle,
		UsesManualExpiration: wire.UsesManualExpiration,
	}
	if issued, ok := parseInstant(wire.Timestamp); ok {
		tok.IssuedAt = issued
	}
	if expires, ok := parseInstant(wire.ExpiresAt); ok {
		tok.ExpiresAt = expires
	}
	// The expiration invariant: a token without a readable expiresAt still
	// expires, 24h from issuance or, failing that, from decode time.
	if tok.ExpiresAt.IsZero() {
		base := tok.IssuedAt
		if base.IsZero() {
			base = time.Now().UTC()
		}
		tok.ExpiresAt = base.Add(DefaultTokenTTL)
	}
	if wire.EventLocation != nil {
		tok.GeofenceSnapshot = &geo.Geofence{
			Center: geo.Coordinate{
				Latitude:  wire.EventLocation.Latitude,
				Longitude: wire.EventLocation.Longitude,
			},
			RadiusMeters: wire.EventLocation.Radius,
			Address:      wire.EventLocation.Address,
		}
	}
	return tok, nil
}

// EncodeToken builds the display token for an event at QR-render time. The
// admin-set manual expiration wins when present and still in the future;
// otherwise the token carries its own 24h default.
func EncodeToken(event *EventRecord, now time.Time) Token {
	tok := Token{
		EventID:    event.ID,
		EventTitle: event.Title,
		IssuedAt:   now,
	}
	if event.QRManualExpiration != nil && event.QRManualExpiration.After(now) {
		tok.ExpiresAt = *event.QRManualExpiration
		tok.UsesManualExpiration = true
	} else {
		tok.ExpiresAt = now.Add(DefaultTokenTTL)
	}
	if event.RequiresGeofence() {
		snapshot := *event.Geofence
		tok.GeofenceSnapshot = &snapshot
	}
	return tok
}

// Encode serializes the token into the raw string rendered as a QR code.
func (t Token) Encode() (string, error) {
	wire := tokenWire{
		Type:                 TokenKind,
		EventID:              t.EventID,
		EventTitle:           t.EventTitle,
		Timestamp:            t.IssuedAt.UTC().Format(time.RFC3339),
		ExpiresAt:            t.ExpiresAt.UTC().Format(time.RFC3339),
		UsesManualExpiration: t.UsesManualExpiration,
	}
	if t.GeofenceSnapshot != nil {
		wire.EventLocation = &geofenceWire{
			Latitude:  t.GeofenceSnapshot.Center.Latitude,
			Longitude: t.GeofenceSnapshot.Center.Longitude,
			Radius:    t.GeofenceSnapshot.RadiusMeters,
			Address:   t.GeofenceSnapshot.Address,
		}
	}
	raw, err := json.Marshal(wire)
	if err != nil {
		return "", fmt.Errorf("encode attendance token: %w", err)
	}
	return string(raw), nil
}
