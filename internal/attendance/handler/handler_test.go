package handler_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CajesJM/CajesJm-tmc-connect-sub001/internal/attendance"
	"github.com/CajesJM/CajesJm-tmc-connect-sub001/internal/attendance/handler"
	"github.com/CajesJM/CajesJm-tmc-connect-sub001/internal/attendance/session"
	"github.com/CajesJM/CajesJm-tmc-connect-sub001/internal/attendance/store"
	"github.com/CajesJM/CajesJm-tmc-connect-sub001/internal/platform/middleware"
)

// fakeEngine returns a canned verdict and records the inputs it saw.
type fakeEngine struct {
	verdict     attendance.Verdict
	token       attendance.Token
	raw         string
	tokenErr    error
	lastRaw     string
	lastFix     *attendance.LocationFix
	lastStudent string
}

func (f *fakeEngine) Scan(_ context.Context, raw string, fix *attendance.LocationFix, studentID string) attendance.Verdict {
	f.lastRaw = raw
	f.lastFix = fix
	f.lastStudent = studentID
	return f.verdict
}

func (f *fakeEngine) IssueToken(context.Context, string) (attendance.Token, string, error) {
	return f.token, f.raw, f.tokenErr
}

func newRouter(engine *fakeEngine) (chi.Router, *store.InMemoryEventStore) {
	events := store.NewInMemory()
	logger := slog.New(slog.DiscardHandler)
	h := handler.New(engine, events, session.NewMemoryLatch(time.Minute), logger)
	r := chi.NewRouter()
	r.Use(middleware.StudentIdentity)
	h.Register(r)
	return r, events
}

func postJSON(t *testing.T, router chi.Router, path, studentID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if studentID != "" {
		req.Header.Set("X-Student-ID", studentID)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func approvedVerdict() attendance.Verdict {
	record := attendance.AttendanceRecord{ID: "rec-1", StudentID: "2023-00123"}
	return attendance.Verdict{
		Approved: true,
		Event:    &attendance.EventRecord{ID: "evt-1", Title: "Assembly"},
		Record:   &record,
	}
}

func rejectedVerdict(reason attendance.RejectionReason) attendance.Verdict {
	return attendance.Verdict{
		Event:     &attendance.EventRecord{ID: "evt-1", Title: "Assembly"},
		Rejection: &attendance.Rejection{Reason: reason, Message: "nope"},
	}
}

func TestHandleScan(t *testing.T) {
	t.Run("requires student identity", func(t *testing.T) {
		router, _ := newRouter(&fakeEngine{})
		w := postJSON(t, router, "/attendance/scan", "", `{"token":"x"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("requires a token", func(t *testing.T) {
		router, _ := newRouter(&fakeEngine{})
		w := postJSON(t, router, "/attendance/scan", "2023-00123", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("approved scan returns the record", func(t *testing.T) {
		engine := &fakeEngine{verdict: approvedVerdict()}
		router, _ := newRouter(engine)

		w := postJSON(t, router, "/attendance/scan", "2023-00123", `{"token":"raw-token"}`)
		require.Equal(t, http.StatusOK, w.Code)

		var resp handler.ScanResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "approved", resp.Status)
		require.NotNil(t, resp.Record)
		assert.Equal(t, "rec-1", resp.Record.ID)
		assert.Equal(t, "2023-00123", engine.lastStudent)
		assert.Equal(t, "raw-token", engine.lastRaw)
	})

	t.Run("location is forwarded to the engine", func(t *testing.T) {
		engine := &fakeEngine{verdict: approvedVerdict()}
		router, _ := newRouter(engine)

		body := `{"token":"raw-token","location":{"latitude":10.2447,"longitude":123.788,"accuracyMeters":12}}`
		w := postJSON(t, router, "/attendance/scan", "2023-00123", body)
		require.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, engine.lastFix)
		assert.Equal(t, 12.0, engine.lastFix.AccuracyMeters)
	})

	t.Run("duplicate dispatch within a session is a conflict", func(t *testing.T) {
		engine := &fakeEngine{verdict: approvedVerdict()}
		router, _ := newRouter(engine)

		body := `{"token":"raw-token","sessionId":"cam-7"}`
		first := postJSON(t, router, "/attendance/scan", "2023-00123", body)
		require.Equal(t, http.StatusOK, first.Code)

		second := postJSON(t, router, "/attendance/scan", "2023-00123", body)
		assert.Equal(t, http.StatusConflict, second.Code)
	})

	t.Run("a transient rejection frees the session for an immediate retry", func(t *testing.T) {
		engine := &fakeEngine{verdict: rejectedVerdict(attendance.ReasonValidationError)}
		router, _ := newRouter(engine)

		body := `{"token":"raw-token","sessionId":"cam-7"}`
		first := postJSON(t, router, "/attendance/scan", "2023-00123", body)
		require.Equal(t, http.StatusServiceUnavailable, first.Code)

		second := postJSON(t, router, "/attendance/scan", "2023-00123", body)
		assert.Equal(t, http.StatusServiceUnavailable, second.Code,
			"retry must reach the engine, not the latch")
	})

	t.Run("rejection statuses follow the reason", func(t *testing.T) {
		cases := map[attendance.RejectionReason]int{
			attendance.ReasonMalformedToken:   http.StatusBadRequest,
			attendance.ReasonEventNotFound:    http.StatusNotFound,
			attendance.ReasonAlreadyAttended:  http.StatusConflict,
			attendance.ReasonQRCodeExpired:    http.StatusUnprocessableEntity,
			attendance.ReasonLocationMismatch: http.StatusUnprocessableEntity,
			attendance.ReasonValidationError:  http.StatusServiceUnavailable,
			attendance.ReasonPermissionDenied: http.StatusForbidden,
		}
		for reason, status := range cases {
			engine := &fakeEngine{verdict: rejectedVerdict(reason)}
			router, _ := newRouter(engine)
			w := postJSON(t, router, "/attendance/scan", "2023-00123", `{"token":"raw-token"}`)
			assert.Equal(t, status, w.Code, "reason %s", reason)

			var resp handler.ScanResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, "rejected", resp.Status)
			require.NotNil(t, resp.Rejection)
			assert.Equal(t, string(reason), resp.Rejection.Reason)
			require.NotNil(t, resp.Event)
		}
	})
}

func TestHandleCreateEvent(t *testing.T) {
	router, events := newRouter(&fakeEngine{})

	t.Run("persists a valid event", func(t *testing.T) {
		body := `{"id":"evt-9","title":"Foundation Day","startTime":"2026-03-01T08:00:00Z","geofence":{"latitude":10.2447,"longitude":123.788,"radius":60}}`
		w := postJSON(t, router, "/attendance/events", "", body)
		require.Equal(t, http.StatusCreated, w.Code)

		stored, err := events.Get(context.Background(), "evt-9")
		require.NoError(t, err)
		assert.Equal(t, "Foundation Day", stored.Title)
		require.NotNil(t, stored.Geofence)
	})

	t.Run("rejects a fence without a radius", func(t *testing.T) {
		body := `{"id":"evt-10","title":"X","startTime":"2026-03-01T08:00:00Z","geofence":{"latitude":10.2,"longitude":123.7,"radius":0}}`
		w := postJSON(t, router, "/attendance/events", "", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects missing title", func(t *testing.T) {
		w := postJSON(t, router, "/attendance/events", "", `{"id":"evt-11","startTime":"2026-03-01T08:00:00Z"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleIssueToken(t *testing.T) {
	engine := &fakeEngine{
		token: attendance.Token{EventID: "evt-1", ExpiresAt: time.Now().Add(24 * time.Hour)},
		raw:   `{"type":"attendance","eventId":"evt-1"}`,
	}
	router, _ := newRouter(engine)

	w := postJSON(t, router, "/attendance/events/evt-1/token", "", ``)
	require.Equal(t, http.StatusOK, w.Code)

	var resp handler.TokenResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "evt-1", resp.EventID)
	assert.Contains(t, resp.Token, "attendance")
}
