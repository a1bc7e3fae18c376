package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/CajesJM/CajesJm-tmc-connect-sub001/internal/attendance/metrics"
	dErrors "github.com/CajesJM/CajesJm-tmc-connect-sub001/pkg/domain-errors"
	"github.com/CajesJM/CajesJm-tmc-connect-sub001/pkg/geo"
	"github.com/CajesJM/CajesJm-tmc-connect-sub001/pkg/platform/sentinel"
	"github.com/CajesJM/CajesJm-tmc-connect-sub001/pkg/requestcontext"
)

// Default bounds for the two blocking collaborator calls. Scanning must never
// leave the client in an unrecoverable wait state.
const (
	DefaultLocationTimeout   = 10 * time.Second
	DefaultRepositoryTimeout = 15 * time.Second
)

// Service is the validation pipeline: it loads the live event, runs the
// ordered rule chain, and hands approved scans to the recorder.
type Service struct {
	events   EventRepository
	identity IdentityProvider
	location LocationProvider
	recorder *Recorder
	logger   *slog.Logger
	metrics  *metrics.Metrics
	clock    func() time.Time

	accuracyThreshold float64
	locationTimeout   time.Duration
	repoTimeout       time.Duration
}

// Option configures the Service.
type Option func(*Service)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics attaches module metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLocationProvider attaches a device location collaborator, consulted
// when a scan arrives without a fix.
func WithLocationProvider(p LocationProvider) Option {
	return func(s *Service) { s.location = p }
}

// WithAccuracyThreshold overrides the default GPS accuracy threshold.
func WithAccuracyThreshold(meters float64) Option {
	return func(s *Service) { s.accuracyThreshold = meters }
}

// WithTimeouts overrides the location and repository call bounds.
func WithTimeouts(location, repository time.Duration) Option {
	return func(s *Service) {
		s.locationTimeout = location
		s.repoTimeout = repository
	}
}

// WithClock overrides the wall clock, for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// New constructs the validation pipeline.
func New(events EventRepository, identity IdentityProvider, recorder *Recorder, opts ...Option) (*Service, error) {
	if events == nil {
		return nil, fmt.Errorf("event repository is required")
	}
	if identity == nil {
		return nil, fmt.Errorf("identity provider is required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("recorder is required")
	}
	s := &Service{
		events:            events,
		identity:          identity,
		recorder:          recorder,
		logger:            slog.Default(),
		clock:             time.Now,
		accuracyThreshold: geo.DefaultAccuracyThresholdMeters,
		locationTimeout:   DefaultLocationTimeout,
		repoTimeout:       DefaultRepositoryTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Validate loads the live event for the token and runs the ordered rule
// chain. The verdict's Event field carries whatever snapshot was available at
// the point of failure.
func (s *Service) Validate(ctx context.Context, token Token, fix *LocationFix, requester StudentIdentity) Verdict {
	readCtx, cancel := context.WithTimeout(ctx, s.repoTimeout)
	defer cancel()

	// Rule 1: existence. A repository failure is transient and retryable; a
	// missing event is terminal for this token.
	event, err := s.events.Get(readCtx, token.EventID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return reject(nil, Rejection{
				Reason:  ReasonEventNotFound,
				Message: "this QR code does not match any event",
			})
		}
		s.logger.ErrorContext(ctx, "event lookup failed",
			"event_id", token.EventID,
			"error", err,
		)
		return reject(nil, Rejection{
			Reason:  ReasonValidationError,
			Message: "could not verify the event right now; please try again",
		})
	}

	return evaluateRules(ruleInput{
		event:             event,
		token:             token,
		fix:               fix,
		requester:         requester,
		now:               s.now(ctx),
		accuracyThreshold: s.accuracyThreshold,
	})
}

// now prefers the request-scoped timestamp so every rule in one scan sees the
// same instant regardless of how long earlier rules took.
func (s *Service) now(ctx context.Context) time.Time {
	if t, ok := requestcontext.Time(ctx); ok {
		return t
	}
	return s.clock()
}

// Scan is the full engine run for one decoded QR string: decode, gather scan
// inputs, validate, and commit on approval. The rule chain itself is strictly
// sequential; only input gathering (identity lookup and, when no fix
// accompanies the request, the device location read) runs concurrently.
func (s *Service) Scan(ctx context.Context, raw string, fix *LocationFix, studentID string) Verdict {
	start := s.clock()
	verdict := s.scan(ctx, raw, fix, studentID)
	s.observe(ctx, verdict, s.clock().Sub(start))
	return verdict
}

func (s *Service) scan(ctx context.Context, raw string, fix *LocationFix, studentID string) Verdict {
	token, err := DecodeToken(raw)
	if err != nil {
		return reject(nil, Rejection{
			Reason:  ReasonMalformedToken,
			Message: "this QR code is not a valid attendance code",
		})
	}

	var (
		requester StudentIdentity
		fixErr    error
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		identity, err := s.identity.CurrentStudent(gCtx, studentID)
		if err != nil {
			return err
		}
		requester = identity
		return nil
	})
	if fix == nil && s.location != nil {
		g.Go(func() error {
			fixCtx, cancel := context.WithTimeout(gCtx, s.locationTimeout)
			defer cancel()
			acquired, err := s.location.CurrentFix(fixCtx)
			if err != nil {
				// Missing location is only fatal for geofenced events, which
				// is not known yet. Remember the cause and keep going.
				fixErr = err
				return nil
			}
			fix = acquired
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return reject(nil, Rejection{
			Reason:  ReasonProfileIncomplete,
			Message: "your student profile is missing details required for attendance; update it and rescan",
		})
	}
	if !requester.Complete() {
		return reject(nil, Rejection{
			Reason:  ReasonProfileIncomplete,
			Message: "your student profile is missing details required for attendance; update it and rescan",
		})
	}

	verdict := s.Validate(ctx, token, fix, requester)
	if !verdict.Approved {
		// A geofenced event that never got a fix reports why the fix is
		// missing when the device refused outright.
		if verdict.Rejection.Reason == ReasonLocationUnavailable &&
			errors.Is(fixErr, sentinel.ErrPermissionDenied) {
			verdict.Rejection.Reason = ReasonPermissionDenied
			verdict.Rejection.Message = "location permission is required for this event; enable it and rescan"
		}
		return verdict
	}

	record, result, err := s.recorder.Record(ctx, verdict.Event, requester, token, fix)
	if err != nil {
		return reject(verdict.Event, Rejection{
			Reason:  ReasonCommitFailed,
			Message: "your attendance could not be saved; please rescan",
		})
	}
	if result == AppendAlreadyPresent {
		// Lost the race against a concurrent scan by the same student. The
		// stored record stands; this attempt reports as a duplicate.
		return reject(verdict.Event, Rejection{
			Reason:  ReasonAlreadyAttended,
			Message: "your attendance for this event is already recorded",
		})
	}
	verdict.Record = &record
	return verdict
}

// IssueToken builds the display token for an event at QR-render time and
// returns it alongside its encoded payload.
func (s *Service) IssueToken(ctx context.Context, eventID string) (Token, string, error) {
	readCtx, cancel := context.WithTimeout(ctx, s.repoTimeout)
	defer cancel()

	event, err := s.events.Get(readCtx, eventID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Token{}, "", dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return Token{}, "", dErrors.Wrap(dErrors.CodeUnavailable, "could not load the event", err)
	}

	token := EncodeToken(event, s.now(ctx))
	raw, err := token.Encode()
	if err != nil {
		return Token{}, "", dErrors.Wrap(dErrors.CodeInternal, "could not encode token", err)
	}
	return token, raw, nil
}

func (s *Service) observe(ctx context.Context, verdict Verdict, elapsed time.Duration) {
	s.metrics.ObserveScanLatency(elapsed)
	if verdict.Approved {
		s.metrics.IncrementVerdict("approved", "")
		return
	}
	reason := string(verdict.Rejection.Reason)
	s.metrics.IncrementVerdict("rejected", reason)
	s.logger.InfoContext(ctx, "scan rejected",
		"reason", reason,
		"retryable", verdict.Rejection.Reason.Retryable(),
	)
}
