package auth

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/waabox/councildeck/internal/domain"
)

// Messages shown in the error overlay.
const (
	msgStatusFailed   = "Could not load Copilot status. Is the council backend running?"
	msgStartFailed    = "Could not start authentication. Please try again."
	msgVerifyRejected = "Authentication failed or expired"
	msgVerifyFailed   = "Verification timed out or failed. Please try again."
	msgLogoutFailed   = "Logout failed. You are still connected."
)

// State is the visible state of the authentication flow.
type State int

const (
	StateIdle State = iota
	StateAuthenticating
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Service is the subset of the council backend the coordinator drives.
// *council.Client satisfies it.
type Service interface {
	GetStatus(ctx context.Context) (domain.AuthStatus, error)
	StartAuth(ctx context.Context) (domain.DeviceFlow, error)
	PollToken(ctx context.Context, deviceCode string) (domain.PollResult, error)
	Logout(ctx context.Context) error
}

// Observer receives the latest AuthStatus every time the coordinator replaces it.
type Observer func(domain.AuthStatus)

// Snapshot is a point-in-time copy of the coordinator's visible state.
type Snapshot struct {
	State     State
	Status    domain.AuthStatus
	Flow      *domain.DeviceFlow
	Err       string
	Verifying bool
}

// Coordinator owns the Copilot authentication status and the device flow.
// Remote failures never escape it: they become the error overlay in Snapshot.Err.
// Its methods only return *domain.FlowError values, for transitions the current state forbids.
type Coordinator struct {
	svc         Service
	observer    Observer
	pollTimeout time.Duration
	log         zerolog.Logger

	mu        sync.Mutex
	status    domain.AuthStatus
	flow      *domain.DeviceFlow
	flowSeq   uint64 // bumped whenever flow is replaced or dropped
	errMsg    string
	verifying bool
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithObserver registers the single status observer.
func WithObserver(o Observer) CoordinatorOption {
	return func(c *Coordinator) { c.observer = o }
}

// WithPollTimeout bounds each verification request on the client side.
// Zero leaves the wait entirely to the backend.
func WithPollTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) { c.pollTimeout = d }
}

// WithLogger installs a structured logger.
func WithLogger(l zerolog.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.log = l }
}

// NewCoordinator creates a Coordinator in the idle state.
func NewCoordinator(svc Service, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{svc: svc, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns the current visible state.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Coordinator) snapshotLocked() Snapshot {
	s := Snapshot{
		Status:    copyStatus(c.status),
		Err:       c.errMsg,
		Verifying: c.verifying,
	}
	switch {
	case c.status.Authenticated:
		s.State = StateAuthenticated
	case c.flow != nil:
		s.State = StateAuthenticating
		f := *c.flow
		s.Flow = &f
	default:
		s.State = StateIdle
	}
	return s
}

func (c *Coordinator) stateLocked() State {
	return c.snapshotLocked().State
}

// RefreshStatus queries the backend for the current status and replaces the stored one.
// On failure the previous state is kept and the overlay is set.
func (c *Coordinator) RefreshStatus(ctx context.Context) error {
	status, err := c.svc.GetStatus(ctx)

	c.mu.Lock()
	if err != nil {
		c.errMsg = msgStatusFailed
		c.mu.Unlock()
		c.log.Warn().Err(err).Msg("status query failed")
		return nil
	}
	c.status = status
	if status.Authenticated && c.flow != nil {
		c.flow = nil
		c.flowSeq++
	}
	c.errMsg = ""
	c.mu.Unlock()

	c.log.Info().Bool("authenticated", status.Authenticated).Int("models", len(status.AvailableModels)).Msg("status refreshed")
	c.notify(status)
	return nil
}

// BeginAuth requests a new device flow. Only valid when idle.
func (c *Coordinator) BeginAuth(ctx context.Context) error {
	c.mu.Lock()
	if c.stateLocked() != StateIdle {
		c.mu.Unlock()
		return domain.ErrNotIdle
	}
	c.mu.Unlock()

	flow, err := c.svc.StartAuth(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.errMsg = msgStartFailed
		c.log.Warn().Err(err).Msg("starting device flow failed")
		return nil
	}
	if c.stateLocked() != StateIdle {
		// another transition won the race; this flow is abandoned
		c.log.Debug().Msg("discarding device flow started outside idle state")
		return nil
	}
	c.flow = &flow
	c.flowSeq++
	c.errMsg = ""
	c.log.Info().Str("verification_uri", flow.VerificationURI).Msg("device flow started")
	return nil
}

// Verify submits the pending device code and waits for the backend's verdict.
// It returns ErrNoPendingFlow, leaving everything untouched, when no device code is live,
// and ErrVerifyInProgress while another Verify is outstanding.
func (c *Coordinator) Verify(ctx context.Context) error {
	c.mu.Lock()
	if c.flow == nil || c.flow.DeviceCode == "" {
		c.mu.Unlock()
		return domain.ErrNoPendingFlow
	}
	if c.verifying {
		c.mu.Unlock()
		return domain.ErrVerifyInProgress
	}
	c.verifying = true
	deviceCode := c.flow.DeviceCode
	seq := c.flowSeq
	c.mu.Unlock()

	pollCtx := ctx
	if c.pollTimeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, c.pollTimeout)
		defer cancel()
	}
	result, err := c.svc.PollToken(pollCtx, deviceCode)

	c.mu.Lock()
	c.verifying = false
	stale := seq != c.flowSeq
	switch {
	case err != nil:
		c.log.Warn().Err(err).Bool("stale", stale).Msg("verification request failed")
		if !stale {
			c.errMsg = msgVerifyFailed
		}
		c.mu.Unlock()
		return nil
	case !result.Success:
		c.log.Info().Str("message", result.Message).Bool("stale", stale).Msg("verification rejected")
		if !stale {
			c.errMsg = result.Message
			if c.errMsg == "" {
				c.errMsg = msgVerifyRejected
			}
		}
		c.mu.Unlock()
		return nil
	}
	// The backend now holds credentials even if this flow was cancelled meanwhile.
	if !stale {
		c.flow = nil
		c.flowSeq++
		c.errMsg = ""
	}
	c.mu.Unlock()

	// the poll bound does not apply to the follow-up status query
	c.log.Info().Msg("device flow authorized")
	return c.RefreshStatus(ctx)
}

// Cancel discards the pending device flow and returns to idle.
// It does not abort an outstanding verification request.
func (c *Coordinator) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.flow == nil {
		return domain.ErrNoPendingFlow
	}
	c.flow = nil
	c.flowSeq++
	c.errMsg = ""
	c.log.Info().Msg("device flow cancelled")
	return nil
}

// Logout clears the backend credentials. Only valid when authenticated.
// On failure the authenticated state is kept and the status is not re-queried.
func (c *Coordinator) Logout(ctx context.Context) error {
	c.mu.Lock()
	if !c.status.Authenticated {
		c.mu.Unlock()
		return domain.ErrNotAuthenticated
	}
	c.mu.Unlock()

	if err := c.svc.Logout(ctx); err != nil {
		c.mu.Lock()
		c.errMsg = msgLogoutFailed
		c.mu.Unlock()
		c.log.Warn().Err(err).Msg("logout failed")
		return nil
	}

	c.mu.Lock()
	c.status = domain.AuthStatus{}
	c.errMsg = ""
	c.mu.Unlock()

	c.log.Info().Msg("logged out")
	c.notify(domain.AuthStatus{})
	return nil
}

func (c *Coordinator) notify(status domain.AuthStatus) {
	if c.observer != nil {
		c.observer(copyStatus(status))
	}
}

func copyStatus(s domain.AuthStatus) domain.AuthStatus {
	if s.AvailableModels != nil {
		s.AvailableModels = append([]domain.ModelDescriptor(nil), s.AvailableModels...)
	}
	return s
}
