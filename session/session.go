// Package session replaces a process-wide network manager with an explicit
// object that is created at session start, threaded through every controller
// constructor, and torn down at session end.
package session

import (
	"errors"
	"time"

	"github.com/MekelWibi/SumoProjectKP/shared/messages"
	"github.com/MekelWibi/SumoProjectKP/shared/netconfig"
	"github.com/rs/zerolog"
)

// ErrClosed is returned for requests sent after Close.
var ErrClosed = errors.New("session closed")

// Sender delivers an outbound message to the authority. network.Client
// satisfies it; tests use an in-memory recorder.
type Sender interface {
	SendMessage(msg any) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(msg any) error

func (f SenderFunc) SendMessage(msg any) error { return f(msg) }

// Session is the per-process context of one game session: role, simulated
// clock, the delayed-continuation scheduler and the outbound request channel.
// It is owned by a single tick loop and is not safe for concurrent use.
type Session struct {
	role    netconfig.Role
	clock   time.Duration
	sched   *Scheduler
	out     Sender
	log     zerolog.Logger
	started bool
	closed  bool
}

// New creates a session for the given role. out may be nil for the authority,
// which never sends requests.
func New(role netconfig.Role, out Sender, log zerolog.Logger) *Session {
	return &Session{
		role:  role,
		sched: NewScheduler(),
		out:   out,
		log:   log.With().Str("role", role.String()).Logger(),
	}
}

func (s *Session) Role() netconfig.Role   { return s.role }
func (s *Session) Scheduler() *Scheduler  { return s.sched }
func (s *Session) Logger() zerolog.Logger { return s.log }
func (s *Session) Now() time.Duration     { return s.clock }
func (s *Session) Started() bool          { return s.started && !s.closed }
func (s *Session) IsAuthority() bool      { return s.role == netconfig.RoleAuthority }
func (s *Session) SetSender(out Sender)   { s.out = out }

// Start marks the session live. Ticks before Start do not advance the clock.
func (s *Session) Start() {
	if s.started {
		return
	}
	s.started = true
	s.log.Info().Msg("session started")
}

// Tick advances the clock by dt and fires every scheduled entry that became due.
func (s *Session) Tick(dt time.Duration) {
	if !s.started || s.closed {
		return
	}
	s.clock += dt
	s.sched.Advance(s.clock)
}

// Request sends req to the authority without waiting for an acknowledgement.
// Failures are logged; the caller's optimistic state stays in place until an
// authoritative broadcast overrides it.
func (s *Session) Request(req messages.Request) error {
	if s.closed {
		return ErrClosed
	}
	if s.out == nil {
		s.log.Debug().Str("kind", req.Kind().String()).Msg("no outbound channel, request dropped")
		return nil
	}
	if err := s.out.SendMessage(req); err != nil {
		s.log.Warn().Err(err).Str("kind", req.Kind().String()).Msg("request not delivered")
		return err
	}
	return nil
}

// Close cancels all pending timers and stops outbound requests. Possession
// that should end because of the teardown is the authority's job, not ours.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	pending := s.sched.Len()
	s.sched.CancelAll()
	s.log.Info().Int("pendingTimers", pending).Msg("session closed")
}
