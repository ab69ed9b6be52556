// Package presence detects when both parties have left a video room and
// sends a single completion report for it.
package presence

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/Televisit/internal/app"
	"github.com/dkeye/Televisit/internal/core"
	"github.com/dkeye/Televisit/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	DefaultRetention     = 24 * time.Hour
	DefaultSweepInterval = time.Hour
	DefaultDispatchWait  = 30 * time.Second
)

// DispatchResult is handed to the dispatch hook after every report attempt.
type DispatchResult struct {
	Room      domain.RoomName
	Recipient string
	Report    string
	Result    core.SendResult
	Err       error
}

type Option func(*Tracker)

func WithRecipient(recipient string) Option {
	return func(t *Tracker) { t.recipient = recipient }
}

func WithRetention(d time.Duration) Option {
	return func(t *Tracker) { t.retention = d }
}

func WithSweepInterval(d time.Duration) Option {
	return func(t *Tracker) { t.sweepEvery = d }
}

func WithLocation(loc *time.Location) Option {
	return func(t *Tracker) { t.loc = loc }
}

// WithDispatchHook observes report dispatch outcomes.
func WithDispatchHook(fn func(DispatchResult)) Option {
	return func(t *Tracker) { t.onDispatch = fn }
}

// Tracker owns the per-room presence registry.
type Tracker struct {
	clock      core.Clock
	notifier   core.Notifier
	recipient  string
	retention  time.Duration
	sweepEvery time.Duration
	loc        *time.Location
	onDispatch func(DispatchResult)

	mu       sync.Mutex
	sessions map[domain.RoomName]*domain.PresenceSession

	inflight sync.WaitGroup
	janitor  *app.Janitor
}

func New(clock core.Clock, notifier core.Notifier, opts ...Option) *Tracker {
	t := &Tracker{
		clock:      clock,
		notifier:   notifier,
		retention:  DefaultRetention,
		sweepEvery: DefaultSweepInterval,
		loc:        time.UTC,
		sessions:   make(map[domain.RoomName]*domain.PresenceSession),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.janitor = app.NewJanitor("presence", clock, t.sweepEvery, t.CleanOldSessions)
	return t
}

// TrackConnected records that identity joined room.
// A reconnect clears the participant's previous disconnect and any
// completion mark on the room.
func (t *Tracker) TrackConnected(room domain.RoomName, identity string, role domain.Role) {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	sess, ok := t.sessions[room]
	if !ok {
		sess = domain.NewPresenceSession(room, now)
		t.sessions[room] = sess
	}
	if _, seen := sess.Participants[identity]; !seen {
		sess.Order = append(sess.Order, identity)
	}
	// room is live again
	sess.CompletedAt = nil
	sess.Participants[identity] = &domain.Participant{
		Identity:    identity,
		Role:        role,
		ConnectedAt: now,
	}
	log.Info().
		Str("module", "app.presence").
		Str("room", string(room)).
		Str("identity", identity).
		Stringer("role", role).
		Int("participants", len(sess.Participants)).
		Msg("participant connected")
}

// TrackDisconnected records that identity left room and, when the room is
// fully vacated, starts the one-time completion report.
func (t *Tracker) TrackDisconnected(room domain.RoomName, identity string) {
	now := t.clock.Now()

	t.mu.Lock()
	sess, ok := t.sessions[room]
	if !ok {
		t.mu.Unlock()
		log.Warn().Str("module", "app.presence").Str("room", string(room)).Str("identity", identity).Msg("disconnect for unknown room")
		return
	}

	if p, ok := sess.Participants[identity]; ok {
		p.DisconnectedAt = &now
	} else {
		log.Warn().Str("module", "app.presence").Str("room", string(room)).Str("identity", identity).Msg("disconnect for unknown participant")
	}
	log.Info().Str("module", "app.presence").Str("room", string(room)).Str("identity", identity).Msg("participant disconnected")

	if !sess.Complete() {
		t.mu.Unlock()
		return
	}

	report, ok := t.complete(sess, now)
	if !ok {
		t.mu.Unlock()
		return
	}
	delete(t.sessions, room)
	t.inflight.Add(1)
	t.mu.Unlock()

	go t.dispatch(room, report)
}

// complete marks sess done and renders its report. Must hold t.mu.
func (t *Tracker) complete(sess *domain.PresenceSession, now time.Time) (string, bool) {
	if sess.CompletedAt == nil {
		sess.CompletedAt = &now
	}
	doctor, hasDoctor := sess.FirstWithRole(domain.RoleDoctor)
	patient, hasPatient := sess.FirstWithRole(domain.RolePatient)
	if !hasDoctor || !hasPatient {
		log.Warn().
			Str("module", "app.presence").
			Str("room", string(sess.RoomName)).
			Bool("doctor", hasDoctor).
			Bool("patient", hasPatient).
			Msg("session incomplete: missing doctor or patient, no report")
		return "", false
	}
	log.Info().Str("module", "app.presence").Str("room", string(sess.RoomName)).Msg("all participants left, sending report")
	return FormatReport(sess, doctor, patient, now, t.loc), true
}

func (t *Tracker) dispatch(room domain.RoomName, report string) {
	defer t.inflight.Done()

	ctx, cancel := context.WithTimeout(context.Background(), DefaultDispatchWait)
	defer cancel()

	res, err := t.notifier.SendText(ctx, t.recipient, report)
	if err == nil && !res.Success {
		err = &SendError{Message: res.Error}
	}
	if err != nil {
		log.Error().Err(err).Str("module", "app.presence").Str("room", string(room)).Msg("report dispatch failed")
	} else {
		log.Info().Str("module", "app.presence").Str("room", string(room)).Str("message_id", res.ID).Msg("report sent")
	}
	if t.onDispatch != nil {
		t.onDispatch(DispatchResult{Room: room, Recipient: t.recipient, Report: report, Result: res, Err: err})
	}
}

// CleanOldSessions drops records older than the retention window,
// completed or not.
func (t *Tracker) CleanOldSessions() {
	cutoff := t.clock.Now().Add(-t.retention)

	t.mu.Lock()
	defer t.mu.Unlock()
	for name, sess := range t.sessions {
		if sess.CreatedAt.Before(cutoff) {
			delete(t.sessions, name)
			log.Info().Str("module", "app.presence").Str("room", string(name)).Msg("cleaned old session")
		}
	}
}

// Session returns a copy of the record for room.
func (t *Tracker) Session(room domain.RoomName) (domain.PresenceSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sess, ok := t.sessions[room]
	if !ok {
		return domain.PresenceSession{}, false
	}
	return sess.Clone(), true
}

func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

func (t *Tracker) Start(ctx context.Context) { t.janitor.Start(ctx) }

// Stop halts the sweep and waits for reports already being sent.
func (t *Tracker) Stop() {
	t.janitor.Stop()
	t.inflight.Wait()
}

// SendError carries a provider-reported failure without a transport error.
type SendError struct {
	Message string
}

func (e *SendError) Error() string {
	if e.Message == "" {
		return "notification not delivered"
	}
	return "notification not delivered: " + e.Message
}
