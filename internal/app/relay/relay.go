// Package relay pairs a doctor connection with a patient connection per
// analysis room and forwards the patient's telemetry to the doctor.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
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
)

var (
	ErrSessionActive    = errors.New("session already active")
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionNotActive = errors.New("session not active")
)

type Option func(*Relay)

func WithRetention(d time.Duration) Option {
	return func(r *Relay) { r.retention = d }
}

func WithSweepInterval(d time.Duration) Option {
	return func(r *Relay) { r.sweepEvery = d }
}

func WithPolicy(p app.Policy) Option {
	return func(r *Relay) { r.policy = p }
}

// Relay owns the analysis-session registry and the per-room broadcast groups.
// Every handler runs under mu, so events are applied one at a time and in
// receipt order for each connection.
type Relay struct {
	clock      core.Clock
	policy     app.Policy
	retention  time.Duration
	sweepEvery time.Duration

	mu       sync.Mutex
	sessions map[domain.RoomName]*domain.AnalysisSession
	groups   map[domain.RoomName]*core.Group
	conns    map[domain.ConnID]core.SignalConnection

	janitor *app.Janitor
}

func New(clock core.Clock, opts ...Option) *Relay {
	r := &Relay{
		clock:      clock,
		policy:     app.SimplePolicy{},
		retention:  DefaultRetention,
		sweepEvery: DefaultSweepInterval,
		sessions:   make(map[domain.RoomName]*domain.AnalysisSession),
		groups:     make(map[domain.RoomName]*core.Group),
		conns:      make(map[domain.ConnID]core.SignalConnection),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.janitor = app.NewJanitor("relay", clock, r.sweepEvery, r.CleanupOldSessions)
	return r
}

// Attach registers a live connection so events can be addressed to it.
func (r *Relay) Attach(id domain.ConnID, conn core.SignalConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[id] = conn
	log.Info().Str("module", "app.relay").Str("conn", string(id)).Msg("client connected")
}

// CreateSession opens, or reactivates, the doctor side of room.
func (r *Relay) CreateSession(id domain.ConnID, room domain.RoomName, doctorIdentity string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	log.Info().Str("module", "app.relay").Str("room", string(room)).Str("doctor", doctorIdentity).Msg("creating session")

	if sess, ok := r.sessions[room]; ok {
		if sess.IsActive {
			r.reply(id, ErrorEvent{Type: EvSessionError, Message: MsgSessionActive})
			return ErrSessionActive
		}
		if sess.CreatorConnectionID != id {
			r.group(room).Remove(sess.CreatorConnectionID)
		}
		sess.CreatorConnectionID = id
		sess.IsActive = true
		r.join(room, id)
		r.reply(id, SessionCreated{
			Type:             EvSessionCreated,
			RoomName:         room,
			SessionCode:      string(room),
			PatientConnected: sess.HasJoiner(),
		})
		log.Info().Str("module", "app.relay").Str("room", string(room)).Bool("patient", sess.HasJoiner()).Msg("session reactivated")
		return nil
	}

	r.sessions[room] = &domain.AnalysisSession{
		RoomName:            room,
		CreatorConnectionID: id,
		CreatorIdentity:     doctorIdentity,
		CreatedAt:           r.clock.Now(),
		IsActive:            true,
	}
	r.join(room, id)
	r.reply(id, SessionCreated{
		Type:        EvSessionCreated,
		RoomName:    room,
		SessionCode: string(room),
	})
	log.Info().Str("module", "app.relay").Str("room", string(room)).Msg("session created")
	return nil
}

// JoinSession attaches the patient side to an active room.
func (r *Relay) JoinSession(id domain.ConnID, room domain.RoomName, patientIdentity string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	log.Info().Str("module", "app.relay").Str("room", string(room)).Str("patient", patientIdentity).Msg("patient joining")

	sess, ok := r.sessions[room]
	if !ok {
		r.reply(id, ErrorEvent{Type: EvJoinError, Message: MsgSessionNotFound})
		return ErrSessionNotFound
	}
	if !sess.IsActive {
		r.reply(id, ErrorEvent{Type: EvJoinError, Message: MsgSessionNotActive})
		return ErrSessionNotActive
	}

	if prev := sess.JoinerConnectionID; prev != "" && prev != id {
		r.group(room).Remove(prev)
		log.Warn().Str("module", "app.relay").Str("room", string(room)).Str("conn", string(prev)).Msg("replacing previous patient connection")
	}
	sess.JoinerConnectionID = id
	sess.JoinerIdentity = patientIdentity
	r.join(room, id)

	r.reply(id, SessionJoined{
		Type:           EvSessionJoined,
		RoomName:       room,
		DoctorIdentity: sess.CreatorIdentity,
	})
	r.broadcast(room, id, PatientConnected{Type: EvPatientConnected, PatientIdentity: patientIdentity}, app.ControlFrame)

	log.Info().Str("module", "app.relay").Str("room", string(room)).Str("patient", patientIdentity).Msg("patient joined")
	return nil
}

// Telemetry forwards payload from the room's patient to the other members.
// Anything else is dropped silently.
func (r *Relay) Telemetry(id domain.ConnID, room domain.RoomName, payload json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[room]
	if !ok || !sess.IsActive || sess.JoinerConnectionID != id {
		return
	}
	r.broadcast(room, id, TelemetryUpdate{Type: EvTelemetryUpdate, Payload: payload}, app.TelemetryFrame)
}

// EndSession deactivates room and tells everyone in it. The record is kept
// so the doctor can resume.
func (r *Relay) EndSession(_ domain.ConnID, room domain.RoomName) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[room]
	if !ok {
		log.Warn().Str("module", "app.relay").Str("room", string(room)).Msg("end for unknown session")
		return
	}
	r.end(sess)
}

// Disconnect handles a transport-level drop of id.
func (r *Relay) Disconnect(id domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	log.Info().Str("module", "app.relay").Str("conn", string(id)).Msg("client disconnected")

	for room, sess := range r.sessions {
		switch id {
		case sess.CreatorConnectionID:
			log.Info().Str("module", "app.relay").Str("room", string(room)).Msg("doctor disconnected")
			r.end(sess)
			r.group(room).Remove(id)
		case sess.JoinerConnectionID:
			log.Info().Str("module", "app.relay").Str("room", string(room)).Msg("patient disconnected")
			sess.JoinerConnectionID = ""
			sess.JoinerIdentity = ""
			r.group(room).Remove(id)
			r.broadcast(room, "", PatientDisconnected{Type: EvPatientDisconnected}, app.ControlFrame)
		}
	}
	for _, g := range r.groups {
		g.Remove(id)
	}
	delete(r.conns, id)
}

// Pong answers a client keep-alive.
func (r *Relay) Pong(id domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reply(id, struct {
		Type EventType `json:"type"`
	}{Type: EvPong})
}

// Reply sends an event to a single connection. Used by adapters to surface
// validation errors on the same channel.
func (r *Relay) Reply(id domain.ConnID, v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reply(id, v)
}

// CleanupOldSessions removes inactive records older than the retention window.
func (r *Relay) CleanupOldSessions() {
	cutoff := r.clock.Now().Add(-r.retention)

	r.mu.Lock()
	defer r.mu.Unlock()
	for room, sess := range r.sessions {
		if !sess.IsActive && sess.CreatedAt.Before(cutoff) {
			delete(r.sessions, room)
			delete(r.groups, room)
			log.Info().Str("module", "app.relay").Str("room", string(room)).Msg("cleaned up old session")
		}
	}
}

// Session returns a copy of the record for room.
func (r *Relay) Session(room domain.RoomName) (domain.AnalysisView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[room]
	if !ok {
		return domain.AnalysisView{}, false
	}
	return sess.View(), true
}

// ActiveSessions lists every record with an attached doctor, by room name.
func (r *Relay) ActiveSessions() []domain.AnalysisView {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AnalysisView, 0, len(r.sessions))
	for _, sess := range r.sessions {
		if sess.IsActive {
			out = append(out, sess.View())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomName < out[j].RoomName })
	return out
}

func (r *Relay) Start(ctx context.Context) { r.janitor.Start(ctx) }
func (r *Relay) Stop()                     { r.janitor.Stop() }

// end marks sess inactive and tells the room. Must hold r.mu.
func (r *Relay) end(sess *domain.AnalysisSession) {
	sess.IsActive = false
	r.broadcast(sess.RoomName, "", SessionEnded{Type: EvSessionEnded, RoomName: sess.RoomName}, app.ControlFrame)
	log.Info().Str("module", "app.relay").Str("room", string(sess.RoomName)).Msg("session ended")
}

func (r *Relay) group(room domain.RoomName) *core.Group {
	g, ok := r.groups[room]
	if !ok {
		g = core.NewGroup(room)
		r.groups[room] = g
	}
	return g
}

func (r *Relay) join(room domain.RoomName, id domain.ConnID) {
	conn, ok := r.conns[id]
	if !ok {
		log.Warn().Str("module", "app.relay").Str("conn", string(id)).Msg("join for unattached connection")
		return
	}
	r.group(room).Add(id, conn)
}

func (r *Relay) reply(id domain.ConnID, v any) {
	conn, ok := r.conns[id]
	if !ok {
		return
	}
	frame, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Msg("marshal event")
		return
	}
	if err := conn.TrySend(frame); err != nil {
		r.backpressure("", id, app.ControlFrame, err)
	}
}

func (r *Relay) broadcast(room domain.RoomName, except domain.ConnID, v any, kind app.FrameKind) {
	g, ok := r.groups[room]
	if !ok {
		return
	}
	frame, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Msg("marshal event")
		return
	}
	res := g.Broadcast(except, frame)
	for _, slow := range res.Dropped {
		r.backpressure(room, slow, kind, nil)
	}
}

func (r *Relay) backpressure(room domain.RoomName, id domain.ConnID, kind app.FrameKind, err error) {
	if r.policy == nil {
		return
	}
	switch r.policy.OnBackPressure(room, id, kind) {
	case app.KickMember:
		log.Warn().Err(err).Str("module", "app.relay").Str("room", string(room)).Str("conn", string(id)).Msg("kicking slow connection")
		if conn, ok := r.conns[id]; ok {
			conn.Close()
		}
	case app.DropFrame:
		log.Debug().Str("module", "app.relay").Str("room", string(room)).Str("conn", string(id)).Msg("frame dropped")
	case app.NoAction:
	}
}
