package relay

import (
	"encoding/json"

	"github.com/dkeye/Televisit/internal/domain"
)

// EventType names a message on the telemedicine channel.
type EventType string

// Client -> server.
const (
	EvCreateSession EventType = "create-session"
	EvJoinSession   EventType = "join-session"
	EvTelemetry     EventType = "telemetry"
	EvEndSession    EventType = "end-session"
	EvPing          EventType = "ping"
)

// Server -> client.
const (
	EvSessionCreated      EventType = "session-created"
	EvSessionError        EventType = "session-error"
	EvSessionJoined       EventType = "session-joined"
	EvJoinError           EventType = "join-error"
	EvPatientConnected    EventType = "patient-connected"
	EvTelemetryUpdate     EventType = "telemetry-update"
	EvSessionEnded        EventType = "session-ended"
	EvPatientDisconnected EventType = "patient-disconnected"
	EvPong                EventType = "pong"
)

// Client-facing error messages.
const (
	MsgSessionActive    = "Session already active"
	MsgSessionNotFound  = "Session not found"
	MsgSessionNotActive = "Session not active"
)

type SessionCreated struct {
	Type             EventType       `json:"type"`
	RoomName         domain.RoomName `json:"roomName"`
	SessionCode      string          `json:"sessionCode"`
	PatientConnected bool            `json:"patientConnected"`
}

type ErrorEvent struct {
	Type    EventType `json:"type"`
	Message string    `json:"message"`
}

type SessionJoined struct {
	Type           EventType       `json:"type"`
	RoomName       domain.RoomName `json:"roomName"`
	DoctorIdentity string          `json:"doctorIdentity"`
}

type PatientConnected struct {
	Type            EventType `json:"type"`
	PatientIdentity string    `json:"patientIdentity"`
}

type TelemetryUpdate struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type SessionEnded struct {
	Type     EventType       `json:"type"`
	RoomName domain.RoomName `json:"roomName"`
}

type PatientDisconnected struct {
	Type EventType `json:"type"`
}
