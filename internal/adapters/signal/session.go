package signal

import (
	"encoding/json"

	"github.com/dkeye/Televisit/internal/app/relay"
	"github.com/dkeye/Televisit/internal/domain"
	"github.com/rs/zerolog/log"
)

const msgTooManyRequests = "Too many requests"

func (ctl *SignalWSController) replyError(conn *WsSignalConn, ev relay.EventType, msg string) {
	ctl.Relay.Reply(conn.id, relay.ErrorEvent{Type: ev, Message: msg})
}

func (ctl *SignalWSController) handleCreate(conn *WsSignalConn, data []byte) {
	var p struct {
		RoomName       string `json:"roomName"`
		DoctorIdentity string `json:"doctorIdentity"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "adapters.signal").Msg("bad create payload")
		ctl.replyError(conn, relay.EvSessionError, "bad_payload")
		return
	}
	room, err := domain.NewRoomName(p.RoomName)
	if err != nil {
		ctl.replyError(conn, relay.EvSessionError, err.Error())
		return
	}
	if err := domain.ValidateIdentity(p.DoctorIdentity); err != nil {
		ctl.replyError(conn, relay.EvSessionError, "doctorIdentity is required")
		return
	}
	if !ctl.limiter.Allow(conn.id) {
		ctl.replyError(conn, relay.EvSessionError, msgTooManyRequests)
		return
	}
	_ = ctl.Relay.CreateSession(conn.id, room, p.DoctorIdentity)
}

func (ctl *SignalWSController) handleJoin(conn *WsSignalConn, data []byte) {
	var p struct {
		RoomName        string `json:"roomName"`
		PatientIdentity string `json:"patientIdentity"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "adapters.signal").Msg("bad join payload")
		ctl.replyError(conn, relay.EvJoinError, "bad_payload")
		return
	}
	room, err := domain.NewRoomName(p.RoomName)
	if err != nil {
		ctl.replyError(conn, relay.EvJoinError, err.Error())
		return
	}
	if err := domain.ValidateIdentity(p.PatientIdentity); err != nil {
		ctl.replyError(conn, relay.EvJoinError, "patientIdentity is required")
		return
	}
	if !ctl.limiter.Allow(conn.id) {
		ctl.replyError(conn, relay.EvJoinError, msgTooManyRequests)
		return
	}
	_ = ctl.Relay.JoinSession(conn.id, room, p.PatientIdentity)
}

func (ctl *SignalWSController) handleTelemetry(conn *WsSignalConn, data []byte) {
	var p struct {
		RoomName string          `json:"roomName"`
		Payload  json.RawMessage `json:"payload"`
		PoseData json.RawMessage `json:"poseData"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	room, err := domain.NewRoomName(p.RoomName)
	if err != nil {
		return
	}
	payload := p.Payload
	if len(payload) == 0 {
		payload = p.PoseData
	}
	if len(payload) == 0 {
		return
	}
	ctl.Relay.Telemetry(conn.id, room, payload)
}

func (ctl *SignalWSController) handleEnd(conn *WsSignalConn, data []byte) {
	var p struct {
		RoomName string `json:"roomName"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "adapters.signal").Str("conn", string(conn.id)).Msg("bad end payload")
		return
	}
	room, err := domain.NewRoomName(p.RoomName)
	if err != nil {
		log.Warn().Err(err).Str("module", "adapters.signal").Str("conn", string(conn.id)).Msg("end with invalid roomName")
		return
	}
	ctl.Relay.EndSession(conn.id, room)
}
