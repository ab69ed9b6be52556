package app

import "github.com/dkeye/Televisit/internal/domain"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// FrameKind tells a policy what was lost.
type FrameKind int

const (
	ControlFrame FrameKind = iota
	TelemetryFrame
)

type Policy interface {
	OnBackPressure(room domain.RoomName, conn domain.ConnID, kind FrameKind) BackpressureAction
}

// SimplePolicy drops whatever does not fit in a full send buffer. Dead
// connections are left to ping/pong liveness.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(_ domain.RoomName, _ domain.ConnID, kind FrameKind) BackpressureAction {
	switch kind {
	case TelemetryFrame, ControlFrame:
		return DropFrame
	}
	return NoAction
}
