package domain

import "time"

// SessionState is derived from an AnalysisSession record, never stored.
type SessionState int

const (
	StateAbsent SessionState = iota
	StateCreatedWaiting
	StatePairedActive
	StateEndedInactive
)

func (s SessionState) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateCreatedWaiting:
		return "created-waiting"
	case StatePairedActive:
		return "paired-active"
	case StateEndedInactive:
		return "ended-inactive"
	}
	return "unknown"
}

func (s SessionState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// AnalysisSession pairs a doctor connection with a patient connection.
type AnalysisSession struct {
	RoomName            RoomName  `json:"roomName"`
	CreatorConnectionID ConnID    `json:"creatorConnectionId"`
	CreatorIdentity     string    `json:"creatorIdentity"`
	JoinerConnectionID  ConnID    `json:"joinerConnectionId,omitempty"`
	JoinerIdentity      string    `json:"joinerIdentity,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
	IsActive            bool      `json:"isActive"`
}

func (s *AnalysisSession) HasJoiner() bool { return s.JoinerConnectionID != "" }

func (s *AnalysisSession) State() SessionState {
	if s == nil {
		return StateAbsent
	}
	switch {
	case !s.IsActive:
		return StateEndedInactive
	case s.HasJoiner():
		return StatePairedActive
	default:
		return StateCreatedWaiting
	}
}

// View is the read-only shape handed to reporting endpoints.
type AnalysisView struct {
	AnalysisSession
	State SessionState `json:"state"`
}

func (s *AnalysisSession) View() AnalysisView {
	return AnalysisView{AnalysisSession: *s, State: s.State()}
}
