package domain

import "time"

// Participant is one identity's presence in a video room.
type Participant struct {
	Identity       string     `json:"identity"`
	Role           Role       `json:"role"`
	ConnectedAt    time.Time  `json:"connectedAt"`
	DisconnectedAt *time.Time `json:"disconnectedAt,omitempty"`
}

func (p *Participant) Connected() bool { return p.DisconnectedAt == nil }

// PresenceSession tracks who is in a video room.
// Participants keep their first connect order for deterministic reports.
type PresenceSession struct {
	RoomName     RoomName                `json:"roomName"`
	Participants map[string]*Participant `json:"participants"`
	Order        []string                `json:"-"`
	CreatedAt    time.Time               `json:"createdAt"`
	CompletedAt  *time.Time              `json:"completedAt,omitempty"`
}

func NewPresenceSession(name RoomName, now time.Time) *PresenceSession {
	return &PresenceSession{
		RoomName:     name,
		Participants: make(map[string]*Participant),
		CreatedAt:    now,
	}
}

// Complete reports whether at least two participants were seen and all of them left.
func (s *PresenceSession) Complete() bool {
	if len(s.Participants) < 2 {
		return false
	}
	for _, p := range s.Participants {
		if p.Connected() {
			return false
		}
	}
	return true
}

// FirstWithRole returns the earliest connected participant holding role.
func (s *PresenceSession) FirstWithRole(role Role) (*Participant, bool) {
	for _, id := range s.Order {
		if p := s.Participants[id]; p != nil && p.Role == role {
			return p, true
		}
	}
	return nil, false
}

// Span returns the earliest connect and the latest disconnect.
func (s *PresenceSession) Span() (start, end time.Time) {
	for _, p := range s.Participants {
		if start.IsZero() || p.ConnectedAt.Before(start) {
			start = p.ConnectedAt
		}
		if p.DisconnectedAt != nil && p.DisconnectedAt.After(end) {
			end = *p.DisconnectedAt
		}
	}
	return start, end
}

// Clone returns a deep copy safe to hand out of the registry.
func (s *PresenceSession) Clone() PresenceSession {
	out := *s
	out.Participants = make(map[string]*Participant, len(s.Participants))
	for id, p := range s.Participants {
		cp := *p
		if p.DisconnectedAt != nil {
			t := *p.DisconnectedAt
			cp.DisconnectedAt = &t
		}
		out.Participants[id] = &cp
	}
	out.Order = append([]string(nil), s.Order...)
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	return out
}
