package core

import (
	"context"
	"time"
)

// AccessToken is an opaque credential a client uses to join a provider room.
type AccessToken struct {
	Token    string `json:"token"`
	Identity string `json:"identity"`
	RoomName string `json:"roomName"`
}

type VideoRoom struct {
	SID         string    `json:"sid"`
	UniqueName  string    `json:"uniqueName"`
	Status      string    `json:"status"`
	Type        string    `json:"type,omitempty"`
	DateCreated time.Time `json:"dateCreated,omitempty"`
}

type VideoParticipant struct {
	SID      string `json:"sid"`
	Identity string `json:"identity"`
	Status   string `json:"status"`
}

// VideoProvider is the external video-conferencing provider.
type VideoProvider interface {
	IssueAccessToken(identity, roomName string) (AccessToken, error)
	CreateRoom(ctx context.Context, roomName, roomType string) (VideoRoom, error)
	GetRoom(ctx context.Context, roomName string) (VideoRoom, error)
	EndRoom(ctx context.Context, roomName string) (VideoRoom, error)
	ListParticipants(ctx context.Context, roomName string) ([]VideoParticipant, error)
	DisconnectParticipant(ctx context.Context, roomName, participantSID string) (VideoParticipant, error)
}
