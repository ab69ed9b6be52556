// Package twilio implements core.VideoProvider on Twilio Programmable Video.
package twilio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/Televisit/internal/core"
	"github.com/rs/zerolog/log"
	"github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client/jwt"
	videoApi "github.com/twilio/twilio-go/rest/video/v1"
)

var ErrNotConfigured = errors.New("twilio credentials not configured")

// RoomAPI is the subset of the Video v1 REST service the provider calls.
type RoomAPI interface {
	CreateRoom(params *videoApi.CreateRoomParams) (*videoApi.VideoV1Room, error)
	FetchRoom(sid string) (*videoApi.VideoV1Room, error)
	UpdateRoom(sid string, params *videoApi.UpdateRoomParams) (*videoApi.VideoV1Room, error)
	ListRoomParticipant(roomSid string, params *videoApi.ListRoomParticipantParams) ([]videoApi.VideoV1RoomParticipant, error)
	UpdateRoomParticipant(roomSid string, sid string, params *videoApi.UpdateRoomParticipantParams) (*videoApi.VideoV1RoomParticipant, error)
}

type Credentials struct {
	AccountSID   string
	AuthToken    string
	APIKeySID    string
	APIKeySecret string
	TokenTTL     time.Duration
}

// Video issues access tokens and manages rooms.
type Video struct {
	creds Credentials
	rooms RoomAPI
}

func NewVideo(creds Credentials) *Video {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: creds.AccountSID,
		Password: creds.AuthToken,
	})
	return &Video{creds: creds, rooms: client.VideoV1}
}

// NewVideoWith is used with a custom room API, e.g. in tests.
func NewVideoWith(creds Credentials, rooms RoomAPI) *Video {
	return &Video{creds: creds, rooms: rooms}
}

func (v *Video) IssueAccessToken(identity, roomName string) (core.AccessToken, error) {
	if v.creds.AccountSID == "" || v.creds.APIKeySID == "" || v.creds.APIKeySecret == "" {
		return core.AccessToken{}, ErrNotConfigured
	}
	ttl := v.creds.TokenTTL
	if ttl <= 0 {
		ttl = 4 * time.Hour
	}
	token := jwt.CreateAccessToken(jwt.AccessTokenParams{
		AccountSid:    v.creds.AccountSID,
		SigningKeySid: v.creds.APIKeySID,
		Secret:        v.creds.APIKeySecret,
		Identity:      identity,
		Ttl:           ttl.Seconds(),
	})
	token.AddGrant(&jwt.VideoGrant{Room: roomName})

	signed, err := token.ToJwt()
	if err != nil {
		return core.AccessToken{}, fmt.Errorf("sign access token: %w", err)
	}
	log.Info().Str("module", "twilio").Str("identity", identity).Str("room", roomName).Msg("access token issued")
	return core.AccessToken{Token: signed, Identity: identity, RoomName: roomName}, nil
}

func (v *Video) CreateRoom(_ context.Context, roomName, roomType string) (core.VideoRoom, error) {
	if roomType == "" {
		roomType = "group"
	}
	params := &videoApi.CreateRoomParams{}
	params.SetUniqueName(roomName)
	params.SetType(roomType)

	room, err := v.rooms.CreateRoom(params)
	if err != nil {
		return core.VideoRoom{}, fmt.Errorf("create room %q: %w", roomName, err)
	}
	return toRoom(room), nil
}

func (v *Video) GetRoom(_ context.Context, roomName string) (core.VideoRoom, error) {
	room, err := v.rooms.FetchRoom(roomName)
	if err != nil {
		return core.VideoRoom{}, fmt.Errorf("fetch room %q: %w", roomName, err)
	}
	return toRoom(room), nil
}

func (v *Video) EndRoom(_ context.Context, roomName string) (core.VideoRoom, error) {
	params := &videoApi.UpdateRoomParams{}
	params.SetStatus("completed")

	room, err := v.rooms.UpdateRoom(roomName, params)
	if err != nil {
		return core.VideoRoom{}, fmt.Errorf("end room %q: %w", roomName, err)
	}
	return toRoom(room), nil
}

func (v *Video) ListParticipants(_ context.Context, roomName string) ([]core.VideoParticipant, error) {
	params := &videoApi.ListRoomParticipantParams{}
	params.SetStatus("connected")

	list, err := v.rooms.ListRoomParticipant(roomName, params)
	if err != nil {
		return nil, fmt.Errorf("list participants of %q: %w", roomName, err)
	}
	out := make([]core.VideoParticipant, 0, len(list))
	for i := range list {
		out = append(out, toParticipant(&list[i]))
	}
	return out, nil
}

func (v *Video) DisconnectParticipant(_ context.Context, roomName, participantSID string) (core.VideoParticipant, error) {
	params := &videoApi.UpdateRoomParticipantParams{}
	params.SetStatus("disconnected")

	p, err := v.rooms.UpdateRoomParticipant(roomName, participantSID, params)
	if err != nil {
		return core.VideoParticipant{}, fmt.Errorf("disconnect %q from %q: %w", participantSID, roomName, err)
	}
	return toParticipant(p), nil
}

func toRoom(r *videoApi.VideoV1Room) core.VideoRoom {
	if r == nil {
		return core.VideoRoom{}
	}
	out := core.VideoRoom{
		SID:        deref(r.Sid),
		UniqueName: deref(r.UniqueName),
		Status:     deref(r.Status),
		Type:       deref(r.Type),
	}
	if r.DateCreated != nil {
		out.DateCreated = *r.DateCreated
	}
	return out
}

func toParticipant(p *videoApi.VideoV1RoomParticipant) core.VideoParticipant {
	if p == nil {
		return core.VideoParticipant{}
	}
	return core.VideoParticipant{
		SID:      deref(p.Sid),
		Identity: deref(p.Identity),
		Status:   deref(p.Status),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
