// Package domain contains entities without logic, just meta-data
package domain

import (
	"errors"
	"strings"
)

const (
	MaxRoomNameLen = 128
	MaxIdentityLen = 128
)

var (
	ErrRoomNameEmpty   = errors.New("roomName is required")
	ErrRoomNameTooLong = errors.New("roomName too long")
	ErrIdentityEmpty   = errors.New("identity is required")
	ErrIdentityTooLong = errors.New("identity too long")
)

type (
	RoomName string
	// ConnID identifies one transport-level connection.
	ConnID string
)

func NewRoomName(raw string) (RoomName, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrRoomNameEmpty
	}
	if len(raw) > MaxRoomNameLen {
		return "", ErrRoomNameTooLong
	}
	return RoomName(raw), nil
}

func ValidateIdentity(identity string) error {
	if strings.TrimSpace(identity) == "" {
		return ErrIdentityEmpty
	}
	if len(identity) > MaxIdentityLen {
		return ErrIdentityTooLong
	}
	return nil
}
