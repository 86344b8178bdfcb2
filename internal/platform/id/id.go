// Package id generates identifiers for rooms, sessions and audit records.
package id

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// RoomIDLength is the number of characters in a room identifier.
const RoomIDLength = 8

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewID returns a random UUIDv4 encoded as 26 lowercase base32 characters.
func NewID() (string, error) {
	value, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return strings.ToLower(encoding.EncodeToString(value[:])), nil
}

// NewRoomID returns the first eight hex characters of a random UUIDv4.
// Room ids are short enough to read aloud, so callers must check for
// collisions before use.
func NewRoomID() (string, error) {
	value, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return value.String()[:RoomIDLength], nil
}
