// Package id generates identifiers for records the state layer creates.
package id

import (
	"fmt"
	"time"

	"github.com/rs/xid"
)

// NewRoomID returns a room identifier derived from now.
//
// Identifiers sort in creation order, so lexical order over room ids matches
// the time the dashboard created them.
func NewRoomID(now time.Time) string {
	return xid.NewWithTime(now).String()
}

// RoomIDTime returns the creation time encoded in a room id from NewRoomID.
func RoomIDTime(roomID string) (time.Time, error) {
	parsed, err := xid.FromString(roomID)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse room id %q: %w", roomID, err)
	}
	return parsed.Time(), nil
}
