package id

import (
	"testing"
	"time"
)

func TestNewRoomIDFormat(t *testing.T) {
	roomID := NewRoomID(time.Now())
	if len(roomID) != 20 {
		t.Fatalf("expected 20-character id, got %d", len(roomID))
	}
	for _, r := range roomID {
		if (r < '0' || r > '9') && (r < 'a' || r > 'v') {
			t.Fatalf("unexpected character %q in id", r)
		}
	}
}

func TestNewRoomIDSortsByTime(t *testing.T) {
	base := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	earlier := NewRoomID(base)
	later := NewRoomID(base.Add(time.Second))
	if !(earlier < later) {
		t.Fatalf("expected %q < %q", earlier, later)
	}
}

func TestRoomIDTimeRoundTrip(t *testing.T) {
	base := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	got, err := RoomIDTime(NewRoomID(base))
	if err != nil {
		t.Fatalf("room id time: %v", err)
	}
	if !got.Equal(base) {
		t.Fatalf("RoomIDTime() = %v, want %v", got, base)
	}
}

func TestRoomIDTimeRejectsGarbage(t *testing.T) {
	if _, err := RoomIDTime("1712345678901"); err == nil {
		t.Fatal("expected parse error")
	}
}
