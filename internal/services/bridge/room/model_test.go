package room

import (
	"testing"
	"time"
)

func TestParseStrength(t *testing.T) {
	tests := map[string]Strength{
		"":        StrengthMedium,
		"none":    StrengthNone,
		"LOW":     StrengthLow,
		" high ":  StrengthHigh,
		"medium":  StrengthMedium,
		"extreme": StrengthMedium,
	}
	for raw, want := range tests {
		if got := ParseStrength(raw); got != want {
			t.Fatalf("ParseStrength(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestStrengthInterval(t *testing.T) {
	tests := map[Strength]int{
		StrengthNone:   0,
		StrengthLow:    5,
		StrengthMedium: 3,
		StrengthHigh:   1,
	}
	for strength, want := range tests {
		if got := strength.Interval(); got != want {
			t.Fatalf("%s.Interval() = %d, want %d", strength, got, want)
		}
	}
}

func TestRoomAccessors(t *testing.T) {
	room := Room{NameA: "Aki", NameB: "Ben", SecretA: "X", SecretB: "Y"}
	if room.NameFor(RoleA) != "Aki" || room.NameFor(RoleB) != "Ben" || room.NameFor(RoleAI) != "AI" {
		t.Fatal("unexpected NameFor results")
	}
	if room.SecretFor(RoleA) != "X" || room.SecretFor(RoleB) != "Y" || room.SecretFor(RoleAI) != "" {
		t.Fatal("unexpected SecretFor results")
	}
}

func TestRecent(t *testing.T) {
	at := time.Unix(0, 0)
	var room Room
	for i := 0; i < 25; i++ {
		room.Messages = append(room.Messages, NewUserMessage(RoleA, "hello", at.Add(time.Duration(i))))
	}
	recent := room.Recent(20)
	if len(recent) != 20 || recent[0].ID != room.Messages[5].ID {
		t.Fatalf("Recent(20) returned %d messages starting at %s", len(recent), recent[0].ID)
	}
	if got := room.Recent(0); len(got) != 25 {
		t.Fatalf("Recent(0) = %d messages", len(got))
	}
}

func TestNewMessageIDUsesUnixNano(t *testing.T) {
	if got := NewMessageID(time.Unix(0, 42)); got != "msg_42" {
		t.Fatalf("NewMessageID = %q", got)
	}
}
