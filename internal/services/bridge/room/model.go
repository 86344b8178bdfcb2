package room

import (
	"fmt"
	"strings"
	"time"
)

// Strength is the configured cadence of automatic facilitator invocation.
type Strength string

const (
	StrengthNone   Strength = "none"
	StrengthLow    Strength = "low"
	StrengthMedium Strength = "medium"
	StrengthHigh   Strength = "high"
)

// ParseStrength normalizes raw, defaulting to medium when it is blank or
// unknown.
func ParseStrength(raw string) Strength {
	switch Strength(strings.ToLower(strings.TrimSpace(raw))) {
	case StrengthNone:
		return StrengthNone
	case StrengthLow:
		return StrengthLow
	case StrengthHigh:
		return StrengthHigh
	default:
		return StrengthMedium
	}
}

// Interval returns how many user messages separate automatic
// interventions. Zero means automatic intervention is disabled.
func (s Strength) Interval() int {
	switch s {
	case StrengthNone:
		return 0
	case StrengthLow:
		return 5
	case StrengthHigh:
		return 1
	default:
		return 3
	}
}

// Role identifies who produced a message or which side a session plays.
type Role string

const (
	RoleA      Role = "A"
	RoleB      Role = "B"
	RoleAI     Role = "AI"
	RoleSystem Role = "system"
)

// IsParticipant reports whether r is one of the two chatting parties.
func (r Role) IsParticipant() bool {
	return r == RoleA || r == RoleB
}

// MessageType classifies a message in the room log.
type MessageType string

const (
	TypeUser   MessageType = "user"
	TypeAI     MessageType = "ai"
	TypeSystem MessageType = "system"
)

// Message is one immutable entry in a room log.
type Message struct {
	ID        string      `json:"id"`
	Role      Role        `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
	Type      MessageType `json:"type"`
}

// NewMessageID derives a message id from the wall clock. Ids are not
// guaranteed to be unique or monotonic.
func NewMessageID(at time.Time) string {
	return fmt.Sprintf("msg_%d", at.UnixNano())
}

// NewUserMessage builds a participant message.
func NewUserMessage(role Role, content string, at time.Time) Message {
	return Message{
		ID:        NewMessageID(at),
		Role:      role,
		Content:   content,
		Timestamp: at,
		Type:      TypeUser,
	}
}

// NewAIMessage builds a facilitator message.
func NewAIMessage(content string, at time.Time) Message {
	return Message{
		ID:        NewMessageID(at),
		Role:      RoleAI,
		Content:   content,
		Timestamp: at,
		Type:      TypeAI,
	}
}

// Room is a point-in-time copy of one room. Mutating it has no effect on
// the registry.
type Room struct {
	ID           string    `json:"id"`
	Theme        string    `json:"theme"`
	SecretA      string    `json:"secretA"`
	SecretB      string    `json:"secretB"`
	NameA        string    `json:"nameA"`
	NameB        string    `json:"nameB"`
	Strength     Strength  `json:"aiStrength"`
	Instructions string    `json:"aiPrompt"`
	CreatedAt    time.Time `json:"createdAt"`
	Messages     []Message `json:"messages"`
	MessageCount int       `json:"messageCount"`
}

// NameFor returns the display name for a participant role; other roles
// return their own identifier.
func (r Room) NameFor(role Role) string {
	switch role {
	case RoleA:
		return r.NameA
	case RoleB:
		return r.NameB
	default:
		return string(role)
	}
}

// SecretFor returns the private context owned by a participant role.
func (r Room) SecretFor(role Role) string {
	switch role {
	case RoleA:
		return r.SecretA
	case RoleB:
		return r.SecretB
	default:
		return ""
	}
}

// Recent returns up to limit of the latest messages.
func (r Room) Recent(limit int) []Message {
	if limit <= 0 || len(r.Messages) <= limit {
		return r.Messages
	}
	return r.Messages[len(r.Messages)-limit:]
}

// Summary is the listing view of one room.
type Summary struct {
	ID           string    `json:"id"`
	Theme        string    `json:"theme"`
	MessageCount int       `json:"messageCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// PolicyState is the per-room intervention bookkeeping. It lives inside the
// room record so it shares the room's lock.
type PolicyState struct {
	// LastInvocation is when the last automatic intervention started. The
	// zero value means no cooldown is active.
	LastInvocation time.Time
	// InFlight is set while an automatic intervention is waiting on the
	// provider.
	InFlight bool
}

// CreateInput carries the admin-supplied room configuration.
type CreateInput struct {
	Theme        string
	SecretA      string
	SecretB      string
	Strength     string
	NameA        string
	NameB        string
	Instructions string
}
