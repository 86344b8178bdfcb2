package intervention

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/louisbranch/bridge-ai/internal/services/bridge/room"
)

const (
	// MinMessageLength is the shortest message, in runes, that can prompt
	// an automatic intervention.
	MinMessageLength = 3
	// DefaultCooldown is the minimum gap between automatic interventions
	// in one room.
	DefaultCooldown = 10 * time.Second
)

// Outcome names the result of one intervention evaluation or attempt.
type Outcome string

const (
	OutcomeFire                Outcome = "fire"
	OutcomeSkippedNotUser      Outcome = "skipped_not_user"
	OutcomeSkippedShort        Outcome = "skipped_short"
	OutcomeSkippedCooldown     Outcome = "skipped_cooldown"
	OutcomeSkippedInterval     Outcome = "skipped_interval"
	OutcomeSkippedNoCredential Outcome = "skipped_no_credential"
	OutcomeSkippedInFlight     Outcome = "skipped_in_flight"
	OutcomeDelivered           Outcome = "delivered"
	OutcomeRateLimited         Outcome = "rate_limited"
	OutcomeFailed              Outcome = "failed"
	OutcomeNoCredential        Outcome = "no_credential"
)

// Input is everything the automatic check looks at.
type Input struct {
	Content        string
	Now            time.Time
	LastInvocation time.Time
	Cooldown       time.Duration
	// MessageCount includes the message being evaluated.
	MessageCount int
	Strength     room.Strength
	Credential   bool
	InFlight     bool
}

// Decide runs the automatic checks in order and returns the first
// rejection, or OutcomeFire.
func Decide(in Input) Outcome {
	if utf8.RuneCountInString(strings.TrimSpace(in.Content)) < MinMessageLength {
		return OutcomeSkippedShort
	}
	if !in.LastInvocation.IsZero() && in.Now.Sub(in.LastInvocation) < in.Cooldown {
		return OutcomeSkippedCooldown
	}
	interval := in.Strength.Interval()
	if interval <= 0 || in.MessageCount%interval != 0 {
		return OutcomeSkippedInterval
	}
	if !in.Credential {
		return OutcomeSkippedNoCredential
	}
	if in.InFlight {
		return OutcomeSkippedInFlight
	}
	return OutcomeFire
}
