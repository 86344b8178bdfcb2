// Package intervention decides when the facilitator speaks. Automatic
// interventions are gated by message length, a per-room cooldown, the
// room's strength cadence, credential presence and an in-flight guard;
// manual triggers bypass everything except the credential.
package intervention

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/louisbranch/bridge-ai/internal/platform/logging"
	"github.com/louisbranch/bridge-ai/internal/services/bridge/facilitator"
	"github.com/louisbranch/bridge-ai/internal/services/bridge/room"
)

const meterName = "github.com/louisbranch/bridge-ai/internal/services/bridge/intervention"

// Trigger distinguishes automatic from admin-initiated interventions.
type Trigger string

const (
	TriggerAuto   Trigger = "auto"
	TriggerManual Trigger = "manual"
)

// Generator produces facilitator replies. *facilitator.Client satisfies it.
type Generator interface {
	Available() bool
	Generate(ctx context.Context, snapshot room.Room) (string, error)
}

// Attempt describes one facilitator invocation.
type Attempt struct {
	RoomID  string
	Trigger Trigger
	Outcome Outcome
	Detail  string
	Latency time.Duration
	At      time.Time
}

// Recorder persists intervention attempts.
type Recorder interface {
	RecordAttempt(ctx context.Context, attempt Attempt) error
}

// Decision is the result of an automatic evaluation. When Fire is true the
// room has been marked in flight and Snapshot holds the state to prompt
// with; the caller must pass the decision to RunAutomatic.
type Decision struct {
	RoomID   string
	Outcome  Outcome
	Fire     bool
	Snapshot room.Room
}

// Option configures a Policy.
type Option func(*Policy)

// WithCooldown sets the automatic cooldown.
func WithCooldown(cooldown time.Duration) Option {
	return func(p *Policy) {
		if cooldown >= 0 {
			p.cooldown = cooldown
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Policy) { p.now = now }
}

// WithLogger sets the policy logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Policy) { p.logger = logger }
}

// WithRecorder attaches an audit recorder.
func WithRecorder(recorder Recorder) Option {
	return func(p *Policy) { p.recorder = recorder }
}

// WithMeterProvider overrides the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(p *Policy) { p.meter = mp.Meter(meterName) }
}

// Policy applies the intervention rules to rooms held in a registry.
type Policy struct {
	rooms     *room.Registry
	generator Generator
	cooldown  time.Duration
	now       func() time.Time
	logger    *zap.Logger
	recorder  Recorder
	meter     metric.Meter
	counter   metric.Int64Counter
}

// NewPolicy returns a policy over rooms using generator.
func NewPolicy(rooms *room.Registry, generator Generator, opts ...Option) *Policy {
	p := &Policy{
		rooms:     rooms,
		generator: generator,
		cooldown:  DefaultCooldown,
		now:       time.Now,
		meter:     otel.Meter(meterName),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.OrNop(p.logger)
	counter, err := p.meter.Int64Counter("bridge.interventions",
		metric.WithDescription("Facilitator intervention evaluations and attempts."),
	)
	if err != nil {
		p.logger.Warn("create intervention counter", zap.Error(err))
		counter, _ = noop.NewMeterProvider().Meter(meterName).Int64Counter("bridge.interventions")
	}
	p.counter = counter
	return p
}

// Cooldown returns the configured automatic cooldown.
func (p *Policy) Cooldown() time.Duration {
	return p.cooldown
}

// Evaluate runs the automatic checks for msg, which must already be
// appended to the room. All checks and the resulting state change happen
// under the room lock.
func (p *Policy) Evaluate(ctx context.Context, roomID string, msg room.Message) (Decision, error) {
	decision := Decision{RoomID: roomID, Outcome: OutcomeSkippedNotUser}
	if msg.Type != room.TypeUser {
		return decision, nil
	}
	credential := p.generator != nil && p.generator.Available()

	err := p.rooms.Update(roomID, func(current room.Room, state *room.PolicyState) error {
		now := p.now()
		decision.Outcome = Decide(Input{
			Content:        msg.Content,
			Now:            now,
			LastInvocation: state.LastInvocation,
			Cooldown:       p.cooldown,
			MessageCount:   current.MessageCount,
			Strength:       current.Strength,
			Credential:     credential,
			InFlight:       state.InFlight,
		})
		if decision.Outcome != OutcomeFire {
			return nil
		}
		state.LastInvocation = now
		state.InFlight = true
		decision.Fire = true
		decision.Snapshot = current.Clone()
		return nil
	})
	if err != nil {
		return Decision{RoomID: roomID}, err
	}

	logger := p.logger.With(zap.String("room_id", roomID), zap.String("outcome", string(decision.Outcome)))
	switch decision.Outcome {
	case OutcomeFire:
		logger.Info("automatic intervention", zap.Int("message_count", decision.Snapshot.MessageCount))
	case OutcomeSkippedNoCredential:
		logger.Info("provider credential not configured; skipping intervention")
	default:
		logger.Debug("intervention skipped")
	}
	p.count(ctx, TriggerAuto, decision.Outcome)
	return decision, nil
}

// RunAutomatic invokes the facilitator for a firing decision and clears the
// room's in-flight flag. Failures are logged and reported as ok=false; they
// never reach participants.
func (p *Policy) RunAutomatic(ctx context.Context, decision Decision) (string, bool) {
	if !decision.Fire {
		return "", false
	}
	defer p.clearInFlight(decision.RoomID)

	started := p.now()
	reply, err := p.generator.Generate(ctx, decision.Snapshot)
	outcome := outcomeFor(err)
	p.finish(ctx, TriggerAuto, decision.RoomID, outcome, started, err)
	if err != nil {
		p.logger.Warn("automatic intervention failed",
			zap.String("room_id", decision.RoomID),
			zap.String("outcome", string(outcome)),
			zap.Error(err),
		)
		return "", false
	}
	return reply, true
}

// Abandon releases a firing decision that will never be run.
func (p *Policy) Abandon(decision Decision) {
	if decision.Fire {
		p.clearInFlight(decision.RoomID)
	}
}

// Manual clears the room's cooldown and invokes the facilitator regardless
// of cadence or in-flight state. A successful manual intervention does not
// start a new cooldown.
func (p *Policy) Manual(ctx context.Context, roomID string) (string, error) {
	err := p.rooms.Update(roomID, func(_ room.Room, state *room.PolicyState) error {
		state.LastInvocation = time.Time{}
		return nil
	})
	if err != nil {
		return "", err
	}
	snapshot, err := p.rooms.Get(roomID)
	if err != nil {
		return "", err
	}

	started := p.now()
	if p.generator == nil || !p.generator.Available() {
		p.finish(ctx, TriggerManual, roomID, OutcomeNoCredential, started, facilitator.ErrCredentialMissing)
		return "", facilitator.ErrCredentialMissing
	}
	p.logger.Info("manual intervention", zap.String("room_id", roomID))
	reply, err := p.generator.Generate(ctx, snapshot)
	p.finish(ctx, TriggerManual, roomID, outcomeFor(err), started, err)
	if err != nil {
		return "", err
	}
	return reply, nil
}

func (p *Policy) clearInFlight(roomID string) {
	err := p.rooms.Update(roomID, func(_ room.Room, state *room.PolicyState) error {
		state.InFlight = false
		return nil
	})
	if err != nil {
		p.logger.Warn("clear in-flight intervention", zap.String("room_id", roomID), zap.Error(err))
	}
}

func (p *Policy) finish(ctx context.Context, trigger Trigger, roomID string, outcome Outcome, started time.Time, cause error) {
	p.count(ctx, trigger, outcome)
	if p.recorder == nil {
		return
	}
	attempt := Attempt{
		RoomID:  roomID,
		Trigger: trigger,
		Outcome: outcome,
		Latency: p.now().Sub(started),
		At:      started,
	}
	if cause != nil {
		attempt.Detail = cause.Error()
	}
	// The audit write must not be cut short by a cancelled request.
	if err := p.recorder.RecordAttempt(context.WithoutCancel(ctx), attempt); err != nil {
		p.logger.Warn("record intervention attempt", zap.String("room_id", roomID), zap.Error(err))
	}
}

func (p *Policy) count(ctx context.Context, trigger Trigger, outcome Outcome) {
	p.counter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("trigger", string(trigger)),
		attribute.String("outcome", string(outcome)),
	))
}

func outcomeFor(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeDelivered
	case errors.Is(err, facilitator.ErrCredentialMissing):
		return OutcomeNoCredential
	case errors.Is(err, facilitator.ErrRateLimited):
		return OutcomeRateLimited
	default:
		return OutcomeFailed
	}
}
