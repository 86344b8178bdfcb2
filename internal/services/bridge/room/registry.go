// Package room owns the in-memory room registry: creation, lookup, the
// append-only message log, transcript rendering and listing.
package room

import (
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "github.com/louisbranch/bridge-ai/internal/platform/errors"
	"github.com/louisbranch/bridge-ai/internal/platform/i18n"
	"github.com/louisbranch/bridge-ai/internal/platform/id"
)

// maxIDAttempts bounds room id regeneration on collision.
const maxIDAttempts = 16

// ErrRoomNotFound matches (via errors.Is) any lookup of an unknown room.
var ErrRoomNotFound = apperrors.New(apperrors.CodeRoomNotFound, "room not found")

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the time source used for creation times.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithIDGenerator overrides room id generation.
func WithIDGenerator(newID func() (string, error)) Option {
	return func(r *Registry) { r.newID = newID }
}

// WithLocalizer sets the locale for default names and transcripts.
func WithLocalizer(localizer *i18n.Localizer) Option {
	return func(r *Registry) { r.localizer = localizer }
}

// Registry is the process-lifetime store of rooms. The map lock guards
// membership only; each room carries its own lock so independent rooms
// never contend.
type Registry struct {
	mu        sync.RWMutex
	rooms     map[string]*record
	now       func() time.Time
	newID     func() (string, error)
	localizer *i18n.Localizer
}

type record struct {
	mu     sync.Mutex
	room   Room
	policy PolicyState
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		rooms: make(map[string]*record),
		now:   time.Now,
		newID: id.NewRoomID,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.localizer == nil {
		r.localizer = i18n.NewLocalizer(i18n.BaseLocale)
	}
	return r
}

// Create validates input and stores a new room.
func (r *Registry) Create(input CreateInput) (Room, error) {
	theme := strings.TrimSpace(input.Theme)
	secretA := strings.TrimSpace(input.SecretA)
	secretB := strings.TrimSpace(input.SecretB)
	switch {
	case theme == "":
		return Room{}, apperrors.New(apperrors.CodeRoomThemeEmpty, "theme is required")
	case secretA == "":
		return Room{}, apperrors.New(apperrors.CodeRoomSecretAEmpty, "secretA is required")
	case secretB == "":
		return Room{}, apperrors.New(apperrors.CodeRoomSecretBEmpty, "secretB is required")
	}

	nameA := strings.TrimSpace(input.NameA)
	if nameA == "" {
		nameA = r.localizer.Text(i18n.KeyDefaultNameA)
	}
	nameB := strings.TrimSpace(input.NameB)
	if nameB == "" {
		nameB = r.localizer.Text(i18n.KeyDefaultNameB)
	}

	room := Room{
		Theme:        theme,
		SecretA:      secretA,
		SecretB:      secretB,
		NameA:        nameA,
		NameB:        nameB,
		Strength:     ParseStrength(input.Strength),
		Instructions: strings.TrimSpace(input.Instructions),
		CreatedAt:    r.now(),
		Messages:     []Message{},
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		roomID, err := r.newID()
		if err != nil {
			return Room{}, apperrors.Wrap(apperrors.CodeUnknown, "generate room id", err)
		}
		if _, exists := r.rooms[roomID]; exists {
			continue
		}
		room.ID = roomID
		r.rooms[roomID] = &record{room: room}
		return room.Clone(), nil
	}
	return Room{}, apperrors.New(apperrors.CodeRoomIDExhausted, "room id space exhausted")
}

// Get returns a snapshot of the room.
func (r *Registry) Get(roomID string) (Room, error) {
	rec, err := r.lookup(roomID)
	if err != nil {
		return Room{}, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.room.Clone(), nil
}

// Append adds msg to the room log and counts it when it is a user message.
func (r *Registry) Append(roomID string, msg Message) error {
	if err := validateMessage(msg); err != nil {
		return err
	}
	rec, err := r.lookup(roomID)
	if err != nil {
		return err
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = r.now()
	}
	if msg.ID == "" {
		msg.ID = NewMessageID(msg.Timestamp)
	}

	rec.mu.Lock()
	rec.room.Messages = append(rec.room.Messages, msg)
	if msg.Type == TypeUser {
		rec.room.MessageCount++
	}
	rec.mu.Unlock()
	return nil
}

// Update runs fn with exclusive access to the room. fn receives a view of
// the room whose message slice must not be modified or retained, plus the
// mutable policy state.
func (r *Registry) Update(roomID string, fn func(room Room, state *PolicyState) error) error {
	rec, err := r.lookup(roomID)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return fn(rec.room, &rec.policy)
}

// List returns summaries ordered by creation time, then id.
func (r *Registry) List() []Summary {
	r.mu.RLock()
	records := make([]*record, 0, len(r.rooms))
	for _, rec := range r.rooms {
		records = append(records, rec)
	}
	r.mu.RUnlock()

	summaries := make([]Summary, 0, len(records))
	for _, rec := range records {
		rec.mu.Lock()
		summaries = append(summaries, Summary{
			ID:           rec.room.ID,
			Theme:        rec.room.Theme,
			MessageCount: rec.room.MessageCount,
			CreatedAt:    rec.room.CreatedAt,
		})
		rec.mu.Unlock()
	}
	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].CreatedAt.Before(summaries[j].CreatedAt)
		}
		return summaries[i].ID < summaries[j].ID
	})
	return summaries
}

func (r *Registry) lookup(roomID string) (*record, error) {
	roomID = strings.TrimSpace(roomID)
	r.mu.RLock()
	rec, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if !ok {
		return nil, NotFound(roomID)
	}
	return rec, nil
}

// NotFound returns the not-found error for roomID.
func NotFound(roomID string) error {
	return apperrors.WithMetadata(apperrors.CodeRoomNotFound, "room not found", map[string]string{"RoomID": roomID})
}

func validateMessage(msg Message) error {
	if strings.TrimSpace(msg.Content) == "" {
		return apperrors.New(apperrors.CodeMessageEmpty, "message content is required")
	}
	var ok bool
	switch msg.Type {
	case TypeUser:
		ok = msg.Role.IsParticipant()
	case TypeAI:
		ok = msg.Role == RoleAI
	case TypeSystem:
		ok = msg.Role == RoleSystem
	}
	if !ok {
		return apperrors.WithMetadata(apperrors.CodeMessageInvalidRole, "message role does not match type", map[string]string{
			"Role": string(msg.Role),
			"Type": string(msg.Type),
		})
	}
	return nil
}

// Clone returns a deep copy of the room.
func (r Room) Clone() Room {
	out := r
	out.Messages = make([]Message, len(r.Messages))
	copy(out.Messages, r.Messages)
	return out
}
