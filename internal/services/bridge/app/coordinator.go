package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/net/websocket"

	apperrors "github.com/louisbranch/bridge-ai/internal/platform/errors"
	"github.com/louisbranch/bridge-ai/internal/platform/i18n"
	"github.com/louisbranch/bridge-ai/internal/platform/logging"
	"github.com/louisbranch/bridge-ai/internal/services/bridge/intervention"
	"github.com/louisbranch/bridge-ai/internal/services/bridge/room"
)

const (
	maxFramePayloadBytes   = 16 * 1024
	maxFramesPerSecond     = 40
	maxDecodeErrorsPerConn = 3
	maxMessageBodyRunes    = 2000
)

// Coordinator routes websocket events between sessions, the room registry
// and the intervention policy.
type Coordinator struct {
	rooms     *room.Registry
	policy    *intervention.Policy
	hub       *groupHub
	localizer *i18n.Localizer
	logger    *zap.Logger
	now       func() time.Time

	// adminRequired gates join-admin on an authenticated admin session.
	adminRequired bool

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	conns  map[*websocket.Conn]struct{}
	tasks  sync.WaitGroup
	active sync.WaitGroup
}

// CoordinatorConfig wires a Coordinator.
type CoordinatorConfig struct {
	Rooms         *room.Registry
	Policy        *intervention.Policy
	Localizer     *i18n.Localizer
	Logger        *zap.Logger
	AdminRequired bool
	Now           func() time.Time
}

// NewCoordinator returns a coordinator over the given registry and policy.
func NewCoordinator(cfg CoordinatorConfig) (*Coordinator, error) {
	if cfg.Rooms == nil {
		return nil, errors.New("room registry is required")
	}
	if cfg.Policy == nil {
		return nil, errors.New("intervention policy is required")
	}
	if cfg.Localizer == nil {
		cfg.Localizer = i18n.NewLocalizer(i18n.BaseLocale)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		rooms:         cfg.Rooms,
		policy:        cfg.Policy,
		hub:           newGroupHub(),
		localizer:     cfg.Localizer,
		logger:        logging.OrNop(cfg.Logger),
		now:           cfg.Now,
		adminRequired: cfg.AdminRequired,
		ctx:           ctx,
		cancel:        cancel,
		conns:         make(map[*websocket.Conn]struct{}),
	}, nil
}

// Close cancels in-flight facilitator calls, closes open connections and
// waits for both to finish.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	conns := make([]*websocket.Conn, 0, len(c.conns))
	for conn := range c.conns {
		conns = append(conns, conn)
	}
	c.mu.Unlock()

	c.cancel()
	for _, conn := range conns {
		_ = conn.Close()
	}
	c.active.Wait()
	c.tasks.Wait()
}

// track registers an open connection. It reports false after Close.
func (c *Coordinator) track(conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.conns[conn] = struct{}{}
	c.active.Add(1)
	return true
}

func (c *Coordinator) untrack(conn *websocket.Conn) {
	c.mu.Lock()
	delete(c.conns, conn)
	c.mu.Unlock()
	c.active.Done()
}

// spawn runs fn on a tracked goroutine. It reports false after Close.
func (c *Coordinator) spawn(fn func(ctx context.Context)) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.tasks.Add(1)
	c.mu.Unlock()
	go func() {
		defer c.tasks.Done()
		fn(c.ctx)
	}()
	return true
}

// handleConn reads frames until the connection ends. admin reports whether
// the upgrade request carried a valid admin session.
func (c *Coordinator) handleConn(conn *websocket.Conn, admin bool) {
	defer func() {
		_ = conn.Close()
	}()
	if !c.track(conn) {
		return
	}
	defer c.untrack(conn)

	decoder := json.NewDecoder(conn)
	session := newWSSession(newWSPeer(conn), admin, c.logger)
	defer c.disconnect(session)

	ctx := context.Background()
	if request := conn.Request(); request != nil {
		ctx = request.Context()
	}

	windowStart := time.Now()
	framesInWindow := 0
	decodeErrors := 0

	for {
		var frame wsFrame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return
			}
			if ctx.Err() != nil || c.ctx.Err() != nil {
				return
			}
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			isSyntax := errors.As(err, &syntaxErr)
			if !isSyntax && !errors.As(err, &typeErr) {
				c.logger.Debug("websocket read ended", zap.Error(err))
				return
			}
			decodeErrors++
			c.sendError(session, "", apperrors.Wrap(apperrors.CodeFrameInvalid, "decode frame", err))
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			// A type mismatch consumes the whole value; a syntax error leaves
			// the decoder stuck.
			if isSyntax {
				decoder = json.NewDecoder(conn)
			}
			continue
		}
		decodeErrors = 0

		if len(frame.Payload) > maxFramePayloadBytes {
			c.sendError(session, frame.RequestID, apperrors.New(apperrors.CodeFrameTooLarge, "payload too large"))
			continue
		}

		now := time.Now()
		if now.Sub(windowStart) >= time.Second {
			windowStart = now
			framesInWindow = 0
		}
		framesInWindow++
		if framesInWindow > maxFramesPerSecond {
			c.sendError(session, frame.RequestID, apperrors.New(apperrors.CodeFrameRateLimited, "rate limit exceeded"))
			return
		}

		switch frame.Type {
		case eventJoinRoom:
			c.handleJoinRoom(session, frame)
		case eventJoinAdmin:
			c.handleJoinAdmin(session, frame)
		case eventSendMessage:
			c.handleSendMessage(ctx, session, frame)
		case eventManualTrigger:
			c.handleManualTrigger(session, frame)
		default:
			c.sendError(session, frame.RequestID, apperrors.WithMetadata(
				apperrors.CodeFrameUnsupported,
				"unsupported frame type",
				map[string]string{"Type": frame.Type},
			))
		}
	}
}

// disconnect unbinds the session and leaves its groups. Nothing is
// broadcast.
func (c *Coordinator) disconnect(session *wsSession) {
	roomID, role, _ := session.binding()
	group := session.unbind()
	if group == nil {
		return
	}
	group.leave(session)
	c.logger.Debug("session left", zap.String("room_id", roomID), zap.String("role", string(role)))
}

func (c *Coordinator) handleJoinRoom(session *wsSession, frame wsFrame) {
	var payload joinRoomPayload
	if err := decodePayload(frame.Payload, &payload); err != nil {
		c.sendError(session, frame.RequestID, err)
		return
	}
	if !payload.Role.IsParticipant() {
		c.sendError(session, frame.RequestID, apperrors.WithMetadata(
			apperrors.CodeSessionInvalidRole,
			"role must be A or B",
			map[string]string{"Role": string(payload.Role)},
		))
		return
	}
	roomID := strings.TrimSpace(payload.RoomID)
	if _, err := c.rooms.Get(roomID); err != nil {
		c.sendError(session, frame.RequestID, err)
		return
	}

	group := c.hub.group(roomID)
	if err := session.bind(roomID, payload.Role, group); err != nil {
		c.sendError(session, frame.RequestID, err)
		return
	}

	// Holding the send lock means the snapshot and the subscription agree:
	// no message can land between them.
	group.send.Lock()
	defer group.send.Unlock()
	snapshot, err := c.rooms.Get(roomID)
	if err != nil {
		session.unbind()
		c.sendError(session, frame.RequestID, err)
		return
	}
	group.join(session, false)
	session.send(eventRoomJoined, frame.RequestID, participantSnapshot(snapshot, payload.Role))
	group.notifyAdmins(c.logger, eventParticipantJoined, participantJoinedPayload{Role: payload.Role})

	c.logger.Info("participant joined", zap.String("room_id", roomID), zap.String("role", string(payload.Role)))
}

func (c *Coordinator) handleJoinAdmin(session *wsSession, frame wsFrame) {
	var payload joinAdminPayload
	if err := decodePayload(frame.Payload, &payload); err != nil {
		c.sendError(session, frame.RequestID, err)
		return
	}
	if c.adminRequired && !session.admin {
		c.sendError(session, frame.RequestID, apperrors.New(apperrors.CodeAdminUnauthenticated, "admin session required"))
		return
	}
	roomID := strings.TrimSpace(payload.RoomID)
	if _, err := c.rooms.Get(roomID); err != nil {
		c.sendError(session, frame.RequestID, err)
		return
	}

	group := c.hub.group(roomID)
	if err := session.bind(roomID, roleAdmin, group); err != nil {
		c.sendError(session, frame.RequestID, err)
		return
	}

	group.send.Lock()
	defer group.send.Unlock()
	snapshot, err := c.rooms.Get(roomID)
	if err != nil {
		session.unbind()
		c.sendError(session, frame.RequestID, err)
		return
	}
	group.join(session, true)
	session.send(eventRoomJoined, frame.RequestID, adminSnapshot(snapshot))

	c.logger.Info("admin joined", zap.String("room_id", roomID))
}

func (c *Coordinator) handleSendMessage(ctx context.Context, session *wsSession, frame wsFrame) {
	var payload sendMessagePayload
	if err := decodePayload(frame.Payload, &payload); err != nil {
		c.sendError(session, frame.RequestID, err)
		return
	}
	roomID := strings.TrimSpace(payload.RoomID)
	if _, err := c.rooms.Get(roomID); err != nil {
		c.logger.Info("message for unknown room dropped", zap.String("room_id", roomID))
		return
	}

	boundRoomID, boundRole, group := session.binding()
	if group == nil {
		c.sendError(session, frame.RequestID, apperrors.New(apperrors.CodeSessionNotBound, "join before sending"))
		return
	}
	if boundRoomID != roomID || boundRole != payload.Role || !boundRole.IsParticipant() {
		c.sendError(session, frame.RequestID, apperrors.WithMetadata(
			apperrors.CodeSessionRoleMismatch,
			"session is not bound to this room and role",
			map[string]string{"Role": string(payload.Role)},
		))
		return
	}

	content := strings.TrimSpace(payload.Content)
	if content == "" {
		c.sendError(session, frame.RequestID, apperrors.New(apperrors.CodeMessageEmpty, "content is required"))
		return
	}
	if utf8.RuneCountInString(content) > maxMessageBodyRunes {
		c.sendError(session, frame.RequestID, apperrors.WithMetadata(
			apperrors.CodeMessageTooLong,
			"content too long",
			map[string]string{"Limit": strconv.Itoa(maxMessageBodyRunes)},
		))
		return
	}

	msg := room.NewUserMessage(boundRole, content, c.now())

	group.send.Lock()
	if err := c.rooms.Append(roomID, msg); err != nil {
		group.send.Unlock()
		c.sendError(session, frame.RequestID, err)
		return
	}
	group.broadcast(c.logger, eventNewMessage, msg)
	decision, err := c.policy.Evaluate(ctx, roomID, msg)
	group.send.Unlock()

	c.logger.Debug("message received", zap.String("room_id", roomID), zap.String("role", string(boundRole)))
	if err != nil {
		c.logger.Warn("evaluate intervention", zap.String("room_id", roomID), zap.Error(err))
		return
	}
	if !decision.Fire {
		return
	}
	started := c.spawn(func(ctx context.Context) {
		reply, ok := c.policy.RunAutomatic(ctx, decision)
		if !ok {
			return
		}
		c.deliverAI(group, roomID, reply)
	})
	if !started {
		c.policy.Abandon(decision)
	}
}

func (c *Coordinator) handleManualTrigger(session *wsSession, frame wsFrame) {
	var payload manualTriggerPayload
	if err := decodePayload(frame.Payload, &payload); err != nil {
		c.sendError(session, frame.RequestID, err)
		return
	}
	roomID := strings.TrimSpace(payload.RoomID)
	boundRoomID, boundRole, group := session.binding()
	if group == nil || boundRole != roleAdmin || boundRoomID != roomID {
		c.sendError(session, frame.RequestID, apperrors.New(apperrors.CodeAdminPermissionDenied, "manual trigger requires an admin session in this room"))
		return
	}

	c.logger.Info("manual trigger requested", zap.String("room_id", roomID))
	requestID := frame.RequestID
	started := c.spawn(func(ctx context.Context) {
		reply, err := c.policy.Manual(ctx, roomID)
		if err != nil {
			c.logger.Warn("manual intervention failed", zap.String("room_id", roomID), zap.Error(err))
			c.sendError(session, requestID, err)
			return
		}
		c.deliverAI(group, roomID, reply)
	})
	if !started {
		c.sendError(session, requestID, apperrors.New(apperrors.CodeServerShuttingDown, "coordinator is closing"))
	}
}

// deliverAI appends a facilitator reply and broadcasts it to the room.
func (c *Coordinator) deliverAI(group *roomGroup, roomID string, content string) {
	msg := room.NewAIMessage(content, c.now())
	group.send.Lock()
	defer group.send.Unlock()
	if err := c.rooms.Append(roomID, msg); err != nil {
		c.logger.Warn("append facilitator reply", zap.String("room_id", roomID), zap.Error(err))
		return
	}
	group.broadcast(c.logger, eventNewMessage, msg)
}

// sendError writes an error-msg frame to one session.
func (c *Coordinator) sendError(session *wsSession, requestID string, err error) {
	if _, ok := apperrors.As(err); !ok {
		c.logger.Error("unexpected websocket error", zap.Error(err))
	}
	session.send(eventErrorMsg, requestID, errorMsgPayload{
		Message: c.localizer.ErrorMessage(err),
		Code:    string(apperrors.StatusOf(err)),
	})
}

func participantSnapshot(snapshot room.Room, role room.Role) roomJoinedPayload {
	return roomJoinedPayload{
		ID:           snapshot.ID,
		Role:         role,
		Theme:        snapshot.Theme,
		NameA:        snapshot.NameA,
		NameB:        snapshot.NameB,
		Messages:     snapshot.Messages,
		MessageCount: snapshot.MessageCount,
		Secret:       snapshot.SecretFor(role),
	}
}

func adminSnapshot(snapshot room.Room) roomJoinedPayload {
	return roomJoinedPayload{
		ID:           snapshot.ID,
		Role:         roleAdmin,
		Theme:        snapshot.Theme,
		NameA:        snapshot.NameA,
		NameB:        snapshot.NameB,
		Messages:     snapshot.Messages,
		MessageCount: snapshot.MessageCount,
		SecretA:      snapshot.SecretA,
		SecretB:      snapshot.SecretB,
		Strength:     snapshot.Strength,
		Instructions: snapshot.Instructions,
	}
}
