package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/websocket"

	apperrors "github.com/louisbranch/bridge-ai/internal/platform/errors"
	"github.com/louisbranch/bridge-ai/internal/platform/timeouts"
	"github.com/louisbranch/bridge-ai/internal/services/bridge/room"
)

// Client to server event types.
const (
	eventJoinRoom      = "join-room"
	eventJoinAdmin     = "join-admin"
	eventSendMessage   = "send-message"
	eventManualTrigger = "manual-trigger"
)

// Server to client event types.
const (
	eventRoomJoined        = "room-joined"
	eventNewMessage        = "new-message"
	eventParticipantJoined = "participant-joined"
	eventErrorMsg          = "error-msg"
)

// roleAdmin marks a session bound as a room monitor.
const roleAdmin room.Role = "admin"

type wsFrame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

type joinRoomPayload struct {
	RoomID string    `json:"roomId"`
	Role   room.Role `json:"role"`
}

type joinAdminPayload struct {
	RoomID string `json:"roomId"`
}

type sendMessagePayload struct {
	RoomID  string    `json:"roomId"`
	Role    room.Role `json:"role"`
	Content string    `json:"content"`
}

type manualTriggerPayload struct {
	RoomID string `json:"roomId"`
}

// roomJoinedPayload is the join snapshot. Participants get only their own
// secret; admins get both secrets and the facilitator settings.
type roomJoinedPayload struct {
	ID           string         `json:"id"`
	Role         room.Role      `json:"role"`
	Theme        string         `json:"theme"`
	NameA        string         `json:"nameA"`
	NameB        string         `json:"nameB"`
	Messages     []room.Message `json:"messages"`
	MessageCount int            `json:"messageCount"`
	Secret       string         `json:"secret,omitempty"`
	SecretA      string         `json:"secretA,omitempty"`
	SecretB      string         `json:"secretB,omitempty"`
	Strength     room.Strength  `json:"aiStrength,omitempty"`
	Instructions string         `json:"aiPrompt,omitempty"`
}

type participantJoinedPayload struct {
	Role room.Role `json:"role"`
}

type errorMsgPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// decodePayload strictly decodes raw into dst. Unknown fields, trailing
// data and a missing payload are all rejected.
func decodePayload(raw json.RawMessage, dst any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return apperrors.New(apperrors.CodeFrameInvalid, "payload is required")
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return apperrors.Wrap(apperrors.CodeFrameInvalid, "decode payload", err)
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return apperrors.New(apperrors.CodeFrameInvalid, "trailing data after payload")
	}
	return nil
}

type wsPeer struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	encoder *json.Encoder
}

func newWSPeer(conn *websocket.Conn) *wsPeer {
	return &wsPeer{conn: conn, encoder: json.NewEncoder(conn)}
}

func (p *wsPeer) writeFrame(frame wsFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		_ = p.conn.SetWriteDeadline(time.Now().Add(timeouts.FrameWrite))
	}
	return p.encoder.Encode(frame)
}

// wsSession tracks what a connection is bound to. A session binds at most
// once.
type wsSession struct {
	mu     sync.Mutex
	peer   *wsPeer
	admin  bool
	roomID string
	role   room.Role
	group  *roomGroup
	logger *zap.Logger
}

func newWSSession(peer *wsPeer, admin bool, logger *zap.Logger) *wsSession {
	return &wsSession{peer: peer, admin: admin, logger: logger}
}

// bind records the room and role. It fails when the session is already
// bound.
func (s *wsSession) bind(roomID string, role room.Role, group *roomGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.group != nil {
		return apperrors.New(apperrors.CodeSessionAlreadyBound, "session already joined a room")
	}
	s.roomID = roomID
	s.role = role
	s.group = group
	return nil
}

// binding returns the bound room id, role and group; group is nil when the
// session has not joined.
func (s *wsSession) binding() (string, room.Role, *roomGroup) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID, s.role, s.group
}

func (s *wsSession) unbind() *roomGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	group := s.group
	s.group = nil
	s.roomID = ""
	s.role = ""
	return group
}

func (s *wsSession) send(eventType string, requestID string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("marshal websocket payload", zap.String("type", eventType), zap.Error(err))
		return
	}
	if err := s.peer.writeFrame(wsFrame{Type: eventType, RequestID: requestID, Payload: body}); err != nil {
		s.logger.Debug("write websocket frame", zap.String("type", eventType), zap.Error(err))
	}
}
