package server

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// groupHub holds one broadcast group per room that has had a session.
// Rooms live for the whole process, so groups are never dropped.
type groupHub struct {
	mu     sync.Mutex
	groups map[string]*roomGroup
}

func newGroupHub() *groupHub {
	return &groupHub{groups: make(map[string]*roomGroup)}
}

func (h *groupHub) group(roomID string) *roomGroup {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.groups[roomID]
	if ok {
		return group
	}
	group = newRoomGroup(roomID)
	h.groups[roomID] = group
	return group
}

// roomGroup fans frames out to the sessions bound to one room. Admin
// sessions are members of the room group and also of its admin group.
type roomGroup struct {
	roomID string

	// send serializes append and fan-out so every member sees the room log
	// in order.
	send sync.Mutex

	mu      sync.Mutex
	members map[*wsSession]bool
}

func newRoomGroup(roomID string) *roomGroup {
	return &roomGroup{roomID: roomID, members: make(map[*wsSession]bool)}
}

func (g *roomGroup) join(session *wsSession, admin bool) {
	g.mu.Lock()
	g.members[session] = admin
	g.mu.Unlock()
}

func (g *roomGroup) leave(session *wsSession) {
	g.mu.Lock()
	delete(g.members, session)
	g.mu.Unlock()
}

// snapshot copies the membership so frames are written without holding
// the membership lock.
func (g *roomGroup) snapshot(adminsOnly bool) []*wsSession {
	g.mu.Lock()
	defer g.mu.Unlock()
	sessions := make([]*wsSession, 0, len(g.members))
	for session, admin := range g.members {
		if adminsOnly && !admin {
			continue
		}
		sessions = append(sessions, session)
	}
	return sessions
}

// broadcast writes one frame to every room member.
func (g *roomGroup) broadcast(logger *zap.Logger, eventType string, payload any) {
	g.fanOut(logger, g.snapshot(false), eventType, payload)
}

// notifyAdmins writes one frame to the admin members only.
func (g *roomGroup) notifyAdmins(logger *zap.Logger, eventType string, payload any) {
	g.fanOut(logger, g.snapshot(true), eventType, payload)
}

func (g *roomGroup) fanOut(logger *zap.Logger, sessions []*wsSession, eventType string, payload any) {
	if len(sessions) == 0 {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Error("marshal broadcast payload", zap.String("room_id", g.roomID), zap.String("type", eventType), zap.Error(err))
		return
	}
	frame := wsFrame{Type: eventType, Payload: body}
	for _, session := range sessions {
		if err := session.peer.writeFrame(frame); err != nil {
			logger.Debug("broadcast write failed", zap.String("room_id", g.roomID), zap.String("type", eventType), zap.Error(err))
		}
	}
}
