// Package bridge hosts the Bridge-AI service: a two-party chat in which an
// administrator seeds each participant with private context and an
// automated facilitator periodically joins the conversation.
//
// Subpackages, leaves first:
//
//   - room: the in-memory room registry and message log.
//   - intervention: when the facilitator speaks, and the per-room cooldown.
//   - facilitator: prompt construction and the language-model provider.
//   - audit: optional SQLite record of intervention attempts.
//   - app: websocket coordinator, admin HTTP surfaces and the server.
package bridge
