package room

import (
	"strings"

	"github.com/louisbranch/bridge-ai/internal/platform/i18n"
)

// logSeparator ends the transcript header.
const logSeparator = "---"

// LogFileName is the attachment name for a room transcript.
func LogFileName(roomID string) string {
	return "bridge-ai-log-" + roomID + ".txt"
}

// RenderLog returns the plain-text transcript of the room.
func (r *Registry) RenderLog(roomID string) (string, error) {
	snapshot, err := r.Get(roomID)
	if err != nil {
		return "", err
	}
	l := r.localizer

	var b strings.Builder
	b.WriteString(l.Text(i18n.KeyLogTitle))
	b.WriteByte('\n')
	b.WriteString(l.Text(i18n.KeyLogTheme, snapshot.Theme))
	b.WriteByte('\n')
	b.WriteString(l.Text(i18n.KeyLogCreated, l.DateTime(snapshot.CreatedAt)))
	b.WriteByte('\n')
	b.WriteString(l.Text(i18n.KeyLogStrength, string(snapshot.Strength)))
	b.WriteByte('\n')
	b.WriteString(logSeparator)
	b.WriteString("\n\n")

	for _, msg := range snapshot.Messages {
		b.WriteByte('[')
		b.WriteString(l.Clock(msg.Timestamp))
		b.WriteString("] ")
		b.WriteString(r.senderLabel(snapshot, msg))
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func (r *Registry) senderLabel(snapshot Room, msg Message) string {
	switch msg.Type {
	case TypeAI:
		return r.localizer.Text(i18n.KeyLogSenderAI)
	case TypeSystem:
		return r.localizer.Text(i18n.KeyLogSenderSys)
	default:
		return snapshot.NameFor(msg.Role)
	}
}
