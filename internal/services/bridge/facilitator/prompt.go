package facilitator

import (
	"strings"

	"github.com/louisbranch/bridge-ai/internal/platform/i18n"
	"github.com/louisbranch/bridge-ai/internal/services/bridge/room"
)

// ContextMessages is how many of the latest messages the facilitator sees.
const ContextMessages = 20

// BuildPrompt composes the single generation request for a room: role,
// theme, ground rules, optional admin instructions, both parties'
// situations and the recent transcript.
func BuildPrompt(l *i18n.Localizer, snapshot room.Room) string {
	var b strings.Builder
	section := func(lines ...string) {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(strings.Join(lines, "\n"))
	}

	section(l.Text(i18n.KeyPromptRole))
	section(l.Text(i18n.KeyPromptTheme), snapshot.Theme)
	section(l.Text(i18n.KeyPromptRules, snapshot.NameA, snapshot.NameB))
	if snapshot.Instructions != "" {
		section(l.Text(i18n.KeyPromptInstructions), snapshot.Instructions)
	}
	section(l.Text(i18n.KeyPromptSituation, snapshot.NameA), snapshot.SecretA)
	section(l.Text(i18n.KeyPromptSituation, snapshot.NameB), snapshot.SecretB)
	section(l.Text(i18n.KeyPromptHistory), Transcript(l, snapshot))
	section(l.Text(i18n.KeyPromptTask))
	return b.String()
}

// Transcript renders the recent conversation one "speaker: content" line
// per message. System notices are left out.
func Transcript(l *i18n.Localizer, snapshot room.Room) string {
	advisor := l.Text(i18n.KeyPromptAdvisor)
	lines := make([]string, 0, ContextMessages)
	for _, msg := range snapshot.Recent(ContextMessages) {
		switch msg.Type {
		case room.TypeAI:
			lines = append(lines, advisor+": "+msg.Content)
		case room.TypeUser:
			lines = append(lines, snapshot.NameFor(msg.Role)+": "+msg.Content)
		}
	}
	return strings.Join(lines, "\n")
}
