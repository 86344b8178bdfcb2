// Package i18n resolves the service locale and renders user-facing strings,
// time stamps and error messages from per-locale catalogs registered with
// golang.org/x/text/message.
package i18n

import (
	"bytes"
	"sort"
	"strings"
	"text/template"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	apperrors "github.com/louisbranch/bridge-ai/internal/platform/errors"
)

const (
	// BaseLocale is the fallback locale for missing keys.
	BaseLocale = "en-US"
	// JapaneseLocale is the locale the experiment was first run in.
	JapaneseLocale = "ja-JP"
)

var (
	supported = []language.Tag{
		language.MustParse(BaseLocale),
		language.MustParse(JapaneseLocale),
	}
	matcher = language.NewMatcher(supported)

	registered = mustRegister()
)

// ResolveTag picks the supported locale closest to raw, which may be a
// single tag or an Accept-Language header value. Unknown input resolves to
// the base locale.
func ResolveTag(raw string) language.Tag {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return supported[0]
	}
	tags, _, err := language.ParseAcceptLanguage(trimmed)
	if err != nil || len(tags) == 0 {
		return supported[0]
	}
	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return supported[0]
	}
	return supported[index]
}

// locales returns the supported locale identifiers, sorted.
func locales() []string {
	out := make([]string, 0, len(catalogs))
	for locale := range catalogs {
		out = append(out, locale)
	}
	sort.Strings(out)
	return out
}

// Localizer renders strings for one resolved locale.
type Localizer struct {
	locale  string
	printer *message.Printer
}

// NewLocalizer returns a localizer for the supported locale closest to raw.
func NewLocalizer(raw string) *Localizer {
	tag := ResolveTag(raw)
	return &Localizer{
		locale:  tag.String(),
		printer: message.NewPrinter(tag),
	}
}

// Locale returns the resolved locale identifier.
func (l *Localizer) Locale() string {
	return l.locale
}

// Text renders the catalog entry for key with printf-style args.
func (l *Localizer) Text(key Key, args ...any) string {
	return l.printer.Sprintf(string(key), args...)
}

// Clock renders the time-of-day used in transcripts.
func (l *Localizer) Clock(t time.Time) string {
	return t.Format(l.Text(KeyTimeClock))
}

// DateTime renders a full date and time.
func (l *Localizer) DateTime(t time.Time) string {
	return t.Format(l.Text(KeyTimeDateTime))
}

// ErrorMessage renders the user-facing message for err. Domain errors use
// their code's template and metadata; anything else gets the generic
// internal-error text.
func (l *Localizer) ErrorMessage(err error) string {
	code := apperrors.CodeOf(err)
	var metadata map[string]string
	if domainErr, ok := apperrors.As(err); ok {
		metadata = domainErr.Metadata
	}
	if tmpl, ok := lookupErrorTemplate(l.locale, code); ok {
		return formatTemplate(tmpl, metadata)
	}
	tmpl, _ := lookupErrorTemplate(l.locale, apperrors.CodeUnknown)
	return formatTemplate(tmpl, nil)
}

func lookupErrorTemplate(locale string, code apperrors.Code) (string, bool) {
	if templates, ok := errorTemplates[locale]; ok {
		if tmpl, ok := templates[code]; ok {
			return tmpl, true
		}
	}
	tmpl, ok := errorTemplates[BaseLocale][code]
	return tmpl, ok
}

// formatTemplate executes tmpl against metadata, falling back to the raw
// template when it cannot be parsed or executed.
func formatTemplate(tmpl string, metadata map[string]string) string {
	if metadata == nil {
		metadata = map[string]string{}
	}
	t, err := template.New("msg").Option("missingkey=zero").Parse(tmpl)
	if err != nil {
		return tmpl
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, metadata); err != nil {
		return tmpl
	}
	return buf.String()
}

// mustRegister loads every catalog into the x/text default catalog under
// both the regional tag and its base language.
func mustRegister() bool {
	for locale, messages := range catalogs {
		tag := language.MustParse(locale)
		tags := []language.Tag{tag}
		if base, confidence := tag.Base(); confidence != language.No {
			if baseTag := language.Make(base.String()); baseTag.String() != tag.String() {
				tags = append(tags, baseTag)
			}
		}
		for key, value := range messages {
			for _, registerTag := range tags {
				if err := message.SetString(registerTag, string(key), value); err != nil {
					panic(err)
				}
			}
		}
	}
	// Keys missing from a locale fall back to the base locale text.
	base := catalogs[BaseLocale]
	for locale, messages := range catalogs {
		if locale == BaseLocale {
			continue
		}
		tag := language.MustParse(locale)
		for key, value := range base {
			if _, ok := messages[key]; ok {
				continue
			}
			if err := message.SetString(tag, string(key), value); err != nil {
				panic(err)
			}
		}
	}
	return true
}
