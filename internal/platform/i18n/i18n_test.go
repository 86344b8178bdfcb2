package i18n

import (
	"errors"
	"fmt"
	"testing"
	"time"

	apperrors "github.com/louisbranch/bridge-ai/internal/platform/errors"
)

func TestResolveTag(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"", BaseLocale},
		{"ja-JP", JapaneseLocale},
		{"ja", JapaneseLocale},
		{"en", BaseLocale},
		{"ja,en-US;q=0.8", JapaneseLocale},
		{"not a tag!!", BaseLocale},
	}
	for _, tt := range tests {
		if got := ResolveTag(tt.raw).String(); got != tt.want {
			t.Fatalf("ResolveTag(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestCatalogsDefineEveryBaseKey(t *testing.T) {
	for _, locale := range locales() {
		for key := range catalogs[BaseLocale] {
			if _, ok := catalogs[locale][key]; !ok {
				t.Fatalf("locale %s missing key %s", locale, key)
			}
		}
		for code := range errorTemplates[BaseLocale] {
			if _, ok := errorTemplates[locale][code]; !ok {
				t.Fatalf("locale %s missing error template %s", locale, code)
			}
		}
	}
}

func TestLocalizerText(t *testing.T) {
	ja := NewLocalizer("ja-JP")
	if got := ja.Text(KeyDefaultNameA); got != "被験者A" {
		t.Fatalf("ja default name = %q", got)
	}
	if got := ja.Text(KeyLogTheme, "話し合い"); got != "テーマ: 話し合い" {
		t.Fatalf("ja theme line = %q", got)
	}

	en := NewLocalizer("en-US")
	if got := en.Text(KeyDefaultNameB); got != "Participant B" {
		t.Fatalf("en default name = %q", got)
	}
	if got := en.Text(KeyPromptSituation, "Aki"); got != "[Situation of Aki]" {
		t.Fatalf("en situation = %q", got)
	}
}

func TestLocalizerClock(t *testing.T) {
	at := time.Date(2026, 3, 4, 14, 5, 6, 0, time.UTC)

	if got := NewLocalizer("ja-JP").Clock(at); got != "14:05:06" {
		t.Fatalf("ja clock = %q", got)
	}
	if got := NewLocalizer("en-US").Clock(at); got != "2:05:06 PM" {
		t.Fatalf("en clock = %q", got)
	}
	if got := NewLocalizer("en-US").DateTime(at); got != "3/4/2026, 2:05:06 PM" {
		t.Fatalf("en datetime = %q", got)
	}
}

func TestLocalizerErrorMessage(t *testing.T) {
	en := NewLocalizer("en-US")
	notFound := fmt.Errorf("join: %w", apperrors.WithMetadata(apperrors.CodeRoomNotFound, "room not found", map[string]string{"RoomID": "abcd1234"}))
	if got := en.ErrorMessage(notFound); got != "Room abcd1234 was not found." {
		t.Fatalf("not found message = %q", got)
	}

	ja := NewLocalizer("ja-JP")
	if got := ja.ErrorMessage(apperrors.New(apperrors.CodeFacilitatorCredentialMissing, "no key")); got != "APIキーが設定されていません" {
		t.Fatalf("credential message = %q", got)
	}

	if got := en.ErrorMessage(errors.New("plain")); got != errorTemplates[BaseLocale][apperrors.CodeUnknown] {
		t.Fatalf("plain error message = %q", got)
	}
}

func TestFormatTemplateFallbacks(t *testing.T) {
	if got := formatTemplate("hello {{.Name}}", nil); got != "hello " {
		t.Fatalf("missing metadata = %q", got)
	}
	if got := formatTemplate("{{ if .Name }}", map[string]string{"Name": "X"}); got != "{{ if .Name }}" {
		t.Fatalf("parse error fallback = %q", got)
	}
}
