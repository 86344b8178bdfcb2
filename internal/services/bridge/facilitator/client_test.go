package facilitator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
	"google.golang.org/genai"

	apperrors "github.com/louisbranch/bridge-ai/internal/platform/errors"
	"github.com/louisbranch/bridge-ai/internal/platform/i18n"
	"github.com/louisbranch/bridge-ai/internal/services/bridge/room"
)

func TestMain(m *testing.M) {
	// genai links go.opencensus.io, whose stats worker starts at init.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

var testNow = time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

func testRoom() room.Room {
	return room.Room{
		ID:           "abcd1234",
		Theme:        "Planning a shared trip",
		SecretA:      "Aki cannot afford flights this year.",
		SecretB:      "Ben is afraid of flying.",
		NameA:        "Aki",
		NameB:        "Ben",
		Strength:     room.StrengthMedium,
		Instructions: "Encourage concrete alternatives.",
		Messages: []room.Message{
			room.NewUserMessage(room.RoleA, "Let's go somewhere far.", testNow),
			room.NewAIMessage("What would make the trip feel special?", testNow.Add(time.Second)),
			room.NewUserMessage(room.RoleB, "Somewhere we can drive to.", testNow.Add(2*time.Second)),
		},
		MessageCount: 2,
	}
}

func TestBuildPromptIncludesContext(t *testing.T) {
	prompt := BuildPrompt(i18n.NewLocalizer("en-US"), testRoom())

	for _, want := range []string{
		"Planning a shared trip",
		"[Situation of Aki]\nAki cannot afford flights this year.",
		"[Situation of Ben]\nBen is afraid of flying.",
		"[Additional instructions from the administrator]\nEncourage concrete alternatives.",
		"Aki: Let's go somewhere far.\nAI Advisor: What would make the trip feel special?\nBen: Somewhere we can drive to.",
		"two to three sentences",
		"Never make meta statements",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildPromptOmitsEmptyInstructions(t *testing.T) {
	snapshot := testRoom()
	snapshot.Instructions = ""
	prompt := BuildPrompt(i18n.NewLocalizer("ja-JP"), snapshot)

	if strings.Contains(prompt, "【管理者からの追加指示】") {
		t.Fatalf("expected no admin instruction block:\n%s", prompt)
	}
	if !strings.Contains(prompt, "【Akiさんの状況】") || !strings.Contains(prompt, "AIアドバイザー: What would make the trip feel special?") {
		t.Fatalf("expected localized sections:\n%s", prompt)
	}
}

func TestTranscriptKeepsLatestMessages(t *testing.T) {
	snapshot := testRoom()
	snapshot.Messages = nil
	for i := 0; i < 25; i++ {
		snapshot.Messages = append(snapshot.Messages, room.NewUserMessage(room.RoleA, fmt.Sprintf("line %02d", i), testNow))
	}
	snapshot.Messages = append(snapshot.Messages, room.Message{Role: room.RoleSystem, Type: room.TypeSystem, Content: "notice"})

	lines := strings.Split(Transcript(i18n.NewLocalizer("en-US"), snapshot), "\n")
	if len(lines) != ContextMessages-1 {
		t.Fatalf("expected %d lines, got %d", ContextMessages-1, len(lines))
	}
	if lines[0] != "Aki: line 06" || lines[len(lines)-1] != "Aki: line 24" {
		t.Fatalf("unexpected window: first %q last %q", lines[0], lines[len(lines)-1])
	}
}

func TestGenerateWithoutProvider(t *testing.T) {
	client := NewClient(nil)
	if client.Available() {
		t.Fatal("expected client without provider to be unavailable")
	}
	_, err := client.Generate(context.Background(), testRoom())
	if !errors.Is(err, ErrCredentialMissing) {
		t.Fatalf("expected ErrCredentialMissing, got %v", err)
	}
	if apperrors.StatusOf(err) != apperrors.StatusFailedPrecondition {
		t.Fatalf("unexpected status %q", apperrors.StatusOf(err))
	}
}

func TestGenerateTrimsReply(t *testing.T) {
	var gotPrompt string
	client := NewClient(ProviderFunc(func(_ context.Context, prompt string) (string, error) {
		gotPrompt = prompt
		return "  How about a train ride?\n", nil
	}))

	reply, err := client.Generate(context.Background(), testRoom())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if reply != "How about a train ride?" {
		t.Fatalf("reply = %q", reply)
	}
	if !strings.Contains(gotPrompt, "Planning a shared trip") {
		t.Fatalf("provider did not receive the built prompt:\n%s", gotPrompt)
	}
}

func TestGenerateClassifiesFailures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		reply   string
		code    apperrors.Code
		message string
	}{
		{name: "http 429", err: errors.New("googleapi: Error 429: quota"), code: apperrors.CodeFacilitatorRateLimited},
		{name: "resource exhausted", err: errors.New("rpc error: RESOURCE_EXHAUSTED"), code: apperrors.CodeFacilitatorRateLimited},
		{name: "too many requests", err: errors.New("Too Many Requests"), code: apperrors.CodeFacilitatorRateLimited},
		{name: "generic", err: errors.New("model overloaded"), code: apperrors.CodeFacilitatorFailed, message: "facilitator error: model overloaded"},
		{name: "empty reply", reply: "   ", code: apperrors.CodeFacilitatorEmptyReply},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(ProviderFunc(func(context.Context, string) (string, error) {
				return tt.reply, tt.err
			}))
			_, err := client.Generate(context.Background(), testRoom())
			if got := apperrors.CodeOf(err); got != tt.code {
				t.Fatalf("code = %q, want %q (err %v)", got, tt.code, err)
			}
			if tt.message != "" && err.Error() != tt.message {
				t.Fatalf("message = %q, want %q", err.Error(), tt.message)
			}
			if tt.err != nil && !errors.Is(err, tt.err) {
				t.Fatal("expected provider error to stay in the chain")
			}
		})
	}
}

func TestGenerateRateLimitMatchesSentinel(t *testing.T) {
	client := NewClient(ProviderFunc(func(context.Context, string) (string, error) {
		return "", errors.New("429 Too Many Requests")
	}))
	_, err := client.Generate(context.Background(), testRoom())
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestGenerateHonorsTimeout(t *testing.T) {
	client := NewClient(ProviderFunc(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}), WithTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := client.Generate(context.Background(), testRoom())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("timeout not applied, took %v", elapsed)
	}
}

func TestGenerateBoundsConcurrency(t *testing.T) {
	const limit = 2
	var active, peak atomic.Int32
	release := make(chan struct{})
	client := NewClient(ProviderFunc(func(context.Context, string) (string, error) {
		n := active.Add(1)
		for {
			current := peak.Load()
			if n <= current || peak.CompareAndSwap(current, n) {
				break
			}
		}
		<-release
		active.Add(-1)
		return "ok", nil
	}), WithMaxConcurrent(limit))

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.Generate(context.Background(), testRoom()); err != nil {
				t.Errorf("generate: %v", err)
			}
		}()
	}

	deadline := time.Now().Add(2 * time.Second)
	for active.Load() < limit && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	close(release)
	wg.Wait()

	if got := peak.Load(); got != limit {
		t.Fatalf("peak concurrency = %d, want %d", got, limit)
	}
}

func TestIsRateLimit(t *testing.T) {
	if IsRateLimit(nil) {
		t.Fatal("nil is not a rate limit")
	}
	if !IsRateLimit(fmt.Errorf("wrapped: %w", ErrRateLimited)) {
		t.Fatal("expected sentinel to match")
	}
	if IsRateLimit(errors.New("bad request")) {
		t.Fatal("expected unrelated error not to match")
	}
}

func TestGeminiErrorLiftsAPIRateLimit(t *testing.T) {
	err := geminiError(genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota"})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected rate limit, got %v", err)
	}
	other := genai.APIError{Code: 500, Status: "INTERNAL", Message: "oops"}
	if errors.Is(geminiError(other), ErrRateLimited) {
		t.Fatal("expected non rate-limit API error to pass through")
	}
}

func TestCredentialConfigured(t *testing.T) {
	tests := map[string]bool{
		"":                 false,
		"   ":              false,
		PlaceholderAPIKey:  false,
		"AIzaSy-real-key":  true,
		" AIzaSy-trimmed ": true,
	}
	for key, want := range tests {
		if got := CredentialConfigured(key); got != want {
			t.Fatalf("CredentialConfigured(%q) = %v, want %v", key, got, want)
		}
	}
}

func TestNewGeminiProviderRejectsPlaceholder(t *testing.T) {
	if _, err := NewGeminiProvider(context.Background(), PlaceholderAPIKey, ""); !errors.Is(err, ErrCredentialMissing) {
		t.Fatalf("expected ErrCredentialMissing, got %v", err)
	}
}
