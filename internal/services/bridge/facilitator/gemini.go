package facilitator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	apperrors "github.com/louisbranch/bridge-ai/internal/platform/errors"
)

const (
	// DefaultModel is the Gemini model used when none is configured.
	DefaultModel = "gemini-2.0-flash"
	// PlaceholderAPIKey is the sample value shipped in env templates. It is
	// treated the same as no key.
	PlaceholderAPIKey = "YOUR_API_KEY_HERE"
)

// CredentialConfigured reports whether apiKey is usable.
func CredentialConfigured(apiKey string) bool {
	apiKey = strings.TrimSpace(apiKey)
	return apiKey != "" && apiKey != PlaceholderAPIKey
}

// GeminiProvider generates text with the Gemini API.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider returns a provider for apiKey, or ErrCredentialMissing
// when the key is blank or the placeholder.
func NewGeminiProvider(ctx context.Context, apiKey string, model string) (*GeminiProvider, error) {
	if !CredentialConfigured(apiKey) {
		return nil, ErrCredentialMissing
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  strings.TrimSpace(apiKey),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiProvider{client: client, model: model}, nil
}

// Model returns the configured model name.
func (p *GeminiProvider) Model() string {
	return p.model
}

// Generate submits prompt as a single user turn and returns the reply text.
func (p *GeminiProvider) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	res, err := p.client.Models.GenerateContent(ctx, p.model, contents, nil)
	if err != nil {
		return "", geminiError(err)
	}
	return res.Text(), nil
}

// geminiError lifts structured API rate-limit failures into ErrRateLimited
// so classification does not depend on message wording.
func geminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && isRateLimitStatus(apiErr.Code, apiErr.Status) {
		return apperrors.Wrap(apperrors.CodeFacilitatorRateLimited, "gemini rate limited", err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil && isRateLimitStatus(apiErrPtr.Code, apiErrPtr.Status) {
		return apperrors.Wrap(apperrors.CodeFacilitatorRateLimited, "gemini rate limited", err)
	}
	return err
}

func isRateLimitStatus(code int, status string) bool {
	return code == http.StatusTooManyRequests || strings.EqualFold(status, "RESOURCE_EXHAUSTED")
}
