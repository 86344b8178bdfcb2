// Package config holds the small helpers every command uses to load its
// settings from the process environment.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
)

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// FirstEnv returns the first non-blank value among the named variables.
//
// Settings that historically lived under several names (the Gemini API key
// is the main one) are resolved through this instead of a struct tag.
func FirstEnv(names ...string) string {
	for _, name := range names {
		if value := strings.TrimSpace(os.Getenv(name)); value != "" {
			return value
		}
	}
	return ""
}
