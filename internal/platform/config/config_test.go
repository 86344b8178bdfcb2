package config

import (
	"testing"
	"time"
)

func TestParseEnvAppliesDefaultsAndOverrides(t *testing.T) {
	t.Setenv("BRIDGE_TEST_ADDR", ":4000")

	var cfg struct {
		Addr     string        `env:"BRIDGE_TEST_ADDR" envDefault:":3000"`
		Cooldown time.Duration `env:"BRIDGE_TEST_COOLDOWN" envDefault:"10s"`
	}
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Addr != ":4000" {
		t.Fatalf("addr = %q, want %q", cfg.Addr, ":4000")
	}
	if cfg.Cooldown != 10*time.Second {
		t.Fatalf("cooldown = %v, want 10s", cfg.Cooldown)
	}
}

func TestParseEnvRejectsMalformedValue(t *testing.T) {
	t.Setenv("BRIDGE_TEST_COOLDOWN", "soon")

	var cfg struct {
		Cooldown time.Duration `env:"BRIDGE_TEST_COOLDOWN"`
	}
	if err := ParseEnv(&cfg); err == nil {
		t.Fatal("expected malformed duration to fail")
	}
}

func TestFirstEnvSkipsBlankValues(t *testing.T) {
	t.Setenv("BRIDGE_TEST_A", "  ")
	t.Setenv("BRIDGE_TEST_B", "second")
	t.Setenv("BRIDGE_TEST_C", "third")

	if got := FirstEnv("BRIDGE_TEST_A", "BRIDGE_TEST_B", "BRIDGE_TEST_C"); got != "second" {
		t.Fatalf("FirstEnv = %q, want %q", got, "second")
	}
	if got := FirstEnv("BRIDGE_TEST_MISSING"); got != "" {
		t.Fatalf("FirstEnv = %q, want empty", got)
	}
}
