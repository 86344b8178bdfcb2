package cmd

import (
	"context"
	"errors"
	"flag"
	"testing"

	"go.uber.org/zap"
)

type testConfig struct {
	Address string `env:"CMD_TEST_ADDRESS" envDefault:"127.0.0.1:3000"`
	Locale  string `env:"CMD_TEST_LOCALE" envDefault:"ja-JP"`
}

func TestParseConfigReadsEnvAndFlags(t *testing.T) {
	t.Setenv("CMD_TEST_ADDRESS", "env:9000")
	t.Setenv("CMD_TEST_LOCALE", "en-US")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg := testConfig{}
	if err := ParseConfig(&cfg); err != nil {
		t.Fatalf("load config defaults: %v", err)
	}
	fs.StringVar(&cfg.Address, "address", cfg.Address, "address")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "locale")

	if err := ParseArgs(fs, []string{"-address", "flag:9001"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if cfg.Address != "flag:9001" {
		t.Fatalf("expected flag value for address, got %q", cfg.Address)
	}
	if cfg.Locale != "en-US" {
		t.Fatalf("expected env locale, got %q", cfg.Locale)
	}
}

func TestParseConfigUsesDefaults(t *testing.T) {
	cfg := testConfig{}
	if err := ParseConfig(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if err := ParseArgs(flag.NewFlagSet("defaults", flag.ContinueOnError), nil); err != nil {
		t.Fatalf("parse args: %v", err)
	}
	if cfg.Address != "127.0.0.1:3000" {
		t.Fatalf("expected default address, got %q", cfg.Address)
	}
	if cfg.Locale != "ja-JP" {
		t.Fatalf("expected default locale, got %q", cfg.Locale)
	}
}

func TestParseConfigRejectsNilTarget(t *testing.T) {
	if err := ParseConfig[testConfig](nil); err == nil {
		t.Fatal("expected nil config target to fail")
	}
}

func TestParseArgsRejectsNilParser(t *testing.T) {
	if err := ParseArgs(nil, []string{}); err == nil {
		t.Fatal("expected parse args to reject nil parser")
	}
}

func TestRunWithTelemetryRejectsMissingInputs(t *testing.T) {
	if err := RunWithTelemetryAndOptions(context.Background(), "", RunOptions{}, func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected missing service error")
	}
	if err := RunWithTelemetryAndOptions(context.Background(), ServiceBridge, RunOptions{}, nil); err == nil {
		t.Fatal("expected missing run function error")
	}
}

func TestRunWithTelemetryReturnsRunError(t *testing.T) {
	t.Setenv("BRIDGE_OTEL_ENABLED", "false")
	want := errors.New("boom")

	err := RunWithTelemetryAndOptions(context.Background(), ServiceBridge, RunOptions{Logger: zap.NewNop()}, func(context.Context) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
}
