// Package bridge parses bridge command flags and composes the service:
// registry, facilitator, intervention policy, optional audit store and the
// HTTP/websocket server.
package bridge

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	entrypoint "github.com/louisbranch/bridge-ai/internal/platform/cmd"
	"github.com/louisbranch/bridge-ai/internal/platform/config"
	"github.com/louisbranch/bridge-ai/internal/platform/i18n"
	"github.com/louisbranch/bridge-ai/internal/platform/logging"
	server "github.com/louisbranch/bridge-ai/internal/services/bridge/app"
	"github.com/louisbranch/bridge-ai/internal/services/bridge/audit"
	"github.com/louisbranch/bridge-ai/internal/services/bridge/facilitator"
	"github.com/louisbranch/bridge-ai/internal/services/bridge/intervention"
	"github.com/louisbranch/bridge-ai/internal/services/bridge/room"
)

// Legacy variable names accepted for the Gemini API key.
var geminiKeyFallbacks = []string{"GEMINI_API_KEY", "GOOGLE_GENERATIVE_AI_API_KEY"}

// Config holds bridge command configuration.
type Config struct {
	HTTPAddr      string `env:"BRIDGE_HTTP_ADDR"       envDefault:":3000"`
	PublicBaseURL string `env:"BRIDGE_PUBLIC_BASE_URL"`
	Locale        string `env:"BRIDGE_LOCALE"          envDefault:"ja-JP"`

	GeminiAPIKey          string        `env:"BRIDGE_GEMINI_API_KEY"`
	GeminiModel           string        `env:"BRIDGE_GEMINI_MODEL"               envDefault:"gemini-2.0-flash"`
	InterventionCooldown  time.Duration `env:"BRIDGE_INTERVENTION_COOLDOWN"      envDefault:"10s"`
	FacilitatorTimeout    time.Duration `env:"BRIDGE_FACILITATOR_TIMEOUT"        envDefault:"30s"`
	FacilitatorMaxPending int64         `env:"BRIDGE_FACILITATOR_MAX_CONCURRENT" envDefault:"4"`

	AdminID          string `env:"BRIDGE_ADMIN_ID"`
	AdminPassword    string `env:"BRIDGE_ADMIN_PASSWORD"`
	AdminTokenSecret string `env:"BRIDGE_ADMIN_TOKEN_SECRET"`

	AuditDBPath string `env:"BRIDGE_AUDIT_DB_PATH"`

	LogLevel  string `env:"BRIDGE_LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"BRIDGE_LOG_FORMAT" envDefault:"json"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		cfg.GeminiAPIKey = config.FirstEnv(geminiKeyFallbacks...)
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "bridge HTTP listen address")
	fs.StringVar(&cfg.PublicBaseURL, "public-base-url", cfg.PublicBaseURL, "base URL used in participant links")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "locale for prompts, transcripts and error messages")
	fs.StringVar(&cfg.GeminiModel, "gemini-model", cfg.GeminiModel, "Gemini model name")
	fs.DurationVar(&cfg.InterventionCooldown, "intervention-cooldown", cfg.InterventionCooldown, "minimum gap between automatic interventions per room")
	fs.DurationVar(&cfg.FacilitatorTimeout, "facilitator-timeout", cfg.FacilitatorTimeout, "timeout for one facilitator call")
	fs.StringVar(&cfg.AuditDBPath, "audit-db", cfg.AuditDBPath, "SQLite path for the intervention audit log (empty disables it)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (json or console)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run builds the bridge service and serves it until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	return entrypoint.RunWithTelemetryAndOptions(ctx, entrypoint.ServiceBridge, entrypoint.RunOptions{Logger: logger}, func(ctx context.Context) error {
		svc, err := build(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer svc.close()
		if err := svc.server.ListenAndServe(ctx); err != nil {
			return fmt.Errorf("serve bridge: %w", err)
		}
		return nil
	})
}

// service is the composed process.
type service struct {
	server *server.Server
	store  *audit.Store
	logger *zap.Logger
}

func (s *service) close() {
	s.server.Close()
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("close audit store", zap.Error(err))
		}
	}
}

func build(ctx context.Context, cfg Config, logger *zap.Logger) (*service, error) {
	localizer := i18n.NewLocalizer(cfg.Locale)
	logger.Info("bridge starting",
		zap.String("locale", localizer.Locale()),
		zap.Bool("provider_credential", facilitator.CredentialConfigured(cfg.GeminiAPIKey)),
		zap.Bool("admin_auth", strings.TrimSpace(cfg.AdminID) != "" && cfg.AdminPassword != ""),
		zap.Bool("audit_store", strings.TrimSpace(cfg.AuditDBPath) != ""),
	)

	var provider facilitator.Provider
	if facilitator.CredentialConfigured(cfg.GeminiAPIKey) {
		gemini, err := facilitator.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		logger.Info("gemini provider ready", zap.String("model", gemini.Model()))
		provider = gemini
	} else {
		logger.Warn("provider credential not configured; facilitator interventions are disabled")
	}

	rooms := room.NewRegistry(room.WithLocalizer(localizer))
	client := facilitator.NewClient(provider,
		facilitator.WithLocalizer(localizer),
		facilitator.WithTimeout(cfg.FacilitatorTimeout),
		facilitator.WithMaxConcurrent(cfg.FacilitatorMaxPending),
		facilitator.WithLogger(logger.Named("facilitator")),
	)

	policyOpts := []intervention.Option{
		intervention.WithCooldown(cfg.InterventionCooldown),
		intervention.WithLogger(logger.Named("intervention")),
	}
	var store *audit.Store
	var auditReader server.AuditReader
	if path := strings.TrimSpace(cfg.AuditDBPath); path != "" {
		opened, err := audit.Open(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("open audit store: %w", err)
		}
		store = opened
		auditReader = opened
		policyOpts = append(policyOpts, intervention.WithRecorder(opened))
	}
	policy := intervention.NewPolicy(rooms, client, policyOpts...)
	logger.Info("intervention policy ready", zap.Duration("cooldown", policy.Cooldown()))

	srv, err := server.NewServer(server.Config{
		HTTPAddr:         cfg.HTTPAddr,
		PublicBaseURL:    cfg.PublicBaseURL,
		AdminID:          cfg.AdminID,
		AdminPassword:    cfg.AdminPassword,
		AdminTokenSecret: cfg.AdminTokenSecret,
		Rooms:            rooms,
		Policy:           policy,
		Audit:            auditReader,
		Localizer:        localizer,
		Logger:           logger.Named("server"),
	})
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, fmt.Errorf("build server: %w", err)
	}
	return &service{server: srv, store: store, logger: logger}, nil
}
