package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/candigo/candigo/internal/francetravail"
	"github.com/candigo/candigo/internal/letter"
	"github.com/candigo/candigo/internal/letter/gemini"
	"github.com/candigo/candigo/internal/notify"
	"github.com/candigo/candigo/internal/pipeline"
	"github.com/candigo/candigo/internal/scoring"
	"github.com/candigo/candigo/internal/secrets"
	"github.com/candigo/candigo/internal/source"
	"github.com/candigo/candigo/internal/store"
	"github.com/candigo/candigo/internal/submit"

	"github.com/spf13/viper"
)

const (
	defaultStorePath = "candigo.db"
	defaultOutboxDir = "outbox"
)

// engine bundles everything a command needs to run cycles or inspect
// their results.
type engine struct {
	controller *pipeline.Controller
	store      store.Store
	fetchers   []source.Fetcher
	query      source.Query
	config     *Config
	logger     *zap.Logger
}

// buildEngine wires the collaborators described by the config file into
// a ready-to-run pipeline controller.
func buildEngine(ctx context.Context, config *Config, logger *zap.Logger) (*engine, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.Profile == nil {
		return nil, errors.New("a profile section is required")
	}
	if err := config.Profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}

	scoringCfg := scoring.DefaultConfig()
	if config.Scoring != nil {
		scoringCfg = *config.Scoring
	}
	scorer, err := scoring.NewScorer(scoringCfg)
	if err != nil {
		return nil, fmt.Errorf("invalid scoring config: %w", err)
	}

	pipelineCfg := pipeline.DefaultConfig()
	if config.Pipeline != nil {
		pipelineCfg = config.Pipeline.WithDefaults()
	}

	storePath := defaultStorePath
	if config.Store != nil && config.Store.Path != "" {
		storePath = config.Store.Path
	}
	st, err := store.NewSQLiteStore(storePath)
	if err != nil {
		return nil, fmt.Errorf("open tracking store: %w", err)
	}

	outboxDir := defaultOutboxDir
	if config.Outbox != nil && config.Outbox.Dir != "" {
		outboxDir = config.Outbox.Dir
	}

	generator, fallback, err := buildGenerators(ctx, config.Letter, logger)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	notifier, err := buildNotifier(config.Notify, logger)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	fetchers, err := buildFetchers(config.Sources, logger)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	controller, err := pipeline.NewController(pipelineCfg, scorer, pipeline.Deps{
		Store:     st,
		Generator: generator,
		Fallback:  fallback,
		Outbox:    submit.NewOutbox(outboxDir),
		Notifier:  notifier,
		Logger:    logger,
	})
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	var query source.Query
	if config.Search != nil {
		query = *config.Search
	}

	return &engine{
		controller: controller,
		store:      st,
		fetchers:   fetchers,
		query:      query,
		config:     config,
		logger:     logger,
	}, nil
}

func (e *engine) Close() error {
	return e.store.Close()
}

func buildGenerators(ctx context.Context, cfg *LetterConfig, logger *zap.Logger) (generator, fallback letter.Generator, err error) {
	provider := "template"
	if cfg != nil && cfg.Provider != "" {
		provider = strings.TrimSpace(strings.ToLower(cfg.Provider))
	}

	switch provider {
	case "template":
		return letter.NewTemplateGenerator(), nil, nil
	case "gemini":
		geminiCfg := &GeminiConfig{}
		if cfg != nil && cfg.Gemini != nil {
			geminiCfg = cfg.Gemini
		}

		keyFile := geminiCfg.APIKeyFile
		if keyFile == "" {
			keyFile = viper.GetString("gemini-api-key-file")
		}
		apiKey, err := secrets.Load(secrets.Source{
			Name: "gemini api key",
			File: keyFile,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("%w (set letter.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
		}

		gen, err := gemini.NewGenerator(ctx, apiKey, geminiCfg.Model, geminiCfg.MaxLogLength, logger)
		if err != nil {
			return nil, nil, err
		}

		if cfg != nil && cfg.Fallback {
			fallback = letter.NewTemplateGenerator()
		}
		return gen, fallback, nil
	default:
		return nil, nil, fmt.Errorf("unsupported letter provider: %s", provider)
	}
}

func buildNotifier(cfg *NotifyConfig, logger *zap.Logger) (notify.Notifier, error) {
	if cfg == nil || cfg.Email == nil {
		return &notify.LogNotifier{Logger: logger}, nil
	}

	passwordFile := cfg.PasswordFile
	if passwordFile == "" {
		passwordFile = viper.GetString("smtp-password-file")
	}
	password, err := secrets.Load(secrets.Source{
		Name: "smtp password",
		File: passwordFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set notify.password-file or SMTP_PASSWORD_FILE)", err)
	}

	return notify.NewEmailNotifier(*cfg.Email, password)
}

func buildFetchers(cfg *SourcesConfig, logger *zap.Logger) ([]source.Fetcher, error) {
	if cfg == nil || cfg.FranceTravail == nil || !cfg.FranceTravail.Enabled {
		return nil, errors.New("no sources enabled; enable sources.france-travail")
	}

	ft := cfg.FranceTravail
	if ft.ClientID == "" {
		return nil, errors.New("sources.france-travail.client-id is required")
	}
	secret, err := secrets.Load(secrets.Source{
		Name: "france travail client secret",
		File: ft.ClientSecretFile,
	})
	if err != nil {
		return nil, err
	}

	return []source.Fetcher{francetravail.New(ft.ClientID, secret, logger)}, nil
}
