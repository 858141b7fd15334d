package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	"github.com/smartcom/smartcom-go/pkg/cart"
	"github.com/smartcom/smartcom-go/pkg/config"
	"github.com/smartcom/smartcom-go/pkg/extraction"
	"github.com/smartcom/smartcom-go/pkg/metadatastore"
	"github.com/smartcom/smartcom-go/pkg/metrics"
	"github.com/smartcom/smartcom-go/pkg/nlq"
	"github.com/smartcom/smartcom-go/pkg/ontology"
	"github.com/smartcom/smartcom-go/pkg/triplestore"
)

// app holds the services shared by the commands.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	lexicon *ontology.Lexicon
	store   *triplestore.Client
	nlq     *nlq.Service
	carts   *cart.Service
	journal *metadatastore.SQLiteStore
	redis   *redis.Client
}

func loadConfig(flags *globalFlags) (*config.Config, error) {
	if flags.configPath != "" {
		os.Setenv("SMARTCOM_CONFIG", flags.configPath)
	}
	if flags.logLevel != "" {
		os.Setenv("LOG_LEVEL", flags.logLevel)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	level, _ := cfg.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// newApp wires the services. The checkout journal is opened only when
// withJournal is set, since read-only commands never check out.
func newApp(flags *globalFlags, withJournal bool) (*app, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)

	a := &app{cfg: cfg, logger: logger, metrics: metrics.New()}

	a.lexicon = ontology.Default()
	if cfg.LexiconFile != "" {
		a.lexicon, err = ontology.LoadFile(cfg.LexiconFile)
		if err != nil {
			return nil, fmt.Errorf("load lexicon: %w", err)
		}
		logger.Info("Loaded lexicon", "path", cfg.LexiconFile)
	}

	a.store = triplestore.NewClient(triplestore.Config{
		BaseURL:       cfg.FusekiURL,
		Dataset:       cfg.FusekiDataset,
		Timeout:       cfg.Timeout(),
		MaxConcurrent: cfg.SPARQLMaxConcurrent,
		MaxQPS:        cfg.SPARQLMaxQPS,
		Metrics:       a.metrics,
		Logger:        logger,
	})

	var recognizer extraction.Recognizer
	switch cfg.Recognizer {
	case config.RecognizerProse:
		recognizer = extraction.NewProseRecognizer()
	case config.RecognizerHTTP:
		recognizer = extraction.NewHTTPRecognizer(cfg.RecognizerURL, cfg.Timeout())
	}

	var translator nlq.Translator
	if recognizer != nil {
		translator = nlq.NewAITranslator(recognizer)
	}

	var limiter nlq.Limiter
	if cfg.NLQMaxPerMinute > 0 {
		if cfg.RedisURL != "" {
			redisLimiter, client, err := nlq.NewRedisLimiterFromURL(cfg.RedisURL, cfg.NLQMaxPerMinute)
			if err != nil {
				a.Close()
				return nil, err
			}
			a.redis = client
			limiter = redisLimiter
			logger.Info("Using shared rate limit window", "limit", cfg.NLQMaxPerMinute)
		} else {
			limiter = nlq.NewWindowLimiter(cfg.NLQMaxPerMinute, nlq.Window)
		}
	}

	extractor := extraction.NewExtractor(a.lexicon, recognizer, logger)
	a.nlq = nlq.NewService(a.store, nlq.Options{
		Translator: translator,
		Parser:     nlq.NewParser(a.lexicon),
		Extractor:  extractor,
		Limiter:    limiter,
		Metrics:    a.metrics,
		Logger:     logger,
	})

	cartOpts := cart.Options{Metrics: a.metrics, Logger: logger}
	if withJournal {
		if dir := filepath.Dir(cfg.JournalPath); cfg.JournalPath != ":memory:" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				a.Close()
				return nil, fmt.Errorf("create journal directory: %w", err)
			}
		}
		a.journal, err = metadatastore.NewSQLiteStore(cfg.JournalPath)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open checkout journal: %w", err)
		}
		cartOpts.Journal = a.journal
		logger.Info("Opened checkout journal", "path", cfg.JournalPath)
	}
	a.carts = cart.NewService(a.store, cartOpts)

	return a, nil
}

// Close releases the connections held by the app.
func (a *app) Close() {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.logger.Warn("Failed to close checkout journal", "error", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("Failed to close redis client", "error", err)
		}
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}
