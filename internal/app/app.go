package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/stockreplay/internal/clients/gemini"
	"github.com/bobmcallan/stockreplay/internal/clients/histock"
	"github.com/bobmcallan/stockreplay/internal/clients/morningstar"
	"github.com/bobmcallan/stockreplay/internal/clients/tavily"
	"github.com/bobmcallan/stockreplay/internal/clients/yahoo"
	"github.com/bobmcallan/stockreplay/internal/clients/yahootw"
	"github.com/bobmcallan/stockreplay/internal/common"
	"github.com/bobmcallan/stockreplay/internal/interfaces"
	"github.com/bobmcallan/stockreplay/internal/services/history"
	"github.com/bobmcallan/stockreplay/internal/services/movers"
	"github.com/bobmcallan/stockreplay/internal/services/news"
	"github.com/bobmcallan/stockreplay/internal/storage/refdata"
)

// App holds the reference store, clients and services.
// It is the shared core used by cmd/stockreplay-server and the handler tests.
type App struct {
	Config          *common.Config
	Logger          *common.Logger
	Store           interfaces.ReferenceStore
	NameResolver    interfaces.NameResolver
	SnapshotService interfaces.SnapshotService
	HistoryService  interfaces.HistoryService
	NewsService     interfaces.NewsService
	StartupTime     time.Time

	// Configured external integrations, reported by /api/diagnostics
	MorningStarConfigured bool
	TavilyConfigured      bool
	GeminiConfigured      bool
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// ResolveConfigPath picks the config file: explicit path, STOCKREPLAY_CONFIG,
// stockreplay.toml beside the binary, then config/stockreplay.toml.
func ResolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("STOCKREPLAY_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "stockreplay.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/stockreplay.toml" // fallback for development
		}
	}
	return configPath
}

// NewApp loads configuration and initializes the store, clients and services.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	config, err := common.LoadConfig(ResolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	binDir := getBinaryDir()

	// Resolve relative log file path to binary directory
	if config.Logging.FilePath != "" && !filepath.IsAbs(config.Logging.FilePath) {
		config.Logging.FilePath = filepath.Join(binDir, config.Logging.FilePath)
	}

	// A relative dataset path is tried beside the binary before the working directory
	if p := config.Dataset.Path; p != "" && !filepath.IsAbs(p) {
		if candidate := filepath.Join(binDir, p); fileExists(candidate) {
			config.Dataset.Path = candidate
		}
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	return New(config, logger)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// New wires an App from an already loaded config. The reference dataset is
// loaded eagerly; a missing or malformed dataset fails startup.
func New(config *common.Config, logger *common.Logger) (*App, error) {
	startupStart := time.Now()
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	source := refdata.EmbeddedSource()
	if config.Dataset.Path != "" {
		source = refdata.FileSource(config.Dataset.Path)
	}
	store := refdata.NewStore(source, logger)
	if err := store.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to load reference dataset: %w", err)
	}

	clients := config.Clients

	// Resolve API keys
	rapidKey, err := common.ResolveAPIKey(morningstar.APIKeySetting, clients.MorningStar.APIKey)
	if err != nil {
		logger.Warn().Msg("RapidAPI key not configured - morning-star movers will use the fallback list")
	}

	tavilyKey, err := common.ResolveAPIKey(tavily.APIKeySetting, clients.Tavily.APIKey)
	if err != nil {
		logger.Warn().Msg("Tavily API key not configured - news search will be unavailable")
	}

	geminiKey, err := common.ResolveAPIKey(gemini.APIKeySetting, config.Clients.Gemini.APIKey)
	if err != nil {
		logger.Warn().Msg("Gemini API key not configured - news summaries will be unavailable")
	}

	// Initialize API clients
	histockClient := histock.NewClient(
		histock.WithBaseURL(clients.HiStock.BaseURL),
		histock.WithLogger(logger),
		histock.WithRateLimit(clients.HiStock.RateLimit),
		histock.WithTimeout(clients.HiStock.GetTimeout()),
	)

	yahooTWClient := yahootw.NewClient(
		yahootw.WithBaseURL(clients.YahooTW.BaseURL),
		yahootw.WithLogger(logger),
		yahootw.WithRateLimit(clients.YahooTW.RateLimit),
		yahootw.WithTimeout(clients.YahooTW.GetTimeout()),
	)

	yahooClient := yahoo.NewClient(
		yahoo.WithBaseURL(clients.Yahoo.BaseURL),
		yahoo.WithLogger(logger),
		yahoo.WithRateLimit(clients.Yahoo.RateLimit),
		yahoo.WithTimeout(clients.Yahoo.GetTimeout()),
	)

	morningStarClient := morningstar.NewClient(rapidKey,
		morningstar.WithBaseURL(clients.MorningStar.BaseURL),
		morningstar.WithLogger(logger),
		morningstar.WithRateLimit(clients.MorningStar.RateLimit),
		morningstar.WithTimeout(clients.MorningStar.GetTimeout()),
	)

	tavilyClient := tavily.NewClient(tavilyKey,
		tavily.WithBaseURL(clients.Tavily.BaseURL),
		tavily.WithLogger(logger),
		tavily.WithRateLimit(clients.Tavily.RateLimit),
		tavily.WithTimeout(clients.Tavily.GetTimeout()),
	)

	var summarizer interfaces.Summarizer
	if geminiKey != "" {
		geminiClient, err := gemini.NewClient(context.Background(), geminiKey,
			gemini.WithLogger(logger),
			gemini.WithModel(config.Clients.Gemini.Model),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize Gemini client")
		} else {
			summarizer = geminiClient
		}
	}

	etfSource := movers.NewETFSource(yahooClient,
		movers.WithConcurrency(config.Snapshot.ETFConcurrency),
		movers.WithSymbolTimeout(clients.Yahoo.GetTimeout()),
		movers.WithETFLogger(logger),
	)

	// Initialize services
	snapshotService := movers.NewService(store, movers.Sources{
		DayTrading:  []interfaces.SourceAdapter{histockClient},
		USETF:       []interfaces.SourceAdapter{etfSource},
		MorningStar: []interfaces.SourceAdapter{morningStarClient},
	}, logger, movers.WithGrace(config.Snapshot.GetGrace()))

	historyService := history.NewService(yahooClient, logger)
	newsService := news.NewService(store, yahooTWClient, tavilyClient, summarizer, logger)

	a := &App{
		Config:                config,
		Logger:                logger,
		Store:                 store,
		NameResolver:          yahooTWClient,
		SnapshotService:       snapshotService,
		HistoryService:        historyService,
		NewsService:           newsService,
		StartupTime:           startupStart,
		MorningStarConfigured: rapidKey != "",
		TavilyConfigured:      tavilyKey != "",
		GeminiConfigured:      summarizer != nil,
	}

	logger.Info().
		Int("stocks", store.Len()).
		Str("dataset", source.Name()).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return a, nil
}

// Close releases resources held by the App.
func (a *App) Close() {
	a.Logger.Debug().Msg("App closed")
}
