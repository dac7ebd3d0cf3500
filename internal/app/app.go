// Package app wires configuration, the view store, routing, analyzers, and
// the MCP server into one initialized application core shared by
// cmd/fonradar and cmd/fonradar-mcp.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/fonradar/fonradar/internal/clients/gemini"
	"github.com/fonradar/fonradar/internal/common"
	"github.com/fonradar/fonradar/internal/interfaces"
	"github.com/fonradar/fonradar/internal/models"
	"github.com/fonradar/fonradar/internal/question"
	"github.com/fonradar/fonradar/internal/risk"
	"github.com/fonradar/fonradar/internal/routing"
	"github.com/fonradar/fonradar/internal/services/currency"
	"github.com/fonradar/fonradar/internal/services/lifeplan"
	"github.com/fonradar/fonradar/internal/services/metrics"
	"github.com/fonradar/fonradar/internal/services/performance"
	"github.com/fonradar/fonradar/internal/services/query"
	"github.com/fonradar/fonradar/internal/services/technical"
	"github.com/fonradar/fonradar/internal/viewstore"
)

// App holds all initialized services and the MCP server.
type App struct {
	Config       *common.Config
	Logger       *common.Logger
	Store        interfaces.ViewStore
	Questions    interfaces.QuestionAnalyzer
	Orchestrator interfaces.Orchestrator
	Scorer       interfaces.RiskScorer
	Gemini       *gemini.Client
	QueryService interfaces.QueryService
	MCPServer    *server.MCPServer
	StartupTime  time.Time

	refreshStop func()
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes the full application core. configPath may be empty, in
// which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	common.LoadVersionFromFile()
	binDir := getBinaryDir()

	// Load configuration - check provided path, FONRADAR_CONFIG, then binary
	// dir, then fallback
	if configPath == "" {
		configPath = os.Getenv("FONRADAR_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "fonradar.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/fonradar.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve a relative store path against the binary directory when it does
	// not exist relative to the working directory.
	if config.Store.Path != "" && !filepath.IsAbs(config.Store.Path) {
		if _, err := os.Stat(config.Store.Path); os.IsNotExist(err) {
			config.Store.Path = filepath.Join(binDir, config.Store.Path)
		}
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	store, err := viewstore.NewSQLite(config.Store.Path, logger,
		viewstore.WithQueryTimeout(config.Store.GetTimeout()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open view store: %w", err)
	}

	// The canonical code universe loads once at startup; newly listed funds
	// appear after a restart or view refresh.
	ctx := context.Background()
	codes, err := store.AllFundCodes(ctx)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to load fund codes: %w", err)
	}
	logger.Info().Int("codes", len(codes)).Msg("Canonical fund universe loaded")

	questions := question.NewAnalyzer(codes)
	scorer := risk.NewScorer()
	orchestrator := routing.NewOrchestrator(store, scorer, logger,
		routing.WithMaxRoutes(config.Routing.MaxRoutes),
		routing.WithCache(config.Routing.GetCacheTTL(), config.Routing.CacheSize),
	)

	var geminiClient *gemini.Client
	if key := config.Clients.Gemini.APIKey; key != "" {
		geminiClient, err = gemini.NewClient(ctx, key,
			gemini.WithLogger(logger),
			gemini.WithModel(config.Clients.Gemini.Model),
			gemini.WithRateLimit(config.Clients.Gemini.RateLimit),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize Gemini client - commentary disabled")
			geminiClient = nil
		}
	} else {
		logger.Info().Msg("Gemini API key not configured - commentary disabled")
	}

	var queryOpts []query.Option
	if geminiClient != nil {
		queryOpts = append(queryOpts, query.WithCommentary(geminiClient))
	}
	queryService := query.NewService(questions, orchestrator,
		buildRegistry(store, scorer, logger), logger, queryOpts...)

	mcpServer := server.NewMCPServer(
		"fonradar",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	a := &App{
		Config:       config,
		Logger:       logger,
		Store:        store,
		Questions:    questions,
		Orchestrator: orchestrator,
		Scorer:       scorer,
		Gemini:       geminiClient,
		QueryService: queryService,
		MCPServer:    mcpServer,
		StartupTime:  startupStart,
	}

	a.registerTools()

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")
	return a, nil
}

// buildRegistry maps every routing handler name to its analyzer. The
// performance analyzer also serves the company-fund and risk-report handlers.
func buildRegistry(store interfaces.ViewStore, scorer interfaces.RiskScorer, logger *common.Logger) map[string]interfaces.Analyzer {
	perf := performance.NewAnalyzer(store, scorer, logger)
	return map[string]interfaces.Analyzer{
		models.HandlerPerformance:      perf,
		models.HandlerPortfolioCompany: perf,
		models.HandlerRiskAnalysis:     perf,
		models.HandlerAdvancedMetrics:  metrics.NewAnalyzer(store, scorer, logger),
		models.HandlerCurrency:         currency.NewAnalyzer(store, scorer, logger),
		models.HandlerTechnical:        technical.NewAnalyzer(store, scorer, logger),
		models.HandlerLifePlan:         lifeplan.NewAnalyzer(store, scorer, logger),
	}
}

// Close releases all resources held by the App.
// Shutdown order: stop the refresh scheduler, close the store.
func (a *App) Close() {
	if a.refreshStop != nil {
		a.refreshStop()
		a.refreshStop = nil
	}
	if a.Store != nil {
		a.Store.Close()
		a.Store = nil
	}
}

// registerTools registers all MCP tools on the App's MCPServer.
func (a *App) registerTools() {
	s := a.MCPServer
	s.AddTool(createGetVersionTool(), handleGetVersion())
	s.AddTool(createAskQuestionTool(), handleAskQuestion(a.QueryService, a.Logger))
	s.AddTool(createGetFundRiskTool(), handleGetFundRisk(a.Store, a.Scorer, a.Logger))
	s.AddTool(createListFundCodesTool(), handleListFundCodes(a.Store, a.Logger))
	s.AddTool(createRefreshViewsTool(), handleRefreshViews(a.Store, a.Logger))
}
