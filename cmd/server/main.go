package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/cloudseed-visualizer/backend/internal/api"
	"github.com/cloudseed-visualizer/backend/internal/catalog"
	"github.com/cloudseed-visualizer/backend/internal/config"
	"github.com/cloudseed-visualizer/backend/internal/logger"
	"github.com/cloudseed-visualizer/backend/internal/metrics"
	"github.com/cloudseed-visualizer/backend/internal/models"
	"github.com/cloudseed-visualizer/backend/internal/parser"
	"github.com/cloudseed-visualizer/backend/internal/session"
	"github.com/cloudseed-visualizer/backend/internal/web"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	exeDir := filepath.Dir(exePath)

	// Load YAML configuration
	configPath := filepath.Join(exeDir, "cloudseed-visualizer.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Ensure data and log directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Printf("Failed to create directories: %v\n", err)
		os.Exit(1)
	}

	lg := logger.New(cfg.Advanced.LogLevel, cfg.Advanced.LogDirectory)
	lg.Infof("Starting Cloud Seeding Flight Visualizer %s (built %s)", Version, BuildTime)

	// Check if running in embedded mode (frontend built into binary)
	embeddedMode := web.HasEmbeddedFiles()

	// Metrics collector (optional)
	var met *metrics.Collector
	if cfg.Advanced.EnableMetrics {
		met, err = metrics.New()
		if err != nil {
			fmt.Printf("Failed to initialize metrics: %v\n", err)
			os.Exit(1)
		}
	}

	// Initialize the flight catalog
	store, err := catalog.NewLocalStore(cfg.GetDataDir(), lg)
	if err != nil {
		fmt.Printf("Failed to initialize flight catalog: %v\n", err)
		os.Exit(1)
	}

	loader, err := catalog.NewLoader(store, cfg.Data.FlightCacheSize, lg)
	if err != nil {
		fmt.Printf("Failed to initialize flight loader: %v\n", err)
		os.Exit(1)
	}

	// Marker display rules: optional YAML file, built-in scheme otherwise
	rules := models.DefaultMarkerRules()
	if cfg.Data.MarkerRulesFile != "" {
		rules, err = parser.ParseMarkerRules(cfg.Data.MarkerRulesFile)
		if err != nil {
			lg.Warnf("Failed to load marker rules from %s: %v", cfg.Data.MarkerRulesFile, err)
			rules = models.DefaultMarkerRules()
		} else {
			lg.Infof("Marker rules loaded from %s", cfg.Data.MarkerRulesFile)
		}
	}

	// Initialize the playback session manager
	sessionMgr := session.NewManager(session.Config{
		Loader:       loader,
		Rules:        rules,
		TickInterval: cfg.TickInterval(),
		Metrics:      met,
		Logger:       lg,
	})

	// Start background session cleanup
	go func() {
		ticker := time.NewTicker(cfg.CleanupInterval())
		defer ticker.Stop()
		for range ticker.C {
			if n := sessionMgr.CleanupIdle(cfg.SessionTimeout()); n > 0 {
				lg.Infof("Reaped %d idle playback sessions", n)
			}
		}
	}()

	// Watch the data directory so new flights appear without a restart
	if cfg.Data.WatchDataDirectory {
		watcher, err := catalog.NewWatcher(cfg.GetDataDir(), func() {
			if err := store.Reload(); err != nil {
				lg.Warnf("Catalog reload after data change failed: %v", err)
				return
			}
			loader.Invalidate()
			met.CatalogReloaded()
			lg.Infof("Catalog reloaded after data directory change: %d flights", len(store.List()))
		}, lg)
		if err != nil {
			lg.Warnf("Data directory watch disabled: %v", err)
		} else {
			defer watcher.Close()
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api.ErrorHandler

	// Configure middleware
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			// Skip logging if disabled in config
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return path == "/api/health" || path == "/metrics" ||
				strings.Contains(path, "/frames/")
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize:         1024 * 4,
		DisablePrintStack: false,
		LogLevel:          0,
	}))

	// Compression middleware; frame images are already compressed PNGs
	if cfg.Server.EnableCompression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level: cfg.Server.CompressionLevel,
			Skipper: func(c echo.Context) bool {
				path := c.Request().URL.Path
				return strings.Contains(path, "/frames/") ||
					strings.Contains(path, "/playback/ws")
			},
		}))
	}

	// Body limit middleware
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// CORS configuration
	if cfg.Server.EnableCORS {
		if embeddedMode {
			// In embedded mode, use config settings
			origins := strings.Split(cfg.Server.AllowOrigins, ",")
			for i := range origins {
				origins[i] = strings.TrimSpace(origins[i])
			}
			if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
				origins = []string{"*"}
			}
			e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
				AllowOrigins: origins,
				AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
				AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
			}))
		} else {
			// Development mode - only allow localhost dev servers
			e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
				AllowOrigins: []string{
					"http://localhost:5173", "http://127.0.0.1:5173",
					"http://localhost:3000", "http://127.0.0.1:3000",
				},
				AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
				AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
			}))
		}
	}

	// Request metrics and the Prometheus scrape endpoint
	if met != nil {
		e.Use(met.Middleware())
		e.GET("/metrics", echo.WrapHandler(met.Handler()))
	}

	// API routes
	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Store:          store,
		Loader:         loader,
		SessionMgr:     sessionMgr,
		Rules:          rules,
		Metrics:        met,
		Logger:         lg,
		Version:        Version,
		WSMaxReadBytes: cfg.WSMaxMessageBytes(),
	}))

	// Register embedded frontend if available
	if embeddedMode {
		if err := web.RegisterStaticRoutes(e); err != nil {
			lg.Warnf("Failed to register static routes: %v", err)
		} else {
			lg.Infof("Serving embedded frontend from binary")
		}
	}

	// Configure server with settings from config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Print startup banner
	mode := "Development"
	if embeddedMode {
		mode = "Air-Gapped (Embedded)"
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Cloud Seeding Flight Visualizer                 ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Mode:       %-45s║\n", mode)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Data Dir:  %-46s║\n", cfg.GetDataDir())
	fmt.Printf("║  Flights:   %-46d║\n", len(store.List()))
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	if embeddedMode {
		fmt.Printf("Open http://localhost:%d in your browser\n\n", cfg.Server.Port)
	}

	e.Logger.Fatal(e.StartServer(s))
}
