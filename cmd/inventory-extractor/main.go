package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"inventory-extractor/internal/browser"
	"inventory-extractor/internal/config"
	"inventory-extractor/internal/extractor"
	"inventory-extractor/internal/metrics"
	"inventory-extractor/internal/navigator"
	"inventory-extractor/internal/session"
	"inventory-extractor/internal/writer"
)

var (
	baseURL          string
	username         string
	password         string
	sessionFile      string
	outputDir        string
	headless         bool
	stepTimeout      int
	refreshTimeout   int
	loadMoreAttempts int
	onStall          string
	selectorFile     string
	metricsAddr      string
	verbose          bool
)

func main() {
	// Load .env file if present (silently ignore if not found)
	_ = godotenv.Load()

	defaults := config.DefaultConfig()
	if value, ok := config.EnvString("PORTAL_BASE_URL"); ok {
		defaults.BaseURL = value
	}
	if value, ok := config.EnvString("PORTAL_SESSION_FILE"); ok {
		defaults.SessionFile = value
	}
	if value, ok, err := config.EnvBool("PORTAL_HEADLESS"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid PORTAL_HEADLESS: %v\n", err)
		os.Exit(1)
	} else if ok {
		defaults.Headless = value
	}
	if value, ok, err := config.EnvInt("PORTAL_STEP_TIMEOUT"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid PORTAL_STEP_TIMEOUT: %v\n", err)
		os.Exit(1)
	} else if ok {
		defaults.StepTimeout = time.Duration(value) * time.Second
	}

	if err := newRootCmd(defaults).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(defaults *config.Config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "inventory-extractor",
		Short: "Extract product inventory data from the hiring portal",
		Long: `inventory-extractor logs into the portal (reusing a saved browser session
when one is still valid), navigates to the full product table, pages through
every row or card, and writes the result to a timestamped JSON file.

Credentials come from PORTAL_USERNAME and PORTAL_PASSWORD (or a .env file).`,
		Args: cobra.NoArgs,
		RunE: run,
	}

	rootCmd.Flags().StringVar(&baseURL, "base-url", defaults.BaseURL, "Portal URL")
	rootCmd.Flags().StringVar(&username, "username", "", "Login email (default: PORTAL_USERNAME)")
	rootCmd.Flags().StringVar(&password, "password", "", "Login password (default: PORTAL_PASSWORD)")
	rootCmd.Flags().StringVar(&sessionFile, "session-file", defaults.SessionFile, "Persisted session state file")
	rootCmd.Flags().StringVarP(&outputDir, "output-dir", "o", defaults.OutputDir, "Directory for output files")
	rootCmd.Flags().BoolVar(&headless, "headless", defaults.Headless, "Run the browser headless")
	rootCmd.Flags().IntVar(&stepTimeout, "step-timeout", int(defaults.StepTimeout/time.Second), "Per-step timeout (seconds)")
	rootCmd.Flags().IntVar(&refreshTimeout, "refresh-timeout", int(defaults.RefreshTimeout/time.Second), "Pagination refresh timeout (seconds)")
	rootCmd.Flags().IntVar(&loadMoreAttempts, "load-more-attempts", defaults.LoadMoreAttempts, "Stale load-more attempts before stopping (card layout)")
	rootCmd.Flags().StringVar(&onStall, "on-stall", defaults.OnStall, "Pagination stall policy: truncate or fail")
	rootCmd.Flags().StringVar(&selectorFile, "selectors", "", "YAML selector profile overriding the built-in selectors")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Prometheus metrics listen address (e.g. :9090)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	return rootCmd
}

func run(cmd *cobra.Command, args []string) error {
	slog.SetDefault(newLogger(verbose))

	cfg := buildConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	selectors := config.DefaultSelectors()
	if cfg.SelectorFile != "" {
		var err error
		selectors, err = config.LoadSelectors(cfg.SelectorFile)
		if err != nil {
			return err
		}
	}

	m := metrics.New()
	metricsServer := startMetricsServer(cfg.MetricsAddr, m)
	defer stopMetricsServer(metricsServer)

	fmt.Printf("→ Launching browser... ")
	b, err := browser.Launch(browser.Options{Headless: cfg.Headless})
	if err != nil {
		fmt.Println("failed")
		return err
	}
	defer b.Close()
	fmt.Println("done")

	start := time.Now()

	fmt.Printf("→ Opening %s... ", cfg.BaseURL)
	initializer := session.NewInitializer(b, session.NewStore(cfg.SessionFile), session.Credentials{
		Username: cfg.Username,
		Password: cfg.Password,
	}, selectors.Login, cfg.StepTimeout)
	resumed, err := initializer.Start(cfg.BaseURL)
	if err != nil {
		fmt.Println("failed")
		m.IncError("login")
		return err
	}
	if resumed {
		fmt.Println("done (session resumed)")
	} else {
		fmt.Println("done (fresh login)")
	}

	fmt.Printf("→ Navigating to product table... ")
	nav := navigator.New(b.Page(), selectors.Steps, cfg.StepTimeout, m)
	if err := nav.Run(); err != nil {
		fmt.Println("failed")
		m.IncError("navigation")
		b.Screenshot("navigation_error.png")
		return err
	}
	fmt.Println("done")

	fmt.Printf("→ Extracting records... ")
	ext, err := extractor.New(b.Page(), extractor.Options{
		RefreshTimeout:   cfg.RefreshTimeout,
		OnStall:          cfg.OnStall,
		LoadMoreAttempts: cfg.LoadMoreAttempts,
		Selectors:        selectors,
	}, m)
	if err != nil {
		fmt.Println("failed")
		return err
	}
	records, err := ext.Run()
	if err != nil {
		fmt.Println("failed")
		m.IncError("extraction")
		return err
	}
	fmt.Printf("done (%d records)\n", len(records))

	fmt.Printf("→ Writing output... ")
	w := writer.New(cfg.OutputDir)
	path, err := w.Write(writer.Result{Records: records, CapturedAt: time.Now()})
	if err != nil {
		fmt.Println("failed")
		m.IncError("write")
		return err
	}
	if err := w.Validate(path); err != nil {
		fmt.Println("failed")
		m.IncError("write")
		return err
	}
	fmt.Println("done")

	printSummary(len(records), resumed, time.Since(start), path)
	return nil
}

func buildConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.SessionFile = sessionFile
	cfg.OutputDir = outputDir
	cfg.Headless = headless
	cfg.StepTimeout = time.Duration(stepTimeout) * time.Second
	cfg.RefreshTimeout = time.Duration(refreshTimeout) * time.Second
	cfg.LoadMoreAttempts = loadMoreAttempts
	cfg.OnStall = onStall
	cfg.SelectorFile = selectorFile
	cfg.MetricsAddr = metricsAddr
	cfg.Verbose = verbose

	cfg.Username = username
	if cfg.Username == "" {
		cfg.Username, _ = config.EnvString("PORTAL_USERNAME")
	}
	cfg.Password = password
	if cfg.Password == "" {
		cfg.Password, _ = config.EnvString("PORTAL_PASSWORD")
	}
	return cfg
}

func startMetricsServer(addr string, m *metrics.Metrics) *http.Server {
	if addr == "" {
		return nil
	}
	server := &http.Server{
		Addr:    addr,
		Handler: promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", addr))
	return server
}

func stopMetricsServer(server *http.Server) {
	if server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("metrics server shutdown failed", slog.Any("error", err))
	}
}

func printSummary(records int, resumed bool, duration time.Duration, path string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Extraction complete")
	fmt.Printf("  Records:      %d\n", records)
	fmt.Printf("  Session:      %s\n", sessionLabel(resumed))
	fmt.Printf("  Duration:     %v\n", duration)
	fmt.Printf("  Output file:  %s\n", path)
	fmt.Println(separator)
}

func sessionLabel(resumed bool) string {
	if resumed {
		return "resumed"
	}
	return "fresh login"
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
