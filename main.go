package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"netforensic/internal/analysis"
	"netforensic/internal/config"
	"netforensic/internal/logging"
	"netforensic/internal/models"
	"netforensic/internal/reporting"
	"netforensic/internal/retention"
	"netforensic/internal/server"
	"netforensic/internal/store"
	"netforensic/internal/tshark"
	"netforensic/internal/tui"
)

func main() {
	configPath := flag.String("config", "", "Path to a .toml, .yaml or .json config file")
	readFile := flag.String("r", "", "Analyze a capture file in the terminal instead of serving HTTP")
	reportPath := flag.String("report", "", "With -r, also write the HTML report to this path")
	addr := flag.String("addr", "", "Listen address (overrides the config file)")
	flag.Parse()

	loader := config.NewLoader(*configPath)
	defer loader.Close()

	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	if *readFile != "" {
		if err := runOffline(cfg, *readFile, *reportPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := serve(loader, cfg, *configPath != ""); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runOffline analyzes one capture in the TUI. Logs are discarded since the
// terminal belongs to the UI.
func runOffline(cfg *config.Config, path, reportPath string) error {
	logger := logging.Discard()

	session, err := store.Describe(path)
	if err != nil {
		return err
	}

	runner := tshark.NewRunner(cfg.Tshark.Path, cfg.Tshark.Timeout.Std(), logger)
	analyzer := analysis.NewAnalyzer(runner, analysis.NewScorer(cfg.Risk), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	model := tui.NewAnalysisModel(session.Filename, func() (*models.AnalysisResult, error) {
		return analyzer.Analyze(ctx, session)
	})

	final, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	m := final.(tui.AnalysisModel)
	if m.Err() != nil {
		return m.Err()
	}
	if reportPath != "" && m.Result() != nil {
		if err := reporting.NewGenerator(logger).WriteFile(reportPath, m.Result()); err != nil {
			return err
		}
		fmt.Printf("Report written to %s\n", reportPath)
	}
	return nil
}

func serve(loader *config.Loader, cfg *config.Config, watch bool) error {
	logger := logging.New(cfg.LoggerConfig())

	st, err := store.New(cfg.Storage.Dir, cfg.Storage.AllowedExtensions, logger)
	if err != nil {
		return err
	}

	runner := tshark.NewRunner(cfg.Tshark.Path, cfg.Tshark.Timeout.Std(), logger)
	analyzer := analysis.NewAnalyzer(runner, analysis.NewScorer(cfg.Risk), logger)
	sweeper := retention.NewSweeper(st.Dir(), cfg.Storage.Retention.Std(), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Only the risk rules are hot-reloaded; everything else needs a restart.
	if watch {
		loader.OnChange(func(c *config.Config) {
			analyzer.SetScorer(analysis.NewScorer(c.Risk))
			logger.Info("risk rules reloaded")
		})
		if err := loader.Watch(); err != nil {
			logger.Warn("config hot reload disabled", "error", err)
		} else {
			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case err := <-loader.Errors():
						logger.Warn("config reload rejected", "error", err)
					}
				}
			}()
		}
	}

	logger.Info("starting netforensic",
		"addr", cfg.Server.Addr,
		"storage", st.Dir(),
		"tshark", runner.Path(),
		"retention", cfg.Storage.Retention.String())

	srv := server.New(server.Options{
		MaxUploadBytes:          cfg.Server.MaxUploadBytes,
		GenerateReportOnAnalyze: cfg.Server.GenerateReportOnAnalyze,
	}, st, analyzer, reporting.NewGenerator(logger), sweeper, logger)

	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}
