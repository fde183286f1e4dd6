// yentui is a terminal dashboard for economic news, AI article analysis,
// a company watchlist and product-to-company lookup.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/qyinm/yentui/backend"
	"github.com/qyinm/yentui/config"
	"github.com/qyinm/yentui/settings"
	"github.com/qyinm/yentui/ui"
)

// Set via -ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "yentui",
	Short:         "Economic news, analysis and company insights in your terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")
		loader := config.NewLoader(configFile)
		v := loader.Viper()
		if err := v.BindPFlag("base_url", cmd.Flags().Lookup("base-url")); err != nil {
			return fmt.Errorf("bind base-url: %w", err)
		}
		if err := v.BindPFlag("log_level", cmd.Flags().Lookup("log-level")); err != nil {
			return fmt.Errorf("bind log-level: %w", err)
		}

		cfg, err := loader.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return run(loader, cfg)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("yentui %s (commit %s)\n", version, commit)
	},
}

func init() {
	rootCmd.Flags().String("config", "", "config file path (default: $XDG_CONFIG_HOME/yentui/yentui.yaml)")
	rootCmd.Flags().String("base-url", "", "backend base URL override")
	rootCmd.Flags().String("log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.AddCommand(versionCmd)
}

func run(loader *config.Loader, cfg config.Config) error {
	logFile, err := config.OpenLogFile(cfg.LogFile)
	if err != nil {
		return err
	}
	defer logFile.Close()
	logger := config.NewLogger(logFile, cfg.LogLevel)
	logger.Info("starting yentui", "version", version, "base_url", cfg.BaseURL)

	store, err := settings.Open(filepath.Join(cfg.DataDir, "yentui.db"))
	if err != nil {
		return err
	}
	defer store.Close()

	client := backend.New(cfg.BaseURL,
		backend.WithTimeout(cfg.Timeout),
		backend.WithCacheTTL(cfg.CacheTTL),
		backend.WithLogger(logger.With("component", "backend")),
	)

	theme := settings.ThemeLight
	if lipgloss.HasDarkBackground() {
		theme = settings.ThemeDark
	}

	model := ui.NewModel(ui.Options{
		Backend:      client,
		Store:        store,
		Config:       cfg,
		Logger:       logger.With("component", "ui"),
		DefaultTheme: theme,
	})
	p := tea.NewProgram(model, tea.WithAltScreen())

	loader.Watch(func(next config.Config, e fsnotify.Event, err error) {
		if err != nil {
			logger.Warn("config reload rejected", "file", e.Name, "err", err)
			return
		}
		logger.Info("config reloaded", "file", e.Name)
		p.Send(ui.ConfigReloadedMsg{Config: next})
	})

	if _, err := p.Run(); err != nil {
		logger.Error("program exited with error", slog.Any("err", err))
		return fmt.Errorf("run: %w", err)
	}
	return nil
}
