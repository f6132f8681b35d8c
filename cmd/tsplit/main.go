// Package main provides the CLI entrypoint for tsplit.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/tsplit/internal/config"
	"github.com/verte-zerg/tsplit/internal/keymap"
	"github.com/verte-zerg/tsplit/internal/logging"
	"github.com/verte-zerg/tsplit/internal/model"
	"github.com/verte-zerg/tsplit/internal/session"
	"github.com/verte-zerg/tsplit/internal/store"
	"github.com/verte-zerg/tsplit/internal/timer"
	"github.com/verte-zerg/tsplit/internal/tui"
)

const (
	defaultLogLevel    = "info"
	defaultLogFormat   = "text"
	defaultCurveWindow = 20
)

var (
	runPath       string
	runComparison string
	runAutosave   bool
	runArchive    bool
	runLogLevel   string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tsplit",
		Short:         "Terminal speedrun timer",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE:          runTimerCmd,
	}

	rootCmd.PersistentFlags().StringVarP(&runPath, "file", "f", config.DefaultRunFile, "run file (.toml, .yaml or .json)")
	rootCmd.Flags().StringVar(&runComparison, "comparison", timer.PersonalBest, "initial comparison")
	rootCmd.Flags().BoolVar(&runAutosave, "autosave", true, "save the run file after every change")
	rootCmd.Flags().BoolVar(&runArchive, "archive", true, "mirror finished attempts into the stats archive")
	rootCmd.Flags().StringVar(&runLogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newNewCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newKeysCmd())

	return rootCmd
}

func runTimerCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "file", &runPath, fileCfg.Run.Path)
	applyBoolConfig(cmd, "autosave", &runAutosave, fileCfg.Run.Autosave)
	applyStringConfig(cmd, "comparison", &runComparison, fileCfg.Timer.Comparison)
	applyBoolConfig(cmd, "archive", &runArchive, fileCfg.Archive.Enabled)
	applyStringConfig(cmd, "log-level", &runLogLevel, fileCfg.Log.Level)

	cfg := model.Config{
		RunPath:     expandPath(runPath),
		Comparison:  runComparison,
		DefaultRun:  defaultRun(fileCfg.DefaultRun),
		Archive:     runArchive,
		ArchivePath: config.DefaultDBPath(),
	}
	if fileCfg.Archive.Path != nil {
		cfg.ArchivePath = expandPath(*fileCfg.Archive.Path)
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	keys, err := keymap.FromNames(fileCfg.Keys)
	if err != nil {
		return fmt.Errorf("invalid [keys] config: %w", err)
	}

	log, closeLog, err := newLogger(fileCfg.Log, runLogLevel)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeLog(); cerr != nil {
			logErrf("failed to close log: %v\n", cerr)
		}
	}()

	snap, err := session.LoadOrDefault(cfg.RunPath, cfg.DefaultRun, log)
	if err != nil {
		return fmt.Errorf("failed to load run: %w", err)
	}

	opts := session.Options{
		Path:            cfg.RunPath,
		DisableAutosave: !runAutosave,
		Logger:          log,
		TimerOptions:    []timer.Option{timer.WithComparison(cfg.Comparison)},
	}
	if cfg.Archive {
		st, err := store.Open(cfg.ArchivePath)
		if err != nil {
			logErrf("archive disabled: %v\n", err)
			log.Warn("archive disabled", "path", cfg.ArchivePath, "error", err)
		} else {
			defer func() {
				if cerr := st.Close(); cerr != nil {
					logErrf("failed to close db: %v\n", cerr)
				}
			}()
			opts.Archive = st
		}
	}

	sess, err := session.New(snap.Run, snap.Live, opts)
	if err != nil {
		return fmt.Errorf("failed to start timer: %w", err)
	}

	m := tui.NewModel(sess, keys, nil, log)
	program := tea.NewProgram(m, tea.WithAltScreen())
	_, runErr := program.Run()
	if err := sess.Close(); err != nil {
		logErrf("failed to save run on exit: %v\n", err)
		if runErr == nil {
			return err
		}
	}
	if runErr != nil {
		return fmt.Errorf("failed to run TUI: %w", runErr)
	}
	return nil
}

func newLogger(cfg config.LogConfig, level string) (*slog.Logger, func() error, error) {
	opts := logging.Options{
		Level:  level,
		Format: defaultLogFormat,
		Path:   config.DefaultLogPath(),
	}
	if cfg.Format != nil {
		opts.Format = *cfg.Format
	}
	if cfg.Path != nil {
		opts.Path = expandPath(*cfg.Path)
	}
	log, closeFn, err := logging.New(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log: %w", err)
	}
	return log, closeFn, nil
}

func defaultRun(cfg config.DefaultRunConfig) model.RunTemplate {
	tmpl := model.RunTemplate{
		Game:     session.DefaultRun.Game,
		Category: session.DefaultRun.Category,
		Segments: append([]string(nil), session.DefaultRun.Segments...),
	}
	if cfg.Game != nil {
		tmpl.Game = *cfg.Game
	}
	if cfg.Category != nil {
		tmpl.Category = *cfg.Category
	}
	if len(cfg.Segments) > 0 {
		tmpl.Segments = append([]string(nil), cfg.Segments...)
	}
	return tmpl
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(config.Template), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.CommandContext(context.Background(), parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// resolveRunPath applies the [run] path from config unless --file was given.
func resolveRunPath(cmd *cobra.Command) (string, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}
	path := runPath
	applyStringConfig(cmd, "file", &path, fileCfg.Run.Path)
	path = expandPath(path)
	if path == "" {
		return "", fmt.Errorf("--file must not be empty")
	}
	return path, nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func validateConfig(cfg model.Config) error {
	if strings.TrimSpace(cfg.RunPath) == "" {
		return fmt.Errorf("--file must not be empty")
	}
	if !timer.KnownComparison(cfg.Comparison) {
		return fmt.Errorf("--comparison must be one of: %s", comparisonNames())
	}
	if len(cfg.DefaultRun.Segments) == 0 {
		return fmt.Errorf("[default_run] segments must not be empty")
	}
	for _, name := range cfg.DefaultRun.Segments {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("[default_run] segment names must not be empty")
		}
	}
	if cfg.Archive && strings.TrimSpace(cfg.ArchivePath) == "" {
		return fmt.Errorf("[archive] path must not be empty")
	}
	return nil
}

// expandPath resolves a leading "~/" against the home directory.
func expandPath(path string) string {
	path = strings.TrimSpace(path)
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
