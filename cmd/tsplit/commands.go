package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/tsplit/internal/config"
	"github.com/verte-zerg/tsplit/internal/keymap"
	"github.com/verte-zerg/tsplit/internal/model"
	"github.com/verte-zerg/tsplit/internal/runfile"
	"github.com/verte-zerg/tsplit/internal/stats"
	"github.com/verte-zerg/tsplit/internal/statsui"
	"github.com/verte-zerg/tsplit/internal/store"
	"github.com/verte-zerg/tsplit/internal/timer"
	"github.com/verte-zerg/tsplit/internal/tui"
)

var (
	newGame     string
	newCategory string
	newForce    bool

	historyLast int

	statsGame        string
	statsCategory    string
	statsSince       string
	statsLast        int
	statsCurveWindow int
	statsPlain       bool
)

func newNewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new SEGMENT...",
		Short: "Write a new run file",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runNewCmd,
	}
	cmd.Flags().StringVar(&newGame, "game", "", "game name")
	cmd.Flags().StringVar(&newCategory, "category", "", "category name")
	cmd.Flags().BoolVar(&newForce, "force", false, "overwrite an existing run file")
	return cmd
}

func runNewCmd(cmd *cobra.Command, args []string) error {
	path, err := resolveRunPath(cmd)
	if err != nil {
		return err
	}
	if strings.TrimSpace(newGame) == "" {
		return fmt.Errorf("--game must not be empty")
	}
	for _, name := range args {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("segment names must not be empty")
		}
	}
	if !newForce {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("run file already exists: %s (use --force to overwrite)", path)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat run file: %w", err)
		}
	}

	run := model.NewRun(newGame, newCategory, args)
	if err := runfile.Save(path, runfile.Snapshot{Run: run}); err != nil {
		return fmt.Errorf("failed to write run file: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d segments)\n", path, len(args))
	return err
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the attempt history of a run file",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().IntVar(&historyLast, "last", 0, "limit to last N attempts")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	path, err := resolveRunPath(cmd)
	if err != nil {
		return err
	}
	snap, err := runfile.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load run: %w", err)
	}
	if historyLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	return writeHistory(cmd.OutOrStdout(), snap, historyLast, newPalette(cmd.OutOrStdout()))
}

func writeHistory(w io.Writer, snap runfile.Snapshot, last int, p palette) error {
	run := snap.Run
	if _, err := fmt.Fprintf(w, "%s - %s\n", run.Game, run.Category); err != nil {
		return err
	}
	headers, rows := segmentRows(run, p)
	if _, err := fmt.Fprintln(w, renderTable(headers, rows, []columnAlignment{alignLeft, alignRight, alignRight})); err != nil {
		return err
	}
	if len(run.Attempts) == 0 && snap.Live == nil {
		_, err := fmt.Fprintln(w, "No attempts yet.")
		return err
	}
	headers, rows = attemptRows(run, snap.Live, last, p)
	_, err := fmt.Fprintln(w, renderTable(headers, rows, []columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignLeft}))
	return err
}

func segmentRows(run *model.Run, p palette) ([]string, [][]string) {
	headers := []string{"Segment", "Best Segment", "Personal Best"}
	rows := make([][]string, 0, len(run.Segments)+1)
	var sum time.Duration
	complete := true
	for _, s := range run.Segments {
		if s.BestSegment == nil {
			complete = false
		} else {
			sum += *s.BestSegment
		}
		rows = append(rows, []string{
			s.Name,
			p.gold(tui.FormatOptional(s.BestSegment)),
			tui.FormatOptional(s.PersonalBest),
		})
	}
	if complete {
		rows = append(rows, []string{p.muted("Sum of Best"), p.gold(tui.FormatDuration(sum)), ""})
	}
	return headers, rows
}

func attemptRows(run *model.Run, live *model.LiveAttempt, last int, p palette) ([]string, [][]string) {
	headers := []string{"#", "Started", "Time", "Splits", "Status"}
	attempts := run.Attempts
	if last > 0 && len(attempts) > last {
		attempts = attempts[len(attempts)-last:]
	}
	best := bestAttempt(run.Attempts)
	total := len(run.Segments)
	rows := make([][]string, 0, len(attempts)+1)
	for _, a := range attempts {
		timeText := "DNF"
		status := p.bad("reset")
		if a.Finished() {
			timeText = tui.FormatDuration(*a.Duration)
			status = p.good("finished")
			if a.Index == best {
				timeText = p.gold(timeText)
				status = p.gold("personal best")
			}
		} else {
			timeText = p.muted(timeText)
		}
		if a.Pending {
			status += p.muted(" (unconfirmed)")
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", a.Index),
			a.StartedAt.Local().Format("2006-01-02 15:04"),
			timeText,
			fmt.Sprintf("%d/%d", reached(a.Splits), total),
			status,
		})
	}
	if live != nil {
		timeText := "-"
		if d, ok := live.LastSplit(); ok {
			timeText = tui.FormatDuration(d)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", live.Index),
			live.StartedAt.Local().Format("2006-01-02 15:04"),
			timeText,
			fmt.Sprintf("%d/%d", reached(live.Splits), total),
			p.muted("in progress"),
		})
	}
	return headers, rows
}

// bestAttempt returns the index of the fastest finished attempt, or -1.
func bestAttempt(attempts []model.Attempt) int {
	best := -1
	var bestTime time.Duration
	for _, a := range attempts {
		if !a.Finished() {
			continue
		}
		if best < 0 || *a.Duration < bestTime {
			best = a.Index
			bestTime = *a.Duration
		}
	}
	return best
}

func reached(splits []*time.Duration) int {
	n := 0
	for _, s := range splits {
		if s != nil {
			n++
		}
	}
	return n
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show archived attempt stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsGame, "game", "", "game filter")
	cmd.Flags().StringVar(&statsCategory, "category", "", "category filter")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N attempts")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print a text report instead of the browser")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg, err := statsConfig()
	if err != nil {
		return err
	}

	storePath := config.DefaultDBPath()
	if fileCfg.Archive.Path != nil {
		storePath = expandPath(*fileCfg.Archive.Path)
	}
	st, err := store.Open(storePath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if statsPlain {
		return writeStatsReport(cmd.Context(), cmd.OutOrStdout(), st, cfg)
	}

	m := statsui.NewModel(st, cfg)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func statsConfig() (model.StatsConfig, error) {
	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return model.StatsConfig{}, fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if statsLast < 0 {
		return model.StatsConfig{}, fmt.Errorf("--last must be >= 0")
	}
	if statsCurveWindow < 1 {
		return model.StatsConfig{}, fmt.Errorf("--curve-window must be > 0")
	}
	return model.StatsConfig{
		Game:        statsGame,
		Category:    statsCategory,
		Since:       sinceTime,
		Last:        statsLast,
		CurveWindow: statsCurveWindow,
	}, nil
}

func writeStatsReport(ctx context.Context, w io.Writer, src stats.Source, cfg model.StatsConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	report, err := stats.BuildReport(ctx, src, cfg)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	if err := stats.RenderSummary(w, report.Summary()); err != nil {
		return err
	}
	if len(report.Attempts) == 0 {
		return nil
	}
	if err := stats.RenderSegmentTable(w, stats.SegmentRows(report.SegmentsAll)); err != nil {
		return err
	}
	return stats.RenderCurve(w, report.Attempts, cfg.CurveWindow, 0, 0, stats.UseColor(w))
}

func newKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "Print key bindings",
		Args:  cobra.NoArgs,
		RunE:  runKeysCmd,
	}
}

func runKeysCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	keys, err := keymap.FromNames(fileCfg.Keys)
	if err != nil {
		return fmt.Errorf("invalid [keys] config: %w", err)
	}
	headers, rows := keyRows(keys)
	_, err = fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, nil))
	return err
}

func keyRows(keys *keymap.Keymap) ([]string, [][]string) {
	headers := []string{"Action", "Keys", "Description"}
	rows := make([][]string, 0, len(keymap.Actions()))
	for _, a := range keymap.Actions() {
		b := keys.Binding(a)
		bound := strings.Join(b.Keys(), ", ")
		if bound == "" {
			bound = "(unbound)"
		}
		rows = append(rows, []string{a.String(), bound, b.Help().Desc})
	}
	return headers, rows
}

// comparisonNames lists the values accepted by --comparison.
func comparisonNames() string {
	return strings.Join([]string{timer.PersonalBest, timer.BestSegments, timer.AverageSegments, timer.LatestRun, timer.None}, ", ")
}
