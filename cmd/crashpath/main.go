package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/joshharrison/crashpath/internal/claude"
	"github.com/joshharrison/crashpath/internal/config"
	"github.com/joshharrison/crashpath/internal/crash"
	"github.com/joshharrison/crashpath/internal/graph"
	"github.com/joshharrison/crashpath/internal/project"
	"github.com/joshharrison/crashpath/internal/ui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(newApp(os.Stdout, os.Stderr)).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// assistant is the part of the Claude client the commands use.
type assistant interface {
	InferPredecessors(ctx context.Context, activities []claude.ActivitySummary) (*claude.InferResult, error)
	ExplainPlan(ctx context.Context, report string) (string, error)
}

// app carries the global flags and settings shared by every command.
type app struct {
	out    io.Writer
	errOut io.Writer

	configPath string
	verbose    bool
	jsonOut    bool
	noColor    bool

	cfg          config.Config
	newAssistant func(model string) (assistant, error)
}

func newApp(out, errOut io.Writer) *app {
	return &app{
		out:    out,
		errOut: errOut,
		cfg:    config.Default(),
		newAssistant: func(model string) (assistant, error) {
			c, err := claude.NewClient("", model)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "crashpath",
		Short: "Critical path analysis and cost-optimal schedule crashing",
		Long: `Crashpath reads a project network of activities with normal and crash
durations and costs, computes the critical path, and shortens the schedule
step by step at the lowest marginal cost until a target duration is met.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	// Global flags
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default: ./"+config.DefaultPath+" if present)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "Machine-readable JSON output")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	root.AddCommand(a.scheduleCmd())
	root.AddCommand(a.crashCmd())
	root.AddCommand(a.stepsCmd())
	root.AddCommand(a.validateCmd())
	root.AddCommand(a.vizCmd())
	root.AddCommand(a.addCmd())
	root.AddCommand(a.removeCmd())
	root.AddCommand(a.setPredsCmd())
	root.AddCommand(a.setDurationCmd())
	root.AddCommand(a.setCostCmd())
	root.AddCommand(a.convertCmd())
	root.AddCommand(a.serveCmd())
	root.AddCommand(a.inferDepsCmd())

	return root
}

// setup loads the config file and attaches a logger to the command context.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath, a.configPath != "")
	if err != nil {
		return err
	}
	a.cfg = cfg

	if a.noColor || cfg.Output.NoColor {
		ui.SetColor(false)
	}

	level := log.InfoLevel
	if a.verbose {
		level = log.DebugLevel
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(withLogger(ctx, newLogger(a.errOut, level)))
	return nil
}

// load reads a project file and builds its network.
func (a *app) load(path string) (*graph.ActivityGraph, project.Format, error) {
	records, f, err := project.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("load project: %w", err)
	}
	g, err := graph.Load(records)
	if err != nil {
		return nil, "", fmt.Errorf("load project %s: %w", path, err)
	}
	return g, f, nil
}

// crashOptions applies the optimizer settings, with flag overrides already
// folded into a.cfg.
func (a *app) crashOptions(ctx context.Context) []crash.Option {
	return a.cfg.CrashOptions(loggerFromContext(ctx))
}

// --- Output helpers ---

func (a *app) outputJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return a.writeJSON(data)
}

func (a *app) writeJSON(data []byte) error {
	_, err := fmt.Fprintln(a.out, string(data))
	return err
}

func joinIDs(ids []graph.ActivityID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ", ")
}
