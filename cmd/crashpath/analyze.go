package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshharrison/crashpath/internal/cpm"
	"github.com/joshharrison/crashpath/internal/crash"
	"github.com/joshharrison/crashpath/internal/graph"
	"github.com/joshharrison/crashpath/internal/reporter"
	"github.com/joshharrison/crashpath/internal/ui"
	"github.com/joshharrison/crashpath/internal/viz"
)

// analyze loads path and runs the critical path analysis at normal durations.
func (a *app) analyze(path string) (*graph.ActivityGraph, *cpm.Result, error) {
	g, _, err := a.load(path)
	if err != nil {
		return nil, nil, err
	}
	res, err := cpm.Analyze(g, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("critical path analysis: %w", err)
	}
	return g, res, nil
}

func (a *app) scheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule FILE",
		Short: "Compute earliest/latest times, floats and the critical path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, res, err := a.analyze(args[0])
			if err != nil {
				return err
			}
			loggerFromContext(cmd.Context()).Debug("analysed project",
				"activities", g.Len(), "project_duration", res.ProjectDuration, "waves", len(res.Waves))

			rep := reporter.New(g, res)
			if a.jsonOut {
				data, err := rep.ScheduleJSON()
				if err != nil {
					return err
				}
				return a.writeJSON(data)
			}
			rep.PrintSchedule(a.out)
			return nil
		},
	}
}

// optimizerFlags binds the per-run optimizer overrides.
type optimizerFlags struct {
	stepUnit      float64
	maxIterations int
}

func (o *optimizerFlags) bind(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&o.stepUnit, "step-unit", 0, "Largest reduction per step (default from config)")
	cmd.Flags().IntVar(&o.maxIterations, "max-iterations", 0, "Crash steps allowed before giving up (default from config)")
}

// apply folds explicitly set flags into a.cfg.
func (o *optimizerFlags) apply(cmd *cobra.Command, a *app) error {
	if cmd.Flags().Changed("step-unit") {
		a.cfg.Optimizer.StepUnit = o.stepUnit
	}
	if cmd.Flags().Changed("max-iterations") {
		a.cfg.Optimizer.MaxIterations = o.maxIterations
	}
	return a.cfg.Validate()
}

func (a *app) crashCmd() *cobra.Command {
	var (
		flagTarget  float64
		flagExplain bool
		flagModel   string
		opt         optimizerFlags
	)

	cmd := &cobra.Command{
		Use:   "crash FILE --target T",
		Short: "Shorten the project to a target duration at minimum added cost",
		Long: `Repeatedly shortens the cheapest critical activity by one step, recomputing
the critical path after every step, until the project duration reaches the
target or no critical activity can be shortened further.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opt.apply(cmd, a); err != nil {
				return err
			}
			g, _, err := a.load(args[0])
			if err != nil {
				return err
			}

			plan, err := crash.ToTarget(g, flagTarget, a.crashOptions(cmd.Context())...)
			if err != nil {
				return fmt.Errorf("crash: %w", err)
			}
			loggerFromContext(cmd.Context()).Debug("crash finished",
				"status", plan.Status, "steps", len(plan.Steps), "iterations", plan.Iterations)

			if a.jsonOut {
				data, err := reporter.PlanJSON(plan)
				if err != nil {
					return err
				}
				return a.writeJSON(data)
			}

			report := reporter.PrintPlan(a.out, plan)
			if !flagExplain {
				return nil
			}
			return a.explain(cmd, g, report, flagModel)
		},
	}

	cmd.Flags().Float64Var(&flagTarget, "target", 0, "Target project duration")
	cmd.Flags().BoolVar(&flagExplain, "explain", false, "Ask Claude for a narrative of the plan")
	cmd.Flags().StringVar(&flagModel, "model", "", "Claude model to use (default from config)")
	opt.bind(cmd)
	_ = cmd.MarkFlagRequired("target")

	return cmd
}

// explain sends the schedule and plan reports to Claude and prints the reply.
func (a *app) explain(cmd *cobra.Command, g *graph.ActivityGraph, planReport, model string) error {
	res, err := cpm.Analyze(g, nil)
	if err != nil {
		return err
	}
	var schedule bytes.Buffer
	reporter.New(g, res).PrintSchedule(&schedule)

	if model == "" {
		model = a.cfg.Claude.Model
	}
	client, err := a.newAssistant(model)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "\n🔍 %s\n", ui.Dim("Asking Claude to explain the plan..."))
	narrative, err := client.ExplainPlan(cmd.Context(), schedule.String()+"\n"+planReport)
	if err != nil {
		return fmt.Errorf("explain plan: %w", err)
	}
	fmt.Fprintf(a.out, "\n💡 %s\n%s\n", ui.BoldWhite("Explanation:"), narrative)
	return nil
}

func (a *app) stepsCmd() *cobra.Command {
	var (
		flagSteps int
		opt       optimizerFlags
	)

	cmd := &cobra.Command{
		Use:   "steps FILE",
		Short: "Apply a fixed number of cheapest crash steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opt.apply(cmd, a); err != nil {
				return err
			}
			g, _, err := a.load(args[0])
			if err != nil {
				return err
			}

			plan, err := crash.Steps(g, flagSteps, a.crashOptions(cmd.Context())...)
			if err != nil {
				return fmt.Errorf("crash steps: %w", err)
			}

			if a.jsonOut {
				data, err := reporter.PlanJSON(plan)
				if err != nil {
					return err
				}
				return a.writeJSON(data)
			}
			reporter.PrintPlan(a.out, plan)
			return nil
		},
	}

	cmd.Flags().IntVarP(&flagSteps, "steps", "n", 5, "Number of steps to apply")
	opt.bind(cmd)

	return cmd
}

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check that a project file describes a valid network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, res, err := a.analyze(args[0])
			if err != nil {
				return err
			}

			if a.jsonOut {
				return a.outputJSON(struct {
					Valid           bool    `json:"valid"`
					Activities      int     `json:"activities"`
					ProjectDuration float64 `json:"project_duration"`
				}{true, g.Len(), res.ProjectDuration})
			}
			fmt.Fprintf(a.out, "%s %s: %s activities, project duration %s\n",
				ui.Green("✓"), args[0], ui.Bold(g.Len()), ui.Bold(reporter.Num(res.ProjectDuration)))
			return nil
		},
	}
}

func (a *app) vizCmd() *cobra.Command {
	var (
		flagFormat string
		flagOutput string
	)

	cmd := &cobra.Command{
		Use:   "viz FILE",
		Short: "Draw the network with the critical path highlighted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := viz.ParseFormat(flagFormat)
			if err != nil {
				return err
			}
			g, res, err := a.analyze(args[0])
			if err != nil {
				return err
			}

			if flagOutput == "" {
				return viz.Write(cmd.Context(), a.out, format, g, res)
			}

			var buf bytes.Buffer
			if err := viz.Write(cmd.Context(), &buf, format, g, res); err != nil {
				return err
			}
			if err := os.WriteFile(flagOutput, buf.Bytes(), 0644); err != nil {
				return fmt.Errorf("write %s: %w", flagOutput, err)
			}
			fmt.Fprintf(a.out, "Wrote %s to %s\n", format, flagOutput)
			return nil
		},
	}

	cmd.Flags().StringVar(&flagFormat, "format", "ascii", "Output format (ascii, dot, svg, png)")
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Write to a file instead of stdout")

	return cmd
}
