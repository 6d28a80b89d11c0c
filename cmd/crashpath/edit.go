package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshharrison/crashpath/internal/graph"
	"github.com/joshharrison/crashpath/internal/project"
	"github.com/joshharrison/crashpath/internal/reporter"
	"github.com/joshharrison/crashpath/internal/ui"
)

// edit applies mutate to the network in path and saves it in the layout it
// was read in. A rejected mutation leaves the file untouched.
func (a *app) edit(cmd *cobra.Command, path string, mutate func(g *graph.ActivityGraph) error) (*graph.ActivityGraph, error) {
	g, f, err := a.load(path)
	if err != nil {
		return nil, err
	}
	if err := mutate(g); err != nil {
		return nil, err
	}
	if err := project.WriteFile(path, g.Records(), f); err != nil {
		return nil, fmt.Errorf("save project: %w", err)
	}
	loggerFromContext(cmd.Context()).Debug("saved project", "path", path, "format", f, "activities", g.Len())
	return g, nil
}

// report prints a one-line confirmation, or the changed record with --json.
func (a *app) report(g *graph.ActivityGraph, id graph.ActivityID, msg string) error {
	if a.jsonOut {
		if act, ok := g.Activity(id); ok {
			return a.outputJSON(act.Record())
		}
		return a.outputJSON(g.Records())
	}
	fmt.Fprintf(a.out, "%s %s\n", ui.Green("✅"), msg)
	return nil
}

func splitIDs(s []string) []graph.ActivityID {
	var out []graph.ActivityID
	for _, part := range s {
		for _, id := range strings.Split(part, ",") {
			if id = strings.TrimSpace(id); id != "" {
				out = append(out, graph.ActivityID(id))
			}
		}
	}
	return out
}

func (a *app) addCmd() *cobra.Command {
	var (
		flagID         string
		flagPreds      []string
		flagNormal     float64
		flagCrash      float64
		flagNormalCost float64
		flagCrashCost  float64
	)

	cmd := &cobra.Command{
		Use:   "add FILE --id ID --normal N --crash C --normal-cost X --crash-cost Y",
		Short: "Add an activity to a project file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec := graph.Record{
				ID:             graph.ActivityID(flagID),
				Predecessors:   splitIDs(flagPreds),
				NormalDuration: flagNormal,
				CrashDuration:  flagCrash,
				NormalCost:     flagNormalCost,
				CrashCost:      flagCrashCost,
			}
			g, err := a.edit(cmd, args[0], func(g *graph.ActivityGraph) error {
				return g.Add(rec)
			})
			if err != nil {
				return fmt.Errorf("add %s: %w", flagID, err)
			}
			return a.report(g, rec.ID, fmt.Sprintf("added %s", ui.ActivityLabel(flagID)))
		},
	}

	cmd.Flags().StringVar(&flagID, "id", "", "Activity id")
	cmd.Flags().StringSliceVar(&flagPreds, "preds", nil, "Predecessor ids (comma separated)")
	cmd.Flags().Float64Var(&flagNormal, "normal", 0, "Normal duration")
	cmd.Flags().Float64Var(&flagCrash, "crash", 0, "Crash duration")
	cmd.Flags().Float64Var(&flagNormalCost, "normal-cost", 0, "Cost at normal duration")
	cmd.Flags().Float64Var(&flagCrashCost, "crash-cost", 0, "Cost at crash duration")
	for _, name := range []string{"id", "normal", "crash", "normal-cost", "crash-cost"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func (a *app) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove FILE ID",
		Short: "Remove an activity and every reference to it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := graph.ActivityID(args[1])
			var dependents []graph.ActivityID
			g, err := a.edit(cmd, args[0], func(g *graph.ActivityGraph) error {
				dependents = g.Successors(id)
				return g.Remove(id)
			})
			if err != nil {
				return fmt.Errorf("remove %s: %w", id, err)
			}
			msg := fmt.Sprintf("removed %s", ui.ActivityLabel(args[1]))
			if len(dependents) > 0 {
				msg += ui.Dim(fmt.Sprintf(" (dropped from predecessors of %s)", joinIDs(dependents)))
			}
			return a.report(g, id, msg)
		},
	}
}

func (a *app) setPredsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-preds FILE ID [PRED...]",
		Short: "Replace the predecessors of an activity",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := graph.ActivityID(args[1])
			preds := splitIDs(args[2:])
			g, err := a.edit(cmd, args[0], func(g *graph.ActivityGraph) error {
				return g.UpdatePredecessors(id, preds)
			})
			if err != nil {
				return fmt.Errorf("set predecessors of %s: %w", id, err)
			}
			act, _ := g.Activity(id)
			return a.report(g, id, fmt.Sprintf("%s now waits for [%s]", ui.ActivityLabel(args[1]), joinIDs(act.Predecessors)))
		},
	}
}

// pairFlags binds --normal and --crash for the duration and cost setters.
func pairFlags(cmd *cobra.Command, normal, crash *float64, what string) {
	cmd.Flags().Float64Var(normal, "normal", 0, "Normal "+what)
	cmd.Flags().Float64Var(crash, "crash", 0, "Crash "+what)
	_ = cmd.MarkFlagRequired("normal")
	_ = cmd.MarkFlagRequired("crash")
}

func (a *app) setDurationCmd() *cobra.Command {
	var flagNormal, flagCrash float64

	cmd := &cobra.Command{
		Use:   "set-duration FILE ID --normal N --crash C",
		Short: "Change the normal and crash durations of an activity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := graph.ActivityID(args[1])
			g, err := a.edit(cmd, args[0], func(g *graph.ActivityGraph) error {
				return g.UpdateDuration(id, flagNormal, flagCrash)
			})
			if err != nil {
				return fmt.Errorf("set duration of %s: %w", id, err)
			}
			act, _ := g.Activity(id)
			return a.report(g, id, fmt.Sprintf("%s duration %s, crash %s, slope %s",
				ui.ActivityLabel(args[1]), reporter.Num(flagNormal), reporter.Num(flagCrash), act.Slope()))
		},
	}
	pairFlags(cmd, &flagNormal, &flagCrash, "duration")

	return cmd
}

func (a *app) setCostCmd() *cobra.Command {
	var flagNormal, flagCrash float64

	cmd := &cobra.Command{
		Use:   "set-cost FILE ID --normal X --crash Y",
		Short: "Change the normal and crash costs of an activity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := graph.ActivityID(args[1])
			g, err := a.edit(cmd, args[0], func(g *graph.ActivityGraph) error {
				return g.UpdateCost(id, flagNormal, flagCrash)
			})
			if err != nil {
				return fmt.Errorf("set cost of %s: %w", id, err)
			}
			act, _ := g.Activity(id)
			return a.report(g, id, fmt.Sprintf("%s cost %s, crash %s, slope %s",
				ui.ActivityLabel(args[1]), reporter.Num(flagNormal), reporter.Num(flagCrash), act.Slope()))
		},
	}
	pairFlags(cmd, &flagNormal, &flagCrash, "cost")

	return cmd
}

func (a *app) convertCmd() *cobra.Command {
	var flagLegacy bool

	cmd := &cobra.Command{
		Use:   "convert IN OUT",
		Short: "Re-encode a project file (format chosen by the OUT extension)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, from, err := a.load(args[0])
			if err != nil {
				return err
			}

			to, err := project.FormatFromPath(args[1])
			if err != nil {
				return err
			}
			if flagLegacy {
				if to != project.FormatJSON {
					return fmt.Errorf("--legacy needs a .json output, got %s", args[1])
				}
				to = project.FormatLegacyJSON
			}

			if err := project.WriteFile(args[1], g.Records(), to); err != nil {
				return fmt.Errorf("save project: %w", err)
			}
			fmt.Fprintf(a.out, "%s converted %s (%s) to %s (%s), %d activities\n",
				ui.Green("✅"), args[0], from, args[1], to, g.Len())
			return nil
		},
	}

	cmd.Flags().BoolVar(&flagLegacy, "legacy", false, "Write the legacy {activities, data} JSON layout")

	return cmd
}
