package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshharrison/crashpath/internal/claude"
	"github.com/joshharrison/crashpath/internal/project"
	"github.com/joshharrison/crashpath/internal/ui"
)

type skippedEdge struct {
	claude.Edge
	Reason string `json:"skip_reason"`
}

func (a *app) inferDepsCmd() *cobra.Command {
	var (
		flagApply    bool
		flagModel    string
		flagFromFile string
	)

	cmd := &cobra.Command{
		Use:   "infer-deps FILE",
		Short: "Use Claude to propose missing predecessor relations",
		Long: `Sends the activities of a project to Claude and infers precedence edges.
Edges that name unknown activities or would close a cycle are skipped.
By default runs in dry-run mode — use --apply to save the edges to FILE.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, format, err := a.load(args[0])
			if err != nil {
				return err
			}
			if g.Len() == 0 {
				return fmt.Errorf("no activities in %s", args[0])
			}
			summaries := claude.Summaries(g)

			var result *claude.InferResult
			if flagFromFile != "" {
				data, err := os.ReadFile(flagFromFile)
				if err != nil {
					return fmt.Errorf("read from-file: %w", err)
				}
				result = &claude.InferResult{}
				if err := json.Unmarshal(data, result); err != nil {
					return fmt.Errorf("parse from-file: %w", err)
				}
				if !a.jsonOut {
					fmt.Fprintf(a.out, "📂 Loaded %s edges from %s\n", ui.Bold(len(result.Edges)), ui.Dim(flagFromFile))
				}
			} else {
				if !a.jsonOut {
					fmt.Fprintf(a.out, "🔍 Sending %s activities to Claude for precedence inference...\n", ui.Bold(len(summaries)))
				}
				model := flagModel
				if model == "" {
					model = a.cfg.Claude.Model
				}
				client, err := a.newAssistant(model)
				if err != nil {
					return err
				}
				result, err = client.InferPredecessors(cmd.Context(), summaries)
				if err != nil {
					return fmt.Errorf("infer predecessors: %w", err)
				}
			}

			// The graph rejects unknown ids and cycles and rolls back, so
			// edges can be tried one at a time.
			applied, skipped := claude.ApplyEdges(g, result.Edges)

			if a.jsonOut {
				out := struct {
					Edges   []claude.Edge `json:"edges"`
					Skipped []skippedEdge `json:"skipped"`
					Summary string        `json:"summary"`
					Applied bool          `json:"applied"`
				}{
					Edges:   nonNilEdges(applied),
					Skipped: []skippedEdge{},
					Summary: result.Summary,
					Applied: flagApply,
				}
				for _, s := range skipped {
					out.Skipped = append(out.Skipped, skippedEdge{Edge: s.Edge, Reason: s.Err.Error()})
				}
				if flagApply {
					if err := project.WriteFile(args[0], g.Records(), format); err != nil {
						return fmt.Errorf("save project: %w", err)
					}
				}
				return a.outputJSON(out)
			}

			for _, s := range skipped {
				why := "rejected"
				if s.Cyclic() {
					why = "would create cycle"
				}
				fmt.Fprintf(a.out, "  %s %s %s → %s: %v\n", ui.Yellow("⏭️  SKIP:"), why, s.Predecessor, s.ActivityID, s.Err)
			}

			fmt.Fprintf(a.out, "\n🔗 Inferred %s precedences (%d from Claude, %d accepted):\n\n",
				ui.Bold(len(applied)), len(result.Edges), len(applied))
			for _, e := range applied {
				fmt.Fprintf(a.out, "  %s %s waits for %s  %s\n", ui.Cyan("→"),
					ui.BoldMagenta(e.ActivityID), ui.BoldMagenta(e.Predecessor), ui.Dim(e.Reason))
			}
			if result.Summary != "" {
				fmt.Fprintf(a.out, "\n💡 %s %s\n", ui.BoldWhite("Summary:"), result.Summary)
			}

			if !flagApply {
				fmt.Fprintf(a.out, "\n🎯 %s\n", ui.Yellow("Dry run — use --apply to save these precedences."))
				return nil
			}
			if err := project.WriteFile(args[0], g.Records(), format); err != nil {
				return fmt.Errorf("save project: %w", err)
			}
			fmt.Fprintf(a.out, "\n🏁 Applied %s/%d precedences to %s.\n", ui.BoldGreen(len(applied)), len(result.Edges), args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&flagApply, "apply", false, "Save inferred precedences to FILE (default: dry-run)")
	cmd.Flags().StringVar(&flagModel, "model", "", "Claude model to use (default from config)")
	cmd.Flags().StringVar(&flagFromFile, "from-file", "", "Load inferred edges from a JSON file instead of calling Claude")

	return cmd
}

func nonNilEdges(e []claude.Edge) []claude.Edge {
	if e == nil {
		return []claude.Edge{}
	}
	return e
}
