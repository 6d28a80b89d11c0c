package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshharrison/crashpath/internal/engine"
	"github.com/joshharrison/crashpath/internal/metrics"
	"github.com/joshharrison/crashpath/internal/project"
	"github.com/joshharrison/crashpath/internal/server"
	"github.com/joshharrison/crashpath/internal/ui"
)

func (a *app) serveCmd() *cobra.Command {
	var (
		flagAddr string
		opt      optimizerFlags
	)

	cmd := &cobra.Command{
		Use:   "serve [FILE]",
		Short: "Serve the network over HTTP, optionally preloaded from FILE",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opt.apply(cmd, a); err != nil {
				return err
			}
			addr := a.cfg.Server.Addr
			if cmd.Flags().Changed("addr") {
				addr = flagAddr
			}
			logger := loggerFromContext(cmd.Context())

			eng := engine.New(a.crashOptions(cmd.Context())...)
			if len(args) == 1 {
				records, err := project.ReadFile(args[0])
				if err != nil {
					return fmt.Errorf("load project: %w", err)
				}
				if err := eng.Load(records); err != nil {
					return fmt.Errorf("load project %s: %w", args[0], err)
				}
				logger.Info("project loaded", "path", args[0], "activities", eng.Graph().Len())
			}

			collector, err := metrics.NewCollector(nil)
			if err != nil {
				return fmt.Errorf("metrics: %w", err)
			}

			ui.PrintLogo(a.errOut)
			return server.New(eng, logger, collector).ListenAndServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (default from config, :7171)")
	opt.bind(cmd)

	return cmd
}
