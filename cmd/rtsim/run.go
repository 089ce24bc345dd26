package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"sparkrt/internal/scenario"
)

func newRunCmd(f *rootFlags) *cobra.Command {
	var (
		format      string
		jobs        int
		events      int
		failOnFault bool
	)
	cmd := &cobra.Command{
		Use:   "run FILE...",
		Short: "Run scenarios and print their reports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "yaml" {
				return fmt.Errorf("unknown report format %q", format)
			}
			scs := make([]*scenario.Scenario, len(args))
			for i, path := range args {
				sc, err := scenario.Load(path)
				if err != nil {
					return err
				}
				scs[i] = sc
			}

			results := make([]*scenario.Result, len(scs))
			g, ctx := errgroup.WithContext(cmd.Context())
			if jobs > 0 {
				g.SetLimit(jobs)
			}
			for i, sc := range scs {
				g.Go(func() error {
					f.logger.Info("scenario start", "name", sc.Name, "duration", sc.Duration())
					res, err := scenario.Run(ctx, sc, scenario.Options{Logger: f.logger, EventLimit: events})
					if err != nil {
						return fmt.Errorf("run %s: %w", sc.Name, err)
					}
					f.logger.Info("scenario done", "name", sc.Name, "switches", res.Report.Switches)
					results[i] = res
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			halted := 0
			for i, res := range results {
				if res.Fault != nil {
					halted++
				}
				var err error
				if format == "yaml" {
					if i > 0 {
						fmt.Fprintln(out, "---")
					}
					err = res.Report.WriteYAML(out)
				} else {
					if i > 0 {
						fmt.Fprintln(out)
					}
					err = res.Report.WriteText(out)
				}
				if err != nil {
					return err
				}
			}
			if failOnFault && halted > 0 {
				return fmt.Errorf("%d of %d scenarios halted", halted, len(results))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Report format (text, yaml)")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "Scenarios run in parallel (0 = no limit)")
	cmd.Flags().IntVar(&events, "events", 0, "Raw trace events kept per run (0 = default)")
	cmd.Flags().BoolVar(&failOnFault, "fail-on-fault", false, "Exit non-zero if a scenario halts the kernel")
	return cmd
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check FILE...",
		Short: "Validate scenario files without running them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				sc, err := scenario.Load(path)
				if err != nil {
					return err
				}
				cmd.Printf("%s: %d threads, %d ticks\n", sc.Name, len(sc.Threads), sc.Duration())
			}
			return nil
		},
	}
}
