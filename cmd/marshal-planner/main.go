// Package main provides the CLI entrypoint for marshal-planner.
//
// marshal-planner decides, for every type crossing a native call boundary,
// how its values are marshalled:
//   - Loads Go packages and reads //marshal: directives
//   - Applies an optional YAML declaration file
//   - Classifies layouts and validates native shadow types
//   - Emits one plan per declared type and per use site
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"marshal-planner/internal/plan"
)

var (
	rootOpts = struct {
		decls   string
		workers int
		strict  bool
		verbose bool
	}{}

	rootCmd = &cobra.Command{
		Use:           "marshal-planner",
		Short:         "Resolve marshalling strategies for native interop",
		Long:          "Resolve how every type crossing a native call boundary is marshalled, and report why a type cannot cross.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !rootOpts.verbose {
				return nil
			}

			logger, err := zap.NewDevelopment()
			if err != nil {
				return fmt.Errorf("creating logger: %w", err)
			}

			plan.SetLogger(logger)

			return nil
		},
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&rootOpts.decls, "decls", "d", "", "YAML declaration file applied on top of the directives")
	flags.IntVarP(&rootOpts.workers, "workers", "j", 0, "number of items resolved concurrently (default GOMAXPROCS)")
	flags.BoolVar(&rootOpts.strict, "strict", false, "fail on any error diagnostic")
	flags.BoolVarP(&rootOpts.verbose, "verbose", "v", false, "log resolution details to stderr")

	rootCmd.AddCommand(planCmd, checkCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "marshal-planner:", err)
		os.Exit(1)
	}
}
