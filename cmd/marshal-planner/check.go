package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errCheckFailed = errors.New("check failed")

var checkCmd = &cobra.Command{
	Use:   "check [packages]",
	Short: "Report marshalling diagnostics",
	Long:  "Resolve every declared type and use site and report diagnostics. Exits non-zero when any error is reported.",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := resolve(cmd.Context(), args)
		if result != nil {
			printDiagnostics(cmd.ErrOrStderr(), &result.Diagnostics)
		}

		if err != nil {
			return err
		}

		if result.Diagnostics.HasErrors() {
			return fmt.Errorf("%w: %d error(s)", errCheckFailed, len(result.Diagnostics.Errors))
		}

		fmt.Fprintf(cmd.OutOrStdout(), "ok: %d plan(s)\n", len(result.Plans))

		return nil
	},
}
