package main

import (
	"github.com/spf13/cobra"

	"marshal-planner/internal/plan"
)

var (
	planOpts = struct {
		output string
	}{}

	planCmd = &cobra.Command{
		Use:   "plan [packages]",
		Short: "Resolve plans and write them as YAML",
		Long:  "Resolve a marshalling plan for every declared type and use site of the packages and write them as YAML for code generation.",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := resolve(cmd.Context(), args)
			if result != nil {
				printDiagnostics(cmd.ErrOrStderr(), &result.Diagnostics)
			}

			if err != nil {
				return err
			}

			if planOpts.output == "" || planOpts.output == "-" {
				data, err := plan.ExportYAML(result)
				if err != nil {
					return err
				}

				_, err = cmd.OutOrStdout().Write(data)

				return err
			}

			return plan.WriteFile(result, planOpts.output)
		},
	}
)

func init() {
	planCmd.Flags().StringVarP(&planOpts.output, "out", "o", "", "output file (default stdout)")
}
