package main

import (
	"context"
	"fmt"
	"io"

	"marshal-planner/internal/analyze"
	"marshal-planner/internal/declare"
	"marshal-planner/internal/diagnostic"
	"marshal-planner/internal/plan"
)

// resolve loads the packages, applies declarations and runs one pass.
// Declaration file diagnostics are merged into the result.
func resolve(ctx context.Context, patterns []string) (*plan.Result, error) {
	if len(patterns) == 0 {
		patterns = []string{"."}
	}

	graph, err := analyze.NewAnalyzer().LoadPackages(patterns...)
	if err != nil {
		return nil, err
	}

	cfg := plan.DefaultConfig()

	var declDiags diagnostic.Diagnostics

	if rootOpts.decls != "" {
		f, err := declare.LoadFile(rootOpts.decls)
		if err != nil {
			return nil, err
		}

		declDiags = declare.Apply(f, graph)
		cfg = cfg.WithDeclarations(f.Config)
	}

	if rootOpts.workers > 0 {
		cfg.Workers = rootOpts.workers
	}

	cfg.Strict = cfg.Strict || rootOpts.strict

	// Strictness is applied below, after declaration diagnostics are merged.
	strict := cfg.Strict
	cfg.Strict = false

	result, err := plan.NewPass(graph, cfg).Run(ctx)
	if err != nil {
		return nil, err
	}

	result.Diagnostics.Merge(declDiags)
	result.Diagnostics.Dedupe()
	result.Diagnostics.Sort()

	if strict && result.Diagnostics.HasErrors() {
		return result, fmt.Errorf("%w: %d error(s)", plan.ErrStrict, len(result.Diagnostics.Errors))
	}

	return result, nil
}

func printDiagnostics(w io.Writer, d *diagnostic.Diagnostics) {
	fmt.Fprint(w, d.String())
}
