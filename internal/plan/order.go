package plan

import (
	"errors"
	"fmt"
	"sort"

	"marshal-planner/internal/analyze"
)

// GenerationOrder returns the valid definition-site plans in the order the
// generator must emit them: a generated shadow type comes after the plans of
// every declared type its managed type holds by value.
func GenerationOrder(result *Result) ([]*MarshallingPlan, error) {
	var defs []*MarshallingPlan

	index := make(map[analyze.TypeID]int)

	for _, p := range result.Plans {
		if p.Site != nil || !p.Valid || p.Managed == nil {
			continue
		}

		index[p.Managed.ID] = len(defs)
		defs = append(defs, p)
	}

	order, err := topoSort(len(defs), func(i int) []int {
		return planDeps(defs[i], index)
	})
	if err != nil {
		return nil, err
	}

	out := make([]*MarshallingPlan, len(order))
	for i, idx := range order {
		out[i] = defs[idx]
	}

	return out, nil
}

// planDeps lists the plans whose conversions a generated shadow type calls.
func planDeps(p *MarshallingPlan, index map[analyze.TypeID]int) []int {
	if !p.Synthesized {
		return nil
	}

	self := index[p.Managed.ID]
	seen := make(map[int]bool)

	var deps []int

	for _, f := range p.Managed.LayoutFields() {
		t := f.Type
		for t != nil && t.Kind == analyze.TypeKindArray {
			t = t.Elem
		}

		if t == nil || !t.IsNamed() {
			continue
		}

		if i, ok := index[t.Definition().ID]; ok && i != self && !seen[i] {
			seen[i] = true
			deps = append(deps, i)
		}
	}

	return deps
}

// topoSort returns indices in execution order.
//
// depsFn(i) yields indices that must come before i. When multiple nodes are
// available the smallest index is picked, so the order is deterministic.
func topoSort(n int, depsFn func(i int) []int) ([]int, error) {
	if n <= 0 {
		return nil, nil
	}

	indeg := make([]int, n)
	out := make([][]int, n)

	for i := range n {
		for _, d := range depsFn(i) {
			if d < 0 || d >= n {
				return nil, fmt.Errorf("dependency index out of range: %d depends on %d", i, d)
			}

			indeg[i]++
			out[d] = append(out[d], i)
		}
	}

	for i := range out {
		sort.Ints(out[i])
	}

	var ready []int

	for i := range n {
		if indeg[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]int, 0, n)

	for len(ready) > 0 {
		i := ready[0]
		ready = ready[1:]

		order = append(order, i)

		for _, j := range out[i] {
			indeg[j]--
			if indeg[j] == 0 {
				// Insert while keeping ready sorted.
				k := sort.SearchInts(ready, j)
				ready = append(ready, 0)
				copy(ready[k+1:], ready[k:])
				ready[k] = j
			}
		}
	}

	if len(order) != n {
		return nil, errors.New("generation order: dependency cycle between generated types")
	}

	return order, nil
}
