package declare

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"marshal-planner/internal/analyze"
	"marshal-planner/internal/match"
)

// maxSuggestions bounds the did-you-mean list of an unknown type.
const maxSuggestions = 3

// UnknownTypeError reports a type reference that matches no analysed type.
type UnknownTypeError struct {
	Ref         string
	Suggestions []string
}

// Error implements the error interface.
func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("type %q not found", e.Ref)
}

// AmbiguousTypeError reports a short reference matching several types.
type AmbiguousTypeError struct {
	Ref        string
	Candidates []string
}

// Error implements the error interface.
func (e *AmbiguousTypeError) Error() string {
	return fmt.Sprintf("type %q is ambiguous: %s", e.Ref, strings.Join(e.Candidates, ", "))
}

// ResolveTypeRef resolves a type reference against the graph. Accepted forms:
//   - predeclared types: "int32", "uintptr", "unsafe.Pointer"
//   - "Point" (name only, must be unique)
//   - "interop.Point" (package suffix) or "example.com/interop.Point"
//   - composites: "*T", "[]T", "[4]T"
//   - generic instances: "interop.Box[int32]", "Pair[Point,float64]"
//
// Instances missing from the graph are built from their definition and added.
func ResolveTypeRef(ref string, graph *analyze.TypeGraph) (*analyze.TypeInfo, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, &UnknownTypeError{Ref: ref}
	}

	switch {
	case strings.HasPrefix(ref, "*"):
		elem, err := ResolveTypeRef(ref[1:], graph)
		if err != nil {
			return nil, err
		}

		return analyze.PointerTo(elem), nil

	case strings.HasPrefix(ref, "[]"):
		elem, err := ResolveTypeRef(ref[2:], graph)
		if err != nil {
			return nil, err
		}

		return analyze.SliceOf(elem), nil

	case strings.HasPrefix(ref, "["):
		end := strings.IndexByte(ref, ']')
		if end < 0 {
			return nil, fmt.Errorf("malformed array type %q", ref)
		}

		n, err := strconv.ParseInt(ref[1:end], 10, 64)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("malformed array length in %q", ref)
		}

		elem, err := ResolveTypeRef(ref[end+1:], graph)
		if err != nil {
			return nil, err
		}

		return analyze.ArrayOf(elem, n), nil
	}

	if t, ok := analyze.Builtin(ref); ok {
		return t, nil
	}

	if open := strings.IndexByte(ref, '['); open > 0 && strings.HasSuffix(ref, "]") {
		return resolveInstance(ref, ref[:open], ref[open+1:len(ref)-1], graph)
	}

	return resolveNamed(ref, graph)
}

func resolveInstance(ref, base, argList string, graph *analyze.TypeGraph) (*analyze.TypeInfo, error) {
	def, err := resolveNamed(base, graph)
	if err != nil {
		return nil, err
	}

	if !def.IsGenericDefinition() {
		return nil, fmt.Errorf("type %s in %q is not generic", def.ID, ref)
	}

	parts := splitArgs(argList)
	if len(parts) != len(def.TypeParams) {
		return nil, fmt.Errorf("%q: %s takes %d type arguments, got %d",
			ref, def.ID, len(def.TypeParams), len(parts))
	}

	args := make([]*analyze.TypeInfo, len(parts))
	for i, p := range parts {
		if args[i], err = ResolveTypeRef(p, graph); err != nil {
			return nil, err
		}
	}

	inst := analyze.Instantiate(def, args...)
	if existing := graph.GetType(inst.ID); existing != nil {
		return existing, nil
	}

	graph.AddType(inst)

	return inst, nil
}

// splitArgs splits a type argument list on top-level commas.
func splitArgs(s string) []string {
	var (
		out   []string
		depth int
		start int
	)

	for i, r := range s {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}

	return append(out, strings.TrimSpace(s[start:]))
}

func resolveNamed(ref string, graph *analyze.TypeGraph) (*analyze.TypeInfo, error) {
	pkg, name := "", ref
	if idx := strings.LastIndex(ref, "."); idx >= 0 {
		pkg, name = ref[:idx], ref[idx+1:]
	}

	if name == "" {
		return nil, &UnknownTypeError{Ref: ref}
	}

	if pkg != "" {
		if t := graph.GetType(analyze.TypeID{PkgPath: pkg, Name: name}); t != nil {
			return t, nil
		}
	}

	var hits []*analyze.TypeInfo

	for id, t := range graph.Types {
		if id.Name != name || t.IsInstance() {
			continue
		}

		if pkg == "" || strings.HasSuffix(id.PkgPath, "/"+pkg) || id.PkgPath == pkg {
			hits = append(hits, t)
		}
	}

	switch len(hits) {
	case 0:
		return nil, &UnknownTypeError{Ref: ref, Suggestions: suggestTypes(ref, graph)}
	case 1:
		return hits[0], nil
	default:
		analyze.SortTypes(hits)

		names := make([]string, len(hits))
		for i, t := range hits {
			names[i] = t.ID.String()
		}

		return nil, &AmbiguousTypeError{Ref: ref, Candidates: names}
	}
}

func suggestTypes(ref string, graph *analyze.TypeGraph) []string {
	names := make([]string, 0, len(graph.Types))

	for id, t := range graph.Types {
		if !t.IsInstance() {
			names = append(names, id.String())
		}
	}

	sort.Strings(names)

	return match.Suggest(ref, names, maxSuggestions)
}
