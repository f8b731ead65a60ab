package analyze

import (
	"go/ast"
	"strings"
)

// DirectivePrefix starts every opt-in comment directive.
const DirectivePrefix = "//marshal:"

// Directive names.
const (
	DirectiveGenerate  = "generate"  // type: generate marshalling for me
	DirectiveBlittable = "blittable" // type: I assert I am blittable
	DirectiveNative    = "native"    // type: use this shadow type for me
	DirectiveExtern    = "extern"    // func: parameters and results are use sites
	DirectiveCallback  = "callback"  // func: like extern, called from native code
	DirectiveUsing     = "using"     // func: <param> <Shadow> use-site override
	DirectiveOut       = "out"       // func: <param>... are out values
	DirectiveInOut     = "inout"     // func: <param>... are in/out values
)

// Directive is a parsed //marshal:<name> [args...] comment line.
type Directive struct {
	Name string
	Args []string
}

// ParseDirectives extracts the //marshal: directives of a comment group.
func ParseDirectives(cg *ast.CommentGroup) []Directive {
	if cg == nil {
		return nil
	}

	var dirs []Directive

	for _, c := range cg.List {
		rest, ok := strings.CutPrefix(c.Text, DirectivePrefix)
		if !ok {
			continue
		}

		parts := strings.Fields(rest)
		if len(parts) == 0 {
			continue
		}

		dirs = append(dirs, Directive{Name: parts[0], Args: parts[1:]})
	}

	return dirs
}

// HasDirective returns true if a directive with the given name is present.
func HasDirective(dirs []Directive, name string) bool {
	for _, d := range dirs {
		if d.Name == name {
			return true
		}
	}

	return false
}
