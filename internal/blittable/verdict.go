package blittable

import (
	"errors"
	"strings"

	"marshal-planner/internal/analyze"
	"marshal-planner/internal/common"
)

// Kind is the outcome of classifying a type.
type Kind int

const (
	// KindNotBlittable - the layout differs between the two sides.
	KindNotBlittable Kind = iota
	// KindBlittable - the layout is identical byte for byte.
	KindBlittable
	// KindIndeterminate - fields are erased and nothing was declared.
	KindIndeterminate
)

// String returns a human-readable verdict name.
func (k Kind) String() string {
	switch k {
	case KindNotBlittable:
		return "not_blittable"
	case KindBlittable:
		return "blittable"
	case KindIndeterminate:
		return "indeterminate_erased_info"
	default:
		return common.UnknownStr
	}
}

// Verdict is the memoised classification of one type.
type Verdict struct {
	Kind Kind
	// Reasons is the chain explaining a non-blittable or indeterminate verdict.
	Reasons []string
	// Pending is true when type-parameter fields are deferred to instantiation.
	Pending bool
	// Declared is true when the verdict was taken from a declaration without inspection.
	Declared bool
	// InstantiationFault is true when the only failures come from type
	// arguments substituted into type-parameter fields.
	InstantiationFault bool
}

// IsBlittable returns true for a Blittable verdict.
func (v Verdict) IsBlittable() bool {
	return v.Kind == KindBlittable
}

// Reason joins the reason chain.
func (v Verdict) Reason() string {
	return strings.Join(v.Reasons, "; ")
}

func blittable() Verdict {
	return Verdict{Kind: KindBlittable}
}

func notBlittable(reason string) Verdict {
	return Verdict{Kind: KindNotBlittable, Reasons: []string{reason}}
}

func indeterminate(reason string) Verdict {
	return Verdict{Kind: KindIndeterminate, Reasons: []string{reason}}
}

// ErrRecursiveLayout reports a value type that contains itself by value.
var ErrRecursiveLayout = errors.New("recursive value-type layout")

// LayoutCycleError carries the path of a recursive value-type layout.
type LayoutCycleError struct {
	Path []analyze.TypeID
}

// Error implements the error interface.
func (e *LayoutCycleError) Error() string {
	names := make([]string, len(e.Path))
	for i, id := range e.Path {
		names[i] = id.Name
	}

	return ErrRecursiveLayout.Error() + ": " + strings.Join(names, " -> ")
}

// Unwrap returns ErrRecursiveLayout.
func (e *LayoutCycleError) Unwrap() error {
	return ErrRecursiveLayout
}

// Visited is the chain of named types on the current classification stack.
// Pushing returns a new link, so sibling branches and concurrent analyses
// never observe each other's entries.
type Visited struct {
	id     analyze.TypeID
	parent *Visited
}

// Push returns a chain extended by id. A nil receiver is the empty chain.
func (v *Visited) Push(id analyze.TypeID) *Visited {
	return &Visited{id: id, parent: v}
}

// Contains returns true if id is on the chain.
func (v *Visited) Contains(id analyze.TypeID) bool {
	for cur := v; cur != nil; cur = cur.parent {
		if cur.id == id {
			return true
		}
	}

	return false
}

// Path returns the chain from the outermost type to the innermost one.
func (v *Visited) Path() []analyze.TypeID {
	var out []analyze.TypeID
	for cur := v; cur != nil; cur = cur.parent {
		out = append(out, cur.id)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}

	return out
}
