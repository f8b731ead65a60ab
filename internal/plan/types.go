package plan

import (
	"sort"

	"marshal-planner/internal/analyze"
	"marshal-planner/internal/common"
	"marshal-planner/internal/declare"
	"marshal-planner/internal/diagnostic"
)

// BufferKind tells how a caller-allocated buffer is used by the
// managed-to-native conversion.
type BufferKind int

const (
	// BufferNone - the shadow has no buffer constructor.
	BufferNone BufferKind = iota
	// BufferOptionalStack - the stub may pass a stack buffer of Size bytes.
	BufferOptionalStack
	// BufferRequiredStack - the stub must pass a stack buffer of Size bytes.
	BufferRequiredStack
)

// String returns a human-readable buffer kind.
func (k BufferKind) String() string {
	switch k {
	case BufferNone:
		return "none"
	case BufferOptionalStack:
		return "optional_stack"
	case BufferRequiredStack:
		return "required_stack"
	default:
		return common.UnknownStr
	}
}

// BufferStrategy is the caller-allocated buffer requirement of a plan.
type BufferStrategy struct {
	Kind BufferKind
	Size int64
}

// Pinning tells whether the native value may be passed by a pinned reference.
type Pinning struct {
	Eligible bool
	// Element is the pinned element type when eligible.
	Element *analyze.TypeInfo
}

// MarshallingPlan is the resolved capability set of a managed type at one
// use site, or at its definition when Site is nil. Plans are immutable once
// a pass returns them.
type MarshallingPlan struct {
	Managed *analyze.TypeInfo
	Site    *analyze.UseSite

	Strategy declare.Strategy
	Source   declare.Source

	ManagedToNative bool
	NativeToManaged bool
	ReleaseRequired bool

	Pinning Pinning
	Buffer  BufferStrategy

	// Native is the final native representation: the managed type itself,
	// the shadow type, or the type of the shadow's Value accessor.
	Native *analyze.TypeInfo
	// Shadow is the shadow type conversions route through, if any.
	Shadow *analyze.TypeInfo
	// UnwrapsValue is true when construction goes through Shadow and the
	// boundary value is projected from its Value accessor.
	UnwrapsValue bool
	// Synthesized is true when Shadow will be generated.
	Synthesized bool

	// Valid is false when a fatal diagnostic was reported for this plan;
	// no code may be generated from an invalid plan.
	Valid bool
}

// Subject returns the managed type name used in diagnostics.
func (p *MarshallingPlan) Subject() string {
	return subjectOf(p.Managed)
}

// SiteName returns the use site name, or "" at the definition site.
func (p *MarshallingPlan) SiteName() string {
	if p.Site == nil {
		return ""
	}

	return p.Site.Name
}

// Result is the output of a resolution pass.
type Result struct {
	// Plans holds one plan per declared type and one per use site.
	Plans []*MarshallingPlan
	// Diagnostics contains all diagnostics of the pass.
	Diagnostics diagnostic.Diagnostics
}

// Plan returns the plan of the given type at the given site ("" for the
// definition site), or nil.
func (r *Result) Plan(subject, site string) *MarshallingPlan {
	for _, p := range r.Plans {
		if p.Subject() == subject && p.SiteName() == site {
			return p
		}
	}

	return nil
}

// Valid returns the plans code may be generated from.
func (r *Result) Valid() []*MarshallingPlan {
	var out []*MarshallingPlan

	for _, p := range r.Plans {
		if p.Valid {
			out = append(out, p)
		}
	}

	return out
}

func sortPlans(plans []*MarshallingPlan) {
	sort.SliceStable(plans, func(i, j int) bool {
		a, b := plans[i], plans[j]
		if a.Subject() != b.Subject() {
			return a.Subject() < b.Subject()
		}

		return a.SiteName() < b.SiteName()
	})
}

func subjectOf(t *analyze.TypeInfo) string {
	if t == nil {
		return ""
	}

	if t.IsNamed() {
		return t.ID.String()
	}

	return t.String()
}
