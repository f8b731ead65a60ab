package declare

import (
	"errors"

	"go.uber.org/zap"

	"marshal-planner/internal/analyze"
	"marshal-planner/internal/blittable"
	"marshal-planner/internal/common"
	"marshal-planner/internal/diagnostic"
	"marshal-planner/internal/shape"
)

// Strategy is the marshalling strategy chosen for a (type, use site) pair.
type Strategy int

const (
	// StrategyIneligible - the type may not be passed by value.
	StrategyIneligible Strategy = iota
	// StrategyBlittable - the value crosses as is.
	StrategyBlittable
	// StrategyNativeShadow - the value converts through a shadow type.
	StrategyNativeShadow
)

// String returns a human-readable strategy name.
func (s Strategy) String() string {
	switch s {
	case StrategyIneligible:
		return "ineligible"
	case StrategyBlittable:
		return "blittable"
	case StrategyNativeShadow:
		return "native_shadow"
	default:
		return common.UnknownStr
	}
}

// Source is the declaration a strategy was taken from, in precedence order.
type Source int

const (
	SourceNone Source = iota
	// SourceUseSite - a shadow type applied at the use site.
	SourceUseSite
	// SourceTypeNative - a shadow type declared on the type.
	SourceTypeNative
	// SourceTypeBlittable - a blittable declaration on the type.
	SourceTypeBlittable
	// SourceGenerated - generated marshalling resolved by classification.
	SourceGenerated
	// SourceIntrinsic - an unnamed type built only from blittable primitives.
	SourceIntrinsic
)

// String returns a human-readable source name.
func (s Source) String() string {
	switch s {
	case SourceNone:
		return "none"
	case SourceUseSite:
		return "use_site"
	case SourceTypeNative:
		return "type_native"
	case SourceTypeBlittable:
		return "type_blittable"
	case SourceGenerated:
		return "generated"
	case SourceIntrinsic:
		return "intrinsic"
	default:
		return common.UnknownStr
	}
}

// IsDefinitionSite returns true for strategies declared with the type.
func (s Source) IsDefinitionSite() bool {
	return s == SourceTypeNative || s == SourceTypeBlittable || s == SourceGenerated
}

// Selector is the single authoritative strategy for a (type, use site) pair.
type Selector struct {
	Strategy Strategy
	Source   Source
	// Shadow is the shadow type for StrategyNativeShadow.
	Shadow *analyze.TypeInfo
	// Synthesized is true when the shadow type will be generated.
	Synthesized bool
	// Verdict is the classification consulted, if any.
	Verdict blittable.Verdict
	// Ignored lists lower-precedence declarations present on the type.
	Ignored []Source
}

// Diagnostic codes of attribute resolution.
const (
	CodeNotEligible         = "not_eligible"
	CodeOverrideConflict    = "override_conflicts_with_type"
	CodeShadowNotFound      = "shadow_type_not_found"
	CodeIndeterminateLayout = "indeterminate_layout"
	CodeRecursiveLayout     = "recursive_layout"
)

// Resolver applies declaration precedence. Highest first: a use-site
// override, a native shadow on the type, a blittable declaration on the type,
// a request for generated marshalling. A use-site override is rejected when
// the type carries any type-level declaration. A named type without
// declarations is ineligible without inspecting its fields.
type Resolver struct {
	graph      *analyze.TypeGraph
	classifier blittable.Classifier
	log        *zap.Logger
}

// NewResolver creates a Resolver over graph.
func NewResolver(graph *analyze.TypeGraph, classifier blittable.Classifier, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}

	return &Resolver{graph: graph, classifier: classifier, log: log}
}

// Resolve returns the selector for t used at site (nil for the definition
// site). Fatal resolutions are returned as *diagnostic.Fault.
func (r *Resolver) Resolve(t *analyze.TypeInfo, site *analyze.UseSite) (*Selector, error) {
	subject := t.ID.String()
	if !t.IsNamed() {
		subject = t.String()
	}

	decl := t.Definition().Decl

	if site != nil && site.HasOverride() {
		if decl.Any() {
			return nil, diagnostic.NewFault(diagnostic.ClassFatalDefinition, CodeOverrideConflict, subject,
				"use-site shadow %s contradicts the declaration on the type", site.Override.Name).
				WithSite(site.Name)
		}

		shadow := r.graph.GetType(site.Override)
		if shadow == nil {
			return nil, diagnostic.NewFault(diagnostic.ClassFatalDefinition, CodeShadowNotFound, subject,
				"shadow type %s is not available", site.Override).WithSite(site.Name)
		}

		return &Selector{Strategy: StrategyNativeShadow, Source: SourceUseSite, Shadow: shadow}, nil
	}

	if !t.IsNamed() {
		return r.resolveIntrinsic(t, subject)
	}

	if !decl.Native.IsZero() {
		shadow := r.graph.GetType(decl.Native)
		if shadow == nil {
			return nil, diagnostic.NewFault(diagnostic.ClassFatalDefinition, CodeShadowNotFound, subject,
				"shadow type %s is not available", decl.Native)
		}

		sel := &Selector{Strategy: StrategyNativeShadow, Source: SourceTypeNative, Shadow: shadow}
		if decl.Blittable {
			sel.Ignored = append(sel.Ignored, SourceTypeBlittable)
		}

		if decl.Generate {
			sel.Ignored = append(sel.Ignored, SourceGenerated)
		}

		return sel, nil
	}

	if decl.Blittable {
		v, err := r.classify(t, subject)
		if err != nil {
			return nil, err
		}

		sel := &Selector{Strategy: StrategyBlittable, Source: SourceTypeBlittable, Verdict: v}
		if decl.Generate {
			sel.Ignored = append(sel.Ignored, SourceGenerated)
		}

		return sel, nil
	}

	if decl.Generate {
		return r.resolveGenerated(t, subject)
	}

	return &Selector{Strategy: StrategyIneligible, Source: SourceNone}, nil
}

// resolveGenerated settles a generate request on exactly one of blittable
// or a synthesized shadow.
func (r *Resolver) resolveGenerated(t *analyze.TypeInfo, subject string) (*Selector, error) {
	v, err := r.classify(t, subject)
	if err != nil {
		return nil, err
	}

	switch v.Kind {
	case blittable.KindBlittable:
		r.log.Debug("generated marshalling resolved to blittable", zap.String("type", subject))

		return &Selector{Strategy: StrategyBlittable, Source: SourceGenerated, Verdict: v}, nil

	case blittable.KindIndeterminate:
		return nil, diagnostic.NewFault(diagnostic.ClassFatalDefinition, CodeIndeterminateLayout, subject,
			"cannot generate marshalling: %s", v.Reason())

	default:
		r.log.Debug("generated marshalling needs a shadow type",
			zap.String("type", subject), zap.Strings("reasons", v.Reasons))

		return &Selector{
			Strategy:    StrategyNativeShadow,
			Source:      SourceGenerated,
			Shadow:      shape.Synthesize(t).Shadow,
			Synthesized: true,
			Verdict:     v,
		}, nil
	}
}

// resolveIntrinsic handles unnamed types, which cannot carry declarations:
// primitives and arrays of them cross as is when blittable.
func (r *Resolver) resolveIntrinsic(t *analyze.TypeInfo, subject string) (*Selector, error) {
	v, err := r.classify(t, subject)
	if err != nil {
		return nil, err
	}

	if !v.IsBlittable() {
		return &Selector{Strategy: StrategyIneligible, Source: SourceNone, Verdict: v}, nil
	}

	return &Selector{Strategy: StrategyBlittable, Source: SourceIntrinsic, Verdict: v}, nil
}

func (r *Resolver) classify(t *analyze.TypeInfo, subject string) (blittable.Verdict, error) {
	v, err := r.classifier.Classify(t, nil)
	if err == nil {
		return v, nil
	}

	if errors.Is(err, blittable.ErrRecursiveLayout) {
		return v, diagnostic.NewFault(diagnostic.ClassFatalDefinition, CodeRecursiveLayout, subject,
			"%s", err.Error())
	}

	return v, err
}
