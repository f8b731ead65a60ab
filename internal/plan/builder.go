package plan

import (
	"fmt"

	"go.uber.org/zap"

	"marshal-planner/internal/analyze"
	"marshal-planner/internal/blittable"
	"marshal-planner/internal/declare"
	"marshal-planner/internal/diagnostic"
	"marshal-planner/internal/shape"
)

// Diagnostic codes of plan building.
const (
	CodeNotEligible               = declare.CodeNotEligible
	CodeDeclaredNotBlittable      = "declared_not_blittable"
	CodeInstantiationNotBlittable = "instantiation_not_blittable"
	CodeIndeterminateLayout       = declare.CodeIndeterminateLayout
	CodeMissingDescriptor         = "missing_shape_descriptor"
	CodeUnsupportedDirection      = "unsupported_direction"
	CodeStackBufferUnavailable    = "stack_buffer_unavailable"
	CodePinningMismatch           = "pinning_mismatch"
	CodePinningNotBlittable       = "pinning_not_blittable"
	CodeDeclarationShadowed       = "declaration_shadowed"
	CodeFieldNotMarshallable      = "field_not_marshallable"
	CodeInternal                  = "internal_error"
)

// Input is what a plan is built from: the strategy selector, and for shadow
// strategies the validated shape of the shadow type.
type Input struct {
	Selector   *declare.Selector
	Descriptor *shape.Descriptor
	// Shape holds the diagnostics of validating Descriptor.
	Shape diagnostic.Diagnostics
}

// Builder composes selectors and shape descriptors into plans.
type Builder struct {
	classifier blittable.Classifier
	log        *zap.Logger
}

// NewBuilder creates a Builder. classifier checks pinned element types.
func NewBuilder(classifier blittable.Classifier, log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}

	return &Builder{classifier: classifier, log: log}
}

// Build returns the plan of managed at site (nil for the definition site)
// and the diagnostics explaining it. The plan is always returned; Valid is
// false when any error was reported.
func (b *Builder) Build(managed *analyze.TypeInfo, in Input, site *analyze.UseSite) (*MarshallingPlan, diagnostic.Diagnostics) {
	var diags diagnostic.Diagnostics

	p := &MarshallingPlan{Managed: managed, Site: site}
	subject := p.Subject()
	siteName := p.SiteName()

	sel := in.Selector
	if sel == nil {
		sel = &declare.Selector{}
	}

	p.Strategy, p.Source = sel.Strategy, sel.Source

	for _, src := range sel.Ignored {
		diags.AddInfo(diagnostic.ClassNone, CodeDeclarationShadowed,
			fmt.Sprintf("%s declaration is overridden by the %s declaration", src, sel.Source),
			subject, "")
	}

	switch sel.Strategy {
	case declare.StrategyBlittable:
		b.buildBlittable(p, sel.Verdict, &diags)
	case declare.StrategyNativeShadow:
		b.buildShadow(p, sel, in, &diags)
	default:
		diags.AddError(diagnostic.ClassFatalDefinition, CodeNotEligible,
			"type is not eligible for by-value native passing: declare it blittable, give it a native shadow type or request generated marshalling",
			subject, "")
	}

	if site != nil && !diags.HasErrors() {
		b.checkSite(p, site, &diags)
	}

	p.Valid = !diags.HasErrors()

	b.log.Debug("plan built",
		zap.String("type", subject),
		zap.String("site", siteName),
		zap.Stringer("strategy", p.Strategy),
		zap.Bool("valid", p.Valid))

	return p, diags
}

func (b *Builder) buildBlittable(p *MarshallingPlan, v blittable.Verdict, diags *diagnostic.Diagnostics) {
	subject := p.Subject()

	switch {
	case v.IsBlittable():
		p.ManagedToNative = true
		p.NativeToManaged = true
		p.Native = p.Managed

	case v.InstantiationFault:
		diags.AddError(diagnostic.ClassFatalUse, CodeInstantiationNotBlittable,
			"type arguments of a blittable generic must be blittable: "+v.Reason(),
			subject, p.SiteName())

	case v.Kind == blittable.KindIndeterminate:
		diags.AddError(diagnostic.ClassFatalDefinition, CodeIndeterminateLayout, v.Reason(), subject, "")

	default:
		diags.AddError(diagnostic.ClassFatalDefinition, CodeDeclaredNotBlittable, v.Reason(), subject, "")
	}
}

func (b *Builder) buildShadow(p *MarshallingPlan, sel *declare.Selector, in Input, diags *diagnostic.Diagnostics) {
	d := in.Descriptor
	if d == nil {
		diags.AddError(diagnostic.ClassFatalDefinition, CodeMissingDescriptor,
			"shadow type was not validated", p.Subject(), "")

		return
	}

	diags.Merge(in.Shape)

	if in.Shape.HasErrors() {
		return
	}

	p.Shadow = d.Shadow
	p.Synthesized = d.Synthesized
	p.ManagedToNative = d.ManagedToNative
	p.NativeToManaged = d.NativeToManaged
	p.ReleaseRequired = d.HasFreeNative
	p.Native = d.Representation()
	p.UnwrapsValue = d.UnwrapsValue()

	b.planPinning(p, sel, d, diags)

	switch {
	case d.RequiresStackBuffer:
		p.Buffer = BufferStrategy{Kind: BufferRequiredStack, Size: d.BufferSize}
	case d.HasBufferCtor:
		p.Buffer = BufferStrategy{Kind: BufferOptionalStack, Size: d.BufferSize}
	}
}

// planPinning decides pinning eligibility. The pinned element must be
// blittable and equal to the final native representation. Declarations on
// the type also accept the shadow type itself, before Value unwrapping;
// use-site overrides need the literal match.
func (b *Builder) planPinning(p *MarshallingPlan, sel *declare.Selector, d *shape.Descriptor, diags *diagnostic.Diagnostics) {
	elem := d.Pinnable
	if elem == nil {
		return
	}

	v, err := b.classifier.Classify(elem, nil)
	if err != nil || !v.IsBlittable() {
		reason := v.Reason()
		if err != nil {
			reason = err.Error()
		}

		diags.AddWarning(CodePinningNotBlittable,
			fmt.Sprintf("pinning skipped: element %s is not blittable: %s", analyze.ShortName(elem), reason),
			p.Subject(), p.SiteName())

		return
	}

	match := analyze.Identical(elem, p.Native) ||
		(sel.Source.IsDefinitionSite() && analyze.Identical(elem, d.Shadow))

	if !match {
		diags.AddWarning(CodePinningMismatch,
			fmt.Sprintf("pinning skipped: element %s does not match the native representation %s",
				analyze.ShortName(elem), analyze.ShortName(p.Native)),
			p.Subject(), p.SiteName())

		return
	}

	p.Pinning = Pinning{Eligible: true, Element: elem}
}

// checkSite rejects uses that need something the plan cannot provide.
func (b *Builder) checkSite(p *MarshallingPlan, site *analyze.UseSite, diags *diagnostic.Diagnostics) {
	subject := p.Subject()

	if site.NeedsManagedToNative() && !p.ManagedToNative {
		diags.AddError(diagnostic.ClassFatalUse, CodeUnsupportedDirection,
			fmt.Sprintf("%s %s use needs managed-to-native conversion, which the shadow type does not support",
				site.Context, site.Direction),
			subject, site.Name)
	}

	if site.NeedsNativeToManaged() && !p.NativeToManaged {
		diags.AddError(diagnostic.ClassFatalUse, CodeUnsupportedDirection,
			fmt.Sprintf("%s %s use needs native-to-managed conversion, which the shadow type does not support",
				site.Context, site.Direction),
			subject, site.Name)
	}

	if p.Buffer.Kind == BufferRequiredStack && site.NeedsManagedToNative() && !site.StackFrame {
		diags.AddError(diagnostic.ClassFatalUse, CodeStackBufferUnavailable,
			fmt.Sprintf("shadow type requires a %d-byte stack buffer, but the %s %s use has no native stack frame",
				p.Buffer.Size, site.Context, site.Direction),
			subject, site.Name)
	}
}
