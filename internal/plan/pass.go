package plan

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"marshal-planner/internal/analyze"
	"marshal-planner/internal/blittable"
	"marshal-planner/internal/declare"
	"marshal-planner/internal/diagnostic"
	"marshal-planner/internal/shape"
)

// ErrStrict is returned by Run in strict mode when any error was reported.
var ErrStrict = errors.New("resolution reported errors")

// Pass resolves every declared type and every use site of a type graph.
// Each pass owns a fresh verdict cache.
type Pass struct {
	graph     *analyze.TypeGraph
	cfg       Config
	log       *zap.Logger
	analyzer  *blittable.Analyzer
	resolver  *declare.Resolver
	validator *shape.Validator
	builder   *Builder

	shapes sync.Map // shapeKey -> *shapeResult
}

// item is one unit of work: a type at its definition (site nil) or at a
// use site.
type item struct {
	managed *analyze.TypeInfo
	site    *analyze.UseSite
}

type shapeKey struct {
	shadow, managed analyze.TypeID
	// unnamed is set for managed types without a name, which share the
	// zero TypeID and are told apart by their model.
	unnamed     *analyze.TypeInfo
	synthesized bool
}

type shapeResult struct {
	descriptor *shape.Descriptor
	diags      diagnostic.Diagnostics
}

// NewPass creates a resolution pass over graph.
func NewPass(graph *analyze.TypeGraph, cfg Config) *Pass {
	log := Logger()
	analyzer := blittable.NewAnalyzer(blittable.NewCache(), log.Named("blittable"))

	return &Pass{
		graph:     graph,
		cfg:       cfg.normalized(),
		log:       log,
		analyzer:  analyzer,
		resolver:  declare.NewResolver(graph, analyzer, log.Named("declare")),
		validator: shape.NewValidator(analyzer),
		builder:   NewBuilder(analyzer, log.Named("plan")),
	}
}

// Run resolves all items on a pool of Config.Workers goroutines. A failure
// in one item is reported as its diagnostics and never stops the others;
// only cancellation of ctx aborts the pass. In strict mode an error
// diagnostic makes Run return ErrStrict along with the result.
func (p *Pass) Run(ctx context.Context) (*Result, error) {
	items := p.items()

	p.log.Info("resolution pass started",
		zap.Int("items", len(items)),
		zap.Int("workers", p.cfg.Workers))

	plans := make([]*MarshallingPlan, len(items))
	diags := make([]diagnostic.Diagnostics, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	for i, it := range items {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			plans[i], diags[i] = p.resolveItem(it)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolution pass aborted: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("resolution pass aborted: %w", err)
	}

	result := &Result{Plans: plans}
	for _, d := range diags {
		result.Diagnostics.Merge(d)
	}

	result.Diagnostics.Dedupe()
	result.Diagnostics.Sort()
	sortPlans(result.Plans)

	p.log.Info("resolution pass finished",
		zap.Int("plans", len(result.Plans)),
		zap.Int("valid", len(result.Valid())),
		zap.Int("errors", len(result.Diagnostics.Errors)),
		zap.Int("warnings", len(result.Diagnostics.Warnings)))

	if p.cfg.Strict && result.Diagnostics.HasErrors() {
		return result, fmt.Errorf("%w: %w", ErrStrict, result.Diagnostics.Error())
	}

	return result, nil
}

// items lists definition-site items for declared types, then use sites.
func (p *Pass) items() []item {
	declared := p.graph.Declared()
	items := make([]item, 0, len(declared)+len(p.graph.Sites))

	for _, t := range declared {
		items = append(items, item{managed: t})
	}

	for _, s := range p.graph.Sites {
		items = append(items, item{managed: s.Type, site: s})
	}

	return items
}

func (p *Pass) resolveItem(it item) (plan *MarshallingPlan, diags diagnostic.Diagnostics) {
	siteName := ""
	if it.site != nil {
		siteName = it.site.Name
	}

	defer func() {
		if r := recover(); r != nil {
			p.log.Error("resolution panicked",
				zap.String("type", subjectOf(it.managed)),
				zap.String("site", siteName),
				zap.Any("panic", r))

			diags.AddError(diagnostic.ClassFatalDefinition, CodeInternal,
				fmt.Sprintf("resolution failed: %v", r), subjectOf(it.managed), siteName)

			plan = &MarshallingPlan{Managed: it.managed, Site: it.site}
		}
	}()

	if it.managed == nil {
		diags.AddError(diagnostic.ClassFatalUse, CodeInternal, "use site has no type", "", siteName)

		return &MarshallingPlan{Site: it.site}, diags
	}

	sel, err := p.resolver.Resolve(it.managed, it.site)
	if err != nil {
		var fault *diagnostic.Fault
		if !errors.As(err, &fault) {
			fault = diagnostic.NewFault(diagnostic.ClassFatalDefinition, CodeInternal,
				subjectOf(it.managed), "%s", err.Error())
		}

		if fault.Class == diagnostic.ClassFatalUse && fault.Site == "" {
			fault = fault.WithSite(siteName)
		}

		diags.AddFault(fault)

		return &MarshallingPlan{Managed: it.managed, Site: it.site}, diags
	}

	in := Input{Selector: sel}
	if sel.Strategy == declare.StrategyNativeShadow {
		res := p.describe(sel, it.managed)
		in.Descriptor, in.Shape = res.descriptor, res.diags
	}

	plan, diags = p.builder.Build(it.managed, in, it.site)

	if plan.Synthesized && plan.Valid {
		p.checkFields(plan, &diags)
	}

	return plan, diags
}

// checkFields resolves the by-value struct fields a generated shadow type
// converts. The generated conversion runs inside the outer one, so each field
// must support both directions without a native stack frame of its own.
func (p *Pass) checkFields(plan *MarshallingPlan, diags *diagnostic.Diagnostics) {
	p.walkFields(plan.Managed, analyze.NewTypePath(analyze.ShortName(plan.Managed)), subjectOf(plan.Managed), diags)

	plan.Valid = !diags.HasErrors()
}

func (p *Pass) walkFields(t *analyze.TypeInfo, path *analyze.TypePath, outer string, diags *diagnostic.Diagnostics) {
	for _, f := range t.LayoutFields() {
		if f.Visibility == analyze.FieldErased {
			continue
		}

		ft, fpath := f.Type, path.Field(f.Name)
		for ft != nil && ft.Kind == analyze.TypeKindArray {
			ft, fpath = ft.Elem, fpath.Array(ft.Len)
		}

		if ft == nil || ft.Kind != analyze.TypeKindStruct {
			continue
		}

		if !ft.IsNamed() {
			p.walkFields(ft, fpath, outer, diags)
			continue
		}

		if v, err := p.analyzer.Classify(ft, nil); err == nil && v.IsBlittable() {
			continue
		}

		p.checkField(ft, fpath, outer, diags)
	}
}

func (p *Pass) checkField(ft *analyze.TypeInfo, path *analyze.TypePath, outer string, diags *diagnostic.Diagnostics) {
	site := &analyze.UseSite{
		Name:      outer + ":" + path.String(),
		Type:      ft,
		Direction: analyze.DirectionInOut,
		Context:   analyze.ContextForward,
	}

	_, nested := p.resolveItem(item{managed: ft, site: site})

	for _, d := range nested.Errors {
		diags.AddError(diagnostic.ClassFatalDefinition, CodeFieldNotMarshallable,
			fmt.Sprintf("generated shadow cannot convert field %s of type %s: %s",
				path, analyze.ShortName(ft), d.Message),
			outer, "")
	}
}

// describe validates a shadow type once per (shadow, managed) pair.
func (p *Pass) describe(sel *declare.Selector, managed *analyze.TypeInfo) *shapeResult {
	key := shapeKey{shadow: sel.Shadow.ID, managed: managed.ID, synthesized: sel.Synthesized}
	if !managed.IsNamed() {
		key.unnamed = managed
	}

	if v, ok := p.shapes.Load(key); ok {
		return v.(*shapeResult)
	}

	res := &shapeResult{}
	if sel.Synthesized {
		res.descriptor = shape.Synthesize(managed)
	} else {
		res.descriptor, res.diags = p.validator.Validate(sel.Shadow, managed)
	}

	actual, _ := p.shapes.LoadOrStore(key, res)

	return actual.(*shapeResult)
}

// Run is a convenience wrapper creating and running a pass.
func Run(ctx context.Context, graph *analyze.TypeGraph, cfg Config) (*Result, error) {
	return NewPass(graph, cfg).Run(ctx)
}
