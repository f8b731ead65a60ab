package blittable

import (
	"fmt"

	"go.uber.org/zap"

	"marshal-planner/internal/analyze"
)

// Classifier classifies types for blittability.
type Classifier interface {
	Classify(t *analyze.TypeInfo, visited *Visited) (Verdict, error)
}

// Analyzer classifies types by inspecting their value layout, trusting
// explicit declarations where fields are erased.
type Analyzer struct {
	cache *Cache
	log   *zap.Logger
}

// NewAnalyzer creates an Analyzer memoising into cache. A nil cache gets a
// private one.
func NewAnalyzer(cache *Cache, log *zap.Logger) *Analyzer {
	if cache == nil {
		cache = NewCache()
	}

	if log == nil {
		log = zap.NewNop()
	}

	return &Analyzer{cache: cache, log: log}
}

// Cache returns the verdict cache.
func (a *Analyzer) Cache() *Cache {
	return a.cache
}

// env carries the generic context of the composite being inspected.
type env struct {
	owner    *analyze.TypeInfo   // generic definition whose fields are inspected
	args     []*analyze.TypeInfo // substituted arguments; nil for the definition itself
	declared bool                // owner carries a blittable declaration
}

// Classify returns the verdict for t. visited is the chain of types on the
// caller's stack (nil at the top); a revisit yields a *LayoutCycleError.
func (a *Analyzer) Classify(t *analyze.TypeInfo, visited *Visited) (Verdict, error) {
	if t == nil {
		return notBlittable("type information unavailable"), nil
	}

	return a.classify(t, nil, visited, analyze.NewTypePath(analyze.ShortName(t)))
}

func (a *Analyzer) classify(
	t *analyze.TypeInfo,
	e *env,
	visited *Visited,
	path *analyze.TypePath,
) (Verdict, error) {
	if t == nil {
		return notBlittable(path.String() + ": type information unavailable"), nil
	}

	switch t.Kind {
	case analyze.TypeKindPrimitive:
		return classifyPrimitive(t, path), nil

	case analyze.TypeKindArray:
		v, err := a.classify(t.Elem, e, visited, path.Array(t.Len))
		if err != nil {
			return Verdict{}, err
		}

		return v, nil

	case analyze.TypeKindTypeParam:
		return a.classifyParam(t, e, visited, path)

	case analyze.TypeKindStruct:
		return a.classifyStruct(t, e, visited, path)

	case analyze.TypeKindUnknown:
		return notBlittable(path.String() + ": unsupported type"), nil

	default:
		return notBlittable(fmt.Sprintf("%s: %s holds a managed reference", path, t.Kind)), nil
	}
}

func classifyPrimitive(t *analyze.TypeInfo, path *analyze.TypePath) Verdict {
	switch {
	case t.Primitive.IsBoolOrChar():
		// No embedded references, but the native representation differs.
		return notBlittable(fmt.Sprintf("%s: %s is never blittable", path, t.Primitive))
	case t.Primitive.IsNumeric(), t.Primitive.IsAddress():
		return blittable()
	default:
		return notBlittable(path.String() + ": invalid primitive")
	}
}

// classifyParam handles a field whose type is a type parameter.
func (a *Analyzer) classifyParam(
	t *analyze.TypeInfo,
	e *env,
	visited *Visited,
	path *analyze.TypePath,
) (Verdict, error) {
	if e == nil || e.owner == nil {
		return notBlittable(path.String() + ": type parameter outside of a generic type"), nil
	}

	if e.args != nil {
		if t.ParamIndex >= len(e.args) {
			return notBlittable(path.String() + ": missing type argument"), nil
		}

		arg := e.args[t.ParamIndex]
		if arg.Kind == analyze.TypeKindTypeParam {
			// Still inside an enclosing definition.
			v := blittable()
			v.Pending = true

			return v, nil
		}

		v, err := a.Classify(arg, visited)
		if err != nil {
			return Verdict{}, err
		}

		if !v.IsBlittable() {
			fault := notBlittable(fmt.Sprintf("%s: type argument %s for %s is not blittable",
				path, arg, paramName(e.owner, t.ParamIndex)))
			fault.Reasons = append(fault.Reasons, v.Reasons...)
			fault.InstantiationFault = true

			return fault, nil
		}

		return v, nil
	}

	name := paramName(e.owner, t.ParamIndex)

	if !e.declared {
		return notBlittable(fmt.Sprintf("%s: field of type parameter %s requires a blittable declaration", path, name)), nil
	}

	if t.ParamIndex < len(e.owner.TypeParams) && !e.owner.TypeParams[t.ParamIndex].CanBeValueType {
		return notBlittable(fmt.Sprintf("%s: type parameter %s only admits reference types", path, name)), nil
	}

	v := blittable()
	v.Pending = true

	return v, nil
}

func paramName(owner *analyze.TypeInfo, idx int) string {
	if idx < len(owner.TypeParams) {
		return owner.TypeParams[idx].Name
	}

	return fmt.Sprintf("#%d", idx)
}

// classifyStruct handles composites, consulting the cache for named types.
func (a *Analyzer) classifyStruct(
	t *analyze.TypeInfo,
	e *env,
	visited *Visited,
	path *analyze.TypePath,
) (Verdict, error) {
	if !t.IsNamed() {
		return a.classifyFields(t, e, visited, path)
	}

	inner := a.innerEnv(t, e)
	memo := !hasOpenArgs(inner)

	if memo && t.IsInstance() && mentionsParam(t) {
		// Arguments were substituted from the enclosing instance; key the
		// verdict by the resolved instance.
		t = analyze.Instantiate(t.Definition(), inner.args...)
	}

	if memo {
		if entry, ok := a.cache.load(keyOf(t)); ok {
			return entry.verdict, entry.err
		}
	}

	if visited.Contains(t.ID) {
		err := &LayoutCycleError{Path: append(visited.Path(), t.ID)}
		a.log.Debug("recursive layout", zap.String("type", t.ID.String()))

		return Verdict{}, err
	}

	v, err := a.classifyComposite(t, inner, visited.Push(t.ID), path)

	if memo {
		entry := a.cache.store(keyOf(t), cacheEntry{verdict: v, err: err})
		a.log.Debug("classified",
			zap.String("type", t.ID.String()),
			zap.Stringer("verdict", entry.verdict.Kind))

		return entry.verdict, entry.err
	}

	return v, err
}

// innerEnv computes the generic context for the fields of t, resolving its
// type arguments against the enclosing context e.
func (a *Analyzer) innerEnv(t *analyze.TypeInfo, e *env) *env {
	def := t.Definition()

	switch {
	case t.IsInstance():
		args := make([]*analyze.TypeInfo, len(t.TypeArgs))
		for i, arg := range t.TypeArgs {
			args[i] = arg
			if arg.Kind == analyze.TypeKindTypeParam && e != nil && e.args != nil && arg.ParamIndex < len(e.args) {
				args[i] = e.args[arg.ParamIndex]
			}
		}

		return &env{owner: def, args: args, declared: def.Decl.Blittable}

	case t.IsGenericDefinition():
		return &env{owner: t, declared: t.Decl.Blittable}

	default:
		return nil
	}
}

// hasOpenArgs returns true when the context still refers to unresolved
// type parameters, so the verdict is not a property of the type alone.
func hasOpenArgs(e *env) bool {
	if e == nil {
		return false
	}

	for _, arg := range e.args {
		if arg.Kind == analyze.TypeKindTypeParam {
			return true
		}
	}

	return false
}

func (a *Analyzer) classifyComposite(
	t *analyze.TypeInfo,
	e *env,
	visited *Visited,
	path *analyze.TypePath,
) (Verdict, error) {
	declared := t.Definition().Decl.Blittable

	if t.HasErasedFields() {
		if declared {
			// Declarations win over inspection for types we cannot see into.
			return Verdict{Kind: KindBlittable, Declared: true}, nil
		}

		return indeterminate(path.String() + ": insufficient field visibility"), nil
	}

	v, err := a.classifyFields(t, e, visited, path)
	if err != nil {
		return Verdict{}, err
	}

	if declared && !v.IsBlittable() && !v.InstantiationFault {
		v.Reasons = append([]string{path.String() + ": declared blittable but its layout is not"}, v.Reasons...)
	}

	return v, nil
}

// classifyFields folds the verdicts of every field.
func (a *Analyzer) classifyFields(
	t *analyze.TypeInfo,
	e *env,
	visited *Visited,
	path *analyze.TypePath,
) (Verdict, error) {
	out := blittable()

	var (
		defFailures  int
		argFailures  int
		indetermined int
	)

	for _, f := range t.LayoutFields() {
		if f.Visibility == analyze.FieldErased {
			indetermined++
			out.Reasons = append(out.Reasons, path.Field(f.Name).String()+": insufficient field visibility")

			continue
		}

		fv, err := a.classify(f.Type, e, visited, path.Field(f.Name))
		if err != nil {
			return Verdict{}, err
		}

		switch fv.Kind {
		case KindBlittable:
			out.Pending = out.Pending || fv.Pending
		case KindIndeterminate:
			indetermined++
			out.Reasons = append(out.Reasons, fv.Reasons...)
		default:
			if fv.InstantiationFault && mentionsParam(f.Type) {
				argFailures++
			} else {
				defFailures++
			}

			out.Reasons = append(out.Reasons, fv.Reasons...)
		}
	}

	switch {
	case defFailures+argFailures > 0:
		out.Kind = KindNotBlittable
		out.Pending = false
		out.InstantiationFault = defFailures == 0
	case indetermined > 0:
		out.Kind = KindIndeterminate
		out.Pending = false
	}

	return out, nil
}

// mentionsParam returns true if t refers to a type parameter of the
// enclosing definition.
func mentionsParam(t *analyze.TypeInfo) bool {
	switch {
	case t == nil:
		return false
	case t.Kind == analyze.TypeKindTypeParam:
		return true
	case t.Kind == analyze.TypeKindArray:
		return mentionsParam(t.Elem)
	}

	for _, arg := range t.TypeArgs {
		if mentionsParam(arg) {
			return true
		}
	}

	return false
}
