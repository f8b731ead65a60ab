package analyze

import (
	"fmt"
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"
	"strings"

	"golang.org/x/tools/go/packages"
)

// LoadMode specifies what information to load from packages.
const LoadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedSyntax |
	packages.NeedTypes |
	packages.NeedTypesInfo |
	packages.NeedImports

// Shadow-contract member names. These are the wire format recognised on
// shadow types and must match exactly.
const (
	MemberConstructorPrefix = "New"
	// Go has no overloading; the buffer constructor is New<Shadow>WithBuffer.
	MemberBufferConstructorSuffix = "WithBuffer"
	MemberToManaged               = "ToManaged"
	MemberFreeNative              = "FreeNative"
	MemberValue                   = "Value"
	MemberSetValue                = "SetValue"
	MemberGetPinnableReference    = "GetPinnableReference"
	MemberBufferSize              = "BufferSize"
	MemberRequiresStackBuffer     = "RequiresStackBuffer"
)

// contractMethods are the only methods extracted into a MemberSet.
var contractMethods = map[string]bool{
	MemberToManaged:            true,
	MemberFreeNative:           true,
	MemberValue:                true,
	MemberSetValue:             true,
	MemberGetPinnableReference: true,
}

// Analyzer loads Go packages and builds a type graph.
//
// Packages passed to LoadPackages form the defining view: every field of
// their types is visible. Types reached from other packages are seen the way
// a consumer sees them: unexported fields become erased placeholders.
type Analyzer struct {
	graph     *TypeGraph
	typeCache map[types.Type]*TypeInfo // Cache to handle recursive types
	roots     map[string]*packages.Package
}

// NewAnalyzer creates a new Analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		graph:     NewTypeGraph(),
		typeCache: make(map[types.Type]*TypeInfo),
		roots:     make(map[string]*packages.Package),
	}
}

// LoadPackages loads the specified packages and builds the type graph.
// Patterns are standard Go package patterns (e.g., "./interop", "marshal-planner/examples/interop").
func (a *Analyzer) LoadPackages(patterns ...string) (*TypeGraph, error) {
	cfg := &packages.Config{
		Mode: LoadMode,
	}

	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}

	// Check for package errors
	var errs []error
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			errs = append(errs, e)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("package errors: %v", errs)
	}

	// Register roots first so visibility is known before any type is analysed.
	for _, pkg := range pkgs {
		a.roots[pkg.PkgPath] = pkg
	}

	for _, pkg := range pkgs {
		a.processPackage(pkg)
	}

	for _, pkg := range pkgs {
		if err := a.processDirectives(pkg); err != nil {
			return nil, fmt.Errorf("failed to process directives in %s: %w", pkg.PkgPath, err)
		}
	}

	return a.graph, nil
}

// Graph returns the current type graph.
func (a *Analyzer) Graph() *TypeGraph {
	return a.graph
}

// processPackage extracts every named type of a root package.
func (a *Analyzer) processPackage(pkg *packages.Package) {
	pkgInfo := &PackageInfo{
		Path: pkg.PkgPath,
		Name: pkg.Name,
	}

	scope := pkg.Types.Scope()
	for _, name := range scope.Names() {
		typeName, ok := scope.Lookup(name).(*types.TypeName)
		if !ok || typeName.IsAlias() {
			continue
		}

		info := a.analyzeType(typeName.Type())
		pkgInfo.Types = append(pkgInfo.Types, info.ID)
	}

	a.graph.Packages[pkg.PkgPath] = pkgInfo
}

// isForeign returns true if the package is seen through its export data only.
func (a *Analyzer) isForeign(pkg *types.Package) bool {
	if pkg == nil {
		return false
	}

	_, ok := a.roots[pkg.Path()]

	return !ok
}

// analyzeType recursively analyzes a go/types.Type and returns a TypeInfo.
func (a *Analyzer) analyzeType(t types.Type) *TypeInfo {
	t = types.Unalias(t)

	if b, ok := t.(*types.Basic); ok {
		return basicInfo(b)
	}

	// Check cache to handle recursive types
	if cached, ok := a.typeCache[t]; ok {
		return cached
	}

	info := &TypeInfo{}

	// Pre-cache to handle recursive types (we'll fill in details)
	a.typeCache[t] = info

	switch tt := t.(type) {
	case *types.Named:
		a.analyzeNamedType(tt, info)

	case *types.TypeParam:
		*info = *ParamType(tt.Obj().Name(), tt.Index())

	default:
		a.analyzeStructure(t, info, nil)
	}

	return info
}

// analyzeNamedType analyzes a named type or a generic instance.
func (a *Analyzer) analyzeNamedType(named *types.Named, info *TypeInfo) {
	if named.TypeArgs().Len() > 0 {
		origin := a.analyzeType(named.Origin())

		args := make([]*TypeInfo, named.TypeArgs().Len())
		for i := range args {
			args[i] = a.analyzeType(named.TypeArgs().At(i))
		}

		*info = *Instantiate(origin, args...)
		a.graph.AddType(info)

		return
	}

	obj := named.Obj()
	info.ID = TypeID{Name: obj.Name()}

	if obj.Pkg() != nil {
		info.ID.PkgPath = obj.Pkg().Path()
	}

	if tps := named.TypeParams(); tps.Len() > 0 {
		for i := 0; i < tps.Len(); i++ {
			tp := tps.At(i)
			info.TypeParams = append(info.TypeParams, TypeParamInfo{
				Name:           tp.Obj().Name(),
				Index:          i,
				CanBeValueType: canBeValueType(tp),
			})
		}
	}

	a.graph.AddType(info)
	a.analyzeStructure(named.Underlying(), info, obj.Pkg())
	info.Members = a.analyzeMembers(named)
}

// analyzeStructure fills kind-specific details from an underlying type.
// owner is the package declaring the named type, used for field visibility.
func (a *Analyzer) analyzeStructure(u types.Type, info *TypeInfo, owner *types.Package) {
	switch tt := u.(type) {
	case *types.Basic:
		b := basicInfo(tt)
		info.Kind = b.Kind
		info.Primitive = b.Primitive

	case *types.Struct:
		info.Kind = TypeKindStruct
		a.analyzeStructFields(tt, info, owner)

	case *types.Array:
		info.Kind = TypeKindArray
		info.Len = tt.Len()
		info.Elem = a.analyzeType(tt.Elem())

	case *types.Pointer:
		info.Kind = TypeKindPointer
		info.Elem = a.analyzeType(tt.Elem())

	case *types.Slice:
		info.Kind = TypeKindSlice
		info.Elem = a.analyzeType(tt.Elem())

	case *types.Map:
		info.Kind = TypeKindMap
		info.Elem = a.analyzeType(tt.Elem())

	case *types.Chan:
		info.Kind = TypeKindChan
		info.Elem = a.analyzeType(tt.Elem())

	case *types.Signature:
		info.Kind = TypeKindFunc

	case *types.Interface:
		info.Kind = TypeKindInterface

	default:
		info.Kind = TypeKindUnknown
	}
}

// analyzeStructFields extracts fields from a struct type. Unexported fields
// of foreign types are replaced by erased placeholders.
func (a *Analyzer) analyzeStructFields(st *types.Struct, info *TypeInfo, owner *types.Package) {
	foreign := a.isForeign(owner)

	for i := 0; i < st.NumFields(); i++ {
		field := st.Field(i)

		if foreign && !field.Exported() {
			info.Fields = append(info.Fields, FieldInfo{
				Name:       fmt.Sprintf("_erased%d", i),
				Visibility: FieldErased,
				Index:      i,
			})

			continue
		}

		info.Fields = append(info.Fields, FieldInfo{
			Name:       field.Name(),
			Type:       a.analyzeType(field.Type()),
			Visibility: FieldFullyVisible,
			Index:      i,
		})
	}
}

// analyzeMembers collects the shadow-contract members of a named type.
func (a *Analyzer) analyzeMembers(named *types.Named) *MemberSet {
	ms := &MemberSet{}

	mset := types.NewMethodSet(types.NewPointer(named))
	for i := 0; i < mset.Len(); i++ {
		fn, ok := mset.At(i).Obj().(*types.Func)
		if !ok || !contractMethods[fn.Name()] {
			continue
		}

		sig := fn.Type().(*types.Signature)
		_, ptrRecv := sig.Recv().Type().(*types.Pointer)

		ms.Methods = append(ms.Methods, Method{
			Name:            fn.Name(),
			Signature:       a.analyzeSignature(sig),
			PointerReceiver: ptrRecv,
		})
	}

	if prop := valueProperty(ms); prop != nil {
		ms.Properties = append(ms.Properties, *prop)
	}

	obj := named.Obj()
	if obj.Pkg() == nil {
		return ms
	}

	scope := obj.Pkg().Scope()

	for _, name := range []string{
		MemberConstructorPrefix + obj.Name(),
		MemberConstructorPrefix + obj.Name() + MemberBufferConstructorSuffix,
	} {
		fn, ok := scope.Lookup(name).(*types.Func)
		if !ok {
			continue
		}

		sig := fn.Type().(*types.Signature)
		if sig.Results().Len() > 0 && types.Identical(sig.Results().At(0).Type(), named) {
			ms.Constructors = append(ms.Constructors, a.analyzeSignature(sig))
		}
	}

	for _, member := range []string{MemberBufferSize, MemberRequiresStackBuffer} {
		c, ok := scope.Lookup(obj.Name() + member).(*types.Const)
		if !ok {
			continue
		}

		k := Constant{Name: member, Type: a.analyzeType(c.Type())}

		switch c.Val().Kind() {
		case constant.Int:
			k.Int, _ = constant.Int64Val(c.Val())
		case constant.Bool:
			k.Bool = constant.BoolVal(c.Val())
		}

		ms.Constants = append(ms.Constants, k)
	}

	return ms
}

// valueProperty folds Value / SetValue methods into a Property.
func valueProperty(ms *MemberSet) *Property {
	getter := ms.Method(MemberValue)
	setter := ms.Method(MemberSetValue)

	if getter == nil && setter == nil {
		return nil
	}

	prop := &Property{Name: MemberValue}

	if getter != nil && len(getter.Params) == 0 && len(getter.Results) == 1 {
		prop.Getter = true
		prop.Type = getter.Results[0]

		if prop.Type.Kind == TypeKindPointer && !prop.Type.IsNamed() {
			prop.ByRef = true
			prop.Type = prop.Type.Elem
		}
	}

	if setter != nil && len(setter.Params) == 1 && len(setter.Results) == 0 {
		prop.Setter = true

		if prop.Type == nil {
			prop.Type = setter.Params[0]
		}
	}

	return prop
}

func (a *Analyzer) analyzeSignature(sig *types.Signature) Signature {
	var s Signature

	for i := 0; i < sig.Params().Len(); i++ {
		s.Params = append(s.Params, a.analyzeType(sig.Params().At(i).Type()))
	}

	for i := 0; i < sig.Results().Len(); i++ {
		s.Results = append(s.Results, a.analyzeType(sig.Results().At(i).Type()))
	}

	return s
}

// processDirectives applies //marshal: directives of a root package.
func (a *Analyzer) processDirectives(pkg *packages.Package) error {
	for _, file := range pkg.Syntax {
		for _, decl := range file.Decls {
			switch d := decl.(type) {
			case *ast.GenDecl:
				if d.Tok != token.TYPE {
					continue
				}

				for _, spec := range d.Specs {
					ts := spec.(*ast.TypeSpec)

					doc := ts.Doc
					if doc == nil && len(d.Specs) == 1 {
						doc = d.Doc
					}

					if err := a.applyTypeDirectives(pkg, ts.Name.Name, ParseDirectives(doc)); err != nil {
						return err
					}
				}

			case *ast.FuncDecl:
				dirs := ParseDirectives(d.Doc)
				if !HasDirective(dirs, DirectiveExtern) && !HasDirective(dirs, DirectiveCallback) {
					continue
				}

				fn, ok := pkg.TypesInfo.Defs[d.Name].(*types.Func)
				if !ok {
					continue
				}

				if err := a.addSites(pkg, fn, dirs); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func (a *Analyzer) applyTypeDirectives(pkg *packages.Package, name string, dirs []Directive) error {
	if len(dirs) == 0 {
		return nil
	}

	info := a.graph.GetType(TypeID{PkgPath: pkg.PkgPath, Name: name})
	if info == nil {
		return nil
	}

	for _, dir := range dirs {
		switch dir.Name {
		case DirectiveGenerate:
			info.Decl.Generate = true
		case DirectiveBlittable:
			info.Decl.Blittable = true
		case DirectiveNative:
			if len(dir.Args) != 1 {
				return fmt.Errorf("%s: //marshal:native takes exactly one type name", name)
			}

			id, err := a.resolveRef(pkg, dir.Args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}

			info.Decl.Native = id
		}
	}

	return nil
}

// addSites turns the parameters and results of an extern function into use sites.
func (a *Analyzer) addSites(pkg *packages.Package, fn *types.Func, dirs []Directive) error {
	sig := fn.Type().(*types.Signature)
	prefix := pkg.Name + "." + fn.Name()

	ctx := ContextForward
	if HasDirective(dirs, DirectiveCallback) {
		ctx = ContextReverse
	}

	overrides := make(map[string]TypeID)
	directions := make(map[string]Direction)

	for _, dir := range dirs {
		switch dir.Name {
		case DirectiveUsing:
			if len(dir.Args) != 2 {
				return fmt.Errorf("%s: //marshal:using takes a parameter and a type name", prefix)
			}

			id, err := a.resolveRef(pkg, dir.Args[1])
			if err != nil {
				return fmt.Errorf("%s: %w", prefix, err)
			}

			overrides[dir.Args[0]] = id
		case DirectiveOut, DirectiveInOut:
			d := DirectionOut
			if dir.Name == DirectiveInOut {
				d = DirectionInOut
			}

			for _, p := range dir.Args {
				directions[p] = d
			}
		}
	}

	for i := 0; i < sig.Params().Len(); i++ {
		p := sig.Params().At(i)

		name := p.Name()
		if name == "" || name == "_" {
			name = fmt.Sprintf("arg%d", i)
		}

		site := &UseSite{
			Name:      prefix + "#" + name,
			Type:      a.analyzeType(p.Type()),
			Override:  overrides[name],
			Direction: DirectionIn,
			Context:   ctx,
		}

		if d, ok := directions[name]; ok {
			site.Direction = d

			// Out values travel through a pointer; the marshalled type is the pointee.
			if site.Type.Kind == TypeKindPointer {
				site.Type = site.Type.Elem
			}
		}

		site.StackFrame = DefaultStackFrame(site.Direction, ctx)
		a.graph.Sites = append(a.graph.Sites, site)
	}

	for i := 0; i < sig.Results().Len(); i++ {
		r := sig.Results().At(i)

		name := r.Name()
		if name == "" {
			name = fmt.Sprintf("ret%d", i)
		}

		a.graph.Sites = append(a.graph.Sites, &UseSite{
			Name:       prefix + "#" + name,
			Type:       a.analyzeType(r.Type()),
			Override:   overrides[name],
			Direction:  DirectionReturn,
			Context:    ctx,
			StackFrame: DefaultStackFrame(DirectionReturn, ctx),
		})
	}

	return nil
}

// resolveRef resolves "Name" (same package) or "import/path.Name" and makes
// sure the referenced type is part of the graph.
func (a *Analyzer) resolveRef(pkg *packages.Package, ref string) (TypeID, error) {
	pkgPath, name := pkg.PkgPath, ref
	if idx := strings.LastIndex(ref, "."); idx >= 0 {
		pkgPath, name = ref[:idx], ref[idx+1:]
	}

	var scope *types.Scope

	if pkgPath == pkg.PkgPath {
		scope = pkg.Types.Scope()
	} else if imp, ok := pkg.Imports[pkgPath]; ok && imp.Types != nil {
		scope = imp.Types.Scope()
	} else if root, ok := a.roots[pkgPath]; ok {
		scope = root.Types.Scope()
	}

	if scope == nil {
		return TypeID{}, fmt.Errorf("package %q of type %q is not imported", pkgPath, ref)
	}

	tn, ok := scope.Lookup(name).(*types.TypeName)
	if !ok {
		return TypeID{}, fmt.Errorf("type %q not found", ref)
	}

	return a.analyzeType(tn.Type()).ID, nil
}

// basicInfo maps a go/types basic type onto the shared primitive models.
func basicInfo(b *types.Basic) *TypeInfo {
	// rune is an alias of int32 but keeps its own name on the Basic.
	if b.Name() == "rune" {
		return Primitive(PrimitiveRune)
	}

	switch b.Kind() {
	case types.Bool, types.UntypedBool:
		return Primitive(PrimitiveBool)
	case types.UntypedRune:
		return Primitive(PrimitiveRune)
	case types.Int, types.UntypedInt:
		return Primitive(PrimitiveInt)
	case types.Int8:
		return Primitive(PrimitiveInt8)
	case types.Int16:
		return Primitive(PrimitiveInt16)
	case types.Int32:
		return Primitive(PrimitiveInt32)
	case types.Int64:
		return Primitive(PrimitiveInt64)
	case types.Uint:
		return Primitive(PrimitiveUint)
	case types.Uint8:
		return Primitive(PrimitiveUint8)
	case types.Uint16:
		return Primitive(PrimitiveUint16)
	case types.Uint32:
		return Primitive(PrimitiveUint32)
	case types.Uint64:
		return Primitive(PrimitiveUint64)
	case types.Uintptr:
		return Primitive(PrimitiveUintptr)
	case types.Float32:
		return Primitive(PrimitiveFloat32)
	case types.Float64, types.UntypedFloat:
		return Primitive(PrimitiveFloat64)
	case types.Complex64:
		return Primitive(PrimitiveComplex64)
	case types.Complex128:
		return Primitive(PrimitiveComplex128)
	case types.UnsafePointer:
		return Primitive(PrimitiveUnsafePointer)
	case types.String, types.UntypedString:
		return stringType
	default:
		return &TypeInfo{Kind: TypeKindUnknown}
	}
}

// canBeValueType reports whether a type parameter may be instantiated with a
// non-reference type.
func canBeValueType(tp *types.TypeParam) bool {
	iface, ok := tp.Constraint().Underlying().(*types.Interface)
	if !ok || iface.IsMethodSet() {
		return true
	}

	for i := 0; i < iface.NumEmbeddeds(); i++ {
		switch e := iface.EmbeddedType(i).(type) {
		case *types.Union:
			allRefs := true

			for j := 0; j < e.Len(); j++ {
				if !isReferenceType(e.Term(j).Type()) {
					allRefs = false
					break
				}
			}

			if allRefs {
				return false
			}

		default:
			if _, isIface := e.Underlying().(*types.Interface); !isIface && isReferenceType(e) {
				return false
			}
		}
	}

	return true
}

func isReferenceType(t types.Type) bool {
	switch u := t.Underlying().(type) {
	case *types.Pointer, *types.Slice, *types.Map, *types.Chan, *types.Signature, *types.Interface:
		return true
	case *types.Basic:
		return u.Kind() == types.String
	default:
		return false
	}
}
