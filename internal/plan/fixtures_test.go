package plan

import (
	"marshal-planner/internal/analyze"
)

const testPkg = "example.com/interop"

func prim(name string) *analyze.TypeInfo {
	t, _ := analyze.Builtin(name)
	return t
}

func field(name string, t *analyze.TypeInfo) analyze.FieldInfo {
	return analyze.FieldInfo{Name: name, Type: t}
}

// fixture is a type graph under construction.
type fixture struct {
	g *analyze.TypeGraph
}

func newFixture() *fixture {
	return &fixture{g: analyze.NewTypeGraph()}
}

func (f *fixture) add(pkg, name string, fields ...analyze.FieldInfo) *analyze.TypeInfo {
	for i := range fields {
		fields[i].Index = i
	}

	t := &analyze.TypeInfo{
		ID:     analyze.TypeID{PkgPath: pkg, Name: name},
		Kind:   analyze.TypeKindStruct,
		Fields: fields,
	}
	f.g.AddType(t)

	return t
}

func (f *fixture) typ(name string, fields ...analyze.FieldInfo) *analyze.TypeInfo {
	return f.add(testPkg, name, fields...)
}

func (f *fixture) site(name string, t *analyze.TypeInfo, d analyze.Direction, c analyze.CallContext) *analyze.UseSite {
	s := &analyze.UseSite{
		Name:       name,
		Type:       t,
		Direction:  d,
		Context:    c,
		StackFrame: analyze.DefaultStackFrame(d, c),
	}
	f.g.Sites = append(f.g.Sites, s)

	return s
}

// shadow declares name as a shadow type for managed, with blittable fields.
func (f *fixture) shadow(name string, managed *analyze.TypeInfo) *shadowBuilder {
	t := f.typ(name, field("Ptr", prim("uintptr")), field("Len", prim("int32")))
	t.Members = &analyze.MemberSet{}

	return &shadowBuilder{t: t, managed: managed}
}

type shadowBuilder struct {
	t       *analyze.TypeInfo
	managed *analyze.TypeInfo
}

func (b *shadowBuilder) ctor() *shadowBuilder {
	b.t.Members.Constructors = append(b.t.Members.Constructors,
		analyze.Signature{Params: []*analyze.TypeInfo{b.managed}, Results: []*analyze.TypeInfo{b.t}})

	return b
}

func (b *shadowBuilder) bufferCtor() *shadowBuilder {
	b.t.Members.Constructors = append(b.t.Members.Constructors,
		analyze.Signature{
			Params:  []*analyze.TypeInfo{b.managed, analyze.SliceOf(prim("byte"))},
			Results: []*analyze.TypeInfo{b.t},
		})

	return b
}

func (b *shadowBuilder) method(name string, results ...*analyze.TypeInfo) *shadowBuilder {
	b.t.Members.Methods = append(b.t.Members.Methods, analyze.Method{
		Name:            name,
		Signature:       analyze.Signature{Results: results},
		PointerReceiver: true,
	})

	return b
}

func (b *shadowBuilder) toManaged() *shadowBuilder {
	return b.method(analyze.MemberToManaged, b.managed)
}

func (b *shadowBuilder) freeNative() *shadowBuilder {
	return b.method(analyze.MemberFreeNative)
}

func (b *shadowBuilder) value(t *analyze.TypeInfo, settable bool) *shadowBuilder {
	b.t.Members.Properties = append(b.t.Members.Properties, analyze.Property{
		Name:   analyze.MemberValue,
		Type:   t,
		Getter: true,
		Setter: settable,
	})

	return b
}

func (b *shadowBuilder) pinnable(elem *analyze.TypeInfo) *shadowBuilder {
	return b.method(analyze.MemberGetPinnableReference, analyze.PointerTo(elem))
}

func (b *shadowBuilder) stackBuffer(size int64, required bool) *shadowBuilder {
	b.t.Members.Constants = append(b.t.Members.Constants,
		analyze.Constant{Name: analyze.MemberBufferSize, Type: prim("int"), Int: size},
		analyze.Constant{Name: analyze.MemberRequiresStackBuffer, Type: prim("bool"), Bool: required},
	)

	return b
}

// declareNative attaches the shadow to its managed type.
func (b *shadowBuilder) declareNative() *analyze.TypeInfo {
	b.managed.Decl.Native = b.t.ID
	return b.t
}

func (b *shadowBuilder) build() *analyze.TypeInfo {
	return b.t
}

// interopGraph models a small interop package:
//
//	//marshal:blittable
//	type Point struct{ X, Y int32 }
//	//marshal:native PersonNative
//	type Person struct{ Name string; Age int32 }
//	//marshal:native ReadOnlyNative   (ToManaged only)
//	type ReadOnly struct{ Name string }
//	//marshal:native MoneyNative      (Value int64 with SetValue)
//	type Money struct{ Amount string }
//	//marshal:native CounterNative    (Value int64 without SetValue)
//	type Counter struct{ Label string }
//	//marshal:blittable
//	type Box[T any] struct{ Item T; Tag int32 }
//	//marshal:generate
//	type Label struct{ Text string }
//	//marshal:generate
//	type Vec struct{ X, Y float32 }
//	type Handle struct{ ID int32; <unexported> }   (example.com/other)
func interopGraph() *fixture {
	f := newFixture()

	point := f.typ("Point", field("X", prim("int32")), field("Y", prim("int32")))
	point.Decl.Blittable = true

	person := f.typ("Person", field("Name", prim("string")), field("Age", prim("int32")))
	f.shadow("PersonNative", person).ctor().toManaged().freeNative().declareNative()

	readOnly := f.typ("ReadOnly", field("Name", prim("string")))
	f.shadow("ReadOnlyNative", readOnly).toManaged().declareNative()

	money := f.typ("Money", field("Amount", prim("string")))
	f.shadow("MoneyNative", money).ctor().toManaged().value(prim("int64"), true).declareNative()

	counter := f.typ("Counter", field("Label", prim("string")))
	f.shadow("CounterNative", counter).ctor().toManaged().value(prim("int64"), false).declareNative()

	box := f.typ("Box", field("Item", analyze.ParamType("T", 0)), field("Tag", prim("int32")))
	box.TypeParams = []analyze.TypeParamInfo{{Name: "T", Index: 0, CanBeValueType: true}}
	box.Decl.Blittable = true

	label := f.typ("Label", field("Text", prim("string")))
	label.Decl.Generate = true

	vec := f.typ("Vec", field("X", prim("float32")), field("Y", prim("float32")))
	vec.Decl.Generate = true

	f.add("example.com/other", "Handle",
		field("ID", prim("int32")),
		analyze.FieldInfo{Name: "_erased1", Visibility: analyze.FieldErased},
	)

	return f
}

func (f *fixture) get(name string) *analyze.TypeInfo {
	for id, t := range f.g.Types {
		if id.Name == name {
			return t
		}
	}

	return nil
}

func subject(name string) string {
	return testPkg + "." + name
}
