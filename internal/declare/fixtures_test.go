package declare

import (
	"marshal-planner/internal/analyze"
)

const testPkg = "example.com/interop"

func prim(name string) *analyze.TypeInfo {
	t, _ := analyze.Builtin(name)
	return t
}

func add(g *analyze.TypeGraph, pkg, name string, fields ...analyze.FieldInfo) *analyze.TypeInfo {
	for i := range fields {
		fields[i].Index = i
	}

	t := &analyze.TypeInfo{
		ID:     analyze.TypeID{PkgPath: pkg, Name: name},
		Kind:   analyze.TypeKindStruct,
		Fields: fields,
	}
	g.AddType(t)

	return t
}

// testGraph builds:
//
//	type Point struct { X, Y int32 }
//	type Person struct { Name string; Age int32 }
//	type PersonNative struct { Name uintptr; Age int32 }
//	type Box[T any] struct { Item T; Tag int32 }
//	type Handle struct { ID int32; <erased> }   (example.com/other)
func testGraph() *analyze.TypeGraph {
	g := analyze.NewTypeGraph()

	add(g, testPkg, "Point",
		analyze.FieldInfo{Name: "X", Type: prim("int32")},
		analyze.FieldInfo{Name: "Y", Type: prim("int32")},
	)
	add(g, testPkg, "Person",
		analyze.FieldInfo{Name: "Name", Type: prim("string")},
		analyze.FieldInfo{Name: "Age", Type: prim("int32")},
	)
	add(g, testPkg, "PersonNative",
		analyze.FieldInfo{Name: "Name", Type: prim("uintptr")},
		analyze.FieldInfo{Name: "Age", Type: prim("int32")},
	)

	box := add(g, testPkg, "Box",
		analyze.FieldInfo{Name: "Item", Type: analyze.ParamType("T", 0)},
		analyze.FieldInfo{Name: "Tag", Type: prim("int32")},
	)
	box.TypeParams = []analyze.TypeParamInfo{{Name: "T", Index: 0, CanBeValueType: true}}

	add(g, "example.com/other", "Handle",
		analyze.FieldInfo{Name: "ID", Type: prim("int32")},
		analyze.FieldInfo{Name: "_erased1", Visibility: analyze.FieldErased},
	)

	return g
}

func typeOf(g *analyze.TypeGraph, name string) *analyze.TypeInfo {
	for id, t := range g.Types {
		if id.Name == name {
			return t
		}
	}

	return nil
}
