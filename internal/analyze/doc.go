// Package analyze provides package loading and the type visibility model.
//
// It uses golang.org/x/tools/go/packages with AST and go/types to build a
// canonical in-memory model of the types that cross the native boundary.
// Packages being analysed are fully visible; types from other packages are
// seen as a consumer sees them, with unexported fields erased.
//
// Key types:
//   - TypeID: package import path + type name
//   - TypeInfo: kind, fields, generic parameters/arguments, declarations, members
//   - FieldInfo: field name, type and visibility tag (visible or erased)
//   - UseSite: a parameter or result of an extern function
//
// Opt-in markers are doc-comment directives:
//
//	//marshal:blittable
//	type Point struct{ X, Y int32 }
//
//	//marshal:native NameNative
//	type Name struct{ s string }
//
//	//marshal:extern
//	//marshal:using n NameUTF16
//	func Greet(n Name) int32 { ... }
package analyze
