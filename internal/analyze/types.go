package analyze

import (
	"strconv"
	"strings"

	"marshal-planner/internal/common"
)

// TypeID uniquely identifies a type by its package path and name.
// Generic instances carry their type arguments in Name (e.g. "Box[int32]").
type TypeID struct {
	PkgPath string // e.g., "marshal-planner/examples/interop"
	Name    string // e.g., "Point"
}

// String returns a human-readable representation of the TypeID.
func (t TypeID) String() string {
	if t.PkgPath == "" {
		return t.Name
	}

	return t.PkgPath + "." + t.Name
}

// IsZero returns true if the TypeID names nothing.
func (t TypeID) IsZero() bool {
	return t.PkgPath == "" && t.Name == ""
}

// TypeKind represents the kind of a type.
type TypeKind int

const (
	TypeKindUnknown   TypeKind = iota
	TypeKindPrimitive          // int32, float64, bool, rune, uintptr, ...
	TypeKindStruct             // struct type (named or not)
	TypeKindArray              // fixed-size array [N]T
	TypeKindPointer            // *T
	TypeKindSlice              // []T
	TypeKindMap                // map[K]V
	TypeKindString             // string
	TypeKindInterface          // interface type
	TypeKindFunc               // func type
	TypeKindChan               // chan T
	TypeKindTypeParam          // type parameter of a generic definition
)

// String returns a human-readable representation of the TypeKind.
func (k TypeKind) String() string {
	switch k {
	case TypeKindPrimitive:
		return "primitive"
	case TypeKindStruct:
		return "struct"
	case TypeKindArray:
		return "array"
	case TypeKindPointer:
		return "pointer"
	case TypeKindSlice:
		return "slice"
	case TypeKindMap:
		return "map"
	case TypeKindString:
		return "string"
	case TypeKindInterface:
		return "interface"
	case TypeKindFunc:
		return "func"
	case TypeKindChan:
		return "chan"
	case TypeKindTypeParam:
		return "type_param"
	default:
		return common.UnknownStr
	}
}

// IsReference returns true for kinds that embed a managed reference.
func (k TypeKind) IsReference() bool {
	switch k {
	case TypeKindPointer, TypeKindSlice, TypeKindMap, TypeKindString,
		TypeKindInterface, TypeKindFunc, TypeKindChan:
		return true
	default:
		return false
	}
}

// FieldVisibility tells whether a field's type is known to the viewer.
type FieldVisibility int

const (
	// FieldFullyVisible - the field's type is available (defining view).
	FieldFullyVisible FieldVisibility = iota
	// FieldErased - the field was replaced by a sentinel placeholder (consumer view).
	FieldErased
)

// String returns a human-readable visibility name.
func (v FieldVisibility) String() string {
	switch v {
	case FieldFullyVisible:
		return "visible"
	case FieldErased:
		return "erased"
	default:
		return common.UnknownStr
	}
}

// TypeInfo describes a type as seen from the analysed compilation.
type TypeInfo struct {
	ID         TypeID          // Unique identifier (empty for unnamed types like *T or [4]T)
	Kind       TypeKind        // Kind of type
	Primitive  PrimitiveKind   // For TypeKindPrimitive
	Elem       *TypeInfo       // For pointers, slices, arrays, chans and maps (value)
	Len        int64           // For arrays
	Fields     []FieldInfo     // For structs, declared fields in order
	TypeParams []TypeParamInfo // For generic definitions
	Origin     *TypeInfo       // For generic instances, the generic definition
	TypeArgs   []*TypeInfo     // For generic instances, the substituted arguments
	ParamIndex int             // For TypeKindTypeParam, the index in the owner's list
	Decl       Declarations    // Opt-in markers on the type declaration
	Members    *MemberSet      // Shadow-contract members (nil when never inspected)
}

// IsNamed returns true if this type has a name (TypeID is set).
func (t *TypeInfo) IsNamed() bool {
	return t.ID.Name != ""
}

// IsGenericDefinition returns true for an uninstantiated generic type.
func (t *TypeInfo) IsGenericDefinition() bool {
	return len(t.TypeParams) > 0 && t.Origin == nil
}

// IsInstance returns true for an instantiated generic type.
func (t *TypeInfo) IsInstance() bool {
	return t.Origin != nil
}

// Definition returns the generic definition of an instance, or t itself.
// Declarations and members always live on the definition.
func (t *TypeInfo) Definition() *TypeInfo {
	if t.Origin != nil {
		return t.Origin
	}

	return t
}

// LayoutFields returns the fields of the value layout. Instances share the
// fields of their definition, with type parameters left in place.
func (t *TypeInfo) LayoutFields() []FieldInfo {
	return t.Definition().Fields
}

// HasErasedFields returns true if any field is an erased placeholder.
func (t *TypeInfo) HasErasedFields() bool {
	for _, f := range t.LayoutFields() {
		if f.Visibility == FieldErased {
			return true
		}
	}

	return false
}

// Field returns the field with the given name, or nil.
func (t *TypeInfo) Field(name string) *FieldInfo {
	for i := range t.Fields {
		if t.Fields[i].Name == name {
			return &t.Fields[i]
		}
	}

	return nil
}

// String returns a Go-like spelling of the type.
func (t *TypeInfo) String() string {
	if t == nil {
		return "<nil>"
	}

	if t.IsNamed() {
		return t.ID.String()
	}

	switch t.Kind {
	case TypeKindPrimitive:
		return t.Primitive.String()
	case TypeKindArray:
		return "[" + strconv.FormatInt(t.Len, 10) + "]" + t.Elem.String()
	case TypeKindPointer:
		return "*" + t.Elem.String()
	case TypeKindSlice:
		return "[]" + t.Elem.String()
	case TypeKindMap:
		return "map[...]" + t.Elem.String()
	case TypeKindString:
		return "string"
	case TypeKindInterface:
		return "interface{...}"
	case TypeKindFunc:
		return "func(...)"
	case TypeKindChan:
		return "chan " + t.Elem.String()
	case TypeKindStruct:
		return "struct{...}"
	default:
		return common.UnknownStr
	}
}

// FieldInfo describes a struct field.
type FieldInfo struct {
	Name       string          // Go field name; "_erased<N>" for placeholders
	Type       *TypeInfo       // Field type; nil when erased
	Visibility FieldVisibility // Whether the type is available
	Index      int             // Field index in the struct
}

// TypeParamInfo describes a type parameter of a generic definition.
type TypeParamInfo struct {
	Name  string
	Index int
	// CanBeValueType is false when the constraint only admits reference kinds.
	CanBeValueType bool
}

// Declarations records the explicit opt-in markers on a type declaration.
type Declarations struct {
	// Generate requests generated marshalling.
	Generate bool
	// Blittable asserts that the type is blittable.
	Blittable bool
	// Native names the shadow type to use for this type.
	Native TypeID
}

// Any returns true if at least one marker is present.
func (d Declarations) Any() bool {
	return d.Generate || d.Blittable || !d.Native.IsZero()
}

// Merge adds the markers of other to d.
func (d Declarations) Merge(other Declarations) Declarations {
	d.Generate = d.Generate || other.Generate
	d.Blittable = d.Blittable || other.Blittable

	if !other.Native.IsZero() {
		d.Native = other.Native
	}

	return d
}

// TypeGraph holds all analyzed types and use sites.
type TypeGraph struct {
	// Types maps TypeID to TypeInfo for all named types.
	Types map[TypeID]*TypeInfo
	// Packages maps package paths to their package info.
	Packages map[string]*PackageInfo
	// Sites are the use sites discovered in the analysed packages.
	Sites []*UseSite
}

// NewTypeGraph creates a new empty TypeGraph.
func NewTypeGraph() *TypeGraph {
	return &TypeGraph{
		Types:    make(map[TypeID]*TypeInfo),
		Packages: make(map[string]*PackageInfo),
	}
}

// GetType returns the TypeInfo for a given TypeID, or nil if not found.
func (g *TypeGraph) GetType(id TypeID) *TypeInfo {
	return g.Types[id]
}

// AddType registers a named type.
func (g *TypeGraph) AddType(t *TypeInfo) {
	g.Types[t.ID] = t
}

// Declared returns every named type carrying at least one opt-in marker,
// sorted by TypeID for determinism.
func (g *TypeGraph) Declared() []*TypeInfo {
	var out []*TypeInfo

	for _, t := range g.Types {
		if t.Decl.Any() {
			out = append(out, t)
		}
	}

	SortTypes(out)

	return out
}

// PackageInfo holds information about a loaded package.
type PackageInfo struct {
	Path  string   // Import path
	Name  string   // Package name
	Types []TypeID // Named types defined in this package
}

// Identical reports whether a and b denote the same type.
func Identical(a, b *TypeInfo) bool {
	if a == b {
		return true
	}

	if a == nil || b == nil {
		return false
	}

	if a.Kind == TypeKindTypeParam || b.Kind == TypeKindTypeParam {
		return a.Kind == b.Kind && a.ParamIndex == b.ParamIndex
	}

	if a.IsNamed() || b.IsNamed() {
		return a.ID == b.ID
	}

	if a.Kind != b.Kind {
		return false
	}

	switch a.Kind {
	case TypeKindPrimitive:
		return a.Primitive == b.Primitive
	case TypeKindArray:
		return a.Len == b.Len && Identical(a.Elem, b.Elem)
	case TypeKindPointer, TypeKindSlice, TypeKindChan, TypeKindMap:
		return Identical(a.Elem, b.Elem)
	default:
		return a.Kind == b.Kind && a.Kind != TypeKindStruct
	}
}

// Instantiate builds the instance model of a generic definition.
// Field positions keep their type-parameter types; the arguments are
// recorded in TypeArgs so analyses can substitute them.
func Instantiate(origin *TypeInfo, args ...*TypeInfo) *TypeInfo {
	names := make([]string, len(args))
	for i, a := range args {
		names[i] = a.String()
	}

	return &TypeInfo{
		ID: TypeID{
			PkgPath: origin.ID.PkgPath,
			Name:    origin.ID.Name + "[" + strings.Join(names, ",") + "]",
		},
		Kind:     origin.Kind,
		Fields:   origin.Fields,
		Origin:   origin,
		TypeArgs: args,
	}
}

// ParamType returns the type-parameter placeholder for index i of owner.
func ParamType(name string, index int) *TypeInfo {
	return &TypeInfo{
		ID:         TypeID{Name: name},
		Kind:       TypeKindTypeParam,
		ParamIndex: index,
	}
}
