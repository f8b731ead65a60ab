package analyze

//go:generate go tool stringer -type=PrimitiveKind -linecomment -output=primitive_string.go

// PrimitiveKind enumerates the predeclared scalar types.
type PrimitiveKind int

const (
	PrimitiveInvalid       PrimitiveKind = iota // invalid
	PrimitiveInt                                // int
	PrimitiveInt8                               // int8
	PrimitiveInt16                              // int16
	PrimitiveInt32                              // int32
	PrimitiveInt64                              // int64
	PrimitiveUint                               // uint
	PrimitiveUint8                              // uint8
	PrimitiveUint16                             // uint16
	PrimitiveUint32                             // uint32
	PrimitiveUint64                             // uint64
	PrimitiveUintptr                            // uintptr
	PrimitiveFloat32                            // float32
	PrimitiveFloat64                            // float64
	PrimitiveComplex64                          // complex64
	PrimitiveComplex128                         // complex128
	PrimitiveUnsafePointer                      // unsafe.Pointer
	PrimitiveBool                               // bool
	PrimitiveRune                               // rune
)

// IsNumeric returns true for integer, float and complex kinds.
func (k PrimitiveKind) IsNumeric() bool {
	return k >= PrimitiveInt && k <= PrimitiveComplex128
}

// IsInteger returns true for signed and unsigned integer kinds, uintptr included.
func (k PrimitiveKind) IsInteger() bool {
	return k >= PrimitiveInt && k <= PrimitiveUintptr
}

// IsAddress returns true for uintptr and unsafe.Pointer.
func (k PrimitiveKind) IsAddress() bool {
	return k == PrimitiveUintptr || k == PrimitiveUnsafePointer
}

// IsBoolOrChar returns true for the kinds whose native representation
// differs from the Go one even though they hold no references.
func (k PrimitiveKind) IsBoolOrChar() bool {
	return k == PrimitiveBool || k == PrimitiveRune
}

var (
	primitives = func() map[string]*TypeInfo {
		m := make(map[string]*TypeInfo)
		for k := PrimitiveInt; k <= PrimitiveRune; k++ {
			m[k.String()] = &TypeInfo{Kind: TypeKindPrimitive, Primitive: k}
		}

		m["byte"] = m[PrimitiveUint8.String()]

		return m
	}()

	stringType = &TypeInfo{Kind: TypeKindString}
)

// Primitive returns the shared model of a primitive kind.
func Primitive(k PrimitiveKind) *TypeInfo {
	return primitives[k.String()]
}

// Builtin returns the shared model of a predeclared type by its Go spelling
// ("int32", "bool", "rune", "byte", "uintptr", "unsafe.Pointer", "string").
func Builtin(name string) (*TypeInfo, bool) {
	if name == "string" {
		return stringType, true
	}

	t, ok := primitives[name]

	return t, ok
}

// ArrayOf returns the model of [n]elem.
func ArrayOf(elem *TypeInfo, n int64) *TypeInfo {
	return &TypeInfo{Kind: TypeKindArray, Elem: elem, Len: n}
}

// PointerTo returns the model of *elem.
func PointerTo(elem *TypeInfo) *TypeInfo {
	return &TypeInfo{Kind: TypeKindPointer, Elem: elem}
}

// SliceOf returns the model of []elem.
func SliceOf(elem *TypeInfo) *TypeInfo {
	return &TypeInfo{Kind: TypeKindSlice, Elem: elem}
}
