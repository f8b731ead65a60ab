package analyze

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypePath(t *testing.T) {
	p1 := NewTypePath("Packet")
	assert.Equal(t, "Packet", p1.String())

	p2 := p1.Field("Header")
	assert.Equal(t, "Packet.Header", p2.String())

	p3 := p2.Field("Flags")
	assert.Equal(t, "Packet.Header.Flags", p3.String())

	// Inline arrays decorate the last segment.
	p4 := p1.Field("Data").Array(4)
	assert.Equal(t, "Packet.Data[4]", p4.String())
	assert.Equal(t, "Packet.Data[4][2]", p4.Array(2).String())

	// Paths are persistent.
	assert.Equal(t, "Packet.Header", p2.String())
	assert.Equal(t, "Packet", p1.String())
}

func TestShortName(t *testing.T) {
	point := &TypeInfo{ID: TypeID{PkgPath: "example.com/interop", Name: "Point"}, Kind: TypeKindStruct}

	assert.Equal(t, "Point", ShortName(point))
	assert.Equal(t, "[4]int32", ShortName(ArrayOf(Primitive(PrimitiveInt32), 4)))
	assert.Equal(t, "*example.com/interop.Point", ShortName(PointerTo(point)))
	assert.Equal(t, "<nil>", ShortName(nil))
}

func TestTypeInfo_String(t *testing.T) {
	u8, ok := Builtin("byte")
	assert.True(t, ok)

	str, ok := Builtin("string")
	assert.True(t, ok)

	_, ok = Builtin("complex256")
	assert.False(t, ok)

	assert.Equal(t, "uint8", u8.String())
	assert.Equal(t, "[]uint8", SliceOf(u8).String())
	assert.Equal(t, "string", str.String())
	assert.Equal(t, "rune", Primitive(PrimitiveRune).String())
	assert.Equal(t, "unsafe.Pointer", Primitive(PrimitiveUnsafePointer).String())
}

func TestSortTypes(t *testing.T) {
	mk := func(pkg, name string) *TypeInfo {
		return &TypeInfo{ID: TypeID{PkgPath: pkg, Name: name}}
	}

	types := []*TypeInfo{mk("b", "A"), mk("a", "Z"), mk("a", "B")}
	SortTypes(types)

	assert.Equal(t, "a.B", types[0].ID.String())
	assert.Equal(t, "a.Z", types[1].ID.String())
	assert.Equal(t, "b.A", types[2].ID.String())
}

func TestPrimitiveKind(t *testing.T) {
	assert.True(t, PrimitiveBool.IsBoolOrChar())
	assert.True(t, PrimitiveRune.IsBoolOrChar())
	assert.False(t, PrimitiveInt32.IsBoolOrChar())
	assert.True(t, PrimitiveFloat64.IsNumeric())
	assert.True(t, PrimitiveUintptr.IsAddress())
	assert.True(t, PrimitiveUnsafePointer.IsAddress())
	assert.False(t, PrimitiveBool.IsNumeric())
	assert.True(t, PrimitiveUint8.IsInteger())
	assert.True(t, PrimitiveUintptr.IsInteger())
	assert.False(t, PrimitiveFloat32.IsInteger())
	assert.False(t, PrimitiveComplex64.IsInteger())
	assert.False(t, PrimitiveRune.IsInteger())
}
