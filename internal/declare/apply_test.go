package declare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marshal-planner/internal/analyze"
)

func TestApply_Types(t *testing.T) {
	g := testGraph()

	f := &File{
		Version: CurrentVersion,
		Types: []TypeDecl{
			{Type: "interop.Point", Blittable: true},
			{Type: "interop.Person", Native: "interop.PersonNative"},
			{Type: "Box", Blittable: true},
			{Type: "other.Handle", Generate: true},
		},
	}

	diags := Apply(f, g)
	require.True(t, diags.IsValid(), diags.String())

	assert.True(t, typeOf(g, "Point").Decl.Blittable)
	assert.Equal(t, typeOf(g, "PersonNative").ID, typeOf(g, "Person").Decl.Native)
	assert.True(t, typeOf(g, "Box").Decl.Blittable)
	assert.True(t, typeOf(g, "Handle").Decl.Generate)

	declared := g.Declared()
	require.Len(t, declared, 4)
	assert.Equal(t, "Box", declared[0].ID.Name)
}

func TestApply_MergesWithDirectives(t *testing.T) {
	g := testGraph()
	typeOf(g, "Person").Decl.Generate = true

	diags := Apply(&File{
		Version: CurrentVersion,
		Types:   []TypeDecl{{Type: "Person", Native: "PersonNative"}},
	}, g)

	require.True(t, diags.IsValid())
	assert.True(t, typeOf(g, "Person").Decl.Generate)
	assert.False(t, typeOf(g, "Person").Decl.Native.IsZero())
}

func TestApply_TypeErrors(t *testing.T) {
	g := testGraph()

	diags := Apply(&File{
		Version: CurrentVersion,
		Types: []TypeDecl{
			{Type: "interop.Persn", Blittable: true},
			{Type: "Box[int32]", Blittable: true},
			{Type: "[4]int32", Blittable: true},
			{Type: "Person", Native: "Nowhere"},
		},
	}, g)

	assert.True(t, diags.HasCode(CodeUnknownType))
	assert.True(t, diags.HasCode(CodeDeclarationOnInstance))
	assert.True(t, diags.HasCode(CodeDeclarationOnUnnamed))
	assert.True(t, typeOf(g, "Person").Decl.Native.IsZero())

	require.NotEmpty(t, diags.Errors)
	assert.Equal(t, []string{"example.com/interop.Person"}, diags.Errors[0].Suggestions)
}

func TestApply_Sites(t *testing.T) {
	g := testGraph()
	g.Sites = append(g.Sites, &analyze.UseSite{
		Name: "interop.Draw#p",
		Type: typeOf(g, "Point"),
	})

	off := false

	diags := Apply(&File{
		Version: CurrentVersion,
		Sites: []SiteDecl{
			{Name: "interop.Draw#p", Type: "Point", Direction: "inout"},
			{Name: "interop.OnPerson#p", Type: "Person", Using: "PersonNative", Context: "reverse"},
			{Name: "interop.Fill#buf", Type: "Box[int32]", Direction: "out", StackFrame: &off},
		},
	}, g)

	require.True(t, diags.IsValid(), diags.String())
	assert.True(t, diags.HasCode(CodeSiteReplaced))
	require.Len(t, g.Sites, 3)

	draw := g.Sites[0]
	assert.Equal(t, analyze.DirectionInOut, draw.Direction)
	assert.True(t, draw.StackFrame)

	cb := g.Sites[1]
	assert.Equal(t, analyze.ContextReverse, cb.Context)
	assert.Equal(t, typeOf(g, "PersonNative").ID, cb.Override)
	assert.False(t, cb.StackFrame)

	fill := g.Sites[2]
	assert.True(t, fill.Type.IsInstance())
	assert.False(t, fill.StackFrame)
}

func TestApply_UnsupportedVersionStops(t *testing.T) {
	g := testGraph()

	diags := Apply(&File{Version: "9", Types: []TypeDecl{{Type: "Point", Blittable: true}}}, g)

	assert.True(t, diags.HasCode(CodeUnsupportedVersion))
	assert.False(t, typeOf(g, "Point").Decl.Blittable)
}
