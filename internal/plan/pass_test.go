package plan

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marshal-planner/internal/analyze"
	"marshal-planner/internal/declare"
	"marshal-planner/internal/diagnostic"
	"marshal-planner/internal/shape"
)

func run(t *testing.T, f *fixture, cfg Config) *Result {
	t.Helper()

	result, err := NewPass(f.g, cfg).Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)

	return result
}

func findDiag(list []diagnostic.Diagnostic, code, site string) *diagnostic.Diagnostic {
	for i := range list {
		if list[i].Code == code && list[i].Site == site {
			return &list[i]
		}
	}

	return nil
}

func diagFor(list []diagnostic.Diagnostic, code, subject string) *diagnostic.Diagnostic {
	for i := range list {
		if list[i].Code == code && list[i].Subject == subject {
			return &list[i]
		}
	}

	return nil
}

func countCode(list []diagnostic.Diagnostic, code string) int {
	n := 0

	for _, d := range list {
		if d.Code == code {
			n++
		}
	}

	return n
}

func TestPass_DefinitionSitePlans(t *testing.T) {
	f := interopGraph()
	result := run(t, f, DefaultConfig())

	point := result.Plan(subject("Point"), "")
	require.NotNil(t, point)
	assert.True(t, point.Valid)
	assert.Equal(t, declare.StrategyBlittable, point.Strategy)
	assert.Equal(t, declare.SourceTypeBlittable, point.Source)
	assert.True(t, point.ManagedToNative)
	assert.True(t, point.NativeToManaged)
	assert.False(t, point.ReleaseRequired)
	assert.Same(t, f.get("Point"), point.Native)
	assert.Equal(t, BufferNone, point.Buffer.Kind)
	assert.False(t, point.Pinning.Eligible)

	person := result.Plan(subject("Person"), "")
	require.NotNil(t, person)
	assert.True(t, person.Valid)
	assert.Equal(t, declare.StrategyNativeShadow, person.Strategy)
	assert.Equal(t, declare.SourceTypeNative, person.Source)
	assert.True(t, person.ReleaseRequired)
	assert.Same(t, f.get("PersonNative"), person.Native)
	assert.Same(t, f.get("PersonNative"), person.Shadow)
	assert.False(t, person.UnwrapsValue)

	box := result.Plan(subject("Box"), "")
	require.NotNil(t, box)
	assert.True(t, box.Valid, spew.Sdump(result.Diagnostics))

	// Only declared types get a definition-site plan.
	assert.Nil(t, result.Plan("example.com/other.Handle", ""))
	assert.Nil(t, result.Plan(subject("PersonNative"), ""))
}

func TestPass_ToManagedOnly(t *testing.T) {
	f := interopGraph()
	readOnly := f.get("ReadOnly")
	f.site("interop.Read#ret", readOnly, analyze.DirectionReturn, analyze.ContextForward)
	f.site("interop.Write#p", readOnly, analyze.DirectionIn, analyze.ContextForward)

	result := run(t, f, DefaultConfig())

	def := result.Plan(subject("ReadOnly"), "")
	require.NotNil(t, def)
	assert.True(t, def.Valid)
	assert.False(t, def.ManagedToNative)
	assert.True(t, def.NativeToManaged)

	// The downgrade is reported once for the type, not once per item.
	assert.Equal(t, 1, countCode(result.Diagnostics.Infos, "direction_unsupported"))

	read := result.Plan(subject("ReadOnly"), "interop.Read#ret")
	require.NotNil(t, read)
	assert.True(t, read.Valid)

	write := result.Plan(subject("ReadOnly"), "interop.Write#p")
	require.NotNil(t, write)
	assert.False(t, write.Valid)

	d := findDiag(result.Diagnostics.Errors, CodeUnsupportedDirection, "interop.Write#p")
	require.NotNil(t, d, result.Diagnostics.String())
	assert.Equal(t, diagnostic.ClassFatalUse, d.Class)
}

func TestPass_ValueProjection(t *testing.T) {
	f := interopGraph()
	result := run(t, f, DefaultConfig())

	money := result.Plan(subject("Money"), "")
	require.NotNil(t, money)
	assert.True(t, money.Valid)
	assert.True(t, money.UnwrapsValue)
	assert.Same(t, prim("int64"), money.Native)
	assert.Same(t, f.get("MoneyNative"), money.Shadow)
	assert.True(t, money.NativeToManaged)

	counter := result.Plan(subject("Counter"), "")
	require.NotNil(t, counter)
	assert.True(t, counter.Valid)
	assert.True(t, counter.ManagedToNative)
	assert.False(t, counter.NativeToManaged)
	assert.True(t, result.Diagnostics.HasCode("value_not_settable"))
}

func TestPass_GenericInstances(t *testing.T) {
	f := interopGraph()
	box := f.get("Box")
	f.site("interop.Sum#b", analyze.Instantiate(box, prim("int32")), analyze.DirectionIn, analyze.ContextForward)
	f.site("interop.Flag#b", analyze.Instantiate(box, prim("bool")), analyze.DirectionIn, analyze.ContextForward)

	result := run(t, f, DefaultConfig())

	ok := result.Plan(subject("Box[int32]"), "interop.Sum#b")
	require.NotNil(t, ok)
	assert.True(t, ok.Valid)
	assert.Equal(t, declare.StrategyBlittable, ok.Strategy)

	bad := result.Plan(subject("Box[bool]"), "interop.Flag#b")
	require.NotNil(t, bad)
	assert.False(t, bad.Valid)

	d := findDiag(result.Diagnostics.Errors, CodeInstantiationNotBlittable, "interop.Flag#b")
	require.NotNil(t, d, result.Diagnostics.String())
	assert.Equal(t, diagnostic.ClassFatalUse, d.Class)
	assert.Contains(t, d.Message, "type argument bool for T is not blittable")

	// The definition itself stays usable.
	def := result.Plan(subject("Box"), "")
	require.NotNil(t, def)
	assert.True(t, def.Valid)
}

func TestPass_OverrideConflictsWithDeclaration(t *testing.T) {
	f := interopGraph()
	s := f.site("interop.Draw#p", f.get("Point"), analyze.DirectionIn, analyze.ContextForward)
	s.Override = f.get("PersonNative").ID

	result := run(t, f, DefaultConfig())

	d := findDiag(result.Diagnostics.Errors, declare.CodeOverrideConflict, "interop.Draw#p")
	require.NotNil(t, d, result.Diagnostics.String())
	assert.Equal(t, diagnostic.ClassFatalDefinition, d.Class)
	assert.False(t, result.Plan(subject("Point"), "interop.Draw#p").Valid)
	assert.True(t, result.Plan(subject("Point"), "").Valid)
}

func TestPass_ErasedWithoutDeclaration(t *testing.T) {
	f := interopGraph()
	f.site("interop.Close#h", f.get("Handle"), analyze.DirectionIn, analyze.ContextForward)

	result := run(t, f, DefaultConfig())

	p := result.Plan("example.com/other.Handle", "interop.Close#h")
	require.NotNil(t, p)
	assert.False(t, p.Valid)
	assert.Equal(t, declare.StrategyIneligible, p.Strategy)

	var found bool

	for _, d := range result.Diagnostics.Errors {
		if d.Code == CodeNotEligible && d.Subject == "example.com/other.Handle" {
			found = true

			assert.Equal(t, diagnostic.ClassFatalDefinition, d.Class)
		}
	}

	assert.True(t, found, result.Diagnostics.String())
}

func TestPass_DeclaredErasedIsTrusted(t *testing.T) {
	f := interopGraph()
	handle := f.get("Handle")
	handle.Decl.Blittable = true
	f.site("interop.Close#h", handle, analyze.DirectionIn, analyze.ContextForward)

	result := run(t, f, DefaultConfig())

	p := result.Plan("example.com/other.Handle", "interop.Close#h")
	require.NotNil(t, p)
	assert.True(t, p.Valid, result.Diagnostics.String())
	assert.Equal(t, declare.StrategyBlittable, p.Strategy)
}

func TestPass_Generated(t *testing.T) {
	f := interopGraph()
	result := run(t, f, DefaultConfig())

	label := result.Plan(subject("Label"), "")
	require.NotNil(t, label)
	assert.True(t, label.Valid, result.Diagnostics.String())
	assert.Equal(t, declare.StrategyNativeShadow, label.Strategy)
	assert.Equal(t, declare.SourceGenerated, label.Source)
	assert.True(t, label.Synthesized)
	assert.True(t, label.ReleaseRequired)
	require.NotNil(t, label.Shadow)
	assert.Equal(t, "LabelNative", label.Shadow.ID.Name)

	vec := result.Plan(subject("Vec"), "")
	require.NotNil(t, vec)
	assert.True(t, vec.Valid)
	assert.Equal(t, declare.StrategyBlittable, vec.Strategy)
	assert.Equal(t, declare.SourceGenerated, vec.Source)
}

func TestPass_GeneratedIndeterminate(t *testing.T) {
	f := interopGraph()
	f.get("Handle").Decl.Generate = true

	result := run(t, f, DefaultConfig())

	p := result.Plan("example.com/other.Handle", "")
	require.NotNil(t, p)
	assert.False(t, p.Valid)
	assert.True(t, result.Diagnostics.HasCode(declare.CodeIndeterminateLayout))
}

func TestPass_Pinning(t *testing.T) {
	f := newFixture()

	ticket := f.typ("Ticket", field("ID", prim("string")))
	ticketNative := f.shadow("TicketNative", ticket).ctor().toManaged().value(prim("int64"), true)
	ticketNative.pinnable(ticketNative.build()).declareNative()

	stamp := f.typ("Stamp", field("ID", prim("string")))
	stampNative := f.shadow("StampNative", stamp).ctor().toManaged().value(prim("int64"), true)
	stampNative.pinnable(stampNative.build())
	f.site("interop.Stamp#s", stamp, analyze.DirectionIn, analyze.ContextForward).Override = stampNative.build().ID

	coin := f.typ("Coin", field("ID", prim("string")))
	coinNative := f.shadow("CoinNative", coin).ctor().toManaged().value(prim("int64"), true).pinnable(prim("int64"))
	f.site("interop.Coin#c", coin, analyze.DirectionIn, analyze.ContextForward).Override = coinNative.build().ID

	result := run(t, f, DefaultConfig())

	// A declaration on the type pins the shadow itself before unwrapping.
	def := result.Plan(subject("Ticket"), "")
	require.NotNil(t, def)
	assert.True(t, def.Valid)
	assert.True(t, def.Pinning.Eligible)
	assert.Same(t, ticketNative.build(), def.Pinning.Element)

	// A use-site override needs the element to be the final representation.
	use := result.Plan(subject("Stamp"), "interop.Stamp#s")
	require.NotNil(t, use)
	assert.True(t, use.Valid)
	assert.Equal(t, declare.SourceUseSite, use.Source)
	assert.False(t, use.Pinning.Eligible)

	w := findDiag(result.Diagnostics.Warnings, CodePinningMismatch, "interop.Stamp#s")
	require.NotNil(t, w, result.Diagnostics.String())
	assert.Equal(t, diagnostic.ClassAdvisory, w.Class)

	matched := result.Plan(subject("Coin"), "interop.Coin#c")
	require.NotNil(t, matched)
	assert.True(t, matched.Pinning.Eligible)
	assert.Same(t, prim("int64"), matched.Pinning.Element)
}

func TestPass_StackBuffers(t *testing.T) {
	f := newFixture()

	blob := f.typ("Blob", field("Data", analyze.SliceOf(prim("byte"))))
	f.shadow("BlobNative", blob).ctor().bufferCtor().toManaged().stackBuffer(64, true).declareNative()

	chunk := f.typ("Chunk", field("Data", analyze.SliceOf(prim("byte"))))
	f.shadow("ChunkNative", chunk).ctor().bufferCtor().toManaged().stackBuffer(32, false).declareNative()

	f.site("interop.Send#b", blob, analyze.DirectionIn, analyze.ContextForward)
	f.site("interop.OnBlob#b", blob, analyze.DirectionOut, analyze.ContextReverse)
	f.site("interop.OnChunk#c", chunk, analyze.DirectionOut, analyze.ContextReverse)

	result := run(t, f, DefaultConfig())

	send := result.Plan(subject("Blob"), "interop.Send#b")
	require.NotNil(t, send)
	assert.True(t, send.Valid, result.Diagnostics.String())
	assert.Equal(t, BufferStrategy{Kind: BufferRequiredStack, Size: 64}, send.Buffer)

	callback := result.Plan(subject("Blob"), "interop.OnBlob#b")
	require.NotNil(t, callback)
	assert.False(t, callback.Valid)

	d := findDiag(result.Diagnostics.Errors, CodeStackBufferUnavailable, "interop.OnBlob#b")
	require.NotNil(t, d, result.Diagnostics.String())
	assert.Equal(t, diagnostic.ClassFatalUse, d.Class)

	optional := result.Plan(subject("Chunk"), "interop.OnChunk#c")
	require.NotNil(t, optional)
	assert.True(t, optional.Valid)
	assert.Equal(t, BufferStrategy{Kind: BufferOptionalStack, Size: 32}, optional.Buffer)
}

func TestPass_IntrinsicTypes(t *testing.T) {
	f := newFixture()
	f.site("interop.Sum#v", analyze.ArrayOf(prim("int32"), 4), analyze.DirectionIn, analyze.ContextForward)
	f.site("interop.Sum#s", analyze.SliceOf(prim("int32")), analyze.DirectionIn, analyze.ContextForward)

	result := run(t, f, DefaultConfig())

	arr := result.Plan("[4]int32", "interop.Sum#v")
	require.NotNil(t, arr)
	assert.True(t, arr.Valid)
	assert.Equal(t, declare.SourceIntrinsic, arr.Source)

	slice := result.Plan("[]int32", "interop.Sum#s")
	require.NotNil(t, slice)
	assert.False(t, slice.Valid)
	assert.Equal(t, declare.StrategyIneligible, slice.Strategy)
}

func TestPass_OverrideOnUnnamedTypes(t *testing.T) {
	// ArrNative only converts from [4]int32; the [8]float32 site must not
	// borrow that descriptor.
	for _, workers := range []int{1, 8} {
		for _, reversed := range []bool{false, true} {
			t.Run(fmt.Sprintf("workers=%d reversed=%v", workers, reversed), func(t *testing.T) {
				f := newFixture()
				ints := analyze.ArrayOf(prim("int32"), 4)
				floats := analyze.ArrayOf(prim("float32"), 8)
				shadow := f.shadow("ArrNative", ints).ctor().build()

				add := func(name string, typ *analyze.TypeInfo) {
					f.site(name, typ, analyze.DirectionIn, analyze.ContextForward).Override = shadow.ID
				}

				if reversed {
					add("interop.B#y", floats)
					add("interop.A#x", ints)
				} else {
					add("interop.A#x", ints)
					add("interop.B#y", floats)
				}

				result := run(t, f, Config{Workers: workers})

				a := result.Plan("[4]int32", "interop.A#x")
				require.NotNil(t, a)
				assert.True(t, a.Valid, result.Diagnostics.String())
				assert.True(t, a.ManagedToNative)

				b := result.Plan("[8]float32", "interop.B#y")
				require.NotNil(t, b)
				assert.False(t, b.Valid)
				assert.False(t, b.ManagedToNative)

				d := diagFor(result.Diagnostics.Errors, shape.CodeNoConversionMethod, "[8]float32")
				require.NotNil(t, d, result.Diagnostics.String())
				assert.Equal(t, diagnostic.ClassFatalDefinition, d.Class)
			})
		}
	}
}

func TestPass_GeneratedFields(t *testing.T) {
	f := newFixture()

	inner := f.typ("Inner", field("Data", analyze.SliceOf(prim("byte"))))
	f.shadow("InnerNative", inner).ctor().bufferCtor().toManaged().stackBuffer(64, true).declareNative()

	loose := f.typ("Loose", field("S", prim("string")))

	reader := f.typ("Reader", field("Name", prim("string")))
	f.shadow("ReaderNative", reader).toManaged().declareNative()

	person := f.typ("Person", field("Name", prim("string")), field("Age", prim("int32")))
	f.shadow("PersonNative", person).ctor().toManaged().freeNative().declareNative()

	point := f.typ("Point", field("X", prim("int32")), field("Y", prim("int32")))
	point.Decl.Blittable = true

	meta := &analyze.TypeInfo{Kind: analyze.TypeKindStruct, Fields: []analyze.FieldInfo{field("R", reader)}}

	generate := func(name string, fields ...analyze.FieldInfo) {
		f.typ(name, append(fields, field("N", prim("int32")))...).Decl.Generate = true
	}

	generate("Staged", field("In", inner))
	generate("Loosely", field("L", loose))
	generate("Partial", field("R", analyze.ArrayOf(reader, 2)))
	generate("Tagged", field("Meta", meta))
	generate("Chained", field("S", f.get("Staged")))
	generate("Fine", field("P", person), field("At", point), field("Name", prim("string")))

	f.site("interop.Stage#s", f.get("Staged"), analyze.DirectionIn, analyze.ContextForward)

	result := run(t, f, DefaultConfig())

	in := result.Plan(subject("Inner"), "")
	require.NotNil(t, in)
	assert.True(t, in.Valid, result.Diagnostics.String())
	assert.Equal(t, BufferRequiredStack, in.Buffer.Kind)

	tests := []struct {
		name    string
		path    string
		message string
	}{
		{name: "Staged", path: "Staged.In", message: "stack buffer"},
		{name: "Loosely", path: "Loosely.L", message: "not eligible"},
		{name: "Partial", path: "Partial.R[2]", message: "managed-to-native"},
		{name: "Tagged", path: "Tagged.Meta.R", message: "managed-to-native"},
		{name: "Chained", path: "Chained.S", message: "Staged.In"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := result.Plan(subject(tt.name), "")
			require.NotNil(t, p)
			assert.True(t, p.Synthesized)
			assert.False(t, p.Valid)

			d := diagFor(result.Diagnostics.Errors, CodeFieldNotMarshallable, subject(tt.name))
			require.NotNil(t, d, result.Diagnostics.String())
			assert.Equal(t, diagnostic.ClassFatalDefinition, d.Class)
			assert.Contains(t, d.Message, tt.path)
			assert.Contains(t, d.Message, tt.message)
		})
	}

	site := result.Plan(subject("Staged"), "interop.Stage#s")
	require.NotNil(t, site)
	assert.False(t, site.Valid)

	fine := result.Plan(subject("Fine"), "")
	require.NotNil(t, fine)
	assert.True(t, fine.Valid, result.Diagnostics.String())
	assert.True(t, fine.Synthesized)
}

func TestPass_ErrorIsolation(t *testing.T) {
	f := interopGraph()
	f.site("interop.Close#h", f.get("Handle"), analyze.DirectionIn, analyze.ContextForward)
	f.site("interop.Move#p", f.get("Point"), analyze.DirectionInOut, analyze.ContextForward)

	result := run(t, f, DefaultConfig())

	assert.True(t, result.Diagnostics.HasErrors())
	assert.True(t, result.Plan(subject("Point"), "interop.Move#p").Valid)
	assert.False(t, result.Plan("example.com/other.Handle", "interop.Close#h").Valid)

	for _, p := range result.Valid() {
		assert.True(t, p.Valid)
	}
}

func TestPass_StrictMode(t *testing.T) {
	f := interopGraph()
	f.site("interop.Close#h", f.get("Handle"), analyze.DirectionIn, analyze.ContextForward)

	cfg := DefaultConfig()
	cfg.Strict = true

	result, err := NewPass(f.g, cfg).Run(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, ErrStrict)
	require.NotNil(t, result)
	assert.Contains(t, err.Error(), CodeNotEligible)

	// Without errors strict mode succeeds.
	clean := interopGraph()
	_, err = NewPass(clean.g, cfg).Run(context.Background())
	require.NoError(t, err)
}

func TestPass_Cancelled(t *testing.T) {
	f := interopGraph()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := NewPass(f.g, DefaultConfig()).Run(ctx)
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
}

func TestPass_Deterministic(t *testing.T) {
	build := func() *fixture {
		f := interopGraph()
		box := f.get("Box")

		for i := range 40 {
			f.site(fmt.Sprintf("interop.Fn%02d#p", i), f.get("Point"), analyze.DirectionIn, analyze.ContextForward)
			f.site(fmt.Sprintf("interop.Fn%02d#r", i), f.get("ReadOnly"), analyze.DirectionIn, analyze.ContextForward)
			f.site(fmt.Sprintf("interop.Fn%02d#b", i), analyze.Instantiate(box, prim("bool")), analyze.DirectionIn, analyze.ContextForward)
		}

		return f
	}

	serial := run(t, build(), Config{Workers: 1})
	parallel := run(t, build(), Config{Workers: 16})

	a, err := ExportYAML(serial)
	require.NoError(t, err)

	b, err := ExportYAML(parallel)
	require.NoError(t, err)

	assert.Equal(t, string(a), string(b))
	assert.Len(t, parallel.Plans, len(build().g.Declared())+120)
}

func TestPass_ShapeValidatedOnce(t *testing.T) {
	f := interopGraph()
	person := f.get("Person")

	for i := range 10 {
		f.site(fmt.Sprintf("interop.Greet%d#p", i), person, analyze.DirectionIn, analyze.ContextForward)
	}

	p := NewPass(f.g, Config{Workers: 4})
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	n := 0

	p.shapes.Range(func(_, _ any) bool {
		n++
		return true
	})

	// One descriptor per declared shadow type.
	assert.Equal(t, 5, n)
}

func TestRun(t *testing.T) {
	f := interopGraph()

	result, err := Run(context.Background(), f.g, DefaultConfig())
	require.NoError(t, err)
	assert.NotEmpty(t, result.Plans)
	assert.False(t, errors.Is(err, ErrStrict))
}
