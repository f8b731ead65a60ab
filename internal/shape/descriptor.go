package shape

import (
	"marshal-planner/internal/analyze"
	"marshal-planner/internal/blittable"
)

// ValueAccessor describes the Value / SetValue pair of a shadow type.
type ValueAccessor struct {
	Type     *analyze.TypeInfo
	Gettable bool
	Settable bool
	// Verdict is the classification of Type, shared with the verdict cache.
	Verdict blittable.Verdict
}

// Descriptor is the capability record of a shadow type, produced by one
// validation pass. Downstream components only branch on these flags.
type Descriptor struct {
	Shadow  *analyze.TypeInfo
	Managed *analyze.TypeInfo

	HasManagedCtor bool // New<Shadow>(managed)
	HasBufferCtor  bool // New<Shadow>(managed, []byte)
	HasToManaged   bool
	HasFreeNative  bool

	Value *ValueAccessor

	// Pinnable is the pointee type of GetPinnableReference, nil when absent.
	Pinnable *analyze.TypeInfo

	BufferSize          int64
	RequiresStackBuffer bool

	// ManagedToNative and NativeToManaged are the supported directions after
	// every downgrade has been applied.
	ManagedToNative bool
	NativeToManaged bool

	// ShadowVerdict is the classification of the shadow type itself; only
	// consulted when no Value accessor projects the representation.
	ShadowVerdict blittable.Verdict

	// Dependencies lists the types whose verdicts this descriptor relies on.
	Dependencies []analyze.TypeID

	// Synthesized is true for shadow types the generator will emit.
	Synthesized bool
}

// UnwrapsValue returns true if the native representation is Value's type.
func (d *Descriptor) UnwrapsValue() bool {
	return d.Value != nil && d.Value.Gettable
}

// Representation returns the final native representation type.
func (d *Descriptor) Representation() *analyze.TypeInfo {
	if d.UnwrapsValue() {
		return d.Value.Type
	}

	return d.Shadow
}

func (d *Descriptor) dependOn(t *analyze.TypeInfo) {
	if t != nil && t.IsNamed() {
		d.Dependencies = append(d.Dependencies, t.ID)
	}
}

// Synthesize describes the shadow type generated for a managed type that
// requested generated marshalling and turned out not to be blittable. Its
// layout is decided by the generator; its contract is fixed: both
// constructor and ToManaged, plus FreeNative for owned native memory.
func Synthesize(managed *analyze.TypeInfo) *Descriptor {
	shadow := &analyze.TypeInfo{
		ID: analyze.TypeID{
			PkgPath: managed.ID.PkgPath,
			Name:    managed.ID.Name + "Native",
		},
		Kind: analyze.TypeKindStruct,
	}

	return &Descriptor{
		Shadow:          shadow,
		Managed:         managed,
		HasManagedCtor:  true,
		HasToManaged:    true,
		HasFreeNative:   true,
		ManagedToNative: true,
		NativeToManaged: true,
		ShadowVerdict:   blittable.Verdict{Kind: blittable.KindBlittable, Declared: true},
		Synthesized:     true,
	}
}
