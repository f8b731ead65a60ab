package shape

import (
	"errors"
	"fmt"

	"marshal-planner/internal/analyze"
	"marshal-planner/internal/blittable"
	"marshal-planner/internal/diagnostic"
)

// Diagnostic codes emitted by the validator.
const (
	CodeNoConversionMethod     = "no_conversion_method"
	CodeDirectionUnsupported   = "direction_unsupported"
	CodeMemberSignature        = "member_signature"
	CodeFreeNativeArguments    = "free_native_arguments"
	CodeValueByRef             = "value_by_ref"
	CodeValueNotGettable       = "value_not_gettable"
	CodeValueNotBlittable      = "value_not_blittable"
	CodeValueNotSettable       = "value_not_settable"
	CodeNativeNotBlittable     = "native_not_blittable"
	CodeBufferSizeWithoutCtor  = "buffer_size_without_constructor"
	CodeBufferCtorWithoutSize  = "buffer_constructor_without_size"
	CodeStackBufferWithoutSize = "stack_buffer_without_size"
	CodeRecursiveLayout        = "recursive_layout"
	CodeShadowTypeNotFound     = "shadow_type_not_found"
)

// Validator checks shadow types against the conversion contract.
type Validator struct {
	classifier blittable.Classifier
}

// NewValidator creates a Validator that delegates Value and shadow
// classification to classifier.
func NewValidator(classifier blittable.Classifier) *Validator {
	return &Validator{classifier: classifier}
}

// Validate inspects shadow as the native stand-in for managed and returns its
// capability record. Fatal shape errors are reported as fatal-definition
// diagnostics; the descriptor is still returned for reporting.
func (v *Validator) Validate(shadow, managed *analyze.TypeInfo) (*Descriptor, diagnostic.Diagnostics) {
	var diags diagnostic.Diagnostics

	subject := managed.String()
	d := &Descriptor{Shadow: shadow, Managed: managed}

	if shadow == nil {
		diags.AddError(diagnostic.ClassFatalDefinition, CodeShadowTypeNotFound,
			"shadow type is not available", subject, "")

		return d, diags
	}

	members := shadow.Definition().Members
	shadowName := analyze.ShortName(shadow)

	v.checkConversions(d, members, shadowName, subject, &diags)
	v.checkFreeNative(d, members, shadowName, subject, &diags)
	v.checkValue(d, members, shadowName, subject, &diags)
	v.checkPinnable(d, members, shadowName, subject, &diags)
	v.checkBuffers(d, members, shadowName, subject, &diags)

	// A shadow with a Value accessor is represented by it, valid or not.
	if members.Property(analyze.MemberValue) == nil {
		v.checkShadowLayout(d, shadowName, subject, &diags)
	}

	return d, diags
}

func (v *Validator) checkConversions(
	d *Descriptor,
	members *analyze.MemberSet,
	shadowName, subject string,
	diags *diagnostic.Diagnostics,
) {
	for _, c := range members.ConstructorsWithArity(1) {
		if analyze.Identical(c.Params[0], d.Managed) {
			d.HasManagedCtor = true
		}
	}

	for _, c := range members.ConstructorsWithArity(2) {
		if analyze.Identical(c.Params[0], d.Managed) && isByteSlice(c.Params[1]) {
			d.HasBufferCtor = true
		}
	}

	if m := members.Method(analyze.MemberToManaged); m != nil {
		if len(m.Params) == 0 && len(m.Results) == 1 && analyze.Identical(m.Results[0], d.Managed) {
			d.HasToManaged = true
		} else {
			diags.AddError(diagnostic.ClassFatalDefinition, CodeMemberSignature,
				fmt.Sprintf("%s.%s must take no arguments and return %s",
					shadowName, analyze.MemberToManaged, analyze.ShortName(d.Managed)),
				subject, "")
		}
	}

	if !d.HasManagedCtor && !d.HasToManaged {
		diags.AddError(diagnostic.ClassFatalDefinition, CodeNoConversionMethod,
			fmt.Sprintf("%s has no usable conversion method: declare %s%s(%s) or %s.%s()",
				shadowName, analyze.MemberConstructorPrefix, shadowName, analyze.ShortName(d.Managed),
				shadowName, analyze.MemberToManaged),
			subject, "")

		return
	}

	d.ManagedToNative = d.HasManagedCtor
	d.NativeToManaged = d.HasToManaged

	if !d.HasManagedCtor {
		diags.AddInfo(diagnostic.ClassDowngrade, CodeDirectionUnsupported,
			fmt.Sprintf("%s has no %s%s(%s) constructor: managed-to-native is unsupported",
				shadowName, analyze.MemberConstructorPrefix, shadowName, analyze.ShortName(d.Managed)),
			subject, "")
	}

	if !d.HasToManaged {
		diags.AddInfo(diagnostic.ClassDowngrade, CodeDirectionUnsupported,
			fmt.Sprintf("%s has no %s method: native-to-managed is unsupported",
				shadowName, analyze.MemberToManaged),
			subject, "")
	}
}

func (v *Validator) checkFreeNative(
	d *Descriptor,
	members *analyze.MemberSet,
	shadowName, subject string,
	diags *diagnostic.Diagnostics,
) {
	m := members.Method(analyze.MemberFreeNative)
	if m == nil {
		return
	}

	if len(m.Params) != 0 {
		diags.AddError(diagnostic.ClassFatalDefinition, CodeFreeNativeArguments,
			fmt.Sprintf("%s.%s must take no arguments", shadowName, analyze.MemberFreeNative),
			subject, "")

		return
	}

	d.HasFreeNative = true
}

func (v *Validator) checkValue(
	d *Descriptor,
	members *analyze.MemberSet,
	shadowName, subject string,
	diags *diagnostic.Diagnostics,
) {
	prop := members.Property(analyze.MemberValue)
	if prop == nil {
		return
	}

	if prop.ByRef {
		diags.AddError(diagnostic.ClassFatalDefinition, CodeValueByRef,
			fmt.Sprintf("%s.%s returns a pointer into the shadow; expose %s instead",
				shadowName, analyze.MemberValue, analyze.MemberGetPinnableReference),
			subject, "")

		return
	}

	if !prop.Getter {
		diags.AddError(diagnostic.ClassFatalDefinition, CodeValueNotGettable,
			fmt.Sprintf("%s.%s has no getter", shadowName, analyze.MemberValue),
			subject, "")

		return
	}

	acc := &ValueAccessor{Type: prop.Type, Gettable: prop.Getter, Settable: prop.Setter}

	verdict, err := v.classifier.Classify(prop.Type, nil)
	if err != nil {
		addLayoutError(diags, err, subject)
		return
	}

	acc.Verdict = verdict
	d.dependOn(prop.Type)

	if !verdict.IsBlittable() {
		diags.AddError(diagnostic.ClassFatalDefinition, CodeValueNotBlittable,
			fmt.Sprintf("%s.%s type %s is not blittable: %s",
				shadowName, analyze.MemberValue, analyze.ShortName(prop.Type), verdict.Reason()),
			subject, "")

		return
	}

	d.Value = acc

	if !prop.Setter && d.NativeToManaged {
		// The produced value cannot be written back through the accessor.
		d.NativeToManaged = false
		diags.AddInfo(diagnostic.ClassDowngrade, CodeValueNotSettable,
			fmt.Sprintf("%s.%s has no %s: native-to-managed is unsupported",
				shadowName, analyze.MemberValue, analyze.MemberSetValue),
			subject, "")
	}
}

func (v *Validator) checkPinnable(
	d *Descriptor,
	members *analyze.MemberSet,
	shadowName, subject string,
	diags *diagnostic.Diagnostics,
) {
	m := members.Method(analyze.MemberGetPinnableReference)
	if m == nil {
		return
	}

	if len(m.Params) != 0 || len(m.Results) != 1 || m.Results[0].Kind != analyze.TypeKindPointer {
		diags.AddError(diagnostic.ClassFatalDefinition, CodeMemberSignature,
			fmt.Sprintf("%s.%s must take no arguments and return a pointer",
				shadowName, analyze.MemberGetPinnableReference),
			subject, "")

		return
	}

	d.Pinnable = m.Results[0].Elem
}

func (v *Validator) checkBuffers(
	d *Descriptor,
	members *analyze.MemberSet,
	shadowName, subject string,
	diags *diagnostic.Diagnostics,
) {
	size := members.Constant(analyze.MemberBufferSize)
	stack := members.Constant(analyze.MemberRequiresStackBuffer)

	if size != nil {
		if size.Type == nil || size.Type.Kind != analyze.TypeKindPrimitive || !size.Type.Primitive.IsInteger() {
			diags.AddError(diagnostic.ClassFatalDefinition, CodeMemberSignature,
				fmt.Sprintf("%s%s must be an integer constant", shadowName, analyze.MemberBufferSize),
				subject, "")

			return
		}

		d.BufferSize = size.Int
	}

	if stack != nil {
		if stack.Type == nil || stack.Type.Kind != analyze.TypeKindPrimitive || stack.Type.Primitive != analyze.PrimitiveBool {
			diags.AddError(diagnostic.ClassFatalDefinition, CodeMemberSignature,
				fmt.Sprintf("%s%s must be a bool constant", shadowName, analyze.MemberRequiresStackBuffer),
				subject, "")

			return
		}

		d.RequiresStackBuffer = stack.Bool
	}

	switch {
	case size != nil && !d.HasBufferCtor:
		diags.AddError(diagnostic.ClassFatalDefinition, CodeBufferSizeWithoutCtor,
			fmt.Sprintf("%s%s is declared without a %s%s%s(%s, []byte) constructor",
				shadowName, analyze.MemberBufferSize, analyze.MemberConstructorPrefix, shadowName,
				analyze.MemberBufferConstructorSuffix, analyze.ShortName(d.Managed)),
			subject, "")

	case d.RequiresStackBuffer && d.BufferSize <= 0:
		diags.AddError(diagnostic.ClassFatalDefinition, CodeStackBufferWithoutSize,
			fmt.Sprintf("%s%s requires %s%s > 0",
				shadowName, analyze.MemberRequiresStackBuffer, shadowName, analyze.MemberBufferSize),
			subject, "")

	case d.HasBufferCtor && d.BufferSize <= 0:
		diags.AddError(diagnostic.ClassFatalDefinition, CodeBufferCtorWithoutSize,
			fmt.Sprintf("the buffer constructor of %s requires %s%s > 0",
				shadowName, shadowName, analyze.MemberBufferSize),
			subject, "")
	}
}

// checkShadowLayout requires a shadow without Value to be blittable itself.
func (v *Validator) checkShadowLayout(
	d *Descriptor,
	shadowName, subject string,
	diags *diagnostic.Diagnostics,
) {
	verdict, err := v.classifier.Classify(d.Shadow, nil)
	if err != nil {
		addLayoutError(diags, err, subject)
		return
	}

	d.ShadowVerdict = verdict
	d.dependOn(d.Shadow)

	if !verdict.IsBlittable() {
		diags.AddError(diagnostic.ClassFatalDefinition, CodeNativeNotBlittable,
			fmt.Sprintf("shadow type %s is not blittable: %s", shadowName, verdict.Reason()),
			subject, "")
	}
}

func addLayoutError(diags *diagnostic.Diagnostics, err error, subject string) {
	code := CodeMemberSignature
	if errors.Is(err, blittable.ErrRecursiveLayout) {
		code = CodeRecursiveLayout
	}

	diags.AddError(diagnostic.ClassFatalDefinition, code, err.Error(), subject, "")
}

func isByteSlice(t *analyze.TypeInfo) bool {
	return t != nil && t.Kind == analyze.TypeKindSlice && t.Elem != nil &&
		t.Elem.Kind == analyze.TypeKindPrimitive && t.Elem.Primitive == analyze.PrimitiveUint8
}
