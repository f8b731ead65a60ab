package analyze

import (
	"strings"

	"marshal-planner/internal/common"
)

// Direction is the data flow of a value at a use site, seen from the caller.
type Direction int

const (
	DirectionIn Direction = iota
	DirectionOut
	DirectionInOut
	DirectionReturn
)

// String returns a human-readable direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "in"
	case DirectionOut:
		return "out"
	case DirectionInOut:
		return "inout"
	case DirectionReturn:
		return "return"
	default:
		return common.UnknownStr
	}
}

// ParseDirection parses a direction name. The empty string means "in".
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "in":
		return DirectionIn, true
	case "out":
		return DirectionOut, true
	case "inout", "in_out", "ref":
		return DirectionInOut, true
	case "return", "ret":
		return DirectionReturn, true
	default:
		return DirectionIn, false
	}
}

// CallContext tells which side initiates the call.
type CallContext int

const (
	// ContextForward - managed code calls into native code.
	ContextForward CallContext = iota
	// ContextReverse - native code calls back into managed code.
	ContextReverse
)

// String returns a human-readable context name.
func (c CallContext) String() string {
	switch c {
	case ContextForward:
		return "forward"
	case ContextReverse:
		return "reverse"
	default:
		return common.UnknownStr
	}
}

// ParseCallContext parses a call context name. The empty string means "forward".
func ParseCallContext(s string) (CallContext, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "forward":
		return ContextForward, true
	case "reverse", "callback":
		return ContextReverse, true
	default:
		return ContextForward, false
	}
}

// UseSite is a single place where a managed type crosses the boundary
// (a parameter or result of an extern function).
type UseSite struct {
	// Name identifies the site, e.g. "interop.Draw#p".
	Name string
	// Type is the managed type passed at this site.
	Type *TypeInfo
	// Override names a shadow type applied at this site only.
	Override TypeID
	// Direction of the value.
	Direction Direction
	// Context of the call.
	Context CallContext
	// StackFrame is declared by the code generator: true when it controls a
	// native stack frame that can host a caller-allocated buffer.
	StackFrame bool
}

// NeedsManagedToNative returns true if the site converts managed values to native.
func (s *UseSite) NeedsManagedToNative() bool {
	if s.Direction == DirectionInOut {
		return true
	}

	inbound := s.Direction == DirectionIn

	return inbound == (s.Context == ContextForward)
}

// NeedsNativeToManaged returns true if the site converts native values back.
func (s *UseSite) NeedsNativeToManaged() bool {
	if s.Direction == DirectionInOut {
		return true
	}

	return !s.NeedsManagedToNative()
}

// HasOverride returns true if a use-site shadow type is applied.
func (s *UseSite) HasOverride() bool {
	return !s.Override.IsZero()
}

// DefaultStackFrame reports whether the generated stub controls a native
// stack frame for values flowing in that direction: only forward calls
// converting arguments before the call do.
func DefaultStackFrame(d Direction, c CallContext) bool {
	return c == ContextForward && (d == DirectionIn || d == DirectionInOut)
}
