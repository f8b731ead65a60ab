package analyze

// Signature describes the parameters and results of a function or method.
type Signature struct {
	Params  []*TypeInfo
	Results []*TypeInfo
}

// Method describes a method of a named type.
type Method struct {
	Name string
	Signature
	PointerReceiver bool
}

// Property describes an accessor pair exposed as methods (Value / SetValue).
type Property struct {
	Name   string
	Type   *TypeInfo // Accessed type; the pointee when ByRef
	Getter bool
	Setter bool
	// ByRef is true when the getter hands out a pointer into the receiver.
	ByRef bool
}

// Constant describes a typed constant associated with a type.
type Constant struct {
	Name string
	Type *TypeInfo
	Int  int64
	Bool bool
}

// MemberSet lists the members a type exposes to a shadow-contract check.
type MemberSet struct {
	// Constructors are the New<Type> functions returning the type.
	Constructors []Signature
	Methods      []Method
	Properties   []Property
	Constants    []Constant
}

// Method returns the method with the given name, or nil.
func (m *MemberSet) Method(name string) *Method {
	if m == nil {
		return nil
	}

	for i := range m.Methods {
		if m.Methods[i].Name == name {
			return &m.Methods[i]
		}
	}

	return nil
}

// Property returns the property with the given name, or nil.
func (m *MemberSet) Property(name string) *Property {
	if m == nil {
		return nil
	}

	for i := range m.Properties {
		if m.Properties[i].Name == name {
			return &m.Properties[i]
		}
	}

	return nil
}

// Constant returns the constant with the given name, or nil.
func (m *MemberSet) Constant(name string) *Constant {
	if m == nil {
		return nil
	}

	for i := range m.Constants {
		if m.Constants[i].Name == name {
			return &m.Constants[i]
		}
	}

	return nil
}

// ConstructorsWithArity returns the constructors taking exactly n parameters.
func (m *MemberSet) ConstructorsWithArity(n int) []Signature {
	if m == nil {
		return nil
	}

	var out []Signature

	for _, c := range m.Constructors {
		if len(c.Params) == n {
			out = append(out, c)
		}
	}

	return out
}
