// Package shape validates shadow types: user-supplied native stand-ins for a
// managed type. A shadow converts through a set of conventional members:
//
//	func NewPersonNative(p Person) PersonNative // managed to native
//	func NewPersonNativeWithBuffer(p Person, buf []byte) PersonNative
//	func (n *PersonNative) ToManaged() Person               // native to managed
//	func (n *PersonNative) FreeNative()                     // release native memory
//	func (n *PersonNative) Value() int64                    // projected representation
//	func (n *PersonNative) SetValue(v int64)
//	func (n *PersonNative) GetPinnableReference() *byte
//	const PersonNativeBufferSize = 64
//	const PersonNativeRequiresStackBuffer = true
//
// Validate turns these members into a Descriptor of capabilities; fatal
// shape errors are reported as fatal-definition diagnostics, direction
// downgrades as informational ones.
package shape
