// Package blittable decides whether a type's value layout is identical on
// both sides of the boundary.
//
// A type is blittable when it is a numeric primitive, an address-sized
// integer, a fixed array of blittable elements, or a struct whose fields are
// all blittable. bool and rune are never blittable. Structs whose private
// fields are erased (foreign packages) are trusted only when the type carries
// an explicit blittable declaration; otherwise the verdict is indeterminate.
//
// Verdicts of named types are memoised in a write-once Cache shared by every
// worker of a resolution pass.
package blittable
