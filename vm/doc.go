// Package vm implements the object and type core of the runtime.
//
// This package contains:
//   - Reference-counted object headers and native types
//   - Attribute and operator-binding tables
//   - Operator resolution with a per-class inherited-operator cache
//   - Constructor dispatch, including auto-init
//   - Instance lifecycle: destruction, copying, assignment and clearing
//   - Class creation and a class registry
package vm
