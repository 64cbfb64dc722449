// Package vm implements the Opal runtime core: the object and execution
// model underneath the bytecode interpreter.
//
// This package contains:
//   - Tagged value representation
//   - Call frames, cells, and block stacks
//   - Functions, closures, bound methods, and generators
//   - Classes with C3-linearized attribute resolution
//   - The descriptor protocol
//   - The bytecode dispatch loop
package vm
