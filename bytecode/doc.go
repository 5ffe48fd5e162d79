// Package bytecode provides the immutable compiled-function objects produced
// by the Kestrel compiler.
//
// A [Function] holds everything an execution engine needs to run one
// compiled function: its name, parameter count, captured value count,
// constant pool and instruction bytes. Nested functions are stored as
// *Function values in the constant pool of the function that creates them.
//
// # Immutability Guarantees
//
// All types in this package are immutable after construction:
//
//   - No mutation methods exist on any type
//   - All fields are unexported
//   - Constructors copy input slices to prevent caller mutation
//   - Accessors return values or immutable pointers, never mutable slices
//
// Index-based access is used for all collections:
//
//	fn.ConstantAt(i)
//	fn.ByteAt(offset)
//	fn.LocalNameAt(slot)
//
// A Function may therefore be shared freely between goroutines.
//
// # Instructions
//
// Each instruction is one opcode byte followed by the operand bytes given by
// [op.GetInfo]. [Decode] and [Function.Instructions] split the byte sequence
// back into [Instruction] values for inspection.
//
// # Serialization
//
// [Marshal] encodes a function and every function reachable through its
// constant pool as canonical CBOR; [Unmarshal] restores and validates it.
package bytecode
