// Package vm implements the update interpreter.
//
// This package contains:
//   - Update operations and their opcode table
//   - Compiled programs and temporary slot pools
//   - The interpreter that replays a program against a live object graph
//   - A disassembler for debugging compiled programs
package vm
