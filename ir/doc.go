// Package ir defines the intermediate representation that lowering produces
// and the SPIR-V emitter consumes: a flat, labelled sequence of three-address
// operations with explicit phi records standing in for general SSA
// construction.
//
// # Structure
//
// A PipelineIR is one compilation unit: an ordered []Op plus its input and
// output value types. Order is significant — emission walks it linearly,
// and control-transfer operations (Jump, JumpIfElse, LoopMerge) name labels
// that partition the sequence into basic blocks.
//
// # Translation pipeline
//
//	AST (package ast) -> lower.Lower -> PipelineIR -> cfg recognisers -> spirv.Emitter
//
// # References
//
// The operation set and phi-record shape are grounded directly on
// octo/src/tac_ir/{ir,code,emit_ir_from_ast}.rs, the original implementation
// this package's semantics were distilled from.
package ir
