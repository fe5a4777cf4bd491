// Package pipeline compiles the pipeline shading language to SPIR-V.
//
// The compilation pipeline is:
//  1. Parse source text to an ast.Pipeline
//  2. Lower the AST to a flat three-address ir.PipelineIR
//  3. Validate the IR (if enabled)
//  4. Emit a SPIR-V binary module
//
// Example usage:
//
//	source := `
//	pipeline scale(x: float, y: float) -> float {
//	    return x * y;
//	}
//	`
//	spirv, err := pipeline.Compile(source)
//	if err != nil {
//	    log.Fatal(err)
//	}
package pipeline

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/gogpu/pipeline/ast"
	"github.com/gogpu/pipeline/ir"
	"github.com/gogpu/pipeline/lower"
	"github.com/gogpu/pipeline/parser"
	"github.com/gogpu/pipeline/spirv"
)

// CompileOptions configures compilation.
type CompileOptions struct {
	// Validate enables IR validation before code generation.
	Validate bool

	// Debug raises Logger's level to Debug. The per-step lowering, builder
	// and emission traces go to logrus's standard logger, so they appear
	// only when Logger is that logger (the default).
	Debug bool

	// Logger receives the compile-level trace line. Defaults to
	// logrus.StandardLogger() when nil. The builder, lower and spirv
	// packages always log through logrus's standard logger instead.
	Logger *logrus.Logger
}

// DefaultOptions returns sensible default options: validation on, debug
// tracing off.
func DefaultOptions() CompileOptions {
	return CompileOptions{Validate: true}
}

// Compile compiles pipeline source to a SPIR-V binary using default
// options. This is the simplest way to compile a pipeline; for more
// control use CompileWithOptions or the individual Parse/Lower/Emit
// functions.
func Compile(source string) ([]byte, error) {
	return CompileWithOptions(source, DefaultOptions())
}

// CompileWithOptions compiles pipeline source to a SPIR-V binary with
// custom options.
func CompileWithOptions(source string, opts CompileOptions) ([]byte, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	p, err := Parse(source)
	if err != nil {
		return nil, errors.Wrap(err, "parse error")
	}

	module, err := Lower(*p)
	if err != nil {
		return nil, errors.Wrap(err, "lowering error")
	}

	if opts.Validate {
		if errs := ir.Validate(module); len(errs) > 0 {
			return nil, errors.Wrapf(&errs[0], "validation failed (%d error(s))", len(errs))
		}
	}

	logger.WithField("ops", len(module.Code)).Debug("pipeline: emitting SPIR-V")
	spirvBytes, err := Emit(module)
	if err != nil {
		return nil, errors.Wrap(err, "SPIR-V generation error")
	}

	return spirvBytes, nil
}

// Parse parses pipeline source text to an ast.Pipeline.
//
// This is the first stage of compilation. The AST represents the
// surface syntax but carries no resolved addresses or phi records.
func Parse(source string) (*ast.Pipeline, error) {
	return parser.Parse(source)
}

// Lower converts an ast.Pipeline to a flat three-address ir.PipelineIR.
//
// Lowering resolves variable references against a scope, synthesizes phi
// records at the merge point of every if/else and for-loop, and reverses
// `>`/`>=` comparisons into their `<`/`<=` equivalents with swapped
// operands.
func Lower(p ast.Pipeline) (*ir.PipelineIR, error) {
	return lower.Lower(p)
}

// Validate checks an ir.PipelineIR for internal consistency: unique
// addresses and labels, well-formed jump/phi targets, and single
// terminators per block.
//
// Returns a slice of validation errors. If the slice is empty,
// validation passed.
func Validate(module *ir.PipelineIR) []ir.ValidationError {
	return ir.Validate(module)
}

// Emit generates a SPIR-V binary from a lowered ir.PipelineIR.
//
// This is the final stage of compilation: a fresh spirv.Emitter
// re-synthesizes structured control flow from the flat op stream and
// produces a directly-consumable SPIR-V module.
func Emit(module *ir.PipelineIR) ([]byte, error) {
	return spirv.NewEmitter().Emit(module)
}
