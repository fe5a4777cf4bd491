// Package spirv provides SPIR-V code generation from pipeline IR.
//
// SPIR-V is the standard intermediate language for GPU shaders,
// used by Vulkan, OpenCL, and other APIs.
//
// # IR to SPIR-V Emitter
//
// Emitter translates a flat pipeline.ir.PipelineIR into SPIR-V binary
// format, re-synthesizing structured selection-merge and loop-merge
// regions from the flat op stream via package cfg:
//
//	emitter := spirv.NewEmitter()
//	binary, err := emitter.Emit(pipelineIR)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// The emitter currently supports:
//   - Scalar types (bool, int, float)
//   - Vector types (vec2, vec3, vec4)
//   - Scalar and vector arithmetic, comparison, and equality
//   - Structured if/else and for-loop control flow, including phi nodes
//   - GLSL.std.450 extended instructions (trig, exponential, clamp/min/max, ...)
//
// # Binary Writer
//
// The package also provides a low-level binary writer for constructing
// SPIR-V modules programmatically using ModuleBuilder:
//
//	builder := spirv.NewModuleBuilder(spirv.Version1_3)
//	builder.AddCapability(spirv.CapabilityShader)
//	builder.SetMemoryModel(spirv.AddressingModelLogical, spirv.MemoryModelGLSL450)
//
//	// Add types
//	floatType := builder.AddTypeFloat(32)
//	vec4Type := builder.AddTypeVector(floatType, 4)
//
//	// Build binary
//	binary := builder.Build()
//
// # SPIR-V Structure
//
// SPIR-V modules consist of:
//   - Header (magic, version, generator, bound, schema)
//   - Capabilities (required features)
//   - Extensions (optional extensions)
//   - Extended instruction imports (GLSL.std.450, etc.)
//   - Memory model (addressing and memory model)
//   - Entry points (shader entry functions)
//   - Execution modes (shader configuration)
//   - Debug information (names, source info)
//   - Annotations (decorations)
//   - Types and constants
//   - Global variables
//   - Functions (code)
//
// # References
//
// SPIR-V Specification: https://registry.khronos.org/SPIR-V/specs/unified1/SPIRV.html
package spirv
