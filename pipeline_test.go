package pipeline

import (
	"encoding/binary"
	"testing"
)

const magicNumber = 0x07230203

func TestCompileProducesValidSPIRVHeader(t *testing.T) {
	source := `pipeline scale(x: float, y: float) -> float {
	return x * y;
}`
	binaryOut, err := Compile(source)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(binaryOut) < 20 || len(binaryOut)%4 != 0 {
		t.Fatalf("expected a word-aligned binary of at least 20 bytes, got %d bytes", len(binaryOut))
	}
	if got := binary.LittleEndian.Uint32(binaryOut[0:4]); got != magicNumber {
		t.Errorf("magic number = %#x, want %#x", got, magicNumber)
	}
}

func TestCompileWithOptionsSkipsValidationWhenDisabled(t *testing.T) {
	source := `pipeline f(x: float) -> float { return x; }`
	_, err := CompileWithOptions(source, CompileOptions{Validate: false})
	if err != nil {
		t.Fatalf("CompileWithOptions: %v", err)
	}
}

func TestCompileWrapsParseErrors(t *testing.T) {
	_, err := Compile(`pipeline f(x float) -> float { return x; }`)
	if err == nil {
		t.Fatal("expected a parse error for the malformed parameter")
	}
}

func TestCompileRejectsUnimplementedScaleExpression(t *testing.T) {
	_, err := Compile(`pipeline f(x: vec2, s: vec2) -> vec2 { return x ~ s; }`)
	if err == nil {
		t.Fatal("expected a lowering error for an unimplemented scale expression")
	}
}

func TestParseLowerEmitStagesComposeIndividually(t *testing.T) {
	const source = `pipeline add(a: float, b: float) -> float { return a + b; }`

	p, err := Parse(source)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Name.Val != "add" {
		t.Errorf("Name = %q, want %q", p.Name.Val, "add")
	}

	module, err := Lower(*p)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if errs := Validate(module); len(errs) != 0 {
		t.Fatalf("Validate: %v", errs)
	}

	spirvBytes, err := Emit(module)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(spirvBytes) == 0 {
		t.Error("expected a non-empty SPIR-V binary")
	}
}
