package spirv

import (
	"encoding/binary"
	"testing"

	"github.com/gogpu/pipeline/parser"

	"github.com/gogpu/pipeline/lower"
)

// spirvInstruction is a decoded SPIR-V instruction with its word offset,
// used only to let tests walk a compiled module's control-flow shape.
type spirvInstruction struct {
	offset    int
	opcode    OpCode
	wordCount int
	words     []uint32
}

// decodeInstructions parses every instruction from a SPIR-V binary, skipping
// the five-word header.
func decodeInstructions(data []byte) []spirvInstruction {
	if len(data) < 20 || len(data)%4 != 0 {
		return nil
	}

	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}

	var instrs []spirvInstruction
	offset := 5
	for offset < len(words) {
		wc := int(words[offset] >> 16)
		op := OpCode(words[offset] & 0xFFFF)
		if wc == 0 || offset+wc > len(words) {
			break
		}
		instrs = append(instrs, spirvInstruction{
			offset:    offset,
			opcode:    op,
			wordCount: wc,
			words:     words[offset : offset+wc],
		})
		offset += wc
	}
	return instrs
}

// compilePipeline parses, lowers, and emits source, failing the test on any
// stage error.
func compilePipeline(t *testing.T, source string) []byte {
	t.Helper()

	p, err := parser.Parse(source)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	module, err := lower.Lower(*p)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}

	spirvBytes, err := NewEmitter().Emit(module)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	return spirvBytes
}

func countOpcode(instrs []spirvInstruction, opcode OpCode) int {
	count := 0
	for _, inst := range instrs {
		if inst.opcode == opcode {
			count++
		}
	}
	return count
}

func labelSet(instrs []spirvInstruction) map[uint32]bool {
	labels := make(map[uint32]bool)
	for _, inst := range instrs {
		if inst.opcode == OpLabel && inst.wordCount >= 2 {
			labels[inst.words[1]] = true
		}
	}
	return labels
}

// verifyLoopStructure checks that every OpLoopMerge names a merge and
// continue label that both exist, and that the continue block's terminator
// branches back to the loop header (the back-edge that makes it iterate).
func verifyLoopStructure(t *testing.T, instrs []spirvInstruction) {
	t.Helper()

	labels := labelSet(instrs)

	type loopInfo struct {
		header, merge, cont uint32
	}
	var loops []loopInfo
	var current uint32
	for _, inst := range instrs {
		if inst.opcode == OpLabel && inst.wordCount >= 2 {
			current = inst.words[1]
		}
		if inst.opcode == OpLoopMerge && inst.wordCount >= 3 {
			loops = append(loops, loopInfo{header: current, merge: inst.words[1], cont: inst.words[2]})
		}
	}
	if len(loops) == 0 {
		t.Fatal("no OpLoopMerge found — loop was not emitted")
	}

	for i, loop := range loops {
		if !labels[loop.merge] {
			t.Errorf("loop %d: merge label %%%d is not a declared OpLabel", i, loop.merge)
		}
		if !labels[loop.cont] {
			t.Errorf("loop %d: continue label %%%d is not a declared OpLabel", i, loop.cont)
		}
		if !hasBranchTo(instrs, loop.cont, loop.header) {
			t.Errorf("loop %d: no back-edge from continue block %%%d to header %%%d", i, loop.cont, loop.header)
		}
	}
}

// hasBranchTo reports whether the block starting at fromLabel terminates
// with a branch (conditional or not) naming toLabel as a target.
func hasBranchTo(instrs []spirvInstruction, fromLabel, toLabel uint32) bool {
	inBlock := false
	for _, inst := range instrs {
		if inst.opcode == OpLabel && inst.wordCount >= 2 {
			if inst.words[1] == fromLabel {
				inBlock = true
				continue
			}
			if inBlock {
				return false
			}
		}
		if !inBlock {
			continue
		}
		switch inst.opcode {
		case OpBranch:
			return inst.wordCount >= 2 && inst.words[1] == toLabel
		case OpBranchConditional:
			return inst.wordCount >= 4 && (inst.words[2] == toLabel || inst.words[3] == toLabel)
		}
	}
	return false
}

func TestForLoopEmitsLoopMergeWithBackEdge(t *testing.T) {
	const source = `
pipeline sum_to_n(n: int) -> int {
	total := 0;
	for (i := 0; i < n; i = i + 1) {
		total = total + i;
	}
	return total;
}
`
	instrs := decodeInstructions(compilePipeline(t, source))
	verifyLoopStructure(t, instrs)
}

func TestNestedForLoopEmitsTwoLoopMerges(t *testing.T) {
	const source = `
pipeline nested(rows: int, cols: int) -> int {
	total := 0;
	for (i := 0; i < rows; i = i + 1) {
		for (j := 0; j < cols; j = j + 1) {
			total = total + 1;
		}
	}
	return total;
}
`
	instrs := decodeInstructions(compilePipeline(t, source))
	if n := countOpcode(instrs, OpLoopMerge); n != 2 {
		t.Errorf("expected 2 OpLoopMerge for nested loops, got %d", n)
	}
	verifyLoopStructure(t, instrs)
}

func TestIfElseEmitsSelectionMergeAndPhi(t *testing.T) {
	const source = `
pipeline clamp_positive(x: float) -> float {
	if (x < 0.0) {
		x = 0.0;
	} else {
		x = x;
	}
	return x;
}
`
	instrs := decodeInstructions(compilePipeline(t, source))
	labels := labelSet(instrs)

	var merges []spirvInstruction
	for _, inst := range instrs {
		if inst.opcode == OpSelectionMerge {
			merges = append(merges, inst)
		}
	}
	if len(merges) != 1 {
		t.Fatalf("expected 1 OpSelectionMerge, got %d", len(merges))
	}
	mergeLabel := merges[0].words[1]
	if !labels[mergeLabel] {
		t.Errorf("selection merge label %%%d is not a declared OpLabel", mergeLabel)
	}

	if n := countOpcode(instrs, OpPhi); n == 0 {
		t.Error("expected at least one OpPhi at the if/else merge, found none")
	}
}

// TestIfWithoutElseSkipsPhiForUnassignedBranch mirrors a shadowed-assignment
// only on the then-branch: the merge phi's "old" value must come from the
// entry block, not a nonexistent else block.
func TestIfWithoutElseSkipsPhiForUnassignedBranch(t *testing.T) {
	const source = `
pipeline maybe_double(x: float, flag: bool) -> float {
	if (flag) {
		x = x * 2.0;
	}
	return x;
}
`
	instrs := decodeInstructions(compilePipeline(t, source))

	var merges []spirvInstruction
	for _, inst := range instrs {
		if inst.opcode == OpSelectionMerge {
			merges = append(merges, inst)
		}
	}
	if len(merges) != 1 {
		t.Fatalf("expected 1 OpSelectionMerge, got %d", len(merges))
	}
	if n := countOpcode(instrs, OpPhi); n != 1 {
		t.Errorf("expected exactly 1 OpPhi (for x), got %d", n)
	}
}
