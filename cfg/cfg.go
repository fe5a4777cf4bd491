// Package cfg recognises the structured if/else and loop regions that
// lowering produces as flat Jump/Label/JumpIfElse/LoopMerge sequences, so
// package spirv can re-synthesize OpSelectionMerge/OpLoopMerge structured
// control flow from them.
//
// Both recognisers are single-pass: given a position in the op stream they
// read forward to the region's end and report where the caller should
// resume scanning. Neither mutates the underlying slice.
package cfg

import (
	"github.com/pkg/errors"

	"github.com/gogpu/pipeline/ir"
)

// IfElseRegion is the result of recognising a JumpIfElse at some index.
type IfElseRegion struct {
	ConditionValue ir.Address
	IfLabel        ir.Address
	ElseLabel      ir.Address // zero when HasElse is false
	HasElse        bool
	EndLabel       ir.Address
	TrueBlock      []ir.Op
	FalseBlock     []ir.Op
	PhiNodes       []ir.Op
	NextIndex      int
}

// FindIfElse recognises the if/else region whose header JumpIfElse sits at
// code[index]. It expects the shape lowering produces: JumpIfElse, then
// immediately Label(ifLabel), the true block, a Jump to the end label,
// optionally Label(elseLabel)+false block+Jump, Label(endLabel), and a run
// of Phi ops.
func FindIfElse(code []ir.Op, index int) (*IfElseRegion, error) {
	jie, ok := code[index].Op.(ir.JumpIfElse)
	if !ok {
		return nil, errors.Errorf("cfg: op at %d is not a JumpIfElse", index)
	}

	pos := index + 1
	if !isLabel(code, pos, jie.Then) {
		return nil, errors.Errorf("cfg: expected Label(%d) at %d", jie.Then, pos)
	}
	pos++
	trueStart := pos

	trueEnd, endLabel, err := findJump(code, pos)
	if err != nil {
		return nil, errors.Wrap(err, "cfg: scanning true block")
	}
	pos = trueEnd + 1

	region := &IfElseRegion{
		ConditionValue: jie.Cond,
		IfLabel:        jie.Then,
		EndLabel:       endLabel,
		TrueBlock:      code[trueStart:trueEnd],
	}

	if jie.Else != endLabel {
		region.HasElse = true
		region.ElseLabel = jie.Else
		if !isLabel(code, pos, jie.Else) {
			return nil, errors.Errorf("cfg: expected Label(%d) at %d", jie.Else, pos)
		}
		pos++
		falseStart := pos

		falseEnd, target, err := findJump(code, pos)
		if err != nil {
			return nil, errors.Wrap(err, "cfg: scanning false block")
		}
		if target != endLabel {
			return nil, errors.Errorf("cfg: false block jumps to %d, want end label %d", target, endLabel)
		}
		region.FalseBlock = code[falseStart:falseEnd]
		pos = falseEnd + 1
	}

	if !isLabel(code, pos, endLabel) {
		return nil, errors.Errorf("cfg: expected end Label(%d) at %d", endLabel, pos)
	}
	pos++

	phiStart := pos
	for pos < len(code) {
		if _, ok := code[pos].Op.(ir.Phi); !ok {
			break
		}
		pos++
	}
	region.PhiNodes = code[phiStart:pos]
	region.NextIndex = pos

	return region, nil
}

// LoopRegion is the result of recognising a LoopMerge at some index.
type LoopRegion struct {
	EntryLabel     ir.Address
	ConditionLabel ir.Address
	BodyLabel      ir.Address
	ContinueLabel  ir.Address
	ExitLabel      ir.Address
	Condition      []ir.Op
	ConditionValue ir.Address
	Body           []ir.Op
	ContinueCode   []ir.Op
	NextIndex      int
}

// FindLoop recognises the loop region whose header LoopMerge sits at
// code[index]. entryLabel is the label of the block the LoopMerge itself
// was emitted into (the caller's current block when it reached this op).
func FindLoop(code []ir.Op, index int, entryLabel ir.Address) (*LoopRegion, error) {
	merge, ok := code[index].Op.(ir.LoopMerge)
	if !ok {
		return nil, errors.Errorf("cfg: op at %d is not a LoopMerge", index)
	}

	pos := index + 1
	jump, ok := code[pos].Op.(ir.Jump)
	if !ok {
		return nil, errors.Errorf("cfg: expected Jump after LoopMerge at %d", pos)
	}
	conditionLabel := jump.Target
	pos++

	if !isLabel(code, pos, conditionLabel) {
		return nil, errors.Errorf("cfg: expected Label(%d) at %d", conditionLabel, pos)
	}
	pos++
	conditionStart := pos

	conditionEnd, conditionJie, err := findJumpIfElse(code, pos)
	if err != nil {
		return nil, errors.Wrap(err, "cfg: scanning loop condition")
	}
	bodyLabel := conditionJie.Then
	exitLabel := conditionJie.Else
	if bodyLabel != merge.ContinueLabel {
		return nil, errors.Errorf("cfg: condition branches to %d, loop merge names continue %d", bodyLabel, merge.ContinueLabel)
	}
	if exitLabel != merge.MergeLabel {
		return nil, errors.Errorf("cfg: condition branches to %d, loop merge names exit %d", exitLabel, merge.MergeLabel)
	}
	pos = conditionEnd + 1

	if !isLabel(code, pos, bodyLabel) {
		return nil, errors.Errorf("cfg: expected body Label(%d) at %d", bodyLabel, pos)
	}
	pos++
	bodyStart := pos

	bodyEnd, backTarget, err := findJump(code, pos)
	if err != nil {
		return nil, errors.Wrap(err, "cfg: scanning loop body")
	}
	if backTarget != conditionLabel {
		return nil, errors.Errorf("cfg: loop body back-edge targets %d, want condition label %d", backTarget, conditionLabel)
	}
	pos = bodyEnd + 1

	if !isLabel(code, pos, exitLabel) {
		return nil, errors.Errorf("cfg: expected exit Label(%d) at %d", exitLabel, pos)
	}
	pos++

	return &LoopRegion{
		EntryLabel:     entryLabel,
		ConditionLabel: conditionLabel,
		BodyLabel:      bodyLabel,
		ContinueLabel:  bodyLabel,
		ExitLabel:      exitLabel,
		Condition:      code[conditionStart:conditionEnd],
		ConditionValue: conditionJie.Cond,
		Body:           code[bodyStart:bodyEnd],
		NextIndex:      pos,
	}, nil
}

func isLabel(code []ir.Op, pos int, want ir.Address) bool {
	if pos >= len(code) {
		return false
	}
	if _, ok := code[pos].Op.(ir.Label); !ok {
		return false
	}
	return code[pos].Addr == want
}

// findJump scans forward from pos for the next Jump, returning its index
// and target. Used to find the op that terminates a block.
func findJump(code []ir.Op, pos int) (int, ir.Address, error) {
	for i := pos; i < len(code); i++ {
		if j, ok := code[i].Op.(ir.Jump); ok {
			return i, j.Target, nil
		}
	}
	return 0, 0, errors.New("cfg: no terminating Jump found")
}

// findJumpIfElse scans forward from pos for the next JumpIfElse, returning
// its index and the operation itself.
func findJumpIfElse(code []ir.Op, pos int) (int, ir.JumpIfElse, error) {
	for i := pos; i < len(code); i++ {
		if j, ok := code[i].Op.(ir.JumpIfElse); ok {
			return i, j, nil
		}
	}
	return 0, ir.JumpIfElse{}, errors.New("cfg: no JumpIfElse found")
}
