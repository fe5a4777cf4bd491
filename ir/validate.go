package ir

import "fmt"

// ValidationError reports a single violated invariant, naming the op index
// where it was detected.
type ValidationError struct {
	Index   int
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("op %d: %s", e.Index, e.Message)
}

// Validate checks a PipelineIR's structure: each address and each label is
// declared once; Jump, JumpIfElse and LoopMerge targets are declared
// labels; a Phi's two labels are declared and differ; no operand is
// synchronized twice; no Int, Float or Bool constant is materialized at two
// addresses; and every block ends in exactly one terminator (LoopMerge is
// not one). It does not check that an operand address is defined before it
// is used, nor where a region's end label sits. It never mutates the IR.
func Validate(p *PipelineIR) []ValidationError {
	if p == nil {
		return []ValidationError{{Message: "nil pipeline"}}
	}

	var errs []ValidationError
	seenAddr := make(map[Address]bool)
	labels := make(map[Address]int)
	syncs := make(map[Address]int)

	for i, op := range p.Code {
		if seenAddr[op.Addr] {
			errs = append(errs, ValidationError{i, fmt.Sprintf("duplicate address %d", op.Addr)})
		}
		seenAddr[op.Addr] = true

		if _, isLabel := op.Op.(Label); isLabel {
			if _, dup := labels[op.Addr]; dup {
				errs = append(errs, ValidationError{i, fmt.Sprintf("label %d defined more than once", op.Addr)})
			}
			labels[op.Addr] = i
		}
	}

	for i, op := range p.Code {
		switch o := op.Op.(type) {
		case Jump:
			if _, ok := labels[o.Target]; !ok {
				errs = append(errs, ValidationError{i, fmt.Sprintf("jump targets undeclared label %d", o.Target)})
			}
		case JumpIfElse:
			if _, ok := labels[o.Then]; !ok {
				errs = append(errs, ValidationError{i, fmt.Sprintf("then-target %d is not a declared label", o.Then)})
			}
			if _, ok := labels[o.Else]; !ok {
				errs = append(errs, ValidationError{i, fmt.Sprintf("else-target %d is not a declared label", o.Else)})
			}
		case LoopMerge:
			if _, ok := labels[o.MergeLabel]; !ok {
				errs = append(errs, ValidationError{i, fmt.Sprintf("merge label %d is not declared", o.MergeLabel)})
			}
			if _, ok := labels[o.ContinueLabel]; !ok {
				errs = append(errs, ValidationError{i, fmt.Sprintf("continue label %d is not declared", o.ContinueLabel)})
			}
		case Phi:
			if o.Record.Label == o.Record.OldLabel {
				errs = append(errs, ValidationError{i, "phi label equals old_label"})
			}
			if _, ok := labels[o.Record.Label]; !ok {
				errs = append(errs, ValidationError{i, fmt.Sprintf("phi label %d is not declared", o.Record.Label)})
			}
			if _, ok := labels[o.Record.OldLabel]; !ok {
				errs = append(errs, ValidationError{i, fmt.Sprintf("phi old_label %d is not declared", o.Record.OldLabel)})
			}
		case Sync:
			syncs[o.Operand]++
		}
	}

	for addr, count := range syncs {
		if count > 1 {
			errs = append(errs, ValidationError{0, fmt.Sprintf("operand %d synchronized by %d Sync ops, want exactly 1", addr, count)})
		}
	}

	errs = append(errs, validateConstantDedup(p)...)
	errs = append(errs, validateSingleTerminator(p)...)

	return errs
}

// validateConstantDedup checks invariant 4: a constant value has exactly
// one address within a pipeline.
func validateConstantDedup(p *PipelineIR) []ValidationError {
	type key struct {
		kind string
		val  interface{}
	}
	seen := make(map[key]Address)
	var errs []ValidationError

	for i, op := range p.Code {
		var k key
		switch o := op.Op.(type) {
		case StoreInt:
			k = key{"int", o.Value}
		case StoreFloat:
			k = key{"float", o.Value}
		case StoreBool:
			k = key{"bool", o.Value}
		default:
			continue
		}
		if prior, ok := seen[k]; ok && prior != op.Addr {
			errs = append(errs, ValidationError{i, fmt.Sprintf("constant %v re-materialized at address %d, already interned at %d", k.val, op.Addr, prior)})
		} else {
			seen[k] = op.Addr
		}
	}
	return errs
}

// validateSingleTerminator checks the "single terminator per block"
// testable property: between consecutive Label ops there is exactly one
// control-transfer op, and it is the last op of the block.
func validateSingleTerminator(p *PipelineIR) []ValidationError {
	var errs []ValidationError
	inBlock := false
	terminators := 0
	lastWasTerminator := true

	flush := func(i int) {
		if !inBlock {
			return
		}
		switch {
		case terminators == 0:
			errs = append(errs, ValidationError{i, "block has no terminator"})
		case terminators > 1:
			errs = append(errs, ValidationError{i, "block has more than one terminator"})
		case !lastWasTerminator:
			errs = append(errs, ValidationError{i, "terminator is not the last op in its block"})
		}
	}

	for i, op := range p.Code {
		if _, isLabel := op.Op.(Label); isLabel {
			flush(i)
			inBlock = true
			terminators = 0
			lastWasTerminator = false
			continue
		}
		if isTerminator(op.Op) {
			terminators++
			lastWasTerminator = true
		} else {
			lastWasTerminator = false
		}
	}
	flush(len(p.Code))

	return errs
}

// isTerminator reports whether op ends a basic block. LoopMerge is
// deliberately excluded: like SPIR-V's OpLoopMerge, it is always
// immediately followed by the real terminator (Jump) in the same block,
// not a terminator itself.
func isTerminator(op Operation) bool {
	switch op.(type) {
	case Jump, JumpIfElse, Exit:
		return true
	default:
		return false
	}
}
