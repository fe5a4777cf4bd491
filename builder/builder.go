// Package builder assembles a PipelineIR incrementally: it allocates
// addresses, interns constants, resolves variable names to their current
// address, and records the phi joins that lowering needs for if/else and
// loop merges.
//
// The design is grounded directly on octo::tac_ir::code::Code, the original
// implementation's equivalent builder.
package builder

import (
	"github.com/sirupsen/logrus"

	"github.com/gogpu/pipeline/ir"
)

// PhiCollection maps a variable name to the phi record capturing its value
// on both paths into a merge block.
type PhiCollection map[string]ir.PhiRecord

// observer accumulates phi records for variables reassigned inside a
// structured region, relative to the label active when observation began.
type observer struct {
	outerLabel ir.Address
	collection PhiCollection
}

func (o *observer) store(name string, newAddr, newLabel, old ir.Address) {
	logrus.WithFields(logrus.Fields{"name": name, "label": newLabel}).Debug("builder: recording phi candidate")
	o.collection[name] = ir.PhiRecord{
		New:      newAddr,
		Label:    newLabel,
		Old:      old,
		OldLabel: o.outerLabel,
	}
}

// Code builds a PipelineIR one operation at a time.
type Code struct {
	code      []ir.Op
	variables map[string]ir.Address
	constants map[ir.Address]ir.ConstantValue

	observer *observer

	synchronized map[ir.Address]ir.Address

	counter   int
	lastLabel ir.Address
}

// New starts a Code with its entry label already pushed.
func New() *Code {
	c := Empty()
	label := c.NewLabel()
	c.PushWithLabel(ir.Label{}, label)
	return c
}

// Empty starts a Code with no operations at all, for lowering paths that
// manage their own entry label (tests, sub-regions spliced into a parent).
func Empty() *Code {
	return &Code{
		variables:    make(map[string]ir.Address),
		constants:    make(map[ir.Address]ir.ConstantValue),
		synchronized: make(map[ir.Address]ir.Address),
	}
}

// Finish closes the builder into a PipelineIR with the given signature.
func (c *Code) Finish(inputs []ir.InputParam, outputs []ir.ValueType) *ir.PipelineIR {
	return &ir.PipelineIR{Code: c.code, Inputs: inputs, Outputs: outputs}
}

// CodeSize reports how many operations have been pushed so far.
func (c *Code) CodeSize() int {
	return len(c.code)
}

// Exit pushes an Exit returning value from the current label.
func (c *Code) Exit(value ir.Address) {
	c.Push(ir.Exit{Value: value, Label: c.lastLabel})
}

// ReplaceLabel rewrites every operand equal to old to new, within
// [lo, hi) of the code slice. This is the narrow, post-hoc fixup loop lets
// a loop's body reference the merge values produced by its own last
// iteration without a forward-reference pass over the whole pipeline.
func (c *Code) ReplaceLabel(lo, hi int, old, new ir.Address) {
	logrus.WithFields(logrus.Fields{"from": old, "to": new, "lo": lo, "hi": hi}).Debug("builder: replacing address range")

	replace := func(a ir.Address) ir.Address {
		if a == old {
			return new
		}
		return a
	}

	for i := lo; i < hi; i++ {
		switch o := c.code[i].Op.(type) {
		case ir.Add:
			c.code[i].Op = ir.Add{Left: replace(o.Left), Right: replace(o.Right)}
		case ir.Sub:
			c.code[i].Op = ir.Sub{Left: replace(o.Left), Right: replace(o.Right)}
		case ir.Mul:
			c.code[i].Op = ir.Mul{Left: replace(o.Left), Right: replace(o.Right)}
		case ir.Div:
			c.code[i].Op = ir.Div{Left: replace(o.Left), Right: replace(o.Right)}
		case ir.Less:
			c.code[i].Op = ir.Less{Left: replace(o.Left), Right: replace(o.Right)}
		case ir.LessEq:
			c.code[i].Op = ir.LessEq{Left: replace(o.Left), Right: replace(o.Right)}
		case ir.Eq:
			c.code[i].Op = ir.Eq{Left: replace(o.Left), Right: replace(o.Right)}
		case ir.Neq:
			c.code[i].Op = ir.Neq{Left: replace(o.Left), Right: replace(o.Right)}
		case ir.And:
			c.code[i].Op = ir.And{Left: replace(o.Left), Right: replace(o.Right)}
		case ir.Or:
			c.code[i].Op = ir.Or{Left: replace(o.Left), Right: replace(o.Right)}
		case ir.Shift:
			c.code[i].Op = ir.Shift{Left: replace(o.Left), Right: replace(o.Right)}
		case ir.Phi:
			c.code[i].Op = ir.Phi{Record: ir.PhiRecord{
				New:      replace(o.Record.New),
				Label:    o.Record.Label,
				Old:      replace(o.Record.Old),
				OldLabel: o.Record.OldLabel,
			}}
		case ir.Jump:
			c.code[i].Op = ir.Jump{Target: replace(o.Target)}
		case ir.Neg:
			c.code[i].Op = ir.Neg{Operand: replace(o.Operand)}
		case ir.Exit:
			c.code[i].Op = ir.Exit{Value: replace(o.Value), Label: replace(o.Label)}
		case ir.Store:
			c.code[i].Op = ir.Store{Value: replace(o.Value)}
		case ir.Sync:
			c.code[i].Op = ir.Sync{Operand: replace(o.Operand)}
		case ir.JumpIfElse:
			c.code[i].Op = ir.JumpIfElse{Cond: replace(o.Cond), Then: replace(o.Then), Else: replace(o.Else)}
		default:
			// every other variant carries no address operands worth rewriting
		}
	}
}

// ObserveAssignments begins capturing phi records for reassignments against
// the current label, returning the previously active observer (nil at the
// top level) so the caller can restore it with FinishObserving.
func (c *Code) ObserveAssignments() *observer {
	prior := c.observer
	logrus.WithField("label", c.lastLabel).Debug("builder: observing assignments")
	c.observer = &observer{outerLabel: c.lastLabel, collection: make(PhiCollection)}
	return prior
}

// FinishObserving stops capturing phi records, restores prior as the active
// observer, and returns what was collected.
func (c *Code) FinishObserving(prior *observer) PhiCollection {
	collected := c.observer.collection
	c.observer = prior
	return collected
}

// NewLabel allocates a fresh Address without pushing an operation.
func (c *Code) NewLabel() ir.Address {
	c.counter++
	return ir.Address(c.counter)
}

// Push allocates a fresh Address, appends op under it, and returns the
// Address.
func (c *Code) Push(op ir.Operation) ir.Address {
	addr := c.NewLabel()
	c.PushWithLabel(op, addr)
	return addr
}

// PushWithLabel appends op under an already-allocated Address.
func (c *Code) PushWithLabel(op ir.Operation, label ir.Address) {
	if _, isLabel := op.(ir.Label); isLabel {
		c.lastLabel = label
	}
	c.code = append(c.code, ir.Op{Addr: label, Op: op})
}

// Store records that name now resolves to add. If an observer is active and
// this is a reassignment (create is false) of a name that already existed,
// the store becomes a phi candidate instead of overwriting the variable
// table outright — the observer resolves it into a PhiRecord when the
// enclosing region merges.
func (c *Code) Store(name string, add ir.Address, create bool) {
	if c.observer != nil && !create {
		old := c.variables[name]
		c.observer.store(name, add, c.lastLabel, old)
		return
	}
	c.variables[name] = add
}

// Get resolves name to its current Address, preferring an active observer's
// phi candidate over the committed variable table. It fails if name has
// never been stored: callers are expected to have already run name
// resolution (package scope) against the AST, so reaching this case means
// an earlier pass let an undefined name through.
func (c *Code) Get(name string) (ir.Address, error) {
	if c.observer != nil {
		if rec, ok := c.observer.collection[name]; ok {
			return rec.New, nil
		}
	}
	addr, ok := c.variables[name]
	if !ok {
		return 0, &ir.InternalError{Op: "Code.Get", Message: "unresolved variable " + name}
	}
	return addr, nil
}

// Synchronize emits a Sync for address the first time it's requested, and
// returns the same Address on every subsequent call for that operand
// (invariant 5).
func (c *Code) Synchronize(address ir.Address) ir.Address {
	if addr, ok := c.synchronized[address]; ok {
		return addr
	}
	newAddr := c.Push(ir.Sync{Operand: address})
	c.synchronized[address] = newAddr
	return newAddr
}

func (c *Code) constAddress(val ir.ConstantValue) (ir.Address, bool) {
	for addr, v := range c.constants {
		if v == val {
			return addr, true
		}
	}
	return 0, false
}

// StoreConstant interns val, returning its existing Address if an identical
// constant has already been pushed, or pushing a fresh StoreX op otherwise.
func (c *Code) StoreConstant(val ir.ConstantValue) ir.Address {
	if addr, ok := c.constAddress(val); ok {
		return addr
	}

	var addr ir.Address
	switch v := val.(type) {
	case ir.ConstFloat64:
		addr = c.Push(ir.StoreFloat{Value: v.Value})
	case ir.ConstInt64:
		addr = c.Push(ir.StoreInt{Value: v.Value})
	case ir.ConstVec2:
		addr = c.Push(ir.StoreVec2{X: v.X, Y: v.Y})
	case ir.ConstVec3:
		addr = c.Push(ir.StoreVec3{X: v.X, Y: v.Y, Z: v.Z})
	case ir.ConstBool:
		addr = c.Push(ir.StoreBool{Value: v.Value})
	default:
		panic(&ir.InternalError{Op: "StoreConstant", Message: "unhandled constant kind"})
	}

	c.constants[addr] = val
	return addr
}

// GetConst looks up the constant value stored at addr.
func (c *Code) GetConst(addr ir.Address) (ir.ConstantValue, bool) {
	v, ok := c.constants[addr]
	return v, ok
}

// IsConst reports whether addr names an interned constant.
func (c *Code) IsConst(addr ir.Address) bool {
	_, ok := c.constants[addr]
	return ok
}

// LastLabel returns the label of the block currently being built.
func (c *Code) LastLabel() ir.Address {
	return c.lastLabel
}
