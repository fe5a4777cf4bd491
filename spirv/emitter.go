package spirv

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/gogpu/pipeline/cfg"
	"github.com/gogpu/pipeline/ir"
)

// Emitter drives a ModuleBuilder from a flat pipeline IR, re-synthesizing
// structured SPIR-V control flow for the if/else and loop regions package
// cfg recognises. One Emitter emits exactly one PipelineIR.
type Emitter struct {
	module *ModuleBuilder
	glslID uint32

	valueMap map[ir.Address]uint32
	typeMap  map[ir.Address]ir.ValueType

	currentBlock uint32
	lastLabel    ir.Address

	inputTypes []ir.ValueType
	paramIDs   []uint32

	scalarTypes  map[ir.ValueType]uint32
	boolVecTypes map[ir.ValueType]uint32

	pendingReturn uint32
	haveReturn    bool
}

// NewEmitter constructs an Emitter with a fresh module targeting SPIR-V 1.0
// and importing GLSL.std.450 once, as required of the output artifact.
func NewEmitter() *Emitter {
	module := NewModuleBuilder(Version1_0)
	module.AddCapability(CapabilityShader)
	module.SetMemoryModel(AddressingModelLogical, MemoryModelGLSL450)
	glslID := module.AddExtInstImport("GLSL.std.450")

	return &Emitter{
		module:       module,
		glslID:       glslID,
		valueMap:     make(map[ir.Address]uint32),
		typeMap:      make(map[ir.Address]ir.ValueType),
		scalarTypes:  make(map[ir.ValueType]uint32),
		boolVecTypes: make(map[ir.ValueType]uint32),
	}
}

// Emit translates p into a complete SPIR-V module, returning the encoded
// binary. Input arguments become the function's parameters directly;
// binding them to descriptor slots is the concern of an external id
// manager this package does not implement.
func (e *Emitter) Emit(p *ir.PipelineIR) ([]byte, error) {
	e.inputTypes = make([]ir.ValueType, len(p.Inputs))
	paramTypes := make([]uint32, len(p.Inputs))
	for i, in := range p.Inputs {
		e.inputTypes[i] = in.Type
		paramTypes[i] = e.spirvType(in.Type)
	}

	var returnType uint32
	if len(p.Outputs) > 0 {
		returnType = e.spirvType(p.Outputs[0])
	} else {
		returnType = e.module.AddTypeVoid()
	}

	funcType := e.module.AddTypeFunction(returnType, paramTypes...)
	e.module.AddFunction(funcType, returnType, FunctionControlNone)

	paramIDs := make([]uint32, len(p.Inputs))
	for i := range p.Inputs {
		paramIDs[i] = e.module.AddFunctionParameter(paramTypes[i])
	}
	e.paramIDs = paramIDs

	entry := e.module.AllocID()
	e.module.BeginBasicBlock(entry)
	e.currentBlock = entry

	logrus.WithField("ops", len(p.Code)).Debug("spirv: emitting pipeline body")
	if err := e.emitSequence(p.Code); err != nil {
		return nil, err
	}

	if e.haveReturn {
		e.module.AddReturnValue(e.pendingReturn)
	} else {
		e.module.AddReturn()
	}
	e.module.AddFunctionEnd()

	return e.module.Build(), nil
}

// Map returns the SPIR-V id bound to addr, allocating one on first use.
func (e *Emitter) Map(addr ir.Address) uint32 {
	if id, ok := e.valueMap[addr]; ok {
		return id
	}
	id := e.module.AllocID()
	e.valueMap[addr] = id
	return id
}

// setType records addr's value type, asserting agreement with any type
// already recorded for it (every IR producer sets a value's type exactly
// once, except where two control-flow paths agree on it structurally).
func (e *Emitter) setType(addr ir.Address, t ir.ValueType) error {
	if existing, ok := e.typeMap[addr]; ok && existing != t {
		return errors.Wrapf(&ir.InternalError{Op: "setType", Message: "conflicting value types"},
			"address %d: had %s, got %s", addr, existing, t)
	}
	e.typeMap[addr] = t
	return nil
}

func (e *Emitter) singleType(addr ir.Address) ir.ValueType {
	if t, ok := e.typeMap[addr]; ok {
		return t
	}
	return ir.Unknown
}

func (e *Emitter) pairType(left, right ir.Address) ir.ValueType {
	lt, lok := e.typeMap[left]
	rt, rok := e.typeMap[right]
	switch {
	case lok && rok:
		return lt // the two recorded types are not compared; the left one is used
	case lok:
		return lt
	case rok:
		return rt
	default:
		return ir.Unknown
	}
}

// spirvType returns the SPIR-V type id for t, creating and caching it on
// first use.
func (e *Emitter) spirvType(t ir.ValueType) uint32 {
	if id, ok := e.scalarTypes[t]; ok {
		return id
	}

	var id uint32
	switch t {
	case ir.Bool:
		id = e.module.AddTypeBool()
	case ir.Int:
		id = e.module.AddTypeInt(32, true)
	case ir.Float:
		id = e.module.AddTypeFloat(32)
	case ir.Vec2:
		id = e.module.AddTypeVector(e.spirvType(ir.Float), 2)
	case ir.Vec3:
		id = e.module.AddTypeVector(e.spirvType(ir.Float), 3)
	case ir.Vec4:
		id = e.module.AddTypeVector(e.spirvType(ir.Float), 4)
	default:
		id = e.module.AddTypeVoid()
	}
	e.scalarTypes[t] = id
	return id
}

// boolVectorType returns the bvecN type matching the lane count of t
// (Vec2/Vec3/Vec4), used only for the vector-equality reduction pattern.
func (e *Emitter) boolVectorType(t ir.ValueType) uint32 {
	if id, ok := e.boolVecTypes[t]; ok {
		return id
	}
	var count uint32
	switch t {
	case ir.Vec2:
		count = 2
	case ir.Vec3:
		count = 3
	default:
		count = 4
	}
	id := e.module.AddTypeVector(e.spirvType(ir.Bool), count)
	e.boolVecTypes[t] = id
	return id
}

// emitSequence walks ops, recognising and re-synthesizing any if/else or
// loop region it finds, and dispatching everything else to emitOperation.
func (e *Emitter) emitSequence(ops []ir.Op) error {
	for i := 0; i < len(ops); {
		switch ops[i].Op.(type) {
		case ir.JumpIfElse:
			region, err := cfg.FindIfElse(ops, i)
			if err != nil {
				return err
			}
			if err := e.emitIfElse(region); err != nil {
				return err
			}
			i = region.NextIndex
		case ir.LoopMerge:
			region, err := cfg.FindLoop(ops, i, e.lastLabel)
			if err != nil {
				return err
			}
			if err := e.emitLoop(region); err != nil {
				return err
			}
			i = region.NextIndex
		default:
			if err := e.emitOperation(ops[i].Addr, ops[i].Op); err != nil {
				return err
			}
			i++
		}
	}
	return nil
}

func (e *Emitter) emitIfElse(data *cfg.IfElseRegion) error {
	thenID := e.Map(data.IfLabel)
	endID := e.Map(data.EndLabel)
	falseID := endID
	if data.HasElse {
		falseID = e.Map(data.ElseLabel)
	}
	condID := e.Map(data.ConditionValue)
	headerBlock := e.currentBlock

	e.module.AddSelectionMerge(endID, SelectionControlNone)
	e.module.AddBranchConditional(condID, thenID, falseID)

	e.module.BeginBasicBlock(thenID)
	e.currentBlock = thenID
	e.lastLabel = data.IfLabel
	if err := e.emitSequence(data.TrueBlock); err != nil {
		return err
	}
	thenPred := e.currentBlock
	e.module.AddBranch(endID)

	elsePred := headerBlock
	if data.HasElse {
		e.module.BeginBasicBlock(falseID)
		e.currentBlock = falseID
		e.lastLabel = data.ElseLabel
		if err := e.emitSequence(data.FalseBlock); err != nil {
			return err
		}
		elsePred = e.currentBlock
		e.module.AddBranch(endID)
	}

	e.module.BeginBasicBlock(endID)
	e.currentBlock = endID
	e.lastLabel = data.EndLabel

	for _, op := range data.PhiNodes {
		rec, ok := op.Op.(ir.Phi)
		if !ok {
			return errors.New("spirv: non-Phi op in phi_nodes region")
		}
		if err := e.emitPhiRecord(op.Addr, rec.Record, thenPred, elsePred); err != nil {
			return err
		}
	}
	return nil
}

func (e *Emitter) emitLoop(data *cfg.LoopRegion) error {
	entryID := e.Map(data.EntryLabel)
	conditionID := e.Map(data.ConditionLabel)
	bodyID := e.Map(data.BodyLabel)
	continueID := e.Map(data.ContinueLabel)
	exitID := e.Map(data.ExitLabel)

	e.module.AddLoopMerge(exitID, continueID, LoopControlNone)
	e.module.AddBranch(conditionID)

	e.module.BeginBasicBlock(conditionID)
	e.currentBlock = conditionID
	e.lastLabel = data.ConditionLabel
	if err := e.emitSequence(data.Condition); err != nil {
		return err
	}
	condValue := e.Map(data.ConditionValue)
	e.module.AddBranchConditional(condValue, bodyID, exitID)

	e.module.BeginBasicBlock(bodyID)
	e.currentBlock = bodyID
	e.lastLabel = data.BodyLabel
	if err := e.emitSequence(data.Body); err != nil {
		return err
	}
	if len(data.ContinueCode) > 0 {
		e.module.AddBranch(continueID)
		e.module.BeginBasicBlock(continueID)
		e.currentBlock = continueID
		e.lastLabel = data.ContinueLabel
		if err := e.emitSequence(data.ContinueCode); err != nil {
			return err
		}
	}
	e.module.AddBranch(entryID)

	e.module.BeginBasicBlock(exitID)
	e.currentBlock = exitID
	e.lastLabel = data.ExitLabel
	return nil
}

func (e *Emitter) emitPhiRecord(ret ir.Address, rec ir.PhiRecord, thenPred, elsePred uint32) error {
	typ := e.singleType(rec.New)
	if typ == ir.Unknown {
		typ = e.singleType(rec.Old)
	}
	if typ == ir.Unknown {
		return errors.Errorf("spirv: phi at %d has no resolvable type", ret)
	}

	spirvType := e.spirvType(typ)
	newID := e.Map(rec.New)
	oldID := e.Map(rec.Old)
	retID := e.Map(ret)

	e.module.AddPhi(spirvType, retID, []PhiEdge{
		{Value: newID, Parent: thenPred},
		{Value: oldID, Parent: elsePred},
	})
	return e.setType(ret, typ)
}

func (e *Emitter) emitOperation(ret ir.Address, op ir.Operation) error {
	switch o := op.(type) {
	case ir.Label:
		e.lastLabel = ret
		id := e.Map(ret)
		e.module.BeginBasicBlock(id)
		e.currentBlock = id
		return nil

	case ir.Arg:
		id := e.paramIDs[o.Index]
		e.valueMap[ret] = id
		return e.setType(ret, e.inputTypes[o.Index])

	case ir.Store:
		typ := e.singleType(o.Value)
		srcID := e.Map(o.Value)
		id := e.module.AddCopyObject(e.spirvType(typ), srcID)
		e.valueMap[ret] = id
		return e.setType(ret, typ)

	case ir.ConstructVec2:
		xID, yID := e.Map(o.X), e.Map(o.Y)
		id := e.module.AddCompositeConstruct(e.spirvType(ir.Vec2), xID, yID)
		e.valueMap[ret] = id
		return e.setType(ret, ir.Vec2)

	case ir.ConstructVec3:
		xID, yID, zID := e.Map(o.X), e.Map(o.Y), e.Map(o.Z)
		id := e.module.AddCompositeConstruct(e.spirvType(ir.Vec3), xID, yID, zID)
		e.valueMap[ret] = id
		return e.setType(ret, ir.Vec3)

	case ir.Extract:
		vecID := e.Map(o.Vector)
		id := e.module.AddCompositeExtract(e.spirvType(ir.Float), vecID, uint32(o.Lane))
		e.valueMap[ret] = id
		return e.setType(ret, ir.Float)

	case ir.Add:
		return e.emitArithmetic(o.Left, o.Right, ret, OpIAdd, OpFAdd)
	case ir.Sub:
		return e.emitArithmetic(o.Left, o.Right, ret, OpISub, OpFSub)
	case ir.Mul:
		return e.emitArithmetic(o.Left, o.Right, ret, OpIMul, OpFMul)
	case ir.Div:
		return e.emitArithmetic(o.Left, o.Right, ret, OpSDiv, OpFDiv)

	case ir.Neg:
		typ := e.singleType(o.Operand)
		opcode := OpFNegate
		if typ == ir.Int {
			opcode = OpSNegate
		}
		id := e.module.AddUnaryOp(opcode, e.spirvType(typ), e.Map(o.Operand))
		e.valueMap[ret] = id
		return e.setType(ret, typ)

	case ir.Less:
		return e.emitComparison(o.Left, o.Right, ret, OpSLessThan, OpFOrdLessThan)
	case ir.LessEq:
		return e.emitComparison(o.Left, o.Right, ret, OpSLessThanEqual, OpFOrdLessThanEqual)
	case ir.Eq:
		return e.emitEquality(o.Left, o.Right, ret, true)
	case ir.Neq:
		return e.emitEquality(o.Left, o.Right, ret, false)

	case ir.And:
		id := e.module.AddBinaryOp(OpLogicalAnd, e.spirvType(ir.Bool), e.Map(o.Left), e.Map(o.Right))
		e.valueMap[ret] = id
		return e.setType(ret, ir.Bool)
	case ir.Or:
		id := e.module.AddBinaryOp(OpLogicalOr, e.spirvType(ir.Bool), e.Map(o.Left), e.Map(o.Right))
		e.valueMap[ret] = id
		return e.setType(ret, ir.Bool)

	case ir.StoreInt:
		id := e.module.AddConstant(e.spirvType(ir.Int), uint32(o.Value))
		e.valueMap[ret] = id
		return e.setType(ret, ir.Int)
	case ir.StoreFloat:
		id := e.module.AddConstantFloat32(e.spirvType(ir.Float), float32(o.Value))
		e.valueMap[ret] = id
		return e.setType(ret, ir.Float)
	case ir.StoreBool:
		id := e.boolConstant(o.Value)
		e.valueMap[ret] = id
		return e.setType(ret, ir.Bool)
	case ir.StoreVec2:
		xc := e.module.AddConstantFloat32(e.spirvType(ir.Float), float32(o.X))
		yc := e.module.AddConstantFloat32(e.spirvType(ir.Float), float32(o.Y))
		id := e.module.AddConstantComposite(e.spirvType(ir.Vec2), xc, yc)
		e.valueMap[ret] = id
		return e.setType(ret, ir.Vec2)
	case ir.StoreVec3:
		xc := e.module.AddConstantFloat32(e.spirvType(ir.Float), float32(o.X))
		yc := e.module.AddConstantFloat32(e.spirvType(ir.Float), float32(o.Y))
		zc := e.module.AddConstantFloat32(e.spirvType(ir.Float), float32(o.Z))
		id := e.module.AddConstantComposite(e.spirvType(ir.Vec3), xc, yc, zc)
		e.valueMap[ret] = id
		return e.setType(ret, ir.Vec3)

	case ir.Jump:
		e.module.AddBranch(e.Map(o.Target))
		return nil

	case ir.Exit:
		e.pendingReturn = e.Map(o.Value)
		e.haveReturn = true
		return nil

	case ir.Invoke:
		return e.emitInvoke(o.Func, ret)

	case ir.Phi:
		// A Phi reached outside a recognised if/else or loop region is
		// a standalone merge the recognisers didn't consume; resolve it
		// against whatever blocks its own record names.
		return e.emitPhiRecord(ret, o.Record, e.Map(o.Record.Label), e.Map(o.Record.OldLabel))

	case ir.Sync:
		return errors.Errorf("spirv: Sync at %d is not supported by this backend", ret)
	case ir.Shift:
		return errors.Errorf("spirv: Shift at %d is not supported by this backend", ret)

	case ir.JumpIfElse, ir.LoopMerge:
		return errors.Errorf("spirv: internal error: %T reached emitOperation directly", op)

	default:
		return errors.Errorf("spirv: unhandled operation %T", op)
	}
}

func (e *Emitter) boolConstant(v bool) uint32 {
	id := e.module.AllocID()
	builder := NewInstructionBuilder()
	builder.AddWord(e.spirvType(ir.Bool))
	builder.AddWord(id)
	opcode := OpConstantFalse
	if v {
		opcode = OpConstantTrue
	}
	e.module.types = append(e.module.types, builder.Build(opcode))
	return id
}

func (e *Emitter) emitArithmetic(left, right ir.Address, ret ir.Address, intOp, floatOp OpCode) error {
	typ := e.pairType(left, right)
	opcode := floatOp
	if typ == ir.Int {
		opcode = intOp
	}
	id := e.module.AddBinaryOp(opcode, e.spirvType(typ), e.Map(left), e.Map(right))
	e.valueMap[ret] = id
	return e.setType(ret, typ)
}

func (e *Emitter) emitComparison(left, right ir.Address, ret ir.Address, intOp, floatOp OpCode) error {
	typ := e.pairType(left, right)
	opcode := floatOp
	if typ == ir.Int {
		opcode = intOp
	}
	id := e.module.AddBinaryOp(opcode, e.spirvType(ir.Bool), e.Map(left), e.Map(right))
	e.valueMap[ret] = id
	return e.setType(ret, ir.Bool)
}

// emitEquality handles Eq/Neq. Scalars compare directly; vectors reduce a
// component-wise FOrdEqual/FOrdNotEqual via OpAll/OpAny to a scalar bool.
func (e *Emitter) emitEquality(left, right ir.Address, ret ir.Address, wantEqual bool) error {
	typ := e.pairType(left, right)
	boolType := e.spirvType(ir.Bool)

	var opcode OpCode
	switch typ {
	case ir.Bool:
		opcode = OpLogicalEqual
		if !wantEqual {
			opcode = OpLogicalNotEqual
		}
	case ir.Int:
		opcode = OpIEqual
		if !wantEqual {
			opcode = OpINotEqual
		}
	case ir.Float:
		opcode = OpFOrdEqual
		if !wantEqual {
			opcode = OpFOrdNotEqual
		}
	case ir.Vec2, ir.Vec3, ir.Vec4:
		cmp := OpFOrdEqual
		reduce := OpAll
		if !wantEqual {
			cmp = OpFOrdNotEqual
			reduce = OpAny
		}
		lanes := e.module.AddBinaryOp(cmp, e.boolVectorType(typ), e.Map(left), e.Map(right))
		id := e.module.AddUnaryOp(reduce, boolType, lanes)
		e.valueMap[ret] = id
		return e.setType(ret, ir.Bool)
	default:
		return errors.Errorf("spirv: equality on unresolved type at %d", ret)
	}

	id := e.module.AddBinaryOp(opcode, boolType, e.Map(left), e.Map(right))
	e.valueMap[ret] = id
	return e.setType(ret, ir.Bool)
}

func (e *Emitter) emitInvoke(fn ir.StdFunction, ret ir.Address) error {
	op, operands, err := glslInstruction(fn)
	if err != nil {
		return err
	}

	argType := e.singleType(operands[0])
	resultType := e.spirvType(argType)
	instruction := op.resolve(argType)

	ids := make([]uint32, len(operands))
	for i, addr := range operands {
		ids[i] = e.Map(addr)
	}

	id := e.module.AddExtInst(resultType, e.glslID, instruction, ids...)
	e.valueMap[ret] = id
	return e.setType(ret, argType)
}
