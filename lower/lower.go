// Package lower walks a parsed ast.Pipeline and emits a flat ir.PipelineIR
// using package builder, following the algorithm of
// octo::tac_ir::emit_ir_from_ast.
package lower

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/gogpu/pipeline/ast"
	"github.com/gogpu/pipeline/builder"
	"github.com/gogpu/pipeline/ir"
	"github.com/gogpu/pipeline/scope"
)

// ErrScaleNotImplemented is returned when lowering encounters a ScaleExpr;
// the original compiler never finished this operation either.
var ErrScaleNotImplemented = errors.New("scale expression is not implemented")

func toValueType(t ast.Type) ir.ValueType {
	switch t {
	case ast.TypeFloat:
		return ir.Float
	case ast.TypeInt:
		return ir.Int
	case ast.TypeBool:
		return ir.Bool
	case ast.TypeVec2:
		return ir.Vec2
	case ast.TypeVec3:
		return ir.Vec3
	case ast.TypeVec4:
		return ir.Vec4
	default:
		return ir.Unknown
	}
}

// Lower translates p into a PipelineIR, or returns an error for unsupported
// constructs (currently only ScaleExpr). Name resolution runs alongside
// emission: a *scope.Table tracks what's visible at each point, the same
// arena octo::semantics::env builds, so a duplicate or undefined name fails
// lowering before it can reach builder.Code as a bad address.
func Lower(p ast.Pipeline) (*ir.PipelineIR, error) {
	code := builder.New()
	table := scope.NewTable()
	root := table.Global()

	inputs := make([]ir.InputParam, 0, len(p.Arguments))
	for i, arg := range p.Arguments {
		if err := table.CreateVariable(root, arg.Identifier.Val, arg.Type, arg.Identifier.Span); err != nil {
			return nil, errors.Wrap(err, "lower: duplicate pipeline argument")
		}
		addr := code.Push(ir.Arg{Index: i})
		code.Store(arg.Identifier.Val, addr, false)
		inputs = append(inputs, ir.InputParam{Name: arg.Identifier.Val, Type: toValueType(arg.Type)})
	}

	logrus.WithField("pipeline", p.Name.Val).Debug("lower: emitting block")
	if err := emitBlock(p.Block, code, table, root); err != nil {
		return nil, err
	}

	outputs := make([]ir.ValueType, len(p.Results))
	for i, r := range p.Results {
		outputs[i] = toValueType(r.Type)
	}

	return code.Finish(inputs, outputs), nil
}

func emitBlock(block ast.Block, code *builder.Code, table *scope.Table, sc scope.ID) error {
	for _, stmt := range block.Statements {
		if err := emitStatement(stmt, code, table, sc); err != nil {
			return err
		}
	}
	return nil
}

func emitStatement(stmt ast.Statement, code *builder.Code, table *scope.Table, sc scope.ID) error {
	switch s := stmt.(type) {
	case ast.ExpressionStatement:
		_, err := emitExpression(s.Expr, code, table, sc)
		return err

	case ast.ReturnStatement:
		addr, err := emitExpression(s.Expr, code, table, sc)
		if err != nil {
			return err
		}
		code.Exit(addr)
		return nil

	case ast.AssignStatement:
		addr, err := emitExpression(s.Expr, code, table, sc)
		if err != nil {
			return err
		}
		name := s.Target.Identifier.Val
		if s.Create {
			if err := table.CreateVariable(sc, name, s.Target.Type, s.Target.Identifier.Span); err != nil {
				return errors.Wrapf(err, "lower: declaring %q", name)
			}
		} else if _, ok := table.UseVariable(sc, name); !ok {
			return errors.Errorf("lower: assignment to undefined variable %q", name)
		}
		addr = code.Push(ir.Store{Value: addr})
		code.Store(name, addr, s.Create)
		return nil

	case ast.ForStatement:
		return emitFor(s, code, table, sc)

	case ast.IfElseStatement:
		return emitIfElse(s, code, table, sc)

	default:
		return errors.Errorf("lower: unhandled statement type %T", stmt)
	}
}

func emitFor(s ast.ForStatement, code *builder.Code, table *scope.Table, sc scope.ID) error {
	loopScope := table.Child(sc)
	if err := emitStatement(s.Init, code, table, loopScope); err != nil {
		return err
	}

	conditionLabel := code.NewLabel()
	contentLabel := code.NewLabel()
	endLabel := code.NewLabel()

	// contentLabel doubles as both body and continue target: the step
	// statement is folded into the same block as the body, so the block
	// holding the back-edge jump also holds the last loop-carried update.
	code.Push(ir.LoopMerge{MergeLabel: endLabel, ContinueLabel: contentLabel})
	code.Push(ir.Jump{Target: conditionLabel})

	oldPhi := code.ObserveAssignments()
	code.PushWithLabel(ir.Label{}, contentLabel)
	beforeSize := code.CodeSize()

	if err := emitBlock(s.Body, code, table, loopScope); err != nil {
		return err
	}
	if err := emitStatement(s.Step, code, table, loopScope); err != nil {
		return err
	}

	phiAssignments := code.FinishObserving(oldPhi)
	afterSize := code.CodeSize()

	code.Push(ir.Jump{Target: conditionLabel})
	code.PushWithLabel(ir.Label{}, conditionLabel)

	for _, name := range sortedKeys(phiAssignments) {
		phi := phiAssignments[name]
		address := code.Push(ir.Phi{Record: phi})
		code.Store(name, address, false)
		code.ReplaceLabel(beforeSize, afterSize, phi.Old, address)
	}

	cond, err := emitExpression(s.Cond, code, table, loopScope)
	if err != nil {
		return err
	}
	code.Push(ir.JumpIfElse{Cond: cond, Then: contentLabel, Else: endLabel})
	code.PushWithLabel(ir.Label{}, endLabel)
	return nil
}

func emitIfElse(s ast.IfElseStatement, code *builder.Code, table *scope.Table, sc scope.ID) error {
	cond, err := emitExpression(s.Cond, code, table, sc)
	if err != nil {
		return err
	}

	ifLabel := code.NewLabel()
	elseLabel := code.NewLabel()
	endLabel := code.NewLabel()

	thenTarget := endLabel
	if s.Else != nil {
		thenTarget = elseLabel
	}
	code.Push(ir.JumpIfElse{Cond: cond, Then: ifLabel, Else: thenTarget})

	thenScope := table.Child(sc)
	oldPhi := code.ObserveAssignments()
	code.PushWithLabel(ir.Label{}, ifLabel)
	if err := emitBlock(s.Then, code, table, thenScope); err != nil {
		return err
	}
	trueAssignments := code.FinishObserving(oldPhi)
	code.Push(ir.Jump{Target: endLabel})

	var falseAssignments builder.PhiCollection
	if s.Else != nil {
		elseScope := table.Child(sc)
		oldPhi = code.ObserveAssignments()
		code.PushWithLabel(ir.Label{}, elseLabel)
		if err := emitBlock(*s.Else, code, table, elseScope); err != nil {
			return err
		}
		falseAssignments = code.FinishObserving(oldPhi)
		code.Push(ir.Jump{Target: endLabel})
	}

	code.PushWithLabel(ir.Label{}, endLabel)

	merged := selectPhiOperations(trueAssignments, falseAssignments)
	for _, name := range sortedKeys(merged) {
		address := code.Push(ir.Phi{Record: merged[name]})
		code.Store(name, address, false)
	}
	return nil
}

// selectPhiOperations merges the true and false branch's phi collections:
// a name reassigned on both branches takes its "old" value from the true
// branch's new value, so the merge reflects whichever branch actually ran.
func selectPhiOperations(trueBlock, falseBlock builder.PhiCollection) builder.PhiCollection {
	results := make(builder.PhiCollection, len(trueBlock))
	for k, v := range trueBlock {
		results[k] = v
	}

	for key, record := range falseBlock {
		if truePhi, ok := results[key]; ok {
			record.Old = truePhi.New
			record.OldLabel = truePhi.Label
		}
		results[key] = record
	}
	return results
}

func sortedKeys(m builder.PhiCollection) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func emitExpression(expr ast.Expression, code *builder.Code, table *scope.Table, sc scope.ID) (ir.Address, error) {
	switch e := expr.(type) {
	case ast.VariableExpr:
		name := e.Identifier.Val
		if _, ok := table.UseVariable(sc, name); !ok {
			return 0, errors.Errorf("lower: undefined variable %q", name)
		}
		addr, err := code.Get(name)
		if err != nil {
			return 0, errors.Wrapf(err, "lower: resolving %q", name)
		}
		return addr, nil

	case ast.IntLiteral:
		return code.StoreConstant(ir.ConstInt64{Value: e.Val}), nil

	case ast.FloatLiteral:
		return code.StoreConstant(ir.ConstFloat64{Value: e.Val}), nil

	case ast.NegationExpr:
		addr, err := emitExpression(e.Expr, code, table, sc)
		if err != nil {
			return 0, err
		}
		return code.Push(ir.Neg{Operand: addr}), nil

	case ast.BinaryExpr:
		return emitBinary(e, code, table, sc)

	case ast.ShiftExpr:
		shifted, err := emitExpression(e.Shifted, code, table, sc)
		if err != nil {
			return 0, err
		}
		shiftBy, err := emitExpression(e.ShiftBy, code, table, sc)
		if err != nil {
			return 0, err
		}
		synced := code.Synchronize(shifted)
		return code.Push(ir.Shift{Left: synced, Right: shiftBy}), nil

	case ast.ScaleExpr:
		return 0, ErrScaleNotImplemented

	default:
		return 0, errors.Errorf("lower: unhandled expression type %T", expr)
	}
}

func emitBinary(e ast.BinaryExpr, code *builder.Code, table *scope.Table, sc scope.ID) (ir.Address, error) {
	left, err := emitExpression(e.Left, code, table, sc)
	if err != nil {
		return 0, err
	}
	right, err := emitExpression(e.Right, code, table, sc)
	if err != nil {
		return 0, err
	}

	switch e.Op {
	case ast.OpAdd:
		return code.Push(ir.Add{Left: left, Right: right}), nil
	case ast.OpSub:
		return code.Push(ir.Sub{Left: left, Right: right}), nil
	case ast.OpMul:
		return code.Push(ir.Mul{Left: left, Right: right}), nil
	case ast.OpDiv:
		return code.Push(ir.Div{Left: left, Right: right}), nil
	case ast.OpLess:
		return code.Push(ir.Less{Left: left, Right: right}), nil
	case ast.OpLessEqual:
		return code.Push(ir.LessEq{Left: left, Right: right}), nil
	case ast.OpMore:
		return code.Push(ir.Less{Left: right, Right: left}), nil
	case ast.OpMoreEqual:
		return code.Push(ir.LessEq{Left: right, Right: left}), nil
	case ast.OpEquals:
		return code.Push(ir.Eq{Left: left, Right: right}), nil
	case ast.OpNotEquals:
		return code.Push(ir.Neq{Left: left, Right: right}), nil
	case ast.OpAnd:
		return code.Push(ir.And{Left: left, Right: right}), nil
	case ast.OpOr:
		return code.Push(ir.Or{Left: left, Right: right}), nil
	default:
		return 0, errors.Errorf("lower: unhandled binary operator %v", e.Op)
	}
}
