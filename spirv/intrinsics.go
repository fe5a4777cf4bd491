package spirv

import (
	"github.com/pkg/errors"

	"github.com/gogpu/pipeline/ir"
)

// glslOp is one resolved intrinsic dispatch: either a single extended
// instruction number, or a pair to choose between by operand kind.
type glslOp struct {
	selected  bool
	intNumber uint32
	number    uint32
}

func single(n uint32) glslOp { return glslOp{number: n} }

func selectedByKind(intNumber, floatNumber uint32) glslOp {
	return glslOp{selected: true, intNumber: intNumber, number: floatNumber}
}

// resolve picks the extended instruction number for typ, an Int or Float
// value type (the only two kinds GLSL.std.450 scalar/family selection
// distinguishes in this intrinsic set).
func (g glslOp) resolve(typ ir.ValueType) uint32 {
	if g.selected && typ == ir.Int {
		return g.intNumber
	}
	return g.number
}

// glslInstruction maps a StdFunction variant to its GLSL.std.450 dispatch.
// The table is closed: an unrecognised variant is a compiler-internal bug,
// not a user-facing error, since StdFunction itself is a closed interface
// enumerated at compile time.
func glslInstruction(fn ir.StdFunction) (glslOp, []ir.Address, error) {
	switch f := fn.(type) {
	case ir.FnRound:
		return single(1), []ir.Address{f.Arg}, nil
	case ir.FnTrunc:
		return single(3), []ir.Address{f.Arg}, nil
	case ir.FnAbs:
		return selectedByKind(5, 4), []ir.Address{f.Arg}, nil
	case ir.FnSign:
		return selectedByKind(7, 6), []ir.Address{f.Arg}, nil
	case ir.FnFloor:
		return single(8), []ir.Address{f.Arg}, nil
	case ir.FnCeil:
		return single(9), []ir.Address{f.Arg}, nil
	case ir.FnFract:
		return single(10), []ir.Address{f.Arg}, nil
	case ir.FnRadians:
		return single(11), []ir.Address{f.Arg}, nil
	case ir.FnDegrees:
		return single(12), []ir.Address{f.Arg}, nil
	case ir.FnSin:
		return single(13), []ir.Address{f.Arg}, nil
	case ir.FnCos:
		return single(14), []ir.Address{f.Arg}, nil
	case ir.FnTan:
		return single(15), []ir.Address{f.Arg}, nil
	case ir.FnAsin:
		return single(16), []ir.Address{f.Arg}, nil
	case ir.FnAcos:
		return single(17), []ir.Address{f.Arg}, nil
	case ir.FnAtan:
		return single(18), []ir.Address{f.Arg}, nil
	case ir.FnSinh:
		return single(19), []ir.Address{f.Arg}, nil
	case ir.FnCosh:
		return single(20), []ir.Address{f.Arg}, nil
	case ir.FnTanh:
		return single(21), []ir.Address{f.Arg}, nil
	case ir.FnAsinh:
		return single(22), []ir.Address{f.Arg}, nil
	case ir.FnAcosh:
		return single(23), []ir.Address{f.Arg}, nil
	case ir.FnAtanh:
		return single(24), []ir.Address{f.Arg}, nil
	case ir.FnExp:
		return single(27), []ir.Address{f.Arg}, nil
	case ir.FnLog:
		return single(28), []ir.Address{f.Arg}, nil
	case ir.FnExp2:
		return single(29), []ir.Address{f.Arg}, nil
	case ir.FnLog2:
		return single(30), []ir.Address{f.Arg}, nil
	case ir.FnSqrt:
		return single(31), []ir.Address{f.Arg}, nil
	case ir.FnCross:
		return single(68), []ir.Address{f.Left, f.Right}, nil
	case ir.FnNormalize:
		return single(69), []ir.Address{f.Arg}, nil
	case ir.FnLength:
		return single(66), []ir.Address{f.Arg}, nil
	case ir.FnClamp:
		return selectedByKind(45, 43), []ir.Address{f.X, f.Min, f.Max}, nil
	case ir.FnMin:
		return selectedByKind(39, 37), []ir.Address{f.Left, f.Right}, nil
	case ir.FnMax:
		return selectedByKind(42, 40), []ir.Address{f.Left, f.Right}, nil
	case ir.FnAtan2:
		return single(25), []ir.Address{f.Y, f.X}, nil
	case ir.FnPow:
		return single(26), []ir.Address{f.Base, f.Exp}, nil
	default:
		return glslOp{}, nil, errors.Errorf("spirv: unhandled intrinsic %T", fn)
	}
}
