package calc

import (
	"fmt"
	"math"
	"math/big"
	"strings"
)

type Op string

const (
	OP_ADD Op = "add"
	OP_SUB Op = "sub"
	OP_MUL Op = "mul"
	OP_DIV Op = "div"
	OP_MOD Op = "mod"
	OP_POW Op = "pow"
)

// MAX_POW_BITS bounds the size of an exact integer power.
const MAX_POW_BITS = 1 << 22

var opAliases = map[string]Op{
	"add": OP_ADD, "+": OP_ADD,
	"sub": OP_SUB, "-": OP_SUB,
	"mul": OP_MUL, "*": OP_MUL, "x": OP_MUL,
	"div": OP_DIV, "/": OP_DIV,
	"mod": OP_MOD, "%": OP_MOD,
	"pow": OP_POW, "^": OP_POW,
}

// ParseOp resolves an operator word or symbol, ignoring case.
func ParseOp(token string) (Op, error) {
	op, ok := opAliases[strings.ToLower(token)]
	if !ok {
		return "", ErrUnsupportedOperation
	}
	return op, nil
}

// Compute applies op to two operands of the same kind.
func Compute(x, y Number, op Op) (Number, error) {
	if x.kind != y.kind {
		return Number{}, fmt.Errorf("%w: mixed operand kinds", ErrInternal)
	}

	switch op {
	case OP_ADD, OP_SUB, OP_MUL:
		return arith(x, y, op), nil
	case OP_DIV:
		if y.IsZero() {
			return Number{}, ErrDivisionByZero
		}
		return divide(x, y)
	case OP_MOD:
		if y.IsZero() {
			return Number{}, ErrModuloByZero
		}
		return modulo(x, y), nil
	case OP_POW:
		return power(x, y)
	}
	return Number{}, ErrUnsupportedOperation
}

func arith(x, y Number, op Op) Number {
	if x.IsInt() {
		r := new(big.Int)
		switch op {
		case OP_ADD:
			r.Add(x.i, y.i)
		case OP_SUB:
			r.Sub(x.i, y.i)
		case OP_MUL:
			r.Mul(x.i, y.i)
		}
		return IntOf(r)
	}

	switch op {
	case OP_ADD:
		return FloatOf(x.f + y.f)
	case OP_SUB:
		return FloatOf(x.f - y.f)
	default:
		return FloatOf(x.f * y.f)
	}
}

// divide always produces a true quotient, even for two integers.
func divide(x, y Number) (Number, error) {
	if !x.IsInt() {
		return FloatOf(x.f / y.f), nil
	}

	q, _ := new(big.Rat).SetFrac(x.i, y.i).Float64()
	if math.IsInf(q, 0) {
		return Number{}, fmt.Errorf("%w: integer quotient too large for a float", ErrInternal)
	}
	return FloatOf(q), nil
}

// modulo is floored: a non-zero result takes the sign of the divisor.
func modulo(x, y Number) Number {
	if x.IsInt() {
		m := new(big.Int).Rem(x.i, y.i)
		if m.Sign() != 0 && m.Sign() != y.i.Sign() {
			m.Add(m, y.i)
		}
		return IntOf(m)
	}

	m := math.Mod(x.f, y.f)
	if m != 0 {
		if (y.f < 0) != (m < 0) {
			m += y.f
		}
	} else {
		m = math.Copysign(0, y.f)
	}
	return FloatOf(m)
}

func power(x, y Number) (Number, error) {
	if x.IsInt() && y.i.Sign() >= 0 {
		return intPower(x.i, y.i)
	}

	base, exp := x.Float(), y.Float()
	if x.IsInt() && (math.IsInf(base, 0) || math.IsInf(exp, 0)) {
		return Number{}, fmt.Errorf("%w: integer too large to convert to float", ErrInternal)
	}
	if exp == 0 {
		return FloatOf(1), nil
	}
	// 0 ** -inf is inf; only finite negative exponents are rejected
	if base == 0 && exp < 0 && !math.IsInf(exp, -1) {
		return Number{}, ErrNegativePowerOfZero
	}

	r := math.Pow(base, exp)
	if math.IsInf(r, 0) && !math.IsInf(base, 0) && !math.IsInf(exp, 0) {
		return Number{}, fmt.Errorf("%w: float power out of range", ErrInternal)
	}
	return FloatOf(r), nil
}

func intPower(base, exp *big.Int) (Number, error) {
	if base.CmpAbs(big.NewInt(1)) > 0 {
		if !exp.IsInt64() || exp.Int64() > MAX_POW_BITS || uint64(base.BitLen())*uint64(exp.Int64()) > MAX_POW_BITS {
			return Number{}, fmt.Errorf("%w: integer power exceeds %d bits", ErrInternal, MAX_POW_BITS)
		}
	}
	return IntOf(new(big.Int).Exp(base, exp, nil)), nil
}
