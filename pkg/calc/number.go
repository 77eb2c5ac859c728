package calc

import (
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode"
)

type Kind int

const (
	KindInt Kind = iota
	KindFloat
)

// Number is either an arbitrary precision integer or a float64. Which one is
// decided once, when the operands are parsed.
type Number struct {
	kind Kind
	i    *big.Int
	f    float64
}

func IntOf(v *big.Int) Number {
	return Number{kind: KindInt, i: v}
}

func FloatOf(v float64) Number {
	return Number{kind: KindFloat, f: v}
}

func (n Number) Kind() Kind {
	return n.kind
}

func (n Number) IsInt() bool {
	return n.kind == KindInt
}

// Int returns the integer value. It is only meaningful when IsInt is true.
func (n Number) Int() *big.Int {
	return n.i
}

// Float returns the value as a float64. Integers too large for float64 yield ±Inf.
func (n Number) Float() float64 {
	if n.kind == KindFloat {
		return n.f
	}
	f, _ := new(big.Float).SetInt(n.i).Float64()
	return f
}

func (n Number) IsZero() bool {
	if n.kind == KindInt {
		return n.i.Sign() == 0
	}
	return n.f == 0
}

func (n Number) String() string {
	return Format(n)
}

// ParseOperands coerces both operand strings to the same kind. A decimal point in
// either forces floats; otherwise integers are tried first and floats are the fallback.
func ParseOperands(a, b string) (Number, Number, error) {
	a, b = asciiDigits(strings.TrimSpace(a)), asciiDigits(strings.TrimSpace(b))

	if !strings.Contains(a, ".") && !strings.Contains(b, ".") {
		x, okX := parseInt(a)
		y, okY := parseInt(b)
		if okX && okY {
			return IntOf(x), IntOf(y), nil
		}
	}

	// ParseFloat would take Go's hex float syntax; operands are decimal only.
	if hasHexPrefix(a) || hasHexPrefix(b) {
		return Number{}, Number{}, ErrInvalidNumber
	}

	x, err := strconv.ParseFloat(a, 64)
	if err != nil && !isRangeErr(err) {
		return Number{}, Number{}, ErrInvalidNumber
	}
	y, err := strconv.ParseFloat(b, 64)
	if err != nil && !isRangeErr(err) {
		return Number{}, Number{}, ErrInvalidNumber
	}
	return FloatOf(x), FloatOf(y), nil
}

func parseInt(s string) (*big.Int, bool) {
	if s == "" {
		return nil, false
	}
	return new(big.Int).SetString(s, 10)
}

func hasHexPrefix(s string) bool {
	if s != "" && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

// asciiDigits rewrites non-ASCII decimal digits, such as full-width or
// Arabic-Indic ones, as their ASCII equivalents.
func asciiDigits(s string) string {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] > unicode.MaxASCII {
			ascii = false
			break
		}
	}
	if ascii {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if r > unicode.MaxASCII && unicode.IsDigit(r) {
			sb.WriteByte(byte('0' + digitValue(r)))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// digitValue relies on decimal digits being encoded in contiguous 0..9 runs.
func digitValue(r rune) int {
	start := r
	for unicode.IsDigit(start - 1) {
		start--
	}
	return int(r-start) % 10
}

// Out-of-range literals still parse to ±Inf or 0, matching IEEE semantics.
func isRangeErr(err error) bool {
	numErr, ok := err.(*strconv.NumError)
	return ok && numErr.Err == strconv.ErrRange
}

// Format renders integral floats as plain integers and other floats with the
// shortest round-trip precision.
func Format(n Number) string {
	if n.kind == KindInt {
		return n.i.String()
	}

	f := n.f
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}

	if f == math.Trunc(f) {
		i, _ := new(big.Float).SetFloat64(f).Int(nil)
		return i.String()
	}

	abs := math.Abs(f)
	if abs < 1e-4 || abs >= 1e16 {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
