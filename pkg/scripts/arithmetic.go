package scripts

import (
	"cgibox/pkg/calc"
	"cgibox/pkg/cgi"
	"cgibox/pkg/utils/logger"
	"errors"
	"fmt"
	"strings"
)

const (
	USAGE_BODY          = "error: missing parameter x or y\nusage: x, y, op (add, sub, mul, div, mod, pow)\n"
	INTERNAL_ERROR_BODY = "error: internal server error\n"
)

var clientErrors = []error{
	calc.ErrInvalidNumber,
	calc.ErrUnsupportedOperation,
	calc.ErrDivisionByZero,
	calc.ErrModuloByZero,
	calc.ErrNegativePowerOfZero,
}

// NewArithmetic returns the calculator script. Parameters come from the query string
// for GET and from the bounded request body for every other method.
func NewArithmetic(log *logger.Logger) Handler {
	return func(req *cgi.Request) (resp *cgi.Response) {
		defer func() {
			if r := recover(); r != nil {
				log.Error(fmt.Sprintf("calc: recovered from panic: %v", r))
				resp = cgi.NewResponse(500, INTERNAL_ERROR_BODY)
			}
		}()

		method := strings.ToUpper(req.MethodOr("GET"))

		params, err := arithmeticParams(method, req)
		if err != nil {
			log.Error(fmt.Sprintf("calc: %v", err))
			return cgi.NewResponse(500, INTERNAL_ERROR_BODY)
		}

		x := params.First("x", "")
		y := params.First("y", "")
		op := strings.ToLower(params.First("op", "add"))

		if x == "" || y == "" {
			log.Debug("calc: missing operand")
			return cgi.NewResponse(400, USAGE_BODY)
		}

		result, err := evaluate(x, y, op)
		if err != nil {
			if msg, ok := clientMessage(err); ok {
				log.Debug(fmt.Sprintf("calc: rejected %s %s %s: %s", x, op, y, msg))
				return cgi.NewResponse(400, "error: "+msg+"\n")
			}
			log.Error(fmt.Sprintf("calc: %s %s %s failed: %v", x, op, y, err))
			return cgi.NewResponse(500, INTERNAL_ERROR_BODY)
		}

		body := "method=" + method + "\n" +
			"x=" + x + "\n" +
			"y=" + y + "\n" +
			"op=" + op + "\n" +
			"result=" + calc.Format(result) + "\n"
		return cgi.NewResponse(200, body)
	}
}

func arithmeticParams(method string, req *cgi.Request) (cgi.Params, error) {
	if method == "GET" {
		return cgi.ParseParams([]byte(req.Query)), nil
	}

	body, err := req.Body()
	if err != nil {
		return nil, err
	}
	return cgi.ParseParams(body), nil
}

// evaluate parses operands before the operator, so a bad number wins over a bad op.
func evaluate(a, b, token string) (calc.Number, error) {
	x, y, err := calc.ParseOperands(a, b)
	if err != nil {
		return calc.Number{}, err
	}
	op, err := calc.ParseOp(token)
	if err != nil {
		return calc.Number{}, err
	}
	return calc.Compute(x, y, op)
}

func clientMessage(err error) (string, bool) {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return target.Error(), true
		}
	}
	return "", false
}
