package cgi

import (
	"github.com/valyala/fasthttp"
)

// Params holds url-encoded form values in the order they appeared. Blank values are kept.
type Params map[string][]string

// ParseParams decodes application/x-www-form-urlencoded text.
func ParseParams(src []byte) Params {
	var args fasthttp.Args
	args.ParseBytes(src)

	params := make(Params, args.Len())
	args.VisitAll(func(key, value []byte) {
		name := DecodeText(key)
		params[name] = append(params[name], DecodeText(value))
	})
	return params
}

// First returns the first value stored under name, or def when there is none.
func (p Params) First(name, def string) string {
	values := p[name]
	if len(values) == 0 {
		return def
	}
	return values[0]
}
