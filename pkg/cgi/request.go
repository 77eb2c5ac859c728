package cgi

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

const (
	ENV_REQUEST_METHOD = "REQUEST_METHOD"
	ENV_QUERY_STRING   = "QUERY_STRING"
	ENV_CONTENT_LENGTH = "CONTENT_LENGTH"
	ENV_CONTENT_TYPE   = "CONTENT_TYPE"
)

// Env resolves CGI meta-variables.
type Env interface {
	LookupEnv(name string) (string, bool)
}

// OSEnv reads meta-variables from the process environment.
type OSEnv struct{}

func (OSEnv) LookupEnv(name string) (string, bool) {
	return os.LookupEnv(name)
}

// MapEnv serves meta-variables from a map, used when a script runs in-process.
type MapEnv map[string]string

func (m MapEnv) LookupEnv(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// Request is a single CGI invocation. The body is consumed lazily and at most once.
type Request struct {
	Method        string
	Query         string
	ContentLength int
	Env           Env

	methodSet bool
	stdin     io.Reader
	bodyOnce  sync.Once
	body      []byte
	bodyErr   error
}

// NewRequest builds a request from meta-variables and the body stream.
// A missing or malformed CONTENT_LENGTH is treated as zero.
func NewRequest(env Env, stdin io.Reader) *Request {
	method, methodSet := env.LookupEnv(ENV_REQUEST_METHOD)
	query, _ := env.LookupEnv(ENV_QUERY_STRING)

	return &Request{
		Method:        method,
		methodSet:     methodSet,
		Query:         query,
		ContentLength: ParseContentLength(env),
		Env:           env,
		stdin:         stdin,
	}
}

// MethodOr returns the request method, or def when REQUEST_METHOD was not set at all.
func (r *Request) MethodOr(def string) string {
	if !r.methodSet {
		return def
	}
	return r.Method
}

// ParseContentLength returns the declared body length, or 0 when it is absent or not an integer.
func ParseContentLength(env Env) int {
	raw, ok := env.LookupEnv(ENV_CONTENT_LENGTH)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}

// Body returns up to ContentLength bytes of the request body. It never reads past the
// declared length, and an early EOF ends the read with whatever arrived.
func (r *Request) Body() ([]byte, error) {
	r.bodyOnce.Do(func() {
		if r.ContentLength <= 0 || r.stdin == nil {
			r.body = []byte{}
			return
		}

		data, err := io.ReadAll(io.LimitReader(r.stdin, int64(r.ContentLength)))
		if err != nil {
			r.bodyErr = fmt.Errorf("failed to read request body: %w", err)
		}
		r.body = data
	})
	return r.body, r.bodyErr
}
