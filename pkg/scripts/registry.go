package scripts

import (
	"cgibox/pkg/cgi"
	"cgibox/pkg/models"
	"cgibox/pkg/utils/logger"
	"io"
	"sort"
	"strings"
	"time"
)

// Handler turns one CGI request into one response. Handlers keep no state between calls.
type Handler func(req *cgi.Request) *cgi.Response

type Registry struct {
	handlers map[string]Handler
}

func NewRegistry(log *logger.Logger, slowDelay time.Duration) *Registry {
	if slowDelay <= 0 {
		slowDelay = DEFAULT_SLOW_DELAY
	}
	return &Registry{
		handlers: map[string]Handler{
			models.SCRIPT_CALC: NewArithmetic(log),
			models.SCRIPT_ECHO: NewEcho(log),
			models.SCRIPT_SLOW: NewSlow(slowDelay),
		},
	}
}

func (r *Registry) Lookup(name string) (Handler, bool) {
	h, ok := r.handlers[strings.ToLower(name)]
	return h, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Serve runs one CGI invocation end to end: meta-variables from env, body from stdin,
// response to stdout.
func Serve(h Handler, env cgi.Env, stdin io.Reader, stdout io.Writer) error {
	resp := h(cgi.NewRequest(env, stdin))
	_, err := resp.WriteTo(stdout)
	return err
}
