package gateway

import (
	"bytes"
	"cgibox/pkg/cgi"
	"cgibox/pkg/scripts"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

var (
	ErrScriptTimeout  = errors.New("cgi script exceeded its execution timeout")
	ErrOutputTooLarge = errors.New("cgi script output too large")
	ErrScriptStart    = errors.New("cgi script failed to start")
	ErrScriptCrashed  = errors.New("cgi script crashed")
)

// limitedBuffer keeps at most max bytes. Anything past that is drained and
// flagged so the writer never blocks on a full pipe.
type limitedBuffer struct {
	buf      bytes.Buffer
	max      int
	overflow bool
}

func (lb *limitedBuffer) Write(p []byte) (int, error) {
	if lb.overflow {
		return len(p), nil
	}
	if lb.max > 0 && lb.buf.Len()+len(p) > lb.max {
		lb.overflow = true
		return len(p), nil
	}
	return lb.buf.Write(p)
}

// buildEnv derives the RFC 3875 meta-variables for the request.
func (engine *GatewayEngine) buildEnv(ctx *fasthttp.RequestCtx) cgi.MapEnv {
	env := cgi.MapEnv{
		"GATEWAY_INTERFACE":    "CGI/1.1",
		"SERVER_SOFTWARE":      "cgibox",
		"SERVER_NAME":          engine.config.Server.Name,
		"SERVER_PORT":          strconv.Itoa(int(engine.config.Server.Port)),
		"SERVER_PROTOCOL":      string(ctx.Request.Header.Protocol()),
		"REMOTE_ADDR":          ctx.RemoteIP().String(),
		"SCRIPT_NAME":          string(ctx.Path()),
		"PATH_INFO":            string(ctx.Path()),
		cgi.ENV_REQUEST_METHOD: string(ctx.Method()),
		cgi.ENV_QUERY_STRING:   string(ctx.URI().QueryString()),
		cgi.ENV_CONTENT_LENGTH: strconv.Itoa(len(ctx.PostBody())),
		scripts.ENV_SLOW_DELAY: engine.config.Cgi.SlowDelay.String(),
	}
	if ct := ctx.Request.Header.ContentType(); len(ct) > 0 {
		env[cgi.ENV_CONTENT_TYPE] = string(ct)
	}

	ctx.Request.Header.VisitAll(func(key, value []byte) {
		name := strings.ToUpper(strings.ReplaceAll(string(key), "-", "_"))
		env["HTTP_"+name] = string(value)
	})
	return env
}

// runExec forks the route's program, feeds it the body and kills it once the
// route timeout passes.
func (engine *GatewayEngine) runExec(ctx *fasthttp.RequestCtx, cr *compiledRoute) (*cgi.Output, error) {
	runCtx, cancel := context.WithTimeout(context.Background(), cr.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, cr.Command, cr.Args...)
	cmd.Env = envList(engine.buildEnv(ctx))
	cmd.Stdin = bytes.NewReader(ctx.PostBody())
	cmd.WaitDelay = time.Second

	stdout := &limitedBuffer{max: engine.config.Cgi.MaxOutputBytes}
	stderr := &limitedBuffer{max: 16 * 1024}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	engine.logger.Info(fmt.Sprintf("Running %s %s for route %s", cr.Command, strings.Join(cr.Args, " "), cr.Route.Name))
	err := cmd.Run()

	if stderr.buf.Len() > 0 {
		engine.logger.Warn(fmt.Sprintf("Route %s stderr: %s", cr.Route.Name, strings.TrimSpace(stderr.buf.String())))
	}

	if runTimedOut(runCtx, err) {
		return nil, ErrScriptTimeout
	}
	if stdout.overflow {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrOutputTooLarge, stdout.max)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w: %v", ErrScriptStart, err)
		}
		// a non-zero exit still counts when the program produced a response
		engine.logger.Warn(fmt.Sprintf("Route %s exited with status %d", cr.Route.Name, exitErr.ExitCode()))
	}

	return cgi.ParseOutput(stdout.buf.Bytes(), engine.config.Cgi.MaxHeaderBytes)
}

// runTimedOut reports whether the program was killed by the deadline. One that
// exited cleanly just before the deadline fired is not a timeout.
func runTimedOut(runCtx context.Context, runErr error) bool {
	return runErr != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded)
}

type inlineResult struct {
	raw []byte
	err error
}

// runInline serves the route's script in-process. On timeout the handler goroutine
// is abandoned; it finishes on its own.
func (engine *GatewayEngine) runInline(ctx *fasthttp.RequestCtx, cr *compiledRoute) (*cgi.Output, error) {
	env := engine.buildEnv(ctx)
	body := append([]byte(nil), ctx.PostBody()...)

	done := make(chan inlineResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- inlineResult{err: fmt.Errorf("%w: %v", ErrScriptCrashed, r)}
			}
		}()

		stdout := &limitedBuffer{max: engine.config.Cgi.MaxOutputBytes}
		err := scripts.Serve(cr.Handler, env, bytes.NewReader(body), stdout)
		if stdout.overflow {
			err = fmt.Errorf("%w: limit %d bytes", ErrOutputTooLarge, stdout.max)
		}
		done <- inlineResult{raw: stdout.buf.Bytes(), err: err}
	}()

	timer := time.NewTimer(cr.Timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		return cgi.ParseOutput(res.raw, engine.config.Cgi.MaxHeaderBytes)
	case <-timer.C:
		return nil, ErrScriptTimeout
	}
}

func envList(env cgi.MapEnv) []string {
	list := make([]string, 0, len(env)+1)
	if path, ok := os.LookupEnv("PATH"); ok {
		list = append(list, "PATH="+path)
	}
	for k, v := range env {
		list = append(list, k+"="+v)
	}
	return list
}
