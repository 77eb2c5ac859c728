package gateway

import (
	"cgibox/pkg/cgi"
	"cgibox/pkg/utils/fs"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const routeUserValue = "cgibox.route"

func (engine *GatewayEngine) Run() {
	addr := fmt.Sprintf(":%d", engine.config.Server.Port)
	engine.logger.Info(fmt.Sprintf("Cgibox gateway starting on %s...", addr))

	if err := engine.storePid(); err != nil {
		engine.logger.Warn(fmt.Sprintf("Continuing without a PID file: %v", err))
	}

	server := &fasthttp.Server{
		Handler:            engine.Handler(),
		Name:               "cgibox",
		MaxRequestBodySize: engine.maxRequestBodySize(),
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(addr); err != nil {
			engine.logger.Error(fmt.Sprintf("Fatal server error: %v", err))
			os.Exit(1)
		}
	}()

	<-stop
	engine.logger.Info("Shutting down server...")
	if err := server.Shutdown(); err != nil {
		engine.logger.Error(fmt.Sprintf("Server shutdown error: %v", err))
	}
	if cerr := engine.cleanup(); cerr != nil {
		engine.logger.Error(fmt.Sprintf("Cleanup error: %v", cerr))
	}
}

// Handler is the full request pipeline, exposed for embedding and tests.
func (engine *GatewayEngine) Handler() fasthttp.RequestHandler {
	return engine.observeMiddleware(engine.handleRequest)
}

// observeMiddleware records the access log line and metrics once the request is answered.
func (engine *GatewayEngine) observeMiddleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		next(ctx)
		elapsed := time.Since(start)

		routeName, script, mode := "", "", ""
		if cr, ok := ctx.UserValue(routeUserValue).(*compiledRoute); ok {
			routeName, script, mode = cr.Route.Name, cr.Route.Script, cr.Route.Mode
			if engine.metrics != nil {
				engine.metrics.ObserveRequest(routeName, script, mode, ctx.Response.StatusCode(), elapsed)
			}
		}

		engine.accessLog.Info("request",
			zap.String("method", string(ctx.Method())),
			zap.String("path", string(ctx.Path())),
			zap.String("route", routeName),
			zap.String("mode", mode),
			zap.Int("status", ctx.Response.StatusCode()),
			zap.Int("bytes", len(ctx.Response.Body())),
			zap.Duration("duration", elapsed),
		)
	}
}

func (engine *GatewayEngine) handleRequest(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	method := string(ctx.Method())
	engine.logger.Info(fmt.Sprintf("Incoming request - Method: %s, Path: %s", method, path))

	if engine.metrics != nil && path == engine.config.Metrics.Path {
		engine.metrics.Handler()(ctx)
		return
	}

	cr, matched := engine.matchRoute(path)
	if !matched {
		engine.logger.Info(fmt.Sprintf("No route matched for %s %s", method, path))
		ctx.Error("Not Found", fasthttp.StatusNotFound)
		return
	}
	ctx.SetUserValue(routeUserValue, cr)

	if !cr.allowsMethod(method) {
		engine.logger.Info(fmt.Sprintf("Method %s not allowed on route %s", method, cr.Route.Name))
		ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
		ctx.Response.Header.Set("Allow", strings.ToUpper(strings.Join(cr.Route.Methods, ", ")))
		return
	}

	if len(ctx.PostBody()) > cr.MaxBodyBytes {
		engine.logger.Info(fmt.Sprintf("Body of %d bytes exceeds the %d byte limit of route %s", len(ctx.PostBody()), cr.MaxBodyBytes, cr.Route.Name))
		ctx.Error("Payload Too Large", fasthttp.StatusRequestEntityTooLarge)
		ctx.SetConnectionClose()
		return
	}

	var (
		out *cgi.Output
		err error
	)
	if cr.Handler != nil {
		out, err = engine.runInline(ctx, cr)
	} else {
		out, err = engine.runExec(ctx, cr)
	}
	if err != nil {
		engine.handleScriptError(ctx, cr, err)
		return
	}

	engine.writeOutput(ctx, out)
}

func (engine *GatewayEngine) matchRoute(path string) (*compiledRoute, bool) {
	for i := range engine.compiledRoutes {
		cr := &engine.compiledRoutes[i]

		if !cr.PathPattern.MatchString(path) {
			engine.logger.Debug(fmt.Sprintf("Route %q skipped: path pattern mismatch for %s", cr.Route.Path, path))
			continue
		}

		if cr.IncludeRegex != nil && !cr.IncludeRegex.MatchString(path) {
			engine.logger.Debug(fmt.Sprintf("Route %q skipped: include regex does not match path %s", cr.Route.Path, path))
			continue
		}

		if cr.ExcludeRegex != nil && cr.ExcludeRegex.MatchString(path) {
			engine.logger.Debug(fmt.Sprintf("Route %q skipped: exclude regex matches path %s", cr.Route.Path, path))
			continue
		}

		return cr, true
	}
	return nil, false
}

func (engine *GatewayEngine) handleScriptError(ctx *fasthttp.RequestCtx, cr *compiledRoute, err error) {
	switch {
	case errors.Is(err, ErrScriptTimeout):
		engine.logger.Warn(fmt.Sprintf("CGI timeout on route %s after %s", cr.Route.Name, cr.Timeout))
		if engine.metrics != nil {
			engine.metrics.ObserveTimeout(cr.Route.Name, cr.Route.Script)
		}
		ctx.Error("Gateway Timeout", fasthttp.StatusGatewayTimeout)
	default:
		engine.logger.Error(fmt.Sprintf("CGI failure on route %s: %v", cr.Route.Name, err))
		ctx.Error("Bad Gateway", fasthttp.StatusBadGateway)
	}
	ctx.SetConnectionClose()
}

// writeOutput copies the script's status, headers and body. Content-Length is
// recomputed from the body actually produced. Repeated headers such as Set-Cookie
// are all kept.
func (engine *GatewayEngine) writeOutput(ctx *fasthttp.RequestCtx, out *cgi.Output) {
	ctx.SetStatusCode(out.StatusCode)
	for _, h := range out.Headers {
		switch {
		case strings.EqualFold(h.Name, "Content-Length"):
			continue
		case strings.EqualFold(h.Name, "Content-Type"):
			ctx.Response.Header.Set(h.Name, h.Value)
		default:
			ctx.Response.Header.Add(h.Name, h.Value)
		}
	}
	ctx.SetConnectionClose()
	ctx.SetBody(out.Body)
}

func pidFilePath(storagePath string) string {
	return filepath.Join(storagePath, "cgibox.pid")
}

func (engine *GatewayEngine) pidPath() string {
	return pidFilePath(engine.config.Storage.Path)
}

func (engine *GatewayEngine) storePid() error {
	engine.logger.Info("Storing program id information...")

	err := fs.EnsureDir(engine.config.Storage.Path)
	if err != nil {
		engine.logger.Error(fmt.Sprintf("Unable to create program storage path due to %v", err))
		return err
	}

	err = os.WriteFile(engine.pidPath(), []byte(fmt.Sprintf("%d", engine.pid)), 0o644)
	if err != nil {
		engine.logger.Error(fmt.Sprintf("Unable to store program id due to %v", err))
		return err
	}

	engine.logger.Info(fmt.Sprintf("Stored program id information at %s", engine.pidPath()))
	return nil
}

func (engine *GatewayEngine) cleanup() error {
	var err error

	if syncErr := engine.accessLog.Sync(); syncErr != nil {
		engine.logger.Debug(fmt.Sprintf("Access log sync: %v", syncErr))
	}

	err = os.Remove(engine.pidPath())
	if err != nil {
		engine.logger.Error(fmt.Sprintf("Failed to remove PID file: %v", err))
	} else {
		engine.logger.Info("PID file removed.")
	}

	if closeErr := engine.logger.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
