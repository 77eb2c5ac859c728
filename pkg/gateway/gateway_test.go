package gateway

import (
	"cgibox/pkg/cgi"
	"cgibox/pkg/models"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestEngine(t *testing.T, cgiConfig *models.CgiConfig, routes ...models.RouteConfig) *GatewayEngine {
	t.Helper()
	config := &models.CgiboxConfig{
		Log:     &models.LogConfig{DebugEnabled: true, Prefix: "[Test]"},
		Storage: &models.StorageConfig{Path: t.TempDir()},
		Cgi:     cgiConfig,
		Routes:  routes,
	}
	if err := ApplyDefaults(config, filepath.Join(t.TempDir(), "cgibox.config.yaml")); err != nil {
		t.Fatalf("Failed to apply defaults: %v", err)
	}
	engine, err := NewGatewayEngine(config)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return engine
}

func doRequest(engine *GatewayEngine, method, uri, body string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	if body != "" {
		ctx.Request.Header.SetContentType("application/x-www-form-urlencoded")
		ctx.Request.SetBodyString(body)
	}
	engine.Handler()(ctx)
	return ctx
}

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("exec routes are tested with /bin/sh")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
}

func inlineRoute(name, path, script string) models.RouteConfig {
	return models.RouteConfig{Name: name, Path: path, Script: script, Mode: models.MODE_INLINE}
}

func shellRoute(name, path, script string) models.RouteConfig {
	return models.RouteConfig{
		Name:    name,
		Path:    path,
		Mode:    models.MODE_EXEC,
		Command: "/bin/sh",
		Args:    []string{"-c", script},
	}
}

// ==========================================
// Inline scripts
// ==========================================

func TestGateway_InlineCalc(t *testing.T) {
	engine := newTestEngine(t, nil, inlineRoute("calc", "^/cgi-bin/calc$", models.SCRIPT_CALC))

	ctx := doRequest(engine, "GET", "/cgi-bin/calc?x=3&y=4&op=add", "")

	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", ctx.Response.StatusCode(), ctx.Response.Body())
	}
	if got := string(ctx.Response.Body()); got != "method=GET\nx=3\ny=4\nop=add\nresult=7\n" {
		t.Errorf("Unexpected body %q", got)
	}
	if ct := string(ctx.Response.Header.ContentType()); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Expected text/plain content type, got %q", ct)
	}
	if !ctx.Response.ConnectionClose() {
		t.Error("CGI responses must close the connection")
	}
}

func TestGateway_InlineCalcPostAndClientError(t *testing.T) {
	engine := newTestEngine(t, nil, inlineRoute("calc", "^/cgi-bin/calc$", models.SCRIPT_CALC))

	ctx := doRequest(engine, "POST", "/cgi-bin/calc", "x=3.0&y=4&op=mul")
	if got := string(ctx.Response.Body()); !strings.HasSuffix(got, "op=mul\nresult=12\n") {
		t.Errorf("Unexpected POST body %q", got)
	}

	ctx = doRequest(engine, "GET", "/cgi-bin/calc?x=1&y=0&op=div", "")
	if ctx.Response.StatusCode() != fasthttp.StatusBadRequest {
		t.Errorf("Expected 400 from script, got %d", ctx.Response.StatusCode())
	}
	if got := string(ctx.Response.Body()); got != "error: division by zero\n" {
		t.Errorf("Unexpected error body %q", got)
	}
}

func TestGateway_InlineEchoSeesHeadersAndBody(t *testing.T) {
	engine := newTestEngine(t, nil, inlineRoute("echo", "^/cgi-bin/echo$", models.SCRIPT_ECHO))

	ctx := doRequest(engine, "PUT", "/cgi-bin/echo?a=1", "hello")

	want := "method=PUT\nquery=a=1\nlen=5\nbody=hello\n"
	if got := string(ctx.Response.Body()); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestGateway_InlineSlowTimesOut(t *testing.T) {
	route := inlineRoute("slow", "^/cgi/slow$", models.SCRIPT_SLOW)
	route.Timeout = 50 * time.Millisecond
	engine := newTestEngine(t, &models.CgiConfig{SlowDelay: 500 * time.Millisecond}, route)

	start := time.Now()
	ctx := doRequest(engine, "GET", "/cgi/slow", "")

	if ctx.Response.StatusCode() != fasthttp.StatusGatewayTimeout {
		t.Fatalf("Expected 504, got %d", ctx.Response.StatusCode())
	}
	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Errorf("Gateway waited %v for a script past its timeout", elapsed)
	}
}

func TestGateway_InlineSlowWithinTimeout(t *testing.T) {
	engine := newTestEngine(t, &models.CgiConfig{SlowDelay: 10 * time.Millisecond},
		inlineRoute("slow", "^/cgi/slow$", models.SCRIPT_SLOW))

	ctx := doRequest(engine, "GET", "/cgi/slow", "")
	if ctx.Response.StatusCode() != fasthttp.StatusOK || string(ctx.Response.Body()) != "slow done" {
		t.Errorf("Unexpected response %d %q", ctx.Response.StatusCode(), ctx.Response.Body())
	}
}

// ==========================================
// Routing
// ==========================================

func TestGateway_NotFound(t *testing.T) {
	engine := newTestEngine(t, nil, inlineRoute("calc", "^/cgi-bin/calc$", models.SCRIPT_CALC))

	ctx := doRequest(engine, "GET", "/cgi-bin/other", "")
	if ctx.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Errorf("Expected 404, got %d", ctx.Response.StatusCode())
	}
}

func TestGateway_MethodNotAllowed(t *testing.T) {
	route := inlineRoute("calc", "^/cgi-bin/calc$", models.SCRIPT_CALC)
	route.Methods = []string{"get"}
	engine := newTestEngine(t, nil, route)

	ctx := doRequest(engine, "DELETE", "/cgi-bin/calc?x=1&y=2", "")
	if ctx.Response.StatusCode() != fasthttp.StatusMethodNotAllowed {
		t.Fatalf("Expected 405, got %d", ctx.Response.StatusCode())
	}
	if allow := string(ctx.Response.Header.Peek("Allow")); allow != "GET" {
		t.Errorf("Expected Allow: GET, got %q", allow)
	}
}

func TestGateway_IncludeExclude(t *testing.T) {
	route := inlineRoute("echo", "^/cgi-bin/", models.SCRIPT_ECHO)
	route.Include = []string{"echo"}
	route.Exclude = []string{"private"}
	engine := newTestEngine(t, nil, route)

	if code := doRequest(engine, "GET", "/cgi-bin/echo", "").Response.StatusCode(); code != 200 {
		t.Errorf("Expected included path to match, got %d", code)
	}
	if code := doRequest(engine, "GET", "/cgi-bin/calc", "").Response.StatusCode(); code != 404 {
		t.Errorf("Expected path outside include to miss, got %d", code)
	}
	if code := doRequest(engine, "GET", "/cgi-bin/echo/private", "").Response.StatusCode(); code != 404 {
		t.Errorf("Expected excluded path to miss, got %d", code)
	}
}

func TestGateway_BodyLimit(t *testing.T) {
	small := inlineRoute("echo", "^/cgi-bin/echo$", models.SCRIPT_ECHO)
	small.MaxBodyBytes = 8
	large := inlineRoute("calc", "^/cgi-bin/calc$", models.SCRIPT_CALC)
	large.MaxBodyBytes = 64
	engine := newTestEngine(t, &models.CgiConfig{MaxBodyBytes: 16}, small, large)

	ctx := doRequest(engine, "POST", "/cgi-bin/echo", "0123456789abcdef")
	if ctx.Response.StatusCode() != fasthttp.StatusRequestEntityTooLarge {
		t.Fatalf("Expected 413, got %d", ctx.Response.StatusCode())
	}
	if !ctx.Response.ConnectionClose() {
		t.Error("Expected the connection to close after a rejected body")
	}

	if code := doRequest(engine, "POST", "/cgi-bin/echo", "01234567").Response.StatusCode(); code != 200 {
		t.Errorf("Body at the limit should pass, got %d", code)
	}

	body := "x=1&y=2&op=add&pad=" + strings.Repeat("z", 20)
	if code := doRequest(engine, "POST", "/cgi-bin/calc", body).Response.StatusCode(); code != 200 {
		t.Errorf("Route override above the global limit should pass, got %d", code)
	}

	if got := engine.maxRequestBodySize(); got != 64 {
		t.Errorf("Expected server read limit 64, got %d", got)
	}
	if got := engine.compiledRoutes[0].MaxBodyBytes; got != 8 {
		t.Errorf("Expected route limit 8, got %d", got)
	}
}

func TestGateway_BodyLimitDefaultsToGlobal(t *testing.T) {
	engine := newTestEngine(t, &models.CgiConfig{MaxBodyBytes: 4},
		inlineRoute("echo", "^/cgi-bin/echo$", models.SCRIPT_ECHO))

	if code := doRequest(engine, "PUT", "/cgi-bin/echo", "hello").Response.StatusCode(); code != 413 {
		t.Errorf("Expected the global limit to apply, got %d", code)
	}
}

func TestWriteOutput_KeepsRepeatedHeaders(t *testing.T) {
	engine := newTestEngine(t, nil)
	ctx := &fasthttp.RequestCtx{}

	engine.writeOutput(ctx, &cgi.Output{
		StatusCode: 200,
		Headers: []cgi.Header{
			{Name: "Content-Type", Value: "text/html"},
			{Name: "Set-Cookie", Value: "a=1"},
			{Name: "Set-Cookie", Value: "b=2"},
			{Name: "X-Tag", Value: "one"},
			{Name: "X-Tag", Value: "two"},
			{Name: "Content-Length", Value: "999"},
		},
		Body: []byte("ok"),
	})

	cookies := 0
	ctx.Response.Header.VisitAllCookie(func(key, value []byte) { cookies++ })
	if cookies != 2 {
		t.Errorf("Expected both cookies, got %d", cookies)
	}
	if tags := ctx.Response.Header.PeekAll("X-Tag"); len(tags) != 2 {
		t.Errorf("Expected two X-Tag values, got %q", tags)
	}
	if ct := string(ctx.Response.Header.ContentType()); ct != "text/html" {
		t.Errorf("Expected text/html, got %q", ct)
	}
	if cl := string(ctx.Response.Header.Peek("Content-Length")); cl == "999" {
		t.Error("The script's Content-Length must not be copied")
	}
}

func TestRunTimedOut(t *testing.T) {
	expired, cancel := context.WithTimeout(context.Background(), -time.Second)
	defer cancel()

	if runTimedOut(expired, nil) {
		t.Error("A clean exit must not count as a timeout even after the deadline")
	}
	if !runTimedOut(expired, errors.New("signal: killed")) {
		t.Error("A failed run past the deadline is a timeout")
	}
	if runTimedOut(context.Background(), errors.New("exit status 1")) {
		t.Error("A failed run before the deadline is not a timeout")
	}
}

func TestGateway_BuildEnv(t *testing.T) {
	engine := newTestEngine(t, nil, inlineRoute("echo", "^/cgi-bin/echo$", models.SCRIPT_ECHO))

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod("POST")
	ctx.Request.SetRequestURI("/cgi-bin/echo?q=1")
	ctx.Request.Header.Set("X-Trace-Id", "abc")
	ctx.Request.SetBodyString("12345678")

	env := engine.buildEnv(ctx)

	expect := map[string]string{
		"REQUEST_METHOD":    "POST",
		"QUERY_STRING":      "q=1",
		"CONTENT_LENGTH":    "8",
		"SCRIPT_NAME":       "/cgi-bin/echo",
		"GATEWAY_INTERFACE": "CGI/1.1",
		"SERVER_PORT":       "8080",
		"HTTP_X_TRACE_ID":   "abc",
		"CGIBOX_SLOW_DELAY": "10s",
	}
	for k, v := range expect {
		if env[k] != v {
			t.Errorf("%s: expected %q, got %q", k, v, env[k])
		}
	}
}

// ==========================================
// Exec scripts
// ==========================================

func TestGateway_ExecPassesStatusAndBody(t *testing.T) {
	requireShell(t)
	engine := newTestEngine(t, nil, shellRoute("echo-sh", "^/sh$",
		`printf 'Status: 201 Created\r\nContent-Type: text/plain\r\nX-Script: sh\r\n\r\n'; head -c "$CONTENT_LENGTH"`))

	ctx := doRequest(engine, "POST", "/sh", "ping")

	if ctx.Response.StatusCode() != fasthttp.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", ctx.Response.StatusCode(), ctx.Response.Body())
	}
	if got := string(ctx.Response.Body()); got != "ping" {
		t.Errorf("Expected stdin to be forwarded, got %q", got)
	}
	if got := string(ctx.Response.Header.Peek("X-Script")); got != "sh" {
		t.Errorf("Expected script header to pass through, got %q", got)
	}
}

func TestGateway_ExecNoHeaderTerminatorIsBadGateway(t *testing.T) {
	requireShell(t)
	engine := newTestEngine(t, nil, shellRoute("broken", "^/broken$", `printf 'no headers here'`))

	ctx := doRequest(engine, "GET", "/broken", "")
	if ctx.Response.StatusCode() != fasthttp.StatusBadGateway {
		t.Errorf("Expected 502, got %d", ctx.Response.StatusCode())
	}
}

func TestGateway_ExecTimeoutKillsScript(t *testing.T) {
	requireShell(t)
	route := shellRoute("sleepy", "^/sleepy$", "exec sleep 5")
	route.Timeout = 100 * time.Millisecond
	engine := newTestEngine(t, nil, route)

	start := time.Now()
	ctx := doRequest(engine, "GET", "/sleepy", "")

	if ctx.Response.StatusCode() != fasthttp.StatusGatewayTimeout {
		t.Fatalf("Expected 504, got %d", ctx.Response.StatusCode())
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("Script was not killed promptly, took %v", elapsed)
	}
}

func TestGateway_ExecOutputLimit(t *testing.T) {
	requireShell(t)
	engine := newTestEngine(t, &models.CgiConfig{MaxOutputBytes: 64},
		shellRoute("flood", "^/flood$", `printf 'Content-Type: text/plain\n\n'; head -c 4096 /dev/zero`))

	ctx := doRequest(engine, "GET", "/flood", "")
	if ctx.Response.StatusCode() != fasthttp.StatusBadGateway {
		t.Errorf("Expected 502 for oversized output, got %d", ctx.Response.StatusCode())
	}
}

func TestGateway_ExecMissingCommand(t *testing.T) {
	route := models.RouteConfig{
		Name:    "ghost",
		Path:    "^/ghost$",
		Mode:    models.MODE_EXEC,
		Command: filepath.Join(t.TempDir(), "does-not-exist"),
	}
	engine := newTestEngine(t, nil, route)

	ctx := doRequest(engine, "GET", "/ghost", "")
	if ctx.Response.StatusCode() != fasthttp.StatusBadGateway {
		t.Errorf("Expected 502, got %d", ctx.Response.StatusCode())
	}
}

func TestGateway_ExecDefaultsToOwnBinary(t *testing.T) {
	engine := newTestEngine(t, nil, models.RouteConfig{Name: "calc", Path: "^/calc$", Script: "CALC"})

	cr := engine.compiledRoutes[0]
	self, _ := os.Executable()
	if cr.Route.Mode != models.MODE_EXEC {
		t.Errorf("Expected exec to be the default mode, got %q", cr.Route.Mode)
	}
	if cr.Command != self || len(cr.Args) != 1 || cr.Args[0] != "calc" {
		t.Errorf("Expected %s calc, got %s %v", self, cr.Command, cr.Args)
	}
}

// ==========================================
// Observability
// ==========================================

func TestGateway_MetricsEndpoint(t *testing.T) {
	route := inlineRoute("slow", "^/cgi/slow$", models.SCRIPT_SLOW)
	route.Timeout = 20 * time.Millisecond
	engine := newTestEngine(t, &models.CgiConfig{SlowDelay: 200 * time.Millisecond},
		inlineRoute("calc", "^/cgi-bin/calc$", models.SCRIPT_CALC), route)

	doRequest(engine, "GET", "/cgi-bin/calc?x=1&y=2", "")
	doRequest(engine, "GET", "/cgi/slow", "")

	ctx := doRequest(engine, "GET", "/metrics", "")
	body := string(ctx.Response.Body())

	if !strings.Contains(body, `cgibox_requests_total{mode="inline",route="calc",script="calc",status="200"} 1`) {
		t.Errorf("Expected calc request counter:\n%s", body)
	}
	if !strings.Contains(body, `cgibox_timeouts_total{route="slow",script="slow"} 1`) {
		t.Errorf("Expected slow timeout counter:\n%s", body)
	}
}

func TestGateway_MetricsDisabled(t *testing.T) {
	config := &models.CgiboxConfig{
		Log:     &models.LogConfig{},
		Storage: &models.StorageConfig{Path: t.TempDir()},
		Metrics: &models.MetricsConfig{Enabled: false},
	}
	if err := ApplyDefaults(config, "cgibox.config.yaml"); err != nil {
		t.Fatal(err)
	}
	engine, err := NewGatewayEngine(config)
	if err != nil {
		t.Fatal(err)
	}

	if code := doRequest(engine, "GET", "/metrics", "").Response.StatusCode(); code != 404 {
		t.Errorf("Expected 404 with metrics disabled, got %d", code)
	}
}

func TestGateway_AccessLog(t *testing.T) {
	engine := newTestEngine(t, nil, inlineRoute("calc", "^/cgi-bin/calc$", models.SCRIPT_CALC))
	core, logs := observer.New(zap.InfoLevel)
	engine.accessLog = zap.New(core)

	doRequest(engine, "GET", "/cgi-bin/calc?x=1&y=0&op=mod", "")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("Expected one access log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["route"] != "calc" || fields["mode"] != "inline" || fields["path"] != "/cgi-bin/calc" {
		t.Errorf("Unexpected access log fields %v", fields)
	}
	if fields["status"] != int64(400) {
		t.Errorf("Expected status 400 in access log, got %v", fields["status"])
	}
}

func TestNewAccessLogger_Disabled(t *testing.T) {
	l, err := NewAccessLogger(&models.AccessLogConfig{Enabled: false})
	if err != nil {
		t.Fatal(err)
	}
	if l.Core().Enabled(zap.InfoLevel) {
		t.Error("Disabled access log should be a no-op")
	}
}

// ==========================================
// Configuration
// ==========================================

func TestApplyDefaults(t *testing.T) {
	config := &models.CgiboxConfig{Storage: &models.StorageConfig{Path: t.TempDir()}}
	if err := ApplyDefaults(config, "cgibox.config.yaml"); err != nil {
		t.Fatal(err)
	}

	if config.Server.Port != DEFAULT_PORT {
		t.Errorf("Expected port %d, got %d", DEFAULT_PORT, config.Server.Port)
	}
	if config.Cgi.Timeout != DEFAULT_CGI_TIMEOUT || config.Cgi.MaxHeaderBytes != DEFAULT_MAX_HEADER_BYTES {
		t.Errorf("Unexpected cgi defaults %+v", config.Cgi)
	}
	if config.Cgi.MaxBodyBytes != DEFAULT_MAX_BODY_BYTES {
		t.Errorf("Expected default body limit, got %d", config.Cgi.MaxBodyBytes)
	}
	if config.Cgi.SlowDelay != 10*time.Second {
		t.Errorf("Expected 10s slow delay, got %v", config.Cgi.SlowDelay)
	}
	if !config.Metrics.Enabled || config.Metrics.Path != "/metrics" {
		t.Errorf("Unexpected metrics defaults %+v", config.Metrics)
	}
	if !config.Log.ToStdout {
		t.Error("Expected logging to stdout by default")
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cgibox.config.yaml")
	yamlConfig := `
server:
  port: 9090
storage:
  path: ` + dir + `
cgi:
  timeout: 2s
  slowDelay: 1s
routes:
  - name: calc
    path: ^/cgi-bin/calc$
    script: calc
    mode: inline
    timeout: 500ms
`
	if err := os.WriteFile(path, []byte(yamlConfig), 0o644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if config.Server.Port != 9090 || config.Cgi.Timeout != 2*time.Second || config.Cgi.SlowDelay != time.Second {
		t.Errorf("Values not read from YAML: %+v %+v", config.Server, config.Cgi)
	}
	if config.Cgi.MaxOutputBytes != DEFAULT_MAX_OUTPUT_BYTES {
		t.Errorf("Expected default output limit, got %d", config.Cgi.MaxOutputBytes)
	}
	if len(config.Routes) != 1 || config.Routes[0].Timeout != 500*time.Millisecond {
		t.Errorf("Unexpected routes %+v", config.Routes)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected an error for a missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("server: [unclosed"), 0o644)
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected an error for malformed YAML")
	}
}

func TestNewGatewayEngine_InvalidRoutes(t *testing.T) {
	tests := map[string]models.RouteConfig{
		"unknown inline script": {Path: "^/x$", Script: "shell", Mode: models.MODE_INLINE},
		"unknown mode":          {Path: "^/x$", Script: "calc", Mode: "fastcgi"},
		"bad path pattern":      {Path: "^/x(", Script: "calc", Mode: models.MODE_INLINE},
		"bad include pattern":   {Path: "^/x$", Script: "calc", Mode: models.MODE_INLINE, Include: []string{"("}},
		"exec without command":  {Path: "^/x$", Script: "shell", Mode: models.MODE_EXEC},
	}

	for name, route := range tests {
		config := &models.CgiboxConfig{
			Log:     &models.LogConfig{},
			Storage: &models.StorageConfig{Path: t.TempDir()},
			Routes:  []models.RouteConfig{route},
		}
		if err := ApplyDefaults(config, "cgibox.config.yaml"); err != nil {
			t.Fatal(err)
		}
		if _, err := NewGatewayEngine(config); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestInitConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "cgibox.config.yaml")

	if err := InitConfig(path); err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Generated config does not load: %v", err)
	}
	if config.Server.Port == 0 {
		t.Error("Expected a port to be picked")
	}

	scripts := map[string]string{}
	for _, r := range config.Routes {
		scripts[r.Path] = r.Script
	}
	if scripts["^/cgi-bin/calc$"] != "calc" || scripts["^/cgi-bin/echo$"] != "echo" || scripts["^/cgi/slow$"] != "slow" {
		t.Errorf("Unexpected generated routes %v", scripts)
	}
}

func TestKillGateway_Errors(t *testing.T) {
	storage := t.TempDir()
	path := filepath.Join(t.TempDir(), "cgibox.config.yaml")
	os.WriteFile(path, []byte("storage:\n  path: "+storage+"\n"), 0o644)

	if err := KillGateway(path); err == nil {
		t.Error("Expected an error without a PID file")
	}

	os.WriteFile(pidFilePath(storage), []byte("not-a-pid"), 0o644)
	err := KillGateway(path)
	if err == nil || !strings.Contains(err.Error(), "invalid PID") {
		t.Errorf("Expected invalid PID error, got %v", err)
	}
}

func TestPidFileLifecycle(t *testing.T) {
	engine := newTestEngine(t, nil)

	if err := engine.storePid(); err != nil {
		t.Fatalf("storePid failed: %v", err)
	}
	data, err := os.ReadFile(engine.pidPath())
	if err != nil || strings.TrimSpace(string(data)) == "" {
		t.Fatalf("Expected a PID file, got %q (%v)", data, err)
	}

	if err := engine.cleanup(); err != nil {
		t.Errorf("cleanup failed: %v", err)
	}
	if _, err := os.Stat(engine.pidPath()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected PID file to be removed, got %v", err)
	}
}
