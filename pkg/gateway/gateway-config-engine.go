package gateway

import (
	"cgibox/pkg/metrics"
	"cgibox/pkg/models"
	"cgibox/pkg/scripts"
	"cgibox/pkg/utils/fs"
	"cgibox/pkg/utils/hash"
	"cgibox/pkg/utils/logger"
	"cgibox/pkg/utils/regex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	DEFAULT_PORT             = 8080
	DEFAULT_CGI_TIMEOUT      = 5 * time.Second
	DEFAULT_MAX_HEADER_BYTES = 64 * 1024
	DEFAULT_MAX_OUTPUT_BYTES = 8 * 1024 * 1024
	DEFAULT_MAX_BODY_BYTES   = 4 * 1024 * 1024
	DEFAULT_METRICS_PATH     = "/metrics"
)

type compiledRoute struct {
	Route        *models.RouteConfig
	PathPattern  *regexp.Regexp
	IncludeRegex *regexp.Regexp
	ExcludeRegex *regexp.Regexp
	Handler      scripts.Handler
	Command      string
	Args         []string
	Timeout      time.Duration
	MaxBodyBytes int
}

func (cr *compiledRoute) allowsMethod(method string) bool {
	if len(cr.Route.Methods) == 0 {
		return true
	}
	for _, m := range cr.Route.Methods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

type GatewayEngine struct {
	config         *models.CgiboxConfig
	logger         *logger.Logger
	accessLog      *zap.Logger
	metrics        *metrics.Metrics
	registry       *scripts.Registry
	compiledRoutes []compiledRoute
	pid            int
}

// InstantiateGatewayEngine loads the config at configPath and builds the engine,
// exiting the process if either step fails.
func InstantiateGatewayEngine(configPath string) *GatewayEngine {
	config, err := LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Unable to load the config at %s: %v", configPath, err)
	}

	engine, err := NewGatewayEngine(config)
	if err != nil {
		log.Fatalf("Unable to instantiate the gateway: %v", err)
	}
	return engine
}

func LoadConfig(configPath string) (*models.CgiboxConfig, error) {
	var config models.CgiboxConfig

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read the config-path %s: %w", configPath, err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse the config at %s: %w", configPath, err)
	}

	if err := ApplyDefaults(&config, configPath); err != nil {
		return nil, err
	}
	return &config, nil
}

// ApplyDefaults fills every unset section. configPath keys the default storage dir.
func ApplyDefaults(config *models.CgiboxConfig, configPath string) error {
	if config.Server == nil {
		config.Server = &models.ServerConfig{}
	}
	if config.Server.Port == 0 {
		config.Server.Port = DEFAULT_PORT
	}
	if config.Server.Name == "" {
		config.Server.Name = "localhost"
	}

	if config.Cgi == nil {
		config.Cgi = &models.CgiConfig{}
	}
	if config.Cgi.Timeout == 0 {
		config.Cgi.Timeout = DEFAULT_CGI_TIMEOUT
	}
	if config.Cgi.MaxHeaderBytes == 0 {
		config.Cgi.MaxHeaderBytes = DEFAULT_MAX_HEADER_BYTES
	}
	if config.Cgi.MaxOutputBytes == 0 {
		config.Cgi.MaxOutputBytes = DEFAULT_MAX_OUTPUT_BYTES
	}
	if config.Cgi.MaxBodyBytes == 0 {
		config.Cgi.MaxBodyBytes = DEFAULT_MAX_BODY_BYTES
	}
	if config.Cgi.SlowDelay == 0 {
		config.Cgi.SlowDelay = scripts.DEFAULT_SLOW_DELAY
	}

	if config.Metrics == nil {
		config.Metrics = &models.MetricsConfig{Enabled: true}
	}
	if config.Metrics.Path == "" {
		config.Metrics.Path = DEFAULT_METRICS_PATH
	}

	if config.Log == nil {
		config.Log = &models.LogConfig{
			ToStdout: true,
			Prefix:   "[Cgibox]",
		}
	}
	if config.AccessLog == nil {
		config.AccessLog = &models.AccessLogConfig{}
	}
	if config.Routes == nil {
		config.Routes = []models.RouteConfig{}
	}

	if config.Storage == nil || config.Storage.Path == "" {
		storagePath, err := defaultStoragePath(configPath)
		if err != nil {
			return err
		}
		config.Storage = &models.StorageConfig{Path: storagePath}
	}
	return nil
}

func defaultStoragePath(configPath string) (string, error) {
	appData, err := fs.GetUserAppDataDir("cgibox")
	if err != nil {
		return "", fmt.Errorf("failed to determine app data dir: %w", err)
	}
	absConfigPath, err := filepath.Abs(configPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute config path: %w", err)
	}
	return filepath.Join(appData, hash.HashString(absConfigPath)), nil
}

// NewGatewayEngine builds an engine from an already defaulted config.
func NewGatewayEngine(config *models.CgiboxConfig) (*GatewayEngine, error) {
	logger_, err := logger.NewLogger(config.Log)
	if err != nil {
		return nil, fmt.Errorf("unable to instantiate the logger: %w", err)
	}

	accessLog, err := NewAccessLogger(config.AccessLog)
	if err != nil {
		return nil, err
	}

	engine := &GatewayEngine{
		config:    config,
		logger:    logger_,
		accessLog: accessLog,
		registry:  scripts.NewRegistry(logger_, config.Cgi.SlowDelay),
		pid:       os.Getpid(),
	}
	if config.Metrics.Enabled {
		engine.metrics = metrics.NewMetrics()
	}

	if err := engine.compileRoutes(); err != nil {
		return nil, err
	}
	return engine, nil
}

// Prepare compiled regexes and resolve how each route runs its script
func (engine *GatewayEngine) compileRoutes() error {
	engine.compiledRoutes = []compiledRoute{}
	for i := range engine.config.Routes {
		route := &engine.config.Routes[i]

		if route.Name == "" {
			route.Name = fmt.Sprintf("route-%d", i)
		}
		if route.Mode == "" {
			route.Mode = models.MODE_EXEC
		}

		pathPattern, err := regexp.Compile(route.Path)
		if err != nil {
			return fmt.Errorf("route %s: invalid path pattern: %w", route.Name, err)
		}

		cr := compiledRoute{
			Route:       route,
			PathPattern: pathPattern,
			Timeout:     route.Timeout,
		}
		if cr.Timeout == 0 {
			cr.Timeout = engine.config.Cgi.Timeout
		}
		cr.MaxBodyBytes = route.MaxBodyBytes
		if cr.MaxBodyBytes <= 0 {
			cr.MaxBodyBytes = engine.config.Cgi.MaxBodyBytes
		}

		if len(route.Include) > 0 {
			if cr.IncludeRegex, err = regex.CombinePatterns(route.Include); err != nil {
				return fmt.Errorf("route %s: %w", route.Name, err)
			}
		}
		if len(route.Exclude) > 0 {
			if cr.ExcludeRegex, err = regex.CombinePatterns(route.Exclude); err != nil {
				return fmt.Errorf("route %s: %w", route.Name, err)
			}
		}

		switch route.Mode {
		case models.MODE_INLINE:
			handler, ok := engine.registry.Lookup(route.Script)
			if !ok {
				return fmt.Errorf("route %s: unknown script %q (available: %s)", route.Name, route.Script, strings.Join(engine.registry.Names(), ", "))
			}
			cr.Handler = handler
		case models.MODE_EXEC:
			if err := engine.resolveCommand(&cr); err != nil {
				return err
			}
		default:
			return fmt.Errorf("route %s: unsupported mode %q", route.Name, route.Mode)
		}

		engine.logger.Debug(fmt.Sprintf("Compiled route %s: %s -> %s (%s, timeout %s)", route.Name, route.Path, route.Script, route.Mode, cr.Timeout))
		engine.compiledRoutes = append(engine.compiledRoutes, cr)
	}
	return nil
}

// maxRequestBodySize is the server-wide read limit: the largest of the global
// limit and every route override, so routes can enforce their own smaller one.
func (engine *GatewayEngine) maxRequestBodySize() int {
	limit := engine.config.Cgi.MaxBodyBytes
	for _, cr := range engine.compiledRoutes {
		if cr.MaxBodyBytes > limit {
			limit = cr.MaxBodyBytes
		}
	}
	return limit
}

// resolveCommand picks the program for an exec route. Without an explicit command
// the gateway re-executes its own binary with the script name.
func (engine *GatewayEngine) resolveCommand(cr *compiledRoute) error {
	route := cr.Route
	if route.Command != "" {
		cr.Command = route.Command
		cr.Args = route.Args
		return nil
	}

	if _, ok := engine.registry.Lookup(route.Script); !ok {
		return fmt.Errorf("route %s: exec mode needs a command or a known script, got %q", route.Name, route.Script)
	}
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("route %s: unable to locate own executable: %w", route.Name, err)
	}
	cr.Command = self
	cr.Args = append([]string{strings.ToLower(route.Script)}, route.Args...)
	return nil
}
