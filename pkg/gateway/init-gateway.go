package gateway

import (
	"cgibox/pkg/models"
	"cgibox/pkg/scripts"
	"cgibox/pkg/utils/system"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// InitConfig writes a starter config at configPath exposing the three bundled
// scripts on the paths classic cgi-bin setups use.
func InitConfig(configPath string) error {
	absConfigPath, err := filepath.Abs(configPath)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute config path: %w", err)
	}

	storageDir, err := defaultStoragePath(absConfigPath)
	if err != nil {
		return err
	}

	freePort, err := system.GetFreePort()
	if err != nil {
		return err
	}

	defaultConfig := &models.CgiboxConfig{
		Log: &models.LogConfig{
			ToFile:   true,
			FilePath: filepath.Join(storageDir, "cgibox.log"),
			ToStdout: true,
			Prefix:   "[Cgibox]",
		},
		AccessLog: &models.AccessLogConfig{
			Enabled:     true,
			OutputPaths: []string{"stdout"},
		},
		Server: &models.ServerConfig{
			Port: uint16(freePort),
			Name: "localhost",
		},
		Storage: &models.StorageConfig{
			Path: storageDir,
		},
		Metrics: &models.MetricsConfig{
			Enabled: true,
			Path:    DEFAULT_METRICS_PATH,
		},
		Cgi: &models.CgiConfig{
			Timeout:        DEFAULT_CGI_TIMEOUT,
			MaxHeaderBytes: DEFAULT_MAX_HEADER_BYTES,
			MaxOutputBytes: DEFAULT_MAX_OUTPUT_BYTES,
			MaxBodyBytes:   DEFAULT_MAX_BODY_BYTES,
			SlowDelay:      scripts.DEFAULT_SLOW_DELAY,
		},
		Routes: []models.RouteConfig{
			{
				Name:    "calc",
				Path:    "^/cgi-bin/calc$",
				Methods: []string{"GET", "POST"},
				Script:  models.SCRIPT_CALC,
				Mode:    models.MODE_EXEC,
			},
			{
				Name:   "echo",
				Path:   "^/cgi-bin/echo$",
				Script: models.SCRIPT_ECHO,
				Mode:   models.MODE_EXEC,
			},
			{
				Name:   "slow",
				Path:   "^/cgi/slow$",
				Script: models.SCRIPT_SLOW,
				Mode:   models.MODE_INLINE,
			},
		},
	}

	if err := os.MkdirAll(filepath.Dir(absConfigPath), 0755); err != nil {
		return err
	}

	f, err := os.Create(absConfigPath)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	return enc.Encode(defaultConfig)
}
