package models

import "time"

const (
	SCRIPT_CALC = "calc"
	SCRIPT_ECHO = "echo"
	SCRIPT_SLOW = "slow"
)

const (
	MODE_EXEC   = "exec"
	MODE_INLINE = "inline"
)

type LogConfig struct {
	ToFile       bool   `yaml:"toFile"`
	FilePath     string `yaml:"filePath"`
	ToStdout     bool   `yaml:"toStdout"`
	ToStderr     bool   `yaml:"toStderr"`
	Prefix       string `yaml:"prefix"`
	Format       string `yaml:"format"`
	DebugEnabled bool   `yaml:"debugEnabled"`
}

type AccessLogConfig struct {
	Enabled     bool     `yaml:"enabled"`
	OutputPaths []string `yaml:"outputPaths"`
}

type ServerConfig struct {
	Port uint16 `yaml:"port"`
	Name string `yaml:"name"`
}

type StorageConfig struct {
	Path string `yaml:"path"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type CgiConfig struct {
	Timeout        time.Duration `yaml:"timeout"`
	MaxHeaderBytes int           `yaml:"maxHeaderBytes"`
	MaxOutputBytes int           `yaml:"maxOutputBytes"`
	MaxBodyBytes   int           `yaml:"maxBodyBytes"`
	SlowDelay      time.Duration `yaml:"slowDelay"`
}

type RouteConfig struct {
	Name         string        `yaml:"name"`
	Path         string        `yaml:"path"`
	Include      []string      `yaml:"include"`
	Exclude      []string      `yaml:"exclude"`
	Methods      []string      `yaml:"methods"`
	Script       string        `yaml:"script"`
	Mode         string        `yaml:"mode"`
	Command      string        `yaml:"command"`
	Args         []string      `yaml:"args"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxBodyBytes int           `yaml:"maxBodyBytes"`
}

type CgiboxConfig struct {
	Log       *LogConfig       `yaml:"log"`
	AccessLog *AccessLogConfig `yaml:"accessLog"`
	Server    *ServerConfig    `yaml:"server"`
	Storage   *StorageConfig   `yaml:"storage"`
	Metrics   *MetricsConfig   `yaml:"metrics"`
	Cgi       *CgiConfig       `yaml:"cgi"`
	Routes    []RouteConfig    `yaml:"routes"`
}
