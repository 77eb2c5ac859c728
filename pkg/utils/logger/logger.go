package logger

import (
	"cgibox/pkg/models"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

type Logger struct {
	zl           zerolog.Logger
	file         *os.File
	debugEnabled bool
}

func NewLogger(cfg *models.LogConfig) (*Logger, error) {
	var writers []io.Writer

	if cfg.ToStdout {
		writers = append(writers, os.Stdout)
	}
	if cfg.ToStderr {
		writers = append(writers, os.Stderr)
	}

	var file *os.File
	if cfg.ToFile {
		if cfg.FilePath == "" {
			cfg.FilePath = "cgibox.log"
		}
		dir := filepath.Dir(cfg.FilePath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}

		f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, err
		}
		file = f
		writers = append(writers, f)
	}

	if cfg.Format != "json" {
		for i, w := range writers {
			writers[i] = zerolog.ConsoleWriter{Out: w, NoColor: w != os.Stdout && w != os.Stderr, TimeFormat: time.RFC3339}
		}
	}

	var out io.Writer = io.Discard
	if len(writers) > 0 {
		out = zerolog.MultiLevelWriter(writers...)
	}

	ctx := zerolog.New(out).With().Timestamp()
	if cfg.Prefix != "" {
		ctx = ctx.Str("component", cfg.Prefix)
	}

	return &Logger{
		zl:           ctx.Logger(),
		file:         file,
		debugEnabled: cfg.DebugEnabled,
	}, nil
}

// NewNopLogger discards everything; used where no config is available yet.
func NewNopLogger() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func (l *Logger) Info(msg string) {
	l.zl.Info().Msg(msg)
}

func (l *Logger) Warn(msg string) {
	l.zl.Warn().Msg(msg)
}

func (l *Logger) Debug(msg string) {
	if l.debugEnabled {
		l.zl.Debug().Msg(msg)
	}
}

func (l *Logger) Error(msg string) {
	l.zl.Error().Msg(msg)
}

func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
