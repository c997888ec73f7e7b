package logx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"cratehealth/internal/paths"
)

// LevelEnv selects the log level, e.g. "debug". Defaults to info.
const LevelEnv = "CRATE_HEALTH_LOG_LEVEL"

// Options tunes logger construction.
type Options struct {
	// Console mirrors log lines to Stderr in human-readable form.
	Console bool
	Stderr  io.Writer
	Command string
}

// New creates a logger that writes JSON lines to a timestamped file inside
// the logs directory. The returned closer should be closed when logging is
// no longer needed.
func New(p paths.RepoPaths, opts Options) (*zerolog.Logger, io.Closer, error) {
	if err := p.EnsureLogsDir(); err != nil {
		return nil, nil, err
	}

	filename := time.Now().Format("20060102-150405") + ".log"
	filePath := filepath.Join(p.LogsDir, filename)
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	var out io.Writer = file
	if opts.Console {
		stderr := opts.Stderr
		if stderr == nil {
			stderr = os.Stderr
		}
		out = zerolog.MultiLevelWriter(file, zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.RFC3339})
	}

	ctx := zerolog.New(out).Level(LevelFromEnv()).With().Timestamp()
	if opts.Command != "" {
		ctx = ctx.Str("command", opts.Command)
	}
	logger := ctx.Logger()
	return &logger, file, nil
}

// Nop returns a logger that discards everything.
func Nop() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// LevelFromEnv parses $CRATE_HEALTH_LOG_LEVEL, falling back to info.
func LevelFromEnv() zerolog.Level {
	raw := strings.TrimSpace(os.Getenv(LevelEnv))
	if raw == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(raw))
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// Printer adapts a zerolog logger to the Printf-style Logger interfaces of
// the library packages. zerolog's own Printf logs at debug; Printer logs at
// info so workflow steps show up by default.
type Printer struct {
	L *zerolog.Logger
}

func (p Printer) Printf(format string, v ...any) {
	if p.L == nil {
		return
	}
	p.L.Info().Msgf(format, v...)
}
