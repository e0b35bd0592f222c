package debug

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Enabled bool
	Path    string
	// Console tees records to stderr. Leave it off under a full-screen UI.
	Console bool
}

// Logger writes debug records to a rotated JSON file. A disabled Logger drops
// everything and its Zap method returns a no-op logger.
type Logger struct {
	enabled bool
	zap     *zap.Logger
}

func NewLogger(opts Options) *Logger {
	if !opts.Enabled {
		return &Logger{zap: zap.NewNop()}
	}
	if opts.Path == "" {
		opts.Path = "debug.log"
	}

	rotator := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     14,
		Compress:   true,
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotator), zap.DebugLevel)
	if opts.Console {
		console := zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.Lock(os.Stderr),
			zap.DebugLevel,
		)
		core = zapcore.NewTee(core, console)
	}

	l := zap.New(core, zap.AddCaller())
	l.Info("=== DEBUG MODE ENABLED ===")
	return &Logger{enabled: true, zap: l}
}

// Nop returns a disabled logger.
func Nop() *Logger {
	return &Logger{zap: zap.NewNop()}
}

func (d *Logger) IsEnabled() bool {
	return d != nil && d.enabled
}

// Zap exposes the structured logger for services that log with fields.
func (d *Logger) Zap() *zap.Logger {
	if d == nil || d.zap == nil {
		return zap.NewNop()
	}
	return d.zap
}

func (d *Logger) Printf(format string, args ...any) {
	if d.IsEnabled() {
		d.zap.WithOptions(zap.AddCallerSkip(1)).Debug(fmt.Sprintf(format, args...))
	}
}

func (d *Logger) Println(args ...any) {
	if d.IsEnabled() {
		d.zap.WithOptions(zap.AddCallerSkip(1)).Debug(fmt.Sprint(args...))
	}
}

func (d *Logger) Sync() error {
	if d == nil || d.zap == nil {
		return nil
	}
	return d.zap.Sync()
}
