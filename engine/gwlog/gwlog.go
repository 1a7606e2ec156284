package gwlog

import (
	"encoding/json"
	"net/url"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// RotateScheme is the output path scheme for rotated log files, e.g. rotate:saganet.log
	RotateScheme = "rotate"
)

var (
	// DebugLevel level
	DebugLevel Level = Level(zap.DebugLevel)
	// InfoLevel level
	InfoLevel Level = Level(zap.InfoLevel)
	// WarnLevel level
	WarnLevel Level = Level(zap.WarnLevel)
	// ErrorLevel level
	ErrorLevel Level = Level(zap.ErrorLevel)
	// PanicLevel level
	PanicLevel Level = Level(zap.PanicLevel)
	// FatalLevel level
	FatalLevel Level = Level(zap.FatalLevel)

	// Debugf logs formatted debug message
	Debugf logFormatFunc
	// Infof logs formatted info message
	Infof logFormatFunc
	// Warnf logs formatted warn message
	Warnf logFormatFunc
	// Errorf logs formatted error message
	Errorf logFormatFunc
	Panicf logFormatFunc
	Fatalf logFormatFunc
	Fatal  func(args ...interface{})
	Panic  func(args ...interface{})
)

type logFormatFunc func(format string, args ...interface{})

// Level is type of log levels
type Level zapcore.Level

var (
	lock   sync.Mutex
	cfg    zap.Config
	source string
	logger *zap.Logger
	sugar  *zap.SugaredLogger
)

func init() {
	cfgJson := []byte(`{
		"level": "debug",
		"outputPaths": ["stderr"],
		"errorOutputPaths": ["stderr"],
		"encoding": "console",
		"encoderConfig": {
			"messageKey": "message",
			"levelKey": "level",
			"timeKey": "time",
			"timeEncoder": "iso8601",
			"levelEncoder": "lowercase"
		}
	}`)

	if err := json.Unmarshal(cfgJson, &cfg); err != nil {
		panic(err)
	}

	if err := zap.RegisterSink(RotateScheme, newRotateSink); err != nil {
		panic(err)
	}

	rebuild()
}

type rotateSink struct {
	*lumberjack.Logger
}

func (rotateSink) Sync() error {
	return nil
}

func newRotateSink(u *url.URL) (zap.Sink, error) {
	filename := u.Path
	if filename == "" {
		filename = u.Opaque
	}
	return rotateSink{&lumberjack.Logger{
		Filename:   filename,
		MaxSize:    100, // megabytes
		MaxBackups: 100,
		MaxAge:     30, //days
		Compress:   true,
	}}, nil
}

func rebuild() {
	newLogger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	if source != "" {
		newLogger = newLogger.With(zap.String("source", source))
	}
	logger = newLogger
	setSugar(logger.Sugar())
}

// SetSource sets the component name (apiserver/saganet) of gwlog module
func SetSource(comp string) {
	lock.Lock()
	defer lock.Unlock()
	source = comp
	rebuild()
}

func setSugar(sugar_ *zap.SugaredLogger) {
	sugar = sugar_
	Debugf = sugar.Debugf
	Infof = sugar.Infof
	Warnf = sugar.Warnf
	Errorf = sugar.Errorf
	Panicf = sugar.Panicf
	Panic = sugar.Panic
	Fatalf = sugar.Fatalf
	Fatal = sugar.Fatal
}

// SetLevel sets the log level
func SetLevel(lv Level) {
	cfg.Level.SetLevel(zapcore.Level(lv))
}

// GetLevel returns the current log level
func GetLevel() Level {
	return Level(cfg.Level.Level())
}

// TraceError prints the stack and error
func TraceError(format string, args ...interface{}) {
	Errorf(format+"\n%s", append(args, debug.Stack())...)
}

// SetOutput sets the output paths, e.g. []string{"stderr", "rotate:saganet.log"}
//
// Plain file paths are rewritten to use the rotating sink.
func SetOutput(outputs []string) {
	lock.Lock()
	defer lock.Unlock()

	paths := make([]string, 0, len(outputs))
	for _, out := range outputs {
		if out == "stderr" || out == "stdout" || strings.Contains(out, ":") {
			paths = append(paths, out)
		} else {
			paths = append(paths, RotateScheme+":"+out)
		}
	}
	cfg.OutputPaths = paths
	rebuild()
}

// Logger returns the underlying zap logger
func Logger() *zap.Logger {
	return logger
}

// ParseLevel converts string to Levels
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "panic":
		return PanicLevel
	case "fatal":
		return FatalLevel
	}
	Errorf("ParseLevel: unknown level: %s", s)
	return DebugLevel
}
