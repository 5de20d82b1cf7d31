package common

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const LogFileName = "wfcatalog.log"

var (
	logger *zap.Logger
	once   sync.Once
)

func getLogger() *zap.Logger {
	if logger == nil {
		initLogger()
	}
	return logger
}

func GetLogger() *zap.Logger {
	logger = getLogger()
	return logger.Named("default")
}

// GetLoggerWith names the logger after the component and attaches fields,
// usually the category, to every entry.
func GetLoggerWith(name string, fields ...zap.Field) *zap.Logger {
	logger = getLogger()
	return logger.Named(name).With(fields...)
}

func logsDir() string {
	if dir, found := os.LookupEnv(EnvKeyLogDir); found && dir != "" {
		return dir
	}

	dir, err := os.Getwd()
	if err != nil {
		log.Fatalf("Error getting current directory: %v", err)
	}
	return filepath.Join(dir, "logs")
}

// logLevel is the level of the file core, info unless LOG_LEVEL says otherwise.
func logLevel() zapcore.Level {
	level, err := zapcore.ParseLevel(os.Getenv(EnvKeyLogLevel))
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

func jsonEncoder() zapcore.Encoder {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(encoderCfg)
}

func newFileCore(dir string, level zapcore.Level) zapcore.Core {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		log.Fatalf("Error find/create logs directory: %v", err)
	}

	// a full extraction logs one line per record, rotate early
	rotating := &lumberjack.Logger{
		Filename:   filepath.Join(dir, LogFileName),
		MaxSize:    50, // megabytes
		MaxBackups: 10,
		MaxAge:     28,   // days
		Compress:   true, // gzip
	}
	return zapcore.NewCore(jsonEncoder(), zapcore.AddSync(rotating), level)
}

func initLogger() {
	once.Do(func() {
		core := newFileCore(logsDir(), logLevel())

		if !IsProduction() {
			// progress goes to stderr so stdout stays clean for reports
			consoleCore := zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.Lock(os.Stderr),
				zap.DebugLevel,
			)
			core = zapcore.NewTee(core, consoleCore)
		}
		logger = zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	})
}

func SetTestCaptureLogger(buf *bytes.Buffer, level zapcore.Level) {
	_ = GetLogger()

	logger = zap.New(zapcore.NewCore(jsonEncoder(), zapcore.AddSync(buf), level))
}

func SetTestLoggerNop() {
	_ = GetLogger()

	logger = zap.NewNop()
}
