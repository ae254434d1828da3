package common

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// logger is read by every poll task; replacements go through Store.
var (
	logger atomic.Pointer[zap.Logger]
	once   sync.Once
)

func getLogger() *zap.Logger {
	initLogger()
	return logger.Load()
}

func GetLogger() *zap.Logger {
	return getLogger().Named("default")
}

func GetLoggerWith(name string, fields ...zap.Field) *zap.Logger {
	return getLogger().Named(name).With(fields...)
}

// GetCoreLogger returns the monitor_core logger tagged with a category.
func GetCoreLogger(category string) *zap.Logger {
	return GetLoggerWith(LoggerNameMonitorCore, zap.String(LoggerFieldCategory, category))
}

func logsDir() string {
	if dir := os.Getenv(EnvKeyLogDir); dir != "" {
		return dir
	}
	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("Error getting current directory: %v", err)
	}
	return filepath.Join(wd, "logs")
}

func initLogger() {
	once.Do(func() {
		dir := logsDir()
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			log.Fatalf("Error find/create logs directory: %v", err)
		}

		logFile := &lumberjack.Logger{
			Filename:   filepath.Join(dir, "printwatch.log"),
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     28,   // days
			Compress:   true, // gzip
		}

		encoderCfg := zap.NewProductionEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderCfg),
			zapcore.AddSync(logFile),
			zap.InfoLevel,
		)

		if IsProduction() {
			logger.Store(zap.New(fileCore, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)))
		} else {
			consoleEncoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
			consoleCore := zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stderr), zap.DebugLevel)

			combinedCore := zapcore.NewTee(fileCore, consoleCore)
			logger.Store(zap.New(combinedCore, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)))
		}
	})
}

// SetTestCaptureLogger swaps in a JSON logger writing to buf. Writes are
// serialized so concurrent poll tasks can log into the same buffer.
func SetTestCaptureLogger(buf *bytes.Buffer, level zapcore.Level) {
	initLogger()

	writer := zapcore.Lock(zapcore.AddSync(buf))
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	core := zapcore.NewCore(encoder, writer, level)
	logger.Store(zap.New(core))
}

func SetTestLoggerNop() {
	initLogger()

	logger.Store(zap.NewNop())
}
