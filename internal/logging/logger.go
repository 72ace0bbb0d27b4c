// Package logging provides category-keyed structured logging for nyx-light.
// Every subsystem logs through a named Category so operators can enable or
// silence one concern (the inference layer, the pipeline, the router...)
// without touching the others.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names a logging concern. Handlers, engines and the pipeline all
// log under one of these so an operator can grep or filter by subsystem.
type Category string

const (
	CategoryBoot      Category = "boot"
	CategoryPipeline  Category = "pipeline"
	CategoryRouter    Category = "router"
	CategoryEngines   Category = "engines"
	CategoryMemory    Category = "memory"
	CategoryRAG       Category = "rag"
	CategoryVault     Category = "vault"
	CategoryInference Category = "inference"
	CategoryQueue     Category = "queue"
	CategorySilicon   Category = "silicon"
	CategoryOverseer  Category = "overseer"
	CategoryExport    Category = "export"
	CategoryScheduler Category = "scheduler"
	CategoryEinvoice  Category = "einvoice"
)

var (
	mu      sync.RWMutex
	base    *zap.Logger
	loggers = make(map[Category]*zap.Logger)
)

// Initialize configures the base zap logger. logDir may be empty, in which
// case logs go to stderr only (useful for tests and one-shot CLI commands).
// jsonFormat selects the production JSON encoder over the human-readable
// console encoder.
func Initialize(logDir string, debug bool, jsonFormat bool) error {
	mu.Lock()
	defer mu.Unlock()

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var encoder zapcore.Encoder
	if jsonFormat {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	sinks := []zapcore.WriteSyncer{zapcore.AddSync(os.Stderr)}
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(logDir, "nyxlight.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		sinks = append(sinks, zapcore.AddSync(f))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), level)
	base = zap.New(core, zap.AddCaller())
	loggers = make(map[Category]*zap.Logger)
	return nil
}

func ensureBase() {
	if base == nil {
		base = zap.NewNop()
	}
}

// For returns the logger scoped to category, creating and caching it.
func For(category Category) *zap.Logger {
	mu.RLock()
	l, ok := loggers[category]
	mu.RUnlock()
	if ok {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	ensureBase()
	if l, ok := loggers[category]; ok {
		return l
	}
	l = base.With(zap.String("category", string(category)))
	loggers[category] = l
	return l
}

// Timer measures and logs the duration of an operation at Stop.
type Timer struct {
	logger *zap.Logger
	op     string
	start  time.Time
}

// StartTimer begins timing op under category; call Stop when the operation
// completes. Mirrors the teacher's StartTimer/Stop pairing.
func StartTimer(category Category, op string) *Timer {
	return &Timer{logger: For(category), op: op, start: time.Now()}
}

// Stop logs the elapsed duration at debug level.
func (t *Timer) Stop() {
	t.logger.Debug("timed operation", zap.String("op", t.op), zap.Duration("elapsed", time.Since(t.start)))
}

// Sync flushes any buffered log entries. Call before process exit.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if base != nil {
		_ = base.Sync()
	}
}
