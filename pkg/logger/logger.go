// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package logger provides a process-wide structured logger backed by
// log/slog, with a printf-style and a key-value-style API so call sites can
// pick whichever reads more naturally.
package logger

import (
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/go-logr/logr"

	"github.com/stacklok/toolhive-core/env"
	"github.com/stacklok/toolhive-core/logging"
)

var singleton atomic.Value // *slog.Logger

func init() {
	singleton.Store(logging.New(logging.WithOutput(os.Stderr)))
}

// realEnvReader reads from the actual process environment.
type realEnvReader struct{}

func (realEnvReader) Getenv(key string) string { return os.Getenv(key) }

// Initialize (re)configures the singleton logger from the process environment.
func Initialize() {
	InitializeWithEnv(realEnvReader{})
}

// InitializeWithEnv configures the singleton logger using e as the source of
// UNSTRUCTURED_LOGS, allowing tests to inject a mock reader.
func InitializeWithEnv(e env.Reader) {
	singleton.Store(logging.New(
		logging.WithLevel(slog.LevelInfo),
		logging.WithUnstructured(unstructuredLogsWithEnv(e)),
	))
}

// unstructuredLogsWithEnv reports whether UNSTRUCTURED_LOGS should be treated
// as true. Empty or unparsable values default to true (toolhive-bridge is
// most often run interactively).
func unstructuredLogsWithEnv(e env.Reader) bool {
	switch e.Getenv("UNSTRUCTURED_LOGS") {
	case "false":
		return false
	case "true":
		return true
	default:
		return true
	}
}

// Get returns the current singleton *slog.Logger.
func Get() *slog.Logger {
	return singleton.Load().(*slog.Logger)
}

// NewLogr adapts the singleton logger to a logr.Logger, for dependencies
// (such as controller-runtime-style clients) that expect one.
func NewLogr() logr.Logger {
	return logr.FromSlogHandler(Get().Handler())
}

func Debug(msg string)                  { Get().Debug(msg) }
func Debugf(format string, args ...any) { Get().Debug(fmt.Sprintf(format, args...)) }
func Debugw(msg string, kv ...any)      { Get().Debug(msg, kv...) }

func Info(msg string)                  { Get().Info(msg) }
func Infof(format string, args ...any) { Get().Info(fmt.Sprintf(format, args...)) }
func Infow(msg string, kv ...any)      { Get().Info(msg, kv...) }

func Warn(msg string)                  { Get().Warn(msg) }
func Warnf(format string, args ...any) { Get().Warn(fmt.Sprintf(format, args...)) }
func Warnw(msg string, kv ...any)      { Get().Warn(msg, kv...) }

func Error(msg string)                  { Get().Error(msg) }
func Errorf(format string, args ...any) { Get().Error(fmt.Sprintf(format, args...)) }
func Errorw(msg string, kv ...any)      { Get().Error(msg, kv...) }

// DPanic logs at error level and does not panic, matching the production-mode
// DPanic semantics the teacher's zap-backed logger exposes.
func DPanic(msg string)                  { Get().Error(msg) }
func DPanicf(format string, args ...any) { Get().Error(fmt.Sprintf(format, args...)) }
func DPanicw(msg string, kv ...any)      { Get().Error(msg, kv...) }

func Panic(msg string)                  { Get().Error(msg); panic(msg) }
func Panicf(format string, args ...any) { m := fmt.Sprintf(format, args...); Get().Error(m); panic(m) }
func Panicw(msg string, kv ...any)      { Get().Error(msg, kv...); panic(msg) }
