/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package deflog provides the built-in logger and the level gate put in front of every logger.
package deflog

import (
	"fmt"
	"io"
	builtinlog "log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/common/log/internal/levels"
	"github.com/sd-jwt-enc/sdjwt-enc-go/spi/log"
)

const (
	prefixFormat     = " [%s] "
	levelFormat      = "UTC %s-> %s "
	callerFormat     = "- %s "
	callerNotFound   = "n/a"
	logPackagePrefix = "log.(*Log)"
	maxCallerFrames  = 6
	skipCallerFrames = 5
)

//nolint:gochecknoglobals
var (
	outputMu sync.RWMutex
	output   io.Writer = os.Stderr
)

// SetOutput redirects every built-in logger, including those already created.
func SetOutput(w io.Writer) {
	outputMu.Lock()
	defer outputMu.Unlock()

	output = w
}

type sharedWriter struct{}

func (sharedWriter) Write(p []byte) (int, error) {
	outputMu.RLock()
	defer outputMu.RUnlock()

	return output.Write(p)
}

// Logger writes lines as "[module] <date> <time> UTC - <caller> -> <LEVEL> <message>".
type Logger struct {
	logger *builtinlog.Logger
	module string
}

// New returns the built-in logger for a module.
func New(module string) *Logger {
	return &Logger{
		logger: builtinlog.New(sharedWriter{}, fmt.Sprintf(prefixFormat, module),
			builtinlog.Ldate|builtinlog.Ltime|builtinlog.LUTC),
		module: module,
	}
}

// Fatalf logs at CRITICAL and exits the process.
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.logf(log.CRITICAL, format, args...)
	os.Exit(1)
}

// Errorf logs at ERROR.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logf(log.ERROR, format, args...)
}

// Warnf logs at WARNING.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logf(log.WARNING, format, args...)
}

// Infof logs at INFO.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.logf(log.INFO, format, args...)
}

// Debugf logs at DEBUG.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logf(log.DEBUG, format, args...)
}

func (l *Logger) logf(level log.Level, format string, args ...interface{}) {
	const callDepth = 2

	prefix := fmt.Sprintf(levelFormat, l.callerInfo(level), level)

	if err := l.logger.Output(callDepth, prefix+fmt.Sprintf(format, args...)); err != nil {
		fmt.Fprintf(os.Stderr, "logger output: %v\n", err)
	}
}

// callerInfo walks up the stack past the log package wrappers to the function that logged.
func (l *Logger) callerInfo(level log.Level) string {
	if !levels.IsCallerInfoEnabled(l.module, level) {
		return ""
	}

	pcs := make([]uintptr, maxCallerFrames)

	n := runtime.Callers(skipCallerFrames, pcs)
	if n == 0 {
		return fmt.Sprintf(callerFormat, callerNotFound)
	}

	frames := runtime.CallersFrames(pcs[:n])
	skipNext := false

	for f, more := frames.Next(); more; f, more = frames.Next() {
		_, fnName := filepath.Split(f.Function)
		if f.Function == "" {
			fnName = callerNotFound
		}

		if !skipNext && strings.HasPrefix(fnName, logPackagePrefix) {
			skipNext = true

			continue
		}

		return fmt.Sprintf(callerFormat, fnName)
	}

	return fmt.Sprintf(callerFormat, callerNotFound)
}

// Gate drops messages below the level configured for its module.
type Gate struct {
	next   log.Logger
	module string
}

// NewGate wraps a logger with module level filtering.
func NewGate(next log.Logger, module string) *Gate {
	return &Gate{next: next, module: module}
}

// Fatalf is never filtered.
func (g *Gate) Fatalf(format string, args ...interface{}) {
	g.next.Fatalf(format, args...)
}

// Errorf forwards when ERROR is enabled.
func (g *Gate) Errorf(format string, args ...interface{}) {
	if levels.IsEnabledFor(g.module, log.ERROR) {
		g.next.Errorf(format, args...)
	}
}

// Warnf forwards when WARNING is enabled.
func (g *Gate) Warnf(format string, args ...interface{}) {
	if levels.IsEnabledFor(g.module, log.WARNING) {
		g.next.Warnf(format, args...)
	}
}

// Infof forwards when INFO is enabled.
func (g *Gate) Infof(format string, args ...interface{}) {
	if levels.IsEnabledFor(g.module, log.INFO) {
		g.next.Infof(format, args...)
	}
}

// Debugf forwards when DEBUG is enabled.
func (g *Gate) Debugf(format string, args ...interface{}) {
	if levels.IsEnabledFor(g.module, log.DEBUG) {
		g.next.Debugf(format, args...)
	}
}
