/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package log implements a module based, leveled logger for fmt-style messages intended for developers & debugging.
//
// Every package creates its logger once:
//
//	var logger = log.New("sdjwt-enc/crypto/hybrid")
//
// The underlying implementation is resolved lazily on the first logged line, so a custom
// log.LoggerProvider must be registered through Initialize before anything is logged.
package log

import (
	"io"
	"sync"

	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/common/log/internal/deflog"
	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/common/log/internal/levels"
	"github.com/sd-jwt-enc/sdjwt-enc-go/spi/log"
)

// Log is a lazily bound, module scoped logger.
type Log struct {
	instance log.Logger
	module   string
	once     sync.Once
}

// New creates a logger for the given module.
func New(module string) *Log {
	return &Log{module: module}
}

// Fatalf logs a critical message and lets the implementation terminate the process.
func (l *Log) Fatalf(msg string, args ...interface{}) {
	l.logger().Fatalf(msg, args...)
}

// Errorf logs at ERROR level.
func (l *Log) Errorf(msg string, args ...interface{}) {
	l.logger().Errorf(msg, args...)
}

// Warnf logs at WARNING level.
func (l *Log) Warnf(msg string, args ...interface{}) {
	l.logger().Warnf(msg, args...)
}

// Infof logs at INFO level.
func (l *Log) Infof(msg string, args ...interface{}) {
	l.logger().Infof(msg, args...)
}

// Debugf logs at DEBUG level.
func (l *Log) Debugf(msg string, args ...interface{}) {
	l.logger().Debugf(msg, args...)
}

func (l *Log) logger() log.Logger {
	l.once.Do(func() {
		l.instance = loggerProvider().GetLogger(l.module)
	})

	return l.instance
}

// SetLevel sets the logging level of a module. The default level is INFO.
// An empty module name sets the level for every module without its own level.
func SetLevel(module string, level log.Level) {
	levels.SetLevel(module, level)
}

// GetLevel returns the logging level of a module.
func GetLevel(module string) log.Level {
	return levels.GetLevel(module)
}

// IsEnabledFor reports whether the level is enabled for the module.
func IsEnabledFor(module string, level log.Level) bool {
	return levels.IsEnabledFor(module, level)
}

// ParseLevel returns the level from its string representation ("debug", "INFO", "warn", ...).
func ParseLevel(level string) (log.Level, error) {
	return levels.ParseLevel(level)
}

// ShowCallerInfo prints caller info in log lines of the module and level.
// Custom providers may ignore this setting.
func ShowCallerInfo(module string, level log.Level) {
	levels.ShowCallerInfo(module, level)
}

// HideCallerInfo stops printing caller info in log lines of the module and level.
func HideCallerInfo(module string, level log.Level) {
	levels.HideCallerInfo(module, level)
}

// IsCallerInfoEnabled reports whether caller info is printed for the module and level.
func IsCallerInfoEnabled(module string, level log.Level) bool {
	return levels.IsCallerInfoEnabled(module, level)
}

// SetOutput redirects the built-in logger. It has no effect on custom providers.
func SetOutput(w io.Writer) {
	deflog.SetOutput(w)
}
