/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package levels keeps per module log levels and caller info switches.
package levels

import (
	"errors"
	"strings"
	"sync"

	"github.com/sd-jwt-enc/sdjwt-enc-go/spi/log"
)

// defaultModule holds the level applied to modules without an explicit level.
const defaultModule = ""

//nolint:gochecknoglobals
var (
	mu         sync.RWMutex
	moduleLvls = map[string]log.Level{defaultModule: log.INFO}
	callerInfo = map[callerInfoKey]bool{}
)

type callerInfoKey struct {
	module string
	level  log.Level
}

// SetLevel sets the level for a module. An empty module name changes the default level.
func SetLevel(module string, level log.Level) {
	mu.Lock()
	defer mu.Unlock()

	moduleLvls[module] = level
}

// GetLevel returns the level of a module, falling back to the default level.
func GetLevel(module string) log.Level {
	mu.RLock()
	defer mu.RUnlock()

	if lvl, ok := moduleLvls[module]; ok {
		return lvl
	}

	return moduleLvls[defaultModule]
}

// IsEnabledFor reports whether messages of the given level are emitted for a module.
func IsEnabledFor(module string, level log.Level) bool {
	return level <= GetLevel(module)
}

// ShowCallerInfo enables caller info for a module and level.
func ShowCallerInfo(module string, level log.Level) {
	setCallerInfo(module, level, true)
}

// HideCallerInfo disables caller info for a module and level.
func HideCallerInfo(module string, level log.Level) {
	setCallerInfo(module, level, false)
}

// IsCallerInfoEnabled reports whether caller info is printed. Caller info is on unless hidden.
func IsCallerInfoEnabled(module string, level log.Level) bool {
	mu.RLock()
	defer mu.RUnlock()

	enabled, ok := callerInfo[callerInfoKey{module: module, level: level}]

	return !ok || enabled
}

func setCallerInfo(module string, level log.Level, enabled bool) {
	mu.Lock()
	defer mu.Unlock()

	callerInfo[callerInfoKey{module: module, level: level}] = enabled
}

// ParseLevel returns the level matching a case-insensitive name such as "debug" or "WARN".
func ParseLevel(level string) (log.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "CRITICAL", "FATAL":
		return log.CRITICAL, nil
	case "ERROR":
		return log.ERROR, nil
	case "WARNING", "WARN":
		return log.WARNING, nil
	case "INFO":
		return log.INFO, nil
	case "DEBUG":
		return log.DEBUG, nil
	default:
		return log.ERROR, errors.New("logger: invalid log level")
	}
}
