/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package mocklogger provides a recording logger for tests.
package mocklogger

import (
	"fmt"
	"strings"
	"sync"

	"github.com/sd-jwt-enc/sdjwt-enc-go/spi/log"
)

// MockLogger records every formatted line it receives.
type MockLogger struct {
	mu    sync.Mutex
	lines []string
	// FatalCalled is set by Fatalf, which does not exit.
	FatalCalled bool
}

// Fatalf records a CRITICAL line.
func (m *MockLogger) Fatalf(msg string, args ...interface{}) {
	m.record(log.CRITICAL, msg, args...)

	m.mu.Lock()
	m.FatalCalled = true
	m.mu.Unlock()
}

// Errorf records an ERROR line.
func (m *MockLogger) Errorf(msg string, args ...interface{}) {
	m.record(log.ERROR, msg, args...)
}

// Warnf records a WARNING line.
func (m *MockLogger) Warnf(msg string, args ...interface{}) {
	m.record(log.WARNING, msg, args...)
}

// Infof records an INFO line.
func (m *MockLogger) Infof(msg string, args ...interface{}) {
	m.record(log.INFO, msg, args...)
}

// Debugf records a DEBUG line.
func (m *MockLogger) Debugf(msg string, args ...interface{}) {
	m.record(log.DEBUG, msg, args...)
}

// Lines returns a copy of the recorded lines.
func (m *MockLogger) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.lines...)
}

// Contents returns all recorded lines joined by new lines.
func (m *MockLogger) Contents() string {
	return strings.Join(m.Lines(), "\n")
}

func (m *MockLogger) record(level log.Level, msg string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lines = append(m.lines, level.String()+" "+fmt.Sprintf(msg, args...))
}

// Provider hands out the same MockLogger for every module.
type Provider struct {
	Logger *MockLogger
}

// GetLogger returns the provider's logger.
func (p *Provider) GetLogger(string) log.Logger {
	return p.Logger
}
