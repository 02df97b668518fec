/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package logutil formats command/action log lines. Values passed as data must never hold key material.
package logutil

import (
	"fmt"
	"strings"

	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/common/log"
)

// LogError is a utility function to log error messages.
func LogError(logger *log.Log, command, action string, err error, data ...string) {
	logger.Errorf("command=[%s] action=[%s]%s errMsg=[%s]", command, action, joinData(data), err)
}

// LogDebug is a utility function to log debug messages.
func LogDebug(logger *log.Log, command, action, msg string, data ...string) {
	logger.Debugf("command=[%s] action=[%s]%s msg=[%s]", command, action, joinData(data), msg)
}

// LogInfo is a utility function to log info messages.
func LogInfo(logger *log.Log, command, action, msg string, data ...string) {
	logger.Infof("command=[%s] action=[%s]%s msg=[%s]", command, action, joinData(data), msg)
}

// CreateKeyValueString creates a concatenated string.
func CreateKeyValueString(key string, val interface{}) string {
	return fmt.Sprintf("%s=[%v]", key, val)
}

func joinData(data []string) string {
	if len(data) == 0 {
		return ""
	}

	return " " + strings.Join(data, " ")
}
