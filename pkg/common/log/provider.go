/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package log

import (
	"sync"

	"github.com/sd-jwt-enc/sdjwt-enc-go/pkg/common/log/internal/deflog"
	"github.com/sd-jwt-enc/sdjwt-enc-go/spi/log"
)

const loggerModule = "sdjwt-enc/common/log"

//nolint:gochecknoglobals
var (
	providerInstance log.LoggerProvider
	providerOnce     sync.Once
)

// Initialize installs a custom logging provider. Only the first call made before any
// line is logged takes effect; later calls are ignored.
func Initialize(l log.LoggerProvider) {
	providerOnce.Do(func() {
		providerInstance = &gatedProvider{custom: l}
		providerInstance.GetLogger(loggerModule).Debugf("custom logger provider initialized")
	})
}

func loggerProvider() log.LoggerProvider {
	providerOnce.Do(func() {
		providerInstance = &gatedProvider{}
		providerInstance.GetLogger(loggerModule).Debugf(
			"built-in logger in use (call log.Initialize() before logging to install a custom one)")
	})

	return providerInstance
}

// gatedProvider applies module levels on top of the custom provider, or the built-in logger.
type gatedProvider struct {
	custom log.LoggerProvider
}

func (p *gatedProvider) GetLogger(module string) log.Logger {
	var l log.Logger = deflog.New(module)

	if p.custom != nil {
		l = p.custom.GetLogger(module)
	}

	return deflog.NewGate(l, module)
}
