// Package testutils provides helpers shared by package tests.
package testutils

import (
	"github.com/coverhub/coverhub/pkg/lumber"
)

// GetLogger returns a dummy lumber.Logger.
func GetLogger() (lumber.Logger, error) {
	logger, err := lumber.NewLogger(lumber.LoggingConfig{ConsoleLevel: lumber.Debug}, true, 1)
	if err != nil {
		return nil, err
	}

	return logger, nil
}
