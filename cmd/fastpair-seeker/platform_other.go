//go:build !linux

package main

import (
	"errors"
	"runtime"

	"github.com/chaz8081/fastpair-seeker/internal/config"
)

func openPlatform(*config.Config) (*platform, error) {
	return nil, errors.New("pairing needs BlueZ; " + runtime.GOOS + " is not supported")
}
