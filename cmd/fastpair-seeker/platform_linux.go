package main

import (
	"errors"

	"github.com/chaz8081/fastpair-seeker/internal/ble/tinygo"
	"github.com/chaz8081/fastpair-seeker/internal/bluez"
	"github.com/chaz8081/fastpair-seeker/internal/config"
)

// openPlatform scans through tinygo and names, checks and pairs devices
// through BlueZ directly. Both sit on the same adapter.
func openPlatform(cfg *config.Config) (*platform, error) {
	source, err := tinygo.NewSource(cfg.Adapter)
	if err != nil {
		if tinygo.IsAdapterError(err) {
			return nil, errors.New(tinygo.AdapterErrorHelpMessage(err))
		}
		return nil, err
	}

	client, err := bluez.Open(bluez.Config{
		Adapter:         cfg.Adapter,
		AgentCapability: cfg.Pairing.AgentCapability,
	})
	if err != nil {
		return nil, err
	}

	return &platform{
		source:       source,
		capabilities: client,
		factory:      client,
		close:        client.Close,
	}, nil
}
