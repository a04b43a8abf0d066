package main

import "github.com/chaz8081/fastpair-seeker/internal/ble"

// platform bundles the native pieces discovery and pairing run on.
type platform struct {
	source       ble.AdvertisementSource
	capabilities ble.CapabilityQuery
	factory      ble.DeviceFactory
	close        func() error
}

func (p *platform) Close() error {
	if p.close == nil {
		return nil
	}
	return p.close()
}
