// Package ble turns a platform Bluetooth stack into the pieces the Fast Pair
// seeker needs: a capability check, a pull-based sequence of advertisement
// candidates, and device handles that can be named and paired. The platform
// itself sits behind the small interfaces in this file so it can be mocked.
package ble

import (
	"context"

	"github.com/chaz8081/fastpair-seeker/internal/ble/address"
	"github.com/chaz8081/fastpair-seeker/internal/ble/advert"
	"github.com/chaz8081/fastpair-seeker/internal/pairing"
)

// CapabilityQuery reports what the local adapter supports.
type CapabilityQuery interface {
	SupportsLE() (bool, error)
	SupportsCentralRole() (bool, error)
	SupportsExtendedAdvertising() (bool, error)
}

// ScanOptions configures the native watcher.
type ScanOptions struct {
	Active        bool // request scan responses
	AllowExtended bool // receive extended advertisements
}

// Advertisement is one raw event from the native source.
type Advertisement struct {
	Address     uint64
	AddressType address.RawKind
	Kind        advert.Kind
	ServiceData []advert.ServiceData
	LocalName   string
	RSSI        int16
}

// AdvertisementSource is the native, callback-driven scanner. received may
// be called from any goroutine and must not be blocked. stopped is called
// once when the watcher halts, with the error that stopped it, if any.
type AdvertisementSource interface {
	Start(opts ScanOptions, received func(Advertisement), stopped func(error)) error
	// Stop asks the watcher to halt. The stopped callback follows.
	Stop() error
}

// NativeDevice is a platform device handle.
type NativeDevice interface {
	Name() (string, error)
}

// NativeClassicDevice is a platform BR/EDR device handle that can pair.
type NativeClassicDevice interface {
	NativeDevice
	pairing.Target
}

// DeviceFactory materializes platform device handles from addresses.
type DeviceFactory interface {
	MaterializeBLE(ctx context.Context, addr address.BLE) (NativeDevice, error)
	MaterializeClassic(ctx context.Context, addr address.Classic) (NativeClassicDevice, error)
}

// Capabilities is the result of CheckCapabilities.
type Capabilities struct {
	LE                  bool
	CentralRole         bool
	ExtendedAdvertising bool
}

// CheckCapabilities fails with a *CapabilityError when the adapter lacks LE
// transport or the central role. Extended advertising is optional.
func CheckCapabilities(q CapabilityQuery) (Capabilities, error) {
	var caps Capabilities
	var err error

	if caps.LE, err = q.SupportsLE(); err != nil {
		return caps, &CapabilityError{Capability: "low energy", Err: err}
	}
	if !caps.LE {
		return caps, &CapabilityError{Capability: "low energy"}
	}
	if caps.CentralRole, err = q.SupportsCentralRole(); err != nil {
		return caps, &CapabilityError{Capability: "central role", Err: err}
	}
	if !caps.CentralRole {
		return caps, &CapabilityError{Capability: "central role"}
	}
	// Extended advertising is a nice-to-have; a failed query means "no".
	if caps.ExtendedAdvertising, err = q.SupportsExtendedAdvertising(); err != nil {
		caps.ExtendedAdvertising = false
	}
	return caps, nil
}
