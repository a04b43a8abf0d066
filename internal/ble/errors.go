package ble

import (
	"errors"
	"fmt"

	"github.com/chaz8081/fastpair-seeker/internal/ble/address"
)

var (
	// ErrCapabilityUnsupported is wrapped by every *CapabilityError.
	ErrCapabilityUnsupported = errors.New("ble: adapter capability unsupported")
	// ErrAlreadyScanning is returned by Bridge.Start while a scan is live.
	ErrAlreadyScanning = errors.New("ble: already scanning")
	// ErrNotScanning is returned by Bridge.Stop without a live scan.
	ErrNotScanning = errors.New("ble: not scanning")
	// ErrScanEnded is returned by Scan.Next once the sequence has ended.
	ErrScanEnded = errors.New("ble: scan ended")
	// ErrPairingUnsupported is returned by BLEDevice.Pair. Pairing goes
	// through the Classic identity.
	ErrPairingUnsupported = errors.New("ble: pairing unsupported over LE")
	// ErrServiceDataUnsupported is returned by ClassicDevice.ServiceData.
	ErrServiceDataUnsupported = errors.New("ble: service data unsupported for classic devices")
)

// CapabilityError reports an adapter that cannot run discovery. It is fatal
// at startup.
type CapabilityError struct {
	Capability string
	Err        error // query failure, nil when the adapter said "no"
}

func (e *CapabilityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ble: query %s support: %v", e.Capability, e.Err)
	}
	return fmt.Sprintf("ble: adapter does not support %s", e.Capability)
}

func (e *CapabilityError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrCapabilityUnsupported, e.Err}
	}
	return []error{ErrCapabilityUnsupported}
}

// ScanStartError wraps a platform failure to start the watcher.
type ScanStartError struct {
	Err error
}

func (e *ScanStartError) Error() string { return "ble: start scan: " + e.Err.Error() }

func (e *ScanStartError) Unwrap() error { return e.Err }

// MaterializeError wraps a platform failure to produce a device handle.
type MaterializeError struct {
	Address address.Address
	Err     error
}

func (e *MaterializeError) Error() string {
	return fmt.Sprintf("ble: materialize device %s: %v", e.Address, e.Err)
}

func (e *MaterializeError) Unwrap() error { return e.Err }

// PairingError wraps a platform failure during a pairing attempt.
type PairingError struct {
	Address address.Address
	Err     error
}

func (e *PairingError) Error() string {
	return fmt.Sprintf("ble: pair with %s: %v", e.Address, e.Err)
}

func (e *PairingError) Unwrap() error { return e.Err }

// LookupError wraps a failed name lookup.
type LookupError struct {
	Address address.Address
	Err     error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("ble: look up name of %s: %v", e.Address, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }
