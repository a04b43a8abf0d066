package ble

import (
	"context"
	"fmt"

	"github.com/chaz8081/fastpair-seeker/internal/ble/address"
	"github.com/chaz8081/fastpair-seeker/internal/ble/advert"
	"github.com/chaz8081/fastpair-seeker/internal/pairing"
)

// Device is what every discovered peripheral can do. Operations a variant
// cannot support return a typed error rather than panicking.
type Device interface {
	// Name returns the name the platform knows the device by.
	Name() (string, error)
	// Address returns the identity the device was materialized from.
	Address() address.Address
	// Pair attempts pairing with the device.
	Pair(ctx context.Context) (pairing.Outcome, error)
	// ServiceData returns the service data records seen at discovery.
	ServiceData() ([]advert.ServiceData, error)
}

// Compile-time checks that both variants implement Device.
var (
	_ Device = (*BLEDevice)(nil)
	_ Device = (*ClassicDevice)(nil)
)

// BLEDevice is a device known by its LE identity, before pairing.
type BLEDevice struct {
	native      NativeDevice
	addr        address.BLE
	serviceData []advert.ServiceData
}

// NewBLEDevice materializes the device that sent c.
func NewBLEDevice(ctx context.Context, factory DeviceFactory, c Candidate) (*BLEDevice, error) {
	addr := c.BLE()
	native, err := factory.MaterializeBLE(ctx, addr)
	if err != nil {
		return nil, &MaterializeError{Address: c.Address, Err: err}
	}
	return &BLEDevice{native: native, addr: addr, serviceData: c.ServiceData}, nil
}

func (d *BLEDevice) Name() (string, error) {
	name, err := d.native.Name()
	if err != nil {
		return "", &LookupError{Address: d.Address(), Err: err}
	}
	return name, nil
}

func (d *BLEDevice) Address() address.Address { return address.FromBLE(d.addr) }

// Pair is not supported over LE; convert the address with
// address.ToClassic and pair a ClassicDevice instead.
func (d *BLEDevice) Pair(context.Context) (pairing.Outcome, error) {
	return pairing.Outcome{}, fmt.Errorf("%w: %s", ErrPairingUnsupported, d.addr)
}

func (d *BLEDevice) ServiceData() ([]advert.ServiceData, error) {
	return d.serviceData, nil
}

// ClassicDevice is a device known by its BR/EDR identity. It can pair.
type ClassicDevice struct {
	native NativeClassicDevice
	addr   address.Classic
}

// NewClassicDevice materializes the BR/EDR device at addr.
func NewClassicDevice(ctx context.Context, factory DeviceFactory, addr address.Classic) (*ClassicDevice, error) {
	native, err := factory.MaterializeClassic(ctx, addr)
	if err != nil {
		return nil, &MaterializeError{Address: address.FromClassic(addr), Err: err}
	}
	return &ClassicDevice{native: native, addr: addr}, nil
}

func (d *ClassicDevice) Name() (string, error) {
	name, err := d.native.Name()
	if err != nil {
		return "", &LookupError{Address: d.Address(), Err: err}
	}
	return name, nil
}

func (d *ClassicDevice) Address() address.Address { return address.FromClassic(d.addr) }

// Pair runs one pairing attempt. Platform failures are *PairingError; a
// refused or failed handshake is a non-success Outcome.
func (d *ClassicDevice) Pair(ctx context.Context) (pairing.Outcome, error) {
	outcome, err := pairing.Run(ctx, d.native)
	if err != nil {
		return pairing.Outcome{}, &PairingError{Address: d.Address(), Err: err}
	}
	return outcome, nil
}

func (d *ClassicDevice) ServiceData() ([]advert.ServiceData, error) {
	return nil, ErrServiceDataUnsupported
}
