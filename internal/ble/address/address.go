// Package address models Bluetooth device addresses. A BLE address carries
// the LE address type it was advertised with; a Classic address is the
// BR/EDR identity used for pairing. Nothing in this package talks to a radio.
package address

import (
	"errors"
	"fmt"
	"net"
)

var (
	// ErrInvalidAddressKind is returned when a platform address type is
	// unspecified or unrecognized.
	ErrInvalidAddressKind = errors.New("address: invalid address kind")
	// ErrUnsupportedAddressKind is returned when a BLE address has no
	// derivable Classic identity.
	ErrUnsupportedAddressKind = errors.New("address: unsupported address kind")
	// ErrAddressTooWide is returned for values that do not fit in 48 bits.
	ErrAddressTooWide = errors.New("address: value exceeds 48 bits")
)

// maxValue is the largest 48-bit device address.
const maxValue = 1<<48 - 1

// Kind is the LE address type of a BLE address. The zero value is invalid.
type Kind uint8

const (
	KindPublic Kind = iota + 1
	KindRandom
)

func (k Kind) String() string {
	switch k {
	case KindPublic:
		return "public"
	case KindRandom:
		return "random"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

func (k Kind) valid() bool {
	return k == KindPublic || k == KindRandom
}

// RawKind is the LE address type byte as reported by the controller.
type RawKind uint8

const (
	RawPublic         RawKind = 0x00
	RawRandom         RawKind = 0x01
	RawPublicIdentity RawKind = 0x02
	RawRandomIdentity RawKind = 0x03
	RawUnspecified    RawKind = 0xFF
)

// ParseKind maps a platform address type to a Kind. Unspecified and unknown
// values are errors.
func ParseKind(raw RawKind) (Kind, error) {
	switch raw {
	case RawPublic, RawPublicIdentity:
		return KindPublic, nil
	case RawRandom, RawRandomIdentity:
		return KindRandom, nil
	case RawUnspecified:
		return 0, fmt.Errorf("%w: unspecified", ErrInvalidAddressKind)
	default:
		return 0, fmt.Errorf("%w: 0x%02x", ErrInvalidAddressKind, uint8(raw))
	}
}

// BLE is an LE device address together with its address type.
type BLE struct {
	Value uint64
	Kind  Kind
}

// NewBLE validates value and kind.
func NewBLE(value uint64, kind Kind) (BLE, error) {
	if !kind.valid() {
		return BLE{}, fmt.Errorf("%w: %s", ErrInvalidAddressKind, kind)
	}
	if value > maxValue {
		return BLE{}, fmt.Errorf("%w: 0x%x", ErrAddressTooWide, value)
	}
	return BLE{Value: value, Kind: kind}, nil
}

func (b BLE) String() string {
	return FormatMAC(b.Value) + " (" + b.Kind.String() + ")"
}

// Classic is a BR/EDR device address.
type Classic struct {
	Value uint64
}

// NewClassic validates the width of value.
func NewClassic(value uint64) (Classic, error) {
	if value > maxValue {
		return Classic{}, fmt.Errorf("%w: 0x%x", ErrAddressTooWide, value)
	}
	return Classic{Value: value}, nil
}

func (c Classic) String() string {
	return FormatMAC(c.Value)
}

// ToClassic derives the Classic identity of a BLE address. Dual-mode devices
// share their public address between transports; random addresses (private
// or static) are not BR/EDR identities and are rejected.
func ToClassic(b BLE) (Classic, error) {
	switch b.Kind {
	case KindPublic:
		if b.Value > maxValue {
			return Classic{}, fmt.Errorf("%w: 0x%x", ErrAddressTooWide, b.Value)
		}
		return Classic{Value: b.Value}, nil
	case KindRandom:
		return Classic{}, fmt.Errorf("%w: %s has a random LE address", ErrUnsupportedAddressKind, FormatMAC(b.Value))
	default:
		return Classic{}, fmt.Errorf("%w: %s", ErrInvalidAddressKind, b.Kind)
	}
}

// Transport tags which variant an Address holds.
type Transport uint8

const (
	TransportLE Transport = iota + 1
	TransportClassic
)

func (t Transport) String() string {
	switch t {
	case TransportLE:
		return "le"
	case TransportClassic:
		return "classic"
	default:
		return "unknown"
	}
}

// Address is either a BLE or a Classic address. It is comparable and used
// as a map key for deduplication.
type Address struct {
	transport Transport
	value     uint64
	kind      Kind
}

// FromBLE wraps a BLE address.
func FromBLE(b BLE) Address {
	return Address{transport: TransportLE, value: b.Value, kind: b.Kind}
}

// FromClassic wraps a Classic address.
func FromClassic(c Classic) Address {
	return Address{transport: TransportClassic, value: c.Value}
}

// Transport reports which variant a holds.
func (a Address) Transport() Transport { return a.transport }

// BLE returns the BLE variant, if a holds one.
func (a Address) BLE() (BLE, bool) {
	if a.transport != TransportLE {
		return BLE{}, false
	}
	return BLE{Value: a.value, Kind: a.kind}, true
}

// Classic returns the Classic variant, if a holds one.
func (a Address) Classic() (Classic, bool) {
	if a.transport != TransportClassic {
		return Classic{}, false
	}
	return Classic{Value: a.value}, true
}

func (a Address) String() string {
	switch a.transport {
	case TransportLE:
		return BLE{Value: a.value, Kind: a.kind}.String()
	case TransportClassic:
		return FormatMAC(a.value)
	default:
		return "<none>"
	}
}

// FormatMAC renders a 48-bit address as AA:BB:CC:DD:EE:FF, most significant
// byte first.
func FormatMAC(v uint64) string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X",
		byte(v>>40), byte(v>>32), byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// ParseMAC parses AA:BB:CC:DD:EE:FF (or the dash-separated form) into a
// 48-bit value.
func ParseMAC(s string) (uint64, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return 0, fmt.Errorf("address: parse %q: %w", s, err)
	}
	if len(hw) != 6 {
		return 0, fmt.Errorf("address: parse %q: not a 48-bit address", s)
	}
	var v uint64
	for _, b := range hw {
		v = v<<8 | uint64(b)
	}
	return v, nil
}
