package address

import (
	"errors"
	"testing"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		raw     RawKind
		want    Kind
		wantErr bool
	}{
		{RawPublic, KindPublic, false},
		{RawRandom, KindRandom, false},
		{RawPublicIdentity, KindPublic, false},
		{RawRandomIdentity, KindRandom, false},
		{RawUnspecified, 0, true},
		{0x04, 0, true},
		{0x7f, 0, true},
	}

	for _, tt := range tests {
		got, err := ParseKind(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseKind(0x%02x) error = %v, wantErr %v", uint8(tt.raw), err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidAddressKind) {
				t.Errorf("ParseKind(0x%02x) error = %v, want ErrInvalidAddressKind", uint8(tt.raw), err)
			}
			if got != 0 {
				t.Errorf("ParseKind(0x%02x) = %v on error, want zero Kind", uint8(tt.raw), got)
			}
			continue
		}
		if got != tt.want {
			t.Errorf("ParseKind(0x%02x) = %v, want %v", uint8(tt.raw), got, tt.want)
		}
	}
}

func TestParseKindNeverDefaults(t *testing.T) {
	for raw := 0; raw <= 0xff; raw++ {
		k, err := ParseKind(RawKind(raw))
		switch RawKind(raw) {
		case RawPublic, RawRandom, RawPublicIdentity, RawRandomIdentity:
			if err != nil {
				t.Errorf("ParseKind(0x%02x) unexpected error %v", raw, err)
			}
		default:
			if err == nil {
				t.Errorf("ParseKind(0x%02x) = %v, want error", raw, k)
			}
		}
	}
}

func TestNewBLE(t *testing.T) {
	if _, err := NewBLE(0x112233445566, 0); !errors.Is(err, ErrInvalidAddressKind) {
		t.Errorf("NewBLE with zero kind error = %v, want ErrInvalidAddressKind", err)
	}
	if _, err := NewBLE(1<<48, KindPublic); !errors.Is(err, ErrAddressTooWide) {
		t.Errorf("NewBLE with 49-bit value error = %v, want ErrAddressTooWide", err)
	}
	b, err := NewBLE(0x112233445566, KindRandom)
	if err != nil {
		t.Fatalf("NewBLE() error = %v", err)
	}
	if b.Value != 0x112233445566 || b.Kind != KindRandom {
		t.Errorf("NewBLE() = %+v", b)
	}
}

func TestToClassic(t *testing.T) {
	pub := BLE{Value: 0xAABBCCDDEEFF, Kind: KindPublic}
	c, err := ToClassic(pub)
	if err != nil {
		t.Fatalf("ToClassic(public) error = %v", err)
	}
	if c.Value != pub.Value {
		t.Errorf("ToClassic(public) = %x, want %x", c.Value, pub.Value)
	}

	_, err = ToClassic(BLE{Value: 0xC1BBCCDDEEFF, Kind: KindRandom})
	if !errors.Is(err, ErrUnsupportedAddressKind) {
		t.Errorf("ToClassic(random) error = %v, want ErrUnsupportedAddressKind", err)
	}

	_, err = ToClassic(BLE{Value: 1})
	if !errors.Is(err, ErrInvalidAddressKind) {
		t.Errorf("ToClassic(zero kind) error = %v, want ErrInvalidAddressKind", err)
	}
}

func TestToClassicDeterministic(t *testing.T) {
	inputs := []BLE{
		{Value: 0, Kind: KindPublic},
		{Value: 0x0123456789AB, Kind: KindPublic},
		{Value: 0xFFFFFFFFFFFF, Kind: KindPublic},
		{Value: 0x0123456789AB, Kind: KindRandom},
		{Value: 1 << 50, Kind: KindPublic},
	}
	for _, in := range inputs {
		first, firstErr := ToClassic(in)
		for i := 0; i < 10; i++ {
			got, err := ToClassic(in)
			if got != first || (err == nil) != (firstErr == nil) {
				t.Fatalf("ToClassic(%+v) not deterministic: %v/%v then %v/%v", in, first, firstErr, got, err)
			}
			if err != nil && err.Error() != firstErr.Error() {
				t.Fatalf("ToClassic(%+v) error changed: %v then %v", in, firstErr, err)
			}
		}
	}
}

func TestAddressVariants(t *testing.T) {
	b := BLE{Value: 0x010203040506, Kind: KindPublic}
	a := FromBLE(b)
	if a.Transport() != TransportLE {
		t.Errorf("Transport() = %v, want le", a.Transport())
	}
	got, ok := a.BLE()
	if !ok || got != b {
		t.Errorf("BLE() = %v, %v", got, ok)
	}
	if _, ok := a.Classic(); ok {
		t.Error("Classic() on a BLE address should report false")
	}

	c := FromClassic(Classic{Value: 0x010203040506})
	if c == a {
		t.Error("BLE and Classic addresses with the same value must not compare equal")
	}
	if _, ok := c.BLE(); ok {
		t.Error("BLE() on a Classic address should report false")
	}

	seen := map[Address]bool{a: true}
	if !seen[FromBLE(b)] {
		t.Error("equal addresses should hit the same map key")
	}
	if seen[FromBLE(BLE{Value: b.Value, Kind: KindRandom})] {
		t.Error("same value with different kind should be a different key")
	}
}

func TestFormatAndParseMAC(t *testing.T) {
	if got := FormatMAC(0xAABBCCDDEEFF); got != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("FormatMAC() = %q", got)
	}
	v, err := ParseMAC("aa:bb:cc:dd:ee:ff")
	if err != nil {
		t.Fatalf("ParseMAC() error = %v", err)
	}
	if v != 0xAABBCCDDEEFF {
		t.Errorf("ParseMAC() = %x", v)
	}
	if _, err := ParseMAC("not-a-mac"); err == nil {
		t.Error("ParseMAC() should reject garbage")
	}
	if _, err := ParseMAC("00:00:5e:00:53:00:00:01"); err == nil {
		t.Error("ParseMAC() should reject EUI-64")
	}
}
