package advert

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// baseUUID is the Bluetooth Base UUID, 00000000-0000-1000-8000-00805F9B34FB.
// A 16-bit UUID occupies bytes 2 and 3.
var baseUUID = uuid.MustParse("00000000-0000-1000-8000-00805f9b34fb")

// ParseUUID16 parses a 16-bit service UUID written as "0x2CFE", "2cfe" or
// in its full 128-bit form on the Bluetooth Base UUID.
func ParseUUID16(s string) (uint16, error) {
	s = strings.TrimSpace(s)
	if len(s) > 8 {
		u, err := uuid.Parse(s)
		if err != nil {
			return 0, fmt.Errorf("advert: parse uuid %q: %w", s, err)
		}
		short := u
		short[2], short[3] = 0, 0
		if short != baseUUID {
			return 0, fmt.Errorf("advert: uuid %s is not a 16-bit Bluetooth UUID", u)
		}
		return uint16(u[2])<<8 | uint16(u[3]), nil
	}

	hex := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(hex, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("advert: parse uuid %q: %w", s, err)
	}
	return uint16(v), nil
}

// FormatUUID16 renders u as 0x2CFE.
func FormatUUID16(u uint16) string {
	return fmt.Sprintf("0x%04X", u)
}
