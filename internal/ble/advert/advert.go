// Package advert holds the parts of a BLE advertisement the Fast Pair
// seeker looks at: the advertisement type and the 16-bit service data
// records.
package advert

import "fmt"

// FastPairServiceUUID is the 16-bit service data UUID advertised by Fast
// Pair providers.
const FastPairServiceUUID uint16 = 0x2CFE

// ServiceDataType is the AD type of a 16-bit UUID service data section.
const ServiceDataType = 0x16

// ServiceData is one service data record of an advertisement. The payload
// is opaque here.
type ServiceData struct {
	UUID    uint16
	Payload []byte
}

// Equal compares records by UUID only.
func (s ServiceData) Equal(other ServiceData) bool {
	return s.UUID == other.UUID
}

func (s ServiceData) String() string {
	return fmt.Sprintf("0x%04X (%d bytes)", s.UUID, len(s.Payload))
}

// MatchesService reports whether any record carries target.
func MatchesService(records []ServiceData, target uint16) bool {
	for _, r := range records {
		if r.UUID == target {
			return true
		}
	}
	return false
}

// Find returns the first record carrying uuid.
func Find(records []ServiceData, uuid uint16) (ServiceData, bool) {
	for _, r := range records {
		if r.UUID == uuid {
			return r, true
		}
	}
	return ServiceData{}, false
}

// Kind is the advertising PDU type.
type Kind uint8

const (
	// KindUnknown is used when the source does not report the PDU type.
	KindUnknown Kind = iota
	KindConnectableUndirected
	KindConnectableDirected
	KindScannableUndirected
	KindNonConnectableUndirected
	KindScanResponse
	KindExtended
)

var kindNames = map[Kind]string{
	KindUnknown:                  "unknown",
	KindConnectableUndirected:    "connectable-undirected",
	KindConnectableDirected:      "connectable-directed",
	KindScannableUndirected:      "scannable-undirected",
	KindNonConnectableUndirected: "non-connectable-undirected",
	KindScanResponse:             "scan-response",
	KindExtended:                 "extended",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Pairable is false for advertisers that cannot accept a connection.
func (k Kind) Pairable() bool {
	return k != KindNonConnectableUndirected
}
