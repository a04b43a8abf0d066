package discovery

import (
	"errors"
	"fmt"
	"sync"

	"github.com/chaz8081/fastpair-seeker/internal/ble"
	"github.com/chaz8081/fastpair-seeker/internal/ble/address"
)

// ErrIndexOutOfRange is returned for an index no device was assigned.
var ErrIndexOutOfRange = errors.New("discovery: index out of range")

// Entry is one discovered device.
type Entry struct {
	Index  int
	Name   string
	Device ble.Device
}

// Catalogue is the append-only list of discovered devices shared between
// the discovery loop (writer) and the interaction surface (reader). An
// index, once assigned, never changes. Safe for concurrent use.
type Catalogue struct {
	mu      sync.Mutex
	entries []Entry
	seen    map[address.Address]struct{}
}

// NewCatalogue returns an empty catalogue.
func NewCatalogue() *Catalogue {
	return &Catalogue{seen: make(map[address.Address]struct{})}
}

// Contains reports whether a device with addr was already added.
func (c *Catalogue) Contains(addr address.Address) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.seen[addr]
	return ok
}

// Add appends d unless its address is already present. The first device
// seen at an address wins.
func (c *Catalogue) Add(d ble.Device, name string) (Entry, bool) {
	addr := d.Address()

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.seen[addr]; ok {
		return Entry{}, false
	}
	e := Entry{Index: len(c.entries), Name: name, Device: d}
	c.entries = append(c.entries, e)
	c.seen[addr] = struct{}{}
	return e, true
}

// Get returns the entry at index i.
func (c *Catalogue) Get(i int) (Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.entries) {
		return Entry{}, fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, i, len(c.entries))
	}
	return c.entries[i], nil
}

// Len returns the number of entries.
func (c *Catalogue) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// List returns a snapshot of all entries in discovery order.
func (c *Catalogue) List() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}
