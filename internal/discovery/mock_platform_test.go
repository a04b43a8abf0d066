package discovery

import (
	"context"
	"fmt"
	"sync"

	"github.com/chaz8081/fastpair-seeker/internal/ble"
	"github.com/chaz8081/fastpair-seeker/internal/ble/address"
	"github.com/chaz8081/fastpair-seeker/internal/ble/advert"
	"github.com/chaz8081/fastpair-seeker/internal/pairing"
)

// sliceSource replays candidates, then reports the end of the scan.
type sliceSource struct {
	mu         sync.Mutex
	candidates []ble.Candidate
}

func (s *sliceSource) Next(ctx context.Context) (ble.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return ble.Candidate{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.candidates) == 0 {
		return ble.Candidate{}, ble.ErrScanEnded
	}
	c := s.candidates[0]
	s.candidates = s.candidates[1:]
	return c, nil
}

// blockingSource never yields; Next returns when ctx is done.
type blockingSource struct{}

func (blockingSource) Next(ctx context.Context) (ble.Candidate, error) {
	<-ctx.Done()
	return ble.Candidate{}, ctx.Err()
}

func candidate(v uint64, kind address.Kind, uuids ...uint16) ble.Candidate {
	var sd []advert.ServiceData
	for _, u := range uuids {
		sd = append(sd, advert.ServiceData{UUID: u, Payload: []byte{0x01}})
	}
	return ble.Candidate{
		Address:     address.FromBLE(address.BLE{Value: v, Kind: kind}),
		Kind:        advert.KindConnectableUndirected,
		ServiceData: sd,
		LocalName:   fmt.Sprintf("adv-%x", v),
	}
}

func fastPair(v uint64) ble.Candidate {
	return candidate(v, address.KindPublic, advert.FastPairServiceUUID)
}

// mockNative is a platform device handle that records pairing attempts.
type mockNative struct {
	name    string
	nameErr error
	status  pairing.Status
	paired  bool

	mu       sync.Mutex
	attempts int
}

func (d *mockNative) Name() (string, error) { return d.name, d.nameErr }

func (d *mockNative) IsPaired() (bool, error) { return d.paired, nil }

func (d *mockNative) CanPair() (bool, error) { return true, nil }

func (d *mockNative) Pair(_ context.Context, _ pairing.ChallengeKind, _ func(pairing.Challenge)) (pairing.Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attempts++
	return d.status, nil
}

func (d *mockNative) pairAttempts() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attempts
}

// mockFactory materializes mockNative devices by address value. Addresses
// listed in failBLE fail to materialize.
type mockFactory struct {
	mu      sync.Mutex
	devices map[uint64]*mockNative
	failBLE map[uint64]bool
	bleHits map[uint64]int
}

func newMockFactory() *mockFactory {
	return &mockFactory{
		devices: make(map[uint64]*mockNative),
		failBLE: make(map[uint64]bool),
		bleHits: make(map[uint64]int),
	}
}

func (f *mockFactory) device(v uint64) *mockNative {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.devices[v]
	if !ok {
		d = &mockNative{name: fmt.Sprintf("dev-%x", v)}
		f.devices[v] = d
	}
	return d
}

func (f *mockFactory) MaterializeBLE(_ context.Context, addr address.BLE) (ble.NativeDevice, error) {
	f.mu.Lock()
	f.bleHits[addr.Value]++
	fail := f.failBLE[addr.Value]
	f.mu.Unlock()
	if fail {
		return nil, fmt.Errorf("mock: device %s vanished", address.FormatMAC(addr.Value))
	}
	return f.device(addr.Value), nil
}

func (f *mockFactory) MaterializeClassic(_ context.Context, addr address.Classic) (ble.NativeClassicDevice, error) {
	return f.device(addr.Value), nil
}

// mockSource is a native advertisement watcher driven by the test.
type mockSource struct {
	mu       sync.Mutex
	received func(ble.Advertisement)
	stopped  func(error)
}

func (s *mockSource) Start(_ ble.ScanOptions, received func(ble.Advertisement), stopped func(error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received, s.stopped = received, stopped
	return nil
}

func (s *mockSource) Stop() error {
	s.mu.Lock()
	cb := s.stopped
	s.mu.Unlock()
	go cb(nil)
	return nil
}

func (s *mockSource) SimulateAdvertisement(adv ble.Advertisement) {
	s.mu.Lock()
	cb := s.received
	s.mu.Unlock()
	cb(adv)
}
