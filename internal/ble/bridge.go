package ble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"weak"

	"github.com/google/uuid"

	"github.com/chaz8081/fastpair-seeker/internal/ble/address"
	"github.com/chaz8081/fastpair-seeker/internal/ble/advert"
)

// MinBufferSize is the smallest candidate buffer a Bridge will use.
const MinBufferSize = 16

// BridgeOptions configures a Bridge.
type BridgeOptions struct {
	BufferSize int // pending candidates before new ones are dropped
	Scan       ScanOptions
}

// DefaultBridgeOptions returns sensible defaults.
func DefaultBridgeOptions() BridgeOptions {
	return BridgeOptions{
		BufferSize: MinBufferSize,
		Scan:       ScanOptions{Active: true},
	}
}

// Candidate is a well-formed advertisement from a BLE device.
type Candidate struct {
	Address     address.Address
	Kind        advert.Kind
	ServiceData []advert.ServiceData
	LocalName   string
	RSSI        int16
}

// BLE returns the candidate's LE address.
func (c Candidate) BLE() address.BLE {
	b, _ := c.Address.BLE()
	return b
}

func newCandidate(adv Advertisement) (Candidate, error) {
	kind, err := address.ParseKind(adv.AddressType)
	if err != nil {
		return Candidate{}, err
	}
	b, err := address.NewBLE(adv.Address, kind)
	if err != nil {
		return Candidate{}, err
	}
	return Candidate{
		Address:     address.FromBLE(b),
		Kind:        adv.Kind,
		ServiceData: adv.ServiceData,
		LocalName:   adv.LocalName,
		RSSI:        adv.RSSI,
	}, nil
}

// Bridge adapts a callback-driven AdvertisementSource into a pull-based
// sequence of Candidates. At most one scan is live at a time.
type Bridge struct {
	source AdvertisementSource
	opts   BridgeOptions

	mu      sync.Mutex
	current *Scan
}

// NewBridge creates a Bridge over source.
func NewBridge(source AdvertisementSource, opts BridgeOptions) *Bridge {
	if opts.BufferSize < MinBufferSize {
		opts.BufferSize = MinBufferSize
	}
	return &Bridge{source: source, opts: opts}
}

// Start begins scanning. It fails with ErrAlreadyScanning until the previous
// scan's watcher has halted, either on its own or after Stop.
func (b *Bridge) Start() (*Scan, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current != nil && !b.current.watcherStopped.Load() {
		return nil, ErrAlreadyScanning
	}

	ch := make(chan Candidate, b.opts.BufferSize)
	scan := &Scan{
		id:          uuid.NewString(),
		ch:          ch,
		done:        make(chan struct{}),
		watcherDone: make(chan struct{}),
	}

	// The stopped callback holds the only strong reference to the producer
	// and is the only path that closes it. The received callback holds a
	// weak reference and becomes a no-op once the producer is gone.
	owner := &sender{ch: ch, scanID: scan.id}
	weakOwner := weak.Make(owner)

	received := func(adv Advertisement) {
		s := weakOwner.Value()
		if s == nil {
			return
		}
		c, err := newCandidate(adv)
		if err != nil {
			slog.Debug("[SCAN] skipping malformed advertisement",
				"scan", scan.id, "addr", address.FormatMAC(adv.Address), "error", err)
			return
		}
		s.send(c)
	}

	var once sync.Once
	stopped := func(err error) {
		once.Do(func() {
			if err != nil {
				slog.Warn("[SCAN] watcher stopped with error", "scan", scan.id, "error", err)
			} else {
				slog.Info("[SCAN] watcher stopped receiving advertisements", "scan", scan.id)
			}
			scan.watcherStopped.Store(true)
			owner.close()
			owner = nil
			close(scan.watcherDone)
		})
	}

	if err := b.source.Start(b.opts.Scan, received, stopped); err != nil {
		return nil, &ScanStartError{Err: err}
	}
	b.current = scan
	slog.Info("[SCAN] started", "scan", scan.id, "active", b.opts.Scan.Active, "extended", b.opts.Scan.AllowExtended)
	return scan, nil
}

// Stop halts s. After Stop is called, s produces no further candidates and
// any blocked Next returns ErrScanEnded, even when the native stop fails.
// A failed native stop can be retried with the same handle. Stopping a
// handle that is not the live scan, or one already stopped, fails with
// ErrNotScanning. The watcher halts later; see Scan.WatcherDone.
func (b *Bridge) Stop(s *Scan) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s == nil || b.current != s || s.stopIssued {
		return ErrNotScanning
	}

	s.halt()
	if !s.watcherStopped.Load() {
		if err := b.source.Stop(); err != nil {
			return fmt.Errorf("ble: stop scan: %w", err)
		}
		slog.Debug("[SCAN] stop requested", "scan", s.id)
	}
	s.stopIssued = true
	return nil
}

// Close stops the live scan, if any.
func (b *Bridge) Close() error {
	b.mu.Lock()
	s := b.current
	idle := s == nil || s.stopIssued || s.watcherStopped.Load()
	b.mu.Unlock()
	if idle {
		return nil
	}
	if err := b.Stop(s); err != nil && !errors.Is(err, ErrNotScanning) {
		return err
	}
	return nil
}

// Scan is one scanning session and the consumer end of its candidate
// sequence.
type Scan struct {
	id          string
	ch          <-chan Candidate
	done        chan struct{}
	watcherDone chan struct{}

	haltOnce       sync.Once
	halted         atomic.Bool
	watcherStopped atomic.Bool
	stopIssued     bool // guarded by Bridge.mu
}

// ID identifies the session in logs.
func (s *Scan) ID() string { return s.id }

// WatcherDone is closed once the native watcher has halted. A new Start
// succeeds from then on.
func (s *Scan) WatcherDone() <-chan struct{} { return s.watcherDone }

// Next blocks until a candidate arrives, the sequence ends, or ctx is done.
// The end of the sequence is reported as ErrScanEnded, and every later
// call reports it again. A cancelled ctx returns ctx.Err() and leaves the
// sequence intact.
func (s *Scan) Next(ctx context.Context) (Candidate, error) {
	if s.halted.Load() {
		return Candidate{}, ErrScanEnded
	}
	select {
	case c, ok := <-s.ch:
		if !ok || s.halted.Load() {
			return Candidate{}, ErrScanEnded
		}
		return c, nil
	case <-s.done:
		return Candidate{}, ErrScanEnded
	case <-ctx.Done():
		return Candidate{}, ctx.Err()
	}
}

func (s *Scan) halt() {
	s.haltOnce.Do(func() {
		s.halted.Store(true)
		close(s.done)
	})
}

// sender is the producer end of a scan's channel.
type sender struct {
	scanID string

	mu      sync.Mutex
	ch      chan<- Candidate
	closed  bool
	dropped int
}

// send never blocks: when the buffer is full or the channel closed, the
// candidate is dropped.
func (s *sender) send(c Candidate) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		slog.Debug("[SCAN] advertisement after stop, dropping", "scan", s.scanID, "addr", c.Address)
		return
	}
	select {
	case s.ch <- c:
		s.mu.Unlock()
		return
	default:
	}
	s.dropped++
	dropped := s.dropped
	s.mu.Unlock()
	slog.Warn("[SCAN] buffer full, dropping advertisement", "scan", s.scanID, "addr", c.Address, "dropped", dropped)
}

func (s *sender) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}
