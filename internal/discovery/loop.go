// Package discovery turns a sequence of advertisement candidates into a
// deduplicated, index-addressable catalogue of Fast Pair devices and pairs
// with them on request.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chaz8081/fastpair-seeker/internal/ble"
	"github.com/chaz8081/fastpair-seeker/internal/ble/address"
	"github.com/chaz8081/fastpair-seeker/internal/ble/advert"
	"github.com/chaz8081/fastpair-seeker/internal/pairing"
)

// CandidateSource yields candidates until it returns ble.ErrScanEnded.
// *ble.Scan implements it.
type CandidateSource interface {
	Next(ctx context.Context) (ble.Candidate, error)
}

// Options configures a Loop.
type Options struct {
	ServiceUUID  uint16      // service data UUID a candidate must carry
	OnDiscovered func(Entry) // called once per new device, from the loop goroutine
}

// DefaultOptions filters for the Fast Pair service.
func DefaultOptions() Options {
	return Options{ServiceUUID: advert.FastPairServiceUUID}
}

// Loop consumes candidates into a Catalogue.
type Loop struct {
	catalogue *Catalogue
	factory   ble.DeviceFactory
	opts      Options
}

// NewLoop creates a Loop writing to catalogue.
func NewLoop(catalogue *Catalogue, factory ble.DeviceFactory, opts Options) *Loop {
	if opts.ServiceUUID == 0 {
		opts.ServiceUUID = advert.FastPairServiceUUID
	}
	return &Loop{catalogue: catalogue, factory: factory, opts: opts}
}

// Catalogue returns the catalogue the loop writes to.
func (l *Loop) Catalogue() *Catalogue { return l.catalogue }

// Run consumes src until the sequence ends or ctx is done; both return nil.
// Per-candidate failures are logged and skipped.
func (l *Loop) Run(ctx context.Context, src CandidateSource) error {
	for {
		c, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, ble.ErrScanEnded) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("discovery: next candidate: %w", err)
		}
		l.consider(ctx, c)
	}
}

func (l *Loop) consider(ctx context.Context, c ble.Candidate) {
	if !c.Kind.Pairable() {
		return
	}
	if !advert.MatchesService(c.ServiceData, l.opts.ServiceUUID) {
		return
	}
	if l.catalogue.Contains(c.Address) {
		return
	}

	dev, err := ble.NewBLEDevice(ctx, l.factory, c)
	if err != nil {
		slog.Warn("[DISCOVERY] error creating device", "addr", c.Address, "error", err)
		return
	}

	name, err := dev.Name()
	if err != nil {
		slog.Warn("[DISCOVERY] name lookup failed", "addr", c.Address, "error", err)
		name = c.LocalName
	}

	entry, added := l.catalogue.Add(dev, name)
	if !added {
		return
	}
	slog.Debug("[DISCOVERY] new device", "index", entry.Index, "addr", c.Address, "name", name, "rssi", c.RSSI)
	if l.opts.OnDiscovered != nil {
		l.opts.OnDiscovered(entry)
	}
}

// Pair pairs with the device at index through its Classic identity. The
// catalogue lock is not held while pairing. A failed attempt leaves the
// entry in place for a retry.
func (l *Loop) Pair(ctx context.Context, index int) (pairing.Outcome, error) {
	entry, err := l.catalogue.Get(index)
	if err != nil {
		return pairing.Outcome{}, err
	}

	classic, err := classicAddress(entry.Device.Address())
	if err != nil {
		return pairing.Outcome{}, fmt.Errorf("discovery: device %d: %w", index, err)
	}

	dev, err := ble.NewClassicDevice(ctx, l.factory, classic)
	if err != nil {
		return pairing.Outcome{}, err
	}

	slog.Info("[DISCOVERY] pairing", "index", index, "addr", classic)
	outcome, err := dev.Pair(ctx)
	if err != nil {
		slog.Warn("[DISCOVERY] pairing failed", "index", index, "error", err)
		return pairing.Outcome{}, err
	}
	slog.Info("[DISCOVERY] pairing finished", "index", index, "outcome", outcome)
	return outcome, nil
}

func classicAddress(a address.Address) (address.Classic, error) {
	if c, ok := a.Classic(); ok {
		return c, nil
	}
	b, ok := a.BLE()
	if !ok {
		return address.Classic{}, fmt.Errorf("%w: %s", address.ErrInvalidAddressKind, a)
	}
	return address.ToClassic(b)
}
