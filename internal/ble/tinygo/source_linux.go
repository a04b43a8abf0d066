package tinygo

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/chaz8081/fastpair-seeker/internal/ble"
	"github.com/chaz8081/fastpair-seeker/internal/ble/address"
	"github.com/chaz8081/fastpair-seeker/internal/ble/advert"
)

var errScanInProgress = errors.New("tinygo: scan in progress")

// How often a Stop that found no scan to stop is retried while Scan is
// still starting up.
const (
	stopRetryInterval = 20 * time.Millisecond
	stopRetryLimit    = 250
)

var _ ble.AdvertisementSource = (*Source)(nil)

// scanner is the part of *bluetooth.Adapter a Source drives.
type scanner interface {
	Scan(callback func(*bluetooth.Adapter, bluetooth.ScanResult)) error
	StopScan() error
}

// Source runs BlueZ discovery through tinygo's adapter. BlueZ always scans
// actively and reports extended advertisements when the controller can, so
// ScanOptions has no effect.
type Source struct {
	adapter scanner

	mu            sync.Mutex
	scanning      bool
	stopRequested atomic.Bool
}

// NewSource enables adapter id ("hci0"), or the default adapter when id is
// empty.
func NewSource(id string) (*Source, error) {
	adapter := bluetooth.DefaultAdapter
	if id != "" {
		adapter = bluetooth.NewAdapter(id)
	}
	if err := adapter.Enable(); err != nil {
		return nil, err
	}
	return &Source{adapter: adapter}, nil
}

// Start runs the scan on its own goroutine. stopped is called with the
// scan's error when it returns.
func (s *Source) Start(opts ble.ScanOptions, received func(ble.Advertisement), stopped func(error)) error {
	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		return errScanInProgress
	}
	s.scanning = true
	s.stopRequested.Store(false)
	s.mu.Unlock()

	slog.Debug("[TINYGO] scan starting", "active", opts.Active, "extended", opts.AllowExtended)

	go func() {
		err := s.adapter.Scan(func(a *bluetooth.Adapter, r bluetooth.ScanResult) {
			// A Stop that raced the start of Scan found nothing to stop.
			if s.stopRequested.Load() {
				if _, err := s.stopScan(); err != nil {
					slog.Warn("[TINYGO] stop scan failed", "error", err)
				}
				return
			}
			received(toAdvertisement(r))
		})

		s.mu.Lock()
		s.scanning = false
		s.mu.Unlock()
		stopped(err)
	}()
	return nil
}

// Stop stops the scan. The stopped callback follows once Scan returns.
func (s *Source) Stop() error {
	s.stopRequested.Store(true)
	stopped, err := s.stopScan()
	if err != nil {
		return err
	}
	if !stopped && s.isScanning() {
		// Scan has not set up its session yet.
		go s.retryStop()
	}
	return nil
}

// stopScan reports false when there was no scan session to stop.
func (s *Source) stopScan() (bool, error) {
	err := s.adapter.StopScan()
	if err != nil && strings.Contains(err.Error(), "no scan in progress") {
		return false, nil
	}
	return err == nil, err
}

func (s *Source) isScanning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanning
}

// retryStop keeps stopping until the scan goroutine ends, a new scan takes
// over, or the retry limit is hit.
func (s *Source) retryStop() {
	ticker := time.NewTicker(stopRetryInterval)
	defer ticker.Stop()

	for range stopRetryLimit {
		<-ticker.C
		if !s.isScanning() || !s.stopRequested.Load() {
			return
		}
		stopped, err := s.stopScan()
		if err != nil {
			slog.Warn("[TINYGO] stop scan failed", "error", err)
			return
		}
		if stopped {
			slog.Debug("[TINYGO] deferred stop succeeded")
			return
		}
	}
	slog.Warn("[TINYGO] scan never started, giving up on stop")
}

func toAdvertisement(r bluetooth.ScanResult) ble.Advertisement {
	raw := address.RawPublic
	if r.Address.IsRandom() {
		raw = address.RawRandom
	}

	var sd []advert.ServiceData
	for _, e := range r.ServiceData() {
		if !e.UUID.Is16Bit() {
			continue
		}
		sd = append(sd, advert.ServiceData{UUID: e.UUID.Get16Bit(), Payload: e.Data})
	}

	// BlueZ does not report the PDU type.
	return ble.Advertisement{
		Address:     macValue(r.Address.MAC),
		AddressType: raw,
		Kind:        advert.KindUnknown,
		ServiceData: sd,
		LocalName:   r.LocalName(),
		RSSI:        r.RSSI,
	}
}

// IsAdapterError reports whether err means D-Bus or BlueZ is unreachable.
func IsAdapterError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if strings.Contains(msg, "dbus") && strings.HasSuffix(msg, "no such file or directory") {
		return true
	}
	return strings.Contains(msg, "The name org.bluez was not provided by any .service files")
}

// AdapterErrorHelpMessage explains an adapter error to the user.
func AdapterErrorHelpMessage(err error) string {
	return "failed to initialize the Bluetooth adapter:\n\t" + err.Error() + "\n" +
		"Make sure bluez and dbus are installed and running.\n" +
		"In a container, mount the host's D-Bus socket (-v /var/run/dbus:/var/run/dbus)."
}
