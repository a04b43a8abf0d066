package bluez

import (
	"context"
	"log/slog"

	"github.com/godbus/dbus/v5"

	"github.com/chaz8081/fastpair-seeker/internal/pairing"
)

// Device is a org.bluez.Device1 object.
type Device struct {
	path  dbus.ObjectPath
	obj   object
	agent *Agent
}

// Path returns the device's object path.
func (d *Device) Path() dbus.ObjectPath { return d.path }

// Name returns the device alias, which BlueZ falls back to the address for
// devices without a name.
func (d *Device) Name() (string, error) {
	return property[string](d.obj, deviceInterface, "Alias")
}

func (d *Device) IsPaired() (bool, error) {
	return property[bool](d.obj, deviceInterface, "Paired")
}

// CanPair is false for blocked devices.
func (d *Device) CanPair() (bool, error) {
	blocked, err := property[bool](d.obj, deviceInterface, "Blocked")
	if err != nil {
		return false, err
	}
	return !blocked, nil
}

// Pair calls Device1.Pair and routes agent challenges for this device to
// handler while the call is in flight. Cancelling ctx cancels the pairing.
func (d *Device) Pair(ctx context.Context, kinds pairing.ChallengeKind, handler func(pairing.Challenge)) (pairing.Status, error) {
	release := d.agent.route(d.path, kinds, handler)
	defer release()

	slog.Debug("[BLUEZ] pair", "device", d.path, "kinds", kinds)
	err := d.obj.CallWithContext(ctx, deviceInterface+".Pair", 0).Err
	if ctx.Err() != nil {
		if cerr := d.obj.CallWithContext(context.Background(), deviceInterface+".CancelPairing", 0).Err; cerr != nil {
			slog.Warn("[BLUEZ] cancel pairing failed", "device", d.path, "error", cerr)
		}
		return pairing.StatusPairingCanceled, ctx.Err()
	}
	return statusFromError(err)
}
