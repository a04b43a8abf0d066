package bluez

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/chaz8081/fastpair-seeker/internal/ble/address"
	"github.com/chaz8081/fastpair-seeker/internal/pairing"
)

const testMAC = 0xAABBCCDDEEFF

func classicDevice(t *testing.T, c *Client) *Device {
	t.Helper()
	d, err := c.MaterializeClassic(context.Background(), address.Classic{Value: testMAC})
	if err != nil {
		t.Fatalf("MaterializeClassic() error = %v", err)
	}
	return d.(*Device)
}

// pairVia makes Device1.Pair ask the agent with ask and report BlueZ's
// reply: success when the agent accepted, AuthenticationRejected otherwise.
func pairVia(ask func(dev dbus.ObjectPath) *dbus.Error, path dbus.ObjectPath) func(context.Context, string, []interface{}) error {
	return func(_ context.Context, method string, _ []interface{}) error {
		if method != deviceInterface+".Pair" {
			return nil
		}
		if err := ask(path); err != nil {
			return dbus.Error{Name: "org.bluez.Error.AuthenticationRejected"}
		}
		return nil
	}
}

func TestDeviceProperties(t *testing.T) {
	c, _, obj := newTestClient(testMAC, map[string]interface{}{"Paired": true})
	d := classicDevice(t, c)

	paired, err := d.IsPaired()
	if err != nil || !paired {
		t.Errorf("IsPaired() = %v, %v", paired, err)
	}
	can, err := d.CanPair()
	if err != nil || !can {
		t.Errorf("CanPair() = %v, %v", can, err)
	}

	obj.setProp(deviceInterface+".Blocked", true)
	if can, _ := d.CanPair(); can {
		t.Error("CanPair() = true for a blocked device")
	}
}

func TestPairConfirmOnlyAccepted(t *testing.T) {
	c, _, obj := newTestClient(testMAC, nil)
	d := classicDevice(t, c)
	obj.reply = pairVia(c.agent.RequestAuthorization, d.Path())

	got, err := pairing.Run(context.Background(), d)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got.Kind != pairing.OutcomePaired {
		t.Errorf("Run() = %v, want paired", got)
	}
}

func TestPairPasskeyRejected(t *testing.T) {
	c, _, obj := newTestClient(testMAC, nil)
	d := classicDevice(t, c)
	obj.reply = pairVia(func(dev dbus.ObjectPath) *dbus.Error {
		return c.agent.RequestConfirmation(dev, 123456)
	}, d.Path())

	got, err := pairing.Run(context.Background(), d)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got.Kind != pairing.OutcomeRejected {
		t.Fatalf("Run() = %v, want rejected", got)
	}
	if got.Status != pairing.StatusRejectedByHandler {
		t.Errorf("Status = %v, want RejectedByHandler", got.Status)
	}
	if got.Challenge != pairing.ConfirmPINMatch {
		t.Errorf("Challenge = %v, want confirm-pin-match", got.Challenge)
	}
}

func TestPairAlreadyPaired(t *testing.T) {
	c, _, obj := newTestClient(testMAC, map[string]interface{}{"Paired": true})
	d := classicDevice(t, c)

	got, err := pairing.Run(context.Background(), d)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got.Kind != pairing.OutcomeAlreadyPaired {
		t.Errorf("Run() = %v, want already paired", got)
	}
	for _, m := range obj.called() {
		if m == deviceInterface+".Pair" {
			t.Error("Pair called on an already paired device")
		}
	}
}

func TestPairReleasesRoute(t *testing.T) {
	c, _, _ := newTestClient(testMAC, nil)
	d := classicDevice(t, c)

	if _, err := d.Pair(context.Background(), pairing.SupportedKinds, func(pairing.Challenge) {}); err != nil {
		t.Fatalf("Pair() error = %v", err)
	}
	if _, ok := c.agent.lookup(d.Path()); ok {
		t.Error("agent still routes challenges after Pair returned")
	}
}

func TestPairCancel(t *testing.T) {
	c, _, obj := newTestClient(testMAC, nil)
	d := classicDevice(t, c)
	obj.reply = func(ctx context.Context, method string, _ []interface{}) error {
		if method == deviceInterface+".Pair" {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := d.Pair(ctx, pairing.SupportedKinds, func(pairing.Challenge) {})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Pair() error = %v, want deadline exceeded", err)
	}

	calls := obj.called()
	if last := calls[len(calls)-1]; last != deviceInterface+".CancelPairing" {
		t.Errorf("last call = %s, want CancelPairing", last)
	}
}
