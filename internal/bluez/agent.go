package bluez

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/chaz8081/fastpair-seeker/internal/pairing"
)

var errAnswered = errors.New("bluez: challenge already answered")

// challenge is one agent callback waiting for a decision. The handler
// answers it synchronously, before the agent method returns to BlueZ.
type challenge struct {
	kind pairing.ChallengeKind

	mu       sync.Mutex
	answered bool
	accepted bool
}

func (c *challenge) Kind() pairing.ChallengeKind { return c.kind }

func (c *challenge) Accept() error { return c.answer(true) }

func (c *challenge) Reject() error { return c.answer(false) }

func (c *challenge) answer(accept bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.answered {
		return errAnswered
	}
	c.answered, c.accepted = true, accept
	return nil
}

func (c *challenge) reply() *dbus.Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case !c.answered:
		return errCanceled
	case c.accepted:
		return nil
	default:
		return errRejected
	}
}

type route struct {
	kinds   pairing.ChallengeKind
	handler func(pairing.Challenge)
}

// Agent implements org.bluez.Agent1. Challenges for a device are sent to
// the handler registered for it with route; challenges for any other device
// are rejected.
type Agent struct {
	mu     sync.Mutex
	routes map[dbus.ObjectPath]route
}

func newAgent() *Agent {
	return &Agent{routes: make(map[dbus.ObjectPath]route)}
}

// route sends challenges for device to handler until the returned func is
// called.
func (a *Agent) route(device dbus.ObjectPath, kinds pairing.ChallengeKind, handler func(pairing.Challenge)) func() {
	a.mu.Lock()
	a.routes[device] = route{kinds: kinds, handler: handler}
	a.mu.Unlock()
	return func() {
		a.mu.Lock()
		delete(a.routes, device)
		a.mu.Unlock()
	}
}

func (a *Agent) lookup(device dbus.ObjectPath) (route, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.routes[device]
	return r, ok
}

func (a *Agent) ask(device dbus.ObjectPath, kind pairing.ChallengeKind) *dbus.Error {
	r, ok := a.lookup(device)
	if !ok {
		slog.Warn("[AGENT] challenge for unknown device, rejecting", "device", device, "kind", kind)
		return errRejected
	}
	if !r.kinds.Has(kind) {
		slog.Warn("[AGENT] challenge kind not offered, rejecting", "device", device, "kind", kind)
		return errRejected
	}
	c := &challenge{kind: kind}
	r.handler(c)
	return c.reply()
}

func (a *Agent) Release() *dbus.Error {
	slog.Debug("[AGENT] released")
	return nil
}

func (a *Agent) RequestAuthorization(device dbus.ObjectPath) *dbus.Error {
	return a.ask(device, pairing.ConfirmOnly)
}

func (a *Agent) RequestConfirmation(device dbus.ObjectPath, passkey uint32) *dbus.Error {
	slog.Debug("[AGENT] confirm passkey", "device", device, "passkey", passkey)
	return a.ask(device, pairing.ConfirmPINMatch)
}

// RequestPinCode never supplies a PIN; an accepted challenge still has no
// PIN to answer with, so it is rejected.
func (a *Agent) RequestPinCode(device dbus.ObjectPath) (string, *dbus.Error) {
	if err := a.ask(device, pairing.ProvidePIN); err != nil {
		return "", err
	}
	return "", errRejected
}

func (a *Agent) RequestPasskey(device dbus.ObjectPath) (uint32, *dbus.Error) {
	if err := a.ask(device, pairing.ProvidePIN); err != nil {
		return 0, err
	}
	return 0, errRejected
}

func (a *Agent) DisplayPinCode(device dbus.ObjectPath, pincode string) *dbus.Error {
	slog.Debug("[AGENT] display pin", "device", device, "pin", pincode)
	return a.ask(device, pairing.DisplayPIN)
}

func (a *Agent) DisplayPasskey(device dbus.ObjectPath, passkey uint32, entered uint16) *dbus.Error {
	slog.Debug("[AGENT] display passkey", "device", device, "passkey", passkey, "entered", entered)
	return a.ask(device, pairing.DisplayPIN)
}

// AuthorizeService allows profile connections from a device that is being
// paired.
func (a *Agent) AuthorizeService(device dbus.ObjectPath, uuid string) *dbus.Error {
	if _, ok := a.lookup(device); !ok {
		slog.Warn("[AGENT] service authorization for unknown device, rejecting", "device", device, "uuid", uuid)
		return errRejected
	}
	return nil
}

func (a *Agent) Cancel() *dbus.Error {
	slog.Info("[AGENT] request canceled by bluez")
	return nil
}
