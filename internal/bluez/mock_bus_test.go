package bluez

import (
	"context"
	"sync"

	"github.com/godbus/dbus/v5"
)

// fakeObject stands in for a remote BlueZ object. Properties are keyed by
// "interface.Name"; reply decides the error for each method call.
type fakeObject struct {
	mu    sync.Mutex
	props map[string]interface{}
	calls []string
	reply func(ctx context.Context, method string, args []interface{}) error
}

func newFakeObject(props map[string]interface{}) *fakeObject {
	if props == nil {
		props = make(map[string]interface{})
	}
	return &fakeObject{props: props}
}

func (o *fakeObject) CallWithContext(ctx context.Context, method string, _ dbus.Flags, args ...interface{}) *dbus.Call {
	o.mu.Lock()
	o.calls = append(o.calls, method)
	reply := o.reply
	o.mu.Unlock()

	var err error
	if reply != nil {
		err = reply(ctx, method, args)
	}
	return &dbus.Call{Method: method, Args: args, Err: err}
}

func (o *fakeObject) GetProperty(p string) (dbus.Variant, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	v, ok := o.props[p]
	if !ok {
		return dbus.Variant{}, dbus.Error{Name: "org.freedesktop.DBus.Error.UnknownObject"}
	}
	return dbus.MakeVariant(v), nil
}

func (o *fakeObject) setProp(p string, v interface{}) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.props[p] = v
}

func (o *fakeObject) called() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.calls...)
}

// fakeBus hands out fakeObjects by path. Unknown paths get an empty object
// with no properties, like a device BlueZ has never seen.
type fakeBus struct {
	mu      sync.Mutex
	objects map[dbus.ObjectPath]*fakeObject
}

func newFakeBus() *fakeBus {
	return &fakeBus{objects: make(map[dbus.ObjectPath]*fakeObject)}
}

func (b *fakeBus) add(path dbus.ObjectPath, props map[string]interface{}) *fakeObject {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := newFakeObject(props)
	b.objects[path] = o
	return o
}

func (b *fakeBus) object(path dbus.ObjectPath) object {
	b.mu.Lock()
	defer b.mu.Unlock()
	if o, ok := b.objects[path]; ok {
		return o
	}
	return newFakeObject(nil)
}

// newTestClient returns a client on hci0 with a known device at mac.
func newTestClient(mac uint64, deviceProps map[string]interface{}) (*Client, *fakeBus, *fakeObject) {
	bus := newFakeBus()
	c := newClient(AdapterPath("hci0"), bus.object)
	bus.add(rootPath, nil)
	bus.add(c.adapter, map[string]interface{}{
		adapterInterface + ".Address": "00:11:22:33:44:55",
		adapterInterface + ".Roles":   []string{"central", "peripheral"},
	})
	props := map[string]interface{}{
		deviceInterface + ".Address": "AA:BB:CC:DD:EE:FF",
		deviceInterface + ".Alias":   "Pixel Buds",
		deviceInterface + ".Paired":  false,
		deviceInterface + ".Blocked": false,
	}
	for k, v := range deviceProps {
		props[deviceInterface+"."+k] = v
	}
	dev := bus.add(DevicePath(c.adapter, mac), props)
	return c, bus, dev
}
