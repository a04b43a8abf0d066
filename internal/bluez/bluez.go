// Package bluez talks to the BlueZ daemon over the system D-Bus. It answers
// adapter capability queries, materializes device handles from addresses
// and runs the pairing agent that turns BlueZ's agent callbacks into
// pairing challenges.
package bluez

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/chaz8081/fastpair-seeker/internal/ble/address"
	"github.com/chaz8081/fastpair-seeker/internal/pairing"
)

const (
	busName                     = "org.bluez"
	rootPath                    = "/org/bluez"
	adapterInterface            = "org.bluez.Adapter1"
	deviceInterface             = "org.bluez.Device1"
	agentInterface              = "org.bluez.Agent1"
	agentManagerInterface       = "org.bluez.AgentManager1"
	advertisingManagerInterface = "org.bluez.LEAdvertisingManager1"

	agentPath = dbus.ObjectPath("/org/bluez/fastpairseeker/agent")
)

// Agent capabilities accepted by AgentManager1.RegisterAgent.
const (
	CapabilityDisplayOnly     = "DisplayOnly"
	CapabilityDisplayYesNo    = "DisplayYesNo"
	CapabilityKeyboardOnly    = "KeyboardOnly"
	CapabilityNoInputNoOutput = "NoInputNoOutput"
	CapabilityKeyboardDisplay = "KeyboardDisplay"
)

// ValidCapability reports whether c is an agent capability BlueZ accepts.
func ValidCapability(c string) bool {
	switch c {
	case CapabilityDisplayOnly, CapabilityDisplayYesNo, CapabilityKeyboardOnly,
		CapabilityNoInputNoOutput, CapabilityKeyboardDisplay:
		return true
	}
	return false
}

// object is the subset of dbus.BusObject this package uses.
type object interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call
	GetProperty(p string) (dbus.Variant, error)
}

// AdapterPath returns the object path of adapter id, e.g. "hci0".
func AdapterPath(id string) dbus.ObjectPath {
	return dbus.ObjectPath(rootPath + "/" + id)
}

// DevicePath returns the object path BlueZ uses for the device at mac under
// adapter: /org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF.
func DevicePath(adapter dbus.ObjectPath, mac uint64) dbus.ObjectPath {
	s := strings.ReplaceAll(address.FormatMAC(mac), ":", "_")
	return dbus.ObjectPath(string(adapter) + "/dev_" + s)
}

// AddressFromPath extracts the device address from a device object path.
func AddressFromPath(path dbus.ObjectPath) (uint64, error) {
	s := string(path)
	i := strings.LastIndex(s, "/")
	if i < 0 || !strings.HasPrefix(s[i+1:], "dev_") {
		return 0, fmt.Errorf("bluez: %q is not a device path", path)
	}
	return address.ParseMAC(strings.ReplaceAll(s[i+5:], "_", ":"))
}

func property[T any](o object, iface, name string) (T, error) {
	var zero T
	v, err := o.GetProperty(iface + "." + name)
	if err != nil {
		return zero, fmt.Errorf("bluez: read %s: %w", name, err)
	}
	t, ok := v.Value().(T)
	if !ok {
		return zero, fmt.Errorf("bluez: %s has unexpected type %s", name, v.Signature())
	}
	return t, nil
}

// Errors BlueZ returns from Device1.Pair, mapped to pairing statuses.
var pairStatus = map[string]pairing.Status{
	"org.bluez.Error.AlreadyExists":           pairing.StatusAlreadyPaired,
	"org.bluez.Error.InProgress":              pairing.StatusAlreadyInProgress,
	"org.bluez.Error.AuthenticationCanceled":  pairing.StatusPairingCanceled,
	"org.bluez.Error.AuthenticationFailed":    pairing.StatusAuthenticationFailure,
	"org.bluez.Error.AuthenticationRejected":  pairing.StatusRejectedByHandler,
	"org.bluez.Error.AuthenticationTimeout":   pairing.StatusAuthenticationTimeout,
	"org.bluez.Error.ConnectionAttemptFailed": pairing.StatusConnectionRejected,
	"org.bluez.Error.InvalidArguments":        pairing.StatusInvalidCeremonyData,
	"org.bluez.Error.NotReady":                pairing.StatusNotReadyToPair,
	"org.bluez.Error.NotSupported":            pairing.StatusNoSupportedProfiles,
	"org.freedesktop.DBus.Error.NoReply":      pairing.StatusAuthenticationTimeout,
}

// statusFromError reduces the reply to Device1.Pair. D-Bus errors become a
// status; anything else (a broken connection, a cancelled context) is
// returned as an error.
func statusFromError(err error) (pairing.Status, error) {
	if err == nil {
		return pairing.StatusPaired, nil
	}
	name, ok := errorName(err)
	if !ok {
		return pairing.StatusFailed, err
	}
	if s, ok := pairStatus[name]; ok {
		return s, nil
	}
	return pairing.StatusFailed, nil
}

func errorName(err error) (string, bool) {
	var ve dbus.Error
	if errors.As(err, &ve) {
		return ve.Name, true
	}
	var pe *dbus.Error
	if errors.As(err, &pe) && pe != nil {
		return pe.Name, true
	}
	return "", false
}

var (
	errRejected = dbus.NewError("org.bluez.Error.Rejected", nil)
	errCanceled = dbus.NewError("org.bluez.Error.Canceled", nil)
)
