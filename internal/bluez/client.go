package bluez

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/godbus/dbus/v5"

	"github.com/chaz8081/fastpair-seeker/internal/ble"
	"github.com/chaz8081/fastpair-seeker/internal/ble/address"
)

// Compile-time checks.
var (
	_ ble.CapabilityQuery = (*Client)(nil)
	_ ble.DeviceFactory   = (*Client)(nil)
)

// Config selects the adapter and the agent capability to register.
type Config struct {
	Adapter         string // e.g. "hci0"
	AgentCapability string // one of the Capability* constants
}

// Client is a connection to BlueZ bound to one adapter.
type Client struct {
	conn    *dbus.Conn
	adapter dbus.ObjectPath
	agent   *Agent
	object  func(dbus.ObjectPath) object
}

// Open connects to the system bus, checks that the adapter exists and
// registers the pairing agent as the default agent.
func Open(cfg Config) (*Client, error) {
	if !ValidCapability(cfg.AgentCapability) {
		return nil, fmt.Errorf("bluez: invalid agent capability %q", cfg.AgentCapability)
	}

	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("bluez: connect to system bus: %w", err)
	}

	c := newClient(AdapterPath(cfg.Adapter), func(p dbus.ObjectPath) object {
		return conn.Object(busName, p)
	})
	c.conn = conn

	if _, err := property[string](c.object(c.adapter), adapterInterface, "Address"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("bluez: adapter %s: %w", cfg.Adapter, err)
	}

	if err := conn.Export(c.agent, agentPath, agentInterface); err != nil {
		conn.Close()
		return nil, fmt.Errorf("bluez: export agent: %w", err)
	}
	if err := c.registerAgent(context.Background(), cfg.AgentCapability); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

func newClient(adapter dbus.ObjectPath, objectAt func(dbus.ObjectPath) object) *Client {
	return &Client{adapter: adapter, agent: newAgent(), object: objectAt}
}

func (c *Client) registerAgent(ctx context.Context, capability string) error {
	mgr := c.object(rootPath)
	if err := mgr.CallWithContext(ctx, agentManagerInterface+".RegisterAgent", 0, agentPath, capability).Err; err != nil {
		return fmt.Errorf("bluez: register agent: %w", err)
	}
	if err := mgr.CallWithContext(ctx, agentManagerInterface+".RequestDefaultAgent", 0, agentPath).Err; err != nil {
		return fmt.Errorf("bluez: request default agent: %w", err)
	}
	slog.Debug("[BLUEZ] agent registered", "path", agentPath, "capability", capability)
	return nil
}

// Close unregisters the agent and closes the bus connection.
func (c *Client) Close() error {
	err := c.object(rootPath).CallWithContext(context.Background(), agentManagerInterface+".UnregisterAgent", 0, agentPath).Err
	if err != nil {
		slog.Warn("[BLUEZ] unregister agent failed", "error", err)
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Adapter returns the adapter's object path.
func (c *Client) Adapter() dbus.ObjectPath { return c.adapter }

func (c *Client) roles() ([]string, error) {
	return property[[]string](c.object(c.adapter), adapterInterface, "Roles")
}

// SupportsLE reports whether the adapter has any LE role.
func (c *Client) SupportsLE() (bool, error) {
	roles, err := c.roles()
	if err != nil {
		return false, err
	}
	return len(roles) > 0, nil
}

// SupportsCentralRole reports whether the adapter can act as an LE central.
func (c *Client) SupportsCentralRole() (bool, error) {
	roles, err := c.roles()
	if err != nil {
		return false, err
	}
	return slices.Contains(roles, "central"), nil
}

// SupportsExtendedAdvertising reports whether the controller offers any
// secondary advertising channel.
func (c *Client) SupportsExtendedAdvertising() (bool, error) {
	channels, err := property[[]string](c.object(c.adapter), advertisingManagerInterface, "SupportedSecondaryChannels")
	if err != nil {
		return false, err
	}
	return len(channels) > 0, nil
}

func (c *Client) device(mac uint64) (*Device, error) {
	path := DevicePath(c.adapter, mac)
	obj := c.object(path)
	if _, err := property[string](obj, deviceInterface, "Address"); err != nil {
		return nil, fmt.Errorf("bluez: device %s not known: %w", address.FormatMAC(mac), err)
	}
	return &Device{path: path, obj: obj, agent: c.agent}, nil
}

// MaterializeBLE returns the handle BlueZ created for addr while scanning.
func (c *Client) MaterializeBLE(_ context.Context, addr address.BLE) (ble.NativeDevice, error) {
	return c.device(addr.Value)
}

// MaterializeClassic returns the handle for addr. Dual-mode devices with a
// public LE address share one object with their BR/EDR identity.
func (c *Client) MaterializeClassic(_ context.Context, addr address.Classic) (ble.NativeClassicDevice, error) {
	return c.device(addr.Value)
}
