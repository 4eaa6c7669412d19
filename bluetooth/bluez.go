package bluetooth

import (
	"context"
	"fmt"
	"path"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

type managedObjects map[dbus.ObjectPath]map[string]map[string]dbus.Variant

// BlueZ is a thin client for the parts of the BlueZ D-Bus API the monitor needs.
type BlueZ struct {
	conn    *dbus.Conn
	adapter string
	log     *zap.Logger
}

// NewBlueZ connects to the system bus.
func NewBlueZ(adapter string, log *zap.Logger) (*BlueZ, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to system D-Bus: %v", ErrAdapterUnavailable, err)
	}
	if adapter == "" {
		adapter = DefaultAdapter
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BlueZ{conn: conn, adapter: adapter, log: log.Named("bluez")}, nil
}

// Adapter returns the adapter name, e.g. hci0.
func (b *BlueZ) Adapter() string {
	return b.adapter
}

// CheckAdapter makes sure the adapter exists and is powered. A failure here means the
// Bluetooth stack cannot be used at all.
func (b *BlueZ) CheckAdapter(ctx context.Context) error {
	objects, err := b.getManagedObjects(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAdapterUnavailable, err)
	}

	adapterPath, props, err := findAdapter(objects, b.adapter)
	if err != nil {
		return err
	}

	if powered, ok := props["Powered"].Value().(bool); ok && powered {
		b.log.Info("Adapter ready", zap.String("adapter", b.adapter), zap.String("path", string(adapterPath)))
		return nil
	}

	b.log.Info("Powering on adapter", zap.String("adapter", b.adapter))
	adapter := b.conn.Object(BLUEZ_BUS_NAME, adapterPath)
	call := adapter.CallWithContext(ctx, DBUS_PROPERTIES_INTERFACE+".Set", 0,
		BLUEZ_ADAPTER_INTERFACE, "Powered", dbus.MakeVariant(true))
	if call.Err != nil {
		return fmt.Errorf("%w: failed to power on %s: %v", ErrAdapterUnavailable, b.adapter, call.Err)
	}
	return nil
}

// DeviceConnected reads Device1.Connected for the peer.
func (b *BlueZ) DeviceConnected(ctx context.Context, mac MAC) (bool, error) {
	device := b.conn.Object(BLUEZ_BUS_NAME, mac.DevicePath(b.adapter))
	var connected bool
	err := device.CallWithContext(ctx, DBUS_PROPERTIES_INTERFACE+".Get", 0, BLUEZ_DEVICE_INTERFACE, "Connected").Store(&connected)
	if err != nil {
		return false, fmt.Errorf("failed to read connection state of %s: %w", mac, err)
	}
	return connected, nil
}

// DeviceKnown reports whether BlueZ has an object for the peer. Connecting to a device
// BlueZ has not discovered fails, so an unknown peer has to be scanned for first.
func (b *BlueZ) DeviceKnown(ctx context.Context, mac MAC) (bool, error) {
	objects, err := b.getManagedObjects(ctx)
	if err != nil {
		return false, err
	}
	return hasDevice(objects, mac.DevicePath(b.adapter)), nil
}

// CancelConnect calls Device1.Disconnect, which also aborts a pending Device1.Connect.
func (b *BlueZ) CancelConnect(ctx context.Context, mac MAC) error {
	device := b.conn.Object(BLUEZ_BUS_NAME, mac.DevicePath(b.adapter))
	if call := device.CallWithContext(ctx, BLUEZ_DEVICE_INTERFACE+".Disconnect", 0); call.Err != nil {
		return fmt.Errorf("failed to cancel connect to %s: %w", mac, call.Err)
	}
	return nil
}

// DeviceName returns the alias (or name) BlueZ knows for the peer, or "" when the device
// has not been seen yet.
func (b *BlueZ) DeviceName(ctx context.Context, mac MAC) string {
	device := b.conn.Object(BLUEZ_BUS_NAME, mac.DevicePath(b.adapter))
	for _, prop := range []string{"Alias", "Name"} {
		var name string
		if err := device.CallWithContext(ctx, DBUS_PROPERTIES_INTERFACE+".Get", 0, BLUEZ_DEVICE_INTERFACE, prop).Store(&name); err == nil && name != "" {
			return name
		}
	}
	return ""
}

// Close releases the bus connection.
func (b *BlueZ) Close() error {
	return b.conn.Close()
}

func (b *BlueZ) getManagedObjects(ctx context.Context) (managedObjects, error) {
	obj := b.conn.Object(BLUEZ_BUS_NAME, "/")
	var objects managedObjects
	err := obj.CallWithContext(ctx, DBUS_OBJECT_MANAGER+".GetManagedObjects", 0).Store(&objects)
	if err != nil {
		return nil, fmt.Errorf("failed to get managed objects: %w", err)
	}
	return objects, nil
}

func findAdapter(objects managedObjects, name string) (dbus.ObjectPath, map[string]dbus.Variant, error) {
	for p, object := range objects {
		props, ok := object[BLUEZ_ADAPTER_INTERFACE]
		if !ok {
			continue
		}
		if name == "" || path.Base(string(p)) == name {
			return p, props, nil
		}
	}
	return "", nil, fmt.Errorf("%w: adapter %q not found", ErrAdapterUnavailable, name)
}

func hasDevice(objects managedObjects, devicePath dbus.ObjectPath) bool {
	_, ok := objects[devicePath][BLUEZ_DEVICE_INTERFACE]
	return ok
}
