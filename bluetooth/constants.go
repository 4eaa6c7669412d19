package bluetooth

import "time"

const (
	BLUEZ_BUS_NAME          = "org.bluez"
	BLUEZ_ADAPTER_INTERFACE = "org.bluez.Adapter1"
	BLUEZ_DEVICE_INTERFACE  = "org.bluez.Device1"
	BLUEZ_OBJECT_PATH       = "/org/bluez"

	DBUS_PROPERTIES_INTERFACE = "org.freedesktop.DBus.Properties"
	DBUS_OBJECT_MANAGER       = "org.freedesktop.DBus.ObjectManager"
)

// Serial Port Profile, the only Classic profile the monitor speaks.
const PROFILE_SPP_UUID = "00001101-0000-1000-8000-00805f9b34fb"

// Transport names as they appear in logs, status payloads and metrics labels.
const (
	TransportSPP = "spp"
	TransportBLE = "ble"
)

const (
	DefaultAdapter        = "hci0"
	DefaultSPPChannel     = uint8(1)
	DefaultRetryCooldown  = 10 * time.Second
	DefaultPollInterval   = 1 * time.Second
	DefaultConnectTimeout = 15 * time.Second
)
