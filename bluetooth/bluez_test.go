package bluetooth

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindAdapter(t *testing.T) {
	objects := managedObjects{
		"/org/bluez/hci0": {
			BLUEZ_ADAPTER_INTERFACE: {"Powered": dbus.MakeVariant(true)},
		},
		"/org/bluez/hci1": {
			BLUEZ_ADAPTER_INTERFACE: {"Powered": dbus.MakeVariant(false)},
		},
		"/org/bluez/hci0/dev_A4_C1_38_0B_2E_9F": {
			BLUEZ_DEVICE_INTERFACE: {"Connected": dbus.MakeVariant(false)},
		},
	}

	path, props, err := findAdapter(objects, "hci1")
	require.NoError(t, err)
	assert.Equal(t, dbus.ObjectPath("/org/bluez/hci1"), path)
	assert.Equal(t, false, props["Powered"].Value())

	_, _, err = findAdapter(objects, "hci7")
	assert.ErrorIs(t, err, ErrAdapterUnavailable)

	_, _, err = findAdapter(managedObjects{}, "")
	assert.ErrorIs(t, err, ErrAdapterUnavailable)
}

func TestBlueZAdapterName(t *testing.T) {
	assert.Equal(t, "hci1", (&BlueZ{adapter: "hci1"}).Adapter())
}

func TestHasDevice(t *testing.T) {
	mac := MustParseMAC("A4:C1:38:0B:2E:9F")
	objects := managedObjects{
		"/org/bluez/hci0": {
			BLUEZ_ADAPTER_INTERFACE: {"Powered": dbus.MakeVariant(true)},
		},
		"/org/bluez/hci0/dev_A4_C1_38_0B_2E_9F": {
			BLUEZ_DEVICE_INTERFACE: {"Connected": dbus.MakeVariant(false)},
		},
	}

	assert.True(t, hasDevice(objects, mac.DevicePath("hci0")))
	assert.False(t, hasDevice(objects, mac.DevicePath("hci1")), "device is only known under hci0")
	assert.False(t, hasDevice(objects, MustParseMAC("00:11:22:33:44:55").DevicePath("hci0")))
	assert.False(t, hasDevice(objects, "/org/bluez/hci0"), "adapter object is not a device")
}
