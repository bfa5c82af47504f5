package audio

import (
	"context"
	"reflect"
	"testing"

	pulseproto "github.com/jfreymuth/pulse/proto"
	"github.com/stretchr/testify/require"

	"github.com/rbright/lectern/internal/failure"
)

func TestSelectDeviceFromListPrimaryDefault(t *testing.T) {
	devices := []Device{
		{ID: "shure", Description: "Shure MV7", Available: true, Default: true},
		{ID: "webcam", Description: "Logitech C920", Available: true},
	}

	selection, err := selectDeviceFromList(devices, "default", "default")
	require.NoError(t, err)
	require.Equal(t, "shure", selection.Device.ID)
	require.Empty(t, selection.Warning)
	require.False(t, selection.Fallback)
}

func TestSelectDeviceFromListMatchesDescription(t *testing.T) {
	devices := []Device{
		{ID: "shure", Description: "Shure MV7", Available: true, Default: true},
		{ID: "alsa_input.usb-046d", Description: "Logitech C920", Available: true},
	}

	selection, err := selectDeviceFromList(devices, "  C920 ", "")
	require.NoError(t, err)
	require.Equal(t, "alsa_input.usb-046d", selection.Device.ID)
}

func TestSelectDeviceFromListMutedPrimaryUsesFallback(t *testing.T) {
	devices := []Device{
		{ID: "shure", Description: "Shure MV7", Available: true, Muted: true, Default: true},
		{ID: "webcam", Description: "Logitech C920", Available: true},
	}

	selection, err := selectDeviceFromList(devices, "shure", "webcam")
	require.NoError(t, err)
	require.Equal(t, "webcam", selection.Device.ID)
	require.Contains(t, selection.Warning, "muted")
	require.True(t, selection.Fallback)
}

func TestSelectDeviceFromListUnavailablePrimaryFallsBackToDefault(t *testing.T) {
	devices := []Device{
		{ID: "shure", Description: "Shure MV7", Available: true, Default: true},
		{ID: "webcam", Description: "Logitech C920", Available: false},
	}

	selection, err := selectDeviceFromList(devices, "webcam", "default")
	require.NoError(t, err)
	require.Equal(t, "shure", selection.Device.ID)
	require.Contains(t, selection.Warning, "unavailable")
}

func TestSelectDeviceFromListFailures(t *testing.T) {
	tests := []struct {
		name     string
		devices  []Device
		input    string
		fallback string
		wantErr  string
	}{
		{name: "no devices", wantErr: "no audio input devices"},
		{
			name:    "selected and fallback muted",
			devices: []Device{{ID: "shure", Available: true, Muted: true, Default: true}},
			input:    "default",
			fallback: "default",
			wantErr:  "muted",
		},
		{
			name:    "unknown input",
			devices: []Device{{ID: "shure", Available: true, Default: true}},
			input:   "missing",
			wantErr: "did not match",
		},
		{
			name:    "missing fallback",
			devices: []Device{{ID: "shure", Available: true, Muted: true, Default: true}},
			input:    "shure",
			fallback: "missing",
			wantErr:  "fallback \"missing\" not found",
		},
		{
			name:    "no default source",
			devices: []Device{{ID: "shure", Available: true}},
			wantErr: "default audio source is unavailable",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := selectDeviceFromList(tc.devices, tc.input, tc.fallback)
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestDeviceMatchesByIDAndDescription(t *testing.T) {
	dev := Device{ID: "alsa_input.usb-shure", Description: "Shure MV7"}
	require.True(t, deviceMatches(dev, "shure"))
	require.True(t, deviceMatches(dev, "mv7"))
	require.False(t, deviceMatches(dev, "missing"))
	require.False(t, deviceMatches(dev, ""))
}

func TestIsMonitorSource(t *testing.T) {
	require.True(t, isMonitorSource("alsa_output.pci-0000_00_1f.3.analog-stereo.monitor"))
	require.False(t, isMonitorSource("alsa_input.usb-shure"))
}

func TestListDevicesFailsWhenPulseUnavailable(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	_, err := ListDevices(context.Background())
	require.Error(t, err)
	require.True(t, failure.IsKind(err, failure.DeviceUnavailable))
}

func TestSelectDeviceFailsWhenPulseUnavailable(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	_, err := SelectDevice(context.Background(), "default", "default")
	require.Error(t, err)
	require.True(t, failure.IsKind(err, failure.DeviceUnavailable))
}

func TestSourceStateString(t *testing.T) {
	require.Equal(t, "running", sourceStateString(0))
	require.Equal(t, "idle", sourceStateString(1))
	require.Equal(t, "suspended", sourceStateString(2))
	require.Equal(t, "unknown(99)", sourceStateString(99))
}

func TestSourceAvailable(t *testing.T) {
	require.False(t, sourceAvailable(nil))
	require.True(t, sourceAvailable(&pulseproto.GetSourceInfoReply{})) // no ports => available

	available := &pulseproto.GetSourceInfoReply{ActivePortName: "mic"}
	setSourcePorts(t, available, []sourcePort{{name: "mic", available: 2}})
	require.True(t, sourceAvailable(available))

	notAvailable := &pulseproto.GetSourceInfoReply{ActivePortName: "mic"}
	setSourcePorts(t, notAvailable, []sourcePort{{name: "mic", available: 1}})
	require.False(t, sourceAvailable(notAvailable))
}

type sourcePort struct {
	name      string
	available uint32
}

func setSourcePorts(t *testing.T, reply *pulseproto.GetSourceInfoReply, ports []sourcePort) {
	t.Helper()

	sliceType := reflect.TypeOf(reply.Ports)
	sliceValue := reflect.MakeSlice(sliceType, len(ports), len(ports))

	for i, port := range ports {
		item := sliceValue.Index(i)
		item.FieldByName("Name").SetString(port.name)
		item.FieldByName("Available").SetUint(uint64(port.available))
	}

	reflect.ValueOf(reply).Elem().FieldByName("Ports").Set(sliceValue)
}
