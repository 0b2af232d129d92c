package media

import (
	"errors"
	"reflect"
	"testing"

	pulseproto "github.com/jfreymuth/pulse/proto"
	"github.com/stretchr/testify/require"
)

func TestSelectDeviceFromListPrimaryDefault(t *testing.T) {
	devices := []Device{
		{ID: "elgato", Description: "Elgato Wave 3 Mono", Available: true, Default: true},
		{ID: "sony", Description: "Sony WH-1000XM6", Available: true},
	}

	selection, err := selectDeviceFromList(devices, "default", "default")
	require.NoError(t, err)
	require.Equal(t, "elgato", selection.Device.ID)
	require.Empty(t, selection.Warning)
}

func TestSelectDeviceFromListMutedPrimaryUsesFallback(t *testing.T) {
	devices := []Device{
		{ID: "elgato", Description: "Elgato Wave 3 Mono", Available: true, Muted: true, Default: true},
		{ID: "sony", Description: "Sony WH-1000XM6", Available: true},
	}

	selection, err := selectDeviceFromList(devices, "elgato", "sony")
	require.NoError(t, err)
	require.Equal(t, "sony", selection.Device.ID)
	require.Contains(t, selection.Warning, "muted")
	require.True(t, selection.Fallback)
}

func TestSelectDeviceFromListFailures(t *testing.T) {
	muted := []Device{{ID: "elgato", Available: true, Muted: true, Default: true}}
	_, err := selectDeviceFromList(muted, "default", "default")
	require.Error(t, err)
	require.Contains(t, err.Error(), "muted")

	single := []Device{{ID: "elgato", Description: "Elgato Wave 3 Mono", Available: true, Default: true}}
	_, err = selectDeviceFromList(single, "missing", "default")
	require.Error(t, err)
	require.Contains(t, err.Error(), "did not match")

	_, err = selectDeviceFromList(nil, "default", "default")
	require.True(t, errors.Is(err, ErrNoDevices))
}

func TestPreferEchoCancel(t *testing.T) {
	devices := []Device{
		{ID: "alsa_input.usb-mic", Available: true, Default: true},
		{ID: "echo-cancel-source", Description: "Echo-Cancel Source", Available: true},
	}
	selection, err := selectDeviceFromList(devices, "default", "default")
	require.NoError(t, err)

	preferred := preferEchoCancel(devices, selection, "default")
	require.Equal(t, "echo-cancel-source", preferred.Device.ID)

	explicit := preferEchoCancel(devices, selection, "usb-mic")
	require.Equal(t, "alsa_input.usb-mic", explicit.Device.ID)
}

func TestOutputDeviceHeadphones(t *testing.T) {
	require.True(t, OutputDevice{Description: "Built-in Audio Analog Stereo", ActivePort: "analog-output-headphones"}.Headphones())
	require.True(t, OutputDevice{ID: "bluez_output.headset", Description: "Sony WH-1000XM6"}.Headphones())
	require.True(t, OutputDevice{Ports: []string{"analog-output-speaker", "Headphones"}}.Headphones())
	require.False(t, OutputDevice{Description: "HDMI Audio", ActivePort: "hdmi-output-0"}.Headphones())
}

func TestDeviceMatchesByIDAndDescription(t *testing.T) {
	dev := Device{ID: "alsa_input.usb-elgato", Description: "Elgato Wave 3 Mono"}
	require.True(t, deviceMatches(dev, "elgato"))
	require.True(t, deviceMatches(dev, "wave 3"))
	require.False(t, deviceMatches(dev, "missing"))
}

func TestSourceStateString(t *testing.T) {
	require.Equal(t, "running", sourceStateString(0))
	require.Equal(t, "idle", sourceStateString(1))
	require.Equal(t, "suspended", sourceStateString(2))
	require.Equal(t, "unknown(99)", sourceStateString(99))
}

func TestSourceAvailable(t *testing.T) {
	require.False(t, sourceAvailable(nil))
	require.True(t, sourceAvailable(&pulseproto.GetSourceInfoReply{}))

	available := &pulseproto.GetSourceInfoReply{ActivePortName: "mic"}
	setSourcePorts(t, available, []sourcePort{{name: "mic", available: 2}})
	require.True(t, sourceAvailable(available))

	notAvailable := &pulseproto.GetSourceInfoReply{ActivePortName: "mic"}
	setSourcePorts(t, notAvailable, []sourcePort{{name: "mic", available: 1}})
	require.False(t, sourceAvailable(notAvailable))
}

func TestPulseBackendFailsWhenServerMissing(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	_, err := PulseBackend{}.Sources(testContext(t))
	require.Error(t, err)
	require.True(t, IsUnavailable(err))

	_, err = PulseBackend{}.Sinks(testContext(t))
	require.Error(t, err)
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
