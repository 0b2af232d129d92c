// Package media owns microphone capture: device discovery, selection, and
// the single live capture stream.
package media

import (
	"errors"
	"fmt"
	"strings"
)

// Device describes one Pulse input source.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// OutputDevice describes one Pulse output sink.
type OutputDevice struct {
	ID          string
	Description string
	ActivePort  string
	Ports       []string
	Default     bool
}

// Headphones reports whether the sink is labeled as headphones or a headset.
func (d OutputDevice) Headphones() bool {
	labels := append([]string{d.ID, d.Description, d.ActivePort}, d.Ports...)
	for _, label := range labels {
		label = strings.ToLower(label)
		if strings.Contains(label, "headphone") || strings.Contains(label, "headset") {
			return true
		}
	}
	return false
}

// Selection is the resolved capture source plus optional fallback warning context.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

// selectDeviceFromList applies the input/fallback/default policy to a device list.
func selectDeviceFromList(devices []Device, input string, fallback string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, ErrNoDevices
	}

	var (
		defaultDevice *Device
		byInput       *Device
		byFallback    *Device
	)

	input = strings.TrimSpace(strings.ToLower(input))
	fallback = strings.TrimSpace(strings.ToLower(fallback))

	for i := range devices {
		dev := &devices[i]
		if dev.Default {
			defaultDevice = dev
		}
		if byInput == nil && !isDefaultTerm(input) && deviceMatches(*dev, input) {
			byInput = dev
		}
		if byFallback == nil && !isDefaultTerm(fallback) && deviceMatches(*dev, fallback) {
			byFallback = dev
		}
	}

	chooseDefault := func() (*Device, error) {
		if defaultDevice == nil {
			return nil, errors.New("default audio source is unavailable")
		}
		return defaultDevice, nil
	}

	var primary *Device
	if isDefaultTerm(input) {
		d, err := chooseDefault()
		if err != nil {
			return Selection{}, err
		}
		primary = d
	} else {
		if byInput == nil {
			return Selection{}, fmt.Errorf("audio.input %q did not match any device", input)
		}
		primary = byInput
	}

	if primary.Available && !primary.Muted {
		return Selection{Device: *primary}, nil
	}

	reason := "unavailable"
	if primary.Muted {
		reason = "muted"
	}

	var next *Device
	if isDefaultTerm(fallback) {
		d, err := chooseDefault()
		if err != nil {
			return Selection{}, fmt.Errorf("primary input %q is %s and no usable fallback: %w", primary.ID, reason, err)
		}
		next = d
	} else {
		if byFallback == nil {
			return Selection{}, fmt.Errorf("primary input %q is %s and fallback %q not found", primary.ID, reason, fallback)
		}
		next = byFallback
	}

	if !next.Available {
		return Selection{}, fmt.Errorf("audio fallback device %q is not available", next.ID)
	}
	if next.Muted {
		return Selection{}, fmt.Errorf("audio fallback device %q is muted", next.ID)
	}

	return Selection{
		Device:   *next,
		Warning:  fmt.Sprintf("audio.input %q is %s; falling back to %q", primary.ID, reason, next.ID),
		Fallback: primary.ID != next.ID,
	}, nil
}

// preferEchoCancel swaps a default-selected source for a usable echo-cancel
// source when one is loaded.
func preferEchoCancel(devices []Device, selection Selection, input string) Selection {
	if !isDefaultTerm(strings.TrimSpace(strings.ToLower(input))) {
		return selection
	}
	if isEchoCancelSource(selection.Device) {
		return selection
	}
	for _, dev := range devices {
		if isEchoCancelSource(dev) && dev.Available && !dev.Muted {
			selection.Device = dev
			return selection
		}
	}
	return selection
}

func isEchoCancelSource(dev Device) bool {
	id := strings.ToLower(dev.ID)
	return strings.Contains(id, "echo-cancel") || strings.Contains(id, "echo_cancel")
}

func isDefaultTerm(term string) bool {
	return term == "" || term == "default"
}

// deviceMatches reports whether a search term matches a device id or description.
func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	id := strings.ToLower(device.ID)
	desc := strings.ToLower(device.Description)
	return strings.Contains(id, term) || strings.Contains(desc, term)
}
