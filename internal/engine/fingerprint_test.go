package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mjelva/netwarden/internal/device"
)

func TestLookupVendor(t *testing.T) {
	tests := []struct {
		name string
		mac  string
		want string
	}{
		{"known prefix", "B8:27:EB:12:34:56", "Raspberry Pi Foundation"},
		{"lowercase prefix", "b8:27:eb:12:34:56", "Raspberry Pi Foundation"},
		{"unknown prefix", "00:00:00:12:34:56", ""},
		{"too short", "B8:27", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lookupVendor(tt.mac))
		})
	}
}

func TestIdentifyType(t *testing.T) {
	tests := []struct {
		name   string
		vendor string
		dname  string
		want   device.Type
	}{
		{"router by vendor", "TP-Link", "", device.TypeRouter},
		{"printer by name", "", "office-printer", device.TypePrinter},
		{"nas by vendor", "Synology", "diskstation", device.TypeNAS},
		{"speaker by vendor", "Sonos", "", device.TypeSmartSpeaker},
		{"computer by vendor", "Raspberry Pi Foundation", "", device.TypeComputer},
		{"case insensitive", "SONOS", "", device.TypeSmartSpeaker},
		{"nothing recognizable", "Contoso", "gadget", device.TypeUnknown},
		{"empty", "", "", device.TypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, identifyType(tt.vendor, tt.dname))
		})
	}
}

func TestIsSecurePort(t *testing.T) {
	assert.True(t, isSecurePort(22))
	assert.True(t, isSecurePort(443))
	assert.False(t, isSecurePort(23))
	assert.False(t, isSecurePort(80))
}

func TestEmitWithNilSink(t *testing.T) {
	e := NewNmapEngine(DefaultConfig(), nil, nil)
	assert.NotPanics(t, func() {
		e.emit("initializing", 0)
	})
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "a", firstNonEmpty("", "a", "b"))
	assert.Equal(t, "", firstNonEmpty("", ""))
	assert.Equal(t, "x", firstNonEmpty("x"))
}
