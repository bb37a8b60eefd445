package report

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mjelva/netwarden/internal/device"
)

func sampleDevices() []device.Device {
	return []device.Device{
		{
			ID:            "a",
			Name:          "Living Room Camera",
			IP:            "192.168.1.10",
			MAC:           "AA:BB:CC:00:00:01",
			Vendor:        "Acme",
			SecurityLevel: device.SecurityDanger,
			SecurityScore: 35,
			Issues: []device.Issue{
				{
					ID:          "telnet-open",
					Severity:    device.SeverityHigh,
					Title:       "Telnet service exposed",
					Description: "Port 23 accepts unencrypted logins.",
					Remediation: "Disable telnet in the device settings",
				},
			},
		},
		{
			ID:            "b",
			Name:          "Router",
			IP:            "192.168.1.1",
			MAC:           "AA:BB:CC:00:00:02",
			Vendor:        "Acme",
			SecurityLevel: device.SecuritySafe,
			SecurityScore: 100,
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"TXT", FormatText, false},
		{"markdown", FormatMarkdown, false},
		{"md", FormatMarkdown, false},
		{"html", FormatHTML, false},
		{"json", FormatJSON, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.input)
		if tt.wantErr {
			assert.Error(t, err, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}
}

func TestGenerateText(t *testing.T) {
	out, err := Generate(sampleDevices(), FormatText)
	require.NoError(t, err)

	assert.Contains(t, out, "Devices found:  2")
	assert.Contains(t, out, "Living Room Camera")
	assert.Contains(t, out, "192.168.1.10")
	assert.Contains(t, out, "[HIGH] Living Room Camera: Telnet service exposed")
	assert.Contains(t, out, "Disable telnet in the device settings")
	assert.Contains(t, out, "(affected: Living Room Camera)")
}

func TestGenerateTextEmptyDeviceSet(t *testing.T) {
	out, err := Generate(nil, FormatText)
	require.NoError(t, err)

	assert.Contains(t, out, "Devices found:  0")
	assert.Contains(t, out, "Health score:   0 / 100")
	assert.NotContains(t, out, "Findings")
}

func TestGenerateMarkdown(t *testing.T) {
	out, err := Generate(sampleDevices(), FormatMarkdown)
	require.NoError(t, err)

	assert.Contains(t, out, "# netwarden security report")
	assert.Contains(t, out, "| Living Room Camera | 192.168.1.10 |")
	assert.Contains(t, out, "## Findings")
	assert.Contains(t, out, "Health score: **60 / 100**")
}

func TestGenerateHTML(t *testing.T) {
	out, err := Generate(sampleDevices(), FormatHTML)
	require.NoError(t, err)

	assert.Contains(t, out, "<!DOCTYPE html>")
	assert.Contains(t, out, "Living Room Camera (score: 35)")
	assert.Contains(t, out, `class="danger"`)
	assert.Contains(t, out, "Telnet service exposed")
}

func TestGenerateHTMLEscapesDeviceNames(t *testing.T) {
	devices := []device.Device{{Name: "<script>alert(1)</script>", IP: "10.0.0.1"}}

	out, err := Generate(devices, FormatHTML)
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>alert(1)</script>")
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestGenerateJSON(t *testing.T) {
	out, err := Generate(sampleDevices(), FormatJSON)
	require.NoError(t, err)

	var decoded struct {
		DeviceCount int             `json:"device_count"`
		HealthScore int             `json:"health_score"`
		Devices     []device.Device `json:"devices"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, 2, decoded.DeviceCount)
	assert.Equal(t, 60, decoded.HealthScore)
	require.Len(t, decoded.Devices, 2)
	assert.Equal(t, "Living Room Camera", decoded.Devices[0].Name)
}

func TestGenerateUnknownFormat(t *testing.T) {
	_, err := Generate(sampleDevices(), Format("yaml"))
	assert.Error(t, err)
}
