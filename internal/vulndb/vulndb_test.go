package vulndb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mjelva/netwarden/internal/device"
)

func TestCheckDevice(t *testing.T) {
	tests := []struct {
		name     string
		ports    []uint16
		wantIDs  []string
	}{
		{
			name:    "no open ports",
			ports:   nil,
			wantIDs: nil,
		},
		{
			name:    "telnet flagged",
			ports:   []uint16{23},
			wantIDs: []string{"telnet-open"},
		},
		{
			name:    "benign ports ignored",
			ports:   []uint16{22, 443},
			wantIDs: nil,
		},
		{
			name:    "multiple findings keep port order",
			ports:   []uint16{1900, 80, 23, 21},
			wantIDs: []string{"upnp-enabled", "telnet-open", "ftp-open"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &device.Device{}
			for _, p := range tt.ports {
				d.OpenPorts = append(d.OpenPorts, device.Port{Number: p, Protocol: "tcp"})
			}

			issues := CheckDevice(d)

			require.Len(t, issues, len(tt.wantIDs))
			for i, id := range tt.wantIDs {
				assert.Equal(t, id, issues[i].ID)
			}
		})
	}
}

func TestGrade(t *testing.T) {
	tests := []struct {
		name       string
		issues     []device.IssueSeverity
		ports      []device.Port
		wantScore  int
		wantLevel  device.SecurityLevel
	}{
		{
			name:      "clean device is safe",
			wantScore: 100,
			wantLevel: device.SecuritySafe,
		},
		{
			name:      "secure ports cost nothing",
			ports:     []device.Port{{Number: 443, Secure: true}},
			wantScore: 100,
			wantLevel: device.SecuritySafe,
		},
		{
			name:      "one high issue drops to warning",
			issues:    []device.IssueSeverity{device.SeverityHigh},
			ports:     []device.Port{{Number: 23}},
			wantScore: 70,
			wantLevel: device.SecurityWarning,
		},
		{
			name:      "critical plus high is danger",
			issues:    []device.IssueSeverity{device.SeverityCritical, device.SeverityHigh},
			wantScore: 35,
			wantLevel: device.SecurityDanger,
		},
		{
			name: "score clamps at zero",
			issues: []device.IssueSeverity{
				device.SeverityCritical, device.SeverityCritical, device.SeverityCritical,
			},
			wantScore: 0,
			wantLevel: device.SecurityDanger,
		},
		{
			name:      "info issues are free",
			issues:    []device.IssueSeverity{device.SeverityInfo},
			wantScore: 100,
			wantLevel: device.SecuritySafe,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &device.Device{OpenPorts: tt.ports}
			for _, sev := range tt.issues {
				d.Issues = append(d.Issues, device.Issue{Severity: sev})
			}

			Grade(d)

			assert.Equal(t, tt.wantScore, d.SecurityScore)
			assert.Equal(t, tt.wantLevel, d.SecurityLevel)
		})
	}
}

func TestDefaultCredentials(t *testing.T) {
	creds := DefaultCredentials("Acme", "Router")
	require.NotEmpty(t, creds)
	for _, cred := range creds {
		assert.Equal(t, "Router", cred.Product)
	}

	assert.Empty(t, DefaultCredentials("Acme", "Toaster"))
}
