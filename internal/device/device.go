// Package device defines the device data model shared across netwarden,
// along with result normalization and health score aggregation. Devices are
// produced by the scan engine and treated as immutable once placed into a
// session's device set.
package device

import (
	"time"
)

// SecurityLevel is the categorical per-device risk tag.
type SecurityLevel string

const (
	SecuritySafe    SecurityLevel = "safe"
	SecurityWarning SecurityLevel = "warning"
	SecurityDanger  SecurityLevel = "danger"
	SecurityUnknown SecurityLevel = "unknown"
)

// Type classifies a device by its likely hardware category.
type Type string

const (
	TypeRouter       Type = "router"
	TypeCamera       Type = "camera"
	TypeSmartSpeaker Type = "smart_speaker"
	TypeSmartTV      Type = "smart_tv"
	TypeSmartPlug    Type = "smart_plug"
	TypePrinter      Type = "printer"
	TypeNAS          Type = "nas"
	TypeComputer     Type = "computer"
	TypeSmartphone   Type = "smartphone"
	TypeUnknown      Type = "unknown"
)

// IssueSeverity ranks how serious a security issue is.
type IssueSeverity string

const (
	SeverityInfo     IssueSeverity = "info"
	SeverityLow      IssueSeverity = "low"
	SeverityMedium   IssueSeverity = "medium"
	SeverityHigh     IssueSeverity = "high"
	SeverityCritical IssueSeverity = "critical"
)

// Port represents an open port found on a device.
type Port struct {
	// Number is the port number (1-65535)
	Number uint16 `json:"number"`
	// Protocol is the transport protocol ("tcp" or "udp")
	Protocol string `json:"protocol"`
	// Service is the name of the detected service, if any
	Service string `json:"service,omitempty"`
	// Version is the version of the detected service, if available
	Version string `json:"version,omitempty"`
	// Secure indicates whether the service is considered safe to expose
	Secure bool `json:"secure"`
}

// Issue represents a security issue found on a device.
type Issue struct {
	ID          string        `json:"id"`
	Severity    IssueSeverity `json:"severity"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Remediation string        `json:"remediation,omitempty"`
}

// Device represents a discovered network device and its security findings.
// The scan engine owns field production; consumers only reorder and store.
type Device struct {
	// ID uniquely identifies the device within a scan session
	ID string `json:"id"`
	// Name is the resolved display name, if any
	Name string `json:"name,omitempty"`
	// Type is the device category tag
	Type Type `json:"type"`
	// IP is the dotted-quad address the device answered on
	IP string `json:"ip"`
	// MAC is the hardware address
	MAC string `json:"mac"`
	// Vendor is the MAC-prefix vendor, if known
	Vendor string `json:"vendor,omitempty"`
	// Hostname is the reverse-DNS name, if resolvable
	Hostname string `json:"hostname,omitempty"`
	// OpenPorts lists ports found open during active scans
	OpenPorts []Port `json:"open_ports,omitempty"`
	// SecurityLevel is the derived risk tag
	SecurityLevel SecurityLevel `json:"security_level"`
	// SecurityScore is the per-device 0-100 score
	SecurityScore int `json:"security_score"`
	// Issues lists security issues in the order they were found
	Issues []Issue `json:"issues,omitempty"`
	// LastSeen is when the device last answered
	LastSeen time.Time `json:"last_seen"`
}
