// Package vulndb provides the built-in vulnerability knowledge used to grade
// scanned devices. It flags risky open services, knows common factory
// credentials, and derives each device's security score and level from its
// findings.
package vulndb

import (
	"strings"

	"github.com/mjelva/netwarden/internal/device"
)

// Risky well-known ports.
const (
	portFTP    = 21
	portTelnet = 23
	portUPnP   = 1900
)

// Score deductions per issue severity.
const (
	deductCritical = 40
	deductHigh     = 25
	deductMedium   = 15
	deductLow      = 5
)

// Per-port deduction for services not considered safe to expose.
const deductInsecurePort = 5

// Security level thresholds on the 0-100 device score.
const (
	safeThreshold    = 80
	warningThreshold = 50
)

// Credential is a factory-default login known to ship on consumer devices.
type Credential struct {
	Vendor   string `json:"vendor"`
	Product  string `json:"product"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Built-in default credential list. A production deployment would load this
// from a maintained database.
var defaultCredentials = []Credential{
	{Vendor: "Generic", Product: "Router", Username: "admin", Password: "admin"},
	{Vendor: "Generic", Product: "Router", Username: "admin", Password: "password"},
	{Vendor: "Generic", Product: "Router", Username: "admin", Password: "1234"},
	{Vendor: "Generic", Product: "Camera", Username: "admin", Password: "admin"},
	{Vendor: "Generic", Product: "Camera", Username: "admin", Password: ""},
	{Vendor: "Generic", Product: "Camera", Username: "root", Password: "root"},
}

// CheckDevice returns the issues found for a device based on its open ports.
// The result order is deterministic: issues follow the port order of the
// device.
func CheckDevice(d *device.Device) []device.Issue {
	var issues []device.Issue
	for _, port := range d.OpenPorts {
		if issue := portIssue(port.Number); issue != nil {
			issues = append(issues, *issue)
		}
	}
	return issues
}

// portIssue maps a well-known risky port to its issue entry.
func portIssue(port uint16) *device.Issue {
	switch port {
	case portTelnet:
		return &device.Issue{
			ID:          "telnet-open",
			Severity:    device.SeverityHigh,
			Title:       "Telnet service enabled",
			Description: "Telnet transmits credentials in cleartext and can be intercepted on the local network.",
			Remediation: "Disable telnet and use SSH, or turn off remote management entirely.",
		}
	case portFTP:
		return &device.Issue{
			ID:          "ftp-open",
			Severity:    device.SeverityMedium,
			Title:       "FTP service enabled",
			Description: "FTP sends credentials unencrypted and should not be exposed on a home network.",
			Remediation: "Disable FTP and use SFTP or SCP instead.",
		}
	case portUPnP:
		return &device.Issue{
			ID:          "upnp-enabled",
			Severity:    device.SeverityMedium,
			Title:       "UPnP service enabled",
			Description: "UPnP opens ports automatically and can be abused by malicious software.",
			Remediation: "Disable UPnP in the router settings if it is not needed.",
		}
	}
	return nil
}

// Grade computes the security score and level for a device from its issues
// and open ports, writing the result back onto the device. Issues must be
// populated before grading.
func Grade(d *device.Device) {
	score := 100

	for _, issue := range d.Issues {
		score -= severityDeduction(issue.Severity)
	}
	for _, port := range d.OpenPorts {
		if !port.Secure {
			score -= deductInsecurePort
		}
	}

	if score < 0 {
		score = 0
	}
	d.SecurityScore = score

	switch {
	case score >= safeThreshold:
		d.SecurityLevel = device.SecuritySafe
	case score >= warningThreshold:
		d.SecurityLevel = device.SecurityWarning
	default:
		d.SecurityLevel = device.SecurityDanger
	}
}

func severityDeduction(severity device.IssueSeverity) int {
	switch severity {
	case device.SeverityCritical:
		return deductCritical
	case device.SeverityHigh:
		return deductHigh
	case device.SeverityMedium:
		return deductMedium
	case device.SeverityLow:
		return deductLow
	default:
		return 0
	}
}

// DefaultCredentials returns the known factory credentials for a vendor and
// product, matching case-insensitively. A "Generic" vendor entry matches any
// vendor for the same product.
func DefaultCredentials(vendor, product string) []Credential {
	var matches []Credential
	for _, cred := range defaultCredentials {
		vendorMatch := strings.EqualFold(cred.Vendor, vendor) || strings.EqualFold(cred.Vendor, "Generic")
		if vendorMatch && strings.EqualFold(cred.Product, product) {
			matches = append(matches, cred)
		}
	}
	return matches
}
