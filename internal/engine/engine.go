// Package engine defines the external scan engine boundary and its
// production implementation. The engine is a black box to the rest of the
// system: it emits progress events while running and returns a raw,
// unordered device list (or a failure) when done.
package engine

import (
	"context"
	"time"

	"github.com/mjelva/netwarden/internal/device"
	"github.com/mjelva/netwarden/internal/events"
)

// Intensity selects how deep a scan goes.
type Intensity string

const (
	// IntensityPassive discovers devices without probing them.
	IntensityPassive Intensity = "passive"
	// IntensityActive probes ports and services on discovered devices.
	IntensityActive Intensity = "active"
)

// Request describes one scan invocation.
type Request struct {
	Intensity Intensity `json:"intensity"`
}

// Engine is the external scan engine boundary. Implementations report
// progress through their configured sink and return the raw device list in
// no particular order.
type Engine interface {
	Scan(ctx context.Context, req Request) ([]device.Device, error)
}

// ProgressSink receives progress events from a running engine. *events.Bus
// satisfies this.
type ProgressSink interface {
	Publish(events.Progress)
}

// Config holds scan engine settings.
type Config struct {
	// Network is the CIDR range to scan
	Network string `yaml:"network" json:"network"`
	// Ports is the port specification for active scans (nmap syntax)
	Ports string `yaml:"ports" json:"ports"`
	// Timeout bounds a single engine invocation; zero means no limit
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// DNSServer is the resolver used for reverse lookups (host:port)
	DNSServer string `yaml:"dns_server" json:"dns_server"`
	// SNMPCommunity is the community string for SNMP name resolution
	SNMPCommunity string `yaml:"snmp_community" json:"snmp_community"`
	// NameTimeout bounds each per-host name lookup
	NameTimeout time.Duration `yaml:"name_timeout" json:"name_timeout"`
}

// DefaultConfig returns engine settings suitable for a home network.
func DefaultConfig() Config {
	return Config{
		Network:       "192.168.1.0/24",
		Ports:         "21-23,53,80,139,443,445,554,1900,8080,8443",
		Timeout:       5 * time.Minute,
		DNSServer:     "", // system resolver
		SNMPCommunity: "public",
		NameTimeout:   2 * time.Second,
	}
}
