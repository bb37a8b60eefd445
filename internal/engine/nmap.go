package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/Ullaakut/nmap/v3"
	"github.com/google/uuid"

	"github.com/mjelva/netwarden/internal/device"
	apperrors "github.com/mjelva/netwarden/internal/errors"
	"github.com/mjelva/netwarden/internal/events"
	"github.com/mjelva/netwarden/internal/logging"
	"github.com/mjelva/netwarden/internal/vulndb"
)

// Progress checkpoints emitted during a scan, matching the phases a session
// moves through.
const (
	progressInit      = 0
	progressDiscover  = 10
	progressNames     = 25
	progressIdentify  = 35
	progressPorts     = 50
	progressServices  = 70
	progressVulns     = 85
	progressScores    = 95
)

// NmapEngine drives nmap to discover and probe devices on the configured
// network. It implements Engine.
type NmapEngine struct {
	cfg    Config
	sink   ProgressSink
	logger *logging.Logger
}

// NewNmapEngine creates an engine that reports progress to sink. A nil sink
// disables progress reporting.
func NewNmapEngine(cfg Config, sink ProgressSink, logger *logging.Logger) *NmapEngine {
	if logger == nil {
		logger = logging.Default()
	}
	return &NmapEngine{
		cfg:    cfg,
		sink:   sink,
		logger: logger.WithComponent("engine"),
	}
}

// Scan performs one full scan of the configured network and returns the raw
// device list in nmap's host order. The caller is responsible for ordering.
func (e *NmapEngine) Scan(ctx context.Context, req Request) ([]device.Device, error) {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	e.emit("initializing", progressInit)
	e.logger.Info("Starting network scan",
		"network", e.cfg.Network,
		"intensity", string(req.Intensity))

	e.emit("discovering devices", progressDiscover)
	run, err := e.runNmap(ctx, req.Intensity)
	if err != nil {
		return nil, err
	}

	e.emit("resolving device names", progressNames)
	devices := e.buildDevices(ctx, run)

	e.emit("identifying devices", progressIdentify)
	for i := range devices {
		devices[i].Type = identifyType(devices[i].Vendor, devices[i].Name)
	}

	if req.Intensity == IntensityActive {
		e.emit("scanning ports", progressPorts)
		e.emit("identifying services", progressServices)
	}

	e.emit("checking vulnerabilities", progressVulns)
	for i := range devices {
		devices[i].Issues = vulndb.CheckDevice(&devices[i])
	}

	e.emit("computing security scores", progressScores)
	for i := range devices {
		vulndb.Grade(&devices[i])
	}

	e.logger.Info("Scan finished", "devices_found", len(devices))
	return devices, nil
}

// runNmap executes a single nmap run covering discovery and, for active
// scans, port and service probing.
func (e *NmapEngine) runNmap(ctx context.Context, intensity Intensity) (*nmap.Run, error) {
	scanner, err := nmap.NewScanner(ctx, e.buildScanOptions(intensity)...)
	if err != nil {
		return nil, apperrors.ErrEngineUnavailable(err)
	}

	run, warnings, err := scanner.Run()
	if err != nil {
		switch {
		case ctx.Err() == context.DeadlineExceeded:
			return nil, apperrors.WrapEngineError(apperrors.CodeTimeout,
				"Scan timed out", err)
		case ctx.Err() == context.Canceled:
			return nil, apperrors.WrapEngineError(apperrors.CodeCanceled,
				"Scan canceled", err)
		default:
			return nil, apperrors.WrapEngineError(apperrors.CodeEngineFailed,
				fmt.Sprintf("Scan of %s failed", e.cfg.Network), err)
		}
	}
	if warnings != nil && len(*warnings) > 0 {
		e.logger.Warn("Scan completed with warnings", "warnings", *warnings)
	}
	return run, nil
}

// buildScanOptions assembles nmap options for the requested intensity.
func (e *NmapEngine) buildScanOptions(intensity Intensity) []nmap.Option {
	options := []nmap.Option{
		nmap.WithTargets(e.cfg.Network),
		nmap.WithTimingTemplate(nmap.TimingNormal),
	}
	if intensity == IntensityActive {
		options = append(options,
			nmap.WithPorts(e.cfg.Ports),
			nmap.WithConnectScan(),
			nmap.WithServiceInfo(),
		)
	} else {
		// Host discovery only, no port scan
		options = append(options, nmap.WithPingScan())
	}
	return options
}

// buildDevices converts nmap hosts into device records, resolving names as
// it goes. Hosts that are down or have no address are skipped.
func (e *NmapEngine) buildDevices(ctx context.Context, run *nmap.Run) []device.Device {
	devices := make([]device.Device, 0, len(run.Hosts))
	for i := range run.Hosts {
		host := &run.Hosts[i]
		if host.Status.State != "up" || len(host.Addresses) == 0 {
			continue
		}
		devices = append(devices, e.buildDevice(ctx, host))
	}
	return devices
}

func (e *NmapEngine) buildDevice(ctx context.Context, host *nmap.Host) device.Device {
	var ip, mac, vendor string
	for _, addr := range host.Addresses {
		switch addr.AddrType {
		case "mac":
			mac = addr.Addr
			vendor = addr.Vendor
		default:
			if ip == "" {
				ip = addr.Addr
			}
		}
	}
	if vendor == "" {
		vendor = lookupVendor(mac)
	}

	var nmapName string
	if len(host.Hostnames) > 0 {
		nmapName = host.Hostnames[0].Name
	}
	hostname := e.lookupPTR(ctx, ip)
	snmpName := e.lookupSNMP(ip)

	// Name priority: nmap hostname, reverse DNS, SNMP sysName, vendor tag.
	name := firstNonEmpty(nmapName, hostname, snmpName)
	if name == "" && vendor != "" {
		name = vendor + " device"
	}

	ports := make([]device.Port, 0, len(host.Ports))
	for j := range host.Ports {
		p := &host.Ports[j]
		if p.State.State != "open" {
			continue
		}
		ports = append(ports, device.Port{
			Number:   p.ID,
			Protocol: p.Protocol,
			Service:  p.Service.Name,
			Version:  p.Service.Version,
			Secure:   isSecurePort(p.ID),
		})
	}

	return device.Device{
		ID:            uuid.NewString(),
		Name:          name,
		Type:          device.TypeUnknown,
		IP:            ip,
		MAC:           mac,
		Vendor:        vendor,
		Hostname:      firstNonEmpty(hostname, nmapName),
		OpenPorts:     ports,
		SecurityLevel: device.SecurityUnknown,
		LastSeen:      time.Now().UTC(),
	}
}

func (e *NmapEngine) emit(phase string, percent int) {
	if e.sink == nil {
		return
	}
	e.sink.Publish(events.Progress{Phase: phase, Percent: percent})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
