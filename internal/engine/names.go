package engine

import (
	"context"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/miekg/dns"
)

const (
	snmpPort       = 161
	sysNameOID     = ".1.3.6.1.2.1.1.5.0"
	systemResolver = "127.0.0.1:53"
)

// lookupPTR resolves the reverse-DNS name for an address. Returns an empty
// string when the address has no PTR record or the resolver does not answer
// within the name timeout.
func (e *NmapEngine) lookupPTR(ctx context.Context, ip string) string {
	arpa, err := dns.ReverseAddr(ip)
	if err != nil {
		return ""
	}

	msg := new(dns.Msg)
	msg.SetQuestion(arpa, dns.TypePTR)

	server := e.cfg.DNSServer
	if server == "" {
		server = systemResolver
	}

	client := &dns.Client{Timeout: e.nameTimeout()}
	resp, _, err := client.ExchangeContext(ctx, msg, server)
	if err != nil || resp == nil {
		return ""
	}

	for _, answer := range resp.Answer {
		if ptr, ok := answer.(*dns.PTR); ok {
			return strings.TrimSuffix(ptr.Ptr, ".")
		}
	}
	return ""
}

// lookupSNMP queries the device for its SNMP sysName. Most consumer gear
// does not answer, so failures are expected and reported as an empty string.
func (e *NmapEngine) lookupSNMP(ip string) string {
	community := e.cfg.SNMPCommunity
	if community == "" {
		return ""
	}

	client := &gosnmp.GoSNMP{
		Target:    ip,
		Port:      snmpPort,
		Community: community,
		Version:   gosnmp.Version2c,
		Timeout:   e.nameTimeout(),
		Retries:   0,
	}
	if err := client.Connect(); err != nil {
		return ""
	}
	defer func() { _ = client.Conn.Close() }()

	result, err := client.Get([]string{sysNameOID})
	if err != nil || len(result.Variables) == 0 {
		return ""
	}

	variable := result.Variables[0]
	if variable.Type != gosnmp.OctetString {
		return ""
	}
	if raw, ok := variable.Value.([]byte); ok {
		return string(raw)
	}
	return ""
}

func (e *NmapEngine) nameTimeout() time.Duration {
	if e.cfg.NameTimeout > 0 {
		return e.cfg.NameTimeout
	}
	return 2 * time.Second
}
