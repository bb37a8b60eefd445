package engine

import (
	"strings"

	"github.com/mjelva/netwarden/internal/device"
)

// ouiVendors maps MAC address prefixes to vendor names. This is a small
// built-in excerpt of the IEEE OUI registry covering common consumer gear;
// nmap supplies the vendor for most hosts and this is the fallback.
var ouiVendors = map[string]string{
	"B8:27:EB": "Raspberry Pi Foundation",
	"DC:A6:32": "Raspberry Pi Trading",
	"00:11:32": "Synology",
	"00:1B:63": "Apple",
	"F0:18:98": "Apple",
	"3C:5A:B4": "Google",
	"F4:F5:D8": "Google",
	"18:B4:30": "Nest Labs",
	"44:65:0D": "Amazon Technologies",
	"FC:A1:83": "Amazon Technologies",
	"00:17:88": "Philips Lighting",
	"EC:B5:FA": "Philips Lighting",
	"00:1D:C9": "Panasonic",
	"5C:41:E7": "TP-Link",
	"50:C7:BF": "TP-Link",
	"C0:25:E9": "TP-Link",
	"04:18:D6": "Ubiquiti",
	"24:A4:3C": "Ubiquiti",
	"00:1E:8F": "Canon",
	"00:80:92": "Seiko Epson",
	"30:05:5C": "Brother Industries",
	"00:24:E4": "Withings",
	"70:EE:50": "Netatmo",
	"00:0E:58": "Sonos",
	"94:9F:3E": "Sonos",
	"00:04:20": "Slim Devices",
	"28:6D:97": "Samsung Electronics",
	"8C:79:F5": "Samsung Electronics",
	"00:09:B0": "Onkyo",
}

// typeKeywords maps lowercase substrings of a vendor or resolved name to a
// device category. First match wins, in the listed order.
var typeKeywords = []struct {
	keyword string
	devType device.Type
}{
	{"router", device.TypeRouter},
	{"tp-link", device.TypeRouter},
	{"ubiquiti", device.TypeRouter},
	{"netgear", device.TypeRouter},
	{"camera", device.TypeCamera},
	{"cam", device.TypeCamera},
	{"hikvision", device.TypeCamera},
	{"sonos", device.TypeSmartSpeaker},
	{"echo", device.TypeSmartSpeaker},
	{"amazon", device.TypeSmartSpeaker},
	{"google", device.TypeSmartSpeaker},
	{"chromecast", device.TypeSmartTV},
	{"tv", device.TypeSmartTV},
	{"roku", device.TypeSmartTV},
	{"plug", device.TypeSmartPlug},
	{"philips", device.TypeSmartPlug},
	{"printer", device.TypePrinter},
	{"canon", device.TypePrinter},
	{"epson", device.TypePrinter},
	{"brother", device.TypePrinter},
	{"synology", device.TypeNAS},
	{"nas", device.TypeNAS},
	{"qnap", device.TypeNAS},
	{"raspberry", device.TypeComputer},
	{"apple", device.TypeComputer},
	{"macbook", device.TypeComputer},
	{"iphone", device.TypeSmartphone},
	{"android", device.TypeSmartphone},
	{"samsung", device.TypeSmartphone},
}

// securePorts are services acceptable to expose on a home network.
var securePorts = map[uint16]bool{
	22:   true, // ssh
	443:  true, // https
	853:  true, // dns over tls
	8443: true, // https alt
}

// lookupVendor returns the vendor for a MAC address based on its OUI
// prefix, or empty when unknown.
func lookupVendor(mac string) string {
	if len(mac) < 8 {
		return ""
	}
	prefix := strings.ToUpper(mac[:8])
	return ouiVendors[prefix]
}

// identifyType classifies a device from its vendor and resolved name.
func identifyType(vendor, name string) device.Type {
	haystack := strings.ToLower(vendor + " " + name)
	for _, entry := range typeKeywords {
		if strings.Contains(haystack, entry.keyword) {
			return entry.devType
		}
	}
	return device.TypeUnknown
}

// isSecurePort reports whether a service port is considered safe to expose.
func isSecurePort(port uint16) bool {
	return securePorts[port]
}
