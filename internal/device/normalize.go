package device

import (
	"sort"
	"strconv"
	"strings"
)

const ipv4Octets = 4

// SortByIP returns the devices ordered by ascending IPv4 address, comparing
// octets numerically so "192.168.1.2" sorts before "192.168.1.10". The sort
// is stable: devices with identical addresses keep their relative input
// order. The input slice is not modified.
//
// Malformed addresses are still included; any octet that does not parse as
// an unsigned byte compares as zero.
func SortByIP(devices []Device) []Device {
	sorted := make([]Device, len(devices))
	copy(sorted, devices)

	sort.SliceStable(sorted, func(i, j int) bool {
		return compareKeys(ipSortKey(sorted[i].IP), ipSortKey(sorted[j].IP)) < 0
	})
	return sorted
}

// ipSortKey converts a dotted-quad address into a per-octet comparison key.
// Missing, extra, or non-numeric components degrade to zero rather than
// failing, so unparseable entries get a deterministic position.
func ipSortKey(ip string) [ipv4Octets]int {
	var key [ipv4Octets]int
	parts := strings.Split(ip, ".")
	for i := 0; i < ipv4Octets && i < len(parts); i++ {
		octet, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil || octet < 0 || octet > 255 {
			continue
		}
		key[i] = octet
	}
	return key
}

func compareKeys(a, b [ipv4Octets]int) int {
	for i := 0; i < ipv4Octets; i++ {
		if a[i] != b[i] {
			return a[i] - b[i]
		}
	}
	return 0
}
