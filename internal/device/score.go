package device

// Per-level contributions to the aggregate health score.
const (
	scoreSafe    = 100
	scoreWarning = 60
	scoreDanger  = 20
	scoreDefault = 50
)

// HealthScore derives a 0-100 aggregate from the security levels of the
// given devices. It is the arithmetic mean of per-device scores, rounded
// half up. An empty set scores zero.
func HealthScore(devices []Device) int {
	if len(devices) == 0 {
		return 0
	}

	sum := 0
	for i := range devices {
		sum += levelScore(devices[i].SecurityLevel)
	}
	return (sum + len(devices)/2) / len(devices)
}

// levelScore maps a security level to its score contribution. Anything
// outside the three known risk tags, including "unknown", counts as a
// neutral 50.
func levelScore(level SecurityLevel) int {
	switch level {
	case SecuritySafe:
		return scoreSafe
	case SecurityWarning:
		return scoreWarning
	case SecurityDanger:
		return scoreDanger
	default:
		return scoreDefault
	}
}
