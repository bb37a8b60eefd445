// Package report renders security reports from a scanned device set in
// text, HTML, and JSON formats.
package report

import (
	"encoding/json"
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/mjelva/netwarden/internal/device"
	apperrors "github.com/mjelva/netwarden/internal/errors"
)

// Format selects the report output format.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatJSON     Format = "json"
)

// ParseFormat converts a user-supplied format name. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", apperrors.NewConfigFieldError(apperrors.CodeValidation,
			"Unknown report format", "format", s)
	}
}

// Generate renders a security report for the given device set.
func Generate(devices []device.Device, format Format) (string, error) {
	switch format {
	case FormatText:
		return generateText(devices)
	case FormatMarkdown:
		return generateMarkdown(devices)
	case FormatHTML:
		return generateHTML(devices)
	case FormatJSON:
		return generateJSON(devices)
	default:
		return "", apperrors.NewConfigFieldError(apperrors.CodeValidation,
			"Unknown report format", "format", string(format))
	}
}

func generateText(devices []device.Device) (string, error) {
	var b strings.Builder

	b.WriteString("netwarden security report\n")
	b.WriteString("=========================\n\n")
	fmt.Fprintf(&b, "Generated:      %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Devices found:  %d\n", len(devices))
	fmt.Fprintf(&b, "Health score:   %d / 100\n\n", device.HealthScore(devices))

	table := tablewriter.NewWriter(&b)
	table.Header("#", "Name", "IP", "Vendor", "Status", "Score", "Issues")
	for i := range devices {
		d := &devices[i]
		_ = table.Append([]string{
			strconv.Itoa(i + 1),
			displayName(d),
			d.IP,
			d.Vendor,
			statusLabel(d.SecurityLevel),
			strconv.Itoa(d.SecurityScore),
			strconv.Itoa(len(d.Issues)),
		})
	}
	if err := table.Render(); err != nil {
		return "", fmt.Errorf("failed to render report table: %w", err)
	}

	if issues := issueLines(devices); len(issues) > 0 {
		b.WriteString("\nFindings\n--------\n")
		for _, line := range issues {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	if remediations := remediationSummary(devices); len(remediations) > 0 {
		b.WriteString("\nRecommended actions\n-------------------\n")
		for _, line := range remediations {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	return b.String(), nil
}

func issueLines(devices []device.Device) []string {
	var lines []string
	for i := range devices {
		d := &devices[i]
		for _, issue := range d.Issues {
			lines = append(lines, fmt.Sprintf("- [%s] %s: %s",
				strings.ToUpper(string(issue.Severity)), displayName(d), issue.Title))
		}
	}
	return lines
}

// remediationSummary groups affected devices under each distinct
// remediation, sorted for stable output.
func remediationSummary(devices []device.Device) []string {
	byRemediation := make(map[string][]string)
	for i := range devices {
		d := &devices[i]
		for _, issue := range d.Issues {
			if issue.Remediation == "" {
				continue
			}
			byRemediation[issue.Remediation] = append(byRemediation[issue.Remediation], displayName(d))
		}
	}

	remediations := make([]string, 0, len(byRemediation))
	for r := range byRemediation {
		remediations = append(remediations, r)
	}
	sort.Strings(remediations)

	lines := make([]string, 0, len(remediations))
	for _, r := range remediations {
		lines = append(lines, fmt.Sprintf("- %s (affected: %s)", r, strings.Join(byRemediation[r], ", ")))
	}
	return lines
}

func generateMarkdown(devices []device.Device) (string, error) {
	var b strings.Builder

	b.WriteString("# netwarden security report\n\n")
	fmt.Fprintf(&b, "Generated: %s  \n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Devices found: %d  \n", len(devices))
	fmt.Fprintf(&b, "Health score: **%d / 100**\n\n", device.HealthScore(devices))

	b.WriteString("| Name | IP | Vendor | Status | Score | Issues |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for i := range devices {
		d := &devices[i]
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %d | %d |\n",
			displayName(d), d.IP, d.Vendor, statusLabel(d.SecurityLevel),
			d.SecurityScore, len(d.Issues))
	}

	if issues := issueLines(devices); len(issues) > 0 {
		b.WriteString("\n## Findings\n\n")
		for _, line := range issues {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	if remediations := remediationSummary(devices); len(remediations) > 0 {
		b.WriteString("\n## Recommended actions\n\n")
		for _, line := range remediations {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	return b.String(), nil
}

func generateHTML(devices []device.Device) (string, error) {
	var b strings.Builder

	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("<meta charset=\"UTF-8\">\n")
	b.WriteString("<title>netwarden security report</title>\n")
	b.WriteString("<style>\n")
	b.WriteString("body { font-family: sans-serif; max-width: 800px; margin: 0 auto; padding: 20px; }\n")
	b.WriteString(".safe { color: #22c55e; } .warning { color: #f59e0b; } .danger { color: #ef4444; }\n")
	b.WriteString(".device { border: 1px solid #e2e8f0; border-radius: 8px; padding: 16px; margin: 16px 0; }\n")
	b.WriteString(".issue { padding: 8px; margin: 4px 0; background: #fef2f2; border-radius: 4px; }\n")
	b.WriteString("</style>\n</head>\n<body>\n")

	b.WriteString("<h1>netwarden security report</h1>\n")
	fmt.Fprintf(&b, "<p>Generated: %s</p>\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "<p>Devices found: %d</p>\n", len(devices))
	fmt.Fprintf(&b, "<p>Health score: %d / 100</p>\n", device.HealthScore(devices))

	for i := range devices {
		d := &devices[i]
		b.WriteString("<div class=\"device\">\n")
		fmt.Fprintf(&b, "<h3 class=%q>%s (score: %d)</h3>\n",
			cssClass(d.SecurityLevel), html.EscapeString(displayName(d)), d.SecurityScore)
		fmt.Fprintf(&b, "<p>IP: %s | MAC: %s</p>\n",
			html.EscapeString(d.IP), html.EscapeString(d.MAC))

		if len(d.Issues) > 0 {
			b.WriteString("<h4>Findings:</h4>\n")
			for _, issue := range d.Issues {
				fmt.Fprintf(&b, "<div class=\"issue\"><strong>%s</strong><br>%s</div>\n",
					html.EscapeString(issue.Title), html.EscapeString(issue.Description))
			}
		}
		b.WriteString("</div>\n")
	}

	b.WriteString("</body>\n</html>\n")
	return b.String(), nil
}

func generateJSON(devices []device.Device) (string, error) {
	out := struct {
		GeneratedAt time.Time       `json:"generated_at"`
		DeviceCount int             `json:"device_count"`
		HealthScore int             `json:"health_score"`
		Devices     []device.Device `json:"devices"`
	}{
		GeneratedAt: time.Now().UTC(),
		DeviceCount: len(devices),
		HealthScore: device.HealthScore(devices),
		Devices:     devices,
	}

	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}
	return string(data), nil
}

func displayName(d *device.Device) string {
	if d.Name != "" {
		return d.Name
	}
	return "unknown device"
}

func statusLabel(level device.SecurityLevel) string {
	switch level {
	case device.SecuritySafe:
		return "safe"
	case device.SecurityWarning:
		return "warning"
	case device.SecurityDanger:
		return "danger"
	default:
		return "unknown"
	}
}

func cssClass(level device.SecurityLevel) string {
	switch level {
	case device.SecuritySafe, device.SecurityWarning, device.SecurityDanger:
		return string(level)
	default:
		return ""
	}
}
