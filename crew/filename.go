package crew

import "strings"

// ReportFilename returns the download name for a topic's report:
// research_report_<topic lowercased, spaces replaced by underscores>.md
func ReportFilename(topic string) string {
	return "research_report_" + strings.ReplaceAll(strings.ToLower(topic), " ", "_") + ".md"
}
