package feedback

import (
	"regexp"
	"strings"

	"github.com/jonathan/freight-doc-review/internal/types"
)

var criticalCheckPattern = regexp.MustCompile(
	`(?i)###\s*Critical Check:\s*([^\n]+)\n\*\*Status:\*\*\s*(PASS|FAIL|WARNING)[^\n]*\n\*\*Details:\*\*\s*([^\n]+)\n\*\*Issue:\*\*\s*([^\n]+)`)

// ParseCriticalChecks extracts every well-formed critical check block from a review.
// Malformed blocks are skipped.
func ParseCriticalChecks(report string) []types.CriticalCheckResult {
	report = strings.ReplaceAll(report, "\r\n", "\n")
	matches := criticalCheckPattern.FindAllStringSubmatch(report, -1)

	results := make([]types.CriticalCheckResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, types.CriticalCheckResult{
			CheckName: strings.TrimSpace(m[1]),
			Status:    strings.ToUpper(strings.TrimSpace(m[2])),
			Details:   strings.TrimSpace(m[3]),
			Issue:     strings.TrimSpace(m[4]),
		})
	}
	return results
}

// OverallStatus summarises a run: FAIL if any check failed, WARNING if any check warned or a
// document got no feedback of its own, PASS otherwise.
func OverallStatus(checks []types.CriticalCheckResult, results []types.DocumentFeedback) string {
	status := types.CheckStatusPass
	for _, c := range checks {
		switch c.Status {
		case types.CheckStatusFail:
			return types.CheckStatusFail
		case types.CheckStatusWarning:
			status = types.CheckStatusWarning
		}
	}
	for _, r := range results {
		if r.Fallback {
			status = types.CheckStatusWarning
		}
	}
	return status
}
