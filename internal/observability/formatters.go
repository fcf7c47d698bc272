// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/freight-doc-review/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxFeedbackLines caps how much of each document's feedback is echoed
	maxFeedbackLines = 8
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if len([]rune(line)) > boxWidth-4 {
			line = string([]rune(line)[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintDocuments lists the documents about to be reviewed.
func (p *Printer) PrintDocuments(docs []types.Document) {
	if len(docs) == 0 {
		return
	}

	var sb strings.Builder
	for i, d := range docs {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, d.DisplayName()))
		sb.WriteString(fmt.Sprintf("   %s\n", types.DocumentTypeDisplayName(d.Type)))
	}

	p.printBox(fmt.Sprintf("DOCUMENTS (%d)", len(docs)), strings.TrimRight(sb.String(), "\n"))
}

// PrintExtractedData shows the non-empty fields pulled from each document, in result order.
func (p *Printer) PrintExtractedData(results []types.DocumentFeedback, data map[string]types.ExtractedFields) {
	if len(data) == 0 {
		return
	}

	var sb strings.Builder
	for _, r := range results {
		fields, ok := data[r.DocumentID]
		if !ok {
			continue
		}
		sb.WriteString(r.DocumentName + "\n")
		if fields.IsEmpty() {
			sb.WriteString("  (nothing extracted)\n")
			continue
		}
		for _, name := range types.ExtractedFieldNames() {
			if v := fields.Get(name); v != "" {
				sb.WriteString(fmt.Sprintf("  %s: %s\n", name, v))
			}
		}
	}

	p.printBox("EXTRACTED FIELDS", strings.TrimRight(sb.String(), "\n"))
}

// PrintCriticalChecks outputs the status of each rule check.
func (p *Printer) PrintCriticalChecks(checks []types.CriticalCheckResult) {
	if len(checks) == 0 {
		return
	}

	var sb strings.Builder
	counts := map[string]int{}
	for _, c := range checks {
		counts[c.Status]++
		icon := "✓"
		switch c.Status {
		case types.CheckStatusFail:
			icon = "✗"
		case types.CheckStatusWarning:
			icon = "!"
		}
		sb.WriteString(fmt.Sprintf("%s %s [%s]\n", icon, c.CheckName, c.Status))
		if c.Issue != "" && !strings.EqualFold(c.Issue, "none") {
			sb.WriteString(fmt.Sprintf("    %s\n", c.Issue))
		}
	}
	sb.WriteString(fmt.Sprintf("\n%d pass, %d fail, %d warning",
		counts[types.CheckStatusPass], counts[types.CheckStatusFail], counts[types.CheckStatusWarning]))

	p.printBox("CRITICAL CHECKS", sb.String())
}

// PrintFeedback outputs the first lines of each document's review section.
func (p *Printer) PrintFeedback(results []types.DocumentFeedback) {
	if len(results) == 0 {
		return
	}

	var sb strings.Builder
	for _, r := range results {
		label := r.DocumentName
		if r.Fallback {
			label += " (no dedicated section)"
		}
		sb.WriteString(fmt.Sprintf("#%d %s\n", r.SequenceOrder, label))

		lines := strings.Split(strings.TrimSpace(r.AIFeedback), "\n")
		shown := min(len(lines), maxFeedbackLines)
		for _, line := range lines[:shown] {
			sb.WriteString("  " + line + "\n")
		}
		if len(lines) > maxFeedbackLines {
			sb.WriteString(fmt.Sprintf("  ... and %d more lines\n", len(lines)-maxFeedbackLines))
		}
		sb.WriteString("\n")
	}

	p.printBox("DOCUMENT FEEDBACK", strings.TrimRight(sb.String(), "\n"))
}

// PrintAnalysis prints every section of a finished analysis.
func (p *Printer) PrintAnalysis(resp *types.AnalyzeResponse) {
	if resp == nil {
		return
	}
	p.PrintExtractedData(resp.Results, resp.ExtractedData)
	p.PrintCriticalChecks(resp.CriticalChecksResults)
	p.PrintFeedback(resp.Results)
}
