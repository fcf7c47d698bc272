// Package feedback splits a cross-document review back into per-document feedback.
package feedback

import (
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/jonathan/freight-doc-review/internal/types"
)

// nextTopLevelHeading matches a "##" heading that is not a deeper "###" heading.
var nextTopLevelHeading = regexp.MustCompile(`(?m)^##(?:[^#]|$)`)

// headingPrefix is the text allowed between "##" and a document name: blanks, or any
// run not starting with '#' that ends in a character which cannot continue a file name.
const headingPrefix = `(?:[ \t]*|[^#\w.\n]|[^#\n][^\n]*[^\w.\n])`

// FallbackText is the feedback given to a document the review did not address.
func FallbackText(name string) string {
	return fmt.Sprintf("## %s\n\n### ⚠️ Warnings & Recommendations\n- No specific feedback generated for this document in the review.", name)
}

// Reattribute assigns each document the review section headed with its display name.
// Results follow input order with sequence numbers starting at 1. A document without a
// section receives FallbackText; this never fails.
func Reattribute(report string, docs []types.Document) []types.DocumentFeedback {
	report = strings.ReplaceAll(report, "\r\n", "\n")
	results := make([]types.DocumentFeedback, len(docs))

	for i, doc := range docs {
		name := doc.DisplayName()
		section, ok := FindSection(report, name)
		if !ok {
			log.Printf("[feedback] no section for %q (%s), using fallback", name, doc.ID)
			section = FallbackText(name)
		}
		results[i] = types.DocumentFeedback{
			DocumentID:    doc.ID,
			DocumentName:  name,
			DocumentType:  doc.Type,
			AIFeedback:    section,
			SequenceOrder: i + 1,
			Fallback:      !ok,
		}
	}

	return results
}

// FindSection returns the text from the top-level heading naming name up to the next
// top-level heading or the end of the report. Matching is case-insensitive, accepts the
// name wrapped in brackets or bold markers, and allows leading text on the heading line
// ("## Document 1: CI.pdf") as long as the name is not part of a longer word.
func FindSection(report, name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}

	quoted := regexp.QuoteMeta(name)
	exact := regexp.MustCompile(`(?im)^##[ \t]*(?:\*\*)?\[?` + quoted + `\]?(?:\*\*)?(?:[^\w.\n][^\n]*)?$`)
	loc := exact.FindStringIndex(report)
	if loc == nil {
		// Headings like "## Document 1: CI.pdf" are only considered when no heading starts with the name.
		loose := regexp.MustCompile(`(?im)^##` + headingPrefix + `(?:\*\*)?\[?` + quoted + `\]?(?:\*\*)?(?:[^\w.\n][^\n]*)?$`)
		if loc = loose.FindStringIndex(report); loc == nil {
			return "", false
		}
	}

	end := len(report)
	if next := nextTopLevelHeading.FindStringIndex(report[loc[1]:]); next != nil {
		end = loc[1] + next[0]
	}

	return strings.TrimRight(report[loc[0]:end], " \t\n"), true
}
