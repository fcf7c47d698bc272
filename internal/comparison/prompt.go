package comparison

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jonathan/freight-doc-review/internal/prompts"
	"github.com/jonathan/freight-doc-review/internal/types"
)

const promptFile = "comparison.json"

// ManifestEntry describes one document in the review prompt.
type ManifestEntry struct {
	ID                  string                `json:"id"`
	FileName            string                `json:"file_name"`
	DocumentType        string                `json:"document_type"`
	DocumentTypeSlug    string                `json:"document_type_slug"`
	Extracted           types.ExtractedFields `json:"extracted"`
	AttachmentAvailable bool                  `json:"attachment_available"`
}

// Supplement carries optional reviewer rule content appended to the prompt.
type Supplement struct {
	Instructions   string
	CriticalChecks []string
}

// IsZero reports whether the supplement adds nothing to the prompt.
func (s Supplement) IsZero() bool {
	return strings.TrimSpace(s.Instructions) == "" && len(nonBlank(s.CriticalChecks)) == 0
}

// SupplementFromRule converts a stored comparison rule; a nil rule gives the zero Supplement.
func SupplementFromRule(rule *types.ComparisonRule) Supplement {
	if rule == nil {
		return Supplement{}
	}
	return Supplement{Instructions: rule.ComparisonInstructions, CriticalChecks: rule.CriticalChecks}
}

// BuildManifest lists the documents in input order with their extracted fields.
// Documents missing from extracted get an all-empty field set.
func BuildManifest(docs []types.LoadedDocument, extracted map[string]types.ExtractedFields) []ManifestEntry {
	entries := make([]ManifestEntry, len(docs))
	for i, doc := range docs {
		entries[i] = ManifestEntry{
			ID:                  doc.ID,
			FileName:            doc.DisplayName(),
			DocumentType:        types.DocumentTypeDisplayName(doc.Type),
			DocumentTypeSlug:    doc.Type,
			Extracted:           extracted[doc.ID],
			AttachmentAvailable: doc.Available(),
		}
	}
	return entries
}

// BuildPrompt composes the single cross-document review prompt.
// The structure is fixed: preamble, manifest, checklist, output format, directives, then the optional supplement.
func BuildPrompt(docs []types.LoadedDocument, extracted map[string]types.ExtractedFields, sup Supplement) (string, error) {
	manifest := BuildManifest(docs, extracted)
	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode document manifest: %w", err)
	}

	sections := make([]string, len(manifest))
	for i, entry := range manifest {
		sections[i] = "## " + entry.FileName
	}

	var sb strings.Builder
	sb.WriteString(prompts.Render(promptFile, "review-preamble", map[string]string{
		"DocumentCount": strconv.Itoa(len(manifest)),
	}))
	sb.WriteString("\n\n")
	sb.WriteString(prompts.MustGet(promptFile, "manifest-heading"))
	sb.WriteString("\n")
	sb.Write(manifestJSON)
	sb.WriteString("\n\n")
	sb.WriteString(prompts.MustGet(promptFile, "checklist"))
	sb.WriteString("\n\n")
	sb.WriteString(prompts.Render(promptFile, "output-format", map[string]string{
		"SectionList": strings.Join(sections, "\n"),
	}))
	sb.WriteString("\n\n")
	sb.WriteString(prompts.MustGet(promptFile, "directives"))

	if instructions := strings.TrimSpace(sup.Instructions); instructions != "" {
		sb.WriteString("\n\n")
		sb.WriteString(prompts.Render(promptFile, "additional-instructions", map[string]string{
			"Instructions": expandRulePlaceholders(instructions, manifest, string(manifestJSON)),
		}))
	}

	if checks := nonBlank(sup.CriticalChecks); len(checks) > 0 {
		numbered := make([]string, len(checks))
		for i, check := range checks {
			numbered[i] = fmt.Sprintf("%d. %s", i+1, check)
		}
		sb.WriteString("\n\n")
		sb.WriteString(prompts.Render(promptFile, "critical-checks", map[string]string{
			"CheckList": strings.Join(numbered, "\n"),
		}))
	}

	return sb.String(), nil
}

// expandRulePlaceholders fills the placeholders rule authors may use in their instructions.
func expandRulePlaceholders(text string, manifest []ManifestEntry, manifestJSON string) string {
	list := make([]string, len(manifest))
	for i, entry := range manifest {
		list[i] = "- " + entry.FileName
	}
	first := "Document Name"
	if len(manifest) > 0 {
		first = manifest[0].FileName
	}

	return strings.NewReplacer(
		"{allDocuments}", manifestJSON,
		"{documentCount}", strconv.Itoa(len(manifest)),
		"{documentList}", strings.Join(list, "\n"),
		"{firstDocumentName}", first,
	).Replace(text)
}

func nonBlank(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
