// Package types provides type definitions for structured data used throughout the document review system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"strings"
	"time"
)

// Document is one uploaded shipment file attached to a quotation.
type Document struct {
	ID          string     `json:"id"`
	QuotationID string     `json:"quotation_id,omitempty"`
	Name        string     `json:"file_name"`
	Type        string     `json:"document_type"`
	URL         string     `json:"file_url"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}

// DisplayName returns the name used to address the document in prompts and section headings.
// Documents without a file name fall back to their type tag.
func (d Document) DisplayName() string {
	if name := strings.TrimSpace(d.Name); name != "" {
		return name
	}
	return d.Type
}

// LoadedDocument is a Document together with the bytes fetched from its URL.
// LoadErr is set when the download failed; Data is nil in that case.
type LoadedDocument struct {
	Document
	Data     []byte
	MIMEType string
	LoadErr  error
}

// Available reports whether the document payload was downloaded.
func (d LoadedDocument) Available() bool {
	return d.LoadErr == nil && len(d.Data) > 0
}

// documentTypeNames maps known type tags to their display names.
var documentTypeNames = map[string]string{
	"commercial-invoice":    "Commercial Invoice",
	"packing-list":          "Packing List",
	"tk-31":                 "TK-31 Export Report",
	"tk-32":                 "TK-32 Export Permit",
	"import-permit":         "Import Permit",
	"export-permit":         "Export Permit",
	"purchase-order":        "Purchase Order",
	"bill-of-lading":        "Bill of Lading",
	"certificate-of-origin": "Certificate of Origin",
	"other":                 "Other Document",
}

// DocumentTypeDisplayName converts a type tag such as "commercial-invoice" to a
// human readable label. Unknown tags are title-cased word by word.
func DocumentTypeDisplayName(slug string) string {
	if name, ok := documentTypeNames[slug]; ok {
		return name
	}
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
