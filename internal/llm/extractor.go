// Package llm - extractor.go builds strict-JSON field extraction prompts.
package llm

import (
	"encoding/json"
	"strings"

	"github.com/jonathan/freight-doc-review/internal/prompts"
	"github.com/jonathan/freight-doc-review/internal/types"
)

// ExtractionSchema defines the flat set of string fields the model must return.
type ExtractionSchema struct {
	Name   string        // Schema name (e.g., "ShipmentFields")
	Fields []SchemaField // Expected output fields, in prompt order
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Description string // Optional hint shown to the model
}

// FieldNames returns the schema's field names in order.
func (s ExtractionSchema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Template renders the schema as a JSON object with every key set to "".
func (s ExtractionSchema) Template() string {
	var sb strings.Builder
	sb.WriteString("{\n")
	for i, field := range s.Fields {
		key, _ := json.Marshal(field.Name)
		sb.WriteString("  ")
		sb.Write(key)
		sb.WriteString(`: ""`)
		if i < len(s.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}")
	return sb.String()
}

// BuildExtractionPrompt constructs the prompt asking for schema fields from one named document.
func BuildExtractionPrompt(schema ExtractionSchema, documentName string) string {
	return prompts.Render("extraction.json", "extract-document-fields", map[string]string{
		"DocumentName":  documentName,
		"FieldTemplate": schema.Template(),
	})
}

// ShipmentFieldsSchema returns the fixed schema extracted from every shipment document.
func ShipmentFieldsSchema() ExtractionSchema {
	names := types.ExtractedFieldNames()
	fields := make([]SchemaField, len(names))
	for i, name := range names {
		fields[i] = SchemaField{Name: name}
	}
	return ExtractionSchema{Name: "ShipmentFields", Fields: fields}
}
