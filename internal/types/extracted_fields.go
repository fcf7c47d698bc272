package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Extracted field names. The set is fixed: extraction never adds or omits keys.
const (
	FieldConsignorName        = "consignor_name"
	FieldConsignorAddress     = "consignor_address"
	FieldConsigneeName        = "consignee_name"
	FieldConsigneeAddress     = "consignee_address"
	FieldHSCode               = "hs_code"
	FieldPermitNumber         = "permit_number"
	FieldPONumber             = "po_number"
	FieldCountryOfOrigin      = "country_of_origin"
	FieldCountryOfDestination = "country_of_destination"
	FieldQuantity             = "quantity"
	FieldTotalValue           = "total_value"
	FieldShippingMarks        = "shipping_marks"
	FieldShippedFrom          = "shipped_from"
	FieldShippedTo            = "shipped_to"
	FieldDocumentDate         = "document_date"
)

var extractedFieldNames = []string{
	FieldConsignorName,
	FieldConsignorAddress,
	FieldConsigneeName,
	FieldConsigneeAddress,
	FieldHSCode,
	FieldPermitNumber,
	FieldPONumber,
	FieldCountryOfOrigin,
	FieldCountryOfDestination,
	FieldQuantity,
	FieldTotalValue,
	FieldShippingMarks,
	FieldShippedFrom,
	FieldShippedTo,
	FieldDocumentDate,
}

// ExtractedFieldNames returns the schema keys in their canonical order.
func ExtractedFieldNames() []string {
	out := make([]string, len(extractedFieldNames))
	copy(out, extractedFieldNames)
	return out
}

// ExtractedFields holds the values pulled out of one document.
// Every key always serializes; unknown values are empty strings.
type ExtractedFields struct {
	ConsignorName        string `json:"consignor_name"`
	ConsignorAddress     string `json:"consignor_address"`
	ConsigneeName        string `json:"consignee_name"`
	ConsigneeAddress     string `json:"consignee_address"`
	HSCode               string `json:"hs_code"`
	PermitNumber         string `json:"permit_number"`
	PONumber             string `json:"po_number"`
	CountryOfOrigin      string `json:"country_of_origin"`
	CountryOfDestination string `json:"country_of_destination"`
	Quantity             string `json:"quantity"`
	TotalValue           string `json:"total_value"`
	ShippingMarks        string `json:"shipping_marks"`
	ShippedFrom          string `json:"shipped_from"`
	ShippedTo            string `json:"shipped_to"`
	DocumentDate         string `json:"document_date"`
}

func (f *ExtractedFields) slot(name string) *string {
	switch name {
	case FieldConsignorName:
		return &f.ConsignorName
	case FieldConsignorAddress:
		return &f.ConsignorAddress
	case FieldConsigneeName:
		return &f.ConsigneeName
	case FieldConsigneeAddress:
		return &f.ConsigneeAddress
	case FieldHSCode:
		return &f.HSCode
	case FieldPermitNumber:
		return &f.PermitNumber
	case FieldPONumber:
		return &f.PONumber
	case FieldCountryOfOrigin:
		return &f.CountryOfOrigin
	case FieldCountryOfDestination:
		return &f.CountryOfDestination
	case FieldQuantity:
		return &f.Quantity
	case FieldTotalValue:
		return &f.TotalValue
	case FieldShippingMarks:
		return &f.ShippingMarks
	case FieldShippedFrom:
		return &f.ShippedFrom
	case FieldShippedTo:
		return &f.ShippedTo
	case FieldDocumentDate:
		return &f.DocumentDate
	}
	return nil
}

// Get returns the value of the named field, or "" for names outside the schema.
func (f ExtractedFields) Get(name string) string {
	if p := f.slot(name); p != nil {
		return *p
	}
	return ""
}

// Map returns the fields as a map keyed by schema name. It always has every key.
func (f ExtractedFields) Map() map[string]string {
	out := make(map[string]string, len(extractedFieldNames))
	for _, name := range extractedFieldNames {
		out[name] = f.Get(name)
	}
	return out
}

// IsEmpty reports whether no field carries a value.
func (f ExtractedFields) IsEmpty() bool {
	for _, name := range extractedFieldNames {
		if f.Get(name) != "" {
			return false
		}
	}
	return true
}

// ExtractedFieldsFromMap builds ExtractedFields from a loosely typed JSON object.
// Keys outside the schema are dropped, null becomes "", numbers and booleans are
// formatted as strings, and nested values are re-encoded as compact JSON.
func ExtractedFieldsFromMap(raw map[string]any) ExtractedFields {
	var f ExtractedFields
	for key, value := range raw {
		p := f.slot(strings.TrimSpace(strings.ToLower(key)))
		if p == nil {
			continue
		}
		*p = stringifyFieldValue(value)
	}
	return f
}

func stringifyFieldValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
