package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentTypeDisplayName(t *testing.T) {
	tests := []struct {
		name string
		slug string
		want string
	}{
		{name: "commercial invoice", slug: "commercial-invoice", want: "Commercial Invoice"},
		{name: "packing list", slug: "packing-list", want: "Packing List"},
		{name: "tk-31", slug: "tk-31", want: "TK-31 Export Report"},
		{name: "tk-32", slug: "tk-32", want: "TK-32 Export Permit"},
		{name: "other", slug: "other", want: "Other Document"},
		{name: "unknown slug is title cased", slug: "air-waybill", want: "Air Waybill"},
		{name: "single word", slug: "manifest", want: "Manifest"},
		{name: "empty", slug: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DocumentTypeDisplayName(tt.slug))
		})
	}
}

func TestDocument_DisplayName(t *testing.T) {
	assert.Equal(t, "Invoice_001.pdf", Document{Name: "Invoice_001.pdf", Type: "commercial-invoice"}.DisplayName())
	assert.Equal(t, "commercial-invoice", Document{Name: "  ", Type: "commercial-invoice"}.DisplayName())
}

func TestLoadedDocument_Available(t *testing.T) {
	assert.True(t, LoadedDocument{Data: []byte("%PDF")}.Available())
	assert.False(t, LoadedDocument{}.Available())
	assert.False(t, LoadedDocument{Data: []byte("x"), LoadErr: errors.New("boom")}.Available())
}
