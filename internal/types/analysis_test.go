package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzeRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     AnalyzeRequest
		wantErr bool
	}{
		{
			name: "valid",
			req:  AnalyzeRequest{DocumentIDs: []string{"d1"}, QuotationID: "q1", UserID: "u1"},
		},
		{
			name:    "no documents",
			req:     AnalyzeRequest{DocumentIDs: []string{}, QuotationID: "q1", UserID: "u1"},
			wantErr: true,
		},
		{
			name:    "nil documents",
			req:     AnalyzeRequest{QuotationID: "q1", UserID: "u1"},
			wantErr: true,
		},
		{
			name:    "blank document id",
			req:     AnalyzeRequest{DocumentIDs: []string{""}, QuotationID: "q1", UserID: "u1"},
			wantErr: true,
		},
		{
			name:    "missing quotation",
			req:     AnalyzeRequest{DocumentIDs: []string{"d1"}, UserID: "u1"},
			wantErr: true,
		},
		{
			name:    "missing user",
			req:     AnalyzeRequest{DocumentIDs: []string{"d1"}, QuotationID: "q1"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateRuleRequest_Validate(t *testing.T) {
	valid := CreateRuleRequest{UserID: "u1", Name: "Strict", ComparisonInstructions: "Check permits"}
	assert.NoError(t, valid.Validate())

	missingName := valid
	missingName.Name = ""
	assert.Error(t, missingName.Validate())

	blankCheck := valid
	blankCheck.CriticalChecks = []string{"HS code matches", ""}
	assert.Error(t, blankCheck.Validate())
}

func TestSaveAPIKeyRequest_Validate(t *testing.T) {
	assert.NoError(t, (&SaveAPIKeyRequest{UserID: "u1", APIKey: "k"}).Validate())
	assert.Error(t, (&SaveAPIKeyRequest{UserID: "u1"}).Validate())
}
