package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/jonathan/freight-doc-review/internal/schemas"
	"github.com/jonathan/freight-doc-review/internal/types"
)

// manifest describes an offline analysis: one quotation's documents and an optional rule.
type manifest struct {
	QuotationID string           `json:"quotation_id"`
	Documents   []types.Document `json:"documents"`
	Rule        *manifestRule    `json:"rule,omitempty"`
}

type manifestRule struct {
	Name                   string   `json:"name"`
	ComparisonInstructions string   `json:"comparison_instructions"`
	CriticalChecks         []string `json:"critical_checks"`
}

// loadManifest reads and schema-validates a manifest file.
func loadManifest(path string) (*manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	if err := schemas.Validate(schemas.AnalyzeManifestSchema, string(data)); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest JSON: %w", err)
	}
	for i := range m.Documents {
		m.Documents[i].QuotationID = m.QuotationID
	}
	return &m, nil
}

// manifestStore serves document and rule lookups from a manifest.
type manifestStore struct {
	m      *manifest
	ruleID uuid.UUID
}

func newManifestStore(m *manifest) *manifestStore {
	s := &manifestStore{m: m}
	if m.Rule != nil {
		s.ruleID = uuid.New()
	}
	return s
}

// request builds the analyze request covering every manifest document.
func (s *manifestStore) request(userID string) types.AnalyzeRequest {
	ids := make([]string, 0, len(s.m.Documents))
	for _, d := range s.m.Documents {
		ids = append(ids, d.ID)
	}
	req := types.AnalyzeRequest{
		DocumentIDs: ids,
		QuotationID: s.m.QuotationID,
		UserID:      userID,
	}
	if s.m.Rule != nil {
		id := s.ruleID
		req.RuleID = &id
	}
	return req
}

func (s *manifestStore) GetDocumentsByIDs(_ context.Context, quotationID string, ids []string) ([]types.Document, error) {
	if quotationID != s.m.QuotationID {
		return []types.Document{}, nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := []types.Document{}
	for _, d := range s.m.Documents {
		if want[d.ID] {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *manifestStore) GetRule(_ context.Context, id uuid.UUID) (*types.ComparisonRule, error) {
	if s.m.Rule == nil || id != s.ruleID {
		return nil, nil
	}
	return &types.ComparisonRule{
		ID:                     s.ruleID,
		Name:                   s.m.Rule.Name,
		ComparisonInstructions: s.m.Rule.ComparisonInstructions,
		CriticalChecks:         s.m.Rule.CriticalChecks,
	}, nil
}
