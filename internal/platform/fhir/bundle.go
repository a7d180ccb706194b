package fhir

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/miabis/miabis/pkg/fhirmodels"
)

// Bundle represents a FHIR Bundle resource.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	ID           string        `json:"id,omitempty"`
	Type         string        `json:"type"`
	Entry        []BundleEntry `json:"entry"`
}

type BundleEntry struct {
	FullURL  string              `json:"fullUrl"`
	Resource fhirmodels.Resource `json:"resource"`
	Request  *BundleRequest      `json:"request,omitempty"`
}

type BundleRequest struct {
	Method string `json:"method"`
	URL    string `json:"url"`
}

// NewTransactionBundle wraps entries in a transaction Bundle.
func NewTransactionBundle(id string, entries []BundleEntry) *Bundle {
	if entries == nil {
		entries = []BundleEntry{}
	}
	return &Bundle{
		ResourceType: "Bundle",
		ID:           id,
		Type:         fhirmodels.BundleTypeTransaction,
		Entry:        entries,
	}
}

// NewPutEntry creates a create-or-replace entry for r. The request URL is
// always ResourceType/id so that replaying the bundle is idempotent.
func NewPutEntry(fullURL string, r fhirmodels.Resource) BundleEntry {
	return BundleEntry{
		FullURL:  fullURL,
		Resource: r,
		Request: &BundleRequest{
			Method: fhirmodels.MethodPut,
			URL:    fmt.Sprintf("%s/%s", r.GetResourceType(), r.GetID()),
		},
	}
}

// SummaryOrder is the order in which per-type counts are reported.
var SummaryOrder = []string{
	"Organization", "Group", "Patient", "Condition",
	"Specimen", "DiagnosticReport", "Observation",
}

// CountByType returns the number of entries per resource type.
func (b *Bundle) CountByType() map[string]int {
	counts := make(map[string]int)
	for _, e := range b.Entry {
		if e.Resource == nil {
			continue
		}
		counts[e.Resource.GetResourceType()]++
	}
	return counts
}

// Encode writes the bundle as indented JSON. HTML characters are kept
// literal because the narrative divs contain XHTML.
func Encode(w io.Writer, b *Bundle) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	return nil
}
