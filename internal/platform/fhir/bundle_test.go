package fhir

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/miabis/miabis/pkg/fhirmodels"
)

type testResource struct {
	fhirmodels.ResourceBase
	Subject *fhirmodels.Reference  `json:"subject,omitempty"`
	Member  []fhirmodels.Reference `json:"member,omitempty"`
}

func newTestResource(rt, id string) *testResource {
	return &testResource{ResourceBase: fhirmodels.ResourceBase{ResourceType: rt, ID: id}}
}

func TestNewTransactionBundle(t *testing.T) {
	b := NewTransactionBundle("b-1", nil)
	if b.ResourceType != "Bundle" {
		t.Errorf("expected resourceType Bundle, got %s", b.ResourceType)
	}
	if b.Type != "transaction" {
		t.Errorf("expected type transaction, got %s", b.Type)
	}
	if b.Entry == nil {
		t.Fatal("expected non-nil entry slice")
	}

	var buf bytes.Buffer
	if err := Encode(&buf, b); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(buf.String(), `"entry": []`) {
		t.Errorf("expected empty entry array in %s", buf.String())
	}
}

func TestNewPutEntry(t *testing.T) {
	e := NewPutEntry("urn:uuid:1", newTestResource("Patient", "donor-000001"))
	if e.FullURL != "urn:uuid:1" {
		t.Errorf("expected fullUrl urn:uuid:1, got %s", e.FullURL)
	}
	want := &BundleRequest{Method: "PUT", URL: "Patient/donor-000001"}
	if diff := cmp.Diff(want, e.Request); diff != "" {
		t.Errorf("request (-want +got):\n%s", diff)
	}
}

func TestBundle_CountByType(t *testing.T) {
	b := NewTransactionBundle("b", []BundleEntry{
		NewPutEntry("urn:uuid:1", newTestResource("Patient", "a")),
		NewPutEntry("urn:uuid:2", newTestResource("Patient", "b")),
		NewPutEntry("urn:uuid:3", newTestResource("Specimen", "c")),
		{FullURL: "urn:uuid:4"},
	})
	want := map[string]int{"Patient": 2, "Specimen": 1}
	if diff := cmp.Diff(want, b.CountByType()); diff != "" {
		t.Errorf("counts (-want +got):\n%s", diff)
	}
}

func TestEncode_KeepsMarkupLiteral(t *testing.T) {
	r := newTestResource("Patient", "a")
	r.Text = GeneratedNarrative("Patient", "a", "summary")
	b := NewTransactionBundle("b", []BundleEntry{NewPutEntry("urn:uuid:1", r)})

	var buf bytes.Buffer
	if err := Encode(&buf, b); err != nil {
		t.Fatalf("encode: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, `\u003c`) || !strings.Contains(out, "<div") {
		t.Errorf("expected literal markup, got %s", out)
	}
	if !strings.Contains(out, "\n  \"resourceType\": \"Bundle\"") {
		t.Errorf("expected two-space indentation, got %s", out)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
}
