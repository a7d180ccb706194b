package miabis

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"

	"github.com/miabis/miabis/pkg/fhirmodels"
)

func TestEntry_UsesDerivedIdentity(t *testing.T) {
	e := Entry(BuildCondition("condition-000001", "donor-000001", ICD10Codes[0]))
	if e.FullURL != FullURL("Condition", "condition-000001") {
		t.Errorf("unexpected fullUrl %s", e.FullURL)
	}
	if e.Request.Method != "PUT" || e.Request.URL != "Condition/condition-000001" {
		t.Errorf("unexpected request %+v", e.Request)
	}
}

func TestBuildBiobank(t *testing.T) {
	bb := BuildBiobank(BiobankInput{
		ID:               "biobank-CZ-001",
		BBMRIID:          "CZ_BIOBANK-CZ-001",
		Name:             "Brno National Biobank",
		Country:          "CZ",
		City:             "Brno",
		JuristicPersonID: "juristic-person-CZ-001",
		Capabilities:     []string{"BioBankBioinfo", "SampleStorage"},
		QualityStandard:  "ISO 20387",
		Contact:          fhirmodels.HumanName{Family: "Novak", Given: []string{"Jan"}},
	})
	if bb.Meta == nil || bb.Meta.Profile[0] != StructureDefinition("miabis-biobank") {
		t.Fatalf("expected biobank profile, got %+v", bb.Meta)
	}
	if got := bb.Identifier[0].Value; got != "bbmri-eric:ID:CZ_BIOBANK-CZ-001" {
		t.Errorf("unexpected identifier %s", got)
	}
	if bb.PartOf.Reference != FullURL("Organization", "juristic-person-CZ-001") {
		t.Errorf("expected partOf the juristic person, got %s", bb.PartOf.Reference)
	}
	// two capabilities, quality standard, description
	if len(bb.Extension) != 4 {
		t.Errorf("expected 4 extensions, got %d", len(bb.Extension))
	}
	if bb.Text == nil || !strings.Contains(bb.Text.Div, "Organization/biobank-CZ-001") {
		t.Errorf("expected narrative naming the resource, got %+v", bb.Text)
	}
}

func TestBuildCollectionOrganization_AliasTruncated(t *testing.T) {
	org := BuildCollectionOrganization(CollectionOrganizationInput{
		ID:        "col-org-001",
		Name:      "Solid Tumors",
		Country:   "CZ",
		BiobankID: "biobank-CZ-001",
	})
	if diff := cmp.Diff([]string{"COL-ORG-00"}, org.Alias); diff != "" {
		t.Errorf("alias (-want +got):\n%s", diff)
	}
	if org.Active == nil || !*org.Active {
		t.Error("expected active collection organization")
	}
}

func TestBuildCollection(t *testing.T) {
	g := BuildCollection(CollectionInput{
		ID:                       "collection-001",
		CollectionOrganizationID: "col-org-001",
		SpecimenIDs:              []string{"sample-000001-01", "sample-000002-01"},
		NumberOfSubjects:         2,
		InclusionCriterion:       "HealthStatus",
		MaxAge:                   80,
		StorageTemperatures:      []string{"LN", "RT"},
		MaterialTypes:            []string{"Serum"},
	})
	if g.Name != "Collection 001" {
		t.Errorf("expected name Collection 001, got %q", g.Name)
	}
	if !g.Actual || g.Type != "person" {
		t.Errorf("expected actual person group, got actual=%v type=%s", g.Actual, g.Type)
	}
	if g.Extension[0].ValueInteger == nil || *g.Extension[0].ValueInteger != 2 {
		t.Fatalf("expected subject count 2, got %+v", g.Extension[0])
	}
	var members []string
	for _, e := range g.Extension {
		if e.URL == MemberEntityExtension {
			members = append(members, e.ValueReference.Reference)
		}
	}
	want := []string{FullURL("Specimen", "sample-000001-01"), FullURL("Specimen", "sample-000002-01")}
	if diff := cmp.Diff(want, members); diff != "" {
		t.Errorf("members (-want +got):\n%s", diff)
	}
	// age, two sexes, two storage temperatures, one material, diagnosis
	if len(g.Characteristic) != 7 {
		t.Errorf("expected 7 characteristics, got %d", len(g.Characteristic))
	}
	if g.Characteristic[0].ValueRange.High.Value != 80 {
		t.Errorf("expected max age 80, got %d", g.Characteristic[0].ValueRange.High.Value)
	}
}

func TestBuildDonor_LivingOmitsDeceased(t *testing.T) {
	p := BuildDonor(DonorInput{
		ID:           "donor-000001",
		Gender:       fhirmodels.GenderFemale,
		BirthDate:    "1970-01-02",
		DatasetTypes: []string{"Lifestyle"},
	})
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), "deceasedDateTime") {
		t.Errorf("expected no deceasedDateTime for a living donor: %s", raw)
	}
	if p.Identifier[0].Value != "DONOR-000001" {
		t.Errorf("unexpected identifier %s", p.Identifier[0].Value)
	}
	if !strings.Contains(p.Text.Div, "Female, born 1970-01-02") {
		t.Errorf("unexpected narrative %s", p.Text.Div)
	}
}

func TestBuildSpecimen(t *testing.T) {
	s := BuildSpecimen(SpecimenInput{
		ID:                   "sample-000001-01",
		DonorID:              "donor-000001",
		SampleType:           SampleTypes[0],
		BodySite:             BodySiteFor("C34.1"),
		CollectedAt:          "2020-03-04T10:00:00+01:00",
		StorageTemperature:   StorageTemperatureFor(SampleTypes[0].Code),
		CollectionIdentifier: CollectionIdentifier("biobank-CZ-001", "collection-001"),
	})
	if s.Subject.Reference != FullURL("Patient", "donor-000001") {
		t.Errorf("unexpected subject %s", s.Subject.Reference)
	}
	storage := s.Processing[0].Extension[0].ValueCodeableConcept.Coding[0]
	if storage.Code != "LN" {
		t.Errorf("expected LN storage, got %s", storage.Code)
	}
	if s.Collection.BodySite.Coding[0].Code != "39607008" {
		t.Errorf("unexpected body site %+v", s.Collection.BodySite)
	}
	if s.Identifier[0].Value != "SAMPLE-000001-01" {
		t.Errorf("unexpected identifier %s", s.Identifier[0].Value)
	}
}

func TestBuildDiagnosticReport(t *testing.T) {
	dx := ICD10Codes[0]
	r := BuildDiagnosticReport("diagreport-000001", "donor-000001", []string{"sample-000001-01"}, dx, "2021-05-06")
	if r.Meta != nil {
		t.Error("expected no profile on diagnostic reports")
	}
	if r.Conclusion != PathologyConclusion(dx) {
		t.Errorf("unexpected conclusion %s", r.Conclusion)
	}
	if r.ConclusionCode[0].Coding[0].Code != dx.Code {
		t.Errorf("unexpected conclusion code %+v", r.ConclusionCode)
	}
	if r.Status != "final" {
		t.Errorf("expected final status, got %s", r.Status)
	}
}

func TestBuildDiagnosticReport_NarrativeKeepsRunes(t *testing.T) {
	dx := Code{Code: "C50.9", Display: "x" + strings.Repeat("á", 40)}
	r := BuildDiagnosticReport("diagreport-000001", "donor-000001", nil, dx, "2021-05-06")
	if r.Text == nil || !utf8.ValidString(r.Text.Div) {
		t.Fatalf("expected valid UTF-8 narrative, got %+v", r.Text)
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 80, "short"},
		{"abcdef", 3, "abc"},
		{"ááá", 2, "áá"},
	}
	for _, tt := range tests {
		if got := truncateRunes(tt.in, tt.n); got != tt.want {
			t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestBuildObservation(t *testing.T) {
	o := BuildObservation(ObservationInput{
		ID:         "obs-000001-01",
		DonorID:    "donor-000001",
		SpecimenID: "sample-000001-01",
		BiobankID:  "biobank-CZ-001",
		Diagnosis:  ICD10Codes[3],
		Effective:  "2022-01-01",
	})
	if o.Specimen.Reference != FullURL("Specimen", "sample-000001-01") {
		t.Errorf("unexpected specimen %s", o.Specimen.Reference)
	}
	if o.Performer[0].Reference != FullURL("Organization", "biobank-CZ-001") {
		t.Errorf("unexpected performer %s", o.Performer[0].Reference)
	}
	if o.ValueCodeableConcept.Coding[0].Code != ICD10Codes[3].Code {
		t.Errorf("unexpected value %+v", o.ValueCodeableConcept)
	}
}
