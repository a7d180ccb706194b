package fhirmodels

// Common FHIR datatypes and value set constants used by the generator.

// AdministrativeGender codes.
const (
	GenderMale    = "male"
	GenderFemale  = "female"
	GenderOther   = "other"
	GenderUnknown = "unknown"
)

// Bundle types per FHIR R4.
const (
	BundleTypeTransaction = "transaction"
	BundleTypeBatch       = "batch"
	BundleTypeCollection  = "collection"
)

// HTTP verbs used in Bundle.entry.request.
const (
	MethodPut  = "PUT"
	MethodPost = "POST"
)

// Status codes for DiagnosticReport and Observation.
const (
	StatusFinal       = "final"
	StatusPreliminary = "preliminary"
)

// NarrativeGenerated is the Narrative.status for machine-generated text.
const NarrativeGenerated = "generated"

// Resource is implemented by every resource the generator emits.
type Resource interface {
	GetResourceType() string
	GetID() string
}

// ResourceBase holds the elements shared by all resources. Embed it to
// satisfy Resource.
type ResourceBase struct {
	ResourceType string     `json:"resourceType"`
	ID           string     `json:"id"`
	Meta         *Meta      `json:"meta,omitempty"`
	Text         *Narrative `json:"text,omitempty"`
}

func (b ResourceBase) GetResourceType() string { return b.ResourceType }

func (b ResourceBase) GetID() string { return b.ID }

// Profiled returns a Meta claiming conformance to a single profile.
func Profiled(profile string) *Meta {
	return &Meta{Profile: []string{profile}}
}

type Meta struct {
	Profile []string `json:"profile,omitempty"`
}

type Narrative struct {
	Status string `json:"status"`
	Div    string `json:"div"`
}

type Identifier struct {
	System string `json:"system,omitempty"`
	Value  string `json:"value"`
}

type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code"`
	Display string `json:"display,omitempty"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding"`
}

// NewCodeableConcept wraps a single coding.
func NewCodeableConcept(system, code, display string) *CodeableConcept {
	return &CodeableConcept{Coding: []Coding{{System: system, Code: code, Display: display}}}
}

type Reference struct {
	Reference string `json:"reference"`
}

type ContactPoint struct {
	System string `json:"system"`
	Value  string `json:"value"`
}

type Address struct {
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
}

type HumanName struct {
	Family string   `json:"family"`
	Given  []string `json:"given"`
}

type Contact struct {
	Name    HumanName      `json:"name"`
	Telecom []ContactPoint `json:"telecom"`
}

type Quantity struct {
	Value int    `json:"value"`
	Unit  string `json:"unit"`
}

type Range struct {
	Low  Quantity `json:"low"`
	High Quantity `json:"high"`
}

// Extension carries exactly one value[x]; the unset ones are omitted.
type Extension struct {
	URL                  string           `json:"url"`
	ValueString          string           `json:"valueString,omitempty"`
	ValueCode            string           `json:"valueCode,omitempty"`
	ValueInteger         *int             `json:"valueInteger,omitempty"`
	ValueCodeableConcept *CodeableConcept `json:"valueCodeableConcept,omitempty"`
	ValueIdentifier      *Identifier      `json:"valueIdentifier,omitempty"`
	ValueReference       *Reference       `json:"valueReference,omitempty"`
}
