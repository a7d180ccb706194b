package miabis

import (
	"fmt"
	"strings"

	"github.com/miabis/miabis/internal/platform/fhir"
	"github.com/miabis/miabis/pkg/fhirmodels"
)

// ---------------------------------------------------------------------------
// Resource shapes
// ---------------------------------------------------------------------------

type Organization struct {
	fhirmodels.ResourceBase
	Extension  []fhirmodels.Extension    `json:"extension,omitempty"`
	Identifier []fhirmodels.Identifier   `json:"identifier"`
	Active     *bool                     `json:"active,omitempty"`
	Name       string                    `json:"name"`
	Alias      []string                  `json:"alias,omitempty"`
	Telecom    []fhirmodels.ContactPoint `json:"telecom,omitempty"`
	Address    []fhirmodels.Address      `json:"address,omitempty"`
	Contact    []fhirmodels.Contact      `json:"contact,omitempty"`
	PartOf     *fhirmodels.Reference     `json:"partOf,omitempty"`
}

type Characteristic struct {
	Code                 fhirmodels.CodeableConcept  `json:"code"`
	ValueCodeableConcept *fhirmodels.CodeableConcept `json:"valueCodeableConcept,omitempty"`
	ValueRange           *fhirmodels.Range           `json:"valueRange,omitempty"`
	Exclude              bool                        `json:"exclude"`
}

type Group struct {
	fhirmodels.ResourceBase
	Extension      []fhirmodels.Extension  `json:"extension,omitempty"`
	Identifier     []fhirmodels.Identifier `json:"identifier"`
	Active         bool                    `json:"active"`
	Type           string                  `json:"type"`
	Actual         bool                    `json:"actual"`
	Name           string                  `json:"name"`
	ManagingEntity fhirmodels.Reference    `json:"managingEntity"`
	Characteristic []Characteristic        `json:"characteristic,omitempty"`
}

type Patient struct {
	fhirmodels.ResourceBase
	Extension        []fhirmodels.Extension  `json:"extension,omitempty"`
	Identifier       []fhirmodels.Identifier `json:"identifier"`
	Gender           string                  `json:"gender"`
	BirthDate        string                  `json:"birthDate"`
	DeceasedDateTime string                  `json:"deceasedDateTime,omitempty"`
}

type Condition struct {
	fhirmodels.ResourceBase
	Code    fhirmodels.CodeableConcept `json:"code"`
	Subject fhirmodels.Reference       `json:"subject"`
}

type SpecimenCollection struct {
	CollectedDateTime string                     `json:"collectedDateTime"`
	BodySite          fhirmodels.CodeableConcept `json:"bodySite"`
}

type SpecimenProcessing struct {
	Extension   []fhirmodels.Extension `json:"extension,omitempty"`
	Description string                 `json:"description"`
}

type Specimen struct {
	fhirmodels.ResourceBase
	Extension  []fhirmodels.Extension     `json:"extension,omitempty"`
	Identifier []fhirmodels.Identifier    `json:"identifier"`
	Type       fhirmodels.CodeableConcept `json:"type"`
	Subject    fhirmodels.Reference       `json:"subject"`
	Collection SpecimenCollection         `json:"collection"`
	Processing []SpecimenProcessing       `json:"processing"`
}

type DiagnosticReport struct {
	fhirmodels.ResourceBase
	Status            string                       `json:"status"`
	Code              fhirmodels.CodeableConcept   `json:"code"`
	Subject           fhirmodels.Reference         `json:"subject"`
	EffectiveDateTime string                       `json:"effectiveDateTime"`
	Specimen          []fhirmodels.Reference       `json:"specimen"`
	Conclusion        string                       `json:"conclusion"`
	ConclusionCode    []fhirmodels.CodeableConcept `json:"conclusionCode"`
}

type Observation struct {
	fhirmodels.ResourceBase
	Status               string                     `json:"status"`
	Code                 fhirmodels.CodeableConcept `json:"code"`
	Subject              fhirmodels.Reference       `json:"subject"`
	Specimen             fhirmodels.Reference       `json:"specimen"`
	EffectiveDateTime    string                     `json:"effectiveDateTime"`
	ValueCodeableConcept fhirmodels.CodeableConcept `json:"valueCodeableConcept"`
	Performer            []fhirmodels.Reference     `json:"performer"`
}

// Entry wraps r in a create-or-replace bundle entry whose fullUrl is the
// derived identity of r.
func Entry(r fhirmodels.Resource) fhir.BundleEntry {
	return fhir.NewPutEntry(FullURL(r.GetResourceType(), r.GetID()), r)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func base(resourceType, id, profile, summary string) fhirmodels.ResourceBase {
	b := fhirmodels.ResourceBase{
		ResourceType: resourceType,
		ID:           id,
		Text:         fhir.GeneratedNarrative(resourceType, id, summary),
	}
	if profile != "" {
		b.Meta = fhirmodels.Profiled(StructureDefinition(profile))
	}
	return b
}

func bbmriIdentifier(value string) []fhirmodels.Identifier {
	return []fhirmodels.Identifier{{System: SystemBBMRI, Value: "bbmri-eric:ID:" + value}}
}

func codedExtension(extension, codeSystem, code string) fhirmodels.Extension {
	return fhirmodels.Extension{
		URL:                  StructureDefinition(extension),
		ValueCodeableConcept: fhirmodels.NewCodeableConcept(CodeSystem(codeSystem), code, ""),
	}
}

func descriptionExtension(text string) fhirmodels.Extension {
	return fhirmodels.Extension{
		URL:         StructureDefinition("miabis-organization-description-extension"),
		ValueString: text,
	}
}

func memberExtension(ref fhirmodels.Reference) fhirmodels.Extension {
	r := ref
	return fhirmodels.Extension{URL: MemberEntityExtension, ValueReference: &r}
}

func contact(name fhirmodels.HumanName, email string) []fhirmodels.Contact {
	return []fhirmodels.Contact{{
		Name:    name,
		Telecom: []fhirmodels.ContactPoint{{System: "email", Value: email}},
	}}
}

func boolPtr(b bool) *bool { return &b }

// truncateRunes keeps the first n characters of s.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func icd10(c Code) fhirmodels.CodeableConcept {
	return *fhirmodels.NewCodeableConcept(SystemICD10, c.Code, c.Display)
}

// ---------------------------------------------------------------------------
// Organizations and networks
// ---------------------------------------------------------------------------

// JuristicPersonInput describes the legal owner of a biobank.
type JuristicPersonInput struct {
	ID      string
	Name    string
	Country string
	City    string
}

// BuildJuristicPerson builds the Organization legally owning a biobank.
func BuildJuristicPerson(in JuristicPersonInput) *Organization {
	return &Organization{
		ResourceBase: base("Organization", in.ID, "", fmt.Sprintf("%s, %s, %s", in.Name, in.City, in.Country)),
		Identifier:   bbmriIdentifier(in.ID),
		Name:         in.Name,
		Address:      []fhirmodels.Address{{City: in.City, Country: in.Country}},
	}
}

// BiobankInput describes one biobank. Capabilities must be non-empty.
type BiobankInput struct {
	ID               string
	BBMRIID          string
	Name             string
	Country          string
	City             string
	JuristicPersonID string
	Capabilities     []string
	QualityStandard  string
	Contact          fhirmodels.HumanName
}

// BuildBiobank builds a MIABIS biobank Organization part of its juristic person.
func BuildBiobank(in BiobankInput) *Organization {
	partOf := Ref("Organization", in.JuristicPersonID)
	ext := make([]fhirmodels.Extension, 0, len(in.Capabilities)+2)
	for _, c := range in.Capabilities {
		ext = append(ext, codedExtension("miabis-infrastructural-capabilities-extension", "miabis-infrastructural-capabilities-cs", c))
	}
	ext = append(ext,
		fhirmodels.Extension{
			URL:         StructureDefinition("miabis-quality-management-standard-extension"),
			ValueString: in.QualityStandard,
		},
		descriptionExtension(in.Name+" is a biobank facility providing high-quality biospecimens and data for research."),
	)
	return &Organization{
		ResourceBase: base("Organization", in.ID, "miabis-biobank",
			fmt.Sprintf("%s, %s, %s. BBMRI-ERIC ID: %s.", in.Name, in.City, in.Country, in.BBMRIID)),
		Extension:  ext,
		Identifier: bbmriIdentifier(in.BBMRIID),
		Name:       in.Name,
		Alias:      []string{strings.ToUpper(in.ID)},
		Telecom:    []fhirmodels.ContactPoint{{System: "url", Value: "https://example.org/" + in.ID}},
		Address:    []fhirmodels.Address{{City: in.City, Country: in.Country}},
		Contact:    contact(in.Contact, fmt.Sprintf("contact@%s.example.org", in.ID)),
		PartOf:     &partOf,
	}
}

// NetworkOrganizationInput describes the body coordinating the network.
type NetworkOrganizationInput struct {
	ID               string
	Name             string
	Country          string
	JuristicPersonID string
	Contact          fhirmodels.HumanName
}

// BuildNetworkOrganization builds the Organization managing the network.
func BuildNetworkOrganization(in NetworkOrganizationInput) *Organization {
	partOf := Ref("Organization", in.JuristicPersonID)
	return &Organization{
		ResourceBase: base("Organization", in.ID, "miabis-network-organization", in.Name),
		Extension: []fhirmodels.Extension{
			descriptionExtension(in.Name + " coordinates biobank collaboration across multiple institutions."),
		},
		Identifier: bbmriIdentifier(in.ID),
		Name:       in.Name,
		Telecom:    []fhirmodels.ContactPoint{{System: "url", Value: "https://example.org/network"}},
		Address:    []fhirmodels.Address{{Country: in.Country}},
		Contact:    contact(in.Contact, "network@example.org"),
		PartOf:     &partOf,
	}
}

// BuildNetwork builds the network Group listing every biobank as a member.
func BuildNetwork(id, networkOrganizationID string, biobankIDs []string) *Group {
	ext := make([]fhirmodels.Extension, 0, len(biobankIDs))
	for _, bb := range biobankIDs {
		ext = append(ext, memberExtension(Ref("Organization", bb)))
	}
	return &Group{
		ResourceBase:   base("Group", id, "miabis-network", fmt.Sprintf("Network with %d biobanks.", len(biobankIDs))),
		Extension:      ext,
		Identifier:     bbmriIdentifier(id),
		Active:         true,
		Type:           "person",
		Actual:         false,
		Name:           "BBMRI-ERIC Network",
		ManagingEntity: Ref("Organization", networkOrganizationID),
	}
}

// CollectionOrganizationInput describes the administrative unit of a collection.
type CollectionOrganizationInput struct {
	ID              string
	Name            string
	Country         string
	BiobankID       string
	Design          string
	DatasetType     string
	AccessCondition string
	Contact         fhirmodels.HumanName
}

// BuildCollectionOrganization builds the Organization administering a collection.
func BuildCollectionOrganization(in CollectionOrganizationInput) *Organization {
	partOf := Ref("Organization", in.BiobankID)
	alias := strings.ToUpper(in.ID)
	if len(alias) > 10 {
		alias = alias[:10]
	}
	return &Organization{
		ResourceBase: base("Organization", in.ID, "miabis-collection-organization",
			fmt.Sprintf("%s, part of %s.", in.Name, partOf.Reference)),
		Extension: []fhirmodels.Extension{
			descriptionExtension("Collection of biospecimens: " + in.Name + "."),
			codedExtension("miabis-collection-design-extension", "miabis-collection-design-cs", in.Design),
			codedExtension("miabis-sample-source-extension", "miabis-sample-source-cs", "Human"),
			codedExtension("miabis-collection-dataset-type-extension", "miabis-collection-dataset-typeCS", in.DatasetType),
			codedExtension("miabis-use-and-access-conditions-extension", "miabis-use-and-access-conditions-cs", in.AccessCondition),
		},
		Identifier: bbmriIdentifier(in.ID),
		Active:     boolPtr(true),
		Name:       in.Name,
		Alias:      []string{alias},
		Telecom:    []fhirmodels.ContactPoint{{System: "url", Value: "https://example.org/" + in.ID}},
		Address:    []fhirmodels.Address{{Country: in.Country}},
		Contact:    contact(in.Contact, fmt.Sprintf("pi@%s.example.org", in.ID)),
		PartOf:     &partOf,
	}
}

// CollectionInput describes the collection Group. SpecimenIDs must already
// be truncated to the member limit.
type CollectionInput struct {
	ID                       string
	CollectionOrganizationID string
	SpecimenIDs              []string
	NumberOfSubjects         int
	InclusionCriterion       string
	MaxAge                   int
	StorageTemperatures      []string
	MaterialTypes            []string
}

func characteristic(code string) fhirmodels.CodeableConcept {
	return *fhirmodels.NewCodeableConcept(CodeSystem("miabis-characteristicCS"), code, "")
}

// BuildCollection builds the collection Group with its specimen members.
func BuildCollection(in CollectionInput) *Group {
	chars := []Characteristic{
		{
			Code: characteristic("Age"),
			ValueRange: &fhirmodels.Range{
				Low:  fhirmodels.Quantity{Value: 18, Unit: "years"},
				High: fhirmodels.Quantity{Value: in.MaxAge, Unit: "years"},
			},
		},
		{
			Code:                 characteristic("Sex"),
			ValueCodeableConcept: fhirmodels.NewCodeableConcept(SystemGender, fhirmodels.GenderMale, ""),
		},
		{
			Code:                 characteristic("Sex"),
			ValueCodeableConcept: fhirmodels.NewCodeableConcept(SystemGender, fhirmodels.GenderFemale, ""),
		},
	}
	for _, st := range in.StorageTemperatures {
		chars = append(chars, Characteristic{
			Code:                 characteristic("StorageTemperature"),
			ValueCodeableConcept: fhirmodels.NewCodeableConcept(CodeSystem("miabis-storage-temperature-cs"), st, StorageDisplay(st)),
		})
	}
	for _, mt := range in.MaterialTypes {
		chars = append(chars, Characteristic{
			Code:                 characteristic("MaterialType"),
			ValueCodeableConcept: fhirmodels.NewCodeableConcept(CodeSystem("miabis-collection-sample-type-cs"), mt, ""),
		})
	}
	chars = append(chars, Characteristic{
		Code:                 characteristic("Diagnosis"),
		ValueCodeableConcept: fhirmodels.NewCodeableConcept(SystemICD10, "C00-C97", "Malignant neoplasms"),
	})

	subjects := in.NumberOfSubjects
	ext := []fhirmodels.Extension{
		{URL: StructureDefinition("miabis-number-of-subjects-extension"), ValueInteger: &subjects},
		codedExtension("miabis-inclusion-criteria-extension", "miabis-inclusion-criteria-cs", in.InclusionCriterion),
	}
	for _, s := range in.SpecimenIDs {
		ext = append(ext, memberExtension(Ref("Specimen", s)))
	}

	return &Group{
		ResourceBase:   base("Group", in.ID, "miabis-collection", fmt.Sprintf("Collection with %d subjects.", subjects)),
		Extension:      ext,
		Identifier:     bbmriIdentifier(in.ID),
		Active:         true,
		Type:           "person",
		Actual:         true,
		Name:           titleCase(strings.ReplaceAll(in.ID, "-", " ")),
		ManagingEntity: Ref("Organization", in.CollectionOrganizationID),
		Characteristic: chars,
	}
}

// titleCase upper-cases the first letter of each space-separated word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// ---------------------------------------------------------------------------
// Donor-level resources
// ---------------------------------------------------------------------------

// DonorInput describes a sample donor. DeceasedDate is empty for living donors.
type DonorInput struct {
	ID           string
	Gender       string
	BirthDate    string
	DeceasedDate string
	DatasetTypes []string
}

// BuildDonor builds a MIABIS sample donor Patient.
func BuildDonor(in DonorInput) *Patient {
	ext := make([]fhirmodels.Extension, 0, len(in.DatasetTypes))
	for _, dt := range in.DatasetTypes {
		ext = append(ext, fhirmodels.Extension{URL: StructureDefinition("miabis-dataset-type-extension"), ValueCode: dt})
	}
	summary := fmt.Sprintf("%s, born %s. Datasets: %s.", titleCase(in.Gender), in.BirthDate, strings.Join(in.DatasetTypes, ", "))
	return &Patient{
		ResourceBase:     base("Patient", in.ID, "miabis-sample-donor", summary),
		Extension:        ext,
		Identifier:       []fhirmodels.Identifier{{System: SystemDonorIDs, Value: strings.ToUpper(in.ID)}},
		Gender:           in.Gender,
		BirthDate:        in.BirthDate,
		DeceasedDateTime: in.DeceasedDate,
	}
}

// BuildCondition builds the ICD-10 diagnosis Condition of a donor.
func BuildCondition(id, donorID string, diagnosis Code) *Condition {
	subject := Ref("Patient", donorID)
	return &Condition{
		ResourceBase: base("Condition", id, "miabis-condition",
			fmt.Sprintf("ICD-10 %s - %s. Subject: %s.", diagnosis.Code, diagnosis.Display, subject.Reference)),
		Code:    icd10(diagnosis),
		Subject: subject,
	}
}

// SpecimenInput describes one sample. StorageTemperature is expected to be
// StorageTemperatureFor(SampleType.Code).
type SpecimenInput struct {
	ID                   string
	DonorID              string
	SampleType           Code
	BodySite             Code
	CollectedAt          string
	StorageTemperature   string
	CollectionIdentifier string
}

// BuildSpecimen builds a MIABIS sample tagged with its collection.
func BuildSpecimen(in SpecimenInput) *Specimen {
	subject := Ref("Patient", in.DonorID)
	storage := StorageDisplay(in.StorageTemperature)
	summary := fmt.Sprintf("%s, %s, from %s. Storage: %s.", in.SampleType.Display, in.BodySite.Display, subject.Reference, storage)
	return &Specimen{
		ResourceBase: base("Specimen", in.ID, "miabis-sample", summary),
		Extension: []fhirmodels.Extension{{
			URL:             StructureDefinition("miabis-sample-collection-extension"),
			ValueIdentifier: &fhirmodels.Identifier{System: SystemDirectory, Value: in.CollectionIdentifier},
		}},
		Identifier: []fhirmodels.Identifier{{System: SystemSampleIDs, Value: strings.ToUpper(in.ID)}},
		Type:       *fhirmodels.NewCodeableConcept(CodeSystem("miabis-detailed-samply-type-cs"), in.SampleType.Code, in.SampleType.Display),
		Subject:    subject,
		Collection: SpecimenCollection{
			CollectedDateTime: in.CollectedAt,
			BodySite:          *fhirmodels.NewCodeableConcept(SystemSNOMED, in.BodySite.Code, in.BodySite.Display),
		},
		Processing: []SpecimenProcessing{{
			Description: "Processed and stored at " + storage,
			Extension: []fhirmodels.Extension{{
				URL:                  StructureDefinition("miabis-sample-storage-temperature-extension"),
				ValueCodeableConcept: fhirmodels.NewCodeableConcept(CodeSystem("miabis-storage-temperature-cs"), in.StorageTemperature, storage),
			}},
		}},
	}
}

// PathologyConclusion is the free-text conclusion of a diagnostic report.
func PathologyConclusion(diagnosis Code) string {
	return fmt.Sprintf("Histopathological examination consistent with %s (%s).", diagnosis.Display, diagnosis.Code)
}

// BuildDiagnosticReport builds the pathology report over a donor's specimens.
func BuildDiagnosticReport(id, donorID string, specimenIDs []string, diagnosis Code, effective string) *DiagnosticReport {
	specimens := make([]fhirmodels.Reference, 0, len(specimenIDs))
	for _, s := range specimenIDs {
		specimens = append(specimens, Ref("Specimen", s))
	}
	conclusion := PathologyConclusion(diagnosis)
	return &DiagnosticReport{
		ResourceBase:      base("DiagnosticReport", id, "", fmt.Sprintf("Pathology report. %s.", truncateRunes(conclusion, 80))),
		Status:            fhirmodels.StatusFinal,
		Code:              *fhirmodels.NewCodeableConcept(SystemLOINC, "22637-3", "Pathology report final diagnosis Narrative"),
		Subject:           Ref("Patient", donorID),
		EffectiveDateTime: effective,
		Specimen:          specimens,
		Conclusion:        conclusion,
		ConclusionCode:    []fhirmodels.CodeableConcept{icd10(diagnosis)},
	}
}

// ObservationInput describes the per-specimen diagnosis record.
type ObservationInput struct {
	ID         string
	DonorID    string
	SpecimenID string
	BiobankID  string
	Diagnosis  Code
	Effective  string
}

// BuildObservation builds the diagnosis Observation of one specimen.
func BuildObservation(in ObservationInput) *Observation {
	specimen := Ref("Specimen", in.SpecimenID)
	return &Observation{
		ResourceBase: base("Observation", in.ID, "miabis-observation",
			fmt.Sprintf("Diagnosis for %s: %s.", specimen.Reference, in.Diagnosis.Code)),
		Status:               fhirmodels.StatusFinal,
		Code:                 *fhirmodels.NewCodeableConcept(SystemLOINC, "52797-8", ""),
		Subject:              Ref("Patient", in.DonorID),
		Specimen:             specimen,
		EffectiveDateTime:    in.Effective,
		ValueCodeableConcept: icd10(in.Diagnosis),
		Performer:            []fhirmodels.Reference{Ref("Organization", in.BiobankID)},
	}
}
