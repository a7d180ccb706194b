package miabis

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/miabis/miabis/pkg/fhirmodels"
)

// idNamespace is the UUID namespace for entry identities. The value is the
// RFC 4122 DNS namespace; keeping it fixed keeps fullUrls stable across
// releases, so re-imports replace rather than duplicate.
var idNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// DeriveUUID returns the name-based (v5) UUID of ResourceType/id.
// It is a pure function of its inputs.
func DeriveUUID(resourceType, id string) uuid.UUID {
	return uuid.NewSHA1(idNamespace, []byte(resourceType+"/"+id))
}

// FullURL returns the urn:uuid fullUrl of ResourceType/id.
func FullURL(resourceType, id string) string {
	return "urn:uuid:" + DeriveUUID(resourceType, id).String()
}

// Ref returns a reference that resolves to the entry for ResourceType/id.
func Ref(resourceType, id string) fhirmodels.Reference {
	return fhirmodels.Reference{Reference: FullURL(resourceType, id)}
}

// Fixed identifiers of the singleton network resources.
const (
	NetworkOrganizationID = "network-org-001"
	NetworkID             = "network-001"
)

// Logical ids. Indexes are zero-based; rendered ids are one-based.

// JuristicPersonID is the id of the i-th juristic person.
func JuristicPersonID(country string, i int) string {
	return fmt.Sprintf("juristic-person-%s-%03d", country, i+1)
}

// BiobankID is the id of the i-th biobank.
func BiobankID(country string, i int) string {
	return fmt.Sprintf("biobank-%s-%03d", country, i+1)
}

// BBMRIID is the directory identifier of a biobank, e.g. CZ_BIOBANK-CZ-001.
func BBMRIID(country, biobankID string) string {
	return country + "_" + strings.ToUpper(biobankID)
}

// CollectionOrganizationID is the id of the i-th collection organization.
func CollectionOrganizationID(i int) string {
	return fmt.Sprintf("col-org-%03d", i+1)
}

// CollectionID is the id of the i-th collection Group.
func CollectionID(i int) string {
	return fmt.Sprintf("collection-%03d", i+1)
}

// CollectionIdentifier is the directory identifier specimens use to tag
// their collection.
func CollectionIdentifier(biobankID, collectionID string) string {
	return fmt.Sprintf("bbmri-eric:ID:%s:collection:%s", biobankID, collectionID)
}

// DonorID is the Patient id of donor d.
func DonorID(d int) string {
	return fmt.Sprintf("donor-%06d", d+1)
}

// ConditionID is the Condition id of donor d.
func ConditionID(d int) string {
	return fmt.Sprintf("condition-%06d", d+1)
}

// SpecimenID is the id of specimen s of donor d.
func SpecimenID(d, s int) string {
	return fmt.Sprintf("sample-%06d-%02d", d+1, s+1)
}

// DiagnosticReportID is the report id of donor d.
func DiagnosticReportID(d int) string {
	return fmt.Sprintf("diagreport-%06d", d+1)
}

// ObservationID is the Observation id of specimen s of donor d.
func ObservationID(d, s int) string {
	return fmt.Sprintf("obs-%06d-%02d", d+1, s+1)
}
