// Package sandbox produces synthetic MIABIS-on-FHIR transaction bundles.
// Generation is reproducible: the same Params, seed included, always yield
// a byte-identical bundle.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/miabis/miabis/internal/domain/miabis"
	"github.com/miabis/miabis/internal/platform/fhir"
	"github.com/miabis/miabis/pkg/fhirmodels"
)

// ErrInvalidCount is returned when a requested count is below one.
var ErrInvalidCount = errors.New("count must be at least 1")

// DefaultMemberLimit caps the number of specimens a collection Group lists
// as members.
const DefaultMemberLimit = 20

// deathProbability is the share of donors that get a deceased date.
const deathProbability = 0.1

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// Params controls the volume and shape of a generated bundle.
type Params struct {
	Donors      int   `json:"donors"`
	Biobanks    int   `json:"biobanks"`
	Collections int   `json:"collections"`
	Seed        int64 `json:"seed"`
	// MemberLimit caps collection membership. Zero means DefaultMemberLimit,
	// a negative value lists every member.
	MemberLimit int `json:"memberLimit,omitempty"`
}

func (p Params) validate() error {
	switch {
	case p.Donors < 1:
		return fmt.Errorf("donors=%d: %w", p.Donors, ErrInvalidCount)
	case p.Biobanks < 1:
		return fmt.Errorf("biobanks=%d: %w", p.Biobanks, ErrInvalidCount)
	case p.Collections < 1:
		return fmt.Errorf("collections=%d: %w", p.Collections, ErrInvalidCount)
	}
	return nil
}

func (p Params) memberLimit() int {
	if p.MemberLimit == 0 {
		return DefaultMemberLimit
	}
	return p.MemberLimit
}

// ---------------------------------------------------------------------------
// Generator
// ---------------------------------------------------------------------------

// Generator owns the random source all choices of one bundle are drawn from.
// It is not safe for concurrent use; create one per bundle.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator returns a generator seeded with seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Generate builds a transaction bundle for p.
func Generate(p Params) (*fhir.Bundle, error) {
	return GenerateContext(context.Background(), p)
}

// GenerateContext is Generate with cancellation, checked once per donor.
func GenerateContext(ctx context.Context, p Params) (*fhir.Bundle, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return NewGenerator(p.Seed).assemble(ctx, p)
}

func (g *Generator) pick(pool []string) string {
	return pool[g.rng.Intn(len(pool))]
}

func (g *Generator) pickCode(pool []miabis.Code) miabis.Code {
	return pool[g.rng.Intn(len(pool))]
}

// between returns a uniform integer in [lo, hi].
func (g *Generator) between(lo, hi int) int {
	return lo + g.rng.Intn(hi-lo+1)
}

// sample returns k distinct elements of pool in random order.
func (g *Generator) sample(pool []string, k int) []string {
	if k > len(pool) {
		k = len(pool)
	}
	cp := append([]string(nil), pool...)
	for i := 0; i < k; i++ {
		j := i + g.rng.Intn(len(cp)-i)
		cp[i], cp[j] = cp[j], cp[i]
	}
	return cp[:k]
}

func (g *Generator) randomDate(minYear, maxYear int) string {
	y := g.between(minYear, maxYear)
	m := g.between(1, 12)
	d := g.between(1, 28) // safe for all months
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d)
}

func (g *Generator) randomDateTime(minYear, maxYear int) string {
	date := g.randomDate(minYear, maxYear)
	return fmt.Sprintf("%sT%02d:00:00+01:00", date, g.between(6, 18))
}

func (g *Generator) contactName() fhirmodels.HumanName {
	given := append(append([]string(nil), miabis.FirstNamesMale...), miabis.FirstNamesFemale...)
	return fhirmodels.HumanName{
		Family: g.pick(miabis.LastNames),
		Given:  []string{g.pick(given)},
	}
}

// countries assigns a country to each biobank: distinct while the list
// lasts, then cycling over the sampled ones.
func (g *Generator) countries(n int) []string {
	used := g.sample(miabis.Countries, n)
	out := make([]string, n)
	for i := range out {
		out[i] = used[i%len(used)]
	}
	return out
}

type member struct {
	specimenID string
	donorID    string
}

// assemble builds every entry in dependency order and concatenates them in
// the fixed section order.
func (g *Generator) assemble(ctx context.Context, p Params) (*fhir.Bundle, error) {
	var orgEntries []fhir.BundleEntry

	// Biobanks and their juristic persons
	countries := g.countries(p.Biobanks)
	jpIDs := make([]string, p.Biobanks)
	bbIDs := make([]string, p.Biobanks)
	for i := 0; i < p.Biobanks; i++ {
		country := countries[i]
		city := g.pick(miabis.Cities(country))
		jpIDs[i] = miabis.JuristicPersonID(country, i)
		bbIDs[i] = miabis.BiobankID(country, i)

		orgEntries = append(orgEntries, miabis.Entry(miabis.BuildJuristicPerson(miabis.JuristicPersonInput{
			ID:      jpIDs[i],
			Name:    city + " University",
			Country: country,
			City:    city,
		})))
		orgEntries = append(orgEntries, miabis.Entry(miabis.BuildBiobank(miabis.BiobankInput{
			ID:               bbIDs[i],
			BBMRIID:          miabis.BBMRIID(country, bbIDs[i]),
			Name:             city + " " + g.pick(miabis.BiobankSuffixes),
			Country:          country,
			City:             city,
			JuristicPersonID: jpIDs[i],
			Capabilities:     g.sample(miabis.InfrastructuralCapabilities, g.between(1, len(miabis.InfrastructuralCapabilities))),
			QualityStandard:  g.pick(miabis.QualityStandards),
			Contact:          g.contactName(),
		})))
	}

	// Network
	orgEntries = append(orgEntries, miabis.Entry(miabis.BuildNetworkOrganization(miabis.NetworkOrganizationInput{
		ID:               miabis.NetworkOrganizationID,
		Name:             "BBMRI-ERIC Network Organization",
		Country:          countries[0],
		JuristicPersonID: jpIDs[0],
		Contact:          g.contactName(),
	})))
	orgEntries = append(orgEntries, miabis.Entry(miabis.BuildNetwork(miabis.NetworkID, miabis.NetworkOrganizationID, bbIDs)))

	// Collection organizations
	colOrgIDs := make([]string, p.Collections)
	colIDs := make([]string, p.Collections)
	colIdentifiers := make([]string, p.Collections)
	for i := 0; i < p.Collections; i++ {
		bb := i % p.Biobanks
		colOrgIDs[i] = miabis.CollectionOrganizationID(i)
		colIDs[i] = miabis.CollectionID(i)
		colIdentifiers[i] = miabis.CollectionIdentifier(bbIDs[bb], colIDs[i])
		orgEntries = append(orgEntries, miabis.Entry(miabis.BuildCollectionOrganization(miabis.CollectionOrganizationInput{
			ID:              colOrgIDs[i],
			Name:            miabis.CollectionNames[i%len(miabis.CollectionNames)],
			Country:         countries[bb],
			BiobankID:       bbIDs[bb],
			Design:          g.pick(miabis.CollectionDesigns),
			DatasetType:     g.pick(miabis.CollectionDatasetTypes),
			AccessCondition: g.pick(miabis.UseAccessConditions),
			Contact:         g.contactName(),
		})))
	}

	// Donors and everything hanging off them
	var donorEntries, conditionEntries, specimenEntries, reportEntries, observationEntries []fhir.BundleEntry
	members := make([][]member, p.Collections)
	sampleTypesSeen := make(map[string]bool)

	for d := 0; d < p.Donors; d++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		donorID := miabis.DonorID(d)
		gender := fhirmodels.GenderMale
		if g.rng.Intn(2) == 1 {
			gender = fhirmodels.GenderFemale
		}
		birth := g.randomDate(1935, 2000)
		var deceased string
		if g.rng.Float64() < deathProbability {
			deceased = g.randomDate(2020, 2025)
		}
		donorEntries = append(donorEntries, miabis.Entry(miabis.BuildDonor(miabis.DonorInput{
			ID:           donorID,
			Gender:       gender,
			BirthDate:    birth,
			DeceasedDate: deceased,
			DatasetTypes: g.sample(miabis.DatasetTypes, g.between(1, 3)),
		})))

		diagnosis := g.pickCode(miabis.ICD10Codes)
		conditionEntries = append(conditionEntries, miabis.Entry(miabis.BuildCondition(miabis.ConditionID(d), donorID, diagnosis)))
		bodySite := miabis.BodySiteFor(diagnosis.Code)

		col := d % p.Collections
		n := g.between(1, 3)
		specimenIDs := make([]string, 0, n)
		for s := 0; s < n; s++ {
			specimenID := miabis.SpecimenID(d, s)
			sampleType := g.pickCode(miabis.SampleTypes)
			sampleTypesSeen[sampleType.Code] = true
			specimenEntries = append(specimenEntries, miabis.Entry(miabis.BuildSpecimen(miabis.SpecimenInput{
				ID:                   specimenID,
				DonorID:              donorID,
				SampleType:           sampleType,
				BodySite:             bodySite,
				CollectedAt:          g.randomDateTime(2018, 2025),
				StorageTemperature:   miabis.StorageTemperatureFor(sampleType.Code),
				CollectionIdentifier: colIdentifiers[col],
			})))
			specimenIDs = append(specimenIDs, specimenID)
			members[col] = append(members[col], member{specimenID: specimenID, donorID: donorID})
		}

		effective := g.randomDate(2018, 2025)
		reportEntries = append(reportEntries, miabis.Entry(miabis.BuildDiagnosticReport(
			miabis.DiagnosticReportID(d), donorID, specimenIDs, diagnosis, effective)))

		biobankID := bbIDs[d%p.Biobanks]
		for s, specimenID := range specimenIDs {
			observationEntries = append(observationEntries, miabis.Entry(miabis.BuildObservation(miabis.ObservationInput{
				ID:         miabis.ObservationID(d, s),
				DonorID:    donorID,
				SpecimenID: specimenID,
				BiobankID:  biobankID,
				Diagnosis:  diagnosis,
				Effective:  effective,
			})))
		}
	}

	// Collection groups, backfilled with their members
	materialCount := len(sampleTypesSeen)
	if materialCount > 2 {
		materialCount = 2
	}
	storageCodes := make([]string, len(miabis.CollectionStorageTemperatures))
	for i, t := range miabis.CollectionStorageTemperatures {
		storageCodes[i] = t.Code
	}
	limit := p.memberLimit()
	groupEntries := make([]fhir.BundleEntry, 0, p.Collections)
	for i := 0; i < p.Collections; i++ {
		listed := members[i]
		if limit > 0 && len(listed) > limit {
			listed = listed[:limit]
		}
		specimenIDs := make([]string, len(listed))
		donors := make(map[string]bool)
		for j, m := range listed {
			specimenIDs[j] = m.specimenID
			donors[m.donorID] = true
		}
		subjects := len(donors)
		if subjects < 1 {
			subjects = 1
		}
		groupEntries = append(groupEntries, miabis.Entry(miabis.BuildCollection(miabis.CollectionInput{
			ID:                       colIDs[i],
			CollectionOrganizationID: colOrgIDs[i],
			SpecimenIDs:              specimenIDs,
			NumberOfSubjects:         subjects,
			InclusionCriterion:       g.pick(miabis.InclusionCriteria),
			MaxAge:                   g.between(75, 95),
			StorageTemperatures:      g.sample(storageCodes, 2),
			MaterialTypes:            g.sample(miabis.CollectionSampleTypes, materialCount),
		})))
	}

	total := len(orgEntries) + len(groupEntries) + len(donorEntries) + len(conditionEntries) +
		len(specimenEntries) + len(reportEntries) + len(observationEntries)
	entries := make([]fhir.BundleEntry, 0, total)
	for _, section := range [][]fhir.BundleEntry{
		orgEntries, groupEntries, donorEntries, conditionEntries,
		specimenEntries, reportEntries, observationEntries,
	} {
		entries = append(entries, section...)
	}

	id, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		return nil, fmt.Errorf("bundle id: %w", err)
	}
	return fhir.NewTransactionBundle(id.String(), entries), nil
}
