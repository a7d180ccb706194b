// Package miabis holds the MIABIS-on-FHIR vocabularies, identifier
// derivation, and builders for each profiled resource. Builders are pure:
// every random choice is made by the caller and passed in.
package miabis

import "strings"

// BaseURL is the canonical base of the MIABIS on FHIR implementation guide.
const BaseURL = "https://fhir.bbmri-eric.eu"

// External code systems.
const (
	SystemICD10     = "http://hl7.org/fhir/sid/icd-10"
	SystemSNOMED    = "http://snomed.info/sct"
	SystemLOINC     = "http://loinc.org"
	SystemGender    = "http://hl7.org/fhir/administrative-gender"
	SystemBBMRI     = "http://www.bbmri-eric.eu/"
	SystemDirectory = "https://directory.bbmri-eric.eu/"
	SystemDonorIDs  = "http://example.org/biobank/donor-ids"
	SystemSampleIDs = "http://example.org/biobank/sample-ids"

	// MemberEntityExtension is the R5 cross-version extension used to list
	// Group members that are not Patients.
	MemberEntityExtension = "http://hl7.org/fhir/5.0/StructureDefinition/extension-Group.member.entity"
)

// StructureDefinition returns the canonical URL of a MIABIS profile or extension.
func StructureDefinition(name string) string {
	return BaseURL + "/StructureDefinition/" + name
}

// CodeSystem returns the canonical URL of a MIABIS code system.
func CodeSystem(name string) string {
	return BaseURL + "/CodeSystem/" + name
}

// Code is a code with its display text.
type Code struct {
	Code    string
	Display string
}

// ICD10Codes are the diagnoses assigned to donors.
var ICD10Codes = []Code{
	{"C34.1", "Upper lobe, bronchus or lung"}, {"C34.2", "Middle lobe, bronchus or lung"},
	{"C34.3", "Lower lobe, bronchus or lung"}, {"C50.9", "Breast, unspecified"},
	{"C50.4", "Upper-outer quadrant of breast"}, {"C18.0", "Caecum"},
	{"C18.2", "Ascending colon"}, {"C18.7", "Sigmoid colon"},
	{"C61", "Malignant neoplasm of prostate"}, {"C25.0", "Head of pancreas"},
	{"C56", "Malignant neoplasm of ovary"}, {"C64", "Malignant neoplasm of kidney, except renal pelvis"},
	{"C16.0", "Cardia"}, {"C67.9", "Bladder, unspecified"}, {"C71.9", "Brain, unspecified"},
	{"C73", "Malignant neoplasm of thyroid gland"}, {"C43.5", "Malignant melanoma of trunk"},
	{"C22.0", "Liver cell carcinoma"}, {"C15.9", "Oesophagus, unspecified"},
	{"C20", "Malignant neoplasm of rectum"},
}

// SampleTypes is miabis-detailed-samply-type-cs (specimen level).
var SampleTypes = []Code{
	{"TissueFreshFrozen", "Tissue (fresh frozen)"}, {"TissueFixed", "Tissue (fixed)"},
	{"WholeBlood", "Whole blood"}, {"Plasma", "Plasma"}, {"Serum", "Serum"},
	{"DNA", "DNA"}, {"RNA", "RNA"}, {"BuffyCoat", "Buffy coat"},
	{"Urine", "Urine"}, {"Saliva", "Saliva"}, {"CancerCellLine", "Cancer cell lines"},
}

// CollectionSampleTypes is miabis-collection-sample-type-cs.
var CollectionSampleTypes = []string{
	"TissueFrozen", "TissueFFPE", "Blood", "Plasma", "Serum", "DNA",
	"RNA", "BuffyCoat", "Urine", "Saliva", "CancerCellLine",
}

// StorageTemperatures is miabis-storage-temperature-cs. The minus signs
// are literal parts of the codes.
var StorageTemperatures = []Code{
	{"RT", "Room temperature"},
	{"2to10", "between 2 and 10 degrees Celsius"},
	{"-18to-35", "between -18 and -35 degrees Celsius"},
	{"-60to-85", "between -60 and -85 degrees Celsius"},
	{"LN", "liquid nitrogen, -150 to -196 degrees Celsius"},
	{"Other", "any other temperature or long time storage information"},
}

// CollectionStorageTemperatures are the temperatures a collection may
// advertise: every code except Other.
var CollectionStorageTemperatures = StorageTemperatures[:5]

// StorageOther is the fallback storage temperature code.
const StorageOther = "Other"

var sampleStorage = map[string]string{
	"TissueFreshFrozen": "LN", "TissueFixed": "RT", "WholeBlood": "-18to-35",
	"Plasma": "-60to-85", "Serum": "-60to-85", "DNA": "-18to-35",
	"RNA": "-60to-85", "BuffyCoat": "-60to-85", "Urine": "-18to-35",
	"Saliva": "2to10", "CancerCellLine": "LN",
}

// StorageTemperatureFor returns the fixed storage temperature for a sample
// type code, or Other for unknown types.
func StorageTemperatureFor(sampleType string) string {
	if t, ok := sampleStorage[sampleType]; ok {
		return t
	}
	return StorageOther
}

// StorageDisplay returns the display text of a storage temperature code.
func StorageDisplay(code string) string {
	for _, t := range StorageTemperatures {
		if t.Code == code {
			return t.Display
		}
	}
	return code
}

// BodySites are SNOMED CT body structures.
var BodySites = []Code{
	{"39607008", "Lung structure"}, {"76752008", "Breast structure"},
	{"71854001", "Colon structure"}, {"41216001", "Prostatic structure"},
	{"15776009", "Pancreatic structure"}, {"15497006", "Ovarian structure"},
	{"64033007", "Kidney structure"}, {"69695003", "Stomach structure"},
	{"89837001", "Urinary bladder structure"}, {"12738006", "Brain structure"},
	{"69748006", "Thyroid structure"}, {"39937001", "Skin structure"},
	{"10200004", "Liver structure"}, {"32849002", "Oesophageal structure"},
	{"34402009", "Rectum structure"},
}

// DefaultBodySite is used when a diagnosis prefix has no mapping.
const DefaultBodySite = "39607008"

var icd10BodySite = map[string]string{
	"C34": "39607008", "C50": "76752008", "C18": "71854001", "C20": "34402009",
	"C61": "41216001", "C25": "15776009", "C56": "15497006", "C64": "64033007",
	"C16": "69695003", "C67": "89837001", "C71": "12738006", "C73": "69748006",
	"C43": "39937001", "C22": "10200004", "C15": "32849002",
}

// BodySiteFor maps an ICD-10 code to a body site by its category prefix
// (the part before the dot).
func BodySiteFor(icd10 string) Code {
	prefix, _, _ := strings.Cut(icd10, ".")
	code, ok := icd10BodySite[prefix]
	if !ok {
		code = DefaultBodySite
	}
	for _, bs := range BodySites {
		if bs.Code == code {
			return bs
		}
	}
	return Code{Code: code, Display: "Unknown"}
}

// DatasetTypes is miabis-dataset-type-CS (donor level).
var DatasetTypes = []string{
	"Lifestyle", "BiologicalSamples", "SurveyData", "ImagingData",
	"MedicalRecords", "NationalRegistries", "GenealogicalRecords",
	"PhysioBiochemicalData", "Other",
}

// CollectionDatasetTypes is miabis-collection-dataset-typeCS. "Lifesyle" is
// spelled as in the published code system.
var CollectionDatasetTypes = []string{
	"Lifesyle", "Environmental", "Physiological", "Biochemical",
	"Clinical", "Psychological", "Genomic", "Proteomic",
	"Metabolomic", "BodyImage", "WholeSlideImage", "PhotoImage",
	"GenealogicalRecords", "Other",
}

var CollectionDesigns = []string{
	"CaseControl", "CrossSectional", "LongitudinalCohort",
	"DiseaseSpecificCohort", "PopulationBasedCohort", "TwinStudy",
	"QualityControl", "BirthCohort", "RareDiseaseCollection", "Other",
}

var UseAccessConditions = []string{
	"CommercialUse", "Collaboration", "SpecificResearchUse",
	"GeneticDataUse", "OutsideEUAccess", "Xenograft", "OtherAnimalWork", "Other",
}

var InclusionCriteria = []string{
	"HealthStatus", "HospitalPatient", "UseOfMedication", "Gravidity",
	"AgeGroup", "FamilialStatus", "Sex", "CountryOfResidence",
	"EthnicOrigin", "PopulationRepresentative", "Lifestyle", "Other",
}

// InfrastructuralCapabilities is the full miabis-infrastructural-capabilities-cs.
var InfrastructuralCapabilities = []string{"SampleStorage", "DataStorage", "Biosafety"}

var QualityStandards = []string{"ISO 20387", "ISO 9001", "ISO 15189", "OECD Guidelines"}

var (
	FirstNamesMale   = []string{"Jan", "Martin", "Petr", "Milan", "Thomas", "Hans", "Erik", "Lars", "Andrei", "Marco"}
	FirstNamesFemale = []string{"Eva", "Jana", "Maria", "Petra", "Anna", "Helga", "Ingrid", "Sofia", "Elena", "Lucia"}
	LastNames        = []string{
		"Novak", "Svoboda", "Mueller", "Schmidt", "Jensen", "Larsson", "Popov", "Rossi", "Silva", "Patel",
		"Horvat", "Kowalski", "Virtanen", "Dupont", "Garcia", "Fernandez", "Bauer", "Fischer", "Weber", "Wagner",
	}
)

// Countries are ISO 3166 alpha-2 codes in sampling order.
var Countries = []string{"CZ", "DE", "AT", "SE", "FI", "IT", "ES", "FR", "NL", "PL", "SI", "PT", "NO", "DK", "BE"}

var citiesByCountry = map[string][]string{
	"CZ": {"Prague", "Brno", "Ostrava"}, "DE": {"Berlin", "Munich", "Hannover", "Hamburg"},
	"AT": {"Vienna", "Graz", "Innsbruck"}, "SE": {"Stockholm", "Gothenburg", "Uppsala"},
	"FI": {"Helsinki", "Turku", "Tampere"}, "IT": {"Rome", "Milan", "Florence"},
	"ES": {"Madrid", "Barcelona", "Valencia"}, "FR": {"Paris", "Lyon", "Marseille"},
	"NL": {"Amsterdam", "Rotterdam", "Utrecht"}, "PL": {"Warsaw", "Krakow", "Gdansk"},
	"SI": {"Ljubljana", "Maribor"}, "PT": {"Lisbon", "Porto"}, "NO": {"Oslo", "Bergen"},
	"DK": {"Copenhagen", "Aarhus"}, "BE": {"Brussels", "Leuven"},
}

// Cities returns the cities known for a country, or a single "Unknown".
func Cities(country string) []string {
	if c, ok := citiesByCountry[country]; ok {
		return c
	}
	return []string{"Unknown"}
}

var BiobankSuffixes = []string{
	"University Hospital Biobank", "Cancer Research Biobank", "National Biobank",
	"Medical Center Biobank", "Clinical Research Biobank", "Integrated Biobank",
	"Genomics & Tissue Bank", "Translational Research Biobank",
}

var CollectionNames = []string{
	"Solid Tumors", "Hematological Malignancies", "Breast Cancer Cohort",
	"Lung Cancer Registry", "Colorectal Cancer Study", "Prostate Cancer Cohort",
	"Pancreatic Cancer Collection", "Rare Tumors Collection",
	"Population Health Study", "Metabolic Diseases Cohort",
	"Cardiovascular Sample Repository", "Neurological Disorders Collection",
}
