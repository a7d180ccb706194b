package fhir

import (
	"fmt"
	"html"

	"github.com/miabis/miabis/pkg/fhirmodels"
)

const xhtmlNS = "http://www.w3.org/1999/xhtml"

// GeneratedNarrative builds the text element for a resource: the
// resource's Type/id in bold followed by a one-line summary.
// Both parts are escaped so the div stays well-formed XHTML.
func GeneratedNarrative(resourceType, id, summary string) *fhirmodels.Narrative {
	return &fhirmodels.Narrative{
		Status: fhirmodels.NarrativeGenerated,
		Div: fmt.Sprintf(`<div xmlns="%s"><p><b>%s/%s</b>: %s</p></div>`,
			xhtmlNS,
			html.EscapeString(resourceType),
			html.EscapeString(id),
			html.EscapeString(summary),
		),
	}
}
