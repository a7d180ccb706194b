package fhir

// OperationOutcome issue severities.
const (
	IssueSeverityFatal       = "fatal"
	IssueSeverityError       = "error"
	IssueSeverityWarning     = "warning"
	IssueSeverityInformation = "information"
)

// OperationOutcome issue type codes used by this service.
const (
	IssueTypeInvalid   = "invalid"
	IssueTypeRequired  = "required"
	IssueTypeValue     = "value"
	IssueTypeException = "exception"
	IssueTypeTooCostly = "too-costly"
	IssueTypeTimeout   = "timeout"
)

type OperationOutcome struct {
	ResourceType string                  `json:"resourceType"`
	Issue        []OperationOutcomeIssue `json:"issue"`
}

type OperationOutcomeIssue struct {
	Severity    string   `json:"severity"`
	Code        string   `json:"code"`
	Diagnostics string   `json:"diagnostics,omitempty"`
	Expression  []string `json:"expression,omitempty"`
}

// NewOperationOutcome creates a single-issue OperationOutcome.
func NewOperationOutcome(severity, code, diagnostics string) *OperationOutcome {
	return &OperationOutcome{
		ResourceType: "OperationOutcome",
		Issue: []OperationOutcomeIssue{{
			Severity:    severity,
			Code:        code,
			Diagnostics: diagnostics,
		}},
	}
}

// ValidationOutcome reports an invalid value for a named input field.
func ValidationOutcome(field, message string) *OperationOutcome {
	oo := NewOperationOutcome(IssueSeverityError, IssueTypeValue, message)
	oo.Issue[0].Expression = []string{field}
	return oo
}

func InternalErrorOutcome(diagnostics string) *OperationOutcome {
	return NewOperationOutcome(IssueSeverityFatal, IssueTypeException, diagnostics)
}

// HasErrors reports whether any issue is an error or fatal.
func (o *OperationOutcome) HasErrors() bool {
	for _, i := range o.Issue {
		if i.Severity == IssueSeverityError || i.Severity == IssueSeverityFatal {
			return true
		}
	}
	return false
}
