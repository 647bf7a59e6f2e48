package domain

// Severity of a structural issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// NormalizationIssue describes one structural defect and whether it was repaired.
type NormalizationIssue struct {
	Type        string   `bson:"type" json:"type"`
	Severity    Severity `bson:"severity" json:"severity"`
	Field       string   `bson:"field" json:"field"` // path, e.g. "phases[1].endDay"
	Description string   `bson:"description" json:"description"`
	Corrected   bool     `bson:"corrected" json:"corrected"`
}

// Blocking reports whether the issue still prevents persistence.
func (i NormalizationIssue) Blocking() bool {
	return i.Severity == SeverityError && !i.Corrected
}

// ValidationResult is the gating decision over a drafted program.
type ValidationResult struct {
	IsValid         bool                 `bson:"isValid" json:"isValid"`
	ShouldPrune     bool                 `bson:"shouldPrune" json:"shouldPrune"`
	ShouldNormalize bool                 `bson:"shouldNormalize" json:"shouldNormalize"`
	Issues          []NormalizationIssue `bson:"issues" json:"issues"`
	Confidence      float64              `bson:"confidence" json:"confidence"` // 0..1
	TrainingDays    int                  `bson:"trainingDays" json:"trainingDays"`
	TargetDays      int                  `bson:"targetDays" json:"targetDays"`
}

// BlockingIssues returns the uncorrected errors.
func (v *ValidationResult) BlockingIssues() []NormalizationIssue {
	var out []NormalizationIssue
	for _, i := range v.Issues {
		if i.Blocking() {
			out = append(out, i)
		}
	}
	return out
}
