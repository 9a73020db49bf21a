package api

import "fmt"

const (
	// PrmFile is form file parameter name
	PrmFile = "file"
	// PrmEmail is form email parameter name
	PrmEmail = "email"
	// PrmAgentID is form agent reference parameter name
	PrmAgentID = "agentId"
)

// RubricScore is the structured quality evaluation of one call.
// Every field is produced by the scoring collaborator and must lie in [1, 5].
type RubricScore struct {
	GreetingCompliance     float64 `json:"greetingCompliance"`
	ScriptAdherence        float64 `json:"scriptAdherence"`
	EmpathyExpression      float64 `json:"empathyExpression"`
	ResolutionConfirmation float64 `json:"resolutionConfirmation"`
	CallDuration           float64 `json:"callDuration"`
	OverallRating          float64 `json:"overallRating"`
}

// Validate checks the [1, 5] contract for every rubric field.
// An out of range value is a scorer contract violation, it is never clamped
func (rs *RubricScore) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"greetingCompliance", rs.GreetingCompliance},
		{"scriptAdherence", rs.ScriptAdherence},
		{"empathyExpression", rs.EmpathyExpression},
		{"resolutionConfirmation", rs.ResolutionConfirmation},
		{"callDuration", rs.CallDuration},
		{"overallRating", rs.OverallRating},
	} {
		if f.value < 1 || f.value > 5 {
			return fmt.Errorf("score '%s' out of range [1, 5]: %f", f.name, f.value)
		}
	}
	return nil
}
