package grading

import (
	"fmt"
	"strings"
)

// ConfigurationError means a question cannot be graded as stored. It is
// never turned into a zero score.
type ConfigurationError struct {
	QuestionID string
	Reason     string
}

func (e *ConfigurationError) Error() string {
	if e.QuestionID == "" {
		return "configuration error: " + e.Reason
	}
	return fmt.Sprintf("configuration error in question %s: %s", e.QuestionID, e.Reason)
}

func configErr(id, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{QuestionID: id, Reason: fmt.Sprintf(format, args...)}
}

// FieldError is one authoring problem.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors carries every problem found in a question.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "invalid question: " + strings.Join(parts, "; ")
}
