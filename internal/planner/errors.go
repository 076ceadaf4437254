package planner

import (
	"fmt"

	"github.com/oumizumi/Kairo-sub002/internal/classifier"
)

// InvalidIntentError the message does not ask for a schedule
type InvalidIntentError struct {
	Intent classifier.Intent
}

func (e *InvalidIntentError) Error() string {
	return fmt.Sprintf("message intent %q is not a schedule request", e.Intent)
}

// ProgramUnresolvedError no program could be identified from the request
type ProgramUnresolvedError struct {
	Query string
}

func (e *ProgramUnresolvedError) Error() string {
	return fmt.Sprintf("could not resolve a program from %q", e.Query)
}

// NoSuitableSectionError a course has no section group that can be placed
type NoSuitableSectionError struct {
	Course string
	Term   string
	Reason string
}

func (e *NoSuitableSectionError) Error() string {
	return fmt.Sprintf("%s (%s): no suitable section group found: %s", e.Course, e.Term, e.Reason)
}
