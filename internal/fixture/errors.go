package fixture

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyPlan is returned when an orchestrator has no steps to run.
var ErrEmptyPlan = errors.New("fixture plan has no steps")

// SetupError wraps the failure of a single fixture step. Any SetupError
// aborts the suite.
type SetupError struct {
	Step string
	Err  error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("fixture step %q failed: %v", e.Step, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// PlanError reports a step whose preconditions no earlier step produces.
type PlanError struct {
	Step    string
	Missing []Condition
}

func (e *PlanError) Error() string {
	names := make([]string, len(e.Missing))
	for i, c := range e.Missing {
		names[i] = string(c)
	}
	return fmt.Sprintf("fixture step %q requires %s, which no earlier step produces",
		e.Step, strings.Join(names, ", "))
}
