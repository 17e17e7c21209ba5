package pipeline

import "fmt"

// StepError is returned when a sync step failed.
type StepError struct {
	Step StepName
	Num  int
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("sync step: %d (%s) failed with error: %s", e.Num, e.Step, e.Err.Error())
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// ConfigurationError is returned when sync request is invalid.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("sync request: invalid configuration: %s %s", e.Field, e.Reason)
}
