package council

import (
	"errors"
	"fmt"
)

// FailureKind classifies why an agent produced no forecast.
type FailureKind string

const (
	FailureResearchTimeout FailureKind = "research_timeout"
	FailureResearchFailed  FailureKind = "research_failed"
	FailurePredictTimeout  FailureKind = "predict_timeout"
	FailurePredictFailed   FailureKind = "predict_failed"
	FailureMalformedOutput FailureKind = "malformed_output"
	FailureMissingOutput   FailureKind = "missing_output"
	FailureNoValidOptions  FailureKind = "no_valid_options"
	FailureInternal        FailureKind = "internal_error"
)

// ErrNoValidOptions means every option id an agent returned was unknown.
var ErrNoValidOptions = errors.New("no valid option ids in prediction")

// AgentError is a single member's failure. It never aborts the council.
type AgentError struct {
	Member string
	Kind   FailureKind
	Err    error
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("council: member %s: %s: %v", e.Member, e.Kind, e.Err)
}

func (e *AgentError) Unwrap() error { return e.Err }

// KindOf returns the failure kind carried by err, or FailureInternal when err
// is not an AgentError.
func KindOf(err error) FailureKind {
	var ae *AgentError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return FailureInternal
}
