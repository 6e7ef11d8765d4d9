package assistant

import (
	"context"
	"errors"
	"strings"
)

// FailureKind classifies a failed model interaction.
type FailureKind string

const (
	FailureUnavailable   FailureKind = "unavailable"
	FailureConfiguration FailureKind = "configuration"
	FailureSafety        FailureKind = "safety"
	FailureQuota         FailureKind = "quota"
	FailureInternal      FailureKind = "internal"
)

var failureMessages = map[FailureKind]string{
	FailureUnavailable:   "⌛ The AI model did not respond in time, please try again",
	FailureConfiguration: "🔧 AI model configuration error",
	FailureSafety:        "🚫 Request blocked by safety policies",
	FailureQuota:         "⏳ Service temporarily unavailable",
	FailureInternal:      "❌ Internal server error",
}

// Message returns the user-facing answer for k.
func (k FailureKind) Message() string {
	if msg, ok := failureMessages[k]; ok {
		return msg
	}
	return failureMessages[FailureInternal]
}

// Failure describes why a turn could not be answered by the model.
type Failure struct {
	Kind  FailureKind `json:"kind"`
	Cause string      `json:"cause"`
	Err   error       `json:"-"`
}

func newFailure(err error) *Failure {
	return &Failure{Kind: Classify(err), Cause: err.Error(), Err: err}
}

// Classify maps a model error to a FailureKind by its known signatures.
func Classify(err error) FailureKind {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return FailureUnavailable
	}

	msg := strings.ToUpper(err.Error())

	switch {
	case strings.Contains(msg, "404") || strings.Contains(msg, "NOT FOUND"):
		return FailureConfiguration
	case strings.Contains(msg, "SAFETY"):
		return FailureSafety
	case strings.Contains(msg, "QUOTA"),
		strings.Contains(msg, "429"),
		strings.Contains(msg, "RESOURCE_EXHAUSTED"),
		strings.Contains(msg, "RATE LIMIT"):
		return FailureQuota
	default:
		return FailureInternal
	}
}
