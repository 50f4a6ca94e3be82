package generation

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports an unusable request before any quota is touched.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// QuotaExceededError reports a quota denial with a retry hint in seconds.
type QuotaExceededError struct {
	Reason     string
	RetryAfter int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded: %s", e.Reason)
}

// ContentPolicyError reports a prompt the pipeline refuses to render, either
// from the local blocklist or from the upstream safety system after the style
// fallback was exhausted.
type ContentPolicyError struct {
	Message string
}

func (e *ContentPolicyError) Error() string {
	return e.Message
}

// TransientUpstreamError reports an upstream failure that persisted through
// the retry budget.
type TransientUpstreamError struct {
	Err error
}

func (e *TransientUpstreamError) Error() string {
	return fmt.Sprintf("upstream unavailable: %v", e.Err)
}

func (e *TransientUpstreamError) Unwrap() error { return e.Err }

// UpstreamError carries the status code and body snippet of a failed
// collaborator call. Collaborator clients return this for any non-2xx reply.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Message)
}

type errClass int

const (
	classOther errClass = iota
	classTransient
	classSafety
)

// classifyError sorts a generation failure into the retry axis it belongs to.
// Status codes are authoritative when present; otherwise the error text is
// matched for the network failure modes the upstream surfaces as strings.
func classifyError(err error) errClass {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		switch ue.StatusCode {
		case 429, 503, 504:
			return classTransient
		}
	}
	msg := strings.ToUpper(err.Error())
	if strings.Contains(msg, "SAFETY") || strings.Contains(msg, "CONTENT_POLICY") ||
		strings.Contains(msg, "PROHIBITED_CONTENT") {
		return classSafety
	}
	if strings.Contains(msg, "ECONNRESET") || strings.Contains(msg, "ETIMEDOUT") {
		return classTransient
	}
	return classOther
}
