package provider

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
)

// ReasonRiskCheckFailed is the user-facing reason for content rejections.
const ReasonRiskCheckFailed = "risk check failed"

var (
	// ErrNoImage is returned when a successful response carries no image.
	ErrNoImage = errors.New("provider: response contains no image")

	// ErrEmptyPrompt is returned for requests without a prompt.
	ErrEmptyPrompt = errors.New("provider: empty prompt")
)

// TransportError is a network failure, a non-2xx response or a provider
// status other than success.
type TransportError struct {
	StatusCode int
	Code       int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("provider: transport: %v", e.Err)
	case e.Code != 0:
		return fmt.Sprintf("provider: status %d, code %d: %s", e.StatusCode, e.Code, e.Message)
	default:
		return fmt.Sprintf("provider: status %d: %s", e.StatusCode, e.Message)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// ContentPolicyError is a rejection by the provider's content safety check.
type ContentPolicyError struct {
	Code    int
	Message string
}

func (e *ContentPolicyError) Error() string {
	return fmt.Sprintf("provider: %s: %s", ReasonRiskCheckFailed, e.Message)
}

// Reason returns the user-facing reason.
func (e *ContentPolicyError) Reason() string { return ReasonRiskCheckFailed }

// Risk codes returned by the visual API for pre- and post-generation
// content checks.
var riskCodes = []int{50411, 50412, 50413, 50511, 50512}

var riskPattern = regexp.MustCompile(`(?i)risk|sensitive|audit|敏感|违规|审核|风险`)

// classify turns a provider error status into a typed error.
func classify(statusCode, code int, message string) error {
	if slices.Contains(riskCodes, code) || riskPattern.MatchString(message) {
		return &ContentPolicyError{Code: code, Message: message}
	}

	return &TransportError{StatusCode: statusCode, Code: code, Message: message}
}

// IsContentPolicy reports whether err is a content rejection.
func IsContentPolicy(err error) bool {
	var cpe *ContentPolicyError
	return errors.As(err, &cpe)
}

// Reason returns a short user-facing reason for err.
func Reason(err error) string {
	var cpe *ContentPolicyError

	switch {
	case err == nil:
		return ""
	case errors.As(err, &cpe):
		return cpe.Reason()
	case errors.Is(err, ErrNoImage):
		return "no image returned"
	default:
		return "generation failed"
	}
}
