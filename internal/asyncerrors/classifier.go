package asyncerrors

import (
	"context"
	"errors"
	"net"
	"strings"
)

// ValidationError marks handler-side argument/invariant failures as
// Permanent for RuleClassifier. Handlers that want their errors classified
// Permanent by it should wrap them with NewValidationError rather than
// returning a bare error.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidationError builds an error that RuleClassifier classifies as
// Permanent.
func NewValidationError(message string) error {
	return &ValidationError{Message: message}
}

// RuleClassifier maps a thrown/returned error to a Classification. The
// built-in rules cover cancellation, network timeouts, and remote
// "unavailable" signals as Transient, and ValidationError as Permanent;
// everything else is Unknown. Implementations may extend this via
// WithRule to recognize additional error types (spec.md §4.4 permits
// refinement, e.g. skipping retries for Permanent errors). The registry
// classifies handler errors with Classifier (error.go), not with this type.
type RuleClassifier struct {
	extraRules []func(error) (Classification, bool)
}

// NewClassifier builds the default rule-based classifier.
func NewClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

// WithRule registers an additional classification rule, tried before the
// built-in ones. The rule returns ok=false to defer to the next rule.
func (c *RuleClassifier) WithRule(rule func(error) (Classification, bool)) *RuleClassifier {
	c.extraRules = append(c.extraRules, rule)
	return c
}

func (c *RuleClassifier) Classify(err error) Classification {
	if err == nil {
		return Unknown
	}
	for _, rule := range c.extraRules {
		if class, ok := rule(err); ok {
			return class
		}
	}
	return classifyBuiltin(err)
}

func classifyBuiltin(err error) Classification {
	var validation *ValidationError
	if errors.As(err, &validation) {
		return Permanent
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Transient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return Transient
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unavailable"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "timed out"):
		return Transient
	case strings.Contains(msg, "invalid"),
		strings.Contains(msg, "validation"),
		strings.Contains(msg, "required"):
		return Permanent
	}

	return Unknown
}

// AsAsyncError wraps err into an *Error with the given code. It does not
// classify err; recording the classification is left to the caller (spec.md §7:
// "all other errors are treated as Permanent for classification
// purposes" refers to store-level errors, not handler errors — handler
// errors carry whatever the classifier says).
func AsAsyncError(code Code, message string, err error) *Error {
	return Wrap(code, message, err)
}
