package errors

import (
	"fmt"
)

// Kind categorizes scanner errors into the failure classes the engine
// distinguishes when deciding whether a scan can continue.
type Kind int

const (
	// KindParse - a file could not be parsed; non-fatal, per file
	KindParse Kind = iota
	// KindRuleExecution - one rule failed on one file; non-fatal, per rule
	KindRuleExecution
	// KindTimeout - a file or the whole scan ran out of time
	KindTimeout
	// KindSelector - file selection failed (bad ref, missing repo); fatal
	KindSelector
	// KindConfig - invalid configuration or rule registration; fatal
	KindConfig
	// KindInternal - unexpected internal state
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "PARSE"
	case KindRuleExecution:
		return "RULE"
	case KindTimeout:
		return "TIMEOUT"
	case KindSelector:
		return "SELECTOR"
	case KindConfig:
		return "CONFIG"
	default:
		return "INTERNAL"
	}
}

// Error is a structured scanner error with enough context to be
// recorded on scan statistics or surfaced to the caller.
type Error struct {
	Kind    Kind
	Message string
	Path    string // file the error relates to, if any
	RuleID  string // rule the error relates to, if any
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", e.Path, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, msg, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by kind so callers can use errors.Is with sentinel
// values like &Error{Kind: KindTimeout}.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Fatal reports whether the error must abort the scan invocation.
// Only selector and configuration errors are scan-fatal; everything
// else is recovered per file and recorded in the scan statistics.
func (e *Error) Fatal() bool {
	return e.Kind == KindSelector || e.Kind == KindConfig
}

// ParseError wraps a parser failure for one file
func ParseError(path string, cause error) *Error {
	return &Error{Kind: KindParse, Message: "parse failed", Path: path, Cause: cause}
}

// RuleError wraps a failure inside one rule's check on one file
func RuleError(ruleID, path string, cause error) *Error {
	return &Error{
		Kind:    KindRuleExecution,
		Message: fmt.Sprintf("rule %s failed", ruleID),
		Path:    path,
		RuleID:  ruleID,
		Cause:   cause,
	}
}

// FileTimeout records a per-file processing timeout
func FileTimeout(path string) *Error {
	return &Error{Kind: KindTimeout, Message: "processing timed out", Path: path}
}

// ScanTimeout records expiry of the global scan deadline
func ScanTimeout() *Error {
	return &Error{Kind: KindTimeout, Message: "scan deadline exceeded"}
}

// InvalidReference reports an unknown git ref passed to the selector
func InvalidReference(ref string) *Error {
	return &Error{Kind: KindSelector, Message: fmt.Sprintf("invalid git reference: %s", ref)}
}

// SelectorError wraps any other file-selection failure
func SelectorError(cause error, message string) *Error {
	return &Error{Kind: KindSelector, Message: message, Cause: cause}
}

// ConfigError reports invalid configuration detected at startup
func ConfigError(message string) *Error {
	return &Error{Kind: KindConfig, Message: message}
}

// ConfigErrorf reports invalid configuration with formatting
func ConfigErrorf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConfig, Message: fmt.Sprintf(format, args...)}
}

// IsFatal reports whether err should abort the scan invocation
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*Error); ok {
		return e.Fatal()
	}
	return false
}

// GetKind returns the kind of a scanner error, or KindInternal for
// foreign errors.
func GetKind(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return KindInternal
}
