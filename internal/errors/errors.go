// Package errors defines the tagged error kinds the analysis pipeline
// returns. Kinds survive fmt.Errorf("%w") wrapping and are matched with the
// standard errors.Is against the Err* sentinels.
package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// ErrorType is the kind of a pipeline failure
type ErrorType int

const (
	ErrorTypeConfig ErrorType = iota
	ErrorTypeValidation
	ErrorTypeStorage
	// a required token or API key is absent
	ErrorTypeCredentialMissing
	// GitHub, the LLM provider or the backend failed or answered non-2xx
	ErrorTypeUpstream
	// well-formed response without the expected structure
	ErrorTypeSchema
	// no parseable JSON object in model output
	ErrorTypeExtraction
	ErrorTypeTimeout
	ErrorTypeInternal
)

var typeNames = [...]string{
	ErrorTypeConfig:            "CONFIG",
	ErrorTypeValidation:        "VALIDATION",
	ErrorTypeStorage:           "STORAGE",
	ErrorTypeCredentialMissing: "CREDENTIAL_MISSING",
	ErrorTypeUpstream:          "UPSTREAM",
	ErrorTypeSchema:            "SCHEMA",
	ErrorTypeExtraction:        "EXTRACTION",
	ErrorTypeTimeout:           "TIMEOUT",
	ErrorTypeInternal:          "INTERNAL",
}

// String returns the tag used in logs and CLI output
func (t ErrorType) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "UNKNOWN"
	}
	return typeNames[t]
}

// Origin identifies which external service produced an upstream or schema error
type Origin string

const (
	OriginNone    Origin = ""
	OriginGitHub  Origin = "github"
	OriginLLM     Origin = "llm"
	OriginBackend Origin = "backend"
)

// Severity ranks how far a failure propagates. Critical stops the process,
// High aborts the current run.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	}
	return "UNKNOWN"
}

// Sentinels for errors.Is matching by type.
var (
	ErrConfig            = &Error{Type: ErrorTypeConfig}
	ErrValidation        = &Error{Type: ErrorTypeValidation}
	ErrStorage           = &Error{Type: ErrorTypeStorage}
	ErrCredentialMissing = &Error{Type: ErrorTypeCredentialMissing}
	ErrUpstream          = &Error{Type: ErrorTypeUpstream}
	ErrSchema            = &Error{Type: ErrorTypeSchema}
	ErrExtraction        = &Error{Type: ErrorTypeExtraction}
	ErrTimeout           = &Error{Type: ErrorTypeTimeout}
)

// Error is a tagged failure. Context carries machine-readable details such
// as the HTTP status or the credential kind.
type Error struct {
	Type       ErrorType
	Severity   Severity
	Origin     Origin
	Message    string
	Cause      error
	Context    map[string]interface{}
	StackTrace string
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext sets key and returns e for chaining
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = map[string]interface{}{}
	}
	e.Context[key] = value
	return e
}

// Is matches a sentinel of the same type. A sentinel with an Origin only
// matches errors from that origin.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e.Type != t.Type {
		return false
	}
	return t.Origin == OriginNone || e.Origin == t.Origin
}

// IsFatal reports whether the process should stop
func (e *Error) IsFatal() bool {
	return e.Severity >= SeverityCritical
}

// DetailedString renders the error with origin, cause, context and stack
// for --verbose output.
func (e *Error) DetailedString() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] [%s] %s\n", e.Severity, e.Type, e.Message)

	if e.Origin != OriginNone {
		fmt.Fprintf(&sb, "Origin: %s\n", e.Origin)
	}
	if e.Cause != nil {
		fmt.Fprintf(&sb, "Caused by: %v\n", e.Cause)
	}
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString("Context:\n")
		for _, k := range keys {
			fmt.Fprintf(&sb, "  %s: %v\n", k, e.Context[k])
		}
	}
	if e.StackTrace != "" {
		fmt.Fprintf(&sb, "Stack trace:\n%s", e.StackTrace)
	}
	return sb.String()
}

const maxStackFrames = 10

// callers formats up to maxStackFrames frames above the constructor that
// called it. skip counts frames above callers itself.
func callers(skip int) string {
	pcs := make([]uintptr, maxStackFrames)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return ""
	}

	var sb strings.Builder
	frames := runtime.CallersFrames(pcs[:n])
	for {
		f, more := frames.Next()
		fmt.Fprintf(&sb, "  %s:%d %s\n", f.File, f.Line, f.Function)
		if !more {
			break
		}
	}
	return sb.String()
}

// build is shared by every constructor so the recorded stack always starts
// at the constructor's caller.
func build(t ErrorType, s Severity, origin Origin, message string, cause error) *Error {
	return &Error{
		Type:       t,
		Severity:   s,
		Origin:     origin,
		Message:    message,
		Cause:      cause,
		Context:    map[string]interface{}{},
		StackTrace: callers(2),
	}
}

// New creates an error of the given type and severity
func New(errType ErrorType, severity Severity, message string) *Error {
	return build(errType, severity, OriginNone, message, nil)
}

// Wrap attaches a type and message to err. A nil err yields nil.
func Wrap(err error, errType ErrorType, severity Severity, message string) *Error {
	if err == nil {
		return nil
	}
	return build(errType, severity, OriginNone, message, err)
}

func ConfigErrorf(format string, args ...interface{}) *Error {
	return build(ErrorTypeConfig, SeverityCritical, OriginNone, fmt.Sprintf(format, args...), nil)
}

func ValidationErrorf(format string, args ...interface{}) *Error {
	return build(ErrorTypeValidation, SeverityHigh, OriginNone, fmt.Sprintf(format, args...), nil)
}

// StorageError wraps a failed read or write on a storage scope
func StorageError(err error, message string) *Error {
	return build(ErrorTypeStorage, SeverityHigh, OriginNone, message, err)
}

func StorageErrorf(err error, format string, args ...interface{}) *Error {
	return build(ErrorTypeStorage, SeverityHigh, OriginNone, fmt.Sprintf(format, args...), err)
}

// CredentialMissing reports that the credential of the given kind is absent
func CredentialMissing(kind string) *Error {
	e := build(ErrorTypeCredentialMissing, SeverityHigh, OriginNone, kind+" credential is not configured", nil)
	return e.WithContext("kind", kind)
}

// Upstream reports a failed call to an external service. status is 0 for
// transport failures.
func Upstream(origin Origin, status int, message string, cause error) *Error {
	e := build(ErrorTypeUpstream, SeverityHigh, origin, message, cause)
	if status != 0 {
		e.Context["status"] = status
	}
	return e
}

// UpstreamStatus reports a non-2xx response, keeping the body text in the message
func UpstreamStatus(origin Origin, status int, body string) *Error {
	msg := fmt.Sprintf("%s API returned status %d: %s", origin, status, strings.TrimSpace(body))
	e := build(ErrorTypeUpstream, SeverityHigh, origin, msg, nil)
	e.Context["status"] = status
	return e
}

// SchemaErrorf reports a well-formed response missing the expected structure
func SchemaErrorf(origin Origin, format string, args ...interface{}) *Error {
	return build(ErrorTypeSchema, SeverityHigh, origin, fmt.Sprintf(format, args...), nil)
}

// ExtractionError reports model output with no parseable JSON object. Only
// the first 100 characters of raw are kept.
func ExtractionError(raw string) *Error {
	snippet := raw
	if r := []rune(snippet); len(r) > 100 {
		snippet = string(r[:100])
	}
	msg := fmt.Sprintf("no JSON object found in model output: %q", snippet)
	e := build(ErrorTypeExtraction, SeverityHigh, OriginNone, msg, nil)
	return e.WithContext("raw_prefix", snippet)
}

// Timeout reports that the deadline expired during step
func Timeout(step string, cause error) *Error {
	e := build(ErrorTypeTimeout, SeverityHigh, OriginNone, "timed out while "+step, cause)
	return e.WithContext("step", step)
}

func InternalErrorf(format string, args ...interface{}) *Error {
	return build(ErrorTypeInternal, SeverityCritical, OriginNone, fmt.Sprintf(format, args...), nil)
}

// As finds the first *Error in err's chain
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsFatal reports whether err carries a critical severity
func IsFatal(err error) bool {
	e, ok := As(err)
	return ok && e.IsFatal()
}

// GetSeverity returns err's severity. Untagged errors count as medium.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityLow
	}
	if e, ok := As(err); ok {
		return e.Severity
	}
	return SeverityMedium
}

// GetType returns err's kind. Untagged errors count as internal.
func GetType(err error) ErrorType {
	if e, ok := As(err); ok {
		return e.Type
	}
	return ErrorTypeInternal
}

// GetOrigin returns the origin of an upstream or schema error
func GetOrigin(err error) Origin {
	if e, ok := As(err); ok {
		return e.Origin
	}
	return OriginNone
}
