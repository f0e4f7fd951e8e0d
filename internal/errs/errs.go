// Package errs defines the error taxonomy shared across the translation
// synchronization engine. Callers classify failures with errors.Is against
// the sentinels below rather than matching error strings.
package errs

import "errors"

// Kind identifies which taxonomy bucket an error belongs to.
type Kind int

const (
	// KindConfig: malformed or missing configuration. Fatal, aborts the run.
	KindConfig Kind = iota
	// KindFormat: a resource file could not be parsed. Skips that file pair.
	KindFormat
	// KindProviderTransient: transport or rate-limit failure. Retried with backoff.
	KindProviderTransient
	// KindProviderPayloadTooLarge: triggers adaptive batch split.
	KindProviderPayloadTooLarge
	// KindProviderPermanent: authentication or bad request. Aborts the current job.
	KindProviderPermanent
	// KindGitUnavailable: git missing or path not in a repo. Degrades to no-op.
	KindGitUnavailable
	// KindValidationWarning: informational only, never blocks a write.
	KindValidationWarning
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "ConfigError"
	case KindFormat:
		return "FormatError"
	case KindProviderTransient:
		return "ProviderTransient"
	case KindProviderPayloadTooLarge:
		return "ProviderPayloadTooLarge"
	case KindProviderPermanent:
		return "ProviderPermanent"
	case KindGitUnavailable:
		return "GitUnavailable"
	case KindValidationWarning:
		return "ValidationWarning"
	default:
		return "UnknownError"
	}
}

// Sentinels for errors.Is matching. Wrap with fmt.Errorf("...: %w", ErrX)
// or New(KindX, ...) to attach a Kind to an arbitrary message.
var (
	ErrConfig                  = errors.New("config error")
	ErrFormat                  = errors.New("format error")
	ErrProviderTransient       = errors.New("provider transient error")
	ErrProviderPayloadTooLarge = errors.New("provider payload too large")
	ErrProviderPermanent       = errors.New("provider permanent error")
	ErrGitUnavailable          = errors.New("git unavailable")
	ErrValidationWarning       = errors.New("validation warning")
)

func sentinelFor(k Kind) error {
	switch k {
	case KindConfig:
		return ErrConfig
	case KindFormat:
		return ErrFormat
	case KindProviderTransient:
		return ErrProviderTransient
	case KindProviderPayloadTooLarge:
		return ErrProviderPayloadTooLarge
	case KindProviderPermanent:
		return ErrProviderPermanent
	case KindGitUnavailable:
		return ErrGitUnavailable
	case KindValidationWarning:
		return ErrValidationWarning
	default:
		return errors.New("unknown error")
	}
}

// Error is a taxonomy-tagged error that wraps an underlying cause.
type Error struct {
	Kind Kind
	Op   string // operation/file/key context, free-form
	Err  error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return e.Kind.String() + ": " + e.Op + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, errs.ErrFormat) true for any *Error of KindFormat,
// regardless of the wrapped cause.
func (e *Error) Is(target error) bool {
	return target == sentinelFor(e.Kind)
}

// New creates a Kind-tagged error wrapping err with operation context op.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}
