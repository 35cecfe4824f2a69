package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a failure raised while ingesting a repository.
type ErrorKind string

const (
	InvalidSource            ErrorKind = "InvalidSource"
	SourceNotFound           ErrorKind = "SourceNotFound"
	MissingManifest          ErrorKind = "MissingManifest"
	MalformedManifest        ErrorKind = "MalformedManifest"
	UnsupportedSpecVersion   ErrorKind = "UnsupportedSpecVersion"
	DownloadFailure          ErrorKind = "DownloadFailure"
	BuildServiceError        ErrorKind = "BuildServiceError"
	ConflictError            ErrorKind = "ConflictError"
	UnsupportedIngestionKind ErrorKind = "UnsupportedIngestionKind"
	Transient                ErrorKind = "Transient"
)

// Error is an ingestion failure carrying whether retrying it could succeed.
type Error struct {
	Kind        ErrorKind
	Message     string
	Recoverable bool
	Err         error
}

var _ error = (*Error)(nil)

func NewError(kind ErrorKind, message string, recoverable bool) *Error {
	return &Error{Kind: kind, Message: message, Recoverable: recoverable}
}

// WrapError attaches a kind and recoverability to an underlying error.
func WrapError(kind ErrorKind, err error, recoverable bool, format string, args ...interface{}) *Error {
	return &Error{
		Kind:        kind,
		Message:     fmt.Sprintf(format, args...),
		Recoverable: recoverable,
		Err:         err,
	}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.Err.Error())
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRecoverable reports whether err is worth retrying. Errors that carry no
// classification are assumed to be transient.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	var agg *BundleUpdateError
	if errors.As(err, &agg) {
		return agg.Recoverable()
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Recoverable
	}
	return true
}

// KindOf returns the kind of err, or Transient when err is unclassified.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Transient
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// BundleUpdateError aggregates the failures of one bundle size update pass.
type BundleUpdateError struct {
	VersionId        string
	SucceededBundles []string
	Failures         []error
}

func (e *BundleUpdateError) Error() string {
	messages := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		messages = append(messages, f.Error())
	}
	return fmt.Sprintf("failed to update %d bundle(s) for version %s (succeeded: [%s]): %s",
		len(e.Failures), e.VersionId, strings.Join(e.SucceededBundles, ", "), strings.Join(messages, "; "))
}

// Recoverable is true when any single failure is recoverable.
func (e *BundleUpdateError) Recoverable() bool {
	for _, f := range e.Failures {
		if IsRecoverable(f) {
			return true
		}
	}
	return false
}
