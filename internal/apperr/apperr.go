// Package apperr defines the error taxonomy shared by the stamping pipeline.
//
// Lower layers wrap failures in *Error values carrying a Kind. Handlers map the
// Kind to a status code and a public message with HTTPStatus and PublicMessage,
// so raw error text (paths, storage credentials) never reaches the client.
//
// Usage:
//
//	if errors.Is(err, apperr.ErrInvalidDocument) { ... }
//	return apperr.E(apperr.KindTransientStorage, "gcs.upload", err)
package apperr

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindInvalidDocument
	KindUnsupportedImageFormat
	KindTransientStorage
	KindVerificationMismatch
	KindNotFound
	KindInvalidRequest
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration_error"
	case KindInvalidDocument:
		return "invalid_document"
	case KindUnsupportedImageFormat:
		return "unsupported_image_format"
	case KindTransientStorage:
		return "transient_storage_error"
	case KindVerificationMismatch:
		return "verification_mismatch"
	case KindNotFound:
		return "not_found"
	case KindInvalidRequest:
		return "invalid_request"
	default:
		return "unknown"
	}
}

// Error is a classified failure. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the bare sentinels below by Kind, so errors.Is(err, ErrInvalidDocument)
// holds for any wrapped *Error of that kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrConfiguration          = &Error{Kind: KindConfiguration}
	ErrInvalidDocument        = &Error{Kind: KindInvalidDocument}
	ErrUnsupportedImageFormat = &Error{Kind: KindUnsupportedImageFormat}
	ErrTransientStorage       = &Error{Kind: KindTransientStorage}
	ErrVerificationMismatch   = &Error{Kind: KindVerificationMismatch}
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrInvalidRequest         = &Error{Kind: KindInvalidRequest}
)

// E builds a classified error.
func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a classified error from a format string.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the Kind of the outermost *Error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsTransient reports whether err is worth retrying: explicitly transient
// storage errors, network errors and a handful of syscall failures.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransientStorage) {
		return true
	}
	var e *Error
	if errors.As(err, &e) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE)
}

// HTTPStatus maps an error to the status code a handler should answer with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnsupportedImageFormat:
		return http.StatusUnsupportedMediaType
	case KindInvalidDocument:
		return http.StatusUnprocessableEntity
	case KindVerificationMismatch:
		return http.StatusBadGateway
	case KindTransientStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the client-facing text for err.
func PublicMessage(err error) string {
	switch KindOf(err) {
	case KindInvalidRequest:
		var e *Error
		if errors.As(err, &e) && e.Err != nil {
			return e.Err.Error()
		}
		return "Invalid request"
	case KindNotFound:
		return "Not found"
	case KindUnsupportedImageFormat:
		return "Unsupported image format. Only PNG and JPEG images are allowed"
	case KindInvalidDocument:
		return "Document is not a valid PDF"
	case KindVerificationMismatch:
		return "Stored document could not be verified, please try again"
	case KindTransientStorage:
		return "Storage is temporarily unavailable, please try again"
	case KindConfiguration:
		return "Service is misconfigured"
	default:
		return "Internal server error"
	}
}
