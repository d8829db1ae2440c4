package provider

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorKind classifies a provider failure.
type ErrorKind string

// Provider failure kinds.
const (
	// KindTransport covers network failures and timeouts.
	KindTransport ErrorKind = "transport"
	// KindRejected covers responses the provider answered with a failure status.
	KindRejected ErrorKind = "rejected"
)

// Error is returned by every provider call that does not succeed.
type Error struct {
	Kind       ErrorKind
	Operation  string
	HTTPStatus int
	StatusCode int
	Message    string
	Err        error
	// Unsent is true when the request provably never reached the provider.
	Unsent bool
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindTransport:
		return fmt.Sprintf("provider %s: transport failure: %v", e.Operation, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("provider %s: rejected with status %d: %s", e.Operation, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("provider %s: rejected with http %d: %s", e.Operation, e.HTTPStatus, e.Message)
	}
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the same call may succeed. Transport
// failures, throttling, server errors and the provider's internal error
// range 50000-50999 are retryable; everything else is permanent.
func (e *Error) Retryable() bool {
	if e.Kind == KindTransport {
		return true
	}
	if e.HTTPStatus == http.StatusTooManyRequests || e.HTTPStatus >= http.StatusInternalServerError {
		return true
	}
	return e.StatusCode >= 50000 && e.StatusCode < 51000
}

// Undelivered reports whether err proves the provider never processed the
// request, so sending it again cannot create duplicate work. Throttled
// requests count as undelivered.
func Undelivered(err error) bool {
	var perr *Error
	if !errors.As(err, &perr) {
		return false
	}
	if perr.Kind == KindRejected {
		return perr.HTTPStatus == http.StatusTooManyRequests
	}
	return perr.Unsent
}

func transportError(operation string, err error) *Error {
	return &Error{Kind: KindTransport, Operation: operation, Err: err, Unsent: beforeSend(err)}
}

// beforeSend recognizes failures that happen before the request body can
// leave the process: dial, DNS and TLS handshake errors.
func beforeSend(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return true
	}
	var headerErr tls.RecordHeaderError
	return errors.As(err, &headerErr)
}

func rejectedError(operation string, httpStatus, statusCode int, message string) *Error {
	return &Error{
		Kind:       KindRejected,
		Operation:  operation,
		HTTPStatus: httpStatus,
		StatusCode: statusCode,
		Message:    message,
	}
}
