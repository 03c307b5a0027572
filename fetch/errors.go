package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies why a tile could not be produced.
type Kind uint8

const (
	// KindNetwork covers transport failures: DNS, connect, TLS, timeouts.
	KindNetwork Kind = iota + 1
	// KindHTTPStatus is a non-2xx response.
	KindHTTPStatus
	// KindMalformed is a response that arrived but could not be read in full.
	KindMalformed
	// KindDecode means the bytes were not a usable image.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindHTTPStatus:
		return "http_status"
	case KindMalformed:
		return "malformed"
	case KindDecode:
		return "decode"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Error is the failure outcome of one fetch attempt.
type Error struct {
	Kind   Kind
	URL    string
	Status int // set for KindHTTPStatus
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindHTTPStatus && e.Err == nil:
		return fmt.Sprintf("fetch %s: %d %s", e.URL, e.Status, http.StatusText(e.Status))
	case e.Kind == KindHTTPStatus:
		return fmt.Sprintf("fetch %s: %d: %v", e.URL, e.Status, e.Err)
	case e.Err == nil:
		return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
	default:
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the failure is likely transient.
func (e *Error) Retryable() bool { return e.Kind == KindNetwork }

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}

// AsError returns err as *Error, wrapping anything foreign as a network failure.
func AsError(err error, url string) *Error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	return &Error{Kind: KindNetwork, URL: url, Err: err}
}
