package client

import (
	"errors"
	"fmt"
)

// ErrorClass represents a classification of page fetch failures.
type ErrorClass string

const (
	// ClassTransport represents network, DNS, TLS and timeout failures.
	ClassTransport ErrorClass = "transport"

	// ClassHTTPStatus represents non-2xx responses.
	ClassHTTPStatus ErrorClass = "http_status"

	// ClassDecode represents response bodies that are not a JSON object.
	ClassDecode ErrorClass = "decode"
)

// FetchError is returned by FetchPage for every failure of a page request.
// All classes are terminal for a scrape run.
type FetchError struct {
	Class      ErrorClass
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s error", e.Class)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// ClassOf returns the class of a fetch error, or "" for other errors.
func ClassOf(err error) ErrorClass {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Class
	}
	return ""
}
