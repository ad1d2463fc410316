package repository

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyQuery       = errors.New("query must not be empty")
	ErrInvalidDays      = errors.New("days out of range")
	ErrAPIKeyMissing    = errors.New("API key missing")
	ErrLocationNotFound = errors.New("location not found")
)

// weatherapi.com error code for "No matching location found."
const providerCodeNoLocation = 1006

// ErrorKind classifies a failed provider call.
type ErrorKind string

const (
	KindNetwork    ErrorKind = "network"
	KindHTTPStatus ErrorKind = "http_status"
	KindParse      ErrorKind = "parse"
)

// FetchError is returned for every provider failure after the request was attempted.
type FetchError struct {
	Op           string
	Kind         ErrorKind
	StatusCode   int
	ProviderCode int
	Message      string
	Err          error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		if e.Message != "" {
			return fmt.Sprintf("%s: provider returned status %d: %s", e.Op, e.StatusCode, e.Message)
		}
		return fmt.Sprintf("%s: provider returned status %d", e.Op, e.StatusCode)
	case KindParse:
		return fmt.Sprintf("%s: decoding provider response: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: request failed: %v", e.Op, e.Err)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// AsFetchError unwraps err into a *FetchError if it carries one.
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
