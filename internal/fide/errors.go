package fide

import (
	"fmt"
	"time"
)

// FetchError reports a transport failure or a non-2xx response
type FetchError struct {
	URL        string
	StatusCode int // 0 for transport errors
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError means a page was fetched but its structure could not be trusted
type ParseError struct {
	Month  time.Time // zero for non-calculation pages
	Reason string
}

func (e *ParseError) Error() string {
	if e.Month.IsZero() {
		return "parse: " + e.Reason
	}
	return fmt.Sprintf("parse %s: %s", e.Month.Format("2006-01"), e.Reason)
}

// MissingFieldError marks a single unusable game row. It never escapes the
// parser; the row is dropped and logged.
type MissingFieldError struct {
	Field string
	Row   int
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("row %d: missing or malformed %s", e.Row, e.Field)
}
