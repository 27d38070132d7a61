package scraper

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrNotReady       = errors.New("match not parsed yet")
	ErrTimeout        = errors.New("timed out")
	ErrMissingElement = errors.New("missing page element")
	ErrBotProtection  = errors.New("blocked by bot protection")
	ErrClosed         = errors.New("scraper is closed")

	// ErrUnexpectedResponse is an upstream JSON answer that does not have
	// the documented shape.
	ErrUnexpectedResponse = errors.New("unexpected upstream response")
)

// HTTPStatusError is a non-200 answer from csgostats.gg, either to a page
// navigation or to an in-page request.
type HTTPStatusError struct {
	StatusCode    int
	StatusText    string
	BotProtection bool
}

func (e *HTTPStatusError) Error() string {
	msg := fmt.Sprintf("csgostats.gg returned a non-200 response: %d", e.StatusCode)
	if e.BotProtection {
		msg += " (bot protection challenge)"
	}
	return msg
}

func (e *HTTPStatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrBotProtection:
		return e.BotProtection
	}
	return false
}

// ValidationError is bad caller input, either rejected locally or reported
// by the site's error banner.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NotReadyError means the share code is known but its demo has not been
// parsed upstream yet. Retrying later may succeed.
type NotReadyError struct {
	ShareCode string
	Status    string
}

func (e *NotReadyError) Error() string {
	if e.Status == "" {
		return "match not parsed yet"
	}
	return fmt.Sprintf("match not parsed yet: %s", e.Status)
}

func (e *NotReadyError) Is(target error) bool {
	return target == ErrNotReady
}

// TimeoutError is returned when page data never became available.
type TimeoutError struct {
	What    string
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("timeout after %s waiting for %s", e.Timeout, e.What)
	}
	return fmt.Sprintf("timeout after %s waiting for %s: %v", e.Timeout, e.What, e.Err)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

func missing(selector string) error {
	return fmt.Errorf("%w: %s", ErrMissingElement, selector)
}
