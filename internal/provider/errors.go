package provider

import (
	"errors"
	"fmt"
)

var (
	errEndpointUnavailable = errors.New("debugging endpoint unavailable")
	errNotConnected        = errors.New("not connected")
)

// Capture kinds carried by CaptureError so callers can tell which
// sub-capture failed.
const (
	KindScreenshot = "screenshot"
	KindHTML       = "html"
	KindCSS        = "css"
	KindElements   = "elements"
	KindScroll     = "scroll"
	KindComplete   = "complete"
)

// ConnectionError reports an unreachable or dropped debugging endpoint.
type ConnectionError struct {
	Browser string
	Cause   error
}

func (e *ConnectionError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("browser %s: connection failed", e.Browser)
	}
	return fmt.Sprintf("browser %s: connection failed: %v", e.Browser, e.Cause)
}

func (e *ConnectionError) Unwrap() error { return e.Cause }

// TabNotFoundError reports a tab identifier that did not resolve in the
// latest tab listing or attach attempt.
type TabNotFoundError struct {
	TabID string
}

func (e *TabNotFoundError) Error() string {
	return fmt.Sprintf("tab not found: %s", e.TabID)
}

// CaptureError reports a capture or extraction step that failed after the
// tab's existence was confirmed.
type CaptureError struct {
	TabID string
	Kind  string
	Cause error
}

func (e *CaptureError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("capture %s failed on tab %s", e.Kind, e.TabID)
	}
	return fmt.Sprintf("capture %s failed on tab %s: %v", e.Kind, e.TabID, e.Cause)
}

func (e *CaptureError) Unwrap() error { return e.Cause }

// ValidationError reports caller-supplied options that violate a
// precondition. It is raised before any I/O and never wraps a cause.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func connErr(browser string, cause error) error {
	return &ConnectionError{Browser: browser, Cause: cause}
}

func captureErr(tabID, kind string, cause error) error {
	return &CaptureError{TabID: tabID, Kind: kind, Cause: cause}
}

func validationErr(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
