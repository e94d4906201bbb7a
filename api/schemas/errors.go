package schemas

import (
	"errors"
	"fmt"
)

// Probe error taxonomy. Backends wrap their failures in a ProbeError carrying one of
// these sentinels so the discovery heuristics can decide what to do next.
var (
	// ErrNavigation means the page failed to load. Fatal for one attempt only.
	ErrNavigation = errors.New("navigation failed")
	// ErrElementNotFound means a query or handle no longer resolves to an element.
	ErrElementNotFound = errors.New("element not found")
	// ErrNotInteractable means the element exists but refused the interaction.
	ErrNotInteractable = errors.New("element not interactable")
	// ErrUnsupported means the backend cannot perform the operation at all.
	ErrUnsupported = errors.New("operation not supported by backend")
	// ErrDriverLaunch means no working browser or driver could be started.
	ErrDriverLaunch = errors.New("no working browser/driver found")
)

// ProbeError records which session operation failed and why.
type ProbeError struct {
	Op  string
	Err error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// NewProbeError wraps cause under the given sentinel kind. The result matches both
// kind and cause with errors.Is.
func NewProbeError(op string, kind, cause error) error {
	if cause == nil {
		return &ProbeError{Op: op, Err: kind}
	}
	if errors.Is(cause, kind) {
		return &ProbeError{Op: op, Err: cause}
	}
	return &ProbeError{Op: op, Err: fmt.Errorf("%w: %w", kind, cause)}
}
