package generator

import (
	"errors"
	"fmt"
)

// UpstreamError is a failure reported by the generative-text service.
// Transient failures (timeouts, rate limits, 5xx) are retried by the Client;
// everything else propagates immediately.
type UpstreamError struct {
	Op        string
	Status    int
	Transient bool
	Err       error
}

func (e *UpstreamError) Error() string {
	kind := "fatal"
	if e.Transient {
		kind = "transient"
	}
	if e.Status > 0 {
		return fmt.Sprintf("upstream %s: %s failure (status %d): %v", e.Op, kind, e.Status, e.Err)
	}
	return fmt.Sprintf("upstream %s: %s failure: %v", e.Op, kind, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IsTransientUpstream reports whether err is an upstream failure worth retrying.
func IsTransientUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.Transient
}

// PlanningError means the planner could not obtain a structurally valid
// outline even after one repair/retry attempt.
type PlanningError struct {
	Reason string
	Err    error
}

func (e *PlanningError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("outline planning failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("outline planning failed: %s", e.Reason)
}

func (e *PlanningError) Unwrap() error { return e.Err }

// DraftingError means one section failed after retries. The whole draft
// operation fails with it; partial articles are never published.
type DraftingError struct {
	Index   int
	Heading string
	Err     error
}

func (e *DraftingError) Error() string {
	return fmt.Sprintf("drafting section %d (%q) failed: %v", e.Index, e.Heading, e.Err)
}

func (e *DraftingError) Unwrap() error { return e.Err }
