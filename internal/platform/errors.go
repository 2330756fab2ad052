package platform

import (
	"context"
	"errors"
	"fmt"

	"github.com/hoanghai1803/murmur/internal/models"
)

// Kind classifies a platform client failure. All kinds are non-fatal to the
// collection loop: the orchestrator records them per source per attempt and
// the sibling source is never affected.
type Kind string

const (
	KindQuota     Kind = "quota"
	KindNetwork   Kind = "network"
	KindMalformed Kind = "malformed"
	KindTimeout   Kind = "timeout"
)

// Error is the typed failure returned by every platform client operation.
type Error struct {
	Source models.Source
	Kind   Kind
	Op     string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Source, e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Source, e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError returns the *Error wrapped anywhere in err's chain, if any.
func AsError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// TransportKind classifies an error from an HTTP round trip: context
// expiry maps to KindTimeout, everything else to KindNetwork.
func TransportKind(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	return KindNetwork
}
