// Package execution submits approved decisions to a betting venue and
// reconciles submitted decisions into settlements once the underlying
// games resolve. Two venues exist: a paper venue that records
// submissions locally, and a live venue that signs and posts real
// orders.
package execution

import (
	"context"

	"github.com/edgeline/edgeline/pkg/types"
)

// Venue modes.
const (
	ModePaper = "paper"
	ModeLive  = "live"
)

// Venue accepts stake submissions. A nil-error return with
// Accepted=false means the venue looked at the order and declined it;
// a non-nil error means the order never reached a decision.
type Venue interface {
	Submit(ctx context.Context, d *types.Decision) (*types.SubmissionResult, error)
	Mode() string
	Close() error
}
