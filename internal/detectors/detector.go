// Package detectors holds the predicates that vote to prevent deletion of an
// OpenStack item. Every detector is a boolean veto with a human-readable
// reason; there is no scoring or ranking. A single prevent vote keeps the
// item alive.
package detectors

import (
	"context"

	"github.com/catherinevee/tenantcleaner/internal/models"
	"github.com/catherinevee/tenantcleaner/internal/openstack"
	"github.com/catherinevee/tenantcleaner/internal/tracking"
)

// Result is the outcome of one detector run. Reason is always populated,
// whichever way the vote went: reports show why an item was deleted as well
// as why it was kept.
type Result struct {
	Prevent bool
	Reason  string
}

// Env is what a detector may consult. All of it is read-only for detectors:
// a detector must never mutate the tracker or the marked set.
type Env struct {
	Instances openstack.InstanceLister
	Tracker   *tracking.Tracker
	Marked    *models.MarkedSet
}

// Detector votes on whether deleting an item must be prevented.
// Implementations are stateless beyond their construction parameters.
// An error means the detector could not decide; it propagates and aborts
// the cleanup pass rather than being treated as "do not prevent", because a
// silent false negative here destroys data.
type Detector interface {
	Name() string
	Evaluate(ctx context.Context, item models.Item, env Env) (Result, error)
}
