package cleanup

import (
	"time"

	"github.com/catherinevee/tenantcleaner/internal/models"
)

// ItemSummary identifies an item in a report without holding the full
// variant
type ItemSummary struct {
	Type models.ItemType   `json:"type"`
	ID   models.Identifier `json:"id"`
	Name string            `json:"name"`
}

// Outcome is one detector's vote on one item
type Outcome struct {
	Detector string `json:"detector"`
	Prevent  bool   `json:"prevent"`
	Reason   string `json:"reason"`
}

// Decision is the full verdict for one item. Every detector outcome is
// retained, not just the first veto, so reports can show the complete
// reasoning.
type Decision struct {
	Item        ItemSummary `json:"item"`
	Eligible    bool        `json:"eligible"`
	Outcomes    []Outcome   `json:"outcomes"`
	Deleted     bool        `json:"deleted"`
	DeleteError string      `json:"delete_error,omitempty"`
}

// Prevented returns true if any detector vetoed deletion
func (d Decision) Prevented() bool {
	return !d.Eligible
}

// Report is the outcome of one cleanup pass
type Report struct {
	RunID     string        `json:"run_id"`
	DryRun    bool          `json:"dry_run"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Decisions []Decision    `json:"decisions"`
	Eligible  int           `json:"eligible"`
	Kept      int           `json:"kept"`
	Deleted   int           `json:"deleted"`
	Failed    int           `json:"failed"`
}
