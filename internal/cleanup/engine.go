// Package cleanup runs one pass over a tenant: sync the tracker with what
// exists, let the detectors vote on every candidate item, and delete what
// nothing vetoed.
package cleanup

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/catherinevee/tenantcleaner/internal/detectors"
	"github.com/catherinevee/tenantcleaner/internal/logger"
	"github.com/catherinevee/tenantcleaner/internal/models"
	"github.com/catherinevee/tenantcleaner/internal/openstack"
	"github.com/catherinevee/tenantcleaner/internal/tracking"
)

// Plan maps each item type to the detectors that guard it, in evaluation
// order. Types with no entry are tracked but never considered for deletion.
type Plan map[models.ItemType][]detectors.Detector

// Options configures a single run
type Options struct {
	// DryRun evaluates and reports but deletes nothing.
	DryRun bool
	// Progress, if set, is called after each item is evaluated.
	Progress func(done, total int)
}

// Engine evaluates cleanup passes. It is single-threaded per run: items are
// evaluated one at a time, detectors one at a time, so the marked set never
// needs locking and evaluation order is deterministic.
type Engine struct {
	clients openstack.Clients
	tracker *tracking.Tracker
	log     logger.Logger
}

// New creates a cleanup engine
func New(clients openstack.Clients, tracker *tracking.Tracker) *Engine {
	return &Engine{
		clients: clients,
		tracker: tracker,
		log:     logger.New("cleanup"),
	}
}

// Run executes one cleanup pass. Detector and tracker failures abort the
// pass; per-item deletion failures are recorded in the report and do not.
func (e *Engine) Run(ctx context.Context, plan Plan, opts Options) (*Report, error) {
	report := &Report{
		RunID:     uuid.New().String(),
		DryRun:    opts.DryRun,
		StartedAt: time.Now(),
	}
	log := e.log.WithFields(logger.String("run_id", report.RunID))
	log.Info("cleanup run started", logger.Bool("dry_run", opts.DryRun))

	instances, err := e.clients.Instances.ListInstances(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing instances: %w", err)
	}
	images, err := e.clients.Images.ListImages(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing images: %w", err)
	}
	keypairs, err := e.clients.Keypairs.ListKeypairs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing keypairs: %w", err)
	}

	// Instances go first so that images and keypairs held only by
	// instances marked this run are freed in the same pass.
	var items []models.Item
	items = appendSorted(items, instances)
	items = appendSorted(items, images)
	items = appendSorted(items, keypairs)

	if err := e.syncTracker(items); err != nil {
		return nil, err
	}

	marked := models.NewMarkedSet()
	env := detectors.Env{
		Instances: e.clients.Instances,
		Tracker:   e.tracker,
		Marked:    marked,
	}

	var eligible []models.Item
	for i, item := range items {
		detectorList, candidate := plan[item.Type()]
		if candidate {
			decision, err := e.evaluate(ctx, item, detectorList, env)
			if err != nil {
				return nil, err
			}
			if decision.Eligible {
				marked.Add(item)
				eligible = append(eligible, item)
				report.Eligible++
			} else {
				report.Kept++
			}
			report.Decisions = append(report.Decisions, decision)
		}
		if opts.Progress != nil {
			opts.Progress(i+1, len(items))
		}
	}

	if !opts.DryRun {
		e.deleteEligible(ctx, eligible, report, log)
	}

	report.Duration = time.Since(report.StartedAt)
	log.Info("cleanup run finished",
		logger.Int("candidates", len(report.Decisions)),
		logger.Int("eligible", report.Eligible),
		logger.Int("deleted", report.Deleted),
		logger.Int("failed", report.Failed),
		logger.Duration("duration", report.Duration),
	)
	return report, nil
}

// evaluate runs every detector for the item and ORs the prevent votes. All
// outcomes are kept for the report.
func (e *Engine) evaluate(ctx context.Context, item models.Item, detectorList []detectors.Detector, env detectors.Env) (Decision, error) {
	decision := Decision{
		Item: ItemSummary{
			Type: item.Type(),
			ID:   item.ID(),
			Name: item.Name(),
		},
		Eligible: true,
	}
	for _, detector := range detectorList {
		result, err := detector.Evaluate(ctx, item, env)
		if err != nil {
			return Decision{}, fmt.Errorf("evaluating %s on %s: %w",
				detector.Name(), models.HumanID(item), err)
		}
		decision.Outcomes = append(decision.Outcomes, Outcome{
			Detector: detector.Name(),
			Prevent:  result.Prevent,
			Reason:   result.Reason,
		})
		if result.Prevent {
			decision.Eligible = false
		}
	}
	e.log.Debug("item evaluated",
		logger.String("item", models.HumanID(item)),
		logger.Bool("eligible", decision.Eligible),
	)
	return decision, nil
}

// syncTracker registers everything currently on the tenant and unregisters
// records for items that have vanished, so ages stay meaningful.
func (e *Engine) syncTracker(items []models.Item) error {
	if err := e.tracker.Register(items...); err != nil {
		return err
	}

	live := make(map[models.Key]struct{}, len(items))
	for _, item := range items {
		live[models.KeyOf(item)] = struct{}{}
	}

	var vanished []models.Item
	for _, itemType := range []models.ItemType{models.ItemTypeInstance, models.ItemTypeImage, models.ItemTypeKeypair} {
		ids, err := e.tracker.RegisteredIdentifiers(&itemType)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if _, ok := live[models.Key{Type: itemType, ID: id}]; !ok {
				vanished = append(vanished, stubItem(itemType, id))
			}
		}
	}
	if len(vanished) == 0 {
		return nil
	}
	e.log.Debug("unregistering vanished items", logger.Int("count", len(vanished)))
	return e.tracker.Unregister(vanished...)
}

// deleteEligible deletes the items nothing vetoed, in evaluation order.
// Failures are recorded per item; the tracker record stays until the item
// is confirmed gone by a later enumeration.
func (e *Engine) deleteEligible(ctx context.Context, eligible []models.Item, report *Report, log logger.Logger) {
	byKey := make(map[models.Key]*Decision, len(report.Decisions))
	for i := range report.Decisions {
		decision := &report.Decisions[i]
		byKey[models.Key{Type: decision.Item.Type, ID: decision.Item.ID}] = decision
	}

	for _, item := range eligible {
		err := e.deleteItem(ctx, item)
		decision := byKey[models.KeyOf(item)]
		if err != nil {
			report.Failed++
			decision.DeleteError = err.Error()
			log.Error("failed to delete item",
				logger.String("item", models.HumanID(item)),
				logger.Error(err),
			)
			continue
		}
		report.Deleted++
		decision.Deleted = true
		log.Info("deleted item", logger.String("item", models.HumanID(item)))
	}
}

func (e *Engine) deleteItem(ctx context.Context, item models.Item) error {
	switch item.Type() {
	case models.ItemTypeInstance:
		return e.clients.Instances.DeleteInstance(ctx, item.ID())
	case models.ItemTypeImage:
		return e.clients.Images.DeleteImage(ctx, item.ID())
	case models.ItemTypeKeypair:
		return e.clients.Keypairs.DeleteKeypair(ctx, item.ID())
	default:
		return fmt.Errorf("no manager for item type %q", item.Type())
	}
}

// stubItem builds a minimal typed item for identity-only operations such as
// unregistering a vanished record.
func stubItem(itemType models.ItemType, id models.Identifier) models.Item {
	switch itemType {
	case models.ItemTypeImage:
		return models.Image{Identifier: id}
	case models.ItemTypeKeypair:
		return models.Keypair{Identifier: id, KeypairName: id.String()}
	default:
		return models.Instance{Identifier: id}
	}
}

func appendSorted[T models.Item](items []models.Item, group []T) []models.Item {
	sort.Slice(group, func(i, j int) bool { return group[i].ID() < group[j].ID() })
	for _, item := range group {
		items = append(items, item)
	}
	return items
}
