package cleanup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catherinevee/tenantcleaner/internal/detectors"
	"github.com/catherinevee/tenantcleaner/internal/models"
	"github.com/catherinevee/tenantcleaner/internal/openstack"
	"github.com/catherinevee/tenantcleaner/internal/tracking"
)

// fakeCloud is an in-memory tenant implementing all manager interfaces
type fakeCloud struct {
	instances []models.Instance
	images    []models.Image
	keypairs  []models.Keypair

	deleted   []models.Key
	deleteErr map[models.Key]error
	listErr   error
}

func (f *fakeCloud) ListInstances(ctx context.Context) ([]models.Instance, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.instances, nil
}

func (f *fakeCloud) ListImages(ctx context.Context) ([]models.Image, error) {
	return f.images, nil
}

func (f *fakeCloud) ListKeypairs(ctx context.Context) ([]models.Keypair, error) {
	return f.keypairs, nil
}

func (f *fakeCloud) DeleteInstance(ctx context.Context, id models.Identifier) error {
	return f.delete(models.Key{Type: models.ItemTypeInstance, ID: id})
}

func (f *fakeCloud) DeleteImage(ctx context.Context, id models.Identifier) error {
	return f.delete(models.Key{Type: models.ItemTypeImage, ID: id})
}

func (f *fakeCloud) DeleteKeypair(ctx context.Context, id models.Identifier) error {
	return f.delete(models.Key{Type: models.ItemTypeKeypair, ID: id})
}

func (f *fakeCloud) delete(key models.Key) error {
	if err := f.deleteErr[key]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeCloud) clients() openstack.Clients {
	return openstack.Clients{Images: f, Keypairs: f, Instances: f}
}

// staticDetector always votes the same way
type staticDetector struct {
	name    string
	prevent bool
	reason  string
	err     error
}

func (d staticDetector) Name() string { return d.name }

func (d staticDetector) Evaluate(ctx context.Context, item models.Item, env detectors.Env) (detectors.Result, error) {
	if d.err != nil {
		return detectors.Result{}, d.err
	}
	return detectors.Result{Prevent: d.prevent, Reason: d.reason}, nil
}

func newTestEngine(cloud *fakeCloud) (*Engine, *tracking.Tracker) {
	tracker := tracking.New(tracking.NewMemoryStore())
	return New(cloud.clients(), tracker), tracker
}

func TestEngine_ORSemantics(t *testing.T) {
	cloud := &fakeCloud{
		images: []models.Image{{Identifier: "img-1", ImageName: "base"}},
	}
	engine, _ := newTestEngine(cloud)

	plan := Plan{
		models.ItemTypeImage: {
			staticDetector{name: "allow", prevent: false, reason: "nothing to object to"},
			staticDetector{name: "veto", prevent: true, reason: "kept by veto"},
		},
	}

	report, err := engine.Run(context.Background(), plan, Options{})
	require.NoError(t, err)

	require.Len(t, report.Decisions, 1)
	decision := report.Decisions[0]
	assert.False(t, decision.Eligible, "one veto is enough")
	require.Len(t, decision.Outcomes, 2, "all outcomes are retained, not just the veto")
	assert.Equal(t, "nothing to object to", decision.Outcomes[0].Reason)
	assert.Equal(t, "kept by veto", decision.Outcomes[1].Reason)
	assert.Empty(t, cloud.deleted)
	assert.Equal(t, 1, report.Kept)
	assert.Equal(t, 0, report.Eligible)
}

func TestEngine_EligibleItemsAreDeleted(t *testing.T) {
	cloud := &fakeCloud{
		images: []models.Image{{Identifier: "img-1", ImageName: "stale"}},
	}
	engine, _ := newTestEngine(cloud)

	plan := Plan{
		models.ItemTypeImage: {staticDetector{name: "allow", reason: "free to go"}},
	}

	report, err := engine.Run(context.Background(), plan, Options{})
	require.NoError(t, err)

	assert.Equal(t, []models.Key{{Type: models.ItemTypeImage, ID: "img-1"}}, cloud.deleted)
	assert.Equal(t, 1, report.Deleted)
	require.Len(t, report.Decisions, 1)
	assert.True(t, report.Decisions[0].Deleted)
}

func TestEngine_DryRunDeletesNothing(t *testing.T) {
	cloud := &fakeCloud{
		images: []models.Image{{Identifier: "img-1", ImageName: "stale"}},
	}
	engine, _ := newTestEngine(cloud)

	plan := Plan{
		models.ItemTypeImage: {staticDetector{name: "allow", reason: "free to go"}},
	}

	report, err := engine.Run(context.Background(), plan, Options{DryRun: true})
	require.NoError(t, err)

	assert.Empty(t, cloud.deleted)
	assert.Equal(t, 1, report.Eligible)
	assert.Equal(t, 0, report.Deleted)
	assert.True(t, report.DryRun)
}

// An image held only by an instance that is itself deleted this run must be
// freed in the same run: instances are evaluated first and enter the marked
// set before the image's in-use check runs.
func TestEngine_MarkedInstanceFreesImage(t *testing.T) {
	image := models.Image{Identifier: "img-1", ImageName: "base"}
	instance := models.Instance{Identifier: "i-1", InstanceName: "worker", ImageID: "img-1"}
	cloud := &fakeCloud{
		images:    []models.Image{image},
		instances: []models.Instance{instance},
	}
	engine, _ := newTestEngine(cloud)

	plan := Plan{
		models.ItemTypeInstance: {staticDetector{name: "allow", reason: "expired"}},
		models.ItemTypeImage:    {detectors.ImageInUse{}},
	}

	report, err := engine.Run(context.Background(), plan, Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Deleted)
	assert.Contains(t, cloud.deleted, models.Key{Type: models.ItemTypeImage, ID: "img-1"})
	assert.Contains(t, cloud.deleted, models.Key{Type: models.ItemTypeInstance, ID: "i-1"})
}

func TestEngine_LiveInstanceBlocksImage(t *testing.T) {
	image := models.Image{Identifier: "img-1", ImageName: "base"}
	instance := models.Instance{Identifier: "i-1", InstanceName: "worker", ImageID: "img-1"}
	cloud := &fakeCloud{
		images:    []models.Image{image},
		instances: []models.Instance{instance},
	}
	engine, _ := newTestEngine(cloud)

	// Instances are not a cleanup candidate here, so the instance stays and
	// keeps its image alive.
	plan := Plan{
		models.ItemTypeImage: {detectors.ImageInUse{}},
	}

	report, err := engine.Run(context.Background(), plan, Options{})
	require.NoError(t, err)

	assert.Empty(t, cloud.deleted)
	require.Len(t, report.Decisions, 1)
	assert.False(t, report.Decisions[0].Eligible)
}

func TestEngine_DetectorErrorAbortsRun(t *testing.T) {
	detectorErr := errors.New("cannot decide")
	cloud := &fakeCloud{
		images: []models.Image{{Identifier: "img-1"}},
	}
	engine, _ := newTestEngine(cloud)

	plan := Plan{
		models.ItemTypeImage: {staticDetector{name: "broken", err: detectorErr}},
	}

	_, err := engine.Run(context.Background(), plan, Options{})
	assert.ErrorIs(t, err, detectorErr)
	assert.Empty(t, cloud.deleted)
}

func TestEngine_DeleteFailureIsRecordedAndRunContinues(t *testing.T) {
	cloud := &fakeCloud{
		images: []models.Image{
			{Identifier: "img-1", ImageName: "stale"},
			{Identifier: "img-2", ImageName: "staler"},
		},
		deleteErr: map[models.Key]error{
			{Type: models.ItemTypeImage, ID: "img-1"}: errors.New("409 conflict"),
		},
	}
	engine, _ := newTestEngine(cloud)

	plan := Plan{
		models.ItemTypeImage: {staticDetector{name: "allow", reason: "free to go"}},
	}

	report, err := engine.Run(context.Background(), plan, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Deleted)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Decisions, 2)
	assert.Contains(t, report.Decisions[0].DeleteError, "409 conflict")
	assert.False(t, report.Decisions[0].Deleted)
	assert.True(t, report.Decisions[1].Deleted)
}

func TestEngine_TrackerSync(t *testing.T) {
	cloud := &fakeCloud{
		images:   []models.Image{{Identifier: "img-1", Created: time.Now().Add(-time.Hour)}},
		keypairs: []models.Keypair{{Identifier: "kp-1", KeypairName: "kp-1"}},
	}
	engine, tracker := newTestEngine(cloud)

	// A record for an image that no longer exists on the tenant.
	require.NoError(t, tracker.Register(models.Image{Identifier: "img-gone"}))

	_, err := engine.Run(context.Background(), Plan{}, Options{})
	require.NoError(t, err)

	ids, err := tracker.RegisteredIdentifiers(nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.Identifier{"img-1", "kp-1"}, ids,
		"live items registered, vanished records dropped")

	_, ok, err := tracker.Age(models.Image{Identifier: "img-gone"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEngine_UnplannedTypesAreTrackedNotJudged(t *testing.T) {
	cloud := &fakeCloud{
		instances: []models.Instance{{Identifier: "i-1", InstanceName: "worker"}},
	}
	engine, tracker := newTestEngine(cloud)

	report, err := engine.Run(context.Background(), Plan{}, Options{})
	require.NoError(t, err)

	assert.Empty(t, report.Decisions)
	assert.Empty(t, cloud.deleted)

	_, ok, err := tracker.Age(models.Instance{Identifier: "i-1"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEngine_ProgressCallback(t *testing.T) {
	cloud := &fakeCloud{
		images:   []models.Image{{Identifier: "img-1"}},
		keypairs: []models.Keypair{{Identifier: "kp-1", KeypairName: "kp-1"}},
	}
	engine, _ := newTestEngine(cloud)

	var calls int
	var lastTotal int
	_, err := engine.Run(context.Background(), Plan{}, Options{
		Progress: func(done, total int) {
			calls++
			lastTotal = total
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, lastTotal)
}
