// Package openstack talks to the tenant being cleaned. The cleanup engine
// and the detectors only see the manager interfaces defined here; the
// gophercloud implementation lives behind them so tests can substitute
// fakes.
package openstack

import (
	"context"

	"github.com/catherinevee/tenantcleaner/internal/models"
)

// InstanceLister enumerates the tenant's instances. It is the read-only
// slice of InstanceManager that in-use detectors consume. Listing is
// expected to be idempotent; results are not cached at this layer.
type InstanceLister interface {
	ListInstances(ctx context.Context) ([]models.Instance, error)
}

// InstanceManager manages Nova servers
type InstanceManager interface {
	InstanceLister
	DeleteInstance(ctx context.Context, id models.Identifier) error
}

// ImageManager manages Glance images
type ImageManager interface {
	ListImages(ctx context.Context) ([]models.Image, error)
	DeleteImage(ctx context.Context, id models.Identifier) error
}

// KeypairManager manages Nova keypairs
type KeypairManager interface {
	ListKeypairs(ctx context.Context) ([]models.Keypair, error)
	DeleteKeypair(ctx context.Context, id models.Identifier) error
}

// Clients bundles the per-type managers for one tenant
type Clients struct {
	Images    ImageManager
	Keypairs  KeypairManager
	Instances InstanceManager
}
