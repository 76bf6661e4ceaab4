package detectors

import (
	"context"
	"fmt"

	"github.com/catherinevee/tenantcleaner/internal/models"
)

// ProtectedImage prevents deletion of images carrying the Glance protected
// flag. Pure: no cloud queries.
type ProtectedImage struct{}

func (ProtectedImage) Name() string { return "protected-image" }

func (ProtectedImage) Evaluate(ctx context.Context, item models.Item, env Env) (Result, error) {
	image, ok := item.(models.Image)
	if !ok {
		return Result{}, fmt.Errorf("protected-image detector given %s", models.HumanID(item))
	}
	if image.Protected {
		return Result{Prevent: true, Reason: "Image is marked on OpenStack as protected"}, nil
	}
	return Result{Prevent: false, Reason: "Image is not marked on OpenStack as protected"}, nil
}

// ImageInUse prevents deletion of an image some instance was booted from.
// An instance that is itself already marked for deletion this run does not
// block the image.
type ImageInUse struct{}

func (ImageInUse) Name() string { return "image-in-use" }

func (ImageInUse) Evaluate(ctx context.Context, item models.Item, env Env) (Result, error) {
	image, ok := item.(models.Image)
	if !ok {
		return Result{}, fmt.Errorf("image-in-use detector given %s", models.HumanID(item))
	}
	instances, err := env.Instances.ListInstances(ctx)
	if err != nil {
		// Never assume "not in use" on a failed query.
		return Result{}, fmt.Errorf("image-in-use detector: %w", err)
	}
	for _, instance := range instances {
		if instance.ImageID == image.Identifier && !env.Marked.Contains(instance) {
			return Result{
				Prevent: true,
				Reason: fmt.Sprintf("Image cannot be deleted because it is in use by the instance %s",
					models.HumanID(instance)),
			}, nil
		}
	}
	return Result{Prevent: false, Reason: "No instances are using the image"}, nil
}

// KeypairInUse prevents deletion of a keypair referenced by an instance's
// key_name, with the same already-marked carve-out as ImageInUse.
type KeypairInUse struct{}

func (KeypairInUse) Name() string { return "keypair-in-use" }

func (KeypairInUse) Evaluate(ctx context.Context, item models.Item, env Env) (Result, error) {
	keypair, ok := item.(models.Keypair)
	if !ok {
		return Result{}, fmt.Errorf("keypair-in-use detector given %s", models.HumanID(item))
	}
	instances, err := env.Instances.ListInstances(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("keypair-in-use detector: %w", err)
	}
	for _, instance := range instances {
		if instance.KeyName == keypair.Name() && !env.Marked.Contains(instance) {
			return Result{
				Prevent: true,
				Reason:  fmt.Sprintf("Key pair in use by instance %s", models.HumanID(instance)),
			}, nil
		}
	}
	return Result{Prevent: false, Reason: "No instances are using the key pair"}, nil
}
