package openstack

import (
	"context"
	"fmt"

	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack"
	"github.com/gophercloud/gophercloud/v2/openstack/compute/v2/keypairs"
	"github.com/gophercloud/gophercloud/v2/openstack/compute/v2/servers"
	"github.com/gophercloud/gophercloud/v2/openstack/image/v2/images"

	"github.com/catherinevee/tenantcleaner/internal/models"
)

// Credentials identifies one OpenStack tenant
type Credentials struct {
	AuthURL     string `json:"auth_url" yaml:"auth_url" validate:"required,url"`
	Username    string `json:"username" yaml:"username" validate:"required"`
	Password    string `json:"password" yaml:"password" validate:"required"`
	ProjectName string `json:"project_name" yaml:"project_name" validate:"required"`
	DomainName  string `json:"domain_name" yaml:"domain_name"`
	Region      string `json:"region" yaml:"region"`
}

// Client implements the manager interfaces over gophercloud
type Client struct {
	compute *gophercloud.ServiceClient
	image   *gophercloud.ServiceClient
}

// NewClient authenticates against the tenant and builds service clients
func NewClient(ctx context.Context, creds Credentials) (*Client, error) {
	domain := creds.DomainName
	if domain == "" {
		domain = "Default"
	}
	provider, err := openstack.AuthenticatedClient(ctx, gophercloud.AuthOptions{
		IdentityEndpoint: creds.AuthURL,
		Username:         creds.Username,
		Password:         creds.Password,
		TenantName:       creds.ProjectName,
		DomainName:       domain,
		AllowReauth:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}

	endpoint := gophercloud.EndpointOpts{Region: creds.Region}
	compute, err := openstack.NewComputeV2(provider, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create compute client: %w", err)
	}
	image, err := openstack.NewImageV2(provider, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create image client: %w", err)
	}

	return &Client{compute: compute, image: image}, nil
}

// Managers returns the client bundled as per-type managers
func (c *Client) Managers() Clients {
	return Clients{Images: c, Keypairs: c, Instances: c}
}

// ListInstances lists the tenant's servers
func (c *Client) ListInstances(ctx context.Context) ([]models.Instance, error) {
	pages, err := servers.List(c.compute, servers.ListOpts{}).AllPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}
	all, err := servers.ExtractServers(pages)
	if err != nil {
		return nil, fmt.Errorf("failed to extract instances: %w", err)
	}

	instances := make([]models.Instance, 0, len(all))
	for _, server := range all {
		instances = append(instances, models.Instance{
			Identifier:   models.Identifier(server.ID),
			InstanceName: server.Name,
			Created:      server.Created,
			ImageID:      imageRef(server),
			KeyName:      server.KeyName,
		})
	}
	return instances, nil
}

// imageRef extracts the boot image id; volume-booted servers have none.
func imageRef(server servers.Server) models.Identifier {
	if id, ok := server.Image["id"].(string); ok {
		return models.Identifier(id)
	}
	return ""
}

// DeleteInstance deletes a server
func (c *Client) DeleteInstance(ctx context.Context, id models.Identifier) error {
	if err := servers.Delete(ctx, c.compute, id.String()).ExtractErr(); err != nil {
		return fmt.Errorf("failed to delete instance %s: %w", id, err)
	}
	return nil
}

// ListImages lists the tenant's images
func (c *Client) ListImages(ctx context.Context) ([]models.Image, error) {
	pages, err := images.List(c.image, images.ListOpts{}).AllPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	all, err := images.ExtractImages(pages)
	if err != nil {
		return nil, fmt.Errorf("failed to extract images: %w", err)
	}

	result := make([]models.Image, 0, len(all))
	for _, image := range all {
		result = append(result, models.Image{
			Identifier: models.Identifier(image.ID),
			ImageName:  image.Name,
			Created:    image.CreatedAt,
			Protected:  image.Protected,
		})
	}
	return result, nil
}

// DeleteImage deletes an image
func (c *Client) DeleteImage(ctx context.Context, id models.Identifier) error {
	if err := images.Delete(ctx, c.image, id.String()).ExtractErr(); err != nil {
		return fmt.Errorf("failed to delete image %s: %w", id, err)
	}
	return nil
}

// ListKeypairs lists the tenant's keypairs
func (c *Client) ListKeypairs(ctx context.Context) ([]models.Keypair, error) {
	pages, err := keypairs.List(c.compute, nil).AllPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list keypairs: %w", err)
	}
	all, err := keypairs.ExtractKeyPairs(pages)
	if err != nil {
		return nil, fmt.Errorf("failed to extract keypairs: %w", err)
	}

	result := make([]models.Keypair, 0, len(all))
	for _, keypair := range all {
		result = append(result, models.Keypair{
			// Nova identifies keypairs by name.
			Identifier:  models.Identifier(keypair.Name),
			KeypairName: keypair.Name,
		})
	}
	return result, nil
}

// DeleteKeypair deletes a keypair
func (c *Client) DeleteKeypair(ctx context.Context, id models.Identifier) error {
	if err := keypairs.Delete(ctx, c.compute, id.String(), nil).ExtractErr(); err != nil {
		return fmt.Errorf("failed to delete keypair %s: %w", id, err)
	}
	return nil
}
