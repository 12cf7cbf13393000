// Package azure adapts Azure Blob Storage to the blob store and stored
// policy backend interfaces. Stored policies are the container's signed
// identifiers, so replacing them is a single SetAccessPolicy call and
// concurrent writers are resolved by the service (last writer wins).
package azure

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/dmitrijs2005/blobsas/internal/logging"
	"github.com/dmitrijs2005/blobsas/internal/sas"
)

// blobAPI is the subset of *azblob.Client used here.
type blobAPI interface {
	CreateContainer(ctx context.Context, containerName string, o *azblob.CreateContainerOptions) (azblob.CreateContainerResponse, error)
	UploadBuffer(ctx context.Context, containerName string, blobName string, buffer []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error)
}

// accessPolicyAPI is the subset of *container.Client used here.
type accessPolicyAPI interface {
	SetAccessPolicy(ctx context.Context, o *container.SetAccessPolicyOptions) (container.SetAccessPolicyResponse, error)
	GetAccessPolicy(ctx context.Context, o *container.GetAccessPolicyOptions) (container.GetAccessPolicyResponse, error)
}

var newSharedKeyClient = func(serviceURL, account, key string) (*azblob.Client, error) {
	cred, err := azblob.NewSharedKeyCredential(account, key)
	if err != nil {
		return nil, err
	}
	return azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
}

// Client talks to one storage account.
type Client struct {
	blobs      blobAPI
	containers func(name string) accessPolicyAPI
	endpoint   sas.ServiceEndpoint
	logger     logging.Logger
}

// NewClient connects to the account at serviceURL using its base64 shared key.
func NewClient(serviceURL, account, key string, logger logging.Logger) (*Client, error) {
	endpoint, err := sas.NewServiceEndpoint(serviceURL)
	if err != nil {
		return nil, err
	}

	svc, err := newSharedKeyClient(endpoint.String()+"/", account, key)
	if err != nil {
		return nil, fmt.Errorf("azure client init error: %w", err)
	}

	return &Client{
		blobs: svc,
		containers: func(name string) accessPolicyAPI {
			return svc.ServiceClient().NewContainerClient(name)
		},
		endpoint: endpoint,
		logger:   logger.With("module", "azure_storage"),
	}, nil
}

func (c *Client) ResolveURI(ref sas.ResourceReference) string {
	return c.endpoint.ResolveURI(ref)
}

func (c *Client) EnsureContainer(ctx context.Context, name string) error {
	_, err := c.blobs.CreateContainer(ctx, name, nil)
	if err == nil {
		c.logger.Info(ctx, "container created", "container", name)
		return nil
	}
	if bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		c.logger.Debug(ctx, "container already exists", "container", name)
		return nil
	}
	return fmt.Errorf("create container %q: %w", name, err)
}

func (c *Client) Upload(ctx context.Context, ref sas.ResourceReference, data []byte) error {
	if ref.IsContainer() {
		return fmt.Errorf("upload needs an object reference, got container %q", ref.Container)
	}
	if _, err := c.blobs.UploadBuffer(ctx, ref.Container, ref.Key, data, nil); err != nil {
		return fmt.Errorf("upload %q: %w", ref.Key, err)
	}
	c.logger.Info(ctx, "object uploaded", "container", ref.Container, "object", ref.Key, "size", len(data))
	return nil
}

// errUnexpectedACL is returned when the service sends back a signed
// identifier this package cannot represent.
var errUnexpectedACL = errors.New("unexpected signed identifier")
