package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/dmitrijs2005/blobsas/internal/common"
	"github.com/dmitrijs2005/blobsas/internal/sas"
)

// ReplacePolicies overwrites the container's signed identifiers with policies.
func (c *Client) ReplacePolicies(ctx context.Context, name string, policies []sas.StoredPolicy) error {
	acl := make([]*container.SignedIdentifier, 0, len(policies))
	for _, p := range policies {
		acl = append(acl, toSignedIdentifier(p))
	}

	_, err := c.containers(name).SetAccessPolicy(ctx, &container.SetAccessPolicyOptions{ContainerACL: acl})
	if err != nil {
		return fmt.Errorf("set access policy: %w", err)
	}
	return nil
}

// FetchPolicy reads the container's signed identifiers and returns the one
// named id.
func (c *Client) FetchPolicy(ctx context.Context, name, id string) (*sas.StoredPolicy, error) {
	resp, err := c.containers(name).GetAccessPolicy(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("get access policy: %w", err)
	}

	for _, si := range resp.SignedIdentifiers {
		if si == nil || si.ID == nil || *si.ID != id {
			continue
		}
		p, err := fromSignedIdentifier(si)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, common.ErrorNotFound
}

func toSignedIdentifier(p sas.StoredPolicy) *container.SignedIdentifier {
	ap := &container.AccessPolicy{
		Expiry:     to.Ptr(p.Expiry.UTC()),
		Permission: to.Ptr(p.Permissions.String()),
	}
	if !p.Start.IsZero() {
		ap.Start = to.Ptr(p.Start.UTC())
	}
	return &container.SignedIdentifier{ID: to.Ptr(p.ID), AccessPolicy: ap}
}

func fromSignedIdentifier(si *container.SignedIdentifier) (*sas.StoredPolicy, error) {
	p := &sas.StoredPolicy{ID: *si.ID}
	ap := si.AccessPolicy
	if ap == nil {
		return p, nil
	}
	if ap.Start != nil {
		p.Start = ap.Start.UTC()
	}
	if ap.Expiry != nil {
		p.Expiry = ap.Expiry.UTC()
	}
	if ap.Permission != nil {
		perms, err := sas.ParsePermissions(*ap.Permission)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", errUnexpectedACL, p.ID, err)
		}
		p.Permissions = perms
	}
	return p, nil
}
