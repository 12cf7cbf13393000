package sas

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/blobsas/internal/common"
)

// PolicyLookup is the part of PolicyStore the resolver needs.
type PolicyLookup interface {
	GetPolicy(ctx context.Context, container, id string) (StoredPolicy, bool, error)
}

// Resolver turns caller intent into an effective AccessConstraint.
type Resolver struct {
	policies PolicyLookup
	now      func() time.Time
}

func NewResolver(policies PolicyLookup, now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{policies: policies, now: now}
}

// Resolve dispatches on the intent variant.
func (r *Resolver) Resolve(ctx context.Context, ref ResourceReference, in Intent) (AccessConstraint, error) {
	switch v := in.(type) {
	case AdHoc:
		return r.resolveAdHoc(v)
	case PolicyBound:
		return r.resolvePolicyBound(ctx, ref, v)
	default:
		return AccessConstraint{}, fmt.Errorf("%w: unsupported intent %T", common.ErrAmbiguousConstraint, in)
	}
}

func (r *Resolver) resolveAdHoc(in AdHoc) (AccessConstraint, error) {
	if in.Permissions.IsEmpty() {
		return AccessConstraint{}, common.ErrNoPermissions
	}

	start := normalizeTime(in.Start)
	expiry := normalizeTime(in.Expiry)

	if !start.IsZero() && !expiry.IsZero() && !expiry.After(start) {
		return AccessConstraint{}, fmt.Errorf("%w: expiry %s is not after start %s",
			common.ErrInvalidPolicyWindow, formatWireTime(expiry), formatWireTime(start))
	}
	if expiry.IsZero() || !expiry.After(r.now()) {
		return AccessConstraint{}, fmt.Errorf("%w: expiry %q", common.ErrExpiredWindowRequested, formatWireTime(expiry))
	}

	return AccessConstraint{Start: start, Expiry: expiry, Permissions: in.Permissions}, nil
}

func (r *Resolver) resolvePolicyBound(ctx context.Context, ref ResourceReference, in PolicyBound) (AccessConstraint, error) {
	if err := validatePolicyID(in.PolicyID); err != nil {
		return AccessConstraint{}, err
	}

	_, ok, err := r.policies.GetPolicy(ctx, ref.Container, in.PolicyID)
	if err != nil {
		return AccessConstraint{}, err
	}
	if !ok {
		return AccessConstraint{}, fmt.Errorf("%w: %q on container %q", common.ErrPolicyNotFound, in.PolicyID, ref.Container)
	}

	return AccessConstraint{PolicyID: in.PolicyID}, nil
}
