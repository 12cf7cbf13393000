package sas

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/blobsas/internal/common"
)

// MaxStoredPolicies is the service ceiling on stored policies per container.
const MaxStoredPolicies = 5

const maxPolicyIDLen = 64

// StoredPolicy is a named access policy persisted with a container.
type StoredPolicy struct {
	ID          string
	Start       time.Time
	Expiry      time.Time
	Permissions Permissions
}

// Validate checks the id and the window of the policy.
func (p StoredPolicy) Validate() error {
	if err := validatePolicyID(p.ID); err != nil {
		return err
	}
	if p.Expiry.IsZero() {
		return fmt.Errorf("%w: policy %q has no expiry", common.ErrInvalidPolicyWindow, p.ID)
	}
	if !p.Start.IsZero() && !p.Expiry.After(p.Start) {
		return fmt.Errorf("%w: policy %q expires at or before its start", common.ErrInvalidPolicyWindow, p.ID)
	}
	return nil
}

func validatePolicyID(id string) error {
	if id == "" || len(id) > maxPolicyIDLen {
		return fmt.Errorf("%w: %q", common.ErrInvalidPolicyID, id)
	}
	return nil
}

// PolicyBackend is the service that persists stored policies.
//
// ReplacePolicies must apply the whole set or nothing. FetchPolicy returns
// common.ErrorNotFound when the container has no policy with that id.
// Concurrent replacements of the same container are resolved by the
// backend; PolicyStore adds no coordination of its own.
type PolicyBackend interface {
	ReplacePolicies(ctx context.Context, container string, policies []StoredPolicy) error
	FetchPolicy(ctx context.Context, container, id string) (*StoredPolicy, error)
}

// PolicyStore validates policy sets before handing them to the backend.
type PolicyStore struct {
	backend PolicyBackend
}

func NewPolicyStore(backend PolicyBackend) *PolicyStore {
	return &PolicyStore{backend: backend}
}

// SetPolicies replaces every stored policy of container with policies.
// Nothing is written unless the whole set is valid.
func (s *PolicyStore) SetPolicies(ctx context.Context, container string, policies []StoredPolicy) error {
	if err := ValidateContainerName(container); err != nil {
		return err
	}
	if len(policies) > MaxStoredPolicies {
		return fmt.Errorf("%w: %d given, at most %d allowed", common.ErrTooManyPolicies, len(policies), MaxStoredPolicies)
	}

	seen := make(map[string]struct{}, len(policies))
	normalized := make([]StoredPolicy, 0, len(policies))
	for _, p := range policies {
		if err := p.Validate(); err != nil {
			return err
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("%w: duplicate id %q", common.ErrInvalidPolicyID, p.ID)
		}
		seen[p.ID] = struct{}{}

		p.Start = normalizeTime(p.Start)
		p.Expiry = normalizeTime(p.Expiry)
		normalized = append(normalized, p)
	}

	if err := s.backend.ReplacePolicies(ctx, container, normalized); err != nil {
		return fmt.Errorf("replace policies on %q: %w", container, err)
	}
	return nil
}

// GetPolicy looks up a stored policy. A missing policy is reported as
// ok == false, not as an error.
func (s *PolicyStore) GetPolicy(ctx context.Context, container, id string) (StoredPolicy, bool, error) {
	p, err := s.backend.FetchPolicy(ctx, container, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return StoredPolicy{}, false, nil
		}
		return StoredPolicy{}, false, fmt.Errorf("fetch policy %q on %q: %w", id, container, err)
	}
	return *p, true, nil
}
