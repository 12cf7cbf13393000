package sas

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/blobsas/internal/common"
)

// DefaultClockSkew is how far callers usually back-date a start time computed
// from "now" so that a verifier with a slightly slow clock accepts the token.
const DefaultClockSkew = 5 * time.Minute

// BackdateStart returns now minus skew, in UTC.
func BackdateStart(now time.Time, skew time.Duration) time.Time {
	return now.Add(-skew).UTC()
}

// AccessConstraint is the effective, signable constraint set of a token.
// Zero times are absent. When PolicyID is set the window and permissions
// come from the stored policy at verification time.
type AccessConstraint struct {
	Start       time.Time
	Expiry      time.Time
	Permissions Permissions
	PolicyID    string
}

// IsPolicyBound reports whether the constraint refers to a stored policy.
func (c AccessConstraint) IsPolicyBound() bool {
	return c.PolicyID != ""
}

func (c AccessConstraint) hasExplicitFields() bool {
	return !c.Start.IsZero() || !c.Expiry.IsZero() || !c.Permissions.IsEmpty()
}

// Intent picks the resolution path of c. Mixing a policy id with explicit
// window or permission fields is rejected.
func (c AccessConstraint) Intent() (Intent, error) {
	if c.IsPolicyBound() {
		if c.hasExplicitFields() {
			return nil, fmt.Errorf("%w: policy %q combined with explicit fields", common.ErrAmbiguousConstraint, c.PolicyID)
		}
		return PolicyBound{PolicyID: c.PolicyID}, nil
	}
	return AdHoc{Start: c.Start, Expiry: c.Expiry, Permissions: c.Permissions}, nil
}

// Intent is what the caller asks a token to grant: either AdHoc or PolicyBound.
type Intent interface {
	isIntent()
}

// AdHoc carries the window and permissions directly in the token.
type AdHoc struct {
	Start       time.Time
	Expiry      time.Time
	Permissions Permissions
}

// PolicyBound defers the window and permissions to a stored policy.
type PolicyBound struct {
	PolicyID string
}

func (AdHoc) isIntent()       {}
func (PolicyBound) isIntent() {}

// wireTimeLayout is the precision and layout timestamps are signed and sent with.
const wireTimeLayout = "2006-01-02T15:04:05Z"

func formatWireTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(wireTimeLayout)
}

func normalizeTime(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC().Truncate(time.Second)
}
