package sas

import (
	"context"
	"time"

	"github.com/dmitrijs2005/blobsas/internal/logging"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/dmitrijs2005/blobsas/internal/sas"

// Issuer is the entry point for issuing tokens and managing the stored
// policies they may refer to.
type Issuer struct {
	cred     *Credential
	policies *PolicyStore
	uris     URIResolver
	resolver *Resolver
	signer   *Signer
	logger   logging.Logger
	tracer   trace.Tracer
	now      func() time.Time
	version  string
}

type Option func(*Issuer)

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

func WithVersion(v string) Option {
	return func(i *Issuer) { i.version = v }
}

func WithLogger(l logging.Logger) Option {
	return func(i *Issuer) { i.logger = l }
}

func WithTracer(t trace.Tracer) Option {
	return func(i *Issuer) { i.tracer = t }
}

func NewIssuer(cred *Credential, policies *PolicyStore, uris URIResolver, opts ...Option) *Issuer {
	i := &Issuer{
		cred:     cred,
		policies: policies,
		uris:     uris,
		now:      time.Now,
		version:  DefaultVersion,
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.logger == nil {
		i.logger = logging.Nop()
	}
	if i.tracer == nil {
		i.tracer = otel.Tracer(tracerName)
	}
	i.logger = i.logger.With("module", "sas_issuer", "account", cred.AccountName(), "key", cred.Fingerprint())
	i.resolver = NewResolver(policies, i.now)
	i.signer = NewSigner(cred, i.version)
	return i
}

// IssueAdHocToken issues a token whose window and permissions are embedded
// in the token itself.
func (i *Issuer) IssueAdHocToken(ctx context.Context, ref ResourceReference, c AdHoc) (Token, error) {
	return i.issue(ctx, ref, func() (Intent, error) { return c, nil })
}

// IssuePolicyToken issues a token bound to the stored policy policyID of
// the resource's container.
func (i *Issuer) IssuePolicyToken(ctx context.Context, ref ResourceReference, policyID string) (Token, error) {
	return i.issue(ctx, ref, func() (Intent, error) { return PolicyBound{PolicyID: policyID}, nil })
}

// Issue issues a token from a raw constraint, which must be either ad-hoc
// or policy-bound.
func (i *Issuer) Issue(ctx context.Context, ref ResourceReference, c AccessConstraint) (Token, error) {
	return i.issue(ctx, ref, c.Intent)
}

func (i *Issuer) issue(ctx context.Context, ref ResourceReference, intent func() (Intent, error)) (Token, error) {
	ctx, span := i.tracer.Start(ctx, "sas.Issue", trace.WithAttributes(
		attribute.String("sas.container", ref.Container),
		attribute.String("sas.signed_resource", ref.SignedResource()),
	))
	defer span.End()

	fail := func(err error) (Token, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		i.logger.Warn(ctx, "token request rejected", "container", ref.Container, "object", ref.Key, "error", err)
		return Token{}, err
	}

	in, err := intent()
	if err != nil {
		return fail(err)
	}

	if err := ref.Validate(); err != nil {
		return fail(err)
	}

	c, err := i.resolver.Resolve(ctx, ref, in)
	if err != nil {
		return fail(err)
	}

	sig, err := i.signer.Sign(ref, c)
	if err != nil {
		return fail(err)
	}

	t := Token{
		Signature:  sig,
		Constraint: c,
		Resource:   ref,
		Version:    i.signer.Version(),
		BaseURI:    i.uris.ResolveURI(ref),
	}

	args := []any{
		"issue_id", uuid.NewString(),
		"container", ref.Container,
		"sr", ref.SignedResource(),
	}
	if !ref.IsContainer() {
		args = append(args, "object", ref.Key)
	}
	if c.IsPolicyBound() {
		args = append(args, "policy", c.PolicyID)
		span.SetAttributes(attribute.String("sas.policy_id", c.PolicyID))
	} else {
		args = append(args, "permissions", c.Permissions.String(), "expiry", formatWireTime(c.Expiry))
	}
	i.logger.Info(ctx, "token issued", args...)

	return t, nil
}

// SetContainerPolicies replaces the stored policies of container.
func (i *Issuer) SetContainerPolicies(ctx context.Context, container string, policies []StoredPolicy) error {
	ctx, span := i.tracer.Start(ctx, "sas.SetContainerPolicies", trace.WithAttributes(
		attribute.String("sas.container", container),
		attribute.Int("sas.policy_count", len(policies)),
	))
	defer span.End()

	if err := i.policies.SetPolicies(ctx, container, policies); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		i.logger.Error(ctx, "replacing stored policies failed", "container", container, "error", err)
		return err
	}

	ids := make([]string, 0, len(policies))
	for _, p := range policies {
		ids = append(ids, p.ID)
	}
	i.logger.Info(ctx, "stored policies replaced", "container", container, "policies", ids)
	return nil
}

// GetContainerPolicy looks up a stored policy of container.
func (i *Issuer) GetContainerPolicy(ctx context.Context, container, id string) (StoredPolicy, bool, error) {
	ctx, span := i.tracer.Start(ctx, "sas.GetContainerPolicy", trace.WithAttributes(
		attribute.String("sas.container", container),
		attribute.String("sas.policy_id", id),
	))
	defer span.End()

	p, ok, err := i.policies.GetPolicy(ctx, container, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return p, ok, err
}
