package sas

import (
	"fmt"
	"net/url"
	"strings"
)

// Query parameter names.
const (
	ParamVersion        = "sv"
	ParamSignedResource = "sr"
	ParamPermissions    = "sp"
	ParamIdentifier     = "si"
	ParamStart          = "st"
	ParamExpiry         = "se"
	ParamSignature      = "sig"
)

// Token is an issued shared access signature.
type Token struct {
	Signature  []byte
	Constraint AccessConstraint
	Resource   ResourceReference
	Version    string
	// BaseURI is the resource URI without query.
	BaseURI string
}

// Query returns the token parameters.
func (t Token) Query() url.Values {
	q := url.Values{}
	q.Set(ParamVersion, t.Version)
	q.Set(ParamSignedResource, t.Resource.SignedResource())

	c := t.Constraint
	if c.IsPolicyBound() {
		q.Set(ParamIdentifier, c.PolicyID)
	} else {
		q.Set(ParamPermissions, c.Permissions.String())
		if !c.Start.IsZero() {
			q.Set(ParamStart, formatWireTime(c.Start))
		}
		q.Set(ParamExpiry, formatWireTime(c.Expiry))
	}

	q.Set(ParamSignature, EncodeSignature(t.Signature))
	return q
}

// Encode renders the token as a URL-encoded query string without the
// leading "?".
func (t Token) Encode() string {
	return t.Query().Encode()
}

// URI is the resource URI with the token appended.
func (t Token) URI() string {
	return t.BaseURI + "?" + t.Encode()
}

// URIResolver maps a resource to its URI without query.
type URIResolver interface {
	ResolveURI(ref ResourceReference) string
}

// ServiceEndpoint resolves resources as endpoint/container[/key].
type ServiceEndpoint struct {
	base *url.URL
}

func NewServiceEndpoint(raw string) (ServiceEndpoint, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return ServiceEndpoint{}, fmt.Errorf("parse endpoint %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return ServiceEndpoint{}, fmt.Errorf("endpoint %q must be an absolute URL", raw)
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawPath = ""
	return ServiceEndpoint{base: u}, nil
}

// MustServiceEndpoint is NewServiceEndpoint for constant endpoints.
func MustServiceEndpoint(raw string) ServiceEndpoint {
	e, err := NewServiceEndpoint(raw)
	if err != nil {
		panic(err)
	}
	return e
}

func (e ServiceEndpoint) String() string {
	return e.base.String()
}

// ResolveURI appends the container and key to the endpoint path as is.
// Segments are escaped one by one and never cleaned, so the URI names the
// same object as CanonicalPath.
func (e ServiceEndpoint) ResolveURI(ref ResourceReference) string {
	segs := []string{ref.Container}
	if !ref.IsContainer() {
		segs = append(segs, strings.Split(ref.Key, "/")...)
	}
	escaped := make([]string, len(segs))
	for i, seg := range segs {
		escaped[i] = url.PathEscape(seg)
	}

	u := *e.base
	u.Path = e.base.Path + "/" + strings.Join(segs, "/")
	u.RawPath = e.base.EscapedPath() + "/" + strings.Join(escaped, "/")
	return u.String()
}
