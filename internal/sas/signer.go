package sas

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/blobsas/internal/common"
)

// DefaultVersion is the value written to the sv parameter. It labels the
// token format only; see the package doc for what the signature covers.
const DefaultVersion = "2012-02-12"

// Signer computes token signatures with a Credential.
type Signer struct {
	cred    *Credential
	version string
}

func NewSigner(cred *Credential, version string) *Signer {
	if version == "" {
		version = DefaultVersion
	}
	return &Signer{cred: cred, version: version}
}

func (s *Signer) Version() string {
	return s.version
}

// StringToSign returns the canonical string for ref and c. It always has
// six newline-separated fields: path, permissions, start, expiry, policy
// id, version. Fields that do not apply are left empty.
func (s *Signer) StringToSign(ref ResourceReference, c AccessConstraint) (string, error) {
	if err := ref.Validate(); err != nil {
		return "", err
	}
	if ref.Account != s.cred.AccountName() {
		return "", fmt.Errorf("%w: resource account %q does not match credential account %q",
			common.ErrInvalidResourceReference, ref.Account, s.cred.AccountName())
	}

	var perms, start, expiry string
	if !c.IsPolicyBound() {
		perms = c.Permissions.String()
		start = formatWireTime(c.Start)
		expiry = formatWireTime(c.Expiry)
	}

	return strings.Join([]string{
		ref.CanonicalPath(),
		perms,
		start,
		expiry,
		c.PolicyID,
		s.version,
	}, "\n"), nil
}

// Sign returns the raw HMAC signature of the canonical string.
func (s *Signer) Sign(ref ResourceReference, c AccessConstraint) ([]byte, error) {
	str, err := s.StringToSign(ref, c)
	if err != nil {
		return nil, err
	}
	return s.cred.Sign([]byte(str)), nil
}

// EncodeSignature is the base64 form placed in the sig parameter.
func EncodeSignature(sig []byte) string {
	return base64.StdEncoding.EncodeToString(sig)
}
