// Package sas issues shared access signatures for blob storage containers
// and objects.
//
// A token is produced by a fixed pipeline: caller intent (ad-hoc constraints
// or a stored policy reference) is resolved into an AccessConstraint, the
// constraint is signed together with the resource path using the account
// key, and the result is rendered as query parameters appended to the
// resource URI. Issuance holds no mutable state and is safe for concurrent
// use; the only operation with external side effects is replacing the
// stored policies of a container.
//
// The signed string is this package's own six-field layout (path,
// permissions, start, expiry, policy id, version). It is not the storage
// service's string-to-sign for DefaultVersion, so Azure Storage and Azurite
// will reject these tokens. Only a verifier that rebuilds the same layout
// with the account key can check them.
package sas

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/dmitrijs2005/blobsas/internal/common"
	"golang.org/x/crypto/blake2b"
)

var accountNameRe = regexp.MustCompile(`^[a-z0-9]{3,24}$`)

// Credential holds the storage account name and the key used to sign
// tokens. The key never leaves the Credential.
type Credential struct {
	account string
	key     []byte
}

// NewCredential validates the account name and copies key.
func NewCredential(account string, key []byte) (*Credential, error) {
	if !accountNameRe.MatchString(account) {
		return nil, fmt.Errorf("%w: malformed account name %q", common.ErrInvalidCredential, account)
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: empty signing key", common.ErrInvalidCredential)
	}

	k := make([]byte, len(key))
	copy(k, key)

	return &Credential{account: account, key: k}, nil
}

// CredentialFromBase64 builds a Credential from the base64 account key
// found in storage connection strings.
func CredentialFromBase64(account, encodedKey string) (*Credential, error) {
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("%w: account key is not base64: %v", common.ErrInvalidCredential, err)
	}
	// NewCredential keeps its own copy.
	defer clear(key)
	return NewCredential(account, key)
}

// AccountName returns the storage account the credential belongs to.
func (c *Credential) AccountName() string {
	return c.account
}

// Sign returns HMAC-SHA256(key, data).
func (c *Credential) Sign(data []byte) []byte {
	mac := hmac.New(sha256.New, c.key)
	mac.Write(data)
	return mac.Sum(nil)
}

// Fingerprint identifies the key in logs without revealing it.
func (c *Credential) Fingerprint() string {
	sum := blake2b.Sum256(c.key)
	return hex.EncodeToString(sum[:8])
}

// String keeps the key out of fmt output.
func (c *Credential) String() string {
	return fmt.Sprintf("Credential{account=%s, key=%s}", c.account, c.Fingerprint())
}

// LogValue keeps the key out of slog output.
func (c *Credential) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("account", c.account),
		slog.String("key_fingerprint", c.Fingerprint()),
	)
}
