package sas

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/blobsas/internal/common"
)

const maxObjectKeyLen = 1024

var containerNameRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9]|-[a-z0-9])*$`)

// ResourceReference addresses a container (Key empty) or an object within it.
type ResourceReference struct {
	Account   string
	Container string
	Key       string
}

func NewContainerReference(account, container string) (ResourceReference, error) {
	r := ResourceReference{Account: account, Container: container}
	if err := r.Validate(); err != nil {
		return ResourceReference{}, err
	}
	return r, nil
}

func NewObjectReference(account, container, key string) (ResourceReference, error) {
	if key == "" {
		return ResourceReference{}, fmt.Errorf("%w: empty object key", common.ErrInvalidResourceReference)
	}
	r := ResourceReference{Account: account, Container: container, Key: key}
	if err := r.Validate(); err != nil {
		return ResourceReference{}, err
	}
	return r, nil
}

// ValidateContainerName reports whether name is a legal container name:
// 3-63 lowercase letters, digits and single hyphens, starting and ending
// with a letter or digit.
func ValidateContainerName(name string) error {
	if len(name) < 3 || len(name) > 63 || !containerNameRe.MatchString(name) {
		return fmt.Errorf("%w: malformed container name %q", common.ErrInvalidResourceReference, name)
	}
	return nil
}

func (r ResourceReference) Validate() error {
	if !accountNameRe.MatchString(r.Account) {
		return fmt.Errorf("%w: malformed account name %q", common.ErrInvalidResourceReference, r.Account)
	}
	if err := ValidateContainerName(r.Container); err != nil {
		return err
	}
	if len(r.Key) > maxObjectKeyLen || !utf8.ValidString(r.Key) {
		return fmt.Errorf("%w: malformed object key", common.ErrInvalidResourceReference)
	}
	if r.Key != "" {
		for _, seg := range strings.Split(r.Key, "/") {
			if seg == "" || seg == "." || seg == ".." {
				return fmt.Errorf("%w: object key %q has an empty or dot segment", common.ErrInvalidResourceReference, r.Key)
			}
		}
	}
	return nil
}

func (r ResourceReference) IsContainer() bool {
	return r.Key == ""
}

// SignedResource is the sr parameter: "c" for containers, "b" for objects.
func (r ResourceReference) SignedResource() string {
	if r.IsContainer() {
		return "c"
	}
	return "b"
}

// CanonicalPath is the resource path covered by the signature.
func (r ResourceReference) CanonicalPath() string {
	p := "/" + r.Account + "/" + r.Container
	if !r.IsContainer() {
		p += "/" + r.Key
	}
	return p
}
