package sas

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/blobsas/internal/common"
)

// Permission is a single right a token may grant.
type Permission uint8

const (
	Read Permission = 1 << iota
	Write
	Delete
	List
)

const knownPermissions = Read | Write | Delete | List

// canonical order of permission letters on the wire and in signatures
var permissionLetters = []struct {
	p Permission
	c byte
}{
	{Read, 'r'},
	{Write, 'w'},
	{Delete, 'd'},
	{List, 'l'},
}

// Permissions is a set of Permission values. The zero value is the empty set.
type Permissions struct {
	bits Permission
}

// NewPermissions returns the set of the given permissions; duplicates
// collapse and values other than Read, Write, Delete and List are dropped.
func NewPermissions(ps ...Permission) Permissions {
	var s Permissions
	for _, p := range ps {
		s.bits |= p & knownPermissions
	}
	return s
}

// ParsePermissions accepts permission letters in any order.
func ParsePermissions(s string) (Permissions, error) {
	var out Permissions
	for i := 0; i < len(s); i++ {
		found := false
		for _, pl := range permissionLetters {
			if pl.c == s[i] {
				out.bits |= pl.p
				found = true
				break
			}
		}
		if !found {
			return Permissions{}, fmt.Errorf("%w: unknown permission %q", common.ErrInvalidPermissions, s[i])
		}
	}
	return out, nil
}

func (s Permissions) Has(p Permission) bool {
	return p != 0 && s.bits&p == p
}

func (s Permissions) Union(o Permissions) Permissions {
	return Permissions{bits: s.bits | o.bits}
}

func (s Permissions) IsEmpty() bool {
	return s.bits&knownPermissions == 0
}

// String renders the set in canonical letter order, e.g. "rwl".
func (s Permissions) String() string {
	var b strings.Builder
	for _, pl := range permissionLetters {
		if s.bits&pl.p != 0 {
			b.WriteByte(pl.c)
		}
	}
	return b.String()
}
