package sas

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/blobsas/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_AdHoc(t *testing.T) {
	r := NewResolver(NewPolicyStore(newFakeBackend()), fixedClock)
	ref := containerRef(t)

	start := testNow.Add(-5*time.Minute + 300*time.Millisecond)
	expiry := testNow.Add(4 * time.Hour)

	c, err := r.Resolve(context.Background(), ref, AdHoc{
		Start:       start,
		Expiry:      expiry,
		Permissions: NewPermissions(Read, Write),
	})
	require.NoError(t, err)

	assert.Equal(t, start.Truncate(time.Second), c.Start)
	assert.Equal(t, expiry, c.Expiry)
	assert.Equal(t, "rw", c.Permissions.String())
	assert.False(t, c.IsPolicyBound())
}

func TestResolver_AdHocErrors(t *testing.T) {
	r := NewResolver(NewPolicyStore(newFakeBackend()), fixedClock)
	ref := containerRef(t)
	rw := NewPermissions(Read, Write)

	tests := []struct {
		name string
		in   AdHoc
		want error
	}{
		{"no permissions", AdHoc{Expiry: testNow.Add(time.Hour)}, common.ErrNoPermissions},
		{"unknown permission bits", AdHoc{Expiry: testNow.Add(time.Hour), Permissions: NewPermissions(Permission(16), Permission(0x80))}, common.ErrNoPermissions},
		{"expiry equals start", AdHoc{Start: testNow.Add(time.Hour), Expiry: testNow.Add(time.Hour), Permissions: rw}, common.ErrInvalidPolicyWindow},
		{"expiry before start", AdHoc{Start: testNow.Add(2 * time.Hour), Expiry: testNow.Add(time.Hour), Permissions: rw}, common.ErrInvalidPolicyWindow},
		{"inverted window in the past", AdHoc{Start: testNow.Add(-time.Hour), Expiry: testNow.Add(-2 * time.Hour), Permissions: rw}, common.ErrInvalidPolicyWindow},
		{"missing expiry", AdHoc{Permissions: rw}, common.ErrExpiredWindowRequested},
		{"expiry now", AdHoc{Expiry: testNow, Permissions: rw}, common.ErrExpiredWindowRequested},
		{"expiry in the past", AdHoc{Expiry: testNow.Add(-time.Minute), Permissions: rw}, common.ErrExpiredWindowRequested},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), ref, tt.in)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestResolver_PolicyBound(t *testing.T) {
	backend := newFakeBackend()
	backend.sets["backup"] = []StoredPolicy{{ID: "tutorialpolicy", Expiry: testNow.Add(10 * time.Hour), Permissions: NewPermissions(Read)}}
	r := NewResolver(NewPolicyStore(backend), fixedClock)

	c, err := r.Resolve(context.Background(), objectRef(t, "sasblobpolicy.txt"), PolicyBound{PolicyID: "tutorialpolicy"})
	require.NoError(t, err)
	assert.Equal(t, AccessConstraint{PolicyID: "tutorialpolicy"}, c)
}

func TestResolver_PolicyBoundErrors(t *testing.T) {
	backend := newFakeBackend()
	r := NewResolver(NewPolicyStore(backend), fixedClock)
	ref := containerRef(t)

	_, err := r.Resolve(context.Background(), ref, PolicyBound{PolicyID: "missing"})
	require.ErrorIs(t, err, common.ErrPolicyNotFound)

	_, err = r.Resolve(context.Background(), ref, PolicyBound{})
	require.ErrorIs(t, err, common.ErrInvalidPolicyID)

	boom := errors.New("connection reset")
	backend.fetchErr = boom
	_, err = r.Resolve(context.Background(), ref, PolicyBound{PolicyID: "p"})
	require.ErrorIs(t, err, boom)
}

func TestAccessConstraint_Intent(t *testing.T) {
	in, err := AccessConstraint{PolicyID: "p"}.Intent()
	require.NoError(t, err)
	assert.Equal(t, PolicyBound{PolicyID: "p"}, in)

	adhoc := AccessConstraint{Expiry: testNow, Permissions: NewPermissions(List)}
	in, err = adhoc.Intent()
	require.NoError(t, err)
	assert.Equal(t, AdHoc{Expiry: testNow, Permissions: NewPermissions(List)}, in)

	for _, c := range []AccessConstraint{
		{PolicyID: "p", Expiry: testNow},
		{PolicyID: "p", Start: testNow},
		{PolicyID: "p", Permissions: NewPermissions(Read)},
	} {
		_, err := c.Intent()
		require.ErrorIs(t, err, common.ErrAmbiguousConstraint)
	}
}

func TestBackdateStart(t *testing.T) {
	local := testNow.In(time.FixedZone("X", 3*3600))
	got := BackdateStart(local, DefaultClockSkew)
	assert.Equal(t, testNow.Add(-5*time.Minute), got)
	assert.Equal(t, time.UTC, got.Location())
}
