package sas

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/blobsas/internal/common"
	"github.com/stretchr/testify/require"
)

const testAccount = "sampleaccount"

var testNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func newTestCredential(t *testing.T) *Credential {
	t.Helper()
	c, err := NewCredential(testAccount, []byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	return c
}

func containerRef(t *testing.T) ResourceReference {
	t.Helper()
	r, err := NewContainerReference(testAccount, "backup")
	require.NoError(t, err)
	return r
}

func objectRef(t *testing.T, key string) ResourceReference {
	t.Helper()
	r, err := NewObjectReference(testAccount, "backup", key)
	require.NoError(t, err)
	return r
}

// fakeBackend is a minimal in-package PolicyBackend.
type fakeBackend struct {
	mu         sync.Mutex
	sets       map[string][]StoredPolicy
	replaceErr error
	fetchErr   error
	replaces   int
	fetches    int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{sets: map[string][]StoredPolicy{}}
}

func (f *fakeBackend) ReplacePolicies(_ context.Context, container string, policies []StoredPolicy) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replaces++
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.sets[container] = append([]StoredPolicy(nil), policies...)
	return nil
}

func (f *fakeBackend) FetchPolicy(_ context.Context, container, id string) (*StoredPolicy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	for _, p := range f.sets[container] {
		if p.ID == id {
			p := p
			return &p, nil
		}
	}
	return nil, common.ErrorNotFound
}
