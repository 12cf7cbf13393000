// Package memory provides process-local blob and stored-policy storage for
// tests and offline runs of the sample.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/blobsas/internal/common"
	"github.com/dmitrijs2005/blobsas/internal/sas"
)

// Store keeps containers, objects and policy sets in maps. A single mutex
// serializes writers, so concurrent ReplacePolicies calls on one container
// resolve as last writer wins.
type Store struct {
	mu       sync.RWMutex
	endpoint sas.ServiceEndpoint
	objects  map[string]map[string][]byte
	policies map[string][]sas.StoredPolicy
}

func New(endpoint sas.ServiceEndpoint) *Store {
	return &Store{
		endpoint: endpoint,
		objects:  map[string]map[string][]byte{},
		policies: map[string][]sas.StoredPolicy{},
	}
}

func (s *Store) ResolveURI(ref sas.ResourceReference) string {
	return s.endpoint.ResolveURI(ref)
}

func (s *Store) EnsureContainer(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[name]; !ok {
		s.objects[name] = map[string][]byte{}
	}
	return nil
}

func (s *Store) Upload(_ context.Context, ref sas.ResourceReference, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.objects[ref.Container]
	if !ok {
		return fmt.Errorf("container %q: %w", ref.Container, common.ErrorNotFound)
	}
	c[ref.Key] = append([]byte(nil), data...)
	return nil
}

// Object returns a copy of the stored object.
func (s *Store) Object(ref sas.ResourceReference) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.objects[ref.Container][ref.Key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), b...), true
}

func (s *Store) ReplacePolicies(_ context.Context, container string, policies []sas.StoredPolicy) error {
	cp := append([]sas.StoredPolicy(nil), policies...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[container] = cp
	return nil
}

func (s *Store) FetchPolicy(_ context.Context, container, id string) (*sas.StoredPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.policies[container] {
		if p.ID == id {
			p := p
			return &p, nil
		}
	}
	return nil, common.ErrorNotFound
}
