package auth

import (
	"context"
)

// MockVerifier maps credentials to principals for tests. A credential not
// in Keys is rejected with ErrInvalidToken; Error overrides everything.
type MockVerifier struct {
	Keys  map[string]*Principal
	Error error
}

// NewMockVerifier returns a verifier accepting "key-<owner>" for each owner.
func NewMockVerifier(owners ...string) *MockVerifier {
	m := &MockVerifier{Keys: make(map[string]*Principal, len(owners))}
	for _, o := range owners {
		m.Keys["key-"+o] = &Principal{OwnerID: o, Method: MethodAPIKey}
	}
	return m
}

// Verify returns the configured principal or error.
func (m *MockVerifier) Verify(_ context.Context, credential string) (*Principal, error) {
	if m.Error != nil {
		return nil, m.Error
	}
	if p, ok := m.Keys[credential]; ok {
		return p, nil
	}
	return nil, ErrInvalidToken
}

var _ Verifier = (*MockVerifier)(nil)
