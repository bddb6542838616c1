package infra

import (
	"context"
	"strings"

	"claim-gateway/middleware/claimlimit/domain"
)

// ScopedStore faz um storage compartilhado se comportar como o storage próprio
// de um cliente: toda chave ganha o prefixo "<scope>:".
//
// "%" e ":" do scope são escapados, então "::1" (IPv6) e "1" nunca dividem chave.
type ScopedStore struct {
	inner domain.KeyValueStore
	scope string
}

var scopeEscaper = strings.NewReplacer("%", "%25", ":", "%3A")

func NewScopedStore(inner domain.KeyValueStore, scope string) *ScopedStore {
	return &ScopedStore{inner: inner, scope: scopeEscaper.Replace(scope)}
}

func (s *ScopedStore) key(k string) string {
	if s.scope == "" {
		return k
	}
	return s.scope + ":" + k
}

func (s *ScopedStore) Get(ctx context.Context, key string) (string, bool, error) {
	return s.inner.Get(ctx, s.key(key))
}

func (s *ScopedStore) Set(ctx context.Context, key, value string) error {
	return s.inner.Set(ctx, s.key(key), value)
}
