package domain

import "context"

// KeyValueStore é o storage persistente do cliente (equivalente a um localStorage).
//
// Get retorna found=false quando a chave não existe. Valores são opacos para o
// storage; quem serializa é a camada application.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
}
