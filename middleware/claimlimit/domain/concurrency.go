package domain

import "time"

// Throttler decide se a requisição de um cliente pode passar agora.
//
// Quando nega, retryAfter é a espera até o próximo token (0 se desconhecida).
type Throttler interface {
	Allow(client string) (ok bool, retryAfter time.Duration)
}
