package domain

import (
	"context"
	"time"
)

type Outcome string

const (
	OutcomeAllowed  Outcome = "allowed"
	OutcomeLimited  Outcome = "limited"
	OutcomeNotFound Outcome = "not_found"
	OutcomeFailed   Outcome = "failed"
)

// StatsEvent representa o resultado de uma tentativa de claim.
//
// Observação: cuidado com cardinalidade ao gravar Client/AccountID (Redis/Prometheus).
type StatsEvent struct {
	Client    string
	AccountID string
	Outcome   Outcome

	At time.Time
}

// StatsStore é a estratégia de persistência para estatísticas de claim.
//
// Implementações podem armazenar em Redis, Prometheus, memória, etc.
// Quem chama deve tratar erro como best-effort (não derrubar o claim).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
