package application

import (
	"context"
	"time"

	"claim-gateway/middleware/claimlimit/domain"
)

// Rejection diz por que o RequestGuard barrou a requisição.
type Rejection int

const (
	Admitted Rejection = iota
	Throttled
	Saturated
)

// Admission é o resultado de RequestGuard.Admit.
type Admission struct {
	Rejection Rejection
	// RetryAfter só vem preenchido em Throttled.
	RetryAfter time.Duration
	release    func()
}

// Release devolve a vaga ocupada. Seguro chamar em qualquer Admission.
func (a Admission) Release() {
	if a.release != nil {
		a.release()
	}
}

// RequestGuard protege a API na frente dos claims: throttle por cliente e um
// teto de requisições simultâneas. Não sabe nada sobre HTTP.
type RequestGuard struct {
	throttle       domain.Throttler
	slots          chan struct{}
	acquireTimeout time.Duration
}

// NewRequestGuard monta o guard. throttle nil desliga o throttle; maxConcurrent <= 0
// desliga o teto. acquireTimeout <= 0 espera por uma vaga até o ctx cancelar.
func NewRequestGuard(throttle domain.Throttler, maxConcurrent int, acquireTimeout time.Duration) *RequestGuard {
	g := &RequestGuard{throttle: throttle, acquireTimeout: acquireTimeout}
	if maxConcurrent > 0 {
		g.slots = make(chan struct{}, maxConcurrent)
	}
	return g
}

// InFlight é o número de requisições admitidas que ainda não liberaram a vaga.
func (g *RequestGuard) InFlight() int { return len(g.slots) }

// Admit aplica o throttle antes do teto, para que um cliente barrado não ocupe vaga.
func (g *RequestGuard) Admit(ctx context.Context, client string) Admission {
	if g.throttle != nil {
		if ok, wait := g.throttle.Allow(client); !ok {
			return Admission{Rejection: Throttled, RetryAfter: wait}
		}
	}
	if g.slots == nil {
		return Admission{Rejection: Admitted}
	}

	acqCtx := ctx
	if g.acquireTimeout > 0 {
		var cancel context.CancelFunc
		acqCtx, cancel = context.WithTimeout(ctx, g.acquireTimeout)
		defer cancel()
	}
	select {
	case g.slots <- struct{}{}:
		return Admission{Rejection: Admitted, release: func() { <-g.slots }}
	case <-acqCtx.Done():
		return Admission{Rejection: Saturated}
	}
}
