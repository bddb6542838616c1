package infra

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle limita a taxa de requisições por cliente com um token bucket
// (x/time/rate) e informa quanto falta para o próximo token.
//
// Clientes sem requisições há mais de idleTTL são removidos por Sweep.
type Throttle struct {
	mu      sync.Mutex
	clients map[string]*clientBucket

	limit      rate.Limit
	burst      int
	idleTTL    time.Duration
	sweepEvery time.Duration
	now        func() time.Time
}

type clientBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

type ThrottleOption func(*Throttle)

func WithIdleTTL(d time.Duration) ThrottleOption {
	return func(t *Throttle) { t.idleTTL = d }
}

// WithSweepEvery define o intervalo do StartSweeper. <= 0 desliga.
func WithSweepEvery(d time.Duration) ThrottleOption {
	return func(t *Throttle) { t.sweepEvery = d }
}

func WithThrottleClock(now func() time.Time) ThrottleOption {
	return func(t *Throttle) { t.now = now }
}

func NewThrottle(rps float64, burst int, opts ...ThrottleOption) *Throttle {
	t := &Throttle{
		clients:    make(map[string]*clientBucket),
		limit:      rate.Limit(rps),
		burst:      burst,
		idleTTL:    15 * time.Minute,
		sweepEvery: 2 * time.Minute,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Throttle) RPS() float64 { return float64(t.limit) }
func (t *Throttle) Burst() int   { return t.burst }

// Allow implementa domain.Throttler.
//
// A decisão vem de uma reserva: se o token só estaria disponível no futuro, a
// reserva é cancelada e a espera volta como retryAfter. Com burst 0 nenhuma
// requisição passa e a espera é desconhecida (0).
func (t *Throttle) Allow(client string) (bool, time.Duration) {
	now := t.now()
	res := t.bucketFor(client, now).ReserveN(now, 1)
	if !res.OK() {
		return false, 0
	}
	if wait := res.DelayFrom(now); wait > 0 {
		res.CancelAt(now)
		return false, wait
	}
	return true, 0
}

func (t *Throttle) bucketFor(client string, now time.Time) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.clients[client]
	if !ok {
		b = &clientBucket{lim: rate.NewLimiter(t.limit, t.burst)}
		t.clients[client] = b
	}
	b.seen = now
	return b.lim
}

// Clients é o número de clientes com bucket em memória.
func (t *Throttle) Clients() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.clients)
}

// Sweep remove os clientes inativos há mais de idleTTL e retorna quantos saíram.
func (t *Throttle) Sweep() int {
	cutoff := t.now().Add(-t.idleTTL)

	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for client, b := range t.clients {
		if b.seen.Before(cutoff) {
			delete(t.clients, client)
			removed++
		}
	}
	return removed
}

// StartSweeper roda Sweep a cada sweepEvery até o ctx ser cancelado.
func (t *Throttle) StartSweeper(ctx context.Context) {
	if t.sweepEvery <= 0 {
		return
	}
	go func() {
		tick := time.NewTicker(t.sweepEvery)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				t.Sweep()
			}
		}
	}()
}
