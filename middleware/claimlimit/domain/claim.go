package domain

import (
	"math"
	"time"
)

// DefaultWindow é a janela padrão entre dois claims do mesmo cliente.
const DefaultWindow = 12 * time.Hour

// DefaultHistoryKey é a chave onde o histórico de claims fica salvo.
const DefaultHistoryKey = "user_claim_timestamps"

// ClaimEvent é o instante (epoch em milissegundos) de um claim aprovado localmente.
type ClaimEvent int64

// EventAt converte um time.Time para ClaimEvent.
func EventAt(t time.Time) ClaimEvent { return ClaimEvent(t.UnixMilli()) }

func (e ClaimEvent) Time() time.Time { return time.UnixMilli(int64(e)) }

// ageMillis é now - e em milissegundos, saturado em MaxInt64 quando a conta
// estoura (entrada negativa muito antiga ou corrompida).
func (e ClaimEvent) ageMillis(now time.Time) int64 {
	t := int64(e)
	age := now.UnixMilli() - t
	if t < 0 && age < 0 {
		return math.MaxInt64
	}
	return age
}

// Age é a idade do evento em relação a now. Pode ser negativa quando o relógio
// de quem gravou estava adiantado. Satura nos limites de time.Duration.
func (e ClaimEvent) Age(now time.Time) time.Duration {
	return millisToDuration(e.ageMillis(now))
}

// InWindow diz se o evento ainda conta: idade estritamente menor que window.
func (e ClaimEvent) InWindow(now time.Time, window time.Duration) bool {
	return e.ageMillis(now) < window.Milliseconds()
}

// Remaining é quanto falta para o evento sair da janela (0 se já saiu).
func (e ClaimEvent) Remaining(now time.Time, window time.Duration) time.Duration {
	age := e.ageMillis(now)
	w := window.Milliseconds()
	if age >= w {
		return 0
	}
	if age < 0 && w-age < 0 {
		return time.Duration(math.MaxInt64)
	}
	return millisToDuration(w - age)
}

func millisToDuration(ms int64) time.Duration {
	const limit = math.MaxInt64 / int64(time.Millisecond)
	switch {
	case ms > limit:
		return time.Duration(math.MaxInt64)
	case ms < -limit:
		return time.Duration(math.MinInt64)
	}
	return time.Duration(ms) * time.Millisecond
}

// ClaimHistory é a lista de claims na ordem de inserção.
//
// Observação: a ordem não é garantida (o storage pode ter sido editado por fora),
// então cada entrada é testada de forma independente contra a janela.
type ClaimHistory []ClaimEvent

// Recent retorna as entradas com idade estritamente menor que window.
// Uma entrada com idade exatamente igual a window já expirou.
func (h ClaimHistory) Recent(now time.Time, window time.Duration) ClaimHistory {
	var out ClaimHistory
	for _, ev := range h {
		if ev.InWindow(now, window) {
			out = append(out, ev)
		}
	}
	return out
}

type Decision struct {
	Allowed bool
	// RetryAfter é quanto falta para a entrada mais nova sair da janela.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
}
