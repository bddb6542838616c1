package application

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"claim-gateway/middleware/claimlimit/domain"

	"go.uber.org/zap"
)

// ClaimLimiter concentra a regra da janela de claims: no máximo um claim por
// Window para o mesmo storage de cliente.
//
// É um par de funções sem estado sobre um histórico persistido. Não há lock:
// dois RecordClaim concorrentes no mesmo storage podem perder uma entrada.
type ClaimLimiter struct {
	Store  domain.KeyValueStore
	Window time.Duration
	Key    string
	Now    func() time.Time
	Logger *zap.Logger
}

func (l ClaimLimiter) withDefaults() ClaimLimiter {
	if l.Window <= 0 {
		l.Window = domain.DefaultWindow
	}
	if l.Key == "" {
		l.Key = domain.DefaultHistoryKey
	}
	if l.Now == nil {
		l.Now = time.Now
	}
	if l.Logger == nil {
		l.Logger = zap.NewNop()
	}
	return l
}

// IsClaimAllowed retorna true se nenhum claim do histórico está dentro da janela.
// Não grava nada.
func (l ClaimLimiter) IsClaimAllowed(ctx context.Context) bool {
	return l.Decide(ctx).Allowed
}

// Decide é IsClaimAllowed com a sugestão de espera quando bloqueado.
func (l ClaimLimiter) Decide(ctx context.Context) domain.Decision {
	l = l.withDefaults()
	if l.Store == nil {
		return domain.Decision{Allowed: true}
	}

	now := l.Now()
	recent := l.read(ctx).Recent(now, l.Window)
	if len(recent) == 0 {
		return domain.Decision{Allowed: true}
	}

	var wait time.Duration
	for _, ev := range recent {
		if left := ev.Remaining(now, l.Window); left > wait {
			wait = left
		}
	}
	return domain.Decision{Allowed: false, RetryAfter: wait}
}

// RecordClaim acrescenta o instante atual ao histórico e regrava a lista inteira.
// Não é idempotente: duas chamadas gravam dois claims.
func (l ClaimLimiter) RecordClaim(ctx context.Context) error {
	l = l.withDefaults()
	if l.Store == nil {
		return nil
	}

	history := append(l.read(ctx), domain.EventAt(l.Now()))
	raw, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", domain.ErrStorageWrite, err)
	}
	if err := l.Store.Set(ctx, l.Key, string(raw)); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorageWrite, err)
	}
	return nil
}

// History retorna o histórico como ele é lido pelo limiter (leitura tolerante).
func (l ClaimLimiter) History(ctx context.Context) domain.ClaimHistory {
	l = l.withDefaults()
	if l.Store == nil {
		return nil
	}
	return l.read(ctx)
}

// read nunca falha: storage indisponível ou conteúdo inválido viram histórico vazio,
// para que um estado corrompido nunca bloqueie claims.
func (l ClaimLimiter) read(ctx context.Context) domain.ClaimHistory {
	raw, found, err := l.Store.Get(ctx, l.Key)
	if err != nil {
		l.Logger.Warn("claim history unavailable, treating as empty",
			zap.String("key", l.Key), zap.Error(err))
		return nil
	}
	if !found || raw == "" {
		return nil
	}
	history, err := decodeHistory(raw)
	if err != nil {
		l.Logger.Warn("claim history corrupt, treating as empty",
			zap.String("key", l.Key), zap.Error(err))
		return nil
	}
	return history
}

// decodeHistory aceita apenas uma lista JSON de inteiros. Qualquer outra coisa
// (objeto, string, número fracionário, item não numérico) invalida a lista toda.
func decodeHistory(raw string) (domain.ClaimHistory, error) {
	var history domain.ClaimHistory
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return nil, err
	}
	return history, nil
}
