package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"claim-gateway/middleware/claimlimit/domain"

	"go.uber.org/zap"
)

// RecordPolicy define quando o claim entra no histórico do cliente.
type RecordPolicy int

const (
	// RecordAfterClaim grava só depois que o backend confirmou o claim.
	RecordAfterClaim RecordPolicy = iota
	// RecordBeforeClaim grava logo após passar pela janela, mesmo que o backend falhe depois.
	RecordBeforeClaim
)

func (p RecordPolicy) String() string {
	if p == RecordBeforeClaim {
		return "before"
	}
	return "after"
}

// ParseRecordPolicy aceita "after" (padrão) ou "before".
func ParseRecordPolicy(s string) (RecordPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "after":
		return RecordAfterClaim, nil
	case "before", "eager":
		return RecordBeforeClaim, nil
	default:
		return RecordAfterClaim, fmt.Errorf("unknown record policy %q", s)
	}
}

// ClaimService executa o claim de uma conta respeitando a janela do cliente.
//
// Ele não sabe nada sobre HTTP; o Limiter já deve vir com o storage do cliente.
type ClaimService struct {
	Limiter  ClaimLimiter
	Accounts domain.AccountRepository
	Policy   RecordPolicy
	Stats    domain.StatsStore
	Client   string
	Logger   *zap.Logger
}

// Claim marca a conta como usada e devolve a conta completa (com senha e status).
//
// Erros: *domain.LimitedError (errors.Is ErrClaimLimited), domain.ErrAccountNotFound
// ou o erro do repositório. Falha ao gravar o histórico não derruba o claim.
func (s ClaimService) Claim(ctx context.Context, accountID string) (domain.Account, error) {
	log := s.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("client", s.Client), zap.String("account_id", accountID))
	lim := s.Limiter.withDefaults()

	dec := lim.Decide(ctx)
	if !dec.Allowed {
		s.record(ctx, accountID, domain.OutcomeLimited, lim.Now(), log)
		log.Info("claim rejected by window", zap.Duration("retry_after", dec.RetryAfter))
		return domain.Account{}, &domain.LimitedError{Window: lim.Window, RetryAfter: dec.RetryAfter}
	}

	if s.Policy == RecordBeforeClaim {
		s.remember(ctx, lim, log)
	}

	if s.Accounts == nil {
		return domain.Account{}, errors.New("claim service has no account repository")
	}
	acc, err := s.Accounts.MarkClaimed(ctx, accountID, lim.Now())
	if err != nil {
		outcome := domain.OutcomeFailed
		if errors.Is(err, domain.ErrAccountNotFound) {
			outcome = domain.OutcomeNotFound
		}
		s.record(ctx, accountID, outcome, lim.Now(), log)
		return domain.Account{}, err
	}

	if s.Policy == RecordAfterClaim {
		s.remember(ctx, lim, log)
	}

	acc = acc.WithStatus(lim.Now())
	s.record(ctx, accountID, domain.OutcomeAllowed, lim.Now(), log)
	log.Info("account claimed", zap.String("service", acc.Service), zap.Int("usage_count", acc.UsageCount), zap.String("status", string(acc.Status)))
	return acc, nil
}

func (s ClaimService) remember(ctx context.Context, lim ClaimLimiter, log *zap.Logger) {
	if err := lim.RecordClaim(ctx); err != nil {
		log.Warn("claim not recorded in history", zap.Error(err))
	}
}

func (s ClaimService) record(ctx context.Context, accountID string, outcome domain.Outcome, at time.Time, log *zap.Logger) {
	if s.Stats == nil {
		return
	}
	err := s.Stats.Record(ctx, domain.StatsEvent{
		Client:    s.Client,
		AccountID: accountID,
		Outcome:   outcome,
		At:        at,
	})
	if err != nil {
		log.Debug("claim stats not recorded", zap.Error(err))
	}
}
