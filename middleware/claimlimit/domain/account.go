package domain

import (
	"context"
	"strings"
	"time"
)

type AccountStatus string

const (
	StatusActive   AccountStatus = "active"
	StatusExpiring AccountStatus = "expiring"
	StatusExpired  AccountStatus = "expired"
)

// ExpiringWithin é o prazo a partir do qual uma conta passa a ser "expiring".
const ExpiringWithin = 7 * 24 * time.Hour

// Account é uma credencial compartilhada que pode ser "claimed".
type Account struct {
	ID         string     `json:"id" yaml:"id"`
	Service    string     `json:"service" yaml:"service"`
	Email      string     `json:"email" yaml:"email"`
	Password   string     `json:"password,omitempty" yaml:"password"`
	LastUsed   *time.Time `json:"lastUsed" yaml:"lastUsed"`
	AddedOn    time.Time  `json:"addedOn" yaml:"addedOn"`
	ExpiresOn  *time.Time `json:"expiresOn" yaml:"expiresOn"`
	UsageCount int        `json:"usageCount" yaml:"usageCount"`
	// Status é derivado de ExpiresOn; preenchido por WithStatus, nunca lido do seed.
	Status AccountStatus `json:"status,omitempty" yaml:"-"`
}

// StatusAt deriva o estado da conta a partir de ExpiresOn.
func (a Account) StatusAt(now time.Time) AccountStatus {
	if a.ExpiresOn == nil {
		return StatusActive
	}
	left := a.ExpiresOn.Sub(now)
	switch {
	case left < 0:
		return StatusExpired
	case left < ExpiringWithin:
		return StatusExpiring
	default:
		return StatusActive
	}
}

// MaskedEmail esconde parte do usuário do email: "premium1@x.com" -> "pre•••@x.com".
func (a Account) MaskedEmail() string {
	user, host, ok := strings.Cut(a.Email, "@")
	if !ok {
		return a.Email
	}
	if r := []rune(user); len(r) > 3 {
		user = string(r[:3])
	}
	return user + "•••@" + host
}

// WithStatus retorna uma cópia com Status calculado em now.
func (a Account) WithStatus(now time.Time) Account {
	a.Status = a.StatusAt(now)
	return a
}

// Public retorna uma cópia sem a senha, com o email mascarado e o status (para listagens).
func (a Account) Public(now time.Time) Account {
	out := a.WithStatus(now)
	out.Email = a.MaskedEmail()
	out.Password = ""
	return out
}

// AccountPatch são as alterações aceitas por AccountRepository.Update. Campos nil
// ficam como estão; ClearExpiry remove ExpiresOn.
type AccountPatch struct {
	Service     *string    `json:"service"`
	Email       *string    `json:"email"`
	Password    *string    `json:"password"`
	ExpiresOn   *time.Time `json:"expiresOn"`
	ClearExpiry bool       `json:"clearExpiry"`
}

// AccountRepository é o backend que guarda as contas.
type AccountRepository interface {
	Add(ctx context.Context, acc Account) (Account, error)
	Get(ctx context.Context, id string) (Account, error)
	// List retorna todas as contas, inclusive expiradas.
	List(ctx context.Context) ([]Account, error)
	// ListByService retorna as contas do serviço que ainda não expiraram.
	ListByService(ctx context.Context, service string) ([]Account, error)
	// MarkClaimed atualiza LastUsed e incrementa UsageCount.
	MarkClaimed(ctx context.Context, id string, at time.Time) (Account, error)
	Update(ctx context.Context, id string, patch AccountPatch) (Account, error)
	Delete(ctx context.Context, id string) error
}
