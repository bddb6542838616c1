package infra

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"claim-gateway/middleware/claimlimit/domain"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// MemoryAccountRepository guarda contas em memória.
type MemoryAccountRepository struct {
	mu       sync.Mutex
	accounts map[string]domain.Account
	now      func() time.Time
}

// NewMemoryAccountRepository cria o repositório com as contas de seed. Uma conta
// de seed inválida aborta a criação.
func NewMemoryAccountRepository(seed ...domain.Account) (*MemoryAccountRepository, error) {
	r := &MemoryAccountRepository{
		accounts: make(map[string]domain.Account, len(seed)),
		now:      time.Now,
	}
	for i, acc := range seed {
		if _, err := r.Add(context.Background(), acc); err != nil {
			return nil, fmt.Errorf("seed account %d: %w", i, err)
		}
	}
	return r, nil
}

func normalizeAccount(acc domain.Account) (domain.Account, error) {
	acc.Service = strings.ToLower(strings.TrimSpace(acc.Service))
	acc.Email = strings.TrimSpace(acc.Email)
	if acc.Service == "" {
		return domain.Account{}, fmt.Errorf("%w: service is required", domain.ErrInvalidAccount)
	}
	if acc.Email == "" {
		return domain.Account{}, fmt.Errorf("%w: email is required", domain.ErrInvalidAccount)
	}
	acc.Status = ""
	return acc, nil
}

// Add salva a conta. Sem ID, gera um UUID; sem AddedOn, usa agora.
func (r *MemoryAccountRepository) Add(_ context.Context, acc domain.Account) (domain.Account, error) {
	acc, err := normalizeAccount(acc)
	if err != nil {
		return domain.Account{}, err
	}
	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	if acc.AddedOn.IsZero() {
		acc.AddedOn = r.now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[acc.ID] = acc
	return acc, nil
}

func (r *MemoryAccountRepository) Get(_ context.Context, id string) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	return acc, nil
}

func (r *MemoryAccountRepository) List(_ context.Context) ([]domain.Account, error) {
	r.mu.Lock()
	out := make([]domain.Account, 0, len(r.accounts))
	for _, acc := range r.accounts {
		out = append(out, acc)
	}
	r.mu.Unlock()

	sortByAddedOn(out)
	return out, nil
}

func (r *MemoryAccountRepository) ListByService(_ context.Context, service string) ([]domain.Account, error) {
	service = strings.ToLower(strings.TrimSpace(service))
	now := r.now()

	r.mu.Lock()
	out := make([]domain.Account, 0, len(r.accounts))
	for _, acc := range r.accounts {
		if service != "" && acc.Service != service {
			continue
		}
		if acc.StatusAt(now) == domain.StatusExpired {
			continue
		}
		out = append(out, acc)
	}
	r.mu.Unlock()

	sortByAddedOn(out)
	return out, nil
}

func sortByAddedOn(out []domain.Account) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AddedOn.Equal(out[j].AddedOn) {
			return out[i].AddedOn.Before(out[j].AddedOn)
		}
		return out[i].ID < out[j].ID
	})
}

func (r *MemoryAccountRepository) MarkClaimed(_ context.Context, id string, at time.Time) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	used := at.UTC()
	acc.LastUsed = &used
	acc.UsageCount++
	r.accounts[id] = acc
	return acc, nil
}

// Update aplica o patch. ID, AddedOn, LastUsed e UsageCount não mudam por aqui.
func (r *MemoryAccountRepository) Update(_ context.Context, id string, patch domain.AccountPatch) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	if patch.Service != nil {
		acc.Service = *patch.Service
	}
	if patch.Email != nil {
		acc.Email = *patch.Email
	}
	if patch.Password != nil {
		acc.Password = *patch.Password
	}
	switch {
	case patch.ClearExpiry:
		acc.ExpiresOn = nil
	case patch.ExpiresOn != nil:
		exp := patch.ExpiresOn.UTC()
		acc.ExpiresOn = &exp
	}

	acc, err := normalizeAccount(acc)
	if err != nil {
		return domain.Account{}, err
	}
	r.accounts[id] = acc
	return acc, nil
}

func (r *MemoryAccountRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[id]; !ok {
		return domain.ErrAccountNotFound
	}
	delete(r.accounts, id)
	return nil
}

type accountsFile struct {
	Accounts []domain.Account `yaml:"accounts"`
}

// LoadAccountsYAML lê o arquivo de seed:
//
//	accounts:
//	  - service: netflix
//	    email: premium1@example.com
//	    password: securepass123
//	    expiresOn: 2025-12-01T00:00:00Z
func LoadAccountsYAML(path string) ([]domain.Account, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read accounts file: %w", err)
	}
	var f accountsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse accounts file %s: %w", path, err)
	}
	return f.Accounts, nil
}
