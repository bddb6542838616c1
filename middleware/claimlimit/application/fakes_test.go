package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"claim-gateway/middleware/claimlimit/domain"
)

type mapStore struct {
	mu      sync.Mutex
	data    map[string]string
	getErr  error
	setErr  error
	setCall int
}

func newMapStore() *mapStore { return &mapStore{data: map[string]string{}} }

func (s *mapStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return "", false, s.getErr
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *mapStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCall++
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = value
	return nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fakeAccounts struct {
	accounts map[string]domain.Account
	err      error
	marked   int
}

func (r *fakeAccounts) Add(_ context.Context, acc domain.Account) (domain.Account, error) {
	r.accounts[acc.ID] = acc
	return acc, nil
}

func (r *fakeAccounts) Get(_ context.Context, id string) (domain.Account, error) {
	acc, ok := r.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	return acc, nil
}

func (r *fakeAccounts) List(context.Context) ([]domain.Account, error) {
	return nil, errors.New("not used")
}

func (r *fakeAccounts) ListByService(context.Context, string) ([]domain.Account, error) {
	return nil, errors.New("not used")
}

func (r *fakeAccounts) Update(context.Context, string, domain.AccountPatch) (domain.Account, error) {
	return domain.Account{}, errors.New("not used")
}

func (r *fakeAccounts) MarkClaimed(_ context.Context, id string, at time.Time) (domain.Account, error) {
	if r.err != nil {
		return domain.Account{}, r.err
	}
	acc, ok := r.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	r.marked++
	acc.LastUsed = &at
	acc.UsageCount++
	r.accounts[id] = acc
	return acc, nil
}

func (r *fakeAccounts) Delete(context.Context, string) error { return nil }

type recordingStats struct {
	events []domain.StatsEvent
}

func (s *recordingStats) Record(_ context.Context, ev domain.StatsEvent) error {
	s.events = append(s.events, ev)
	return errors.New("stats backend down")
}
