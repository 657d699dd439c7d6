package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/noah-isme/campus-records-api/internal/models"
	"github.com/noah-isme/campus-records-api/pkg/events"
)

// fakeAccountRepo mirrors the single-statement semantics of the accounts
// repository under a mutex.
type fakeAccountRepo struct {
	mu        sync.Mutex
	accounts  map[string]*models.Account
	audits    []*models.AuditLog
	findErr   error
	failErr   error
	createErr error
}

func newFakeAccountRepo(accounts ...*models.Account) *fakeAccountRepo {
	repo := &fakeAccountRepo{accounts: map[string]*models.Account{}}
	for _, a := range accounts {
		repo.accounts[a.ID] = a
	}
	return repo
}

func (f *fakeAccountRepo) FindByUsername(_ context.Context, username string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, a := range f.accounts {
		if a.Username == username {
			clone := *a
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAccountRepo) FindByID(_ context.Context, id string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	a, ok := f.accounts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *a
	return &clone, nil
}

func (f *fakeAccountRepo) RecordFailure(_ context.Context, id string, maxAttempts int, _ time.Time) (*models.LockoutState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return nil, f.failErr
	}
	a, ok := f.accounts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	prev := a.Status
	if a.Status != models.AccountStatusInactive {
		a.FailedAttempts++
		if a.Status == models.AccountStatusActive && a.FailedAttempts >= maxAttempts {
			a.Status = models.AccountStatusLocked
		}
	}
	return &models.LockoutState{
		FailedAttempts: a.FailedAttempts,
		Status:         a.Status,
		Locked:         prev == models.AccountStatusActive && a.Status == models.AccountStatusLocked,
	}, nil
}

func (f *fakeAccountRepo) RecordSuccess(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.FailedAttempts = 0
	a.LastLogin = &at
	return nil
}

func (f *fakeAccountRepo) Unlock(_ context.Context, id string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.Status = models.AccountStatusActive
	a.FailedAttempts = 0
	return nil
}

func (f *fakeAccountRepo) Deactivate(_ context.Context, id string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.Status = models.AccountStatusInactive
	return nil
}

func (f *fakeAccountRepo) UpdatePassword(_ context.Context, id, hash string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.PasswordHash = hash
	return nil
}

func (f *fakeAccountRepo) Create(_ context.Context, account *models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if account.ID == "" {
		account.ID = "acc-new"
	}
	if account.Status == "" {
		account.Status = models.AccountStatusActive
	}
	clone := *account
	f.accounts[account.ID] = &clone
	return nil
}

func (f *fakeAccountRepo) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audits = append(f.audits, log)
	return nil
}

func (f *fakeAccountRepo) get(id string) models.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.accounts[id]
}

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *capturePublisher) Publish(_ context.Context, event events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *capturePublisher) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Type)
	}
	return out
}
