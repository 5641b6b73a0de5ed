package event

import (
	"context"
	"sync"
)

type RepositoryStub struct {
	mu             sync.RWMutex
	items          []Event
	transactionErr error
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{}
}

func (r *RepositoryStub) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	r.mu.Lock()
	original := make([]Event, len(r.items))
	copy(original, r.items)
	r.transactionErr = nil
	r.mu.Unlock()

	err := fn(r)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil || r.transactionErr != nil {
		r.items = original
		if err != nil {
			return err
		}
		return r.transactionErr
	}
	return nil
}

func (r *RepositoryStub) StoreEvents(ctx context.Context, events []Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, events...)
	return nil
}

func (r *RepositoryStub) GetEvents(ctx context.Context) ([]Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Event, len(r.items))
	copy(result, r.items)
	return result, nil
}

func (r *RepositoryStub) DeleteAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil
	return nil
}

// SetTransactionError makes the running transaction roll back with err.
func (r *RepositoryStub) SetTransactionError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transactionErr = err
}
