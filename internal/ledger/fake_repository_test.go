package ledger

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// fakeRepository serializes Update calls the way a row lock would.
type fakeRepository struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]*Account
	failNext error
	reads    int

	// afterRead runs once a GetByEmail row has been loaded, outside the lock.
	afterRead func()
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{byID: make(map[uuid.UUID]*Account)}
}

func (r *fakeRepository) Insert(_ context.Context, a *Account) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeErr(); err != nil {
		return false, err
	}
	for _, existing := range r.byID {
		if existing.Email == a.Email {
			return false, nil
		}
	}
	r.byID[a.ID] = a.clone()
	return true, nil
}

func (r *fakeRepository) GetByID(_ context.Context, id uuid.UUID) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	if a, ok := r.byID[id]; ok {
		return a.clone(), nil
	}
	return nil, nil
}

func (r *fakeRepository) GetByEmail(_ context.Context, email string) (*Account, error) {
	r.mu.Lock()
	r.reads++
	var found *Account
	for _, a := range r.byID {
		if a.Email == email {
			found = a.clone()
			break
		}
	}
	hook := r.afterRead
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
	return found, nil
}

func (r *fakeRepository) Update(_ context.Context, id uuid.UUID, fn MutateFunc) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeErr(); err != nil {
		return nil, err
	}
	current, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	next, err := fn(current.clone())
	if err != nil {
		return nil, err
	}
	r.byID[id] = next.clone()
	return next, nil
}

func (r *fakeRepository) put(a *Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[a.ID] = a.clone()
}

func (r *fakeRepository) takeErr() error {
	err := r.failNext
	r.failNext = nil
	return err
}

var errStore = errors.New("store unavailable")
