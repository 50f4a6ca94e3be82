package quota

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemStore implements Store in memory. It backs local development and the
// unit tests; the mutex held across InTx gives the same linearizability as
// the row locks in PGStore. State is lost on restart.
type MemStore struct {
	mu      sync.Mutex
	users   map[uuid.UUID]UserDay
	budgets map[string]BudgetDay
}

func NewMemStore() *MemStore {
	return &MemStore{
		users:   make(map[uuid.UUID]UserDay),
		budgets: make(map[string]BudgetDay),
	}
}

func (s *MemStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		store:   s,
		users:   make(map[uuid.UUID]UserDay),
		budgets: make(map[string]BudgetDay),
	}
	if err := fn(tx); err != nil {
		return err
	}

	// Commit staged writes only after fn succeeds.
	for id, rec := range tx.users {
		s.users[id] = rec
	}
	for day, rec := range tx.budgets {
		s.budgets[day] = rec
	}
	return nil
}

// Snapshot returns a copy of the user's current record, for test assertions.
func (s *MemStore) Snapshot(userID uuid.UUID) (UserDay, BudgetDay) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[userID]
	budget := s.budgets[user.Day]
	return user, budget
}

type memTx struct {
	store   *MemStore
	users   map[uuid.UUID]UserDay
	budgets map[string]BudgetDay
}

func (t *memTx) UserDay(_ context.Context, userID uuid.UUID) (*UserDay, error) {
	if rec, ok := t.users[userID]; ok {
		return &rec, nil
	}
	rec, ok := t.store.users[userID]
	if !ok {
		rec = UserDay{UserID: userID}
	}
	return &rec, nil
}

func (t *memTx) SaveUserDay(_ context.Context, rec *UserDay) error {
	t.users[rec.UserID] = *rec
	return nil
}

func (t *memTx) BudgetDay(_ context.Context, day string) (*BudgetDay, error) {
	if rec, ok := t.budgets[day]; ok {
		return &rec, nil
	}
	rec, ok := t.store.budgets[day]
	if !ok {
		rec = BudgetDay{Day: day}
	}
	return &rec, nil
}

func (t *memTx) SaveBudgetDay(_ context.Context, rec *BudgetDay) error {
	t.budgets[rec.Day] = *rec
	return nil
}
