// Package memory is an in-process implementation of the repository
// interfaces. It backs the "memory" database driver and the service tests.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"foldershare/internal/domain/models"
	"foldershare/internal/domain/repositories"
)

// state is everything a transaction can roll back
type state struct {
	users        map[string]models.User
	folders      map[string]models.Folder
	files        map[string]models.File
	grants       map[string]models.SharedFolder
	publicShares map[string]models.PublicFolderShare
	orphans      map[string]models.OrphanedBlob
}

func newState() state {
	return state{
		users:        map[string]models.User{},
		folders:      map[string]models.Folder{},
		files:        map[string]models.File{},
		grants:       map[string]models.SharedFolder{},
		publicShares: map[string]models.PublicFolderShare{},
		orphans:      map[string]models.OrphanedBlob{},
	}
}

func (s state) clone() state {
	return state{
		users:        maps.Clone(s.users),
		folders:      maps.Clone(s.folders),
		files:        maps.Clone(s.files),
		grants:       maps.Clone(s.grants),
		publicShares: maps.Clone(s.publicShares),
		orphans:      maps.Clone(s.orphans),
	}
}

// Store holds all rows. A transaction holds the store lock for its whole
// duration and restores a snapshot when its function fails, so transactions
// are serializable.
type Store struct {
	mu   sync.Mutex
	data state
	now  func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{data: newState(), now: time.Now}
}

type txKey struct{}

// inTx reports whether ctx carries a transaction opened on this store
func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// do runs fn against the store state, taking the lock unless ctx already
// holds it through a transaction
func (s *Store) do(ctx context.Context, fn func(d *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.inTx(ctx) {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(&s.data)
}

// TransactionManager implements repositories.TransactionManager over a Store
type TransactionManager struct {
	store *Store
}

// NewTransactionManager creates a transaction manager for the store
func NewTransactionManager(store *Store) repositories.TransactionManager {
	return &TransactionManager{store: store}
}

// ExecTx runs fn with the store locked, rolling back every change fn made
// if it returns an error. Nested calls join the outer transaction.
func (tm *TransactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	s := tm.store
	if s.inTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) stamp(created, updated *time.Time) {
	now := s.now()
	if created.IsZero() {
		*created = now
	}
	if updated != nil && updated.IsZero() {
		*updated = *created
	}
}

// NewRepositories wires every memory repository to one store
func NewRepositories(store *Store) *repositories.Set {
	return &repositories.Set{
		Users:        NewUserRepository(store),
		Folders:      NewFolderRepository(store),
		Files:        NewFileRepository(store),
		Shares:       NewShareRepository(store),
		PublicShares: NewPublicShareRepository(store),
		Orphans:      NewOrphanRepository(store),
		Tx:           NewTransactionManager(store),
	}
}
