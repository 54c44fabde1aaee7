package repo

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories that commit together.
type Store interface {
	Forms() FormRepo
	Submissions() FormSubmissionRepo
	Users() UserRepo
	// Transaction runs fn against a Store bound to a single database transaction.
	// A non-nil error or a panic from fn rolls back every write made through tx;
	// returning nil commits them as one unit.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db          *gorm.DB
	forms       FormRepo
	submissions FormSubmissionRepo
	users       UserRepo
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{
		db:          db,
		forms:       NewFormRepo(db),
		submissions: NewFormSubmissionRepo(db),
		users:       NewUserRepo(db),
	}
}

func (s *gormStore) Forms() FormRepo                 { return s.forms }
func (s *gormStore) Submissions() FormSubmissionRepo { return s.submissions }
func (s *gormStore) Users() UserRepo                 { return s.users }

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
