package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories over one database handle so a unit of work
// can span all of them.
type Store interface {
	Users() UserRepository
	Emails() EmailRepository
	Logs() ActivityLogRepository
	// Transaction runs fn against a Store bound to a single transaction.
	// Returning an error from fn rolls everything back.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db     *gorm.DB
	users  UserRepository
	emails EmailRepository
	logs   ActivityLogRepository
}

// NewStore creates a Store backed by db
func NewStore(db *gorm.DB) Store {
	return &gormStore{
		db:     db,
		users:  NewUserRepository(db),
		emails: NewEmailRepository(db),
		logs:   NewActivityLogRepository(db),
	}
}

func (s *gormStore) Users() UserRepository { return s.users }
func (s *gormStore) Emails() EmailRepository { return s.emails }
func (s *gormStore) Logs() ActivityLogRepository { return s.logs }

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
