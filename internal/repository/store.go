package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/NeZlox/authorization-service/internal/models"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUserExists      = errors.New("user already exists")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionConflict = errors.New("session was modified concurrently")
)

type UserStore interface {
	Create(ctx context.Context, user models.User) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	List(ctx context.Context, page models.Page) ([]models.User, int, error)
	Update(ctx context.Context, id string, upd models.UserUpdate) (models.User, error)
	Delete(ctx context.Context, id string) error
}

type SessionStore interface {
	Create(ctx context.Context, session models.Session) (models.Session, error)
	GetByID(ctx context.Context, id string) (models.Session, error)
	// Update rotates the session only while its version still equals version.
	Update(ctx context.Context, id string, version int, upd models.SessionUpdate) (models.Session, error)
	ListByUser(ctx context.Context, userID string) ([]models.Session, error)
	List(ctx context.Context, filter SessionFilter, page models.Page) ([]models.Session, int, error)
	Delete(ctx context.Context, id string) error
	DeleteWhere(ctx context.Context, filter SessionFilter) (int64, error)
	// DeleteOldest removes up to n matching sessions, oldest created first.
	DeleteOldest(ctx context.Context, filter SessionFilter, n int) (int64, error)
	CountWhere(ctx context.Context, filter SessionFilter) (int, error)
}

// Store groups the repositories. WithinTx runs fn against a Store bound to one
// transaction; the transaction commits when fn returns nil.
type Store interface {
	Users() UserStore
	Sessions() SessionStore
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type PostgresStore struct {
	db       DBTX
	users    *UserRepository
	sessions *SessionRepository
}

func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{
		db:       db,
		users:    NewUserRepository(db),
		sessions: NewSessionRepository(db),
	}
}

func (s *PostgresStore) Users() UserStore       { return s.users }
func (s *PostgresStore) Sessions() SessionStore { return s.sessions }

// WithinTx opens a transaction, or a savepoint when s is already transactional.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		return fn(NewPostgresStore(tx))
	})
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

type scanner interface {
	Scan(dest ...any) error
}
