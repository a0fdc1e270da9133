package repository

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/NeZlox/authorization-service/internal/models"
)

const sessionColumns = `id, user_id, refresh_token_hash, fingerprint, user_agent, ip_address, version, expires_at, created_at, updated_at`

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session models.Session) (models.Session, error) {
	const query = `
		INSERT INTO sessions (
			id, user_id, refresh_token_hash, fingerprint, user_agent, ip_address, version, expires_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, 1, $7, $8, $9
		)
		RETURNING ` + sessionColumns

	row := r.db.QueryRow(ctx, query,
		session.ID,
		session.UserID,
		session.RefreshTokenHash,
		session.Fingerprint,
		session.UserAgent,
		session.IPAddress,
		session.ExpiresAt,
		session.CreatedAt,
		session.UpdatedAt,
	)
	created, err := scanSession(row)
	if err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			return models.Session{}, ErrUserNotFound
		}
		return models.Session{}, err
	}
	return created, nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (models.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`

	session, err := scanSession(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, ErrSessionNotFound
		}
		return models.Session{}, err
	}
	return session, nil
}

func (r *SessionRepository) Update(ctx context.Context, id string, version int, upd models.SessionUpdate) (models.Session, error) {
	const query = `
		UPDATE sessions
		SET refresh_token_hash = $3,
		    fingerprint = $4,
		    user_agent = $5,
		    ip_address = $6,
		    expires_at = $7,
		    updated_at = $8,
		    version = version + 1
		WHERE id = $1 AND version = $2
		RETURNING ` + sessionColumns

	row := r.db.QueryRow(ctx, query,
		id,
		version,
		upd.RefreshTokenHash,
		upd.Fingerprint,
		upd.UserAgent,
		upd.IPAddress,
		upd.ExpiresAt,
		upd.UpdatedAt,
	)
	session, err := scanSession(row)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.Session{}, err
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return models.Session{}, err
	}
	return models.Session{}, ErrSessionConflict
}

func (r *SessionRepository) ListByUser(ctx context.Context, userID string) ([]models.Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
	`
	return r.query(ctx, query, userID)
}

func (r *SessionRepository) List(ctx context.Context, filter SessionFilter, page models.Page) ([]models.Session, int, error) {
	page = page.Normalize()

	where, args := filter.where(nil)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM sessions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, page.Limit, page.Offset)
	query := `SELECT ` + sessionColumns + ` FROM sessions` + where +
		` ORDER BY created_at DESC, id DESC` +
		` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	sessions, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM sessions WHERE id = $1`
	cmd, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepository) DeleteWhere(ctx context.Context, filter SessionFilter) (int64, error) {
	where, args := filter.where(nil)
	cmd, err := r.db.Exec(ctx, `DELETE FROM sessions`+where, args...)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *SessionRepository) DeleteOldest(ctx context.Context, filter SessionFilter, n int) (int64, error) {
	if n <= 0 {
		return 0, nil
	}
	where, args := filter.where(nil)
	args = append(args, n)
	query := `
		DELETE FROM sessions
		WHERE id IN (
			SELECT id FROM sessions` + where + `
			ORDER BY created_at ASC, id ASC
			LIMIT $` + strconv.Itoa(len(args)) + `
		)
	`
	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *SessionRepository) CountWhere(ctx context.Context, filter SessionFilter) (int, error) {
	where, args := filter.where(nil)
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM sessions`+where, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *SessionRepository) query(ctx context.Context, query string, args ...any) ([]models.Session, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func scanSession(row scanner) (models.Session, error) {
	var session models.Session
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.RefreshTokenHash,
		&session.Fingerprint,
		&session.UserAgent,
		&session.IPAddress,
		&session.Version,
		&session.ExpiresAt,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	return session, err
}
