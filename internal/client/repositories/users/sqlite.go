package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vposukhov/stockpilot/internal/client/models"
	"github.com/vposukhov/stockpilot/internal/common"
	"github.com/vposukhov/stockpilot/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.LocalUser, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, email, created_at, last_sign_in, salt, verifier
		FROM offline_users ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list offline users: %w", err)
	}
	defer rows.Close()

	result := make([]*models.LocalUser, 0)
	for rows.Next() {
		u := &models.LocalUser{}
		if err := rows.Scan(&u.ID, &u.Email, &u.CreatedAt, &u.LastSignIn, &u.Salt, &u.Verifier); err != nil {
			return nil, fmt.Errorf("failed to scan offline user row: %w", err)
		}
		result = append(result, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate offline user rows: %w", err)
	}

	return result, nil
}

func (r *SQLiteRepository) GetByEmail(ctx context.Context, email string) (*models.LocalUser, error) {
	u := &models.LocalUser{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, created_at, last_sign_in, salt, verifier
		FROM offline_users WHERE email = ?
	`, email).Scan(&u.ID, &u.Email, &u.CreatedAt, &u.LastSignIn, &u.Salt, &u.Verifier)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get offline user by email: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.LocalUser, error) {
	u := &models.LocalUser{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, created_at, last_sign_in, salt, verifier
		FROM offline_users WHERE id = ?
	`, id).Scan(&u.ID, &u.Email, &u.CreatedAt, &u.LastSignIn, &u.Salt, &u.Verifier)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get offline user by id: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) Add(ctx context.Context, email string) (*models.LocalUser, error) {
	if !common.IsValidEmail(email) {
		return nil, common.ErrInvalidEmailFormat
	}

	if _, err := r.GetByEmail(ctx, email); err == nil {
		return nil, common.ErrDuplicateAccount
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	u := &models.LocalUser{
		ID:         uuid.NewString(),
		Email:      email,
		CreatedAt:  now,
		LastSignIn: now,
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO offline_users (id, email, created_at, last_sign_in)
		VALUES (?, ?, ?, ?)
	`, u.ID, u.Email, u.CreatedAt, u.LastSignIn)
	if err != nil {
		return nil, fmt.Errorf("failed to add offline user: %w", err)
	}

	return u, nil
}

func (r *SQLiteRepository) TouchLastSignIn(ctx context.Context, id string, when time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE offline_users SET last_sign_in = ? WHERE id = ?
	`, when.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update last_sign_in: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) SetCredential(ctx context.Context, id string, salt, verifier []byte) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE offline_users SET salt = ?, verifier = ? WHERE id = ?
	`, salt, verifier, id)
	if err != nil {
		return fmt.Errorf("failed to set credential: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}
