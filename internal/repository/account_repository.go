package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"hedgefarm/internal/models"
)

// Ошибки репозитория аккаунтов
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")
)

// AccountRepository - работа с таблицей accounts
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository создает новый экземпляр репозитория
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create создает новый аккаунт. Ключи должны быть уже зашифрованы.
func (r *AccountRepository) Create(ctx context.Context, acc *models.Account) error {
	query := `
		INSERT INTO accounts (label, group_label, position, api_key, secret_key, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	now := time.Now()
	acc.CreatedAt = now
	acc.UpdatedAt = now

	err := r.db.QueryRowContext(
		ctx,
		query,
		acc.Label,
		acc.GroupLabel,
		acc.Position,
		acc.APIKey,
		acc.SecretKey,
		acc.Enabled,
		acc.CreatedAt,
		acc.UpdatedAt,
	).Scan(&acc.ID)

	if err != nil {
		if isAccountUniqueViolation(err) {
			return ErrAccountExists
		}
		return err
	}

	return nil
}

// GetByID возвращает аккаунт по ID
func (r *AccountRepository) GetByID(ctx context.Context, id int) (*models.Account, error) {
	query := `
		SELECT id, label, group_label, position, api_key, secret_key, enabled, created_at, updated_at
		FROM accounts
		WHERE id = $1`

	acc := &models.Account{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&acc.ID,
		&acc.Label,
		&acc.GroupLabel,
		&acc.Position,
		&acc.APIKey,
		&acc.SecretKey,
		&acc.Enabled,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	return acc, nil
}

// ListEnabled возвращает включённые аккаунты в порядке групп и позиций.
// Порядок важен: directory разбивает аккаунты на пары последовательно.
func (r *AccountRepository) ListEnabled(ctx context.Context) ([]*models.Account, error) {
	query := `
		SELECT id, label, group_label, position, api_key, secret_key, enabled, created_at, updated_at
		FROM accounts
		WHERE enabled = true
		ORDER BY group_label, position`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		acc := &models.Account{}
		err := rows.Scan(
			&acc.ID,
			&acc.Label,
			&acc.GroupLabel,
			&acc.Position,
			&acc.APIKey,
			&acc.SecretKey,
			&acc.Enabled,
			&acc.CreatedAt,
			&acc.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}

	return accounts, rows.Err()
}

// SetEnabled включает или выключает аккаунт
func (r *AccountRepository) SetEnabled(ctx context.Context, id int, enabled bool) error {
	query := `
		UPDATE accounts
		SET enabled = $1, updated_at = $2
		WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, enabled, time.Now(), id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// Delete удаляет аккаунт
func (r *AccountRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// isAccountUniqueViolation проверяет нарушение уникальности (label)
func isAccountUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "UNIQUE constraint")
}
