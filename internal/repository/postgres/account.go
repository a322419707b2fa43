package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
)

const accountColumns = `id, email, password_hash, full_name, role, phone, is_active, created_at, updated_at`

type accountRepository struct {
	BaseRepository
}

func NewAccountRepository(base BaseRepository) repository.AccountRepository {
	return &accountRepository{base}
}

func (r *accountRepository) Create(ctx context.Context, tx *sqlx.Tx, account *model.Account) error {
	query := `
		INSERT INTO accounts (
			id, email, password_hash, full_name, role, phone, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now
	account.Email = strings.ToLower(strings.TrimSpace(account.Email))

	_, err := r.ext(tx).ExecContext(ctx, query,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.FullName,
		account.Role,
		account.Phone,
		account.IsActive,
		account.CreatedAt,
		account.UpdatedAt,
	)
	return translate(err, "create account")
}

func (r *accountRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	var account model.Account
	if err := r.db.GetContext(ctx, &account, query, id); err != nil {
		return nil, translate(err, "get account")
	}
	return &account, nil
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`

	var account model.Account
	if err := r.db.GetContext(ctx, &account, query, strings.ToLower(strings.TrimSpace(email))); err != nil {
		return nil, translate(err, "get account by email")
	}
	return &account, nil
}

func (r *accountRepository) Update(ctx context.Context, account *model.Account) error {
	query := `
		UPDATE accounts SET
			full_name = $1,
			phone = $2,
			is_active = $3,
			password_hash = $4,
			updated_at = $5
		WHERE id = $6
	`

	account.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query,
		account.FullName,
		account.Phone,
		account.IsActive,
		account.PasswordHash,
		account.UpdatedAt,
		account.ID,
	)
	if err != nil {
		return translate(err, "update account")
	}

	return expectOneRow(result, "update account")
}

// Delete removes the account; profiles and appointments cascade.
func (r *accountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return translate(err, "delete account")
	}
	return expectOneRow(result, "delete account")
}

func (r *accountRepository) List(ctx context.Context, filters model.AccountFilters) ([]*model.Account, int, error) {
	where, args := " WHERE 1=1", []interface{}{}

	if filters.Role != "" {
		args = append(args, filters.Role)
		where += fmt.Sprintf(" AND role = $%d", len(args))
	}
	if filters.IsActive != nil {
		args = append(args, *filters.IsActive)
		where += fmt.Sprintf(" AND is_active = $%d", len(args))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += fmt.Sprintf(" AND (full_name ILIKE $%d OR email ILIKE $%d)", len(args), len(args))
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM accounts`+where, args...); err != nil {
		return nil, 0, translate(err, "count accounts")
	}

	query := `SELECT ` + accountColumns + ` FROM accounts` + where + ` ORDER BY created_at DESC`
	query, args = paginate(query, args, filters.Limit, filters.Offset)

	accounts := []*model.Account{}
	if err := r.db.SelectContext(ctx, &accounts, query, args...); err != nil {
		return nil, 0, translate(err, "list accounts")
	}
	return accounts, total, nil
}

func (r *accountRepository) Count(ctx context.Context, role model.Role) (int, error) {
	var total int
	err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM accounts WHERE ($1::text = '' OR role = $1::text)`, string(role))
	if err != nil {
		return 0, translate(err, "count accounts")
	}
	return total, nil
}
