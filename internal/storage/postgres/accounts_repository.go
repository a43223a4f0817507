package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pamarcar/stays/internal/domain/accounts"
	"github.com/pamarcar/stays/internal/domain/paging"
)

type AccountRepository struct {
	pool *pgxpool.Pool
}

const accountColumns = `id, email, name, password_hash, roles, created_at, updated_at`

func scanAccount(row pgx.Row) (*accounts.Account, error) {
	var account accounts.Account
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.Name,
		&account.PasswordHash,
		&account.Roles,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*accounts.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE lower(email) = lower($1)`, email)
	account, err := scanAccount(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, accounts.ErrNotFound
		}
		return nil, fmt.Errorf("find account by email: %w", err)
	}
	return account, nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id int64) (*accounts.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	account, err := scanAccount(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, accounts.ErrNotFound
		}
		return nil, fmt.Errorf("find account by id: %w", err)
	}
	return account, nil
}

func (r *AccountRepository) Insert(ctx context.Context, account *accounts.Account) (*accounts.Account, error) {
	row := r.pool.QueryRow(ctx, `
INSERT INTO accounts (email, name, password_hash, roles)
VALUES ($1, $2, $3, $4)
RETURNING `+accountColumns,
		account.Email, account.Name, account.PasswordHash, account.Roles)

	created, err := scanAccount(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, accounts.ErrEmailTaken
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return created, nil
}

func (r *AccountRepository) List(ctx context.Context, filter accounts.ListFilter, page paging.Request) ([]accounts.Account, int64, error) {
	where, args := accountFilter(filter)

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM accounts`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count accounts: %w", err)
	}

	query := `SELECT ` + accountColumns + ` FROM accounts` + where + orderBy(page.Sort, "id") +
		fmt.Sprintf(` LIMIT %d OFFSET %d`, page.Limit(), page.Offset())
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []accounts.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, *account)
	}
	return out, total, rows.Err()
}

func accountFilter(filter accounts.ListFilter) (string, []any) {
	var clauses []string
	var args []any
	if filter.Email != "" {
		args = append(args, "%"+filter.Email+"%")
		clauses = append(clauses, fmt.Sprintf("email ILIKE $%d", len(args)))
	}
	if filter.Name != "" {
		args = append(args, "%"+filter.Name+"%")
		clauses = append(clauses, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// orderBy renders an ORDER BY clause from already-whitelisted sort
// columns. fallback keeps pagination stable when no sort is requested.
func orderBy(sort []paging.Sort, fallback string) string {
	if len(sort) == 0 {
		return " ORDER BY " + fallback
	}
	parts := make([]string, 0, len(sort))
	for _, order := range sort {
		direction := "ASC"
		if order.Desc {
			direction = "DESC"
		}
		parts = append(parts, order.Field+" "+direction)
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}
