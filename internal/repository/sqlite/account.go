package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garnizeh/recruit/pkg/models"
)

func (r *SQLiteRepo) CreateAccount(ctx context.Context, a *models.Account) (int64, error) {
	if a == nil {
		return 0, fmt.Errorf("account is nil")
	}
	if !a.Role.Valid() {
		return 0, fmt.Errorf("invalid role %q", a.Role)
	}

	ts := now()
	res, err := r.q.ExecContext(ctx, `INSERT INTO accounts (username, password_hash, role, created, updated) VALUES (?, ?, ?, ?, ?)`, a.Username, a.PasswordHash, a.Role, ts, ts)
	if err != nil {
		return 0, mapErr(err)
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetAccountByID(ctx context.Context, id int64) (*models.Account, error) {
	row := r.q.QueryRowContext(ctx, `SELECT id, username, password_hash, role, created, updated FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

func (r *SQLiteRepo) GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	row := r.q.QueryRowContext(ctx, `SELECT id, username, password_hash, role, created, updated FROM accounts WHERE username = ?`, username)
	return scanAccount(row)
}

func (r *SQLiteRepo) UpdateAccountPassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := r.q.ExecContext(ctx, `UPDATE accounts SET password_hash = ?, updated = ? WHERE id = ?`, passwordHash, now(), id)
	return err
}

func (r *SQLiteRepo) UpdateAccountUsername(ctx context.Context, id int64, username string) error {
	_, err := r.q.ExecContext(ctx, `UPDATE accounts SET username = ?, updated = ? WHERE id = ?`, username, now(), id)
	return mapErr(err)
}

// ExistingUsernames returns the subset of usernames already taken.
func (r *SQLiteRepo) ExistingUsernames(ctx context.Context, usernames []string) (map[string]bool, error) {
	return r.existing(ctx, `SELECT username FROM accounts WHERE username IN `, usernames)
}

func (r *SQLiteRepo) DeleteAccount(ctx context.Context, id int64) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	return err
}

func scanAccount(row *sql.Row) (*models.Account, error) {
	var a models.Account
	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Role, &a.Created, &a.Updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return &a, nil
}
