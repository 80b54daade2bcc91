package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"github.com/garnizeh/recruit/internal/db"
	"github.com/garnizeh/recruit/pkg/repository"
)

// SQLiteRepo implements repository interfaces using the internal DB wrapper.
type SQLiteRepo struct {
	conn   *db.DB
	q      db.Querier
	inTx   bool
	logger *slog.Logger
}

// Ensure SQLiteRepo implements the public interfaces.
var _ repository.AccountRepo = (*SQLiteRepo)(nil)
var _ repository.CandidateRepo = (*SQLiteRepo)(nil)
var _ repository.InterviewRepo = (*SQLiteRepo)(nil)
var _ repository.Store = (*SQLiteRepo)(nil)

func New(conn *db.DB, logger *slog.Logger) *SQLiteRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteRepo{conn: conn, q: conn.GetConn(), logger: logger}
}

// WithTx implements repository.Store.
func (r *SQLiteRepo) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	if r.inTx {
		return fn(r)
	}

	return r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		return fn(&SQLiteRepo{conn: r.conn, q: tx, inTx: true, logger: r.logger})
	})
}

// mapErr wraps unique and primary key violations with repository.ErrDuplicate.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var se *msqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlitelib.SQLITE_CONSTRAINT_UNIQUE, sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %v", repository.ErrDuplicate, err)
		}
	}
	return err
}

// likePattern escapes LIKE wildcards in s and wraps it for a substring match.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func now() int64 {
	return time.Now().UTC().UnixMilli()
}
