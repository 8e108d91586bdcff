package transaction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/FACorreiaa/paycycle-budget/internal/apperr"
	"github.com/FACorreiaa/paycycle-budget/pkg/db"
)

const transactionColumns = `id, date, description, amount, balance, category_id, account_name,
	import_hash, is_manually_categorized, created_at, updated_at`

// Batch is the unit of work an import runs in. Each lookup and Insert is
// isolated by a savepoint, so a failed row does not abort the rows around it.
type Batch interface {
	FindByImportHash(ctx context.Context, hash string) (*Transaction, error)
	Insert(ctx context.Context, t *Transaction) error
}

// Repository handles database operations for transactions
type Repository struct {
	db db.DBTX
}

func NewRepository(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

// RunBatch runs fn inside one database transaction and commits once when fn
// returns nil.
func (r *Repository) RunBatch(ctx context.Context, fn func(ctx context.Context, b Batch) error) error {
	beginner, ok := r.db.(db.TxBeginner)
	if !ok {
		return errors.New("transaction repository connection cannot begin a transaction")
	}

	tx, err := beginner.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin import transaction: %w", err)
	}

	if err := fn(ctx, &batch{tx: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit import transaction: %w", err)
	}
	return nil
}

type batch struct {
	tx pgx.Tx
}

func (b *batch) FindByImportHash(ctx context.Context, hash string) (*Transaction, error) {
	var found *Transaction
	err := b.savepoint(ctx, func(q db.DBTX) error {
		var err error
		found, err = findByImportHash(ctx, q, hash)
		return err
	})
	return found, err
}

func (b *batch) Insert(ctx context.Context, t *Transaction) error {
	return b.savepoint(ctx, func(q db.DBTX) error {
		return insert(ctx, q, t)
	})
}

// savepoint runs fn in a nested transaction. A failed statement aborts only
// the savepoint, and the outer transaction stays usable for later rows.
func (b *batch) savepoint(ctx context.Context, fn func(q db.DBTX) error) error {
	sp, err := b.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to open savepoint: %w", err)
	}
	if err := fn(sp); err != nil {
		if rbErr := sp.Rollback(ctx); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return sp.Commit(ctx)
}

// FindByImportHash returns nil, nil when no transaction has the hash.
func (r *Repository) FindByImportHash(ctx context.Context, hash string) (*Transaction, error) {
	return findByImportHash(ctx, r.db, hash)
}

// Insert stores t and fills its id and timestamps. A second row with the
// same import hash fails with apperr.ErrDuplicate.
func (r *Repository) Insert(ctx context.Context, t *Transaction) error {
	return insert(ctx, r.db, t)
}

func findByImportHash(ctx context.Context, q db.DBTX, hash string) (*Transaction, error) {
	t, err := scanTransaction(q.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE import_hash = $1`, hash))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find transaction by hash: %w", err)
	}
	return t, nil
}

func insert(ctx context.Context, q db.DBTX, t *Transaction) error {
	err := q.QueryRow(ctx, `
		INSERT INTO transactions (date, description, amount, balance, category_id, account_name,
			import_hash, is_manually_categorized)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		t.Date, t.Description, t.Amount, t.Balance, t.CategoryID, t.AccountName,
		t.ImportHash, t.IsManuallyCategorized,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return apperr.Duplicate("transaction with import hash %s already exists", t.ImportHash)
	}
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// ListByDateRange returns transactions dated within [start, end], oldest first.
func (r *Repository) ListByDateRange(ctx context.Context, start, end time.Time) ([]Transaction, error) {
	rows, err := r.db.Query(ctx, `SELECT `+transactionColumns+` FROM transactions
		WHERE date >= $1 AND date <= $2 ORDER BY date, id`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions by date: %w", err)
	}
	return collectTransactions(rows)
}

// Get returns apperr.ErrNotFound when the transaction does not exist.
func (r *Repository) Get(ctx context.Context, id int64) (*Transaction, error) {
	t, err := scanTransaction(r.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("transaction", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

// List returns one page of transactions matching f, newest first.
func (r *Repository) List(ctx context.Context, f Filter) ([]Transaction, error) {
	f = f.Normalize()
	where, args := f.where()
	args = append(args, f.Limit, f.Offset)

	query := fmt.Sprintf(`SELECT %s FROM transactions%s ORDER BY date DESC, id DESC LIMIT $%d OFFSET $%d`,
		transactionColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return collectTransactions(rows)
}

// where renders the filter as a WHERE clause with numbered placeholders.
func (f Filter) where() (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Start != nil {
		add("date >= $%d", *f.Start)
	}
	if f.End != nil {
		add("date <= $%d", *f.End)
	}
	switch {
	case f.Uncategorized:
		conds = append(conds, "category_id IS NULL")
	case f.CategoryID != nil:
		add("category_id = $%d", *f.CategoryID)
	}
	if f.Search != "" {
		add("description ILIKE $%d", "%"+escapeLike(f.Search)+"%")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Update writes the mutable fields of t.
func (r *Repository) Update(ctx context.Context, t *Transaction) error {
	err := r.db.QueryRow(ctx, `
		UPDATE transactions
		SET description = $2, category_id = $3, is_manually_categorized = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		t.ID, t.Description, t.CategoryID, t.IsManuallyCategorized,
	).Scan(&t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("transaction", t.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("transaction", id)
	}
	return nil
}

func collectTransactions(rows pgx.Rows) ([]Transaction, error) {
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func scanTransaction(row pgx.Row) (*Transaction, error) {
	var t Transaction
	err := row.Scan(
		&t.ID, &t.Date, &t.Description, &t.Amount, &t.Balance, &t.CategoryID, &t.AccountName,
		&t.ImportHash, &t.IsManuallyCategorized, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
