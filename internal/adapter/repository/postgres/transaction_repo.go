package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/investdash-backend/internal/domain"
)

const selectColumns = `id, user_id, name, symbol, investment_type, amount, purchase_price,
		current_price, purchase_date, description, created_at, updated_at`

// ledgerOrder is the replay order every consumer of the ledger relies on
const ledgerOrder = ` ORDER BY purchase_date, created_at, id`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// transactionRepository implements domain.TransactionRepository
type transactionRepository struct {
	db *DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *DB) domain.TransactionRepository {
	return &transactionRepository{db: db}
}

func nullableUserID(userID *int64) interface{} {
	if userID == nil {
		return nil
	}
	return *userID
}

func nullableDecimal(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var userID sql.NullInt64
	var investmentType, amountStr, priceStr string
	var currentStr sql.NullString
	var updatedAt sql.NullTime

	err := row.Scan(
		&tx.ID,
		&userID,
		&tx.Name,
		&tx.Symbol,
		&investmentType,
		&amountStr,
		&priceStr,
		&currentStr,
		&tx.PurchaseDate,
		&tx.Description,
		&tx.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.InvestmentType = domain.InvestmentType(investmentType)
	tx.PurchaseDate = domain.TruncateDate(tx.PurchaseDate)
	if userID.Valid {
		id := userID.Int64
		tx.UserID = &id
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		tx.UpdatedAt = &t
	}

	// Parse NUMERIC columns
	if tx.Amount, err = decimal.NewFromString(amountStr); err != nil {
		return nil, fmt.Errorf("failed to parse amount: %w", err)
	}
	if tx.PurchasePrice, err = decimal.NewFromString(priceStr); err != nil {
		return nil, fmt.Errorf("failed to parse purchase_price: %w", err)
	}
	if currentStr.Valid {
		current, err := decimal.NewFromString(currentStr.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse current_price: %w", err)
		}
		tx.CurrentPrice = &current
	}

	return &tx, nil
}

// Create inserts a new ledger entry
func (r *transactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	return insertTransaction(ctx, r.db, tx)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertTransaction(ctx context.Context, db execer, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, name, symbol, investment_type, amount, purchase_price,
			current_price, purchase_date, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := db.ExecContext(ctx, query,
		tx.ID,
		nullableUserID(tx.UserID),
		tx.Name,
		tx.Symbol,
		string(tx.InvestmentType),
		tx.Amount.String(),
		tx.PurchasePrice.String(),
		nullableDecimal(tx.CurrentPrice),
		tx.PurchaseDate.Format(domain.DateLayout),
		tx.Description,
		tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a ledger entry by its ID
func (r *transactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + selectColumns + ` FROM transactions WHERE id = $1`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("transaction %s not found", id)
		}
		return nil, fmt.Errorf("failed to get transaction by ID: %w", err)
	}
	return tx, nil
}

// buildListQuery renders the filtered, paginated ledger query
func buildListQuery(f domain.TransactionFilter) (string, []interface{}) {
	var where []string
	var args []interface{}
	add := func(cond string, value interface{}) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.UserID != nil {
		add("user_id = $%d", *f.UserID)
	}
	if f.InvestmentType != "" {
		add("investment_type = $%d", string(f.InvestmentType))
	}
	if f.Symbol != "" {
		add("symbol = $%d", f.Symbol)
	}

	query := `SELECT ` + selectColumns + ` FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += ledgerOrder
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}

// List retrieves ledger entries in purchase-date order
func (r *transactionRepository) List(ctx context.Context, f domain.TransactionFilter) ([]*domain.Transaction, error) {
	query, args := buildListQuery(f)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	txs := []*domain.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return txs, nil
}

// Update persists the mutable fields of a ledger entry
func (r *transactionRepository) Update(ctx context.Context, tx *domain.Transaction) error {
	query := `
		UPDATE transactions
		SET name = $2, purchase_price = $3, current_price = $4, description = $5, updated_at = $6
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		tx.ID,
		tx.Name,
		tx.PurchasePrice.String(),
		nullableDecimal(tx.CurrentPrice),
		tx.Description,
		tx.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return expectOneRow(result, tx.ID)
}

// Delete removes a ledger entry
func (r *transactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return expectOneRow(result, id)
}

func expectOneRow(result sql.Result, id uuid.UUID) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return domain.NotFoundf("transaction %s not found", id)
	}
	return nil
}

func netAmount(ctx context.Context, q queryRower, symbol string, userID *int64) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0)::text FROM transactions WHERE symbol = $1`
	args := []interface{}{symbol}
	if userID != nil {
		query += ` AND user_id = $2`
		args = append(args, *userID)
	}

	var sumStr string
	if err := q.QueryRowContext(ctx, query, args...).Scan(&sumStr); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum position: %w", err)
	}
	sum, err := decimal.NewFromString(sumStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse position sum: %w", err)
	}
	return sum, nil
}

// NetAmount sums the signed amounts of a symbol
func (r *transactionRepository) NetAmount(ctx context.Context, symbol string, userID *int64) (decimal.Decimal, error) {
	return netAmount(ctx, r.db, symbol, userID)
}

// FindReference retrieves the earliest entry of a symbol
func (r *transactionRepository) FindReference(ctx context.Context, symbol string, userID *int64) (*domain.Transaction, error) {
	query := `SELECT ` + selectColumns + ` FROM transactions WHERE symbol = $1`
	args := []interface{}{symbol}
	if userID != nil {
		query += ` AND user_id = $2`
		args = append(args, *userID)
	}
	query += ledgerOrder + ` LIMIT 1`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("no transactions for symbol %s", symbol)
		}
		return nil, fmt.Errorf("failed to find reference transaction: %w", err)
	}
	return tx, nil
}

// advisoryLockKeys names the advisory locks that guard a position.
// A nil user sums every holder of the symbol, so it takes the symbol key
// exclusively. A user takes the symbol key shared plus its own position key.
func advisoryLockKeys(symbol string, userID *int64) (shared, exclusive string) {
	if userID == nil {
		return "", "symbol:" + symbol
	}
	return "symbol:" + symbol, fmt.Sprintf("position:%s|%d", symbol, *userID)
}

func lockPosition(ctx context.Context, dbTx *sql.Tx, symbol string, userID *int64) error {
	shared, exclusive := advisoryLockKeys(symbol, userID)
	if shared != "" {
		if _, err := dbTx.ExecContext(ctx, `SELECT pg_advisory_xact_lock_shared(hashtext($1))`, shared); err != nil {
			return fmt.Errorf("failed to lock symbol: %w", err)
		}
	}
	if _, err := dbTx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, exclusive); err != nil {
		return fmt.Errorf("failed to lock position: %w", err)
	}
	return nil
}

// AppendSell inserts a sell after re-checking the position inside one database transaction.
// The advisory locks serialize sells of the same position across server instances.
func (r *transactionRepository) AppendSell(ctx context.Context, tx *domain.Transaction) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	if err := lockPosition(ctx, dbTx, tx.Symbol, tx.UserID); err != nil {
		return err
	}

	available, err := netAmount(ctx, dbTx, tx.Symbol, tx.UserID)
	if err != nil {
		return err
	}
	requested := tx.Amount.Abs()
	if available.LessThan(requested) {
		return domain.InsufficientPosition(tx.Symbol, available.String(), requested.String())
	}

	if err := insertTransaction(ctx, dbTx, tx); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
