package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/investdash-backend/internal/domain"
)

// timestampLayout sorts lexicographically in UTC
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

const selectColumns = `id, user_id, name, symbol, investment_type, amount, purchase_price,
		current_price, purchase_date, description, created_at, updated_at`

const ledgerOrder = ` ORDER BY purchase_date, created_at, id`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// transactionRepository implements domain.TransactionRepository on SQLite.
// Decimals and dates are stored as TEXT and parsed on read.
type transactionRepository struct {
	db *DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *DB) domain.TransactionRepository {
	return &transactionRepository{db: db}
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var id, investmentType, amountStr, priceStr, dateStr, createdStr string
	var userID sql.NullInt64
	var currentStr, updatedStr sql.NullString

	err := row.Scan(
		&id,
		&userID,
		&tx.Name,
		&tx.Symbol,
		&investmentType,
		&amountStr,
		&priceStr,
		&currentStr,
		&dateStr,
		&tx.Description,
		&createdStr,
		&updatedStr,
	)
	if err != nil {
		return nil, err
	}

	if tx.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("failed to parse id: %w", err)
	}
	tx.InvestmentType = domain.InvestmentType(investmentType)
	if userID.Valid {
		u := userID.Int64
		tx.UserID = &u
	}
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
	if tx.PurchaseDate, err = time.Parse(domain.DateLayout, dateStr); err != nil {
		return nil, fmt.Errorf("failed to parse purchase_date: %w", err)
	}
	if tx.CreatedAt, err = time.Parse(timestampLayout, createdStr); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if updatedStr.Valid {
		updated, err := time.Parse(timestampLayout, updatedStr.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse updated_at: %w", err)
		}
		tx.UpdatedAt = &updated
	}

	return &tx, nil
}

func insertTransaction(ctx context.Context, q querier, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, name, symbol, investment_type, amount, purchase_price,
			current_price, purchase_date, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var userID, current interface{}
	if tx.UserID != nil {
		userID = *tx.UserID
	}
	if tx.CurrentPrice != nil {
		current = tx.CurrentPrice.String()
	}

	_, err := q.ExecContext(ctx, query,
		tx.ID.String(),
		userID,
		tx.Name,
		tx.Symbol,
		string(tx.InvestmentType),
		tx.Amount.String(),
		tx.PurchasePrice.String(),
		current,
		tx.PurchaseDate.Format(domain.DateLayout),
		tx.Description,
		formatTimestamp(tx.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// Create inserts a new ledger entry
func (r *transactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	return insertTransaction(ctx, r.db, tx)
}

// GetByID retrieves a ledger entry by its ID
func (r *transactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + selectColumns + ` FROM transactions WHERE id = ?`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("transaction %s not found", id)
		}
		return nil, fmt.Errorf("failed to get transaction by ID: %w", err)
	}
	return tx, nil
}

func whereClause(userID *int64, investmentType domain.InvestmentType, symbol string) (string, []interface{}) {
	var where []string
	var args []interface{}
	if userID != nil {
		where = append(where, "user_id = ?")
		args = append(args, *userID)
	}
	if investmentType != "" {
		where = append(where, "investment_type = ?")
		args = append(args, string(investmentType))
	}
	if symbol != "" {
		where = append(where, "symbol = ?")
		args = append(args, symbol)
	}
	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func queryTransactions(ctx context.Context, q querier, query string, args ...interface{}) ([]*domain.Transaction, error) {
	rows, err := q.QueryContext(ctx, query, args...)
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

// List retrieves ledger entries in purchase-date order
func (r *transactionRepository) List(ctx context.Context, f domain.TransactionFilter) ([]*domain.Transaction, error) {
	where, args := whereClause(f.UserID, f.InvestmentType, f.Symbol)
	query := `SELECT ` + selectColumns + ` FROM transactions` + where + ledgerOrder
	if f.Limit > 0 || f.Offset > 0 {
		// SQLite requires LIMIT before OFFSET; -1 means unbounded
		limit := -1
		if f.Limit > 0 {
			limit = f.Limit
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, f.Offset)
	}
	return queryTransactions(ctx, r.db, query, args...)
}

// Update persists the mutable fields of a ledger entry
func (r *transactionRepository) Update(ctx context.Context, tx *domain.Transaction) error {
	query := `
		UPDATE transactions
		SET name = ?, purchase_price = ?, current_price = ?, description = ?, updated_at = ?
		WHERE id = ?
	`

	var current, updated interface{}
	if tx.CurrentPrice != nil {
		current = tx.CurrentPrice.String()
	}
	if tx.UpdatedAt != nil {
		updated = formatTimestamp(*tx.UpdatedAt)
	}

	result, err := r.db.ExecContext(ctx, query,
		tx.Name,
		tx.PurchasePrice.String(),
		current,
		tx.Description,
		updated,
		tx.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return expectOneRow(result, tx.ID)
}

// Delete removes a ledger entry
func (r *transactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id.String())
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

// netAmount sums in Go: amounts are TEXT and SQLite SUM would go through float
func netAmount(ctx context.Context, q querier, symbol string, userID *int64) (decimal.Decimal, error) {
	where, args := whereClause(userID, "", symbol)
	rows, err := q.QueryContext(ctx, `SELECT amount FROM transactions`+where, args...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query position: %w", err)
	}
	defer rows.Close()

	sum := decimal.Zero
	for rows.Next() {
		var amountStr string
		if err := rows.Scan(&amountStr); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan amount: %w", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to parse amount: %w", err)
		}
		sum = sum.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("error iterating amounts: %w", err)
	}
	return sum, nil
}

// NetAmount sums the signed amounts of a symbol
func (r *transactionRepository) NetAmount(ctx context.Context, symbol string, userID *int64) (decimal.Decimal, error) {
	return netAmount(ctx, r.db, symbol, userID)
}

// FindReference retrieves the earliest entry of a symbol
func (r *transactionRepository) FindReference(ctx context.Context, symbol string, userID *int64) (*domain.Transaction, error) {
	where, args := whereClause(userID, "", symbol)
	query := `SELECT ` + selectColumns + ` FROM transactions` + where + ledgerOrder + ` LIMIT 1`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("no transactions for symbol %s", symbol)
		}
		return nil, fmt.Errorf("failed to find reference transaction: %w", err)
	}
	return tx, nil
}

// AppendSell re-checks the position and inserts the sell inside one
// BEGIN IMMEDIATE transaction, which holds the database write lock.
func (r *transactionRepository) AppendSell(ctx context.Context, tx *domain.Transaction) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

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
