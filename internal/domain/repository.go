package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionFilter narrows a ledger read. Zero values mean "no restriction".
type TransactionFilter struct {
	UserID         *int64
	InvestmentType InvestmentType
	Symbol         string
	Limit          int // 0 returns every matching entry
	Offset         int
}

// TransactionRepository defines the interface for ledger persistence operations
type TransactionRepository interface {
	// Create appends a new entry
	Create(ctx context.Context, tx *Transaction) error

	// GetByID retrieves one entry; returns a NotFound error when it does not exist
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// List returns matching entries ordered by purchase date, then creation time
	List(ctx context.Context, filter TransactionFilter) ([]*Transaction, error)

	// Update persists the mutable fields of an existing entry
	Update(ctx context.Context, tx *Transaction) error

	// Delete removes an entry; returns a NotFound error when it does not exist
	Delete(ctx context.Context, id uuid.UUID) error

	// NetAmount sums the signed amounts of every entry for symbol.
	// A nil userID sums across all users.
	NetAmount(ctx context.Context, symbol string, userID *int64) (decimal.Decimal, error)

	// FindReference returns the earliest entry for symbol, used to copy descriptive fields.
	// Returns a NotFound error when the symbol has no entry.
	FindReference(ctx context.Context, symbol string, userID *int64) (*Transaction, error)

	// AppendSell inserts a sell entry only if the net position of its symbol
	// covers the sold quantity at commit time. The check and the insert are atomic.
	// Returns an InvalidRequest error when the position no longer covers the sale.
	AppendSell(ctx context.Context, tx *Transaction) error
}
