package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire and storage format of purchase dates
const DateLayout = "2006-01-02"

// Transaction is one signed entry of the investment ledger.
// Amount is positive for a buy and negative for a sell.
type Transaction struct {
	ID             uuid.UUID
	UserID         *int64 // nil for unscoped (legacy) entries
	Name           string
	Symbol         string
	InvestmentType InvestmentType
	Amount         decimal.Decimal
	PurchasePrice  decimal.Decimal  // buy price, or sale price for a sell
	CurrentPrice   *decimal.Decimal // mark price, buys only
	PurchaseDate   time.Time
	Description    string
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}

// IsBuy reports whether the entry adds to the position
func (t *Transaction) IsBuy() bool {
	return t.Amount.IsPositive()
}

// IsSell reports whether the entry removes from the position
func (t *Transaction) IsSell() bool {
	return t.Amount.IsNegative()
}

// Validate ensures the transaction adheres to ledger rules
func (t *Transaction) Validate() error {
	if err := validateLength("name", t.Name, 1, MaxNameLength); err != nil {
		return err
	}
	if err := validateLength("symbol", t.Symbol, 1, MaxSymbolLength); err != nil {
		return err
	}
	if strings.TrimSpace(t.Symbol) != t.Symbol {
		return Validationf("symbol must not have surrounding whitespace")
	}
	if !t.InvestmentType.Valid() {
		return Validationf("investment type %q is not supported", t.InvestmentType)
	}
	if t.Amount.IsZero() {
		return Validationf("amount must not be zero")
	}
	if !t.PurchasePrice.IsPositive() {
		return Validationf("purchase price must be positive")
	}
	if t.CurrentPrice != nil {
		if t.IsSell() {
			return Validationf("sell transactions do not carry a current price")
		}
		if !t.CurrentPrice.IsPositive() {
			return Validationf("current price must be positive")
		}
	}
	if t.PurchaseDate.IsZero() {
		return Validationf("purchase date is required")
	}
	if err := validateLength("description", t.Description, 0, MaxDescriptionLength); err != nil {
		return err
	}
	return nil
}

// TruncateDate drops the time of day, keeping the calendar date in UTC
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, InvalidRequestf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return d, nil
}
