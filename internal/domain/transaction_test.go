package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func validBuy() Transaction {
	price := decimal.NewFromInt(175)
	return Transaction{
		ID:             uuid.New(),
		Name:           "Apple Inc.",
		Symbol:         "AAPL",
		InvestmentType: InvestmentTypeStocks,
		Amount:         decimal.NewFromInt(10),
		PurchasePrice:  decimal.NewFromInt(150),
		CurrentPrice:   &price,
		PurchaseDate:   time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
	}
}

func TestTransaction_Validate(t *testing.T) {
	negative := decimal.NewFromInt(-1)
	mark := decimal.NewFromInt(180)

	tests := []struct {
		name   string
		mutate func(tx *Transaction)
		kind   ErrorKind
		errMsg string
	}{
		{
			name:   "Valid buy should pass",
			mutate: func(tx *Transaction) {},
		},
		{
			name: "Valid sell without current price should pass",
			mutate: func(tx *Transaction) {
				tx.Amount = decimal.NewFromInt(-3)
				tx.CurrentPrice = nil
			},
		},
		{
			name:   "Empty name should fail",
			mutate: func(tx *Transaction) { tx.Name = "" },
			kind:   KindValidation,
			errMsg: "name must be at least 1 characters",
		},
		{
			name: "Symbol longer than 50 characters should fail",
			mutate: func(tx *Transaction) {
				tx.Symbol = "ABCDEFGHIJABCDEFGHIJABCDEFGHIJABCDEFGHIJABCDEFGHIJX"
			},
			kind:   KindValidation,
			errMsg: "symbol must be at most 50 characters",
		},
		{
			name:   "Unknown investment type should fail",
			mutate: func(tx *Transaction) { tx.InvestmentType = "stamps" },
			kind:   KindValidation,
			errMsg: "not supported",
		},
		{
			name:   "Zero amount should fail",
			mutate: func(tx *Transaction) { tx.Amount = decimal.Zero },
			kind:   KindValidation,
			errMsg: "amount must not be zero",
		},
		{
			name:   "Non-positive purchase price should fail",
			mutate: func(tx *Transaction) { tx.PurchasePrice = decimal.Zero },
			kind:   KindValidation,
			errMsg: "purchase price must be positive",
		},
		{
			name:   "Negative current price should fail",
			mutate: func(tx *Transaction) { tx.CurrentPrice = &negative },
			kind:   KindValidation,
			errMsg: "current price must be positive",
		},
		{
			name: "Sell carrying a current price should fail",
			mutate: func(tx *Transaction) {
				tx.Amount = decimal.NewFromInt(-1)
				tx.CurrentPrice = &mark
			},
			kind:   KindValidation,
			errMsg: "sell transactions do not carry a current price",
		},
		{
			name:   "Missing purchase date should fail",
			mutate: func(tx *Transaction) { tx.PurchaseDate = time.Time{} },
			kind:   KindValidation,
			errMsg: "purchase date is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := validBuy()
			tt.mutate(&tx)

			err := tx.Validate()

			if tt.kind == "" {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err))
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestTransaction_Side(t *testing.T) {
	tx := validBuy()
	assert.True(t, tx.IsBuy())
	assert.False(t, tx.IsSell())

	tx.Amount = decimal.NewFromInt(-2)
	assert.False(t, tx.IsBuy())
	assert.True(t, tx.IsSell())
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("29/02/2024")
	assert.True(t, IsInvalidRequest(err))
}

func TestTruncateDate(t *testing.T) {
	in := time.Date(2024, 3, 1, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), TruncateDate(in))
}
