package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInvestmentType(t *testing.T) {
	got, err := ParseInvestmentType(" Real_Estate ")
	require.NoError(t, err)
	assert.Equal(t, InvestmentTypeRealEstate, got)

	got, err = ParseInvestmentType("")
	require.NoError(t, err)
	assert.Equal(t, InvestmentType(""), got)

	_, err = ParseInvestmentType("stamps")
	assert.True(t, IsInvalidRequest(err))
}

func TestTransactionUpdate_ApplyTo(t *testing.T) {
	t.Run("Applies every provided field", func(t *testing.T) {
		tx := validBuy()
		name := "Apple"
		price := decimal.NewFromInt(155)
		mark := decimal.NewFromInt(190)
		desc := "long term"

		err := TransactionUpdate{
			Name:          &name,
			PurchasePrice: &price,
			CurrentPrice:  &mark,
			Description:   &desc,
		}.ApplyTo(&tx)

		require.NoError(t, err)
		assert.Equal(t, "Apple", tx.Name)
		assert.True(t, tx.PurchasePrice.Equal(price))
		assert.True(t, tx.CurrentPrice.Equal(mark))
		assert.Equal(t, "long term", tx.Description)
	})

	t.Run("Leaves missing fields untouched", func(t *testing.T) {
		tx := validBuy()
		desc := "note"

		err := TransactionUpdate{Description: &desc}.ApplyTo(&tx)

		require.NoError(t, err)
		assert.Equal(t, "Apple Inc.", tx.Name)
		assert.True(t, tx.PurchasePrice.Equal(decimal.NewFromInt(150)))
	})

	t.Run("Empty update is an invalid request", func(t *testing.T) {
		tx := validBuy()
		err := TransactionUpdate{}.ApplyTo(&tx)
		assert.True(t, IsInvalidRequest(err))
	})

	t.Run("Rejects current price on a sell without mutating", func(t *testing.T) {
		tx := validBuy()
		tx.Amount = decimal.NewFromInt(-1)
		tx.CurrentPrice = nil
		name := "changed"
		mark := decimal.NewFromInt(10)

		err := TransactionUpdate{Name: &name, CurrentPrice: &mark}.ApplyTo(&tx)

		assert.True(t, IsValidation(err))
		assert.Equal(t, "Apple Inc.", tx.Name)
		assert.Nil(t, tx.CurrentPrice)
	})

	t.Run("Rejects non-positive purchase price", func(t *testing.T) {
		tx := validBuy()
		zero := decimal.Zero
		err := TransactionUpdate{PurchasePrice: &zero}.ApplyTo(&tx)
		assert.True(t, IsValidation(err))
	})
}
