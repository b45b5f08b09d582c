package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionKey groups ledger entries into one holding.
// Two types sharing a symbol string are distinct positions.
type PositionKey struct {
	Symbol         string
	InvestmentType InvestmentType
}

// Position is the net holding derived from all entries of one PositionKey.
// It is computed on demand and never persisted.
type Position struct {
	Symbol           string
	Name             string
	InvestmentType   InvestmentType
	NetAmount        decimal.Decimal
	TotalBoughtValue decimal.Decimal // sum of amount*price over buys only
	CostBasis        decimal.Decimal // weighted average cost of the units still held
	MarkPrice        *decimal.Decimal

	markDate time.Time
}

// NewPosition creates an empty position for key
func NewPosition(key PositionKey) *Position {
	return &Position{
		Symbol:         key.Symbol,
		InvestmentType: key.InvestmentType,
	}
}

// Key returns the grouping key of the position
func (p *Position) Key() PositionKey {
	return PositionKey{Symbol: p.Symbol, InvestmentType: p.InvestmentType}
}

// Apply folds one transaction into the position.
// Entries must be applied in ledger order for the cost basis to be exact;
// NetAmount and TotalBoughtValue do not depend on order.
func (p *Position) Apply(t *Transaction) {
	if p.Name == "" {
		p.Name = t.Name
	}

	held := p.NetAmount
	switch {
	case t.Amount.IsPositive():
		value := t.Amount.Mul(t.PurchasePrice)
		p.TotalBoughtValue = p.TotalBoughtValue.Add(value)
		p.CostBasis = p.CostBasis.Add(value)
	case t.Amount.IsNegative():
		sold := t.Amount.Neg()
		if held.IsPositive() && sold.LessThan(held) {
			// the sold units leave at the current average cost
			p.CostBasis = p.CostBasis.Sub(p.CostBasis.Mul(sold).Div(held))
		} else {
			p.CostBasis = decimal.Zero
		}
	}

	p.NetAmount = held.Add(t.Amount)
	if !p.NetAmount.IsPositive() {
		p.CostBasis = decimal.Zero
	}

	if t.CurrentPrice != nil && (p.MarkPrice == nil || !t.PurchaseDate.Before(p.markDate)) {
		price := *t.CurrentPrice
		p.MarkPrice = &price
		p.markDate = t.PurchaseDate
	}
}

// IsActive reports whether the position is currently held
func (p *Position) IsActive() bool {
	return p.NetAmount.IsPositive()
}

// AveragePurchasePrice is the cost basis per held unit, or zero when nothing is held
func (p *Position) AveragePurchasePrice() decimal.Decimal {
	if !p.IsActive() {
		return decimal.Zero
	}
	return p.CostBasis.Div(p.NetAmount)
}

// CurrentPrice is the latest mark price, falling back to the average purchase price
func (p *Position) CurrentPrice() decimal.Decimal {
	if p.MarkPrice != nil {
		return *p.MarkPrice
	}
	return p.AveragePurchasePrice()
}

// Invested is the average purchase price times the net amount
func (p *Position) Invested() decimal.Decimal {
	if !p.IsActive() {
		return decimal.Zero
	}
	return p.CostBasis
}

// CurrentValue is the current price times the net amount
func (p *Position) CurrentValue() decimal.Decimal {
	if !p.IsActive() {
		return decimal.Zero
	}
	if p.MarkPrice == nil {
		return p.CostBasis
	}
	return p.MarkPrice.Mul(p.NetAmount)
}

// ProfitLoss is the current value minus the invested amount
func (p *Position) ProfitLoss() decimal.Decimal {
	return p.CurrentValue().Sub(p.Invested())
}
