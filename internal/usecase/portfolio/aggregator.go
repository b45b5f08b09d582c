package portfolio

import (
	"sort"

	"github.com/simaogato/investdash-backend/internal/domain"
)

// sortLedger returns a copy of txs in ledger order (purchase date, stable)
func sortLedger(txs []*domain.Transaction) []*domain.Transaction {
	sorted := make([]*domain.Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PurchaseDate.Before(sorted[j].PurchaseDate)
	})
	return sorted
}

// positionBook is a running set of positions keyed by (symbol, investment type)
type positionBook map[domain.PositionKey]*domain.Position

func (b positionBook) apply(tx *domain.Transaction) {
	key := domain.PositionKey{Symbol: tx.Symbol, InvestmentType: tx.InvestmentType}
	p, ok := b[key]
	if !ok {
		p = domain.NewPosition(key)
		b[key] = p
	}
	p.Apply(tx)
}

// sorted returns every position ordered by symbol, then investment type
func (b positionBook) sorted() []*domain.Position {
	out := make([]*domain.Position, 0, len(b))
	for _, p := range b {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Symbol != out[j].Symbol {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].InvestmentType < out[j].InvestmentType
	})
	return out
}

// AggregatePositions folds a ledger into one position per (symbol, investment type).
// Liquidated groups are included; use ActivePositions for the displayable set.
func AggregatePositions(txs []*domain.Transaction) []*domain.Position {
	book := make(positionBook)
	for _, tx := range sortLedger(txs) {
		book.apply(tx)
	}
	return book.sorted()
}

// ActivePositions keeps only positions with a positive net amount
func ActivePositions(positions []*domain.Position) []*domain.Position {
	active := make([]*domain.Position, 0, len(positions))
	for _, p := range positions {
		if p.IsActive() {
			active = append(active, p)
		}
	}
	return active
}
