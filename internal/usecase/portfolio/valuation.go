package portfolio

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/investdash-backend/internal/domain"
)

// moneyPlaces is the rounding applied to every aggregate output
const moneyPlaces = 2

// BuildTimeseries produces one cumulative valuation snapshot per period.
//
// Logic:
//  1. Bucket every transaction by its period key and sort the keys
//  2. Display only keys within [start, end], both converted to period keys
//  3. Fold every period before the first displayed key without emitting (pre-roll)
//  4. For each displayed key fold its transactions, then value all active positions
//
// An empty ledger, or a window containing no period, yields an empty series.
func BuildTimeseries(txs []*domain.Transaction, g domain.Granularity, start, end *time.Time) []domain.PeriodSnapshot {
	snapshots := make([]domain.PeriodSnapshot, 0)
	if len(txs) == 0 {
		return snapshots
	}

	buckets := make(map[string][]*domain.Transaction)
	for _, tx := range sortLedger(txs) {
		key := domain.PeriodKey(tx.PurchaseDate, g)
		buckets[key] = append(buckets[key], tx)
	}

	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	displayed := make([]string, 0, len(keys))
	for _, key := range keys {
		if start != nil && key < domain.PeriodKey(*start, g) {
			continue
		}
		if end != nil && key > domain.PeriodKey(*end, g) {
			continue
		}
		displayed = append(displayed, key)
	}
	if len(displayed) == 0 {
		return snapshots
	}

	book := make(positionBook)
	for _, key := range keys {
		if key >= displayed[0] {
			break
		}
		for _, tx := range buckets[key] {
			book.apply(tx)
		}
	}

	for _, key := range displayed {
		for _, tx := range buckets[key] {
			book.apply(tx)
		}
		snapshots = append(snapshots, snapshotOf(key, book))
	}
	return snapshots
}

func snapshotOf(key string, book positionBook) domain.PeriodSnapshot {
	invested := decimal.Zero
	current := decimal.Zero
	count := 0
	for _, p := range book {
		if !p.IsActive() {
			continue
		}
		invested = invested.Add(p.Invested())
		current = current.Add(p.CurrentValue())
		count++
	}
	return domain.PeriodSnapshot{
		Date:         key,
		Invested:     invested.Round(moneyPlaces),
		CurrentValue: current.Round(moneyPlaces),
		ProfitLoss:   current.Sub(invested).Round(moneyPlaces),
		Count:        count,
	}
}
