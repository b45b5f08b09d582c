package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/investdash-backend/internal/domain"
)

// TransactionRepository keeps the ledger in process memory.
// Used for local runs and tests; nothing survives a restart.
type TransactionRepository struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*domain.Transaction
	ledger []uuid.UUID // insertion order
}

// NewTransactionRepository creates an empty in-memory ledger
func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{byID: make(map[uuid.UUID]*domain.Transaction)}
}

func clone(tx *domain.Transaction) *domain.Transaction {
	c := *tx
	if tx.UserID != nil {
		u := *tx.UserID
		c.UserID = &u
	}
	if tx.CurrentPrice != nil {
		p := *tx.CurrentPrice
		c.CurrentPrice = &p
	}
	if tx.UpdatedAt != nil {
		t := *tx.UpdatedAt
		c.UpdatedAt = &t
	}
	return &c
}

func sameUser(tx *domain.Transaction, userID *int64) bool {
	if userID == nil {
		return true
	}
	return tx.UserID != nil && *tx.UserID == *userID
}

func (r *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insert(tx)
	return nil
}

func (r *TransactionRepository) insert(tx *domain.Transaction) {
	if _, ok := r.byID[tx.ID]; !ok {
		r.ledger = append(r.ledger, tx.ID)
	}
	r.byID[tx.ID] = clone(tx)
}

func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tx, ok := r.byID[id]
	if !ok {
		return nil, domain.NotFoundf("transaction %s not found", id)
	}
	return clone(tx), nil
}

// matching returns entries passing f in purchase-date order. Caller holds the lock.
func (r *TransactionRepository) matching(f domain.TransactionFilter) []*domain.Transaction {
	out := make([]*domain.Transaction, 0, len(r.ledger))
	for _, id := range r.ledger {
		tx := r.byID[id]
		if !sameUser(tx, f.UserID) {
			continue
		}
		if f.InvestmentType != "" && tx.InvestmentType != f.InvestmentType {
			continue
		}
		if f.Symbol != "" && tx.Symbol != f.Symbol {
			continue
		}
		out = append(out, tx)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].PurchaseDate.Equal(out[j].PurchaseDate) {
			return out[i].PurchaseDate.Before(out[j].PurchaseDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *TransactionRepository) List(ctx context.Context, f domain.TransactionFilter) ([]*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.matching(f)
	start := f.Offset
	if start > len(all) {
		return []*domain.Transaction{}, nil
	}
	end := len(all)
	if f.Limit > 0 && start+f.Limit < end {
		end = start + f.Limit
	}

	out := make([]*domain.Transaction, 0, end-start)
	for _, tx := range all[start:end] {
		out = append(out, clone(tx))
	}
	return out, nil
}

func (r *TransactionRepository) Update(ctx context.Context, tx *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[tx.ID]; !ok {
		return domain.NotFoundf("transaction %s not found", tx.ID)
	}
	r.byID[tx.ID] = clone(tx)
	return nil
}

func (r *TransactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return domain.NotFoundf("transaction %s not found", id)
	}
	delete(r.byID, id)
	for i, existing := range r.ledger {
		if existing == id {
			r.ledger = append(r.ledger[:i], r.ledger[i+1:]...)
			break
		}
	}
	return nil
}

func (r *TransactionRepository) netAmount(symbol string, userID *int64) decimal.Decimal {
	net := decimal.Zero
	for _, tx := range r.byID {
		if tx.Symbol == symbol && sameUser(tx, userID) {
			net = net.Add(tx.Amount)
		}
	}
	return net
}

func (r *TransactionRepository) NetAmount(ctx context.Context, symbol string, userID *int64) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.netAmount(symbol, userID), nil
}

func (r *TransactionRepository) FindReference(ctx context.Context, symbol string, userID *int64) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := r.matching(domain.TransactionFilter{UserID: userID, Symbol: symbol})
	if len(entries) == 0 {
		return nil, domain.NotFoundf("no transactions for symbol %s", symbol)
	}
	return clone(entries[0]), nil
}

// AppendSell re-checks the position and appends the sell under the write lock
func (r *TransactionRepository) AppendSell(ctx context.Context, tx *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	requested := tx.Amount.Abs()
	available := r.netAmount(tx.Symbol, tx.UserID)
	if available.LessThan(requested) {
		return domain.InsufficientPosition(tx.Symbol, available.String(), requested.String())
	}
	r.insert(tx)
	return nil
}
