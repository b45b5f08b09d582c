package seeder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/investdash-backend/internal/domain"
)

// DemoUserID owns the demo ledger
const DemoUserID int64 = 1

// Fixed UUIDs for the demo ledger so reseeding never duplicates entries
var (
	DEMO_AAPL_BUY_1 = uuid.MustParse("00000000-0000-0000-0000-000000000101")
	DEMO_AAPL_BUY_2 = uuid.MustParse("00000000-0000-0000-0000-000000000102")
	DEMO_AAPL_SELL  = uuid.MustParse("00000000-0000-0000-0000-000000000103")
	DEMO_BTC_BUY    = uuid.MustParse("00000000-0000-0000-0000-000000000104")
	DEMO_GOLD_BUY   = uuid.MustParse("00000000-0000-0000-0000-000000000105")
)

// DemoEntry defines one ledger entry to be seeded
type DemoEntry struct {
	ID             uuid.UUID
	Name           string
	Symbol         string
	InvestmentType domain.InvestmentType
	Amount         string
	Price          string
	CurrentPrice   string // empty when unpriced
	Date           string
}

// DemoEntries is the demo ledger: two buys and a partial sell of one stock,
// a marked crypto position and an unpriced gold holding
var DemoEntries = []DemoEntry{
	{ID: DEMO_AAPL_BUY_1, Name: "Apple Inc", Symbol: "AAPL", InvestmentType: domain.InvestmentTypeStocks, Amount: "10", Price: "100", Date: "2024-01-05"},
	{ID: DEMO_AAPL_BUY_2, Name: "Apple Inc", Symbol: "AAPL", InvestmentType: domain.InvestmentTypeStocks, Amount: "5", Price: "120", CurrentPrice: "170", Date: "2024-02-10"},
	{ID: DEMO_AAPL_SELL, Name: "Apple Inc", Symbol: "AAPL", InvestmentType: domain.InvestmentTypeStocks, Amount: "-3", Price: "150", Date: "2024-03-01"},
	{ID: DEMO_BTC_BUY, Name: "Bitcoin", Symbol: "BTC", InvestmentType: domain.InvestmentTypeCrypto, Amount: "0.25", Price: "40000", CurrentPrice: "60000", Date: "2024-01-20"},
	{ID: DEMO_GOLD_BUY, Name: "Gold bar 100g", Symbol: "GOLD", InvestmentType: domain.InvestmentTypeGold, Amount: "1", Price: "6500", Date: "2024-02-01"},
}

// DemoSeeder handles seeding of the demo ledger
type DemoSeeder struct {
	repo domain.TransactionRepository
	now  func() time.Time
}

// NewDemoSeeder creates a new DemoSeeder instance
func NewDemoSeeder(repo domain.TransactionRepository) *DemoSeeder {
	return &DemoSeeder{
		repo: repo,
		now:  time.Now,
	}
}

// Seed ensures every demo entry exists, creating the missing ones.
// It returns the number of entries created.
func (s *DemoSeeder) Seed(ctx context.Context) (int, error) {
	created := 0
	for _, e := range DemoEntries {
		_, err := s.repo.GetByID(ctx, e.ID)
		if err == nil {
			// Entry exists, no action needed
			continue
		}
		if !domain.IsNotFound(err) {
			return created, fmt.Errorf("failed to look up demo entry %s: %w", e.ID, err)
		}

		tx, err := e.transaction(s.now().UTC())
		if err != nil {
			return created, err
		}

		// Validate before creating
		if err := tx.Validate(); err != nil {
			return created, err
		}

		if err := s.repo.Create(ctx, tx); err != nil {
			return created, fmt.Errorf("failed to create demo entry %s: %w", e.ID, err)
		}
		created++
	}

	return created, nil
}

func (e DemoEntry) transaction(createdAt time.Time) (*domain.Transaction, error) {
	date, err := domain.ParseDate(e.Date)
	if err != nil {
		return nil, err
	}
	userID := DemoUserID

	tx := &domain.Transaction{
		ID:             e.ID,
		UserID:         &userID,
		Name:           e.Name,
		Symbol:         e.Symbol,
		InvestmentType: e.InvestmentType,
		Amount:         decimal.RequireFromString(e.Amount),
		PurchasePrice:  decimal.RequireFromString(e.Price),
		PurchaseDate:   date,
		CreatedAt:      createdAt,
	}
	if e.CurrentPrice != "" {
		current := decimal.RequireFromString(e.CurrentPrice)
		tx.CurrentPrice = &current
	}
	return tx, nil
}
