package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/simaogato/investdash-backend/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Filter scopes analytics to one user and/or one investment type
type Filter struct {
	UserID         *int64
	InvestmentType domain.InvestmentType
}

// TimeseriesFilter adds an optional display window and the bucket width
type TimeseriesFilter struct {
	Filter
	StartDate   *time.Time
	EndDate     *time.Time
	Granularity domain.Granularity
}

// TypeBreakdown aggregates the active positions of one investment type
type TypeBreakdown struct {
	Count        int
	Invested     decimal.Decimal
	CurrentValue decimal.Decimal
	ProfitLoss   decimal.Decimal
}

// Overview represents the portfolio totals
type Overview struct {
	TotalInvested        decimal.Decimal
	TotalCurrentValue    decimal.Decimal
	TotalProfitLoss      decimal.Decimal
	ProfitLossPercentage decimal.Decimal
	ByType               map[domain.InvestmentType]TypeBreakdown
}

// PortfolioService computes positions and valuations from the ledger
type PortfolioService struct {
	TransactionRepo domain.TransactionRepository
	Cache           *ResultCache
	log             zerolog.Logger
}

// NewPortfolioService creates a new PortfolioService instance. cache may be nil.
func NewPortfolioService(transactionRepo domain.TransactionRepository, cache *ResultCache, log zerolog.Logger) *PortfolioService {
	return &PortfolioService{
		TransactionRepo: transactionRepo,
		Cache:           cache,
		log:             log.With().Str("service", "portfolio").Logger(),
	}
}

func (s *PortfolioService) ledger(ctx context.Context, f Filter) ([]*domain.Transaction, error) {
	txs, err := s.TransactionRepo.List(ctx, domain.TransactionFilter{
		UserID:         f.UserID,
		InvestmentType: f.InvestmentType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	return txs, nil
}

// ListPositions returns the active positions, ordered by symbol then type
func (s *PortfolioService) ListPositions(ctx context.Context, f Filter) ([]*domain.Position, error) {
	key := userPrefix(f.UserID) + "positions|" + string(f.InvestmentType)
	if cached, ok := s.Cache.get(key); ok {
		return cached.([]*domain.Position), nil
	}

	gen := s.Cache.generation(f.UserID)
	txs, err := s.ledger(ctx, f)
	if err != nil {
		return nil, err
	}
	positions := ActivePositions(AggregatePositions(txs))

	s.log.Debug().
		Int("transactions", len(txs)).
		Int("positions", len(positions)).
		Msg("Aggregated positions")

	s.Cache.set(key, f.UserID, gen, positions)
	return positions, nil
}

// Overview calculates portfolio totals and a per-type breakdown
// Logic:
//   - Invested: Sum of average purchase price * net amount over active positions
//   - Current value: Sum of current price * net amount (cost when unpriced)
//   - Percentage: profit/loss over invested, 0 when nothing is invested
func (s *PortfolioService) Overview(ctx context.Context, f Filter) (*Overview, error) {
	key := userPrefix(f.UserID) + "overview|" + string(f.InvestmentType)
	if cached, ok := s.Cache.get(key); ok {
		return cached.(*Overview), nil
	}

	gen := s.Cache.generation(f.UserID)
	positions, err := s.ListPositions(ctx, f)
	if err != nil {
		return nil, err
	}

	invested := decimal.Zero
	current := decimal.Zero
	byType := make(map[domain.InvestmentType]TypeBreakdown)
	for _, p := range positions {
		invested = invested.Add(p.Invested())
		current = current.Add(p.CurrentValue())

		b := byType[p.InvestmentType]
		b.Count++
		b.Invested = b.Invested.Add(p.Invested())
		b.CurrentValue = b.CurrentValue.Add(p.CurrentValue())
		byType[p.InvestmentType] = b
	}
	for t, b := range byType {
		byType[t] = TypeBreakdown{
			Count:        b.Count,
			Invested:     b.Invested.Round(moneyPlaces),
			CurrentValue: b.CurrentValue.Round(moneyPlaces),
			ProfitLoss:   b.CurrentValue.Sub(b.Invested).Round(moneyPlaces),
		}
	}

	profitLoss := current.Sub(invested)
	percentage := decimal.Zero
	if !invested.IsZero() {
		percentage = profitLoss.Div(invested).Mul(hundred)
	}

	overview := &Overview{
		TotalInvested:        invested.Round(moneyPlaces),
		TotalCurrentValue:    current.Round(moneyPlaces),
		TotalProfitLoss:      profitLoss.Round(moneyPlaces),
		ProfitLossPercentage: percentage.Round(moneyPlaces),
		ByType:               byType,
	}
	s.Cache.set(key, f.UserID, gen, overview)
	return overview, nil
}

// EarningsTimeseries returns cumulative valuation snapshots, one per period
func (s *PortfolioService) EarningsTimeseries(ctx context.Context, f TimeseriesFilter) ([]domain.PeriodSnapshot, error) {
	if f.Granularity == "" {
		f.Granularity = domain.GranularityMonth
	}
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		return nil, domain.InvalidRequestf("end date %s is before start date %s",
			f.EndDate.Format(domain.DateLayout), f.StartDate.Format(domain.DateLayout))
	}

	key := fmt.Sprintf("%stimeseries|%s|%s|%s|%s", userPrefix(f.UserID), f.InvestmentType, f.Granularity,
		formatOptionalDate(f.StartDate), formatOptionalDate(f.EndDate))
	if cached, ok := s.Cache.get(key); ok {
		return cached.([]domain.PeriodSnapshot), nil
	}

	gen := s.Cache.generation(f.UserID)
	txs, err := s.ledger(ctx, f.Filter)
	if err != nil {
		return nil, err
	}
	snapshots := BuildTimeseries(txs, f.Granularity, f.StartDate, f.EndDate)

	s.log.Debug().
		Str("granularity", string(f.Granularity)).
		Int("transactions", len(txs)).
		Int("snapshots", len(snapshots)).
		Msg("Built earnings timeseries")

	s.Cache.set(key, f.UserID, gen, snapshots)
	return snapshots, nil
}

func formatOptionalDate(d *time.Time) string {
	if d == nil {
		return "-"
	}
	return d.Format(domain.DateLayout)
}
