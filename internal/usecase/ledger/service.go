package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/simaogato/investdash-backend/internal/domain"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// CacheInvalidator is notified after every ledger write of the affected user
type CacheInvalidator interface {
	Invalidate(userID *int64)
}

// CreateInput represents the input for recording a buy
type CreateInput struct {
	UserID         *int64
	Name           string
	Symbol         string
	InvestmentType domain.InvestmentType
	Amount         decimal.Decimal
	PurchasePrice  decimal.Decimal
	CurrentPrice   *decimal.Decimal // Optional
	PurchaseDate   time.Time
	Description    string
}

// SellInput represents the input for recording a sale
type SellInput struct {
	UserID      *int64
	Symbol      string
	Amount      decimal.Decimal // quantity to sell, positive
	SalePrice   decimal.Decimal
	SaleDate    time.Time
	Description string
}

// ListInput represents a paginated ledger query
type ListInput struct {
	UserID         *int64
	Symbol         string
	InvestmentType domain.InvestmentType
	Limit          int
	Offset         int
}

// LedgerService handles writes to the investment ledger
type LedgerService struct {
	TransactionRepo domain.TransactionRepository
	Invalidator     CacheInvalidator
	locks           *keyedMutex
	log             zerolog.Logger
	now             func() time.Time
}

// NewLedgerService creates a new LedgerService instance. invalidator may be nil.
func NewLedgerService(transactionRepo domain.TransactionRepository, invalidator CacheInvalidator, log zerolog.Logger) *LedgerService {
	return &LedgerService{
		TransactionRepo: transactionRepo,
		Invalidator:     invalidator,
		locks:           newKeyedMutex(),
		log:             log.With().Str("service", "ledger").Logger(),
		now:             time.Now,
	}
}

func (s *LedgerService) invalidate(userID *int64) {
	if s.Invalidator != nil {
		s.Invalidator.Invalidate(userID)
	}
}

// CreateTransaction records a buy. Repeated symbols are regular ledger entries.
func (s *LedgerService) CreateTransaction(ctx context.Context, input CreateInput) (*domain.Transaction, error) {
	if !input.Amount.IsPositive() {
		return nil, domain.Validationf("amount must be positive")
	}

	tx := &domain.Transaction{
		ID:             uuid.New(),
		UserID:         input.UserID,
		Name:           strings.TrimSpace(input.Name),
		Symbol:         strings.TrimSpace(input.Symbol),
		InvestmentType: input.InvestmentType,
		Amount:         input.Amount,
		PurchasePrice:  input.PurchasePrice,
		CurrentPrice:   input.CurrentPrice,
		PurchaseDate:   domain.TruncateDate(input.PurchaseDate),
		Description:    input.Description,
		CreatedAt:      s.now().UTC(),
	}
	if input.PurchaseDate.IsZero() {
		tx.PurchaseDate = time.Time{}
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}

	if err := s.TransactionRepo.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	s.invalidate(tx.UserID)

	s.log.Info().
		Str("transaction_id", tx.ID.String()).
		Str("symbol", tx.Symbol).
		Str("amount", tx.Amount.String()).
		Msg("Recorded buy")
	return tx, nil
}

// GetTransaction retrieves one entry visible to userID
func (s *LedgerService) GetTransaction(ctx context.Context, userID *int64, id uuid.UUID) (*domain.Transaction, error) {
	tx, err := s.TransactionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visibleTo(tx, userID) {
		return nil, domain.NotFoundf("transaction %s not found", id)
	}
	return tx, nil
}

// ListTransactions returns a page of the ledger in purchase-date order
func (s *LedgerService) ListTransactions(ctx context.Context, input ListInput) ([]*domain.Transaction, error) {
	if input.Limit < 0 {
		return nil, domain.InvalidRequestf("limit must be positive")
	}
	if input.Offset < 0 {
		return nil, domain.InvalidRequestf("offset must be non-negative")
	}
	limit := input.Limit
	if limit == 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	txs, err := s.TransactionRepo.List(ctx, domain.TransactionFilter{
		UserID:         input.UserID,
		InvestmentType: input.InvestmentType,
		Symbol:         strings.TrimSpace(input.Symbol),
		Limit:          limit,
		Offset:         input.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

// UpdateTransaction applies an explicit partial update to one entry
func (s *LedgerService) UpdateTransaction(ctx context.Context, userID *int64, id uuid.UUID, update domain.TransactionUpdate) (*domain.Transaction, error) {
	tx, err := s.GetTransaction(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if err := update.ApplyTo(tx); err != nil {
		return nil, err
	}
	updatedAt := s.now().UTC()
	tx.UpdatedAt = &updatedAt

	if err := s.TransactionRepo.Update(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}
	s.invalidate(tx.UserID)

	s.log.Info().Str("transaction_id", tx.ID.String()).Msg("Updated transaction")
	return tx, nil
}

// DeleteTransaction removes one entry. This is an administrative operation;
// selling never deletes ledger entries.
func (s *LedgerService) DeleteTransaction(ctx context.Context, userID *int64, id uuid.UUID) error {
	tx, err := s.GetTransaction(ctx, userID, id)
	if err != nil {
		return err
	}

	unlock := s.locks.LockPosition(tx.Symbol, tx.UserID)
	defer unlock()

	if err := s.TransactionRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(tx.UserID)

	s.log.Info().Str("transaction_id", id.String()).Str("symbol", tx.Symbol).Msg("Deleted transaction")
	return nil
}

// Sell records a sale after checking the net position covers it
// Logic:
//  1. Validate the request fields
//  2. Serialize on (symbol, user) so concurrent sells cannot both pass the check
//  3. Available = sum of signed amounts for the symbol; NotFound when <= 0
//  4. InvalidRequest when available < requested
//  5. Copy name and investment type from the earliest entry of the symbol
//  6. Append a negative entry; the repository re-checks the position atomically
func (s *LedgerService) Sell(ctx context.Context, input SellInput) (*domain.Transaction, error) {
	symbol := strings.TrimSpace(input.Symbol)
	if symbol == "" {
		return nil, domain.Validationf("symbol is required")
	}
	if !input.Amount.IsPositive() {
		return nil, domain.Validationf("sell amount must be positive")
	}
	if !input.SalePrice.IsPositive() {
		return nil, domain.Validationf("sale price must be positive")
	}
	if input.SaleDate.IsZero() {
		return nil, domain.Validationf("sale date is required")
	}

	unlock := s.locks.LockPosition(symbol, input.UserID)
	defer unlock()

	available, err := s.TransactionRepo.NetAmount(ctx, symbol, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to read net position: %w", err)
	}
	if !available.IsPositive() {
		return nil, domain.NotFoundf("no open position for symbol %s", symbol)
	}
	if available.LessThan(input.Amount) {
		return nil, domain.InsufficientPosition(symbol, available.String(), input.Amount.String())
	}

	ref, err := s.TransactionRepo.FindReference(ctx, symbol, input.UserID)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find reference transaction: %w", err)
	}

	tx := &domain.Transaction{
		ID:             uuid.New(),
		UserID:         input.UserID,
		Name:           ref.Name,
		Symbol:         symbol,
		InvestmentType: ref.InvestmentType,
		Amount:         input.Amount.Abs().Neg(),
		PurchasePrice:  input.SalePrice,
		CurrentPrice:   nil,
		PurchaseDate:   domain.TruncateDate(input.SaleDate),
		Description:    input.Description,
		CreatedAt:      s.now().UTC(),
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}

	if err := s.TransactionRepo.AppendSell(ctx, tx); err != nil {
		if domain.KindOf(err) != "" {
			return nil, err
		}
		return nil, fmt.Errorf("failed to record sale: %w", err)
	}
	s.invalidate(tx.UserID)

	s.log.Info().
		Str("transaction_id", tx.ID.String()).
		Str("symbol", symbol).
		Str("amount", input.Amount.String()).
		Str("available", available.String()).
		Msg("Recorded sale")
	return tx, nil
}

func visibleTo(tx *domain.Transaction, userID *int64) bool {
	if userID == nil {
		return true
	}
	return tx.UserID != nil && *tx.UserID == *userID
}
