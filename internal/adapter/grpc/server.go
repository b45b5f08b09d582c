package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/investdash-backend/internal/adapter/auth"
	"github.com/simaogato/investdash-backend/internal/domain"
	"github.com/simaogato/investdash-backend/internal/usecase/ledger"
	"github.com/simaogato/investdash-backend/internal/usecase/portfolio"
)

// Server implements the PortfolioService gRPC server
type Server struct {
	PortfolioService *portfolio.PortfolioService
	LedgerService    *ledger.LedgerService
}

// NewServer creates a new gRPC server instance
func NewServer(portfolioService *portfolio.PortfolioService, ledgerService *ledger.LedgerService) *Server {
	return &Server{
		PortfolioService: portfolioService,
		LedgerService:    ledgerService,
	}
}

func respond(m map[string]interface{}) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}

func analyticsFilter(ctx context.Context, f fields) (portfolio.Filter, error) {
	investmentType, err := f.investmentType("investment_type")
	if err != nil {
		return portfolio.Filter{}, err
	}
	return portfolio.Filter{
		UserID:         auth.UserIDFromContext(ctx),
		InvestmentType: investmentType,
	}, nil
}

// ListPositions handles the ListPositions RPC
func (s *Server) ListPositions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	filter, err := analyticsFilter(ctx, fieldsOf(req))
	if err != nil {
		return nil, mapError(err)
	}

	positions, err := s.PortfolioService.ListPositions(ctx, filter)
	if err != nil {
		return nil, mapError(err)
	}

	items := make([]interface{}, 0, len(positions))
	for _, p := range positions {
		items = append(items, positionToMap(p))
	}
	return respond(map[string]interface{}{"positions": items})
}

// PortfolioOverview handles the PortfolioOverview RPC
func (s *Server) PortfolioOverview(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	filter, err := analyticsFilter(ctx, fieldsOf(req))
	if err != nil {
		return nil, mapError(err)
	}

	overview, err := s.PortfolioService.Overview(ctx, filter)
	if err != nil {
		return nil, mapError(err)
	}

	byType := make(map[string]interface{}, len(overview.ByType))
	for t, b := range overview.ByType {
		byType[string(t)] = map[string]interface{}{
			"count":         b.Count,
			"invested":      money(b.Invested),
			"current_value": money(b.CurrentValue),
			"profit_loss":   money(b.ProfitLoss),
		}
	}

	return respond(map[string]interface{}{
		"total_invested":         money(overview.TotalInvested),
		"total_current_value":    money(overview.TotalCurrentValue),
		"total_profit_loss":      money(overview.TotalProfitLoss),
		"profit_loss_percentage": money(overview.ProfitLossPercentage),
		"by_type":                byType,
	})
}

// EarningsTimeseries handles the EarningsTimeseries RPC
func (s *Server) EarningsTimeseries(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := fieldsOf(req)
	filter, err := analyticsFilter(ctx, f)
	if err != nil {
		return nil, mapError(err)
	}

	granularityStr, err := f.optionalStr("granularity")
	if err != nil {
		return nil, mapError(err)
	}
	granularity := domain.GranularityMonth
	if granularityStr != "" {
		if granularity, err = domain.ParseGranularity(granularityStr); err != nil {
			return nil, mapError(err)
		}
	}
	startDate, err := f.date("start_date")
	if err != nil {
		return nil, mapError(err)
	}
	endDate, err := f.date("end_date")
	if err != nil {
		return nil, mapError(err)
	}

	snapshots, err := s.PortfolioService.EarningsTimeseries(ctx, portfolio.TimeseriesFilter{
		Filter:      filter,
		StartDate:   startDate,
		EndDate:     endDate,
		Granularity: granularity,
	})
	if err != nil {
		return nil, mapError(err)
	}

	items := make([]interface{}, 0, len(snapshots))
	for _, snap := range snapshots {
		items = append(items, snapshotToMap(snap))
	}
	return respond(map[string]interface{}{"snapshots": items})
}

// Sell handles the Sell RPC
func (s *Server) Sell(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := fieldsOf(req)

	input := ledger.SellInput{UserID: auth.UserIDFromContext(ctx)}
	var err error
	if input.Symbol, err = f.requiredStr("symbol"); err != nil {
		return nil, mapError(err)
	}
	if input.Amount, err = f.requiredDec("amount"); err != nil {
		return nil, mapError(err)
	}
	if input.SalePrice, err = f.requiredDec("sale_price"); err != nil {
		return nil, mapError(err)
	}
	if input.SaleDate, err = f.requiredDate("sale_date"); err != nil {
		return nil, mapError(err)
	}
	if input.Description, err = f.optionalStr("description"); err != nil {
		return nil, mapError(err)
	}

	tx, err := s.LedgerService.Sell(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}
	return respond(map[string]interface{}{"transaction": transactionToMap(tx)})
}

// CreateTransaction handles the CreateTransaction RPC
func (s *Server) CreateTransaction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := fieldsOf(req)

	input := ledger.CreateInput{UserID: auth.UserIDFromContext(ctx)}
	var err error
	if input.Name, err = f.requiredStr("name"); err != nil {
		return nil, mapError(err)
	}
	if input.Symbol, err = f.requiredStr("symbol"); err != nil {
		return nil, mapError(err)
	}
	typeStr, err := f.requiredStr("investment_type")
	if err != nil {
		return nil, mapError(err)
	}
	if input.InvestmentType, err = domain.ParseInvestmentType(typeStr); err != nil {
		return nil, mapError(err)
	}
	if input.Amount, err = f.requiredDec("amount"); err != nil {
		return nil, mapError(err)
	}
	if input.PurchasePrice, err = f.requiredDec("purchase_price"); err != nil {
		return nil, mapError(err)
	}
	if input.CurrentPrice, err = f.dec("current_price"); err != nil {
		return nil, mapError(err)
	}
	if input.PurchaseDate, err = f.requiredDate("purchase_date"); err != nil {
		return nil, mapError(err)
	}
	if input.Description, err = f.optionalStr("description"); err != nil {
		return nil, mapError(err)
	}

	tx, err := s.LedgerService.CreateTransaction(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}
	return respond(map[string]interface{}{"transaction": transactionToMap(tx)})
}

// GetTransaction handles the GetTransaction RPC
func (s *Server) GetTransaction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := fieldsOf(req).id("id")
	if err != nil {
		return nil, mapError(err)
	}

	tx, err := s.LedgerService.GetTransaction(ctx, auth.UserIDFromContext(ctx), id)
	if err != nil {
		return nil, mapError(err)
	}
	return respond(map[string]interface{}{"transaction": transactionToMap(tx)})
}

// ListTransactions handles the ListTransactions RPC
func (s *Server) ListTransactions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := fieldsOf(req)

	input := ledger.ListInput{UserID: auth.UserIDFromContext(ctx)}
	var err error
	if input.Symbol, err = f.optionalStr("symbol"); err != nil {
		return nil, mapError(err)
	}
	if input.InvestmentType, err = f.investmentType("investment_type"); err != nil {
		return nil, mapError(err)
	}
	if input.Limit, err = f.integer("limit"); err != nil {
		return nil, mapError(err)
	}
	if input.Offset, err = f.integer("offset"); err != nil {
		return nil, mapError(err)
	}

	txs, err := s.LedgerService.ListTransactions(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}

	items := make([]interface{}, 0, len(txs))
	for _, tx := range txs {
		items = append(items, transactionToMap(tx))
	}
	return respond(map[string]interface{}{"transactions": items})
}

// UpdateTransaction handles the UpdateTransaction RPC
func (s *Server) UpdateTransaction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := fieldsOf(req)
	if err := f.only("id", "fields"); err != nil {
		return nil, mapError(err)
	}
	id, err := f.id("id")
	if err != nil {
		return nil, mapError(err)
	}

	changes, err := f.nested("fields")
	if err != nil {
		return nil, mapError(err)
	}
	if err := changes.only("name", "purchase_price", "current_price", "description"); err != nil {
		return nil, mapError(err)
	}

	var update domain.TransactionUpdate
	if update.Name, err = changes.str("name"); err != nil {
		return nil, mapError(err)
	}
	if update.PurchasePrice, err = changes.dec("purchase_price"); err != nil {
		return nil, mapError(err)
	}
	if update.CurrentPrice, err = changes.dec("current_price"); err != nil {
		return nil, mapError(err)
	}
	if update.Description, err = changes.str("description"); err != nil {
		return nil, mapError(err)
	}

	tx, err := s.LedgerService.UpdateTransaction(ctx, auth.UserIDFromContext(ctx), id, update)
	if err != nil {
		return nil, mapError(err)
	}
	return respond(map[string]interface{}{"transaction": transactionToMap(tx)})
}

// DeleteTransaction handles the DeleteTransaction RPC
func (s *Server) DeleteTransaction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := fieldsOf(req).id("id")
	if err != nil {
		return nil, mapError(err)
	}

	if err := s.LedgerService.DeleteTransaction(ctx, auth.UserIDFromContext(ctx), id); err != nil {
		return nil, mapError(err)
	}
	return respond(map[string]interface{}{})
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return status.Error(codes.NotFound, err.Error())
	case domain.KindInvalidRequest, domain.KindValidation:
		return status.Error(codes.InvalidArgument, err.Error())
	}

	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	// Default to Internal error for unknown errors
	return status.Errorf(codes.Internal, "%s", err.Error())
}
