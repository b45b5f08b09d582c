package grpc

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/investdash-backend/internal/domain"
)

// fields reads typed values out of a request Struct.
// Absent and null fields read as "not set".
type fields map[string]*structpb.Value

func fieldsOf(in *structpb.Struct) fields {
	if in == nil {
		return fields{}
	}
	return fields(in.GetFields())
}

func (f fields) present(key string) bool {
	v, ok := f[key]
	if !ok || v == nil {
		return false
	}
	_, isNull := v.GetKind().(*structpb.Value_NullValue)
	return !isNull
}

// only rejects any field outside allowed
func (f fields) only(allowed ...string) error {
	set := make(map[string]bool, len(allowed))
	for _, k := range allowed {
		set[k] = true
	}
	var unknown []string
	for k := range f {
		if !set[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return domain.InvalidRequestf("unknown fields: %s", strings.Join(unknown, ", "))
	}
	return nil
}

func (f fields) str(key string) (*string, error) {
	if !f.present(key) {
		return nil, nil
	}
	s, ok := f[key].GetKind().(*structpb.Value_StringValue)
	if !ok {
		return nil, domain.InvalidRequestf("%s must be a string", key)
	}
	return &s.StringValue, nil
}

func (f fields) requiredStr(key string) (string, error) {
	s, err := f.str(key)
	if err != nil {
		return "", err
	}
	if s == nil || strings.TrimSpace(*s) == "" {
		return "", domain.InvalidRequestf("%s is required", key)
	}
	return *s, nil
}

func (f fields) optionalStr(key string) (string, error) {
	s, err := f.str(key)
	if err != nil || s == nil {
		return "", err
	}
	return *s, nil
}

// dec accepts decimal strings, and plain numbers for convenience
func (f fields) dec(key string) (*decimal.Decimal, error) {
	if !f.present(key) {
		return nil, nil
	}
	switch v := f[key].GetKind().(type) {
	case *structpb.Value_StringValue:
		d, err := decimal.NewFromString(strings.TrimSpace(v.StringValue))
		if err != nil {
			return nil, domain.InvalidRequestf("invalid %s format: %q", key, v.StringValue)
		}
		return &d, nil
	case *structpb.Value_NumberValue:
		if math.IsNaN(v.NumberValue) || math.IsInf(v.NumberValue, 0) {
			return nil, domain.InvalidRequestf("invalid %s value", key)
		}
		d := decimal.NewFromFloat(v.NumberValue)
		return &d, nil
	default:
		return nil, domain.InvalidRequestf("%s must be a decimal string", key)
	}
}

func (f fields) requiredDec(key string) (decimal.Decimal, error) {
	d, err := f.dec(key)
	if err != nil {
		return decimal.Zero, err
	}
	if d == nil {
		return decimal.Zero, domain.InvalidRequestf("%s is required", key)
	}
	return *d, nil
}

func (f fields) date(key string) (*time.Time, error) {
	s, err := f.str(key)
	if err != nil || s == nil {
		return nil, err
	}
	d, err := domain.ParseDate(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (f fields) requiredDate(key string) (time.Time, error) {
	d, err := f.date(key)
	if err != nil {
		return time.Time{}, err
	}
	if d == nil {
		return time.Time{}, domain.InvalidRequestf("%s is required", key)
	}
	return *d, nil
}

func (f fields) integer(key string) (int, error) {
	if !f.present(key) {
		return 0, nil
	}
	switch v := f[key].GetKind().(type) {
	case *structpb.Value_NumberValue:
		if v.NumberValue != math.Trunc(v.NumberValue) || math.Abs(v.NumberValue) > math.MaxInt32 {
			return 0, domain.InvalidRequestf("%s must be an integer", key)
		}
		return int(v.NumberValue), nil
	case *structpb.Value_StringValue:
		n, err := strconv.Atoi(v.StringValue)
		if err != nil {
			return 0, domain.InvalidRequestf("%s must be an integer", key)
		}
		return n, nil
	default:
		return 0, domain.InvalidRequestf("%s must be an integer", key)
	}
}

func (f fields) id(key string) (uuid.UUID, error) {
	s, err := f.requiredStr(key)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, domain.InvalidRequestf("invalid %s format: %q", key, s)
	}
	return id, nil
}

func (f fields) investmentType(key string) (domain.InvestmentType, error) {
	s, err := f.optionalStr(key)
	if err != nil {
		return "", err
	}
	return domain.ParseInvestmentType(s)
}

func (f fields) nested(key string) (fields, error) {
	if !f.present(key) {
		return fields{}, nil
	}
	s, ok := f[key].GetKind().(*structpb.Value_StructValue)
	if !ok {
		return nil, domain.InvalidRequestf("%s must be an object", key)
	}
	return fieldsOf(s.StructValue), nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func optionalDecimal(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func transactionToMap(tx *domain.Transaction) map[string]interface{} {
	m := map[string]interface{}{
		"id":              tx.ID.String(),
		"name":            tx.Name,
		"symbol":          tx.Symbol,
		"investment_type": string(tx.InvestmentType),
		"amount":          tx.Amount.String(),
		"purchase_price":  tx.PurchasePrice.String(),
		"current_price":   optionalDecimal(tx.CurrentPrice),
		"purchase_date":   tx.PurchaseDate.Format(domain.DateLayout),
		"description":     tx.Description,
		"created_at":      tx.CreatedAt.UTC().Format(time.RFC3339),
		"user_id":         nil,
		"updated_at":      nil,
	}
	if tx.UserID != nil {
		m["user_id"] = *tx.UserID
	}
	if tx.UpdatedAt != nil {
		m["updated_at"] = tx.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return m
}

func positionToMap(p *domain.Position) map[string]interface{} {
	return map[string]interface{}{
		"symbol":                 p.Symbol,
		"name":                   p.Name,
		"investment_type":        string(p.InvestmentType),
		"net_amount":             p.NetAmount.String(),
		"total_bought_value":     money(p.TotalBoughtValue),
		"average_purchase_price": money(p.AveragePurchasePrice()),
		"current_price":          money(p.CurrentPrice()),
		"invested":               money(p.Invested()),
		"current_value":          money(p.CurrentValue()),
		"profit_loss":            money(p.ProfitLoss()),
	}
}

func snapshotToMap(s domain.PeriodSnapshot) map[string]interface{} {
	return map[string]interface{}{
		"date":          s.Date,
		"invested":      money(s.Invested),
		"current_value": money(s.CurrentValue),
		"profit_loss":   money(s.ProfitLoss),
		"count":         s.Count,
	}
}
