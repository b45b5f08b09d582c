package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// InvestmentType represents the asset class of a ledger entry
type InvestmentType string

const (
	InvestmentTypeStocks     InvestmentType = "stocks"
	InvestmentTypeCrypto     InvestmentType = "crypto"
	InvestmentTypeShares     InvestmentType = "shares"
	InvestmentTypeGold       InvestmentType = "gold"
	InvestmentTypeRealEstate InvestmentType = "real_estate"
	InvestmentTypeBonds      InvestmentType = "bonds"
	InvestmentTypeOther      InvestmentType = "other"
)

// InvestmentTypes lists every supported type in display order
var InvestmentTypes = []InvestmentType{
	InvestmentTypeStocks,
	InvestmentTypeCrypto,
	InvestmentTypeShares,
	InvestmentTypeGold,
	InvestmentTypeRealEstate,
	InvestmentTypeBonds,
	InvestmentTypeOther,
}

// Valid reports whether t is one of the supported investment types
func (t InvestmentType) Valid() bool {
	for _, known := range InvestmentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseInvestmentType parses a filter value. An empty string means "any type".
func ParseInvestmentType(s string) (InvestmentType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	t := InvestmentType(s)
	if !t.Valid() {
		return "", InvalidRequestf("unknown investment type %q", s)
	}
	return t, nil
}

// Field limits shared by create and update
const (
	MaxNameLength        = 255
	MaxSymbolLength      = 50
	MaxDescriptionLength = 1000
)

// TransactionUpdate enumerates every field that may change after creation.
// A nil field is left untouched.
type TransactionUpdate struct {
	Name          *string
	PurchasePrice *decimal.Decimal
	CurrentPrice  *decimal.Decimal
	Description   *string
}

// IsEmpty reports whether the update carries no field at all
func (u TransactionUpdate) IsEmpty() bool {
	return u.Name == nil && u.PurchasePrice == nil && u.CurrentPrice == nil && u.Description == nil
}

// ApplyTo validates the update against t and then mutates t in place
func (u TransactionUpdate) ApplyTo(t *Transaction) error {
	if u.IsEmpty() {
		return InvalidRequestf("update must set at least one field")
	}
	if u.Name != nil {
		if err := validateLength("name", *u.Name, 1, MaxNameLength); err != nil {
			return err
		}
	}
	if u.PurchasePrice != nil && !u.PurchasePrice.IsPositive() {
		return Validationf("purchase price must be positive")
	}
	if u.CurrentPrice != nil {
		if t.IsSell() {
			return Validationf("sell transactions do not carry a current price")
		}
		if !u.CurrentPrice.IsPositive() {
			return Validationf("current price must be positive")
		}
	}
	if u.Description != nil {
		if err := validateLength("description", *u.Description, 0, MaxDescriptionLength); err != nil {
			return err
		}
	}

	if u.Name != nil {
		t.Name = *u.Name
	}
	if u.PurchasePrice != nil {
		t.PurchasePrice = *u.PurchasePrice
	}
	if u.CurrentPrice != nil {
		price := *u.CurrentPrice
		t.CurrentPrice = &price
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	return nil
}

func validateLength(field, value string, min, max int) error {
	n := utf8.RuneCountInString(value)
	if n < min {
		return Validationf("%s must be at least %d characters", field, min)
	}
	if n > max {
		return Validationf("%s must be at most %d characters", field, max)
	}
	return nil
}
