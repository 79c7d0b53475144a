package domain

import (
	"github.com/shopspring/decimal"
)

// Amount represents a positive quantity of a single asset or of GBP
type Amount struct {
	Asset    string
	Quantity decimal.Decimal
}

// Validate ensures the amount adheres to domain rules
func (a *Amount) Validate(transactionID string) error {
	if a.Asset == "" {
		return NewValidationError(transactionID, ErrKindInvalidAmount, "amount asset cannot be empty")
	}
	if a.Quantity.LessThanOrEqual(decimal.Zero) {
		return NewValidationError(transactionID, ErrKindInvalidAmount, "amount quantity must be positive")
	}
	return nil
}

// IsGBP reports whether the amount is denominated in sterling
func (a *Amount) IsGBP() bool {
	return a.Asset == GBP
}

// Price expresses the unit value of one asset (the base) in GBP.
// Rate is the unit price in the quote currency. When the quote is not
// GBP, FxRate converts one unit of the quote currency to GBP and both
// Quote and FxRate must be present together. Source records where the
// rate came from and plays no part in valuation.
type Price struct {
	Base   string
	Rate   decimal.Decimal
	Quote  string
	FxRate *decimal.Decimal
	Source string
}

// Validate ensures the price adheres to domain rules
func (p *Price) Validate(transactionID string) error {
	if p.Base == "" {
		return NewValidationError(transactionID, ErrKindPriceBaseMismatch, "price base cannot be empty")
	}
	if p.Rate.LessThanOrEqual(decimal.Zero) {
		return NewValidationError(transactionID, ErrKindInvalidAmount, "price rate must be positive")
	}
	if (p.Quote != "") != (p.FxRate != nil) {
		return NewValidationError(transactionID, ErrKindPriceQuoteFxMismatch,
			"price quote currency and fx rate must be supplied together")
	}
	if p.FxRate != nil && p.FxRate.LessThanOrEqual(decimal.Zero) {
		return NewValidationError(transactionID, ErrKindInvalidAmount, "price fx rate must be positive")
	}
	return nil
}

// UnitGBP returns the GBP price of one unit of the base asset
func (p *Price) UnitGBP() decimal.Decimal {
	if p.FxRate != nil {
		return p.Rate.Mul(*p.FxRate)
	}
	return p.Rate
}

// ValueGBP returns the GBP value of the given quantity of the base asset
func (p *Price) ValueGBP(quantity decimal.Decimal) decimal.Decimal {
	return quantity.Mul(p.UnitGBP())
}

// ResolveValueGBP values a quantity of an asset in sterling.
// GBP quantities are their own value and need no price, but a price
// supplied anyway must still be well formed and based on GBP. Any
// other asset requires a price whose base is exactly that asset.
func ResolveValueGBP(transactionID, asset string, quantity decimal.Decimal, price *Price) (decimal.Decimal, error) {
	if asset == GBP {
		if price != nil {
			if err := price.Validate(transactionID); err != nil {
				return decimal.Zero, err
			}
			if price.Base != GBP {
				return decimal.Zero, NewValidationError(transactionID, ErrKindPriceBaseMismatch,
					"price is for "+price.Base+" but "+GBP+" must be valued")
			}
		}
		return quantity, nil
	}
	if price == nil {
		return decimal.Zero, NewValidationError(transactionID, ErrKindMissingPrice,
			"no price available to value "+asset)
	}
	if err := price.Validate(transactionID); err != nil {
		return decimal.Zero, err
	}
	if price.Base != asset {
		return decimal.Zero, NewValidationError(transactionID, ErrKindPriceBaseMismatch,
			"price is for "+price.Base+" but "+asset+" must be valued")
	}
	return price.ValueGBP(quantity), nil
}

// Fee represents a transaction fee, charged in GBP or in an asset.
// A non-GBP fee carries its own price, or reuses the transaction
// price when it is charged in the asset that price covers.
type Fee struct {
	Asset    string
	Quantity decimal.Decimal
	Price    *Price
}

// Validate ensures the fee adheres to domain rules.
// A zero fee quantity is allowed and values to zero.
func (f *Fee) Validate(transactionID string) error {
	if f.Asset == "" {
		return NewValidationError(transactionID, ErrKindInvalidAmount, "fee asset cannot be empty")
	}
	if f.Quantity.IsNegative() {
		return NewValidationError(transactionID, ErrKindInvalidAmount, "fee quantity cannot be negative")
	}
	if f.Price != nil {
		if err := f.Price.Validate(transactionID); err != nil {
			return err
		}
	}
	return nil
}

// ResolveFeeGBP values a fee in sterling.
// Resolution order:
//  1. No fee, or a zero quantity, values to zero
//  2. A GBP fee is its own value
//  3. A fee with its own price uses it (base must be the fee asset)
//  4. A fee charged in the asset the transaction price covers reuses
//     that price
//
// Anything else cannot be valued and is a fatal error.
func ResolveFeeGBP(transactionID string, fee *Fee, transactionPrice *Price) (decimal.Decimal, error) {
	if fee == nil {
		return decimal.Zero, nil
	}
	if err := fee.Validate(transactionID); err != nil {
		return decimal.Zero, err
	}
	if fee.Quantity.IsZero() {
		return decimal.Zero, nil
	}
	if fee.Asset == GBP {
		return fee.Quantity, nil
	}
	if fee.Price != nil {
		if fee.Price.Base != fee.Asset {
			return decimal.Zero, NewValidationError(transactionID, ErrKindPriceBaseMismatch,
				"fee price is for "+fee.Price.Base+" but fee is charged in "+fee.Asset)
		}
		return fee.Price.ValueGBP(fee.Quantity), nil
	}
	if transactionPrice != nil && transactionPrice.Base == fee.Asset {
		return transactionPrice.ValueGBP(fee.Quantity), nil
	}
	return decimal.Zero, NewValidationError(transactionID, ErrKindFeeUnpriceable,
		"fee charged in "+fee.Asset+" has no usable price")
}
