package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TaxYear represents a UK tax year, identified by its end year.
// TaxYear(2025) is the year running 6 April 2024 to 5 April 2025,
// displayed as "2024/25".
type TaxYear int

// TaxYearOf returns the tax year a date falls in
func TaxYearOf(date time.Time) TaxYear {
	year, month, day := date.Date()
	if month > time.April || (month == time.April && day >= 6) {
		return TaxYear(year + 1)
	}
	return TaxYear(year)
}

// Start returns the first day of the tax year, 6 April
func (y TaxYear) Start() time.Time {
	return time.Date(int(y)-1, time.April, 6, 0, 0, 0, 0, time.UTC)
}

// End returns the last day of the tax year, 5 April
func (y TaxYear) End() time.Time {
	return time.Date(int(y), time.April, 5, 0, 0, 0, 0, time.UTC)
}

// String formats the year as "2024/25"
func (y TaxYear) String() string {
	return fmt.Sprintf("%d/%02d", int(y)-1, int(y)%100)
}

// CGTExemptAmount returns the CGT annual exempt amount for the year
func (y TaxYear) CGTExemptAmount() decimal.Decimal {
	switch {
	case y >= 2025:
		return decimal.NewFromInt(3000)
	case y == 2024:
		return decimal.NewFromInt(6000)
	default:
		return decimal.NewFromInt(12300)
	}
}

// CGTBasicRate returns the CGT rate for basic rate taxpayers
func (y TaxYear) CGTBasicRate() decimal.Decimal {
	return decimal.NewFromFloat(0.18)
}

// CGTHigherRate returns the CGT rate for higher rate taxpayers.
// Raised from 20% to 24% in 2025/26.
func (y TaxYear) CGTHigherRate() decimal.Decimal {
	if y >= 2026 {
		return decimal.NewFromFloat(0.24)
	}
	return decimal.NewFromFloat(0.20)
}

// DividendAllowance returns the tax-free dividend allowance for the year
func (y TaxYear) DividendAllowance() decimal.Decimal {
	switch {
	case y >= 2025:
		return decimal.NewFromInt(500)
	case y == 2024:
		return decimal.NewFromInt(1000)
	default:
		return decimal.NewFromInt(2000)
	}
}

// TaxBand represents the taxpayer's marginal income tax band
type TaxBand string

const (
	TaxBandBasic      TaxBand = "BASIC"
	TaxBandHigher     TaxBand = "HIGHER"
	TaxBandAdditional TaxBand = "ADDITIONAL"
)

// ParseTaxBand parses a band name, case-insensitively
func ParseTaxBand(s string) (TaxBand, error) {
	switch strings.ToLower(s) {
	case "basic":
		return TaxBandBasic, nil
	case "higher":
		return TaxBandHigher, nil
	case "additional":
		return TaxBandAdditional, nil
	}
	return "", fmt.Errorf("unknown tax band: %q", s)
}

// DividendRate returns the dividend tax rate for the band
func (y TaxYear) DividendRate(band TaxBand) decimal.Decimal {
	switch band {
	case TaxBandHigher:
		return decimal.NewFromFloat(0.3375)
	case TaxBandAdditional:
		return decimal.NewFromFloat(0.3935)
	default:
		return decimal.NewFromFloat(0.0875)
	}
}

// IncomeRate returns the income tax rate for the band
func (y TaxYear) IncomeRate(band TaxBand) decimal.Decimal {
	switch band {
	case TaxBandHigher:
		return decimal.NewFromFloat(0.40)
	case TaxBandAdditional:
		return decimal.NewFromFloat(0.45)
	default:
		return decimal.NewFromFloat(0.20)
	}
}
