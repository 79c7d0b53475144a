package summary

import (
	"github.com/shopspring/decimal"

	"github.com/calverton/taxlens-backend/internal/domain"
	"github.com/calverton/taxlens-backend/internal/usecase/cgt"
	"github.com/calverton/taxlens-backend/internal/usecase/income"
)

// CgtSummary is the headline CGT position for a tax year
type CgtSummary struct {
	TaxYear          domain.TaxYear
	DisposalCount    int
	ProceedsGBP      decimal.Decimal
	AllowableCostGBP decimal.Decimal
	GainGBP          decimal.Decimal
	ExemptAmount     decimal.Decimal
	TaxableGain      decimal.Decimal
	BasicRate        decimal.Decimal
	TaxAtBasicRate   decimal.Decimal
	HigherRate       decimal.Decimal
	TaxAtHigherRate  decimal.Decimal
}

// IncomeSummary is the income tax position for a tax year at the
// taxpayer's marginal band
type IncomeSummary struct {
	TaxYear               domain.TaxYear
	Band                  domain.TaxBand
	OtherIncomeGBP        decimal.Decimal
	IncomeRate            decimal.Decimal
	IncomeTax             decimal.Decimal
	DividendIncomeGBP     decimal.Decimal
	DividendAllowanceUsed decimal.Decimal
	TaxableDividends      decimal.Decimal
	DividendRate          decimal.Decimal
	DividendTax           decimal.Decimal
}

// TaxSummary combines both positions with the total liability
type TaxSummary struct {
	CGT          CgtSummary
	Income       IncomeSummary
	TotalTaxGBP  decimal.Decimal
	WarningCount int
}

// SummaryService turns matching and income reports into headline tax
// figures. Money leaving the service is rounded to pence; everything
// upstream stays exact.
type SummaryService struct{}

// NewSummaryService creates a new summary service
func NewSummaryService() *SummaryService {
	return &SummaryService{}
}

// Build computes the tax position for one tax year at one band.
// A zero year means all years together, with the rates of the year
// given by rateYear.
func (s *SummaryService) Build(cgtReport *cgt.Report, incomeReport *income.Report, year domain.TaxYear, band domain.TaxBand) TaxSummary {
	rateYear := year
	if rateYear == 0 {
		rateYear = domain.TaxYear(2025)
	}

	totals := cgtReport.TotalsForYear(year, false)

	exempt := rateYear.CGTExemptAmount()
	taxableGain := decimal.Max(totals.GainGBP.Sub(exempt), decimal.Zero)
	basicRate := rateYear.CGTBasicRate()
	higherRate := rateYear.CGTHigherRate()

	cgtSummary := CgtSummary{
		TaxYear:          year,
		DisposalCount:    totals.DisposalCount,
		ProceedsGBP:      totals.ProceedsGBP.Round(2),
		AllowableCostGBP: totals.AllowableCostGBP.Round(2),
		GainGBP:          totals.GainGBP.Round(2),
		ExemptAmount:     exempt,
		TaxableGain:      taxableGain.Round(2),
		BasicRate:        basicRate,
		TaxAtBasicRate:   taxableGain.Mul(basicRate).Round(2),
		HigherRate:       higherRate,
		TaxAtHigherRate:  taxableGain.Mul(higherRate).Round(2),
	}

	incomeRate := rateYear.IncomeRate(band)
	dividendRate := rateYear.DividendRate(band)
	allowance := rateYear.DividendAllowance()

	otherIncome := incomeReport.OtherIncome(year)
	dividendIncome := incomeReport.DividendIncome(year)
	allowanceUsed := decimal.Min(allowance, dividendIncome)
	taxableDividends := decimal.Max(dividendIncome.Sub(allowanceUsed), decimal.Zero)

	incomeSummary := IncomeSummary{
		TaxYear:               year,
		Band:                  band,
		OtherIncomeGBP:        otherIncome.Round(2),
		IncomeRate:            incomeRate,
		IncomeTax:             otherIncome.Mul(incomeRate).Round(2),
		DividendIncomeGBP:     dividendIncome.Round(2),
		DividendAllowanceUsed: allowanceUsed.Round(2),
		TaxableDividends:      taxableDividends.Round(2),
		DividendRate:          dividendRate,
		DividendTax:           taxableDividends.Mul(dividendRate).Round(2),
	}

	cgtTax := cgtSummary.TaxAtBasicRate
	if band != domain.TaxBandBasic {
		cgtTax = cgtSummary.TaxAtHigherRate
	}

	return TaxSummary{
		CGT:          cgtSummary,
		Income:       incomeSummary,
		TotalTaxGBP:  cgtTax.Add(incomeSummary.IncomeTax).Add(incomeSummary.DividendTax),
		WarningCount: totals.WarningCount,
	}
}
