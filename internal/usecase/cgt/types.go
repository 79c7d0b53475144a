package cgt

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/calverton/taxlens-backend/internal/domain"
)

// MatchingRule identifies which HMRC share identification rule
// matched a slice of a disposal to its cost
type MatchingRule string

const (
	RuleSameDay         MatchingRule = "SAME_DAY"
	RuleBedAndBreakfast MatchingRule = "BED_AND_BREAKFAST"
	RuleSection104      MatchingRule = "SECTION_104"
)

// MatchedAcquisition points at the acquisition a component drew its
// cost from. Section 104 components have none: the pool is an
// average, not an acquisition.
type MatchedAcquisition struct {
	SourceTransactionID string
	Date                time.Time
	Tag                 domain.Tag
	OriginalQuantity    decimal.Decimal
	OriginalCostGBP     decimal.Decimal
}

// MatchingComponent is one slice of a disposal's matched cost
type MatchingComponent struct {
	Rule        MatchingRule
	Quantity    decimal.Decimal
	CostGBP     decimal.Decimal
	Acquisition *MatchedAcquisition
}

// PoolState is a Section 104 pool snapshot: total quantity held and
// its aggregate allowable cost
type PoolState struct {
	Asset    string
	Quantity decimal.Decimal
	CostGBP  decimal.Decimal
}

// DisposalResult is the full matching outcome for one disposal
type DisposalResult struct {
	Disposal         domain.TaxableEvent
	TaxYear          domain.TaxYear
	ProceedsGBP      decimal.Decimal
	AllowableCostGBP decimal.Decimal
	FeesGBP          decimal.Decimal
	GainGBP          decimal.Decimal
	Components       []MatchingComponent
	Warnings         []domain.Warning
	PoolAfter        PoolState
}

// PoolHistoryEntry records a pool's state after one event touched it
type PoolHistoryEntry struct {
	SourceTransactionID string
	Date                time.Time
	EventType           domain.EventType
	Pool                PoolState
}

// YearEndSnapshot captures every open pool at the end of a tax year
type YearEndSnapshot struct {
	TaxYear domain.TaxYear
	Pools   []PoolState
}

// Report is the outcome of matching a full event history: one result
// per disposal in chronological order, the final pools, their history
// and advisory warnings.
type Report struct {
	Results  []DisposalResult
	Pools    []PoolState
	History  []PoolHistoryEntry
	YearEnds []YearEndSnapshot
	Warnings []domain.Warning
}

// IsUnclassified reports whether the disposal came from an unlinked
// transfer leg the user has not classified yet
func (r *DisposalResult) IsUnclassified() bool {
	return r.Disposal.Tag == domain.TagUnclassified
}

// HasWarnings reports whether the result carries any warnings
func (r *DisposalResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Totals aggregates disposal results for reporting
type Totals struct {
	DisposalCount     int
	UnclassifiedCount int
	WarningCount      int
	ProceedsGBP       decimal.Decimal
	AllowableCostGBP  decimal.Decimal
	FeesGBP           decimal.Decimal
	GainGBP           decimal.Decimal
}

// TotalsForYear sums disposals, optionally restricted to one tax
// year (zero means all years). Unclassified disposals carry made-up
// zero values, so they stay out of the money totals unless asked for;
// they are always counted.
func (r *Report) TotalsForYear(year domain.TaxYear, includeUnclassified bool) Totals {
	totals := Totals{
		ProceedsGBP:      decimal.Zero,
		AllowableCostGBP: decimal.Zero,
		FeesGBP:          decimal.Zero,
		GainGBP:          decimal.Zero,
	}
	for i := range r.Results {
		result := &r.Results[i]
		if year != 0 && result.TaxYear != year {
			continue
		}
		totals.DisposalCount++
		totals.WarningCount += len(result.Warnings)
		if result.IsUnclassified() {
			totals.UnclassifiedCount++
			if !includeUnclassified {
				continue
			}
		}
		totals.ProceedsGBP = totals.ProceedsGBP.Add(result.ProceedsGBP)
		totals.AllowableCostGBP = totals.AllowableCostGBP.Add(result.AllowableCostGBP)
		totals.FeesGBP = totals.FeesGBP.Add(result.FeesGBP)
		totals.GainGBP = totals.GainGBP.Add(result.GainGBP)
	}
	return totals
}

// ResultsForYear returns the disposal results falling in a tax year
func (r *Report) ResultsForYear(year domain.TaxYear) []DisposalResult {
	var results []DisposalResult
	for _, result := range r.Results {
		if result.TaxYear == year {
			results = append(results, result)
		}
	}
	return results
}

// TaxYears returns the tax years with at least one disposal, in order
func (r *Report) TaxYears() []domain.TaxYear {
	var years []domain.TaxYear
	seen := map[domain.TaxYear]bool{}
	for _, result := range r.Results {
		if !seen[result.TaxYear] {
			seen[result.TaxYear] = true
			years = append(years, result.TaxYear)
		}
	}
	return years
}
