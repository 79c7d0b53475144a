package income

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/calverton/taxlens-backend/internal/domain"
)

// Entry is one income receipt with its tax year resolved
type Entry struct {
	Event   domain.TaxableEvent
	TaxYear domain.TaxYear
}

// Report collects every income-tagged receipt in a ledger.
// Dividends are taxed under their own rates and allowance, so the
// report keeps them separable from other income.
type Report struct {
	Entries []Entry
}

// IncomeService extracts income receipts from normalized events
type IncomeService struct{}

// NewIncomeService creates a new income aggregation service
func NewIncomeService() *IncomeService {
	return &IncomeService{}
}

// Aggregate collects acquisitions carrying an income tag. Disposals
// and non-income acquisitions are ignored.
func (s *IncomeService) Aggregate(events []domain.TaxableEvent) *Report {
	report := &Report{}
	for _, event := range events {
		if event.Type != domain.EventTypeAcquisition || !event.Tag.IsIncome() {
			continue
		}
		report.Entries = append(report.Entries, Entry{
			Event:   event,
			TaxYear: event.TaxYear(),
		})
	}
	return report
}

// TaxYears returns the tax years with income, in ascending order
func (r *Report) TaxYears() []domain.TaxYear {
	seen := map[domain.TaxYear]bool{}
	var years []domain.TaxYear
	for _, entry := range r.Entries {
		if !seen[entry.TaxYear] {
			seen[entry.TaxYear] = true
			years = append(years, entry.TaxYear)
		}
	}
	sort.Slice(years, func(i, j int) bool { return years[i] < years[j] })
	return years
}

// ForYear returns the entries falling in a tax year
func (r *Report) ForYear(year domain.TaxYear) []Entry {
	var entries []Entry
	for _, entry := range r.Entries {
		if entry.TaxYear == year {
			entries = append(entries, entry)
		}
	}
	return entries
}

// TotalByTag sums income of one tag in a tax year (zero means all years)
func (r *Report) TotalByTag(year domain.TaxYear, tag domain.Tag) decimal.Decimal {
	total := decimal.Zero
	for _, entry := range r.Entries {
		if year != 0 && entry.TaxYear != year {
			continue
		}
		if entry.Event.Tag == tag {
			total = total.Add(entry.Event.ValueGBP)
		}
	}
	return total
}

// DividendIncome sums dividend receipts in a tax year
func (r *Report) DividendIncome(year domain.TaxYear) decimal.Decimal {
	return r.TotalByTag(year, domain.TagDividend)
}

// OtherIncome sums every non-dividend income receipt in a tax year.
// This is the miscellaneous income taxed at the ordinary rates:
// staking, salary, interest, income-style airdrops and the rest.
func (r *Report) OtherIncome(year domain.TaxYear) decimal.Decimal {
	total := decimal.Zero
	for _, entry := range r.Entries {
		if year != 0 && entry.TaxYear != year {
			continue
		}
		if entry.Event.Tag != domain.TagDividend {
			total = total.Add(entry.Event.ValueGBP)
		}
	}
	return total
}

// Total sums all income in a tax year
func (r *Report) Total(year domain.TaxYear) decimal.Decimal {
	return r.DividendIncome(year).Add(r.OtherIncome(year))
}

// TagTotals returns the per-tag subtotals for a tax year, tags sorted
func (r *Report) TagTotals(year domain.TaxYear) []TagTotal {
	byTag := map[domain.Tag]decimal.Decimal{}
	for _, entry := range r.Entries {
		if year != 0 && entry.TaxYear != year {
			continue
		}
		tag := entry.Event.Tag
		byTag[tag] = byTag[tag].Add(entry.Event.ValueGBP)
	}
	totals := make([]TagTotal, 0, len(byTag))
	for tag, value := range byTag {
		totals = append(totals, TagTotal{Tag: tag, ValueGBP: value})
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Tag < totals[j].Tag })
	return totals
}

// TagTotal is the summed income for one tag
type TagTotal struct {
	Tag      domain.Tag
	ValueGBP decimal.Decimal
}
