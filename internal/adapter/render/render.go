// Package render writes reports to a terminal or file in text, CSV
// or JSON form.
package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/calverton/taxlens-backend/internal/domain"
	"github.com/calverton/taxlens-backend/internal/usecase/cgt"
	"github.com/calverton/taxlens-backend/internal/usecase/income"
	"github.com/calverton/taxlens-backend/internal/usecase/summary"
)

// Format selects the output encoding
type Format string

const (
	FormatText Format = "text"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatHTML Format = "html"
)

// ParseFormat parses a format name
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, FormatCSV, FormatJSON, FormatHTML:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown output format: %q", s)
}

// errHTMLUnsupported is returned by views that have no HTML form;
// only the capital gains report renders as a page.
var errHTMLUnsupported = fmt.Errorf("html output is only available for the report")

func gbp(d decimal.Decimal) string {
	return "£" + d.Round(2).StringFixed(2)
}

// Events writes the normalized event list
func Events(w io.Writer, format Format, events []domain.TaxableEvent) error {
	switch format {
	case FormatHTML:
		return errHTMLUnsupported
	case FormatJSON:
		return writeJSON(w, eventRows(events))
	case FormatCSV:
		records := [][]string{{"date", "type", "tag", "asset", "quantity", "value_gbp", "fees_gbp", "transaction"}}
		for _, row := range eventRows(events) {
			records = append(records, []string{
				row.Date, string(row.Type), string(row.Tag), row.Asset,
				row.Quantity, row.ValueGBP, row.FeesGBP, row.Transaction,
			})
		}
		return csv.NewWriter(w).WriteAll(records)
	default:
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "DATE\tTYPE\tTAG\tASSET\tQUANTITY\tVALUE\tFEES\tTRANSACTION")
		for _, event := range events {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				event.DateTime.Format("2006-01-02"), event.Type, event.Tag, event.Asset,
				event.Quantity.String(), gbp(event.ValueGBP), gbp(event.FeesGBP), event.SourceTransactionID)
		}
		return tw.Flush()
	}
}

type eventRow struct {
	Date        string           `json:"date"`
	Type        domain.EventType `json:"type"`
	Tag         domain.Tag       `json:"tag"`
	Asset       string           `json:"asset"`
	Quantity    string           `json:"quantity"`
	ValueGBP    string           `json:"value_gbp"`
	FeesGBP     string           `json:"fees_gbp"`
	Transaction string           `json:"transaction"`
}

func eventRows(events []domain.TaxableEvent) []eventRow {
	rows := make([]eventRow, 0, len(events))
	for _, event := range events {
		rows = append(rows, eventRow{
			Date:        event.DateTime.Format("2006-01-02"),
			Type:        event.Type,
			Tag:         event.Tag,
			Asset:       event.Asset,
			Quantity:    event.Quantity.String(),
			ValueGBP:    event.ValueGBP.Round(2).StringFixed(2),
			FeesGBP:     event.FeesGBP.Round(2).StringFixed(2),
			Transaction: event.SourceTransactionID,
		})
	}
	return rows
}

// Report writes the disposal results with their matching components,
// the final pools and any warnings. A zero year writes every year.
func Report(w io.Writer, format Format, report *cgt.Report, year domain.TaxYear) error {
	results := report.Results
	if year != 0 {
		results = report.ResultsForYear(year)
	}

	switch format {
	case FormatHTML:
		return writeReportHTML(w, report, results, year)
	case FormatJSON:
		return writeJSON(w, reportDoc(report, results, year))
	case FormatCSV:
		records := [][]string{{"date", "asset", "quantity", "proceeds_gbp", "cost_gbp", "fees_gbp", "gain_gbp", "rule", "matched_date", "tax_year"}}
		for _, result := range results {
			for _, component := range result.Components {
				matchedDate := ""
				if component.Acquisition != nil {
					matchedDate = component.Acquisition.Date.Format("2006-01-02")
				}
				records = append(records, []string{
					result.Disposal.DateTime.Format("2006-01-02"),
					result.Disposal.Asset,
					component.Quantity.String(),
					result.ProceedsGBP.Round(2).StringFixed(2),
					component.CostGBP.Round(2).StringFixed(2),
					result.FeesGBP.Round(2).StringFixed(2),
					result.GainGBP.Round(2).StringFixed(2),
					string(component.Rule),
					matchedDate,
					result.TaxYear.String(),
				})
			}
		}
		return csv.NewWriter(w).WriteAll(records)
	default:
		return writeReportText(w, report, results, year)
	}
}

func writeReportText(w io.Writer, report *cgt.Report, results []cgt.DisposalResult, year domain.TaxYear) error {
	label := "All Years"
	if year != 0 {
		label = year.String()
	}
	fmt.Fprintf(w, "CAPITAL GAINS REPORT (%s)\n\n", label)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tASSET\tQUANTITY\tPROCEEDS\tCOST\tFEES\tGAIN")
	for _, result := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			result.Disposal.DateTime.Format("2006-01-02"),
			result.Disposal.Asset,
			result.Disposal.Quantity.String(),
			gbp(result.ProceedsGBP), gbp(result.AllowableCostGBP), gbp(result.FeesGBP), gbp(result.GainGBP))
		for _, component := range result.Components {
			matched := ""
			if component.Acquisition != nil {
				matched = " (" + component.Acquisition.Date.Format("2006-01-02") + ")"
			}
			fmt.Fprintf(tw, "\t  %s%s\t%s\t\t%s\t\t\n",
				ruleLabel(component.Rule), matched, component.Quantity.String(), gbp(component.CostGBP))
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	totals := report.TotalsForYear(year, false)
	fmt.Fprintf(w, "\nDisposals: %d  Proceeds: %s  Costs: %s  Gain: %s\n",
		totals.DisposalCount, gbp(totals.ProceedsGBP), gbp(totals.AllowableCostGBP), gbp(totals.GainGBP))

	if len(report.Pools) > 0 {
		fmt.Fprintln(w, "\nSECTION 104 POOLS")
		pw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(pw, "ASSET\tQUANTITY\tCOST\tAVG COST")
		for _, pool := range report.Pools {
			if !pool.Quantity.IsPositive() {
				continue
			}
			fmt.Fprintf(pw, "%s\t%s\t%s\t%s\n",
				pool.Asset, pool.Quantity.String(), gbp(pool.CostGBP), gbp(pool.CostGBP.Div(pool.Quantity)))
		}
		if err := pw.Flush(); err != nil {
			return err
		}
	}

	for _, warning := range report.Warnings {
		fmt.Fprintf(w, "\nWARNING %s: %s %s on %s (available %s, required %s)",
			warning.Kind, warning.Asset, warning.SourceTransactionID,
			warning.Date.Format("2006-01-02"), warning.Available.String(), warning.Required.String())
	}
	if len(report.Warnings) > 0 {
		fmt.Fprintln(w)
	}
	return nil
}

func ruleLabel(rule cgt.MatchingRule) string {
	switch rule {
	case cgt.RuleSameDay:
		return "same-day"
	case cgt.RuleBedAndBreakfast:
		return "30-day"
	default:
		return "pool"
	}
}

type reportDocBody struct {
	TaxYear   string              `json:"tax_year"`
	Disposals []cgt.DisposalResult `json:"disposals"`
	Totals    cgt.Totals          `json:"totals"`
	Pools     []cgt.PoolState     `json:"pools"`
	Warnings  []domain.Warning    `json:"warnings,omitempty"`
}

func reportDoc(report *cgt.Report, results []cgt.DisposalResult, year domain.TaxYear) reportDocBody {
	label := "All Years"
	if year != 0 {
		label = year.String()
	}
	return reportDocBody{
		TaxYear:   label,
		Disposals: results,
		Totals:    report.TotalsForYear(year, false),
		Pools:     report.Pools,
		Warnings:  report.Warnings,
	}
}

type poolsDoc struct {
	History  []cgt.PoolHistoryEntry `json:"history"`
	YearEnds []cgt.YearEndSnapshot  `json:"year_ends,omitempty"`
}

// Pools writes the pool history and the open pools at each tax year end
func Pools(w io.Writer, format Format, report *cgt.Report) error {
	switch format {
	case FormatHTML:
		return errHTMLUnsupported
	case FormatJSON:
		return writeJSON(w, poolsDoc{History: report.History, YearEnds: report.YearEnds})
	case FormatCSV:
		records := [][]string{{"date", "event", "asset", "pool_quantity", "pool_cost_gbp", "transaction"}}
		for _, entry := range report.History {
			records = append(records, []string{
				entry.Date.Format("2006-01-02"), string(entry.EventType), entry.Pool.Asset,
				entry.Pool.Quantity.String(), entry.Pool.CostGBP.Round(2).StringFixed(2),
				entry.SourceTransactionID,
			})
		}
		return csv.NewWriter(w).WriteAll(records)
	default:
		fmt.Fprintln(w, "POOL HISTORY")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "DATE\tEVENT\tASSET\tQUANTITY\tCOST\tTRANSACTION")
		for _, entry := range report.History {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				entry.Date.Format("2006-01-02"), entry.EventType, entry.Pool.Asset,
				entry.Pool.Quantity.String(), gbp(entry.Pool.CostGBP), entry.SourceTransactionID)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		for _, snapshot := range report.YearEnds {
			fmt.Fprintf(w, "\nPOOLS AT END OF %s\n", snapshot.TaxYear)
			pw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(pw, "ASSET\tQUANTITY\tCOST\tAVG COST")
			for _, pool := range snapshot.Pools {
				fmt.Fprintf(pw, "%s\t%s\t%s\t%s\n",
					pool.Asset, pool.Quantity.String(), gbp(pool.CostGBP), gbp(pool.CostGBP.Div(pool.Quantity)))
			}
			if err := pw.Flush(); err != nil {
				return err
			}
		}
		return nil
	}
}

// Summary writes the headline tax position
func Summary(w io.Writer, format Format, tax summary.TaxSummary, label string) error {
	if format == FormatHTML {
		return errHTMLUnsupported
	}
	if format == FormatJSON {
		return writeJSON(w, tax)
	}

	fmt.Fprintf(w, "TAX SUMMARY (%s) - %s rate\n\n", label, tax.Income.Band)
	fmt.Fprintln(w, "CAPITAL GAINS")
	fmt.Fprintf(w, "  Disposals: %d  Proceeds: %s  Costs: %s  Gain: %s\n",
		tax.CGT.DisposalCount, gbp(tax.CGT.ProceedsGBP), gbp(tax.CGT.AllowableCostGBP), gbp(tax.CGT.GainGBP))
	fmt.Fprintf(w, "  Exempt amount: %s  Taxable gain: %s\n", gbp(tax.CGT.ExemptAmount), gbp(tax.CGT.TaxableGain))
	fmt.Fprintf(w, "  Tax @ %s%%: %s  Tax @ %s%%: %s\n\n",
		tax.CGT.BasicRate.Mul(decimal.NewFromInt(100)).String(), gbp(tax.CGT.TaxAtBasicRate),
		tax.CGT.HigherRate.Mul(decimal.NewFromInt(100)).String(), gbp(tax.CGT.TaxAtHigherRate))

	fmt.Fprintln(w, "INCOME")
	fmt.Fprintf(w, "  Other income: %s (Tax @ %s%%: %s)\n",
		gbp(tax.Income.OtherIncomeGBP), tax.Income.IncomeRate.Mul(decimal.NewFromInt(100)).String(), gbp(tax.Income.IncomeTax))
	fmt.Fprintf(w, "  Dividends: %s (Allowance used: %s, Tax @ %s%%: %s)\n\n",
		gbp(tax.Income.DividendIncomeGBP), gbp(tax.Income.DividendAllowanceUsed),
		tax.Income.DividendRate.Mul(decimal.NewFromInt(100)).String(), gbp(tax.Income.DividendTax))

	fmt.Fprintf(w, "TOTAL TAX LIABILITY: %s\n", gbp(tax.TotalTaxGBP))
	if tax.WarningCount > 0 {
		fmt.Fprintf(w, "\n%d warning(s); run the report command for details\n", tax.WarningCount)
	}
	return nil
}

// IncomeDetail writes per-tag income subtotals for a year
func IncomeDetail(w io.Writer, format Format, report *income.Report, year domain.TaxYear) error {
	if format == FormatHTML {
		return errHTMLUnsupported
	}
	totals := report.TagTotals(year)
	if format == FormatJSON {
		return writeJSON(w, totals)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TAG\tVALUE")
	for _, total := range totals {
		fmt.Fprintf(tw, "%s\t%s\n", total.Tag, gbp(total.ValueGBP))
	}
	fmt.Fprintf(tw, "TOTAL\t%s\n", gbp(report.Total(year)))
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
