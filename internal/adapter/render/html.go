package render

import (
	"html/template"
	"io"

	"github.com/calverton/taxlens-backend/internal/domain"
	"github.com/calverton/taxlens-backend/internal/usecase/cgt"
)

type htmlComponent struct {
	Rule     string
	Matched  string
	Quantity string
	Cost     string
}

type htmlDisposal struct {
	Date       string
	Asset      string
	Quantity   string
	Proceeds   string
	Cost       string
	Fees       string
	Gain       string
	Components []htmlComponent
}

type htmlPool struct {
	Asset    string
	Quantity string
	Cost     string
	AvgCost  string
}

type htmlPage struct {
	TaxYear       string
	Disposals     []htmlDisposal
	DisposalCount int
	Proceeds      string
	Costs         string
	Gain          string
	Pools         []htmlPool
	Warnings      []string
}

var reportPage = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Capital Gains Report ({{.TaxYear}})</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; margin-bottom: 2em; }
th, td { border: 1px solid #ccc; padding: 4px 10px; text-align: right; }
th { background: #f0f0f0; }
td.label { text-align: left; }
tr.component td { color: #666; font-size: 90%; }
p.warning { color: #a00; }
</style>
</head>
<body>
<h1>Capital Gains Report ({{.TaxYear}})</h1>
<table>
<tr><th>Date</th><th>Asset</th><th>Quantity</th><th>Proceeds</th><th>Cost</th><th>Fees</th><th>Gain</th></tr>
{{range .Disposals}}<tr>
<td class="label">{{.Date}}</td><td class="label">{{.Asset}}</td><td>{{.Quantity}}</td><td>{{.Proceeds}}</td><td>{{.Cost}}</td><td>{{.Fees}}</td><td>{{.Gain}}</td>
</tr>
{{range .Components}}<tr class="component">
<td class="label"></td><td class="label">{{.Rule}}{{if .Matched}} ({{.Matched}}){{end}}</td><td>{{.Quantity}}</td><td></td><td>{{.Cost}}</td><td></td><td></td>
</tr>
{{end}}{{end}}</table>
<p>Disposals: {{.DisposalCount}} &mdash; Proceeds: {{.Proceeds}}, Costs: {{.Costs}}, Gain: {{.Gain}}</p>
{{if .Pools}}<h2>Section 104 Pools</h2>
<table>
<tr><th>Asset</th><th>Quantity</th><th>Cost</th><th>Avg Cost</th></tr>
{{range .Pools}}<tr><td class="label">{{.Asset}}</td><td>{{.Quantity}}</td><td>{{.Cost}}</td><td>{{.AvgCost}}</td></tr>
{{end}}</table>
{{end}}{{range .Warnings}}<p class="warning">{{.}}</p>
{{end}}</body>
</html>
`))

func writeReportHTML(w io.Writer, report *cgt.Report, results []cgt.DisposalResult, year domain.TaxYear) error {
	label := "All Years"
	if year != 0 {
		label = year.String()
	}
	page := htmlPage{TaxYear: label}

	for _, result := range results {
		disposal := htmlDisposal{
			Date:     result.Disposal.DateTime.Format("2006-01-02"),
			Asset:    result.Disposal.Asset,
			Quantity: result.Disposal.Quantity.String(),
			Proceeds: gbp(result.ProceedsGBP),
			Cost:     gbp(result.AllowableCostGBP),
			Fees:     gbp(result.FeesGBP),
			Gain:     gbp(result.GainGBP),
		}
		for _, component := range result.Components {
			matched := ""
			if component.Acquisition != nil {
				matched = component.Acquisition.Date.Format("2006-01-02")
			}
			disposal.Components = append(disposal.Components, htmlComponent{
				Rule:     ruleLabel(component.Rule),
				Matched:  matched,
				Quantity: component.Quantity.String(),
				Cost:     gbp(component.CostGBP),
			})
		}
		page.Disposals = append(page.Disposals, disposal)
	}

	totals := report.TotalsForYear(year, false)
	page.DisposalCount = totals.DisposalCount
	page.Proceeds = gbp(totals.ProceedsGBP)
	page.Costs = gbp(totals.AllowableCostGBP)
	page.Gain = gbp(totals.GainGBP)

	for _, pool := range report.Pools {
		if !pool.Quantity.IsPositive() {
			continue
		}
		page.Pools = append(page.Pools, htmlPool{
			Asset:    pool.Asset,
			Quantity: pool.Quantity.String(),
			Cost:     gbp(pool.CostGBP),
			AvgCost:  gbp(pool.CostGBP.Div(pool.Quantity)),
		})
	}

	for _, warning := range report.Warnings {
		page.Warnings = append(page.Warnings, string(warning.Kind)+": "+warning.Asset+" "+
			warning.SourceTransactionID+" on "+warning.Date.Format("2006-01-02"))
	}

	return reportPage.Execute(w, page)
}
