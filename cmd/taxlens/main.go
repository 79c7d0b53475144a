package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/calverton/taxlens-backend/internal/adapter/ledger"
	"github.com/calverton/taxlens-backend/internal/adapter/render"
	"github.com/calverton/taxlens-backend/internal/config"
	"github.com/calverton/taxlens-backend/internal/domain"
	"github.com/calverton/taxlens-backend/internal/usecase/cgt"
	"github.com/calverton/taxlens-backend/internal/usecase/income"
	"github.com/calverton/taxlens-backend/internal/usecase/normalizer"
	"github.com/calverton/taxlens-backend/internal/usecase/summary"
)

const usage = `Usage: taxlens <command> [flags]

Commands:
  report    Capital gains report with matching detail
  events    Normalized taxable events
  income    Income receipts by tag
  pools     Section 104 pool history and year-end snapshots
  summary   Headline tax position for a year and band
  validate  Check the ledger, exit 1 on warnings

Flags:
  -file string      ledger file (default from TAXLENS_LEDGER)
  -year int         tax year by its end year, e.g. 2025 for 2024/25
  -asset string     restrict to a single asset symbol
  -band string      basic, higher or additional
  -format string    text, csv or json; report also supports html
  -exclude-unlinked drop unlinked transfers instead of flagging them
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]

	cfg := config.Load()
	flags := flag.NewFlagSet(command, flag.ExitOnError)
	filePath := flags.String("file", cfg.LedgerPath, "ledger file")
	yearFlag := flags.Int("year", 0, "tax year by its end year")
	assetFlag := flags.String("asset", "", "restrict to a single asset symbol")
	bandFlag := flags.String("band", cfg.TaxBand, "tax band")
	formatFlag := flags.String("format", cfg.Format, "output format")
	excludeUnlinked := flags.Bool("exclude-unlinked", false, "drop unlinked transfers")
	if err := flags.Parse(os.Args[2:]); err != nil {
		os.Exit(2)
	}

	format, err := render.ParseFormat(*formatFlag)
	if err != nil {
		log.Fatalf("%v", err)
	}
	band, err := domain.ParseTaxBand(*bandFlag)
	if err != nil {
		log.Fatalf("%v", err)
	}
	year := domain.TaxYear(*yearFlag)

	registry, txs, err := ledger.Load(*filePath)
	if err != nil {
		log.Fatalf("Failed to load ledger: %v", err)
	}

	normalizerService := normalizer.NewNormalizerService(registry)
	events, warnings, err := normalizerService.BuildEvents(txs, normalizer.Options{
		ExcludeUnlinked: *excludeUnlinked,
	})
	if err != nil {
		log.Fatalf("Failed to normalize ledger: %v", err)
	}

	if *assetFlag != "" {
		events = filterEventsByAsset(events, strings.ToUpper(*assetFlag))
	}

	ctx := context.Background()

	switch command {
	case "events":
		if year != 0 {
			events = filterEventsByYear(events, year)
		}
		if err := render.Events(os.Stdout, format, events); err != nil {
			log.Fatalf("Failed to write events: %v", err)
		}

	case "report":
		report, err := cgt.NewCgtService().Calculate(ctx, events)
		if err != nil {
			log.Fatalf("Failed to calculate gains: %v", err)
		}
		if err := render.Report(os.Stdout, format, report, year); err != nil {
			log.Fatalf("Failed to write report: %v", err)
		}

	case "income":
		report := income.NewIncomeService().Aggregate(events)
		if err := render.IncomeDetail(os.Stdout, format, report, year); err != nil {
			log.Fatalf("Failed to write income report: %v", err)
		}

	case "pools":
		report, err := cgt.NewCgtService().Calculate(ctx, events)
		if err != nil {
			log.Fatalf("Failed to calculate gains: %v", err)
		}
		if err := render.Pools(os.Stdout, format, report); err != nil {
			log.Fatalf("Failed to write pool history: %v", err)
		}

	case "summary":
		cgtReport, err := cgt.NewCgtService().Calculate(ctx, events)
		if err != nil {
			log.Fatalf("Failed to calculate gains: %v", err)
		}
		incomeReport := income.NewIncomeService().Aggregate(events)
		tax := summary.NewSummaryService().Build(cgtReport, incomeReport, year, band)
		label := "All Years"
		if year != 0 {
			label = year.String()
		}
		if err := render.Summary(os.Stdout, format, tax, label); err != nil {
			log.Fatalf("Failed to write summary: %v", err)
		}

	case "validate":
		report, err := cgt.NewCgtService().Calculate(ctx, events)
		if err != nil {
			log.Fatalf("Failed to calculate gains: %v", err)
		}
		total := len(warnings) + len(report.Warnings)
		if total > 0 {
			for _, warning := range warnings {
				fmt.Fprintf(os.Stderr, "%s: %s %s on %s\n",
					warning.Kind, warning.Asset, warning.SourceTransactionID, warning.Date.Format("2006-01-02"))
			}
			for _, warning := range report.Warnings {
				fmt.Fprintf(os.Stderr, "%s: %s %s on %s (available %s, required %s)\n",
					warning.Kind, warning.Asset, warning.SourceTransactionID,
					warning.Date.Format("2006-01-02"), warning.Available.String(), warning.Required.String())
			}
			fmt.Fprintf(os.Stderr, "%d warning(s)\n", total)
			os.Exit(1)
		}
		fmt.Printf("Ledger OK: %d transactions, %d events\n", len(txs), len(events))

	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func filterEventsByAsset(events []domain.TaxableEvent, asset string) []domain.TaxableEvent {
	var filtered []domain.TaxableEvent
	for _, event := range events {
		if event.Asset == asset {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

func filterEventsByYear(events []domain.TaxableEvent, year domain.TaxYear) []domain.TaxableEvent {
	var filtered []domain.TaxableEvent
	for _, event := range events {
		if event.TaxYear() == year {
			filtered = append(filtered, event)
		}
	}
	return filtered
}
