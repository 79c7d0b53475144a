package cgt

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/calverton/taxlens-backend/internal/domain"
)

// CgtService matches disposals against acquisitions under the HMRC
// share identification rules and computes the resulting gains.
// Matching is independent per asset, so assets run concurrently.
type CgtService struct{}

// NewCgtService creates a new CGT matching service
func NewCgtService() *CgtService {
	return &CgtService{}
}

// Calculate runs share matching over a normalized event history.
// Events must already be in chronological order with sequence numbers
// assigned. The result is deterministic for a given input.
func (s *CgtService) Calculate(ctx context.Context, events []domain.TaxableEvent) (*Report, error) {
	byAsset := groupByAsset(events)

	assets := make([]string, 0, len(byAsset))
	for asset := range byAsset {
		assets = append(assets, asset)
	}
	sort.Strings(assets)

	outcomes := make([]*assetOutcome, len(assets))
	g, ctx := errgroup.WithContext(ctx)
	for i, asset := range assets {
		i, asset := i, asset
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			outcomes[i] = matchAsset(asset, byAsset[asset])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return assembleReport(outcomes), nil
}

// groupByAsset splits events per asset, keeping input order.
// GBP events are income-only and take no part in matching.
func groupByAsset(events []domain.TaxableEvent) map[string][]domain.TaxableEvent {
	byAsset := make(map[string][]domain.TaxableEvent)
	for _, event := range events {
		if event.Asset == domain.GBP {
			continue
		}
		byAsset[event.Asset] = append(byAsset[event.Asset], event)
	}
	return byAsset
}

// assetOutcome is the matching result for a single asset
type assetOutcome struct {
	asset   string
	results []DisposalResult
	history []PoolHistoryEntry
	final   PoolState
}

type sdClaim struct {
	lot      *lot
	quantity decimal.Decimal
}

// matchAsset runs the three identification rules over one asset's
// events in date order.
//
// Logic:
//  1. Reserve same-day acquisitions for each disposal, earliest
//     disposal first. Reservations are binding: a later same-day
//     disposal keeps its claim even if an earlier disposal could have
//     used the lot under the 30-day rule.
//  2. Walk events in date order, disposals ahead of acquisitions on
//     the same day. An acquisition folds its unreserved remainder
//     into the pool. A disposal consumes its same-day claims, then
//     acquisitions in the following 30 days (earliest first), then
//     the pool at weighted average cost.
func matchAsset(asset string, events []domain.TaxableEvent) *assetOutcome {
	var lots []*lot
	var disposals []domain.TaxableEvent
	for _, event := range events {
		switch event.Type {
		case domain.EventTypeAcquisition:
			lots = append(lots, newLot(event))
		case domain.EventTypeDisposal:
			disposals = append(disposals, event)
		}
	}
	sort.SliceStable(lots, func(i, j int) bool {
		if !lots[i].date.Equal(lots[j].date) {
			return lots[i].date.Before(lots[j].date)
		}
		return lots[i].event.Seq < lots[j].event.Seq
	})
	sort.SliceStable(disposals, func(i, j int) bool {
		if d1, d2 := dayOf(disposals[i]), dayOf(disposals[j]); !d1.Equal(d2) {
			return d1.Before(d2)
		}
		return disposals[i].Seq < disposals[j].Seq
	})

	// Step 1: same-day reservations.
	claims := make([][]sdClaim, len(disposals))
	for i := range disposals {
		need := disposals[i].Quantity
		day := dayOf(disposals[i])
		for _, l := range lots {
			if need.IsZero() || l.date.After(day) {
				break
			}
			if !l.date.Equal(day) {
				continue
			}
			available := l.quantity.Sub(l.sdReserved)
			if available.IsPositive() {
				take := decimal.Min(available, need)
				l.sdReserved = l.sdReserved.Add(take)
				claims[i] = append(claims[i], sdClaim{lot: l, quantity: take})
				need = need.Sub(take)
			}
		}
	}

	// Step 2: chronological matching.
	outcome := &assetOutcome{asset: asset}
	p := newPool(asset)
	nextLot := 0
	for i := range disposals {
		day := dayOf(disposals[i])
		nextLot = foldLots(p, lots, nextLot, day, outcome)
		outcome.results = append(outcome.results, matchDisposal(disposals[i], claims[i], lots, p))
		outcome.history = append(outcome.history, PoolHistoryEntry{
			SourceTransactionID: disposals[i].SourceTransactionID,
			Date:                day,
			EventType:           domain.EventTypeDisposal,
			Pool:                p.state(),
		})
	}
	foldLots(p, lots, nextLot, time.Time{}, outcome)

	outcome.final = p.state()
	return outcome
}

// foldLots adds to the pool every lot dated strictly before the given
// day, or every remaining lot when day is zero. Only the share not
// reserved same-day and not taken by the 30-day rule enters: both of
// those are final by the time the lot's date is reached.
func foldLots(p *pool, lots []*lot, next int, day time.Time, outcome *assetOutcome) int {
	for next < len(lots) {
		l := lots[next]
		if !day.IsZero() && !l.date.Before(day) {
			break
		}
		share := l.unclaimed()
		if share.IsPositive() {
			p.add(share, l.costFor(share))
		}
		outcome.history = append(outcome.history, PoolHistoryEntry{
			SourceTransactionID: l.event.SourceTransactionID,
			Date:                l.date,
			EventType:           domain.EventTypeAcquisition,
			Pool:                p.state(),
		})
		next++
	}
	return next
}

// matchDisposal applies the identification rules to one disposal and
// prices the matched quantity
func matchDisposal(disposal domain.TaxableEvent, sdClaims []sdClaim, lots []*lot, p *pool) DisposalResult {
	day := dayOf(disposal)
	need := disposal.Quantity
	var components []MatchingComponent

	// Same-day claims reserved in step 1.
	for _, claim := range sdClaims {
		components = append(components, MatchingComponent{
			Rule:        RuleSameDay,
			Quantity:    claim.quantity,
			CostGBP:     claim.lot.costFor(claim.quantity),
			Acquisition: claim.lot.matchedAcquisition(),
		})
		need = need.Sub(claim.quantity)
	}

	// Bed and breakfast: acquisitions in the 30 days after the
	// disposal, earliest first.
	windowEnd := day.AddDate(0, 0, 30)
	for _, l := range lots {
		if !need.IsPositive() || l.date.After(windowEnd) {
			break
		}
		if !l.date.After(day) {
			continue
		}
		available := l.unclaimed()
		if available.IsPositive() {
			take := decimal.Min(available, need)
			l.bnbTaken = l.bnbTaken.Add(take)
			components = append(components, MatchingComponent{
				Rule:        RuleBedAndBreakfast,
				Quantity:    take,
				CostGBP:     l.costFor(take),
				Acquisition: l.matchedAcquisition(),
			})
			need = need.Sub(take)
		}
	}

	// Section 104 pool at weighted average cost.
	if need.IsPositive() {
		taken, cost := p.remove(need)
		if taken.IsPositive() {
			components = append(components, MatchingComponent{
				Rule:     RuleSection104,
				Quantity: taken,
				CostGBP:  cost,
			})
			need = need.Sub(taken)
		}
	}

	matched := disposal.Quantity.Sub(need)
	allowableCost := decimal.Zero
	for _, component := range components {
		allowableCost = allowableCost.Add(component.CostGBP)
	}

	result := DisposalResult{
		Disposal:         disposal,
		TaxYear:          disposal.TaxYear(),
		ProceedsGBP:      disposal.ValueGBP,
		AllowableCostGBP: allowableCost,
		FeesGBP:          disposal.FeesGBP,
		GainGBP:          disposal.ValueGBP.Sub(allowableCost).Sub(disposal.FeesGBP),
		Components:       components,
		PoolAfter:        p.state(),
	}

	if need.IsPositive() {
		kind := domain.WarnInsufficientCostBasis
		if matched.IsZero() {
			kind = domain.WarnNoCostBasis
		}
		result.Warnings = append(result.Warnings, domain.Warning{
			Kind:                kind,
			SourceTransactionID: disposal.SourceTransactionID,
			Asset:               disposal.Asset,
			Date:                day,
			Available:           matched,
			Required:            disposal.Quantity,
		})
	}
	if disposal.Tag == domain.TagUnclassified {
		result.Warnings = append(result.Warnings, domain.Warning{
			Kind:                domain.WarnUnclassifiedEvent,
			SourceTransactionID: disposal.SourceTransactionID,
			Asset:               disposal.Asset,
			Date:                day,
		})
	}
	return result
}

// assembleReport merges per-asset outcomes into one deterministic
// report ordered by event sequence
func assembleReport(outcomes []*assetOutcome) *Report {
	report := &Report{}
	for _, outcome := range outcomes {
		report.Results = append(report.Results, outcome.results...)
		report.History = append(report.History, outcome.history...)
		report.Pools = append(report.Pools, outcome.final)
	}
	sort.SliceStable(report.Results, func(i, j int) bool {
		return report.Results[i].Disposal.Seq < report.Results[j].Disposal.Seq
	})
	sort.SliceStable(report.History, func(i, j int) bool {
		if !report.History[i].Date.Equal(report.History[j].Date) {
			return report.History[i].Date.Before(report.History[j].Date)
		}
		return report.History[i].Pool.Asset < report.History[j].Pool.Asset
	})
	for _, result := range report.Results {
		for _, warning := range result.Warnings {
			if warning.Kind != domain.WarnUnclassifiedEvent {
				report.Warnings = append(report.Warnings, warning)
			}
		}
	}
	report.YearEnds = yearEndSnapshots(outcomes)
	return report
}

// yearEndSnapshots reconstructs every open pool at each tax year end
// from the per-asset histories
func yearEndSnapshots(outcomes []*assetOutcome) []YearEndSnapshot {
	var first, last domain.TaxYear
	for _, outcome := range outcomes {
		for _, entry := range outcome.history {
			year := domain.TaxYearOf(entry.Date)
			if first == 0 || year < first {
				first = year
			}
			if year > last {
				last = year
			}
		}
	}
	if first == 0 {
		return nil
	}

	var snapshots []YearEndSnapshot
	for year := first; year <= last; year++ {
		snapshot := YearEndSnapshot{TaxYear: year}
		for _, outcome := range outcomes {
			var state *PoolState
			for i := range outcome.history {
				if outcome.history[i].Date.After(year.End()) {
					break
				}
				state = &outcome.history[i].Pool
			}
			if state != nil && state.Quantity.IsPositive() {
				snapshot.Pools = append(snapshot.Pools, *state)
			}
		}
		if len(snapshot.Pools) > 0 {
			snapshots = append(snapshots, snapshot)
		}
	}
	return snapshots
}

func dayOf(event domain.TaxableEvent) time.Time {
	return event.Date()
}
