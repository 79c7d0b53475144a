package cgt

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/calverton/taxlens-backend/internal/domain"
)

// lot is one acquisition event with running consumption counters.
// Same-day reservations are fixed before matching starts; bed and
// breakfast takes accumulate as earlier disposals claim the lot. The
// leftover share joins the Section 104 pool when the lot's date is
// reached.
type lot struct {
	event      domain.TaxableEvent
	date       time.Time
	quantity   decimal.Decimal
	costGBP    decimal.Decimal
	sdReserved decimal.Decimal
	bnbTaken   decimal.Decimal
}

func newLot(event domain.TaxableEvent) *lot {
	return &lot{
		event:    event,
		date:     event.Date(),
		quantity: event.Quantity,
		costGBP:  event.TotalCostGBP(),
	}
}

// costFor returns the pro-rata share of the lot's cost for a quantity
func (l *lot) costFor(quantity decimal.Decimal) decimal.Decimal {
	if l.quantity.IsZero() {
		return decimal.Zero
	}
	return l.costGBP.Mul(quantity).Div(l.quantity)
}

// unclaimed returns the quantity not yet reserved or taken
func (l *lot) unclaimed() decimal.Decimal {
	return l.quantity.Sub(l.sdReserved).Sub(l.bnbTaken)
}

func (l *lot) matchedAcquisition() *MatchedAcquisition {
	return &MatchedAcquisition{
		SourceTransactionID: l.event.SourceTransactionID,
		Date:                l.date,
		Tag:                 l.event.Tag,
		OriginalQuantity:    l.quantity,
		OriginalCostGBP:     l.costGBP,
	}
}

// pool is a running Section 104 pool. Removals consume cost at the
// pool's weighted average, never below zero.
type pool struct {
	asset    string
	quantity decimal.Decimal
	costGBP  decimal.Decimal
}

func newPool(asset string) *pool {
	return &pool{asset: asset, quantity: decimal.Zero, costGBP: decimal.Zero}
}

func (p *pool) add(quantity, costGBP decimal.Decimal) {
	p.quantity = p.quantity.Add(quantity)
	p.costGBP = p.costGBP.Add(costGBP)
}

// remove takes up to quantity from the pool at average cost.
// Returns the quantity actually taken and its cost.
func (p *pool) remove(quantity decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if p.quantity.IsZero() || quantity.IsZero() {
		return decimal.Zero, decimal.Zero
	}
	if quantity.GreaterThanOrEqual(p.quantity) {
		taken, cost := p.quantity, p.costGBP
		p.quantity, p.costGBP = decimal.Zero, decimal.Zero
		return taken, cost
	}
	cost := p.costGBP.Mul(quantity).Div(p.quantity)
	p.quantity = p.quantity.Sub(quantity)
	p.costGBP = p.costGBP.Sub(cost)
	return quantity, cost
}

func (p *pool) state() PoolState {
	return PoolState{Asset: p.asset, Quantity: p.quantity, CostGBP: p.costGBP}
}
