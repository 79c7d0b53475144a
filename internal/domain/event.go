package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType represents the direction of a taxable event
type EventType string

const (
	EventTypeAcquisition EventType = "ACQUISITION"
	EventTypeDisposal    EventType = "DISPOSAL"
)

// TaxableEvent is the normalized unit the tax engines consume.
// One transaction yields zero, one or two events. Events are
// immutable once created.
type TaxableEvent struct {
	ID                  uuid.UUID
	SourceTransactionID string
	Seq                 int
	DateTime            time.Time
	Type                EventType
	Tag                 Tag
	Asset               string
	Class               AssetClass
	Quantity            decimal.Decimal
	ValueGBP            decimal.Decimal
	FeesGBP             decimal.Decimal
	Description         string
}

// Date returns the calendar day of the event, as recorded in the
// transaction's own timezone. Share matching operates on days.
func (e *TaxableEvent) Date() time.Time {
	year, month, day := e.DateTime.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// TotalCostGBP returns the acquisition cost including fees
func (e *TaxableEvent) TotalCostGBP() decimal.Decimal {
	return e.ValueGBP.Add(e.FeesGBP)
}

// TaxYear returns the UK tax year the event falls in
func (e *TaxableEvent) TaxYear() TaxYear {
	return TaxYearOf(e.DateTime)
}

// WarningKind classifies advisory findings. Warnings flag results
// that need attention but never abort a run.
type WarningKind string

const (
	WarnNoCostBasis           WarningKind = "NO_COST_BASIS"
	WarnInsufficientCostBasis WarningKind = "INSUFFICIENT_COST_BASIS"
	WarnUnclassifiedEvent     WarningKind = "UNCLASSIFIED_EVENT"
)

// Warning is an advisory finding attached to an event or a disposal
// result. Cost basis warnings carry the quantities involved so the
// report can show how much of the disposal went unmatched.
type Warning struct {
	Kind                WarningKind
	SourceTransactionID string
	Asset               string
	Date                time.Time
	Available           decimal.Decimal
	Required            decimal.Decimal
}
