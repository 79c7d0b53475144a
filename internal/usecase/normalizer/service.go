package normalizer

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/calverton/taxlens-backend/internal/domain"
)

// Options controls how transactions are normalized
type Options struct {
	// ExcludeUnlinked drops unlinked deposits and withdrawals instead
	// of emitting zero-value unclassified events for them.
	ExcludeUnlinked bool
}

// NormalizerService turns raw ledger transactions into the taxable
// events the CGT and income engines consume. Normalization is
// fail-fast: the first invalid transaction aborts the run with an
// error naming it.
type NormalizerService struct {
	registry *domain.AssetRegistry
}

// NewNormalizerService creates a new normalizer service
func NewNormalizerService(registry *domain.AssetRegistry) *NormalizerService {
	return &NormalizerService{registry: registry}
}

// BuildEvents normalizes a full ledger. Events are returned in
// chronological order, ties broken by ledger order, with warnings for
// anything emitted as unclassified.
//
// Logic:
//  1. Validate transfer links across the whole ledger
//  2. Normalize each transaction to zero, one or two events
//  3. Sort chronologically and assign sequence numbers
func (s *NormalizerService) BuildEvents(txs []domain.Transaction, opts Options) ([]domain.TaxableEvent, []domain.Warning, error) {
	if err := s.checkTransferLinks(txs); err != nil {
		return nil, nil, err
	}

	var events []domain.TaxableEvent
	order := make(map[uuid.UUID]int)
	for i := range txs {
		txEvents, err := s.Normalize(&txs[i], opts)
		if err != nil {
			return nil, nil, err
		}
		for _, event := range txEvents {
			order[event.ID] = len(order)
			events = append(events, event)
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].DateTime.Equal(events[j].DateTime) {
			return events[i].DateTime.Before(events[j].DateTime)
		}
		return order[events[i].ID] < order[events[j].ID]
	})
	for i := range events {
		events[i].Seq = i
	}

	var warnings []domain.Warning
	for i := range events {
		if events[i].Tag == domain.TagUnclassified {
			warnings = append(warnings, domain.Warning{
				Kind:                domain.WarnUnclassifiedEvent,
				SourceTransactionID: events[i].SourceTransactionID,
				Asset:               events[i].Asset,
				Date:                events[i].Date(),
			})
		}
	}

	return events, warnings, nil
}

// Normalize maps one transaction to its taxable events. The dispatch
// is total over the type/tag matrix: every combination either yields
// events or a typed error.
func (s *NormalizerService) Normalize(tx *domain.Transaction, opts Options) ([]domain.TaxableEvent, error) {
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkAssetsKnown(tx); err != nil {
		return nil, err
	}

	switch tx.Type {
	case domain.TransactionTypeTrade:
		return s.normalizeTrade(tx)
	case domain.TransactionTypeDeposit:
		return s.normalizeDeposit(tx, opts)
	case domain.TransactionTypeWithdrawal:
		return s.normalizeWithdrawal(tx, opts)
	}
	return nil, domain.NewValidationError(tx.ID, domain.ErrKindInvalidTransaction,
		"unknown transaction type: "+string(tx.Type))
}

// normalizeTrade handles TRADE transactions.
// A GBP leg fixes the value of the whole trade. A crypto-to-crypto
// trade is a disposal and an acquisition sharing one value, taken
// from the price of the acquired asset.
func (s *NormalizerService) normalizeTrade(tx *domain.Transaction) ([]domain.TaxableEvent, error) {
	switch tx.Tag {
	case domain.TagUnclassified, domain.TagTrade:
	default:
		return nil, domain.NewValidationError(tx.ID, domain.ErrKindInvalidTagForType,
			"tag "+string(tx.Tag)+" is not valid on a trade")
	}

	feesGBP, err := domain.ResolveFeeGBP(tx.ID, tx.Fee, tx.Price)
	if err != nil {
		return nil, err
	}

	switch {
	case tx.Sold.IsGBP():
		// Buy: acquisition valued at the GBP spent.
		if tx.Price != nil && tx.Price.Base != tx.Bought.Asset {
			return nil, domain.NewValidationError(tx.ID, domain.ErrKindPriceBaseMismatch,
				"trade price is for "+tx.Price.Base+" but "+tx.Bought.Asset+" was bought")
		}
		acq, err := s.newEvent(tx, domain.EventTypeAcquisition, domain.TagTrade, tx.Bought, tx.Sold.Quantity, feesGBP)
		if err != nil {
			return nil, err
		}
		return []domain.TaxableEvent{acq}, nil

	case tx.Bought.IsGBP():
		// Sell: disposal valued at the GBP received.
		if tx.Price != nil && tx.Price.Base != tx.Sold.Asset {
			return nil, domain.NewValidationError(tx.ID, domain.ErrKindPriceBaseMismatch,
				"trade price is for "+tx.Price.Base+" but "+tx.Sold.Asset+" was sold")
		}
		disp, err := s.newEvent(tx, domain.EventTypeDisposal, domain.TagTrade, tx.Sold, tx.Bought.Quantity, feesGBP)
		if err != nil {
			return nil, err
		}
		return []domain.TaxableEvent{disp}, nil

	default:
		// Crypto-to-crypto: both legs share the GBP value of the
		// acquired side. Fees stay on the disposal leg.
		valueGBP, err := domain.ResolveValueGBP(tx.ID, tx.Bought.Asset, tx.Bought.Quantity, tx.Price)
		if err != nil {
			return nil, err
		}
		disp, err := s.newEvent(tx, domain.EventTypeDisposal, domain.TagTrade, tx.Sold, valueGBP, feesGBP)
		if err != nil {
			return nil, err
		}
		acq, err := s.newEvent(tx, domain.EventTypeAcquisition, domain.TagTrade, tx.Bought, valueGBP, decimal.Zero)
		if err != nil {
			return nil, err
		}
		return []domain.TaxableEvent{disp, acq}, nil
	}
}

// normalizeDeposit handles DEPOSIT transactions
func (s *NormalizerService) normalizeDeposit(tx *domain.Transaction, opts Options) ([]domain.TaxableEvent, error) {
	feesGBP, err := domain.ResolveFeeGBP(tx.ID, tx.Fee, tx.Price)
	if err != nil {
		return nil, err
	}

	switch {
	case tx.Tag == domain.TagUnclassified:
		if tx.LinkedWithdrawalID != "" {
			// Transfer in from another own account, not taxable.
			return nil, nil
		}
		if opts.ExcludeUnlinked || tx.Amount.IsGBP() {
			return nil, nil
		}
		acq, err := s.newEvent(tx, domain.EventTypeAcquisition, domain.TagUnclassified, tx.Amount, decimal.Zero, feesGBP)
		if err != nil {
			return nil, err
		}
		return []domain.TaxableEvent{acq}, nil

	case tx.Tag.IsIncome():
		if tx.IsLinked() {
			return nil, domain.NewValidationError(tx.ID, domain.ErrKindTaggedDepositLinked,
				"an income-tagged deposit cannot be a transfer leg")
		}
		valueGBP, err := domain.ResolveValueGBP(tx.ID, tx.Amount.Asset, tx.Amount.Quantity, tx.Price)
		if err != nil {
			if domain.KindOf(err) == domain.ErrKindMissingPrice {
				return nil, domain.NewValidationError(tx.ID, domain.ErrKindMissingTaggedPrice,
					"a "+string(tx.Tag)+" deposit must carry a price")
			}
			return nil, err
		}
		acq, err := s.newEvent(tx, domain.EventTypeAcquisition, tx.Tag, tx.Amount, valueGBP, feesGBP)
		if err != nil {
			return nil, err
		}
		return []domain.TaxableEvent{acq}, nil

	case tx.Tag == domain.TagAirdrop:
		if tx.IsLinked() {
			return nil, domain.NewValidationError(tx.ID, domain.ErrKindTaggedDepositLinked,
				"an airdrop deposit cannot be a transfer leg")
		}
		if tx.Price != nil {
			return nil, domain.NewValidationError(tx.ID, domain.ErrKindAirdropPriceNotAllowed,
				"a non-income airdrop acquires at zero cost and cannot carry a price")
		}
		acq, err := s.newEvent(tx, domain.EventTypeAcquisition, domain.TagAirdrop, tx.Amount, decimal.Zero, feesGBP)
		if err != nil {
			return nil, err
		}
		return []domain.TaxableEvent{acq}, nil

	case tx.Tag == domain.TagGift:
		if tx.IsLinked() {
			return nil, domain.NewValidationError(tx.ID, domain.ErrKindTaggedDepositLinked,
				"a gift deposit cannot be a transfer leg")
		}
		valueGBP, err := domain.ResolveValueGBP(tx.ID, tx.Amount.Asset, tx.Amount.Quantity, tx.Price)
		if err != nil {
			if domain.KindOf(err) == domain.ErrKindMissingPrice {
				return nil, domain.NewValidationError(tx.ID, domain.ErrKindMissingTaggedPrice,
					"a received gift must carry a price fixing its market value")
			}
			return nil, err
		}
		acq, err := s.newEvent(tx, domain.EventTypeAcquisition, domain.TagGift, tx.Amount, valueGBP, feesGBP)
		if err != nil {
			return nil, err
		}
		return []domain.TaxableEvent{acq}, nil

	default:
		return nil, domain.NewValidationError(tx.ID, domain.ErrKindInvalidTagForType,
			"tag "+string(tx.Tag)+" is not valid on a deposit")
	}
}

// normalizeWithdrawal handles WITHDRAWAL transactions
func (s *NormalizerService) normalizeWithdrawal(tx *domain.Transaction, opts Options) ([]domain.TaxableEvent, error) {
	feesGBP, err := domain.ResolveFeeGBP(tx.ID, tx.Fee, tx.Price)
	if err != nil {
		return nil, err
	}

	switch tx.Tag {
	case domain.TagUnclassified:
		if tx.LinkedDepositID != "" {
			// Transfer out to another own account, not taxable.
			return nil, nil
		}
		if opts.ExcludeUnlinked || tx.Amount.IsGBP() {
			return nil, nil
		}
		disp, err := s.newEvent(tx, domain.EventTypeDisposal, domain.TagUnclassified, tx.Amount, decimal.Zero, feesGBP)
		if err != nil {
			return nil, err
		}
		return []domain.TaxableEvent{disp}, nil

	case domain.TagGift:
		// Gifting away is a disposal at market value.
		if tx.IsLinked() {
			return nil, domain.NewValidationError(tx.ID, domain.ErrKindTaggedWithdrawalLinked,
				"a gift withdrawal cannot be a transfer leg")
		}
		valueGBP, err := domain.ResolveValueGBP(tx.ID, tx.Amount.Asset, tx.Amount.Quantity, tx.Price)
		if err != nil {
			if domain.KindOf(err) == domain.ErrKindMissingPrice {
				return nil, domain.NewValidationError(tx.ID, domain.ErrKindMissingTaggedPrice,
					"a given gift must carry a price fixing its market value")
			}
			return nil, err
		}
		disp, err := s.newEvent(tx, domain.EventTypeDisposal, domain.TagGift, tx.Amount, valueGBP, feesGBP)
		if err != nil {
			return nil, err
		}
		return []domain.TaxableEvent{disp}, nil

	default:
		return nil, domain.NewValidationError(tx.ID, domain.ErrKindInvalidTagForType,
			"tag "+string(tx.Tag)+" is not valid on a withdrawal")
	}
}

// newEvent builds a taxable event from a transaction leg.
// GBP legs only make sense for income, where the received sterling is
// itself the taxed value.
func (s *NormalizerService) newEvent(tx *domain.Transaction, eventType domain.EventType, tag domain.Tag, leg *domain.Amount, valueGBP, feesGBP decimal.Decimal) (domain.TaxableEvent, error) {
	var class domain.AssetClass
	if !leg.IsGBP() {
		asset, err := s.registry.Lookup(leg.Asset)
		if err != nil {
			return domain.TaxableEvent{}, domain.NewValidationError(tx.ID, domain.ErrKindUnknownAsset,
				"unknown asset: "+leg.Asset)
		}
		class = asset.Class
	}
	return domain.TaxableEvent{
		ID:                  uuid.New(),
		SourceTransactionID: tx.ID,
		DateTime:            tx.DateTime,
		Type:                eventType,
		Tag:                 tag,
		Asset:               leg.Asset,
		Class:               class,
		Quantity:            leg.Quantity,
		ValueGBP:            valueGBP,
		FeesGBP:             feesGBP,
		Description:         tx.Description,
	}, nil
}

// checkAssetsKnown verifies every non-GBP symbol the transaction
// references is registered
func (s *NormalizerService) checkAssetsKnown(tx *domain.Transaction) error {
	symbols := map[string]bool{}
	for _, amount := range []*domain.Amount{tx.Sold, tx.Bought, tx.Amount} {
		if amount != nil && !amount.IsGBP() {
			symbols[amount.Asset] = true
		}
	}
	if tx.Fee != nil && tx.Fee.Asset != domain.GBP {
		symbols[tx.Fee.Asset] = true
	}
	for symbol := range symbols {
		if _, err := s.registry.Lookup(symbol); err != nil {
			return domain.NewValidationError(tx.ID, domain.ErrKindUnknownAsset, "unknown asset: "+symbol)
		}
	}
	return nil
}

// checkTransferLinks verifies that every transfer leg names a
// counterpart that exists and points back at it
func (s *NormalizerService) checkTransferLinks(txs []domain.Transaction) error {
	byID := make(map[string]*domain.Transaction, len(txs))
	for i := range txs {
		byID[txs[i].ID] = &txs[i]
	}

	for i := range txs {
		tx := &txs[i]
		if tx.LinkedWithdrawalID != "" {
			other, ok := byID[tx.LinkedWithdrawalID]
			if !ok || other.Type != domain.TransactionTypeWithdrawal || other.LinkedDepositID != tx.ID {
				return domain.NewValidationError(tx.ID, domain.ErrKindBrokenTransferLink,
					"linked withdrawal "+tx.LinkedWithdrawalID+" is missing or does not link back")
			}
		}
		if tx.LinkedDepositID != "" {
			other, ok := byID[tx.LinkedDepositID]
			if !ok || other.Type != domain.TransactionTypeDeposit || other.LinkedWithdrawalID != tx.ID {
				return domain.NewValidationError(tx.ID, domain.ErrKindBrokenTransferLink,
					"linked deposit "+tx.LinkedDepositID+" is missing or does not link back")
			}
		}
	}
	return nil
}
