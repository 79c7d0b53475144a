// Package ledger reads transaction ledgers from JSON files and maps
// them onto domain types.
package ledger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/calverton/taxlens-backend/internal/domain"
)

// File is the on-disk ledger document: the assets the transactions
// may reference, then the transactions themselves.
type File struct {
	Assets       []AssetRecord       `json:"assets"`
	Transactions []TransactionRecord `json:"transactions"`
}

// AssetRecord declares one tradeable asset
type AssetRecord struct {
	Symbol string `json:"symbol"`
	Class  string `json:"class"`
}

// AmountRecord is a quantity of one asset
type AmountRecord struct {
	Asset    string          `json:"asset"`
	Quantity decimal.Decimal `json:"quantity"`
}

// PriceRecord prices the base asset, optionally via a foreign quote
// currency
type PriceRecord struct {
	Base   string           `json:"base"`
	Rate   decimal.Decimal  `json:"rate"`
	Quote  string           `json:"quote,omitempty"`
	FxRate *decimal.Decimal `json:"fx_rate,omitempty"`
	Source string           `json:"source,omitempty"`
}

// FeeRecord is a fee with an optional price of its own
type FeeRecord struct {
	Asset    string          `json:"asset"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    *PriceRecord    `json:"price,omitempty"`
}

// TransactionRecord is one ledger entry. Datetime is RFC 3339 with a
// numeric offset.
type TransactionRecord struct {
	ID                 string         `json:"id"`
	DateTime           string         `json:"datetime"`
	Account            string         `json:"account,omitempty"`
	Description        string         `json:"description,omitempty"`
	Type               string         `json:"type"`
	Tag                string         `json:"tag,omitempty"`
	Price              *PriceRecord   `json:"price,omitempty"`
	Fee                *FeeRecord     `json:"fee,omitempty"`
	Sold               *AmountRecord  `json:"sold,omitempty"`
	Bought             *AmountRecord  `json:"bought,omitempty"`
	Amount             *AmountRecord  `json:"amount,omitempty"`
	LinkedWithdrawalID string         `json:"linked_withdrawal,omitempty"`
	LinkedDepositID    string         `json:"linked_deposit,omitempty"`
}

// Load reads a ledger file from disk
func Load(path string) (*domain.AssetRegistry, []domain.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening ledger: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses a ledger document
func Read(r io.Reader) (*domain.AssetRegistry, []domain.Transaction, error) {
	var file File
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&file); err != nil {
		return nil, nil, fmt.Errorf("parsing ledger: %w", err)
	}

	registry := domain.NewAssetRegistry()
	for _, record := range file.Assets {
		asset, err := record.toDomain()
		if err != nil {
			return nil, nil, err
		}
		if err := registry.Register(asset); err != nil {
			return nil, nil, err
		}
	}

	txs := make([]domain.Transaction, 0, len(file.Transactions))
	for i, record := range file.Transactions {
		tx, err := record.toDomain()
		if err != nil {
			return nil, nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		txs = append(txs, tx)
	}
	return registry, txs, nil
}

func (r AssetRecord) toDomain() (domain.Asset, error) {
	var class domain.AssetClass
	switch strings.ToUpper(r.Class) {
	// An omitted class defaults to crypto.
	case "", "CRYPTO":
		class = domain.AssetClassCrypto
	case "STOCK":
		class = domain.AssetClassStock
	default:
		return domain.Asset{}, fmt.Errorf("asset %s: unknown class %q", r.Symbol, r.Class)
	}
	return domain.Asset{Symbol: r.Symbol, Class: class}, nil
}

func (r TransactionRecord) toDomain() (domain.Transaction, error) {
	dateTime, err := time.Parse(time.RFC3339, r.DateTime)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("bad datetime %q: %w", r.DateTime, err)
	}

	tag := domain.TagUnclassified
	if r.Tag != "" {
		tag = domain.Tag(strings.ToUpper(r.Tag))
	}

	tx := domain.Transaction{
		ID:                 r.ID,
		DateTime:           dateTime,
		Account:            r.Account,
		Description:        r.Description,
		Type:               domain.TransactionType(strings.ToUpper(r.Type)),
		Tag:                tag,
		Sold:               r.Sold.toDomain(),
		Bought:             r.Bought.toDomain(),
		Amount:             r.Amount.toDomain(),
		LinkedWithdrawalID: r.LinkedWithdrawalID,
		LinkedDepositID:    r.LinkedDepositID,
	}
	if r.Price != nil {
		price := r.Price.toDomain()
		tx.Price = &price
	}
	if r.Fee != nil {
		fee := domain.Fee{Asset: r.Fee.Asset, Quantity: r.Fee.Quantity}
		if r.Fee.Price != nil {
			price := r.Fee.Price.toDomain()
			fee.Price = &price
		}
		tx.Fee = &fee
	}
	return tx, nil
}

func (r *AmountRecord) toDomain() *domain.Amount {
	if r == nil {
		return nil
	}
	return &domain.Amount{Asset: r.Asset, Quantity: r.Quantity}
}

func (r *PriceRecord) toDomain() domain.Price {
	return domain.Price{Base: r.Base, Rate: r.Rate, Quote: r.Quote, FxRate: r.FxRate, Source: r.Source}
}
