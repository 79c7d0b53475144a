package domain

import "sort"

// AssetClass represents the class of a tradeable asset
type AssetClass string

const (
	AssetClassCrypto AssetClass = "CRYPTO"
	AssetClassStock  AssetClass = "STOCK"
)

// GBP is the reporting currency. It is never registered as an asset:
// sterling amounts are values, not holdings subject to matching.
const GBP = "GBP"

// Asset represents a registered asset identified by its unique symbol
type Asset struct {
	Symbol string
	Class  AssetClass
}

// Validate ensures the asset adheres to domain rules
func (a *Asset) Validate() error {
	if a.Symbol == "" {
		return NewValidationError("", ErrKindUnknownAsset, "asset symbol cannot be empty")
	}
	if a.Symbol == GBP {
		return NewValidationError("", ErrKindUnknownAsset, "GBP cannot be registered as an asset")
	}
	if a.Class != AssetClassCrypto && a.Class != AssetClassStock {
		return NewValidationError("", ErrKindUnknownAsset, "unknown asset class: "+string(a.Class))
	}
	return nil
}

// AssetRegistry holds the set of assets a ledger may reference.
// Every non-GBP symbol appearing in a transaction must resolve here.
type AssetRegistry struct {
	assets map[string]Asset
}

// NewAssetRegistry creates an empty asset registry
func NewAssetRegistry() *AssetRegistry {
	return &AssetRegistry{assets: make(map[string]Asset)}
}

// Register adds an asset to the registry.
// Registering the same symbol twice is an error.
func (r *AssetRegistry) Register(asset Asset) error {
	if err := asset.Validate(); err != nil {
		return err
	}
	if _, ok := r.assets[asset.Symbol]; ok {
		return NewValidationError("", ErrKindUnknownAsset, "duplicate asset symbol: "+asset.Symbol)
	}
	r.assets[asset.Symbol] = asset
	return nil
}

// Lookup resolves a symbol to its registered asset
func (r *AssetRegistry) Lookup(symbol string) (Asset, error) {
	asset, ok := r.assets[symbol]
	if !ok {
		return Asset{}, NewValidationError("", ErrKindUnknownAsset, "unknown asset: "+symbol)
	}
	return asset, nil
}

// Symbols returns the registered symbols in sorted order
func (r *AssetRegistry) Symbols() []string {
	symbols := make([]string, 0, len(r.assets))
	for symbol := range r.assets {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}
