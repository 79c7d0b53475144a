package domain

import (
	"time"
)

// TransactionType represents the shape of a ledger transaction
type TransactionType string

const (
	TransactionTypeTrade      TransactionType = "TRADE"
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
)

// Tag classifies a transaction for tax purposes.
// Which tags are legal depends on the transaction type.
type Tag string

const (
	TagUnclassified  Tag = "UNCLASSIFIED"
	TagTrade         Tag = "TRADE"
	TagStakingReward Tag = "STAKING_REWARD"
	TagSalary        Tag = "SALARY"
	TagOtherIncome   Tag = "OTHER_INCOME"
	TagAirdrop       Tag = "AIRDROP"
	TagAirdropIncome Tag = "AIRDROP_INCOME"
	TagDividend      Tag = "DIVIDEND"
	TagInterest      Tag = "INTEREST"
	TagGift          Tag = "GIFT"
)

// IsIncome reports whether the tag marks the transaction as taxable
// income at receipt
func (t Tag) IsIncome() bool {
	switch t {
	case TagStakingReward, TagSalary, TagOtherIncome, TagAirdropIncome, TagDividend, TagInterest:
		return true
	}
	return false
}

// Valid reports whether the tag is one of the known tags
func (t Tag) Valid() bool {
	switch t {
	case TagUnclassified, TagTrade, TagStakingReward, TagSalary, TagOtherIncome,
		TagAirdrop, TagAirdropIncome, TagDividend, TagInterest, TagGift:
		return true
	}
	return false
}

// Transaction represents a single ledger record as supplied by the
// user. Trades carry Sold and Bought legs; deposits and withdrawals
// carry a single Amount. Transfers between own accounts are expressed
// as a withdrawal/deposit pair linked by ID in both directions.
type Transaction struct {
	ID          string
	DateTime    time.Time
	Account     string
	Description string
	Type        TransactionType
	Tag         Tag
	Price       *Price
	Fee         *Fee

	// Trade legs
	Sold   *Amount
	Bought *Amount

	// Deposit / withdrawal leg
	Amount *Amount

	// Transfer links. A deposit names the withdrawal it came from,
	// a withdrawal names the deposit it went to.
	LinkedWithdrawalID string
	LinkedDepositID    string
}

// Validate ensures the transaction has the payload its type requires.
// Tag/type compatibility is checked during normalization, where the
// full dispatch matrix lives.
func (tx *Transaction) Validate() error {
	if tx.ID == "" {
		return NewValidationError("", ErrKindInvalidTransaction, "transaction ID cannot be empty")
	}
	if tx.DateTime.IsZero() {
		return NewValidationError(tx.ID, ErrKindInvalidTransaction, "transaction datetime cannot be empty")
	}
	if !tx.Tag.Valid() {
		return NewValidationError(tx.ID, ErrKindInvalidTransaction, "unknown tag: "+string(tx.Tag))
	}

	switch tx.Type {
	case TransactionTypeTrade:
		if tx.Sold == nil || tx.Bought == nil {
			return NewValidationError(tx.ID, ErrKindInvalidTransaction, "trade must have sold and bought legs")
		}
		if tx.Amount != nil {
			return NewValidationError(tx.ID, ErrKindInvalidTransaction, "trade cannot carry a deposit amount")
		}
		if err := tx.Sold.Validate(tx.ID); err != nil {
			return err
		}
		if err := tx.Bought.Validate(tx.ID); err != nil {
			return err
		}
		if tx.Sold.IsGBP() && tx.Bought.IsGBP() {
			return NewValidationError(tx.ID, ErrKindInvalidTransaction, "trade cannot exchange GBP for GBP")
		}
	case TransactionTypeDeposit, TransactionTypeWithdrawal:
		if tx.Amount == nil {
			return NewValidationError(tx.ID, ErrKindInvalidTransaction,
				string(tx.Type)+" must have an amount")
		}
		if tx.Sold != nil || tx.Bought != nil {
			return NewValidationError(tx.ID, ErrKindInvalidTransaction,
				string(tx.Type)+" cannot carry trade legs")
		}
		if err := tx.Amount.Validate(tx.ID); err != nil {
			return err
		}
	default:
		return NewValidationError(tx.ID, ErrKindInvalidTransaction, "unknown transaction type: "+string(tx.Type))
	}

	if tx.Price != nil {
		if err := tx.Price.Validate(tx.ID); err != nil {
			return err
		}
	}
	if tx.Fee != nil {
		if err := tx.Fee.Validate(tx.ID); err != nil {
			return err
		}
	}
	return nil
}

// IsLinked reports whether the transaction is one leg of a transfer
func (tx *Transaction) IsLinked() bool {
	return tx.LinkedWithdrawalID != "" || tx.LinkedDepositID != ""
}
