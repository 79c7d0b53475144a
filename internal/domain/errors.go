package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the ways a transaction can fail validation
// or normalization. Any of these aborts the run.
type ErrorKind string

const (
	ErrKindUnknownAsset          ErrorKind = "UNKNOWN_ASSET"
	ErrKindInvalidTransaction    ErrorKind = "INVALID_TRANSACTION"
	ErrKindInvalidAmount         ErrorKind = "INVALID_AMOUNT"
	ErrKindMissingPrice          ErrorKind = "MISSING_PRICE"
	ErrKindPriceBaseMismatch     ErrorKind = "PRICE_BASE_MISMATCH"
	ErrKindPriceQuoteFxMismatch  ErrorKind = "PRICE_QUOTE_FX_MISMATCH"
	ErrKindInvalidTagForType     ErrorKind = "INVALID_TAG_FOR_TYPE"
	ErrKindMissingTaggedPrice    ErrorKind = "MISSING_TAGGED_PRICE"
	ErrKindAirdropPriceNotAllowed ErrorKind = "AIRDROP_PRICE_NOT_ALLOWED"
	ErrKindTaggedDepositLinked    ErrorKind = "TAGGED_DEPOSIT_LINKED"
	ErrKindTaggedWithdrawalLinked ErrorKind = "TAGGED_WITHDRAWAL_LINKED"
	ErrKindBrokenTransferLink     ErrorKind = "BROKEN_TRANSFER_LINK"
	ErrKindFeeUnpriceable         ErrorKind = "FEE_UNPRICEABLE"
)

// ValidationError is a fatal error raised while validating or
// normalizing a transaction. It carries the offending transaction ID
// so the report can point the user at the exact record to fix.
type ValidationError struct {
	TransactionID string
	Kind          ErrorKind
	Detail        string
}

// NewValidationError creates a validation error for a transaction
func NewValidationError(transactionID string, kind ErrorKind, detail string) *ValidationError {
	return &ValidationError{TransactionID: transactionID, Kind: kind, Detail: detail}
}

func (e *ValidationError) Error() string {
	if e.TransactionID == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("transaction %s: %s: %s", e.TransactionID, e.Kind, e.Detail)
}

// KindOf returns the error kind if err is a ValidationError, or empty otherwise
func KindOf(err error) ErrorKind {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return ""
}
