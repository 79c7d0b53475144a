package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func btcAmount(qty string) *Amount {
	return &Amount{Asset: "BTC", Quantity: decimal.RequireFromString(qty)}
}

func gbpAmount(qty string) *Amount {
	return &Amount{Asset: GBP, Quantity: decimal.RequireFromString(qty)}
}

func TestTransaction_Validate(t *testing.T) {
	when := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		tx       Transaction
		wantKind ErrorKind
	}{
		{
			name: "Valid trade passes",
			tx: Transaction{
				ID: "tx-1", DateTime: when, Type: TransactionTypeTrade, Tag: TagUnclassified,
				Sold: gbpAmount("10000"), Bought: btcAmount("1"),
			},
		},
		{
			name: "Valid deposit passes",
			tx: Transaction{
				ID: "tx-2", DateTime: when, Type: TransactionTypeDeposit, Tag: TagUnclassified,
				Amount: btcAmount("0.5"),
			},
		},
		{
			name: "Missing ID fails",
			tx: Transaction{
				DateTime: when, Type: TransactionTypeTrade, Tag: TagUnclassified,
				Sold: gbpAmount("10000"), Bought: btcAmount("1"),
			},
			wantKind: ErrKindInvalidTransaction,
		},
		{
			name: "Trade without legs fails",
			tx: Transaction{
				ID: "tx-3", DateTime: when, Type: TransactionTypeTrade, Tag: TagUnclassified,
			},
			wantKind: ErrKindInvalidTransaction,
		},
		{
			name: "Trade with deposit amount fails",
			tx: Transaction{
				ID: "tx-4", DateTime: when, Type: TransactionTypeTrade, Tag: TagUnclassified,
				Sold: gbpAmount("10000"), Bought: btcAmount("1"), Amount: btcAmount("1"),
			},
			wantKind: ErrKindInvalidTransaction,
		},
		{
			name: "GBP for GBP trade fails",
			tx: Transaction{
				ID: "tx-5", DateTime: when, Type: TransactionTypeTrade, Tag: TagUnclassified,
				Sold: gbpAmount("100"), Bought: gbpAmount("100"),
			},
			wantKind: ErrKindInvalidTransaction,
		},
		{
			name: "Deposit without amount fails",
			tx: Transaction{
				ID: "tx-6", DateTime: when, Type: TransactionTypeDeposit, Tag: TagUnclassified,
			},
			wantKind: ErrKindInvalidTransaction,
		},
		{
			name: "Withdrawal with trade legs fails",
			tx: Transaction{
				ID: "tx-7", DateTime: when, Type: TransactionTypeWithdrawal, Tag: TagUnclassified,
				Amount: btcAmount("1"), Sold: gbpAmount("10"),
			},
			wantKind: ErrKindInvalidTransaction,
		},
		{
			name: "Unknown type fails",
			tx: Transaction{
				ID: "tx-8", DateTime: when, Type: "STAKE", Tag: TagUnclassified,
				Amount: btcAmount("1"),
			},
			wantKind: ErrKindInvalidTransaction,
		},
		{
			name: "Unknown tag fails",
			tx: Transaction{
				ID: "tx-9", DateTime: when, Type: TransactionTypeDeposit, Tag: "BONUS",
				Amount: btcAmount("1"),
			},
			wantKind: ErrKindInvalidTransaction,
		},
		{
			name: "Negative amount fails",
			tx: Transaction{
				ID: "tx-10", DateTime: when, Type: TransactionTypeDeposit, Tag: TagUnclassified,
				Amount: &Amount{Asset: "BTC", Quantity: decimal.NewFromInt(-1)},
			},
			wantKind: ErrKindInvalidAmount,
		},
		{
			name: "Price with quote but no fx rate fails",
			tx: Transaction{
				ID: "tx-11", DateTime: when, Type: TransactionTypeDeposit, Tag: TagStakingReward,
				Amount: btcAmount("1"),
				Price:  &Price{Base: "BTC", Rate: decimal.NewFromInt(40000), Quote: "USD"},
			},
			wantKind: ErrKindPriceQuoteFxMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tx.Validate()
			if tt.wantKind == "" {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Equal(t, tt.wantKind, KindOf(err))
			}
		})
	}
}

func TestTag_IsIncome(t *testing.T) {
	incomeTags := []Tag{TagStakingReward, TagSalary, TagOtherIncome, TagAirdropIncome, TagDividend, TagInterest}
	for _, tag := range incomeTags {
		assert.True(t, tag.IsIncome(), "tag %s should be income", tag)
	}

	nonIncomeTags := []Tag{TagUnclassified, TagTrade, TagAirdrop, TagGift}
	for _, tag := range nonIncomeTags {
		assert.False(t, tag.IsIncome(), "tag %s should not be income", tag)
	}
}

func TestTransaction_IsLinked(t *testing.T) {
	tx := Transaction{ID: "tx-1"}
	assert.False(t, tx.IsLinked())

	tx.LinkedWithdrawalID = "tx-0"
	assert.True(t, tx.IsLinked())
}
