package normalizer

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calverton/taxlens-backend/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newService(t *testing.T) *NormalizerService {
	t.Helper()
	registry := domain.NewAssetRegistry()
	require.NoError(t, registry.Register(domain.Asset{Symbol: "BTC", Class: domain.AssetClassCrypto}))
	require.NoError(t, registry.Register(domain.Asset{Symbol: "ETH", Class: domain.AssetClassCrypto}))
	require.NoError(t, registry.Register(domain.Asset{Symbol: "AAPL", Class: domain.AssetClassStock}))
	return NewNormalizerService(registry)
}

func amt(asset, qty string) *domain.Amount {
	return &domain.Amount{Asset: asset, Quantity: dec(qty)}
}

func at(day int) time.Time {
	return time.Date(2024, 6, day, 12, 0, 0, 0, time.UTC)
}

func TestNormalize_Trades(t *testing.T) {
	svc := newService(t)

	t.Run("Buy with GBP yields one acquisition valued at GBP spent", func(t *testing.T) {
		tx := domain.Transaction{
			ID: "buy-1", DateTime: at(1), Type: domain.TransactionTypeTrade, Tag: domain.TagUnclassified,
			Sold: amt(domain.GBP, "10000"), Bought: amt("BTC", "0.5"),
		}
		events, err := svc.Normalize(&tx, Options{})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, domain.EventTypeAcquisition, events[0].Type)
		assert.Equal(t, domain.TagTrade, events[0].Tag)
		assert.Equal(t, "BTC", events[0].Asset)
		assert.Equal(t, domain.AssetClassCrypto, events[0].Class)
		assert.True(t, events[0].Quantity.Equal(dec("0.5")))
		assert.True(t, events[0].ValueGBP.Equal(dec("10000")))
	})

	t.Run("Sell for GBP yields one disposal valued at GBP received", func(t *testing.T) {
		tx := domain.Transaction{
			ID: "sell-1", DateTime: at(2), Type: domain.TransactionTypeTrade, Tag: domain.TagTrade,
			Sold: amt("BTC", "0.25"), Bought: amt(domain.GBP, "6000"),
		}
		events, err := svc.Normalize(&tx, Options{})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, domain.EventTypeDisposal, events[0].Type)
		assert.True(t, events[0].ValueGBP.Equal(dec("6000")))
	})

	t.Run("Crypto-to-crypto yields disposal and acquisition sharing one value", func(t *testing.T) {
		tx := domain.Transaction{
			ID: "swap-1", DateTime: at(3), Type: domain.TransactionTypeTrade, Tag: domain.TagUnclassified,
			Sold: amt("BTC", "0.1"), Bought: amt("ETH", "2"),
			Price: &domain.Price{Base: "ETH", Rate: dec("2000")},
		}
		events, err := svc.Normalize(&tx, Options{})
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, domain.EventTypeDisposal, events[0].Type)
		assert.Equal(t, "BTC", events[0].Asset)
		assert.True(t, events[0].ValueGBP.Equal(dec("4000")))
		assert.Equal(t, domain.EventTypeAcquisition, events[1].Type)
		assert.Equal(t, "ETH", events[1].Asset)
		assert.True(t, events[1].ValueGBP.Equal(dec("4000")))
	})

	t.Run("Crypto-to-crypto without a price fails", func(t *testing.T) {
		tx := domain.Transaction{
			ID: "swap-2", DateTime: at(3), Type: domain.TransactionTypeTrade, Tag: domain.TagUnclassified,
			Sold: amt("BTC", "0.1"), Bought: amt("ETH", "2"),
		}
		_, err := svc.Normalize(&tx, Options{})
		assert.Equal(t, domain.ErrKindMissingPrice, domain.KindOf(err))
	})

	t.Run("Price for the wrong leg fails", func(t *testing.T) {
		tx := domain.Transaction{
			ID: "swap-3", DateTime: at(3), Type: domain.TransactionTypeTrade, Tag: domain.TagUnclassified,
			Sold: amt("BTC", "0.1"), Bought: amt("ETH", "2"),
			Price: &domain.Price{Base: "BTC", Rate: dec("40000")},
		}
		_, err := svc.Normalize(&tx, Options{})
		assert.Equal(t, domain.ErrKindPriceBaseMismatch, domain.KindOf(err))
	})

	t.Run("Income tag on a trade fails", func(t *testing.T) {
		tx := domain.Transaction{
			ID: "trade-bad", DateTime: at(3), Type: domain.TransactionTypeTrade, Tag: domain.TagStakingReward,
			Sold: amt(domain.GBP, "100"), Bought: amt("BTC", "0.01"),
		}
		_, err := svc.Normalize(&tx, Options{})
		assert.Equal(t, domain.ErrKindInvalidTagForType, domain.KindOf(err))
	})

	t.Run("GBP fee lands on the event", func(t *testing.T) {
		tx := domain.Transaction{
			ID: "buy-2", DateTime: at(4), Type: domain.TransactionTypeTrade, Tag: domain.TagUnclassified,
			Sold: amt(domain.GBP, "5000"), Bought: amt("BTC", "0.25"),
			Fee: &domain.Fee{Asset: domain.GBP, Quantity: dec("25")},
		}
		events, err := svc.Normalize(&tx, Options{})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.True(t, events[0].FeesGBP.Equal(dec("25")))
		assert.True(t, events[0].TotalCostGBP().Equal(dec("5025")))
	})

	t.Run("Swap fee stays on the disposal leg", func(t *testing.T) {
		tx := domain.Transaction{
			ID: "swap-4", DateTime: at(5), Type: domain.TransactionTypeTrade, Tag: domain.TagUnclassified,
			Sold: amt("BTC", "0.1"), Bought: amt("ETH", "2"),
			Price: &domain.Price{Base: "ETH", Rate: dec("2000")},
			Fee:   &domain.Fee{Asset: "ETH", Quantity: dec("0.01")},
		}
		events, err := svc.Normalize(&tx, Options{})
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.True(t, events[0].FeesGBP.Equal(dec("20")))
		assert.True(t, events[1].FeesGBP.IsZero())
	})
}

func TestNormalize_Deposits(t *testing.T) {
	svc := newService(t)

	t.Run("Linked deposit yields no events", func(t *testing.T) {
		tx := domain.Transaction{
			ID: "dep-1", DateTime: at(1), Type: domain.TransactionTypeDeposit, Tag: domain.TagUnclassified,
			Amount: amt("BTC", "1"), LinkedWithdrawalID: "wd-1",
		}
		events, err := svc.Normalize(&tx, Options{})
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("Unlinked deposit yields zero-value unclassified acquisition", func(t *testing.T) {
		tx := domain.Transaction{
			ID: "dep-2", DateTime: at(1), Type: domain.TransactionTypeDeposit, Tag: domain.TagUnclassified,
			Amount: amt("BTC", "1"),
		}
		events, err := svc.Normalize(&tx, Options{})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, domain.EventTypeAcquisition, events[0].Type)
		assert.Equal(t, domain.TagUnclassified, events[0].Tag)
		assert.True(t, events[0].ValueGBP.IsZero())
	})

	t.Run("Unlinked deposit is dropped when excluded", func(t *testing.T) {
		tx := domain.Transaction{
			ID: "dep-3", DateTime: at(1), Type: domain.TransactionTypeDeposit, Tag: domain.TagUnclassified,
			Amount: amt("BTC", "1"),
		}
		events, err := svc.Normalize(&tx, Options{ExcludeUnlinked: true})
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("Staking reward requires a price", func(t *testing.T) {
		tx := domain.Transaction{
			ID: "dep-4", DateTime: at(2), Type: domain.TransactionTypeDeposit, Tag: domain.TagStakingReward,
			Amount: amt("ETH", "0.5"),
		}
		_, err := svc.Normalize(&tx, Options{})
		assert.Equal(t, domain.ErrKindMissingTaggedPrice, domain.KindOf(err))
	})

	t.Run("Staking reward acquires at market value", func(t *testing.T) {
		tx := domain.Transaction{
			ID: "dep-5", DateTime: at(2), Type: domain.TransactionTypeDeposit, Tag: domain.TagStakingReward,
			Amount: amt("ETH", "0.5"),
			Price:  &domain.Price{Base: "ETH", Rate: dec("2000")},
		}
		events, err := svc.Normalize(&tx, Options{})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, domain.TagStakingReward, events[0].Tag)
		assert.True(t, events[0].ValueGBP.Equal(dec("1000")))
	})

	t.Run("GBP salary needs no price", func(t *testing.T) {
		tx := domain.Transaction{
			ID: "dep-6", DateTime: at(3), Type: domain.TransactionTypeDeposit, Tag: domain.TagSalary,
			Amount: amt(domain.GBP, "2500"),
		}
		events, err := svc.Normalize(&tx, Options{})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.True(t, events[0].ValueGBP.Equal(dec("2500")))
	})

	t.Run("Linked income deposit fails", func(t *testing.T) {
		tx := domain.Transaction{
			ID: "dep-7", DateTime: at(3), Type: domain.TransactionTypeDeposit, Tag: domain.TagInterest,
			Amount: amt(domain.GBP, "10"), LinkedWithdrawalID: "wd-9",
		}
		_, err := svc.Normalize(&tx, Options{})
		assert.Equal(t, domain.ErrKindTaggedDepositLinked, domain.KindOf(err))
	})

	t.Run("Airdrop acquires at zero cost", func(t *testing.T) {
		tx := domain.Transaction{
			ID: "dep-8", DateTime: at(4), Type: domain.TransactionTypeDeposit, Tag: domain.TagAirdrop,
			Amount: amt("ETH", "10"),
		}
		events, err := svc.Normalize(&tx, Options{})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.True(t, events[0].ValueGBP.IsZero())
		assert.Equal(t, domain.TagAirdrop, events[0].Tag)
	})

	t.Run("Airdrop with a price fails", func(t *testing.T) {
		tx := domain.Transaction{
			ID: "dep-9", DateTime: at(4), Type: domain.TransactionTypeDeposit, Tag: domain.TagAirdrop,
			Amount: amt("ETH", "10"),
			Price:  &domain.Price{Base: "ETH", Rate: dec("2000")},
		}
		_, err := svc.Normalize(&tx, Options{})
		assert.Equal(t, domain.ErrKindAirdropPriceNotAllowed, domain.KindOf(err))
	})

	t.Run("Airdrop income is priced like other income", func(t *testing.T) {
		tx := domain.Transaction{
			ID: "dep-10", DateTime: at(4), Type: domain.TransactionTypeDeposit, Tag: domain.TagAirdropIncome,
			Amount: amt("ETH", "10"),
			Price:  &domain.Price{Base: "ETH", Rate: dec("2000")},
		}
		events, err := svc.Normalize(&tx, Options{})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.True(t, events[0].ValueGBP.Equal(dec("20000")))
	})

	t.Run("Gift in acquires at market value", func(t *testing.T) {
		tx := domain.Transaction{
			ID: "dep-11", DateTime: at(5), Type: domain.TransactionTypeDeposit, Tag: domain.TagGift,
			Amount: amt("BTC", "0.1"),
			Price:  &domain.Price{Base: "BTC", Rate: dec("40000")},
		}
		events, err := svc.Normalize(&tx, Options{})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, domain.TagGift, events[0].Tag)
		assert.True(t, events[0].ValueGBP.Equal(dec("4000")))
	})

	t.Run("Trade tag on a deposit fails", func(t *testing.T) {
		tx := domain.Transaction{
			ID: "dep-12", DateTime: at(5), Type: domain.TransactionTypeDeposit, Tag: domain.TagTrade,
			Amount: amt("BTC", "1"),
		}
		_, err := svc.Normalize(&tx, Options{})
		assert.Equal(t, domain.ErrKindInvalidTagForType, domain.KindOf(err))
	})

	t.Run("Unknown asset fails", func(t *testing.T) {
		tx := domain.Transaction{
			ID: "dep-13", DateTime: at(5), Type: domain.TransactionTypeDeposit, Tag: domain.TagUnclassified,
			Amount: amt("DOGE", "100"),
		}
		_, err := svc.Normalize(&tx, Options{})
		assert.Equal(t, domain.ErrKindUnknownAsset, domain.KindOf(err))
	})
}

func TestNormalize_Withdrawals(t *testing.T) {
	svc := newService(t)

	t.Run("Linked withdrawal yields no events", func(t *testing.T) {
		tx := domain.Transaction{
			ID: "wd-1", DateTime: at(1), Type: domain.TransactionTypeWithdrawal, Tag: domain.TagUnclassified,
			Amount: amt("BTC", "1"), LinkedDepositID: "dep-1",
		}
		events, err := svc.Normalize(&tx, Options{})
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("Unlinked withdrawal yields zero-value unclassified disposal", func(t *testing.T) {
		tx := domain.Transaction{
			ID: "wd-2", DateTime: at(1), Type: domain.TransactionTypeWithdrawal, Tag: domain.TagUnclassified,
			Amount: amt("BTC", "1"),
		}
		events, err := svc.Normalize(&tx, Options{})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, domain.EventTypeDisposal, events[0].Type)
		assert.Equal(t, domain.TagUnclassified, events[0].Tag)
		assert.True(t, events[0].ValueGBP.IsZero())
	})

	t.Run("Gift out disposes at market value", func(t *testing.T) {
		tx := domain.Transaction{
			ID: "wd-3", DateTime: at(2), Type: domain.TransactionTypeWithdrawal, Tag: domain.TagGift,
			Amount: amt("BTC", "0.1"),
			Price:  &domain.Price{Base: "BTC", Rate: dec("50000")},
		}
		events, err := svc.Normalize(&tx, Options{})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, domain.EventTypeDisposal, events[0].Type)
		assert.True(t, events[0].ValueGBP.Equal(dec("5000")))
	})

	t.Run("Gift out without a price fails", func(t *testing.T) {
		tx := domain.Transaction{
			ID: "wd-4", DateTime: at(2), Type: domain.TransactionTypeWithdrawal, Tag: domain.TagGift,
			Amount: amt("BTC", "0.1"),
		}
		_, err := svc.Normalize(&tx, Options{})
		assert.Equal(t, domain.ErrKindMissingTaggedPrice, domain.KindOf(err))
	})

	t.Run("Income tag on a withdrawal fails", func(t *testing.T) {
		tx := domain.Transaction{
			ID: "wd-5", DateTime: at(3), Type: domain.TransactionTypeWithdrawal, Tag: domain.TagDividend,
			Amount: amt(domain.GBP, "100"),
		}
		_, err := svc.Normalize(&tx, Options{})
		assert.Equal(t, domain.ErrKindInvalidTagForType, domain.KindOf(err))
	})

	t.Run("Airdrop tag on a withdrawal fails", func(t *testing.T) {
		tx := domain.Transaction{
			ID: "wd-6", DateTime: at(3), Type: domain.TransactionTypeWithdrawal, Tag: domain.TagAirdrop,
			Amount: amt("ETH", "1"),
		}
		_, err := svc.Normalize(&tx, Options{})
		assert.Equal(t, domain.ErrKindInvalidTagForType, domain.KindOf(err))
	})
}

func TestBuildEvents(t *testing.T) {
	svc := newService(t)

	t.Run("Events are sorted chronologically with sequence numbers", func(t *testing.T) {
		txs := []domain.Transaction{
			{
				ID: "tx-b", DateTime: at(10), Type: domain.TransactionTypeTrade, Tag: domain.TagUnclassified,
				Sold: amt("BTC", "0.5"), Bought: amt(domain.GBP, "20000"),
			},
			{
				ID: "tx-a", DateTime: at(1), Type: domain.TransactionTypeTrade, Tag: domain.TagUnclassified,
				Sold: amt(domain.GBP, "30000"), Bought: amt("BTC", "1"),
			},
		}
		events, warnings, err := svc.BuildEvents(txs, Options{})
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Empty(t, warnings)
		assert.Equal(t, "tx-a", events[0].SourceTransactionID)
		assert.Equal(t, "tx-b", events[1].SourceTransactionID)
		assert.Equal(t, 0, events[0].Seq)
		assert.Equal(t, 1, events[1].Seq)
	})

	t.Run("Linked transfer pair yields no events", func(t *testing.T) {
		txs := []domain.Transaction{
			{
				ID: "wd-1", DateTime: at(1), Type: domain.TransactionTypeWithdrawal, Tag: domain.TagUnclassified,
				Amount: amt("BTC", "1"), LinkedDepositID: "dep-1",
			},
			{
				ID: "dep-1", DateTime: at(1), Type: domain.TransactionTypeDeposit, Tag: domain.TagUnclassified,
				Amount: amt("BTC", "1"), LinkedWithdrawalID: "wd-1",
			},
		}
		events, warnings, err := svc.BuildEvents(txs, Options{})
		require.NoError(t, err)
		assert.Empty(t, events)
		assert.Empty(t, warnings)
	})

	t.Run("Broken transfer link fails", func(t *testing.T) {
		txs := []domain.Transaction{
			{
				ID: "dep-1", DateTime: at(1), Type: domain.TransactionTypeDeposit, Tag: domain.TagUnclassified,
				Amount: amt("BTC", "1"), LinkedWithdrawalID: "wd-missing",
			},
		}
		_, _, err := svc.BuildEvents(txs, Options{})
		assert.Equal(t, domain.ErrKindBrokenTransferLink, domain.KindOf(err))
	})

	t.Run("Unclassified events carry warnings", func(t *testing.T) {
		txs := []domain.Transaction{
			{
				ID: "dep-1", DateTime: at(1), Type: domain.TransactionTypeDeposit, Tag: domain.TagUnclassified,
				Amount: amt("BTC", "1"),
			},
			{
				ID: "wd-1", DateTime: at(2), Type: domain.TransactionTypeWithdrawal, Tag: domain.TagUnclassified,
				Amount: amt("BTC", "0.5"),
			},
		}
		events, warnings, err := svc.BuildEvents(txs, Options{})
		require.NoError(t, err)
		assert.Len(t, events, 2)
		require.Len(t, warnings, 2)
		assert.Equal(t, domain.WarnUnclassifiedEvent, warnings[0].Kind)
		assert.Equal(t, "dep-1", warnings[0].SourceTransactionID)
		assert.Equal(t, "wd-1", warnings[1].SourceTransactionID)
	})
}
