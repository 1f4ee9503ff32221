package money

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "fakturo/pkg/domain-errors"
)

func TestNewPercentage(t *testing.T) {
	t.Run("accepts bounds", func(t *testing.T) {
		for _, s := range []string{"0", "100", "19.5", "0.0001"} {
			_, err := PercentageFromString(s)
			assert.NoError(t, err, s)
		}
	})

	t.Run("rejects out of range", func(t *testing.T) {
		for _, s := range []string{"-1", "100.01", "-0.0001"} {
			_, err := PercentageFromString(s)
			require.Error(t, err, s)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		}
	})

	t.Run("rejects scale overflow", func(t *testing.T) {
		_, err := PercentageFromString("19.00001")
		require.Error(t, err)
	})
}

func TestPercentage_ApplyTo(t *testing.T) {
	base := MustNew("200.00", eur)
	assert.Equal(t, "40.00", MustPercentage("20").ApplyTo(base).StringFixed())
	assert.Equal(t, "39.00", MustPercentage("19.5").ApplyTo(base).StringFixed())
	assert.True(t, ZeroPercent().ApplyTo(base).IsZero())

	// Half-up at the rounding boundary: 0.33 × 19% = 0.0627 → 0.06.
	small := MustNew("0.33", eur)
	assert.Equal(t, "0.06", MustPercentage("19").ApplyTo(small).StringFixed())
}

func TestQuantity(t *testing.T) {
	t.Run("rejects negative and missing unit", func(t *testing.T) {
		_, err := NewQuantity(decimal.NewFromInt(-1), "C62")
		assert.Error(t, err)

		_, err = NewQuantity(decimal.NewFromInt(1), "")
		assert.Error(t, err)
	})

	t.Run("unit guard on arithmetic", func(t *testing.T) {
		pieces := MustQuantity("2", "C62")
		hours := MustQuantity("3", "HUR")
		_, err := pieces.Add(hours)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("subtract cannot go negative", func(t *testing.T) {
		a := MustQuantity("1", "C62")
		b := MustQuantity("2", "C62")
		_, err := a.Subtract(b)
		require.Error(t, err)
	})

	t.Run("scale bound", func(t *testing.T) {
		_, err := QuantityFromString("1.0000001", "C62")
		assert.Error(t, err)

		_, err = QuantityFromString("1.000001", "C62")
		assert.NoError(t, err)
	})
}

func TestExchangeRate(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("invariants", func(t *testing.T) {
		_, err := NewExchangeRate(eur, eur, decimal.NewFromInt(1), day)
		assert.Error(t, err)

		_, err = NewExchangeRate(eur, usd, decimal.Zero, day)
		assert.Error(t, err)

		_, err = NewExchangeRate(Currency{}, usd, decimal.NewFromInt(1), day)
		assert.Error(t, err)
	})

	t.Run("converts to target scale", func(t *testing.T) {
		rate, err := NewExchangeRate(eur, jpy, decimal.RequireFromString("161.37"), day)
		require.NoError(t, err)

		got, err := rate.Convert(MustNew("10.00", eur))
		require.NoError(t, err)
		assert.Equal(t, "1614", got.StringFixed())
		assert.Equal(t, "JPY", got.Currency().Code)
	})

	t.Run("rejects wrong source currency", func(t *testing.T) {
		rate, err := NewExchangeRate(eur, usd, decimal.RequireFromString("1.08"), day)
		require.NoError(t, err)

		_, err = rate.Convert(MustNew("10.00", usd))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}
