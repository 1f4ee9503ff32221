package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fakturo/internal/money"
	dErrors "fakturo/pkg/domain-errors"
)

var (
	eur = money.MustCurrency("EUR")
	usd = money.MustCurrency("USD")
	jpy = money.MustCurrency("JPY")
)

func TestTaxCategory_Coupling(t *testing.T) {
	assert.True(t, TaxCategoryStandard.RequiresRate())
	assert.False(t, TaxCategoryStandard.RequiresExemptionReason())
	assert.False(t, TaxCategoryZero.RequiresRate())
	assert.True(t, TaxCategoryExempt.RequiresExemptionReason())
	assert.True(t, TaxCategoryReverseCharge.RequiresExemptionReason())
}

func TestNewCustomTaxCategory(t *testing.T) {
	t.Run("rejects reserved codes", func(t *testing.T) {
		_, err := NewCustomTaxCategory("STANDARD", true, false)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("constructs regional category", func(t *testing.T) {
		c, err := NewCustomTaxCategory("IGIC", true, false)
		require.NoError(t, err)
		assert.Equal(t, "IGIC", c.Code())
		assert.True(t, c.RequiresRate())
	})
}

func TestParseTaxCategory(t *testing.T) {
	c, err := ParseTaxCategory("REVERSE_CHARGE")
	require.NoError(t, err)
	assert.True(t, c.Equal(TaxCategoryReverseCharge))

	_, err = ParseTaxCategory("BOGUS")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestNewTaxBreakdown(t *testing.T) {
	taxable := money.MustNew("200.00", eur)

	t.Run("accepts exact tax", func(t *testing.T) {
		b, err := NewTaxBreakdown(taxable, money.MustNew("40.00", eur), TaxCategoryStandard, money.MustPercentage("20"), "")
		require.NoError(t, err)
		assert.Equal(t, "40.00", b.TaxAmount().StringFixed())
	})

	t.Run("accepts deviation within a cent", func(t *testing.T) {
		_, err := NewTaxBreakdown(taxable, money.MustNew("40.01", eur), TaxCategoryStandard, money.MustPercentage("20"), "")
		require.NoError(t, err)
	})

	t.Run("rejects deviation beyond a cent", func(t *testing.T) {
		_, err := NewTaxBreakdown(taxable, money.MustNew("40.02", eur), TaxCategoryStandard, money.MustPercentage("20"), "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("rejects currency mismatch", func(t *testing.T) {
		_, err := NewTaxBreakdown(taxable, money.MustNew("40.00", usd), TaxCategoryStandard, money.MustPercentage("20"), "")
		require.Error(t, err)
	})

	t.Run("rejects rate on rate-free category", func(t *testing.T) {
		_, err := NewTaxBreakdown(taxable, money.Zero(eur), TaxCategoryZero, money.MustPercentage("5"), "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("requires exemption reason for exempt", func(t *testing.T) {
		_, err := NewTaxBreakdown(taxable, money.Zero(eur), TaxCategoryExempt, money.ZeroPercent(), "")
		require.Error(t, err)

		b, err := NewTaxBreakdown(taxable, money.Zero(eur), TaxCategoryExempt, money.ZeroPercent(), "intra-community supply")
		require.NoError(t, err)
		assert.Equal(t, "intra-community supply", b.ExemptionReason())
	})
}

func TestTaxRate_Effectiveness(t *testing.T) {
	scheme, err := NewTaxScheme("VAT", "Value Added Tax", "DE")
	require.NoError(t, err)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r, err := NewTaxRate(scheme, TaxCategoryStandard, money.MustPercentage("19"), from, &to)
	require.NoError(t, err)

	assert.False(t, r.IsEffectiveOn(from.Add(-time.Hour)))
	assert.True(t, r.IsEffectiveOn(from))
	assert.True(t, r.IsEffectiveOn(to.Add(-time.Hour)))
	assert.False(t, r.IsEffectiveOn(to))

	t.Run("open-ended rate", func(t *testing.T) {
		r, err := NewTaxRate(scheme, TaxCategoryStandard, money.MustPercentage("19"), from, nil)
		require.NoError(t, err)
		assert.True(t, r.IsEffectiveOn(from.AddDate(10, 0, 0)))
	})

	t.Run("rejects empty validity range", func(t *testing.T) {
		_, err := NewTaxRate(scheme, TaxCategoryStandard, money.MustPercentage("19"), from, &from)
		require.Error(t, err)
	})
}
