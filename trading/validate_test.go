// Copyright (c) 2025 madmickstar

package trading

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestValidateSellUnits(t *testing.T) {
	units, resized := ValidateSellUnits(d("100"), d("150"))
	assert.False(t, resized)
	assert.True(t, units.Equal(d("100")))

	// Holdings drifted below the target since the quote.
	units, resized = ValidateSellUnits(d("100"), d("99.5"))
	assert.True(t, resized)
	assert.True(t, units.Equal(d("99.5")))
}

func TestValidateBuyUnits(t *testing.T) {
	price := d("0.5")
	target := d("200") // expected cost 100

	// Wallet short of the expected cost clamps the buy.
	units, resized := ValidateBuyUnits(price, target, d("90"))
	assert.True(t, resized)
	assert.True(t, units.Equal(d("180")))

	// Excess within tolerance is the sell's favorable slippage, spend it.
	units, resized = ValidateBuyUnits(price, target, d("100.5"))
	assert.True(t, resized)
	assert.True(t, units.Equal(d("201")))

	// Excess beyond tolerance is unrelated money, buy only the target.
	units, resized = ValidateBuyUnits(price, target, d("102"))
	assert.False(t, resized)
	assert.True(t, units.Equal(d("200")))

	// Exact cost is neither clamped nor resized.
	units, resized = ValidateBuyUnits(price, target, d("100"))
	assert.False(t, resized)
	assert.True(t, units.Equal(d("200")))
}

func TestValidateIsPure(t *testing.T) {
	a1, r1 := ValidateBuyUnits(d("0.5"), d("200"), d("100.5"))
	a2, r2 := ValidateBuyUnits(d("0.5"), d("200"), d("100.5"))
	assert.True(t, a1.Equal(a2))
	assert.Equal(t, r1, r2)
}
