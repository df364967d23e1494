// Copyright (c) 2025 madmickstar

package trading

import (
	"github.com/shopspring/decimal"

	"github.com/madmickstar/polo-trader/ratio"
)

// BuyExcessTolerance is how far the fiat wallet may exceed the expected buy
// cost and still be treated as the sell leg's favorable slippage. Anything
// beyond it is assumed to be unrelated funds and stays untouched.
var BuyExcessTolerance = decimal.RequireFromString("0.01")

// ValidateSellUnits returns the units safe to sell. The target is clamped
// to the wallet balance when holdings drifted below it since the quote;
// resized reports that the clamp happened.
func ValidateSellUnits(target, wallet decimal.Decimal) (units decimal.Decimal, resized bool) {
	if wallet.LessThan(target) {
		return wallet.Round(ratio.PricePlaces), true
	}
	return target.Round(ratio.PricePlaces), false
}

// ValidateBuyUnits returns the units safe to buy at price given the fiat
// wallet balance. Short wallets clamp the buy to what the fiat covers.
// Wallets within BuyExcessTolerance over the expected cost fund the buy
// entirely; larger excesses buy only the originally computed units.
// resized reports that the result differs from the target.
func ValidateBuyUnits(price, targetUnits, walletFiat decimal.Decimal) (units decimal.Decimal, resized bool) {
	one := decimal.NewFromInt(1)
	expected := price.Mul(targetUnits)

	if walletFiat.LessThan(expected) {
		return walletFiat.Div(price).Round(ratio.PricePlaces), true
	}
	if walletFiat.GreaterThan(expected.Mul(one.Add(BuyExcessTolerance))) {
		return targetUnits.Round(ratio.PricePlaces), false
	}
	units = walletFiat.Div(price).Round(ratio.PricePlaces)
	return units, !units.Equal(targetUnits.Round(ratio.PricePlaces))
}
