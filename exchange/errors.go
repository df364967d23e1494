// Copyright (c) 2025 madmickstar

package exchange

import (
	"errors"
	"strings"
)

// ErrNotEnough reports that an order was rejected because the wallet does
// not hold enough of the asset. It is the one placement failure the trading
// loop logs distinctly; the order was never placed, so unfilled counters
// are not advanced.
var ErrNotEnough = errors.New("not enough balance in wallet")

// IsNotEnough reports whether err is a balance-insufficiency rejection.
// Poloniex reports this condition only as message text ("Not enough XRP."),
// so implementations that cannot wrap ErrNotEnough are matched on the
// message as well.
func IsNotEnough(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotEnough) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "not enough")
}
