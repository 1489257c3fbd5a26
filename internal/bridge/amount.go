package bridge

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"shadowScope/internal/model"
)

// MinorUnitsPerToken is the number of integer minor units in one SHOL.
const MinorUnitsPerToken = 1_000_000_000

var (
	minorUnits = decimal.NewFromInt(MinorUnitsPerToken)
	// withdrawal fee is 0.05% of the deposited amount
	withdrawalNet = decimal.RequireFromString("0.9995")
)

// ParseAmount converts a token amount such as "1.5" into minor units. Digits
// below one minor unit are rejected rather than rounded.
func ParseAmount(value string) (uint64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return 0, &model.ValidationError{Field: "amount", Reason: fmt.Sprintf("not a number: %q", value), Err: err}
	}
	if !d.IsPositive() {
		return 0, &model.ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	units := d.Mul(minorUnits)
	if !units.Equal(units.Truncate(0)) {
		return 0, &model.ValidationError{Field: "amount", Reason: "more than 9 decimal places"}
	}
	if units.GreaterThan(decimal.NewFromUint64(^uint64(0))) {
		return 0, &model.ValidationError{Field: "amount", Reason: "too large"}
	}
	return units.BigInt().Uint64(), nil
}

// FormatAmount renders minor units as a token amount with two decimals.
func FormatAmount(units uint64) string {
	return decimal.NewFromUint64(units).Div(minorUnits).StringFixed(2)
}

// NetWithdrawal is what the withdrawal address receives after the bridge fee.
func NetWithdrawal(units uint64) string {
	return decimal.NewFromUint64(units).Mul(withdrawalNet).Div(minorUnits).StringFixed(2)
}
