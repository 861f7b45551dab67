// Package money validates monetary amounts and currency codes. Amounts are
// held as int64 minor units (cents) throughout the application.
package money

import (
	"strings"

	"github.com/shopspring/decimal"

	apperrors "moneta/internal/errors"
)

// MaxAmount is the largest accepted amount in minor units.
const MaxAmount int64 = 1_000_000_000_000

// MinorUnitDigits is the number of fractional digits held in minor units.
const MinorUnitDigits = 2

var minorPerMajor = decimal.New(1, MinorUnitDigits)

// ISO 4217 currency codes.
var currencies = map[string]bool{
	"AED": true, "AFN": true, "ALL": true, "AMD": true, "ANG": true,
	"AOA": true, "ARS": true, "AUD": true, "AWG": true, "AZN": true,
	"BAM": true, "BBD": true, "BDT": true, "BGN": true, "BHD": true,
	"BIF": true, "BMD": true, "BND": true, "BOB": true, "BRL": true,
	"BSD": true, "BTN": true, "BWP": true, "BYN": true, "BZD": true,
	"CAD": true, "CDF": true, "CHF": true, "CLP": true, "CNY": true,
	"COP": true, "CRC": true, "CUP": true, "CVE": true, "CZK": true,
	"DJF": true, "DKK": true, "DOP": true, "DZD": true, "EGP": true,
	"ERN": true, "ETB": true, "EUR": true, "FJD": true, "FKP": true,
	"GBP": true, "GEL": true, "GHS": true, "GIP": true, "GMD": true,
	"GNF": true, "GTQ": true, "GYD": true, "HKD": true, "HNL": true,
	"HRK": true, "HTG": true, "HUF": true, "IDR": true, "ILS": true,
	"INR": true, "IQD": true, "IRR": true, "ISK": true, "JMD": true,
	"JOD": true, "JPY": true, "KES": true, "KGS": true, "KHR": true,
	"KMF": true, "KPW": true, "KRW": true, "KWD": true, "KYD": true,
	"KZT": true, "LAK": true, "LBP": true, "LKR": true, "LRD": true,
	"LSL": true, "LYD": true, "MAD": true, "MDL": true, "MGA": true,
	"MKD": true, "MMK": true, "MNT": true, "MOP": true, "MRU": true,
	"MUR": true, "MVR": true, "MWK": true, "MXN": true, "MYR": true,
	"MZN": true, "NAD": true, "NGN": true, "NIO": true, "NOK": true,
	"NPR": true, "NZD": true, "OMR": true, "PAB": true, "PEN": true,
	"PGK": true, "PHP": true, "PKR": true, "PLN": true, "PYG": true,
	"QAR": true, "RON": true, "RSD": true, "RUB": true, "RWF": true,
	"SAR": true, "SBD": true, "SCR": true, "SDG": true, "SEK": true,
	"SGD": true, "SHP": true, "SLE": true, "SOS": true, "SRD": true,
	"SSP": true, "STN": true, "SVC": true, "SYP": true, "SZL": true,
	"THB": true, "TJS": true, "TMT": true, "TND": true, "TOP": true,
	"TRY": true, "TTD": true, "TWD": true, "TZS": true, "UAH": true,
	"UGX": true, "USD": true, "UYU": true, "UZS": true, "VES": true,
	"VND": true, "VUV": true, "WST": true, "XAF": true, "XCD": true,
	"XOF": true, "XPF": true, "YER": true, "ZAR": true, "ZMW": true,
	"ZWL": true,
}

// ValidateAmount checks that a minor-unit amount is positive and within bounds.
func ValidateAmount(minor int64) error {
	if minor <= 0 {
		return apperrors.WithMessagef(apperrors.ErrInvalidAmount, "amount must be positive, got %d", minor)
	}
	if minor > MaxAmount {
		return apperrors.WithMessagef(apperrors.ErrInvalidAmount, "amount must not exceed %d", MaxAmount)
	}
	return nil
}

// FromMajor converts a major-unit decimal (e.g. 12.34) into minor units.
// Values with more than MinorUnitDigits fractional digits are rejected
// rather than rounded.
func FromMajor(major decimal.Decimal) (int64, error) {
	minor := major.Mul(minorPerMajor)
	if !minor.IsInteger() {
		return 0, apperrors.WithMessagef(apperrors.ErrInvalidAmount,
			"amount %s has more than %d decimal places", major.String(), MinorUnitDigits)
	}
	if minor.GreaterThan(decimal.NewFromInt(MaxAmount)) {
		return 0, apperrors.WithMessagef(apperrors.ErrInvalidAmount, "amount must not exceed %d", MaxAmount)
	}
	v := minor.IntPart()
	if err := ValidateAmount(v); err != nil {
		return 0, err
	}
	return v, nil
}

// ToMajor converts minor units back to a major-unit decimal.
func ToMajor(minor int64) decimal.Decimal {
	return decimal.New(minor, -MinorUnitDigits)
}

// FormatMajor renders minor units with exactly MinorUnitDigits decimals.
func FormatMajor(minor int64) string {
	return ToMajor(minor).StringFixed(MinorUnitDigits)
}

// IsCurrency reports whether code is a known ISO 4217 currency.
func IsCurrency(code string) bool {
	return currencies[code]
}

// ValidateCurrency checks an ISO 4217 code. Codes are case sensitive.
func ValidateCurrency(code string) error {
	if !currencies[code] {
		return apperrors.WithMessagef(apperrors.ErrInvalidCurrency,
			"unsupported currency %q", strings.TrimSpace(code))
	}
	return nil
}
