package collector

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	validTicker = regexp.MustCompile(`^[A-Z0-9._-]{1,20}$`)
	validCoinID = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,128}$`)
)

// NormalizeTicker converts a catalog symbol to the form the price endpoint
// expects: "btc", " Btc " -> "BTC".
func NormalizeTicker(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ValidateTicker checks that a normalized ticker is safe to join into a
// comma-separated query parameter.
func ValidateTicker(ticker string) error {
	if ticker == "" {
		return fmt.Errorf("ticker cannot be empty")
	}
	if !validTicker.MatchString(ticker) {
		return fmt.Errorf("invalid ticker format: %s", ticker)
	}
	return nil
}

// ValidateCoinID checks a catalog coin id before it is used in a request.
func ValidateCoinID(id string) error {
	if id == "" {
		return fmt.Errorf("coin id cannot be empty")
	}
	if !validCoinID.MatchString(id) {
		return fmt.Errorf("invalid coin id format: %s", id)
	}
	return nil
}
