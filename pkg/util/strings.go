package util

import "strings"

// NormalizeSymbol upper-cases a symbol and strips the separators venues put
// between base and quote ("btc-usdt", "BTC/USDT" -> "BTCUSDT").
func NormalizeSymbol(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer("-", "", "/", "", "_", "").Replace(s)
}

// NormalizeVenue lower-cases and trims a venue name.
func NormalizeVenue(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
