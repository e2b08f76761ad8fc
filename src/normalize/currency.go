package normalize

import "strings"

// exchangeCurrency maps symbology exchange codes to their trading currency.
// Covers the venues seen across the supported brokers' statements.
var exchangeCurrency = map[string]string{
	// Yahoo-style exchange codes
	"NMS": "USD", "NYQ": "USD", "NGM": "USD", "PCX": "USD",
	"AMS": "EUR", "PAR": "EUR", "GER": "EUR", "MIL": "EUR",
	"FRA": "EUR", "BRU": "EUR", "MCE": "EUR", "LIS": "EUR",
	"LSE": "GBP", "CPH": "DKK", "STO": "SEK", "EBS": "CHF",
	// MIC codes carried on broker tickers
	"XNAS": "USD", "XNYS": "USD",
	"XAMS": "EUR", "XPAR": "EUR", "XETR": "EUR", "XMIL": "EUR", "XMCE": "EUR",
	"XLON": "GBP", "XCSE": "DKK", "XSTO": "SEK", "XSWX": "CHF",
}

// countryCurrency maps ISIN country prefixes to the usual home currency.
// Used as a second-chance hint when the exchange is unknown.
var countryCurrency = map[string]string{
	"US": "USD", "CA": "CAD", "GB": "GBP", "CH": "CHF",
	"DK": "DKK", "SE": "SEK", "NO": "NOK",
	"DE": "EUR", "FR": "EUR", "IT": "EUR", "NL": "EUR",
	"ES": "EUR", "PT": "EUR", "IE": "EUR", "BE": "EUR",
	"FI": "EUR", "AT": "EUR", "LU": "EUR",
}

// CurrencyForExchange returns the trading currency of an exchange code, or
// the empty string when the venue is unknown.
func CurrencyForExchange(exchange string) string {
	return exchangeCurrency[strings.ToUpper(strings.TrimSpace(exchange))]
}

// CurrencyForCountry returns the home currency of an ISIN country prefix.
func CurrencyForCountry(country string) string {
	return countryCurrency[strings.ToUpper(strings.TrimSpace(country))]
}
