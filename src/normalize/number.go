package normalize

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Locale hints which separator convention a broker's exports use.
type Locale string

const (
	LocaleUnknown  Locale = ""
	LocaleEuropean Locale = "eu" // 1.234,56
	LocaleAmerican Locale = "us" // 1,234.56
)

var numberNoise = strings.NewReplacer(
	"EUR", "", "USD", "", "GBP", "",
	"€", "", "$", "", "£", "", "%", "",
	" ", "", " ", "",
)

// ParseDecimal parses a numeric string whose separator convention may be
// European or American. When both separators are present the last one wins
// as the decimal point regardless of locale. With a single separator the
// locale hint decides; if the hint does not settle it, the fallback is: a
// separator followed by at most two digits is the decimal point, otherwise
// it is a thousands separator (a lone "0.xxx" integer part always means a
// decimal point - nothing groups thousands after a leading zero).
func ParseDecimal(raw string, loc Locale) (decimal.Decimal, error) {
	s := numberNoise.Replace(strings.TrimSpace(raw))
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty numeric value %q", raw)
	}

	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")

	switch {
	case hasComma && hasDot:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		s = resolveSingleSeparator(s, ',', loc == LocaleEuropean, loc == LocaleAmerican)
	case hasDot:
		s = resolveSingleSeparator(s, '.', loc == LocaleAmerican, loc == LocaleEuropean)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unparseable numeric value %q: %w", raw, err)
	}
	return d, nil
}

// resolveSingleSeparator rewrites s so that sep, the only separator present,
// is interpreted either as the decimal point or stripped as grouping.
// isDecimalHint / isGroupingHint reflect what the locale says about sep.
func resolveSingleSeparator(s string, sep byte, isDecimalHint, isGroupingHint bool) string {
	sepStr := string(sep)
	count := strings.Count(s, sepStr)
	if count > 1 {
		// Repeated separators can only be grouping.
		return strings.ReplaceAll(s, sepStr, "")
	}

	idx := strings.LastIndexByte(s, sep)
	tail := len(s) - idx - 1
	head := strings.TrimLeft(s[:idx], "-+")

	decimalPoint := func() string {
		if sep == ',' {
			return strings.Replace(s, ",", ".", 1)
		}
		return s
	}
	grouping := func() string {
		return strings.ReplaceAll(s, sepStr, "")
	}

	switch {
	case isDecimalHint:
		return decimalPoint()
	case isGroupingHint:
		// A grouping separator splits off exactly three digits from a
		// non-zero head; anything else is really a decimal point.
		if tail == 3 && head != "" && head != "0" {
			return grouping()
		}
		return decimalPoint()
	default:
		// No usable hint: the fallback heuristic.
		if tail <= 2 {
			return decimalPoint()
		}
		if tail == 3 && head != "" && head != "0" {
			return grouping()
		}
		return decimalPoint()
	}
}
