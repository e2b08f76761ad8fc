package resolver

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/username/warroom/backend/src/models"
)

var (
	isinRe = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{9}[0-9]$`)
	// Ticker, optionally $-prefixed (Saxo artifact) and MIC-qualified.
	tickerRe = regexp.MustCompile(`^\$?[A-Za-z0-9][A-Za-z0-9.\-]{0,11}(:[A-Za-z]{4})?$`)

	adrRatioRe  = regexp.MustCompile(`(?i)\bADR\s*/\s*(\d+(?:[.,]\d+)?)`)
	nominalRe   = regexp.MustCompile(`(?i)\bDL\s*-?[,.]?\d*\b|\bO\.N\.`)
	shareClsRe  = regexp.MustCompile(`(?i)\b(?:CL\.?\s?|CLASS\s+)([A-Z])\b`)
	marketSufRe = regexp.MustCompile(`\s+-\s+([A-Z]{2})$`)
	spacesRe    = regexp.MustCompile(`\s+`)
)

// noiseSuffixes are catalogued fragments that carry no identity information
// and confuse reverse search. Checked case-insensitively, longest first.
var noiseSuffixes = []string{
	" - ADR", " ADR", " A/S", " O.N.", " INC.", " PLC", " SPA",
	" DL-", " DL", " -",
}

// NameMetadata is the side channel of descriptive fragments stripped from a
// noisy issuer name.
type NameMetadata struct {
	ShareClass   string
	ADRRatio     float64
	NominalValue string
	Market       string
}

// IsISINShaped reports whether s looks like an ISIN and passes the check
// digit (Luhn over the digit expansion of the base-36 characters).
func IsISINShaped(s string) bool {
	if !isinRe.MatchString(s) {
		return false
	}
	var digits []int
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits = append(digits, int(r-'0'))
		default:
			v := int(r-'A') + 10
			digits = append(digits, v/10, v%10)
		}
	}
	sum := 0
	double := true
	for i := len(digits) - 2; i >= 0; i-- {
		d := digits[i]
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	check := (10 - sum%10) % 10
	return check == digits[len(digits)-1]
}

// IsTickerShaped reports whether s already looks like a ticker, optionally
// MIC-qualified ("QRVO:xnas").
func IsTickerShaped(s string) bool {
	return tickerRe.MatchString(s) && !strings.Contains(s, " ")
}

// SplitMIC strips a ":mic" qualifier and a leading "$" from a ticker-shaped
// identifier and returns the bare ticker plus the MIC (uppercased, may be
// empty).
func SplitMIC(s string) (ticker, mic string) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "$")
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return strings.ToUpper(s[:i]), strings.ToUpper(s[i+1:])
	}
	return strings.ToUpper(s), ""
}

// CleanName strips catalogued noise tokens from a free-text issuer name into
// the metadata side channel and returns the cleaned name for reverse search.
func CleanName(name string) (string, NameMetadata) {
	var meta NameMetadata
	s := strings.TrimSpace(name)

	if m := adrRatioRe.FindStringSubmatch(s); m != nil {
		if ratio, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64); err == nil {
			meta.ADRRatio = ratio
		}
		s = adrRatioRe.ReplaceAllString(s, " ")
	}
	if m := nominalRe.FindString(s); m != "" {
		meta.NominalValue = strings.TrimSpace(m)
		s = nominalRe.ReplaceAllString(s, " ")
	}
	if m := shareClsRe.FindStringSubmatch(s); m != nil {
		meta.ShareClass = strings.ToUpper(m[1])
		s = shareClsRe.ReplaceAllString(s, " ")
	}
	if m := marketSufRe.FindStringSubmatch(s); m != nil {
		meta.Market = m[1]
		s = marketSufRe.ReplaceAllString(s, " ")
	}

	s = spacesRe.ReplaceAllString(strings.TrimSpace(s), " ")
	upper := strings.ToUpper(s)
	for changed := true; changed; {
		changed = false
		for _, suf := range noiseSuffixes {
			if strings.HasSuffix(upper, suf) {
				s = strings.TrimSpace(s[:len(s)-len(suf)])
				upper = strings.ToUpper(s)
				changed = true
			}
		}
	}

	// A trailing single letter after a multi-word name is a share class
	// marker ("NOVO NORDISK B").
	if parts := strings.Fields(s); len(parts) > 1 {
		last := parts[len(parts)-1]
		if len(last) == 1 && last[0] >= 'A' && last[0] <= 'Z' {
			if meta.ShareClass == "" {
				meta.ShareClass = last
			}
			s = strings.Join(parts[:len(parts)-1], " ")
		}
	}

	return strings.TrimSpace(s), meta
}

// PseudoTicker derives a flagged fallback identifier from a cleaned name.
func PseudoTicker(cleaned string) string {
	s := strings.ToUpper(spacesRe.ReplaceAllString(strings.TrimSpace(cleaned), "-"))
	if len(s) > 12 {
		s = s[:12]
	}
	return s
}

// applyMetadata copies the side-channel fragments recovered by CleanName
// onto a resolved instrument, without clobbering a market the resolution
// already established.
func applyMetadata(inst *models.Instrument, meta NameMetadata) {
	if meta.ShareClass != "" {
		inst.ShareClass = meta.ShareClass
	}
	if meta.ADRRatio != 0 {
		inst.ADRRatio = meta.ADRRatio
	}
	if meta.NominalValue != "" {
		inst.NominalValue = meta.NominalValue
	}
	if inst.Market == "" && meta.Market != "" {
		inst.Market = meta.Market
	}
}
