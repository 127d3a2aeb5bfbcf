package normalize

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale factors of the Chinese magnitude suffixes
var magnitudeUnits = map[string]decimal.Decimal{
	"":   decimal.NewFromInt(1),
	"千":  decimal.NewFromInt(1_000),
	"万":  decimal.NewFromInt(10_000),
	"百万": decimal.NewFromInt(1_000_000),
	"千万": decimal.NewFromInt(10_000_000),
	"亿":  decimal.NewFromInt(100_000_000),
	"万亿": decimal.NewFromInt(1_000_000_000_000),
}

// Longer suffixes are listed first so 万亿 is not read as 万.
var magnitudePattern = regexp.MustCompile(`^([+-]?(?:\d+\.?\d*|\.\d+))(万亿|亿|千万|百万|万|千)?$`)

// ParseMagnitude expands a magnitude-suffixed number such as "1.5亿" or
// "-3200万". Thousands separators are ignored. The second result is false when
// s does not match the pattern.
func ParseMagnitude(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	m := magnitudePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	num, err := decimal.NewFromString(m[1])
	if err != nil {
		return 0, false
	}
	f, _ := num.Mul(magnitudeUnits[m[2]]).Float64()
	return f, true
}
