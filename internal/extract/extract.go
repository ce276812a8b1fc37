package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// The four currency notations seen on the portals: symbol or code, before or
// after the amount. Amounts may carry comma thousands separators and at most
// two decimal places.
var pricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)€\s*([\d,]+(?:\.\d{1,2})?)`),
	regexp.MustCompile(`(?i)EUR\s*([\d,]+(?:\.\d{1,2})?)`),
	regexp.MustCompile(`(?i)([\d,]+(?:\.\d{1,2})?)\s*€`),
	regexp.MustCompile(`(?i)([\d,]+(?:\.\d{1,2})?)\s*EUR`),
}

var (
	minPlausible = decimal.NewFromInt(10)
	maxPlausible = decimal.NewFromInt(50000)
)

// Prices extracts all plausible EUR ticket prices from rendered page text.
// Values outside [10, 50000] are discarded, exact duplicates collapse, and
// the result is sorted ascending. Malformed numeric literals are skipped.
func Prices(text string) []decimal.Decimal {
	seen := make(map[string]struct{})
	var found []decimal.Decimal

	for _, pattern := range pricePatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			raw := strings.ReplaceAll(match[1], ",", "")
			value, err := decimal.NewFromString(raw)
			if err != nil {
				continue
			}
			if value.LessThan(minPlausible) || value.GreaterThan(maxPlausible) {
				continue
			}
			key := value.String()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			found = append(found, value)
		}
	}

	sort.Slice(found, func(i, j int) bool { return found[i].LessThan(found[j]) })
	return found
}
