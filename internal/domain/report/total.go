package report

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rpggio/salesportal/internal/domain/sheet"
)

var nonAmountChars = regexp.MustCompile(`[^\d.-]`)

// SumColumn adds up the amounts in column. Currency symbols, separators and
// other characters outside [0-9.-] are stripped first; cells that still do
// not parse are skipped.
func SumColumn(t sheet.Table, column string) decimal.Decimal {
	sum := decimal.Zero
	for _, v := range t.Values(column) {
		cleaned := nonAmountChars.ReplaceAllString(v, "")
		if cleaned == "" {
			continue
		}
		d, err := decimal.NewFromString(cleaned)
		if err != nil {
			continue
		}
		sum = sum.Add(d)
	}
	return sum
}

// FormatMoney renders d as $1,234.56.
func FormatMoney(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String() + "." + frac
}
