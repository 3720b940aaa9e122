package budget

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatCLP renders an amount in Chilean style: whole pesos with dot
// thousands separators, e.g. $1.677.900
func FormatCLP(amount decimal.Decimal) string {
	n := amount.Round(0)
	sign := ""
	if n.IsNegative() {
		sign = "-"
		n = n.Neg()
	}

	digits := n.String()
	if len(digits) <= 3 {
		return sign + "$" + digits
	}

	var sb strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		sb.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(digits[i : i+3])
	}
	return sign + "$" + sb.String()
}
