// Package render turns query results into display artifacts: formatted
// numbers, PNG trend charts and XLSX workbooks.
package render

import (
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// humanize splits the integer part through int64, so magnitudes at or above
// this limit are grouped from the decimal string instead.
const humanizeLimit = 1e15

// FormatValue renders v with two decimals and thousands separators, e.g. "1,234.57".
func FormatValue(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	if math.Abs(v) < humanizeLimit {
		return humanize.FormatFloat("#,###.##", v)
	}
	return groupThousands(strconv.FormatFloat(v, 'f', 2, 64))
}

// groupThousands inserts commas into the integer part of a plain decimal string
func groupThousands(s string) string {
	var b strings.Builder
	if strings.HasPrefix(s, "-") {
		b.WriteByte('-')
		s = s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")
	for i := 0; i < len(intPart); i++ {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteByte(intPart[i])
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}
