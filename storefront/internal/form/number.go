package form

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Astemirdum/bookstore-client/storefront/internal/model"
)

// Prices are rupiah, shown with dots between thousands.
var printer = message.NewPrinter(language.Indonesian)

var (
	errNotNumber = errors.New("not a number")
	errFraction  = errors.New("not a whole number")
)

// FormatGrouped renders n with grouped digits, e.g. 45000 as "45.000".
func FormatGrouped(n int64) string {
	return printer.Sprintf("%d", n)
}

func FormatPrice(a model.Amount) string {
	return "Rp " + FormatGrouped(int64(a))
}

// ParseGrouped reads what a user typed into a numeric field. Group
// separators, spaces and a leading "Rp" are ignored. A decimal comma
// ("45.000,00") may only be followed by zeros. ok is false for empty input.
func ParseGrouped(raw string) (n int64, ok bool, err error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(s, "Rp"), "rp"))
	if s == "" {
		return 0, false, nil
	}
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	if whole, frac, ok := cutDecimalComma(s); ok {
		if frac == "" || strings.TrimLeft(frac, "0123456789") != "" {
			return 0, false, errNotNumber
		}
		if strings.Trim(frac, "0") != "" {
			return 0, false, errFraction
		}
		s = whole
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '.' || r == ',' || r == ' ' || r == '\u00a0' || r == '_':
		default:
			return 0, false, errNotNumber
		}
	}
	if b.Len() == 0 {
		return 0, false, errNotNumber
	}
	n, err = strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		return 0, false, errNotNumber
	}
	if neg {
		n = -n
	}
	return n, true, nil
}

// cutDecimalComma splits s at a decimal comma. The last comma is a decimal
// one when dots group the digits before it or when it is not followed by
// exactly three digits; "1,250,000" stays a grouped integer.
func cutDecimalComma(s string) (whole, frac string, ok bool) {
	i := strings.LastIndexByte(s, ',')
	if i < 0 {
		return s, "", false
	}
	whole, frac = s[:i], s[i+1:]
	if strings.Contains(whole, ".") || len(frac) != 3 {
		return whole, frac, true
	}
	return s, "", false
}
