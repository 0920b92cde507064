package utils

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var rxKeepNums = regexp.MustCompile(`[^\d\.\-]`)

// ParseAmount парсит денежные суммы из выгрузок:
// "1,234.50", "1 234,50", "197 ,00", "(250.00)", "฿ 1,200", NBSP/NNBSP.
// Если есть и точка, и запятая — десятичный тот, что правее.
// Одна запятая и ровно три цифры после неё: разделитель тысяч.
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	// убрать неразрывные/узкие пробелы и обычные пробелы
	s = strings.NewReplacer("\u00A0", "", "\u202F", "", "\u2009", "", " ", "", "\t", "").Replace(s)
	s = normalizeSeparators(s)
	// оставить только цифры, точку и минус (на случай мусора и символов валют)
	s = rxKeepNums.ReplaceAllString(s, "")
	if s == "" || s == "-" || s == "." {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if neg {
		d = d.Neg()
	}
	return d, true
}

// ParseQuantity: то же для количества, в float64.
func ParseQuantity(s string) (float64, bool) {
	d, ok := ParseAmount(s)
	if !ok {
		return 0, false
	}
	return d.InexactFloat64(), true
}

func normalizeSeparators(s string) string {
	dot := strings.LastIndex(s, ".")
	comma := strings.LastIndex(s, ",")
	switch {
	case comma < 0:
		return s
	case dot >= 0 && dot > comma:
		// 1,234.50
		return strings.ReplaceAll(s, ",", "")
	case dot >= 0:
		// 1.234,50
		return strings.ReplaceAll(strings.ReplaceAll(s, ".", ""), ",", ".")
	}
	tail := s[comma+1:]
	if strings.Count(s, ",") > 1 || (len(tail) == 3 && isDigits(tail)) {
		// 1,234 / 1,234,567
		return strings.ReplaceAll(s, ",", "")
	}
	// 197,00
	return strings.ReplaceAll(s, ",", ".")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
