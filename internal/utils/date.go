package utils

import (
	"strconv"
	"strings"
	"time"

	excelize "github.com/xuri/excelize/v2"
)

// порядок важен: день-месяц раньше месяц-день (выгрузки в формате DD/MM/YYYY)
var dateLayouts = []string{
	time.DateOnly,
	"2006/01/02",
	"02/01/2006",
	"2/1/2006",
	"02.01.2006",
	"02-01-2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate приводит дату из таблицы к YYYY-MM-DD.
// Понимает текстовые форматы и серийные номера Excel ("45306").
func ParseDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.Format(time.DateOnly), true
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t.Format(time.DateOnly), true
		}
	}
	return "", false
}
