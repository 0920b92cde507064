// Package fileio читает табличные выгрузки (xlsx, xls, csv/tsv) в строки
// map[заголовок]значение и переводит их в строки счёта и кассы.
package fileio

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFile: расширение файла не поддерживается.
var ErrUnsupportedFile = errors.New("unsupported file type")

// ReadAnyMaps выбирает парсер по расширению и возвращает строки данных.
// headerRow: номер строки заголовков (1-based), строки выше неё пропускаются.
func ReadAnyMaps(r io.Reader, filename string, headerRow int) ([]map[string]string, error) {
	if headerRow <= 0 {
		headerRow = 1
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return readXLSX(r, headerRow)
	case ".xls":
		return readXLS(r, headerRow)
	case ".csv", ".tsv", ".txt":
		return readCSV(r, headerRow)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, filename)
	}
}

// tableToMaps — общий хвост всех парсеров: шапка из строки headerRow,
// дальше записи без полностью пустых строк.
func tableToMaps(rows [][]string, headerRow int) []map[string]string {
	idx := headerRow - 1
	if idx >= len(rows) {
		return nil
	}
	headers := headerNames(rows[idx])
	out := make([]map[string]string, 0, len(rows)-idx-1)
	for _, rec := range rows[idx+1:] {
		m := make(map[string]string, len(headers))
		empty := true
		for c, h := range headers {
			var v string
			if c < len(rec) {
				v = normalizeCell(rec[c])
			}
			if v != "" {
				empty = false
			}
			m[h] = v
		}
		if !empty {
			out = append(out, m)
		}
	}
	return out
}

// headerNames: пустые заголовки → "Column N", повторы → "Name (2)".
func headerNames(row []string) []string {
	out := make([]string, len(row))
	seen := make(map[string]int, len(row))
	for i, v := range row {
		v = normalizeCell(v)
		if v == "" {
			v = fmt.Sprintf("Column %d", i+1)
		}
		seen[v]++
		if n := seen[v]; n > 1 {
			v = fmt.Sprintf("%s (%d)", v, n)
		}
		out[i] = v
	}
	return out
}

// normalizeCell: trim и схлопнуть пробелы (Fields режет и по NBSP/NNBSP).
func normalizeCell(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
