package fileio

import (
	"bytes"
	"errors"
	"io"

	xls "github.com/extrame/xls"
)

// кодировки, в которых пробуем открыть старые .xls кассовых и учётных систем
var xlsCharsets = []string{"utf-8", "windows-1251", "windows-874"}

// предел ширины при поиске последней непустой колонки
const xlsProbeCols = 512

func readXLS(r io.Reader, headerRow int) ([]map[string]string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	wb, err := openXLS(b)
	if err != nil {
		return nil, err
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, nil
	}
	return tableToMaps(xlsRows(sheet), headerRow), nil
}

func openXLS(b []byte) (*xls.WorkBook, error) {
	var lastErr error
	for _, cs := range xlsCharsets {
		wb, err := xls.OpenReader(bytes.NewReader(b), cs)
		if err == nil && wb != nil {
			return wb, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("xls: failed to open workbook")
	}
	return nil, lastErr
}

// xlsRows читает лист прямоугольником: Row.LastCol() в старых файлах врёт,
// поэтому ширину считаем сами по последней непустой ячейке.
func xlsRows(sheet *xls.WorkSheet) [][]string {
	last := int(sheet.MaxRow)
	width := 0
	for i := 0; i <= last; i++ {
		row := sheet.Row(i)
		if row == nil {
			continue
		}
		for j := width; j < xlsProbeCols; j++ {
			if normalizeCell(row.Col(j)) != "" {
				width = j + 1
			}
		}
	}

	rows := make([][]string, 0, last+1)
	for i := 0; i <= last; i++ {
		cols := make([]string, width)
		if row := sheet.Row(i); row != nil {
			for j := range cols {
				cols[j] = row.Col(j)
			}
		}
		rows = append(rows, cols)
	}
	return rows
}
