package fileio

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"invoice-recon/internal/reconcile/model"
	"invoice-recon/internal/utils"
)

// InvoiceMapping: какие колонки таблицы счёта что означают.
// Каждое поле допускает варианты через "|"; пустое поле = дефолт.
type InvoiceMapping struct {
	IDKey        string `json:"id_col"`
	DateKey      string `json:"date_col"`
	CustomerKey  string `json:"customer_col"`
	QtyKey       string `json:"qty_col"`
	UnitPriceKey string `json:"unit_price_col"`
	TotalKey     string `json:"total_col"`
	SKUKey       string `json:"sku_col"`
	TypeKey      string `json:"type_col"`
	HeaderRow    int    `json:"header_row"`
}

var defaultInvoiceMapping = InvoiceMapping{
	IDKey:        "id|invoice item id|no",
	DateKey:      "date|дата|วันที่",
	CustomerKey:  "customer name|customer|client|клиент|покупатель|ชื่อลูกค้า",
	QtyKey:       "quantity|qty|количество|จำนวน",
	UnitPriceKey: "unit price|price|цена|ราคาต่อหน่วย",
	TotalKey:     "total amount|total|amount|сумма|ยอดรวม",
	SKUKey:       "sku|sku number|артикул",
	TypeKey:      "product type|type|тип",
	HeaderRow:    1,
}

// WithDefaults заполняет пустые поля дефолтными вариантами заголовков.
func (m InvoiceMapping) WithDefaults() InvoiceMapping {
	d := defaultInvoiceMapping
	pick := func(v, def string) string {
		if strings.TrimSpace(v) == "" {
			return def
		}
		return v
	}
	m.IDKey = pick(m.IDKey, d.IDKey)
	m.DateKey = pick(m.DateKey, d.DateKey)
	m.CustomerKey = pick(m.CustomerKey, d.CustomerKey)
	m.QtyKey = pick(m.QtyKey, d.QtyKey)
	m.UnitPriceKey = pick(m.UnitPriceKey, d.UnitPriceKey)
	m.TotalKey = pick(m.TotalKey, d.TotalKey)
	m.SKUKey = pick(m.SKUKey, d.SKUKey)
	m.TypeKey = pick(m.TypeKey, d.TypeKey)
	if m.HeaderRow <= 0 {
		m.HeaderRow = d.HeaderRow
	}
	return m
}

// ToInvoiceItems переводит строки таблицы в строки счёта.
// Строки без даты или без суммы (и без цены×количества) пропускаются,
// их число возвращается вторым значением.
func ToInvoiceItems(maps []map[string]string, m InvoiceMapping) ([]model.InvoiceItem, int) {
	m = m.WithDefaults()
	out := make([]model.InvoiceItem, 0, len(maps))
	skipped := 0
	for i, rec := range maps {
		if looksLikeHeaderMap(rec) {
			skipped++
			continue
		}
		get := func(want string) string { return strings.TrimSpace(rec[resolveKey(rec, want)]) }

		date, ok := utils.ParseDate(get(m.DateKey))
		if !ok {
			skipped++
			continue
		}
		qty, ok := utils.ParseQuantity(get(m.QtyKey))
		if !ok {
			qty = 1
		}
		price, hasPrice := utils.ParseAmount(get(m.UnitPriceKey))
		total, ok := utils.ParseAmount(get(m.TotalKey))
		switch {
		case ok:
		case hasPrice:
			total = price.Mul(decimal.NewFromFloat(qty))
		default:
			skipped++
			continue
		}
		if !hasPrice && qty != 0 {
			price = total.Div(decimal.NewFromFloat(qty))
		}

		id := get(m.IDKey)
		if id == "" {
			id = fmt.Sprintf("row-%d", i+1)
		}
		raw := make(map[string]any, len(rec))
		for k, v := range rec {
			raw[k] = v
		}
		out = append(out, model.InvoiceItem{
			ID:           id,
			Date:         date,
			CustomerName: get(m.CustomerKey),
			Quantity:     qty,
			UnitPrice:    price,
			TotalAmount:  total,
			ProductType:  get(m.TypeKey),
			SKU:          get(m.SKUKey),
			RawData:      raw,
		})
	}
	return out, skipped
}

// POSMapping: колонки кассовой выгрузки для импорта.
type POSMapping struct {
	IDKey              string
	DateKey            string
	CustomerKey        string
	ProductKey         string
	ProductCategoryKey string
	QtyKey             string
	TotalKey           string
	SKUKey             string
	VoidedKey          string
	HeaderRow          int
}

// DefaultPOSMapping: заголовки кассовой выгрузки по умолчанию.
func DefaultPOSMapping() POSMapping {
	return POSMapping{
		IDKey:              "id|transaction id|receipt id",
		DateKey:            "date|sale date|дата",
		CustomerKey:        "customer name|customer|клиент",
		ProductKey:         "product name|product|item|товар",
		ProductCategoryKey: "product category|category|категория",
		QtyKey:             "quantity|qty|количество",
		TotalKey:           "total amount|total|amount|сумма",
		SKUKey:             "sku number|sku|артикул",
		VoidedKey:          "is voided|voided|void",
		HeaderRow:          1,
	}
}

// ToPOSRecords переводит строки кассовой выгрузки в записи.
// Без ID в таблице id строится из содержимого строки (uuid v5), чтобы
// повторный импорт того же файла перезаписывал, а не дублировал.
func ToPOSRecords(maps []map[string]string, m POSMapping) ([]model.POSRecord, int) {
	out := make([]model.POSRecord, 0, len(maps))
	skipped := 0
	for i, rec := range maps {
		if looksLikeHeaderMap(rec) {
			skipped++
			continue
		}
		get := func(want string) string { return strings.TrimSpace(rec[resolveKey(rec, want)]) }

		date, ok := utils.ParseDate(get(m.DateKey))
		if !ok {
			skipped++
			continue
		}
		total, ok := utils.ParseAmount(get(m.TotalKey))
		if !ok {
			skipped++
			continue
		}
		qty, ok := utils.ParseQuantity(get(m.QtyKey))
		if !ok {
			qty = 1
		}
		r := model.POSRecord{
			ID:              get(m.IDKey),
			Date:            date,
			CustomerName:    get(m.CustomerKey),
			ProductName:     get(m.ProductKey),
			ProductCategory: get(m.ProductCategoryKey),
			Quantity:        qty,
			TotalAmount:     total,
			SKUNumber:       get(m.SKUKey),
			IsVoided:        toBool(get(m.VoidedKey)),
		}
		if r.ID == "" {
			key := fmt.Sprintf("%d|%s|%s|%s|%s|%s", i, r.Date, r.CustomerName, r.ProductName, r.SKUNumber, total.String())
			r.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
		}
		out = append(out, r)
	}
	return out, skipped
}

func toBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "y", "void", "voided":
		return true
	}
	return false
}
