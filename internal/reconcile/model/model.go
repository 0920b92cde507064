package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout — календарная дата без времени, общий формат для обеих лент.
const DateLayout = time.DateOnly

// Category выбирает дорожку сопоставления и профиль порогов.
type Category string

const (
	CategoryCoaching     Category = "coaching"
	CategoryRestaurant   Category = "restaurant"
	CategoryRetail       Category = "retail"
	CategoryProductSales Category = "product_sales"
)

type MatchType string

const (
	MatchExact       MatchType = "exact"
	MatchFuzzyName   MatchType = "fuzzy_name"
	MatchFuzzyAmount MatchType = "fuzzy_amount"
	MatchFuzzyBoth   MatchType = "fuzzy_both"
)

// Partition помечает строку аудита: в какую часть результата она попала.
type Partition string

const (
	PartitionMatched     Partition = "matched"
	PartitionInvoiceOnly Partition = "invoice_only"
	PartitionPOSOnly     Partition = "pos_only"
)

type DateRange struct {
	Start string `json:"start"` // YYYY-MM-DD, включительно
	End   string `json:"end"`   // YYYY-MM-DD, включительно
}

// InvoiceItem: строка внешней ленты (счёт/реестр).
type InvoiceItem struct {
	ID           string          `json:"id"`
	Date         string          `json:"date"`
	CustomerName string          `json:"customerName"`
	Quantity     float64         `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	ProductType  string          `json:"productType,omitempty"`
	SKU          string          `json:"sku,omitempty"`
	RawData      map[string]any  `json:"rawData,omitempty"`
}

// POSRecord: строка внутренней кассовой ленты.
type POSRecord struct {
	ID              string          `json:"id"`
	Date            string          `json:"date"`
	CustomerName    string          `json:"customerName"`
	ProductName     string          `json:"productName"`
	ProductCategory string          `json:"productCategory"`
	Quantity        float64         `json:"quantity"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	SKUNumber       string          `json:"skuNumber,omitempty"`
	IsVoided        bool            `json:"isVoided"`
}

type MatchOptions struct {
	ToleranceAmount         float64  `json:"toleranceAmount"`         // абсолютный допуск в валюте
	TolerancePercentage     float64  `json:"tolerancePercentage"`     // относительный допуск, %
	NameSimilarityThreshold float64  `json:"nameSimilarityThreshold"` // 0..1
	Category                Category `json:"category"`
}

// OptionOverrides: то, что пришло от вызывающего; nil значит взять дефолт.
type OptionOverrides struct {
	ToleranceAmount         *float64 `json:"toleranceAmount,omitempty"`
	TolerancePercentage     *float64 `json:"tolerancePercentage,omitempty"`
	NameSimilarityThreshold *float64 `json:"nameSimilarityThreshold,omitempty"`
}

type Variance struct {
	AmountDiff     float64 `json:"amountDiff"`
	QuantityDiff   float64 `json:"quantityDiff"`
	NameSimilarity float64 `json:"nameSimilarity"`
}

type MatchedItem struct {
	Invoice    InvoiceItem `json:"invoiceItem"`
	POS        POSRecord   `json:"posRecord"`
	MatchType  MatchType   `json:"matchType"`
	Confidence float64     `json:"confidence"`
	Variance   Variance    `json:"variance"`
}

type Summary struct {
	TotalInvoiceItems  int             `json:"totalInvoiceItems"`
	TotalPOSRecords    int             `json:"totalPOSRecords"`
	MatchedCount       int             `json:"matchedCount"`
	InvoiceOnlyCount   int             `json:"invoiceOnlyCount"`
	POSOnlyCount       int             `json:"posOnlyCount"`
	TotalInvoiceAmount decimal.Decimal `json:"totalInvoiceAmount"`
	TotalPOSAmount     decimal.Decimal `json:"totalPOSAmount"`
	MatchRate          float64         `json:"matchRate"`
	VarianceAmount     decimal.Decimal `json:"varianceAmount"`
	VariancePercentage float64         `json:"variancePercentage"`
}

type Result struct {
	SessionID   string        `json:"sessionId"`
	Category    Category      `json:"category"`
	DateRange   DateRange     `json:"dateRange"`
	Matched     []MatchedItem `json:"matched"`
	InvoiceOnly []InvoiceItem `json:"invoiceOnly"`
	POSOnly     []POSRecord   `json:"posOnly"`
	Summary     Summary       `json:"summary"`
	Options     MatchOptions  `json:"options"`
}

// SessionRecord: заголовок сессии для аудита.
type SessionRecord struct {
	SessionID string    `json:"sessionId"`
	Category  Category  `json:"category"`
	DateRange DateRange `json:"dateRange"`
	Summary   Summary   `json:"summary"`
	CreatedAt time.Time `json:"createdAt"`
}

// AuditItem: одна строка результата, помеченная частью разбиения.
type AuditItem struct {
	Partition     Partition        `json:"partition"`
	InvoiceItemID string           `json:"invoiceItemId,omitempty"`
	POSRecordID   string           `json:"posRecordId,omitempty"`
	Date          string           `json:"date"`
	CustomerName  string           `json:"customerName"`
	InvoiceAmount *decimal.Decimal `json:"invoiceAmount,omitempty"`
	POSAmount     *decimal.Decimal `json:"posAmount,omitempty"`
	MatchType     MatchType        `json:"matchType,omitempty"`
	Confidence    *float64         `json:"confidence,omitempty"`
	Variance      *Variance        `json:"variance,omitempty"`
}

// Session: заголовок и строки, прочитанные обратно из хранилища.
type Session struct {
	SessionRecord
	Items []AuditItem `json:"items"`
}
