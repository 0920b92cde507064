package service

import (
	"github.com/shopspring/decimal"

	"invoice-recon/internal/reconcile/model"
)

var hundred = decimal.NewFromInt(100)

// Summarize считает итоги по полным наборам (не только по сопоставленным).
// Деление на ноль даёт 0.
func Summarize(invoices []model.InvoiceItem, pos []model.POSRecord, matched int) model.Summary {
	totalInv := decimal.Zero
	for _, it := range invoices {
		totalInv = totalInv.Add(it.TotalAmount)
	}
	totalPOS := decimal.Zero
	for _, r := range pos {
		totalPOS = totalPOS.Add(r.TotalAmount)
	}

	s := model.Summary{
		TotalInvoiceItems:  len(invoices),
		TotalPOSRecords:    len(pos),
		MatchedCount:       matched,
		InvoiceOnlyCount:   len(invoices) - matched,
		POSOnlyCount:       len(pos) - matched,
		TotalInvoiceAmount: totalInv,
		TotalPOSAmount:     totalPOS,
		VarianceAmount:     totalInv.Sub(totalPOS),
	}
	if len(invoices) > 0 {
		s.MatchRate = float64(matched) / float64(len(invoices)) * 100
	}
	if totalPOS.IsPositive() {
		s.VariancePercentage = s.VarianceAmount.Div(totalPOS).Mul(hundred).InexactFloat64()
	}
	return s
}
