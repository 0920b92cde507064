package service

import (
	"invoice-recon/internal/reconcile/model"
)

// AuditItems раскладывает результат в плоские строки для аудита:
// сначала matched, затем invoice_only, затем pos_only.
func AuditItems(res *model.Result) []model.AuditItem {
	out := make([]model.AuditItem, 0, len(res.Matched)+len(res.InvoiceOnly)+len(res.POSOnly))
	for _, m := range res.Matched {
		invAmt, posAmt := m.Invoice.TotalAmount, m.POS.TotalAmount
		conf := m.Confidence
		v := m.Variance
		out = append(out, model.AuditItem{
			Partition:     model.PartitionMatched,
			InvoiceItemID: m.Invoice.ID,
			POSRecordID:   m.POS.ID,
			Date:          m.Invoice.Date,
			CustomerName:  m.Invoice.CustomerName,
			InvoiceAmount: &invAmt,
			POSAmount:     &posAmt,
			MatchType:     m.MatchType,
			Confidence:    &conf,
			Variance:      &v,
		})
	}
	for _, it := range res.InvoiceOnly {
		amt := it.TotalAmount
		out = append(out, model.AuditItem{
			Partition:     model.PartitionInvoiceOnly,
			InvoiceItemID: it.ID,
			Date:          it.Date,
			CustomerName:  it.CustomerName,
			InvoiceAmount: &amt,
		})
	}
	for _, r := range res.POSOnly {
		amt := r.TotalAmount
		out = append(out, model.AuditItem{
			Partition:    model.PartitionPOSOnly,
			POSRecordID:  r.ID,
			Date:         r.Date,
			CustomerName: r.CustomerName,
			POSAmount:    &amt,
		})
	}
	return out
}
