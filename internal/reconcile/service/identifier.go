package service

import (
	"strings"

	"invoice-recon/internal/reconcile/model"
)

// matchByIdentifier: детерминированная дорожка по sku + дате + количеству.
// Берётся первая запись с тем же sku и датой; если количество не совпало,
// совпадения нет (ослабленного повтора нет).
func matchByIdentifier(inv model.InvoiceItem, p *pool) (int, model.MatchedItem, bool) {
	sku := strings.TrimSpace(inv.SKU)
	if sku == "" {
		return -1, model.MatchedItem{}, false
	}
	cands := p.sameSku(sku, inv.Date)
	if len(cands) == 0 {
		return -1, model.MatchedItem{}, false
	}
	i := cands[0]
	pos := p.at(i)
	if pos.Quantity != inv.Quantity {
		return -1, model.MatchedItem{}, false
	}
	return i, model.MatchedItem{
		Invoice:    inv,
		POS:        pos,
		MatchType:  model.MatchExact,
		Confidence: 1,
		Variance: model.Variance{
			AmountDiff:     inv.TotalAmount.Sub(pos.TotalAmount).Abs().InexactFloat64(),
			QuantityDiff:   0,
			NameSimilarity: 1, // имя в этой дорожке не сравнивается
		},
	}, true
}
