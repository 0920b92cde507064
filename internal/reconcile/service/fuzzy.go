package service

import (
	"math"

	"invoice-recon/internal/reconcile/model"
)

// score считает метрики кандидата для профиля.
func score(inv model.InvoiceItem, pos model.POSRecord) Candidate {
	diff := inv.TotalAmount.Sub(pos.TotalAmount).Abs()
	ad := diff.InexactFloat64()
	apd := 100.0
	if pos.TotalAmount.IsPositive() {
		apd = diff.Div(pos.TotalAmount).InexactFloat64() * 100
	}
	return Candidate{
		NameSimilarity:    Similarity(inv.CustomerName, pos.CustomerName),
		AmountDiff:        ad,
		AmountPercentDiff: apd,
		QuantityDiff:      math.Abs(inv.Quantity - pos.Quantity),
	}
}

// matchFuzzy перебирает кандидатов той же даты и берёт с наибольшей уверенностью.
// При равенстве побеждает более ранняя позиция в ленте.
func matchFuzzy(inv model.InvoiceItem, p *pool, prof TierProfile, opt model.MatchOptions) (int, model.MatchedItem, bool) {
	bestPos := -1
	best := -1.0
	var bestItem model.MatchedItem

	for _, i := range p.sameDate(inv.Date) {
		pos := p.at(i)
		c := score(inv, pos)
		mt, conf, ok := prof.Evaluate(c, opt)
		if !ok {
			continue
		}
		if conf > best {
			best = conf
			bestPos = i
			bestItem = model.MatchedItem{
				Invoice:    inv,
				POS:        pos,
				MatchType:  mt,
				Confidence: conf,
				Variance: model.Variance{
					AmountDiff:     c.AmountDiff,
					QuantityDiff:   c.QuantityDiff,
					NameSimilarity: c.NameSimilarity,
				},
			}
		}
	}
	if bestPos < 0 {
		return -1, model.MatchedItem{}, false
	}
	return bestPos, bestItem, true
}
