package service

import (
	"strings"

	"invoice-recon/internal/reconcile/model"
)

// pool: оставшиеся кассовые записи.
// records: неизменяемый снимок в исходном порядке, used: рабочее множество
// израсходованных позиций. Поиск идёт по снимку, удаление только через take.
type pool struct {
	records []model.POSRecord
	used    []bool
	left    int

	byDate map[string][]int // дата -> позиции в порядке ленты
	bySku  map[string][]int // sku|дата -> позиции в порядке ленты
}

func newPool(records []model.POSRecord) *pool {
	p := &pool{
		records: records,
		used:    make([]bool, len(records)),
		left:    len(records),
		byDate:  make(map[string][]int),
		bySku:   make(map[string][]int),
	}
	for i, r := range records {
		p.byDate[r.Date] = append(p.byDate[r.Date], i)
		if s := strings.TrimSpace(r.SKUNumber); s != "" {
			k := skuKey(s, r.Date)
			p.bySku[k] = append(p.bySku[k], i)
		}
	}
	return p
}

func skuKey(sku, date string) string { return sku + "|" + date }

// sameDate: неизрасходованные позиции с той же календарной датой.
func (p *pool) sameDate(date string) []int {
	return p.available(p.byDate[date])
}

// sameSku: неизрасходованные позиции с тем же sku и датой.
func (p *pool) sameSku(sku, date string) []int {
	return p.available(p.bySku[skuKey(sku, date)])
}

func (p *pool) available(positions []int) []int {
	out := make([]int, 0, len(positions))
	for _, i := range positions {
		if !p.used[i] {
			out = append(out, i)
		}
	}
	return out
}

func (p *pool) at(i int) model.POSRecord { return p.records[i] }

// take убирает позицию из рабочего множества; повторный take ничего не делает.
func (p *pool) take(i int) {
	if p.used[i] {
		return
	}
	p.used[i] = true
	p.left--
}

func (p *pool) remaining() []model.POSRecord {
	out := make([]model.POSRecord, 0, p.left)
	for i, r := range p.records {
		if !p.used[i] {
			out = append(out, r)
		}
	}
	return out
}
