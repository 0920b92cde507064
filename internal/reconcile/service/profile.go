package service

import (
	"math"

	"invoice-recon/internal/reconcile/model"
)

// Пороговые константы подобраны бизнесом, менять только вместе с продуктом.
const (
	nameExactThreshold   = 0.95
	generalExactAmount   = 1.0
	strictAmountFallback = 2.0 // множитель допуска суммы для fuzzy_amount в строгом профиле
)

// Candidate: метрики пары счёт/касса, по которым работает профиль.
type Candidate struct {
	NameSimilarity    float64
	AmountDiff        float64
	AmountPercentDiff float64
	QuantityDiff      float64
}

// TierProfile: набор ступеней приёмки и формул уверенности.
// Evaluate возвращает первую принявшую ступень.
type TierProfile interface {
	Name() string
	Evaluate(c Candidate, opt model.MatchOptions) (model.MatchType, float64, bool)
}

// StrictQuantityProfile: количество обязано совпасть на любой ступени (занятия, тренировки).
type StrictQuantityProfile struct{}

func (StrictQuantityProfile) Name() string { return "strict_quantity" }

func (StrictQuantityProfile) Evaluate(c Candidate, opt model.MatchOptions) (model.MatchType, float64, bool) {
	if c.QuantityDiff != 0 {
		return "", 0, false
	}
	thr := opt.NameSimilarityThreshold
	switch {
	case c.NameSimilarity >= nameExactThreshold && c.AmountDiff <= opt.ToleranceAmount:
		return model.MatchExact, 1, true
	case c.NameSimilarity >= thr && c.AmountDiff <= opt.ToleranceAmount:
		return model.MatchFuzzyName, clamp01(0.7 + (c.NameSimilarity-thr)*0.3), true
	case c.NameSimilarity >= nameExactThreshold &&
		(c.AmountDiff <= strictAmountFallback*opt.ToleranceAmount || c.AmountPercentDiff <= opt.TolerancePercentage):
		return model.MatchFuzzyAmount, clamp01(0.6 + amountCloseness(c, opt)*0.3), true
	}
	return "", 0, false
}

// GeneralProfile: количество не участвует в приёмке (ресторан, розница).
type GeneralProfile struct{}

func (GeneralProfile) Name() string { return "general" }

func (GeneralProfile) Evaluate(c Candidate, opt model.MatchOptions) (model.MatchType, float64, bool) {
	thr := opt.NameSimilarityThreshold
	withinAmount := c.AmountDiff <= opt.ToleranceAmount || c.AmountPercentDiff <= opt.TolerancePercentage
	switch {
	case c.NameSimilarity >= nameExactThreshold && c.AmountDiff <= generalExactAmount:
		return model.MatchExact, 1, true
	case c.NameSimilarity >= thr && c.AmountDiff <= opt.ToleranceAmount:
		return model.MatchFuzzyName, clamp01(0.8 + (c.NameSimilarity-thr)*0.2), true
	case c.NameSimilarity >= nameExactThreshold && withinAmount:
		return model.MatchFuzzyAmount, clamp01(0.7 + amountCloseness(c, opt)*0.2), true
	case c.NameSimilarity >= thr && withinAmount:
		return model.MatchFuzzyBoth, clamp01(0.5 + (c.NameSimilarity-thr)*0.3 + amountCloseness(c, opt)*0.2), true
	}
	return "", 0, false
}

// amountCloseness = 1 - min(apd/tolPct, 1); при нулевом допуске близость 0.
func amountCloseness(c Candidate, opt model.MatchOptions) float64 {
	if opt.TolerancePercentage <= 0 {
		return 0
	}
	return 1 - math.Min(c.AmountPercentDiff/opt.TolerancePercentage, 1)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

type lane int

const (
	laneFuzzy lane = iota
	laneIdentifier
)

type categoryPolicy struct {
	lane    lane
	profile TierProfile // nil для дорожки по идентификатору
}

var policies = map[model.Category]categoryPolicy{
	model.CategoryCoaching:     {lane: laneFuzzy, profile: StrictQuantityProfile{}},
	model.CategoryRestaurant:   {lane: laneFuzzy, profile: GeneralProfile{}},
	model.CategoryRetail:       {lane: laneFuzzy, profile: GeneralProfile{}},
	model.CategoryProductSales: {lane: laneIdentifier},
}

// ProfileFor возвращает профиль ступеней для категории нечёткой дорожки.
func ProfileFor(c model.Category) (TierProfile, bool) {
	p, ok := policies[c]
	if !ok || p.profile == nil {
		return nil, false
	}
	return p.profile, true
}

// SupportedCategory: известна ли категория движку.
func SupportedCategory(c model.Category) bool {
	_, ok := policies[c]
	return ok
}

// IdentifierLane: сопоставляется ли категория по sku, а не по имени.
// Источники кассы по ней отдают агрегаты sku за день.
func IdentifierLane(c model.Category) bool {
	p, ok := policies[c]
	return ok && p.lane == laneIdentifier
}
