package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoice-recon/internal/reconcile/model"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"John  SMITH", "john smith"},
		{"O'Brien, Mary-Jane.", "o brien mary jane"},
		{"\tKhun Somchai  (VIP) ", "khun somchai vip"},
		{"สมชาย ใจดี", "สมชาย ใจดี"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "input %q", tt.in)
	}
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("", ""))
	assert.Equal(t, 0.0, Similarity("abc", ""))
	assert.InDelta(t, 0.9, Similarity("Jon Smith", "John Smith"), 1e-9)
	assert.Equal(t, 1.0, Similarity("John Smith", "john   smith!"))
	assert.InDelta(t, 1-3.0/7, Similarity("kitten", "sitting"), 1e-9)
}

func TestSimilarity_ReflexiveAndSymmetric(t *testing.T) {
	words := []string{"Anna", "Annabel Lee", "Somchai", "สมชาย", "golf pro #3", "x", "Jon Smith", "John Smith"}
	for _, a := range words {
		assert.Equal(t, 1.0, Similarity(a, a), a)
		for _, b := range words {
			s := Similarity(a, b)
			assert.Equal(t, s, Similarity(b, a), "%q vs %q", a, b)
			assert.GreaterOrEqual(t, s, 0.0)
			assert.LessOrEqual(t, s, 1.0)
		}
	}
}

func TestRun_IdentifierLane(t *testing.T) {
	opt := model.MatchOptions{Category: model.CategoryProductSales}
	item := skuInv("I1", "ABC123", "2024-01-15", 2, 500)

	res, err := Run([]model.InvoiceItem{item}, []model.POSRecord{skuPOS("P1", "ABC123", "2024-01-15", 2, 480)}, opt)
	require.NoError(t, err)
	require.Len(t, res.Matched, 1)
	m := res.Matched[0]
	assert.Equal(t, model.MatchExact, m.MatchType)
	assert.Equal(t, 1.0, m.Confidence)
	assert.Equal(t, model.Variance{AmountDiff: 20, QuantityDiff: 0, NameSimilarity: 1}, m.Variance)

	res, err = Run([]model.InvoiceItem{item}, []model.POSRecord{skuPOS("P1", "ABC123", "2024-01-15", 3, 500)}, opt)
	require.NoError(t, err)
	assert.Empty(t, res.Matched)
	assert.Len(t, res.InvoiceOnly, 1)
	assert.Len(t, res.POSOnly, 1)
}

func TestRun_IdentifierLane_NoMatchCases(t *testing.T) {
	opt := model.MatchOptions{Category: model.CategoryProductSales}
	pool := []model.POSRecord{
		skuPOS("P1", "ABC123", "2024-01-15", 2, 500),
		skuPOS("P2", "XYZ", "2024-01-15", 1, 100),
	}

	tests := []struct {
		name string
		item model.InvoiceItem
	}{
		{"missing sku", skuInv("I1", "", "2024-01-15", 2, 500)},
		{"blank sku", skuInv("I1", "   ", "2024-01-15", 2, 500)},
		{"other date", skuInv("I1", "ABC123", "2024-01-16", 2, 500)},
		{"unknown sku", skuInv("I1", "NOPE", "2024-01-15", 2, 500)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Run([]model.InvoiceItem{tt.item}, pool, opt)
			require.NoError(t, err)
			assert.Empty(t, res.Matched)
			assert.Len(t, res.POSOnly, 2)
		})
	}
}

func TestRun_IdentifierLane_FirstCandidateOnly(t *testing.T) {
	// первая запись с тем же sku+дата решает, вторая не рассматривается
	opt := model.MatchOptions{Category: model.CategoryProductSales}
	pool := []model.POSRecord{
		skuPOS("P1", "ABC123", "2024-01-15", 5, 500),
		skuPOS("P2", "ABC123", "2024-01-15", 2, 200),
	}
	res, err := Run([]model.InvoiceItem{skuInv("I1", "ABC123", "2024-01-15", 2, 200)}, pool, opt)
	require.NoError(t, err)
	assert.Empty(t, res.Matched)

	// израсходованная запись уступает место следующей
	items := []model.InvoiceItem{
		skuInv("I1", "ABC123", "2024-01-15", 5, 500),
		skuInv("I2", "ABC123", "2024-01-15", 2, 200),
	}
	res, err = Run(items, pool, opt)
	require.NoError(t, err)
	require.Len(t, res.Matched, 2)
	assert.Equal(t, "P1", res.Matched[0].POS.ID)
	assert.Equal(t, "P2", res.Matched[1].POS.ID)
	assert.Empty(t, res.POSOnly)
}

func TestRun_FuzzyLane_Example(t *testing.T) {
	res, err := Run(
		[]model.InvoiceItem{inv("I1", "2024-01-10", "Jon Smith", 1, 1000)},
		[]model.POSRecord{pos("P1", "2024-01-10", "John Smith", 1, 1000)},
		opts(model.CategoryRestaurant),
	)
	require.NoError(t, err)
	require.Len(t, res.Matched, 1)
	m := res.Matched[0]
	assert.Equal(t, model.MatchFuzzyName, m.MatchType)
	assert.InDelta(t, 0.9, m.Variance.NameSimilarity, 0.02)
	assert.Greater(t, m.Confidence, 0.8)
	assert.Less(t, m.Confidence, 1.0)
	assert.InDelta(t, 0.82, m.Confidence, 1e-9)
}

func TestRun_FuzzyLane_NeverCrossesDates(t *testing.T) {
	res, err := Run(
		[]model.InvoiceItem{inv("I1", "2024-01-10", "John Smith", 1, 1000)},
		[]model.POSRecord{pos("P1", "2024-01-11", "John Smith", 1, 1000)},
		opts(model.CategoryRetail),
	)
	require.NoError(t, err)
	assert.Empty(t, res.Matched)
	assert.Len(t, res.InvoiceOnly, 1)
	assert.Len(t, res.POSOnly, 1)
}

func TestRun_FuzzyLane_PicksHighestConfidence(t *testing.T) {
	res, err := Run(
		[]model.InvoiceItem{inv("I1", "2024-01-10", "John Smith", 1, 1000)},
		[]model.POSRecord{
			pos("P1", "2024-01-10", "Jon Smith", 1, 1000),
			pos("P2", "2024-01-10", "John Smith", 1, 1000),
		},
		opts(model.CategoryRestaurant),
	)
	require.NoError(t, err)
	require.Len(t, res.Matched, 1)
	assert.Equal(t, "P2", res.Matched[0].POS.ID)
	assert.Equal(t, model.MatchExact, res.Matched[0].MatchType)
	require.Len(t, res.POSOnly, 1)
	assert.Equal(t, "P1", res.POSOnly[0].ID)
}

func TestRun_FuzzyLane_TieGoesToEarliest(t *testing.T) {
	res, err := Run(
		[]model.InvoiceItem{inv("I1", "2024-01-10", "John Smith", 1, 1000)},
		[]model.POSRecord{
			pos("P0", "2024-01-09", "John Smith", 1, 1000),
			pos("P1", "2024-01-10", "John Smith", 1, 1000),
			pos("P2", "2024-01-10", "John Smith", 1, 1000),
		},
		opts(model.CategoryRestaurant),
	)
	require.NoError(t, err)
	require.Len(t, res.Matched, 1)
	assert.Equal(t, "P1", res.Matched[0].POS.ID)
	assert.Equal(t, []string{"P0", "P2"}, posIDs(res.POSOnly))
}

func TestRun_GreedyIsInputOrderDependent(t *testing.T) {
	// I1 забирает P1 посредственно, хотя I2 совпал бы с ним точно
	items := []model.InvoiceItem{
		inv("I1", "2024-01-10", "Jon Smith", 1, 1000),
		inv("I2", "2024-01-10", "John Smith", 1, 1000),
	}
	records := []model.POSRecord{pos("P1", "2024-01-10", "John Smith", 1, 1000)}

	res, err := Run(items, records, opts(model.CategoryRestaurant))
	require.NoError(t, err)
	require.Len(t, res.Matched, 1)
	assert.Equal(t, "I1", res.Matched[0].Invoice.ID)
	assert.Equal(t, model.MatchFuzzyName, res.Matched[0].MatchType)
	require.Len(t, res.InvoiceOnly, 1)
	assert.Equal(t, "I2", res.InvoiceOnly[0].ID)
	assert.Empty(t, res.POSOnly)
}

func TestRun_PartitionAndExclusivity(t *testing.T) {
	items := []model.InvoiceItem{
		inv("I1", "2024-01-10", "John Smith", 1, 1000),
		inv("I2", "2024-01-10", "John Smith", 1, 1000),
		inv("I3", "2024-01-10", "Mary Jones", 2, 1500),
		inv("I4", "2024-01-11", "Somchai", 1, 800),
		inv("I5", "2024-01-12", "Unknown", 1, 10),
	}
	records := []model.POSRecord{
		pos("P1", "2024-01-10", "John Smith", 1, 1000),
		pos("P2", "2024-01-10", "Mary Jones", 2, 1490),
		pos("P3", "2024-01-11", "Somchai K", 1, 820),
		pos("P4", "2024-01-11", "Walk-in", 1, 120),
		pos("P5", "2024-01-13", "Late", 1, 99),
	}

	for _, c := range []model.Category{model.CategoryCoaching, model.CategoryRestaurant, model.CategoryRetail, model.CategoryProductSales} {
		t.Run(string(c), func(t *testing.T) {
			res, err := Run(items, records, opts(c))
			require.NoError(t, err)

			assert.Equal(t, len(items), len(res.Matched)+len(res.InvoiceOnly))
			assert.Equal(t, len(records), len(res.Matched)+len(res.POSOnly))

			seen := map[string]bool{}
			for _, m := range res.Matched {
				assert.False(t, seen[m.POS.ID], "pos %s matched twice", m.POS.ID)
				seen[m.POS.ID] = true
				assert.GreaterOrEqual(t, m.Confidence, 0.0)
				assert.LessOrEqual(t, m.Confidence, 1.0)
				if m.MatchType == model.MatchExact {
					assert.Equal(t, 1.0, m.Confidence)
				}
			}
			for _, r := range res.POSOnly {
				assert.False(t, seen[r.ID], "pos %s both matched and left over", r.ID)
			}
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	items := []model.InvoiceItem{
		inv("I1", "2024-01-10", "Jon Smith", 1, 1000),
		inv("I2", "2024-01-10", "Mary", 1, 700),
		inv("I3", "2024-01-11", "Somchai", 1, 800),
	}
	records := []model.POSRecord{
		pos("P1", "2024-01-10", "John Smith", 1, 1000),
		pos("P2", "2024-01-10", "Marie", 1, 690),
		pos("P3", "2024-01-11", "Somchai", 1, 800),
		pos("P4", "2024-01-11", "Somchai", 1, 800),
	}
	first, err := Run(items, records, opts(model.CategoryRetail))
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Run(items, records, opts(model.CategoryRetail))
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRun_UnknownCategory(t *testing.T) {
	_, err := Run(nil, nil, model.MatchOptions{Category: "bowling"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRun_EmptyInputs(t *testing.T) {
	res, err := Run(nil, nil, opts(model.CategoryRestaurant))
	require.NoError(t, err)
	assert.Empty(t, res.Matched)
	assert.Empty(t, res.InvoiceOnly)
	assert.Empty(t, res.POSOnly)
	assert.Equal(t, 0.0, res.Summary.MatchRate)
	assert.Equal(t, 0.0, res.Summary.VariancePercentage)
}

func TestSummarize(t *testing.T) {
	s := Summarize(
		[]model.InvoiceItem{inv("I1", "2024-01-01", "a", 1, 6000), inv("I2", "2024-01-01", "b", 1, 4000)},
		[]model.POSRecord{pos("P1", "2024-01-01", "a", 1, 9500)},
		1,
	)
	assert.Equal(t, 2, s.TotalInvoiceItems)
	assert.Equal(t, 1, s.TotalPOSRecords)
	assert.Equal(t, 1, s.InvoiceOnlyCount)
	assert.Equal(t, 0, s.POSOnlyCount)
	assert.True(t, s.TotalInvoiceAmount.Equal(decimal.NewFromInt(10000)))
	assert.True(t, s.TotalPOSAmount.Equal(decimal.NewFromInt(9500)))
	assert.True(t, s.VarianceAmount.Equal(decimal.NewFromInt(500)), s.VarianceAmount.String())
	assert.InDelta(t, 5.26, s.VariancePercentage, 0.01)
	assert.Equal(t, 50.0, s.MatchRate)
}

func TestSummarize_ZeroGuards(t *testing.T) {
	s := Summarize(nil, []model.POSRecord{pos("P1", "2024-01-01", "a", 1, 100)}, 0)
	assert.Equal(t, 0.0, s.MatchRate)

	s = Summarize([]model.InvoiceItem{inv("I1", "2024-01-01", "a", 1, 100)}, nil, 0)
	assert.Equal(t, 0.0, s.VariancePercentage)
	assert.True(t, s.VarianceAmount.Equal(decimal.NewFromInt(100)))

	s = Summarize(
		[]model.InvoiceItem{inv("I1", "2024-01-01", "a", 1, 100)},
		[]model.POSRecord{pos("P1", "2024-01-01", "a", 1, 0)},
		0,
	)
	assert.Equal(t, 0.0, s.VariancePercentage)
}

func opts(c model.Category) model.MatchOptions {
	o := testDefaults
	o.Category = c
	return o
}

func skuInv(id, sku, date string, qty, total float64) model.InvoiceItem {
	it := inv(id, date, "", qty, total)
	it.SKU = sku
	return it
}

func skuPOS(id, sku, date string, qty, total float64) model.POSRecord {
	r := pos(id, date, "", qty, total)
	r.SKUNumber = sku
	return r
}

func posIDs(rs []model.POSRecord) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}
