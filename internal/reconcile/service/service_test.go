package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"invoice-recon/internal/reconcile/model"
)

type posSourceMock struct{ mock.Mock }

func (m *posSourceMock) FetchPOSRecords(ctx context.Context, c model.Category, r model.DateRange) ([]model.POSRecord, error) {
	args := m.Called(ctx, c, r)
	recs, _ := args.Get(0).([]model.POSRecord)
	return recs, args.Error(1)
}

type auditSinkMock struct{ mock.Mock }

func (m *auditSinkMock) SaveSession(ctx context.Context, s model.SessionRecord) error {
	return m.Called(ctx, s).Error(0)
}

func (m *auditSinkMock) SaveItems(ctx context.Context, id string, items []model.AuditItem) error {
	return m.Called(ctx, id, items).Error(0)
}

var testDefaults = model.MatchOptions{
	ToleranceAmount:         50,
	TolerancePercentage:     5,
	NameSimilarityThreshold: 0.8,
}

var jan = model.DateRange{Start: "2024-01-01", End: "2024-01-31"}

func newTestService(src POSSource, audit AuditSink) *Service {
	s := New(src, audit, testDefaults, zerolog.Nop())
	s.newID = func() string { return "session-1" }
	return s
}

func TestService_Reconcile_PersistsSessionAndItems(t *testing.T) {
	src := &posSourceMock{}
	audit := &auditSinkMock{}
	src.On("FetchPOSRecords", mock.Anything, model.CategoryRestaurant, jan).Return([]model.POSRecord{
		pos("P1", "2024-01-10", "John Smith", 1, 1000),
		pos("P2", "2024-01-11", "Walk-in", 1, 300),
	}, nil)
	audit.On("SaveSession", mock.Anything, mock.MatchedBy(func(s model.SessionRecord) bool {
		return s.SessionID == "session-1" && s.Category == model.CategoryRestaurant && s.Summary.MatchedCount == 1
	})).Return(nil)
	audit.On("SaveItems", mock.Anything, "session-1", mock.MatchedBy(func(items []model.AuditItem) bool {
		return len(items) == 3 &&
			items[0].Partition == model.PartitionMatched &&
			items[1].Partition == model.PartitionInvoiceOnly &&
			items[2].Partition == model.PartitionPOSOnly
	})).Return(nil)

	res, err := newTestService(src, audit).Reconcile(context.Background(), Request{
		Category:  model.CategoryRestaurant,
		DateRange: jan,
		InvoiceItems: []model.InvoiceItem{
			inv("I1", "2024-01-10", "Jon Smith", 1, 1000),
			inv("I2", "2024-01-12", "Nobody", 1, 50),
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "session-1", res.SessionID)
	assert.Equal(t, jan, res.DateRange)
	assert.Len(t, res.Matched, 1)
	assert.Len(t, res.InvoiceOnly, 1)
	assert.Len(t, res.POSOnly, 1)
	src.AssertExpectations(t)
	audit.AssertExpectations(t)
}

func TestService_Reconcile_AuditFailureIsSwallowed(t *testing.T) {
	src := &posSourceMock{}
	audit := &auditSinkMock{}
	src.On("FetchPOSRecords", mock.Anything, mock.Anything, mock.Anything).
		Return([]model.POSRecord{pos("P1", "2024-01-10", "John Smith", 1, 1000)}, nil)
	audit.On("SaveSession", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	res, err := newTestService(src, audit).Reconcile(context.Background(), Request{
		Category:     model.CategoryRestaurant,
		DateRange:    jan,
		InvoiceItems: []model.InvoiceItem{inv("I1", "2024-01-10", "John Smith", 1, 1000)},
	})

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Len(t, res.Matched, 1)
	audit.AssertNotCalled(t, "SaveItems", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Reconcile_ItemWriteFailureIsSwallowed(t *testing.T) {
	src := &posSourceMock{}
	audit := &auditSinkMock{}
	src.On("FetchPOSRecords", mock.Anything, mock.Anything, mock.Anything).Return([]model.POSRecord{}, nil)
	audit.On("SaveSession", mock.Anything, mock.Anything).Return(nil)
	audit.On("SaveItems", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("locked"))

	res, err := newTestService(src, audit).Reconcile(context.Background(), Request{
		Category:     model.CategoryRetail,
		DateRange:    jan,
		InvoiceItems: []model.InvoiceItem{inv("I1", "2024-01-10", "John Smith", 1, 1000)},
	})

	require.NoError(t, err)
	assert.Len(t, res.InvoiceOnly, 1)
	assert.Equal(t, 0.0, res.Summary.MatchRate)
	audit.AssertExpectations(t)
}

func TestService_Reconcile_UpstreamError(t *testing.T) {
	src := &posSourceMock{}
	audit := &auditSinkMock{}
	src.On("FetchPOSRecords", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	res, err := newTestService(src, audit).Reconcile(context.Background(), Request{
		Category:     model.CategoryCoaching,
		DateRange:    jan,
		InvoiceItems: []model.InvoiceItem{inv("I1", "2024-01-10", "John Smith", 1, 1000)},
	})

	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrUpstreamFetch)
	audit.AssertNotCalled(t, "SaveSession", mock.Anything, mock.Anything)
}

func TestService_Reconcile_UpstreamErrorKeepsCause(t *testing.T) {
	src := &posSourceMock{}
	src.On("FetchPOSRecords", mock.Anything, mock.Anything, mock.Anything).Return(nil, context.Canceled)

	_, err := newTestService(src, nil).Reconcile(context.Background(), Request{
		Category:     model.CategoryCoaching,
		DateRange:    jan,
		InvoiceItems: []model.InvoiceItem{inv("I1", "2024-01-10", "John Smith", 1, 1000)},
	})

	assert.ErrorIs(t, err, ErrUpstreamFetch)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestService_Reconcile_InvalidInput(t *testing.T) {
	thr := 1.5
	neg := -1.0
	item := inv("I1", "2024-01-10", "John Smith", 1, 1000)

	tests := []struct {
		name string
		req  Request
	}{
		{"no invoice items", Request{Category: model.CategoryRetail, DateRange: jan}},
		{"unknown category", Request{Category: "golf_balls", DateRange: jan, InvoiceItems: []model.InvoiceItem{item}}},
		{"bad start date", Request{Category: model.CategoryRetail, DateRange: model.DateRange{Start: "01/01/2024", End: "2024-01-31"}, InvoiceItems: []model.InvoiceItem{item}}},
		{"end before start", Request{Category: model.CategoryRetail, DateRange: model.DateRange{Start: "2024-02-01", End: "2024-01-31"}, InvoiceItems: []model.InvoiceItem{item}}},
		{"bad item date", Request{Category: model.CategoryRetail, DateRange: jan, InvoiceItems: []model.InvoiceItem{inv("I1", "", "x", 1, 1)}}},
		{"threshold above one", Request{Category: model.CategoryRetail, DateRange: jan, InvoiceItems: []model.InvoiceItem{item}, Options: model.OptionOverrides{NameSimilarityThreshold: &thr}}},
		{"negative tolerance", Request{Category: model.CategoryRetail, DateRange: jan, InvoiceItems: []model.InvoiceItem{item}, Options: model.OptionOverrides{ToleranceAmount: &neg}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &posSourceMock{}
			audit := &auditSinkMock{}

			res, err := newTestService(src, audit).Reconcile(context.Background(), tt.req)

			assert.Nil(t, res)
			assert.ErrorIs(t, err, ErrInvalidInput)
			src.AssertNotCalled(t, "FetchPOSRecords", mock.Anything, mock.Anything, mock.Anything)
			audit.AssertNotCalled(t, "SaveSession", mock.Anything, mock.Anything)
		})
	}
}

func TestService_Reconcile_SkipsVoidedRecords(t *testing.T) {
	voided := pos("P1", "2024-01-10", "John Smith", 1, 1000)
	voided.IsVoided = true
	src := &posSourceMock{}
	src.On("FetchPOSRecords", mock.Anything, mock.Anything, mock.Anything).Return([]model.POSRecord{
		voided,
		pos("P2", "2024-01-10", "John Smith", 1, 990),
	}, nil)

	res, err := newTestService(src, NopAuditSink{}).Reconcile(context.Background(), Request{
		Category:     model.CategoryRestaurant,
		DateRange:    jan,
		InvoiceItems: []model.InvoiceItem{inv("I1", "2024-01-10", "John Smith", 1, 1000)},
	})

	require.NoError(t, err)
	require.Len(t, res.Matched, 1)
	assert.Equal(t, "P2", res.Matched[0].POS.ID)
	assert.Empty(t, res.POSOnly)
	assert.Equal(t, 1, res.Summary.TotalPOSRecords)
}

func TestService_Reconcile_OptionOverrides(t *testing.T) {
	tol := 0.0
	src := &posSourceMock{}
	src.On("FetchPOSRecords", mock.Anything, mock.Anything, mock.Anything).
		Return([]model.POSRecord{pos("P1", "2024-01-10", "Jon Smith", 1, 1010)}, nil)

	res, err := newTestService(src, nil).Reconcile(context.Background(), Request{
		Category:     model.CategoryRestaurant,
		DateRange:    jan,
		InvoiceItems: []model.InvoiceItem{inv("I1", "2024-01-10", "John Smith", 1, 1000)},
		Options:      model.OptionOverrides{ToleranceAmount: &tol},
	})

	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Options.ToleranceAmount)
	assert.Equal(t, 5.0, res.Options.TolerancePercentage)
	require.Len(t, res.Matched, 1)
	assert.Equal(t, model.MatchFuzzyBoth, res.Matched[0].MatchType)
}

type settingsStub struct {
	tolerance *float64
	err       error
}

func (s *settingsStub) MatchDefaults(_ context.Context, base model.MatchOptions) (model.MatchOptions, error) {
	if s.err != nil {
		return base, s.err
	}
	if s.tolerance != nil {
		base.ToleranceAmount = *s.tolerance
	}
	return base, nil
}

func TestService_Reconcile_SettingsReadPerRun(t *testing.T) {
	src := &posSourceMock{}
	src.On("FetchPOSRecords", mock.Anything, mock.Anything, mock.Anything).
		Return([]model.POSRecord{pos("P1", "2024-01-10", "John Smith", 1, 1000)}, nil)
	settings := &settingsStub{}
	svc := newTestService(src, nil).WithSettings(settings)
	req := Request{
		Category:     model.CategoryRestaurant,
		DateRange:    jan,
		InvoiceItems: []model.InvoiceItem{inv("I1", "2024-01-10", "John Smith", 1, 1000)},
	}

	first, err := svc.Reconcile(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 50.0, first.Options.ToleranceAmount)

	tol := 7.0
	settings.tolerance = &tol
	second, err := svc.Reconcile(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 7.0, second.Options.ToleranceAmount)

	// переопределение запроса сильнее сохранённой настройки
	over := 3.0
	req.Options.ToleranceAmount = &over
	third, err := svc.Reconcile(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 3.0, third.Options.ToleranceAmount)
}

func TestService_Reconcile_SettingsError(t *testing.T) {
	src := &posSourceMock{}
	svc := newTestService(src, nil).WithSettings(&settingsStub{err: errors.New("db locked")})

	res, err := svc.Reconcile(context.Background(), Request{
		Category:     model.CategoryRestaurant,
		DateRange:    jan,
		InvoiceItems: []model.InvoiceItem{inv("I1", "2024-01-10", "John Smith", 1, 1000)},
	})

	assert.Nil(t, res)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidInput)
	src.AssertNotCalled(t, "FetchPOSRecords", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolveOptions_Defaults(t *testing.T) {
	opt, err := ResolveOptions(testDefaults, model.OptionOverrides{}, model.CategoryCoaching)

	require.NoError(t, err)
	assert.Equal(t, model.MatchOptions{
		ToleranceAmount:         50,
		TolerancePercentage:     5,
		NameSimilarityThreshold: 0.8,
		Category:                model.CategoryCoaching,
	}, opt)
}

func inv(id, date, name string, qty, total float64) model.InvoiceItem {
	return model.InvoiceItem{
		ID:           id,
		Date:         date,
		CustomerName: name,
		Quantity:     qty,
		TotalAmount:  decimal.NewFromFloat(total),
	}
}

func pos(id, date, name string, qty, total float64) model.POSRecord {
	return model.POSRecord{
		ID:           id,
		Date:         date,
		CustomerName: name,
		Quantity:     qty,
		TotalAmount:  decimal.NewFromFloat(total),
	}
}
