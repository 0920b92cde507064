package service

import (
	"context"
	"errors"

	"invoice-recon/internal/reconcile/model"
)

var (
	// ErrInvalidInput — запрос отклонён до загрузки и сопоставления.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUpstreamFetch — источник кассовых данных не ответил; результата нет.
	ErrUpstreamFetch = errors.New("pos source fetch failed")
)

// POSSource отдаёт кассовые записи за период для категории.
type POSSource interface {
	FetchPOSRecords(ctx context.Context, category model.Category, rng model.DateRange) ([]model.POSRecord, error)
}

// AuditSink сохраняет сессию сверки: сначала заголовок, затем строки.
// Запись не транзакционна, ошибки не прерывают сверку.
type AuditSink interface {
	SaveSession(ctx context.Context, s model.SessionRecord) error
	SaveItems(ctx context.Context, sessionID string, items []model.AuditItem) error
}

// DefaultsProvider накладывает сохранённые настройки на дефолты из конфига.
// Читается на каждую сверку, чтобы изменения применялись без рестарта.
type DefaultsProvider interface {
	MatchDefaults(ctx context.Context, base model.MatchOptions) (model.MatchOptions, error)
}

// NopAuditSink ничего не сохраняет.
type NopAuditSink struct{}

func (NopAuditSink) SaveSession(context.Context, model.SessionRecord) error { return nil }

func (NopAuditSink) SaveItems(context.Context, string, []model.AuditItem) error { return nil }
