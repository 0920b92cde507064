package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"invoice-recon/internal/reconcile/model"
)

// Request: вход одной сверки.
type Request struct {
	Category     model.Category        `json:"category"`
	DateRange    model.DateRange       `json:"dateRange"`
	InvoiceItems []model.InvoiceItem   `json:"invoiceItems"`
	Options      model.OptionOverrides `json:"options"`
}

// Service связывает движок с источником кассы и аудитом.
// Состояния между вызовами не хранит.
type Service struct {
	source   POSSource
	audit    AuditSink
	defaults model.MatchOptions
	settings DefaultsProvider
	logger   zerolog.Logger

	newID func() string
	now   func() time.Time
}

func New(source POSSource, audit AuditSink, defaults model.MatchOptions, logger zerolog.Logger) *Service {
	if audit == nil {
		audit = NopAuditSink{}
	}
	return &Service{
		source:   source,
		audit:    audit,
		defaults: defaults,
		logger:   logger,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// WithSettings подключает настройки, перекрывающие defaults на каждом прогоне.
func (s *Service) WithSettings(p DefaultsProvider) *Service {
	s.settings = p
	return s
}

// Reconcile — полный прогон: проверка, загрузка кассы, сопоставление, итоги, аудит.
func (s *Service) Reconcile(ctx context.Context, req Request) (*model.Result, error) {
	start := time.Now()

	if err := s.validate(req); err != nil {
		return nil, err
	}
	def, err := s.matchDefaults(ctx)
	if err != nil {
		return nil, err
	}
	opt, err := ResolveOptions(def, req.Options, req.Category)
	if err != nil {
		return nil, err
	}

	posAll, err := s.source.FetchPOSRecords(ctx, req.Category, req.DateRange)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamFetch, err)
	}
	pos := dropVoided(posAll)
	if skipped := len(posAll) - len(pos); skipped > 0 {
		s.logger.Debug().Int("voided", skipped).Msg("voided pos records skipped")
	}

	res, err := Run(req.InvoiceItems, pos, opt)
	if err != nil {
		return nil, err
	}
	res.SessionID = s.newID()
	res.DateRange = req.DateRange

	log := s.logger.With().Str("session_id", res.SessionID).Str("category", string(req.Category)).Logger()
	log.Info().
		Int("invoice", res.Summary.TotalInvoiceItems).
		Int("pos", res.Summary.TotalPOSRecords).
		Int("matched", res.Summary.MatchedCount).
		Float64("match_rate", res.Summary.MatchRate).
		Dur("elapsed", time.Since(start)).
		Msg("reconcile done")

	s.persist(ctx, log, &res)
	return &res, nil
}

// persist работает best-effort: ошибки только логируются.
func (s *Service) persist(ctx context.Context, log zerolog.Logger, res *model.Result) {
	hdr := model.SessionRecord{
		SessionID: res.SessionID,
		Category:  res.Category,
		DateRange: res.DateRange,
		Summary:   res.Summary,
		CreatedAt: s.now().UTC(),
	}
	if err := s.audit.SaveSession(ctx, hdr); err != nil {
		log.Error().Err(err).Msg("audit: save session")
		return
	}
	if err := s.audit.SaveItems(ctx, res.SessionID, AuditItems(res)); err != nil {
		log.Error().Err(err).Msg("audit: save items")
	}
}

func (s *Service) matchDefaults(ctx context.Context) (model.MatchOptions, error) {
	if s.settings == nil {
		return s.defaults, nil
	}
	def, err := s.settings.MatchDefaults(ctx, s.defaults)
	if err != nil {
		return model.MatchOptions{}, fmt.Errorf("load match settings: %w", err)
	}
	return def, nil
}

func (s *Service) validate(req Request) error {
	if len(req.InvoiceItems) == 0 {
		return fmt.Errorf("%w: no invoice items", ErrInvalidInput)
	}
	if !SupportedCategory(req.Category) {
		return fmt.Errorf("%w: unsupported category %q", ErrInvalidInput, req.Category)
	}
	from, err := time.Parse(model.DateLayout, req.DateRange.Start)
	if err != nil {
		return fmt.Errorf("%w: bad start date %q", ErrInvalidInput, req.DateRange.Start)
	}
	to, err := time.Parse(model.DateLayout, req.DateRange.End)
	if err != nil {
		return fmt.Errorf("%w: bad end date %q", ErrInvalidInput, req.DateRange.End)
	}
	if to.Before(from) {
		return fmt.Errorf("%w: end date before start date", ErrInvalidInput)
	}
	for i, it := range req.InvoiceItems {
		if _, err := time.Parse(model.DateLayout, it.Date); err != nil {
			return fmt.Errorf("%w: invoice item %d: bad date %q", ErrInvalidInput, i, it.Date)
		}
	}
	return nil
}

// ResolveOptions накладывает переопределения на дефолты и проверяет границы.
func ResolveOptions(def model.MatchOptions, o model.OptionOverrides, c model.Category) (model.MatchOptions, error) {
	opt := def
	opt.Category = c
	if o.ToleranceAmount != nil {
		opt.ToleranceAmount = *o.ToleranceAmount
	}
	if o.TolerancePercentage != nil {
		opt.TolerancePercentage = *o.TolerancePercentage
	}
	if o.NameSimilarityThreshold != nil {
		opt.NameSimilarityThreshold = *o.NameSimilarityThreshold
	}
	switch {
	case opt.ToleranceAmount < 0:
		return opt, fmt.Errorf("%w: toleranceAmount must be >= 0", ErrInvalidInput)
	case opt.TolerancePercentage < 0:
		return opt, fmt.Errorf("%w: tolerancePercentage must be >= 0", ErrInvalidInput)
	case opt.NameSimilarityThreshold < 0 || opt.NameSimilarityThreshold > 1:
		return opt, fmt.Errorf("%w: nameSimilarityThreshold must be within [0,1]", ErrInvalidInput)
	}
	return opt, nil
}

// Run: сам движок: идёт по счетам в исходном порядке, жадно забирает лучшую
// кассовую запись и убирает её из пула. Ввода-вывода нет.
func Run(invoices []model.InvoiceItem, pos []model.POSRecord, opt model.MatchOptions) (model.Result, error) {
	policy, ok := policies[opt.Category]
	if !ok {
		return model.Result{}, fmt.Errorf("%w: unsupported category %q", ErrInvalidInput, opt.Category)
	}

	p := newPool(pos)
	matched := make([]model.MatchedItem, 0, len(invoices))
	invoiceOnly := make([]model.InvoiceItem, 0)

	for _, inv := range invoices {
		var (
			at   int
			item model.MatchedItem
			hit  bool
		)
		switch policy.lane {
		case laneIdentifier:
			at, item, hit = matchByIdentifier(inv, p)
		default:
			at, item, hit = matchFuzzy(inv, p, policy.profile, opt)
		}
		if !hit {
			invoiceOnly = append(invoiceOnly, inv)
			continue
		}
		p.take(at)
		matched = append(matched, item)
	}

	return model.Result{
		Category:    opt.Category,
		Matched:     matched,
		InvoiceOnly: invoiceOnly,
		POSOnly:     p.remaining(),
		Summary:     Summarize(invoices, pos, len(matched)),
		Options:     opt,
	}, nil
}

func dropVoided(in []model.POSRecord) []model.POSRecord {
	out := make([]model.POSRecord, 0, len(in))
	for _, r := range in {
		if !r.IsVoided {
			out = append(out, r)
		}
	}
	return out
}
