package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"invoice-recon/internal/config"
	"invoice-recon/internal/fileio"
	"invoice-recon/internal/middleware"
	"invoice-recon/internal/reconcile/model"
	recSvc "invoice-recon/internal/reconcile/service"
	"invoice-recon/internal/storage"
)

// Reconciler: то, что нужно хендлеру от сервиса сверки.
type Reconciler interface {
	Reconcile(ctx context.Context, req recSvc.Request) (*model.Result, error)
}

// SessionReader читает сохранённую сессию аудита.
type SessionReader interface {
	GetSession(ctx context.Context, sessionID string) (*model.Session, error)
}

// reconcileBody: JSON-вариант запроса.
type reconcileBody struct {
	Category     model.Category        `json:"category"`
	Start        string                `json:"start"`
	End          string                `json:"end"`
	InvoiceItems []model.InvoiceItem   `json:"invoiceItems"`
	Options      model.OptionOverrides `json:"options"`
}

// Reconcile возвращает http.HandlerFunc, чтобы его можно было вызвать как
// r.Post("/reconcile", recHnd.Reconcile(svc, cfg, logger)) в роутере.
// Принимает JSON или multipart с файлом счёта (xlsx/xls/csv) и маппингом колонок.
func Reconcile(svc Reconciler, cfg config.Config, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log := logger
		if rid := middleware.GetRequestID(r); rid != "" {
			log = logger.With().Str("req_id", rid).Logger()
		}
		defer func() { _ = r.Body.Close() }()

		ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		var (
			req recSvc.Request
			err error
		)
		switch ct {
		case "multipart/form-data":
			req, err = requestFromForm(r, int64(cfg.MaxUploadMB)<<20, log)
		case "application/json", "":
			req, err = requestFromJSON(r)
		default:
			err = fmt.Errorf("unsupported content type %q", ct)
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		res, err := svc.Reconcile(r.Context(), req)
		if err != nil {
			status := statusFor(err)
			if status >= http.StatusInternalServerError {
				log.Error().Err(err).Msg("reconcile failed")
			}
			writeError(w, status, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, res, log)
		log.Info().
			Str("session_id", res.SessionID).
			Int("invoice", res.Summary.TotalInvoiceItems).
			Int("matched", res.Summary.MatchedCount).
			Dur("elapsed", time.Since(start)).
			Msg("reconcile request done")
	}
}

// Session отдаёт сохранённую сессию: GET /sessions/{id}.
func Session(store SessionReader, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		s, err := store.GetSession(r.Context(), id)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			writeError(w, http.StatusNotFound, "session not found")
			return
		case err != nil:
			logger.Error().Err(err).Str("session_id", id).Msg("get session")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, s, logger)
	}
}

func requestFromJSON(r *http.Request) (recSvc.Request, error) {
	var body reconcileBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return recSvc.Request{}, fmt.Errorf("bad json: %w", err)
	}
	return recSvc.Request{
		Category:     body.Category,
		DateRange:    model.DateRange{Start: body.Start, End: body.End},
		InvoiceItems: body.InvoiceItems,
		Options:      body.Options,
	}, nil
}

func requestFromForm(r *http.Request, maxMemory int64, log zerolog.Logger) (recSvc.Request, error) {
	if maxMemory <= 0 {
		maxMemory = 32 << 20
	}
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return recSvc.Request{}, fmt.Errorf("bad multipart form: %w", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return recSvc.Request{}, fmt.Errorf("missing file: %w", err)
	}
	defer func() { _ = file.Close() }()

	m := fileio.InvoiceMapping{
		IDKey:        r.FormValue("id_col"),
		DateKey:      r.FormValue("date_col"),
		CustomerKey:  r.FormValue("customer_col"),
		QtyKey:       r.FormValue("qty_col"),
		UnitPriceKey: r.FormValue("unit_price_col"),
		TotalKey:     r.FormValue("total_col"),
		SKUKey:       r.FormValue("sku_col"),
		TypeKey:      r.FormValue("type_col"),
		HeaderRow:    atoi(r.FormValue("header_row"), 1),
	}.WithDefaults()

	// Читаем таблицу (auto-encoding CSV, XLS/XLSX внутри fileio)
	maps, err := fileio.ReadAnyMaps(file, header.Filename, m.HeaderRow)
	if err != nil {
		return recSvc.Request{}, fmt.Errorf("failed to read %s: %w", header.Filename, err)
	}
	items, skipped := fileio.ToInvoiceItems(maps, m)
	log.Debug().
		Str("file", header.Filename).
		Int("rows", len(maps)).
		Int("items", len(items)).
		Int("skipped", skipped).
		Msg("invoice file mapped")

	var o model.OptionOverrides
	for _, f := range []struct {
		field string
		dst   **float64
	}{
		{"tolerance_amount", &o.ToleranceAmount},
		{"tolerance_percentage", &o.TolerancePercentage},
		{"name_similarity_threshold", &o.NameSimilarityThreshold},
	} {
		if *f.dst, err = optionalFloat(f.field, r.FormValue(f.field)); err != nil {
			return recSvc.Request{}, err
		}
	}

	return recSvc.Request{
		Category:     model.Category(r.FormValue("category")),
		DateRange:    model.DateRange{Start: r.FormValue("start"), End: r.FormValue("end")},
		InvoiceItems: items,
		Options:      o,
	}, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, recSvc.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, recSvc.ErrUpstreamFetch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
