package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"invoice-recon/internal/reconcile/model"
)

// SaveSession пишет заголовок сессии.
func (s *Store) SaveSession(ctx context.Context, h model.SessionRecord) error {
	sum := h.Summary
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO reconciliation_sessions
	(session_id, category, start_date, end_date,
	 total_invoice_items, total_pos_records, matched_count, invoice_only_count, pos_only_count,
	 total_invoice_amount, total_pos_amount, match_rate, variance_amount, variance_percentage,
	 created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.SessionID, string(h.Category), h.DateRange.Start, h.DateRange.End,
		sum.TotalInvoiceItems, sum.TotalPOSRecords, sum.MatchedCount, sum.InvoiceOnlyCount, sum.POSOnlyCount,
		sum.TotalInvoiceAmount, sum.TotalPOSAmount, sum.MatchRate, sum.VarianceAmount, sum.VariancePercentage,
		h.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", h.SessionID, err)
	}
	return nil
}

// SaveItems пишет строки сессии одной транзакцией.
func (s *Store) SaveItems(ctx context.Context, sessionID string, items []model.AuditItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO reconciliation_items
	(session_id, item_partition, invoice_item_id, pos_record_id, item_date, customer_name,
	 invoice_amount, pos_amount, match_type, confidence, amount_diff, quantity_diff, name_similarity)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, it := range items {
		var amtDiff, qtyDiff, nameSim sql.NullFloat64
		if it.Variance != nil {
			amtDiff = sql.NullFloat64{Float64: it.Variance.AmountDiff, Valid: true}
			qtyDiff = sql.NullFloat64{Float64: it.Variance.QuantityDiff, Valid: true}
			nameSim = sql.NullFloat64{Float64: it.Variance.NameSimilarity, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			sessionID, string(it.Partition), it.InvoiceItemID, it.POSRecordID, it.Date, it.CustomerName,
			nullDecimal(it.InvoiceAmount), nullDecimal(it.POSAmount), string(it.MatchType),
			nullFloat(it.Confidence), amtDiff, qtyDiff, nameSim,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("save items for session %s: %w", sessionID, err)
		}
	}
	return tx.Commit()
}

// GetSession читает сессию со строками в порядке вставки.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	out := &model.Session{}
	h := &out.SessionRecord
	sum := &h.Summary
	var category string
	err := s.db.QueryRowContext(ctx, `
	SELECT session_id, category, start_date, end_date,
	       total_invoice_items, total_pos_records, matched_count, invoice_only_count, pos_only_count,
	       total_invoice_amount, total_pos_amount, match_rate, variance_amount, variance_percentage,
	       created_at
	FROM reconciliation_sessions WHERE session_id = ?`, sessionID).Scan(
		&h.SessionID, &category, &h.DateRange.Start, &h.DateRange.End,
		&sum.TotalInvoiceItems, &sum.TotalPOSRecords, &sum.MatchedCount, &sum.InvoiceOnlyCount, &sum.POSOnlyCount,
		&sum.TotalInvoiceAmount, &sum.TotalPOSAmount, &sum.MatchRate, &sum.VarianceAmount, &sum.VariancePercentage,
		&h.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	h.Category = model.Category(category)

	rows, err := s.db.QueryContext(ctx, `
	SELECT item_partition, invoice_item_id, pos_record_id, item_date, customer_name,
	       invoice_amount, pos_amount, match_type, confidence, amount_diff, quantity_diff, name_similarity
	FROM reconciliation_items WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out.Items = make([]model.AuditItem, 0)
	for rows.Next() {
		var (
			it                              model.AuditItem
			partition, matchType            string
			invAmt, posAmt                  decimal.NullDecimal
			conf, amtDiff, qtyDiff, nameSim sql.NullFloat64
		)
		if err := rows.Scan(&partition, &it.InvoiceItemID, &it.POSRecordID, &it.Date, &it.CustomerName,
			&invAmt, &posAmt, &matchType, &conf, &amtDiff, &qtyDiff, &nameSim); err != nil {
			return nil, err
		}
		it.Partition = model.Partition(partition)
		it.MatchType = model.MatchType(matchType)
		if invAmt.Valid {
			it.InvoiceAmount = &invAmt.Decimal
		}
		if posAmt.Valid {
			it.POSAmount = &posAmt.Decimal
		}
		if conf.Valid {
			it.Confidence = &conf.Float64
		}
		if amtDiff.Valid {
			it.Variance = &model.Variance{
				AmountDiff:     amtDiff.Float64,
				QuantityDiff:   qtyDiff.Float64,
				NameSimilarity: nameSim.Float64,
			}
		}
		out.Items = append(out.Items, it)
	}
	return out, rows.Err()
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
