package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"invoice-recon/internal/reconcile/model"
	"invoice-recon/internal/reconcile/service"
)

// SavePOSRecords сохраняет кассовые строки категории; повтор (category, id) перезаписывает.
func (s *Store) SavePOSRecords(ctx context.Context, category model.Category, recs []model.POSRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
	INSERT OR REPLACE INTO pos_transactions
	(id, category, sale_date, customer_name, product_name, product_category,
	 quantity, total_amount, sku_number, is_voided)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range recs {
		if _, err := stmt.ExecContext(ctx,
			r.ID, string(category), r.Date, r.CustomerName, r.ProductName, r.ProductCategory,
			r.Quantity, r.TotalAmount, strings.TrimSpace(r.SKUNumber), r.IsVoided,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("save pos record %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// FetchPOSRecords: строки категории за период (границы включительно), по дате и id.
// Для категорий с сопоставлением по артикулу одна запись на sku в день,
// аннулированные в суммы не входят.
func (s *Store) FetchPOSRecords(ctx context.Context, category model.Category, rng model.DateRange) ([]model.POSRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, sale_date, customer_name, product_name, product_category,
	       quantity, total_amount, sku_number, is_voided
	FROM pos_transactions
	WHERE category = ? AND sale_date BETWEEN ? AND ?
	ORDER BY sale_date, id`, string(category), rng.Start, rng.End)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.POSRecord
	for rows.Next() {
		var r model.POSRecord
		if err := rows.Scan(&r.ID, &r.Date, &r.CustomerName, &r.ProductName, &r.ProductCategory,
			&r.Quantity, &r.TotalAmount, &r.SKUNumber, &r.IsVoided); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if service.IdentifierLane(category) {
		out = aggregateBySku(out)
	}
	return out, nil
}

// aggregateBySku сворачивает строки в итоги sku|дата в порядке первого появления.
// Строки без sku отбрасываются.
func aggregateBySku(in []model.POSRecord) []model.POSRecord {
	idx := make(map[string]int)
	out := make([]model.POSRecord, 0, len(in))
	for _, r := range in {
		sku := strings.TrimSpace(r.SKUNumber)
		if r.IsVoided || sku == "" {
			continue
		}
		k := sku + "|" + r.Date
		if i, ok := idx[k]; ok {
			out[i].Quantity += r.Quantity
			out[i].TotalAmount = out[i].TotalAmount.Add(r.TotalAmount)
			continue
		}
		idx[k] = len(out)
		out = append(out, model.POSRecord{
			ID:              k,
			Date:            r.Date,
			ProductName:     r.ProductName,
			ProductCategory: r.ProductCategory,
			Quantity:        r.Quantity,
			TotalAmount:     decimal.Zero.Add(r.TotalAmount),
			SKUNumber:       sku,
		})
	}
	return out
}
