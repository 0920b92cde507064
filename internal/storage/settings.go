package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"invoice-recon/internal/reconcile/model"
)

// ключи настроек, перекрывающих дефолты из конфига
const (
	SettingToleranceAmount         = "default_tolerance_amount"
	SettingTolerancePercentage     = "default_tolerance_percentage"
	SettingNameSimilarityThreshold = "default_name_similarity_threshold"
)

// GetSetting: сохранённое значение или def, если ключа нет.
func (s *Store) GetSetting(ctx context.Context, key, def string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

// SetSetting вставляет или заменяет ключ.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value)
	return err
}

// MatchDefaults накладывает сохранённые default_* на base.
func (s *Store) MatchDefaults(ctx context.Context, base model.MatchOptions) (model.MatchOptions, error) {
	out := base
	fields := []struct {
		key string
		dst *float64
	}{
		{SettingToleranceAmount, &out.ToleranceAmount},
		{SettingTolerancePercentage, &out.TolerancePercentage},
		{SettingNameSimilarityThreshold, &out.NameSimilarityThreshold},
	}
	for _, f := range fields {
		v, err := s.GetSetting(ctx, f.key, "")
		if err != nil {
			return base, err
		}
		if v == "" {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return base, fmt.Errorf("setting %s: %w", f.key, err)
		}
		*f.dst = n
	}
	return out, nil
}
