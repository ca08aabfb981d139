package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/magabrotheeeer/subscription-payments/internal/models"
)

// GetPromo возвращает промокод по коду. Если код не найден, возвращает (nil, nil).
func (s *Storage) GetPromo(ctx context.Context, code string) (*models.PromoCode, error) {
	const op = "storage.GetPromo"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	// applicable_durations хранится как TEXT[]; database/sql не умеет
	// сканировать массивы, поэтому склеиваем на стороне базы.
	query := `SELECT code, discount, expiration_date, usage_limit,
			      array_to_string(applicable_durations, ',')
			  FROM promos
			  WHERE code = $1`
	p := &models.PromoCode{}
	row := s.DB.QueryRowContext(ctx, query, code)

	var durations string
	if err := row.Scan(&p.Code, &p.Discount, &p.ExpirationDate, &p.UsageLimit, &durations); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if durations != "" {
		p.ApplicableDurations = strings.Split(durations, ",")
	}
	return p, nil
}

// UpsertPromo создаёт промокод или обновляет его параметры.
// Используется при импорте данных.
func (s *Storage) UpsertPromo(ctx context.Context, promo models.PromoCode) error {
	const op = "storage.UpsertPromo"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO promos (code, discount, expiration_date, usage_limit, applicable_durations)
			  VALUES ($1, $2, $3, $4, $5)
			  ON CONFLICT (code) DO UPDATE
			  SET discount = EXCLUDED.discount,
			      expiration_date = EXCLUDED.expiration_date,
			      usage_limit = EXCLUDED.usage_limit,
			      applicable_durations = EXCLUDED.applicable_durations`
	if _, err := s.DB.ExecContext(ctx, query,
		promo.Code, promo.Discount, promo.ExpirationDate, promo.UsageLimit,
		toTextArray(promo.ApplicableDurations)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ConsumePromo атомарно уменьшает счётчик использований на единицу.
// Условие usage_limit > 0 входит в само выражение, поэтому конкурентные
// вызовы не могут увести счётчик ниже нуля. Возвращает true, если была
// изменена ровно одна запись.
func (s *Storage) ConsumePromo(ctx context.Context, code string) (bool, error) {
	const op = "storage.ConsumePromo"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE promos
			  SET usage_limit = usage_limit - 1
			  WHERE code = $1 AND usage_limit > 0`
	result, err := s.DB.ExecContext(ctx, query, code)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected == 1, nil
}

// RevertPromo атомарно возвращает счётчик использований на единицу.
// Вызывается при неуспехе провайдера после использования кода и при
// терминально-неуспешном статусе счёта, созданного с этим кодом.
func (s *Storage) RevertPromo(ctx context.Context, code string) (bool, error) {
	const op = "storage.RevertPromo"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE promos
			  SET usage_limit = usage_limit + 1
			  WHERE code = $1`
	result, err := s.DB.ExecContext(ctx, query, code)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected == 1, nil
}
