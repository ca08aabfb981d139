package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/subscription-payments/internal/models"
)

// CreateInvoice вставляет новый счёт и возвращает его ID.
// order_number формируется вызывающей стороной как {username}-{unix millis};
// для одного пользователя при одновременных checkout-ах коллизия возможна,
// уникальный индекс превратит её в ошибку вставки.
func (s *Storage) CreateInvoice(ctx context.Context, invoice models.Invoice) (int64, error) {
	const op = "storage.CreateInvoice"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO invoices (txn_id, order_number, username, subscription_type,
			      amount, currency, status, promo_code, referral_username)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			  RETURNING id`
	var newID int64
	err := s.DB.QueryRowContext(ctx, query,
		invoice.TxnID, invoice.OrderNumber, invoice.Username, invoice.SubscriptionType,
		invoice.Amount, invoice.Currency, invoice.Status, invoice.PromoCode,
		invoice.ReferralUsername).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// SwapInvoiceStatus меняет статус счёта и возвращает статус, который был
// до изменения. Выборка блокирует строку, поэтому два конкурентных callback-а
// для одного заказа увидят разные предыдущие статусы и только один из них
// выполнит побочные эффекты перехода. Если счёта нет, found равен false.
func (s *Storage) SwapInvoiceStatus(ctx context.Context, orderNumber, status, txnID string) (string, bool, error) {
	const op = "storage.SwapInvoiceStatus"
	select {
	case <-ctx.Done():
		return "", false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `WITH current AS (
			      SELECT order_number, status
			      FROM invoices
			      WHERE order_number = $1
			      FOR UPDATE
			  )
			  UPDATE invoices
			  SET status = $2, txn_id = $3, updated_at = now()
			  FROM current
			  WHERE invoices.order_number = current.order_number
			  RETURNING current.status`
	var previous string
	err := s.DB.QueryRowContext(ctx, query, orderNumber, status, txnID).Scan(&previous)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}
	return previous, true, nil
}

// GetInvoiceByOrderNumber возвращает счёт по номеру заказа.
// Если счёт не найден, возвращает (nil, nil).
func (s *Storage) GetInvoiceByOrderNumber(ctx context.Context, orderNumber string) (*models.Invoice, error) {
	const op = "storage.GetInvoiceByOrderNumber"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, txn_id, order_number, username, subscription_type, amount,
			      currency, status, promo_code, referral_username, created_at, updated_at
			  FROM invoices
			  WHERE order_number = $1`
	inv := &models.Invoice{}
	row := s.DB.QueryRowContext(ctx, query, orderNumber)

	var promoCode, referral sql.NullString
	var updatedAt sql.NullTime
	if err := row.Scan(&inv.ID, &inv.TxnID, &inv.OrderNumber, &inv.Username,
		&inv.SubscriptionType, &inv.Amount, &inv.Currency, &inv.Status,
		&promoCode, &referral, &inv.CreatedAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if promoCode.Valid {
		inv.PromoCode = &promoCode.String
	}
	if referral.Valid {
		inv.ReferralUsername = &referral.String
	}
	if updatedAt.Valid {
		inv.UpdatedAt = &updatedAt.Time
	}
	return inv, nil
}
