package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/subscription-payments/internal/models"
)

// GetUser возвращает пользователя по нормализованному имени.
// Если пользователь не найден, возвращает (nil, nil).
func (s *Storage) GetUser(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT username, subscription_type, subscription_start, subscription_end, referral_username
			  FROM users
			  WHERE username = $1`
	u := &models.User{}
	row := s.DB.QueryRowContext(ctx, query, username)

	var referral sql.NullString
	if err := row.Scan(&u.Username, &u.SubscriptionType, &u.SubscriptionStart,
		&u.SubscriptionEnd, &referral); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if referral.Valid {
		u.ReferralUsername = &referral.String
	}
	return u, nil
}

// AddUser вставляет нового пользователя с подпиской.
func (s *Storage) AddUser(ctx context.Context, user models.User) error {
	const op = "storage.AddUser"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (username, subscription_type, subscription_start,
			      subscription_end, referral_username)
			  VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.DB.ExecContext(ctx, query,
		user.Username, user.SubscriptionType, user.SubscriptionStart,
		user.SubscriptionEnd, user.ReferralUsername); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpsertSubscription создаёт пользователя или продлевает его подписку одним
// атомарным выражением. При продлении subscription_start не меняется, а
// referral_username выставляется только если он ещё не был задан: атрибуция
// приглашения назначается один раз и навсегда.
func (s *Storage) UpsertSubscription(ctx context.Context, user models.User) error {
	const op = "storage.UpsertSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (username, subscription_type, subscription_start,
			      subscription_end, referral_username)
			  VALUES ($1, $2, $3, $4, $5)
			  ON CONFLICT (username) DO UPDATE
			  SET subscription_type = EXCLUDED.subscription_type,
			      subscription_end = EXCLUDED.subscription_end,
			      referral_username = COALESCE(users.referral_username, EXCLUDED.referral_username)`
	if _, err := s.DB.ExecContext(ctx, query,
		user.Username, user.SubscriptionType, user.SubscriptionStart,
		user.SubscriptionEnd, user.ReferralUsername); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CountValidAffiliates подсчитывает пользователей, приглашённых username,
// у которых подписка действует на момент запроса.
func (s *Storage) CountValidAffiliates(ctx context.Context, username string) (int, error) {
	const op = "storage.CountValidAffiliates"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COUNT(*)
			  FROM users
			  WHERE referral_username = $1
			    AND subscription_end >= now()`
	var count int
	if err := s.DB.QueryRowContext(ctx, query, username).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}
