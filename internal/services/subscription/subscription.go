// Package subscription отвечает за проверку доступа пользователя,
// выдачу пробного периода и продление подписки после оплаты.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/subscription-payments/internal/lib/period"
	"github.com/magabrotheeeer/subscription-payments/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-payments/internal/models"
)

// UserRepository описывает операции над пользователями в хранилище.
type UserRepository interface {
	GetUser(ctx context.Context, username string) (*models.User, error)
	AddUser(ctx context.Context, user models.User) error
	UpsertSubscription(ctx context.Context, user models.User) error
	CountValidAffiliates(ctx context.Context, username string) (int, error)
}

// Cache описывает кеш для счётчиков приглашённых пользователей.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// affiliateCountTTL ограничивает время жизни закешированного счётчика,
// чтобы скидка подтягивалась без ручного сброса.
const affiliateCountTTL = time.Minute

// VerifyResult - ответ на проверку статуса подписки пользователя.
type VerifyResult struct {
	IsValid           bool    `json:"isValid"`
	Message           string  `json:"message"`
	AffiliateNumber   int     `json:"affiliateNumber"`
	AvailableTrial    bool    `json:"availableTrial"`
	NeedsSubscription bool    `json:"needsSubscription,omitempty"`
	NeedsRenewal      bool    `json:"needsRenewal,omitempty"`
	ReferralUsername  *string `json:"referralUsername,omitempty"`
}

// TrialResult - ответ на запрос пробного периода.
type TrialResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Service реализует сценарии работы с подпиской пользователя.
type Service struct {
	log   *slog.Logger
	repo  UserRepository
	cache Cache
}

// New создаёт сервис подписок.
func New(log *slog.Logger, repo UserRepository, cache Cache) *Service {
	return &Service{log: log, repo: repo, cache: cache}
}

// NormalizeUsername приводит имя пользователя к каноническому виду.
// Все операции сервисов работают только с нормализованными именами.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// VerifyUser проверяет статус подписки и возвращает результат для клиента.
// Отсутствующий и просроченный пользователи не считаются ошибкой.
func (s *Service) VerifyUser(ctx context.Context, username string) (*VerifyResult, error) {
	const op = "services.subscription.VerifyUser"

	username = NormalizeUsername(username)
	user, err := s.repo.GetUser(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	affiliateCount, err := s.AffiliateCount(ctx, username)
	if err != nil {
		s.log.Warn("failed to count affiliates", slog.String("username", username), sl.Err(err))
		affiliateCount = 0
	}

	if user == nil {
		return &VerifyResult{
			IsValid:           false,
			Message:           fmt.Sprintf("Welcome, %s! Please subscribe to use the application.", username),
			AffiliateNumber:   affiliateCount,
			AvailableTrial:    true,
			NeedsSubscription: true,
		}, nil
	}

	if time.Now().After(user.SubscriptionEnd) {
		return &VerifyResult{
			IsValid:          false,
			Message:          fmt.Sprintf("Your subscription expired on %s. Please renew it.", user.SubscriptionEnd.Format("2006-01-02")),
			AffiliateNumber:  affiliateCount,
			NeedsRenewal:     true,
			ReferralUsername: user.ReferralUsername,
		}, nil
	}

	return &VerifyResult{
		IsValid: true,
		Message: fmt.Sprintf("Your %s subscription is valid until %s.",
			models.SubscriptionLabel(user.SubscriptionType), user.SubscriptionEnd.Format("2006-01-02")),
		AffiliateNumber:  affiliateCount,
		ReferralUsername: user.ReferralUsername,
	}, nil
}

// AffiliateCount возвращает число приглашённых с действующей подпиской.
// Значение кешируется на короткий срок, ошибки кеша не прерывают запрос.
func (s *Service) AffiliateCount(ctx context.Context, username string) (int, error) {
	const op = "services.subscription.AffiliateCount"

	username = NormalizeUsername(username)
	key := "affiliates:" + username

	var cached int
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn("cache lookup failed", slog.String("key", key), sl.Err(err))
	}
	if found {
		return cached, nil
	}

	count, err := s.repo.CountValidAffiliates(ctx, username)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.cache.Set(ctx, key, count, affiliateCountTTL); err != nil {
		s.log.Warn("cache write failed", slog.String("key", key), sl.Err(err))
	}
	return count, nil
}

// RequestTrial выдаёт пробный период новому пользователю.
// Любому ранее существовавшему пользователю пробный период не положен.
func (s *Service) RequestTrial(ctx context.Context, username string) (*TrialResult, error) {
	const op = "services.subscription.RequestTrial"

	username = NormalizeUsername(username)
	user, err := s.repo.GetUser(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if user != nil {
		return &TrialResult{
			Success: false,
			Message: "Trial period is not available for this account.",
		}, nil
	}

	now := time.Now()
	end, err := period.End(models.SubscriptionTrial, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.repo.AddUser(ctx, models.User{
		Username:          username,
		SubscriptionType:  models.SubscriptionTrial,
		SubscriptionStart: now,
		SubscriptionEnd:   end,
	}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("trial granted",
		slog.String("username", username),
		slog.Time("subscription_end", end))

	return &TrialResult{
		Success: true,
		Message: fmt.Sprintf("Trial activated until %s.", end.Format("2006-01-02")),
	}, nil
}

// ApplySubscription начисляет или продлевает платную подписку после
// подтверждённой оплаты и сбрасывает кеш счётчика пригласившего.
func (s *Service) ApplySubscription(ctx context.Context, username, subscriptionType string, referralUsername *string) error {
	const op = "services.subscription.ApplySubscription"

	username = NormalizeUsername(username)
	if referralUsername != nil {
		normalized := NormalizeUsername(*referralUsername)
		if normalized == "" || normalized == username {
			referralUsername = nil
		} else {
			referralUsername = &normalized
		}
	}

	now := time.Now()
	end, err := period.End(subscriptionType, now)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.repo.UpsertSubscription(ctx, models.User{
		Username:          username,
		SubscriptionType:  subscriptionType,
		SubscriptionStart: now,
		SubscriptionEnd:   end,
		ReferralUsername:  referralUsername,
	}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if referralUsername != nil {
		if err := s.cache.Invalidate(ctx, "affiliates:"+*referralUsername); err != nil {
			s.log.Warn("cache invalidation failed",
				slog.String("username", *referralUsername), sl.Err(err))
		}
	}

	s.log.Info("subscription applied",
		slog.String("username", username),
		slog.String("subscription_type", subscriptionType),
		slog.Time("subscription_end", end))
	return nil
}
