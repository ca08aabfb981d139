package models

// VerifyUserRequest используется для приёма данных запроса /verify-user.
type VerifyUserRequest struct {
	Username string `json:"username" validate:"required"`
}

// ApplyPromoRequest используется для приёма данных запроса /apply-promo.
type ApplyPromoRequest struct {
	PromoCode        string `json:"promoCode" validate:"required"`
	SubscriptionType string `json:"subscriptionType" validate:"required,oneof=1_month 3_months 6_months 12_months"`
}

// CreateInvoiceRequest используется для приёма данных запроса /create-invoice.
type CreateInvoiceRequest struct {
	Username         string `json:"username" validate:"required"`
	SubscriptionType string `json:"subscriptionType" validate:"required,oneof=1_month 3_months 6_months 12_months"`
	Currency         string `json:"currency" validate:"required"`
	PromoCode        string `json:"promoCode,omitempty" validate:"omitempty"`
	ReferralUsername string `json:"referralUsername,omitempty" validate:"omitempty"`
}

// AdjustedPricesRequest используется для приёма данных запроса /get-adjusted-prices.
type AdjustedPricesRequest struct {
	Username         string `json:"username" validate:"required"`
	SubscriptionType string `json:"subscriptionType" validate:"required,oneof=1_month 3_months 6_months 12_months"`
	PromoCode        string `json:"promoCode,omitempty" validate:"omitempty"`
}

// TrialRequest используется для приёма данных запроса /request-trial.
type TrialRequest struct {
	Username string `json:"username" validate:"required"`
}
