package period

import (
	"testing"
	"time"

	"github.com/magabrotheeeer/subscription-payments/internal/models"
)

func TestEnd_TableTests(t *testing.T) {
	from := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name             string
		subscriptionType string
		from             time.Time
		want             time.Time
		wantErr          bool
	}{
		{
			name:             "trial is two days",
			subscriptionType: models.SubscriptionTrial,
			from:             from,
			want:             time.Date(2024, 3, 17, 12, 0, 0, 0, time.UTC),
		},
		{
			name:             "one month",
			subscriptionType: models.Subscription1Month,
			from:             from,
			want:             time.Date(2024, 4, 15, 12, 0, 0, 0, time.UTC),
		},
		{
			name:             "three months",
			subscriptionType: models.Subscription3Months,
			from:             from,
			want:             time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
		},
		{
			name:             "six months",
			subscriptionType: models.Subscription6Months,
			from:             from,
			want:             time.Date(2024, 9, 15, 12, 0, 0, 0, time.UTC),
		},
		{
			name:             "twelve months is a calendar year",
			subscriptionType: models.Subscription12Months,
			from:             from,
			want:             time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC),
		},
		{
			name:             "month overflow rolls into march in a leap year",
			subscriptionType: models.Subscription1Month,
			from:             time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			want:             time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name:             "month overflow rolls into march in a regular year",
			subscriptionType: models.Subscription1Month,
			from:             time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
			want:             time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
		},
		{
			name:             "year arithmetic across feb 29",
			subscriptionType: models.Subscription12Months,
			from:             time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
			want:             time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:             "unknown type",
			subscriptionType: "2_weeks",
			from:             from,
			wantErr:          true,
		},
		{
			name:             "empty type",
			subscriptionType: "",
			from:             from,
			wantErr:          true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := End(tt.subscriptionType, tt.from)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("End(%q) expected error, got %v", tt.subscriptionType, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("End(%q) unexpected error: %v", tt.subscriptionType, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("End(%q, %v) = %v, want %v", tt.subscriptionType, tt.from, got, tt.want)
			}
		})
	}
}
