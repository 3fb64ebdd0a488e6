package telegram

import (
	"strings"
	"testing"
	"time"

	"github.com/pagemint/backend/internal/model"
)

func TestWalletText(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	tier := model.SubscriptionTierBasic
	until := now.Add(10 * 24 * time.Hour)

	tests := []struct {
		name    string
		wallet  model.Wallet
		want    []string
		notWant []string
	}{
		{
			name:    "empty",
			wallet:  model.Wallet{},
			want:    []string{"Coins: <b>0</b>", "Bonus coins: <b>0</b>"},
			notWant: []string{"Bonus expiry", "subscription"},
		},
		{
			name: "batches and subscription",
			wallet: model.Wallet{
				PermanentBalance: 40,
				ExpiringBalance:  12,
				Batches: []model.ExpiringBatch{
					{Amount: 5, ExpiresAt: now.Add(24 * time.Hour)},
					{Amount: 7, ExpiresAt: now.Add(7 * 24 * time.Hour)},
				},
				SubscriptionTier:  &tier,
				SubscriptionUntil: &until,
			},
			want: []string{"Coins: <b>40</b>", "Bonus coins: <b>12</b>", "• 5 until 02.05.2026", "• 7 until 08.05.2026", "BASIC subscription until 11.05.2026"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := walletText(&tt.wallet, now)
			for _, s := range tt.want {
				if !strings.Contains(got, s) {
					t.Errorf("walletText() missing %q in\n%s", s, got)
				}
			}
			for _, s := range tt.notWant {
				if strings.Contains(got, s) {
					t.Errorf("walletText() unexpectedly contains %q", s)
				}
			}
		})
	}
}

func TestWelcomeTextEscapesName(t *testing.T) {
	got := welcomeText("<b>Eve</b>")
	if strings.Contains(got, "<b>Eve</b>") || !strings.Contains(got, "&lt;b&gt;Eve&lt;/b&gt;") {
		t.Errorf("welcomeText() did not escape name:\n%s", got)
	}
}
