package telegram

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/pagemint/backend/internal/model"
)

const dateFormat = "02.01.2006"

const paymentFailedText = `⚠️ <b>Subscription payment failed</b>

We could not charge your card. Update your payment method to keep your subscription.`

func welcomeText(firstName string) string {
	return fmt.Sprintf(`Hi, %s! 👋

📚 <b>PageMint</b> is a library of serialized stories.

✅ Free first chapters
✅ Rent a chapter for 3 days or keep it forever
✅ Daily bonus coins

Tap the button below to start reading.`, html.EscapeString(firstName))
}

func walletText(w *model.Wallet, now time.Time) string {
	var sb strings.Builder
	sb.WriteString("👛 <b>Your wallet</b>\n\n")
	fmt.Fprintf(&sb, "Coins: <b>%d</b>\n", w.PermanentBalance)
	fmt.Fprintf(&sb, "Bonus coins: <b>%d</b>\n", w.ExpiringBalance)

	if len(w.Batches) > 0 {
		sb.WriteString("\nBonus expiry:\n")
		for _, batch := range w.Batches {
			fmt.Fprintf(&sb, "• %d until %s\n", batch.Amount, batch.ExpiresAt.Format(dateFormat))
		}
	}
	if w.SubscriptionTier != nil && w.SubscriptionUntil != nil && w.SubscriptionUntil.After(now) {
		fmt.Fprintf(&sb, "\n⭐ %s subscription until %s\n", *w.SubscriptionTier, w.SubscriptionUntil.Format(dateFormat))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func bonusGrantedText(amount int64, expiresAt time.Time) string {
	return fmt.Sprintf(`🎁 <b>+%d bonus coins</b>

Valid until %s.`, amount, expiresAt.Format(dateFormat))
}

func bonusExpiringText(amount int64, expiresAt time.Time) string {
	return fmt.Sprintf(`⏰ <b>%d bonus coins expire soon</b>

They will be gone on %s. Rent a chapter before then!`, amount, expiresAt.Format("02.01.2006 15:04 MST"))
}

func subscriptionRenewedText(tier model.SubscriptionTier, validUntil time.Time) string {
	return fmt.Sprintf(`✅ <b>%s subscription active</b>

Thank you! Your subscription is active until %s.`, tier, validUntil.Format(dateFormat))
}
