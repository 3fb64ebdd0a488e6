package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pagemint/backend/internal/config"
	"github.com/pagemint/backend/internal/model"
	"github.com/pagemint/backend/internal/service"
	"github.com/sirupsen/logrus"
	tele "gopkg.in/telebot.v3"
)

const requestTimeout = 10 * time.Second

type Bot struct {
	bot         *tele.Bot
	cfg         *config.Config
	log         logrus.FieldLogger
	userService *service.UserService
	balanceSvc  *service.BalanceService
	rewardSvc   *service.RewardService
}

func NewBot(
	cfg *config.Config,
	log logrus.FieldLogger,
	userService *service.UserService,
	balanceSvc *service.BalanceService,
	rewardSvc *service.RewardService,
) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.Telegram.BotToken,
		Poller: &tele.LongPoller{Timeout: 60 * time.Second},
		OnError: func(err error, c tele.Context) {
			log.WithError(err).Warn("telegram handler failed")
		},
	}

	bot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:         bot,
		cfg:         cfg,
		log:         log,
		userService: userService,
		balanceSvc:  balanceSvc,
		rewardSvc:   rewardSvc,
	}

	b.registerHandlers()

	return b, nil
}

func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.handleStart)
	b.bot.Handle("/wallet", b.handleWallet)
	b.bot.Handle("/checkin", b.handleCheckIn)
	b.bot.Handle("/help", b.handleHelp)

	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

func (b *Bot) StartPolling(ctx context.Context) {
	go func() {
		<-ctx.Done()
		b.bot.Stop()
	}()
	b.bot.Start()
}

func (b *Bot) GetBotUsername() string {
	return b.bot.Me.Username
}

func (b *Bot) webAppButton(keyboard *tele.ReplyMarkup, text string) tele.Btn {
	return keyboard.WebApp(text, &tele.WebApp{URL: b.cfg.Telegram.WebAppURL})
}

func (b *Bot) handleStart(c tele.Context) error {
	user := c.Sender()
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	firstName := user.FirstName
	lastName := user.LastName
	username := user.Username
	langCode := user.LanguageCode

	_, err := b.userService.EnsureUser(ctx, service.TelegramUser{
		ID:           user.ID,
		Username:     &username,
		FirstName:    &firstName,
		LastName:     &lastName,
		LanguageCode: &langCode,
	})
	if err != nil {
		return err
	}

	keyboard := &tele.ReplyMarkup{}
	keyboard.Inline(
		keyboard.Row(
			b.webAppButton(keyboard, "📖 Open library"),
		),
		keyboard.Row(
			keyboard.Data("🎁 Daily bonus", "checkin"),
			keyboard.Data("👛 Wallet", "wallet"),
		),
	)

	return c.Send(welcomeText(user.FirstName), keyboard, tele.ModeHTML)
}

func (b *Bot) handleWallet(c tele.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	wallet, err := b.balanceSvc.GetWallet(ctx, c.Sender().ID)
	if err != nil {
		b.log.WithError(err).WithField("user_id", c.Sender().ID).Warn("failed to load wallet")
		return c.Send("Send /start first to open your wallet.")
	}

	keyboard := &tele.ReplyMarkup{}
	keyboard.Inline(
		keyboard.Row(
			b.webAppButton(keyboard, "📖 Spend coins"),
		),
	)
	return c.Send(walletText(wallet, time.Now()), keyboard, tele.ModeHTML)
}

func (b *Bot) handleCheckIn(c tele.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	batch, err := b.rewardSvc.DailyCheckIn(ctx, c.Sender().ID)
	switch {
	case errors.Is(err, service.ErrAlreadyClaimed):
		return c.Send("You already collected today's bonus. Come back tomorrow!")
	case err != nil:
		b.log.WithError(err).WithField("user_id", c.Sender().ID).Warn("check-in failed")
		return c.Send("Could not collect the bonus right now. Please try again later.")
	}
	return c.Send(bonusGrantedText(batch.Amount, batch.ExpiresAt), tele.ModeHTML)
}

func (b *Bot) handleHelp(c tele.Context) error {
	text := `📖 <b>How coins work</b>

<b>Coins</b> never expire. Buy them in the app and use them for permanent unlocks or rentals.

<b>Bonus coins</b> come from daily check-ins, ads, promo codes and subscriptions. They expire, and the ones expiring soonest are always spent first. Bonus coins can only rent chapters.

/wallet shows your balances
/checkin collects the daily bonus`

	keyboard := &tele.ReplyMarkup{}
	keyboard.Inline(
		keyboard.Row(
			b.webAppButton(keyboard, "📖 Open library"),
		),
	)

	return c.Send(text, keyboard, tele.ModeHTML)
}

func (b *Bot) handleCallback(c tele.Context) error {
	defer c.Respond()

	// telebot prefixes unique button data with \f
	switch strings.TrimPrefix(c.Callback().Data, "\f") {
	case "wallet":
		return b.handleWallet(c)
	case "checkin":
		return b.handleCheckIn(c)
	}
	return nil
}

func (b *Bot) SendMessage(chatID int64, text string) error {
	_, err := b.bot.Send(&tele.User{ID: chatID}, text, tele.ModeHTML)
	return err
}

func (b *Bot) sendWithApp(chatID int64, text, button string) error {
	keyboard := &tele.ReplyMarkup{}
	keyboard.Inline(
		keyboard.Row(
			b.webAppButton(keyboard, button),
		),
	)
	_, err := b.bot.Send(&tele.User{ID: chatID}, text, keyboard, tele.ModeHTML)
	return err
}

func (b *Bot) SendBonusGranted(chatID int64, amount int64, expiresAt time.Time) error {
	return b.sendWithApp(chatID, bonusGrantedText(amount, expiresAt), "📖 Spend bonus")
}

func (b *Bot) SendSubscriptionRenewed(chatID int64, tier model.SubscriptionTier, validUntil time.Time) error {
	return b.sendWithApp(chatID, subscriptionRenewedText(tier, validUntil), "📖 Open library")
}

func (b *Bot) SendPaymentFailed(chatID int64) error {
	return b.sendWithApp(chatID, paymentFailedText, "💳 Update payment")
}

func (b *Bot) SendBonusExpiring(chatID int64, amount int64, expiresAt time.Time) error {
	return b.sendWithApp(chatID, bonusExpiringText(amount, expiresAt), "📖 Spend bonus")
}

var _ service.Notifier = (*Bot)(nil)
