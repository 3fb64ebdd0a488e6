package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pagemint/backend/internal/config"
	"github.com/pagemint/backend/internal/service"
	"github.com/sirupsen/logrus"
)

const (
	TelegramUserKey = "telegram_user"
	UserIDKey       = "user_id"
)

type TelegramInitData struct {
	QueryID      string `json:"query_id"`
	UserID       int64  `json:"user_id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	LanguageCode string `json:"language_code"`
	AuthDate     int64  `json:"auth_date"`
	Hash         string `json:"hash"`
}

type initDataUser struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	LanguageCode string `json:"language_code"`
}

func initDataFromRequest(c *fiber.Ctx) string {
	initData := c.Get("X-Telegram-Init-Data")
	if initData == "" {
		initData = strings.TrimPrefix(c.Get("Authorization"), "tma ")
	}
	return initData
}

// TelegramAuth rejects requests without valid Mini App init data.
func TelegramAuth(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		initData := initDataFromRequest(c)
		if initData == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing telegram init data",
			})
		}

		userData, err := ValidateTelegramInitData(initData, cfg.Telegram.BotToken, cfg.Telegram.AuthMaxAge, time.Now())
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid telegram init data: " + err.Error(),
			})
		}

		c.Locals(TelegramUserKey, userData)
		c.Locals(UserIDKey, userData.UserID)

		return c.Next()
	}
}

// OptionalTelegramAuth identifies the user when valid init data is present
// and lets anonymous requests through otherwise.
func OptionalTelegramAuth(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		initData := initDataFromRequest(c)
		if initData == "" {
			return c.Next()
		}
		userData, err := ValidateTelegramInitData(initData, cfg.Telegram.BotToken, cfg.Telegram.AuthMaxAge, time.Now())
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid telegram init data: " + err.Error(),
			})
		}
		c.Locals(TelegramUserKey, userData)
		c.Locals(UserIDKey, userData.UserID)
		return c.Next()
	}
}

// EnsureUser creates the wallet of an authenticated user on first request.
func EnsureUser(userSvc *service.UserService, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tgUser := GetTelegramUser(c)
		if tgUser == nil || tgUser.UserID == 0 {
			return c.Next()
		}
		_, err := userSvc.EnsureUser(c.UserContext(), service.TelegramUser{
			ID:           tgUser.UserID,
			Username:     optional(tgUser.Username),
			FirstName:    optional(tgUser.FirstName),
			LastName:     optional(tgUser.LastName),
			LanguageCode: optional(tgUser.LanguageCode),
		})
		if err != nil {
			log.WithError(err).WithField("user_id", tgUser.UserID).Error("failed to ensure user")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load user",
			})
		}
		return c.Next()
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ValidateTelegramInitData checks the init data hash against the bot token and
// rejects data older than maxAge.
func ValidateTelegramInitData(initData, botToken string, maxAge time.Duration, now time.Time) (*TelegramInitData, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, err
	}

	hash := values.Get("hash")
	if hash == "" {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "missing hash")
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "invalid auth_date")
	}
	if maxAge > 0 && now.Sub(time.Unix(authDate, 0)) > maxAge {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "auth_date expired")
	}

	values.Del("hash")
	if !hmac.Equal([]byte(SignInitData(values, botToken)), []byte(hash)) {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "invalid hash")
	}

	userData := &TelegramInitData{
		QueryID:  values.Get("query_id"),
		AuthDate: authDate,
		Hash:     hash,
	}

	if raw := values.Get("user"); raw != "" {
		var u initDataUser
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "invalid user payload")
		}
		userData.UserID = u.ID
		userData.Username = u.Username
		userData.FirstName = u.FirstName
		userData.LastName = u.LastName
		userData.LanguageCode = u.LanguageCode
	}
	if userData.UserID == 0 {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "missing user")
	}

	return userData, nil
}

// SignInitData computes the Mini App hash of values (without the hash field).
func SignInitData(values url.Values, botToken string) string {
	keys := make([]string, 0, len(values))
	for key := range values {
		if key == "hash" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+"="+values.Get(key))
	}
	dataCheckString := strings.Join(parts, "\n")

	secretKey := hmac.New(sha256.New, []byte("WebAppData"))
	secretKey.Write([]byte(botToken))

	h := hmac.New(sha256.New, secretKey.Sum(nil))
	h.Write([]byte(dataCheckString))
	return hex.EncodeToString(h.Sum(nil))
}

func GetUserID(c *fiber.Ctx) int64 {
	userID, ok := c.Locals(UserIDKey).(int64)
	if !ok {
		return 0
	}
	return userID
}

// OptionalUserID returns nil for anonymous requests.
func OptionalUserID(c *fiber.Ctx) *int64 {
	userID := GetUserID(c)
	if userID == 0 {
		return nil
	}
	return &userID
}

func GetTelegramUser(c *fiber.Ctx) *TelegramInitData {
	userData, ok := c.Locals(TelegramUserKey).(*TelegramInitData)
	if !ok {
		return nil
	}
	return userData
}
