package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// telegramInterval keeps a single chat under Telegram's per-chat limit.
const telegramInterval = time.Second

// botAPI is the subset of *tgbotapi.BotAPI used by TelegramSender.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSender posts notifications to a Telegram chat.
type TelegramSender struct {
	bot     botAPI
	chatID  int64
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewTelegramSender connects to the bot API and verifies the token.
func NewTelegramSender(token string, chatID int64, logger *slog.Logger) (*TelegramSender, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	bot.Debug = false

	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Telegram sender initialized", "bot", bot.Self.UserName, "chat_id", chatID)
	return newTelegramSender(bot, chatID, logger), nil
}

func newTelegramSender(bot botAPI, chatID int64, logger *slog.Logger) *TelegramSender {
	return &TelegramSender{
		bot:     bot,
		chatID:  chatID,
		limiter: rate.NewLimiter(rate.Every(telegramInterval), 1),
		logger:  logger,
	}
}

func (s *TelegramSender) Send(ctx context.Context, n Notification) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit wait: %w", err)
	}

	msg := tgbotapi.NewMessage(s.chatID, formatTelegram(n))
	msg.DisableNotification = n.Silent
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// formatTelegram renders plain text; no parse mode so team names need no escaping.
func formatTelegram(n Notification) string {
	if n.Body == "" {
		return n.Title
	}
	return n.Title + "\n" + n.Body
}
