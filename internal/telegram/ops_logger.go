package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/cosmiccreator/internal/config"
	"github.com/shopspring/decimal"
)

const MaxMessageLen = 4096

// MessageSender is the part of *bot.Bot the logger needs.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// OpsLogger posts operational events to topic threads of one Telegram chat.
// It implements service.Notifier and does nothing without a chat ID.
type OpsLogger struct {
	sender MessageSender
	cfg    *config.Config
	now    func() time.Time
}

func NewOpsLogger(sender MessageSender, cfg *config.Config) *OpsLogger {
	return &OpsLogger{sender: sender, cfg: cfg, now: time.Now}
}

type LogType string

const (
	LogTypeError           LogType = "error"
	LogTypeRegistration    LogType = "registration"
	LogTypePayment         LogType = "payment"
	LogTypeVideoManifested LogType = "videoManifested"
)

// Log sends message to the topic of logType. MarkdownV2 is tried first;
// if Telegram rejects it the text is resent plain.
func (l *OpsLogger) Log(logType LogType, message string) {
	if l.sender == nil || l.cfg.LogTelegramChatID == 0 {
		return
	}

	topicID := l.getTopicID(logType)
	if topicID == 0 {
		return
	}

	// Truncate if too long
	if len([]rune(message)) > MaxMessageLen {
		message = string([]rune(message)[:MaxMessageLen-20]) + "\n\n... (truncated)"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	params := &bot.SendMessageParams{
		ChatID:          l.cfg.LogTelegramChatID,
		Text:            message,
		ParseMode:       models.ParseModeMarkdown,
		MessageThreadID: topicID,
	}
	if _, err := l.sender.SendMessage(ctx, params); err != nil {
		slog.Warn("markdown send failed, falling back to plain text", "type", logType, "error", err)
		params.ParseMode = ""
		if _, err := l.sender.SendMessage(ctx, params); err != nil {
			slog.Error("failed to send telegram log", "type", logType, "error", err)
		}
	}
}

func (l *OpsLogger) LogError(err error, context string) {
	msg := fmt.Sprintf("❌ *Error*\n\n*Context:* %s\n*Error:* `%s`\n*Time:* %s",
		bot.EscapeMarkdown(context), bot.EscapeMarkdown(err.Error()), l.stamp())
	l.Log(LogTypeError, msg)
}

func (l *OpsLogger) LogRegistration(username string) {
	msg := fmt.Sprintf("👤 *New Creator*\n\n*Name:* %s\n*Time:* %s",
		bot.EscapeMarkdown(username), l.stamp())
	l.Log(LogTypeRegistration, msg)
}

func (l *OpsLogger) LogPayment(username string, amount decimal.Decimal, currency string) {
	msg := fmt.Sprintf("💰 *Payment*\n\n*Creator:* %s\n*Amount:* %s %s",
		bot.EscapeMarkdown(username), bot.EscapeMarkdown(amount.StringFixed(2)), bot.EscapeMarkdown(currency))
	l.Log(LogTypePayment, msg)
}

func (l *OpsLogger) LogVideoManifested(username, starID string) {
	star := starID
	if star == "" {
		star = "free animation"
	}
	msg := fmt.Sprintf("🎬 *Video Manifested*\n\n*Creator:* %s\n*Star:* %s",
		bot.EscapeMarkdown(username), bot.EscapeMarkdown(star))
	l.Log(LogTypeVideoManifested, msg)
}

func (l *OpsLogger) stamp() string {
	return bot.EscapeMarkdown(l.now().Format("2006-01-02 15:04:05"))
}

func (l *OpsLogger) getTopicID(logType LogType) int {
	switch logType {
	case LogTypeError:
		return l.cfg.LogTopicError
	case LogTypeRegistration:
		return l.cfg.LogTopicRegistration
	case LogTypePayment:
		return l.cfg.LogTopicPayment
	case LogTypeVideoManifested:
		return l.cfg.LogTopicVideoManifested
	default:
		return 0
	}
}
