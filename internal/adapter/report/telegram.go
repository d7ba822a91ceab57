package report

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cast"

	"github.com/semmidev/indexcurator/internal/config"
	"github.com/semmidev/indexcurator/internal/domain"
)

// Telegram caps a message at 4096 characters; long index lists are cut.
const maxListedIndices = 50

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram notifies a chat when a run changed something or failed.
type Telegram struct {
	bot        sender
	chatID     int64
	notifyIdle bool
}

func NewTelegram(cfg *config.TelegramReportConfig) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	chatID, err := cast.ToInt64E(cfg.ChatID)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat id %q: %w", cfg.ChatID, err)
	}

	return &Telegram{
		bot:        bot,
		chatID:     chatID,
		notifyIdle: cfg.NotifyIdle,
	}, nil
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Report(ctx context.Context, r domain.Report) error {
	if r.Succeeded() && !t.notifyIdle && (r.Result == nil || !r.Result.Changed) {
		return nil
	}

	msg := tgbotapi.NewMessage(t.chatID, formatMessage(r))
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram notification: %w", err)
	}
	return nil
}

func formatMessage(r domain.Report) string {
	var b strings.Builder

	target := ""
	if r.Request != nil {
		target = fmt.Sprintf("%s:%d", r.Request.Host, r.Request.Port)
	}

	if !r.Succeeded() {
		fmt.Fprintf(&b, "❌ Index cleanup failed\n\n")
		if target != "" {
			fmt.Fprintf(&b, "🌐 Cluster: %s\n", target)
		}
		fmt.Fprintf(&b, "⚠️ %s\n", r.Failure.Message)
		fmt.Fprintf(&b, "🕐 Time: %s", r.FinishedAt.Format("2006-01-02 15:04:05"))
		return b.String()
	}

	deleted := r.Result.DeletedIndices
	switch {
	case r.Result.DryRun:
		fmt.Fprintf(&b, "🔎 Index cleanup dry run\n\n")
	case len(deleted) == 0:
		fmt.Fprintf(&b, "✅ Index cleanup: nothing to delete\n\n")
	default:
		fmt.Fprintf(&b, "🧹 Index cleanup deleted %d index(es)\n\n", len(deleted))
	}
	if target != "" {
		fmt.Fprintf(&b, "🌐 Cluster: %s\n", target)
	}
	for i, name := range deleted {
		if i == maxListedIndices {
			fmt.Fprintf(&b, "… and %d more\n", len(deleted)-maxListedIndices)
			break
		}
		fmt.Fprintf(&b, "• %s\n", name)
	}
	fmt.Fprintf(&b, "🕐 Time: %s", r.FinishedAt.Format("2006-01-02 15:04:05"))
	return b.String()
}
