package present

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"geopush/internal/config"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
)

// defaultMessageTemplate renders title and body on separate lines.
const defaultMessageTemplate = "{{.Title}}\n{{.Body}}"

// TelegramPresenter mirrors notifications to a Telegram chat.
// Params: bot client, destination chat, and message template.
// Returns: presenter used when no native notification surface exists.
type TelegramPresenter struct {
	categoryBook
	client  *tgbot.Bot
	chatID  any
	message *template.Template
	initErr error
}

// NewTelegramPresenter creates a Telegram-backed presenter.
// Params: Telegram presenter config.
// Returns: initialized presenter; init errors surface on first Submit.
func NewTelegramPresenter(cfg config.TelegramPresenter) *TelegramPresenter {
	presenter := &TelegramPresenter{
		chatID: normalizeChatID(cfg.ChatID),
	}

	if strings.TrimSpace(cfg.BotToken) == "" {
		presenter.initErr = errors.New("telegram bot token is required")
		return presenter
	}
	if strings.TrimSpace(cfg.ChatID) == "" {
		presenter.initErr = errors.New("telegram chat_id is required")
		return presenter
	}

	body := strings.TrimSpace(cfg.Template)
	if body == "" {
		body = defaultMessageTemplate
	}
	parsed, err := template.New("present.telegram.message").Parse(body)
	if err != nil {
		presenter.initErr = fmt.Errorf("parse telegram message template: %w", err)
		return presenter
	}
	presenter.message = parsed

	options := []tgbot.Option{
		tgbot.WithSkipGetMe(),
	}
	if base := strings.TrimSpace(cfg.APIBase); base != "" {
		options = append(options, tgbot.WithServerURL(strings.TrimRight(base, "/")))
	}
	botClient, err := tgbot.New(cfg.BotToken, options...)
	if err != nil {
		presenter.initErr = fmt.Errorf("init telegram bot: %w", err)
		return presenter
	}
	presenter.client = botClient
	return presenter
}

// RequestPermission reports authorization based on client readiness.
// Params: context (unused).
// Returns: granted when the bot client initialized.
func (p *TelegramPresenter) RequestPermission(ctx context.Context) (bool, error) {
	if p.initErr != nil {
		return false, p.initErr
	}
	return true, nil
}

// Submit renders and posts one notification to the configured chat.
// Params: context and notification.
// Returns: template or transport error.
func (p *TelegramPresenter) Submit(ctx context.Context, notification LocalNotification) error {
	if p.initErr != nil {
		return p.initErr
	}
	if p.client == nil {
		return errors.New("telegram client is not initialized")
	}

	var rendered strings.Builder
	if err := p.message.Execute(&rendered, notification); err != nil {
		return fmt.Errorf("render telegram message: %w", err)
	}

	request := &tgbot.SendMessageParams{
		ChatID:    p.chatID,
		Text:      rendered.String(),
		ParseMode: tgmodels.ParseModeHTML,
	}
	sent, err := p.client.SendMessage(ctx, request)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	if sent == nil || sent.ID <= 0 {
		return errors.New("telegram send returned empty message id")
	}
	return nil
}

// normalizeChatID converts numeric chat IDs to int64 and keeps non-numeric IDs as string.
// Params: configured chat ID value from TOML.
// Returns: Telegram API chat id union value.
func normalizeChatID(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if numeric, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return numeric
	}
	return trimmed
}
