// Copyright (c) 2025 madmickstar

// Package notify delivers operator notifications for trade events. Delivery
// is best effort; the trading loop never blocks a cycle on a failed send.
package notify

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
)

type Notifier interface {
	// SendMessage delivers a subject line and detail lines as one message.
	SendMessage(ctx context.Context, subject string, lines ...string) error
}

// Nop discards every message. Used when no messaging backend is configured.
type Nop struct{}

func (Nop) SendMessage(ctx context.Context, subject string, lines ...string) error {
	return nil
}

// Telegram sends messages to a fixed chat through a Telegram bot.
type Telegram struct {
	bot    *bot.Bot
	chatID int64
}

var _ Notifier = (*Telegram)(nil)

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: b, chatID: chatID}, nil
}

func (t *Telegram) SendMessage(ctx context.Context, subject string, lines ...string) error {
	text := subject
	if len(lines) > 0 {
		text = subject + "\n" + strings.Join(lines, "\n")
	}
	_, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: t.chatID,
		Text:   text,
	})
	return err
}
