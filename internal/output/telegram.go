package output

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"greetd/internal/exitcode"
)

// TelegramOptions configures the telegram sink.
type TelegramOptions struct {
	Token  string
	ChatID int64

	// Timeout is the per-send HTTP budget.
	Timeout time.Duration
}

// Telegram pushes greetings to a chat. Send-only: no poller, no update
// handling.
type Telegram struct {
	opts TelegramOptions
	bot  *tele.Bot
}

// NewTelegram validates the token against the API up front, so a bad
// credential fails the run at construction rather than on first send.
func NewTelegram(opts TelegramOptions) (*Telegram, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, exitcode.Errorf(exitcode.Config, "telegram token is empty")
	}
	if opts.ChatID == 0 {
		return nil, exitcode.Errorf(exitcode.Config, "telegram chat id is not set")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  opts.Token,
		Client: &http.Client{Timeout: opts.Timeout},
	})
	if err != nil {
		return nil, exitcode.Wrap(exitcode.Unavailable, fmt.Errorf("telegram connect: %w", err))
	}
	return &Telegram{opts: opts, bot: b}, nil
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Send(ctx context.Context, msg string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	chat := &tele.Chat{ID: t.opts.ChatID}
	if _, err := t.bot.Send(chat, msg); err != nil {
		return exitcode.Wrap(exitcode.Unavailable, err)
	}
	return nil
}

func (t *Telegram) Close() error { return nil }
