// Package telegrambot implements transport.Provider over Telegram,
// adapted from internal/telegram/bot.go: the single-instance file lock
// (gofrs/flock), the conflict-detection error handler and the
// response-channel plumbing are reused, but session/whisper/bridge
// concerns are dropped — this package only bridges transport.Event.
package telegrambot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/gofrs/flock"

	"github.com/relaybroker/broker/internal/logging"
	"github.com/relaybroker/broker/internal/paths"
	"github.com/relaybroker/broker/internal/transport"
)

// Bot drives one Telegram bot token as a transport.Provider.
type Bot struct {
	token string
	log   *logging.Logger

	tgBot *bot.Bot
	lock  *flock.Flock

	cancelMu sync.Mutex
	cancel   context.CancelFunc

	events chan transport.Event
}

// New constructs a Bot for the given token. Connect must be called
// before it is usable.
func New(token string) *Bot {
	return &Bot{
		token:  token,
		log:    logging.New("telegrambot"),
		events: make(chan transport.Event, 100),
	}
}

// Connect acquires the cross-process single-instance lock (one broker
// per token, mirroring the teacher's per-token flock precedent) and
// starts long polling in the background.
func (b *Bot) Connect(ctx context.Context) error {
	lockPath := b.lockPath()
	if err := paths.EnsureDir(filepath.Dir(lockPath)); err != nil {
		return fmt.Errorf("failed to create lock dir: %w", err)
	}
	fl := flock.New(lockPath)
	locked, err := fl.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire telegram lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("telegram bot token already in use by another broker instance")
	}
	b.lock = fl

	runCtx, cancel := context.WithCancel(ctx)
	b.cancelMu.Lock()
	b.cancel = cancel
	b.cancelMu.Unlock()

	opts := []bot.Option{
		bot.WithDefaultHandler(b.handleUpdate),
		bot.WithErrorsHandler(func(err error) {
			if err == nil {
				return
			}
			if strings.Contains(strings.ToLower(err.Error()), "conflict") {
				b.log.Errorf("conflict detected, another process holds this token: %v", err)
				b.cancelMu.Lock()
				if b.cancel != nil {
					b.cancel()
				}
				b.cancelMu.Unlock()
				return
			}
			b.log.Warnf("telegram error: %v", err)
		}),
	}

	tgBot, err := bot.New(b.token, opts...)
	if err != nil {
		_ = b.lock.Unlock()
		return fmt.Errorf("failed to create telegram bot: %w", err)
	}
	b.tgBot = tgBot

	go tgBot.Start(runCtx)
	return nil
}

// Disconnect stops polling and releases the single-instance lock.
func (b *Bot) Disconnect() error {
	b.cancelMu.Lock()
	if b.cancel != nil {
		b.cancel()
	}
	b.cancelMu.Unlock()

	if b.lock != nil {
		return b.lock.Unlock()
	}
	return nil
}

// SendMessage sends plain text (already mobile-formatted by the caller) to recipient (a chat id).
func (b *Bot) SendMessage(ctx context.Context, recipient, text string) error {
	chatID, err := parseChatID(recipient)
	if err != nil {
		return err
	}
	_, err = b.tgBot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	return err
}

// Receive exposes inbound messages and callback clicks as transport.Event.
func (b *Bot) Receive() <-chan transport.Event {
	return b.events
}

// HealthCheck calls the Bot API's getMe, the cheapest authenticated
// round-trip available, to confirm the long-poll connection is still
// live. Used by transport.Transport's connection-state monitor.
func (b *Bot) HealthCheck(ctx context.Context) error {
	_, err := b.tgBot.GetMe(ctx)
	return err
}

func (b *Bot) handleUpdate(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.CallbackQuery != nil {
		cb := update.CallbackQuery
		_, _ = tgBot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cb.ID})
		b.events <- transport.Event{
			Recipient: fmt.Sprintf("%d", cb.Message.Message.Chat.ID),
			Text:      cb.Data,
			Raw:       cb,
		}
		return
	}
	if update.Message != nil {
		b.events <- transport.Event{
			Recipient: fmt.Sprintf("%d", update.Message.Chat.ID),
			Text:      update.Message.Text,
			Raw:       update.Message,
		}
	}
}

func (b *Bot) lockPath() string {
	hash := sha256.Sum256([]byte(b.token))
	return filepath.Join(paths.GetGlobalDir(), fmt.Sprintf("tg-bot-%s.lock", hex.EncodeToString(hash[:8])))
}

func parseChatID(recipient string) (int64, error) {
	var id int64
	_, err := fmt.Sscanf(recipient, "%d", &id)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram chat id %q: %w", recipient, err)
	}
	return id, nil
}
