package telegram

import (
	"context"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	auth "github.com/goliatone/go-phone-auth"
)

// API is the part of *tgbotapi.BotAPI the bot needs
type API interface {
	Sender
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Sessions is the subset of *auth.Manager the bot drives
type Sessions interface {
	Get(ctx context.Context, id string) (*auth.AuthSession, error)
	Approve(ctx context.Context, id string, identityID int64, handle string) (*auth.AuthSession, error)
	Reject(ctx context.Context, id string) (*auth.AuthSession, error)
	CheckIdentity(ctx context.Context, id string, identityID int64) (*auth.AuthSession, error)
	PendingByIdentity(ctx context.Context, identityID int64) (*auth.AuthSession, error)
	UserByIdentity(ctx context.Context, identityID int64) (*auth.User, error)
	LinkIdentity(ctx context.Context, rawPhone string, identityID int64, handle string) (*auth.User, *auth.AuthSession, error)
	Publish(ctx context.Context, session *auth.AuthSession, kind auth.EventKind)
}

var _ Sessions = (*auth.Manager)(nil)

type Option func(*Bot)

// WithLogger overrides the default logger.
func WithLogger(logger auth.Logger) Option {
	return func(b *Bot) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithPollTimeout sets the long polling timeout in seconds.
func WithPollTimeout(seconds int) Option {
	return func(b *Bot) {
		if seconds > 0 {
			b.pollTimeout = seconds
		}
	}
}

// Bot turns chat updates into session decisions
type Bot struct {
	api         API
	sessions    Sessions
	notifier    *Notifier
	logger      auth.Logger
	pollTimeout int
}

func NewBot(api API, sessions Sessions, opts ...Option) *Bot {
	b := &Bot{
		api:         api,
		sessions:    sessions,
		logger:      auth.DefaultLogger(),
		pollTimeout: 60,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}

	b.notifier = NewNotifier(api, b.logger)

	return b
}

// Run long polls for updates until ctx is done. Each update is handled
// in its own goroutine, Run waits for them before returning.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = b.pollTimeout

	updates := b.api.GetUpdatesChan(cfg)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func(u tgbotapi.Update) {
				defer wg.Done()
				b.HandleUpdate(ctx, u)
			}(update)
		}
	}
}

// HandleUpdate dispatches a single update
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.Contact != nil:
		b.handleContact(ctx, update.Message)
	case update.Message != nil && update.Message.IsCommand() && update.Message.Command() == "start":
		b.handleStart(ctx, update.Message)
	}
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	action, sessionID, ok := parseCallbackData(q.Data)
	if !ok || q.From == nil {
		b.notifier.answer(q.ID, textUnknownAction)
		return
	}

	// callback data is client supplied, only the linked identity may decide
	_, err := b.sessions.CheckIdentity(ctx, sessionID, q.From.ID)
	if err == nil {
		switch action {
		case actionApprove:
			_, err = b.sessions.Approve(ctx, sessionID, q.From.ID, q.From.UserName)
		case actionReject:
			_, err = b.sessions.Reject(ctx, sessionID)
		}
	}

	text, unexpected := outcomeText(action, err)
	if unexpected != nil {
		b.logger.Error("telegram %s session %s: %v", action, sessionID, unexpected)
	}

	b.notifier.answer(q.ID, text)

	if q.Message != nil && q.Message.Chat != nil {
		if err := b.notifier.Edit(q.Message.Chat.ID, q.Message.MessageID, text); err != nil {
			b.logger.Warn("telegram edit prompt: %v", err)
		}
	}
}

// handleContact links the sender to the shared phone number. Only the
// sender's own contact is accepted.
func (b *Bot) handleContact(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID

	if msg.Contact.UserID != msg.From.ID {
		b.notifier.text(chatID, textForeignContact, nil)
		return
	}

	_, pending, err := b.sessions.LinkIdentity(ctx, msg.Contact.PhoneNumber, msg.From.ID, msg.From.UserName)
	if err != nil {
		b.logger.Error("telegram link identity %d: %v", msg.From.ID, err)
		b.notifier.text(chatID, textFailed, nil)
		return
	}

	b.notifier.text(chatID, textLinked, tgbotapi.NewRemoveKeyboard(true))

	if pending != nil {
		b.prompt(chatID, pending.ID.String())
	}
}

// handleStart greets the sender. Unknown chats are asked for their phone
// number. A deep link argument names the session the chat was sent from.
func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID

	if _, err := b.sessions.UserByIdentity(ctx, msg.From.ID); err != nil {
		if !auth.IsNotFound(err) {
			b.logger.Error("telegram start %d: %v", msg.From.ID, err)
			b.notifier.text(chatID, textFailed, nil)
			return
		}
		b.announceFromLink(ctx, msg.CommandArguments(), auth.EventPhoneRequested)
		b.notifier.text(chatID, textSharePhone, sharePhoneKeyboard())
		return
	}

	pending, err := b.sessions.PendingByIdentity(ctx, msg.From.ID)
	if err != nil {
		if !auth.IsNotFound(err) {
			b.logger.Error("telegram start %d: %v", msg.From.ID, err)
		}
		b.notifier.text(chatID, textWelcome, nil)
		return
	}

	b.sessions.Publish(ctx, pending, auth.EventBotStarted)
	b.prompt(chatID, pending.ID.String())
}

func (b *Bot) announceFromLink(ctx context.Context, arg string, kind auth.EventKind) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return
	}

	session, err := b.sessions.Get(ctx, arg)
	if err != nil || !session.IsPending() {
		return
	}
	b.sessions.Publish(ctx, session, kind)
}

func (b *Bot) prompt(chatID int64, sessionID string) {
	if err := b.notifier.Prompt(chatID, sessionID); err != nil {
		b.logger.Warn("telegram prompt %d: %v", chatID, err)
	}
}
